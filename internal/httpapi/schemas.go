/*
Copyright 2025 The Tessera Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package httpapi

import (
	"net/http"
)

type validateSchemaRequest struct {
	Schema map[string]any `json:"schema" validate:"required"`
}

type validateSchemaResponse struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// handleValidateSchema backs POST /schemas/validate, the structural
// well-formedness check spec §4.4.2 runs as the first step of
// publication, exposed standalone so a caller can validate a candidate
// schema before attempting to publish it.
func (a *api) handleValidateSchema(w http.ResponseWriter, r *http.Request) {
	var req validateSchemaRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if err := a.validator.Validate(req.Schema); err != nil {
		writeJSON(w, http.StatusOK, validateSchemaResponse{Valid: false, Reason: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, validateSchemaResponse{Valid: true})
}
