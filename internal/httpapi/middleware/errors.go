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

package middleware

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/ashita-ai/tessera/internal/errors"
)

// errorCodeFor maps an ErrorType onto the upper-snake-case code the
// original API's ErrorCode enum used, since nothing downstream of this
// edge should ever see the internal taxonomy's lowercase names.
func errorCodeFor(t apperrors.ErrorType) string {
	return strings.ToUpper(string(t))
}

// WriteJSON encodes v as the response body with the given status code,
// setting Content-Type once so every handler need not repeat it.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
	Timestamp string `json:"timestamp"`
	Details   string `json:"details,omitempty"`
}

// WriteError translates err into the standardized error envelope
// ({"error": {code, message, request_id, timestamp, details?}}) and the
// status code internal/errors maps its type onto, attaching whatever
// request ID RequestID stashed in r's context.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.GetStatusCode(err)
	body := errorEnvelope{Error: errorBody{
		Code:      errorCodeFor(apperrors.GetType(err)),
		Message:   apperrors.SafeErrorMessage(err),
		RequestID: RequestIDFromContext(r.Context()),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}}
	if appErr, ok := err.(*apperrors.AppError); ok {
		body.Error.Details = appErr.Details
	}
	WriteJSON(w, status, body)
}
