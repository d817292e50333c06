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
	"encoding/json"
	"net/http"
	"strconv"

	apperrors "github.com/ashita-ai/tessera/internal/errors"
	"github.com/ashita-ai/tessera/internal/httpapi/middleware"
	"github.com/ashita-ai/tessera/internal/validation"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// page is the pagination envelope every list endpoint returns, matching
// the original's {total, offset, limit, results}.
type page struct {
	Total   int `json:"total"`
	Offset  int `json:"offset"`
	Limit   int `json:"limit"`
	Results any `json:"results"`
}

// writePage writes a paginated list response, also setting X-Total-Count
// so a caller can page without re-parsing the body.
func writePage(w http.ResponseWriter, total, offset, limit int, results any) {
	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	middleware.WriteJSON(w, http.StatusOK, page{Total: total, Offset: offset, Limit: limit, Results: results})
}

// writeJSON is a thin re-export so handlers in this package don't need to
// import middleware directly for the common case.
func writeJSON(w http.ResponseWriter, status int, v any) {
	middleware.WriteJSON(w, status, v)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	middleware.WriteError(w, r, err)
}

// pagination parses limit/offset query parameters, defaulting to
// defaultLimit/0 and rejecting a limit outside (0, maxLimit].
func pagination(r *http.Request) (limit, offset int, err error) {
	limit = defaultLimit
	offset = 0

	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil {
			return 0, 0, apperrors.NewValidationError("limit must be an integer")
		}
	}
	if limit <= 0 || limit > maxLimit {
		return 0, 0, apperrors.NewValidationError("limit must be between 1 and 100")
	}

	if v := r.URL.Query().Get("offset"); v != "" {
		offset, err = strconv.Atoi(v)
		if err != nil {
			return 0, 0, apperrors.NewValidationError("offset must be an integer")
		}
	}
	if offset < 0 {
		return 0, 0, apperrors.NewValidationError("offset must not be negative")
	}
	return limit, offset, nil
}

// decodeJSON reads and validates the request body into dst.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperrors.NewValidationError("invalid request body: " + err.Error())
	}
	if err := validation.Struct(dst); err != nil {
		return err
	}
	return nil
}
