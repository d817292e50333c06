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
	"strconv"
	"strings"

	apperrors "github.com/ashita-ai/tessera/internal/errors"
)

const defaultSearchLimit = 20

// handleSearch backs GET /search?q=&limit=&types=: a free-text lookup
// over asset FQNs, with an optional comma-separated resource_type filter
// applied in-process since pkg/store.SearchAssets takes only the query
// string and a limit.
func (a *api) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeError(w, r, apperrors.NewValidationError("q is required"))
		return
	}

	limit := defaultSearchLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 || parsed > maxLimit {
			writeError(w, r, apperrors.NewValidationError("limit must be between 1 and 100"))
			return
		}
		limit = parsed
	}

	assets, err := a.store.SearchAssets(r.Context(), q, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if types := r.URL.Query().Get("types"); types != "" {
		wanted := make(map[string]bool)
		for _, t := range strings.Split(types, ",") {
			wanted[strings.TrimSpace(t)] = true
		}
		filtered := assets[:0]
		for _, asset := range assets {
			if wanted[asset.ResourceType] {
				filtered = append(filtered, asset)
			}
		}
		assets = filtered
	}

	writeJSON(w, http.StatusOK, map[string]any{"results": assets, "total": len(assets)})
}
