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

	"github.com/google/uuid"

	apperrors "github.com/ashita-ai/tessera/internal/errors"
	"github.com/ashita-ai/tessera/pkg/sync"
	"github.com/ashita-ai/tessera/pkg/sync/gitsync"
)

type dbtSyncRequest struct {
	Manifest    sync.DbtManifest `json:"manifest" validate:"required"`
	OwnerTeamID uuid.UUID        `json:"owner_team_id" validate:"required"`
}

// handleSyncDbt backs POST /sync/dbt: the plain one-pass model/seed/
// snapshot/source upsert, with no conflict-mode or meta.tessera.owner_team
// resolution. handleSyncDbtUpload is the richer counterpart for callers
// that need those.
func (a *api) handleSyncDbt(w http.ResponseWriter, r *http.Request) {
	var req dbtSyncRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	result, err := a.sync.SyncFromDbt(r.Context(), req.Manifest, req.OwnerTeamID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type dbtUploadRequest struct {
	Manifest    sync.DbtManifest   `json:"manifest" validate:"required"`
	OwnerTeamID uuid.UUID          `json:"owner_team_id" validate:"required"`
	ConflictMode sync.ConflictMode `json:"conflict_mode"`
}

func (a *api) handleSyncDbtUpload(w http.ResponseWriter, r *http.Request) {
	var req dbtUploadRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	result, err := a.sync.UploadDbt(r.Context(), req.Manifest, req.OwnerTeamID, req.ConflictMode)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type dbtImpactRequest struct {
	Manifest sync.DbtManifest `json:"manifest" validate:"required"`
}

func (a *api) handleSyncDbtImpact(w http.ResponseWriter, r *http.Request) {
	var req dbtImpactRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	summary, err := a.sync.CheckDbtImpact(r.Context(), req.Manifest)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (a *api) handleSyncOpenAPI(w http.ResponseWriter, r *http.Request) {
	var req sync.OpenAPIImportRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	result, err := a.sync.ImportOpenAPI(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *api) handleSyncGraphQL(w http.ResponseWriter, r *http.Request) {
	var req sync.GraphQLImportRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	result, err := a.sync.ImportGraphQL(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type gitSyncRequest struct {
	Dir string `json:"dir" validate:"required"`
}

// handleSyncPush backs the optional POST /sync/push (spec §9): writes the
// control plane's teams, assets, contracts and registrations out as the
// YAML git-workflow representation gitsync defines, for a caller that
// checks the result into a repository itself.
func (a *api) handleSyncPush(w http.ResponseWriter, r *http.Request) {
	var req gitSyncRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	result, err := gitsync.Push(r.Context(), a.store, req.Dir)
	if err != nil {
		writeError(w, r, apperrors.Wrap(err, apperrors.ErrorTypeUpstreamIO, "git sync push failed"))
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleSyncPull backs the optional POST /sync/pull (spec §9): the
// inverse of push, reconciling the control plane's state from a
// previously pushed YAML tree.
func (a *api) handleSyncPull(w http.ResponseWriter, r *http.Request) {
	var req gitSyncRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	result, err := gitsync.Pull(r.Context(), a.store, req.Dir)
	if err != nil {
		writeError(w, r, apperrors.Wrap(err, apperrors.ErrorTypeUpstreamIO, "git sync pull failed"))
		return
	}
	writeJSON(w, http.StatusOK, result)
}
