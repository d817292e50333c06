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
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	apperrors "github.com/ashita-ai/tessera/internal/errors"
	"github.com/ashita-ai/tessera/internal/httpapi/middleware"
	"github.com/ashita-ai/tessera/pkg/audit"
	"github.com/ashita-ai/tessera/pkg/impact"
	"github.com/ashita-ai/tessera/pkg/models"
	"github.com/ashita-ai/tessera/pkg/store"
)

type createAssetRequest struct {
	FQN          string         `json:"fqn" validate:"required"`
	Environment  string         `json:"environment" validate:"required"`
	OwnerTeamID  uuid.UUID      `json:"owner_team_id" validate:"required"`
	ResourceType string         `json:"resource_type" validate:"required"`
	Metadata     models.JSONMap `json:"metadata"`
}

func (a *api) handleCreateAsset(w http.ResponseWriter, r *http.Request) {
	var req createAssetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	asset := &models.Asset{
		ID:           uuid.New(),
		FQN:          req.FQN,
		Environment:  req.Environment,
		OwnerTeamID:  req.OwnerTeamID,
		ResourceType: req.ResourceType,
		Metadata:     req.Metadata,
	}
	if err := a.store.CreateAsset(r.Context(), asset); err != nil {
		if errors.Is(err, store.ErrConflict) {
			writeError(w, r, apperrors.NewConflictError("an asset with fqn "+req.FQN+" already exists in "+req.Environment))
			return
		}
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, asset)
}

func (a *api) handleListAssets(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pagination(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	owner, err := queryUUID(r, "owner")
	if err != nil {
		writeError(w, r, err)
		return
	}
	assets, err := a.store.ListAssets(r.Context(), store.AssetFilter{
		ListFilter:  store.ListFilter{Limit: limit, Offset: offset},
		OwnerTeamID: owner,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writePage(w, len(assets), offset, limit, assets)
}

func (a *api) handleGetAsset(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "assetID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	asset, err := a.store.GetAsset(r.Context(), id)
	if err != nil {
		writeError(w, r, notFoundOr(err, "asset not found"))
		return
	}
	writeJSON(w, http.StatusOK, asset)
}

type updateAssetRequest struct {
	OwnerTeamID  *uuid.UUID     `json:"owner_team_id"`
	ResourceType *string        `json:"resource_type"`
	Metadata     models.JSONMap `json:"metadata"`
}

func (a *api) handleUpdateAsset(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "assetID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req updateAssetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	asset, err := a.store.GetAsset(r.Context(), id)
	if err != nil {
		writeError(w, r, notFoundOr(err, "asset not found"))
		return
	}
	if req.OwnerTeamID != nil {
		asset.OwnerTeamID = *req.OwnerTeamID
	}
	if req.ResourceType != nil {
		asset.ResourceType = *req.ResourceType
	}
	if req.Metadata != nil {
		asset.Metadata = req.Metadata
	}
	if err := a.store.UpdateAsset(r.Context(), asset); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, asset)
}

func (a *api) handleDeleteAsset(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "assetID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := a.store.SoftDeleteAsset(r.Context(), id); err != nil {
		writeError(w, r, notFoundOr(err, "asset not found"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) handleListAssetContracts(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "assetID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	contracts, err := a.store.ListContracts(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, contracts)
}

// assetImpactRequest is the body of POST /assets/{id}/impact: the schema
// a caller is considering publishing, analyzed against the asset's
// current active contract without mutating any state.
type assetImpactRequest struct {
	Schema            map[string]any         `json:"schema" validate:"required"`
	CompatibilityMode *models.CompatibilityMode `json:"compatibility_mode"`
}

func (a *api) handleAssetImpact(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "assetID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req assetImpactRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	depth := impact.DefaultMaxDepth
	if v := r.URL.Query().Get("depth"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			writeError(w, r, apperrors.NewValidationError("depth must be a non-negative integer"))
			return
		}
		depth = parsed
	}

	mode := models.CompatibilityBackward
	if req.CompatibilityMode != nil {
		mode = *req.CompatibilityMode
	}

	report, err := a.impact.Analyze(r.Context(), id, req.Schema, mode, depth)
	if err != nil {
		writeError(w, r, notFoundOr(err, "asset not found"))
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (a *api) handleAssetLineage(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "assetID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	result, err := a.impact.Downstream(r.Context(), id, impact.DefaultMaxDepth, impact.DefaultMaxResults)
	if err != nil {
		writeError(w, r, notFoundOr(err, "asset not found"))
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type recordAuditResultRequest struct {
	ContractID  *uuid.UUID           `json:"contract_id"`
	Status      models.AuditRunStatus `json:"status" validate:"required"`
	Counts      models.JSONMap       `json:"counts"`
	TriggeredBy string               `json:"triggered_by" validate:"required"`
	RunID       *string              `json:"run_id"`
	Details     models.JSONMap       `json:"details"`
}

func (a *api) handleRecordAuditResult(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "assetID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req recordAuditResultRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	var actorID *uuid.UUID
	if p, ok := middleware.PrincipalFromContext(r.Context()); ok {
		actorID = p.UserID
	}

	run, err := a.audit.RecordRun(r.Context(), audit.RecordRunInput{
		AssetID:     id,
		ContractID:  req.ContractID,
		Status:      req.Status,
		Counts:      req.Counts,
		TriggeredBy: req.TriggeredBy,
		RunID:       req.RunID,
		Details:     req.Details,
		ActorID:     actorID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, run)
}

func (a *api) handleAuditHistory(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "assetID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	limit, offset, err := pagination(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	filter := store.AuditHistoryFilter{ListFilter: store.ListFilter{Limit: limit, Offset: offset}}
	if v := r.URL.Query().Get("triggered_by"); v != "" {
		filter.TriggeredBy = &v
	}
	if v := r.URL.Query().Get("status"); v != "" {
		status := models.AuditRunStatus(v)
		filter.Status = &status
	}

	events, err := a.audit.History(r.Context(), id, filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writePage(w, len(events), offset, limit, events)
}

// handleAuditRuns backs GET /assets/{assetID}/audit-runs: the WAP quality-tool
// reports filed via handleRecordAuditResult, as their own AuditRun rows
// rather than the generic AuditEvent feed handleAuditHistory returns.
func (a *api) handleAuditRuns(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "assetID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	limit, offset, err := pagination(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	filter := store.AuditHistoryFilter{ListFilter: store.ListFilter{Limit: limit, Offset: offset}}
	if v := r.URL.Query().Get("triggered_by"); v != "" {
		filter.TriggeredBy = &v
	}
	if v := r.URL.Query().Get("status"); v != "" {
		status := models.AuditRunStatus(v)
		filter.Status = &status
	}

	runs, err := a.audit.Runs(r.Context(), id, filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writePage(w, len(runs), offset, limit, runs)
}
