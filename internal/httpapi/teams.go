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

	"github.com/google/uuid"

	apperrors "github.com/ashita-ai/tessera/internal/errors"
	"github.com/ashita-ai/tessera/pkg/models"
	"github.com/ashita-ai/tessera/pkg/store"
)

type createTeamRequest struct {
	Name     string         `json:"name" validate:"required"`
	Metadata models.JSONMap `json:"metadata"`
}

func (a *api) handleCreateTeam(w http.ResponseWriter, r *http.Request) {
	var req createTeamRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	t := &models.Team{
		ID:       uuid.New(),
		Name:     req.Name,
		Metadata: req.Metadata,
	}
	if err := a.store.CreateTeam(r.Context(), t); err != nil {
		if errors.Is(err, store.ErrConflict) {
			writeError(w, r, apperrors.NewConflictError("a team named "+req.Name+" already exists"))
			return
		}
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (a *api) handleListTeams(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pagination(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	teams, err := a.store.ListTeams(r.Context(), store.ListFilter{Limit: limit, Offset: offset})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writePage(w, len(teams), offset, limit, teams)
}

func (a *api) handleGetTeam(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "teamID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	t, err := a.store.GetTeam(r.Context(), id)
	if err != nil {
		writeError(w, r, notFoundOr(err, "team not found"))
		return
	}
	writeJSON(w, http.StatusOK, t)
}

type updateTeamRequest struct {
	Name     *string        `json:"name"`
	Metadata models.JSONMap `json:"metadata"`
}

func (a *api) handleUpdateTeam(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "teamID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req updateTeamRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	t, err := a.store.GetTeam(r.Context(), id)
	if err != nil {
		writeError(w, r, notFoundOr(err, "team not found"))
		return
	}
	if req.Name != nil {
		t.Name = *req.Name
	}
	if req.Metadata != nil {
		t.Metadata = req.Metadata
	}
	if err := a.store.UpdateTeam(r.Context(), t); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (a *api) handleDeleteTeam(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "teamID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := a.store.SoftDeleteTeam(r.Context(), id); err != nil {
		writeError(w, r, notFoundOr(err, "team not found"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// notFoundOr maps a bare store.ErrNotFound to a typed 404 AppError with
// message, leaving any other error (already typed, or an infrastructure
// failure) to pass through unchanged.
func notFoundOr(err error, message string) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperrors.NewNotFoundError(message)
	}
	return err
}
