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

type createRegistrationRequest struct {
	ConsumerTeamID uuid.UUID `json:"consumer_team_id" validate:"required"`
	PinnedVersion  *string   `json:"pinned_version"`
}

func (a *api) handleCreateRegistration(w http.ResponseWriter, r *http.Request) {
	contractID, err := queryUUID(r, "contract_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if contractID == nil {
		writeError(w, r, apperrors.NewValidationError("contract_id is required"))
		return
	}

	var req createRegistrationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	reg := &models.Registration{
		ID:             uuid.New(),
		ContractID:     *contractID,
		ConsumerTeamID: req.ConsumerTeamID,
		PinnedVersion:  req.PinnedVersion,
		Status:         models.RegistrationActive,
	}
	if err := a.store.CreateRegistration(r.Context(), reg); err != nil {
		if errors.Is(err, store.ErrConflict) {
			writeError(w, r, apperrors.NewConflictError("a registration for this team and contract already exists"))
			return
		}
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, reg)
}

func (a *api) handleGetRegistration(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "registrationID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	reg, err := a.store.GetRegistration(r.Context(), id)
	if err != nil {
		writeError(w, r, notFoundOr(err, "registration not found"))
		return
	}
	writeJSON(w, http.StatusOK, reg)
}

type updateRegistrationRequest struct {
	Status        *models.RegistrationStatus `json:"status"`
	PinnedVersion *string                    `json:"pinned_version"`
}

func (a *api) handleUpdateRegistration(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "registrationID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req updateRegistrationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	reg, err := a.store.GetRegistration(r.Context(), id)
	if err != nil {
		writeError(w, r, notFoundOr(err, "registration not found"))
		return
	}
	if req.Status != nil {
		reg.Status = *req.Status
	}
	if req.PinnedVersion != nil {
		reg.PinnedVersion = req.PinnedVersion
	}
	if err := a.store.UpdateRegistration(r.Context(), reg); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reg)
}

func (a *api) handleDeleteRegistration(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "registrationID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := a.store.SoftDeleteRegistration(r.Context(), id); err != nil {
		writeError(w, r, notFoundOr(err, "registration not found"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
