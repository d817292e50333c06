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
	"github.com/ashita-ai/tessera/internal/httpapi/middleware"
	"github.com/ashita-ai/tessera/pkg/contract"
	"github.com/ashita-ai/tessera/pkg/models"
	"github.com/ashita-ai/tessera/pkg/store"
)

type publishContractRequest struct {
	Schema            map[string]any            `json:"schema" validate:"required"`
	SchemaFormat      models.SchemaFormat       `json:"schema_format" validate:"required"`
	CompatibilityMode *models.CompatibilityMode `json:"compatibility_mode"`
	Guarantees        map[string]any            `json:"guarantees"`
}

// handlePublishContract backs POST /assets/{id}/contracts?published_by=
// [&force=]. published_by is informational per spec §9: it must match
// the caller's own team unless the caller holds admin scope, in which
// case it may name any team.
func (a *api) handlePublishContract(w http.ResponseWriter, r *http.Request) {
	assetID, err := pathUUID(r, "assetID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	publishedBy, err := requirePublishedBy(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req publishContractRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	force := r.URL.Query().Get("force") == "true"

	var publishedByUserID *uuid.UUID
	if p, ok := middleware.PrincipalFromContext(r.Context()); ok {
		publishedByUserID = p.UserID
	}

	result, err := a.contracts.PublishSingle(r.Context(), contract.PublishSingleInput{
		AssetID:           assetID,
		Schema:            req.Schema,
		SchemaFormat:      req.SchemaFormat,
		CompatibilityMode: req.CompatibilityMode,
		Guarantees:        req.Guarantees,
		PublishedBy:       publishedBy,
		PublishedByUserID: publishedByUserID,
		Force:             force,
	})
	if err != nil {
		writeError(w, r, mapContractError(err))
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func mapContractError(err error) error {
	switch {
	case errors.Is(err, contract.ErrPendingProposal):
		return apperrors.NewConflictError(err.Error())
	case errors.Is(err, contract.ErrBreakingWithoutForce):
		return apperrors.NewBusinessRuleError(err.Error())
	case errors.Is(err, store.ErrNotFound):
		return apperrors.NewNotFoundError("asset not found")
	default:
		return err
	}
}

// requirePublishedBy resolves the published_by query parameter against
// the authenticated principal: admins may name any team, everyone else
// must name their own.
func requirePublishedBy(r *http.Request) (uuid.UUID, error) {
	publishedBy, err := queryUUID(r, "published_by")
	if err != nil {
		return uuid.Nil, err
	}

	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		return uuid.Nil, apperrors.NewAuthenticationError("missing credentials")
	}

	if publishedBy == nil {
		return principal.TeamID, nil
	}
	if *publishedBy != principal.TeamID && !principal.HasScope(models.ScopeAdmin) {
		return uuid.Nil, apperrors.NewAuthorizationError("published_by must match the authenticated team unless the caller holds admin scope")
	}
	return *publishedBy, nil
}

func (a *api) handleGetContract(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "contractID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, err := a.store.GetContract(r.Context(), id)
	if err != nil {
		writeError(w, r, notFoundOr(err, "contract not found"))
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (a *api) handleListContractRegistrations(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "contractID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	limit, offset, err := pagination(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	regs, err := a.store.ListRegistrations(r.Context(), store.RegistrationFilter{
		ListFilter: store.ListFilter{Limit: limit, Offset: offset},
		ContractID: &id,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writePage(w, len(regs), offset, limit, regs)
}
