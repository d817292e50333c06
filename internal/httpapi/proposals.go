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
	"time"

	"github.com/google/uuid"

	apperrors "github.com/ashita-ai/tessera/internal/errors"
	"github.com/ashita-ai/tessera/internal/httpapi/middleware"
	"github.com/ashita-ai/tessera/pkg/models"
	"github.com/ashita-ai/tessera/pkg/proposal"
	"github.com/ashita-ai/tessera/pkg/store"
)

func (a *api) handleListProposals(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pagination(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	assetID, err := queryUUID(r, "asset_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	proposedBy, err := queryUUID(r, "proposed_by")
	if err != nil {
		writeError(w, r, err)
		return
	}

	filter := store.ProposalFilter{
		ListFilter: store.ListFilter{Limit: limit, Offset: offset},
		AssetID:    assetID,
		ProposedBy: proposedBy,
	}
	if v := r.URL.Query().Get("status"); v != "" {
		status := models.ProposalStatus(v)
		filter.Status = &status
	}

	proposals, err := a.store.ListProposals(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writePage(w, len(proposals), offset, limit, proposals)
}

func (a *api) handleGetProposal(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "proposalID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := a.store.GetProposal(r.Context(), id)
	if err != nil {
		writeError(w, r, notFoundOr(err, "proposal not found"))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// proposalStatusResponse reports acknowledgment progress toward the
// completion check pkg/proposal.Workflow.Acknowledge runs internally
// (spec §4.5.2): every live consumer team of the asset's active contract
// must have acknowledged before a proposal auto-approves. No store method
// answers this directly, so the handler replicates the same query
// sequence the workflow's private isComplete helper runs.
type proposalStatusResponse struct {
	ProposalID         uuid.UUID   `json:"proposal_id"`
	Status             models.ProposalStatus `json:"status"`
	RequiredTeamCount   int         `json:"required_team_count"`
	AcknowledgedCount   int         `json:"acknowledged_count"`
	PendingTeamIDs      []uuid.UUID `json:"pending_team_ids"`
}

func (a *api) handleProposalStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "proposalID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	p, err := a.store.GetProposal(r.Context(), id)
	if err != nil {
		writeError(w, r, notFoundOr(err, "proposal not found"))
		return
	}

	resp := proposalStatusResponse{ProposalID: p.ID, Status: p.Status}

	contracts, err := a.store.ListContracts(r.Context(), p.AssetID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var activeContractID *uuid.UUID
	for _, c := range contracts {
		if c.Status == models.ContractActive {
			id := c.ID
			activeContractID = &id
			break
		}
	}
	if activeContractID == nil {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	liveTeams, err := a.store.ListLiveConsumerTeams(r.Context(), *activeContractID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	acks, err := a.store.ListAcknowledgments(r.Context(), p.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	acked := make(map[uuid.UUID]bool, len(acks))
	for _, ack := range acks {
		acked[ack.ConsumerTeamID] = true
	}

	resp.RequiredTeamCount = len(liveTeams)
	for _, teamID := range liveTeams {
		if acked[teamID] {
			resp.AcknowledgedCount++
		} else {
			resp.PendingTeamIDs = append(resp.PendingTeamIDs, teamID)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type acknowledgeProposalRequest struct {
	ConsumerTeamID    uuid.UUID                     `json:"consumer_team_id" validate:"required"`
	Response          models.AcknowledgmentResponse `json:"response" validate:"required"`
	MigrationDeadline *time.Time                    `json:"migration_deadline"`
	Notes             string                        `json:"notes"`
}

func (a *api) handleAcknowledgeProposal(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "proposalID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req acknowledgeProposalRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	p, err := a.proposals.Acknowledge(r.Context(), proposal.AcknowledgeInput{
		ProposalID:        id,
		ConsumerTeamID:    req.ConsumerTeamID,
		Response:          req.Response,
		MigrationDeadline: req.MigrationDeadline,
		Notes:             req.Notes,
	})
	if err != nil {
		writeError(w, r, mapProposalError(err))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type objectProposalRequest struct {
	Reason string `json:"reason" validate:"required"`
}

func (a *api) handleObjectProposal(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "proposalID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	teamID, err := queryUUID(r, "objector_team_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if teamID == nil {
		writeError(w, r, apperrors.NewValidationError("objector_team_id is required"))
		return
	}

	var req objectProposalRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	p, err := a.proposals.Object(r.Context(), proposal.ObjectInput{
		ProposalID: id,
		TeamID:     *teamID,
		Reason:     req.Reason,
	})
	if err != nil {
		writeError(w, r, mapProposalError(err))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *api) handleWithdrawProposal(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "proposalID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	actorID, err := requireActorID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := a.proposals.Withdraw(r.Context(), id, actorID)
	if err != nil {
		writeError(w, r, mapProposalError(err))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handleForceProposal backs POST /proposals/{id}/force?actor_id= — an
// admin-only escape hatch that approves a pending proposal without
// waiting on consumer acknowledgments (spec §4.5.4).
func (a *api) handleForceProposal(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "proposalID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	actorID, err := queryUUID(r, "actor_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if actorID == nil {
		resolved, err := requireActorID(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		actorID = &resolved
	}
	p, err := a.proposals.Force(r.Context(), id, *actorID)
	if err != nil {
		writeError(w, r, mapProposalError(err))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type publishProposalRequest struct {
	Version string `json:"version" validate:"required"`
}

func (a *api) handlePublishProposal(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "proposalID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req publishProposalRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	publishedBy, err := requirePublishedBy(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	c, err := a.proposals.Publish(r.Context(), proposal.PublishInput{
		ProposalID:  id,
		Version:     req.Version,
		PublishedBy: publishedBy,
	})
	if err != nil {
		writeError(w, r, mapProposalError(err))
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func mapProposalError(err error) error {
	switch {
	case errors.Is(err, proposal.ErrNotPending), errors.Is(err, proposal.ErrNotApproved):
		return apperrors.NewBusinessRuleError(err.Error())
	case errors.Is(err, proposal.ErrAlreadyAcknowledged), errors.Is(err, proposal.ErrAlreadyObjected):
		return apperrors.NewConflictError(err.Error())
	case errors.Is(err, store.ErrNotFound):
		return apperrors.NewNotFoundError("proposal not found")
	default:
		return err
	}
}

// requireActorID resolves the acting user from the authenticated
// principal, for endpoints that record actor_id but accept no query
// override.
func requireActorID(r *http.Request) (uuid.UUID, error) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok || p.UserID == nil {
		return uuid.Nil, apperrors.NewAuthenticationError("this action requires an authenticated user, not an API key")
	}
	return *p.UserID, nil
}

