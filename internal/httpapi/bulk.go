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
	"time"

	"github.com/google/uuid"

	"github.com/ashita-ai/tessera/internal/httpapi/middleware"
	"github.com/ashita-ai/tessera/pkg/contract"
	"github.com/ashita-ai/tessera/pkg/models"
	"github.com/ashita-ai/tessera/pkg/proposal"
)

type bulkPublishRequest struct {
	Items                      []contract.ContractToPublish `json:"items" validate:"required,dive"`
	DryRun                     bool                          `json:"dry_run"`
	CreateProposalsForBreaking bool                          `json:"create_proposals_for_breaking"`
}

// handleBulkPublishContracts backs POST /bulk/contracts: §4.4.1/§4.4.3's
// publish_bulk, run as one pkg/contract.Workflow.PublishBulk call so a
// dry run previews will_publish/will_skip/breaking per item without
// touching the store.
func (a *api) handleBulkPublishContracts(w http.ResponseWriter, r *http.Request) {
	publishedBy, err := requirePublishedBy(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req bulkPublishRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	var publishedByUserID *uuid.UUID
	if p, ok := middleware.PrincipalFromContext(r.Context()); ok {
		publishedByUserID = p.UserID
	}

	result, err := a.contracts.PublishBulk(r.Context(), contract.BulkPublishInput{
		Items:                      req.Items,
		PublishedBy:                publishedBy,
		PublishedByUserID:          publishedByUserID,
		DryRun:                     req.DryRun,
		CreateProposalsForBreaking: req.CreateProposalsForBreaking,
	})
	if err != nil {
		writeError(w, r, mapContractError(err))
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type bulkAcknowledgmentItem struct {
	ProposalID        uuid.UUID                     `json:"proposal_id" validate:"required"`
	ConsumerTeamID    uuid.UUID                      `json:"consumer_team_id" validate:"required"`
	Response          models.AcknowledgmentResponse `json:"response" validate:"required"`
	MigrationDeadline *time.Time                     `json:"migration_deadline"`
	Notes             string                         `json:"notes"`
}

type bulkAcknowledgmentsRequest struct {
	Acknowledgments []bulkAcknowledgmentItem `json:"acknowledgments" validate:"required,dive"`
	ContinueOnError bool                     `json:"continue_on_error"`
}

type bulkAcknowledgmentResult struct {
	ProposalID uuid.UUID       `json:"proposal_id"`
	Proposal   *models.Proposal `json:"proposal,omitempty"`
	Error      string          `json:"error,omitempty"`
}

type bulkAcknowledgmentsResponse struct {
	Total     int                        `json:"total"`
	Succeeded int                        `json:"succeeded"`
	Failed    int                        `json:"failed"`
	Results   []bulkAcknowledgmentResult `json:"results"`
}

// handleBulkAcknowledgments backs POST /bulk/acknowledgments: each item
// runs through the same pkg/proposal.Workflow.Acknowledge transition a
// single acknowledgment would, one after another. With
// continue_on_error=true a failing item is recorded and the remaining
// items still run; with continue_on_error=false processing stops at the
// first failure (but still reports every result processed up to that
// point).
func (a *api) handleBulkAcknowledgments(w http.ResponseWriter, r *http.Request) {
	var req bulkAcknowledgmentsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	resp := bulkAcknowledgmentsResponse{Total: len(req.Acknowledgments)}
	for _, item := range req.Acknowledgments {
		p, err := a.proposals.Acknowledge(r.Context(), proposal.AcknowledgeInput{
			ProposalID:        item.ProposalID,
			ConsumerTeamID:    item.ConsumerTeamID,
			Response:          item.Response,
			MigrationDeadline: item.MigrationDeadline,
			Notes:             item.Notes,
		})
		if err != nil {
			resp.Failed++
			resp.Results = append(resp.Results, bulkAcknowledgmentResult{
				ProposalID: item.ProposalID,
				Error:      mapProposalError(err).Error(),
			})
			if !req.ContinueOnError {
				break
			}
			continue
		}
		resp.Succeeded++
		resp.Results = append(resp.Results, bulkAcknowledgmentResult{ProposalID: item.ProposalID, Proposal: p})
	}

	writeJSON(w, http.StatusOK, resp)
}
