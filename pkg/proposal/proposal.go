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

// Package proposal implements the proposal workflow (C5): consumer
// acknowledgment and objection handling, completion detection, and
// publish-from-approved, following on from a breaking change proposal
// pkg/contract created.
package proposal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ashita-ai/tessera/pkg/models"
	"github.com/ashita-ai/tessera/pkg/store"
)

// ErrNotPending is returned when an operation requires the proposal to
// be pending but it is not.
var ErrNotPending = errors.New("tessera/proposal: proposal is not pending")

// ErrNotApproved is returned by Publish when the proposal has not been
// approved.
var ErrNotApproved = errors.New("tessera/proposal: proposal is not approved")

// ErrAlreadyAcknowledged is returned when a team acknowledges a proposal
// it has already responded to (spec §4.5.2: "reject a second
// acknowledgment from the same team").
var ErrAlreadyAcknowledged = errors.New("tessera/proposal: team has already acknowledged this proposal")

// ErrAlreadyObjected mirrors ErrAlreadyAcknowledged for the objection
// path (spec §4.5.3: one objection per (proposal, team)).
var ErrAlreadyObjected = errors.New("tessera/proposal: team has already objected to this proposal")

// Notifier is the subset of the webhook pipeline (C7) this workflow fires
// into. Mirrors pkg/contract.Notifier's non-blocking contract.
type Notifier interface {
	NotifyProposalResolved(ctx context.Context, p models.Proposal)
	NotifyContractPublished(ctx context.Context, c models.Contract)
}

// Invalidator is the cache-invalidation hook run after Publish.
type Invalidator interface {
	InvalidateAsset(ctx context.Context, assetID uuid.UUID)
}

// Workflow implements C5 against a store.Store.
type Workflow struct {
	store    store.Store
	notifier Notifier
	cache    Invalidator
	log      *zap.Logger
}

// New constructs a Workflow. notifier and cache may be nil.
func New(s store.Store, notifier Notifier, cache Invalidator, log *zap.Logger) *Workflow {
	if log == nil {
		log = zap.NewNop()
	}
	return &Workflow{store: s, notifier: notifier, cache: cache, log: log}
}

// AcknowledgeInput is the body of POST /proposals/{id}/acknowledge.
type AcknowledgeInput struct {
	ProposalID        uuid.UUID
	ConsumerTeamID    uuid.UUID
	Response          models.AcknowledgmentResponse
	MigrationDeadline *time.Time
	Notes             string
}

// Acknowledge implements §4.5.2: record the team's response, and on a
// non-blocking response check whether every live consumer of the asset's
// current active contract has now acknowledged, auto-approving the
// proposal if so. A blocked response rejects the proposal immediately.
func (w *Workflow) Acknowledge(ctx context.Context, in AcknowledgeInput) (*models.Proposal, error) {
	var result *models.Proposal
	err := w.store.WithTx(ctx, func(ctx context.Context, tx store.Store) error {
		p, err := tx.LockProposal(ctx, in.ProposalID)
		if err != nil {
			return fmt.Errorf("tessera/proposal: lock proposal: %w", err)
		}
		if p.Status != models.ProposalPending {
			return ErrNotPending
		}
		if existing, err := tx.GetAcknowledgment(ctx, p.ID, in.ConsumerTeamID); err != nil && !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("tessera/proposal: check existing acknowledgment: %w", err)
		} else if existing != nil {
			return ErrAlreadyAcknowledged
		}

		ack := &models.Acknowledgment{
			ID:                uuid.New(),
			ProposalID:        p.ID,
			ConsumerTeamID:    in.ConsumerTeamID,
			Response:          in.Response,
			MigrationDeadline: in.MigrationDeadline,
			Notes:             in.Notes,
			RespondedAt:       store.Now().UTC(),
		}
		if err := tx.CreateAcknowledgment(ctx, ack); err != nil {
			return fmt.Errorf("tessera/proposal: insert acknowledgment: %w", err)
		}
		if err := w.writeAudit(ctx, tx, "acknowledgment", ack.ID, in.ConsumerTeamID, models.JSONMap{
			"proposal_id": p.ID, "response": string(in.Response),
		}, "created"); err != nil {
			return err
		}

		if in.Response == models.AckBlocked {
			p.Status = models.ProposalRejected
			now := store.Now().UTC()
			p.ResolvedAt = &now
			if err := tx.UpdateProposal(ctx, p); err != nil {
				return fmt.Errorf("tessera/proposal: reject proposal: %w", err)
			}
			if err := w.writeAudit(ctx, tx, "proposal", p.ID, in.ConsumerTeamID, models.JSONMap{"reason": "blocked"}, "rejected"); err != nil {
				return err
			}
			result = p
			return nil
		}

		complete, err := w.isComplete(ctx, tx, p)
		if err != nil {
			return err
		}
		if complete {
			p.Status = models.ProposalApproved
			now := store.Now().UTC()
			p.ResolvedAt = &now
			if err := tx.UpdateProposal(ctx, p); err != nil {
				return fmt.Errorf("tessera/proposal: approve proposal: %w", err)
			}
			if err := w.writeAudit(ctx, tx, "proposal", p.ID, in.ConsumerTeamID, nil, "approved"); err != nil {
				return err
			}
		}
		result = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	if w.notifier != nil && (result.Status == models.ProposalApproved || result.Status == models.ProposalRejected) {
		w.notifier.NotifyProposalResolved(ctx, *result)
	}
	return result, nil
}

// isComplete implements the completion check of §4.5.2: among live
// registrations on the asset's current active contract, every consumer
// team must appear among the proposal's acknowledgments. An asset with no
// live registrations is trivially complete.
func (w *Workflow) isComplete(ctx context.Context, tx store.Store, p *models.Proposal) (bool, error) {
	contracts, err := tx.ListContracts(ctx, p.AssetID)
	if err != nil {
		return false, fmt.Errorf("tessera/proposal: list contracts: %w", err)
	}
	var activeContractID *uuid.UUID
	for i := range contracts {
		if contracts[i].Status == models.ContractActive {
			id := contracts[i].ID
			activeContractID = &id
			break
		}
	}
	if activeContractID == nil {
		return true, nil
	}

	consumerTeams, err := tx.ListLiveConsumerTeams(ctx, *activeContractID)
	if err != nil {
		return false, fmt.Errorf("tessera/proposal: list live consumer teams: %w", err)
	}
	if len(consumerTeams) == 0 {
		return true, nil
	}

	acks, err := tx.ListAcknowledgments(ctx, p.ID)
	if err != nil {
		return false, fmt.Errorf("tessera/proposal: list acknowledgments: %w", err)
	}
	acked := map[uuid.UUID]bool{}
	for _, a := range acks {
		acked[a.ConsumerTeamID] = true
	}
	for _, teamID := range consumerTeams {
		if !acked[teamID] {
			return false, nil
		}
	}
	return true, nil
}

// ObjectInput is the body of an objection request.
type ObjectInput struct {
	ProposalID uuid.UUID
	TeamID     uuid.UUID
	Reason     string
}

// Object implements §4.5.3: append a distinct objection record, locking
// the proposal row so a concurrent writer cannot read-modify-write the
// in-memory objections list.
func (w *Workflow) Object(ctx context.Context, in ObjectInput) (*models.Proposal, error) {
	var result *models.Proposal
	err := w.store.WithTx(ctx, func(ctx context.Context, tx store.Store) error {
		p, err := tx.LockProposal(ctx, in.ProposalID)
		if err != nil {
			return fmt.Errorf("tessera/proposal: lock proposal: %w", err)
		}
		if p.Status != models.ProposalPending {
			return ErrNotPending
		}

		var objections []models.Objection
		if len(p.Objections) > 0 {
			if err := json.Unmarshal(p.Objections, &objections); err != nil {
				return fmt.Errorf("tessera/proposal: decode objections: %w", err)
			}
		}
		for _, o := range objections {
			if o.TeamID == in.TeamID {
				return ErrAlreadyObjected
			}
		}
		objections = append(objections, models.Objection{TeamID: in.TeamID, Reason: in.Reason, CreatedAt: store.Now().UTC()})

		raw, err := json.Marshal(objections)
		if err != nil {
			return fmt.Errorf("tessera/proposal: encode objections: %w", err)
		}
		p.Objections = raw
		if err := tx.UpdateProposal(ctx, p); err != nil {
			return fmt.Errorf("tessera/proposal: update proposal: %w", err)
		}
		if err := w.writeAudit(ctx, tx, "proposal", p.ID, in.TeamID, models.JSONMap{"reason": in.Reason}, "objected"); err != nil {
			return err
		}
		result = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// PublishInput is the body of POST /proposals/{id}/publish.
type PublishInput struct {
	ProposalID  uuid.UUID
	Version     string
	PublishedBy uuid.UUID
}

// Publish implements §4.5.4: only valid from an approved proposal;
// deprecates the current active contract and inserts a new active
// contract from the proposal's schema and guarantees. The unique
// (asset_id, version) constraint plus the row lock on the proposal make
// a double publish impossible even under concurrent callers.
func (w *Workflow) Publish(ctx context.Context, in PublishInput) (*models.Contract, error) {
	var result *models.Contract
	err := w.store.WithTx(ctx, func(ctx context.Context, tx store.Store) error {
		p, err := tx.LockProposal(ctx, in.ProposalID)
		if err != nil {
			return fmt.Errorf("tessera/proposal: lock proposal: %w", err)
		}
		if p.Status != models.ProposalApproved {
			return ErrNotApproved
		}

		var active *models.Contract
		if a, err := tx.LockActiveContract(ctx, p.AssetID); err != nil && !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("tessera/proposal: lock active contract: %w", err)
		} else {
			active = a
		}

		newID := uuid.New()
		if active != nil {
			if err := tx.DeprecateContract(ctx, active.ID); err != nil {
				return fmt.Errorf("tessera/proposal: deprecate active contract: %w", err)
			}
			if err := w.writeAudit(ctx, tx, "contract", active.ID, in.PublishedBy, models.JSONMap{
				"version": active.Version, "superseded_by": newID, "proposal_id": p.ID,
			}, "deprecated"); err != nil {
				return err
			}
		}

		c := &models.Contract{
			ID:                newID,
			AssetID:           p.AssetID,
			Version:           in.Version,
			SchemaDef:         p.ProposedSchema,
			SchemaFormat:      models.SchemaFormatJSONSchema,
			CompatibilityMode: models.CompatibilityBackward,
			Guarantees:        p.ProposedGuarantees,
			Status:            models.ContractActive,
			PublishedBy:       in.PublishedBy,
			PublishedAt:       store.Now().UTC(),
		}
		if err := tx.InsertContract(ctx, c); err != nil {
			return fmt.Errorf("tessera/proposal: insert contract: %w", err)
		}

		if err := w.writeAudit(ctx, tx, "contract", c.ID, in.PublishedBy, models.JSONMap{
			"version": in.Version, "proposal_id": p.ID,
		}, "published_from_proposal"); err != nil {
			return err
		}
		if active != nil && !guaranteesEqual(active.Guarantees, c.Guarantees) {
			if err := w.writeAudit(ctx, tx, "contract", c.ID, in.PublishedBy, models.JSONMap{
				"asset_id": p.AssetID, "old": active.Guarantees, "new": c.Guarantees,
			}, "guarantees_updated"); err != nil {
				return err
			}
		}
		result = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	if w.cache != nil {
		w.cache.InvalidateAsset(ctx, result.AssetID)
	}
	if w.notifier != nil {
		w.notifier.NotifyContractPublished(ctx, *result)
	}
	return result, nil
}

// Withdraw lets the producer pull a pending proposal without consumer
// resolution, e.g. after deciding to rework the schema change.
func (w *Workflow) Withdraw(ctx context.Context, proposalID, actorID uuid.UUID) (*models.Proposal, error) {
	var result *models.Proposal
	err := w.store.WithTx(ctx, func(ctx context.Context, tx store.Store) error {
		p, err := tx.LockProposal(ctx, proposalID)
		if err != nil {
			return fmt.Errorf("tessera/proposal: lock proposal: %w", err)
		}
		if p.Status != models.ProposalPending {
			return ErrNotPending
		}
		p.Status = models.ProposalWithdrawn
		now := store.Now().UTC()
		p.ResolvedAt = &now
		if err := tx.UpdateProposal(ctx, p); err != nil {
			return fmt.Errorf("tessera/proposal: withdraw proposal: %w", err)
		}
		if err := w.writeAudit(ctx, tx, "proposal", p.ID, actorID, nil, "withdrawn"); err != nil {
			return err
		}
		result = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	if w.notifier != nil {
		w.notifier.NotifyProposalResolved(ctx, *result)
	}
	return result, nil
}

// Force implements the force-approval path §4.5's state diagram names
// alongside the all-acknowledged transition: an authorized actor moves a
// pending proposal straight to approved, bypassing outstanding consumer
// acknowledgments entirely.
func (w *Workflow) Force(ctx context.Context, proposalID, actorID uuid.UUID) (*models.Proposal, error) {
	var result *models.Proposal
	err := w.store.WithTx(ctx, func(ctx context.Context, tx store.Store) error {
		p, err := tx.LockProposal(ctx, proposalID)
		if err != nil {
			return fmt.Errorf("tessera/proposal: lock proposal: %w", err)
		}
		if p.Status != models.ProposalPending {
			return ErrNotPending
		}
		p.Status = models.ProposalApproved
		now := store.Now().UTC()
		p.ResolvedAt = &now
		if err := tx.UpdateProposal(ctx, p); err != nil {
			return fmt.Errorf("tessera/proposal: force-approve proposal: %w", err)
		}
		if err := w.writeAudit(ctx, tx, "proposal", p.ID, actorID, nil, "force_approved"); err != nil {
			return err
		}
		result = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	if w.notifier != nil {
		w.notifier.NotifyProposalResolved(ctx, *result)
	}
	return result, nil
}

// guaranteesEqual reports whether two contracts' guarantee blocks are
// identical, so Publish only writes a guarantees_updated audit event when
// they actually diverge.
func guaranteesEqual(a, b models.JSONMap) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	return reflect.DeepEqual(a, b)
}

func (w *Workflow) writeAudit(ctx context.Context, tx store.Store, entityType string, entityID, actorID uuid.UUID, payload models.JSONMap, action string) error {
	return tx.WriteAuditEvent(ctx, &models.AuditEvent{
		ID:         uuid.New(),
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		ActorID:    &actorID,
		Payload:    payload,
		OccurredAt: store.Now().UTC(),
	})
}
