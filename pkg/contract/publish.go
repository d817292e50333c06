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

package contract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ashita-ai/tessera/pkg/avroconv"
	"github.com/ashita-ai/tessera/pkg/models"
	"github.com/ashita-ai/tessera/pkg/schemadiff"
	"github.com/ashita-ai/tessera/pkg/semver"
	"github.com/ashita-ai/tessera/pkg/store"
)

// Workflow implements C4, the publishing workflow: single and bulk
// contract publication, diffed against the current active contract and
// handed off to the proposal workflow (C5) when a breaking change needs
// consumer sign-off.
type Workflow struct {
	store    store.Store
	impact   AffectedPartiesResolver
	notifier Notifier
	cache    Invalidator
	log      *zap.Logger
}

// New constructs a Workflow. impact, notifier and cache may be nil — each
// capability degrades independently (no affected-parties hints, no
// webhook fan-out, no cache invalidation) rather than failing the
// publish, matching the fail-open posture spec §9 asks of ancillary
// systems.
func New(s store.Store, impact AffectedPartiesResolver, notifier Notifier, cache Invalidator, log *zap.Logger) *Workflow {
	if log == nil {
		log = zap.NewNop()
	}
	return &Workflow{store: s, impact: impact, notifier: notifier, cache: cache, log: log}
}

// normalizeSchema returns the schema as a JSON-Schema-like map, converting
// from Avro first when the input format requires it (spec §4.2).
func normalizeSchema(schema map[string]any, format models.SchemaFormat) (map[string]any, error) {
	if format != models.SchemaFormatAvro {
		return schema, nil
	}
	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("tessera/contract: marshal avro schema: %w", err)
	}
	converted, err := avroconv.Convert(string(raw))
	if err != nil {
		return nil, fmt.Errorf("tessera/contract: avro schema invalid: %w", err)
	}
	return converted, nil
}

// PublishSingle implements §4.4.1's publish_single: lock the asset's
// active contract, diff the incoming schema against it, and either
// publish directly, skip a no-op change, or hand a breaking change to the
// proposal workflow (unless force is set).
func (w *Workflow) PublishSingle(ctx context.Context, in PublishSingleInput) (*PublishSingleResult, error) {
	mode := models.CompatibilityBackward
	if in.CompatibilityMode != nil {
		mode = *in.CompatibilityMode
	}
	normalized, err := normalizeSchema(in.Schema, in.SchemaFormat)
	if err != nil {
		return nil, err
	}

	var result *PublishSingleResult
	err = w.store.WithTx(ctx, func(ctx context.Context, tx store.Store) error {
		if pending, err := tx.GetPendingProposal(ctx, in.AssetID); err != nil {
			return fmt.Errorf("tessera/contract: check pending proposal: %w", err)
		} else if pending != nil {
			return ErrPendingProposal
		}

		active, err := tx.LockActiveContract(ctx, in.AssetID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("tessera/contract: lock active contract: %w", err)
		}

		if active == nil {
			c, err := w.insertContract(ctx, tx, in, normalized, mode, semver.Initial, uuid.New())
			if err != nil {
				return err
			}
			result = &PublishSingleResult{Outcome: OutcomePublished, Contract: c, ChangeType: models.ChangePatch}
			return nil
		}

		diff := schemadiff.Diff(active.SchemaDef, normalized)
		if !diff.HasChanges() {
			result = &PublishSingleResult{Outcome: OutcomeSkipped, Contract: active, Warning: "schema is unchanged from the active contract"}
			return nil
		}

		compatible, breaking := schemadiff.Classify(diff.Changes, mode)
		changeType := diff.ChangeType

		if compatible || in.Force {
			next := semver.ComputeNext(&active.Version, compatible, changeType)
			newID := uuid.New()
			if err := tx.DeprecateContract(ctx, active.ID); err != nil {
				return fmt.Errorf("tessera/contract: deprecate active contract: %w", err)
			}
			if err := tx.WriteAuditEvent(ctx, &models.AuditEvent{
				ID:         uuid.New(),
				EntityType: "contract",
				EntityID:   active.ID,
				Action:     "deprecated",
				ActorID:    &in.PublishedBy,
				Payload:    models.JSONMap{"asset_id": in.AssetID, "version": active.Version, "superseded_by": newID},
				OccurredAt: store.Now().UTC(),
			}); err != nil {
				return fmt.Errorf("tessera/contract: write audit event: %w", err)
			}
			c, err := w.insertContract(ctx, tx, in, normalized, mode, next, newID)
			if err != nil {
				return err
			}
			if !guaranteesEqual(active.Guarantees, c.Guarantees) {
				if err := tx.WriteAuditEvent(ctx, &models.AuditEvent{
					ID:         uuid.New(),
					EntityType: "contract",
					EntityID:   c.ID,
					Action:     "guarantees_updated",
					ActorID:    &in.PublishedBy,
					Payload:    models.JSONMap{"asset_id": in.AssetID, "old": active.Guarantees, "new": c.Guarantees},
					OccurredAt: store.Now().UTC(),
				}); err != nil {
					return fmt.Errorf("tessera/contract: write audit event: %w", err)
				}
			}
			outcome := OutcomePublished
			if !compatible {
				outcome = OutcomeForcePublished
			}
			result = &PublishSingleResult{
				Outcome:    outcome,
				Contract:   c,
				ChangeType: changeType,
				Breaking:   changesToMaps(breaking),
				Graduation: semver.IsGraduation(active.Version, next),
			}
			return nil
		}

		p, err := w.createProposal(ctx, tx, in, normalized, changeType, breaking)
		if err != nil {
			return err
		}
		result = &PublishSingleResult{Outcome: OutcomeProposalCreated, Proposal: p, ChangeType: changeType, Breaking: changesToMaps(breaking)}
		return nil
	})
	if err != nil {
		return nil, err
	}

	switch result.Outcome {
	case OutcomePublished, OutcomeForcePublished:
		if w.notifier != nil {
			w.notifier.NotifyContractPublished(ctx, *result.Contract)
		}
		if w.cache != nil {
			w.cache.InvalidateAsset(ctx, in.AssetID)
		}
	case OutcomeProposalCreated:
		if w.notifier != nil {
			w.notifier.NotifyProposalCreated(ctx, *result.Proposal)
		}
	}
	return result, nil
}

func (w *Workflow) insertContract(ctx context.Context, tx store.Store, in PublishSingleInput, schema map[string]any, mode models.CompatibilityMode, version string, id uuid.UUID) (*models.Contract, error) {
	c := &models.Contract{
		ID:                id,
		AssetID:           in.AssetID,
		Version:           version,
		SchemaDef:         schema,
		SchemaFormat:      in.SchemaFormat,
		CompatibilityMode: mode,
		Guarantees:        in.Guarantees,
		Status:            models.ContractActive,
		PublishedBy:       in.PublishedBy,
		PublishedByUserID: in.PublishedByUserID,
		PublishedAt:       store.Now().UTC(),
	}
	if err := tx.InsertContract(ctx, c); err != nil {
		return nil, fmt.Errorf("tessera/contract: insert contract: %w", err)
	}
	if err := tx.WriteAuditEvent(ctx, &models.AuditEvent{
		ID:         uuid.New(),
		EntityType: "contract",
		EntityID:   c.ID,
		Action:     "published",
		ActorID:    &in.PublishedBy,
		Payload:    models.JSONMap{"version": version, "asset_id": in.AssetID},
		OccurredAt: store.Now().UTC(),
	}); err != nil {
		return nil, fmt.Errorf("tessera/contract: write audit event: %w", err)
	}
	return c, nil
}

func (w *Workflow) createProposal(ctx context.Context, tx store.Store, in PublishSingleInput, schema map[string]any, changeType models.ChangeType, breaking []schemadiff.Change) (*models.Proposal, error) {
	var affectedTeams []models.AffectedTeam
	var affectedAssets []models.AffectedAsset
	if w.impact != nil {
		var err error
		affectedTeams, affectedAssets, err = w.impact.AffectedParties(ctx, in.AssetID, uuid.Nil)
		if err != nil {
			w.log.Warn("affected parties lookup failed, proposal created without hints", zap.Error(err), zap.String("asset_id", in.AssetID.String()))
		}
	}

	breakingJSON, err := marshalOrNull(changesToMaps(breaking))
	if err != nil {
		return nil, err
	}
	teamsJSON, err := marshalOrNull(affectedTeams)
	if err != nil {
		return nil, err
	}
	assetsJSON, err := marshalOrNull(affectedAssets)
	if err != nil {
		return nil, err
	}
	objectionsJSON, err := marshalOrNull([]models.Objection{})
	if err != nil {
		return nil, err
	}

	p := &models.Proposal{
		ID:                 uuid.New(),
		AssetID:            in.AssetID,
		ProposedSchema:     schema,
		ProposedGuarantees: in.Guarantees,
		ChangeType:         changeType,
		BreakingChanges:    breakingJSON,
		AffectedTeams:      teamsJSON,
		AffectedAssets:     assetsJSON,
		Objections:         objectionsJSON,
		Status:             models.ProposalPending,
		ProposedBy:         in.PublishedBy,
		ProposedByUserID:   in.PublishedByUserID,
		ProposedAt:         store.Now().UTC(),
	}
	if err := tx.CreateProposal(ctx, p); err != nil {
		return nil, fmt.Errorf("tessera/contract: insert proposal: %w", err)
	}
	if err := tx.WriteAuditEvent(ctx, &models.AuditEvent{
		ID:         uuid.New(),
		EntityType: "proposal",
		EntityID:   p.ID,
		Action:     "created",
		ActorID:    &in.PublishedBy,
		Payload:    models.JSONMap{"asset_id": in.AssetID, "change_type": string(changeType)},
		OccurredAt: store.Now().UTC(),
	}); err != nil {
		return nil, fmt.Errorf("tessera/contract: write audit event: %w", err)
	}
	return p, nil
}

func marshalOrNull(v any) (json.RawMessage, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("tessera/contract: marshal: %w", err)
	}
	return json.RawMessage(b), nil
}

// guaranteesEqual reports whether two contracts' guarantee blocks are
// identical, so callers only write a guarantees_updated audit event when
// they actually diverge.
func guaranteesEqual(a, b models.JSONMap) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	return reflect.DeepEqual(a, b)
}

func changesToMaps(changes []schemadiff.Change) []map[string]any {
	out := make([]map[string]any, 0, len(changes))
	for _, c := range changes {
		out = append(out, c.ToMap())
	}
	return out
}
