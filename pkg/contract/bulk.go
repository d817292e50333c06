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
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ashita-ai/tessera/pkg/models"
	"github.com/ashita-ai/tessera/pkg/schemadiff"
	"github.com/ashita-ai/tessera/pkg/semver"
	"github.com/ashita-ai/tessera/pkg/store"
)

// PublishBulk implements §4.4.1/§4.4.3's publish_bulk: each item is
// processed in its own nested scope (a SQL savepoint) so one item's
// failure rolls back only that item, not the whole batch. dry_run
// previews the outcome ("will_publish"/"will_skip"/"breaking") without
// writing anything.
func (w *Workflow) PublishBulk(ctx context.Context, in BulkPublishInput) (*BulkPublishResult, error) {
	if len(in.Items) == 0 {
		return &BulkPublishResult{Preview: in.DryRun}, nil
	}

	result := &BulkPublishResult{Preview: in.DryRun, Total: len(in.Items)}

	err := w.store.WithTx(ctx, func(ctx context.Context, tx store.Store) error {
		for _, item := range in.Items {
			r := w.publishBulkItem(ctx, tx, item, in)
			result.Results = append(result.Results, r)
			switch r.Status {
			case BulkPublished, BulkWillPublish:
				result.Published++
			case BulkSkipped, BulkWillSkip:
				result.Skipped++
			case BulkProposalCreated:
				result.ProposalsCreated++
			case BulkBreaking:
				if in.CreateProposalsForBreaking {
					result.ProposalsCreated++
				} else {
					result.Failed++
				}
			case BulkFailed:
				result.Failed++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// publishBulkItem processes one bulk item inside its own savepoint,
// mirroring the source's per-item `async with session.begin_nested()`
// block: an error here rolls back only this item's writes.
func (w *Workflow) publishBulkItem(ctx context.Context, tx store.Store, item ContractToPublish, in BulkPublishInput) ItemResult {
	asset, err := tx.GetAsset(ctx, item.AssetID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ItemResult{AssetID: item.AssetID, Status: BulkFailed, Error: fmt.Sprintf("asset not found: %s", item.AssetID)}
		}
		return ItemResult{AssetID: item.AssetID, Status: BulkFailed, Error: err.Error()}
	}

	normalized, err := normalizeSchema(item.Schema, item.SchemaFormat)
	if err != nil {
		return ItemResult{AssetID: item.AssetID, AssetFQN: asset.FQN, Status: BulkFailed, Error: fmt.Sprintf("invalid schema: %s", err)}
	}

	if pending, err := tx.GetPendingProposal(ctx, item.AssetID); err != nil {
		return ItemResult{AssetID: item.AssetID, AssetFQN: asset.FQN, Status: BulkFailed, Error: err.Error()}
	} else if pending != nil {
		return ItemResult{AssetID: item.AssetID, AssetFQN: asset.FQN, Status: BulkFailed, Error: "asset has a pending proposal: resolve it before publishing"}
	}

	var out ItemResult
	err = tx.WithSavepoint(ctx, func(ctx context.Context, tx store.Store) error {
		out = w.publishBulkItemLocked(ctx, tx, asset, item, in, normalized)
		if out.Status == BulkFailed {
			// Roll the savepoint back; the failure is still reported in
			// out, not propagated, so sibling items keep processing.
			return fmt.Errorf("tessera/contract: %s", out.Error)
		}
		return nil
	})
	if err != nil && out.Status == "" {
		w.log.Error("bulk publish item failed", zap.Error(err), zap.String("asset_id", item.AssetID.String()))
		out = ItemResult{AssetID: item.AssetID, AssetFQN: asset.FQN, Status: BulkFailed, Error: err.Error()}
	}
	return out
}

func (w *Workflow) publishBulkItemLocked(ctx context.Context, tx store.Store, asset *models.Asset, item ContractToPublish, in BulkPublishInput, normalized map[string]any) ItemResult {
	active, err := tx.LockActiveContract(ctx, item.AssetID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return ItemResult{AssetID: item.AssetID, AssetFQN: asset.FQN, Status: BulkFailed, Error: err.Error()}
	}

	mode := models.CompatibilityBackward
	switch {
	case item.CompatibilityMode != nil:
		mode = *item.CompatibilityMode
	case active != nil:
		mode = active.CompatibilityMode
	}

	if active == nil {
		if in.DryRun {
			return ItemResult{AssetID: item.AssetID, AssetFQN: asset.FQN, Status: BulkWillPublish, SuggestedVersion: semver.Initial, Reason: "first contract for this asset"}
		}
		c, err := w.insertContract(ctx, tx, singleInputFor(item, in), normalized, mode, semver.Initial, uuid.New())
		if err != nil {
			return ItemResult{AssetID: item.AssetID, AssetFQN: asset.FQN, Status: BulkFailed, Error: err.Error()}
		}
		if w.cache != nil {
			w.cache.InvalidateAsset(ctx, item.AssetID)
		}
		if w.notifier != nil {
			w.notifier.NotifyContractPublished(ctx, *c)
		}
		return ItemResult{AssetID: item.AssetID, AssetFQN: asset.FQN, Status: BulkPublished, ContractID: &c.ID, SuggestedVersion: semver.Initial, Reason: "first contract for this asset"}
	}

	currentVersion := active.Version
	diff := schemadiff.Diff(active.SchemaDef, normalized)
	if !diff.HasChanges() {
		status := BulkSkipped
		if in.DryRun {
			status = BulkWillSkip
		}
		return ItemResult{AssetID: item.AssetID, AssetFQN: asset.FQN, Status: status, CurrentVersion: currentVersion, Reason: "no schema changes detected"}
	}

	compatible, breaking := schemadiff.Classify(diff.Changes, mode)
	next := semver.ComputeNext(&currentVersion, compatible, diff.ChangeType)

	if compatible {
		reason := fmt.Sprintf("compatible %s change", diff.ChangeType)
		if in.DryRun {
			return ItemResult{AssetID: item.AssetID, AssetFQN: asset.FQN, Status: BulkWillPublish, SuggestedVersion: next, CurrentVersion: currentVersion, Reason: reason}
		}
		newID := uuid.New()
		if err := tx.DeprecateContract(ctx, active.ID); err != nil {
			return ItemResult{AssetID: item.AssetID, AssetFQN: asset.FQN, Status: BulkFailed, Error: err.Error()}
		}
		publishedBy := in.PublishedBy
		if err := tx.WriteAuditEvent(ctx, &models.AuditEvent{
			ID:         uuid.New(),
			EntityType: "contract",
			EntityID:   active.ID,
			Action:     "deprecated",
			ActorID:    &publishedBy,
			Payload:    models.JSONMap{"asset_id": item.AssetID, "version": active.Version, "superseded_by": newID},
			OccurredAt: store.Now().UTC(),
		}); err != nil {
			return ItemResult{AssetID: item.AssetID, AssetFQN: asset.FQN, Status: BulkFailed, Error: err.Error()}
		}
		c, err := w.insertContract(ctx, tx, singleInputFor(item, in), normalized, mode, next, newID)
		if err != nil {
			return ItemResult{AssetID: item.AssetID, AssetFQN: asset.FQN, Status: BulkFailed, Error: err.Error()}
		}
		if !guaranteesEqual(active.Guarantees, c.Guarantees) {
			if err := tx.WriteAuditEvent(ctx, &models.AuditEvent{
				ID:         uuid.New(),
				EntityType: "contract",
				EntityID:   c.ID,
				Action:     "guarantees_updated",
				ActorID:    &publishedBy,
				Payload:    models.JSONMap{"asset_id": item.AssetID, "old": active.Guarantees, "new": c.Guarantees},
				OccurredAt: store.Now().UTC(),
			}); err != nil {
				return ItemResult{AssetID: item.AssetID, AssetFQN: asset.FQN, Status: BulkFailed, Error: err.Error()}
			}
		}
		if w.cache != nil {
			w.cache.InvalidateAsset(ctx, item.AssetID)
		}
		if w.notifier != nil {
			w.notifier.NotifyContractPublished(ctx, *c)
		}
		return ItemResult{AssetID: item.AssetID, AssetFQN: asset.FQN, Status: BulkPublished, ContractID: &c.ID, SuggestedVersion: next, CurrentVersion: currentVersion, Reason: reason}
	}

	breakingMaps := changesToMaps(breaking)
	reason := fmt.Sprintf("breaking change: %d incompatible modification(s)", len(breaking))

	if in.DryRun {
		return ItemResult{AssetID: item.AssetID, AssetFQN: asset.FQN, Status: BulkBreaking, SuggestedVersion: next, CurrentVersion: currentVersion, BreakingChanges: breakingMaps, Reason: reason}
	}

	if !in.CreateProposalsForBreaking {
		return ItemResult{AssetID: item.AssetID, AssetFQN: asset.FQN, Status: BulkFailed, SuggestedVersion: next, CurrentVersion: currentVersion, BreakingChanges: breakingMaps,
			Error: "breaking change requires a proposal: set create_proposals_for_breaking or resolve manually"}
	}

	p, err := w.createProposal(ctx, tx, singleInputFor(item, in), normalized, diff.ChangeType, breaking)
	if err != nil {
		return ItemResult{AssetID: item.AssetID, AssetFQN: asset.FQN, Status: BulkFailed, Error: err.Error()}
	}
	if w.notifier != nil {
		w.notifier.NotifyProposalCreated(ctx, *p)
	}
	return ItemResult{AssetID: item.AssetID, AssetFQN: asset.FQN, Status: BulkProposalCreated, ProposalID: &p.ID, SuggestedVersion: next, CurrentVersion: currentVersion, BreakingChanges: breakingMaps, Reason: fmt.Sprintf("breaking change: proposal created for %d incompatible modification(s)", len(breaking))}
}

func singleInputFor(item ContractToPublish, in BulkPublishInput) PublishSingleInput {
	return PublishSingleInput{
		AssetID:           item.AssetID,
		Schema:            item.Schema,
		SchemaFormat:      item.SchemaFormat,
		CompatibilityMode: item.CompatibilityMode,
		Guarantees:        item.Guarantees,
		PublishedBy:       in.PublishedBy,
		PublishedByUserID: in.PublishedByUserID,
	}
}
