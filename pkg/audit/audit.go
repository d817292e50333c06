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

// Package audit provides the append-only AuditEvent writer helper shared
// by every domain workflow, and the write-audit-publish (WAP) ingestion
// and query surface (AuditRun) that records external quality-tool
// reports and lists both kinds of history for an asset.
//
// Unlike a process-wide buffered audit client, this package never
// decouples the write from its caller's transaction: invariant I6
// requires every AuditEvent to be written in the same transactional
// scope as the mutation it describes, so Event and Service.RecordRun
// both take the in-flight store.Store (which may be a transaction or
// savepoint handle) rather than holding one of their own.
package audit

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	apperrors "github.com/ashita-ai/tessera/internal/errors"
	"github.com/ashita-ai/tessera/pkg/models"
	"github.com/ashita-ai/tessera/pkg/store"
)

// Event builds an AuditEvent for entityType/entityID, stamped with
// store.Now(), and is a thin constructor only — callers still invoke
// tx.WriteAuditEvent themselves inside their own transactional scope.
func Event(entityType string, entityID uuid.UUID, action string, actorID *uuid.UUID, payload models.JSONMap) *models.AuditEvent {
	return &models.AuditEvent{
		ID:         uuid.New(),
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		ActorID:    actorID,
		Payload:    payload,
		OccurredAt: store.Now().UTC(),
	}
}

// Write is Event followed immediately by tx.WriteAuditEvent, for call
// sites that have nothing else to do with the event once it's built.
func Write(ctx context.Context, tx store.Store, entityType string, entityID uuid.UUID, action string, actorID *uuid.UUID, payload models.JSONMap) error {
	if err := tx.WriteAuditEvent(ctx, Event(entityType, entityID, action, actorID, payload)); err != nil {
		return fmt.Errorf("tessera/audit: write event: %w", err)
	}
	return nil
}

// Service is the WAP ingestion and history-query surface.
type Service struct {
	store store.Store
}

// New constructs a Service over the given store.
func New(s store.Store) *Service {
	return &Service{store: s}
}

// RecordRunInput is the body of POST /assets/{id}/audit-results.
type RecordRunInput struct {
	AssetID     uuid.UUID
	ContractID  *uuid.UUID
	Status      models.AuditRunStatus
	Counts      models.JSONMap
	TriggeredBy string
	RunID       *string
	Details     models.JSONMap
	ActorID     *uuid.UUID
}

// RecordRun files an external quality-tool report against an asset and
// writes the matching AuditEvent in the same transactional scope.
func (s *Service) RecordRun(ctx context.Context, in RecordRunInput) (*models.AuditRun, error) {
	if in.AssetID == uuid.Nil {
		return nil, apperrors.NewValidationError("asset_id is required")
	}
	switch in.Status {
	case models.AuditRunPassed, models.AuditRunFailed, models.AuditRunPartial:
	default:
		return nil, apperrors.NewValidationError(fmt.Sprintf("invalid audit run status %q", in.Status))
	}

	var run *models.AuditRun
	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Store) error {
		if _, err := tx.GetAsset(ctx, in.AssetID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return apperrors.NewNotFoundError("asset not found")
			}
			return fmt.Errorf("tessera/audit: get asset: %w", err)
		}

		run = &models.AuditRun{
			ID:          uuid.New(),
			AssetID:     in.AssetID,
			ContractID:  in.ContractID,
			Status:      in.Status,
			Counts:      in.Counts,
			TriggeredBy: in.TriggeredBy,
			RunID:       in.RunID,
			Details:     in.Details,
			RunAt:       store.Now().UTC(),
		}
		if err := tx.CreateAuditRun(ctx, run); err != nil {
			return fmt.Errorf("tessera/audit: insert audit run: %w", err)
		}
		return Write(ctx, tx, "audit_run", run.ID, "recorded", in.ActorID, models.JSONMap{
			"asset_id":     in.AssetID,
			"status":       string(in.Status),
			"triggered_by": in.TriggeredBy,
		})
	})
	if err != nil {
		return nil, err
	}
	return run, nil
}

// History returns the append-only AuditEvent log for an asset.
func (s *Service) History(ctx context.Context, assetID uuid.UUID, f store.AuditHistoryFilter) ([]models.AuditEvent, error) {
	events, err := s.store.ListAuditHistory(ctx, assetID, f)
	if err != nil {
		return nil, fmt.Errorf("tessera/audit: list history: %w", err)
	}
	return events, nil
}

// Runs returns the WAP AuditRun reports filed against an asset.
func (s *Service) Runs(ctx context.Context, assetID uuid.UUID, f store.AuditHistoryFilter) ([]models.AuditRun, error) {
	runs, err := s.store.ListAuditRuns(ctx, assetID, f)
	if err != nil {
		return nil, fmt.Errorf("tessera/audit: list runs: %w", err)
	}
	return runs, nil
}
