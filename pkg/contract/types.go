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

// Package contract implements the publishing workflow (C4): single and
// bulk contract publication, schema diffing against the current active
// contract, and handing breaking changes off to the proposal workflow.
package contract

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/ashita-ai/tessera/pkg/models"
)

// Outcome classifies what PublishSingle did.
type Outcome string

const (
	OutcomePublished      Outcome = "published"
	OutcomeForcePublished Outcome = "force_published"
	OutcomeProposalCreated Outcome = "proposal_created"
	OutcomeSkipped        Outcome = "skipped"
)

// PublishSingleInput is the public contract of §4.4.1's publish_single.
type PublishSingleInput struct {
	AssetID           uuid.UUID
	Schema            map[string]any
	SchemaFormat      models.SchemaFormat
	CompatibilityMode *models.CompatibilityMode
	Guarantees        map[string]any
	PublishedBy       uuid.UUID
	PublishedByUserID *uuid.UUID
	Force             bool
}

// PublishSingleResult is returned by PublishSingle.
type PublishSingleResult struct {
	Outcome     Outcome           `json:"outcome"`
	Contract    *models.Contract  `json:"contract,omitempty"`
	Proposal    *models.Proposal  `json:"proposal,omitempty"`
	ChangeType  models.ChangeType `json:"change_type"`
	Breaking    []map[string]any  `json:"breaking_changes,omitempty"`
	Warning     string            `json:"warning,omitempty"`
	Graduation  bool              `json:"graduation,omitempty"`
}

// BulkStatus is the per-item status vocabulary from the bulk publish
// algorithm (spec §4.4.3), including the dry-run-only projections.
type BulkStatus string

const (
	BulkWillPublish      BulkStatus = "will_publish"
	BulkWillSkip         BulkStatus = "will_skip"
	BulkBreaking         BulkStatus = "breaking"
	BulkPublished        BulkStatus = "published"
	BulkSkipped          BulkStatus = "skipped"
	BulkProposalCreated  BulkStatus = "proposal_created"
	BulkFailed           BulkStatus = "failed"
)

// ContractToPublish is one item of a bulk publish request.
type ContractToPublish struct {
	AssetID           uuid.UUID                 `json:"asset_id" validate:"required"`
	Schema            map[string]any             `json:"schema" validate:"required"`
	SchemaFormat      models.SchemaFormat        `json:"schema_format" validate:"required"`
	CompatibilityMode *models.CompatibilityMode  `json:"compatibility_mode"`
	Guarantees        map[string]any             `json:"guarantees"`
}

// BulkPublishInput is the public contract of §4.4.1's publish_bulk.
type BulkPublishInput struct {
	Items                     []ContractToPublish
	PublishedBy               uuid.UUID
	PublishedByUserID         *uuid.UUID
	DryRun                    bool
	CreateProposalsForBreaking bool
}

// ItemResult is one row of a BulkPublishResult.
type ItemResult struct {
	AssetID          uuid.UUID        `json:"asset_id"`
	AssetFQN         string           `json:"asset_fqn"`
	Status           BulkStatus       `json:"status"`
	ContractID       *uuid.UUID       `json:"contract_id,omitempty"`
	ProposalID       *uuid.UUID       `json:"proposal_id,omitempty"`
	SuggestedVersion string           `json:"suggested_version,omitempty"`
	CurrentVersion   string           `json:"current_version,omitempty"`
	Reason           string           `json:"reason,omitempty"`
	BreakingChanges  []map[string]any `json:"breaking_changes,omitempty"`
	Error            string           `json:"error,omitempty"`
}

// BulkPublishResult aggregates the outcome of a bulk publish, matching
// the shape spec §4.4.1 names: {preview, total, published, skipped,
// proposals_created, failed, results[]}.
type BulkPublishResult struct {
	Preview          bool         `json:"preview"`
	Total            int          `json:"total"`
	Published        int          `json:"published"`
	Skipped          int          `json:"skipped"`
	ProposalsCreated int          `json:"proposals_created"`
	Failed           int          `json:"failed"`
	Results          []ItemResult `json:"results"`
}

// ErrPendingProposal is returned when a publish is attempted while the
// asset already has a pending proposal (409 at the HTTP layer).
var ErrPendingProposal = errors.New("tessera/contract: asset has a pending proposal")

// ErrBreakingWithoutForce reports an incompatible schema change published
// without force. Neither PublishSingle nor PublishBulk returns it (a
// breaking single publish creates a proposal instead of failing); it
// exists for callers that want to reject outright, e.g. a strict CI gate
// built on top of the workflow.
var ErrBreakingWithoutForce = errors.New("tessera/contract: incompatible schema change requires force or a proposal")

// Notifier is the subset of the webhook pipeline (C7) the publishing
// workflow depends on. Implementations must not block the caller or
// propagate delivery failures (spec §4.7, §7: "webhook failures never
// affect the response to the state-change that triggered them").
type Notifier interface {
	NotifyContractPublished(ctx context.Context, contract models.Contract)
	NotifyProposalCreated(ctx context.Context, proposal models.Proposal)
}

// AffectedPartiesResolver computes the impact-engine hints (spec §4.5.5)
// a newly created proposal stores.
type AffectedPartiesResolver interface {
	AffectedParties(ctx context.Context, assetID uuid.UUID, excludeTeamID uuid.UUID) ([]models.AffectedTeam, []models.AffectedAsset, error)
}

// Invalidator is the cache-invalidation hook (pkg/cache) run after a
// successful publish.
type Invalidator interface {
	InvalidateAsset(ctx context.Context, assetID uuid.UUID)
}
