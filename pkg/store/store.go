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

// Package store declares the repository surface every domain package
// (pkg/contract, pkg/proposal, pkg/impact, pkg/webhook, internal/httpapi)
// depends on. pkg/store/postgres is the concrete implementation; tests
// substitute a go-sqlmock-backed *postgres.Store or a hand-rolled fake
// satisfying the same interfaces.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/ashita-ai/tessera/pkg/models"
)

// ErrNotFound is returned by single-row lookups when the row does not
// exist or is soft-deleted.
var ErrNotFound = errors.New("store: not found")

// ErrConflict is returned when a write would violate a uniqueness
// invariant (team name, asset fqn+environment, contract version,
// registration, acknowledgment, dependency).
var ErrConflict = errors.New("store: conflict")

// TxFunc is run inside a transactional scope; returning an error rolls
// the transaction back.
type TxFunc func(ctx context.Context, tx Store) error

// Store is the full repository surface. The top-level Store obtained from
// postgres.Open operates outside any transaction; WithTx and WithSavepoint
// hand the callback a Store bound to a transaction (or a nested savepoint)
// so repository calls inside fn participate in the same scope.
type Store interface {
	// WithTx runs fn inside a transaction, committing on success and
	// rolling back when fn returns an error; called on a Store already
	// bound to a transaction, fn runs in that same transaction.
	// Locking the asset's active contract row (LockActiveContract) is
	// only meaningful inside one of these scopes.
	WithTx(ctx context.Context, fn TxFunc) error
	// WithSavepoint runs fn inside a nested scope (a SQL savepoint when
	// called from within an existing transaction, a top-level transaction
	// otherwise), so one item of a bulk operation can fail and roll back
	// without aborting its siblings.
	WithSavepoint(ctx context.Context, fn TxFunc) error

	Teams
	Users
	Assets
	Contracts
	Registrations
	Dependencies
	Proposals
	Acknowledgments
	AuditEvents
	AuditRuns
	WebhookDeliveries
	APIKeys
}

// ListFilter paginates list endpoints uniformly.
type ListFilter struct {
	Limit  int
	Offset int
}

type Teams interface {
	CreateTeam(ctx context.Context, t *models.Team) error
	GetTeam(ctx context.Context, id uuid.UUID) (*models.Team, error)
	GetTeamByName(ctx context.Context, name string) (*models.Team, error)
	ListTeams(ctx context.Context, f ListFilter) ([]models.Team, error)
	UpdateTeam(ctx context.Context, t *models.Team) error
	SoftDeleteTeam(ctx context.Context, id uuid.UUID) error
}

type Users interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// AssetFilter narrows ListAssets by owner team.
type AssetFilter struct {
	ListFilter
	OwnerTeamID *uuid.UUID
}

type Assets interface {
	CreateAsset(ctx context.Context, a *models.Asset) error
	GetAsset(ctx context.Context, id uuid.UUID) (*models.Asset, error)
	GetAssetByFQN(ctx context.Context, fqn, environment string) (*models.Asset, error)
	ListAssets(ctx context.Context, f AssetFilter) ([]models.Asset, error)
	// ListAssetsDependingOnFQN finds assets whose metadata.depends_on JSON
	// array contains fqn — the secondary lineage-discovery path of
	// spec §4.5.5, implemented as a filtered query, not a full scan.
	ListAssetsDependingOnFQN(ctx context.Context, fqn string) ([]models.Asset, error)
	UpdateAsset(ctx context.Context, a *models.Asset) error
	SoftDeleteAsset(ctx context.Context, id uuid.UUID) error
	SearchAssets(ctx context.Context, query string, limit int) ([]models.Asset, error)
}

type Contracts interface {
	// LockActiveContract locks (SELECT ... FOR UPDATE) and returns the
	// live active contract for assetID, or ErrNotFound if the asset has
	// never published one. Must be called inside WithTx.
	LockActiveContract(ctx context.Context, assetID uuid.UUID) (*models.Contract, error)
	GetContract(ctx context.Context, id uuid.UUID) (*models.Contract, error)
	GetContractByVersion(ctx context.Context, assetID uuid.UUID, version string) (*models.Contract, error)
	ListContracts(ctx context.Context, assetID uuid.UUID) ([]models.Contract, error)
	InsertContract(ctx context.Context, c *models.Contract) error
	DeprecateContract(ctx context.Context, id uuid.UUID) error
}

type RegistrationFilter struct {
	ListFilter
	ContractID *uuid.UUID
}

type Registrations interface {
	CreateRegistration(ctx context.Context, r *models.Registration) error
	GetRegistration(ctx context.Context, id uuid.UUID) (*models.Registration, error)
	ListRegistrations(ctx context.Context, f RegistrationFilter) ([]models.Registration, error)
	// ListLiveConsumerTeams returns the distinct consumer_team_id of every
	// live registration on contractID — the completion check in §4.5.2
	// operates over this set.
	ListLiveConsumerTeams(ctx context.Context, contractID uuid.UUID) ([]uuid.UUID, error)
	UpdateRegistration(ctx context.Context, r *models.Registration) error
	SoftDeleteRegistration(ctx context.Context, id uuid.UUID) error
}

type Dependencies interface {
	CreateDependency(ctx context.Context, d *models.Dependency) error
	// ListDependents batch-resolves, for every asset id in assetIDs, the
	// live dependency edges whose dependency_asset_id (upstream side)
	// matches — the per-level query the impact engine's BFS issues.
	ListDependents(ctx context.Context, assetIDs []uuid.UUID) ([]models.Dependency, error)
	ListLineage(ctx context.Context, assetID uuid.UUID) ([]models.Dependency, error)
}

type Proposals interface {
	CreateProposal(ctx context.Context, p *models.Proposal) error
	// LockProposal locks (SELECT ... FOR UPDATE) the proposal row, for
	// acknowledge/object/withdraw/force/publish transitions.
	LockProposal(ctx context.Context, id uuid.UUID) (*models.Proposal, error)
	GetProposal(ctx context.Context, id uuid.UUID) (*models.Proposal, error)
	// GetPendingProposal returns the asset's pending proposal, if any; a
	// nil result (not ErrNotFound) signals none exists, matching the
	// "at most one pending" invariant's common-case check.
	GetPendingProposal(ctx context.Context, assetID uuid.UUID) (*models.Proposal, error)
	ListProposals(ctx context.Context, f ProposalFilter) ([]models.Proposal, error)
	UpdateProposal(ctx context.Context, p *models.Proposal) error
}

type ProposalFilter struct {
	ListFilter
	AssetID    *uuid.UUID
	Status     *models.ProposalStatus
	ProposedBy *uuid.UUID
}

type Acknowledgments interface {
	CreateAcknowledgment(ctx context.Context, a *models.Acknowledgment) error
	GetAcknowledgment(ctx context.Context, proposalID, consumerTeamID uuid.UUID) (*models.Acknowledgment, error)
	ListAcknowledgments(ctx context.Context, proposalID uuid.UUID) ([]models.Acknowledgment, error)
}

type AuditEvents interface {
	// WriteAuditEvent must be called inside the same transactional scope
	// as the mutation it records (invariant I6).
	WriteAuditEvent(ctx context.Context, e *models.AuditEvent) error
	ListAuditHistory(ctx context.Context, assetID uuid.UUID, f AuditHistoryFilter) ([]models.AuditEvent, error)
}

type AuditHistoryFilter struct {
	ListFilter
	TriggeredBy *string
	Status      *models.AuditRunStatus
}

type AuditRuns interface {
	CreateAuditRun(ctx context.Context, r *models.AuditRun) error
	ListAuditRuns(ctx context.Context, assetID uuid.UUID, f AuditHistoryFilter) ([]models.AuditRun, error)
}

type WebhookDeliveries interface {
	CreateWebhookDelivery(ctx context.Context, d *models.WebhookDelivery) error
	UpdateWebhookDelivery(ctx context.Context, d *models.WebhookDelivery) error
}

type APIKeys interface {
	CreateAPIKey(ctx context.Context, k *models.APIKey) error
	GetAPIKeyByPrefix(ctx context.Context, prefix string) (*models.APIKey, error)
	RevokeAPIKey(ctx context.Context, id uuid.UUID) error
}

// Now is overridable in tests; production code always calls time.Now.
var Now = time.Now
