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

package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// JSONMap is the standard representation for arbitrary JSON object columns
// (metadata, schema_def, guarantees, audit payloads, ...).
type JSONMap map[string]any

// Team owns assets and registers consumption of other teams' contracts.
type Team struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	Name      string     `db:"name" json:"name"`
	Metadata  JSONMap    `db:"metadata" json:"metadata"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

// IsLive reports whether the team has not been soft-deleted.
func (t Team) IsLive() bool { return t.DeletedAt == nil }

// User belongs to at most one team and carries a role that determines
// session-derived scopes when authenticating without an API key.
type User struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	Email         string     `db:"email" json:"email"`
	TeamID        uuid.UUID  `db:"team_id" json:"team_id"`
	Role          UserRole   `db:"role" json:"role"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
	DeactivatedAt *time.Time `db:"deactivated_at" json:"deactivated_at,omitempty"`
}

func (u User) IsLive() bool { return u.DeactivatedAt == nil }

// Asset is an addressable unit of data: a warehouse table, a Kafka topic,
// an API endpoint. Identified by a fully-qualified name and environment.
type Asset struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	FQN          string     `db:"fqn" json:"fqn"`
	Environment  string     `db:"environment" json:"environment"`
	OwnerTeamID  uuid.UUID  `db:"owner_team_id" json:"owner_team_id"`
	ResourceType string     `db:"resource_type" json:"resource_type"`
	Metadata     JSONMap    `db:"metadata" json:"metadata"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt    *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

func (a Asset) IsLive() bool { return a.DeletedAt == nil }

// DependsOn returns the declared upstream FQNs from metadata.depends_on,
// the secondary lineage-discovery path described in spec §4.5.5. It never
// panics on malformed metadata; a non-array or missing value yields nil.
func (a Asset) DependsOn() []string {
	raw, ok := a.Metadata["depends_on"]
	if !ok {
		return nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Contract is a versioned, declarative description of an asset's schema
// and guarantees. Contract rows are never hard-deleted.
type Contract struct {
	ID                uuid.UUID         `db:"id" json:"id"`
	AssetID           uuid.UUID         `db:"asset_id" json:"asset_id"`
	Version           string            `db:"version" json:"version"`
	SchemaDef         JSONMap           `db:"schema_def" json:"schema_def"`
	SchemaFormat      SchemaFormat      `db:"schema_format" json:"schema_format"`
	CompatibilityMode CompatibilityMode `db:"compatibility_mode" json:"compatibility_mode"`
	Guarantees        JSONMap           `db:"guarantees" json:"guarantees,omitempty"`
	Status            ContractStatus    `db:"status" json:"status"`
	PublishedBy       uuid.UUID         `db:"published_by" json:"published_by"`
	PublishedByUserID *uuid.UUID        `db:"published_by_user_id" json:"published_by_user_id,omitempty"`
	PublishedAt       time.Time         `db:"published_at" json:"published_at"`
	CreatedAt         time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time         `db:"updated_at" json:"updated_at"`
}

// Registration is a consumer team's declared dependence on a contract.
type Registration struct {
	ID              uuid.UUID          `db:"id" json:"id"`
	ContractID      uuid.UUID          `db:"contract_id" json:"contract_id"`
	ConsumerTeamID  uuid.UUID          `db:"consumer_team_id" json:"consumer_team_id"`
	PinnedVersion   *string            `db:"pinned_version" json:"pinned_version,omitempty"`
	Status          RegistrationStatus `db:"status" json:"status"`
	RegisteredAt    time.Time          `db:"registered_at" json:"registered_at"`
	AcknowledgedAt  *time.Time         `db:"acknowledged_at" json:"acknowledged_at,omitempty"`
	CreatedAt       time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time          `db:"updated_at" json:"updated_at"`
	DeletedAt       *time.Time         `db:"deleted_at" json:"deleted_at,omitempty"`
}

func (r Registration) IsLive() bool { return r.DeletedAt == nil }

// Dependency mirrors a lineage edge between two assets.
type Dependency struct {
	ID                 uuid.UUID      `db:"id" json:"id"`
	DependentAssetID   uuid.UUID      `db:"dependent_asset_id" json:"dependent_asset_id"`
	DependencyAssetID  uuid.UUID      `db:"dependency_asset_id" json:"dependency_asset_id"`
	DependencyType     DependencyType `db:"dependency_type" json:"dependency_type"`
	CreatedAt          time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at" json:"updated_at"`
	DeletedAt          *time.Time     `db:"deleted_at" json:"deleted_at,omitempty"`
}

func (d Dependency) IsLive() bool { return d.DeletedAt == nil }

// AffectedTeam is a hint computed at proposal-creation time: a team that
// owns an asset transitively downstream of the change.
type AffectedTeam struct {
	TeamID   uuid.UUID `json:"team_id"`
	TeamName string    `json:"team_name"`
}

// AffectedAsset pairs an impacted asset id with its FQN for display.
type AffectedAsset struct {
	AssetID uuid.UUID `json:"asset_id"`
	FQN     string    `json:"fqn"`
}

// Objection is a downstream team's recorded veto reason against a
// proposal, distinct from an Acknowledgment with response=blocked.
type Objection struct {
	TeamID    uuid.UUID `json:"team_id"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

// Proposal represents a pending breaking change awaiting consumer
// acknowledgment.
type Proposal struct {
	ID                  uuid.UUID       `db:"id" json:"id"`
	AssetID             uuid.UUID       `db:"asset_id" json:"asset_id"`
	ProposedSchema      JSONMap         `db:"proposed_schema" json:"proposed_schema"`
	ProposedGuarantees  JSONMap         `db:"proposed_guarantees" json:"proposed_guarantees,omitempty"`
	ChangeType          ChangeType      `db:"change_type" json:"change_type"`
	BreakingChanges     json.RawMessage `db:"breaking_changes" json:"breaking_changes"`
	AffectedTeams       json.RawMessage `db:"affected_teams" json:"affected_teams"`
	AffectedAssets      json.RawMessage `db:"affected_assets" json:"affected_assets"`
	Objections          json.RawMessage `db:"objections" json:"objections"`
	Status              ProposalStatus  `db:"status" json:"status"`
	ProposedBy          uuid.UUID       `db:"proposed_by" json:"proposed_by"`
	ProposedByUserID    *uuid.UUID      `db:"proposed_by_user_id" json:"proposed_by_user_id,omitempty"`
	ProposedAt          time.Time       `db:"proposed_at" json:"proposed_at"`
	ResolvedAt          *time.Time      `db:"resolved_at" json:"resolved_at,omitempty"`
	CreatedAt           time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time       `db:"updated_at" json:"updated_at"`
}

// Acknowledgment is a consumer team's response to a proposal.
type Acknowledgment struct {
	ID                uuid.UUID              `db:"id" json:"id"`
	ProposalID        uuid.UUID              `db:"proposal_id" json:"proposal_id"`
	ConsumerTeamID    uuid.UUID              `db:"consumer_team_id" json:"consumer_team_id"`
	Response          AcknowledgmentResponse `db:"response" json:"response"`
	MigrationDeadline *time.Time             `db:"migration_deadline" json:"migration_deadline,omitempty"`
	Notes             string                 `db:"notes" json:"notes,omitempty"`
	RespondedAt       time.Time              `db:"responded_at" json:"responded_at"`
}

// AuditEvent is an append-only record of a state-changing action.
type AuditEvent struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	EntityType string     `db:"entity_type" json:"entity_type"`
	EntityID   uuid.UUID  `db:"entity_id" json:"entity_id"`
	Action     string     `db:"action" json:"action"`
	ActorID    *uuid.UUID `db:"actor_id" json:"actor_id,omitempty"`
	Payload    JSONMap    `db:"payload" json:"payload"`
	OccurredAt time.Time  `db:"occurred_at" json:"occurred_at"`
}

// AuditRun is a write-audit-publish (WAP) quality-tool report filed
// against an asset (optionally a specific contract).
type AuditRun struct {
	ID          uuid.UUID      `db:"id" json:"id"`
	AssetID     uuid.UUID      `db:"asset_id" json:"asset_id"`
	ContractID  *uuid.UUID     `db:"contract_id" json:"contract_id,omitempty"`
	Status      AuditRunStatus `db:"status" json:"status"`
	Counts      JSONMap        `db:"counts" json:"counts"`
	TriggeredBy string         `db:"triggered_by" json:"triggered_by"`
	RunID       *string        `db:"run_id" json:"run_id,omitempty"`
	Details     JSONMap        `db:"details" json:"details,omitempty"`
	RunAt       time.Time      `db:"run_at" json:"run_at"`
}

// WebhookDelivery is a record of one scheduled webhook delivery attempt
// sequence.
type WebhookDelivery struct {
	ID             uuid.UUID             `db:"id" json:"id"`
	EventType      string                `db:"event_type" json:"event_type"`
	Payload        JSONMap               `db:"payload" json:"payload"`
	URL            string                `db:"url" json:"url"`
	Status         WebhookDeliveryStatus `db:"status" json:"status"`
	Attempts       int                   `db:"attempts" json:"attempts"`
	LastAttemptAt  *time.Time            `db:"last_attempt_at" json:"last_attempt_at,omitempty"`
	LastError      *string               `db:"last_error" json:"last_error,omitempty"`
	LastStatusCode *int                  `db:"last_status_code" json:"last_status_code,omitempty"`
	DeliveredAt    *time.Time            `db:"delivered_at" json:"delivered_at,omitempty"`
	CreatedAt      time.Time             `db:"created_at" json:"created_at"`
}

// APIKey is an opaque credential, stored only as its argon2 hash plus a
// lookup prefix ("tess_live_...").
type APIKey struct {
	ID        uuid.UUID     `db:"id" json:"id"`
	KeyHash   string        `db:"key_hash" json:"-"`
	KeyPrefix string        `db:"key_prefix" json:"key_prefix"`
	Name      string        `db:"name" json:"name"`
	TeamID    uuid.UUID     `db:"team_id" json:"team_id"`
	Scopes    []APIKeyScope `db:"scopes" json:"scopes"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
	ExpiresAt *time.Time    `db:"expires_at" json:"expires_at,omitempty"`
}

// HasScope reports whether the key carries the given scope; admin implies
// both read and write.
func (k APIKey) HasScope(scope APIKeyScope) bool {
	for _, s := range k.Scopes {
		if s == scope || s == ScopeAdmin {
			return true
		}
	}
	return false
}

// Expired reports whether the key has passed its expiry, if any.
func (k APIKey) Expired(now time.Time) bool {
	return k.ExpiresAt != nil && now.After(*k.ExpiresAt)
}
