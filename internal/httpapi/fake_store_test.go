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

package httpapi_test

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/ashita-ai/tessera/pkg/models"
	"github.com/ashita-ai/tessera/pkg/store"
)

// fakeStore is an in-memory store.Store covering every handler's repository
// call, shared by all of this package's handler tests.
type fakeStore struct {
	teams            map[uuid.UUID]*models.Team
	users            map[uuid.UUID]*models.User
	assets           map[uuid.UUID]*models.Asset
	contracts        map[uuid.UUID]*models.Contract
	registrations    map[uuid.UUID]*models.Registration
	dependencies     []models.Dependency
	proposals        map[uuid.UUID]*models.Proposal
	acknowledgments  map[uuid.UUID][]models.Acknowledgment
	auditEvents      []models.AuditEvent
	auditRuns        []models.AuditRun
	webhookDeliveries map[uuid.UUID]*models.WebhookDelivery
	apiKeys          map[uuid.UUID]*models.APIKey
	liveConsumers    map[uuid.UUID][]uuid.UUID
}

var _ store.Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{
		teams:             map[uuid.UUID]*models.Team{},
		users:             map[uuid.UUID]*models.User{},
		assets:            map[uuid.UUID]*models.Asset{},
		contracts:         map[uuid.UUID]*models.Contract{},
		registrations:     map[uuid.UUID]*models.Registration{},
		proposals:         map[uuid.UUID]*models.Proposal{},
		acknowledgments:   map[uuid.UUID][]models.Acknowledgment{},
		webhookDeliveries: map[uuid.UUID]*models.WebhookDelivery{},
		apiKeys:           map[uuid.UUID]*models.APIKey{},
		liveConsumers:     map[uuid.UUID][]uuid.UUID{},
	}
}

func (f *fakeStore) WithTx(ctx context.Context, fn store.TxFunc) error        { return fn(ctx, f) }
func (f *fakeStore) WithSavepoint(ctx context.Context, fn store.TxFunc) error { return fn(ctx, f) }

// Teams

func (f *fakeStore) CreateTeam(ctx context.Context, t *models.Team) error {
	for _, existing := range f.teams {
		if existing.IsLive() && existing.Name == t.Name {
			return store.ErrConflict
		}
	}
	f.teams[t.ID] = t
	return nil
}

func (f *fakeStore) GetTeam(ctx context.Context, id uuid.UUID) (*models.Team, error) {
	t, ok := f.teams[id]
	if !ok || !t.IsLive() {
		return nil, store.ErrNotFound
	}
	return t, nil
}

func (f *fakeStore) GetTeamByName(ctx context.Context, name string) (*models.Team, error) {
	for _, t := range f.teams {
		if t.IsLive() && t.Name == name {
			return t, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) ListTeams(ctx context.Context, fl store.ListFilter) ([]models.Team, error) {
	var out []models.Team
	for _, t := range f.teams {
		if t.IsLive() {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateTeam(ctx context.Context, t *models.Team) error {
	f.teams[t.ID] = t
	return nil
}

func (f *fakeStore) SoftDeleteTeam(ctx context.Context, id uuid.UUID) error {
	t, ok := f.teams[id]
	if !ok || !t.IsLive() {
		return store.ErrNotFound
	}
	now := store.Now()
	t.DeletedAt = &now
	return nil
}

// Users

func (f *fakeStore) CreateUser(ctx context.Context, u *models.User) error {
	f.users[u.ID] = u
	return nil
}

func (f *fakeStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return u, nil
}

func (f *fakeStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, store.ErrNotFound
}

// Assets

func (f *fakeStore) CreateAsset(ctx context.Context, a *models.Asset) error {
	for _, existing := range f.assets {
		if existing.IsLive() && existing.FQN == a.FQN && existing.Environment == a.Environment {
			return store.ErrConflict
		}
	}
	f.assets[a.ID] = a
	return nil
}

func (f *fakeStore) GetAsset(ctx context.Context, id uuid.UUID) (*models.Asset, error) {
	a, ok := f.assets[id]
	if !ok || !a.IsLive() {
		return nil, store.ErrNotFound
	}
	return a, nil
}

func (f *fakeStore) GetAssetByFQN(ctx context.Context, fqn, environment string) (*models.Asset, error) {
	for _, a := range f.assets {
		if a.IsLive() && a.FQN == fqn && a.Environment == environment {
			return a, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) ListAssets(ctx context.Context, fl store.AssetFilter) ([]models.Asset, error) {
	var out []models.Asset
	for _, a := range f.assets {
		if !a.IsLive() {
			continue
		}
		if fl.OwnerTeamID != nil && a.OwnerTeamID != *fl.OwnerTeamID {
			continue
		}
		out = append(out, *a)
	}
	return out, nil
}

func (f *fakeStore) ListAssetsDependingOnFQN(ctx context.Context, fqn string) ([]models.Asset, error) {
	var out []models.Asset
	for _, a := range f.assets {
		if !a.IsLive() {
			continue
		}
		for _, dep := range a.DependsOn() {
			if dep == fqn {
				out = append(out, *a)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateAsset(ctx context.Context, a *models.Asset) error {
	f.assets[a.ID] = a
	return nil
}

func (f *fakeStore) SoftDeleteAsset(ctx context.Context, id uuid.UUID) error {
	a, ok := f.assets[id]
	if !ok || !a.IsLive() {
		return store.ErrNotFound
	}
	now := store.Now()
	a.DeletedAt = &now
	return nil
}

func (f *fakeStore) SearchAssets(ctx context.Context, query string, limit int) ([]models.Asset, error) {
	var out []models.Asset
	for _, a := range f.assets {
		if a.IsLive() && strings.Contains(a.FQN, query) {
			out = append(out, *a)
			if len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

// Contracts

func (f *fakeStore) LockActiveContract(ctx context.Context, assetID uuid.UUID) (*models.Contract, error) {
	for _, c := range f.contracts {
		if c.AssetID == assetID && c.Status == models.ContractActive {
			return c, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) GetContract(ctx context.Context, id uuid.UUID) (*models.Contract, error) {
	c, ok := f.contracts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return c, nil
}

func (f *fakeStore) GetContractByVersion(ctx context.Context, assetID uuid.UUID, version string) (*models.Contract, error) {
	for _, c := range f.contracts {
		if c.AssetID == assetID && c.Version == version {
			return c, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) ListContracts(ctx context.Context, assetID uuid.UUID) ([]models.Contract, error) {
	var out []models.Contract
	for _, c := range f.contracts {
		if c.AssetID == assetID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeStore) InsertContract(ctx context.Context, c *models.Contract) error {
	for _, existing := range f.contracts {
		if existing.AssetID == c.AssetID && existing.Version == c.Version {
			return store.ErrConflict
		}
	}
	f.contracts[c.ID] = c
	return nil
}

func (f *fakeStore) DeprecateContract(ctx context.Context, id uuid.UUID) error {
	c, ok := f.contracts[id]
	if !ok {
		return store.ErrNotFound
	}
	c.Status = models.ContractDeprecated
	return nil
}

// Registrations

func (f *fakeStore) CreateRegistration(ctx context.Context, r *models.Registration) error {
	for _, existing := range f.registrations {
		if existing.IsLive() && existing.ContractID == r.ContractID && existing.ConsumerTeamID == r.ConsumerTeamID {
			return store.ErrConflict
		}
	}
	f.registrations[r.ID] = r
	return nil
}

func (f *fakeStore) GetRegistration(ctx context.Context, id uuid.UUID) (*models.Registration, error) {
	r, ok := f.registrations[id]
	if !ok || !r.IsLive() {
		return nil, store.ErrNotFound
	}
	return r, nil
}

func (f *fakeStore) ListRegistrations(ctx context.Context, fl store.RegistrationFilter) ([]models.Registration, error) {
	var out []models.Registration
	for _, r := range f.registrations {
		if !r.IsLive() {
			continue
		}
		if fl.ContractID != nil && r.ContractID != *fl.ContractID {
			continue
		}
		out = append(out, *r)
	}
	return out, nil
}

func (f *fakeStore) ListLiveConsumerTeams(ctx context.Context, contractID uuid.UUID) ([]uuid.UUID, error) {
	out := append([]uuid.UUID(nil), f.liveConsumers[contractID]...)
	for _, r := range f.registrations {
		if r.IsLive() && r.ContractID == contractID {
			out = append(out, r.ConsumerTeamID)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateRegistration(ctx context.Context, r *models.Registration) error {
	f.registrations[r.ID] = r
	return nil
}

func (f *fakeStore) SoftDeleteRegistration(ctx context.Context, id uuid.UUID) error {
	r, ok := f.registrations[id]
	if !ok || !r.IsLive() {
		return store.ErrNotFound
	}
	now := store.Now()
	r.DeletedAt = &now
	return nil
}

// Dependencies

func (f *fakeStore) CreateDependency(ctx context.Context, d *models.Dependency) error {
	f.dependencies = append(f.dependencies, *d)
	return nil
}

func (f *fakeStore) ListDependents(ctx context.Context, assetIDs []uuid.UUID) ([]models.Dependency, error) {
	wanted := make(map[uuid.UUID]bool, len(assetIDs))
	for _, id := range assetIDs {
		wanted[id] = true
	}
	var out []models.Dependency
	for _, d := range f.dependencies {
		if d.IsLive() && wanted[d.DependencyAssetID] {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeStore) ListLineage(ctx context.Context, assetID uuid.UUID) ([]models.Dependency, error) {
	var out []models.Dependency
	for _, d := range f.dependencies {
		if d.IsLive() && d.DependentAssetID == assetID {
			out = append(out, d)
		}
	}
	return out, nil
}

// Proposals

func (f *fakeStore) CreateProposal(ctx context.Context, p *models.Proposal) error {
	f.proposals[p.ID] = p
	return nil
}

func (f *fakeStore) LockProposal(ctx context.Context, id uuid.UUID) (*models.Proposal, error) {
	p, ok := f.proposals[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return p, nil
}

func (f *fakeStore) GetProposal(ctx context.Context, id uuid.UUID) (*models.Proposal, error) {
	p, ok := f.proposals[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return p, nil
}

func (f *fakeStore) GetPendingProposal(ctx context.Context, assetID uuid.UUID) (*models.Proposal, error) {
	for _, p := range f.proposals {
		if p.AssetID == assetID && p.Status == models.ProposalPending {
			return p, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) ListProposals(ctx context.Context, fl store.ProposalFilter) ([]models.Proposal, error) {
	var out []models.Proposal
	for _, p := range f.proposals {
		if fl.AssetID != nil && p.AssetID != *fl.AssetID {
			continue
		}
		if fl.Status != nil && p.Status != *fl.Status {
			continue
		}
		if fl.ProposedBy != nil && p.ProposedBy != *fl.ProposedBy {
			continue
		}
		out = append(out, *p)
	}
	return out, nil
}

func (f *fakeStore) UpdateProposal(ctx context.Context, p *models.Proposal) error {
	f.proposals[p.ID] = p
	return nil
}

// Acknowledgments

func (f *fakeStore) CreateAcknowledgment(ctx context.Context, a *models.Acknowledgment) error {
	for _, existing := range f.acknowledgments[a.ProposalID] {
		if existing.ConsumerTeamID == a.ConsumerTeamID {
			return store.ErrConflict
		}
	}
	f.acknowledgments[a.ProposalID] = append(f.acknowledgments[a.ProposalID], *a)
	return nil
}

func (f *fakeStore) GetAcknowledgment(ctx context.Context, proposalID, consumerTeamID uuid.UUID) (*models.Acknowledgment, error) {
	for _, a := range f.acknowledgments[proposalID] {
		if a.ConsumerTeamID == consumerTeamID {
			return &a, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) ListAcknowledgments(ctx context.Context, proposalID uuid.UUID) ([]models.Acknowledgment, error) {
	return f.acknowledgments[proposalID], nil
}

// Audit

func (f *fakeStore) WriteAuditEvent(ctx context.Context, e *models.AuditEvent) error {
	f.auditEvents = append(f.auditEvents, *e)
	return nil
}

func (f *fakeStore) ListAuditHistory(ctx context.Context, assetID uuid.UUID, fl store.AuditHistoryFilter) ([]models.AuditEvent, error) {
	var out []models.AuditEvent
	for _, e := range f.auditEvents {
		if e.EntityID == assetID || (e.EntityType == "audit_run" && e.Payload["asset_id"] == assetID) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeStore) CreateAuditRun(ctx context.Context, r *models.AuditRun) error {
	f.auditRuns = append(f.auditRuns, *r)
	return nil
}

func (f *fakeStore) ListAuditRuns(ctx context.Context, assetID uuid.UUID, fl store.AuditHistoryFilter) ([]models.AuditRun, error) {
	var out []models.AuditRun
	for _, r := range f.auditRuns {
		if r.AssetID == assetID {
			if fl.TriggeredBy != nil && r.TriggeredBy != *fl.TriggeredBy {
				continue
			}
			if fl.Status != nil && r.Status != *fl.Status {
				continue
			}
			out = append(out, r)
		}
	}
	return out, nil
}

// Webhook deliveries

func (f *fakeStore) CreateWebhookDelivery(ctx context.Context, d *models.WebhookDelivery) error {
	f.webhookDeliveries[d.ID] = d
	return nil
}

func (f *fakeStore) UpdateWebhookDelivery(ctx context.Context, d *models.WebhookDelivery) error {
	f.webhookDeliveries[d.ID] = d
	return nil
}

// API keys

func (f *fakeStore) CreateAPIKey(ctx context.Context, k *models.APIKey) error {
	f.apiKeys[k.ID] = k
	return nil
}

func (f *fakeStore) GetAPIKeyByPrefix(ctx context.Context, prefix string) (*models.APIKey, error) {
	for _, k := range f.apiKeys {
		if k.KeyPrefix == prefix {
			return k, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) RevokeAPIKey(ctx context.Context, id uuid.UUID) error {
	k, ok := f.apiKeys[id]
	if !ok {
		return store.ErrNotFound
	}
	delete(f.apiKeys, k.ID)
	return nil
}
