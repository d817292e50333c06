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

package sync_test

import (
	"context"

	"github.com/google/uuid"

	"github.com/ashita-ai/tessera/pkg/models"
	"github.com/ashita-ai/tessera/pkg/store"
)

// fakeStore is a minimal in-memory store.Store exercising only the asset
// and contract lookups the sync package calls. Everything else returns
// store.ErrNotFound or a zero value.
type fakeStore struct {
	assets    map[uuid.UUID]*models.Asset
	contracts map[uuid.UUID][]models.Contract // keyed by asset id
	teams     map[uuid.UUID]*models.Team
}

var _ store.Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{
		assets:    make(map[uuid.UUID]*models.Asset),
		contracts: make(map[uuid.UUID][]models.Contract),
		teams:     make(map[uuid.UUID]*models.Team),
	}
}

func (f *fakeStore) WithTx(ctx context.Context, fn store.TxFunc) error        { return fn(ctx, f) }
func (f *fakeStore) WithSavepoint(ctx context.Context, fn store.TxFunc) error { return fn(ctx, f) }

func (f *fakeStore) CreateTeam(ctx context.Context, t *models.Team) error {
	f.teams[t.ID] = t
	return nil
}
func (f *fakeStore) GetTeam(ctx context.Context, id uuid.UUID) (*models.Team, error) {
	if t, ok := f.teams[id]; ok {
		return t, nil
	}
	return nil, store.ErrNotFound
}
func (f *fakeStore) GetTeamByName(ctx context.Context, name string) (*models.Team, error) {
	for _, t := range f.teams {
		if t.Name == name {
			return t, nil
		}
	}
	return nil, store.ErrNotFound
}
func (f *fakeStore) ListTeams(ctx context.Context, fl store.ListFilter) ([]models.Team, error) {
	return nil, nil
}
func (f *fakeStore) UpdateTeam(ctx context.Context, t *models.Team) error { return nil }
func (f *fakeStore) SoftDeleteTeam(ctx context.Context, id uuid.UUID) error { return nil }

func (f *fakeStore) CreateUser(ctx context.Context, u *models.User) error { return nil }
func (f *fakeStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return nil, store.ErrNotFound
}
func (f *fakeStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return nil, store.ErrNotFound
}

func (f *fakeStore) CreateAsset(ctx context.Context, a *models.Asset) error {
	f.assets[a.ID] = a
	return nil
}
func (f *fakeStore) GetAsset(ctx context.Context, id uuid.UUID) (*models.Asset, error) {
	if a, ok := f.assets[id]; ok {
		return a, nil
	}
	return nil, store.ErrNotFound
}
func (f *fakeStore) GetAssetByFQN(ctx context.Context, fqn, environment string) (*models.Asset, error) {
	for _, a := range f.assets {
		if a.FQN == fqn {
			return a, nil
		}
	}
	return nil, store.ErrNotFound
}
func (f *fakeStore) ListAssets(ctx context.Context, fl store.AssetFilter) ([]models.Asset, error) {
	return nil, nil
}
func (f *fakeStore) ListAssetsDependingOnFQN(ctx context.Context, fqn string) ([]models.Asset, error) {
	return nil, nil
}
func (f *fakeStore) UpdateAsset(ctx context.Context, a *models.Asset) error {
	f.assets[a.ID] = a
	return nil
}
func (f *fakeStore) SoftDeleteAsset(ctx context.Context, id uuid.UUID) error { return nil }
func (f *fakeStore) SearchAssets(ctx context.Context, query string, limit int) ([]models.Asset, error) {
	return nil, nil
}

func (f *fakeStore) LockActiveContract(ctx context.Context, assetID uuid.UUID) (*models.Contract, error) {
	for _, c := range f.contracts[assetID] {
		if c.Status == models.ContractActive {
			c := c
			return &c, nil
		}
	}
	return nil, store.ErrNotFound
}
func (f *fakeStore) GetContract(ctx context.Context, id uuid.UUID) (*models.Contract, error) {
	return nil, store.ErrNotFound
}
func (f *fakeStore) GetContractByVersion(ctx context.Context, assetID uuid.UUID, version string) (*models.Contract, error) {
	return nil, store.ErrNotFound
}
func (f *fakeStore) ListContracts(ctx context.Context, assetID uuid.UUID) ([]models.Contract, error) {
	return f.contracts[assetID], nil
}
func (f *fakeStore) InsertContract(ctx context.Context, c *models.Contract) error {
	f.contracts[c.AssetID] = append(f.contracts[c.AssetID], *c)
	return nil
}
func (f *fakeStore) DeprecateContract(ctx context.Context, id uuid.UUID) error { return nil }

func (f *fakeStore) CreateRegistration(ctx context.Context, r *models.Registration) error { return nil }
func (f *fakeStore) GetRegistration(ctx context.Context, id uuid.UUID) (*models.Registration, error) {
	return nil, store.ErrNotFound
}
func (f *fakeStore) ListRegistrations(ctx context.Context, fl store.RegistrationFilter) ([]models.Registration, error) {
	return nil, nil
}
func (f *fakeStore) ListLiveConsumerTeams(ctx context.Context, contractID uuid.UUID) ([]uuid.UUID, error) {
	return nil, nil
}
func (f *fakeStore) UpdateRegistration(ctx context.Context, r *models.Registration) error { return nil }
func (f *fakeStore) SoftDeleteRegistration(ctx context.Context, id uuid.UUID) error       { return nil }

func (f *fakeStore) CreateDependency(ctx context.Context, d *models.Dependency) error { return nil }
func (f *fakeStore) ListDependents(ctx context.Context, assetIDs []uuid.UUID) ([]models.Dependency, error) {
	return nil, nil
}
func (f *fakeStore) ListLineage(ctx context.Context, assetID uuid.UUID) ([]models.Dependency, error) {
	return nil, nil
}

func (f *fakeStore) CreateProposal(ctx context.Context, p *models.Proposal) error { return nil }
func (f *fakeStore) LockProposal(ctx context.Context, id uuid.UUID) (*models.Proposal, error) {
	return nil, store.ErrNotFound
}
func (f *fakeStore) GetProposal(ctx context.Context, id uuid.UUID) (*models.Proposal, error) {
	return nil, store.ErrNotFound
}
func (f *fakeStore) GetPendingProposal(ctx context.Context, assetID uuid.UUID) (*models.Proposal, error) {
	return nil, nil
}
func (f *fakeStore) ListProposals(ctx context.Context, fl store.ProposalFilter) ([]models.Proposal, error) {
	return nil, nil
}
func (f *fakeStore) UpdateProposal(ctx context.Context, p *models.Proposal) error { return nil }

func (f *fakeStore) CreateAcknowledgment(ctx context.Context, a *models.Acknowledgment) error {
	return nil
}
func (f *fakeStore) GetAcknowledgment(ctx context.Context, proposalID, consumerTeamID uuid.UUID) (*models.Acknowledgment, error) {
	return nil, store.ErrNotFound
}
func (f *fakeStore) ListAcknowledgments(ctx context.Context, proposalID uuid.UUID) ([]models.Acknowledgment, error) {
	return nil, nil
}

func (f *fakeStore) WriteAuditEvent(ctx context.Context, e *models.AuditEvent) error { return nil }
func (f *fakeStore) ListAuditHistory(ctx context.Context, assetID uuid.UUID, fl store.AuditHistoryFilter) ([]models.AuditEvent, error) {
	return nil, nil
}

func (f *fakeStore) CreateAuditRun(ctx context.Context, r *models.AuditRun) error { return nil }
func (f *fakeStore) ListAuditRuns(ctx context.Context, assetID uuid.UUID, fl store.AuditHistoryFilter) ([]models.AuditRun, error) {
	return nil, nil
}

func (f *fakeStore) CreateWebhookDelivery(ctx context.Context, d *models.WebhookDelivery) error {
	return nil
}
func (f *fakeStore) UpdateWebhookDelivery(ctx context.Context, d *models.WebhookDelivery) error {
	return nil
}

func (f *fakeStore) CreateAPIKey(ctx context.Context, k *models.APIKey) error { return nil }
func (f *fakeStore) GetAPIKeyByPrefix(ctx context.Context, prefix string) (*models.APIKey, error) {
	return nil, store.ErrNotFound
}
func (f *fakeStore) RevokeAPIKey(ctx context.Context, id uuid.UUID) error { return nil }
