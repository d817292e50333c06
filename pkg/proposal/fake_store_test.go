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

package proposal_test

import (
	"context"

	"github.com/google/uuid"

	"github.com/ashita-ai/tessera/pkg/models"
	"github.com/ashita-ai/tessera/pkg/store"
)

// fakeStore is a minimal in-memory store.Store exercising only the
// lookups the proposal workflow issues.
type fakeStore struct {
	assets         map[uuid.UUID]*models.Asset
	contracts      map[uuid.UUID][]models.Contract // keyed by asset id
	proposals      map[uuid.UUID]*models.Proposal
	acknowledgments map[uuid.UUID][]models.Acknowledgment // keyed by proposal id
	liveConsumers  map[uuid.UUID][]uuid.UUID              // keyed by contract id
	auditLog       []models.AuditEvent
}

var _ store.Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{
		assets:          map[uuid.UUID]*models.Asset{},
		contracts:       map[uuid.UUID][]models.Contract{},
		proposals:       map[uuid.UUID]*models.Proposal{},
		acknowledgments: map[uuid.UUID][]models.Acknowledgment{},
		liveConsumers:   map[uuid.UUID][]uuid.UUID{},
	}
}

func (f *fakeStore) addActiveContract(c models.Contract) {
	f.contracts[c.AssetID] = append(f.contracts[c.AssetID], c)
}

func (f *fakeStore) addLiveConsumer(contractID, teamID uuid.UUID) {
	f.liveConsumers[contractID] = append(f.liveConsumers[contractID], teamID)
}

func (f *fakeStore) WithTx(ctx context.Context, fn store.TxFunc) error        { return fn(ctx, f) }
func (f *fakeStore) WithSavepoint(ctx context.Context, fn store.TxFunc) error { return fn(ctx, f) }

func (f *fakeStore) CreateTeam(context.Context, *models.Team) error { return nil }
func (f *fakeStore) GetTeam(context.Context, uuid.UUID) (*models.Team, error) {
	return nil, store.ErrNotFound
}
func (f *fakeStore) GetTeamByName(context.Context, string) (*models.Team, error) {
	return nil, store.ErrNotFound
}
func (f *fakeStore) ListTeams(context.Context, store.ListFilter) ([]models.Team, error) {
	return nil, nil
}
func (f *fakeStore) UpdateTeam(context.Context, *models.Team) error  { return nil }
func (f *fakeStore) SoftDeleteTeam(context.Context, uuid.UUID) error { return nil }

func (f *fakeStore) CreateUser(context.Context, *models.User) error { return nil }
func (f *fakeStore) GetUser(context.Context, uuid.UUID) (*models.User, error) {
	return nil, store.ErrNotFound
}
func (f *fakeStore) GetUserByEmail(context.Context, string) (*models.User, error) {
	return nil, store.ErrNotFound
}

func (f *fakeStore) CreateAsset(_ context.Context, a *models.Asset) error {
	f.assets[a.ID] = a
	return nil
}
func (f *fakeStore) GetAsset(_ context.Context, id uuid.UUID) (*models.Asset, error) {
	a, ok := f.assets[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return a, nil
}
func (f *fakeStore) GetAssetByFQN(context.Context, string, string) (*models.Asset, error) {
	return nil, store.ErrNotFound
}
func (f *fakeStore) ListAssets(context.Context, store.AssetFilter) ([]models.Asset, error) {
	return nil, nil
}
func (f *fakeStore) ListAssetsDependingOnFQN(context.Context, string) ([]models.Asset, error) {
	return nil, nil
}
func (f *fakeStore) UpdateAsset(context.Context, *models.Asset) error  { return nil }
func (f *fakeStore) SoftDeleteAsset(context.Context, uuid.UUID) error { return nil }
func (f *fakeStore) SearchAssets(context.Context, string, int) ([]models.Asset, error) {
	return nil, nil
}

func (f *fakeStore) LockActiveContract(_ context.Context, assetID uuid.UUID) (*models.Contract, error) {
	for i, c := range f.contracts[assetID] {
		if c.Status == models.ContractActive {
			return &f.contracts[assetID][i], nil
		}
	}
	return nil, store.ErrNotFound
}
func (f *fakeStore) GetContract(context.Context, uuid.UUID) (*models.Contract, error) {
	return nil, store.ErrNotFound
}
func (f *fakeStore) GetContractByVersion(context.Context, uuid.UUID, string) (*models.Contract, error) {
	return nil, store.ErrNotFound
}
func (f *fakeStore) ListContracts(_ context.Context, assetID uuid.UUID) ([]models.Contract, error) {
	return f.contracts[assetID], nil
}
func (f *fakeStore) InsertContract(_ context.Context, c *models.Contract) error {
	f.contracts[c.AssetID] = append(f.contracts[c.AssetID], *c)
	return nil
}
func (f *fakeStore) DeprecateContract(_ context.Context, id uuid.UUID) error {
	for assetID, cs := range f.contracts {
		for i := range cs {
			if cs[i].ID == id {
				f.contracts[assetID][i].Status = models.ContractDeprecated
				return nil
			}
		}
	}
	return store.ErrNotFound
}

func (f *fakeStore) CreateRegistration(context.Context, *models.Registration) error { return nil }
func (f *fakeStore) GetRegistration(context.Context, uuid.UUID) (*models.Registration, error) {
	return nil, store.ErrNotFound
}
func (f *fakeStore) ListRegistrations(context.Context, store.RegistrationFilter) ([]models.Registration, error) {
	return nil, nil
}
func (f *fakeStore) ListLiveConsumerTeams(_ context.Context, contractID uuid.UUID) ([]uuid.UUID, error) {
	return f.liveConsumers[contractID], nil
}
func (f *fakeStore) UpdateRegistration(context.Context, *models.Registration) error { return nil }
func (f *fakeStore) SoftDeleteRegistration(context.Context, uuid.UUID) error        { return nil }

func (f *fakeStore) CreateDependency(context.Context, *models.Dependency) error { return nil }
func (f *fakeStore) ListDependents(context.Context, []uuid.UUID) ([]models.Dependency, error) {
	return nil, nil
}
func (f *fakeStore) ListLineage(context.Context, uuid.UUID) ([]models.Dependency, error) {
	return nil, nil
}

func (f *fakeStore) CreateProposal(_ context.Context, p *models.Proposal) error {
	f.proposals[p.ID] = p
	return nil
}
func (f *fakeStore) LockProposal(_ context.Context, id uuid.UUID) (*models.Proposal, error) {
	p, ok := f.proposals[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return p, nil
}
func (f *fakeStore) GetProposal(_ context.Context, id uuid.UUID) (*models.Proposal, error) {
	p, ok := f.proposals[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return p, nil
}
func (f *fakeStore) GetPendingProposal(context.Context, uuid.UUID) (*models.Proposal, error) {
	return nil, nil
}
func (f *fakeStore) ListProposals(context.Context, store.ProposalFilter) ([]models.Proposal, error) {
	return nil, nil
}
func (f *fakeStore) UpdateProposal(_ context.Context, p *models.Proposal) error {
	f.proposals[p.ID] = p
	return nil
}

func (f *fakeStore) CreateAcknowledgment(_ context.Context, a *models.Acknowledgment) error {
	f.acknowledgments[a.ProposalID] = append(f.acknowledgments[a.ProposalID], *a)
	return nil
}
func (f *fakeStore) GetAcknowledgment(_ context.Context, proposalID, consumerTeamID uuid.UUID) (*models.Acknowledgment, error) {
	for _, a := range f.acknowledgments[proposalID] {
		if a.ConsumerTeamID == consumerTeamID {
			return &a, nil
		}
	}
	return nil, store.ErrNotFound
}
func (f *fakeStore) ListAcknowledgments(_ context.Context, proposalID uuid.UUID) ([]models.Acknowledgment, error) {
	return f.acknowledgments[proposalID], nil
}

func (f *fakeStore) WriteAuditEvent(_ context.Context, e *models.AuditEvent) error {
	f.auditLog = append(f.auditLog, *e)
	return nil
}
func (f *fakeStore) ListAuditHistory(context.Context, uuid.UUID, store.AuditHistoryFilter) ([]models.AuditEvent, error) {
	return nil, nil
}

func (f *fakeStore) CreateAuditRun(context.Context, *models.AuditRun) error { return nil }
func (f *fakeStore) ListAuditRuns(context.Context, uuid.UUID, store.AuditHistoryFilter) ([]models.AuditRun, error) {
	return nil, nil
}

func (f *fakeStore) CreateWebhookDelivery(context.Context, *models.WebhookDelivery) error { return nil }
func (f *fakeStore) UpdateWebhookDelivery(context.Context, *models.WebhookDelivery) error { return nil }

func (f *fakeStore) CreateAPIKey(context.Context, *models.APIKey) error { return nil }
func (f *fakeStore) GetAPIKeyByPrefix(context.Context, string) (*models.APIKey, error) {
	return nil, store.ErrNotFound
}
func (f *fakeStore) RevokeAPIKey(context.Context, uuid.UUID) error { return nil }
