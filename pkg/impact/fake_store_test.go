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

package impact_test

import (
	"context"

	"github.com/google/uuid"

	"github.com/ashita-ai/tessera/pkg/models"
	"github.com/ashita-ai/tessera/pkg/store"
)

// fakeStore is a minimal in-memory store.Store exercising only the
// lookups the impact engine issues: ListDependents, GetAsset,
// ListAssetsDependingOnFQN, ListContracts, ListLiveConsumerTeams,
// GetTeam. Everything else is an unreachable stub.
type fakeStore struct {
	assets        map[uuid.UUID]*models.Asset
	teams         map[uuid.UUID]*models.Team
	dependencies  []models.Dependency
	contracts     map[uuid.UUID][]models.Contract // keyed by asset id
	liveConsumers map[uuid.UUID][]uuid.UUID        // keyed by contract id
}

var _ store.Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{
		assets:        map[uuid.UUID]*models.Asset{},
		teams:         map[uuid.UUID]*models.Team{},
		contracts:     map[uuid.UUID][]models.Contract{},
		liveConsumers: map[uuid.UUID][]uuid.UUID{},
	}
}

func (f *fakeStore) addDependency(dependent, dependency uuid.UUID, kind models.DependencyType) {
	f.dependencies = append(f.dependencies, models.Dependency{
		ID: uuid.New(), DependentAssetID: dependent, DependencyAssetID: dependency, DependencyType: kind,
	})
}

func (f *fakeStore) addContract(c *models.Contract) {
	f.contracts[c.AssetID] = append(f.contracts[c.AssetID], *c)
}

func (f *fakeStore) addLiveConsumer(contractID, teamID uuid.UUID) {
	f.liveConsumers[contractID] = append(f.liveConsumers[contractID], teamID)
}

func (f *fakeStore) WithTx(ctx context.Context, fn store.TxFunc) error        { return fn(ctx, f) }
func (f *fakeStore) WithSavepoint(ctx context.Context, fn store.TxFunc) error { return fn(ctx, f) }

func (f *fakeStore) CreateTeam(context.Context, *models.Team) error { return nil }
func (f *fakeStore) GetTeam(_ context.Context, id uuid.UUID) (*models.Team, error) {
	t, ok := f.teams[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return t, nil
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
func (f *fakeStore) ListAssetsDependingOnFQN(_ context.Context, fqn string) ([]models.Asset, error) {
	var out []models.Asset
	for _, a := range f.assets {
		for _, dep := range a.DependsOn() {
			if dep == fqn {
				out = append(out, *a)
			}
		}
	}
	return out, nil
}
func (f *fakeStore) UpdateAsset(context.Context, *models.Asset) error  { return nil }
func (f *fakeStore) SoftDeleteAsset(context.Context, uuid.UUID) error { return nil }
func (f *fakeStore) SearchAssets(context.Context, string, int) ([]models.Asset, error) {
	return nil, nil
}

func (f *fakeStore) LockActiveContract(context.Context, uuid.UUID) (*models.Contract, error) {
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
func (f *fakeStore) InsertContract(context.Context, *models.Contract) error { return nil }
func (f *fakeStore) DeprecateContract(context.Context, uuid.UUID) error    { return nil }

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
func (f *fakeStore) ListDependents(_ context.Context, assetIDs []uuid.UUID) ([]models.Dependency, error) {
	want := map[uuid.UUID]bool{}
	for _, id := range assetIDs {
		want[id] = true
	}
	var out []models.Dependency
	for _, d := range f.dependencies {
		if want[d.DependencyAssetID] {
			out = append(out, d)
		}
	}
	return out, nil
}
func (f *fakeStore) ListLineage(context.Context, uuid.UUID) ([]models.Dependency, error) {
	return nil, nil
}

func (f *fakeStore) CreateProposal(context.Context, *models.Proposal) error { return nil }
func (f *fakeStore) LockProposal(context.Context, uuid.UUID) (*models.Proposal, error) {
	return nil, store.ErrNotFound
}
func (f *fakeStore) GetProposal(context.Context, uuid.UUID) (*models.Proposal, error) {
	return nil, store.ErrNotFound
}
func (f *fakeStore) GetPendingProposal(context.Context, uuid.UUID) (*models.Proposal, error) {
	return nil, nil
}
func (f *fakeStore) ListProposals(context.Context, store.ProposalFilter) ([]models.Proposal, error) {
	return nil, nil
}
func (f *fakeStore) UpdateProposal(context.Context, *models.Proposal) error { return nil }

func (f *fakeStore) CreateAcknowledgment(context.Context, *models.Acknowledgment) error { return nil }
func (f *fakeStore) GetAcknowledgment(context.Context, uuid.UUID, uuid.UUID) (*models.Acknowledgment, error) {
	return nil, store.ErrNotFound
}
func (f *fakeStore) ListAcknowledgments(context.Context, uuid.UUID) ([]models.Acknowledgment, error) {
	return nil, nil
}

func (f *fakeStore) WriteAuditEvent(context.Context, *models.AuditEvent) error { return nil }
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
