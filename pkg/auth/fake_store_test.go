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

package auth_test

import (
	"context"

	"github.com/google/uuid"

	"github.com/ashita-ai/tessera/pkg/models"
	"github.com/ashita-ai/tessera/pkg/store"
)

type fakeStore struct {
	teams   map[uuid.UUID]*models.Team
	users   map[uuid.UUID]*models.User
	apiKeys map[string]*models.APIKey // keyed by prefix
}

var _ store.Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{
		teams:   map[uuid.UUID]*models.Team{},
		users:   map[uuid.UUID]*models.User{},
		apiKeys: map[string]*models.APIKey{},
	}
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
func (f *fakeStore) GetUser(_ context.Context, id uuid.UUID) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return u, nil
}
func (f *fakeStore) GetUserByEmail(context.Context, string) (*models.User, error) {
	return nil, store.ErrNotFound
}

func (f *fakeStore) CreateAsset(context.Context, *models.Asset) error { return nil }
func (f *fakeStore) GetAsset(context.Context, uuid.UUID) (*models.Asset, error) {
	return nil, store.ErrNotFound
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

func (f *fakeStore) LockActiveContract(context.Context, uuid.UUID) (*models.Contract, error) {
	return nil, store.ErrNotFound
}
func (f *fakeStore) GetContract(context.Context, uuid.UUID) (*models.Contract, error) {
	return nil, store.ErrNotFound
}
func (f *fakeStore) GetContractByVersion(context.Context, uuid.UUID, string) (*models.Contract, error) {
	return nil, store.ErrNotFound
}
func (f *fakeStore) ListContracts(context.Context, uuid.UUID) ([]models.Contract, error) {
	return nil, nil
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
func (f *fakeStore) ListLiveConsumerTeams(context.Context, uuid.UUID) ([]uuid.UUID, error) {
	return nil, nil
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
func (f *fakeStore) GetAPIKeyByPrefix(_ context.Context, prefix string) (*models.APIKey, error) {
	k, ok := f.apiKeys[prefix]
	if !ok {
		return nil, store.ErrNotFound
	}
	return k, nil
}
func (f *fakeStore) RevokeAPIKey(context.Context, uuid.UUID) error { return nil }
