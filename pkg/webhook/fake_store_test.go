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

package webhook_test

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/ashita-ai/tessera/pkg/models"
	"github.com/ashita-ai/tessera/pkg/store"
)

// fakeStore is a minimal in-memory store.Store exercising only the
// webhook delivery lookups the pipeline issues.
type fakeStore struct {
	mu         sync.Mutex
	deliveries map[uuid.UUID]*models.WebhookDelivery
}

var _ store.Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{deliveries: map[uuid.UUID]*models.WebhookDelivery{}}
}

func (f *fakeStore) snapshot(id uuid.UUID) models.WebhookDelivery {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.deliveries[id]
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

func (f *fakeStore) CreateWebhookDelivery(_ context.Context, d *models.WebhookDelivery) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *d
	f.deliveries[d.ID] = &cp
	return nil
}
func (f *fakeStore) UpdateWebhookDelivery(_ context.Context, d *models.WebhookDelivery) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.deliveries[d.ID]
	if !ok {
		return store.ErrNotFound
	}
	existing.Status = d.Status
	existing.Attempts = d.Attempts
	existing.LastAttemptAt = d.LastAttemptAt
	existing.LastError = d.LastError
	existing.LastStatusCode = d.LastStatusCode
	existing.DeliveredAt = d.DeliveredAt
	return nil
}

func (f *fakeStore) CreateAPIKey(context.Context, *models.APIKey) error { return nil }
func (f *fakeStore) GetAPIKeyByPrefix(context.Context, string) (*models.APIKey, error) {
	return nil, store.ErrNotFound
}
func (f *fakeStore) RevokeAPIKey(context.Context, uuid.UUID) error { return nil }
