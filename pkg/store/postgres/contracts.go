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

package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ashita-ai/tessera/pkg/models"
	"github.com/ashita-ai/tessera/pkg/store"
)

// LockActiveContract implements the row-level lock spec §4.4.2 step 3
// requires to serialize concurrent publishes to the same asset. Must run
// inside WithTx; calling it outside a transaction still executes but the
// lock is released the instant the implicit single-statement transaction
// ends, so callers outside WithTx get no serialization guarantee.
func (s *Store) LockActiveContract(ctx context.Context, assetID uuid.UUID) (*models.Contract, error) {
	const q = `
		SELECT * FROM contracts
		WHERE asset_id = $1 AND status = 'active'
		FOR UPDATE`
	var c models.Contract
	if err := s.db.GetContext(ctx, &c, q, assetID); err != nil {
		return nil, wrapRead(err)
	}
	return &c, nil
}

func (s *Store) GetContract(ctx context.Context, id uuid.UUID) (*models.Contract, error) {
	const q = `SELECT * FROM contracts WHERE id = $1`
	var c models.Contract
	if err := s.db.GetContext(ctx, &c, q, id); err != nil {
		return nil, wrapRead(err)
	}
	return &c, nil
}

func (s *Store) GetContractByVersion(ctx context.Context, assetID uuid.UUID, version string) (*models.Contract, error) {
	const q = `SELECT * FROM contracts WHERE asset_id = $1 AND version = $2`
	var c models.Contract
	if err := s.db.GetContext(ctx, &c, q, assetID, version); err != nil {
		return nil, wrapRead(err)
	}
	return &c, nil
}

func (s *Store) ListContracts(ctx context.Context, assetID uuid.UUID) ([]models.Contract, error) {
	const q = `SELECT * FROM contracts WHERE asset_id = $1 ORDER BY created_at DESC`
	var contracts []models.Contract
	if err := s.db.SelectContext(ctx, &contracts, q, assetID); err != nil {
		return nil, err
	}
	return contracts, nil
}

// InsertContract enforces the hard (asset_id, version) unique constraint
// (invariant I1) at the storage layer; a conflicting insert returns
// store.ErrConflict.
func (s *Store) InsertContract(ctx context.Context, c *models.Contract) error {
	const q = `
		INSERT INTO contracts (
			id, asset_id, version, schema_def, schema_format, compatibility_mode,
			guarantees, status, published_by, published_by_user_id, published_at,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now(), now(), now())
		RETURNING published_at, created_at, updated_at`
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	err := s.db.QueryRowxContext(ctx, q,
		c.ID, c.AssetID, c.Version, c.SchemaDef, c.SchemaFormat, c.CompatibilityMode,
		c.Guarantees, c.Status, c.PublishedBy, c.PublishedByUserID,
	).Scan(&c.PublishedAt, &c.CreatedAt, &c.UpdatedAt)
	return wrapWrite(err)
}

func (s *Store) DeprecateContract(ctx context.Context, id uuid.UUID) error {
	const q = `UPDATE contracts SET status = 'deprecated', updated_at = now() WHERE id = $1 AND status = 'active'`
	res, err := s.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) CreateRegistration(ctx context.Context, r *models.Registration) error {
	const q = `
		INSERT INTO registrations (id, contract_id, consumer_team_id, pinned_version, status, registered_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now(), now())
		RETURNING registered_at, created_at, updated_at`
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	err := s.db.QueryRowxContext(ctx, q, r.ID, r.ContractID, r.ConsumerTeamID, r.PinnedVersion, r.Status).
		Scan(&r.RegisteredAt, &r.CreatedAt, &r.UpdatedAt)
	return wrapWrite(err)
}

func (s *Store) GetRegistration(ctx context.Context, id uuid.UUID) (*models.Registration, error) {
	const q = `SELECT * FROM registrations WHERE id = $1 AND deleted_at IS NULL`
	var r models.Registration
	if err := s.db.GetContext(ctx, &r, q, id); err != nil {
		return nil, wrapRead(err)
	}
	return &r, nil
}

func (s *Store) ListRegistrations(ctx context.Context, f store.RegistrationFilter) ([]models.Registration, error) {
	var regs []models.Registration
	if f.ContractID != nil {
		const q = `SELECT * FROM registrations WHERE deleted_at IS NULL AND contract_id = $1
			ORDER BY registered_at LIMIT $2 OFFSET $3`
		err := s.db.SelectContext(ctx, &regs, q, *f.ContractID, limitOf(f.ListFilter), f.Offset)
		return regs, err
	}
	const q = `SELECT * FROM registrations WHERE deleted_at IS NULL ORDER BY registered_at LIMIT $1 OFFSET $2`
	err := s.db.SelectContext(ctx, &regs, q, limitOf(f.ListFilter), f.Offset)
	return regs, err
}

// ListLiveConsumerTeams backs the proposal completion check (spec §4.5.2):
// the set of consumer teams that must each carry a non-blocked
// acknowledgment before a proposal can auto-approve.
func (s *Store) ListLiveConsumerTeams(ctx context.Context, contractID uuid.UUID) ([]uuid.UUID, error) {
	const q = `SELECT DISTINCT consumer_team_id FROM registrations WHERE contract_id = $1 AND deleted_at IS NULL`
	var ids []uuid.UUID
	if err := s.db.SelectContext(ctx, &ids, q, contractID); err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *Store) UpdateRegistration(ctx context.Context, r *models.Registration) error {
	const q = `UPDATE registrations SET pinned_version = $2, status = $3, acknowledged_at = $4, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL RETURNING updated_at`
	err := s.db.QueryRowxContext(ctx, q, r.ID, r.PinnedVersion, r.Status, r.AcknowledgedAt).Scan(&r.UpdatedAt)
	return wrapWrite(wrapRead(err))
}

func (s *Store) SoftDeleteRegistration(ctx context.Context, id uuid.UUID) error {
	return softDelete(ctx, s.db, "registrations", id)
}

func (s *Store) CreateDependency(ctx context.Context, d *models.Dependency) error {
	const q = `
		INSERT INTO dependencies (id, dependent_asset_id, dependency_asset_id, dependency_type, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())
		RETURNING created_at, updated_at`
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	err := s.db.QueryRowxContext(ctx, q, d.ID, d.DependentAssetID, d.DependencyAssetID, d.DependencyType).
		Scan(&d.CreatedAt, &d.UpdatedAt)
	return wrapWrite(err)
}

// ListDependents batch-resolves one BFS level of the impact engine (C6):
// every live dependency edge whose upstream side (dependency_asset_id) is
// in assetIDs, i.e. "what depends on any of these assets".
func (s *Store) ListDependents(ctx context.Context, assetIDs []uuid.UUID) ([]models.Dependency, error) {
	if len(assetIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`
		SELECT d.* FROM dependencies d
		JOIN assets dependent ON dependent.id = d.dependent_asset_id
		WHERE d.dependency_asset_id IN (?) AND d.deleted_at IS NULL AND dependent.deleted_at IS NULL`,
		assetIDs)
	if err != nil {
		return nil, err
	}
	var deps []models.Dependency
	if err := s.db.SelectContext(ctx, &deps, s.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	return deps, nil
}

func (s *Store) ListLineage(ctx context.Context, assetID uuid.UUID) ([]models.Dependency, error) {
	const q = `SELECT * FROM dependencies WHERE (dependent_asset_id = $1 OR dependency_asset_id = $1) AND deleted_at IS NULL`
	var deps []models.Dependency
	if err := s.db.SelectContext(ctx, &deps, q, assetID); err != nil {
		return nil, err
	}
	return deps, nil
}
