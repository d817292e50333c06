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

	"github.com/ashita-ai/tessera/pkg/models"
	"github.com/ashita-ai/tessera/pkg/store"
)

func (s *Store) CreateTeam(ctx context.Context, t *models.Team) error {
	const q = `
		INSERT INTO teams (id, name, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, now(), now())
		RETURNING created_at, updated_at`
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	err := s.db.QueryRowxContext(ctx, q, t.ID, t.Name, t.Metadata).Scan(&t.CreatedAt, &t.UpdatedAt)
	return wrapWrite(err)
}

func (s *Store) GetTeam(ctx context.Context, id uuid.UUID) (*models.Team, error) {
	const q = `SELECT * FROM teams WHERE id = $1 AND deleted_at IS NULL`
	var t models.Team
	if err := s.db.GetContext(ctx, &t, q, id); err != nil {
		return nil, wrapRead(err)
	}
	return &t, nil
}

func (s *Store) GetTeamByName(ctx context.Context, name string) (*models.Team, error) {
	const q = `SELECT * FROM teams WHERE name = $1 AND deleted_at IS NULL`
	var t models.Team
	if err := s.db.GetContext(ctx, &t, q, name); err != nil {
		return nil, wrapRead(err)
	}
	return &t, nil
}

func (s *Store) ListTeams(ctx context.Context, f store.ListFilter) ([]models.Team, error) {
	const q = `SELECT * FROM teams WHERE deleted_at IS NULL ORDER BY name LIMIT $1 OFFSET $2`
	var teams []models.Team
	if err := s.db.SelectContext(ctx, &teams, q, limitOf(f), f.Offset); err != nil {
		return nil, err
	}
	return teams, nil
}

func (s *Store) UpdateTeam(ctx context.Context, t *models.Team) error {
	const q = `UPDATE teams SET name = $2, metadata = $3, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL RETURNING updated_at`
	err := s.db.QueryRowxContext(ctx, q, t.ID, t.Name, t.Metadata).Scan(&t.UpdatedAt)
	return wrapWrite(wrapRead(err))
}

func (s *Store) SoftDeleteTeam(ctx context.Context, id uuid.UUID) error {
	return softDelete(ctx, s.db, "teams", id)
}

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	const q = `
		INSERT INTO users (id, email, team_id, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())
		RETURNING created_at, updated_at`
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	err := s.db.QueryRowxContext(ctx, q, u.ID, u.Email, u.TeamID, u.Role).Scan(&u.CreatedAt, &u.UpdatedAt)
	return wrapWrite(err)
}

func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	const q = `SELECT * FROM users WHERE id = $1 AND deactivated_at IS NULL`
	var u models.User
	if err := s.db.GetContext(ctx, &u, q, id); err != nil {
		return nil, wrapRead(err)
	}
	return &u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const q = `SELECT * FROM users WHERE email = $1 AND deactivated_at IS NULL`
	var u models.User
	if err := s.db.GetContext(ctx, &u, q, email); err != nil {
		return nil, wrapRead(err)
	}
	return &u, nil
}

func (s *Store) CreateAsset(ctx context.Context, a *models.Asset) error {
	const q = `
		INSERT INTO assets (id, fqn, environment, owner_team_id, resource_type, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		RETURNING created_at, updated_at`
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	err := s.db.QueryRowxContext(ctx, q, a.ID, a.FQN, a.Environment, a.OwnerTeamID, a.ResourceType, a.Metadata).
		Scan(&a.CreatedAt, &a.UpdatedAt)
	return wrapWrite(err)
}

func (s *Store) GetAsset(ctx context.Context, id uuid.UUID) (*models.Asset, error) {
	const q = `SELECT * FROM assets WHERE id = $1 AND deleted_at IS NULL`
	var a models.Asset
	if err := s.db.GetContext(ctx, &a, q, id); err != nil {
		return nil, wrapRead(err)
	}
	return &a, nil
}

func (s *Store) GetAssetByFQN(ctx context.Context, fqn, environment string) (*models.Asset, error) {
	const q = `SELECT * FROM assets WHERE fqn = $1 AND environment = $2 AND deleted_at IS NULL`
	var a models.Asset
	if err := s.db.GetContext(ctx, &a, q, fqn, environment); err != nil {
		return nil, wrapRead(err)
	}
	return &a, nil
}

func (s *Store) ListAssets(ctx context.Context, f store.AssetFilter) ([]models.Asset, error) {
	var assets []models.Asset
	if f.OwnerTeamID != nil {
		const q = `SELECT * FROM assets WHERE deleted_at IS NULL AND owner_team_id = $1
			ORDER BY fqn LIMIT $2 OFFSET $3`
		err := s.db.SelectContext(ctx, &assets, q, *f.OwnerTeamID, limitOf(f.ListFilter), f.Offset)
		return assets, err
	}
	const q = `SELECT * FROM assets WHERE deleted_at IS NULL ORDER BY fqn LIMIT $1 OFFSET $2`
	err := s.db.SelectContext(ctx, &assets, q, limitOf(f.ListFilter), f.Offset)
	return assets, err
}

// ListAssetsDependingOnFQN implements the secondary lineage-discovery path
// in spec §4.5.5 as a JSONB containment filter, not a full-table scan with
// in-process decoding.
func (s *Store) ListAssetsDependingOnFQN(ctx context.Context, fqn string) ([]models.Asset, error) {
	const q = `
		SELECT * FROM assets
		WHERE deleted_at IS NULL
		  AND metadata -> 'depends_on' @> to_jsonb($1::text)`
	var assets []models.Asset
	if err := s.db.SelectContext(ctx, &assets, q, fqn); err != nil {
		return nil, err
	}
	return assets, nil
}

func (s *Store) UpdateAsset(ctx context.Context, a *models.Asset) error {
	const q = `UPDATE assets SET fqn = $2, environment = $3, resource_type = $4, metadata = $5, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL RETURNING updated_at`
	err := s.db.QueryRowxContext(ctx, q, a.ID, a.FQN, a.Environment, a.ResourceType, a.Metadata).Scan(&a.UpdatedAt)
	return wrapWrite(wrapRead(err))
}

func (s *Store) SoftDeleteAsset(ctx context.Context, id uuid.UUID) error {
	return softDelete(ctx, s.db, "assets", id)
}

func (s *Store) SearchAssets(ctx context.Context, query string, limit int) ([]models.Asset, error) {
	const q = `SELECT * FROM assets WHERE deleted_at IS NULL AND fqn ILIKE $1 ORDER BY fqn LIMIT $2`
	var assets []models.Asset
	if err := s.db.SelectContext(ctx, &assets, q, "%"+query+"%", clampLimit(limit)); err != nil {
		return nil, err
	}
	return assets, nil
}
