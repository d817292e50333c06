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
	"strconv"

	"github.com/google/uuid"

	"github.com/ashita-ai/tessera/pkg/models"
	"github.com/ashita-ai/tessera/pkg/store"
)

func (s *Store) CreateProposal(ctx context.Context, p *models.Proposal) error {
	const q = `
		INSERT INTO proposals (
			id, asset_id, proposed_schema, proposed_guarantees, change_type, breaking_changes,
			affected_teams, affected_assets, objections, status, proposed_by, proposed_by_user_id,
			proposed_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, now(), now(), now())
		RETURNING proposed_at, created_at, updated_at`
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	err := s.db.QueryRowxContext(ctx, q,
		p.ID, p.AssetID, p.ProposedSchema, p.ProposedGuarantees, p.ChangeType, p.BreakingChanges,
		p.AffectedTeams, p.AffectedAssets, p.Objections, p.Status, p.ProposedBy, p.ProposedByUserID,
	).Scan(&p.ProposedAt, &p.CreatedAt, &p.UpdatedAt)
	return wrapWrite(err)
}

// LockProposal locks (SELECT ... FOR UPDATE) the proposal row, required
// before any of acknowledge/object/withdraw/force/publish mutate it
// (spec §4.5).
func (s *Store) LockProposal(ctx context.Context, id uuid.UUID) (*models.Proposal, error) {
	const q = `SELECT * FROM proposals WHERE id = $1 FOR UPDATE`
	var p models.Proposal
	if err := s.db.GetContext(ctx, &p, q, id); err != nil {
		return nil, wrapRead(err)
	}
	return &p, nil
}

func (s *Store) GetProposal(ctx context.Context, id uuid.UUID) (*models.Proposal, error) {
	const q = `SELECT * FROM proposals WHERE id = $1`
	var p models.Proposal
	if err := s.db.GetContext(ctx, &p, q, id); err != nil {
		return nil, wrapRead(err)
	}
	return &p, nil
}

// GetPendingProposal enforces invariant I3 ("at most one pending proposal
// per asset"): a nil, non-error result means none exists.
func (s *Store) GetPendingProposal(ctx context.Context, assetID uuid.UUID) (*models.Proposal, error) {
	const q = `SELECT * FROM proposals WHERE asset_id = $1 AND status = 'pending' FOR UPDATE`
	var p models.Proposal
	err := s.db.GetContext(ctx, &p, q, assetID)
	if err == nil {
		return &p, nil
	}
	if wrapRead(err) == store.ErrNotFound {
		return nil, nil
	}
	return nil, err
}

func (s *Store) ListProposals(ctx context.Context, f store.ProposalFilter) ([]models.Proposal, error) {
	q := `SELECT * FROM proposals WHERE 1=1`
	args := []any{}
	if f.AssetID != nil {
		args = append(args, *f.AssetID)
		q += placeholder("asset_id", len(args))
	}
	if f.Status != nil {
		args = append(args, *f.Status)
		q += placeholder("status", len(args))
	}
	if f.ProposedBy != nil {
		args = append(args, *f.ProposedBy)
		q += placeholder("proposed_by", len(args))
	}
	args = append(args, limitOf(f.ListFilter), f.Offset)
	q += " ORDER BY proposed_at DESC LIMIT " + posArg(len(args)-1) + " OFFSET " + posArg(len(args))
	var proposals []models.Proposal
	if err := s.db.SelectContext(ctx, &proposals, q, args...); err != nil {
		return nil, err
	}
	return proposals, nil
}

func (s *Store) UpdateProposal(ctx context.Context, p *models.Proposal) error {
	const q = `
		UPDATE proposals SET
			affected_teams = $2, affected_assets = $3, objections = $4,
			status = $5, resolved_at = $6, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`
	err := s.db.QueryRowxContext(ctx, q, p.ID, p.AffectedTeams, p.AffectedAssets, p.Objections, p.Status, p.ResolvedAt).
		Scan(&p.UpdatedAt)
	return wrapWrite(wrapRead(err))
}

func (s *Store) CreateAcknowledgment(ctx context.Context, a *models.Acknowledgment) error {
	const q = `
		INSERT INTO acknowledgments (id, proposal_id, consumer_team_id, response, migration_deadline, notes, responded_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		RETURNING responded_at`
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	err := s.db.QueryRowxContext(ctx, q, a.ID, a.ProposalID, a.ConsumerTeamID, a.Response, a.MigrationDeadline, a.Notes).
		Scan(&a.RespondedAt)
	return wrapWrite(err)
}

func (s *Store) GetAcknowledgment(ctx context.Context, proposalID, consumerTeamID uuid.UUID) (*models.Acknowledgment, error) {
	const q = `SELECT * FROM acknowledgments WHERE proposal_id = $1 AND consumer_team_id = $2`
	var a models.Acknowledgment
	if err := s.db.GetContext(ctx, &a, q, proposalID, consumerTeamID); err != nil {
		return nil, wrapRead(err)
	}
	return &a, nil
}

func (s *Store) ListAcknowledgments(ctx context.Context, proposalID uuid.UUID) ([]models.Acknowledgment, error) {
	const q = `SELECT * FROM acknowledgments WHERE proposal_id = $1 ORDER BY responded_at`
	var acks []models.Acknowledgment
	if err := s.db.SelectContext(ctx, &acks, q, proposalID); err != nil {
		return nil, err
	}
	return acks, nil
}

func placeholder(col string, n int) string {
	return " AND " + col + " = " + posArg(n)
}

func posArg(n int) string {
	return "$" + strconv.Itoa(n)
}
