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

// WriteAuditEvent must be called with a Store obtained from WithTx (or
// WithSavepoint) so it lands in the same transactional scope as the
// mutation it records, per invariant I6.
func (s *Store) WriteAuditEvent(ctx context.Context, e *models.AuditEvent) error {
	const q = `
		INSERT INTO audit_events (id, entity_type, entity_id, action, actor_id, payload, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		RETURNING occurred_at`
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	err := s.db.QueryRowxContext(ctx, q, e.ID, e.EntityType, e.EntityID, e.Action, e.ActorID, e.Payload).
		Scan(&e.OccurredAt)
	return wrapWrite(err)
}

func (s *Store) ListAuditHistory(ctx context.Context, assetID uuid.UUID, f store.AuditHistoryFilter) ([]models.AuditEvent, error) {
	const q = `
		SELECT * FROM audit_events
		WHERE (entity_type = 'asset' AND entity_id = $1)
		   OR (entity_type = 'audit_run' AND payload->>'asset_id' = $1::uuid::text)
		ORDER BY occurred_at DESC LIMIT $2 OFFSET $3`
	var events []models.AuditEvent
	if err := s.db.SelectContext(ctx, &events, q, assetID, limitOf(f.ListFilter), f.Offset); err != nil {
		return nil, err
	}
	return events, nil
}

func (s *Store) CreateAuditRun(ctx context.Context, r *models.AuditRun) error {
	const q = `
		INSERT INTO audit_runs (id, asset_id, contract_id, status, counts, triggered_by, run_id, details, run_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		RETURNING run_at`
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	err := s.db.QueryRowxContext(ctx, q, r.ID, r.AssetID, r.ContractID, r.Status, r.Counts, r.TriggeredBy, r.RunID, r.Details).
		Scan(&r.RunAt)
	return wrapWrite(err)
}

func (s *Store) ListAuditRuns(ctx context.Context, assetID uuid.UUID, f store.AuditHistoryFilter) ([]models.AuditRun, error) {
	q := `SELECT * FROM audit_runs WHERE asset_id = $1`
	args := []any{assetID}
	if f.TriggeredBy != nil {
		args = append(args, *f.TriggeredBy)
		q += placeholder("triggered_by", len(args))
	}
	if f.Status != nil {
		args = append(args, *f.Status)
		q += placeholder("status", len(args))
	}
	args = append(args, limitOf(f.ListFilter), f.Offset)
	q += " ORDER BY run_at DESC LIMIT " + posArg(len(args)-1) + " OFFSET " + posArg(len(args))
	var runs []models.AuditRun
	if err := s.db.SelectContext(ctx, &runs, q, args...); err != nil {
		return nil, err
	}
	return runs, nil
}

func (s *Store) CreateWebhookDelivery(ctx context.Context, d *models.WebhookDelivery) error {
	const q = `
		INSERT INTO webhook_deliveries (id, event_type, payload, url, status, attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		RETURNING created_at`
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	err := s.db.QueryRowxContext(ctx, q, d.ID, d.EventType, d.Payload, d.URL, d.Status, d.Attempts).
		Scan(&d.CreatedAt)
	return wrapWrite(err)
}

func (s *Store) UpdateWebhookDelivery(ctx context.Context, d *models.WebhookDelivery) error {
	const q = `
		UPDATE webhook_deliveries SET
			status = $2, attempts = $3, last_attempt_at = $4, last_error = $5,
			last_status_code = $6, delivered_at = $7
		WHERE id = $1`
	_, err := s.db.ExecContext(ctx, q, d.ID, d.Status, d.Attempts, d.LastAttemptAt, d.LastError, d.LastStatusCode, d.DeliveredAt)
	return wrapWrite(err)
}

func (s *Store) CreateAPIKey(ctx context.Context, k *models.APIKey) error {
	const q = `
		INSERT INTO api_keys (id, key_hash, key_prefix, name, team_id, scopes, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), $7)
		RETURNING created_at`
	if k.ID == uuid.Nil {
		k.ID = uuid.New()
	}
	err := s.db.QueryRowxContext(ctx, q, k.ID, k.KeyHash, k.KeyPrefix, k.Name, k.TeamID, scopesToStrings(k.Scopes), k.ExpiresAt).
		Scan(&k.CreatedAt)
	return wrapWrite(err)
}

func (s *Store) GetAPIKeyByPrefix(ctx context.Context, prefix string) (*models.APIKey, error) {
	const q = `SELECT * FROM api_keys WHERE key_prefix = $1`
	var k models.APIKey
	if err := s.db.GetContext(ctx, &k, q, prefix); err != nil {
		return nil, wrapRead(err)
	}
	return &k, nil
}

func (s *Store) RevokeAPIKey(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM api_keys WHERE id = $1`
	res, err := s.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func scopesToStrings(scopes []models.APIKeyScope) []string {
	out := make([]string, len(scopes))
	for i, s := range scopes {
		out[i] = string(s)
	}
	return out
}
