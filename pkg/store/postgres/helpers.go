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

	"github.com/ashita-ai/tessera/pkg/store"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

// limitOf clamps a caller-supplied page size to a sane range, defaulting
// when unset.
func limitOf(f store.ListFilter) int {
	return clampLimit(f.Limit)
}

func clampLimit(n int) int {
	if n <= 0 {
		return defaultLimit
	}
	if n > maxLimit {
		return maxLimit
	}
	return n
}

// softDelete stamps deleted_at on a single row in table, scoped to live
// rows only, so a repeat call on an already deleted row returns
// store.ErrNotFound.
func softDelete(ctx context.Context, db ext, table string, id uuid.UUID) error {
	q := `UPDATE ` + table + ` SET deleted_at = now(), updated_at = now() WHERE id = $1 AND deleted_at IS NULL`
	res, err := db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
