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

// Package database bootstraps the Postgres connection pool used by
// cmd/tesserad: opening it, waiting out the brief window where the
// database isn't accepting connections yet (container startup, pod
// scheduling), tuning the pool, and applying pending migrations.
package database

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ashita-ai/tessera/pkg/store/postgres"
	"github.com/ashita-ai/tessera/pkg/store/postgres/migrations"
)

// PoolConfig bounds the underlying *sql.DB connection pool. The zero
// value is not usable; callers should start from DefaultPoolConfig.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DefaultPoolConfig returns the pool sizing tesserad uses absent
// environment overrides.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: 5 * time.Minute,
	}
}

// pingRetries and pingBackoff bound how long Connect waits for a
// database that is reachable on the network but not yet accepting
// connections (a Postgres container still running initdb, a pod that
// lost its leader election).
const (
	pingRetries = 10
	pingBackoff = 500 * time.Millisecond
)

// Connect opens dsn, waits for it to become reachable, applies the pool
// configuration, and runs every pending migration before returning. The
// returned *postgres.Store is ready to back pkg/store.Store.
func Connect(ctx context.Context, dsn string, pool PoolConfig, log *zap.Logger) (*postgres.Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("tessera/database: dsn is required")
	}

	store, err := postgres.Open(dsn, log)
	if err != nil {
		return nil, fmt.Errorf("tessera/database: open: %w", err)
	}

	db := store.Underlying()
	db.SetMaxOpenConns(pool.MaxOpenConns)
	db.SetMaxIdleConns(pool.MaxIdleConns)
	db.SetConnMaxLifetime(pool.ConnMaxLifetime)
	db.SetConnMaxIdleTime(pool.ConnMaxIdleTime)

	if err := waitForPing(ctx, db.PingContext, log); err != nil {
		return nil, err
	}

	if err := migrations.Up(db.DB); err != nil {
		return nil, fmt.Errorf("tessera/database: migrate: %w", err)
	}

	return store, nil
}

// waitForPing retries ping, a context-aware health probe, with a fixed
// backoff. It exists because Open succeeds as soon as database/sql has a
// driver name it recognizes; it does not dial anything until the first
// query.
func waitForPing(ctx context.Context, ping func(context.Context) error, log *zap.Logger) error {
	var lastErr error
	for attempt := 1; attempt <= pingRetries; attempt++ {
		if err := ping(ctx); err == nil {
			return nil
		} else {
			lastErr = err
		}
		if log != nil {
			log.Warn("database not yet reachable, retrying",
				zap.Int("attempt", attempt), zap.Int("max_attempts", pingRetries), zap.Error(lastErr))
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("tessera/database: ping: %w", ctx.Err())
		case <-time.After(pingBackoff):
		}
	}
	return fmt.Errorf("tessera/database: unreachable after %d attempts: %w", pingRetries, lastErr)
}
