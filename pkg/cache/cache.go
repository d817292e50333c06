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

// Package cache implements an optional, fail-open Redis-backed cache
// for contracts, assets, and schema diffs (spec §5 "Caches"). A cache
// miss or a Redis outage always falls through to the store; nothing in
// this package can turn a correct response into an error.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Namespace-scoped TTLs, matching the per-domain defaults of the
// original cache service (contracts 10m, assets 5m, schemas 1h).
const (
	contractTTL = 10 * time.Minute
	assetTTL    = 5 * time.Minute
	schemaTTL   = time.Hour
)

// Service is a namespaced, fail-open cache over a single Redis client.
// A nil client (Redis disabled or unreachable) makes every method a
// silent no-op/miss.
type Service struct {
	client *redis.Client
	log    *zap.Logger
}

// New constructs a Service. redisURL may be empty, disabling caching
// entirely; a non-empty URL that fails to parse also disables caching
// rather than failing startup (fail-open applies to configuration too).
func New(redisURL string, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if redisURL == "" {
		return &Service{log: log}
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Warn("cache: invalid REDIS_URL, caching disabled", zap.Error(err))
		return &Service{log: log}
	}
	return &Service{client: redis.NewClient(opts), log: log}
}

func (s *Service) enabled() bool { return s.client != nil }

func key(prefix string, parts ...string) string {
	full := prefix
	for _, p := range parts {
		full += ":" + p
	}
	return "tessera:" + full
}

// get fetches and JSON-decodes a value, returning ok=false on any miss
// or failure (Redis down, key absent, decode error) — never an error.
func (s *Service) get(ctx context.Context, k string, out any) (ok bool) {
	if !s.enabled() {
		return false
	}
	raw, err := s.client.Get(ctx, k).Bytes()
	if err != nil {
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false
	}
	return true
}

func (s *Service) set(ctx context.Context, k string, value any, ttl time.Duration) {
	if !s.enabled() {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.client.Set(ctx, k, raw, ttl).Err(); err != nil {
		s.log.Debug("cache: set failed", zap.String("key", k), zap.Error(err))
	}
}

func (s *Service) delete(ctx context.Context, k string) {
	if !s.enabled() {
		return
	}
	if err := s.client.Del(ctx, k).Err(); err != nil {
		s.log.Debug("cache: delete failed", zap.String("key", k), zap.Error(err))
	}
}

// GetContract returns a cached contract payload by id, or ok=false on
// a miss or disabled cache.
func (s *Service) GetContract(ctx context.Context, contractID string, out any) bool {
	return s.get(ctx, key("contracts", contractID), out)
}

// SetContract caches a contract payload by id.
func (s *Service) SetContract(ctx context.Context, contractID string, value any) {
	s.set(ctx, key("contracts", contractID), value, contractTTL)
}

// GetAsset returns a cached asset payload by id, or ok=false on a miss
// or disabled cache.
func (s *Service) GetAsset(ctx context.Context, assetID string, out any) bool {
	return s.get(ctx, key("assets", assetID), out)
}

// SetAsset caches an asset payload by id.
func (s *Service) SetAsset(ctx context.Context, assetID string, value any) {
	s.set(ctx, key("assets", assetID), value, assetTTL)
}

// GetSchemaDiff returns a cached diff result for the (from, to) schema
// pair, or ok=false on a miss or disabled cache.
func (s *Service) GetSchemaDiff(ctx context.Context, from, to map[string]any, out any) bool {
	return s.get(ctx, schemaDiffKey(from, to), out)
}

// SetSchemaDiff caches a diff result for the (from, to) schema pair.
func (s *Service) SetSchemaDiff(ctx context.Context, from, to map[string]any, value any) {
	s.set(ctx, schemaDiffKey(from, to), value, schemaTTL)
}

func schemaDiffKey(from, to map[string]any) string {
	return key("schemas", hashSchema(from), hashSchema(to))
}

// hashSchema mirrors _hash_dict: a stable digest of a schema document
// independent of key ordering, truncated to 16 hex characters.
func hashSchema(schema map[string]any) string {
	keys := make([]string, 0, len(schema))
	for k := range schema {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	ordered := make(map[string]any, len(schema))
	for _, k := range keys {
		ordered[k] = schema[k]
	}
	raw, err := json.Marshal(ordered)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])[:16]
}

// InvalidateAsset implements pkg/contract.Invalidator and
// pkg/proposal.Invalidator: it drops the cached asset entry and, since
// Redis SCAN-by-pattern costs a round trip this fail-open cache would
// rather not spend on every publish, relies on the contract cache's own
// TTL to expire stale per-contract entries rather than pattern-deleting
// them synchronously.
func (s *Service) InvalidateAsset(ctx context.Context, assetID uuid.UUID) {
	s.delete(ctx, key("assets", assetID.String()))
}
