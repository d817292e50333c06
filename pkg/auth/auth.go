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

// Package auth resolves an inbound request's credentials (an opaque
// API key or a session cookie) into a Principal carrying the caller's
// team and granted scopes (spec §6's Authentication section).
package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/argon2"

	"github.com/ashita-ai/tessera/pkg/models"
	"github.com/ashita-ai/tessera/pkg/store"
)

const keyPrefix = "tess_live_"

// argon2 parameters, chosen for interactive request-path latency rather
// than maximum resistance; tuned the way a login endpoint would be, not
// a offline key-derivation job.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
	saltLen      = 16
)

// ErrInvalidCredential is returned for any unrecognized or malformed key.
var ErrInvalidCredential = errors.New("tessera/auth: invalid credential")

// ErrTeamNotLive is returned when the key's owning team has been soft-deleted.
var ErrTeamNotLive = errors.New("tessera/auth: owning team is deleted")

// Principal is the resolved identity and scope set for one request.
type Principal struct {
	TeamID uuid.UUID
	Scopes []models.APIKeyScope
	KeyID  *uuid.UUID
	UserID *uuid.UUID
}

// HasScope reports whether the principal carries scope directly or via
// the admin scope's implication of read and write.
func (p Principal) HasScope(scope models.APIKeyScope) bool {
	for _, s := range p.Scopes {
		if s == scope || s == models.ScopeAdmin {
			return true
		}
	}
	return false
}

// GenerateKey returns a new opaque API key (the value returned to the
// caller exactly once) plus its lookup prefix and argon2 hash to
// persist. The caller is responsible for inserting the models.APIKey row.
func GenerateKey() (plaintext, prefix, hash string, err error) {
	raw := make([]byte, 32)
	if _, err = rand.Read(raw); err != nil {
		return "", "", "", fmt.Errorf("tessera/auth: generate key: %w", err)
	}
	plaintext = keyPrefix + base64.RawURLEncoding.EncodeToString(raw)
	prefix = lookupPrefix(plaintext)
	hash, err = HashKey(plaintext)
	return plaintext, prefix, hash, err
}

// lookupPrefix is the portion of the key stored in cleartext for
// efficient lookup by the store, e.g. "tess_live_AbCdEfGhIjKl".
func lookupPrefix(key string) string {
	const prefixLen = 12
	if len(key) <= len(keyPrefix)+prefixLen {
		return key
	}
	return key[:len(keyPrefix)+prefixLen]
}

// HashKey computes the argon2id hash of a plaintext key, encoded as
// "salt_hex:hash_hex" for storage.
func HashKey(plaintext string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("tessera/auth: generate salt: %w", err)
	}
	sum := argon2.IDKey([]byte(plaintext), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	return hex.EncodeToString(salt) + ":" + hex.EncodeToString(sum), nil
}

// VerifyKey reports whether plaintext hashes to encoded, in constant time.
func VerifyKey(plaintext, encoded string) bool {
	parts := strings.SplitN(encoded, ":", 2)
	if len(parts) != 2 {
		return false
	}
	salt, err := hex.DecodeString(parts[0])
	if err != nil {
		return false
	}
	want, err := hex.DecodeString(parts[1])
	if err != nil {
		return false
	}
	got := argon2.IDKey([]byte(plaintext), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	return subtle.ConstantTimeCompare(got, want) == 1
}

// Resolver resolves inbound credentials into a Principal.
type Resolver struct {
	store       store.Store
	bootstrap   string
	bootstrapID uuid.UUID
}

// NewResolver constructs a Resolver. bootstrapKey, if non-empty, is
// compared directly (not hashed) against an Authorization header and
// grants full admin scope with no team, for use only in bootstrapping
// the first team.
func NewResolver(s store.Store, bootstrapKey string) *Resolver {
	return &Resolver{store: s, bootstrap: bootstrapKey, bootstrapID: uuid.Nil}
}

// ResolveAPIKey resolves a bearer token into a Principal. It looks up
// the key by its cleartext prefix, verifies the full key against the
// stored argon2 hash, checks expiry, and confirms the owning team is
// still live.
func (r *Resolver) ResolveAPIKey(ctx context.Context, bearer string) (Principal, error) {
	if r.bootstrap != "" && subtle.ConstantTimeCompare([]byte(bearer), []byte(r.bootstrap)) == 1 {
		return Principal{Scopes: []models.APIKeyScope{models.ScopeAdmin}}, nil
	}
	if !strings.HasPrefix(bearer, keyPrefix) {
		return Principal{}, ErrInvalidCredential
	}
	key, err := r.store.GetAPIKeyByPrefix(ctx, lookupPrefix(bearer))
	if err != nil {
		return Principal{}, ErrInvalidCredential
	}
	if !VerifyKey(bearer, key.KeyHash) {
		return Principal{}, ErrInvalidCredential
	}
	if key.Expired(store.Now()) {
		return Principal{}, ErrInvalidCredential
	}
	team, err := r.store.GetTeam(ctx, key.TeamID)
	if err != nil {
		return Principal{}, ErrInvalidCredential
	}
	if !team.IsLive() {
		return Principal{}, ErrTeamNotLive
	}
	id := key.ID
	return Principal{TeamID: key.TeamID, Scopes: key.Scopes, KeyID: &id}, nil
}

// ResolveSession resolves a session-authenticated user id into a mock
// Principal whose scopes are derived from the user's role (spec §6:
// admin->{read,write,admin}, team_admin->{read,write}, user->{read}).
func (r *Resolver) ResolveSession(ctx context.Context, userID uuid.UUID) (Principal, error) {
	user, err := r.store.GetUser(ctx, userID)
	if err != nil {
		return Principal{}, ErrInvalidCredential
	}
	if !user.IsLive() {
		return Principal{}, ErrInvalidCredential
	}
	team, err := r.store.GetTeam(ctx, user.TeamID)
	if err != nil {
		return Principal{}, ErrInvalidCredential
	}
	if !team.IsLive() {
		return Principal{}, ErrTeamNotLive
	}
	id := user.ID
	return Principal{TeamID: user.TeamID, Scopes: models.ScopesForRole(user.Role), UserID: &id}, nil
}
