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

package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	apperrors "github.com/ashita-ai/tessera/internal/errors"
	"github.com/ashita-ai/tessera/pkg/auth"
	"github.com/ashita-ai/tessera/pkg/models"
)

// sessionCookieName is the session-auth alternative to a bearer API
// key, spec §6: "a session cookie is accepted as an alternative,
// resolving to a mock key with scopes derived from the user's role."
const sessionCookieName = "tessera_session"

// Auth resolves the caller's Principal from either an Authorization:
// Bearer <api_key> header or a session cookie, and rejects the request
// with 401 if neither resolves. authDisabled, only ever true in
// development (internal/config.Load refuses it elsewhere), bypasses
// resolution entirely and grants full admin scope, for local
// development and the test suite.
func Auth(resolver *auth.Resolver, authDisabled bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if authDisabled {
				p := auth.Principal{Scopes: []models.APIKeyScope{models.ScopeAdmin}}
				next.ServeHTTP(w, r.WithContext(withPrincipal(r.Context(), p)))
				return
			}

			if bearer := bearerToken(r); bearer != "" {
				p, err := resolver.ResolveAPIKey(r.Context(), bearer)
				if err != nil {
					WriteError(w, r, apperrors.NewAuthenticationError(err.Error()))
					return
				}
				next.ServeHTTP(w, r.WithContext(withPrincipal(r.Context(), p)))
				return
			}

			if c, err := r.Cookie(sessionCookieName); err == nil && c.Value != "" {
				userID, err := uuid.Parse(c.Value)
				if err != nil {
					WriteError(w, r, apperrors.NewAuthenticationError("invalid session"))
					return
				}
				p, err := resolver.ResolveSession(r.Context(), userID)
				if err != nil {
					WriteError(w, r, apperrors.NewAuthenticationError(err.Error()))
					return
				}
				next.ServeHTTP(w, r.WithContext(withPrincipal(r.Context(), p)))
				return
			}

			WriteError(w, r, apperrors.NewAuthenticationError("missing credentials"))
		})
	}
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, prefix) {
		return ""
	}
	return strings.TrimPrefix(h, prefix)
}

// RequireScope rejects the request with 403 unless the authenticated
// Principal (set by Auth) carries scope. Must run after Auth.
func RequireScope(scope models.APIKeyScope) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				WriteError(w, r, apperrors.NewAuthenticationError("missing credentials"))
				return
			}
			if !p.HasScope(scope) {
				WriteError(w, r, apperrors.NewAuthorizationError("missing required scope: "+string(scope)))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
