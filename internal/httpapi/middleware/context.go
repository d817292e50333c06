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

// Package middleware implements the request-scoped chain every route
// under /api/v1 runs through, in the fixed order spec §6 and §9's
// security-headers test fix: request ID, structured logging, panic
// recovery, security headers, CORS, rate limiting, then authentication.
package middleware

import (
	"context"

	"github.com/ashita-ai/tessera/pkg/auth"
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	principalKey
)

// RequestIDFromContext returns the request ID stashed by RequestID, or
// "" if none is present (a handler invoked outside the chain, e.g. a
// unit test).
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func withRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// PrincipalFromContext returns the authenticated caller's identity, and
// ok=false if Auth never ran or authentication failed open (it never
// does — Auth either sets a Principal or rejects the request).
func PrincipalFromContext(ctx context.Context) (auth.Principal, bool) {
	p, ok := ctx.Value(principalKey).(auth.Principal)
	return p, ok
}

func withPrincipal(ctx context.Context, p auth.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}
