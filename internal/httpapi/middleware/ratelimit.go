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
	"strconv"
	"time"

	apperrors "github.com/ashita-ai/tessera/internal/errors"
	"github.com/ashita-ai/tessera/pkg/metrics"
	"github.com/ashita-ai/tessera/pkg/ratelimit"
)

// RateLimit rejects a request with 429 once its bucket (derived from the
// caller's API key prefix, or its remote address absent one) exceeds the
// configured per-minute quota. A disabled Limiter (limit <= 0) always
// allows.
func RateLimit(limiter *ratelimit.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil {
				next.ServeHTTP(w, r)
				return
			}
			bucket := ratelimit.KeyFor(r.Header.Get("Authorization"), r.RemoteAddr)
			allowed, retryAfter := limiter.Allow(bucket, time.Now())
			if !allowed {
				metrics.RecordRateLimitRejection()
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				WriteError(w, r, apperrors.NewRateLimitError("rate limit exceeded"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
