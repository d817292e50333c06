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

// Package ratelimit implements the per-minute request quota keyed on
// API key prefix, falling back to remote IP, described in spec §6.
package ratelimit

import (
	"strings"
	"sync"
	"time"
)

// KeyFor derives the rate-limit bucket key for one request: the first
// 10 characters of a bearer token if present, otherwise remoteAddr.
// Mirrors the original's get_rate_limit_key.
func KeyFor(authorizationHeader, remoteAddr string) string {
	const bearerPrefix = "Bearer "
	if strings.HasPrefix(authorizationHeader, bearerPrefix) {
		token := strings.TrimPrefix(authorizationHeader, bearerPrefix)
		if len(token) > 10 {
			token = token[:10]
		}
		return "key:" + token
	}
	return remoteAddr
}

// Limiter is a fixed-window, per-minute request counter keyed by an
// arbitrary bucket string (an API key prefix or an IP address).
type Limiter struct {
	mu       sync.Mutex
	window   time.Duration
	limit    int
	counters map[string]*windowCounter
}

type windowCounter struct {
	count      int
	windowEnds time.Time
}

// New constructs a Limiter allowing limit requests per 1-minute window
// per bucket. limit <= 0 disables rate limiting entirely (Allow always
// succeeds), matching settings.rate_limit_enabled=false.
func New(limit int) *Limiter {
	return &Limiter{window: time.Minute, limit: limit, counters: map[string]*windowCounter{}}
}

// Allow reports whether bucket may proceed at now, and if not, how many
// seconds remain until its window resets (for the Retry-After header).
func (l *Limiter) Allow(bucket string, now time.Time) (allowed bool, retryAfterSeconds int) {
	if l.limit <= 0 {
		return true, 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.counters[bucket]
	if !ok || !now.Before(c.windowEnds) {
		c = &windowCounter{count: 0, windowEnds: now.Add(l.window)}
		l.counters[bucket] = c
	}
	if c.count >= l.limit {
		remaining := c.windowEnds.Sub(now)
		if remaining < 0 {
			remaining = 0
		}
		return false, int((remaining + time.Second - 1) / time.Second)
	}
	c.count++
	return true, 0
}

// Reset clears all counters, for tests.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.counters = map[string]*windowCounter{}
}
