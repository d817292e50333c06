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

package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/ashita-ai/tessera/pkg/models"
	"github.com/ashita-ai/tessera/pkg/store"
)

// Pipeline dispatches webhook events for proposal and contract state
// changes. It owns the process-wide semaphore, circuit breaker, and
// dead-letter queue described in spec §4.7.
type Pipeline struct {
	store    store.Store
	client   *http.Client
	cfg      Config
	log      *zap.Logger
	sem      *semaphore.Weighted
	breaker  *gobreaker.CircuitBreaker
	dlq      *deadLetterQueue
	resolver Resolver
	sleep    func(ctx context.Context, d time.Duration)

	breakerTimeout time.Duration
}

// Option customizes a Pipeline at construction time, for tests or
// deployments with non-default DNS/retry behavior.
type Option func(*Pipeline)

// WithResolver overrides the default net.DefaultResolver-backed SSRF
// hostname check.
func WithResolver(r Resolver) Option {
	return func(p *Pipeline) { p.resolver = r }
}

// WithSleep overrides the function used to wait between retry attempts,
// so tests don't pay the real 1s/5s schedule.
func WithSleep(fn func(ctx context.Context, d time.Duration)) Option {
	return func(p *Pipeline) { p.sleep = fn }
}

// WithBreakerCooldown overrides the circuit breaker's open-state cooldown
// (default 60s), so tests don't have to wait for it in real time.
func WithBreakerCooldown(d time.Duration) Option {
	return func(p *Pipeline) { p.breakerTimeout = d }
}

// New constructs a Pipeline. log may be nil.
func New(s store.Store, cfg Config, log *zap.Logger, opts ...Option) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = 30 * time.Second
	}
	p := &Pipeline{
		store:          s,
		client: &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}},
		cfg:            cfg,
		log:            log,
		sem:            semaphore.NewWeighted(maxConcurrentDeliveries),
		dlq:            newDeadLetterQueue(dlqCapacity, log),
		resolver:       netResolver{r: net.DefaultResolver},
		sleep:          contextSleep,
		breakerTimeout: breakerCooldown,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "tessera-webhook",
		MaxRequests: 1,
		Interval:    0,
		Timeout:     p.breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if to == gobreaker.StateClosed {
				p.drainDLQ(context.Background())
			}
		},
	})
	return p
}

func contextSleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// delivery bundles what is needed to attempt or re-attempt one event.
type delivery struct {
	id        uuid.UUID
	eventType string
	payload   any
	url       string
}

// Dispatch schedules an at-least-once delivery of eventType/payload to
// the configured receiver as a fire-and-forget background task; it
// never blocks the caller and never returns an error to it (spec
// §4.7's "webhook failures never affect the response to the
// state-change that triggered them"). A delivery row is persisted
// synchronously with status pending so the attempt is always auditable
// even if the process restarts before the goroutine runs.
func (p *Pipeline) Dispatch(ctx context.Context, eventType string, payload any) {
	if p.cfg.ReceiverURL == "" {
		return
	}
	payloadMap, err := toJSONMap(payload)
	if err != nil {
		p.log.Error("webhook: encode payload", zap.Error(err))
		return
	}
	d := &models.WebhookDelivery{
		ID:        uuid.New(),
		EventType: eventType,
		Payload:   payloadMap,
		URL:       p.cfg.ReceiverURL,
		Status:    models.WebhookPending,
		CreatedAt: store.Now().UTC(),
	}
	if err := p.store.CreateWebhookDelivery(ctx, d); err != nil {
		p.log.Error("webhook: persist delivery row", zap.Error(err))
		return
	}
	ev := delivery{id: d.ID, eventType: eventType, payload: payload, url: p.cfg.ReceiverURL}
	go p.deliverAsync(context.Background(), ev)
}

func (p *Pipeline) deliverAsync(ctx context.Context, ev delivery) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return
	}
	defer p.sem.Release(1)
	p.attemptDelivery(ctx, ev)
}

// attemptDelivery runs the SSRF check once, then the whole maxAttempts
// retry schedule (sleeping RetrySchedule between failed attempts) through
// one breaker.Execute call, so the circuit breaker tracks consecutive
// failures per completed delivery, not per individual HTTP attempt. A
// breaker already open before this delivery starts routes it straight to
// the dead-letter queue instead of burning any of its retries.
func (p *Pipeline) attemptDelivery(ctx context.Context, ev delivery) {
	if err := validateURL(ctx, ev.url, p.cfg, p.resolver); err != nil {
		p.markFailed(ctx, ev, 0, err.Error(), nil)
		return
	}

	body, err := json.Marshal(Envelope{
		Event:     ev.eventType,
		Timestamp: store.Now().UTC().Format(time.RFC3339),
		Payload:   ev.payload,
	})
	if err != nil {
		p.markFailed(ctx, ev, 0, err.Error(), nil)
		return
	}

	var lastErr error
	var lastStatus *int
	attempts := 0
	_, deliveryErr := p.breaker.Execute(func() (interface{}, error) {
		for attempt := 1; attempt <= maxAttempts; attempt++ {
			attempts = attempt
			status, attemptErr := p.post(ctx, ev.url, ev.eventType, body)
			if attemptErr == nil {
				return status, nil
			}
			lastErr = attemptErr
			if status != 0 {
				lastStatus = &status
			}
			if attempt < maxAttempts {
				p.sleep(ctx, RetrySchedule[attempt-1])
			}
		}
		return nil, lastErr
	})
	if deliveryErr == nil {
		p.markDelivered(ctx, ev, attempts)
		return
	}
	if errors.Is(deliveryErr, gobreaker.ErrOpenState) {
		p.dlq.push(event{deliveryID: ev.id.String(), eventType: ev.eventType, payload: ev.payload, url: ev.url})
		p.markFailed(ctx, ev, attempts, "circuit breaker open, queued for retry", nil)
		return
	}
	p.markFailed(ctx, ev, attempts, truncateError(lastErr), lastStatus)
}

// post performs one HTTP attempt, returning the response status code
// alongside any error so attemptDelivery can record the last status seen
// even when the delivery ultimately fails.
func (p *Pipeline) post(ctx context.Context, url, eventType string, body []byte) (int, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, p.cfg.AttemptTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tessera-Event", eventType)
	req.Header.Set("X-Tessera-Timestamp", store.Now().UTC().Format(time.RFC3339))
	if p.cfg.Secret != "" {
		req.Header.Set("X-Tessera-Signature", sign(body, p.cfg.Secret))
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return resp.StatusCode, fmt.Errorf("webhook receiver returned %d", resp.StatusCode)
	}
	return resp.StatusCode, nil
}

// drainDLQ re-schedules every queued event in FIFO order, called when
// the breaker closes (a successful half-open probe).
func (p *Pipeline) drainDLQ(ctx context.Context) {
	for _, e := range p.dlq.drain() {
		id, err := uuid.Parse(e.deliveryID)
		if err != nil {
			continue
		}
		go p.deliverAsync(ctx, delivery{id: id, eventType: e.eventType, payload: e.payload, url: e.url})
	}
}

func (p *Pipeline) markDelivered(ctx context.Context, ev delivery, attempts int) {
	now := store.Now().UTC()
	if err := p.store.UpdateWebhookDelivery(ctx, &models.WebhookDelivery{
		ID: ev.id, Status: models.WebhookDelivered, Attempts: attempts, DeliveredAt: &now, LastAttemptAt: &now,
	}); err != nil {
		p.log.Error("webhook: update delivery row", zap.Error(err))
	}
}

func (p *Pipeline) markFailed(ctx context.Context, ev delivery, attempts int, lastError string, statusCode *int) {
	now := store.Now().UTC()
	if err := p.store.UpdateWebhookDelivery(ctx, &models.WebhookDelivery{
		ID: ev.id, Status: models.WebhookFailed, Attempts: attempts, LastAttemptAt: &now,
		LastError: &lastError, LastStatusCode: statusCode,
	}); err != nil {
		p.log.Error("webhook: update delivery row", zap.Error(err))
	}
}

func truncateError(err error) string {
	if err == nil {
		return ""
	}
	s := err.Error()
	if len(s) > 500 {
		s = s[:500]
	}
	return s
}

func toJSONMap(v any) (models.JSONMap, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m models.JSONMap
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}
