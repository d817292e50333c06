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

// Package metrics declares the process-wide Prometheus collectors for
// the publishing workflow, the proposal workflow, the webhook pipeline,
// and the impact engine, and the Record* helpers each component calls
// to update them.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ContractsPublishedTotal counts contract publications by outcome
// (published, deprecated, proposal_created, force_published, skipped).
var ContractsPublishedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "tessera_publish_total",
		Help: "Total number of contract publish attempts by outcome.",
	},
	[]string{"outcome"},
)

// ProposalsCreatedTotal counts proposals created, labeled by change_type.
var ProposalsCreatedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "tessera_proposals_created_total",
		Help: "Total number of breaking-change proposals created.",
	},
	[]string{"change_type"},
)

// ProposalsResolvedTotal counts proposal resolutions, labeled by the
// terminal status reached (approved, rejected, withdrawn).
var ProposalsResolvedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "tessera_proposals_resolved_total",
		Help: "Total number of proposals resolved, by terminal status.",
	},
	[]string{"status"},
)

// WebhookDeliveriesTotal counts webhook delivery attempts by outcome
// (delivered, failed, dead_lettered).
var WebhookDeliveriesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "tessera_webhook_deliveries_total",
		Help: "Total number of webhook delivery attempts by outcome.",
	},
	[]string{"outcome"},
)

// WebhookDeliveryDuration observes the wall-clock time of one complete
// delivery attempt sequence (all retries), in seconds.
var WebhookDeliveryDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "tessera_webhook_delivery_duration_seconds",
		Help:    "Duration of a complete webhook delivery attempt sequence.",
		Buckets: prometheus.DefBuckets,
	},
)

// CircuitBreakerState reports the webhook circuit breaker's current
// state as a gauge: 0=closed, 1=half-open, 2=open, matching
// gobreaker.State's own ordering.
var CircuitBreakerState = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "tessera_circuit_breaker_state",
		Help: "Webhook circuit breaker state (0=closed, 1=half-open, 2=open).",
	},
)

// DeadLetterQueueDepth reports the webhook dead-letter queue's current
// length.
var DeadLetterQueueDepth = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "tessera_webhook_dlq_depth",
		Help: "Current number of deliveries held in the webhook dead-letter queue.",
	},
)

// ImpactTraversalDepth observes the breadth-first depth reached by one
// downstream lineage traversal.
var ImpactTraversalDepth = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "tessera_impact_traversal_depth",
		Help:    "Depth reached by one downstream lineage traversal.",
		Buckets: []float64{1, 2, 3, 4, 5, 8, 13, 21},
	},
)

// ImpactTraversalsTruncatedTotal counts traversals that hit max_results
// before exhausting the frontier.
var ImpactTraversalsTruncatedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "tessera_impact_traversals_truncated_total",
		Help: "Total number of impact traversals truncated at max_results.",
	},
)

// AuditEventsWrittenTotal counts AuditEvent rows written, labeled by
// entity_type.
var AuditEventsWrittenTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "tessera_audit_events_total",
		Help: "Total number of audit events written, by entity type.",
	},
	[]string{"entity_type"},
)

// RateLimitRejectionsTotal counts requests rejected with 429.
var RateLimitRejectionsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "tessera_rate_limit_rejections_total",
		Help: "Total number of requests rejected for exceeding the rate limit.",
	},
)

// HTTPRequestsTotal counts HTTP requests by route, method, and status
// class.
var HTTPRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "tessera_http_requests_total",
		Help: "Total number of HTTP requests by route, method, and status.",
	},
	[]string{"route", "method", "status"},
)

// HTTPRequestDuration observes HTTP request handling latency in
// seconds, by route.
var HTTPRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "tessera_http_request_duration_seconds",
		Help:    "HTTP request handling latency in seconds, by route.",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"route"},
)

// RecordPublish increments ContractsPublishedTotal for outcome.
func RecordPublish(outcome string) {
	ContractsPublishedTotal.WithLabelValues(outcome).Inc()
}

// RecordProposalCreated increments ProposalsCreatedTotal for changeType.
func RecordProposalCreated(changeType string) {
	ProposalsCreatedTotal.WithLabelValues(changeType).Inc()
}

// RecordProposalResolved increments ProposalsResolvedTotal for status.
func RecordProposalResolved(status string) {
	ProposalsResolvedTotal.WithLabelValues(status).Inc()
}

// RecordWebhookDelivery increments WebhookDeliveriesTotal for outcome
// and observes the attempt sequence's total duration.
func RecordWebhookDelivery(outcome string, duration time.Duration) {
	WebhookDeliveriesTotal.WithLabelValues(outcome).Inc()
	WebhookDeliveryDuration.Observe(duration.Seconds())
}

// SetCircuitBreakerState sets CircuitBreakerState to state (0/1/2).
func SetCircuitBreakerState(state float64) {
	CircuitBreakerState.Set(state)
}

// SetDeadLetterQueueDepth sets DeadLetterQueueDepth to depth.
func SetDeadLetterQueueDepth(depth int) {
	DeadLetterQueueDepth.Set(float64(depth))
}

// RecordImpactTraversal observes a traversal's reached depth and, if
// truncated, increments ImpactTraversalsTruncatedTotal.
func RecordImpactTraversal(depth int, truncated bool) {
	ImpactTraversalDepth.Observe(float64(depth))
	if truncated {
		ImpactTraversalsTruncatedTotal.Inc()
	}
}

// RecordAuditEvent increments AuditEventsWrittenTotal for entityType.
func RecordAuditEvent(entityType string) {
	AuditEventsWrittenTotal.WithLabelValues(entityType).Inc()
}

// RecordRateLimitRejection increments RateLimitRejectionsTotal.
func RecordRateLimitRejection() {
	RateLimitRejectionsTotal.Inc()
}

// RecordHTTPRequest increments HTTPRequestsTotal and observes
// HTTPRequestDuration for one completed request.
func RecordHTTPRequest(route, method, status string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(route, method, status).Inc()
	HTTPRequestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// Timer measures elapsed wall-clock time from its creation.
type Timer struct {
	start time.Time
}

// NewTimer starts a Timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Elapsed returns the time since the Timer was created.
func (t *Timer) Elapsed() time.Duration {
	return time.Since(t.start)
}
