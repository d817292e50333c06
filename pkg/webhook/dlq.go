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
	"sync"

	"go.uber.org/zap"
)

// event is one scheduled delivery, queued for either immediate dispatch
// or the dead-letter queue.
type event struct {
	deliveryID string
	eventType  string
	payload    any
	url        string
}

// deadLetterQueue is a process-wide, bounded FIFO queue of events that
// could not be delivered while the circuit breaker was open. It drops
// the oldest entry (and logs it) once full, per spec §4.7.
type deadLetterQueue struct {
	mu       sync.Mutex
	items    []event
	capacity int
	log      *zap.Logger
}

func newDeadLetterQueue(capacity int, log *zap.Logger) *deadLetterQueue {
	return &deadLetterQueue{capacity: capacity, log: log}
}

// push appends e, dropping the oldest queued event if already at
// capacity.
func (q *deadLetterQueue) push(e event) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) >= q.capacity {
		dropped := q.items[0]
		q.items = q.items[1:]
		q.log.Warn("webhook dead-letter queue full, dropping oldest event",
			zap.String("event_type", dropped.eventType), zap.String("delivery_id", dropped.deliveryID))
	}
	q.items = append(q.items, e)
}

// drain empties the queue and returns its contents in FIFO order.
func (q *deadLetterQueue) drain() []event {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	return items
}

func (q *deadLetterQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
