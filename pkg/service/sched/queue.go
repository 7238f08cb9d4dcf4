// Copyright 2026 Ewout Prangsma
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// Author Ewout Prangsma
//

package sched

import (
	"github.com/pkg/errors"

	"github.com/binkynet/ButtonWorker/pkg/metrics"
	"github.com/binkynet/ButtonWorker/pkg/service/util"
)

const (
	// DefaultQueueSize is the capacity of a queue created with size 0.
	DefaultQueueSize = 10

	subSystem = "scheduler"
)

var (
	// QueueFullError is returned by Put when the queue is at capacity.
	QueueFullError = errors.New("scheduler queue full")

	eventsQueuedTotal = metrics.MustRegisterCounter(subSystem,
		"events_queued_total",
		"Total number of events put in the scheduler queue")
	eventsDroppedTotal = metrics.MustRegisterCounter(subSystem,
		"events_dropped_total",
		"Total number of events dropped because the scheduler queue was full")
	eventsExecutedTotal = metrics.MustRegisterCounter(subSystem,
		"events_executed_total",
		"Total number of events executed from the scheduler queue")
)

// Handler is an event handler that is deferred to the main loop.
type Handler func()

// Queue defers work from interrupt handlers to the main loop.
// Put may be called from interrupt context, Execute is called from the
// main loop after it wakes up. Events run in the order they were put.
type Queue struct {
	cs     util.CriticalSection
	events []Handler
	size   int
}

// NewQueue creates a queue that holds at most size events.
func NewQueue(size int) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Queue{
		events: make([]Handler, 0, size),
		size:   size,
	}
}

// Put an event in the queue.
// Returns QueueFullError when the queue is at capacity; the event is dropped.
func (q *Queue) Put(h Handler) error {
	if h == nil {
		return errors.New("nil handler")
	}
	q.cs.Enter()
	defer q.cs.Exit()
	if len(q.events) >= q.size {
		eventsDroppedTotal.Inc()
		return QueueFullError
	}
	q.events = append(q.events, h)
	eventsQueuedTotal.Inc()
	return nil
}

// Len returns the number of queued events.
func (q *Queue) Len() int {
	q.cs.Enter()
	defer q.cs.Exit()
	return len(q.events)
}

// Execute runs all queued events, including events put by the
// handlers themselves, until the queue is empty.
// Returns the number of events executed.
func (q *Queue) Execute() int {
	count := 0
	for {
		q.cs.Enter()
		if len(q.events) == 0 {
			q.cs.Exit()
			return count
		}
		h := q.events[0]
		q.events = append(q.events[:0], q.events[1:]...)
		q.cs.Exit()

		h()
		eventsExecutedTotal.Inc()
		count++
	}
}
