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

package bridge

import (
	"context"
	"sync"
)

// irqState is the state of a single interrupt source.
type irqState uint8

const (
	// No interrupt raised
	irqIdle irqState = iota
	// Raised, waiting to be serviced
	irqPending
	// Handler is running
	irqActive
	// Raised again while the handler is running
	irqActiveLatched
)

type irqRequest struct {
	source  string
	handler func()
}

// irqController queues interrupts raised by hardware adapters and
// services them, strictly one at a time, on the goroutine that calls
// wait or poll.
// An interrupt source that is raised again while still pending is
// coalesced. Raised while its handler is running, it is latched and
// queued again once the handler returns.
type irqController struct {
	mutex    sync.Mutex
	states   map[string]irqState
	queue    []irqRequest
	signal   chan struct{}
	serviced uint64
}

func newIRQController() *irqController {
	return &irqController{
		states: make(map[string]irqState),
		signal: make(chan struct{}, 1),
	}
}

// raise an interrupt from the given source.
// Returns false when the interrupt was coalesced with one that is
// already pending.
func (c *irqController) raise(source string, handler func()) bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	switch c.states[source] {
	case irqPending, irqActiveLatched:
		irqCoalescedTotal.WithLabelValues(source).Inc()
		return false
	case irqActive:
		c.states[source] = irqActiveLatched
		c.queue = append(c.queue, irqRequest{source: source, handler: handler})
		irqRaisedTotal.WithLabelValues(source).Inc()
		return true
	default:
		c.states[source] = irqPending
		c.queue = append(c.queue, irqRequest{source: source, handler: handler})
		irqRaisedTotal.WithLabelValues(source).Inc()
		select {
		case c.signal <- struct{}{}:
		default:
		}
		return true
	}
}

// next removes the first request that may run now from the queue.
// Requests of a source whose handler is still active stay queued.
func (c *irqController) next() (irqRequest, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	for i, req := range c.queue {
		if c.states[req.source] != irqPending {
			continue
		}
		c.queue = append(c.queue[:i], c.queue[i+1:]...)
		c.states[req.source] = irqActive
		return req, true
	}
	return irqRequest{}, false
}

// done marks the handler of the given source as returned.
func (c *irqController) done(source string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.serviced++
	if c.states[source] == irqActiveLatched {
		c.states[source] = irqPending
		select {
		case c.signal <- struct{}{}:
		default:
		}
	} else {
		c.states[source] = irqIdle
	}
}

// poll services all pending interrupts without waiting.
func (c *irqController) poll() int {
	count := 0
	for {
		req, ok := c.next()
		if !ok {
			return count
		}
		req.handler()
		c.done(req.source)
		count++
	}
}

// wait blocks until an interrupt is raised and services all pending
// interrupts.
func (c *irqController) wait(ctx context.Context) error {
	for {
		if c.poll() > 0 {
			return nil
		}
		select {
		case <-c.signal:
			// Woken up
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// servicedCount returns the total number of serviced interrupts.
func (c *irqController) servicedCount() uint64 {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.serviced
}
