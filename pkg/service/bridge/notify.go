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
	"sync/atomic"

	"github.com/mattn/go-pubsub"
)

const (
	outputChangeQueueSize = 64
)

// outputNotifier forwards output changes to subscribers.
// Publishing never blocks, so it is safe in interrupt context.
// When subscribers cannot keep up, changes are dropped.
// Subscribers are called concurrently and may see changes out of order.
type outputNotifier struct {
	once  sync.Once
	queue chan OutputChange
	done  chan struct{}
	ps    *pubsub.PubSub
}

func newOutputNotifier() *outputNotifier {
	n := &outputNotifier{
		queue: make(chan OutputChange, outputChangeQueueSize),
		done:  make(chan struct{}),
		ps:    pubsub.New(),
	}
	go n.run()
	return n
}

// publish the given change to all subscribers.
func (n *outputNotifier) publish(c OutputChange) {
	select {
	case n.queue <- c:
		// Queued
	default:
		outputChangesDroppedTotal.Inc()
	}
}

// subscribe to output changes.
// go-pubsub identifies subscribers by function entry point, which all
// closures created here share, so canceling disables the callback
// instead of leaving.
func (n *outputNotifier) subscribe(cb func(OutputChange)) context.CancelFunc {
	var active atomic.Bool
	active.Store(true)
	n.ps.Sub(func(c OutputChange) {
		if active.Load() {
			cb(c)
		}
	})
	return func() {
		active.Store(false)
	}
}

func (n *outputNotifier) run() {
	for {
		select {
		case c := <-n.queue:
			n.ps.Pub(c)
		case <-n.done:
			return
		}
	}
}

func (n *outputNotifier) close() {
	n.once.Do(func() {
		close(n.done)
	})
}
