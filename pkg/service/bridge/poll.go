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
	"strconv"
	"sync"

	aerr "github.com/ewoutp/go-aggregate-error"
	"github.com/rs/zerolog"

	"github.com/binkynet/ButtonWorker/pkg/service/util"
)

// polledInput is an input line without hardware edge detection.
type polledInput struct {
	polarity Polarity
	last     bool
	read     func() (bool, error)
	onEdge   func()
}

// inputPoller detects edges on input lines by reading them periodically.
// It is used by drivers of libraries that cannot wait for edges.
type inputPoller struct {
	mutex  sync.Mutex
	log    zerolog.Logger
	inputs map[Pin]*polledInput
	cancel context.CancelFunc
}

func newInputPoller(log zerolog.Logger) *inputPoller {
	return &inputPoller{
		log:    log,
		inputs: make(map[Pin]*polledInput),
	}
}

// add an input to poll. Polling starts with the first input.
func (p *inputPoller) add(pin Pin, polarity Polarity, read func() (bool, error), onEdge func()) error {
	initial, err := read()
	if err != nil {
		return err
	}
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.inputs[pin] = &polledInput{
		polarity: polarity,
		last:     initial,
		read:     read,
		onEdge:   onEdge,
	}
	if p.cancel == nil {
		ctx, cancel := context.WithCancel(context.Background())
		p.cancel = cancel
		go util.UntilCanceled(ctx, p.log, "poll inputs", p.pollOnce)
	}
	return nil
}

// pollOnce reads all inputs once and reports matching transitions.
func (p *inputPoller) pollOnce(ctx context.Context) error {
	var ae aerr.AggregateError
	var edges []func()
	p.mutex.Lock()
	for pin, input := range p.inputs {
		value, err := input.read()
		if err != nil {
			pollErrorsTotal.WithLabelValues(strconv.Itoa(int(pin))).Inc()
			ae.Add(err)
			continue
		}
		if input.polarity.Matches(input.last, value) {
			edges = append(edges, input.onEdge)
		}
		input.last = value
	}
	p.mutex.Unlock()
	for _, onEdge := range edges {
		onEdge()
	}
	return ae.AsError()
}

// stop polling.
func (p *inputPoller) stop() {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.inputs = make(map[Pin]*polledInput)
}
