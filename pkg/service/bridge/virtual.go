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
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	virtualPinCount = 32
)

// virtualLine is the simulated state of a single line.
type virtualLine struct {
	output   bool
	high     bool
	polarity Polarity
	onEdge   func()
}

// virtualDriver simulates the GPIO lines of a board in memory.
type virtualDriver struct {
	mutex sync.Mutex
	lines map[Pin]*virtualLine
}

// NewVirtualBridge implements the bridge for a simulated board.
// Buttons are pressed with InjectEdge.
func NewVirtualBridge(log zerolog.Logger, conf Config) (API, error) {
	d := &virtualDriver{
		lines: make(map[Pin]*virtualLine),
	}
	return newBoard("virtual", conf, d, log), nil
}

// Returns number of GPIO lines
func (d *virtualDriver) PinCount() int {
	return virtualPinCount
}

// Configure the given pin as output with given initial level.
func (d *virtualDriver) ConfigureOutput(pin Pin, high bool) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.lines[pin] = &virtualLine{output: true, high: high}
	return nil
}

// Write the level of an output pin.
func (d *virtualDriver) Write(pin Pin, high bool) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	l, found := d.lines[pin]
	if !found || !l.output {
		return errors.Wrapf(InvalidPinError, "pin %d is not an output", pin)
	}
	l.high = high
	return nil
}

// Read the level of a pin.
func (d *virtualDriver) Read(pin Pin) (bool, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	l, found := d.lines[pin]
	if !found {
		return false, errors.Wrapf(InvalidPinError, "pin %d is not configured", pin)
	}
	return l.high, nil
}

// Configure the given pin as input.
// A floating input reads low.
func (d *virtualDriver) ConfigureInput(pin Pin, pull Pull, polarity Polarity, onEdge func()) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.lines[pin] = &virtualLine{
		high:     pull == PullUp,
		polarity: polarity,
		onEdge:   onEdge,
	}
	return nil
}

// inject simulates a press and release of a button that connects the
// given input to the opposite of its idle level.
func (d *virtualDriver) inject(pin Pin) error {
	idle, err := d.Read(pin)
	if err != nil {
		return err
	}
	d.drive(pin, !idle)
	d.drive(pin, idle)
	return nil
}

// drive an input line to the given level, calling the edge callback
// when the transition matches its polarity.
func (d *virtualDriver) drive(pin Pin, high bool) {
	d.mutex.Lock()
	l, found := d.lines[pin]
	if !found || l.output {
		d.mutex.Unlock()
		return
	}
	from := l.high
	l.high = high
	onEdge := l.onEdge
	matches := l.polarity.Matches(from, high)
	d.mutex.Unlock()
	if matches && onEdge != nil {
		onEdge()
	}
}

// Release all lines.
func (d *virtualDriver) Close() error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.lines = make(map[Pin]*virtualLine)
	return nil
}
