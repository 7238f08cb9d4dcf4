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

//go:build linux

package bridge

import (
	"context"
	"strconv"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stianeikeland/go-rpio/v4"

	"github.com/binkynet/ButtonWorker/pkg/service/util"
)

// rpioDriver accesses the GPIO registers of a Raspberry Pi directly
// through /dev/gpiomem. The edge detection registers latch events,
// which are collected periodically.
type rpioDriver struct {
	mutex  sync.Mutex
	log    zerolog.Logger
	inputs map[Pin]func()
	pins   map[Pin]rpio.Pin
	cancel context.CancelFunc
}

// NewRPIOBridge implements the bridge for Raspberry PI's using
// memory mapped register access.
func NewRPIOBridge(log zerolog.Logger, conf Config) (API, error) {
	if err := rpio.Open(); err != nil {
		return nil, errors.Wrap(err, "failed to open gpio memory")
	}
	d := &rpioDriver{
		log:    log.With().Str("component", "rpio").Logger(),
		inputs: make(map[Pin]func()),
		pins:   make(map[Pin]rpio.Pin),
	}
	return newBoard("rpio", conf, d, log), nil
}

// Returns number of GPIO lines
func (d *rpioDriver) PinCount() int {
	return bcmPinCount
}

// Configure the given pin as output with given initial level.
func (d *rpioDriver) ConfigureOutput(pin Pin, high bool) error {
	p := rpio.Pin(pin)
	p.Output()
	p.Write(toRPIOState(high))
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.pins[pin] = p
	return nil
}

// Write the level of an output pin.
func (d *rpioDriver) Write(pin Pin, high bool) error {
	p, err := d.get(pin)
	if err != nil {
		return err
	}
	p.Write(toRPIOState(high))
	return nil
}

// Read the level of a pin.
func (d *rpioDriver) Read(pin Pin) (bool, error) {
	p, err := d.get(pin)
	if err != nil {
		return false, err
	}
	return p.Read() == rpio.High, nil
}

// Configure the given pin as input with edge detection.
func (d *rpioDriver) ConfigureInput(pin Pin, pull Pull, polarity Polarity, onEdge func()) error {
	p := rpio.Pin(pin)
	p.Input()
	switch pull {
	case PullUp:
		p.PullUp()
	case PullDown:
		p.PullDown()
	default:
		p.PullOff()
	}
	switch polarity {
	case PolarityHiToLo:
		p.Detect(rpio.FallEdge)
	case PolarityLoToHi:
		p.Detect(rpio.RiseEdge)
	default:
		p.Detect(rpio.AnyEdge)
	}
	// Clear events latched before configuration
	p.EdgeDetected()

	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.pins[pin] = p
	d.inputs[pin] = onEdge
	if d.cancel == nil {
		ctx, cancel := context.WithCancel(context.Background())
		d.cancel = cancel
		go util.UntilCanceled(ctx, d.log, "collect edges", d.collectEdges)
	}
	return nil
}

// collectEdges reports all latched edge events.
func (d *rpioDriver) collectEdges(ctx context.Context) error {
	var edges []func()
	d.mutex.Lock()
	for pin, onEdge := range d.inputs {
		if d.pins[pin].EdgeDetected() {
			edges = append(edges, onEdge)
			d.log.Debug().Str("pin", strconv.Itoa(int(pin))).Msg("edge detected")
		}
	}
	d.mutex.Unlock()
	for _, onEdge := range edges {
		onEdge()
	}
	return nil
}

// Release all lines.
func (d *rpioDriver) Close() error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	for pin := range d.inputs {
		d.pins[pin].Detect(rpio.NoEdge)
	}
	d.inputs = make(map[Pin]func())
	d.pins = make(map[Pin]rpio.Pin)
	return maskAny(rpio.Close())
}

func (d *rpioDriver) get(pin Pin) (rpio.Pin, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	p, found := d.pins[pin]
	if !found {
		return 0, errors.Wrapf(InvalidPinError, "pin %d is not configured", pin)
	}
	return p, nil
}

func toRPIOState(high bool) rpio.State {
	if high {
		return rpio.High
	}
	return rpio.Low
}
