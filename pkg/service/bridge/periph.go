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
	"fmt"
	"sync"
	"time"

	aerr "github.com/ewoutp/go-aggregate-error"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

const (
	// Time to wait for an edge before checking for cancellation
	periphEdgeTimeout = time.Millisecond * 100
)

// periphDriver accesses lines through the periph.io host drivers.
type periphDriver struct {
	mutex  sync.Mutex
	log    zerolog.Logger
	pins   map[Pin]gpio.PinIO
	ctx    context.Context
	cancel context.CancelFunc
}

// NewPeriphBridge implements the bridge for boards supported by periph.io.
// Pins are addressed by their GPIO number (GPIO<n>).
func NewPeriphBridge(log zerolog.Logger, conf Config) (API, error) {
	if _, err := host.Init(); err != nil {
		return nil, errors.Wrap(err, "failed to initialize periph host")
	}
	ctx, cancel := context.WithCancel(context.Background())
	d := &periphDriver{
		log:    log.With().Str("component", "periph").Logger(),
		pins:   make(map[Pin]gpio.PinIO),
		ctx:    ctx,
		cancel: cancel,
	}
	return newBoard("periph", conf, d, log), nil
}

// Returns number of GPIO lines
func (d *periphDriver) PinCount() int {
	return bcmPinCount
}

// lookup the periph pin with given number.
func (d *periphDriver) lookup(pin Pin) (gpio.PinIO, error) {
	name := fmt.Sprintf("GPIO%d", pin)
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, errors.Wrapf(InvalidPinError, "pin '%s' not found", name)
	}
	return p, nil
}

// Configure the given pin as output with given initial level.
func (d *periphDriver) ConfigureOutput(pin Pin, high bool) error {
	p, err := d.lookup(pin)
	if err != nil {
		return err
	}
	if err := p.Out(gpio.Level(high)); err != nil {
		return maskAny(err)
	}
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.pins[pin] = p
	return nil
}

// Write the level of an output pin.
func (d *periphDriver) Write(pin Pin, high bool) error {
	p, err := d.get(pin)
	if err != nil {
		return err
	}
	return maskAny(p.Out(gpio.Level(high)))
}

// Read the level of a pin.
func (d *periphDriver) Read(pin Pin) (bool, error) {
	p, err := d.get(pin)
	if err != nil {
		return false, err
	}
	return p.Read() == gpio.High, nil
}

// Configure the given pin as input with edge detection.
func (d *periphDriver) ConfigureInput(pin Pin, pull Pull, polarity Polarity, onEdge func()) error {
	p, err := d.lookup(pin)
	if err != nil {
		return err
	}
	periphPull := gpio.Float
	switch pull {
	case PullUp:
		periphPull = gpio.PullUp
	case PullDown:
		periphPull = gpio.PullDown
	}
	edge := gpio.BothEdges
	switch polarity {
	case PolarityHiToLo:
		edge = gpio.FallingEdge
	case PolarityLoToHi:
		edge = gpio.RisingEdge
	}
	if err := p.In(periphPull, edge); err != nil {
		return maskAny(err)
	}
	d.mutex.Lock()
	d.pins[pin] = p
	d.mutex.Unlock()

	go d.watchEdges(p, onEdge)
	return nil
}

// watchEdges waits for edges on the given pin until the driver is closed.
func (d *periphDriver) watchEdges(p gpio.PinIO, onEdge func()) {
	for {
		if d.ctx.Err() != nil {
			return
		}
		if p.WaitForEdge(periphEdgeTimeout) {
			onEdge()
		}
	}
}

// Release all lines.
func (d *periphDriver) Close() error {
	d.cancel()
	d.mutex.Lock()
	defer d.mutex.Unlock()
	var ae aerr.AggregateError
	for pin, p := range d.pins {
		if err := p.Halt(); err != nil {
			ae.Add(errors.Wrapf(err, "failed to halt pin %d", pin))
		}
		delete(d.pins, pin)
	}
	return ae.AsError()
}

func (d *periphDriver) get(pin Pin) (gpio.PinIO, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	p, found := d.pins[pin]
	if !found {
		return nil, errors.Wrapf(InvalidPinError, "pin %d is not configured", pin)
	}
	return p, nil
}
