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
	"sync"

	"github.com/ecc1/gpio"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// rpiDriver accesses lines of a Raspberry Pi through sysfs.
// Sysfs offers no edge waiting that fits our interrupt model,
// so inputs are polled.
type rpiDriver struct {
	mutex   sync.Mutex
	outputs map[Pin]*rpiOutput
	inputs  map[Pin]gpio.InputPin
	poller  *inputPoller
}

type rpiOutput struct {
	pin   gpio.OutputPin
	value bool
}

// NewRaspberryPiBridge implements the bridge for Raspberry PI's
func NewRaspberryPiBridge(log zerolog.Logger, conf Config) (API, error) {
	d := &rpiDriver{
		outputs: make(map[Pin]*rpiOutput),
		inputs:  make(map[Pin]gpio.InputPin),
		poller:  newInputPoller(log.With().Str("component", "rpi-poller").Logger()),
	}
	return newBoard("rpi", conf, d, log), nil
}

// Returns number of local pins
func (d *rpiDriver) PinCount() int {
	return bcmPinCount
}

// Configure the given pin as output with given initial level.
func (d *rpiDriver) ConfigureOutput(pin Pin, high bool) error {
	activeLow := false
	p, err := gpio.Output(int(pin), activeLow, high)
	if err != nil {
		return errors.Wrapf(err, "Output[%d] failed", pin)
	}
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.outputs[pin] = &rpiOutput{pin: p, value: high}
	return nil
}

// Write the level of an output pin.
func (d *rpiDriver) Write(pin Pin, high bool) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	out, found := d.outputs[pin]
	if !found {
		return errors.Wrapf(InvalidPinError, "pin %d is not an output", pin)
	}
	if err := out.pin.Write(high); err != nil {
		return errors.Wrap(err, "Write failed")
	}
	out.value = high
	return nil
}

// Read the level of a pin.
// Sysfs output pins cannot be read back, so outputs return the last written level.
func (d *rpiDriver) Read(pin Pin) (bool, error) {
	d.mutex.Lock()
	out, isOutput := d.outputs[pin]
	in, isInput := d.inputs[pin]
	d.mutex.Unlock()
	switch {
	case isOutput:
		return out.value, nil
	case isInput:
		value, err := in.Read()
		if err != nil {
			return false, errors.Wrap(err, "Read failed")
		}
		return value, nil
	default:
		return false, errors.Wrapf(InvalidPinError, "pin %d is not configured", pin)
	}
}

// Configure the given pin as input.
// Pull resistors cannot be configured through sysfs; they must be
// set up by the device tree (the default for buttons is pull-up).
func (d *rpiDriver) ConfigureInput(pin Pin, pull Pull, polarity Polarity, onEdge func()) error {
	activeLow := false
	p, err := gpio.Input(int(pin), activeLow)
	if err != nil {
		return errors.Wrapf(err, "Input[%d] failed", pin)
	}
	d.mutex.Lock()
	d.inputs[pin] = p
	d.mutex.Unlock()
	return d.poller.add(pin, polarity, p.Read, onEdge)
}

// Release all lines.
func (d *rpiDriver) Close() error {
	d.poller.stop()
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.outputs = make(map[Pin]*rpiOutput)
	d.inputs = make(map[Pin]gpio.InputPin)
	return nil
}
