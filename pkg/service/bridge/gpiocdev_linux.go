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

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/warthog618/go-gpiocdev"
)

// gpiocdevDriver accesses lines through the Linux GPIO character device.
type gpiocdevDriver struct {
	mutex sync.Mutex
	chip  *gpiocdev.Chip
	conf  Config
	lines map[Pin]*gpiocdev.Line
}

// NewGPIOCDevBridge implements the bridge for boards that expose their
// GPIO through a Linux GPIO character device (e.g. gpiochip0).
func NewGPIOCDevBridge(log zerolog.Logger, conf Config, chipName string) (API, error) {
	chip, err := gpiocdev.NewChip(chipName, gpiocdev.WithConsumer(consumerName))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open chip '%s'", chipName)
	}
	d := &gpiocdevDriver{
		chip:  chip,
		conf:  conf,
		lines: make(map[Pin]*gpiocdev.Line),
	}
	return newBoard("gpiocdev", conf, d, log), nil
}

// Returns number of GPIO lines
func (d *gpiocdevDriver) PinCount() int {
	return d.chip.Lines()
}

// Configure the given pin as output with given initial level.
func (d *gpiocdevDriver) ConfigureOutput(pin Pin, high bool) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	l, err := d.chip.RequestLine(int(pin), gpiocdev.AsOutput(levelToInt(high)))
	if err != nil {
		return maskAny(err)
	}
	d.lines[pin] = l
	return nil
}

// Write the level of an output pin.
func (d *gpiocdevDriver) Write(pin Pin, high bool) error {
	l, err := d.line(pin)
	if err != nil {
		return err
	}
	return maskAny(l.SetValue(levelToInt(high)))
}

// Read the level of a pin.
func (d *gpiocdevDriver) Read(pin Pin) (bool, error) {
	l, err := d.line(pin)
	if err != nil {
		return false, err
	}
	v, err := l.Value()
	if err != nil {
		return false, maskAny(err)
	}
	return v != 0, nil
}

// Configure the given pin as input with edge detection.
func (d *gpiocdevDriver) ConfigureInput(pin Pin, pull Pull, polarity Polarity, onEdge func()) error {
	opts := []gpiocdev.LineReqOption{
		gpiocdev.AsInput,
		gpiocdev.WithEventHandler(func(evt gpiocdev.LineEvent) {
			onEdge()
		}),
	}
	switch pull {
	case PullUp:
		opts = append(opts, gpiocdev.WithPullUp)
	case PullDown:
		opts = append(opts, gpiocdev.WithPullDown)
	default:
		opts = append(opts, gpiocdev.WithBiasDisabled)
	}
	switch polarity {
	case PolarityHiToLo:
		opts = append(opts, gpiocdev.WithFallingEdge)
	case PolarityLoToHi:
		opts = append(opts, gpiocdev.WithRisingEdge)
	default:
		opts = append(opts, gpiocdev.WithBothEdges)
	}
	if d.conf.Debounce > 0 {
		opts = append(opts, gpiocdev.WithDebounce(d.conf.Debounce))
	}

	d.mutex.Lock()
	defer d.mutex.Unlock()
	l, err := d.chip.RequestLine(int(pin), opts...)
	if err != nil {
		return maskAny(err)
	}
	d.lines[pin] = l
	return nil
}

// Release all lines.
func (d *gpiocdevDriver) Close() error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	for pin, l := range d.lines {
		l.Reconfigure(gpiocdev.AsInput)
		l.Close()
		delete(d.lines, pin)
	}
	return maskAny(d.chip.Close())
}

func (d *gpiocdevDriver) line(pin Pin) (*gpiocdev.Line, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	l, found := d.lines[pin]
	if !found {
		return nil, errors.Wrapf(InvalidPinError, "pin %d is not requested", pin)
	}
	return l, nil
}

func levelToInt(high bool) int {
	if high {
		return 1
	}
	return 0
}
