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

package controller

import (
	"context"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/binkynet/ButtonWorker/model"
	"github.com/binkynet/ButtonWorker/pkg/service/bridge"
	"github.com/binkynet/ButtonWorker/pkg/service/sched"
)

// Config of the controller
type Config struct {
	// Behavior of the buttons
	Variant model.Variant
	// Assignment of LEDs and buttons to lines
	Pins model.PinMap
}

// Dependencies of the controller
type Dependencies struct {
	Log    zerolog.Logger
	Bridge bridge.API
	// Queue used to defer button events to the main loop.
	// Required for deferred variants.
	Scheduler *sched.Queue
}

// Controller connects the buttons to LEDs and timers.
// All event handlers run in interrupt context.
type Controller struct {
	log     zerolog.Logger
	variant model.Variant
	pins    model.PinMap
	bridge  bridge.API
	gpio    bridge.GPIO
	timers  bridge.Timers
	queue   *sched.Queue
	actions actionTable

	configured    bool
	timersCreated atomic.Bool
	repeatTimer   bridge.TimerID
	oneShotTimer  bridge.TimerID
	// Single-shot timeout in milliseconds
	accumulator atomic.Uint32
}

// New creates a new controller.
func New(conf Config, deps Dependencies) (*Controller, error) {
	if err := conf.Variant.Validate(); err != nil {
		return nil, err
	}
	if err := conf.Pins.Validate(); err != nil {
		return nil, err
	}
	if deps.Bridge == nil {
		return nil, errors.New("bridge is required")
	}
	if conf.Variant.Deferred() && deps.Scheduler == nil {
		return nil, errors.Errorf("variant %d requires a scheduler", int(conf.Variant))
	}
	actions, err := actionsFor(conf.Variant)
	if err != nil {
		return nil, err
	}
	return &Controller{
		log: deps.Log.With().
			Str("component", "controller").
			Int("variant", int(conf.Variant)).
			Logger(),
		variant: conf.Variant,
		pins:    conf.Pins,
		bridge:  deps.Bridge,
		gpio:    deps.Bridge.GPIO(),
		timers:  deps.Bridge.Timers(),
		queue:   deps.Scheduler,
		actions: actions,
	}, nil
}

// Variant returns the behavior of the buttons.
func (c *Controller) Variant() model.Variant {
	return c.variant
}

// Configure is called once to program the LED and button lines.
// LEDs are configured as outputs and switched off, buttons as inputs
// with pull-up that interrupt on a falling edge.
func (c *Controller) Configure(ctx context.Context) error {
	if c.configured {
		return errors.Wrap(bridge.InvalidStateError, "already configured")
	}
	for i := 0; i < model.LEDCount; i++ {
		pin := bridge.Pin(c.pins.LED(i))
		if err := c.gpio.ConfigureOutput(pin, c.ledLevel(false)); err != nil {
			return errors.Wrapf(err, "failed to configure %s", model.LEDRole(i))
		}
	}
	for i := 0; i < model.ButtonCount; i++ {
		pin := bridge.Pin(c.pins.Button(i))
		if err := c.gpio.ConfigureInput(pin, bridge.PullUp, bridge.PolarityHiToLo, c.OnEdge); err != nil {
			return errors.Wrapf(err, "failed to configure %s", model.ButtonRole(i))
		}
	}
	for i := 0; i < model.ButtonCount; i++ {
		pin := bridge.Pin(c.pins.Button(i))
		if err := c.gpio.EnableInterrupt(pin); err != nil {
			return errors.Wrapf(err, "failed to enable interrupt of %s", model.ButtonRole(i))
		}
	}
	c.configured = true
	c.log.Debug().Msg("configured pins")
	return nil
}

// CreateTimers creates the repeating and single-shot timers.
// The timer service must have been initialized.
func (c *Controller) CreateTimers() error {
	if c.timersCreated.Load() {
		return errors.Wrap(bridge.InvalidStateError, "timers already created")
	}
	repeat, err := c.timers.Create(bridge.TimerModeRepeated, c.OnRepeatExpiry)
	if err != nil {
		return errors.Wrap(err, "failed to create repeating timer")
	}
	oneShot, err := c.timers.Create(bridge.TimerModeSingleShot, c.OnOneShotExpiry)
	if err != nil {
		return errors.Wrap(err, "failed to create single-shot timer")
	}
	c.repeatTimer, c.oneShotTimer = repeat, oneShot
	c.timersCreated.Store(true)
	return nil
}

// OnEdge is called in interrupt context for every edge on a button line.
// The polarity is not used; all buttons interrupt on the same edge.
func (c *Controller) OnEdge(pin bridge.Pin, polarity bridge.Polarity) {
	index, found := c.pins.ButtonIndex(uint32(pin))
	if !found {
		unknownEdgesTotal.Inc()
		c.log.Debug().Uint32("pin", uint32(pin)).Msg("edge on line without button")
		return
	}
	buttonEventsTotal.WithLabelValues(string(model.ButtonRole(index))).Inc()
	if c.variant.Deferred() {
		if err := c.queue.Put(func() { c.dispatch(index) }); err != nil {
			deferErrorsTotal.Inc()
			c.log.Warn().Err(err).Str("button", string(model.ButtonRole(index))).Msg("failed to defer button event")
		}
		return
	}
	c.dispatch(index)
}

// dispatch runs the action of the button with given index.
func (c *Controller) dispatch(index int) {
	action := c.actions[index]
	if err := action.run(c); err != nil {
		actionErrorsTotal.WithLabelValues(action.Name).Inc()
		c.log.Error().Err(err).
			Str("button", string(model.ButtonRole(index))).
			Str("action", action.Name).
			Msg("action failed")
		return
	}
	c.log.Debug().
		Str("button", string(model.ButtonRole(index))).
		Str("action", action.Name).
		Msg("button pressed")
}

// PressButton simulates a press of the button with given index (0...).
func (c *Controller) PressButton(index int) error {
	if index < 0 || index >= model.ButtonCount {
		return errors.Wrapf(bridge.InvalidPinError, "invalid button index %d", index)
	}
	return c.bridge.InjectEdge(bridge.Pin(c.pins.Button(index)))
}

// Accumulator returns the current single-shot timeout in milliseconds.
func (c *Controller) Accumulator() uint32 {
	return c.accumulator.Load()
}

// LEDOn returns true if the LED with given index (0...) is lit.
func (c *Controller) LEDOn(index int) (bool, error) {
	high, err := c.gpio.Level(bridge.Pin(c.pins.LED(index)))
	if err != nil {
		return false, err
	}
	return high != c.pins.LEDActiveLow, nil
}

// setLED switches the LED with given index (0...) on or off.
func (c *Controller) setLED(index int, on bool) error {
	pin := bridge.Pin(c.pins.LED(index))
	if c.ledLevel(on) {
		return c.gpio.Set(pin)
	}
	return c.gpio.Clear(pin)
}

// toggleLED inverts the LED with given index (0...).
func (c *Controller) toggleLED(index int) error {
	return c.gpio.Toggle(bridge.Pin(c.pins.LED(index)))
}

// ledLevel returns the line level that puts a LED in the given state.
func (c *Controller) ledLevel(on bool) bool {
	return on != c.pins.LEDActiveLow
}

// checkTimers verifies that the timers have been created.
func (c *Controller) checkTimers() error {
	if !c.timersCreated.Load() {
		return errors.Wrap(bridge.InvalidStateError, "timers not created")
	}
	return nil
}
