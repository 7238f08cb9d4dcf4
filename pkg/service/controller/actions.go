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
	"math"

	"github.com/pkg/errors"

	"github.com/binkynet/ButtonWorker/model"
)

const (
	// Period of the repeating timer in milliseconds
	RepeatPeriodMs = 200
	// Amount added to the single-shot timeout per BUTTON_3 press, in milliseconds
	AccumulatorStepMs = 1000
)

const (
	led1 = 0
	led2 = 1
)

// Action is what happens when a button is pressed.
type Action struct {
	// Short name, used in logs and metrics
	Name string
	run  func(c *Controller) error
}

// actionTable maps button indexes (0...) to actions.
type actionTable [model.ButtonCount]Action

var (
	// Buttons switch LED_1 and LED_2 on and off
	ledActions = actionTable{
		{Name: "led1-on", run: func(c *Controller) error { return c.setLED(led1, true) }},
		{Name: "led1-off", run: func(c *Controller) error { return c.setLED(led1, false) }},
		{Name: "led2-on", run: func(c *Controller) error { return c.setLED(led2, true) }},
		{Name: "led2-off", run: func(c *Controller) error { return c.setLED(led2, false) }},
	}
	// Buttons control the timers
	timerActions = actionTable{
		{Name: "start-repeat", run: (*Controller).startRepeat},
		{Name: "stop-repeat", run: (*Controller).stopRepeat},
		{Name: "start-single-shot", run: (*Controller).startSingleShot},
		{Name: "led2-off", run: func(c *Controller) error { return c.setLED(led2, false) }},
	}
)

// actionsFor returns the action table of the given variant.
func actionsFor(v model.Variant) (actionTable, error) {
	switch v {
	case model.VariantDirect, model.VariantScheduled:
		return ledActions, nil
	case model.VariantTimers:
		return timerActions, nil
	default:
		return actionTable{}, errors.Wrapf(model.ValidationError, "invalid variant %d", int(v))
	}
}

// startRepeat starts (or restarts) the repeating timer.
func (c *Controller) startRepeat() error {
	if err := c.checkTimers(); err != nil {
		return err
	}
	return c.timers.Start(c.repeatTimer, c.timers.MsToTicks(RepeatPeriodMs))
}

// stopRepeat stops the repeating timer.
func (c *Controller) stopRepeat() error {
	if err := c.checkTimers(); err != nil {
		return err
	}
	return c.timers.Stop(c.repeatTimer)
}

// startSingleShot grows the timeout accumulator and (re)starts the
// single-shot timer with the new timeout. A pending expiry is replaced.
func (c *Controller) startSingleShot() error {
	if err := c.checkTimers(); err != nil {
		return err
	}
	timeout := c.accumulator.Load()
	if timeout <= math.MaxUint32-AccumulatorStepMs {
		timeout += AccumulatorStepMs
		c.accumulator.Store(timeout)
		accumulatorGauge.Set(float64(timeout))
	}
	return c.timers.Start(c.oneShotTimer, c.timers.MsToTicks(timeout))
}

// OnRepeatExpiry is called in interrupt context when the repeating
// timer expires. It toggles LED_1.
func (c *Controller) OnRepeatExpiry() {
	if err := c.toggleLED(led1); err != nil {
		actionErrorsTotal.WithLabelValues("toggle-led1").Inc()
		c.log.Error().Err(err).Msg("failed to toggle LED_1")
	}
}

// OnOneShotExpiry is called in interrupt context when the single-shot
// timer expires. It switches LED_2 off.
func (c *Controller) OnOneShotExpiry() {
	if err := c.setLED(led2, false); err != nil {
		actionErrorsTotal.WithLabelValues("led2-off").Inc()
		c.log.Error().Err(err).Msg("failed to switch LED_2 off")
	}
}
