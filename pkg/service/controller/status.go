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
	"github.com/binkynet/ButtonWorker/model"
	"github.com/binkynet/ButtonWorker/pkg/service/bridge"
)

// LEDStatus holds the state of a single LED.
type LEDStatus struct {
	Role model.Role `json:"role"`
	Pin  uint32     `json:"pin"`
	On   bool       `json:"on"`
}

// ButtonStatus holds the configuration of a single button.
type ButtonStatus struct {
	Role   model.Role `json:"role"`
	Pin    uint32     `json:"pin"`
	Action string     `json:"action"`
}

// TimerStatus holds the state of a controller timer.
type TimerStatus struct {
	Running     bool   `json:"running"`
	RemainingMs uint64 `json:"remaining_ms,omitempty"`
}

// Status is a snapshot of the controller.
type Status struct {
	Variant       model.Variant  `json:"variant"`
	Description   string         `json:"description"`
	LEDs          []LEDStatus    `json:"leds"`
	Buttons       []ButtonStatus `json:"buttons"`
	AccumulatorMs uint32         `json:"accumulator_ms"`
	RepeatTimer   *TimerStatus   `json:"repeat_timer,omitempty"`
	OneShotTimer  *TimerStatus   `json:"single_shot_timer,omitempty"`
}

// Status returns a snapshot of the controller.
func (c *Controller) Status() Status {
	info, _ := c.variant.Info()
	result := Status{
		Variant:       c.variant,
		Description:   info.Description,
		AccumulatorMs: c.Accumulator(),
	}
	for i := 0; i < model.LEDCount; i++ {
		on, _ := c.LEDOn(i)
		result.LEDs = append(result.LEDs, LEDStatus{
			Role: model.LEDRole(i),
			Pin:  c.pins.LED(i),
			On:   on,
		})
	}
	for i := 0; i < model.ButtonCount; i++ {
		result.Buttons = append(result.Buttons, ButtonStatus{
			Role:   model.ButtonRole(i),
			Pin:    c.pins.Button(i),
			Action: c.actions[i].Name,
		})
	}
	if c.timersCreated.Load() {
		result.RepeatTimer = c.timerStatus(c.repeatTimer)
		result.OneShotTimer = c.timerStatus(c.oneShotTimer)
	}
	return result
}

func (c *Controller) timerStatus(id bridge.TimerID) *TimerStatus {
	remaining, running := c.timers.Remaining(id)
	ts := &TimerStatus{Running: running}
	if running {
		rate := uint64(c.bridge.Clock().TickRate())
		if rate > 0 {
			ts.RemainingMs = uint64(remaining) * 1000 / rate
		}
	}
	return ts
}
