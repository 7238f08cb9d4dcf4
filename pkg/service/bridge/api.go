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
	"time"
)

// API of the bridge, the hardware abstraction layer (HAL) that
// the button worker is built upon.
// It groups the GPIO, timer, clock and logging services of a board
// together with the low power wait primitive.
type API interface {
	// Name of the board type
	Name() string
	// Returns number of GPIO lines of the board
	PinCount() int

	// GPIO service
	GPIO() GPIO
	// Timer service
	Timers() Timers
	// Clock service
	Clock() Clock
	// Logging service
	Log() Log

	// WaitForInterrupt blocks until at least one interrupt has been
	// raised, then services all pending interrupts in the context
	// of the caller. Returns early when the given context is canceled.
	WaitForInterrupt(ctx context.Context) error
	// Poll services all pending interrupts without waiting.
	// Returns the number of interrupts serviced.
	Poll() int

	// InjectEdge raises an edge interrupt on the given input pin as if
	// the hardware detected it.
	InjectEdge(pin Pin) error
	// SubscribeOutputChanges registers a callback that is invoked
	// (outside interrupt context) for every output level change.
	SubscribeOutputChanges(cb func(OutputChange)) context.CancelFunc
	// Status returns a snapshot of the board.
	Status() Status

	// Close releases all hardware resources.
	Close() error
}

// GPIO service of the HAL.
type GPIO interface {
	// Init the GPIO service. Must be called before any pin is configured.
	Init() error
	// ConfigureOutput configures the given pin as output with given initial level.
	ConfigureOutput(pin Pin, initialHigh bool) error
	// ConfigureInput configures the given pin as input with given pull
	// and edge sensitivity. The handler is called in interrupt context
	// for every detected edge once the interrupt has been enabled.
	ConfigureInput(pin Pin, pull Pull, polarity Polarity, handler EdgeHandler) error
	// EnableInterrupt enables edge interrupts of the given input pin.
	EnableInterrupt(pin Pin) error
	// Set drives the given output pin high.
	Set(pin Pin) error
	// Clear drives the given output pin low.
	Clear(pin Pin) error
	// Toggle inverts the level of the given output pin.
	Toggle(pin Pin) error
	// Level reads the current level of the given pin.
	Level(pin Pin) (bool, error)
}

// Timers is the tick based timer service of the HAL.
type Timers interface {
	// Init the timer service.
	// Requires a running low frequency clock.
	Init() error
	// Create a new timer with given mode and expiry handler.
	// The handler is called in interrupt context.
	Create(mode TimerMode, handler TimerHandler) (TimerID, error)
	// Start (or restart) the given timer.
	// A pending expiry of a running timer is replaced.
	Start(id TimerID, timeout Ticks) error
	// Stop the given timer. Stopping an idle timer is not an error.
	Stop(id TimerID) error
	// MsToTicks converts a number of milliseconds to timer ticks.
	MsToTicks(ms uint32) Ticks
	// Remaining returns the number of ticks until the next expiry of
	// the given timer. Returns false if the timer is not running.
	Remaining(id TimerID) (Ticks, bool)
}

// Clock service of the HAL.
type Clock interface {
	// Init the clock service.
	Init() error
	// RequestLowFrequencyClock starts the low frequency clock that
	// serves as time base of the timer service.
	RequestLowFrequencyClock() error
	// LowFrequencyRunning returns true once the low frequency clock is running.
	LowFrequencyRunning() bool
	// Now returns the current value of the low frequency counter.
	Now() Ticks
	// TickRate returns the number of ticks per second.
	TickRate() uint32
}

// Log is the logging service of the HAL.
type Log interface {
	// Init the logging backend.
	Init() error
	// Info logs the given message.
	Info(msg string)
}

// Pin identifies a single GPIO line of the board.
type Pin uint32

// Pull is the pull resistor configuration of an input pin.
type Pull uint8

const (
	PullNone Pull = iota
	PullUp
	PullDown
)

// String returns a human readable name of the pull configuration.
func (p Pull) String() string {
	switch p {
	case PullUp:
		return "pullup"
	case PullDown:
		return "pulldown"
	default:
		return "none"
	}
}

// Polarity is the edge (transition) an input interrupt is sensitive to.
type Polarity uint8

const (
	PolarityHiToLo Polarity = iota
	PolarityLoToHi
	PolarityToggle
)

// String returns a human readable name of the polarity.
func (p Polarity) String() string {
	switch p {
	case PolarityHiToLo:
		return "hitolo"
	case PolarityLoToHi:
		return "lotohi"
	case PolarityToggle:
		return "toggle"
	default:
		return fmt.Sprintf("polarity(%d)", uint8(p))
	}
}

// Matches returns true if a transition from `from` to `to` triggers this polarity.
func (p Polarity) Matches(from, to bool) bool {
	if from == to {
		return false
	}
	switch p {
	case PolarityHiToLo:
		return from && !to
	case PolarityLoToHi:
		return !from && to
	default:
		return true
	}
}

// EdgeHandler is called in interrupt context when an edge is detected
// on a configured input pin.
type EdgeHandler func(pin Pin, polarity Polarity)

// TimerMode specifies whether a timer fires once or periodically.
type TimerMode uint8

const (
	TimerModeSingleShot TimerMode = iota
	TimerModeRepeated
)

// String returns a human readable name of the timer mode.
func (m TimerMode) String() string {
	if m == TimerModeRepeated {
		return "repeated"
	}
	return "single-shot"
}

// TimerHandler is called in interrupt context when a timer expires.
type TimerHandler func()

// TimerID identifies a timer created by the timer service.
type TimerID int

// Ticks of the low frequency clock.
type Ticks uint64

// OutputChange is published when the level of an output pin changes.
type OutputChange struct {
	Pin  Pin
	High bool
}

// PinStatus holds the current state of a configured pin.
type PinStatus struct {
	Pin              Pin    `json:"pin"`
	Output           bool   `json:"output"`
	High             bool   `json:"high"`
	InterruptEnabled bool   `json:"interrupt_enabled,omitempty"`
	Edges            uint64 `json:"edges,omitempty"`
}

// TimerStatus holds the current state of a created timer.
type TimerStatus struct {
	ID        TimerID `json:"id"`
	Mode      string  `json:"mode"`
	Running   bool    `json:"running"`
	Remaining Ticks   `json:"remaining,omitempty"`
	Expiries  uint64  `json:"expiries"`
}

// Status is a snapshot of the board.
type Status struct {
	Board              string        `json:"board"`
	StartedAt          time.Time     `json:"started_at"`
	Pins               []PinStatus   `json:"pins"`
	Timers             []TimerStatus `json:"timers"`
	ClockRunning       bool          `json:"clock_running"`
	Ticks              Ticks         `json:"ticks"`
	InterruptsServiced uint64        `json:"interrupts_serviced"`
}
