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
	"sort"
	"strconv"
	"sync"
	"time"

	aerr "github.com/ewoutp/go-aggregate-error"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Config of a board, common to all board types.
type Config struct {
	// Source of the low frequency clock. Defaults to the system clock.
	TickSource TickSource
	// Frequency of the low frequency clock. Defaults to DefaultTickRate.
	TickRate uint32
	// Debounce period of input lines (if supported by the board)
	Debounce time.Duration
}

const (
	// Consumer label used when requesting lines
	consumerName = "button-worker"
	// Number of GPIO lines of the Broadcom SoC of a Raspberry Pi
	bcmPinCount = 54
)

// pinDriver is implemented by the hardware adapters of all board types.
type pinDriver interface {
	// Returns number of GPIO lines
	PinCount() int
	// Configure the given pin as output with given initial level.
	ConfigureOutput(pin Pin, high bool) error
	// Write the level of an output pin.
	Write(pin Pin, high bool) error
	// Read the level of a pin.
	Read(pin Pin) (bool, error)
	// Configure the given pin as input. The driver calls onEdge (from any
	// goroutine) for every detected transition that matches the polarity.
	ConfigureInput(pin Pin, pull Pull, polarity Polarity, onEdge func()) error
	// Release all lines.
	Close() error
}

// edgeInjector is implemented by drivers that can simulate a
// button press on their lines.
type edgeInjector interface {
	inject(pin Pin) error
}

type pinState struct {
	output   bool
	pull     Pull
	polarity Polarity
	handler  EdgeHandler
	enabled  bool
	edges    uint64
}

// board implements API on top of a pinDriver.
type board struct {
	name      string
	log       zerolog.Logger
	driver    pinDriver
	irq       *irqController
	clock     *lfClock
	timers    *timerService
	halLog    *zerologLog
	notifier  *outputNotifier
	startedAt time.Time

	mutex           sync.Mutex
	gpioInitialized bool
	pins            map[Pin]*pinState
}

func newBoard(name string, conf Config, driver pinDriver, log zerolog.Logger) *board {
	source := conf.TickSource
	if source == nil {
		source = NewRealTickSource()
	}
	irq := newIRQController()
	clock := newLFClock(source, conf.TickRate)
	return &board{
		name:      name,
		log:       log.With().Str("component", "bridge").Str("board", name).Logger(),
		driver:    driver,
		irq:       irq,
		clock:     clock,
		timers:    newTimerService(clock, irq),
		halLog:    newZerologLog(log),
		notifier:  newOutputNotifier(),
		startedAt: time.Now(),
		pins:      make(map[Pin]*pinState),
	}
}

// Name of the board type
func (b *board) Name() string { return b.name }

// Returns number of GPIO lines of the board
func (b *board) PinCount() int { return b.driver.PinCount() }

// GPIO service
func (b *board) GPIO() GPIO { return (*gpioService)(b) }

// Timer service
func (b *board) Timers() Timers { return b.timers }

// Clock service
func (b *board) Clock() Clock { return b.clock }

// Logging service
func (b *board) Log() Log { return b.halLog }

// WaitForInterrupt blocks until at least one interrupt has been serviced.
func (b *board) WaitForInterrupt(ctx context.Context) error {
	return b.irq.wait(ctx)
}

// Poll services all pending interrupts without waiting.
func (b *board) Poll() int {
	return b.irq.poll()
}

// InjectEdge raises an edge interrupt on the given input pin.
func (b *board) InjectEdge(pin Pin) error {
	b.mutex.Lock()
	st, found := b.pins[pin]
	b.mutex.Unlock()
	if !found || st.output {
		return errors.Wrapf(InvalidPinError, "pin %d is not an input", pin)
	}
	if !st.enabled {
		return errors.Wrapf(InvalidStateError, "interrupt of pin %d is not enabled", pin)
	}
	if inj, ok := b.driver.(edgeInjector); ok {
		return inj.inject(pin)
	}
	b.onEdge(pin)
	return nil
}

// SubscribeOutputChanges registers a callback for output level changes.
func (b *board) SubscribeOutputChanges(cb func(OutputChange)) context.CancelFunc {
	return b.notifier.subscribe(cb)
}

// Status returns a snapshot of the board.
func (b *board) Status() Status {
	b.mutex.Lock()
	pins := make([]PinStatus, 0, len(b.pins))
	for pin, st := range b.pins {
		pins = append(pins, PinStatus{
			Pin:              pin,
			Output:           st.output,
			InterruptEnabled: st.enabled,
			Edges:            st.edges,
		})
	}
	b.mutex.Unlock()
	sort.Slice(pins, func(i, j int) bool { return pins[i].Pin < pins[j].Pin })
	for i := range pins {
		if high, err := b.driver.Read(pins[i].Pin); err == nil {
			pins[i].High = high
		}
	}
	return Status{
		Board:              b.name,
		StartedAt:          b.startedAt,
		Pins:               pins,
		Timers:             b.timers.status(),
		ClockRunning:       b.clock.LowFrequencyRunning(),
		Ticks:              b.clock.Now(),
		InterruptsServiced: b.irq.servicedCount(),
	}
}

// Close releases all hardware resources.
func (b *board) Close() error {
	var ae aerr.AggregateError
	b.clock.close()
	b.notifier.close()
	if err := b.driver.Close(); err != nil {
		ae.Add(errors.Wrap(err, "failed to close driver"))
	}
	return ae.AsError()
}

// onEdge is called by the driver when an edge is detected on an input pin.
func (b *board) onEdge(pin Pin) {
	b.mutex.Lock()
	st, found := b.pins[pin]
	if !found || st.output || !st.enabled {
		b.mutex.Unlock()
		edgesIgnoredTotal.WithLabelValues(strconv.Itoa(int(pin))).Inc()
		return
	}
	st.edges++
	handler := st.handler
	polarity := st.polarity
	b.mutex.Unlock()

	edgesDetectedTotal.WithLabelValues(strconv.Itoa(int(pin))).Inc()
	b.irq.raise(gpioSource(pin), func() {
		handler(pin, polarity)
	})
}

// gpioSource returns the interrupt source name of the given pin.
func gpioSource(pin Pin) string {
	return fmt.Sprintf("gpio%d", pin)
}

// gpioService implements the GPIO service of a board.
type gpioService board

// Init the GPIO service.
func (g *gpioService) Init() error {
	b := (*board)(g)
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if b.gpioInitialized {
		return errors.Wrap(InvalidStateError, "gpio already initialized")
	}
	b.gpioInitialized = true
	return nil
}

// checkConfigurable verifies that the given pin can be configured.
// Must be called with the board mutex locked.
func (b *board) checkConfigurable(pin Pin) error {
	if !b.gpioInitialized {
		return errors.Wrap(InvalidStateError, "gpio not initialized")
	}
	if int(pin) >= b.driver.PinCount() {
		return errors.Wrapf(InvalidPinError, "pin %d out of range [0..%d)", pin, b.driver.PinCount())
	}
	if _, found := b.pins[pin]; found {
		return errors.Wrapf(InvalidStateError, "pin %d already in use", pin)
	}
	return nil
}

// ConfigureOutput configures the given pin as output.
func (g *gpioService) ConfigureOutput(pin Pin, initialHigh bool) error {
	b := (*board)(g)
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if err := b.checkConfigurable(pin); err != nil {
		return err
	}
	if err := b.driver.ConfigureOutput(pin, initialHigh); err != nil {
		return errors.Wrapf(err, "failed to configure output pin %d", pin)
	}
	b.pins[pin] = &pinState{output: true}
	b.log.Debug().Uint32("pin", uint32(pin)).Bool("high", initialHigh).Msg("configured output")
	return nil
}

// ConfigureInput configures the given pin as input.
func (g *gpioService) ConfigureInput(pin Pin, pull Pull, polarity Polarity, handler EdgeHandler) error {
	b := (*board)(g)
	if handler == nil {
		return errors.Errorf("no edge handler for pin %d", pin)
	}
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if err := b.checkConfigurable(pin); err != nil {
		return err
	}
	if err := b.driver.ConfigureInput(pin, pull, polarity, func() { b.onEdge(pin) }); err != nil {
		return errors.Wrapf(err, "failed to configure input pin %d", pin)
	}
	b.pins[pin] = &pinState{
		pull:     pull,
		polarity: polarity,
		handler:  handler,
	}
	b.log.Debug().
		Uint32("pin", uint32(pin)).
		Str("pull", pull.String()).
		Str("polarity", polarity.String()).
		Msg("configured input")
	return nil
}

// EnableInterrupt enables edge interrupts of the given input pin.
func (g *gpioService) EnableInterrupt(pin Pin) error {
	b := (*board)(g)
	b.mutex.Lock()
	defer b.mutex.Unlock()
	st, found := b.pins[pin]
	if !found || st.output {
		return errors.Wrapf(InvalidPinError, "pin %d is not an input", pin)
	}
	st.enabled = true
	return nil
}

// Set drives the given output pin high.
func (g *gpioService) Set(pin Pin) error {
	return (*board)(g).write(pin, true)
}

// Clear drives the given output pin low.
func (g *gpioService) Clear(pin Pin) error {
	return (*board)(g).write(pin, false)
}

// Toggle inverts the level of the given output pin.
func (g *gpioService) Toggle(pin Pin) error {
	b := (*board)(g)
	if err := b.checkOutput(pin); err != nil {
		return err
	}
	high, err := b.driver.Read(pin)
	if err != nil {
		return errors.Wrapf(err, "failed to read pin %d", pin)
	}
	return b.write(pin, !high)
}

// Level reads the current level of the given pin.
func (g *gpioService) Level(pin Pin) (bool, error) {
	b := (*board)(g)
	b.mutex.Lock()
	_, found := b.pins[pin]
	b.mutex.Unlock()
	if !found {
		return false, errors.Wrapf(InvalidPinError, "pin %d is not configured", pin)
	}
	return b.driver.Read(pin)
}

// checkOutput verifies that the given pin is configured as output.
func (b *board) checkOutput(pin Pin) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if st, found := b.pins[pin]; !found || !st.output {
		return errors.Wrapf(InvalidPinError, "pin %d is not an output", pin)
	}
	return nil
}

// write the level of an output pin and publish the change.
func (b *board) write(pin Pin, high bool) error {
	if err := b.checkOutput(pin); err != nil {
		return err
	}
	id := strconv.Itoa(int(pin))
	if err := b.driver.Write(pin, high); err != nil {
		outputWriteErrorsTotal.WithLabelValues(id).Inc()
		return errors.Wrapf(err, "failed to write pin %d", pin)
	}
	outputWritesTotal.WithLabelValues(id).Inc()
	outputLevelGauge.WithLabelValues(id).Set(boolToFloat(high))
	b.notifier.publish(OutputChange{Pin: pin, High: high})
	return nil
}

func boolToFloat(v bool) float64 {
	if v {
		return 1
	}
	return 0
}
