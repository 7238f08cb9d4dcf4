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
	"time"

	"github.com/pkg/errors"
)

const (
	// DefaultTickRate is the frequency of the low frequency clock (32.768 kHz).
	DefaultTickRate = 32768
)

// TickSource is the hardware counter behind the low frequency clock.
type TickSource interface {
	// Start counting at the given rate (ticks per second).
	Start(rate uint32) error
	// Now returns the current counter value.
	Now() Ticks
	// SetAlarm arranges for fn to be called (from any goroutine) once the
	// counter reaches the given value. A previous alarm is replaced.
	SetAlarm(at Ticks, fn func())
	// CancelAlarm removes a previously set alarm.
	CancelAlarm()
	// Stop counting and cancel any alarm.
	Stop()
}

// lfClock implements the Clock service on top of a TickSource.
type lfClock struct {
	mutex       sync.Mutex
	source      TickSource
	rate        uint32
	initialized bool
	running     bool
}

func newLFClock(source TickSource, rate uint32) *lfClock {
	if rate == 0 {
		rate = DefaultTickRate
	}
	return &lfClock{
		source: source,
		rate:   rate,
	}
}

// Init the clock service.
func (c *lfClock) Init() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.initialized {
		return errors.Wrap(InvalidStateError, "clock already initialized")
	}
	c.initialized = true
	return nil
}

// RequestLowFrequencyClock starts the low frequency clock.
func (c *lfClock) RequestLowFrequencyClock() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if !c.initialized {
		return errors.Wrap(InvalidStateError, "clock not initialized")
	}
	if c.running {
		return nil
	}
	if err := c.source.Start(c.rate); err != nil {
		return errors.Wrap(err, "failed to start low frequency clock")
	}
	c.running = true
	return nil
}

// LowFrequencyRunning returns true once the low frequency clock is running.
func (c *lfClock) LowFrequencyRunning() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.running
}

// Now returns the current value of the low frequency counter.
func (c *lfClock) Now() Ticks {
	if !c.LowFrequencyRunning() {
		return 0
	}
	return c.source.Now()
}

// TickRate returns the number of ticks per second.
func (c *lfClock) TickRate() uint32 {
	return c.rate
}

func (c *lfClock) close() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.running {
		c.source.Stop()
		c.running = false
	}
}

// realTickSource derives ticks from the monotonic wall clock.
type realTickSource struct {
	mutex   sync.Mutex
	rate    uint32
	started time.Time
	alarm   *time.Timer
}

// NewRealTickSource creates a tick source driven by the system clock.
func NewRealTickSource() TickSource {
	return &realTickSource{}
}

func (s *realTickSource) Start(rate uint32) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.rate = rate
	s.started = time.Now()
	return nil
}

func (s *realTickSource) Now() Ticks {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.ticksSince(s.started)
}

func (s *realTickSource) ticksSince(t time.Time) Ticks {
	d := time.Since(t)
	secs := uint64(d / time.Second)
	rem := uint64(d % time.Second)
	return Ticks(secs*uint64(s.rate) + rem*uint64(s.rate)/uint64(time.Second))
}

func (s *realTickSource) SetAlarm(at Ticks, fn func()) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.alarm != nil {
		s.alarm.Stop()
	}
	now := s.ticksSince(s.started)
	var delay time.Duration
	if at > now {
		// Round up so the counter has reached `at` when the alarm fires
		delta := uint64(at - now)
		delay = time.Duration((delta*uint64(time.Second) + uint64(s.rate) - 1) / uint64(s.rate))
	}
	s.alarm = time.AfterFunc(delay, fn)
}

func (s *realTickSource) CancelAlarm() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.alarm != nil {
		s.alarm.Stop()
		s.alarm = nil
	}
}

func (s *realTickSource) Stop() {
	s.CancelAlarm()
}

// ManualTickSource is a tick source that only advances when told to.
// It is used by the virtual board in tests.
type ManualTickSource struct {
	mutex   sync.Mutex
	now     Ticks
	alarmAt Ticks
	alarmFn func()
}

// NewManualTickSource creates a tick source that starts at 0 and only
// advances on Advance.
func NewManualTickSource() *ManualTickSource {
	return &ManualTickSource{}
}

// Start is a no-op, the counter only moves on Advance.
func (s *ManualTickSource) Start(rate uint32) error {
	return nil
}

// Now returns the current counter value.
func (s *ManualTickSource) Now() Ticks {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.now
}

// SetAlarm arranges for fn to be called once the counter reaches at.
func (s *ManualTickSource) SetAlarm(at Ticks, fn func()) {
	s.mutex.Lock()
	if at <= s.now {
		s.alarmFn = nil
		s.mutex.Unlock()
		fn()
		return
	}
	s.alarmAt = at
	s.alarmFn = fn
	s.mutex.Unlock()
}

// CancelAlarm removes a previously set alarm.
func (s *ManualTickSource) CancelAlarm() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.alarmFn = nil
}

// Stop cancels any alarm.
func (s *ManualTickSource) Stop() {
	s.CancelAlarm()
}

// Advance the counter by the given number of ticks, firing the alarm
// when it is reached.
func (s *ManualTickSource) Advance(ticks Ticks) {
	s.mutex.Lock()
	s.now += ticks
	var fn func()
	if s.alarmFn != nil && s.now >= s.alarmAt {
		fn = s.alarmFn
		s.alarmFn = nil
	}
	s.mutex.Unlock()
	if fn != nil {
		fn()
	}
}
