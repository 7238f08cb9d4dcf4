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
	"strconv"

	"github.com/pkg/errors"

	"github.com/binkynet/ButtonWorker/pkg/service/util"
)

const (
	// Shortest timeout accepted by Timers.Start
	minTimeoutTicks = 5
	// Interrupt source of the timer service
	rtcSource = "rtc"
)

// timer is a single schedule entry of the timer service.
type timer struct {
	id       TimerID
	mode     TimerMode
	handler  TimerHandler
	period   Ticks
	deadline Ticks
	running  bool
	expiries uint64
	next     *timer
}

// timerService implements Timers with a deadline sorted list of
// running timers, served by a single alarm of the tick source.
type timerService struct {
	cs          util.CriticalSection
	clock       *lfClock
	irq         *irqController
	initialized bool
	timers      []*timer
	// Running timers, sorted by deadline
	queue *timer
}

func newTimerService(clock *lfClock, irq *irqController) *timerService {
	return &timerService{
		clock: clock,
		irq:   irq,
	}
}

// Init the timer service.
func (s *timerService) Init() error {
	if !s.clock.LowFrequencyRunning() {
		return maskAny(ClockNotRunningError)
	}
	var err error
	s.cs.Do(func() {
		if s.initialized {
			err = errors.Wrap(InvalidStateError, "timers already initialized")
			return
		}
		s.initialized = true
	})
	return err
}

// Create a new timer with given mode and expiry handler.
func (s *timerService) Create(mode TimerMode, handler TimerHandler) (TimerID, error) {
	if handler == nil {
		return 0, errors.New("timer handler is nil")
	}
	var id TimerID
	var err error
	s.cs.Do(func() {
		if !s.initialized {
			err = errors.Wrap(InvalidStateError, "timers not initialized")
			return
		}
		id = TimerID(len(s.timers))
		s.timers = append(s.timers, &timer{
			id:      id,
			mode:    mode,
			handler: handler,
		})
	})
	if err != nil {
		return 0, err
	}
	timersCreatedTotal.Inc()
	return id, nil
}

// Start (or restart) the given timer.
func (s *timerService) Start(id TimerID, timeout Ticks) error {
	if timeout < minTimeoutTicks {
		return errors.Wrapf(InvalidTimeoutError, "timeout %d is below minimum of %d ticks", timeout, minTimeoutTicks)
	}
	now := s.clock.Now()
	var err error
	s.cs.Do(func() {
		var t *timer
		t, err = s.get(id)
		if err != nil {
			return
		}
		if t.running {
			s.remove(t)
		}
		t.period = timeout
		t.deadline = now + timeout
		t.running = true
		s.insert(t)
	})
	if err != nil {
		return err
	}
	timerStartsTotal.WithLabelValues(strconv.Itoa(int(id))).Inc()
	s.rearm()
	return nil
}

// Stop the given timer.
func (s *timerService) Stop(id TimerID) error {
	var err error
	s.cs.Do(func() {
		var t *timer
		t, err = s.get(id)
		if err != nil || !t.running {
			return
		}
		s.remove(t)
		t.running = false
	})
	if err != nil {
		return err
	}
	timerStopsTotal.WithLabelValues(strconv.Itoa(int(id))).Inc()
	s.rearm()
	return nil
}

// MsToTicks converts a number of milliseconds to timer ticks (rounded).
func (s *timerService) MsToTicks(ms uint32) Ticks {
	rate := uint64(s.clock.TickRate())
	return Ticks((uint64(ms)*rate + 500) / 1000)
}

// Remaining returns the number of ticks until the next expiry of the given timer.
func (s *timerService) Remaining(id TimerID) (Ticks, bool) {
	now := s.clock.Now()
	var remaining Ticks
	var running bool
	s.cs.Do(func() {
		t, err := s.get(id)
		if err != nil || !t.running {
			return
		}
		running = true
		if t.deadline > now {
			remaining = t.deadline - now
		}
	})
	return remaining, running
}

// status returns the state of all created timers.
func (s *timerService) status() []TimerStatus {
	now := s.clock.Now()
	var result []TimerStatus
	s.cs.Do(func() {
		for _, t := range s.timers {
			ts := TimerStatus{
				ID:       t.id,
				Mode:     t.mode.String(),
				Running:  t.running,
				Expiries: t.expiries,
			}
			if t.running && t.deadline > now {
				ts.Remaining = t.deadline - now
			}
			result = append(result, ts)
		}
	})
	return result
}

// get the timer with given ID. Must be called inside the critical section.
func (s *timerService) get(id TimerID) (*timer, error) {
	if !s.initialized {
		return nil, errors.Wrap(InvalidStateError, "timers not initialized")
	}
	if id < 0 || int(id) >= len(s.timers) {
		return nil, errors.Wrapf(InvalidTimerError, "timer %d", id)
	}
	return s.timers[id], nil
}

// insert the given timer in deadline order. Timers with equal
// deadlines expire in the order they were started.
func (s *timerService) insert(t *timer) {
	if s.queue == nil || t.deadline < s.queue.deadline {
		t.next = s.queue
		s.queue = t
		return
	}
	current := s.queue
	for current.next != nil && current.next.deadline <= t.deadline {
		current = current.next
	}
	t.next = current.next
	current.next = t
}

// remove the given timer from the queue.
func (s *timerService) remove(t *timer) {
	if s.queue == t {
		s.queue = t.next
		t.next = nil
		return
	}
	for current := s.queue; current != nil; current = current.next {
		if current.next == t {
			current.next = t.next
			t.next = nil
			return
		}
	}
}

// rearm programs the alarm of the tick source for the first deadline.
func (s *timerService) rearm() {
	var deadline Ticks
	found := false
	s.cs.Do(func() {
		if s.queue != nil {
			deadline = s.queue.deadline
			found = true
		}
	})
	if !found {
		s.clock.source.CancelAlarm()
		return
	}
	s.clock.source.SetAlarm(deadline, func() {
		s.irq.raise(rtcSource, s.dispatch)
	})
}

// dispatch calls the handlers of all expired timers.
// Only timers still queued at dispatch time can expire, so a restart
// or stop before dispatch supersedes the earlier deadline.
// Runs in interrupt context.
func (s *timerService) dispatch() {
	for {
		now := s.clock.Now()
		var expired *timer
		s.cs.Do(func() {
			t := s.queue
			if t == nil || t.deadline > now {
				return
			}
			s.queue = t.next
			t.next = nil
			if t.mode == TimerModeRepeated {
				t.deadline += t.period
				s.insert(t)
			} else {
				t.running = false
			}
			t.expiries++
			expired = t
		})
		if expired == nil {
			break
		}
		timerExpiriesTotal.WithLabelValues(strconv.Itoa(int(expired.id))).Inc()
		expired.handler()
	}
	s.rearm()
}
