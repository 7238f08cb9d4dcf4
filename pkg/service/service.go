//    Copyright 2017-2022 Ewout Prangsma
//
//    Licensed under the Apache License, Version 2.0 (the "License");
//    you may not use this file except in compliance with the License.
//    You may obtain a copy of the License at
//
//        http://www.apache.org/licenses/LICENSE-2.0
//
//    Unless required by applicable law or agreed to in writing, software
//    distributed under the License is distributed on an "AS IS" BASIS,
//    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//    See the License for the specific language governing permissions and
//    limitations under the License.

package service

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/binkynet/ButtonWorker/model"
	"github.com/binkynet/ButtonWorker/pkg/service/bridge"
	"github.com/binkynet/ButtonWorker/pkg/service/controller"
	"github.com/binkynet/ButtonWorker/pkg/service/sched"
)

type Service interface {
	// Run the worker until the given context is cancelled.
	Run(ctx context.Context) error
	// Status returns a snapshot of the worker.
	Status() Status
	// PressButton simulates a press of the button with given index (0...).
	PressButton(index int) error
}

type Config struct {
	ProgramVersion string
	Variant        model.Variant
	Pins           model.PinMap
	// Capacity of the scheduler queue (deferred variants only)
	SchedulerQueueSize int
}

type Dependencies struct {
	Logger zerolog.Logger
	Bridge bridge.API
}

// Status is a snapshot of the worker.
type Status struct {
	ProgramVersion string            `json:"program_version"`
	Ready          bool              `json:"ready"`
	StartedAt      time.Time         `json:"started_at"`
	Controller     controller.Status `json:"controller"`
	Board          bridge.Status     `json:"board"`
}

type service struct {
	Config
	Dependencies

	ctrl      *controller.Controller
	queue     *sched.Queue
	ready     atomic.Bool
	startedAt time.Time
}

// NewService creates a Service instance and returns it.
func NewService(conf Config, deps Dependencies) (Service, error) {
	deps.Logger = deps.Logger.With().Str("component", "service").Logger()
	if deps.Bridge == nil {
		return nil, errors.New("bridge is required")
	}
	var queue *sched.Queue
	if conf.Variant.Deferred() {
		queue = sched.NewQueue(conf.SchedulerQueueSize)
	}
	ctrl, err := controller.New(controller.Config{
		Variant: conf.Variant,
		Pins:    conf.Pins,
	}, controller.Dependencies{
		Log:       deps.Logger,
		Bridge:    deps.Bridge,
		Scheduler: queue,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create controller")
	}
	return &service{
		Config:       conf,
		Dependencies: deps,
		ctrl:         ctrl,
		queue:        queue,
		startedAt:    time.Now(),
	}, nil
}

// Run brings up the board in a fixed order, then services interrupts
// until the given context is canceled.
// Any error during bring-up is returned before the idle loop is entered.
func (s *service) Run(ctx context.Context) error {
	log := s.Logger
	hal := s.Bridge
	defer hal.Close()

	// Logging
	if err := hal.Log().Init(); err != nil {
		return errors.Wrap(err, "failed to initialize logging")
	}
	hal.Log().Info("Button worker started")

	// GPIO
	if err := hal.GPIO().Init(); err != nil {
		return errors.Wrap(err, "failed to initialize GPIO")
	}
	if err := s.ctrl.Configure(ctx); err != nil {
		return errors.Wrap(err, "failed to configure pins")
	}

	// Clock & timers
	if s.Variant.UsesTimers() {
		if err := hal.Clock().Init(); err != nil {
			return errors.Wrap(err, "failed to initialize clock")
		}
		if err := hal.Clock().RequestLowFrequencyClock(); err != nil {
			return errors.Wrap(err, "failed to request low frequency clock")
		}
		if err := hal.Timers().Init(); err != nil {
			return errors.Wrap(err, "failed to initialize timers")
		}
		if err := s.ctrl.CreateTimers(); err != nil {
			return errors.Wrap(err, "failed to create timers")
		}
	}

	unsubscribe := hal.SubscribeOutputChanges(s.onOutputChange)
	defer unsubscribe()

	s.ready.Store(true)
	defer s.ready.Store(false)
	log.Info().
		Str("board", hal.Name()).
		Int("variant", int(s.Variant)).
		Msg("Entering idle loop")

	for {
		if err := hal.WaitForInterrupt(ctx); err != nil {
			if ctx.Err() != nil {
				// Context canceled
				log.Debug().Msg("Leaving idle loop")
				return nil
			}
			return errors.Wrap(err, "wait for interrupt failed")
		}
		wakeupsTotal.Inc()
		if s.queue != nil {
			s.queue.Execute()
		}
	}
}

// onOutputChange is called for every change of an output line.
func (s *service) onOutputChange(change bridge.OutputChange) {
	role, found := s.Pins.RoleOf(uint32(change.Pin))
	if !found {
		return
	}
	outputChangesTotal.WithLabelValues(string(role)).Inc()
	s.Logger.Debug().
		Str("role", string(role)).
		Bool("high", change.High).
		Msg("output changed")
}

// Status returns a snapshot of the worker.
func (s *service) Status() Status {
	return Status{
		ProgramVersion: s.ProgramVersion,
		Ready:          s.ready.Load(),
		StartedAt:      s.startedAt,
		Controller:     s.ctrl.Status(),
		Board:          s.Bridge.Status(),
	}
}

// PressButton simulates a press of the button with given index (0...).
func (s *service) PressButton(index int) error {
	pressRequestsTotal.Inc()
	if !s.ready.Load() {
		return errors.Wrap(bridge.InvalidStateError, "worker not ready")
	}
	return s.ctrl.PressButton(index)
}
