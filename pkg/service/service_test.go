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

package service

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/binkynet/ButtonWorker/model"
	"github.com/binkynet/ButtonWorker/pkg/service/bridge"
)

// startService runs a service on a virtual board until the test ends.
func startService(t *testing.T, variant model.Variant) Service {
	api, err := bridge.NewVirtualBridge(zerolog.Nop(), bridge.Config{})
	require.NoError(t, err)
	svc, err := NewService(Config{
		ProgramVersion: "test",
		Variant:        variant,
		Pins:           model.DefaultPinMap(model.BoardTypeVirtual),
	}, Dependencies{
		Logger: zerolog.Nop(),
		Bridge: api,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("service did not stop")
		}
	})
	require.Eventually(t, func() bool { return svc.Status().Ready }, 5*time.Second, time.Millisecond)
	return svc
}

func ledOn(svc Service, index int) bool {
	return svc.Status().Controller.LEDs[index].On
}

func TestRunDirectVariant(t *testing.T) {
	svc := startService(t, model.VariantDirect)
	st := svc.Status()
	assert.Equal(t, "test", st.ProgramVersion)
	assert.False(t, st.Board.ClockRunning, "clock is only requested when timers are used")
	for i := 0; i < model.LEDCount; i++ {
		assert.False(t, ledOn(svc, i))
	}

	require.NoError(t, svc.PressButton(0))
	assert.Eventually(t, func() bool { return ledOn(svc, 0) }, time.Second, time.Millisecond)
	require.NoError(t, svc.PressButton(1))
	assert.Eventually(t, func() bool { return !ledOn(svc, 0) }, time.Second, time.Millisecond)
}

func TestRunScheduledVariant(t *testing.T) {
	svc := startService(t, model.VariantScheduled)
	require.NoError(t, svc.PressButton(2))
	assert.Eventually(t, func() bool { return ledOn(svc, 1) }, time.Second, time.Millisecond)
}

func TestRunTimerVariant(t *testing.T) {
	svc := startService(t, model.VariantTimers)
	st := svc.Status()
	assert.True(t, st.Board.ClockRunning)
	require.NotNil(t, st.Controller.RepeatTimer)

	require.NoError(t, svc.PressButton(0))
	// LED_1 blinks with a 200ms period
	assert.Eventually(t, func() bool { return ledOn(svc, 0) }, 2*time.Second, time.Millisecond)
	assert.Eventually(t, func() bool { return !ledOn(svc, 0) }, 2*time.Second, time.Millisecond)

	require.NoError(t, svc.PressButton(2))
	assert.Eventually(t, func() bool { return svc.Status().Controller.AccumulatorMs == 1000 }, time.Second, time.Millisecond)
}

func TestPressButtonBeforeRun(t *testing.T) {
	api, err := bridge.NewVirtualBridge(zerolog.Nop(), bridge.Config{})
	require.NoError(t, err)
	defer api.Close()
	svc, err := NewService(Config{
		Variant: model.VariantDirect,
		Pins:    model.DefaultPinMap(model.BoardTypeVirtual),
	}, Dependencies{Logger: zerolog.Nop(), Bridge: api})
	require.NoError(t, err)
	assert.Equal(t, bridge.InvalidStateError, errors.Cause(svc.PressButton(0)))
}

func TestRunFailsOnBringUpError(t *testing.T) {
	api, err := bridge.NewVirtualBridge(zerolog.Nop(), bridge.Config{})
	require.NoError(t, err)
	// GPIO service already initialized
	require.NoError(t, api.GPIO().Init())
	svc, err := NewService(Config{
		Variant: model.VariantDirect,
		Pins:    model.DefaultPinMap(model.BoardTypeVirtual),
	}, Dependencies{Logger: zerolog.Nop(), Bridge: api})
	require.NoError(t, err)
	err = svc.Run(context.Background())
	assert.Equal(t, bridge.InvalidStateError, errors.Cause(err))
	assert.False(t, svc.Status().Ready)
}
