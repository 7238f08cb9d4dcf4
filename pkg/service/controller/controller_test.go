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
	"testing"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/binkynet/ButtonWorker/model"
	"github.com/binkynet/ButtonWorker/pkg/service/bridge"
	"github.com/binkynet/ButtonWorker/pkg/service/sched"
)

type testBoard struct {
	ctrl   *Controller
	bridge bridge.API
	source *bridge.ManualTickSource
	queue  *sched.Queue
	pins   model.PinMap
}

// newTestBoard brings up a controller of given variant on a virtual board.
func newTestBoard(t *testing.T, variant model.Variant) *testBoard {
	source := bridge.NewManualTickSource()
	api, err := bridge.NewVirtualBridge(zerolog.Nop(), bridge.Config{TickSource: source})
	require.NoError(t, err)
	t.Cleanup(func() { api.Close() })
	pins := model.DefaultPinMap(model.BoardTypeVirtual)
	queue := sched.NewQueue(0)
	ctrl, err := New(Config{Variant: variant, Pins: pins}, Dependencies{
		Log:       zerolog.Nop(),
		Bridge:    api,
		Scheduler: queue,
	})
	require.NoError(t, err)
	require.NoError(t, api.GPIO().Init())
	require.NoError(t, ctrl.Configure(context.Background()))
	if variant.UsesTimers() {
		require.NoError(t, api.Clock().Init())
		require.NoError(t, api.Clock().RequestLowFrequencyClock())
		require.NoError(t, api.Timers().Init())
		require.NoError(t, ctrl.CreateTimers())
	}
	return &testBoard{ctrl: ctrl, bridge: api, source: source, queue: queue, pins: pins}
}

// press a button and service the resulting interrupts.
func (tb *testBoard) press(t *testing.T, button int) {
	require.NoError(t, tb.ctrl.PressButton(button))
	tb.bridge.Poll()
	tb.queue.Execute()
}

// advance the clock and service the resulting interrupts.
func (tb *testBoard) advance(ticks bridge.Ticks) {
	tb.source.Advance(ticks)
	tb.bridge.Poll()
}

// leds returns the on state of all LEDs.
func (tb *testBoard) leds(t *testing.T) [model.LEDCount]bool {
	var result [model.LEDCount]bool
	for i := range result {
		on, err := tb.ctrl.LEDOn(i)
		require.NoError(t, err)
		result[i] = on
	}
	return result
}

func TestNewValidation(t *testing.T) {
	api, err := bridge.NewVirtualBridge(zerolog.Nop(), bridge.Config{})
	require.NoError(t, err)
	defer api.Close()
	pins := model.DefaultPinMap(model.BoardTypeVirtual)

	_, err = New(Config{Variant: 7, Pins: pins}, Dependencies{Log: zerolog.Nop(), Bridge: api})
	assert.Equal(t, model.ValidationError, errors.Cause(err))

	bad := model.DefaultPinMap(model.BoardTypeVirtual)
	bad.Buttons = bad.Buttons[:2]
	_, err = New(Config{Variant: model.VariantDirect, Pins: bad}, Dependencies{Log: zerolog.Nop(), Bridge: api})
	assert.Equal(t, model.ValidationError, errors.Cause(err))

	_, err = New(Config{Variant: model.VariantScheduled, Pins: pins}, Dependencies{Log: zerolog.Nop(), Bridge: api})
	assert.Error(t, err, "scheduler is required")

	_, err = New(Config{Variant: model.VariantDirect, Pins: pins}, Dependencies{Log: zerolog.Nop()})
	assert.Error(t, err, "bridge is required")
}

func TestConfigureSwitchesLEDsOff(t *testing.T) {
	tb := newTestBoard(t, model.VariantDirect)
	assert.Equal(t, [4]bool{}, tb.leds(t))
	// Active low: off is a high line
	high, err := tb.bridge.GPIO().Level(bridge.Pin(tb.pins.LED(0)))
	require.NoError(t, err)
	assert.True(t, high)

	assert.Equal(t, bridge.InvalidStateError, errors.Cause(tb.ctrl.Configure(context.Background())))
}

func TestConfigureActiveHighLEDs(t *testing.T) {
	api, err := bridge.NewVirtualBridge(zerolog.Nop(), bridge.Config{})
	require.NoError(t, err)
	defer api.Close()
	pins := model.DefaultPinMap(model.BoardTypeVirtual)
	pins.LEDActiveLow = false
	ctrl, err := New(Config{Variant: model.VariantDirect, Pins: pins}, Dependencies{Log: zerolog.Nop(), Bridge: api})
	require.NoError(t, err)
	require.NoError(t, api.GPIO().Init())
	require.NoError(t, ctrl.Configure(context.Background()))

	high, err := api.GPIO().Level(bridge.Pin(pins.LED(0)))
	require.NoError(t, err)
	assert.False(t, high)

	require.NoError(t, ctrl.PressButton(0))
	api.Poll()
	high, err = api.GPIO().Level(bridge.Pin(pins.LED(0)))
	require.NoError(t, err)
	assert.True(t, high)
}

func TestConfigureFailsOnGPIOError(t *testing.T) {
	api, err := bridge.NewVirtualBridge(zerolog.Nop(), bridge.Config{})
	require.NoError(t, err)
	defer api.Close()
	ctrl, err := New(Config{Variant: model.VariantDirect, Pins: model.DefaultPinMap(model.BoardTypeVirtual)}, Dependencies{Log: zerolog.Nop(), Bridge: api})
	require.NoError(t, err)
	// GPIO service not initialized
	err = ctrl.Configure(context.Background())
	assert.Equal(t, bridge.InvalidStateError, errors.Cause(err))
}

func TestDirectVariantTransitions(t *testing.T) {
	for _, variant := range []model.Variant{model.VariantDirect, model.VariantScheduled} {
		t.Run("variant"+variant.String(), func(t *testing.T) {
			tb := newTestBoard(t, variant)
			steps := []struct {
				button int
				want   [4]bool
			}{
				{0, [4]bool{true, false, false, false}},
				{0, [4]bool{true, false, false, false}},
				{2, [4]bool{true, true, false, false}},
				{1, [4]bool{false, true, false, false}},
				{1, [4]bool{false, true, false, false}},
				{3, [4]bool{false, false, false, false}},
				{2, [4]bool{false, true, false, false}},
			}
			for i, step := range steps {
				tb.press(t, step.button)
				assert.Equal(t, step.want, tb.leds(t), "step %d (%s)", i, model.ButtonRole(step.button))
			}
			assert.Equal(t, uint32(0), tb.ctrl.Accumulator())
		})
	}
}

func TestScheduledVariantDefersToMainLoop(t *testing.T) {
	tb := newTestBoard(t, model.VariantScheduled)
	require.NoError(t, tb.ctrl.PressButton(0))
	tb.bridge.Poll()
	assert.Equal(t, [4]bool{}, tb.leds(t), "action must wait for the main loop")
	assert.Equal(t, 1, tb.queue.Len())
	assert.Equal(t, 1, tb.queue.Execute())
	assert.Equal(t, [4]bool{true, false, false, false}, tb.leds(t))
}

func TestUnknownPinIsIgnored(t *testing.T) {
	tb := newTestBoard(t, model.VariantDirect)
	before := tb.leds(t)
	tb.ctrl.OnEdge(bridge.Pin(tb.pins.LED(0)), bridge.PolarityHiToLo)
	tb.ctrl.OnEdge(31, bridge.PolarityLoToHi)
	assert.Equal(t, before, tb.leds(t))
	assert.Equal(t, 0, tb.queue.Len())
}

func TestPressButtonIndexRange(t *testing.T) {
	tb := newTestBoard(t, model.VariantDirect)
	assert.Equal(t, bridge.InvalidPinError, errors.Cause(tb.ctrl.PressButton(4)))
	assert.Equal(t, bridge.InvalidPinError, errors.Cause(tb.ctrl.PressButton(-1)))
}

func TestRepeatTimerTogglesLED1(t *testing.T) {
	tb := newTestBoard(t, model.VariantTimers)
	period := tb.bridge.Timers().MsToTicks(RepeatPeriodMs)

	tb.press(t, 0)
	for n := 1; n <= 6; n++ {
		tb.advance(period)
		leds := tb.leds(t)
		assert.Equal(t, n%2 == 1, leds[0], "after %d periods", n)
		assert.False(t, leds[1])
	}

	tb.press(t, 1)
	before := tb.leds(t)
	for n := 0; n < 10; n++ {
		tb.advance(period)
	}
	assert.Equal(t, before, tb.leds(t), "no toggles after stop")

	// Started again
	tb.press(t, 0)
	tb.advance(period)
	assert.Equal(t, !before[0], tb.leds(t)[0])
}

func TestAccumulatorGrowsPerPress(t *testing.T) {
	tb := newTestBoard(t, model.VariantTimers)
	for k := 1; k <= 5; k++ {
		tb.press(t, 2)
		assert.Equal(t, uint32(k*AccumulatorStepMs), tb.ctrl.Accumulator())
		st := tb.ctrl.Status()
		require.NotNil(t, st.OneShotTimer)
		assert.True(t, st.OneShotTimer.Running)
		assert.Equal(t, uint64(k*AccumulatorStepMs), st.OneShotTimer.RemainingMs)
	}
}

func TestSingleShotSupersededByLaterPress(t *testing.T) {
	tb := newTestBoard(t, model.VariantTimers)
	led2 := bridge.Pin(tb.pins.LED(1))
	gpio := tb.bridge.GPIO()
	expiries := func() uint64 {
		for _, ts := range tb.bridge.Status().Timers {
			if ts.Mode == bridge.TimerModeSingleShot.String() {
				return ts.Expiries
			}
		}
		return 0
	}

	// LED_2 lit so the expiry is observable
	require.NoError(t, gpio.Clear(led2))
	tb.press(t, 2)
	tb.press(t, 2)
	tb.press(t, 2)
	assert.Equal(t, uint32(3000), tb.ctrl.Accumulator())

	// The deadlines of the first two presses pass without expiry
	tb.advance(tb.bridge.Timers().MsToTicks(2000))
	assert.Equal(t, uint64(0), expiries())
	on, err := tb.ctrl.LEDOn(1)
	require.NoError(t, err)
	assert.True(t, on)

	tb.advance(tb.bridge.Timers().MsToTicks(1000))
	assert.Equal(t, uint64(1), expiries())
	on, err = tb.ctrl.LEDOn(1)
	require.NoError(t, err)
	assert.False(t, on)

	tb.advance(tb.bridge.Timers().MsToTicks(10000))
	assert.Equal(t, uint64(1), expiries())
}

func TestButton4SwitchesLED2Off(t *testing.T) {
	tb := newTestBoard(t, model.VariantTimers)
	require.NoError(t, tb.bridge.GPIO().Clear(bridge.Pin(tb.pins.LED(1))))
	tb.press(t, 3)
	on, err := tb.ctrl.LEDOn(1)
	require.NoError(t, err)
	assert.False(t, on)
	tb.press(t, 3)
	on, _ = tb.ctrl.LEDOn(1)
	assert.False(t, on)
}

func TestTimerActionsRequireTimers(t *testing.T) {
	api, err := bridge.NewVirtualBridge(zerolog.Nop(), bridge.Config{})
	require.NoError(t, err)
	defer api.Close()
	ctrl, err := New(Config{Variant: model.VariantTimers, Pins: model.DefaultPinMap(model.BoardTypeVirtual)}, Dependencies{Log: zerolog.Nop(), Bridge: api})
	require.NoError(t, err)
	assert.Equal(t, bridge.InvalidStateError, errors.Cause(ctrl.startRepeat()))
	assert.Equal(t, bridge.InvalidStateError, errors.Cause(ctrl.startSingleShot()))
	assert.Equal(t, uint32(0), ctrl.Accumulator())
	// Timer service not initialized
	assert.Equal(t, bridge.InvalidStateError, errors.Cause(ctrl.CreateTimers()))
}

func TestStatus(t *testing.T) {
	tb := newTestBoard(t, model.VariantTimers)
	tb.press(t, 0)
	st := tb.ctrl.Status()
	assert.Equal(t, model.VariantTimers, st.Variant)
	require.Len(t, st.LEDs, 4)
	require.Len(t, st.Buttons, 4)
	assert.Equal(t, model.Role("LED_1"), st.LEDs[0].Role)
	assert.Equal(t, "start-repeat", st.Buttons[0].Action)
	assert.Equal(t, "led2-off", st.Buttons[3].Action)
	require.NotNil(t, st.RepeatTimer)
	assert.True(t, st.RepeatTimer.Running)
	require.NotNil(t, st.OneShotTimer)
	assert.False(t, st.OneShotTimer.Running)

	direct := newTestBoard(t, model.VariantDirect).ctrl.Status()
	assert.Nil(t, direct.RepeatTimer)
	assert.Equal(t, "led1-on", direct.Buttons[0].Action)
}
