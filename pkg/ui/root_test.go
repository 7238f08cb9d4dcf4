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

package ui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/binkynet/ButtonWorker/model"
	"github.com/binkynet/ButtonWorker/pkg/service"
	"github.com/binkynet/ButtonWorker/pkg/service/controller"
)

type fakeService struct {
	status   service.Status
	pressed  []int
	pressErr error
}

func (s *fakeService) Status() service.Status { return s.status }

func (s *fakeService) PressButton(index int) error {
	s.pressed = append(s.pressed, index)
	return s.pressErr
}

func newFakeService() *fakeService {
	return &fakeService{
		status: service.Status{
			ProgramVersion: "dev",
			Ready:          true,
			Controller: controller.Status{
				Variant: model.VariantTimers,
				LEDs: []controller.LEDStatus{
					{Role: model.LEDRole(0), Pin: 17, On: true},
					{Role: model.LEDRole(1), Pin: 18},
				},
				Buttons: []controller.ButtonStatus{
					{Role: model.ButtonRole(0), Pin: 13, Action: "start-repeat"},
				},
				AccumulatorMs: 3000,
				RepeatTimer:   &controller.TimerStatus{Running: true, RemainingMs: 150},
				OneShotTimer:  &controller.TimerStatus{},
			},
		},
	}
}

func keyPress(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestRootPressesButtons(t *testing.T) {
	svc := newFakeService()
	var m tea.Model = NewRoot(svc)
	m, _ = m.Update(keyPress('1'))
	m, _ = m.Update(keyPress('4'))
	m, _ = m.Update(keyPress('7'))
	assert.Equal(t, []int{0, 3}, svc.pressed)

	svc.pressErr = errors.New("worker not ready")
	m, _ = m.Update(keyPress('2'))
	assert.Contains(t, m.View(), "worker not ready")
}

func TestRootQuits(t *testing.T) {
	m := NewRoot(newFakeService())
	_, cmd := m.Update(keyPress('q'))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestRootView(t *testing.T) {
	svc := newFakeService()
	m := NewRoot(svc)
	view := m.View()
	assert.Contains(t, view, "LED_1")
	assert.Contains(t, view, "BUTTON_1")
	assert.Contains(t, view, "start-repeat")
	assert.Contains(t, view, "running, 150 ms left")
	assert.Contains(t, view, "3,000")

	// Status updates are picked up
	svc.status.Controller.AccumulatorMs = 4000
	updated, cmd := m.Update(statusMsg(svc.Status()))
	assert.NotNil(t, cmd)
	assert.Contains(t, updated.View(), "4,000")
}
