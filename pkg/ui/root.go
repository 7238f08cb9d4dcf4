// Copyright 2023 Ewout Prangsma
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
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/binkynet/ButtonWorker/model"
	"github.com/binkynet/ButtonWorker/pkg/service"
)

const (
	statusRefreshInterval = time.Millisecond * 100
)

// Service shown by the UI.
type Service interface {
	// Status returns a snapshot of the worker.
	Status() service.Status
	// PressButton simulates a press of the button with given index (0...).
	PressButton(index int) error
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	ledOnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	ledOffStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	panelStyle  = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)
)

type keyMap struct {
	Buttons [model.ButtonCount]key.Binding
	Quit    key.Binding
}

func newKeyMap() keyMap {
	var km keyMap
	for i := range km.Buttons {
		k := fmt.Sprintf("%d", i+1)
		km.Buttons[i] = key.NewBinding(
			key.WithKeys(k),
			key.WithHelp(k, "press "+string(model.ButtonRole(i))),
		)
	}
	km.Quit = key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "disconnect"),
	)
	return km
}

// ShortHelp implements help.KeyMap
func (km keyMap) ShortHelp() []key.Binding {
	return append(km.Buttons[:], km.Quit)
}

// FullHelp implements help.KeyMap
func (km keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{km.ShortHelp()}
}

// Root is the board panel.
type Root struct {
	service Service
	keys    keyMap
	help    help.Model
	width   int
	height  int
	loadAvg string
	status  service.Status
	lastErr string
}

var _ tea.Model = Root{}

// NewRoot creates the board panel for the given service.
func NewRoot(svc Service) Root {
	return Root{
		service: svc,
		keys:    newKeyMap(),
		help:    help.New(),
		status:  svc.Status(),
	}
}

// Init is the first function that will be called. It returns an optional
// initial command. To not perform an initial command return nil.
func (r Root) Init() tea.Cmd {
	return tea.Batch(doReloadCPULoadAvg(), doReloadStatus(r.service))
}

// Update is called when a message is received. Use it to inspect messages
// and, in response, update the model and/or send a command.
func (r Root) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadAvgMsg:
		r.loadAvg = string(msg)
		return r, doReloadCPULoadAvg()
	case statusMsg:
		r.status = service.Status(msg)
		return r, doReloadStatus(r.service)
	case tea.WindowSizeMsg:
		r.height = msg.Height
		r.width = msg.Width
		r.help.Width = msg.Width
	case tea.KeyMsg:
		if key.Matches(msg, r.keys.Quit) {
			return r, tea.Quit
		}
		for i, b := range r.keys.Buttons {
			if key.Matches(msg, b) {
				r.lastErr = ""
				if err := r.service.PressButton(i); err != nil {
					r.lastErr = err.Error()
				}
			}
		}
	}
	return r, nil
}

// View renders the program's UI, which is just a string. The view is
// rendered after every Update.
func (r Root) View() string {
	s := r.headerView()
	s += panelStyle.Render(r.boardView()) + "\n"
	if r.lastErr != "" {
		s += errorStyle.Render(r.lastErr) + "\n"
	}
	s += r.help.View(r.keys) + "\n"
	return s
}

func (r Root) headerView() string {
	return lipgloss.JoinHorizontal(lipgloss.Left,
		titleStyle.Render("Button worker "+r.status.ProgramVersion),
		"  ",
		strings.TrimSpace(r.loadAvg),
	) + "\n"
}

func (r Root) boardView() string {
	st := r.status
	ctrl := st.Controller
	var lines []string
	info, _ := ctrl.Variant.Info()
	lines = append(lines, fmt.Sprintf("Board %s, variant %d: %s", st.Board.Board, int(ctrl.Variant), info.Description))
	if !st.Ready {
		lines = append(lines, errorStyle.Render("starting..."))
	}

	var leds []string
	for _, led := range ctrl.LEDs {
		style, symbol := ledOffStyle, "○"
		if led.On {
			style, symbol = ledOnStyle, "●"
		}
		leds = append(leds, style.Render(symbol)+" "+string(led.Role))
	}
	lines = append(lines, strings.Join(leds, "   "))

	for _, b := range ctrl.Buttons {
		lines = append(lines, fmt.Sprintf("%-9s line %-3d -> %s", b.Role, b.Pin, b.Action))
	}

	if ctrl.RepeatTimer != nil {
		lines = append(lines, fmt.Sprintf("Repeating timer: %s", timerView(ctrl.RepeatTimer.Running, ctrl.RepeatTimer.RemainingMs)))
	}
	if ctrl.OneShotTimer != nil {
		lines = append(lines, fmt.Sprintf("Single-shot timer: %s (timeout %s ms)",
			timerView(ctrl.OneShotTimer.Running, ctrl.OneShotTimer.RemainingMs),
			humanize.Comma(int64(ctrl.AccumulatorMs))))
	}
	lines = append(lines, fmt.Sprintf("Interrupts serviced: %s, started %s",
		humanize.Comma(int64(st.Board.InterruptsServiced)),
		humanize.Time(st.StartedAt)))
	return strings.Join(lines, "\n")
}

func timerView(running bool, remainingMs uint64) string {
	if !running {
		return "stopped"
	}
	return fmt.Sprintf("running, %s ms left", humanize.Comma(int64(remainingMs)))
}

type loadAvgMsg string

func doReloadCPULoadAvg() tea.Cmd {
	return tea.Tick(time.Second*2, func(t time.Time) tea.Msg {
		if content, err := os.ReadFile("/proc/loadavg"); err != nil {
			return loadAvgMsg("")
		} else {
			return loadAvgMsg(string(content))
		}
	})
}

type statusMsg service.Status

func doReloadStatus(svc Service) tea.Cmd {
	return tea.Tick(statusRefreshInterval, func(t time.Time) tea.Msg {
		return statusMsg(svc.Status())
	})
}
