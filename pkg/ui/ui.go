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
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/ssh"
)

// UI serves the board panel over SSH.
type UI struct {
	service Service
}

// New creates a UI for the given service.
func New(svc Service) *UI {
	return &UI{service: svc}
}

// Handler creates a board panel for an incoming SSH session.
func (u *UI) Handler(s ssh.Session) (tea.Model, []tea.ProgramOption) {
	return NewRoot(u.service), []tea.ProgramOption{tea.WithAltScreen()}
}

// Run the board panel on the local terminal until the user quits.
func (u *UI) Run() error {
	_, err := tea.NewProgram(NewRoot(u.service), tea.WithAltScreen()).Run()
	return err
}
