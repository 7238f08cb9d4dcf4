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
	"github.com/binkynet/ButtonWorker/pkg/metrics"
)

const (
	subSystem = "controller"
)

var (
	// Total number of button events per button role
	buttonEventsTotal = metrics.MustRegisterCounterVec(subSystem,
		"button_events_total",
		"Total number of button events per button",
		"button")
	// Total number of edges on lines that have no button role
	unknownEdgesTotal = metrics.MustRegisterCounter(subSystem,
		"unknown_edges_total",
		"Total number of edges on lines without a button")
	// Total number of failed actions per action
	actionErrorsTotal = metrics.MustRegisterCounterVec(subSystem,
		"action_errors_total",
		"Total number of failed actions per action",
		"action")
	// Total number of button events that could not be deferred
	deferErrorsTotal = metrics.MustRegisterCounter(subSystem,
		"defer_errors_total",
		"Total number of button events that could not be deferred to the main loop")
	// Current value of the single-shot timeout accumulator in milliseconds
	accumulatorGauge = metrics.MustRegisterGauge(subSystem,
		"timeout_accumulator_ms",
		"Current value of the single-shot timeout accumulator in milliseconds")
)
