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
	"github.com/binkynet/ButtonWorker/pkg/metrics"
)

const (
	subSystem = "bridge"
)

var (
	// Interrupt controller metrics
	irqRaisedTotal = metrics.MustRegisterCounterVec(subSystem,
		"irq_raised_total",
		"Total number of interrupts raised per source",
		"source")
	irqCoalescedTotal = metrics.MustRegisterCounterVec(subSystem,
		"irq_coalesced_total",
		"Total number of interrupts coalesced with a pending one per source",
		"source")

	// GPIO metrics
	edgesDetectedTotal = metrics.MustRegisterCounterVec(subSystem,
		"edges_detected_total",
		"Total number of edges detected on enabled input pins",
		"pin")
	edgesIgnoredTotal = metrics.MustRegisterCounterVec(subSystem,
		"edges_ignored_total",
		"Total number of edges detected on pins without enabled interrupt",
		"pin")
	outputWritesTotal = metrics.MustRegisterCounterVec(subSystem,
		"output_writes_total",
		"Total number of writes to output pins",
		"pin")
	outputWriteErrorsTotal = metrics.MustRegisterCounterVec(subSystem,
		"output_write_errors_total",
		"Total number of failed writes to output pins",
		"pin")
	outputLevelGauge = metrics.MustRegisterGaugeVec(subSystem,
		"output_level",
		"Last written level of output pins (0=LOW, 1=HIGH)",
		"pin")
	outputChangesDroppedTotal = metrics.MustRegisterCounter(subSystem,
		"output_changes_dropped_total",
		"Total number of output change notifications dropped")

	// Timer metrics
	timersCreatedTotal = metrics.MustRegisterCounter(subSystem,
		"timers_created_total",
		"Total number of timers created")
	timerStartsTotal = metrics.MustRegisterCounterVec(subSystem,
		"timer_starts_total",
		"Total number of times a timer is started",
		"timer")
	timerStopsTotal = metrics.MustRegisterCounterVec(subSystem,
		"timer_stops_total",
		"Total number of times a running timer is stopped",
		"timer")
	timerExpiriesTotal = metrics.MustRegisterCounterVec(subSystem,
		"timer_expiries_total",
		"Total number of timer expiries",
		"timer")

	// Board adapter metrics
	pollErrorsTotal = metrics.MustRegisterCounterVec(subSystem,
		"poll_errors_total",
		"Total number of failed reads while polling input pins",
		"pin")
)
