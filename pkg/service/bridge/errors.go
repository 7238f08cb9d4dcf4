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
	"github.com/pkg/errors"
)

var (
	// InvalidPinError is returned when a pin is out of range or not
	// configured for the requested operation.
	InvalidPinError = errors.New("invalid pin")
	// InvalidStateError is returned when a service is used before it
	// has been initialized, or initialized twice.
	InvalidStateError = errors.New("invalid state")
	// ClockNotRunningError is returned when the timer service is
	// initialized without a running low frequency clock.
	ClockNotRunningError = errors.New("low frequency clock not running")
	// InvalidTimeoutError is returned when a timer is started with a
	// timeout that is too short.
	InvalidTimeoutError = errors.New("invalid timeout")
	// InvalidTimerError is returned for unknown timer IDs.
	InvalidTimerError = errors.New("invalid timer")

	maskAny = errors.WithStack
)
