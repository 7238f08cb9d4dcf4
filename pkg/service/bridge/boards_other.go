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

//go:build !linux

package bridge

import (
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

var errBoardNotSupported = errors.New("board type is only supported on linux")

// NewGPIOCDevBridge is not available on this platform.
func NewGPIOCDevBridge(log zerolog.Logger, conf Config, chipName string) (API, error) {
	return nil, maskAny(errBoardNotSupported)
}

// NewRaspberryPiBridge is not available on this platform.
func NewRaspberryPiBridge(log zerolog.Logger, conf Config) (API, error) {
	return nil, maskAny(errBoardNotSupported)
}

// NewRPIOBridge is not available on this platform.
func NewRPIOBridge(log zerolog.Logger, conf Config) (API, error) {
	return nil, maskAny(errBoardNotSupported)
}
