//    Copyright 2018 Ewout Prangsma
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

//go:build linux

package environment

import (
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"

	"github.com/binkynet/ButtonWorker/model"
)

const (
	gpioChipDevice = "/dev/gpiochip0"
)

// AutoDetectBoardType detects the default board type based on the environment.
// Hosts with a GPIO character device use it, all others get a virtual board.
func AutoDetectBoardType(log zerolog.Logger) model.BoardType {
	var name unix.Utsname
	if err := unix.Uname(&name); err == nil {
		log.Debug().
			Str("machine", unixString(name.Machine[:])).
			Str("release", unixString(name.Release[:])).
			Msg("Detecting board type")
	}
	if err := unix.Access(gpioChipDevice, unix.R_OK|unix.W_OK); err != nil {
		log.Debug().Err(err).Msgf("No access to %s", gpioChipDevice)
		return model.BoardTypeVirtual
	}
	return model.BoardTypeGPIOCDev
}

// unixString converts a NUL terminated byte array to a string.
func unixString(b []byte) string {
	if i := strings.IndexByte(string(b), 0); i >= 0 {
		b = b[:i]
	}
	return strings.TrimSpace(string(b))
}
