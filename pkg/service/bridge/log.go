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
	"sync"

	"github.com/rs/zerolog"
)

// zerologLog implements the Log service on a zerolog logger.
type zerologLog struct {
	mutex       sync.Mutex
	log         zerolog.Logger
	initialized bool
}

func newZerologLog(log zerolog.Logger) *zerologLog {
	return &zerologLog{log: log.With().Str("component", "hal-log").Logger()}
}

// Init the logging backend.
func (l *zerologLog) Init() error {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.initialized = true
	return nil
}

// Info logs the given message.
// Messages logged before Init are dropped.
func (l *zerologLog) Info(msg string) {
	l.mutex.Lock()
	initialized := l.initialized
	l.mutex.Unlock()
	if initialized {
		l.log.Info().Msg(msg)
	}
}
