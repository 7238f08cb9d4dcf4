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

package util

import (
	"runtime"
	"sync/atomic"
)

// CriticalSection guards state that is shared between interrupt handlers
// and the goroutines of hardware adapters. It spins with exponential
// backoff, so it must only be held for a few instructions.
type CriticalSection struct {
	flags uint32
}

// Enter the critical section.
func (l *CriticalSection) Enter() {
	backoff := 1
	for !l.TryEnter() {
		for x := 0; x < backoff; x++ {
			runtime.Gosched()
		}
		if backoff < 64 {
			backoff *= 2
		}
	}
}

// TryEnter attempts to enter the critical section.
// Returns true when entered, false otherwise.
func (l *CriticalSection) TryEnter() bool {
	return atomic.CompareAndSwapUint32(&l.flags, 0, 1)
}

// Exit the critical section.
func (l *CriticalSection) Exit() {
	atomic.StoreUint32(&l.flags, 0)
}

// Do runs the given function inside the critical section.
func (l *CriticalSection) Do(fn func()) {
	l.Enter()
	defer l.Exit()
	fn()
}
