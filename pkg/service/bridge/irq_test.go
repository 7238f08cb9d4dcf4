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
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIRQServicesInRaiseOrder(t *testing.T) {
	c := newIRQController()
	var order []string
	c.raise("a", func() { order = append(order, "a") })
	c.raise("b", func() { order = append(order, "b") })
	assert.Empty(t, order, "handlers must not run on raise")
	assert.Equal(t, 2, c.poll())
	assert.Equal(t, []string{"a", "b"}, order)
	assert.Equal(t, uint64(2), c.servicedCount())
	assert.Equal(t, 0, c.poll())
}

func TestIRQCoalescesPending(t *testing.T) {
	c := newIRQController()
	count := 0
	assert.True(t, c.raise("gpio1", func() { count++ }))
	assert.False(t, c.raise("gpio1", func() { count++ }))
	assert.Equal(t, 1, c.poll())
	assert.Equal(t, 1, count)
}

func TestIRQLatchesWhileActive(t *testing.T) {
	c := newIRQController()
	count := 0
	var handler func()
	handler = func() {
		count++
		if count == 1 {
			// Raised again while running; must not nest
			assert.True(t, c.raise("rtc", handler))
			assert.False(t, c.raise("rtc", handler))
			assert.Equal(t, 1, count)
		}
	}
	c.raise("rtc", handler)
	assert.Equal(t, 2, c.poll())
	assert.Equal(t, 2, count)
}

func TestIRQWait(t *testing.T) {
	c := newIRQController()
	ran := make(chan struct{}, 1)
	go func() {
		time.Sleep(10 * time.Millisecond)
		c.raise("gpio3", func() { ran <- struct{}{} })
	}()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, c.wait(ctx))
	select {
	case <-ran:
	default:
		t.Fatal("handler did not run inside wait")
	}
}

func TestIRQWaitCanceled(t *testing.T) {
	c := newIRQController()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Equal(t, context.Canceled, c.wait(ctx))
}
