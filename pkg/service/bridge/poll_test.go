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

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInputPollerDetectsMatchingEdges(t *testing.T) {
	p := newInputPoller(zerolog.Nop())
	defer p.stop()
	level := true
	edges := 0
	// Register without starting the polling goroutine
	p.inputs[4] = &polledInput{
		polarity: PolarityHiToLo,
		last:     level,
		read:     func() (bool, error) { return level, nil },
		onEdge:   func() { edges++ },
	}
	ctx := context.Background()

	require.NoError(t, p.pollOnce(ctx))
	assert.Equal(t, 0, edges)
	level = false
	require.NoError(t, p.pollOnce(ctx))
	assert.Equal(t, 1, edges)
	require.NoError(t, p.pollOnce(ctx))
	assert.Equal(t, 1, edges)
	level = true
	require.NoError(t, p.pollOnce(ctx))
	assert.Equal(t, 1, edges, "rising edge must be ignored")
}

func TestInputPollerReportsReadErrors(t *testing.T) {
	p := newInputPoller(zerolog.Nop())
	defer p.stop()
	readErr := errors.New("read failed")
	p.inputs[7] = &polledInput{
		polarity: PolarityToggle,
		read:     func() (bool, error) { return false, readErr },
		onEdge:   func() {},
	}
	assert.Error(t, p.pollOnce(context.Background()))
}
