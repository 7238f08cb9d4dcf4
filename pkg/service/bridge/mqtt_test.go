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
	"testing"
	"time"

	mqttapi "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doneToken struct{}

func (doneToken) Wait() bool                     { return true }
func (doneToken) WaitTimeout(time.Duration) bool { return true }
func (doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (doneToken) Error() error { return nil }

// recordingPublisher remembers the payloads published per topic.
type recordingPublisher struct {
	mutex    sync.Mutex
	payloads map[string][]string
	retained bool
}

func (p *recordingPublisher) Publish(topic string, qos byte, retained bool, payload interface{}) mqttapi.Token {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if p.payloads == nil {
		p.payloads = make(map[string][]string)
	}
	p.payloads[topic] = append(p.payloads[topic], payload.(string))
	p.retained = retained
	return doneToken{}
}

func (p *recordingPublisher) get(topic string) []string {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return append([]string(nil), p.payloads[topic]...)
}

func newTestMQTTBoard(t *testing.T) (*board, *recordingPublisher) {
	pub := &recordingPublisher{}
	d := &mqttDriver{
		log:         zerolog.Nop(),
		topicPrefix: "test/",
		publisher:   pub,
		outputs:     make(map[Pin]bool),
		inputs:      make(map[Pin]*mqttInput),
	}
	b := newMQTTBoard(d, Config{}, zerolog.Nop())
	t.Cleanup(func() { b.Close() })
	return b, pub
}

func TestMQTTPublishesInitialState(t *testing.T) {
	b, pub := newTestMQTTBoard(t)
	gpio := b.GPIO()
	require.NoError(t, gpio.Init())
	require.NoError(t, gpio.ConfigureOutput(3, true))
	assert.Equal(t, []string{"1"}, pub.get("test/pin3/state"))
	assert.True(t, pub.retained)
}

func TestMQTTRetainedStateFollowsLastWrite(t *testing.T) {
	b, pub := newTestMQTTBoard(t)
	gpio := b.GPIO()
	require.NoError(t, gpio.Init())
	require.NoError(t, gpio.ConfigureOutput(7, true))

	const writes = 40
	for i := 0; i < writes; i++ {
		if i%2 == 0 {
			require.NoError(t, gpio.Clear(7))
		} else {
			require.NoError(t, gpio.Set(7))
		}
	}
	require.NoError(t, gpio.Clear(7))

	topic := "test/pin7/state"
	require.Eventually(t, func() bool {
		return len(pub.get(topic)) == writes+2
	}, time.Second, 5*time.Millisecond)
	high, err := gpio.Level(7)
	require.NoError(t, err)
	states := pub.get(topic)
	assert.Equal(t, formatBool(high), states[len(states)-1])
	assert.Equal(t, "0", states[len(states)-1])
}

func TestMQTTCommandPressesButton(t *testing.T) {
	b, _ := newTestMQTTBoard(t)
	gpio := b.GPIO()
	require.NoError(t, gpio.Init())
	var pressed []Pin
	require.NoError(t, gpio.ConfigureInput(4, PullUp, PolarityHiToLo, func(pin Pin, _ Polarity) {
		pressed = append(pressed, pin)
	}))
	require.NoError(t, gpio.EnableInterrupt(4))

	require.NoError(t, b.InjectEdge(4))
	assert.Equal(t, 1, b.Poll())
	assert.Equal(t, []Pin{4}, pressed)
}

func TestParseBool(t *testing.T) {
	for _, s := range []string{"1", "on", "High", "TRUE"} {
		v, err := parseBool(s)
		require.NoError(t, err)
		assert.True(t, v, s)
	}
	for _, s := range []string{"0", "off", "low", "False"} {
		v, err := parseBool(s)
		require.NoError(t, err)
		assert.False(t, v, s)
	}
	_, err := parseBool("maybe")
	assert.Error(t, err)
}
