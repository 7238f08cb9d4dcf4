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
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	mqttapi "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/binkynet/ButtonWorker/pkg/service/util"
)

const (
	mqttPinCount       = 256
	mqttPublishTimeout = time.Millisecond * 200
	mqttConnectTimeout = time.Second * 10
	// Payload of a command message that presses a button
	mqttPressPayload = "press"
)

var (
	mqttCommandTopicPattern = regexp.MustCompile(`^pin([0-9]+)/command$`)
)

// MQTTConfig specifies how to connect to the MQTT broker
type MQTTConfig struct {
	// Address (host:port) of the broker
	BrokerAddress string
	// Prefix of all pin topics
	TopicPrefix string
	// Client identifier
	ClientID string
}

// mqttInput is the remote state of a single input line.
type mqttInput struct {
	high     bool
	polarity Polarity
	onEdge   func()
}

// statePublisher is the part of an MQTT client used to publish states.
type statePublisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqttapi.Token
}

// mqttDriver exposes the lines of a board as MQTT topics.
// Output levels are published (retained) on <prefix>pin<N>/state,
// inputs are driven by <prefix>pin<N>/command messages, which carry
// either a level or "press".
type mqttDriver struct {
	mutex        sync.Mutex
	publishMutex sync.Mutex
	log          zerolog.Logger
	topicPrefix  string
	client       mqttapi.Client
	publisher    statePublisher
	outputs      map[Pin]bool
	inputs       map[Pin]*mqttInput
	unsubscribe  context.CancelFunc
}

// NewMQTTBridge implements the bridge for a board that lives on an MQTT broker.
func NewMQTTBridge(log zerolog.Logger, conf Config, mqttConf MQTTConfig) (API, error) {
	if mqttConf.BrokerAddress == "" {
		return nil, errors.New("mqtt broker address is required")
	}
	d := &mqttDriver{
		log:         log.With().Str("component", "mqtt-board").Logger(),
		topicPrefix: strings.TrimSuffix(mqttConf.TopicPrefix, "/") + "/",
		outputs:     make(map[Pin]bool),
		inputs:      make(map[Pin]*mqttInput),
	}
	if err := d.connect(mqttConf); err != nil {
		return nil, err
	}
	return newMQTTBoard(d, conf, log), nil
}

// newMQTTBoard creates the board of the given driver.
// Output changes reach subscribers in no particular order, so the
// published state is always read back from the driver.
func newMQTTBoard(d *mqttDriver, conf Config, log zerolog.Logger) *board {
	b := newBoard("mqtt", conf, d, log)
	d.unsubscribe = b.SubscribeOutputChanges(func(change OutputChange) {
		d.publishState(change.Pin)
	})
	return b
}

// connect to the broker and subscribe to command topics.
func (d *mqttDriver) connect(mqttConf MQTTConfig) error {
	opts := util.DefaultMQTTClientOptions(mqttConf.BrokerAddress, mqttConf.ClientID)
	topic := d.topicPrefix + "+/command"
	opts.SetOnConnectHandler(func(c mqttapi.Client) {
		d.log.Debug().Msg("Connected to MQTT")
		if token := c.Subscribe(topic, 0, d.onMessage); token.Wait() && token.Error() != nil {
			d.log.Error().Err(token.Error()).
				Msgf("failed to subscribe to '%s'", topic)
			c.Disconnect(500)
		} else {
			d.log.Debug().Msgf("Subscribed to MQTT topic '%s'", topic)
		}
	})
	client := mqttapi.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(mqttConnectTimeout) {
		return errors.Errorf("timeout connecting to mqtt broker '%s'", mqttConf.BrokerAddress)
	}
	if err := token.Error(); err != nil {
		return errors.Wrap(err, "failed to connect to mqtt")
	}
	d.mutex.Lock()
	d.client = client
	d.publisher = client
	d.mutex.Unlock()
	return nil
}

// Returns number of GPIO lines
func (d *mqttDriver) PinCount() int {
	return mqttPinCount
}

// Configure the given pin as output with given initial level.
func (d *mqttDriver) ConfigureOutput(pin Pin, high bool) error {
	d.mutex.Lock()
	d.outputs[pin] = high
	d.mutex.Unlock()
	d.publishState(pin)
	return nil
}

// Write the level of an output pin.
// The state is published by the output change subscription.
func (d *mqttDriver) Write(pin Pin, high bool) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if _, found := d.outputs[pin]; !found {
		return errors.Wrapf(InvalidPinError, "pin %d is not an output", pin)
	}
	d.outputs[pin] = high
	return nil
}

// Read the level of a pin.
func (d *mqttDriver) Read(pin Pin) (bool, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if high, found := d.outputs[pin]; found {
		return high, nil
	}
	if input, found := d.inputs[pin]; found {
		return input.high, nil
	}
	return false, errors.Wrapf(InvalidPinError, "pin %d is not configured", pin)
}

// Configure the given pin as input.
func (d *mqttDriver) ConfigureInput(pin Pin, pull Pull, polarity Polarity, onEdge func()) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.inputs[pin] = &mqttInput{
		high:     pull == PullUp,
		polarity: polarity,
		onEdge:   onEdge,
	}
	return nil
}

// inject a press of the given input pin.
func (d *mqttDriver) inject(pin Pin) error {
	idle, err := d.Read(pin)
	if err != nil {
		return err
	}
	d.drive(pin, !idle)
	d.drive(pin, idle)
	return nil
}

// drive the remote level of an input pin.
func (d *mqttDriver) drive(pin Pin, high bool) {
	d.mutex.Lock()
	input, found := d.inputs[pin]
	if !found {
		d.mutex.Unlock()
		d.log.Debug().Uint32("pin", uint32(pin)).Msg("command for unconfigured input")
		return
	}
	from := input.high
	input.high = high
	matches := input.polarity.Matches(from, high)
	d.mutex.Unlock()
	if matches {
		input.onEdge()
	}
}

// Receive command messages
func (d *mqttDriver) onMessage(client mqttapi.Client, msg mqttapi.Message) {
	topic := strings.TrimPrefix(msg.Topic(), d.topicPrefix)
	m := mqttCommandTopicPattern.FindStringSubmatch(topic)
	if m == nil {
		// Not a valid message
		return
	}
	index, err := strconv.ParseUint(m[1], 10, 32)
	if err != nil || index >= mqttPinCount {
		return
	}
	pin := Pin(index)
	payload := strings.TrimSpace(string(msg.Payload()))
	if strings.EqualFold(payload, mqttPressPayload) {
		d.inject(pin)
		return
	}
	high, err := parseBool(payload)
	if err != nil {
		d.log.Warn().Err(err).Str("topic", msg.Topic()).Msg("invalid command payload")
		return
	}
	d.drive(pin, high)
}

// publishState publishes the current level of an output pin.
// Publications are serialized so the last retained state is never
// older than the last write.
func (d *mqttDriver) publishState(pin Pin) {
	d.publishMutex.Lock()
	defer d.publishMutex.Unlock()
	d.mutex.Lock()
	high, found := d.outputs[pin]
	publisher := d.publisher
	d.mutex.Unlock()
	if !found || publisher == nil {
		return
	}
	topic := fmt.Sprintf("%spin%d/state", d.topicPrefix, pin)
	payload := formatBool(high)
	retain := true
	token := publisher.Publish(topic, 0, retain, payload)
	if !token.WaitTimeout(mqttPublishTimeout) {
		d.log.Error().Err(token.Error()).
			Str("topic", topic).
			Str("payload", payload).
			Msg("failed to deliver MQTT state in time")
	}
}

// Release all lines and disconnect.
func (d *mqttDriver) Close() error {
	if d.unsubscribe != nil {
		d.unsubscribe()
	}
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.publisher = nil
	if c := d.client; c != nil {
		d.client = nil
		c.Disconnect(250)
	}
	d.outputs = make(map[Pin]bool)
	d.inputs = make(map[Pin]*mqttInput)
	return nil
}

// Parse a string into a bool
func parseBool(str string) (bool, error) {
	str = strings.ToLower(str)
	switch str {
	case "1", "t", "true", "on", "yes", "high":
		return true, nil
	case "0", "f", "false", "off", "no", "low":
		return false, nil
	}
	return false, errors.Errorf("invalid bool value '%s'", str)
}

// format a bool as string
func formatBool(v bool) string {
	if v {
		return "1"
	}
	return "0"
}
