//    Copyright 2017 Ewout Prangsma
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

package main

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestMQTTLogEnabled(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)

	assert.True(t, mqttLogEnabled(log, "localhost:1883", true))
	assert.False(t, mqttLogEnabled(log, "localhost:1883", false))
	assert.False(t, mqttLogEnabled(log, "", false))
	assert.Empty(t, buf.String())

	assert.False(t, mqttLogEnabled(log, "", true))
	assert.Contains(t, buf.String(), `"level":"warn"`)
	assert.Contains(t, buf.String(), "--mqtt-broker")
}
