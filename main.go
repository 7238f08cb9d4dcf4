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
	"context"
	"fmt"
	"io"
	"os"
	"time"

	mqttapi "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	terminate "github.com/pulcy/go-terminate"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/binkynet/ButtonWorker/model"
	"github.com/binkynet/ButtonWorker/pkg/environment"
	"github.com/binkynet/ButtonWorker/pkg/logging"
	"github.com/binkynet/ButtonWorker/pkg/server"
	"github.com/binkynet/ButtonWorker/pkg/service"
	"github.com/binkynet/ButtonWorker/pkg/service/bridge"
	"github.com/binkynet/ButtonWorker/pkg/service/util"
	"github.com/binkynet/ButtonWorker/pkg/ui"
)

const (
	projectName     = "Button Worker"
	defaultHTTPPort = 7129
	defaultSSHPort  = 7122
	mqttConnectWait = time.Second * 10
)

var (
	projectVersion = "dev"
	projectBuild   = "dev"
)

func main() {
	var levelFlag string
	var variant int
	var boardType string
	var chipName string
	var pinsPath string
	var tickRate uint32
	var debounce time.Duration
	var serverHost string
	var httpPort int
	var sshPort int
	var localUI bool
	var mqttBroker string
	var mqttTopicPrefix string
	var mqttLog bool

	pflag.StringVarP(&levelFlag, "level", "l", "info", "Set log level")
	pflag.IntVarP(&variant, "variant", "v", int(model.VariantDirect), "Behavior of the buttons (1=direct, 2=scheduled, 3=timers)")
	pflag.StringVarP(&boardType, "board", "b", "", "Type of board to use (virtual|gpiocdev|periph|rpi|rpio|mqtt), auto detected when empty")
	pflag.StringVar(&chipName, "chip", "gpiochip0", "GPIO chip used by the gpiocdev board")
	pflag.StringVar(&pinsPath, "pins", "", "Path of a JSON file overriding the default pin map of the board")
	pflag.Uint32Var(&tickRate, "tick-rate", bridge.DefaultTickRate, "Frequency of the low frequency clock in Hz")
	pflag.DurationVar(&debounce, "debounce", 0, "Debounce period of button lines (gpiocdev board only)")
	pflag.StringVar(&serverHost, "host", "0.0.0.0", "Host address the HTTP & SSH servers will listen on")
	pflag.IntVar(&httpPort, "http-port", defaultHTTPPort, "Port the HTTP server will listen on")
	pflag.IntVar(&sshPort, "ssh-port", defaultSSHPort, "Port the SSH server will listen on (0 to disable)")
	pflag.BoolVar(&localUI, "ui", false, "Show the board panel on this terminal")
	pflag.StringVar(&mqttBroker, "mqtt-broker", "", "Address (host:port) of the MQTT broker")
	pflag.StringVar(&mqttTopicPrefix, "mqtt-topic-prefix", "buttonworker/", "Prefix of all MQTT topics")
	pflag.BoolVar(&mqttLog, "mqtt-log", false, "Forward logs to <mqtt-topic-prefix>logs")
	pflag.Parse()

	level, err := zerolog.ParseLevel(levelFlag)
	if err != nil {
		Exitf("Invalid log level '%s': %v\n", levelFlag, err)
	}
	// The local board panel owns the terminal
	var console io.Writer = zerolog.ConsoleWriter{Out: os.Stderr}
	if localUI {
		console = io.Discard
	}
	logOutput := logging.NewMultiWriter(console)
	logger := zerolog.New(logOutput).Level(level).With().Timestamp().Logger()

	// Prepare to shutdown in a controlled manor
	ctx, cancel := context.WithCancel(context.Background())
	t := terminate.NewTerminator(func(template string, args ...interface{}) {
		logger.Info().Msgf(template, args...)
	}, cancel)
	go t.ListenSignals()

	hostname, _ := os.Hostname()
	clientID := fmt.Sprintf("buttonworker-%s", hostname)
	if mqttLogEnabled(logger, mqttBroker, mqttLog) {
		client := mqttapi.NewClient(util.DefaultMQTTClientOptions(mqttBroker, clientID+"-log"))
		if token := client.Connect(); !token.WaitTimeout(mqttConnectWait) || token.Error() != nil {
			Exitf("Failed to connect to MQTT broker '%s': %v\n", mqttBroker, token.Error())
		}
		defer client.Disconnect(250)
		w := logging.NewMQTTWriter(ctx)
		w.SetDestination(mqttTopicPrefix+"logs", client)
		w.Enable(true)
		logOutput.Add(w)
	}

	// Select board
	board := model.BoardType(boardType)
	if board == "" {
		board = environment.AutoDetectBoardType(logger)
		logger.Info().Str("board", string(board)).Msg("Detected board type")
	}
	if err := board.Validate(); err != nil {
		Exitf("Unknown board type '%s'\n", boardType)
	}
	pins := model.DefaultPinMap(board)
	if pinsPath != "" {
		pins, err = model.LoadPinMap(pinsPath, pins)
		if err != nil {
			Exitf("Failed to load pin map: %v\n", err)
		}
	}
	bridgeConf := bridge.Config{
		TickRate: tickRate,
		Debounce: debounce,
	}
	br, err := newBridge(board, logger, bridgeConf, chipName, bridge.MQTTConfig{
		BrokerAddress: mqttBroker,
		TopicPrefix:   mqttTopicPrefix + "board",
		ClientID:      clientID + "-board",
	})
	if err != nil {
		Exitf("Failed to initialize %s board: %v\n", board, err)
	}

	svc, err := service.NewService(service.Config{
		ProgramVersion: projectVersion,
		Variant:        model.Variant(variant),
		Pins:           pins,
	}, service.Dependencies{
		Logger: logger,
		Bridge: br,
	})
	if err != nil {
		br.Close()
		Exitf("Failed to initialize Service: %v\n", err)
	}

	boardUI := ui.New(svc)
	httpServer, err := server.New(server.Config{
		Host:     serverHost,
		HTTPPort: httpPort,
		SSHPort:  sshPort,
	}, logger, boardUI, svc)
	if err != nil {
		br.Close()
		Exitf("Failed to initialize Server: %v\n", err)
	}

	if !localUI {
		fmt.Printf("Starting %s (version %s build %s)\n", projectName, projectVersion, projectBuild)
	}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return svc.Run(ctx) })
	g.Go(func() error { return httpServer.Run(ctx) })
	if localUI {
		g.Go(func() error {
			defer cancel()
			return boardUI.Run()
		})
	}
	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("Service run failed")
		Exitf("Service run failed: %v\n", err)
	}
}

// newBridge creates the bridge for the given board type.
func newBridge(board model.BoardType, log zerolog.Logger, conf bridge.Config, chipName string, mqttConf bridge.MQTTConfig) (bridge.API, error) {
	switch board {
	case model.BoardTypeVirtual:
		return bridge.NewVirtualBridge(log, conf)
	case model.BoardTypeGPIOCDev:
		return bridge.NewGPIOCDevBridge(log, conf, chipName)
	case model.BoardTypePeriph:
		return bridge.NewPeriphBridge(log, conf)
	case model.BoardTypeRPI:
		return bridge.NewRaspberryPiBridge(log, conf)
	case model.BoardTypeRPIO:
		return bridge.NewRPIOBridge(log, conf)
	case model.BoardTypeMQTT:
		return bridge.NewMQTTBridge(log, conf, mqttConf)
	default:
		return nil, errors.Errorf("unknown board type '%s'", board)
	}
}

// Print the given error message and exit with code 1
func Exitf(message string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, message, args...)
	os.Exit(1)
}

// mqttLogEnabled returns true when logs must be forwarded to the MQTT broker.
func mqttLogEnabled(log zerolog.Logger, broker string, enabled bool) bool {
	if enabled && broker == "" {
		log.Warn().Msg("--mqtt-log requires --mqtt-broker; logs are not forwarded")
		return false
	}
	return enabled
}
