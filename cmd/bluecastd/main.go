/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Command bluecastd keeps Bluetooth speakers connected and plays the
// system's audio output on all of them at once.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/carverauto/bluecast/pkg/audio/pulse"
	"github.com/carverauto/bluecast/pkg/config"
	"github.com/carverauto/bluecast/pkg/lifecycle"
	"github.com/carverauto/bluecast/pkg/logger"
	"github.com/carverauto/bluecast/pkg/manager"
	"github.com/carverauto/bluecast/pkg/metrics"
	"github.com/carverauto/bluecast/pkg/radio"
	"github.com/carverauto/bluecast/pkg/version"
)

var (
	errFailedToLoadConfig = errors.New("failed to load config")
	errNoPermission       = errors.New("bluetooth access denied")
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	flags := pflag.NewFlagSet("bluecastd", pflag.ExitOnError)
	configPath := flags.StringP("config", "c", "", "Path to config file (.toml, .json, .yaml)")
	logLevel := flags.String("log-level", "", "Override the configured log level")
	noAudio := flags.Bool("no-audio", false, "Manage connections only, do not capture or route audio")
	showVersion := flags.BoolP("version", "v", false, "Print the version and exit")

	if err := flags.Parse(os.Args[1:]); err != nil {
		return err
	}

	if *showVersion {
		fmt.Println(version.GetFullVersion())
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Step 1: configuration, defaults first so a partial file is enough.
	cfg := manager.DefaultConfig()

	if err := config.NewConfig(nil).LoadAndValidate(ctx, *configPath, cfg); err != nil {
		return fmt.Errorf("%w: %w", errFailedToLoadConfig, err)
	}

	logConfig := cfg.Logging
	if logConfig == nil {
		logConfig = logger.DefaultConfig()
	}

	if *logLevel != "" {
		logConfig.Level = *logLevel
	}

	// Step 2: logger.
	mainLogger, err := lifecycle.CreateComponentLogger("bluecastd", logConfig)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	defer func() { _ = mainLogger.Close() }()

	mainLogger.Info().Str("version", version.GetFullVersion()).Msg("Starting bluecastd")

	// Step 3: platform pieces and the manager that owns them.
	bluez := radio.NewBlueZ(cfg.Radio, lifecycle.Component(mainLogger, "bluez"))
	defer func() { _ = bluez.Close() }()

	deps := manager.Deps{
		Radio:   bluez,
		Metrics: metrics.FromGlobal(),
	}

	if !*noAudio {
		deps.Audio = pulse.New(cfg.Audio.Pulse, lifecycle.Component(mainLogger, "pulse"))
	}

	mgr, err := manager.New(cfg, deps, mainLogger)
	if err != nil {
		return err
	}

	defer func() {
		if err := mgr.Close(); err != nil {
			mainLogger.Error().Err(err).Msg("Shutdown finished with errors")
		}
	}()

	if !mgr.CheckPermission(ctx) {
		return errNoPermission
	}

	go logNotifications(mainLogger, mgr.Notifications())

	// Step 4: start the loops. Each one failing alone is not fatal.
	if err := mgr.StartScan(); err != nil {
		mainLogger.Error().Err(err).Msg("Device scan not started")
	}

	if !*noAudio {
		if err := mgr.StartAudio(); err != nil {
			mainLogger.Error().Err(err).Msg("Audio capture not started")
		}

		for _, addr := range mgr.Desired() {
			if err := mgr.AddSink(ctx, addr); err != nil {
				mainLogger.Warn().Err(err).Str("address", addr.String()).Msg("Sink not ready yet")
			}
		}
	}

	if err := mgr.StartWatchdog(); err != nil {
		mainLogger.Error().Err(err).Msg("Watchdog not started")
	}

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)

	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			mainLogger.Info().Msg("Signal received, stopping")
			return nil
		case <-hup:
			reload(ctx, mainLogger, mgr, *configPath)
		}
	}
}

// reload re-reads the config file on SIGHUP. Only the device names and the
// auto-connect set apply without a restart.
func reload(ctx context.Context, log logger.Logger, mgr *manager.Manager, path string) {
	cfg := manager.DefaultConfig()

	if err := config.NewConfig(log).LoadAndValidate(ctx, path, cfg); err != nil {
		log.Error().Err(err).Msg("Reload rejected, keeping the running configuration")
		return
	}

	restart, err := mgr.Reload(cfg)
	if err != nil {
		log.Error().Err(err).Msg("Reload failed")
		return
	}

	if len(restart) > 0 {
		log.Warn().Strs("sections", restart).Msg("Changed sections take effect after a restart")
	}
}

func logNotifications(log logger.Logger, notes <-chan manager.Notification) {
	for n := range notes {
		switch n.Kind {
		case manager.DeviceDiscovered:
			log.Info().
				Str("address", n.Address.String()).
				Str("name", n.Message).
				Msg("Device discovered")
		case manager.OperationFailed:
			log.Warn().
				Str("domain", string(n.Domain)).
				Str("address", n.Address.String()).
				Str("kind", n.Error.String()).
				Int("code", int(n.Code)).
				Msg(n.Message)
		}
	}
}
