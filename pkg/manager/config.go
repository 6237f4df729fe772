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

package manager

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/carverauto/bluecast/pkg/audio"
	"github.com/carverauto/bluecast/pkg/audio/pulse"
	"github.com/carverauto/bluecast/pkg/logger"
	"github.com/carverauto/bluecast/pkg/models"
	"github.com/carverauto/bluecast/pkg/radio"
	"github.com/carverauto/bluecast/pkg/scanner"
	"github.com/carverauto/bluecast/pkg/watchdog"
)

const (
	defaultPollInterval       = 5 * time.Millisecond
	defaultNotificationBuffer = 64
	defaultDeliveryTimeout    = 250 * time.Millisecond
)

var (
	errInvalidAudio         = errors.New("invalid audio config")
	errInvalidNotifications = errors.New("invalid notification config")
	errUnknownDevice        = errors.New("not a configured device name or address")
)

// AudioConfig covers capture and the per-sink players.
type AudioConfig struct {
	Format       audio.Format    `json:"format" toml:"format" yaml:"format"`
	PollInterval models.Duration `json:"poll_interval" toml:"poll_interval" yaml:"poll_interval"`
	Pulse        pulse.Config    `json:"pulse" toml:"pulse" yaml:"pulse"`
}

// NotificationConfig bounds the host notification channel. A notification
// that cannot be delivered within DeliveryTimeout is dropped.
type NotificationConfig struct {
	Buffer          int             `json:"buffer" toml:"buffer" yaml:"buffer"`
	DeliveryTimeout models.Duration `json:"delivery_timeout" toml:"delivery_timeout" yaml:"delivery_timeout"`
}

// Config is the whole daemon configuration. Sections tagged reload:"restart"
// only take effect when the manager is rebuilt.
type Config struct {
	Logging       *logger.Config     `json:"logging" toml:"logging" yaml:"logging" reload:"restart"`
	Radio         radio.Config       `json:"radio" toml:"radio" yaml:"radio" reload:"restart"`
	Scanner       scanner.Config     `json:"scanner" toml:"scanner" yaml:"scanner" reload:"restart"`
	Watchdog      watchdog.Config    `json:"watchdog" toml:"watchdog" yaml:"watchdog" reload:"restart"`
	Audio         AudioConfig        `json:"audio" toml:"audio" yaml:"audio" reload:"restart"`
	Notifications NotificationConfig `json:"notifications" toml:"notifications" yaml:"notifications" reload:"restart"`

	// Devices names known devices so the rest of the config can use names.
	Devices map[string]models.Address `json:"devices" toml:"devices" yaml:"devices"`
	// AutoConnect lists device names or addresses the watchdog keeps connected.
	AutoConnect []string `json:"auto_connect" toml:"auto_connect" yaml:"auto_connect"`
	// DisconnectOnClose releases every pooled link when the manager closes.
	DisconnectOnClose bool `json:"disconnect_on_close" toml:"disconnect_on_close" yaml:"disconnect_on_close" reload:"restart"`
}

// DefaultConfig returns a configuration that works with no file at all.
// Unlike the bare watchdog default, sinks follow reconnects.
func DefaultConfig() *Config {
	wd := watchdog.DefaultConfig()
	wd.AutoRoute = true

	return &Config{
		Logging:  logger.DefaultConfig(),
		Radio:    radio.DefaultConfig(),
		Scanner:  scanner.DefaultConfig(),
		Watchdog: wd,
		Audio: AudioConfig{
			Format:       audio.DefaultFormat(),
			PollInterval: models.Duration(defaultPollInterval),
			Pulse:        pulse.DefaultConfig(),
		},
		Notifications: NotificationConfig{
			Buffer:          defaultNotificationBuffer,
			DeliveryTimeout: models.Duration(defaultDeliveryTimeout),
		},
		Devices: make(map[string]models.Address),
	}
}

// Validate implements config.Validator.
func (c *Config) Validate() error {
	if err := c.Scanner.Validate(); err != nil {
		return fmt.Errorf("scanner: %w", err)
	}

	if err := c.Watchdog.Validate(); err != nil {
		return fmt.Errorf("watchdog: %w", err)
	}

	if err := c.Audio.Format.Validate(); err != nil {
		return fmt.Errorf("audio: %w", err)
	}

	if c.Audio.PollInterval <= 0 {
		return fmt.Errorf("%w: poll_interval must be positive", errInvalidAudio)
	}

	if err := c.Audio.Pulse.Validate(); err != nil {
		return fmt.Errorf("audio: %w", err)
	}

	if c.Notifications.Buffer <= 0 || c.Notifications.DeliveryTimeout < 0 {
		return fmt.Errorf("%w: buffer=%d delivery_timeout=%s", errInvalidNotifications,
			c.Notifications.Buffer, c.Notifications.DeliveryTimeout)
	}

	for name, addr := range c.Devices {
		if addr.IsZero() {
			return fmt.Errorf("devices.%s: %w", name, models.ErrInvalidParameter)
		}
	}

	if _, err := c.ResolveAutoConnect(); err != nil {
		return err
	}

	return nil
}

// Resolve turns a configured device name or a literal address into an address.
func (c *Config) Resolve(ref string) (models.Address, error) {
	if addr, ok := c.Devices[ref]; ok {
		return addr, nil
	}

	addr, err := models.ParseAddress(ref)
	if err != nil {
		return 0, fmt.Errorf("%q: %w", ref, errUnknownDevice)
	}

	return addr, nil
}

// ResolveAutoConnect returns the desired set named by AutoConnect, sorted
// and without duplicates.
func (c *Config) ResolveAutoConnect() ([]models.Address, error) {
	seen := make(map[models.Address]struct{}, len(c.AutoConnect))
	out := make([]models.Address, 0, len(c.AutoConnect))

	for _, ref := range c.AutoConnect {
		addr, err := c.Resolve(ref)
		if err != nil {
			return nil, fmt.Errorf("auto_connect: %w", err)
		}

		if _, dup := seen[addr]; dup {
			continue
		}

		seen[addr] = struct{}{}
		out = append(out, addr)
	}

	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })

	return out, nil
}
