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
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/bluecast/pkg/config"
	"github.com/carverauto/bluecast/pkg/models"
)

const tomlConfig = `
auto_connect = ["living_room", "00:1A:7D:DA:71:14"]

[logging]
level = "debug"

[radio]
adapter = "hci1"
inquiry_window = "3s"

[scanner]
base_interval = "2s"
max_interval = "30s"

[watchdog]
period = "750ms"

[audio]
poll_interval = "10ms"

[audio.format]
sample_rate = 44100
channels = 2
bits_per_sample = 16
float = false

[audio.pulse]
queue_depth = 4

[devices]
living_room = "00:1A:7D:DA:71:13"
`

const yamlConfig = `
devices:
  kitchen: 00-1A-7D-DA-71-14
auto_connect: [kitchen]
notifications:
  buffer: 8
  delivery_timeout: 1s
`

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	return path
}

func TestLoadTOMLConfig(t *testing.T) {
	cfg := DefaultConfig()
	path := writeConfig(t, "bluecast.toml", tomlConfig)

	require.NoError(t, config.NewConfig(nil).LoadAndValidate(context.Background(), path, cfg))

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "hci1", cfg.Radio.Adapter)
	assert.Equal(t, 3*time.Second, cfg.Radio.InquiryWindow.Std())
	assert.Equal(t, 2*time.Second, cfg.Scanner.BaseInterval.Std())
	assert.Equal(t, time.Second, cfg.Scanner.MinInterval.Std(), "unset keys keep defaults")
	assert.Equal(t, 750*time.Millisecond, cfg.Watchdog.Period.Std())
	assert.True(t, cfg.Watchdog.AutoRoute)
	assert.Equal(t, 44100, cfg.Audio.Format.SampleRate)
	assert.Equal(t, 4, cfg.Audio.Pulse.QueueDepth)
	assert.Equal(t, "pacat", cfg.Audio.Pulse.Pacat)

	addrs, err := cfg.ResolveAutoConnect()
	require.NoError(t, err)
	assert.Equal(t, []models.Address{speaker, headset}, addrs)
}

func TestLoadYAMLConfigWithEnvOverlay(t *testing.T) {
	t.Setenv("BLUECAST_WATCHDOG_PERIOD", "2s")
	t.Setenv("BLUECAST_AUDIO_PULSE_SOURCE", "mix.monitor")

	cfg := DefaultConfig()
	path := writeConfig(t, "bluecast.yaml", yamlConfig)

	require.NoError(t, config.NewConfig(nil).LoadAndValidate(context.Background(), path, cfg))

	assert.Equal(t, headset, cfg.Devices["kitchen"])
	assert.Equal(t, 8, cfg.Notifications.Buffer)
	assert.Equal(t, time.Second, cfg.Notifications.DeliveryTimeout.Std())
	assert.Equal(t, 2*time.Second, cfg.Watchdog.Period.Std())
	assert.Equal(t, "mix.monitor", cfg.Audio.Pulse.Source)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	path := writeConfig(t, "bad.toml", "auto_connect = [\"nowhere\"]\n")

	err := config.NewConfig(nil).LoadAndValidate(context.Background(), path, cfg)
	require.ErrorIs(t, err, errUnknownDevice)
}
