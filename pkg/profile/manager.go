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

// Package profile enables and disables service profiles on paired devices.
package profile

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/carverauto/bluecast/pkg/logger"
	"github.com/carverauto/bluecast/pkg/models"
	"github.com/carverauto/bluecast/pkg/radio"
)

// AudioSink is the A2DP sink service class.
//
//nolint:gochecknoglobals // well-known service UUID
var AudioSink = uuid.MustParse("0000110b-0000-1000-8000-00805f9b34fb")

// Manager is stateless; every call queries and mutates the radio directly.
type Manager struct {
	radio radio.Radio
	log   logger.Logger
}

func NewManager(r radio.Radio, log logger.Logger) *Manager {
	if log == nil {
		log = logger.NewTestLogger()
	}

	return &Manager{radio: r, log: log}
}

func (m *Manager) EnableAudioSink(ctx context.Context, addr models.Address) error {
	return m.Enable(ctx, addr, AudioSink)
}

func (m *Manager) DisableAudioSink(ctx context.Context, addr models.Address) error {
	return m.Disable(ctx, addr, AudioSink)
}

func (m *Manager) Enable(ctx context.Context, addr models.Address, svc uuid.UUID) error {
	return m.set(ctx, addr, svc, true)
}

func (m *Manager) Disable(ctx context.Context, addr models.Address, svc uuid.UUID) error {
	return m.set(ctx, addr, svc, false)
}

// set requires the device to be known before toggling the service.
func (m *Manager) set(ctx context.Context, addr models.Address, svc uuid.UUID, enabled bool) error {
	if addr.IsZero() {
		return fmt.Errorf("%w: zero address", models.ErrInvalidParameter)
	}

	if _, err := m.radio.DeviceInfo(ctx, addr); err != nil {
		return fmt.Errorf("%w: %w", models.ErrConnectionFailed, err)
	}

	if err := m.radio.SetServiceState(ctx, addr, svc, enabled); err != nil {
		m.log.Debug().
			Err(err).
			Str("address", addr.String()).
			Str("profile", svc.String()).
			Bool("enabled", enabled).
			Msg("Service state change failed")

		return fmt.Errorf("%w: %w", models.ErrConnectionFailed, err)
	}

	return nil
}
