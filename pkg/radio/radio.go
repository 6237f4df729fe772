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

// Package radio abstracts the local Bluetooth adapter.
package radio

import (
	"context"

	"github.com/google/uuid"

	"github.com/carverauto/bluecast/pkg/models"
)

//go:generate mockgen -destination=mock_radio.go -package=radio github.com/carverauto/bluecast/pkg/radio Radio

// Radio is the OS control surface for the adapter.
//
// Enumerate returns models.ErrNoDevices for an empty pass and an error
// wrapping models.ErrEnumeration for anything else that went wrong.
// DeviceInfo is authoritative: it asks the OS, never a cache.
// SetServiceState must be idempotent.
type Radio interface {
	CheckAvailable(ctx context.Context) error
	Enumerate(ctx context.Context) ([]models.Device, error)
	DeviceInfo(ctx context.Context, addr models.Address) (models.Device, error)
	SetServiceState(ctx context.Context, addr models.Address, profile uuid.UUID, enabled bool) error
}
