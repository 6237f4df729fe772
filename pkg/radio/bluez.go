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

package radio

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/google/uuid"

	"github.com/carverauto/bluecast/pkg/lifecycle"
	"github.com/carverauto/bluecast/pkg/logger"
	"github.com/carverauto/bluecast/pkg/models"
)

const (
	defaultInquiryWindow = 5 * time.Second
	defaultCallTimeout   = 10 * time.Second
)

// Config selects the adapter and bounds D-Bus calls.
type Config struct {
	Adapter       string          `json:"adapter" toml:"adapter" yaml:"adapter"`
	InquiryWindow models.Duration `json:"inquiry_window" toml:"inquiry_window" yaml:"inquiry_window"`
	CallTimeout   models.Duration `json:"call_timeout" toml:"call_timeout" yaml:"call_timeout"`
}

func DefaultConfig() Config {
	return Config{
		InquiryWindow: models.Duration(defaultInquiryWindow),
		CallTimeout:   models.Duration(defaultCallTimeout),
	}
}

// bus is the part of *dbus.Conn the radio needs.
type bus interface {
	Object(dest string, path dbus.ObjectPath) dbus.BusObject
	Close() error
}

// BlueZ implements Radio over the system D-Bus.
type BlueZ struct {
	cfg    Config
	log    logger.Logger
	dial   func() (bus, error)
	now    func() time.Time
	mu     sync.Mutex
	conn   bus
	closed bool
}

var _ Radio = (*BlueZ)(nil)

// NewBlueZ returns a radio that connects to the system bus on first use.
func NewBlueZ(cfg Config, log logger.Logger) *BlueZ {
	return newBlueZ(cfg, log, func() (bus, error) {
		conn, err := dbus.ConnectSystemBus()
		if err != nil {
			return nil, err
		}

		return conn, nil
	})
}

func newBlueZ(cfg Config, log logger.Logger, dial func() (bus, error)) *BlueZ {
	if log == nil {
		log = logger.NewTestLogger()
	}

	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = models.Duration(defaultCallTimeout)
	}

	if cfg.InquiryWindow < 0 {
		cfg.InquiryWindow = 0
	}

	return &BlueZ{cfg: cfg, log: log, dial: dial, now: time.Now}
}

func (b *BlueZ) connection() (bus, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, errClosed
	}

	if b.conn != nil {
		return b.conn, nil
	}

	conn, err := b.dial()
	if err != nil {
		return nil, fmt.Errorf("connect system bus: %w", err)
	}

	b.conn = conn

	return conn, nil
}

func (b *BlueZ) call(ctx context.Context, conn bus, path dbus.ObjectPath, method string, args ...interface{}) *dbus.Call {
	ctx, cancel := context.WithTimeout(ctx, b.cfg.CallTimeout.Std())
	defer cancel()

	return conn.Object(bluezService, path).CallWithContext(ctx, method, 0, args...)
}

func (b *BlueZ) managedObjects(ctx context.Context, conn bus) (managedObjects, error) {
	var objs managedObjects

	call := b.call(ctx, conn, "/", objManagerIface+".GetManagedObjects")
	if call.Err != nil {
		return nil, call.Err
	}

	if err := call.Store(&objs); err != nil {
		return nil, fmt.Errorf("%w: %w", errBadManagedObjs, err)
	}

	return objs, nil
}

// CheckAvailable verifies the bus, the BlueZ service and a powered adapter.
func (b *BlueZ) CheckAvailable(ctx context.Context) error {
	conn, err := b.connection()
	if err != nil {
		return fmt.Errorf("%w: %w", models.ErrRadioUnavailable, err)
	}

	objs, err := b.managedObjects(ctx, conn)
	if err != nil {
		return fmt.Errorf("%w: %w", models.ErrRadioUnavailable, err)
	}

	adapter, props, ok := findAdapter(objs, b.cfg.Adapter)
	if !ok {
		return fmt.Errorf("%w: %w", models.ErrRadioUnavailable, errNoAdapter)
	}

	if !boolProp(props, "Powered") {
		return fmt.Errorf("%w: %w %s", models.ErrRadioUnavailable, errAdapterOff, adapter)
	}

	return nil
}

// CheckPermission reports whether this process may talk to BlueZ. A missing
// or powered-off adapter still counts as permitted; only a denial does not.
func (b *BlueZ) CheckPermission(ctx context.Context) bool {
	err := b.CheckAvailable(ctx)
	if err == nil {
		return true
	}

	switch dbusErrorName(err) {
	case errNameAccessDenied, errNameNotAuthorized:
		b.log.Error().Err(err).Msg("Bluetooth access denied")

		return false
	}

	b.log.Info().Err(err).Msg("Radio unavailable but access allowed")

	return true
}

// Enumerate runs one inquiry window and returns every device BlueZ knows
// under the adapter, remembered or freshly seen.
func (b *BlueZ) Enumerate(ctx context.Context) ([]models.Device, error) {
	conn, err := b.connection()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrEnumeration, err)
	}

	objs, err := b.managedObjects(ctx, conn)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrEnumeration, err)
	}

	adapter, _, ok := findAdapter(objs, b.cfg.Adapter)
	if !ok {
		return nil, fmt.Errorf("%w: %w", models.ErrEnumeration, errNoAdapter)
	}

	if window := b.cfg.InquiryWindow.Std(); window > 0 {
		if err := b.inquire(ctx, conn, adapter, window); err != nil {
			return nil, fmt.Errorf("%w: %w", models.ErrEnumeration, err)
		}

		objs, err = b.managedObjects(ctx, conn)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", models.ErrEnumeration, err)
		}
	}

	devices := devicesUnder(objs, adapter, b.now())
	if len(devices) == 0 {
		return nil, models.ErrNoDevices
	}

	return devices, nil
}

func (b *BlueZ) inquire(ctx context.Context, conn bus, adapter dbus.ObjectPath, window time.Duration) error {
	call := b.call(ctx, conn, adapter, adapterIface+".StartDiscovery")
	if call.Err != nil && dbusErrorName(call.Err) != errNameInProgress {
		return fmt.Errorf("start discovery: %w", call.Err)
	}

	defer func() {
		// Use a fresh context; ctx may already be cancelled by Stop.
		stop := b.call(context.Background(), conn, adapter, adapterIface+".StopDiscovery")
		if stop.Err != nil {
			b.log.Debug().Err(stop.Err).Str("adapter", string(adapter)).Msg("StopDiscovery failed")
		}
	}()

	if !lifecycle.Sleep(ctx, window) {
		return ctx.Err()
	}

	return nil
}

// DeviceInfo reads the current properties of addr from BlueZ.
func (b *BlueZ) DeviceInfo(ctx context.Context, addr models.Address) (models.Device, error) {
	conn, err := b.connection()
	if err != nil {
		return models.Device{}, fmt.Errorf("%w: %w", models.ErrRadioUnavailable, err)
	}

	objs, err := b.managedObjects(ctx, conn)
	if err != nil {
		return models.Device{}, err
	}

	dev, ok := findDevice(objs, addr, b.now())
	if !ok {
		return models.Device{}, fmt.Errorf("%w: %s", models.ErrDeviceNotFound, addr)
	}

	return dev, nil
}

// SetServiceState connects or disconnects one profile on a device.
// AlreadyConnected and NotConnected replies count as success.
func (b *BlueZ) SetServiceState(ctx context.Context, addr models.Address, profile uuid.UUID, enabled bool) error {
	conn, err := b.connection()
	if err != nil {
		return fmt.Errorf("%w: %w", models.ErrRadioUnavailable, err)
	}

	objs, err := b.managedObjects(ctx, conn)
	if err != nil {
		return err
	}

	adapter, _, ok := findAdapter(objs, b.cfg.Adapter)
	if !ok {
		return fmt.Errorf("%w: %w", models.ErrRadioUnavailable, errNoAdapter)
	}

	method, benign := deviceIface+".ConnectProfile", errNameAlreadyConnected
	if !enabled {
		method, benign = deviceIface+".DisconnectProfile", errNameNotConnected
	}

	call := b.call(ctx, conn, devicePath(adapter, addr), method, strings.ToLower(profile.String()))
	if call.Err == nil {
		return nil
	}

	switch dbusErrorName(call.Err) {
	case benign:
		return nil
	case errNameDoesNotExist, errNameUnknownObject:
		return fmt.Errorf("%w: %s", models.ErrDeviceNotFound, addr)
	case errNameNotReady, errNameServiceUnknown:
		return fmt.Errorf("%w: %w", models.ErrRadioUnavailable, call.Err)
	default:
		return call.Err
	}
}

// Close releases the bus connection. Later calls fail.
func (b *BlueZ) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}

	b.closed = true

	if b.conn == nil {
		return nil
	}

	err := b.conn.Close()
	b.conn = nil

	if err != nil && !errors.Is(err, dbus.ErrClosed) {
		return err
	}

	return nil
}
