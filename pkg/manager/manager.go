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

// Package manager owns every component of the daemon and is the single
// surface a host program talks to.
package manager

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/carverauto/bluecast/pkg/audio"
	"github.com/carverauto/bluecast/pkg/config"
	"github.com/carverauto/bluecast/pkg/lifecycle"
	"github.com/carverauto/bluecast/pkg/logger"
	"github.com/carverauto/bluecast/pkg/metrics"
	"github.com/carverauto/bluecast/pkg/models"
	"github.com/carverauto/bluecast/pkg/pool"
	"github.com/carverauto/bluecast/pkg/profile"
	"github.com/carverauto/bluecast/pkg/radio"
	"github.com/carverauto/bluecast/pkg/scanner"
	"github.com/carverauto/bluecast/pkg/watchdog"
)

// Domain separates the last-error slots the host can query.
type Domain string

const (
	DomainBluetooth Domain = "bluetooth"
	DomainAudio     Domain = "audio"
)

var errPanic = errors.New("internal panic")

// PermissionChecker is implemented by radios that can tell a denial apart
// from a missing adapter.
type PermissionChecker interface {
	CheckPermission(ctx context.Context) bool
}

// Deps are the platform pieces the manager drives. Audio may be nil, in
// which case audio operations report models.ErrNotInitialized.
type Deps struct {
	Radio   radio.Radio
	Audio   audio.Backend
	Metrics *metrics.Recorder
}

// Manager replaces process-wide state with one owned value. All methods are
// safe for concurrent use.
type Manager struct {
	cfg Config
	log logger.Logger

	ctx    context.Context
	cancel context.CancelFunc

	radio    radio.Radio
	profiles *profile.Manager
	scanner  *scanner.Scanner
	pool     *pool.Pool
	watchdog *watchdog.Watchdog
	router   *audio.Router
	notes    *notifier

	errMu   sync.Mutex
	lastErr map[Domain]string

	reloadMu sync.Mutex

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// New wires the components together. Nothing starts until asked.
func New(cfg *Config, deps Deps, log logger.Logger) (*Manager, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	if deps.Radio == nil {
		return nil, fmt.Errorf("%w: radio is required", models.ErrInvalidParameter)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrInvalidParameter, err)
	}

	desired, err := cfg.ResolveAutoConnect()
	if err != nil {
		return nil, err
	}

	if log == nil {
		log = logger.NewTestLogger()
	}

	ctx, cancel := context.WithCancel(context.Background())

	m := &Manager{
		cfg:     *cfg,
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
		radio:   deps.Radio,
		notes:   newNotifier(cfg.Notifications, lifecycle.Component(log, "notifications")),
		lastErr: make(map[Domain]string),
	}

	m.profiles = profile.NewManager(deps.Radio, lifecycle.Component(log, "profiles"))
	m.scanner = scanner.New(deps.Radio, cfg.Scanner, lifecycle.Component(log, "scanner"), deps.Metrics)
	m.pool = pool.New(m.profiles, deps.Radio, lifecycle.Component(log, "pool"), deps.Metrics)
	m.watchdog = watchdog.New(m.pool, cfg.Watchdog, lifecycle.Component(log, "watchdog"), deps.Metrics)
	m.watchdog.SetDesired(desired)

	if deps.Audio != nil {
		m.router = audio.NewRouter(deps.Audio, cfg.Audio.Format, cfg.Audio.PollInterval.Std(),
			lifecycle.Component(log, "audio"), deps.Metrics)
		m.router.OnSinkError(m.sinkFailed)
		m.router.Capturer().OnStreamError(m.streamFailed)
	}

	m.scanner.OnDeviceFound(m.deviceFound)
	m.scanner.OnFailure(m.scanFailing)
	m.watchdog.OnReconnected(m.reconnected)
	m.watchdog.OnReconnectFailed(m.reconnectFailed)

	return m, nil
}

// Notifications delivers discovery and asynchronous failure events. The host
// must keep reading: an unread discovery holds up the scan loop, and StopScan
// waits for that loop. The channel
// is closed by Close.
func (m *Manager) Notifications() <-chan Notification {
	return m.notes.ch
}

// LastError returns the message of the most recent failure in domain, or "".
func (m *Manager) LastError(domain Domain) string {
	m.errMu.Lock()
	defer m.errMu.Unlock()

	return m.lastErr[domain]
}

func (m *Manager) StartScan() error {
	return m.do(DomainBluetooth, "start scan", func() error {
		return m.scanner.Start(m.ctx)
	})
}

func (m *Manager) StopScan() error {
	return m.do(DomainBluetooth, "stop scan", func() error {
		m.scanner.Stop()
		return nil
	})
}

// Devices returns every device seen since start.
func (m *Manager) Devices() []models.Device {
	return m.scanner.DiscoveredDevices()
}

// ScanStats reports the scan loop's cadence.
func (m *Manager) ScanStats() scanner.Stats {
	return m.scanner.Stats()
}

func (m *Manager) Connect(ctx context.Context, addr models.Address) error {
	return m.do(DomainBluetooth, "connect", func() error {
		if addr.IsZero() {
			return models.NewOperationError(models.KindInvalidParameter, "connect", addr, models.ErrInvalidParameter)
		}

		return m.pool.Connect(ctx, addr)
	})
}

func (m *Manager) Disconnect(ctx context.Context, addr models.Address) error {
	return m.do(DomainBluetooth, "disconnect", func() error {
		if addr.IsZero() {
			return models.NewOperationError(models.KindInvalidParameter, "disconnect", addr, models.ErrInvalidParameter)
		}

		return m.pool.Disconnect(ctx, addr)
	})
}

// IsConnected asks the radio. Any failure reads as not connected.
func (m *Manager) IsConnected(ctx context.Context, addr models.Address) bool {
	var up bool

	_ = m.do(DomainBluetooth, "is connected", func() error {
		up = m.pool.IsConnected(ctx, addr)
		return nil
	})

	return up
}

// Connected lists the addresses the pool believes are linked.
func (m *Manager) Connected() []models.Address {
	return m.pool.Connected()
}

// SetDesired replaces the set of devices the watchdog keeps connected.
func (m *Manager) SetDesired(addrs []models.Address) error {
	return m.do(DomainBluetooth, "set desired", func() error {
		for _, a := range addrs {
			if a.IsZero() {
				return models.NewOperationError(models.KindInvalidParameter, "set desired", a, models.ErrInvalidParameter)
			}
		}

		m.watchdog.SetDesired(addrs)

		return nil
	})
}

func (m *Manager) Desired() []models.Address {
	return m.watchdog.Desired()
}

func (m *Manager) StartWatchdog() error {
	return m.do(DomainBluetooth, "start watchdog", func() error {
		return m.watchdog.Start(m.ctx)
	})
}

func (m *Manager) StopWatchdog() error {
	return m.do(DomainBluetooth, "stop watchdog", func() error {
		m.watchdog.Stop()
		return nil
	})
}

func (m *Manager) StartAudio() error {
	return m.do(DomainAudio, "start audio", func() error {
		if m.router == nil {
			return errNoAudio("start audio")
		}

		return m.router.Start(m.ctx)
	})
}

func (m *Manager) StopAudio() error {
	return m.do(DomainAudio, "stop audio", func() error {
		if m.router == nil {
			return errNoAudio("stop audio")
		}

		m.router.Stop()

		return nil
	})
}

// AddSink routes captured audio to addr's output.
func (m *Manager) AddSink(ctx context.Context, addr models.Address) error {
	return m.do(DomainAudio, "add sink", func() error {
		if m.router == nil {
			return errNoAudio("add sink")
		}

		if addr.IsZero() {
			return models.NewOperationError(models.KindInvalidParameter, "add sink", addr, models.ErrInvalidParameter)
		}

		return m.router.RegisterSink(ctx, addr)
	})
}

func (m *Manager) RemoveSink(addr models.Address) error {
	return m.do(DomainAudio, "remove sink", func() error {
		if m.router == nil {
			return errNoAudio("remove sink")
		}

		m.router.UnregisterSink(addr)

		return nil
	})
}

func (m *Manager) Sinks() []audio.SinkInfo {
	if m.router == nil {
		return nil
	}

	return m.router.Sinks()
}

func (m *Manager) ChannelCount(addr models.Address) (int, error) {
	var n int

	err := m.do(DomainAudio, "channel count", func() error {
		if m.router == nil {
			return errNoAudio("channel count")
		}

		var err error
		n, err = m.router.ChannelCount(addr)

		return err
	})

	return n, err
}

// CheckPermission reports whether the process may use the radio at all.
// Radios that cannot tell are assumed to allow it.
func (m *Manager) CheckPermission(ctx context.Context) bool {
	allowed := true

	_ = m.do(DomainBluetooth, "check permission", func() error {
		if pc, ok := m.radio.(PermissionChecker); ok {
			allowed = pc.CheckPermission(ctx)
		}

		return nil
	})

	return allowed
}

// Reload applies the live parts of cfg: the device names and the desired
// set. It returns the sections that differ but need a restart.
func (m *Manager) Reload(cfg *Config) ([]string, error) {
	var restart []string

	err := m.do(DomainBluetooth, "reload", func() error {
		if cfg == nil {
			return models.NewOperationError(models.KindInvalidParameter, "reload", 0, models.ErrInvalidParameter)
		}

		if err := cfg.Validate(); err != nil {
			return models.NewOperationError(models.KindInvalidParameter, "reload", 0,
				fmt.Errorf("%w: %w", models.ErrInvalidParameter, err))
		}

		desired, err := cfg.ResolveAutoConnect()
		if err != nil {
			return err
		}

		m.reloadMu.Lock()
		defer m.reloadMu.Unlock()

		restart = config.FieldsChangedByTag(&m.cfg, cfg, "reload", map[string]bool{"restart": true})

		m.cfg.Devices = cfg.Devices
		m.cfg.AutoConnect = cfg.AutoConnect
		m.watchdog.SetDesired(desired)

		m.log.Info().
			Int("desired", len(desired)).
			Strs("needs_restart", restart).
			Msg("Configuration reloaded")

		return nil
	})

	return restart, err
}

// Close stops every loop, releases sinks and closes the notification
// channel. Later calls return the first result.
func (m *Manager) Close() error {
	m.closeOnce.Do(func() {
		m.closed.Store(true)
		m.log.Info().Msg("Shutting down")

		var g errgroup.Group

		g.Go(func() error {
			m.watchdog.Stop()

			if !m.cfg.DisconnectOnClose {
				return nil
			}

			ctx, cancel := context.WithTimeout(context.Background(), m.cfg.Radio.CallTimeout.Std())
			defer cancel()

			return m.pool.DisconnectAll(ctx)
		})

		g.Go(func() error {
			m.scanner.Stop()
			return nil
		})

		if m.router != nil {
			g.Go(m.router.Close)
		}

		// Stopped loops no longer publish, but an observer may still be
		// waiting on the outbox until the context is gone.
		m.cancel()
		m.notes.close()

		m.closeErr = g.Wait()
	})

	return m.closeErr
}

func errNoAudio(op string) error {
	return models.NewOperationError(models.KindNotInitialized, op, 0,
		fmt.Errorf("%w: no audio backend", models.ErrNotInitialized))
}

// do runs one host-facing operation: it refuses work after Close, turns a
// panic into an error and records the failure for LastError.
func (m *Manager) do(domain Domain, op string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error().Interface("panic", r).Str("op", op).Msg("Recovered from panic")
			err = models.NewOperationError(models.KindUnknown, op, 0, fmt.Errorf("%w: %v", errPanic, r))
		}

		if err != nil {
			m.record(domain, err)
		}
	}()

	if m.closed.Load() {
		return models.NewOperationError(models.KindNotInitialized, op, 0, models.ErrNotInitialized)
	}

	return fn()
}

func (m *Manager) record(domain Domain, err error) {
	m.errMu.Lock()
	m.lastErr[domain] = err.Error()
	m.errMu.Unlock()
}

func (m *Manager) fail(domain Domain, addr models.Address, err error) {
	m.record(domain, err)

	m.notes.publish(Notification{
		Kind:    OperationFailed,
		Domain:  domain,
		Address: addr,
		Error:   models.KindOf(err),
		Code:    models.CodeOf(err),
		Message: err.Error(),
	})
}

func (m *Manager) deviceFound(dev models.Device) {
	m.notes.publish(Notification{
		Kind:    DeviceDiscovered,
		Domain:  DomainBluetooth,
		Address: dev.Address,
		Device:  &dev,
		Message: dev.Name,
	})
}

func (m *Manager) scanFailing(err error, consecutive int) {
	m.log.Error().Err(err).Int("consecutive", consecutive).Msg("Device scan keeps failing")
	m.fail(DomainBluetooth, 0, err)
}

func (m *Manager) reconnectFailed(addr models.Address, err error) {
	m.fail(DomainBluetooth, addr, err)
}

// reconnected re-attaches the device's sink when auto-routing is on and
// audio is flowing.
func (m *Manager) reconnected(addr models.Address) {
	if !m.cfg.Watchdog.AutoRoute || m.router == nil || !m.router.Running() {
		return
	}

	// The old renderer points at a sink the sound server has since removed.
	m.router.UnregisterSink(addr)

	if err := m.router.RegisterSink(m.ctx, addr); err != nil {
		m.log.Warn().Err(err).Str("address", addr.String()).Msg("Auto-route after reconnect failed")
		m.fail(DomainAudio, addr, err)

		return
	}

	m.log.Info().Str("address", addr.String()).Msg("Audio re-routed after reconnect")
}

// sinkFailed drops sinks whose player died. Full queues are only counted.
func (m *Manager) sinkFailed(addr models.Address, err error) {
	if !errors.Is(err, audio.ErrSinkGone) {
		return
	}

	m.router.UnregisterSink(addr)
	m.fail(DomainAudio, addr, models.NewOperationError(models.KindAudioInitFailed, "sink playback", addr, err))
}

func (m *Manager) streamFailed(err error) {
	m.fail(DomainAudio, 0, models.NewOperationError(models.KindAudioInitFailed, "capture", 0, err))
}
