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

// Package scanner discovers nearby devices on a background loop and keeps
// an address-keyed cache of everything it has seen.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/carverauto/bluecast/pkg/lifecycle"
	"github.com/carverauto/bluecast/pkg/logger"
	"github.com/carverauto/bluecast/pkg/metrics"
	"github.com/carverauto/bluecast/pkg/models"
)

// Enumerator is the slice of the radio the scanner needs.
type Enumerator interface {
	CheckAvailable(ctx context.Context) error
	Enumerate(ctx context.Context) ([]models.Device, error)
}

// DeviceObserver is called once per address, on first sighting.
type DeviceObserver func(dev models.Device)

// FailureObserver is called when enumeration has kept failing for
// EscalateAfter consecutive cycles. It fires once per failure streak.
type FailureObserver func(err error, consecutive int)

// Stats is a point-in-time view of the scan loop.
type Stats struct {
	Running             bool
	Cycles              uint64
	ConsecutiveFailures int
	Interval            time.Duration
	Cached              int
}

// Scanner periodically enumerates nearby devices into a cache on one
// background goroutine.
type Scanner struct {
	radio   Enumerator
	cfg     Config
	log     logger.Logger
	metrics *metrics.Recorder
	worker  *lifecycle.Worker
	rand    func() float64

	mu    sync.RWMutex
	cache map[models.Address]*models.Device

	observerMu sync.RWMutex
	onFound    DeviceObserver
	onFailure  FailureObserver

	cycles   atomic.Uint64
	failures atomic.Int64
	interval atomic.Int64
}

// New creates an idle scanner. rec may be nil.
func New(r Enumerator, cfg Config, log logger.Logger, rec *metrics.Recorder) *Scanner {
	if log == nil {
		log = logger.NewTestLogger()
	}

	s := &Scanner{
		radio:   r,
		cfg:     cfg,
		log:     log,
		metrics: rec,
		worker:  lifecycle.NewWorker("scanner", log),
		//nolint:gosec // jitter does not need a cryptographic source
		rand:  rand.New(rand.NewSource(time.Now().UnixNano())).Float64,
		cache: make(map[models.Address]*models.Device),
	}

	s.interval.Store(int64(cfg.BaseInterval))

	return s
}

// Start checks the radio and launches the scan loop. It is a no-op when the
// scanner is already running. The loop ends on Stop or when ctx is done.
func (s *Scanner) Start(ctx context.Context) error {
	if s.worker.Running() {
		return nil
	}

	if err := s.radio.CheckAvailable(ctx); err != nil {
		if !errors.Is(err, models.ErrRadioUnavailable) {
			err = fmt.Errorf("%w: %w", models.ErrRadioUnavailable, err)
		}

		s.log.Error().Err(err).Msg("Radio pre-flight check failed")

		return err
	}

	err := s.worker.Start(ctx, s.run)

	switch {
	case errors.Is(err, lifecycle.ErrAlreadyRunning):
		return nil
	case err != nil:
		return err
	}

	s.log.Info().
		Dur("base_interval", s.cfg.BaseInterval.Std()).
		Dur("max_interval", s.cfg.MaxInterval.Std()).
		Msg("Starting device scanner")

	return nil
}

// Stop signals the loop and waits for it to exit, including any observer
// still running. Called from inside an observer it only signals.
func (s *Scanner) Stop() {
	if s.worker.Running() {
		s.log.Info().Msg("Stopping device scanner")
	}

	s.worker.Stop()
}

// Running reports whether the scan loop is active.
func (s *Scanner) Running() bool {
	return s.worker.Running()
}

// OnDeviceFound replaces the discovery observer. nil clears it.
func (s *Scanner) OnDeviceFound(obs DeviceObserver) {
	s.observerMu.Lock()
	s.onFound = obs
	s.observerMu.Unlock()
}

// OnFailure replaces the escalation observer. nil clears it.
func (s *Scanner) OnFailure(obs FailureObserver) {
	s.observerMu.Lock()
	s.onFailure = obs
	s.observerMu.Unlock()
}

// DiscoveredDevices returns a copy of the cache ordered by address.
func (s *Scanner) DiscoveredDevices() []models.Device {
	s.mu.RLock()
	out := make([]models.Device, 0, len(s.cache))

	for _, d := range s.cache {
		out = append(out, *d)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })

	return out
}

// Device looks up one cached record.
func (s *Scanner) Device(addr models.Address) (models.Device, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.cache[addr]
	if !ok {
		return models.Device{}, false
	}

	return *d, true
}

// Stats snapshots the loop counters and cache size.
func (s *Scanner) Stats() Stats {
	s.mu.RLock()
	cached := len(s.cache)
	s.mu.RUnlock()

	return Stats{
		Running:             s.worker.Running(),
		Cycles:              s.cycles.Load(),
		ConsecutiveFailures: int(s.failures.Load()),
		Interval:            time.Duration(s.interval.Load()),
		Cached:              cached,
	}
}

func (s *Scanner) run(ctx context.Context) {
	backoff := NewBackoff(s.cfg, s.rand)
	escalated := false

	for ctx.Err() == nil {
		devices, err := s.radio.Enumerate(ctx)
		if ctx.Err() != nil {
			break
		}

		s.cycles.Add(1)

		var sleep time.Duration

		switch {
		case err == nil:
			s.merge(ctx, devices)
			s.metrics.ScanCycle(ctx, metrics.OutcomeSuccess)

			sleep = backoff.Success()
			escalated = false
		case errors.Is(err, models.ErrNoDevices):
			s.metrics.ScanCycle(ctx, metrics.OutcomeEmpty)

			sleep = backoff.Success()
			escalated = false
		default:
			s.metrics.ScanCycle(ctx, metrics.OutcomeError)

			sleep = backoff.Failure()
			s.metrics.BackoffInterval(ctx, sleep)

			s.log.Warn().
				Err(err).
				Int("consecutive_failures", backoff.Failures()).
				Dur("retry_in", sleep).
				Msg("Device enumeration failed")

			if s.cfg.EscalateAfter > 0 && backoff.Failures() >= s.cfg.EscalateAfter && !escalated {
				escalated = true
				s.escalate(err, backoff.Failures())
			}
		}

		s.failures.Store(int64(backoff.Failures()))
		s.interval.Store(int64(backoff.Current()))

		if !lifecycle.Sleep(ctx, sleep) {
			break
		}
	}

	s.log.Debug().Uint64("cycles", s.cycles.Load()).Msg("Scan loop exited")
}

// merge folds one pass into the cache and then notifies observers for new
// addresses, outside the lock.
func (s *Scanner) merge(ctx context.Context, devices []models.Device) {
	now := time.Now()

	var fresh []models.Device

	s.mu.Lock()
	for i := range devices {
		d := devices[i]
		if d.LastSeen.IsZero() {
			d.LastSeen = now
		}

		if existing, ok := s.cache[d.Address]; ok {
			existing.Merge(&d)
			continue
		}

		d.FirstSeen = d.LastSeen
		rec := d
		s.cache[d.Address] = &rec
		fresh = append(fresh, d)
	}
	s.mu.Unlock()

	for _, d := range fresh {
		s.metrics.DeviceDiscovered(ctx)
		s.log.Info().
			Str("address", d.Address.String()).
			Str("name", d.Name).
			Bool("paired", d.Authenticated).
			Msg("Discovered device")

		s.observerMu.RLock()
		obs := s.onFound
		s.observerMu.RUnlock()

		if obs != nil {
			s.worker.Callback("device_found", func() { obs(d) })
		}
	}
}

func (s *Scanner) escalate(err error, consecutive int) {
	s.log.Error().
		Err(err).
		Int("consecutive_failures", consecutive).
		Msg("Device enumeration keeps failing")

	s.observerMu.RLock()
	obs := s.onFailure
	s.observerMu.RUnlock()

	if obs != nil {
		s.worker.Callback("scan_failure", func() { obs(err, consecutive) })
	}
}
