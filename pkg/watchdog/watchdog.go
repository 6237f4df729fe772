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

// Package watchdog keeps actual connections aligned with a desired set.
package watchdog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/carverauto/bluecast/pkg/lifecycle"
	"github.com/carverauto/bluecast/pkg/logger"
	"github.com/carverauto/bluecast/pkg/metrics"
	"github.com/carverauto/bluecast/pkg/models"
)

const (
	defaultPeriod         = 500 * time.Millisecond
	defaultReconnectRate  = 4.0
	defaultReconnectBurst = 2
)

var errInvalidConfig = errors.New("watchdog period and reconnect rate must be positive")

// Connector is the pool as seen by the watchdog.
type Connector interface {
	IsConnected(ctx context.Context, addr models.Address) bool
	Connect(ctx context.Context, addr models.Address) error
}

type Config struct {
	Period         models.Duration `json:"period" toml:"period" yaml:"period"`
	ReconnectRate  float64         `json:"reconnect_rate" toml:"reconnect_rate" yaml:"reconnect_rate"`
	ReconnectBurst int             `json:"reconnect_burst" toml:"reconnect_burst" yaml:"reconnect_burst"`
	AutoRoute      bool            `json:"auto_route" toml:"auto_route" yaml:"auto_route"`
}

func DefaultConfig() Config {
	return Config{
		Period:         models.Duration(defaultPeriod),
		ReconnectRate:  defaultReconnectRate,
		ReconnectBurst: defaultReconnectBurst,
	}
}

func (c *Config) Validate() error {
	if c.Period <= 0 || c.ReconnectRate <= 0 || c.ReconnectBurst <= 0 {
		return fmt.Errorf("%w: period=%s rate=%v burst=%d", errInvalidConfig, c.Period, c.ReconnectRate, c.ReconnectBurst)
	}

	return nil
}

// ReconnectObserver is told about every reconnect the watchdog made happen.
type ReconnectObserver func(addr models.Address)

// FailureObserver is told about every reconnect attempt that failed.
type FailureObserver func(addr models.Address, err error)

// Result summarises one reconciliation pass.
type Result struct {
	Checked     int
	Reconnected []models.Address
	Failed      map[models.Address]error
	Deferred    []models.Address
}

type Watchdog struct {
	conn    Connector
	cfg     Config
	log     logger.Logger
	metrics *metrics.Recorder
	worker  *lifecycle.Worker
	limiter *rate.Limiter

	mu      sync.Mutex
	desired map[models.Address]struct{}

	observerMu    sync.RWMutex
	onReconnected ReconnectObserver
	onFailed      FailureObserver
}

func New(conn Connector, cfg Config, log logger.Logger, rec *metrics.Recorder) *Watchdog {
	if log == nil {
		log = logger.NewTestLogger()
	}

	return &Watchdog{
		conn:    conn,
		cfg:     cfg,
		log:     log,
		metrics: rec,
		worker:  lifecycle.NewWorker("watchdog", log),
		limiter: rate.NewLimiter(rate.Limit(cfg.ReconnectRate), cfg.ReconnectBurst),
		desired: make(map[models.Address]struct{}),
	}
}

// SetDesired replaces the desired set.
func (w *Watchdog) SetDesired(addrs []models.Address) {
	next := make(map[models.Address]struct{}, len(addrs))
	for _, a := range addrs {
		next[a] = struct{}{}
	}

	w.mu.Lock()
	w.desired = next
	w.mu.Unlock()
}

func (w *Watchdog) Add(addr models.Address) {
	w.mu.Lock()
	w.desired[addr] = struct{}{}
	w.mu.Unlock()
}

func (w *Watchdog) Remove(addr models.Address) {
	w.mu.Lock()
	delete(w.desired, addr)
	w.mu.Unlock()
}

// Desired returns the desired set ordered by address.
func (w *Watchdog) Desired() []models.Address {
	w.mu.Lock()
	out := make([]models.Address, 0, len(w.desired))

	for a := range w.desired {
		out = append(out, a)
	}
	w.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })

	return out
}

func (w *Watchdog) OnReconnected(obs ReconnectObserver) {
	w.observerMu.Lock()
	w.onReconnected = obs
	w.observerMu.Unlock()
}

func (w *Watchdog) OnReconnectFailed(obs FailureObserver) {
	w.observerMu.Lock()
	w.onFailed = obs
	w.observerMu.Unlock()
}

// Start launches the periodic loop. No-op when already running.
func (w *Watchdog) Start(ctx context.Context) error {
	err := w.worker.Start(ctx, w.run)

	switch {
	case errors.Is(err, lifecycle.ErrAlreadyRunning):
		return nil
	case err != nil:
		return err
	}

	w.log.Info().Dur("period", w.cfg.Period.Std()).Msg("Starting watchdog")

	return nil
}

// Stop signals the loop and waits for it, except from inside an observer.
func (w *Watchdog) Stop() {
	if w.worker.Running() {
		w.log.Info().Msg("Stopping watchdog")
	}

	w.worker.Stop()
}

func (w *Watchdog) Running() bool {
	return w.worker.Running()
}

func (w *Watchdog) run(ctx context.Context) {
	for {
		w.Reconcile(ctx)

		if !lifecycle.Sleep(ctx, w.cfg.Period.Std()) {
			return
		}
	}
}

// Reconcile runs one pass: every desired address the pool does not report
// as connected gets one Connect, subject to the reconnect rate limit.
// Addresses over the limit are deferred to a later pass.
func (w *Watchdog) Reconcile(ctx context.Context) Result {
	desired := w.Desired()
	res := Result{Checked: len(desired)}

	for _, addr := range desired {
		if ctx.Err() != nil {
			break
		}

		if w.conn.IsConnected(ctx, addr) {
			continue
		}

		if !w.limiter.Allow() {
			res.Deferred = append(res.Deferred, addr)
			continue
		}

		if err := w.conn.Connect(ctx, addr); err != nil {
			w.metrics.Reconnect(ctx, metrics.OutcomeError)
			w.log.Debug().Err(err).Str("address", addr.String()).Msg("Reconnect failed")

			if res.Failed == nil {
				res.Failed = make(map[models.Address]error)
			}

			res.Failed[addr] = err
			w.notifyFailed(addr, err)

			continue
		}

		w.metrics.Reconnect(ctx, metrics.OutcomeSuccess)
		w.log.Info().Str("address", addr.String()).Msg("Reconnected desired device")

		res.Reconnected = append(res.Reconnected, addr)
		w.notifyReconnected(addr)
	}

	return res
}

func (w *Watchdog) notifyReconnected(addr models.Address) {
	w.observerMu.RLock()
	obs := w.onReconnected
	w.observerMu.RUnlock()

	if obs != nil {
		w.worker.Callback("reconnected", func() { obs(addr) })
	}
}

func (w *Watchdog) notifyFailed(addr models.Address, err error) {
	w.observerMu.RLock()
	obs := w.onFailed
	w.observerMu.RUnlock()

	if obs != nil {
		w.worker.Callback("reconnect_failed", func() { obs(addr, err) })
	}
}
