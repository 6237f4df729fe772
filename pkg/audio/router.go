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

package audio

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/carverauto/bluecast/pkg/logger"
	"github.com/carverauto/bluecast/pkg/metrics"
	"github.com/carverauto/bluecast/pkg/models"
)

// SinkErrorObserver is told about each failed feed. It runs on the capture
// goroutine after the registry lock is released.
type SinkErrorObserver func(addr models.Address, err error)

// SinkInfo describes one registered sink.
type SinkInfo struct {
	Address  models.Address `json:"address"`
	Endpoint string         `json:"endpoint"`
	Channels int            `json:"channels"`
	Frames   uint64         `json:"frames"`
	Failures uint64         `json:"failures"`
}

type sink struct {
	endpoint string
	renderer Renderer
	frames   atomic.Uint64
	failures atomic.Uint64
}

type sinkFailure struct {
	addr models.Address
	err  error
}

// Router owns one Capturer and replicates each packet to every registered sink.
type Router struct {
	backend  Backend
	format   Format
	log      logger.Logger
	metrics  *metrics.Recorder
	capturer *Capturer

	mu    sync.RWMutex
	sinks map[models.Address]*sink

	observerMu  sync.RWMutex
	onSinkError SinkErrorObserver
}

func NewRouter(backend Backend, format Format, poll time.Duration, log logger.Logger, rec *metrics.Recorder) *Router {
	if log == nil {
		log = logger.NewTestLogger()
	}

	return &Router{
		backend:  backend,
		format:   format,
		log:      log,
		metrics:  rec,
		capturer: NewCapturer(backend, format, poll, log, rec),
		sinks:    make(map[models.Address]*sink),
	}
}

// Start begins capture. Sinks may be registered before or after.
func (r *Router) Start(ctx context.Context) error {
	return r.capturer.Start(ctx, r.dispatch)
}

func (r *Router) Stop() {
	r.capturer.Stop()
}

func (r *Router) Running() bool {
	return r.capturer.Running()
}

// Capturer exposes the underlying capturer for stream error hooks.
func (r *Router) Capturer() *Capturer {
	return r.capturer
}

func (r *Router) OnSinkError(obs SinkErrorObserver) {
	r.observerMu.Lock()
	r.onSinkError = obs
	r.observerMu.Unlock()
}

// RegisterSink resolves addr to an output endpoint and adds a ready renderer
// for it. Registering an address twice is a no-op.
func (r *Router) RegisterSink(ctx context.Context, addr models.Address) error {
	r.mu.RLock()
	_, exists := r.sinks[addr]
	r.mu.RUnlock()

	if exists {
		return nil
	}

	endpoint, err := r.backend.ResolveEndpoint(ctx, addr)
	if err != nil {
		return models.NewOperationError(models.KindSinkResolutionFailed, "register sink", addr, err)
	}

	renderer, err := r.backend.NewRenderer(ctx, endpoint, r.format)
	if err != nil {
		return models.NewOperationError(models.KindAudioInitFailed, "register sink", addr, err)
	}

	r.mu.Lock()
	if _, raced := r.sinks[addr]; raced {
		r.mu.Unlock()

		_ = renderer.Close()

		return nil
	}

	r.sinks[addr] = &sink{endpoint: endpoint, renderer: renderer}
	r.mu.Unlock()

	r.log.Info().
		Str("address", addr.String()).
		Str("endpoint", endpoint).
		Msg("Registered audio sink")

	return nil
}

// UnregisterSink removes and closes the sink. Unknown addresses are ignored.
func (r *Router) UnregisterSink(addr models.Address) {
	r.mu.Lock()
	s, ok := r.sinks[addr]
	delete(r.sinks, addr)
	r.mu.Unlock()

	if !ok {
		return
	}

	// No feed can be in flight: dispatch holds the read lock while feeding.
	if err := s.renderer.Close(); err != nil {
		r.log.Warn().Err(err).Str("address", addr.String()).Msg("Closing renderer failed")
	}

	r.log.Info().Str("address", addr.String()).Msg("Unregistered audio sink")
}

// ChannelCount reports the channel count of a registered sink.
func (r *Router) ChannelCount(addr models.Address) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sinks[addr]
	if !ok {
		return 0, models.NewOperationError(models.KindDeviceNotFound, "channel count", addr, models.ErrDeviceNotFound)
	}

	return s.renderer.ChannelCount(), nil
}

// Sinks returns the registered sinks ordered by address.
func (r *Router) Sinks() []SinkInfo {
	r.mu.RLock()
	out := make([]SinkInfo, 0, len(r.sinks))

	for addr, s := range r.sinks {
		out = append(out, SinkInfo{
			Address:  addr,
			Endpoint: s.endpoint,
			Channels: s.renderer.ChannelCount(),
			Frames:   s.frames.Load(),
			Failures: s.failures.Load(),
		})
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })

	return out
}

// Close stops capture and releases every sink.
func (r *Router) Close() error {
	r.Stop()

	r.mu.Lock()
	sinks := r.sinks
	r.sinks = make(map[models.Address]*sink)
	r.mu.Unlock()

	var errs []error

	for addr, s := range sinks {
		if err := s.renderer.Close(); err != nil {
			errs = append(errs, models.NewOperationError(models.KindAudioInitFailed, "close sink", addr, err))
		}
	}

	return errors.Join(errs...)
}

// dispatch is the capture callback. Each sink gets the whole packet or nothing.
func (r *Router) dispatch(data []byte, frames int) {
	var failed []sinkFailure

	r.mu.RLock()
	for addr, s := range r.sinks {
		if err := s.renderer.Feed(data, frames); err != nil {
			s.failures.Add(1)
			failed = append(failed, sinkFailure{addr: addr, err: err})

			continue
		}

		s.frames.Add(uint64(frames))
	}
	r.mu.RUnlock()

	if len(failed) == 0 {
		return
	}

	r.observerMu.RLock()
	obs := r.onSinkError
	r.observerMu.RUnlock()

	for _, f := range failed {
		reason := "error"

		switch {
		case errors.Is(f.err, ErrSinkBusy):
			reason = "busy"
		case errors.Is(f.err, ErrSinkGone):
			reason = "gone"
		}

		r.metrics.SinkFailure(context.Background(), reason)

		if obs != nil {
			obs(f.addr, f.err)
		}
	}
}
