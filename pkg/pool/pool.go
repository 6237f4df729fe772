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

// Package pool tracks which devices this process believes it has connected.
package pool

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/carverauto/bluecast/pkg/logger"
	"github.com/carverauto/bluecast/pkg/metrics"
	"github.com/carverauto/bluecast/pkg/models"
)

const disconnectAllLimit = 4

//go:generate mockgen -destination=mock_pool.go -package=pool github.com/carverauto/bluecast/pkg/pool Profiles,StateSource

// Profiles enables the audio link. Both calls must be idempotent.
type Profiles interface {
	EnableAudioSink(ctx context.Context, addr models.Address) error
	DisableAudioSink(ctx context.Context, addr models.Address) error
}

// StateSource answers the authoritative connected flag.
type StateSource interface {
	DeviceInfo(ctx context.Context, addr models.Address) (models.Device, error)
}

// token stands for one established link. It never leaves this package.
type token struct {
	handle uint64
}

// Pool is safe for concurrent use. Radio calls run without the lock held,
// so two Connects racing on one address may both reach the radio.
type Pool struct {
	profiles Profiles
	state    StateSource
	log      logger.Logger
	metrics  *metrics.Recorder

	mu      sync.Mutex
	entries map[models.Address]token
	next    uint64
}

func New(profiles Profiles, state StateSource, log logger.Logger, rec *metrics.Recorder) *Pool {
	if log == nil {
		log = logger.NewTestLogger()
	}

	return &Pool{
		profiles: profiles,
		state:    state,
		log:      log,
		metrics:  rec,
		entries:  make(map[models.Address]token),
	}
}

// Connect enables the audio sink profile unless the device is already
// connected. On failure no entry is recorded.
func (p *Pool) Connect(ctx context.Context, addr models.Address) error {
	if p.IsConnected(ctx, addr) {
		p.metrics.Connect(ctx, metrics.OutcomeSkipped)
		return nil
	}

	if err := p.profiles.EnableAudioSink(ctx, addr); err != nil {
		p.metrics.Connect(ctx, metrics.OutcomeError)
		p.log.Warn().Err(err).Str("address", addr.String()).Msg("Connect failed")

		return models.NewOperationError(models.KindConnectionFailed, "connect", addr, err)
	}

	p.mu.Lock()
	if _, ok := p.entries[addr]; !ok {
		p.next++
		p.entries[addr] = token{handle: p.next}
	}
	p.mu.Unlock()

	p.metrics.Connect(ctx, metrics.OutcomeSuccess)
	p.log.Info().Str("address", addr.String()).Msg("Connected")

	return nil
}

// Disconnect disables the profile. The local entry is dropped only when
// the radio accepted the call.
func (p *Pool) Disconnect(ctx context.Context, addr models.Address) error {
	if err := p.profiles.DisableAudioSink(ctx, addr); err != nil {
		p.metrics.Disconnect(ctx, metrics.OutcomeError)
		p.log.Warn().Err(err).Str("address", addr.String()).Msg("Disconnect failed")

		return models.NewOperationError(models.KindConnectionFailed, "disconnect", addr, err)
	}

	p.mu.Lock()
	delete(p.entries, addr)
	p.mu.Unlock()

	p.metrics.Disconnect(ctx, metrics.OutcomeSuccess)
	p.log.Info().Str("address", addr.String()).Msg("Disconnected")

	return nil
}

// IsConnected is false for addresses the pool never connected. Otherwise
// it returns the radio's current flag, which may differ from local belief.
func (p *Pool) IsConnected(ctx context.Context, addr models.Address) bool {
	p.mu.Lock()
	_, ok := p.entries[addr]
	p.mu.Unlock()

	if !ok {
		return false
	}

	dev, err := p.state.DeviceInfo(ctx, addr)
	if err != nil {
		p.log.Debug().Err(err).Str("address", addr.String()).Msg("Connection state query failed")
		return false
	}

	return dev.Connected
}

// Connected lists addresses the pool believes are connected.
func (p *Pool) Connected() []models.Address {
	p.mu.Lock()
	out := make([]models.Address, 0, len(p.entries))

	for addr := range p.entries {
		out = append(out, addr)
	}
	p.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })

	return out
}

// DisconnectAll disconnects every believed connection, a few at a time.
// It returns the first failure after all attempts finish.
func (p *Pool) DisconnectAll(ctx context.Context) error {
	var g errgroup.Group

	g.SetLimit(disconnectAllLimit)

	for _, addr := range p.Connected() {
		addr := addr
		g.Go(func() error {
			return p.Disconnect(ctx, addr)
		})
	}

	return g.Wait()
}
