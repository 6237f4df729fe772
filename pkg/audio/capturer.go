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
	"fmt"
	"sync"
	"time"

	"github.com/carverauto/bluecast/pkg/lifecycle"
	"github.com/carverauto/bluecast/pkg/logger"
	"github.com/carverauto/bluecast/pkg/metrics"
	"github.com/carverauto/bluecast/pkg/models"
)

const defaultPollInterval = 5 * time.Millisecond

// Callback receives one non-silent packet. data is only valid for the
// duration of the call.
type Callback func(data []byte, frames int)

// StreamErrorObserver is told when the loopback stream fails and capture stops.
type StreamErrorObserver func(err error)

// Capturer drains a loopback stream on its own goroutine.
type Capturer struct {
	backend Backend
	format  Format
	poll    time.Duration
	log     logger.Logger
	metrics *metrics.Recorder
	worker  *lifecycle.Worker

	mu      sync.RWMutex
	onError StreamErrorObserver
}

func NewCapturer(backend Backend, format Format, poll time.Duration, log logger.Logger, rec *metrics.Recorder) *Capturer {
	if log == nil {
		log = logger.NewTestLogger()
	}

	if poll <= 0 {
		poll = defaultPollInterval
	}

	return &Capturer{
		backend: backend,
		format:  format,
		poll:    poll,
		log:     log,
		metrics: rec,
		worker:  lifecycle.NewWorker("capture", log),
	}
}

func (c *Capturer) OnStreamError(obs StreamErrorObserver) {
	c.mu.Lock()
	c.onError = obs
	c.mu.Unlock()
}

// Start opens the loopback stream and begins delivering packets to cb.
// It is a no-op when already capturing.
func (c *Capturer) Start(ctx context.Context, cb Callback) error {
	if cb == nil {
		return fmt.Errorf("%w: nil capture callback", models.ErrInvalidParameter)
	}

	if c.worker.Running() {
		return nil
	}

	stream, err := c.backend.OpenLoopback(ctx, c.format)
	if err != nil {
		if !errors.Is(err, models.ErrAudioInitFailed) {
			err = fmt.Errorf("%w: %w", models.ErrAudioInitFailed, err)
		}

		return err
	}

	// The loop owns the stream from here and closes it on exit.
	err = c.worker.Start(ctx, func(ctx context.Context) {
		defer func() {
			if err := stream.Close(); err != nil {
				c.log.Warn().Err(err).Msg("Closing loopback stream failed")
			}
		}()

		c.loop(ctx, stream, cb)
	})

	if err != nil {
		_ = stream.Close()

		if errors.Is(err, lifecycle.ErrAlreadyRunning) {
			return nil
		}

		return err
	}

	c.log.Info().
		Int("sample_rate", c.format.SampleRate).
		Int("channels", c.format.Channels).
		Msg("Audio capture started")

	return nil
}

// Stop ends capture and waits for the loop, including a callback in flight.
// When it returns the stream has been closed, unless it was called from inside
// the capture callback.
func (c *Capturer) Stop() {
	if c.worker.Running() {
		c.log.Info().Msg("Stopping audio capture")
	}

	c.worker.Stop()
}

func (c *Capturer) Running() bool {
	return c.worker.Running()
}

func (c *Capturer) loop(ctx context.Context, stream LoopbackStream, cb Callback) {
	for ctx.Err() == nil {
		frames, err := stream.NextPacketSize()
		if err != nil {
			c.fail(err)
			return
		}

		if frames == 0 {
			if !lifecycle.Sleep(ctx, c.poll) {
				return
			}

			continue
		}

		data, frames, silent, err := stream.Buffer()
		if err != nil {
			c.fail(err)
			return
		}

		if !silent {
			c.metrics.Packet(ctx, frames)
			c.worker.Callback("capture", func() { cb(data, frames) })
		}

		if err := stream.Release(frames); err != nil {
			c.fail(err)
			return
		}
	}
}

func (c *Capturer) fail(err error) {
	c.log.Error().Err(err).Msg("Loopback stream failed, capture stopped")

	c.mu.RLock()
	obs := c.onError
	c.mu.RUnlock()

	if obs != nil {
		c.worker.Callback("stream_error", func() { obs(err) })
	}
}
