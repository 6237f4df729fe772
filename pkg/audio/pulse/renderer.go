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

package pulse

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/carverauto/bluecast/pkg/audio"
	"github.com/carverauto/bluecast/pkg/logger"
	"github.com/carverauto/bluecast/pkg/models"
)

// renderer feeds a pacat process through a bounded queue. Feed copies the
// packet and never waits; a writer goroutine drains the queue into stdin.
type renderer struct {
	endpoint string
	channels int
	drain    time.Duration
	log      logger.Logger

	cmd    *exec.Cmd
	cancel context.CancelFunc
	stdin  io.WriteCloser

	mu     sync.RWMutex
	closed bool
	queue  chan []byte

	gone atomic.Bool
	done chan struct{}
}

func startRenderer(command CommandFunc, tool, endpoint string, format audio.Format, sample string,
	depth int, drain time.Duration, log logger.Logger) (*renderer, error) {
	ctx, cancel := context.WithCancel(context.Background())

	cmd := command(ctx, tool, append([]string{"--playback"}, streamArgs(format, sample, endpoint)...)...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %w", models.ErrAudioInitFailed, err)
	}

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("%w: starting %s: %w", models.ErrAudioInitFailed, tool, err)
	}

	r := &renderer{
		endpoint: endpoint,
		channels: format.Channels,
		drain:    drain,
		log:      log,
		cmd:      cmd,
		cancel:   cancel,
		stdin:    stdin,
		queue:    make(chan []byte, depth),
		done:     make(chan struct{}),
	}

	go r.write()

	return r, nil
}

func (r *renderer) write() {
	defer close(r.done)

	for p := range r.queue {
		if r.gone.Load() {
			continue
		}

		if _, err := r.stdin.Write(p); err != nil {
			r.gone.Store(true)
			r.log.Warn().Err(err).Str("endpoint", r.endpoint).Msg("Sink playback stopped")
		}
	}
}

func (r *renderer) Feed(data []byte, _ int) error {
	if r.gone.Load() {
		return audio.ErrSinkGone
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return audio.ErrSinkGone
	}

	p := make([]byte, len(data))
	copy(p, data)

	select {
	case r.queue <- p:
		return nil
	default:
		return audio.ErrSinkBusy
	}
}

func (r *renderer) ChannelCount() int {
	return r.channels
}

// Close lets queued audio play out for up to the drain timeout, then stops pacat.
func (r *renderer) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}

	r.closed = true
	close(r.queue)
	r.mu.Unlock()

	timer := time.NewTimer(r.drain)
	defer timer.Stop()

	select {
	case <-r.done:
	case <-timer.C:
		r.log.Debug().Str("endpoint", r.endpoint).Msg("Sink drain timed out")
		r.cancel()
		<-r.done
	}

	_ = r.stdin.Close()

	waited := make(chan error, 1)
	go func() { waited <- r.cmd.Wait() }()

	var err error

	select {
	case err = <-waited:
	case <-timer.C:
		r.cancel()
		<-waited
	}

	r.cancel()

	if err != nil && !r.gone.Load() {
		return fmt.Errorf("%s on %s: %w", r.cmd.Path, r.endpoint, err)
	}

	return nil
}
