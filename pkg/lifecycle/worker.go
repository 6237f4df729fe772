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

package lifecycle

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/carverauto/bluecast/pkg/logger"
)

var (
	// ErrAlreadyRunning is returned by Start when the loop is running.
	ErrAlreadyRunning = errors.New("worker already running")
	// ErrStopping is returned by Start when it is called from the previous
	// loop while that loop is still on its way out.
	ErrStopping = errors.New("worker loop is still stopping")
)

// Worker owns one background goroutine with cooperative cancellation.
//
// Stop joins the goroutine. The one exception is a Stop issued from the loop
// goroutine itself, typically from an observer dispatched through Callback:
// that call only signals, and the loop releases what it owns on its way out.
type Worker struct {
	name string
	log  logger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	running atomic.Bool
	loopID  atomic.Uint64
}

func NewWorker(name string, log logger.Logger) *Worker {
	if log == nil {
		log = logger.NewTestLogger()
	}

	return &Worker{name: name, log: log}
}

// Start launches run on a new goroutine. If a previous loop is still winding
// down, Start waits for it first. It fails with ErrAlreadyRunning when the
// loop is running, and with ErrStopping when called from the previous loop.
func (w *Worker) Start(parent context.Context, run func(ctx context.Context)) error {
	w.mu.Lock()

	for {
		if w.running.Load() {
			w.mu.Unlock()

			return ErrAlreadyRunning
		}

		prev := w.done
		if prev == nil || isClosed(prev) {
			break
		}

		if w.onLoop() {
			w.mu.Unlock()

			return fmt.Errorf("%w: %s", ErrStopping, w.name)
		}

		w.mu.Unlock()
		<-prev
		w.mu.Lock()
	}

	defer w.mu.Unlock()

	if w.cancel != nil {
		w.cancel()
	}

	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})

	w.cancel = cancel
	w.done = done
	w.running.Store(true)

	go func() {
		w.loopID.Store(goroutineID())

		defer close(done)
		defer w.running.Store(false)
		defer func() {
			if r := recover(); r != nil {
				w.log.Error().
					Str("worker", w.name).
					Str("panic", fmt.Sprint(r)).
					Msg("Worker loop panicked")
			}
		}()

		run(ctx)
	}()

	return nil
}

// Stop cancels the loop and waits for it to exit. Safe to call repeatedly,
// and a Stop after a signal-only Stop still waits.
func (w *Worker) Stop() {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel = nil
	w.mu.Unlock()

	if cancel != nil {
		w.running.Store(false)
		cancel()
	}

	if done == nil || w.onLoop() {
		return
	}

	<-done
}

func (w *Worker) Running() bool {
	return w.running.Load()
}

// Callback runs fn on the calling goroutine, containing any panic.
// It reports whether fn panicked.
func (w *Worker) Callback(what string, fn func()) (panicked bool) {
	defer func() {
		if r := recover(); r != nil {
			panicked = true

			w.log.Error().
				Str("worker", w.name).
				Str("callback", what).
				Str("panic", fmt.Sprint(r)).
				Msg("Callback panicked")
		}
	}()

	fn()

	return false
}

// onLoop reports whether the caller is the most recent loop goroutine.
func (w *Worker) onLoop() bool {
	id := w.loopID.Load()

	return id != 0 && id == goroutineID()
}

func isClosed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

//nolint:gochecknoglobals // stack header prefix
var goroutinePrefix = []byte("goroutine ")

// goroutineID parses the id from the "goroutine N [state]:" stack header.
func goroutineID() uint64 {
	var buf [64]byte

	n := runtime.Stack(buf[:], false)
	fields := bytes.Fields(bytes.TrimPrefix(buf[:n], goroutinePrefix))

	if len(fields) == 0 {
		return 0
	}

	id, err := strconv.ParseUint(string(fields[0]), 10, 64)
	if err != nil {
		return 0
	}

	return id
}

// Sleep waits for d or until ctx is done. It reports false if ctx ended first.
func Sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
