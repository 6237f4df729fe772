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
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/bluecast/pkg/logger"
)

func TestWorkerStartStop(t *testing.T) {
	w := NewWorker("test", logger.NewTestLogger())

	var ticks atomic.Int32

	loop := func(ctx context.Context) {
		for Sleep(ctx, time.Millisecond) {
			ticks.Add(1)
		}
	}

	require.NoError(t, w.Start(context.Background(), loop))
	assert.ErrorIs(t, w.Start(context.Background(), loop), ErrAlreadyRunning)
	assert.True(t, w.Running())

	require.Eventually(t, func() bool { return ticks.Load() > 2 }, time.Second, time.Millisecond)

	w.Stop()
	assert.False(t, w.Running())

	after := ticks.Load()

	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, after, ticks.Load(), "loop must not run after Stop returns")

	w.Stop()

	require.NoError(t, w.Start(context.Background(), loop), "restart after stop")
	w.Stop()
}

func TestWorkerStopFromCallback(t *testing.T) {
	w := NewWorker("test", logger.NewTestLogger())

	stopped := make(chan struct{})

	require.NoError(t, w.Start(context.Background(), func(ctx context.Context) {
		w.Callback("observer", func() {
			w.Stop()
			close(stopped)
		})

		<-ctx.Done()
	}))

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop from inside a callback deadlocked")
	}

	require.Eventually(t, func() bool { return !w.Running() }, time.Second, time.Millisecond)
}

// blockingLoop runs one callback that holds until release is closed.
func blockingLoop(w *Worker, entered chan<- struct{}, release <-chan struct{}, exited *atomic.Bool) func(context.Context) {
	return func(ctx context.Context) {
		defer exited.Store(true)

		w.Callback("observer", func() {
			close(entered)
			<-release
		})

		<-ctx.Done()
	}
}

func TestWorkerStopWaitsForCallbackInFlight(t *testing.T) {
	w := NewWorker("test", logger.NewTestLogger())

	var exited atomic.Bool

	entered := make(chan struct{})
	release := make(chan struct{})

	require.NoError(t, w.Start(context.Background(), blockingLoop(w, entered, release, &exited)))
	<-entered

	stopped := make(chan struct{})

	go func() {
		w.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while the callback was still running")
	case <-time.After(30 * time.Millisecond):
	}

	close(release)

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop never returned")
	}

	assert.True(t, exited.Load(), "loop must have exited when Stop returns")
	assert.False(t, w.Running())
}

func TestWorkerStartWaitsForPreviousLoop(t *testing.T) {
	w := NewWorker("test", logger.NewTestLogger())

	var exited atomic.Bool

	signalled := make(chan struct{})
	release := make(chan struct{})

	// The observer stops its own loop, which only signals, and then keeps
	// the loop busy until release.
	require.NoError(t, w.Start(context.Background(), func(ctx context.Context) {
		defer exited.Store(true)

		w.Callback("observer", func() {
			w.Stop()
			close(signalled)
			<-release
		})
	}))
	<-signalled

	require.False(t, w.Running())

	go func() {
		time.Sleep(20 * time.Millisecond)
		close(release)
	}()

	var ticks atomic.Int32

	require.NoError(t, w.Start(context.Background(), func(ctx context.Context) {
		for Sleep(ctx, time.Millisecond) {
			ticks.Add(1)
		}
	}))

	assert.True(t, exited.Load(), "previous loop must be gone before the new one starts")
	assert.True(t, w.Running())
	require.Eventually(t, func() bool { return ticks.Load() > 2 }, time.Second, time.Millisecond)

	w.Stop()
	assert.False(t, w.Running())
}

func TestWorkerRestartFromDyingLoop(t *testing.T) {
	w := NewWorker("test", logger.NewTestLogger())

	result := make(chan error, 1)

	require.NoError(t, w.Start(context.Background(), func(ctx context.Context) {
		w.Callback("observer", func() {
			w.Stop()
			result <- w.Start(context.Background(), func(ctx context.Context) { <-ctx.Done() })
		})
	}))

	select {
	case err := <-result:
		require.ErrorIs(t, err, ErrStopping)
	case <-time.After(time.Second):
		t.Fatal("restart from the dying loop blocked")
	}

	w.Stop()
	assert.False(t, w.Running())
}

func TestGoroutineIDDistinguishesCallers(t *testing.T) {
	mine := goroutineID()
	require.NotZero(t, mine)

	other := make(chan uint64)
	go func() { other <- goroutineID() }()

	assert.NotEqual(t, mine, <-other)
	assert.Equal(t, mine, goroutineID())
}

func TestWorkerCallbackPanicIsContained(t *testing.T) {
	w := NewWorker("test", logger.NewTestLogger())

	var after atomic.Bool

	require.NoError(t, w.Start(context.Background(), func(ctx context.Context) {
		w.Callback("observer", func() { panic("boom") })
		after.Store(true)
		<-ctx.Done()
	}))

	require.Eventually(t, after.Load, time.Second, time.Millisecond)
	assert.True(t, w.Running())

	w.Stop()
}

func TestWorkerParentCancel(t *testing.T) {
	w := NewWorker("test", nil)
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, w.Start(ctx, func(ctx context.Context) { <-ctx.Done() }))
	cancel()

	require.Eventually(t, func() bool { return !w.Running() }, time.Second, time.Millisecond)
	require.NoError(t, w.Start(context.Background(), func(ctx context.Context) { <-ctx.Done() }))
	w.Stop()
}

func TestSleep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.False(t, Sleep(ctx, time.Hour))
	assert.True(t, Sleep(context.Background(), time.Millisecond))
}

func TestComponentLoggerToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")

	l, err := CreateComponentLogger("scanner", &logger.Config{
		Level:  "info",
		Output: logger.OutputFile,
		File:   &logger.FileConfig{Path: path, MaxSizeMB: 1},
	})
	require.NoError(t, err)

	l.Info().Msg("hello")
	require.NoError(t, l.Close())

	assert.FileExists(t, path)
}
