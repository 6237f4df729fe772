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
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	"github.com/carverauto/bluecast/pkg/audio"
	"github.com/carverauto/bluecast/pkg/models"
)

var errCaptureEnded = errors.New("capture process ended")

const loopbackBacklog = 16

// loopback reads fixed-size packets from a parec process. A reader goroutine
// fills packets; the capture goroutine drains it without blocking.
type loopback struct {
	cmd        *exec.Cmd
	cancel     context.CancelFunc
	frameBytes int

	packets chan []byte
	done    chan struct{}

	errMu sync.Mutex
	err   error

	head      []byte
	closeOnce sync.Once
}

func openLoopback(command CommandFunc, tool, source string, format audio.Format, sample string,
	packet time.Duration) (*loopback, error) {
	frameBytes := format.BytesPerFrame()

	frames := int(time.Duration(format.SampleRate) * packet / time.Second)
	if frames < 1 {
		frames = 1
	}

	ctx, cancel := context.WithCancel(context.Background())

	args := append(streamArgs(format, sample, source), fmt.Sprintf("--latency-msec=%d", packet.Milliseconds()))
	cmd := command(ctx, tool, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %w", models.ErrAudioInitFailed, err)
	}

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("%w: starting %s: %w", models.ErrAudioInitFailed, tool, err)
	}

	l := &loopback{
		cmd:        cmd,
		cancel:     cancel,
		frameBytes: frameBytes,
		packets:    make(chan []byte, loopbackBacklog),
		done:       make(chan struct{}),
	}

	go l.read(ctx, stdout, frames*frameBytes)

	return l, nil
}

func (l *loopback) read(ctx context.Context, r io.Reader, size int) {
	defer close(l.done)
	defer close(l.packets)

	for {
		buf := make([]byte, size)

		if _, err := io.ReadFull(r, buf); err != nil {
			l.errMu.Lock()
			l.err = err
			l.errMu.Unlock()

			return
		}

		select {
		case l.packets <- buf:
		case <-ctx.Done():
			return
		}
	}
}

func (l *loopback) NextPacketSize() (int, error) {
	if l.head == nil {
		select {
		case p, ok := <-l.packets:
			if !ok {
				return 0, l.readErr()
			}

			l.head = p
		default:
			return 0, nil
		}
	}

	return len(l.head) / l.frameBytes, nil
}

func (l *loopback) Buffer() ([]byte, int, bool, error) {
	if l.head == nil {
		return nil, 0, false, nil
	}

	return l.head, len(l.head) / l.frameBytes, silent(l.head), nil
}

func (l *loopback) Release(int) error {
	l.head = nil
	return nil
}

// Close stops parec and waits for the reader before reaping the process.
func (l *loopback) Close() error {
	l.closeOnce.Do(func() {
		l.cancel()
		<-l.done

		// Killed by cancel; the exit status says nothing useful.
		_ = l.cmd.Wait()
	})

	return nil
}

func (l *loopback) readErr() error {
	l.errMu.Lock()
	defer l.errMu.Unlock()

	if l.err == nil || errors.Is(l.err, io.EOF) || errors.Is(l.err, io.ErrUnexpectedEOF) {
		return errCaptureEnded
	}

	return fmt.Errorf("%w: %w", errCaptureEnded, l.err)
}

func silent(p []byte) bool {
	for _, b := range p {
		if b != 0 {
			return false
		}
	}

	return true
}
