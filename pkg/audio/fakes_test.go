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
	"errors"
	"sync"
	"sync/atomic"
)

var errStreamBroken = errors.New("device invalidated")

// fakeStream serves packets from a script, or an endless supply when
// endless is set. Any use after Close is counted as a violation.
type fakeStream struct {
	mu         sync.Mutex
	packets    [][]byte
	silent     []bool
	endless    []byte
	frameBytes int
	failAfter  int
	served     int
	head       []byte
	headSilent bool
	released   int
	closed     atomic.Bool
	violations atomic.Int32
}

func (s *fakeStream) check() {
	if s.closed.Load() {
		s.violations.Add(1)
	}
}

func (s *fakeStream) NextPacketSize() (int, error) {
	s.check()
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failAfter > 0 && s.served >= s.failAfter {
		return 0, errStreamBroken
	}

	if s.head == nil {
		switch {
		case len(s.packets) > 0:
			s.head, s.packets = s.packets[0], s.packets[1:]
			if len(s.silent) > 0 {
				s.headSilent, s.silent = s.silent[0], s.silent[1:]
			}
		case s.endless != nil:
			s.head, s.headSilent = s.endless, false
		default:
			return 0, nil
		}
	}

	return len(s.head) / s.frameBytes, nil
}

func (s *fakeStream) Buffer() ([]byte, int, bool, error) {
	s.check()
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.head, len(s.head) / s.frameBytes, s.headSilent, nil
}

func (s *fakeStream) Release(int) error {
	s.check()
	s.mu.Lock()
	defer s.mu.Unlock()

	s.head = nil
	s.served++
	s.released++

	return nil
}

func (s *fakeStream) Close() error {
	s.closed.Store(true)
	return nil
}

func (s *fakeStream) Released() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.released
}

// fakeRenderer counts frames and rejects feeds after Close.
type fakeRenderer struct {
	channels   int
	busy       atomic.Bool
	frames     atomic.Int64
	packets    atomic.Int64
	closed     atomic.Bool
	violations atomic.Int32
}

func (r *fakeRenderer) Feed(data []byte, frames int) error {
	if r.closed.Load() {
		r.violations.Add(1)
		return ErrSinkGone
	}

	if r.busy.Load() {
		return ErrSinkBusy
	}

	if len(data) == 0 {
		return ErrSinkGone
	}

	r.frames.Add(int64(frames))
	r.packets.Add(1)

	return nil
}

func (r *fakeRenderer) ChannelCount() int { return r.channels }

func (r *fakeRenderer) Close() error {
	r.closed.Store(true)
	return nil
}
