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

// Package audio captures the system output and fans it out to device sinks.
package audio

import (
	"context"
	"errors"
	"fmt"

	"github.com/carverauto/bluecast/pkg/models"
)

var (
	// ErrSinkBusy means the sink's queue is full and the packet was dropped.
	ErrSinkBusy = errors.New("sink queue full")
	// ErrSinkGone means the sink's endpoint went away.
	ErrSinkGone = errors.New("sink endpoint gone")

	errInvalidFormat = errors.New("invalid audio format")
)

const (
	defaultSampleRate    = 48000
	defaultChannels      = 2
	defaultBitsPerSample = 32
)

// Format is the single format shared by capture and every sink.
type Format struct {
	SampleRate    int  `json:"sample_rate" toml:"sample_rate" yaml:"sample_rate"`
	Channels      int  `json:"channels" toml:"channels" yaml:"channels"`
	BitsPerSample int  `json:"bits_per_sample" toml:"bits_per_sample" yaml:"bits_per_sample"`
	Float         bool `json:"float" toml:"float" yaml:"float"`
}

func DefaultFormat() Format {
	return Format{
		SampleRate:    defaultSampleRate,
		Channels:      defaultChannels,
		BitsPerSample: defaultBitsPerSample,
		Float:         true,
	}
}

func (f Format) BytesPerFrame() int {
	return f.Channels * f.BitsPerSample / 8
}

func (f Format) Validate() error {
	switch {
	case f.SampleRate <= 0, f.Channels <= 0:
		return fmt.Errorf("%w: rate=%d channels=%d", errInvalidFormat, f.SampleRate, f.Channels)
	case f.Float && f.BitsPerSample != 32:
		return fmt.Errorf("%w: float samples must be 32 bits", errInvalidFormat)
	case f.BitsPerSample != 16 && f.BitsPerSample != 24 && f.BitsPerSample != 32:
		return fmt.Errorf("%w: %d bits per sample", errInvalidFormat, f.BitsPerSample)
	}

	return nil
}

//go:generate mockgen -destination=mock_audio.go -package=audio github.com/carverauto/bluecast/pkg/audio Backend

// LoopbackStream reads the system's own output.
//
// NextPacketSize reports the frames in the next packet, zero when nothing is
// ready. Buffer returns that packet; the slice is valid until Release.
type LoopbackStream interface {
	NextPacketSize() (int, error)
	Buffer() (data []byte, frames int, silent bool, err error)
	Release(frames int) error
	Close() error
}

// Renderer plays packets on one endpoint. Feed must not block and must not
// keep data after it returns.
type Renderer interface {
	Feed(data []byte, frames int) error
	ChannelCount() int
	Close() error
}

// Backend is the platform audio system.
type Backend interface {
	OpenLoopback(ctx context.Context, format Format) (LoopbackStream, error)
	ResolveEndpoint(ctx context.Context, addr models.Address) (string, error)
	NewRenderer(ctx context.Context, endpoint string, format Format) (Renderer, error)
}
