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

// Package pulse implements the audio backend on PulseAudio or PipeWire's
// pulse server using the pactl, parec and pacat tools.
package pulse

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/carverauto/bluecast/pkg/audio"
	"github.com/carverauto/bluecast/pkg/logger"
	"github.com/carverauto/bluecast/pkg/models"
)

var (
	errUnsupportedFormat = errors.New("no pulse sample format")
	errInvalidConfig     = errors.New("invalid pulse config")
)

const (
	defaultQueueDepth   = 8
	defaultPacketSize   = 10 * time.Millisecond
	defaultDrainTimeout = 500 * time.Millisecond

	monitorSuffix = ".monitor"
)

// Config selects the tools and buffering used by the backend.
type Config struct {
	// Source is the capture source. Empty means the monitor of the default sink.
	Source       string          `json:"source" toml:"source" yaml:"source"`
	PacketSize   models.Duration `json:"packet_size" toml:"packet_size" yaml:"packet_size"`
	QueueDepth   int             `json:"queue_depth" toml:"queue_depth" yaml:"queue_depth"`
	DrainTimeout models.Duration `json:"drain_timeout" toml:"drain_timeout" yaml:"drain_timeout"`
	Pactl        string          `json:"pactl" toml:"pactl" yaml:"pactl"`
	Parec        string          `json:"parec" toml:"parec" yaml:"parec"`
	Pacat        string          `json:"pacat" toml:"pacat" yaml:"pacat"`
}

func DefaultConfig() Config {
	return Config{
		PacketSize:   models.Duration(defaultPacketSize),
		QueueDepth:   defaultQueueDepth,
		DrainTimeout: models.Duration(defaultDrainTimeout),
		Pactl:        "pactl",
		Parec:        "parec",
		Pacat:        "pacat",
	}
}

func (c *Config) Validate() error {
	switch {
	case c.PacketSize <= 0:
		return fmt.Errorf("%w: packet_size must be positive", errInvalidConfig)
	case c.QueueDepth <= 0:
		return fmt.Errorf("%w: queue_depth must be positive", errInvalidConfig)
	case c.DrainTimeout < 0:
		return fmt.Errorf("%w: drain_timeout must not be negative", errInvalidConfig)
	case c.Pactl == "", c.Parec == "", c.Pacat == "":
		return fmt.Errorf("%w: tool paths must be set", errInvalidConfig)
	}

	return nil
}

// CommandFunc builds a process. It matches exec.CommandContext.
type CommandFunc func(ctx context.Context, name string, args ...string) *exec.Cmd

// Option customizes a Backend.
type Option func(*Backend)

// WithCommand replaces how processes are built.
func WithCommand(fn CommandFunc) Option {
	return func(b *Backend) {
		b.command = fn
	}
}

// Backend implements audio.Backend.
type Backend struct {
	cfg     Config
	log     logger.Logger
	command CommandFunc
}

var _ audio.Backend = (*Backend)(nil)

func New(cfg Config, log logger.Logger, opts ...Option) *Backend {
	if log == nil {
		log = logger.NewTestLogger()
	}

	b := &Backend{
		cfg:     cfg,
		log:     log,
		command: exec.CommandContext,
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// OpenLoopback starts parec on the configured source, or on the monitor of
// the current default sink.
func (b *Backend) OpenLoopback(ctx context.Context, format audio.Format) (audio.LoopbackStream, error) {
	sample, err := sampleFormat(format)
	if err != nil {
		return nil, err
	}

	source := b.cfg.Source
	if source == "" {
		out, err := b.output(ctx, b.cfg.Pactl, "get-default-sink")
		if err != nil {
			return nil, fmt.Errorf("%w: default sink: %w", models.ErrAudioInitFailed, err)
		}

		source = strings.TrimSpace(out) + monitorSuffix
	}

	b.log.Debug().Str("source", source).Str("format", sample).Msg("Opening loopback capture")

	return openLoopback(b.command, b.cfg.Parec, source, format, sample, b.cfg.PacketSize.Std())
}

// ResolveEndpoint finds the sink the sound server created for addr.
func (b *Backend) ResolveEndpoint(ctx context.Context, addr models.Address) (string, error) {
	out, err := b.output(ctx, b.cfg.Pactl, "list", "short", "sinks")
	if err != nil {
		return "", fmt.Errorf("%w: listing sinks: %w", models.ErrSinkResolutionFailed, err)
	}

	name, ok := findSink(out, addr)
	if !ok {
		return "", fmt.Errorf("%w: no sink for %s", models.ErrSinkResolutionFailed, addr)
	}

	return name, nil
}

// NewRenderer starts pacat playing into endpoint.
func (b *Backend) NewRenderer(_ context.Context, endpoint string, format audio.Format) (audio.Renderer, error) {
	sample, err := sampleFormat(format)
	if err != nil {
		return nil, err
	}

	return startRenderer(b.command, b.cfg.Pacat, endpoint, format, sample,
		b.cfg.QueueDepth, b.cfg.DrainTimeout.Std(), b.log)
}

func (b *Backend) output(ctx context.Context, name string, args ...string) (string, error) {
	var stderr bytes.Buffer

	cmd := b.command(ctx, name, args...)
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("%s: %w: %s", name, err, msg)
		}

		return "", fmt.Errorf("%s: %w", name, err)
	}

	return string(out), nil
}

// sampleFormat maps a Format to a pulse sample spec name.
func sampleFormat(f audio.Format) (string, error) {
	if err := f.Validate(); err != nil {
		return "", fmt.Errorf("%w: %w", models.ErrInvalidParameter, err)
	}

	switch {
	case f.Float:
		return "float32le", nil
	case f.BitsPerSample == 16:
		return "s16le", nil
	case f.BitsPerSample == 24:
		return "s24le", nil
	case f.BitsPerSample == 32:
		return "s32le", nil
	}

	return "", fmt.Errorf("%w: %d bits", errUnsupportedFormat, f.BitsPerSample)
}

func streamArgs(format audio.Format, sample, device string) []string {
	return []string{
		"--raw",
		"--format=" + sample,
		fmt.Sprintf("--rate=%d", format.SampleRate),
		fmt.Sprintf("--channels=%d", format.Channels),
		"--device=" + device,
	}
}
