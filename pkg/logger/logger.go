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

// Package logger provides JSON structured logging using zerolog
package logger

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

var errUnknownOutput = errors.New("unknown log output")

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// ParseLevel resolves the effective level. Debug wins over Level.
func ParseLevel(config *Config) (zerolog.Level, error) {
	if config.Debug {
		return zerolog.DebugLevel, nil
	}

	if config.Level == "" {
		return zerolog.InfoLevel, nil
	}

	return zerolog.ParseLevel(config.Level)
}

// NewWriter opens the configured output. The closer must be called on shutdown;
// it is a no-op for stdout and stderr.
func NewWriter(config *Config) (io.Writer, io.Closer, error) {
	switch config.Output {
	case "", OutputStdout:
		return os.Stdout, nopCloser{}, nil
	case OutputStderr:
		return os.Stderr, nopCloser{}, nil
	case OutputFile:
		fc := config.File
		if fc == nil {
			fc = DefaultFileConfig()
		}

		w := &lumberjack.Logger{
			Filename:   fc.Path,
			MaxSize:    fc.MaxSizeMB,
			MaxBackups: fc.MaxBackups,
			MaxAge:     fc.MaxAgeDays,
			Compress:   fc.Compress,
		}

		return w, w, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", errUnknownOutput, config.Output)
	}
}
