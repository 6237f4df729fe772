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

package scanner

import (
	"errors"
	"fmt"
	"time"

	"github.com/carverauto/bluecast/pkg/models"
)

const (
	defaultBaseInterval     = time.Second
	defaultMinInterval      = time.Second
	defaultMaxInterval      = 10 * time.Second
	defaultFailureThreshold = 2
	defaultJitterFactor     = 0.2
	defaultEscalateAfter    = 5

	backoffFactor = 2
)

var (
	errInvalidInterval  = errors.New("scanner intervals must be positive with min <= base <= max")
	errInvalidJitter    = errors.New("jitter factor must be within [0, 1)")
	errInvalidThreshold = errors.New("thresholds must not be negative")
)

// Config tunes the scan cadence.
//
// After more than FailureThreshold consecutive enumeration errors the sleep
// doubles per failure up to MaxInterval, jittered by JitterFactor and never
// below MinInterval. EscalateAfter consecutive errors fire the failure
// observer once per streak; zero disables escalation.
type Config struct {
	BaseInterval     models.Duration `json:"base_interval" toml:"base_interval" yaml:"base_interval"`
	MinInterval      models.Duration `json:"min_interval" toml:"min_interval" yaml:"min_interval"`
	MaxInterval      models.Duration `json:"max_interval" toml:"max_interval" yaml:"max_interval"`
	FailureThreshold int             `json:"failure_threshold" toml:"failure_threshold" yaml:"failure_threshold"`
	JitterFactor     float64         `json:"jitter_factor" toml:"jitter_factor" yaml:"jitter_factor"`
	EscalateAfter    int             `json:"escalate_after" toml:"escalate_after" yaml:"escalate_after"`
}

func DefaultConfig() Config {
	return Config{
		BaseInterval:     models.Duration(defaultBaseInterval),
		MinInterval:      models.Duration(defaultMinInterval),
		MaxInterval:      models.Duration(defaultMaxInterval),
		FailureThreshold: defaultFailureThreshold,
		JitterFactor:     defaultJitterFactor,
		EscalateAfter:    defaultEscalateAfter,
	}
}

func (c *Config) Validate() error {
	if c.BaseInterval <= 0 || c.MinInterval <= 0 || c.MaxInterval <= 0 ||
		c.MinInterval > c.BaseInterval || c.BaseInterval > c.MaxInterval {
		return fmt.Errorf("%w: base=%s min=%s max=%s", errInvalidInterval, c.BaseInterval, c.MinInterval, c.MaxInterval)
	}

	if c.JitterFactor < 0 || c.JitterFactor >= 1 {
		return fmt.Errorf("%w: %v", errInvalidJitter, c.JitterFactor)
	}

	if c.FailureThreshold < 0 || c.EscalateAfter < 0 {
		return errInvalidThreshold
	}

	return nil
}

// Backoff is the sleep policy between scan cycles. It is not safe for
// concurrent use; the scan goroutine owns it.
type Backoff struct {
	base      time.Duration
	min       time.Duration
	max       time.Duration
	threshold int
	jitter    float64
	rand      func() float64

	interval time.Duration
	failures int
}

// NewBackoff builds the policy. rnd returns values in [0, 1).
func NewBackoff(cfg Config, rnd func() float64) *Backoff {
	return &Backoff{
		base:      cfg.BaseInterval.Std(),
		min:       cfg.MinInterval.Std(),
		max:       cfg.MaxInterval.Std(),
		threshold: cfg.FailureThreshold,
		jitter:    cfg.JitterFactor,
		rand:      rnd,
		interval:  cfg.BaseInterval.Std(),
	}
}

// Failure records one enumeration error and returns how long to sleep.
func (b *Backoff) Failure() time.Duration {
	b.failures++

	if b.failures <= b.threshold {
		return b.interval
	}

	b.interval = min(b.max, b.interval*backoffFactor)

	return b.clamp(b.addJitter(b.interval))
}

// Success resets the policy and returns the base interval.
func (b *Backoff) Success() time.Duration {
	b.failures = 0
	b.interval = b.base

	return b.interval
}

// Current is the un-jittered interval.
func (b *Backoff) Current() time.Duration {
	return b.interval
}

func (b *Backoff) Failures() int {
	return b.failures
}

// addJitter perturbs d symmetrically by up to the jitter factor.
func (b *Backoff) addJitter(d time.Duration) time.Duration {
	if b.jitter == 0 || b.rand == nil {
		return d
	}

	return d + time.Duration(float64(d)*b.jitter*(b.rand()*2-1))
}

func (b *Backoff) clamp(d time.Duration) time.Duration {
	return max(b.min, min(b.max, d))
}
