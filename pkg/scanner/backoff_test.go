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
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/bluecast/pkg/models"
)

func msConfig() Config {
	return Config{
		BaseInterval:     models.Duration(1000 * time.Millisecond),
		MinInterval:      models.Duration(1000 * time.Millisecond),
		MaxInterval:      models.Duration(10000 * time.Millisecond),
		FailureThreshold: 2,
		JitterFactor:     0.2,
		EscalateAfter:    5,
	}
}

func fixed(v float64) func() float64 {
	return func() float64 { return v }
}

func TestBackoffFiveFailures(t *testing.T) {
	tests := []struct {
		name string
		rand float64
		want []time.Duration
	}{
		{
			name: "no jitter",
			rand: 0.5,
			want: []time.Duration{1000, 1000, 2000, 4000, 8000, 10000, 10000},
		},
		{
			name: "maximum positive jitter is capped",
			rand: 0.999999,
			want: []time.Duration{1000, 1000, 2400, 4800, 9600, 10000, 10000},
		},
		{
			name: "maximum negative jitter",
			rand: 0,
			want: []time.Duration{1000, 1000, 1600, 3200, 6400, 8000, 8000},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBackoff(msConfig(), fixed(tt.rand))

			for i, want := range tt.want {
				got := b.Failure()
				assert.InDelta(t, float64(want*time.Millisecond), float64(got), float64(time.Millisecond),
					"failure %d", i+1)
			}
		})
	}
}

func TestBackoffBounds(t *testing.T) {
	cfg := msConfig()
	rnd := rand.New(rand.NewSource(42)).Float64 //nolint:gosec // test
	b := NewBackoff(cfg, rnd)

	base := cfg.BaseInterval.Std()
	ceiling := cfg.MaxInterval.Std()
	floor := cfg.MinInterval.Std()

	for k := 1; k <= 20; k++ {
		sleep := b.Failure()

		nominal := base
		if k > cfg.FailureThreshold {
			nominal = min(ceiling, base<<(k-cfg.FailureThreshold))
		}

		assert.Equal(t, nominal, b.Current(), "nominal interval after %d failures", k)
		assert.LessOrEqual(t, sleep, ceiling)
		assert.GreaterOrEqual(t, sleep, floor)
		assert.GreaterOrEqual(t, float64(sleep), 0.8*float64(nominal)-1)
		assert.LessOrEqual(t, float64(sleep), 1.2*float64(nominal)+1)
	}
}

func TestBackoffSuccessResets(t *testing.T) {
	b := NewBackoff(msConfig(), fixed(0.5))

	for i := 0; i < 4; i++ {
		b.Failure()
	}

	require.Equal(t, 4000*time.Millisecond, b.Current())
	assert.Equal(t, 1000*time.Millisecond, b.Success())
	assert.Equal(t, 0, b.Failures())
	assert.Equal(t, 1000*time.Millisecond, b.Failure(), "threshold applies again after a reset")
}

func TestConfigValidate(t *testing.T) {
	good := DefaultConfig()
	require.NoError(t, good.Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
		want   error
	}{
		{"min above base", func(c *Config) { c.MinInterval = c.BaseInterval * 2 }, errInvalidInterval},
		{"base above max", func(c *Config) { c.BaseInterval = c.MaxInterval * 2 }, errInvalidInterval},
		{"zero base", func(c *Config) { c.BaseInterval = 0 }, errInvalidInterval},
		{"jitter too large", func(c *Config) { c.JitterFactor = 1 }, errInvalidJitter},
		{"negative threshold", func(c *Config) { c.FailureThreshold = -1 }, errInvalidThreshold},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.mutate(&c)
			require.ErrorIs(t, c.Validate(), tt.want)
		})
	}
}
