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

package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Metrics)

	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}

	return out
}

func sumByOutcome(t *testing.T, m metricdata.Metrics) map[string]int64 {
	t.Helper()

	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "expected int64 sum for %s", m.Name)

	out := make(map[string]int64)

	for _, dp := range sum.DataPoints {
		v, _ := dp.Attributes.Value(attribute.Key("outcome"))
		out[v.AsString()] += dp.Value
	}

	return out
}

func TestRecorder(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	r := NewRecorder(provider.Meter("test"))
	ctx := context.Background()

	r.ScanCycle(ctx, OutcomeSuccess)
	r.ScanCycle(ctx, OutcomeError)
	r.ScanCycle(ctx, OutcomeError)
	r.BackoffInterval(ctx, 2*time.Second)
	r.DeviceDiscovered(ctx)
	r.Connect(ctx, OutcomeSuccess)
	r.Reconnect(ctx, OutcomeError)
	r.Packet(ctx, 480)
	r.Packet(ctx, 480)
	r.SinkFailure(ctx, "queue_full")

	got := collect(t, reader)

	assert.Equal(t, map[string]int64{OutcomeSuccess: 1, OutcomeError: 2}, sumByOutcome(t, got[metricScanCycles]))
	assert.Equal(t, map[string]int64{OutcomeSuccess: 1}, sumByOutcome(t, got[metricConnects]))

	frames, ok := got[metricFrames].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, frames.DataPoints, 1)
	assert.Equal(t, int64(960), frames.DataPoints[0].Value)

	hist, ok := got[metricBackoffInterval].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.InDelta(t, 2.0, hist.DataPoints[0].Sum, 1e-9)
}

func TestNilRecorderIsSafe(t *testing.T) {
	var r *Recorder

	assert.NotPanics(t, func() {
		r.ScanCycle(context.Background(), OutcomeSuccess)
		r.Packet(context.Background(), 10)
		r.SinkFailure(context.Background(), "gone")
	})

	assert.NotPanics(t, func() {
		NewRecorder(nil).Connect(context.Background(), OutcomeError)
	})
}
