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

// Package metrics records daemon activity as OpenTelemetry instruments.
package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const (
	meterName = "github.com/carverauto/bluecast"

	metricScanCycles      = "bluecast_scan_cycles_total"
	metricBackoffInterval = "bluecast_scan_backoff_seconds"
	metricDiscovered      = "bluecast_devices_discovered_total"
	metricConnects        = "bluecast_connect_total"
	metricDisconnects     = "bluecast_disconnect_total"
	metricReconnects      = "bluecast_reconnect_attempts_total"
	metricPackets         = "bluecast_audio_packets_total"
	metricFrames          = "bluecast_audio_frames_total"
	metricSinkFailures    = "bluecast_sink_feed_failures_total"

	OutcomeSuccess = "success"
	OutcomeEmpty   = "empty"
	OutcomeError   = "error"
	OutcomeSkipped = "skipped"
)

// Recorder owns one set of instruments. A nil *Recorder records nothing.
type Recorder struct {
	scanCycles   metric.Int64Counter
	backoff      metric.Float64Histogram
	discovered   metric.Int64Counter
	connects     metric.Int64Counter
	disconnects  metric.Int64Counter
	reconnects   metric.Int64Counter
	packets      metric.Int64Counter
	frames       metric.Int64Counter
	sinkFailures metric.Int64Counter
}

// NewRecorder builds instruments from meter; nil falls back to a no-op meter.
func NewRecorder(meter metric.Meter) *Recorder {
	if meter == nil {
		meter = noop.NewMeterProvider().Meter(meterName)
	}

	r := &Recorder{}

	r.scanCycles = counter(meter, metricScanCycles, "Enumeration passes by outcome")
	r.discovered = counter(meter, metricDiscovered, "Addresses inserted into the scan cache")
	r.connects = counter(meter, metricConnects, "Connect calls by outcome")
	r.disconnects = counter(meter, metricDisconnects, "Disconnect calls by outcome")
	r.reconnects = counter(meter, metricReconnects, "Watchdog reconnect attempts by outcome")
	r.packets = counter(meter, metricPackets, "Captured audio packets delivered to the router")
	r.frames = counter(meter, metricFrames, "Captured audio frames delivered to the router")
	r.sinkFailures = counter(meter, metricSinkFailures, "Per-sink feed failures by reason")

	hist, err := meter.Float64Histogram(
		metricBackoffInterval,
		metric.WithDescription("Sleep chosen between scan cycles"),
		metric.WithUnit("s"),
	)
	if err != nil {
		otel.Handle(err)
	}

	r.backoff = hist

	return r
}

// FromGlobal uses the process MeterProvider registered with otel.
func FromGlobal() *Recorder {
	return NewRecorder(otel.Meter(meterName))
}

func counter(meter metric.Meter, name, desc string) metric.Int64Counter {
	c, err := meter.Int64Counter(name, metric.WithDescription(desc))
	if err != nil {
		otel.Handle(err)
	}

	return c
}

func outcome(value string) metric.AddOption {
	return metric.WithAttributes(attribute.String("outcome", value))
}

func (r *Recorder) ScanCycle(ctx context.Context, result string) {
	if r == nil || r.scanCycles == nil {
		return
	}

	r.scanCycles.Add(ctx, 1, outcome(result))
}

func (r *Recorder) BackoffInterval(ctx context.Context, d time.Duration) {
	if r == nil || r.backoff == nil {
		return
	}

	r.backoff.Record(ctx, d.Seconds())
}

func (r *Recorder) DeviceDiscovered(ctx context.Context) {
	if r == nil || r.discovered == nil {
		return
	}

	r.discovered.Add(ctx, 1)
}

func (r *Recorder) Connect(ctx context.Context, result string) {
	if r == nil || r.connects == nil {
		return
	}

	r.connects.Add(ctx, 1, outcome(result))
}

func (r *Recorder) Disconnect(ctx context.Context, result string) {
	if r == nil || r.disconnects == nil {
		return
	}

	r.disconnects.Add(ctx, 1, outcome(result))
}

func (r *Recorder) Reconnect(ctx context.Context, result string) {
	if r == nil || r.reconnects == nil {
		return
	}

	r.reconnects.Add(ctx, 1, outcome(result))
}

// Packet counts one captured packet of frames.
func (r *Recorder) Packet(ctx context.Context, frames int) {
	if r == nil || r.packets == nil {
		return
	}

	r.packets.Add(ctx, 1)
	r.frames.Add(ctx, int64(frames))
}

func (r *Recorder) SinkFailure(ctx context.Context, reason string) {
	if r == nil || r.sinkFailures == nil {
		return
	}

	r.sinkFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}
