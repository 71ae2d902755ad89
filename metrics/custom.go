// Copyright 2025 The Rivaas Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package metrics

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// metricNameRegex validates custom metric names per OpenTelemetry
// conventions: a leading letter, then alphanumerics, underscores,
// dots, and hyphens.
var metricNameRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_.-]*$`)

const maxMetricNameLength = 255

// reservedPrefixes cannot be used for custom metrics; they belong to
// Prometheus internals or to this package's built-in instruments.
var reservedPrefixes = []string{
	"__",
	"http_",
}

// limitError is returned when the custom metrics limit is reached.
type limitError struct {
	metricName string
	limit      int
	current    int
}

func (e *limitError) Error() string {
	return fmt.Sprintf("metrics limit reached: cannot create %q (current: %d, limit: %d)",
		e.metricName, e.current, e.limit)
}

func validateMetricName(name string) error {
	if name == "" {
		return fmt.Errorf("metric name cannot be empty")
	}
	if len(name) > maxMetricNameLength {
		return fmt.Errorf("metric name too long: %d characters (max %d)", len(name), maxMetricNameLength)
	}
	if !metricNameRegex.MatchString(name) {
		return fmt.Errorf("invalid metric name %q: must start with letter and contain only alphanumeric, underscore, dot, or hyphen", name)
	}
	for _, prefix := range reservedPrefixes {
		if strings.HasPrefix(name, prefix) {
			return fmt.Errorf("metric name %q uses reserved prefix %q", name, prefix)
		}
	}
	return nil
}

// RecordHistogram records a value on a custom histogram, creating the
// instrument on first use. Returns an error for invalid names or when
// the custom metric limit is reached.
//
// Example:
//
//	err := rec.RecordHistogram(ctx, "payload_parse_seconds", 0.012,
//	    attribute.String("format", "json"))
func (r *Recorder) RecordHistogram(ctx context.Context, name string, value float64, attributes ...attribute.KeyValue) error {
	if !r.enabled {
		return nil
	}

	histogram, err := r.getOrCreateHistogram(name)
	if err != nil {
		return fmt.Errorf("record histogram %q: %w", name, err)
	}

	histogram.Record(ctx, value, metric.WithAttributes(attributes...))
	return nil
}

// IncrementCounter increments a custom counter by 1.
func (r *Recorder) IncrementCounter(ctx context.Context, name string, attributes ...attribute.KeyValue) error {
	return r.AddCounter(ctx, name, 1, attributes...)
}

// AddCounter adds a value to a custom counter, creating the instrument
// on first use.
func (r *Recorder) AddCounter(ctx context.Context, name string, value int64, attributes ...attribute.KeyValue) error {
	if !r.enabled {
		return nil
	}

	counter, err := r.getOrCreateCounter(name)
	if err != nil {
		return fmt.Errorf("add counter %q: %w", name, err)
	}

	counter.Add(ctx, value, metric.WithAttributes(attributes...))
	return nil
}

// SetGauge records a value on a custom gauge, creating the instrument
// on first use.
func (r *Recorder) SetGauge(ctx context.Context, name string, value float64, attributes ...attribute.KeyValue) error {
	if !r.enabled {
		return nil
	}

	gauge, err := r.getOrCreateGauge(name)
	if err != nil {
		return fmt.Errorf("set gauge %q: %w", name, err)
	}

	gauge.Record(ctx, value, metric.WithAttributes(attributes...))
	return nil
}

// CustomMetricCount returns the number of custom instruments created.
func (r *Recorder) CustomMetricCount() int {
	r.customMu.RLock()
	defer r.customMu.RUnlock()
	return r.customMetricCount
}

func (r *Recorder) getOrCreateCounter(name string) (metric.Int64Counter, error) {
	r.customMu.RLock()
	if counter, exists := r.customCounters[name]; exists {
		r.customMu.RUnlock()
		return counter, nil
	}
	r.customMu.RUnlock()

	// Validate only when creating, the fast path skips it.
	if err := validateMetricName(name); err != nil {
		return nil, err
	}

	r.customMu.Lock()
	defer r.customMu.Unlock()

	if counter, exists := r.customCounters[name]; exists {
		return counter, nil
	}
	if r.customMetricCount >= r.maxCustomMetrics {
		return nil, &limitError{metricName: name, limit: r.maxCustomMetrics, current: r.customMetricCount}
	}

	counter, err := r.meter.Int64Counter(
		name,
		metric.WithDescription("Custom counter metric"),
	)
	if err != nil {
		return nil, err
	}

	r.customCounters[name] = counter
	r.customMetricCount++
	return counter, nil
}

func (r *Recorder) getOrCreateHistogram(name string) (metric.Float64Histogram, error) {
	r.customMu.RLock()
	if histogram, exists := r.customHistograms[name]; exists {
		r.customMu.RUnlock()
		return histogram, nil
	}
	r.customMu.RUnlock()

	if err := validateMetricName(name); err != nil {
		return nil, err
	}

	r.customMu.Lock()
	defer r.customMu.Unlock()

	if histogram, exists := r.customHistograms[name]; exists {
		return histogram, nil
	}
	if r.customMetricCount >= r.maxCustomMetrics {
		return nil, &limitError{metricName: name, limit: r.maxCustomMetrics, current: r.customMetricCount}
	}

	histogram, err := r.meter.Float64Histogram(
		name,
		metric.WithDescription("Custom histogram metric"),
	)
	if err != nil {
		return nil, err
	}

	r.customHistograms[name] = histogram
	r.customMetricCount++
	return histogram, nil
}

func (r *Recorder) getOrCreateGauge(name string) (metric.Float64Gauge, error) {
	r.customMu.RLock()
	if gauge, exists := r.customGauges[name]; exists {
		r.customMu.RUnlock()
		return gauge, nil
	}
	r.customMu.RUnlock()

	if err := validateMetricName(name); err != nil {
		return nil, err
	}

	r.customMu.Lock()
	defer r.customMu.Unlock()

	if gauge, exists := r.customGauges[name]; exists {
		return gauge, nil
	}
	if r.customMetricCount >= r.maxCustomMetrics {
		return nil, &limitError{metricName: name, limit: r.maxCustomMetrics, current: r.customMetricCount}
	}

	gauge, err := r.meter.Float64Gauge(
		name,
		metric.WithDescription("Custom gauge metric"),
	)
	if err != nil {
		return nil, err
	}

	r.customGauges[name] = gauge
	r.customMetricCount++
	return gauge, nil
}
