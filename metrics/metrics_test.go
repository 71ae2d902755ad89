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

//go:build !integration

package metrics

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestRecorder builds a recorder over a manual reader so tests can
// collect recorded data without an exporter or server.
func newTestRecorder(t *testing.T, opts ...Option) (*Recorder, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	opts = append([]Option{
		WithMeterProvider(mp),
		WithServiceName("test-service"),
		WithServiceVersion("v1.0.0"),
	}, opts...)

	return MustNew(opts...), reader
}

// findMetric locates a metric by name in collected data.
func findMetric(t *testing.T, reader *sdkmetric.ManualReader, name string) (metricdata.Metrics, bool) {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name == name {
				return m, true
			}
		}
	}
	return metricdata.Metrics{}, false
}

func TestRecorderConfig(t *testing.T) {
	t.Parallel()

	rec := MustNew(
		WithPrometheus(":9091", "/metrics"),
		WithServiceName("test-service"),
		WithServiceVersion("v1.0.0"),
		WithServerDisabled(),
	)
	defer rec.Shutdown(context.Background())

	assert.True(t, rec.IsEnabled())
	assert.Equal(t, "test-service", rec.ServiceName())
	assert.Equal(t, "v1.0.0", rec.ServiceVersion())
	assert.Equal(t, PrometheusProvider, rec.Provider())
	assert.Equal(t, "/metrics", rec.Path())
}

func TestRecorderPortAndPathNormalization(t *testing.T) {
	t.Parallel()

	rec := MustNew(
		WithPrometheus("9190", "metrics"),
		WithServerDisabled(),
	)
	defer rec.Shutdown(context.Background())

	assert.Equal(t, "/metrics", rec.Path())
}

func TestRecorderConflictingProviders(t *testing.T) {
	t.Parallel()

	_, err := New(
		WithPrometheus(":9091", "/metrics"),
		WithStdout(),
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "conflicting provider options")
}

func TestRecorderValidation(t *testing.T) {
	t.Parallel()

	t.Run("empty service name", func(t *testing.T) {
		t.Parallel()
		_, err := New(WithServiceName(""), WithServerDisabled())
		require.Error(t, err)
	})

	t.Run("bad custom metric limit", func(t *testing.T) {
		t.Parallel()
		_, err := New(WithMaxCustomMetrics(0), WithServerDisabled())
		require.Error(t, err)
	})

	t.Run("nil custom meter provider", func(t *testing.T) {
		t.Parallel()
		_, err := New(WithMeterProvider(nil))
		require.Error(t, err)
	})
}

func TestRecorderLifecycle(t *testing.T) {
	t.Parallel()

	rec, reader := newTestRecorder(t)

	req := httptest.NewRequest("GET", "http://example.com/users/42", nil)
	ctx, state := rec.OnRequestStart(req.Context(), req)
	require.NotNil(t, state)

	w := rec.WrapResponseWriter(httptest.NewRecorder(), state)
	w.WriteHeader(200)
	_, err := w.Write([]byte(`{"id":"42"}`))
	require.NoError(t, err)

	rec.OnRequestEnd(ctx, state, w, "/users/:id")

	m, ok := findMetric(t, reader, "http_requests_total")
	require.True(t, ok, "http_requests_total should exist")

	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(1), sum.DataPoints[0].Value)

	route, ok := sum.DataPoints[0].Attributes.Value("http.route")
	require.True(t, ok)
	assert.Equal(t, "/users/:id", route.AsString())

	// Active requests returned to zero with matching attributes.
	m, ok = findMetric(t, reader, "http_requests_active")
	require.True(t, ok)
	active, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, active.DataPoints, 1)
	assert.Equal(t, int64(0), active.DataPoints[0].Value)

	m, ok = findMetric(t, reader, "http_request_duration_seconds")
	require.True(t, ok)
	hist, ok := m.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(1), hist.DataPoints[0].Count)
}

func TestRecorderCountsErrors(t *testing.T) {
	t.Parallel()

	rec, reader := newTestRecorder(t)

	req := httptest.NewRequest("GET", "http://example.com/missing", nil)
	ctx, state := rec.OnRequestStart(req.Context(), req)
	w := rec.WrapResponseWriter(httptest.NewRecorder(), state)
	w.WriteHeader(404)
	rec.OnRequestEnd(ctx, state, w, "_not_found")

	m, ok := findMetric(t, reader, "http_errors_total")
	require.True(t, ok)
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(1), sum.DataPoints[0].Value)

	class, ok := sum.DataPoints[0].Attributes.Value("http.status_class")
	require.True(t, ok)
	assert.Equal(t, "4xx", class.AsString())
}

func TestRecorderExcludePaths(t *testing.T) {
	t.Parallel()

	rec, _ := newTestRecorder(t, WithExcludePaths("/healthz"))

	req := httptest.NewRequest("GET", "http://example.com/healthz", nil)
	_, state := rec.OnRequestStart(req.Context(), req)
	assert.Nil(t, state, "excluded path should return nil state")

	req = httptest.NewRequest("GET", "http://example.com/other", nil)
	_, state = rec.OnRequestStart(req.Context(), req)
	assert.NotNil(t, state)
}

func TestRecorderDisabled(t *testing.T) {
	t.Parallel()

	rec, _ := newTestRecorder(t, WithDisabled())

	assert.False(t, rec.IsEnabled())
	assert.Equal(t, Provider(""), rec.Provider())

	req := httptest.NewRequest("GET", "http://example.com/x", nil)
	_, state := rec.OnRequestStart(req.Context(), req)
	assert.Nil(t, state)
}

func TestRecorderRecordHeaders(t *testing.T) {
	t.Parallel()

	var warnings []Event
	rec, reader := newTestRecorder(t,
		WithEventHandler(func(e Event) {
			if e.Type == EventWarning {
				warnings = append(warnings, e)
			}
		}),
		WithRecordHeaders("X-Tenant", "Authorization"),
	)

	require.Len(t, warnings, 1, "sensitive header should be refused with a warning")

	req := httptest.NewRequest("GET", "http://example.com/x", nil)
	req.Header.Set("X-Tenant", "acme")
	req.Header.Set("Authorization", "Bearer secret")

	ctx, state := rec.OnRequestStart(req.Context(), req)
	w := rec.WrapResponseWriter(httptest.NewRecorder(), state)
	w.WriteHeader(200)
	rec.OnRequestEnd(ctx, state, w, "/x")

	m, ok := findMetric(t, reader, "http_requests_total")
	require.True(t, ok)
	sum := m.Data.(metricdata.Sum[int64])
	require.Len(t, sum.DataPoints, 1)

	tenant, ok := sum.DataPoints[0].Attributes.Value("http.request.header.x-tenant")
	require.True(t, ok)
	assert.Equal(t, "acme", tenant.AsString())

	_, ok = sum.DataPoints[0].Attributes.Value("http.request.header.authorization")
	assert.False(t, ok, "credentials must never be recorded")
}

func TestBuildRequestLogger(t *testing.T) {
	t.Parallel()

	t.Run("without logger", func(t *testing.T) {
		t.Parallel()
		rec, _ := newTestRecorder(t)
		req := httptest.NewRequest("GET", "http://example.com/x", nil)
		assert.Nil(t, rec.BuildRequestLogger(req.Context(), req, "/x"))
	})

	t.Run("with logger", func(t *testing.T) {
		t.Parallel()
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		rec, _ := newTestRecorder(t, WithRequestLogger(logger))
		req := httptest.NewRequest("GET", "http://example.com/x", nil)
		assert.NotNil(t, rec.BuildRequestLogger(req.Context(), req, "/x"))
	})
}

func TestCustomMetrics(t *testing.T) {
	t.Parallel()

	rec, reader := newTestRecorder(t)
	ctx := context.Background()

	require.NoError(t, rec.RecordHistogram(ctx, "payload_parse_seconds", 1.5))
	require.NoError(t, rec.IncrementCounter(ctx, "rewrites_seen"))
	require.NoError(t, rec.AddCounter(ctx, "rewrites_seen", 2))
	require.NoError(t, rec.SetGauge(ctx, "upstream_pool_size", 42.0))

	assert.Equal(t, 3, rec.CustomMetricCount())

	m, ok := findMetric(t, reader, "rewrites_seen")
	require.True(t, ok)
	sum := m.Data.(metricdata.Sum[int64])
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(3), sum.DataPoints[0].Value)
}

func TestCustomMetricValidation(t *testing.T) {
	t.Parallel()

	rec, _ := newTestRecorder(t)
	ctx := context.Background()

	assert.Error(t, rec.IncrementCounter(ctx, ""))
	assert.Error(t, rec.IncrementCounter(ctx, "9starts_with_digit"))
	assert.Error(t, rec.IncrementCounter(ctx, "has spaces"))
	assert.Error(t, rec.IncrementCounter(ctx, "__reserved"))
	assert.Error(t, rec.IncrementCounter(ctx, "http_reserved"))
}

func TestCustomMetricLimit(t *testing.T) {
	t.Parallel()

	rec, _ := newTestRecorder(t, WithMaxCustomMetrics(1))
	ctx := context.Background()

	require.NoError(t, rec.IncrementCounter(ctx, "first_metric"))
	// Existing instruments keep working at the limit.
	require.NoError(t, rec.IncrementCounter(ctx, "first_metric"))

	err := rec.IncrementCounter(ctx, "second_metric")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "limit")
}

func TestStatusClass(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "2xx", statusClass(204))
	assert.Equal(t, "3xx", statusClass(302))
	assert.Equal(t, "4xx", statusClass(404))
	assert.Equal(t, "5xx", statusClass(500))
	assert.Equal(t, "unknown", statusClass(99))
}

func TestShutdownIdempotent(t *testing.T) {
	t.Parallel()

	rec := MustNew(WithStdout(), WithExportInterval(time.Hour))

	require.NoError(t, rec.Shutdown(context.Background()))
	require.NoError(t, rec.Shutdown(context.Background()))
	assert.NoError(t, rec.ForceFlush(context.Background()), "flush after shutdown is a no-op")
}
