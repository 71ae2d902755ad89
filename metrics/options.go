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
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// Option defines functional options for Recorder configuration.
type Option func(*Recorder)

// WithPrometheus configures the Prometheus provider with a scrape
// server port and path. This is the default provider.
//
// Example:
//
//	rec := metrics.MustNew(
//	    metrics.WithPrometheus(":9090", "/metrics"),
//	    metrics.WithServiceName("orders-api"),
//	)
func WithPrometheus(port, path string) Option {
	return func(r *Recorder) {
		r.provider = PrometheusProvider
		r.providerSetCount++
		if port != "" && !strings.HasPrefix(port, ":") {
			port = ":" + port
		}
		r.metricsPort = port
		if path != "" && !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		r.metricsPath = path
	}
}

// WithOTLP configures the OTLP HTTP provider with a collector
// endpoint. Metrics are pushed periodically (see WithExportInterval).
//
// Example:
//
//	rec := metrics.MustNew(metrics.WithOTLP("http://localhost:4318"))
func WithOTLP(endpoint string) Option {
	return func(r *Recorder) {
		r.provider = OTLPProvider
		r.providerSetCount++
		r.otlpEndpoint = endpoint
	}
}

// WithStdout configures the stdout provider for development and
// debugging.
func WithStdout() Option {
	return func(r *Recorder) {
		r.provider = StdoutProvider
		r.providerSetCount++
	}
}

// WithMeterProvider supplies a custom OpenTelemetry meter provider.
// Provider options (WithPrometheus, WithOTLP, WithStdout) are ignored,
// and the recorder never flushes or shuts the provider down; its
// lifecycle belongs to the caller. Useful for tests with a manual
// reader and for binaries that already manage their own provider.
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(r *Recorder) {
		r.meterProvider = provider
		r.customMeterProvider = true
	}
}

// WithGlobalMeterProvider registers the recorder's meter provider as
// the global OpenTelemetry default via otel.SetMeterProvider. Off by
// default so multiple recorders can coexist in one process.
func WithGlobalMeterProvider() Option {
	return func(r *Recorder) {
		r.registerGlobal = true
	}
}

// WithServiceName sets the service.name attribute attached to every
// recorded series.
func WithServiceName(name string) Option {
	return func(r *Recorder) {
		r.serviceName = name
		r.initCommonAttributes()
	}
}

// WithServiceVersion sets the service.version attribute attached to
// every recorded series.
func WithServiceVersion(version string) Option {
	return func(r *Recorder) {
		r.serviceVersion = version
		r.initCommonAttributes()
	}
}

// WithExportInterval sets the push interval for OTLP and stdout
// providers.
func WithExportInterval(interval time.Duration) Option {
	return func(r *Recorder) {
		r.exportInterval = interval
	}
}

// WithDurationBuckets overrides the request duration histogram
// boundaries, in seconds.
func WithDurationBuckets(buckets ...float64) Option {
	return func(r *Recorder) {
		r.durationBuckets = buckets
	}
}

// WithSizeBuckets overrides the request/response size histogram
// boundaries, in bytes.
func WithSizeBuckets(buckets ...float64) Option {
	return func(r *Recorder) {
		r.sizeBuckets = buckets
	}
}

// WithServerDisabled disables the automatic Prometheus scrape server.
// Serve the handler yourself via [Recorder.Handler].
func WithServerDisabled() Option {
	return func(r *Recorder) {
		r.autoStartServer = false
	}
}

// WithStrictPort makes the scrape server require its exact configured
// port instead of hunting for a free one. Use when monitoring scrapes
// a fixed target.
func WithStrictPort() Option {
	return func(r *Recorder) {
		r.strictPort = true
	}
}

// WithDisabled turns observation off while keeping the recorder
// wiring in place. All lifecycle hooks become no-ops. Useful for
// config-driven environments where metrics are toggled per deployment.
func WithDisabled() Option {
	return func(r *Recorder) {
		r.enabled = false
	}
}

// WithRequestLogger sets the logger request-scoped loggers derive
// from. Without one the recorder builds no request loggers and the
// router falls back to its own base logger.
func WithRequestLogger(logger *slog.Logger) Option {
	return func(r *Recorder) {
		r.requestLogger = logger
	}
}

// WithExcludePaths excludes exact request paths from observation,
// typically health and scrape endpoints:
//
//	metrics.WithExcludePaths("/healthz", "/metrics")
func WithExcludePaths(paths ...string) Option {
	return func(r *Recorder) {
		for _, p := range paths {
			r.excludePaths[p] = true
		}
	}
}

// WithRecordHeaders records the named request headers as attributes on
// request series. Credential-bearing headers (Authorization, Cookie,
// and the like) are refused regardless of configuration.
func WithRecordHeaders(names ...string) Option {
	return func(r *Recorder) {
		for _, name := range names {
			lower := strings.ToLower(name)
			if sensitiveHeaders[lower] {
				r.emitWarning("refusing to record sensitive header", "header", lower)
				continue
			}
			r.recordHeaders = append(r.recordHeaders, name)
			r.recordHeadersLower = append(r.recordHeadersLower, lower)
		}
	}
}

// WithMaxCustomMetrics caps the number of distinct custom metrics,
// preventing unbounded instrument creation from dynamic names.
func WithMaxCustomMetrics(maxLimit int) Option {
	return func(r *Recorder) {
		r.maxCustomMetrics = maxLimit
	}
}

// WithEventHandler sets a custom handler for internal operational
// events, for integrating with alerting or non-slog logging systems.
func WithEventHandler(handler EventHandler) Option {
	return func(r *Recorder) {
		r.eventHandler = handler
	}
}

// WithLogger routes internal operational events to the given logger.
// Convenience wrapper around [WithEventHandler] and
// [DefaultEventHandler].
func WithLogger(logger *slog.Logger) Option {
	return WithEventHandler(DefaultEventHandler(logger))
}
