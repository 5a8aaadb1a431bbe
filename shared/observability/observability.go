package observability

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// Options selects which signals are exported
type Options struct {
	ServiceName    string
	TracingEnabled bool
	MetricsEnabled bool
	// TraceOutput receives spans from the stdout exporter; defaults to os.Stdout
	TraceOutput io.Writer
}

// Provider owns the tracer and meter providers for the process
type Provider struct {
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	metricsHandler http.Handler
	shutdowns      []func(context.Context) error
}

// Setup builds the providers and installs them as the otel globals
func Setup(opts Options) (*Provider, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(semconv.ServiceName(opts.ServiceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("build resource: %w", err)
	}

	p := &Provider{
		tracerProvider: tracenoop.NewTracerProvider(),
		meterProvider:  metricnoop.NewMeterProvider(),
	}

	if opts.TracingEnabled {
		out := opts.TraceOutput
		if out == nil {
			out = os.Stdout
		}
		exp, err := stdouttrace.New(stdouttrace.WithWriter(out))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize stdouttrace exporter: %w", err)
		}
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exp),
			sdktrace.WithResource(res),
		)
		p.tracerProvider = tp
		p.shutdowns = append(p.shutdowns, tp.Shutdown)
	}

	if opts.MetricsEnabled {
		registry := promclient.NewRegistry()
		exp, err := otelprom.New(otelprom.WithRegisterer(registry))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize prometheus exporter: %w", err)
		}
		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithReader(exp),
			sdkmetric.WithResource(res),
		)
		p.meterProvider = mp
		p.metricsHandler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
		p.shutdowns = append(p.shutdowns, mp.Shutdown)
	}

	otel.SetTracerProvider(p.tracerProvider)
	otel.SetMeterProvider(p.meterProvider)
	return p, nil
}

// Tracer returns a named tracer
func (p *Provider) Tracer(name string) trace.Tracer {
	return p.tracerProvider.Tracer(name)
}

// Meter returns a named meter
func (p *Provider) Meter(name string) metric.Meter {
	return p.meterProvider.Meter(name)
}

// MetricsHandler serves the prometheus scrape endpoint, nil when metrics are off
func (p *Provider) MetricsHandler() http.Handler {
	return p.metricsHandler
}

// Shutdown flushes and stops the exporters
func (p *Provider) Shutdown(ctx context.Context) error {
	var errs []error
	for _, shutdown := range p.shutdowns {
		if err := shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
