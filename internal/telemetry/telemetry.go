package telemetry

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	// Service information
	ServiceName    = "github.com/irfndi/nftpulse"
	ServiceVersion = "1.0.0"

	reportTracerName = "nftpulse/report"
)

// TelemetryConfig holds configuration for telemetry
type TelemetryConfig struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	Environment    string
	// Output receives finished spans as JSON. Defaults to stderr.
	Output io.Writer
}

// DefaultConfig returns default telemetry configuration
func DefaultConfig() *TelemetryConfig {
	return &TelemetryConfig{
		Enabled:        false,
		ServiceName:    ServiceName,
		ServiceVersion: ServiceVersion,
		Environment:    "development",
		Output:         os.Stderr,
	}
}

// Provider holds the telemetry provider
type Provider struct {
	tracerProvider trace.TracerProvider
	shutdown       func(context.Context) error
}

// InitTelemetry installs a tracer provider exporting spans to config.Output.
// A disabled config yields a no-op provider.
func InitTelemetry(ctx context.Context, config TelemetryConfig) (*Provider, error) {
	if !config.Enabled {
		return &Provider{
			tracerProvider: noop.NewTracerProvider(),
			shutdown:       func(context.Context) error { return nil },
		}, nil
	}

	out := config.Output
	if out == nil {
		out = os.Stderr
	}
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(out))
	if err != nil {
		return nil, fmt.Errorf("stdout trace exporter: %w", err)
	}

	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(
		attribute.String("service.name", orDefault(config.ServiceName, ServiceName)),
		attribute.String("service.version", orDefault(config.ServiceVersion, ServiceVersion)),
		attribute.String("deployment.environment", config.Environment),
	))
	if err != nil {
		return nil, fmt.Errorf("telemetry resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return &Provider{tracerProvider: tp, shutdown: tp.Shutdown}, nil
}

// Tracer returns a named tracer from the provider
func (p *Provider) Tracer(name string) trace.Tracer {
	return p.tracerProvider.Tracer(name)
}

// ReportTracer returns the tracer used around report builds
func (p *Provider) ReportTracer() trace.Tracer {
	return p.Tracer(reportTracerName)
}

// Shutdown flushes and stops the provider
func (p *Provider) Shutdown(ctx context.Context) error {
	return p.shutdown(ctx)
}

// GetReportTracer returns the report tracer from the global provider
func GetReportTracer() trace.Tracer {
	return otel.Tracer(reportTracerName)
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
