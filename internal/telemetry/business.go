package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// BusinessTracer provides utilities for tracing report and analysis
// operations with OpenTelemetry spans.
type BusinessTracer struct {
	tracer trace.Tracer
}

// NewBusinessTracer wraps tracer. A nil tracer uses the global report tracer.
func NewBusinessTracer(tracer trace.Tracer) *BusinessTracer {
	if tracer == nil {
		tracer = GetReportTracer()
	}
	return &BusinessTracer{tracer: tracer}
}

// TraceReportBuild starts a span for one report over recordCount entities.
func (bt *BusinessTracer) TraceReportBuild(ctx context.Context, reportID string, recordCount int) (context.Context, trace.Span) {
	return bt.tracer.Start(ctx, "report_build", trace.WithAttributes(
		attribute.String("report.id", reportID),
		attribute.Int("report.record_count", recordCount),
	))
}

// RecordReportMetrics adds the outcome of a report build to its span.
func (bt *BusinessTracer) RecordReportMetrics(span trace.Span, metrics ReportMetrics) {
	span.SetAttributes(
		attribute.Int("report.entities", metrics.Entities),
		attribute.Int("report.unknown_classifications", metrics.UnknownClassifications),
		attribute.String("report.dominant_severity", metrics.DominantSeverity),
		attribute.Int64("report.build_time_ms", metrics.BuildTime.Milliseconds()),
	)
	span.SetStatus(codes.Ok, "")
}

// TraceEntityAnalysis starts a span for the per-entity metric pipeline.
func (bt *BusinessTracer) TraceEntityAnalysis(ctx context.Context, entity string, kind string) (context.Context, trace.Span) {
	return bt.tracer.Start(ctx, "entity_analysis", trace.WithAttributes(
		attribute.String("entity.name", entity),
		attribute.String("entity.kind", kind),
	))
}

// RecordEntityResult adds an entity's classifications to its span.
func (bt *BusinessTracer) RecordEntityResult(span trace.Span, result EntityResult) {
	span.SetAttributes(
		attribute.String("entity.wash_trade", result.WashTrade),
		attribute.String("entity.activity", result.Activity),
		attribute.String("entity.trader_pattern", result.TraderPattern),
		attribute.String("entity.market_trend", result.MarketTrend),
		attribute.Int("entity.outliers", result.Outliers),
	)
}

// TraceCorrelation starts a span for a cross-entity correlation matrix.
func (bt *BusinessTracer) TraceCorrelation(ctx context.Context, metric string, entities int) (context.Context, trace.Span) {
	return bt.tracer.Start(ctx, "correlation", trace.WithAttributes(
		attribute.String("correlation.metric", metric),
		attribute.Int("correlation.entities", entities),
	))
}

// RecordError marks span as failed. Expected data gaps should be recorded
// as events instead.
func (bt *BusinessTracer) RecordError(span trace.Span, err error, description string) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, description)
}

// RecordDataGap notes a metric that could not be computed without failing
// the span.
func (bt *BusinessTracer) RecordDataGap(span trace.Span, metric string, err error) {
	span.AddEvent("data_gap", trace.WithAttributes(
		attribute.String("metric", metric),
		attribute.String("reason", err.Error()),
	))
}

// ReportMetrics defines the structure for tracking report builds in telemetry.
type ReportMetrics struct {
	Entities               int
	UnknownClassifications int
	DominantSeverity       string
	BuildTime              time.Duration
}

// EntityResult defines the structure for tracking per-entity classifications in telemetry.
type EntityResult struct {
	WashTrade     string
	Activity      string
	TraderPattern string
	MarketTrend   string
	Outliers      int
}
