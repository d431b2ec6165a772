package observability

import (
	"context"

	"github.com/AgamW017/vibe/internal/config"
	contextutils "github.com/AgamW017/vibe/internal/utils"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

// InitMetrics initializes an OTLP-exporting MeterProvider
func InitMetrics(cfg *config.OpenTelemetryConfig) (result0 *metric.MeterProvider, err error) {
	ctx := context.Background()

	res, err := newResource(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var exporter metric.Exporter
	switch cfg.Protocol {
	case "grpc":
		opts := []otlpmetricgrpc.Option{
			otlpmetricgrpc.WithEndpoint(cfg.Endpoint),
			otlpmetricgrpc.WithHeaders(cfg.Headers),
		}
		if cfg.Insecure {
			opts = append(opts, otlpmetricgrpc.WithInsecure())
		}
		exporter, err = otlpmetricgrpc.New(ctx, opts...)
		if err != nil {
			return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to create otlp grpc metric exporter: %w", err)
		}
	case "http":
		opts := []otlpmetrichttp.Option{
			otlpmetrichttp.WithEndpoint(cfg.Endpoint),
			otlpmetrichttp.WithHeaders(cfg.Headers),
		}
		if cfg.Insecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		exporter, err = otlpmetrichttp.New(ctx, opts...)
		if err != nil {
			return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to create otlp http metric exporter: %w", err)
		}
	default:
		return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "unsupported otel protocol: %s", cfg.Protocol)
	}

	mp := metric.NewMeterProvider(
		metric.WithReader(metric.NewPeriodicReader(exporter)),
		metric.WithResource(res),
	)
	return mp, nil
}

// Instruments groups the counters the services record into.
// Built from the global MeterProvider, so they are no-ops until metrics are enabled.
type Instruments struct {
	FeedbackCreated    otelmetric.Int64Counter
	GenerationRequests otelmetric.Int64Counter
}

// NewInstruments creates the application counters on the global meter
func NewInstruments() (*Instruments, error) {
	meter := otel.Meter(instrumentationName)

	feedbackCreated, err := meter.Int64Counter("vibe.feedback.created",
		otelmetric.WithDescription("Feedback records persisted"))
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to create feedback counter: %w", err)
	}

	generationRequests, err := meter.Int64Counter("vibe.generation.requests",
		otelmetric.WithDescription("Video and playlist requests forwarded to processors"))
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to create generation counter: %w", err)
	}

	return &Instruments{FeedbackCreated: feedbackCreated, GenerationRequests: generationRequests}, nil
}

// RecordFeedbackCreated counts one persisted feedback record of the given type.
// Safe to call on a nil receiver.
func (i *Instruments) RecordFeedbackCreated(ctx context.Context, feedbackType string) {
	if i == nil {
		return
	}
	i.FeedbackCreated.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("feedback_type", feedbackType)))
}

// RecordGenerationRequest counts one processor call by operation and outcome.
// Safe to call on a nil receiver.
func (i *Instruments) RecordGenerationRequest(ctx context.Context, operation string, failed bool) {
	if i == nil {
		return
	}
	i.GenerationRequests.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("operation", operation),
		attribute.Bool("error", failed),
	))
}
