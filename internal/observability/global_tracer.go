package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var globalTracer trace.Tracer

// InitGlobalTracer binds the package tracer to the current global TracerProvider.
func InitGlobalTracer() {
	globalTracer = otel.Tracer(instrumentationName)
}

// GetGlobalTracer returns the package tracer, falling back to the global provider.
func GetGlobalTracer() trace.Tracer {
	if globalTracer == nil {
		globalTracer = otel.Tracer(instrumentationName)
	}
	return globalTracer
}

// TraceFunction starts a span named "<component>.<function>".
func TraceFunction(ctx context.Context, component, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	spanName := fmt.Sprintf("%s.%s", component, functionName)
	return GetGlobalTracer().Start(ctx, spanName, trace.WithAttributes(attributes...))
}

// TraceFeedbackFunction starts a new span for a feedback store function.
func TraceFeedbackFunction(ctx context.Context, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "feedback", functionName, attributes...)
}

// TraceGenerationFunction starts a new span for a generation facade or processor function.
func TraceGenerationFunction(ctx context.Context, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "generation", functionName, attributes...)
}

// TraceAIFunction starts a new span for an AI engine call.
func TraceAIFunction(ctx context.Context, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "ai", functionName, attributes...)
}

// TraceHandlerFunction starts a new span for a handler function.
func TraceHandlerFunction(ctx context.Context, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "handler", functionName, attributes...)
}

// TraceDatabaseFunction starts a new span for a database function.
func TraceDatabaseFunction(ctx context.Context, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "database", functionName, attributes...)
}

// AttributeFeedbackID returns a tracing attribute for a feedback record ID.
func AttributeFeedbackID(id int64) attribute.KeyValue {
	return attribute.Int64("feedback.id", id)
}

// AttributeFeedbackType returns a tracing attribute for a feedback type.
func AttributeFeedbackType(feedbackType fmt.Stringer) attribute.KeyValue {
	return attribute.String("feedback.type", feedbackType.String())
}

// AttributeContent returns tracing attributes for the item feedback refers to.
func AttributeContent(contentType string, contentID int64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("content.type", contentType),
		attribute.Int64("content.id", contentID),
	}
}

// AttributeSegmentCount returns a tracing attribute for the number of video segments.
func AttributeSegmentCount(n int) attribute.KeyValue {
	return attribute.Int("video.segments", n)
}

// AttributePage returns a tracing attribute for a page value.
func AttributePage(page int) attribute.KeyValue {
	return attribute.Int("page", page)
}

// AttributePageSize returns a tracing attribute for a page size value.
func AttributePageSize(size int) attribute.KeyValue {
	return attribute.Int("page_size", size)
}
