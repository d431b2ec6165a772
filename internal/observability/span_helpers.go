package observability

import (
	contextutils "github.com/AgamW017/vibe/internal/utils"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// FinishSpan ends a span opened by one of the Trace*Function helpers and records the error
// pointed to by errPtr. Use with a named error return: `defer observability.FinishSpan(span, &err)`.
//
// Every error is tagged with error.code and error.severity. Only error and fatal severities
// mark the span as failed; caller mistakes (validation, not found, quota) stay Unset so they
// do not show up as service faults.
func FinishSpan(span trace.Span, errPtr *error) {
	if span == nil {
		return
	}
	defer span.End()
	if errPtr == nil || *errPtr == nil {
		return
	}

	err := *errPtr
	severity := contextutils.GetErrorSeverity(err)
	span.SetAttributes(
		attribute.String("error.code", string(contextutils.GetErrorCode(err))),
		attribute.String("error.severity", string(severity)),
	)
	if severity != contextutils.SeverityError && severity != contextutils.SeverityFatal {
		span.AddEvent("request rejected", trace.WithAttributes(attribute.String("error.message", err.Error())))
		return
	}
	span.RecordError(err, trace.WithStackTrace(true))
	span.SetStatus(codes.Error, err.Error())
}
