package observability

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	contextutils "github.com/AgamW017/vibe/internal/utils"
)

// GinMiddleware creates OpenTelemetry middleware for Gin HTTP requests
func GinMiddleware(serviceName string) gin.HandlerFunc {
	return otelgin.Middleware(serviceName)
}

// GinMiddlewareWithErrorHandling returns otelgin followed by a handler that marks the
// request span as failed for 4xx/5xx responses, lifting code and severity from any
// AppError the handler attached. Install with router.Use(chain...).
func GinMiddlewareWithErrorHandling(serviceName string) gin.HandlersChain {
	return gin.HandlersChain{otelgin.Middleware(serviceName), annotateErrorSpan}
}

// annotateErrorSpan must run inside otelgin so the server span is still live
func annotateErrorSpan(c *gin.Context) {
	c.Next()

	statusCode := c.Writer.Status()
	if statusCode < 400 {
		return
	}

	span := trace.SpanFromContext(c.Request.Context())
	if !span.SpanContext().IsValid() {
		return
	}

	errorMsg := "client error"
	if statusCode >= 500 {
		errorMsg = "server error"
	}
	severity := determineErrorSeverity(statusCode, c.Errors)

	appErr := firstAppError(c.Errors)
	if appErr != nil {
		errorMsg = appErr.Message
		span.SetAttributes(
			attribute.String("error.code", string(appErr.Code)),
			attribute.Bool("error.retryable", contextutils.IsRetryable(appErr)),
		)
	} else if len(c.Errors) > 0 {
		errorMsg = c.Errors.Last().Error()
	}

	span.RecordError(errors.New(errorMsg), trace.WithStackTrace(true))
	span.SetStatus(codes.Error, errorMsg)
	span.SetAttributes(
		attribute.Int("http.status_code", statusCode),
		attribute.String("http.method", c.Request.Method),
		attribute.String("http.path", c.Request.URL.Path),
		attribute.String("error.handler", c.HandlerName()),
		attribute.String("error.severity", severity),
		attribute.Bool("error.server_error", statusCode >= 500),
	)
	if c.Request.ContentLength > 0 {
		span.SetAttributes(attribute.Int64("error.request_size", c.Request.ContentLength))
	}
}

func firstAppError(ginErrors []*gin.Error) *contextutils.AppError {
	for _, ginErr := range ginErrors {
		var appErr *contextutils.AppError
		if errors.As(ginErr.Err, &appErr) {
			return appErr
		}
	}
	return nil
}

// determineErrorSeverity prefers the severity of an attached AppError, else derives one from the status
func determineErrorSeverity(statusCode int, ginErrors []*gin.Error) string {
	if appErr := firstAppError(ginErrors); appErr != nil {
		return string(appErr.Severity)
	}

	switch {
	case statusCode >= 500:
		return string(contextutils.SeverityError)
	case statusCode >= 400:
		return string(contextutils.SeverityWarn)
	default:
		return string(contextutils.SeverityInfo)
	}
}
