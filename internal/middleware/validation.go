package middleware

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/AgamW017/vibe/internal/observability"
	contextutils "github.com/AgamW017/vibe/internal/utils"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// MaxRequestBodyBytes bounds request bodies read for validation
const MaxRequestBodyBytes = 1 << 20

// RequestValidationMiddleware checks the JSON request body against the named schema.
// The body is restored afterwards so handlers can bind it as usual.
func RequestValidationMiddleware(loader *SchemaLoader, schemaName string, logger *observability.Logger) gin.HandlerFunc {
	if !loader.Has(schemaName) {
		panic("RequestValidationMiddleware: unknown schema " + schemaName)
	}

	return func(c *gin.Context) {
		ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "request_validation",
			attribute.String("schema.name", schemaName),
		)
		defer span.End()

		body, err := readBody(c)
		if err != nil {
			span.SetAttributes(attribute.String("validation.result", "body_unreadable"))
			HandleAppError(c, err)
			c.Abort()
			return
		}

		if err := loader.ValidateJSON(body, schemaName); err != nil {
			span.SetAttributes(attribute.String("validation.result", "invalid"))
			logger.Warn(ctx, "Request validation failed", map[string]interface{}{
				"method": c.Request.Method,
				"path":   c.FullPath(),
				"schema": schemaName,
				"error":  err.Error(),
			})
			HandleAppError(c, err)
			c.Abort()
			return
		}

		span.SetAttributes(attribute.String("validation.result", "valid"))
		c.Next()
	}
}

func readBody(c *gin.Context) ([]byte, error) {
	if c.Request.Body == nil {
		return nil, nil
	}
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, MaxRequestBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "request body exceeds %d bytes", MaxRequestBodyBytes)
		}
		return nil, contextutils.WrapAs(contextutils.ErrInvalidInput, err, "failed to read request body")
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(body))
	return body, nil
}
