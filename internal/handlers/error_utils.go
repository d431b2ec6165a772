package handlers

import (
	"context"
	"fmt"

	"github.com/AgamW017/vibe/internal/middleware"
	"github.com/AgamW017/vibe/internal/observability"
	contextutils "github.com/AgamW017/vibe/internal/utils"

	"github.com/gin-gonic/gin"
)

// HandleAppError writes err as an AppError JSON body with the status mapped from its code
func HandleAppError(c *gin.Context, err error) {
	middleware.HandleAppError(c, err)
}

// logAppError logs at error level for error and fatal severities and at warn level otherwise
func logAppError(ctx context.Context, logger *observability.Logger, msg string, err error, fields map[string]interface{}) {
	switch contextutils.GetErrorSeverity(err) {
	case contextutils.SeverityError, contextutils.SeverityFatal:
		logger.Error(ctx, msg, err, fields)
	default:
		logger.Warn(ctx, msg, fields, map[string]interface{}{
			"error":      err.Error(),
			"error_code": string(contextutils.GetErrorCode(err)),
		})
	}
}

// StandardizeHTTPError creates consistent HTTP error responses with structured error information
func StandardizeHTTPError(c *gin.Context, statusCode int, message, details string) {
	middleware.StandardizeHTTPError(c, statusCode, message, details)
}

// HandleValidationError reports a single invalid request parameter
func HandleValidationError(c *gin.Context, field string, value interface{}, reason string) {
	HandleAppError(c, contextutils.NewAppError(
		contextutils.ErrorCodeInvalidInput,
		contextutils.SeverityWarn,
		fmt.Sprintf("Invalid %s", field),
		fmt.Sprintf("Value '%v' is invalid: %s", value, reason),
	))
}
