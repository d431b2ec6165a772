package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	contextutils "github.com/AgamW017/vibe/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func setupRecordingTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() {
		_ = tp.Shutdown(t.Context())
		otel.SetTracerProvider(previous)
	})
	return recorder
}

func newTestRouter(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(mw...)
	return router
}

func TestGinMiddleware_CreatesServerSpan(t *testing.T) {
	recorder := setupRecordingTracer(t)
	router := newTestRouter(GinMiddleware("test-service"))
	router.GET("/v1/feedback/:id", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/feedback/1", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /v1/feedback/:id", spans[0].Name())
}

func TestGinMiddleware_ContinuesIncomingTrace(t *testing.T) {
	recorder := setupRecordingTracer(t)
	router := newTestRouter(GinMiddleware("test-service"))
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	router.ServeHTTP(w, req)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", spans[0].SpanContext().TraceID().String())
}

func TestGinMiddlewareWithErrorHandling_SuccessLeavesStatusUnset(t *testing.T) {
	recorder := setupRecordingTracer(t)
	router := newTestRouter(GinMiddlewareWithErrorHandling("test-service")...)
	router.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
}

func TestGinMiddlewareWithErrorHandling_RecordsAppError(t *testing.T) {
	recorder := setupRecordingTracer(t)
	router := newTestRouter(GinMiddlewareWithErrorHandling("test-service")...)
	router.POST("/v1/feedback", func(c *gin.Context) {
		_ = c.Error(contextutils.WrapError(contextutils.ErrValidationFailed, "feedback_type must be one of Suggestion, Issue"))
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad"})
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/feedback", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	spans := recorder.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, codes.Error, span.Status().Code)
	assert.Contains(t, span.Status().Description, "feedback_type must be one of Suggestion, Issue")

	attrs := map[string]interface{}{}
	for _, kv := range span.Attributes() {
		attrs[string(kv.Key)] = kv.Value.AsInterface()
	}
	assert.Equal(t, "VALIDATION_FAILED", attrs["error.code"])
	assert.Equal(t, "warn", attrs["error.severity"])
	assert.Equal(t, false, attrs["error.server_error"])
}

func TestGinMiddlewareWithErrorHandling_ServerErrorWithoutAppError(t *testing.T) {
	recorder := setupRecordingTracer(t)
	router := newTestRouter(GinMiddlewareWithErrorHandling("test-service")...)
	router.GET("/boom", func(c *gin.Context) {
		_ = c.Error(errors.New("engine exploded"))
		c.Status(http.StatusInternalServerError)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Contains(t, spans[0].Status().Description, "engine exploded")
}

func TestDetermineErrorSeverity(t *testing.T) {
	assert.Equal(t, "error", determineErrorSeverity(http.StatusBadGateway, nil))
	assert.Equal(t, "warn", determineErrorSeverity(http.StatusNotFound, nil))
	assert.Equal(t, "info", determineErrorSeverity(http.StatusOK, nil))

	ginErrors := []*gin.Error{{Err: contextutils.ErrRecordNotFound}}
	assert.Equal(t, "info", determineErrorSeverity(http.StatusNotFound, ginErrors))
}
