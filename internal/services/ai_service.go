package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/AgamW017/vibe/internal/config"
	"github.com/AgamW017/vibe/internal/observability"
	contextutils "github.com/AgamW017/vibe/internal/utils"
	"github.com/AgamW017/vibe/internal/version"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// APIKeyHeader carries the caller's own model provider key to the AI engine
const APIKeyHeader = "X-User-API-Key"

// maxErrorBodyBytes bounds how much of an engine error body ends up in error details
const maxErrorBodyBytes = 2048

// ConcurrencyStats is a snapshot of the AI engine client's load
type ConcurrencyStats struct {
	ActiveRequests int   `json:"active_requests"`
	MaxConcurrent  int   `json:"max_concurrent"`
	TotalRequests  int64 `json:"total_requests"`
}

// AIService is the HTTP client for the external question-generation engine
type AIService struct {
	httpClient *http.Client
	baseURL    string
	logger     *observability.Logger

	// Concurrency control
	globalSemaphore chan struct{}
	maxConcurrent   int

	// Metrics
	totalRequests  int64
	activeRequests int
	statsMu        sync.RWMutex

	// Shutdown control
	shuttingDown bool
	shutdownMu   sync.RWMutex
}

// NewAIService creates a client for the engine at cfg.Generation.AIEngineURL
func NewAIService(cfg *config.Config, logger *observability.Logger) *AIService {
	if cfg == nil {
		panic("NewAIService: config is nil")
	}
	if logger == nil {
		panic("NewAIService: logger is nil")
	}

	timeout := cfg.Generation.RequestTimeout
	if timeout <= 0 {
		timeout = config.AIRequestTimeout
	}

	httpClient := &http.Client{
		Timeout: timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport,
			otelhttp.WithSpanOptions(trace.WithSpanKind(trace.SpanKindClient)),
		),
	}

	maxConcurrent := cfg.Server.MaxAIConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = config.DefaultMaxAIConcurrent
	}

	return &AIService{
		httpClient:      httpClient,
		baseURL:         strings.TrimRight(cfg.Generation.AIEngineURL, "/"),
		logger:          logger,
		globalSemaphore: make(chan struct{}, maxConcurrent),
		maxConcurrent:   maxConcurrent,
	}
}

// Call posts body as JSON to path on the engine and decodes the response into out.
// Engine failures are classified into AppError kinds; the API key is forwarded but never logged.
func (s *AIService) Call(ctx context.Context, path, apiKey string, body, out interface{}) (err error) {
	ctx, span := observability.TraceAIFunction(ctx, "call_engine",
		attribute.String("ai.path", path),
		attribute.Bool("ai.api_key_present", apiKey != ""),
	)
	defer observability.FinishSpan(span, &err)

	if s.baseURL == "" {
		span.SetAttributes(attribute.String("call.result", "no_url_configured"))
		return contextutils.WrapError(contextutils.ErrAIConfigInvalid, "AI engine URL is not configured")
	}

	return s.withConcurrencyControl(ctx, func() error {
		return s.post(ctx, span, path, apiKey, body, out)
	})
}

func (s *AIService) post(ctx context.Context, span trace.Span, path, apiKey string, body, out interface{}) error {
	endpoint := s.baseURL + "/" + strings.TrimLeft(path, "/")

	jsonData, err := json.Marshal(body)
	if err != nil {
		span.SetAttributes(attribute.String("call.result", "marshal_failed"))
		return contextutils.WrapErrorf(err, "failed to marshal request body")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonData))
	if err != nil {
		span.SetAttributes(attribute.String("call.result", "request_creation_failed"))
		return contextutils.WrapErrorf(err, "failed to create HTTP request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	if apiKey != "" {
		req.Header.Set(APIKeyHeader, apiKey)
	}

	s.logger.Debug(ctx, "Making AI engine request", map[string]interface{}{"url": endpoint})

	startTime := time.Now()
	resp, err := s.httpClient.Do(req)
	duration := time.Since(startTime)
	if err != nil {
		s.logger.Error(ctx, "AI engine request failed", err, map[string]interface{}{
			"url":      endpoint,
			"duration": duration.String(),
		})
		span.SetAttributes(attribute.String("call.result", "http_request_failed"))
		var netErr net.Error
		if errors.Is(ctx.Err(), context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
			return contextutils.WrapAs(contextutils.ErrTimeout, err, fmt.Sprintf("AI engine request timed out after %v", duration))
		}
		return contextutils.WrapAs(contextutils.ErrAIProviderUnavailable, err, fmt.Sprintf("AI engine unreachable after %v", duration))
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			s.logger.Warn(ctx, "Failed to close response body", map[string]interface{}{"error": err.Error()})
		}
	}()

	s.logger.Info(ctx, "AI engine request completed", map[string]interface{}{
		"url":         endpoint,
		"duration":    duration.String(),
		"status_code": resp.StatusCode,
	})
	span.SetAttributes(attribute.Int("status_code", resp.StatusCode), attribute.String("duration", duration.String()))

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		span.SetAttributes(attribute.String("call.result", "body_read_failed"))
		return contextutils.WrapAs(contextutils.ErrAIProviderUnavailable, err, "failed to read AI engine response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		span.SetAttributes(attribute.String("call.result", "http_error"))
		return classifyEngineStatus(resp.StatusCode, respBody)
	}

	if out == nil {
		span.SetAttributes(attribute.String("call.result", "success"))
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		span.SetAttributes(attribute.String("call.result", "json_unmarshal_failed"))
		return contextutils.WrapAs(contextutils.ErrAIResponseInvalid, err, "failed to parse AI engine response")
	}

	span.SetAttributes(attribute.String("call.result", "success"), attribute.Int("content_length", len(respBody)))
	return nil
}

// classifyEngineStatus maps a non-2xx engine response onto an error kind
func classifyEngineStatus(status int, body []byte) error {
	detail := engineErrorDetail(body)
	switch status {
	case http.StatusTooManyRequests, http.StatusPaymentRequired:
		return contextutils.WrapErrorf(contextutils.ErrQuotaExceeded, "AI engine returned %d: %s", status, detail)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return contextutils.WrapErrorf(contextutils.ErrInvalidInput, "AI engine rejected request (%d): %s", status, detail)
	default:
		return contextutils.WrapErrorf(contextutils.ErrAIRequestFailed, "AI engine returned %d: %s", status, detail)
	}
}

// engineErrorDetail pulls a readable message out of an error body. FastAPI reports
// {"detail": "..."} or {"detail": [{"msg": ...}]}; anything else is returned truncated.
func engineErrorDetail(body []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && len(payload.Detail) > 0 {
		var text string
		if json.Unmarshal(payload.Detail, &text) == nil {
			return text
		}
		var items []struct {
			Msg string `json:"msg"`
		}
		if json.Unmarshal(payload.Detail, &items) == nil {
			msgs := make([]string, 0, len(items))
			for _, item := range items {
				if item.Msg != "" {
					msgs = append(msgs, item.Msg)
				}
			}
			if len(msgs) > 0 {
				return strings.Join(msgs, "; ")
			}
		}
		return string(payload.Detail)
	}

	text := strings.TrimSpace(string(body))
	if len(text) > maxErrorBodyBytes {
		text = text[:maxErrorBodyBytes] + "..."
	}
	if text == "" {
		return "empty response body"
	}
	return text
}

// Shutdown rejects new calls and waits for in-flight ones to drain
func (s *AIService) Shutdown(ctx context.Context) error {
	s.shutdownMu.Lock()
	s.shuttingDown = true
	s.shutdownMu.Unlock()

	timeout := config.AIShutdownTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}

	ticker := time.NewTicker(config.AIShutdownPollInterval)
	defer ticker.Stop()

	for i := 0; i < int(timeout/config.AIShutdownPollInterval); i++ {
		s.statsMu.RLock()
		active := s.activeRequests
		s.statsMu.RUnlock()

		if active == 0 {
			break
		}

		select {
		case <-ticker.C:
			continue
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	s.httpClient.CloseIdleConnections()
	s.logger.Info(ctx, "AI Service shutdown completed")
	return nil
}

func (s *AIService) isShutdown() bool {
	s.shutdownMu.RLock()
	defer s.shutdownMu.RUnlock()
	return s.shuttingDown
}

// GetConcurrencyStats returns current concurrency metrics
func (s *AIService) GetConcurrencyStats() ConcurrencyStats {
	s.statsMu.RLock()
	defer s.statsMu.RUnlock()
	return ConcurrencyStats{
		ActiveRequests: s.activeRequests,
		MaxConcurrent:  s.maxConcurrent,
		TotalRequests:  s.totalRequests,
	}
}

// acquireGlobalSlot takes a slot without waiting; a full client fails fast
func (s *AIService) acquireGlobalSlot(ctx context.Context) error {
	select {
	case s.globalSemaphore <- struct{}{}:
		return nil
	case <-ctx.Done():
		return contextutils.WrapErrorf(contextutils.ErrTimeout, "request cancelled while waiting for AI slot: %w", ctx.Err())
	default:
		return contextutils.WrapErrorf(contextutils.ErrServiceUnavailable, "AI service at capacity (%d concurrent requests), please try again", s.maxConcurrent)
	}
}

func (s *AIService) releaseGlobalSlot(ctx context.Context) {
	select {
	case <-s.globalSemaphore:
		s.statsMu.Lock()
		if s.activeRequests > 0 {
			s.activeRequests--
		}
		s.statsMu.Unlock()
	default:
		s.logger.Warn(ctx, "Attempted to release AI slot but none were acquired")
	}
}

func (s *AIService) withConcurrencyControl(ctx context.Context, operation func() error) error {
	if s.isShutdown() {
		return contextutils.WrapError(contextutils.ErrServiceUnavailable, "AI service is shutting down")
	}

	s.statsMu.Lock()
	s.totalRequests++
	s.statsMu.Unlock()

	if err := s.acquireGlobalSlot(ctx); err != nil {
		return err
	}

	s.statsMu.Lock()
	s.activeRequests++
	s.statsMu.Unlock()
	defer s.releaseGlobalSlot(ctx)

	return operation()
}
