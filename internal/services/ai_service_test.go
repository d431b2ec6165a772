package services

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/AgamW017/vibe/internal/config"
	"github.com/AgamW017/vibe/internal/observability"
	contextutils "github.com/AgamW017/vibe/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAIService(t *testing.T, engineURL string, maxConcurrent int) *AIService {
	t.Helper()
	cfg := &config.Config{
		Server:     config.ServerConfig{MaxAIConcurrent: maxConcurrent},
		Generation: config.GenerationConfig{AIEngineURL: engineURL, RequestTimeout: 5 * time.Second},
	}
	return NewAIService(cfg, observability.NewNopLogger())
}

func TestAIService_CallForwardsRequest(t *testing.T) {
	var gotPath, gotKey, gotContentType string
	var gotBody map[string]interface{}
	engine := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get(APIKeyHeader)
		gotContentType = r.Header.Get("Content-Type")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer engine.Close()

	service := newTestAIService(t, engine.URL+"/", 2)

	var out struct {
		OK bool `json:"ok"`
	}
	err := service.Call(context.Background(), "/echo", "sk-user", map[string]string{"hello": "world"}, &out)
	require.NoError(t, err)

	assert.True(t, out.OK)
	assert.Equal(t, "/echo", gotPath)
	assert.Equal(t, "sk-user", gotKey)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, map[string]interface{}{"hello": "world"}, gotBody)

	stats := service.GetConcurrencyStats()
	assert.Equal(t, int64(1), stats.TotalRequests)
	assert.Equal(t, 0, stats.ActiveRequests)
	assert.Equal(t, 2, stats.MaxConcurrent)
}

func TestAIService_CallOmitsEmptyAPIKey(t *testing.T) {
	var present bool
	engine := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, present = r.Header[http.CanonicalHeaderKey(APIKeyHeader)]
		_, _ = w.Write([]byte(`{}`))
	}))
	defer engine.Close()

	service := newTestAIService(t, engine.URL, 1)
	require.NoError(t, service.Call(context.Background(), "x", "", struct{}{}, nil))
	assert.False(t, present)
}

func TestAIService_CallClassifiesEngineStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   *contextutils.AppError
		detail string
	}{
		{"rate limited", http.StatusTooManyRequests, `{"detail":"slow down"}`, contextutils.ErrQuotaExceeded, "slow down"},
		{"payment required", http.StatusPaymentRequired, `{"detail":"credits exhausted"}`, contextutils.ErrQuotaExceeded, "credits exhausted"},
		{"bad request", http.StatusBadRequest, `{"detail":"invalid url"}`, contextutils.ErrInvalidInput, "invalid url"},
		{"unprocessable", http.StatusUnprocessableEntity, `{"detail":[{"msg":"field required"},{"msg":"not an int"}]}`, contextutils.ErrInvalidInput, "field required; not an int"},
		{"server error", http.StatusInternalServerError, `boom`, contextutils.ErrAIRequestFailed, "boom"},
		{"unavailable", http.StatusServiceUnavailable, ``, contextutils.ErrAIRequestFailed, "empty response body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer engine.Close()

			service := newTestAIService(t, engine.URL, 1)
			err := service.Call(context.Background(), "/process-video", "k", struct{}{}, &struct{}{})
			require.Error(t, err)
			assert.True(t, contextutils.IsError(err, tt.want), err.Error())
			assert.Contains(t, err.Error(), tt.detail)
		})
	}
}

func TestAIService_CallUndecodableResponse(t *testing.T) {
	engine := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer engine.Close()

	service := newTestAIService(t, engine.URL, 1)
	var out map[string]interface{}
	err := service.Call(context.Background(), "/x", "", struct{}{}, &out)
	require.Error(t, err)
	assert.True(t, contextutils.IsError(err, contextutils.ErrAIResponseInvalid))
}

func TestAIService_CallUnreachableEngine(t *testing.T) {
	engine := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := engine.URL
	engine.Close()

	service := newTestAIService(t, url, 1)
	err := service.Call(context.Background(), "/x", "", struct{}{}, nil)
	require.Error(t, err)
	assert.True(t, contextutils.IsError(err, contextutils.ErrAIProviderUnavailable), err.Error())
	assert.True(t, contextutils.IsRetryable(err))
}

func TestAIService_CallClientTimeoutIsTimeout(t *testing.T) {
	engine := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer engine.Close()

	cfg := &config.Config{
		Server:     config.ServerConfig{MaxAIConcurrent: 1},
		Generation: config.GenerationConfig{AIEngineURL: engine.URL, RequestTimeout: 50 * time.Millisecond},
	}
	service := NewAIService(cfg, observability.NewNopLogger())

	err := service.Call(context.Background(), "/process-video", "", struct{}{}, nil)
	require.Error(t, err)
	assert.True(t, contextutils.IsError(err, contextutils.ErrTimeout), err.Error())
	assert.Equal(t, http.StatusGatewayTimeout, contextutils.HTTPStatus(contextutils.GetErrorCode(err)))
}

func TestAIService_CallWithoutEngineURL(t *testing.T) {
	service := newTestAIService(t, "", 1)
	err := service.Call(context.Background(), "/x", "", struct{}{}, nil)
	assert.True(t, contextutils.IsError(err, contextutils.ErrAIConfigInvalid))
}

func TestAIService_ConcurrencyControl(t *testing.T) {
	engine := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer engine.Close()

	service := newTestAIService(t, engine.URL, 1)
	ctx := context.Background()

	require.NoError(t, service.acquireGlobalSlot(ctx))
	err := service.Call(ctx, "/x", "", struct{}{}, nil)
	require.Error(t, err)
	assert.True(t, contextutils.IsError(err, contextutils.ErrServiceUnavailable))

	service.releaseGlobalSlot(ctx)
	assert.NoError(t, service.Call(ctx, "/x", "", struct{}{}, nil))
}

func TestAIService_ShutdownWaitsForInFlightAndRejectsNew(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	engine := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		close(entered)
		<-release
		_, _ = w.Write([]byte(`{}`))
	}))
	defer engine.Close()

	service := newTestAIService(t, engine.URL, 2)

	callErr := make(chan error, 1)
	go func() {
		callErr <- service.Call(context.Background(), "/slow", "", struct{}{}, nil)
	}()
	<-entered
	assert.Equal(t, 1, service.GetConcurrencyStats().ActiveRequests)

	shutdownDone := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		shutdownDone <- service.Shutdown(ctx)
	}()

	require.Eventually(t, service.isShutdown, time.Second, 10*time.Millisecond)
	err := service.Call(context.Background(), "/x", "", struct{}{}, nil)
	assert.True(t, contextutils.IsError(err, contextutils.ErrServiceUnavailable))

	close(release)
	require.NoError(t, <-callErr)
	require.NoError(t, <-shutdownDone)
	assert.Equal(t, 0, service.GetConcurrencyStats().ActiveRequests)
}

func TestEngineErrorDetail_TruncatesLongBodies(t *testing.T) {
	long := make([]byte, maxErrorBodyBytes+100)
	for i := range long {
		long[i] = 'x'
	}
	detail := engineErrorDetail(long)
	assert.Len(t, detail, maxErrorBodyBytes+3)
}
