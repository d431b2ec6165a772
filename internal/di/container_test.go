package di

import (
	"context"
	"testing"

	"github.com/AgamW017/vibe/internal/config"
	"github.com/AgamW017/vibe/internal/observability"
	"github.com/AgamW017/vibe/internal/services"
	contextutils "github.com/AgamW017/vibe/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContainer() *ServiceContainer {
	cfg := &config.Config{IsTest: true}
	cfg.Generation.AIEngineURL = "http://127.0.0.1:1"
	cfg.Server.MaxAIConcurrent = 3
	return NewServiceContainer(cfg, observability.NewNopLogger())
}

func TestNewServiceContainer(t *testing.T) {
	container := newTestContainer()
	assert.NotNil(t, container.GetConfig())
	assert.NotNil(t, container.GetLogger())
	assert.Nil(t, container.GetDatabase())

	assert.NotNil(t, NewServiceContainer(&config.Config{}, nil).GetLogger())
}

func TestInitializeGeneration(t *testing.T) {
	container := newTestContainer()
	ctx := context.Background()
	require.NoError(t, container.InitializeGeneration(ctx))
	t.Cleanup(func() { _ = container.Shutdown(ctx) })

	facade, err := container.GetGenerationFacade()
	require.NoError(t, err)
	assert.IsType(t, &services.GenerationService{}, facade)

	aiService, err := container.GetAIService()
	require.NoError(t, err)
	assert.Equal(t, 3, aiService.GetConcurrencyStats().MaxConcurrent)

	_, err = container.GetFeedbackStore()
	assert.Error(t, err)

	// a second call keeps the existing services
	require.NoError(t, container.InitializeGeneration(ctx))
	again, err := container.GetGenerationFacade()
	require.NoError(t, err)
	assert.Same(t, facade, again)
}

func TestGetServiceAs_WrongType(t *testing.T) {
	container := newTestContainer()
	ctx := context.Background()
	require.NoError(t, container.InitializeGeneration(ctx))
	t.Cleanup(func() { _ = container.Shutdown(ctx) })

	_, err := GetServiceAs[string](container, ServiceGeneration)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "service generation is not of expected type")

	_, err = container.GetService("nonexistent")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "service nonexistent not found")
}

func TestInitialize_MissingDatabaseURLCleansUp(t *testing.T) {
	container := newTestContainer()
	err := container.Initialize(context.Background())
	require.Error(t, err)
	assert.True(t, contextutils.IsError(err, contextutils.ErrMissingRequired))

	_, err = container.GetGenerationFacade()
	assert.Error(t, err)
}

func TestShutdown_StopsAIService(t *testing.T) {
	container := newTestContainer()
	ctx := context.Background()
	require.NoError(t, container.InitializeGeneration(ctx))

	aiService, err := container.GetAIService()
	require.NoError(t, err)

	require.NoError(t, container.Shutdown(ctx))
	err = aiService.Call(ctx, services.ProcessVideoPath, "", map[string]string{}, nil)
	assert.True(t, contextutils.IsError(err, contextutils.ErrServiceUnavailable))

	_, err = container.GetAIService()
	assert.Error(t, err)
	// idempotent
	assert.NoError(t, container.Shutdown(ctx))
}
