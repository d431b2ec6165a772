// Package di provides dependency injection container for managing service lifecycle and dependencies.
package di

import (
	"context"
	"database/sql"
	"sync"

	"github.com/AgamW017/vibe/internal/config"
	"github.com/AgamW017/vibe/internal/database"
	"github.com/AgamW017/vibe/internal/observability"
	serviceinterfaces "github.com/AgamW017/vibe/internal/serviceinterfaces"
	"github.com/AgamW017/vibe/internal/services"
	contextutils "github.com/AgamW017/vibe/internal/utils"

	"go.uber.org/multierr"
)

// Service names used for lookup
const (
	ServiceFeedback   = "feedback"
	ServiceAI         = "ai"
	ServiceVideo      = "video"
	ServicePlaylist   = "playlist"
	ServiceGeneration = "generation"
)

// ServiceContainerInterface defines the interface for service containers
type ServiceContainerInterface interface {
	GetService(name string) (interface{}, error)
	GetFeedbackStore() (serviceinterfaces.FeedbackStore, error)
	GetGenerationFacade() (serviceinterfaces.GenerationFacade, error)
	GetAIService() (*services.AIService, error)
	GetDatabase() *sql.DB
	GetConfig() *config.Config
	GetLogger() *observability.Logger
	Initialize(ctx context.Context) error
	InitializeGeneration(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// ServiceContainer manages all service dependencies and lifecycle
type ServiceContainer struct {
	cfg           *config.Config
	logger        *observability.Logger
	dbManager     *database.Manager
	db            *sql.DB
	instruments   *observability.Instruments
	services      map[string]interface{}
	mu            sync.RWMutex
	shutdownFuncs []func(context.Context) error
}

// NewServiceContainer creates a new dependency injection container
func NewServiceContainer(cfg *config.Config, logger *observability.Logger) *ServiceContainer {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &ServiceContainer{
		cfg:      cfg,
		logger:   logger,
		services: make(map[string]interface{}),
	}
}

// Initialize wires the generation stack and the database-backed feedback store
func (sc *ServiceContainer) Initialize(ctx context.Context) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.db != nil {
		return nil
	}
	if err := sc.initializeGeneration(ctx); err != nil {
		_ = sc.cleanup(ctx)
		return err
	}

	sc.dbManager = database.NewManager(sc.logger)
	db, err := sc.dbManager.InitDBWithConfig(ctx, sc.cfg.Database)
	if err != nil {
		_ = sc.cleanup(ctx)
		return contextutils.WrapError(err, "failed to initialize database")
	}
	sc.db = db
	sc.shutdownFuncs = append(sc.shutdownFuncs, func(_ context.Context) error {
		return db.Close()
	})

	sc.services[ServiceFeedback] = services.NewFeedbackService(db, sc.logger, services.WithInstruments(sc.instruments))

	sc.logger.Info(ctx, "Service container initialized", map[string]interface{}{
		"services": len(sc.services),
	})
	return nil
}

// InitializeGeneration wires only the generation stack, for callers that never touch the database
func (sc *ServiceContainer) InitializeGeneration(ctx context.Context) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if err := sc.initializeGeneration(ctx); err != nil {
		_ = sc.cleanup(ctx)
		return err
	}
	return nil
}

func (sc *ServiceContainer) initializeGeneration(ctx context.Context) error {
	if _, done := sc.services[ServiceGeneration]; done {
		return nil
	}

	instruments, err := observability.NewInstruments()
	if err != nil {
		return contextutils.WrapError(err, "failed to create metric instruments")
	}
	sc.instruments = instruments

	aiService := services.NewAIService(sc.cfg, sc.logger)
	sc.services[ServiceAI] = aiService
	sc.shutdownFuncs = append(sc.shutdownFuncs, func(ctx context.Context) error {
		shutdownCtx, cancel := context.WithTimeout(ctx, config.AIShutdownTimeout)
		defer cancel()
		return aiService.Shutdown(shutdownCtx)
	})

	videoProcessor := services.NewVideoProcessor(aiService)
	sc.services[ServiceVideo] = videoProcessor

	playlistProcessor := services.NewPlaylistProcessor(sc.cfg, sc.logger)
	sc.services[ServicePlaylist] = playlistProcessor
	sc.shutdownFuncs = append(sc.shutdownFuncs, func(_ context.Context) error {
		playlistProcessor.Stop()
		return nil
	})

	sc.services[ServiceGeneration] = services.NewGenerationService(videoProcessor, playlistProcessor, sc.logger,
		services.WithInstruments(instruments))

	sc.logger.Info(ctx, "Generation services initialized", map[string]interface{}{
		"ai_engine_url":     sc.cfg.Generation.AIEngineURL,
		"playlist_feed_url": sc.cfg.Generation.PlaylistFeedURL,
		"max_ai_concurrent": sc.cfg.Server.MaxAIConcurrent,
	})
	return nil
}

// GetService retrieves a service by name with type assertion
func (sc *ServiceContainer) GetService(name string) (interface{}, error) {
	sc.mu.RLock()
	defer sc.mu.RUnlock()

	service, exists := sc.services[name]
	if !exists {
		return nil, contextutils.ErrorWithContextf("service %s not found", name)
	}
	return service, nil
}

// GetServiceAs performs type-safe service retrieval
func GetServiceAs[T any](sc *ServiceContainer, name string) (T, error) {
	var zero T
	service, err := sc.GetService(name)
	if err != nil {
		return zero, err
	}

	typed, ok := service.(T)
	if !ok {
		return zero, contextutils.ErrorWithContextf("service %s is not of expected type %T", name, zero)
	}
	return typed, nil
}

// GetFeedbackStore returns the feedback store
func (sc *ServiceContainer) GetFeedbackStore() (serviceinterfaces.FeedbackStore, error) {
	return GetServiceAs[serviceinterfaces.FeedbackStore](sc, ServiceFeedback)
}

// GetGenerationFacade returns the generation facade
func (sc *ServiceContainer) GetGenerationFacade() (serviceinterfaces.GenerationFacade, error) {
	return GetServiceAs[serviceinterfaces.GenerationFacade](sc, ServiceGeneration)
}

// GetAIService returns the AI engine client
func (sc *ServiceContainer) GetAIService() (*services.AIService, error) {
	return GetServiceAs[*services.AIService](sc, ServiceAI)
}

// GetDatabase returns the database instance
func (sc *ServiceContainer) GetDatabase() *sql.DB {
	return sc.db
}

// GetDatabaseManager returns the manager that opened the database, or nil before Initialize
func (sc *ServiceContainer) GetDatabaseManager() *database.Manager {
	return sc.dbManager
}

// GetConfig returns the configuration
func (sc *ServiceContainer) GetConfig() *config.Config {
	return sc.cfg
}

// GetLogger returns the logger
func (sc *ServiceContainer) GetLogger() *observability.Logger {
	return sc.logger
}

// Shutdown gracefully shuts down all services
func (sc *ServiceContainer) Shutdown(ctx context.Context) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	return sc.cleanup(ctx)
}

// cleanup runs shutdown funcs in reverse registration order and collects every failure
func (sc *ServiceContainer) cleanup(ctx context.Context) error {
	var errs error
	for i := len(sc.shutdownFuncs) - 1; i >= 0; i-- {
		if err := sc.shutdownFuncs[i](ctx); err != nil {
			sc.logger.Error(ctx, "Shutdown step failed", err)
			errs = multierr.Append(errs, err)
		}
	}
	sc.shutdownFuncs = nil
	sc.services = make(map[string]interface{})
	sc.db = nil

	if errs != nil {
		return contextutils.WrapError(errs, "shutdown errors")
	}
	return nil
}
