package handlers

import (
	"context"

	"github.com/AgamW017/vibe/internal/config"
	"github.com/AgamW017/vibe/internal/models"
	"github.com/AgamW017/vibe/internal/services"

	"github.com/stretchr/testify/mock"
)

type mockFeedbackStore struct {
	mock.Mock
}

func (m *mockFeedbackStore) CreateFeedback(ctx context.Context, submission *models.FeedbackSubmission) (*models.FeedbackRecord, error) {
	args := m.Called(ctx, submission)
	record, _ := args.Get(0).(*models.FeedbackRecord)
	return record, args.Error(1)
}

func (m *mockFeedbackStore) GetFeedbackByID(ctx context.Context, id int64) (*models.FeedbackRecord, error) {
	args := m.Called(ctx, id)
	record, _ := args.Get(0).(*models.FeedbackRecord)
	return record, args.Error(1)
}

func (m *mockFeedbackStore) ListFeedback(ctx context.Context, filter models.FeedbackFilter) (*models.FeedbackPage, error) {
	args := m.Called(ctx, filter)
	page, _ := args.Get(0).(*models.FeedbackPage)
	return page, args.Error(1)
}

type mockGenerationFacade struct {
	mock.Mock
}

func (m *mockGenerationFacade) ProcessVideo(ctx context.Context, url, apiKey string, timestamps, questionCounts []int, segmentModels []string) (*models.VideoResult, error) {
	args := m.Called(ctx, url, apiKey, timestamps, questionCounts, segmentModels)
	result, _ := args.Get(0).(*models.VideoResult)
	return result, args.Error(1)
}

func (m *mockGenerationFacade) GetURLs(ctx context.Context, playlistURL string) ([]string, error) {
	args := m.Called(ctx, playlistURL)
	urls, _ := args.Get(0).([]string)
	return urls, args.Error(1)
}

func newTestConfig() *config.Config {
	return &config.Config{
		IsTest: true,
		Server: config.ServerConfig{FeedbackPageSizeMax: 50},
		OpenTelemetry: config.OpenTelemetryConfig{
			ServiceName: "vibe-test",
		},
	}
}

type stubConcurrencyReporter struct {
	stats services.ConcurrencyStats
}

func (s stubConcurrencyReporter) GetConcurrencyStats() services.ConcurrencyStats {
	return s.stats
}
