package services

import (
	"context"

	"github.com/AgamW017/vibe/internal/models"
	"github.com/AgamW017/vibe/internal/observability"
	"github.com/AgamW017/vibe/internal/serviceinterfaces"

	"go.opentelemetry.io/otel/attribute"
)

// GenerationService forwards video and playlist requests to its processors.
// It adds tracing and logging only: arguments, results and errors pass through untouched.
type GenerationService struct {
	video       serviceinterfaces.VideoProcessor
	playlist    serviceinterfaces.PlaylistProcessor
	logger      *observability.Logger
	instruments *observability.Instruments
}

// NewGenerationService wires the facade to its collaborators.
func NewGenerationService(video serviceinterfaces.VideoProcessor, playlist serviceinterfaces.PlaylistProcessor, logger *observability.Logger, opts ...ServiceOption) *GenerationService {
	if video == nil {
		panic("NewGenerationService: video processor is nil")
	}
	if playlist == nil {
		panic("NewGenerationService: playlist processor is nil")
	}
	if logger == nil {
		panic("NewGenerationService: logger is nil")
	}
	o := applyServiceOptions(opts)
	return &GenerationService{video: video, playlist: playlist, logger: logger, instruments: o.instruments}
}

// ProcessVideo hands the request to the video processor unchanged.
func (s *GenerationService) ProcessVideo(ctx context.Context, url, apiKey string, timestamps, questionCounts []int, segmentModels []string) (result0 *models.VideoResult, err error) {
	ctx, span := observability.TraceGenerationFunction(ctx, "process_video",
		attribute.String("video.url", url),
		observability.AttributeSegmentCount(len(timestamps)),
	)
	defer observability.FinishSpan(span, &err)

	s.logger.Debug(ctx, "Forwarding video to processor", map[string]interface{}{
		"url":      url,
		"segments": len(timestamps),
	})

	result, err := s.video.ProcessVideo(ctx, url, apiKey, timestamps, questionCounts, segmentModels)
	s.instruments.RecordGenerationRequest(ctx, "process_video", err != nil)
	return result, err
}

// GetURLs hands the playlist URL to the playlist processor unchanged.
func (s *GenerationService) GetURLs(ctx context.Context, playlistURL string) (result0 []string, err error) {
	ctx, span := observability.TraceGenerationFunction(ctx, "get_urls", attribute.String("playlist.url", playlistURL))
	defer observability.FinishSpan(span, &err)

	s.logger.Debug(ctx, "Forwarding playlist to processor", map[string]interface{}{"url": playlistURL})

	urls, err := s.playlist.GetURLsFromPlaylist(ctx, playlistURL)
	s.instruments.RecordGenerationRequest(ctx, "get_urls", err != nil)
	if err == nil {
		span.SetAttributes(attribute.Int("playlist.urls", len(urls)))
	}
	return urls, err
}

var _ serviceinterfaces.GenerationFacade = (*GenerationService)(nil)
