package services

import (
	"context"

	"github.com/AgamW017/vibe/internal/models"
	"github.com/AgamW017/vibe/internal/observability"
	"github.com/AgamW017/vibe/internal/serviceinterfaces"

	"go.opentelemetry.io/otel/attribute"
)

// ProcessVideoPath is the AI engine endpoint that segments a video and generates questions
const ProcessVideoPath = "/process-video"

// VideoProcessor delegates video processing to the AI engine
type VideoProcessor struct {
	ai *AIService
}

// NewVideoProcessor creates a VideoProcessor backed by the given engine client
func NewVideoProcessor(ai *AIService) *VideoProcessor {
	if ai == nil {
		panic("NewVideoProcessor: ai service is nil")
	}
	return &VideoProcessor{ai: ai}
}

// ProcessVideo sends the request to the engine and returns its result as decoded.
func (p *VideoProcessor) ProcessVideo(ctx context.Context, url, apiKey string, timestamps, questionCounts []int, segmentModels []string) (result0 *models.VideoResult, err error) {
	ctx, span := observability.TraceAIFunction(ctx, "process_video",
		attribute.String("video.url", url),
		observability.AttributeSegmentCount(len(timestamps)),
	)
	defer observability.FinishSpan(span, &err)

	req := &models.GenerationRequest{
		URL:                      url,
		APIKey:                   apiKey,
		Timestamps:               timestamps,
		QuestionCountsPerSegment: questionCounts,
		ModelsPerSegment:         segmentModels,
	}

	var result models.VideoResult
	if err := p.ai.Call(ctx, ProcessVideoPath, apiKey, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

var _ serviceinterfaces.VideoProcessor = (*VideoProcessor)(nil)
