package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/AgamW017/vibe/internal/models"
	"github.com/AgamW017/vibe/internal/observability"
	serviceinterfaces "github.com/AgamW017/vibe/internal/serviceinterfaces"
	"github.com/AgamW017/vibe/internal/services"
	contextutils "github.com/AgamW017/vibe/internal/utils"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// GenerationHandler exposes the generation facade over HTTP
type GenerationHandler struct {
	facade serviceinterfaces.GenerationFacade
	logger *observability.Logger
}

// ConcurrencyReporter reports the AI engine client's request counters
type ConcurrencyReporter interface {
	GetConcurrencyStats() services.ConcurrencyStats
}

// NewGenerationHandler creates a GenerationHandler.
func NewGenerationHandler(facade serviceinterfaces.GenerationFacade, logger *observability.Logger) *GenerationHandler {
	if facade == nil {
		panic("generation facade cannot be nil")
	}
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &GenerationHandler{facade: facade, logger: logger}
}

// ProcessVideo handles POST /v1/videos/process.
// The three per-segment arrays must have equal length; the facade itself does not check.
func (h *GenerationHandler) ProcessVideo(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "process_video")
	defer observability.FinishSpan(span, nil)

	var req models.GenerationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleAppError(c, contextutils.NewAppErrorWithCause(
			contextutils.ErrorCodeInvalidInput,
			contextutils.SeverityWarn,
			"Invalid request body",
			"",
			err,
		))
		return
	}

	if !contextutils.IsValidURL(req.URL) {
		HandleValidationError(c, "url", req.URL, "must be an absolute http(s) URL")
		return
	}
	if !req.ParallelLengthsMatch() {
		HandleValidationError(c, "segments",
			fmt.Sprintf("%d/%d/%d", len(req.Timestamps), len(req.QuestionCountsPerSegment), len(req.ModelsPerSegment)),
			"timestamps, segment_wise_q_no and segment_wise_q_model must have the same length")
		return
	}

	span.SetAttributes(
		attribute.String("video.url", req.URL),
		observability.AttributeSegmentCount(req.SegmentCount()),
	)

	result, err := h.facade.ProcessVideo(ctx, req.URL, req.APIKey, req.Timestamps, req.QuestionCountsPerSegment, req.ModelsPerSegment)
	if err != nil {
		logAppError(ctx, h.logger, "Video processing failed", err, map[string]interface{}{
			"video_url":     req.URL,
			"segment_count": req.SegmentCount(),
		})
		HandleAppError(c, err)
		return
	}
	if result == nil {
		result = &models.VideoResult{}
	}
	c.JSON(http.StatusOK, result)
}

// GetPlaylistURLs handles GET /v1/playlists/urls?url=<playlist url>.
func (h *GenerationHandler) GetPlaylistURLs(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_playlist_urls")
	defer observability.FinishSpan(span, nil)

	playlistURL := strings.TrimSpace(c.Query("url"))
	if playlistURL == "" {
		HandleValidationError(c, "url", playlistURL, "query parameter is required")
		return
	}
	if !contextutils.IsValidURL(playlistURL) {
		HandleValidationError(c, "url", playlistURL, "must be an absolute http(s) URL")
		return
	}
	span.SetAttributes(attribute.String("playlist.url", playlistURL))

	urls, err := h.facade.GetURLs(ctx, playlistURL)
	if err != nil {
		logAppError(ctx, h.logger, "Playlist listing failed", err, map[string]interface{}{
			"playlist_url": playlistURL,
		})
		HandleAppError(c, err)
		return
	}
	if urls == nil {
		urls = []string{}
	}
	c.JSON(http.StatusOK, gin.H{
		"playlist_url": playlistURL,
		"urls":         urls,
		"count":        len(urls),
	})
}
