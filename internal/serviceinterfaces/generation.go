package serviceinterfaces

import (
	"context"

	"github.com/AgamW017/vibe/internal/models"
)

// VideoProcessor turns a video and its per-segment settings into generated questions.
// timestamps, questionCounts and segmentModels are parallel sequences indexed by segment.
type VideoProcessor interface {
	ProcessVideo(ctx context.Context, url, apiKey string, timestamps, questionCounts []int, segmentModels []string) (*models.VideoResult, error)
}

// PlaylistProcessor enumerates the video URLs of a playlist in playlist order.
type PlaylistProcessor interface {
	GetURLsFromPlaylist(ctx context.Context, playlistURL string) ([]string, error)
}

// GenerationFacade is the entry point handlers use for video and playlist requests.
type GenerationFacade interface {
	ProcessVideo(ctx context.Context, url, apiKey string, timestamps, questionCounts []int, segmentModels []string) (*models.VideoResult, error)
	GetURLs(ctx context.Context, playlistURL string) ([]string, error)
}
