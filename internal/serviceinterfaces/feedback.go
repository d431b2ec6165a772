// Package serviceinterfaces defines service interfaces for dependency injection and testing.
package serviceinterfaces

import (
	"context"

	"github.com/AgamW017/vibe/internal/models"
)

// FeedbackStore persists immutable feedback records. There is deliberately no update or delete.
type FeedbackStore interface {
	CreateFeedback(ctx context.Context, submission *models.FeedbackSubmission) (*models.FeedbackRecord, error)
	GetFeedbackByID(ctx context.Context, id int64) (*models.FeedbackRecord, error)
	ListFeedback(ctx context.Context, filter models.FeedbackFilter) (*models.FeedbackPage, error)
}
