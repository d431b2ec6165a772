//go:build integration
// +build integration

package services

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/AgamW017/vibe/internal/database"
	"github.com/AgamW017/vibe/internal/models"
	"github.com/AgamW017/vibe/internal/observability"
	contextutils "github.com/AgamW017/vibe/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sharedTestDBSetup returns a migrated database with an empty feedback table
func sharedTestDBSetup(t *testing.T) *sql.DB {
	t.Helper()
	databaseURL := os.Getenv("TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	db, err := database.NewManager(observability.NewNopLogger()).InitDB(ctx, databaseURL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.ExecContext(ctx, "TRUNCATE TABLE feedback RESTART IDENTITY")
	require.NoError(t, err)
	return db
}

func TestFeedbackService_CreateAndGet_Integration(t *testing.T) {
	db := sharedTestDBSetup(t)
	service := NewFeedbackService(db, observability.NewNopLogger())
	ctx := context.Background()

	before := time.Now().Add(-time.Minute)
	created, err := service.CreateFeedback(ctx, &models.FeedbackSubmission{
		ContentType:  "question",
		ContentID:    int64Ptr(42),
		FeedbackType: models.FeedbackTypeIssue,
		Description:  "Option B is also correct",
	})
	require.NoError(t, err)
	assert.Positive(t, created.ID)
	assert.True(t, created.CreatedAt.After(before))

	loaded, err := service.GetFeedbackByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, loaded.ID)
	assert.Equal(t, "question", loaded.ContentType)
	assert.Equal(t, int64(42), loaded.ContentID)
	assert.Equal(t, models.FeedbackTypeIssue, loaded.FeedbackType)
	assert.Equal(t, "Option B is also correct", loaded.Description)
	assert.WithinDuration(t, created.CreatedAt, loaded.CreatedAt, time.Millisecond)
}

func TestFeedbackService_IdsAreDistinctAndIncreasing_Integration(t *testing.T) {
	db := sharedTestDBSetup(t)
	service := NewFeedbackService(db, observability.NewNopLogger())
	ctx := context.Background()

	submission := &models.FeedbackSubmission{
		ContentType:  "video",
		ContentID:    int64Ptr(0),
		FeedbackType: models.FeedbackTypeSuggestion,
		Description:  "Add captions",
	}

	first, err := service.CreateFeedback(ctx, submission)
	require.NoError(t, err)
	second, err := service.CreateFeedback(ctx, submission)
	require.NoError(t, err)

	assert.Greater(t, second.ID, first.ID)
	assert.Equal(t, int64(0), second.ContentID)
}

func TestFeedbackService_GetMissing_Integration(t *testing.T) {
	db := sharedTestDBSetup(t)
	service := NewFeedbackService(db, observability.NewNopLogger())

	_, err := service.GetFeedbackByID(context.Background(), 999999)
	assert.True(t, contextutils.IsError(err, contextutils.ErrRecordNotFound))
}

func TestFeedbackService_ListFeedback_Integration(t *testing.T) {
	db := sharedTestDBSetup(t)
	service := NewFeedbackService(db, observability.NewNopLogger())
	ctx := context.Background()

	seed := []models.FeedbackSubmission{
		{ContentType: "question", ContentID: int64Ptr(1), FeedbackType: models.FeedbackTypeIssue, Description: "typo"},
		{ContentType: "question", ContentID: int64Ptr(2), FeedbackType: models.FeedbackTypeSuggestion, Description: "more hints"},
		{ContentType: "video", ContentID: int64Ptr(1), FeedbackType: models.FeedbackTypeIssue, Description: "audio"},
	}
	for i := range seed {
		_, err := service.CreateFeedback(ctx, &seed[i])
		require.NoError(t, err)
	}

	all, err := service.ListFeedback(ctx, models.FeedbackFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), all.Total)
	require.Len(t, all.Items, 3)
	assert.Equal(t, "audio", all.Items[0].Description)

	issues, err := service.ListFeedback(ctx, models.FeedbackFilter{FeedbackType: models.FeedbackTypeIssue})
	require.NoError(t, err)
	assert.Equal(t, int64(2), issues.Total)

	questions, err := service.ListFeedback(ctx, models.FeedbackFilter{ContentType: "question", ContentID: int64Ptr(2)})
	require.NoError(t, err)
	require.Len(t, questions.Items, 1)
	assert.Equal(t, "more hints", questions.Items[0].Description)

	paged, err := service.ListFeedback(ctx, models.FeedbackFilter{Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), paged.Total)
	require.Len(t, paged.Items, 1)
	assert.Equal(t, "typo", paged.Items[0].Description)
}
