package services

import (
	"context"
	"database/sql"
	"errors"

	"github.com/AgamW017/vibe/internal/models"
	"github.com/AgamW017/vibe/internal/observability"
	contextutils "github.com/AgamW017/vibe/internal/utils"

	"github.com/Masterminds/squirrel"
	"go.opentelemetry.io/otel/attribute"
)

const (
	feedbackTable = "feedback"

	// DefaultFeedbackPageSize is used when a listing does not ask for a page size
	DefaultFeedbackPageSize = 20
)

var feedbackColumns = []string{"id", "content_type", "content_id", "feedback_type", "description", "created_at"}

// psql builds PostgreSQL statements with $n placeholders
var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// FeedbackService persists feedback records. Records are insert-only.
type FeedbackService struct {
	db          *sql.DB
	logger      *observability.Logger
	instruments *observability.Instruments
}

// NewFeedbackService creates a new FeedbackService instance.
func NewFeedbackService(db *sql.DB, logger *observability.Logger, opts ...ServiceOption) *FeedbackService {
	if db == nil {
		panic("NewFeedbackService: db is nil")
	}
	if logger == nil {
		panic("NewFeedbackService: logger is nil")
	}
	o := applyServiceOptions(opts)
	return &FeedbackService{db: db, logger: logger, instruments: o.instruments}
}

// CreateFeedback validates the submission and stores it in a single INSERT ... RETURNING.
// Invalid input fails before any database access.
func (s *FeedbackService) CreateFeedback(ctx context.Context, submission *models.FeedbackSubmission) (result0 *models.FeedbackRecord, err error) {
	ctx, span := observability.TraceFeedbackFunction(ctx, "create_feedback")
	defer observability.FinishSpan(span, &err)

	if err := submission.Validate(); err != nil {
		return nil, err
	}
	span.SetAttributes(observability.AttributeFeedbackType(submission.FeedbackType))
	span.SetAttributes(observability.AttributeContent(submission.ContentType, *submission.ContentID)...)

	query, args, err := psql.Insert(feedbackTable).
		Columns("content_type", "content_id", "feedback_type", "description").
		Values(submission.ContentType, *submission.ContentID, submission.FeedbackType, submission.Description).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to build feedback insert")
	}

	record := &models.FeedbackRecord{
		ContentType:  submission.ContentType,
		ContentID:    *submission.ContentID,
		FeedbackType: submission.FeedbackType,
		Description:  submission.Description,
	}
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&record.ID, &record.CreatedAt); err != nil {
		s.logger.Error(ctx, "Failed to insert feedback", err, map[string]interface{}{
			"content_type":  submission.ContentType,
			"content_id":    *submission.ContentID,
			"feedback_type": submission.FeedbackType.String(),
		})
		return nil, contextutils.WrapAs(contextutils.ErrDatabaseQuery, err, "failed to insert feedback")
	}

	span.SetAttributes(observability.AttributeFeedbackID(record.ID))
	s.instruments.RecordFeedbackCreated(ctx, record.FeedbackType.String())
	s.logger.Info(ctx, "Feedback recorded", map[string]interface{}{
		"feedback_id":   record.ID,
		"feedback_type": record.FeedbackType.String(),
		"content_type":  record.ContentType,
		"content_id":    record.ContentID,
	})

	return record, nil
}

// GetFeedbackByID fetches a single record, or ErrRecordNotFound.
func (s *FeedbackService) GetFeedbackByID(ctx context.Context, id int64) (result0 *models.FeedbackRecord, err error) {
	ctx, span := observability.TraceFeedbackFunction(ctx, "get_feedback_by_id", observability.AttributeFeedbackID(id))
	defer observability.FinishSpan(span, &err)

	query, args, err := psql.Select(feedbackColumns...).
		From(feedbackTable).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to build feedback query")
	}

	record, err := scanFeedback(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, contextutils.WrapErrorf(contextutils.ErrRecordNotFound, "feedback %d not found", id)
	}
	if err != nil {
		return nil, contextutils.WrapAs(contextutils.ErrDatabaseQuery, err, "failed to load feedback")
	}
	return record, nil
}

// ListFeedback returns one page of records, newest id first, and the total matching count.
func (s *FeedbackService) ListFeedback(ctx context.Context, filter models.FeedbackFilter) (result0 *models.FeedbackPage, err error) {
	filter = normalizeFeedbackFilter(filter)
	ctx, span := observability.TraceFeedbackFunction(ctx, "list_feedback",
		observability.AttributePage(filter.Page),
		observability.AttributePageSize(filter.PageSize),
		attribute.String("filter.content_type", filter.ContentType),
		attribute.String("filter.feedback_type", filter.FeedbackType.String()),
	)
	defer observability.FinishSpan(span, &err)

	if filter.FeedbackType != "" && !filter.FeedbackType.Valid() {
		return nil, contextutils.WrapError(contextutils.ErrValidationFailed, "feedback_type must be one of "+models.FeedbackTypeNames())
	}

	countQuery, countArgs, err := applyFeedbackFilter(psql.Select("COUNT(*)").From(feedbackTable), filter).ToSql()
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to build feedback count")
	}
	var total int64
	if err := s.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, contextutils.WrapAs(contextutils.ErrDatabaseQuery, err, "failed to count feedback")
	}

	query, args, err := buildFeedbackListQuery(filter).ToSql()
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to build feedback listing")
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, contextutils.WrapAs(contextutils.ErrDatabaseQuery, err, "failed to list feedback")
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Warn(ctx, "Failed to close feedback rows", map[string]interface{}{"error": closeErr.Error()})
		}
	}()

	items := make([]models.FeedbackRecord, 0, filter.PageSize)
	for rows.Next() {
		record, err := scanFeedback(rows)
		if err != nil {
			return nil, contextutils.WrapAs(contextutils.ErrDatabaseQuery, err, "failed to scan feedback")
		}
		items = append(items, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapAs(contextutils.ErrDatabaseQuery, err, "failed to iterate feedback")
	}

	span.SetAttributes(attribute.Int64("result.total", total), attribute.Int("result.count", len(items)))
	return &models.FeedbackPage{Items: items, Total: total}, nil
}

func normalizeFeedbackFilter(filter models.FeedbackFilter) models.FeedbackFilter {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = DefaultFeedbackPageSize
	}
	if maxPage := models.MaxPage(filter.PageSize); filter.Page > maxPage {
		filter.Page = maxPage
	}
	return filter
}

func applyFeedbackFilter(q squirrel.SelectBuilder, filter models.FeedbackFilter) squirrel.SelectBuilder {
	if filter.ContentType != "" {
		q = q.Where(squirrel.Eq{"content_type": filter.ContentType})
	}
	if filter.ContentID != nil {
		q = q.Where(squirrel.Eq{"content_id": *filter.ContentID})
	}
	if filter.FeedbackType != "" {
		q = q.Where(squirrel.Eq{"feedback_type": filter.FeedbackType.String()})
	}
	return q
}

func buildFeedbackListQuery(filter models.FeedbackFilter) squirrel.SelectBuilder {
	return applyFeedbackFilter(psql.Select(feedbackColumns...).From(feedbackTable), filter).
		OrderBy("id DESC").
		Limit(uint64(filter.PageSize)).
		Offset(uint64(filter.Offset()))
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanFeedback(row rowScanner) (*models.FeedbackRecord, error) {
	var record models.FeedbackRecord
	if err := row.Scan(&record.ID, &record.ContentType, &record.ContentID, &record.FeedbackType, &record.Description, &record.CreatedAt); err != nil {
		return nil, err
	}
	return &record, nil
}
