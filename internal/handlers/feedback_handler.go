package handlers

import (
	"net/http"
	"strconv"

	"github.com/AgamW017/vibe/internal/config"
	"github.com/AgamW017/vibe/internal/models"
	"github.com/AgamW017/vibe/internal/observability"
	serviceinterfaces "github.com/AgamW017/vibe/internal/serviceinterfaces"
	"github.com/AgamW017/vibe/internal/services"
	contextutils "github.com/AgamW017/vibe/internal/utils"

	"github.com/gin-gonic/gin"
)

// FeedbackHandler handles feedback endpoints. Records are immutable, so there is no update or delete route.
type FeedbackHandler struct {
	feedbackStore serviceinterfaces.FeedbackStore
	config        *config.Config
	logger        *observability.Logger
}

// NewFeedbackHandler creates a FeedbackHandler.
func NewFeedbackHandler(store serviceinterfaces.FeedbackStore, cfg *config.Config, logger *observability.Logger) *FeedbackHandler {
	if store == nil {
		panic("feedback store cannot be nil")
	}
	if cfg == nil {
		panic("config cannot be nil")
	}
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &FeedbackHandler{
		feedbackStore: store,
		config:        cfg,
		logger:        logger,
	}
}

// SubmitFeedback handles POST /v1/feedback.
func (h *FeedbackHandler) SubmitFeedback(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "submit_feedback")
	defer observability.FinishSpan(span, nil)

	var req models.FeedbackSubmission
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

	record, err := h.feedbackStore.CreateFeedback(ctx, &req)
	if err != nil {
		if !contextutils.IsValidationError(err) {
			logAppError(ctx, h.logger, "Failed to create feedback", err, map[string]interface{}{
				"content_type":  req.ContentType,
				"feedback_type": req.FeedbackType.String(),
			})
		}
		HandleAppError(c, err)
		return
	}

	span.SetAttributes(observability.AttributeFeedbackID(record.ID))
	c.JSON(http.StatusCreated, record)
}

// GetFeedback handles GET /v1/feedback/:id.
func (h *FeedbackHandler) GetFeedback(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_feedback")
	defer observability.FinishSpan(span, nil)

	idStr := c.Param("id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		HandleValidationError(c, "id", idStr, "must be a positive integer")
		return
	}
	span.SetAttributes(observability.AttributeFeedbackID(id))

	record, err := h.feedbackStore.GetFeedbackByID(ctx, id)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

// ListFeedback handles GET /v1/feedback with optional content_type, content_id and feedback_type filters.
func (h *FeedbackHandler) ListFeedback(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "list_feedback")
	defer observability.FinishSpan(span, nil)

	maxSize := h.config.Server.FeedbackPageSizeMax
	if maxSize <= 0 {
		maxSize = config.DefaultFeedbackPageSizeMax
	}
	page, pageSize := ParsePagination(c, 1, services.DefaultFeedbackPageSize, maxSize)

	filter := models.FeedbackFilter{Page: page, PageSize: pageSize}
	filters := ParseFilters(c, "content_type", "content_id", "feedback_type")
	if v, ok := filters["content_type"]; ok {
		filter.ContentType = v
	}
	if v, ok := filters["content_id"]; ok {
		contentID, err := strconv.ParseInt(v, 10, 64)
		if err != nil || contentID < 0 {
			HandleValidationError(c, "content_id", v, "must be a non-negative integer")
			return
		}
		filter.ContentID = &contentID
	}
	if v, ok := filters["feedback_type"]; ok {
		feedbackType, err := models.ParseFeedbackType(v)
		if err != nil {
			HandleValidationError(c, "feedback_type", v, "must be one of "+models.FeedbackTypeNames())
			return
		}
		filter.FeedbackType = feedbackType
	}

	span.SetAttributes(
		observability.AttributePage(page),
		observability.AttributePageSize(pageSize),
	)

	result, err := h.feedbackStore.ListFeedback(ctx, filter)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	items := result.Items
	if items == nil {
		items = []models.FeedbackRecord{}
	}
	WritePaginated(c, "items", items, NewPagination(page, pageSize, result.Total), nil)
}
