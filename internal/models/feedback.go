// Package models defines the data structures shared by the feedback store and the generation facade.
package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	contextutils "github.com/AgamW017/vibe/internal/utils"
)

// FeedbackType classifies a feedback record. The set is closed.
type FeedbackType string

// Feedback types
const (
	FeedbackTypeSuggestion FeedbackType = "Suggestion"
	FeedbackTypeIssue      FeedbackType = "Issue"
)

// FeedbackTypes lists every valid feedback type in declaration order.
var FeedbackTypes = []FeedbackType{FeedbackTypeSuggestion, FeedbackTypeIssue}

// FeedbackTypeNames joins FeedbackTypes for help and error text, e.g. "Suggestion, Issue".
func FeedbackTypeNames() string {
	names := make([]string, len(FeedbackTypes))
	for i, t := range FeedbackTypes {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}

// ParseFeedbackType accepts exactly one of FeedbackTypes, case-sensitively.
func ParseFeedbackType(s string) (FeedbackType, error) {
	for _, t := range FeedbackTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", contextutils.WrapError(contextutils.ErrValidationFailed,
		fmt.Sprintf("feedback_type must be one of %s (got %q)", FeedbackTypeNames(), s))
}

func (t FeedbackType) String() string {
	return string(t)
}

// Valid reports whether t is one of the declared feedback types.
func (t FeedbackType) Valid() bool {
	_, err := ParseFeedbackType(string(t))
	return err == nil
}

// MarshalJSON refuses to emit a value outside the enumeration
func (t FeedbackType) MarshalJSON() ([]byte, error) {
	if !t.Valid() {
		return nil, contextutils.WrapError(contextutils.ErrValidationFailed, fmt.Sprintf("invalid feedback_type %q", string(t)))
	}
	return json.Marshal(string(t))
}

// UnmarshalJSON rejects unknown feedback types at decode time
func (t *FeedbackType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return contextutils.WrapError(contextutils.ErrInvalidFormat, "feedback_type must be a string")
	}
	parsed, err := ParseFeedbackType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Value implements driver.Valuer so only valid types reach the database
func (t FeedbackType) Value() (driver.Value, error) {
	if !t.Valid() {
		return nil, contextutils.WrapError(contextutils.ErrValidationFailed, fmt.Sprintf("invalid feedback_type %q", string(t)))
	}
	return string(t), nil
}

// Scan implements sql.Scanner
func (t *FeedbackType) Scan(src interface{}) error {
	var s string
	switch v := src.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return contextutils.ErrorWithContextf("cannot scan %T into FeedbackType", src)
	}
	parsed, err := ParseFeedbackType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// FeedbackRecord is a stored piece of feedback about a content item. Records are never updated.
type FeedbackRecord struct {
	ID           int64        `json:"id" db:"id"`
	ContentType  string       `json:"content_type" db:"content_type"`
	ContentID    int64        `json:"content_id" db:"content_id"`
	FeedbackType FeedbackType `json:"feedback_type" db:"feedback_type"`
	Description  string       `json:"description" db:"description"`
	CreatedAt    time.Time    `json:"created_at" db:"created_at"`
}

// FeedbackSubmission is the caller-supplied part of a FeedbackRecord.
// ContentID is a pointer so an omitted value can be told apart from 0.
type FeedbackSubmission struct {
	ContentType  string       `json:"content_type" validate:"required,max=50"`
	ContentID    *int64       `json:"content_id" validate:"required,gte=0"`
	FeedbackType FeedbackType `json:"feedback_type" validate:"required,oneof=Suggestion Issue"`
	Description  string       `json:"description" validate:"required"`
}

// Validate checks the submission before it reaches the store.
func (s *FeedbackSubmission) Validate() error {
	if s == nil {
		return contextutils.WrapError(contextutils.ErrMissingRequired, "feedback submission is required")
	}
	if err := contextutils.ValidateStruct(s); err != nil {
		return err
	}
	if strings.TrimSpace(s.ContentType) == "" {
		return contextutils.WrapError(contextutils.ErrMissingRequired, "content_type must not be blank")
	}
	if strings.TrimSpace(s.Description) == "" {
		return contextutils.WrapError(contextutils.ErrMissingRequired, "description must not be blank")
	}
	return nil
}

// FeedbackFilter narrows a feedback listing. Zero values mean "no filter".
type FeedbackFilter struct {
	ContentType  string
	ContentID    *int64
	FeedbackType FeedbackType
	Page         int
	PageSize     int
}

// MaxPage is the largest page whose row offset still fits in an int for the given page size.
func MaxPage(pageSize int) int {
	if pageSize < 1 {
		return math.MaxInt
	}
	return math.MaxInt / pageSize
}

// Offset returns the row offset for the filter's 1-based page, saturating at the last
// addressable page instead of overflowing.
func (f FeedbackFilter) Offset() int {
	if f.Page <= 1 || f.PageSize < 1 {
		return 0
	}
	page := min(f.Page, MaxPage(f.PageSize))
	return (page - 1) * f.PageSize
}

// FeedbackPage is one page of a feedback listing.
type FeedbackPage struct {
	Items []FeedbackRecord `json:"items"`
	Total int64            `json:"total"`
}
