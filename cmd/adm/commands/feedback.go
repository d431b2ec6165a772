package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/AgamW017/vibe/internal/models"
	"github.com/AgamW017/vibe/internal/observability"
	"github.com/AgamW017/vibe/internal/services"
	contextutils "github.com/AgamW017/vibe/internal/utils"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Output formats accepted by --output
const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

// FeedbackCommands returns the feedback inspection commands. Records are immutable,
// so there is nothing here that edits or deletes them.
func FeedbackCommands(res Resources, logger *observability.Logger) *cobra.Command {
	feedbackCmd := &cobra.Command{
		Use:   "feedback",
		Short: "Inspect stored feedback",
		Long: `Inspect feedback submitted about videos and questions.

Available commands:
  list   - List feedback, newest first
  show   - Show a single feedback record`,
	}

	feedbackCmd.AddCommand(feedbackListCmd(res, logger))
	feedbackCmd.AddCommand(feedbackShowCmd(res))

	return feedbackCmd
}

func feedbackListCmd(res Resources, logger *observability.Logger) *cobra.Command {
	var (
		feedbackType string
		contentType  string
		contentID    int64
		page         int
		pageSize     int
		output       string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List feedback, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			filter := models.FeedbackFilter{
				ContentType: strings.TrimSpace(contentType),
				Page:        page,
				PageSize:    pageSize,
			}
			if feedbackType != "" {
				parsed, err := models.ParseFeedbackType(feedbackType)
				if err != nil {
					return err
				}
				filter.FeedbackType = parsed
			}
			if cmd.Flags().Changed("content-id") {
				if contentID < 0 {
					return contextutils.WrapError(contextutils.ErrValidationFailed, "--content-id must be non-negative")
				}
				filter.ContentID = &contentID
			}

			store, err := res.FeedbackStore(ctx)
			if err != nil {
				return contextutils.WrapError(err, "failed to open feedback store")
			}

			result, err := store.ListFeedback(ctx, filter)
			if err != nil {
				logger.Error(ctx, "Failed to list feedback", err)
				return contextutils.WrapError(err, "failed to list feedback")
			}

			return writeFeedback(cmd.OutOrStdout(), output, result.Items, result.Total)
		},
	}

	cmd.Flags().StringVar(&feedbackType, "type", "", "Only show feedback of this type ("+models.FeedbackTypeNames()+")")
	cmd.Flags().StringVar(&contentType, "content-type", "", "Only show feedback about this content type")
	cmd.Flags().Int64Var(&contentID, "content-id", 0, "Only show feedback about this content id")
	cmd.Flags().IntVar(&page, "page", 1, "Page number, starting at 1")
	cmd.Flags().IntVar(&pageSize, "page-size", services.DefaultFeedbackPageSize, "Records per page")
	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "Output format: table, json or yaml")

	return cmd
}

func feedbackShowCmd(res Resources) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a single feedback record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return contextutils.WrapError(contextutils.ErrInvalidInput, fmt.Sprintf("invalid feedback id %q", args[0]))
			}

			store, err := res.FeedbackStore(ctx)
			if err != nil {
				return contextutils.WrapError(err, "failed to open feedback store")
			}

			record, err := store.GetFeedbackByID(ctx, id)
			if err != nil {
				return err
			}

			if output == outputTable {
				w := cmd.OutOrStdout()
				fmt.Fprintf(w, "ID:           %d\n", record.ID)
				fmt.Fprintf(w, "Content:      %s #%d\n", record.ContentType, record.ContentID)
				fmt.Fprintf(w, "Type:         %s\n", record.FeedbackType)
				fmt.Fprintf(w, "Created:      %s\n", record.CreatedAt.Format("2006-01-02 15:04:05 MST"))
				fmt.Fprintf(w, "Description:\n%s\n", record.Description)
				return nil
			}
			return writeFeedback(cmd.OutOrStdout(), output, []models.FeedbackRecord{*record}, 1)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "Output format: table, json or yaml")
	return cmd
}

// feedbackDocument is the json and yaml shape of a feedback listing
type feedbackDocument struct {
	Total int64              `json:"total" yaml:"total"`
	Items []feedbackDocEntry `json:"items" yaml:"items"`
}

type feedbackDocEntry struct {
	ID           int64  `json:"id" yaml:"id"`
	ContentType  string `json:"content_type" yaml:"content_type"`
	ContentID    int64  `json:"content_id" yaml:"content_id"`
	FeedbackType string `json:"feedback_type" yaml:"feedback_type"`
	Description  string `json:"description" yaml:"description"`
	CreatedAt    string `json:"created_at" yaml:"created_at"`
}

func writeFeedback(w io.Writer, output string, items []models.FeedbackRecord, total int64) error {
	switch output {
	case outputTable:
		if len(items) == 0 {
			fmt.Fprintln(w, "No feedback found")
			return nil
		}
		fmt.Fprintf(w, "%-6s %-12s %-10s %-10s %-20s %s\n", "ID", "Content", "ContentID", "Type", "Created", "Description")
		fmt.Fprintln(w, strings.Repeat("-", 100))
		for _, record := range items {
			fmt.Fprintf(w, "%-6d %-12s %-10d %-10s %-20s %s\n",
				record.ID,
				truncate(record.ContentType, 12),
				record.ContentID,
				record.FeedbackType,
				record.CreatedAt.Format("2006-01-02 15:04:05"),
				truncate(strings.ReplaceAll(record.Description, "\n", " "), 40),
			)
		}
		fmt.Fprintf(w, "\nShowing %d of %d\n", len(items), total)
		return nil
	case outputJSON, outputYAML:
		doc := feedbackDocument{Total: total, Items: make([]feedbackDocEntry, 0, len(items))}
		for _, record := range items {
			doc.Items = append(doc.Items, feedbackDocEntry{
				ID:           record.ID,
				ContentType:  record.ContentType,
				ContentID:    record.ContentID,
				FeedbackType: record.FeedbackType.String(),
				Description:  record.Description,
				CreatedAt:    record.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
			})
		}
		if output == outputJSON {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(doc)
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	default:
		return contextutils.WrapError(contextutils.ErrInvalidInput, fmt.Sprintf("unknown output format %q", output))
	}
}
