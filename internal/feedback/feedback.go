// Package feedback implements anonymous feedback collection and trend
// aggregation.
package feedback

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ashureev/virtual-hr/internal/domain"
	"github.com/ashureev/virtual-hr/internal/store"
)

// minFeedbackLength is the minimum feedback length after prefix stripping.
const minFeedbackLength = 10

// Analyzer classifies sentiment and derives an action item for a feedback
// text.
type Analyzer interface {
	Analyze(ctx context.Context, text string) (domain.Sentiment, string, error)
}

// Params carries feedback operation inputs.
type Params struct {
	Action     string
	Text       string
	Privileged bool
}

// Handler stores and aggregates anonymous feedback.
type Handler struct {
	repo     store.Repository
	analyzer Analyzer
}

// NewHandler creates a feedback handler.
func NewHandler(repo store.Repository, analyzer Analyzer) *Handler {
	return &Handler{repo: repo, analyzer: analyzer}
}

// Handle dispatches a feedback action. An unknown or missing action is
// treated as a submission, matching how people phrase feedback in chat.
func (h *Handler) Handle(ctx context.Context, p Params) (string, error) {
	if strings.ToLower(p.Action) == "view_trends" {
		return h.ViewTrends(ctx, p.Privileged)
	}
	return h.Submit(ctx, p.Text)
}

// feedbackPrefixes are lead-in phrases stripped before storing.
var feedbackPrefixes = []string{
	"i want to give feedback:",
	"i want to submit feedback:",
	"my feedback is:",
	"feedback:",
	"i'd like to share:",
	"here's my feedback:",
}

// Submit analyzes and records a feedback text. Sentiment analysis failure
// degrades to Neutral rather than losing the submission.
func (h *Handler) Submit(ctx context.Context, text string) (string, error) {
	text = stripPrefix(text)
	if len(strings.TrimSpace(text)) < minFeedbackLength {
		return "", &domain.ValidationError{
			Message: "Please provide more detailed feedback. " +
				"Your input helps us improve the workplace!",
		}
	}

	sentiment, actionItems, err := h.analyzer.Analyze(ctx, text)
	if err != nil {
		slog.Warn("Sentiment analysis failed, recording feedback as Neutral", "error", err)
		sentiment = domain.SentimentNeutral
		actionItems = "Review feedback manually"
	}

	fb := &domain.Feedback{
		Text:        text,
		Sentiment:   sentiment,
		ActionItems: actionItems,
	}
	if err := h.repo.AddFeedback(ctx, fb); err != nil {
		return "", &domain.ExternalServiceError{Service: "feedback tracker", Err: err}
	}

	slog.Info("Feedback recorded", "sentiment", sentiment, "length", len(text))

	return fmt.Sprintf("Thank you for your anonymous feedback!\n\n"+
		"Your feedback has been recorded and will be reviewed by HR.\n\n"+
		"Sentiment Detected: %s\n\n"+
		"We value your input and are committed to improving the workplace.",
		sentiment), nil
}

// ViewTrends aggregates all feedback by sentiment with integer percentage
// shares, plus the most recent action items. HR only.
func (h *Handler) ViewTrends(ctx context.Context, privileged bool) (string, error) {
	if !privileged {
		return "", &domain.AuthorizationError{Operation: "view_trends"}
	}

	records, err := h.repo.AllFeedback(ctx)
	if err != nil {
		return "", &domain.ExternalServiceError{Service: "feedback tracker", Err: err}
	}
	if len(records) == 0 {
		return "Feedback Summary\n\nNo feedback has been collected yet.", nil
	}

	var positive, neutral, negative int
	for _, fb := range records {
		switch fb.Sentiment {
		case domain.SentimentPositive:
			positive++
		case domain.SentimentNegative:
			negative++
		default:
			neutral++
		}
	}

	total := len(records)
	denom := total
	if denom < 1 {
		denom = 1
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Feedback Summary\n\nTotal Feedback: %d\n\n", total)
	sb.WriteString("Sentiment Breakdown:\n")
	fmt.Fprintf(&sb, "- Positive: %d (%d%%)\n", positive, positive*100/denom)
	fmt.Fprintf(&sb, "- Neutral: %d (%d%%)\n", neutral, neutral*100/denom)
	fmt.Fprintf(&sb, "- Negative: %d (%d%%)\n", negative, negative*100/denom)

	// Most recent three action items among the last five records.
	recent := records
	if len(recent) > 5 {
		recent = recent[len(recent)-5:]
	}
	var actions []string
	for _, fb := range recent {
		if fb.ActionItems != "" {
			actions = append(actions, fb.ActionItems)
		}
	}
	if len(actions) > 3 {
		actions = actions[:3]
	}
	if len(actions) > 0 {
		sb.WriteString("\nRecent Action Items:\n")
		for i, action := range actions {
			fmt.Fprintf(&sb, "%d. %s\n", i+1, action)
		}
	}

	return sb.String(), nil
}

func stripPrefix(text string) string {
	trimmed := strings.TrimSpace(text)
	lower := strings.ToLower(trimmed)
	for _, prefix := range feedbackPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return strings.TrimSpace(trimmed[len(prefix):])
		}
	}
	return trimmed
}
