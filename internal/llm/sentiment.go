package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ashureev/virtual-hr/internal/domain"
	"google.golang.org/genai"
)

const sentimentPrompt = `You are an HR feedback analyst. Analyze the employee feedback and provide:
1. Sentiment classification (exactly one of: Positive, Neutral, Negative)
2. Actionable items for HR to consider

Respond with JSON only:
{
    "sentiment": "Positive" | "Neutral" | "Negative",
    "action_items": "Concise actionable recommendations for HR (1-2 sentences max)"
}

Guidelines:
- Positive: Appreciation, satisfaction, praise
- Negative: Complaints, concerns, frustrations
- Neutral: Suggestions, observations, mixed feelings
- Action items should be specific and actionable
- If no clear action needed, suggest "Monitor and acknowledge"

Analyze this feedback:

`

// Analyze classifies feedback sentiment and derives an action item. A
// malformed model response degrades to Neutral with a manual-review action
// item; only transport failures are returned as errors.
func (c *Client) Analyze(ctx context.Context, text string) (domain.Sentiment, string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(sentimentPrompt+text, genai.RoleUser),
	}
	config := &genai.GenerateContentConfig{
		MaxOutputTokens: 256,
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.generateModel, contents, config)
	if err != nil {
		return "", "", fmt.Errorf("sentiment call: %w", err)
	}

	sentiment, actionItems := parseAnalysis(resp.Text())
	return sentiment, actionItems, nil
}

func parseAnalysis(raw string) (domain.Sentiment, string) {
	var parsed struct {
		Sentiment   string `json:"sentiment"`
		ActionItems string `json:"action_items"`
	}
	if err := json.Unmarshal([]byte(stripFences(raw)), &parsed); err != nil {
		slog.Warn("Sentiment response was not valid JSON, defaulting to Neutral", "error", err)
		return domain.SentimentNeutral, "Review feedback manually"
	}

	sentiment := domain.SentimentNeutral
	switch domain.Sentiment(parsed.Sentiment) {
	case domain.SentimentPositive, domain.SentimentNeutral, domain.SentimentNegative:
		sentiment = domain.Sentiment(parsed.Sentiment)
	}
	actionItems := parsed.ActionItems
	if actionItems == "" {
		actionItems = "Review and acknowledge feedback"
	}
	return sentiment, actionItems
}

// stripFences removes a markdown code fence wrapper if the model added one.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.Index(s, "```json"); idx >= 0 {
		s = s[idx+len("```json"):]
	} else if idx := strings.Index(s, "```"); idx >= 0 {
		s = s[idx+len("```"):]
	} else {
		return s
	}
	if end := strings.Index(s, "```"); end >= 0 {
		s = s[:end]
	}
	return strings.TrimSpace(s)
}
