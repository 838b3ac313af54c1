package domain

import (
	"time"
)

// Sentiment is a three-way feedback classification.
type Sentiment string

const (
	SentimentPositive Sentiment = "Positive"
	SentimentNeutral  Sentiment = "Neutral"
	SentimentNegative Sentiment = "Negative"
)

// Feedback is an anonymous feedback record. Anonymity is a correctness
// requirement: no field may identify the submitter.
type Feedback struct {
	Text        string    `json:"text"`
	Sentiment   Sentiment `json:"sentiment"`
	ActionItems string    `json:"action_items"`
	SubmittedOn time.Time `json:"submitted_on"`
}
