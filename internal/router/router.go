// Package router classifies incoming messages into intents and dispatches
// them to domain handlers.
package router

import (
	"context"
	"log/slog"

	"github.com/ashureev/virtual-hr/internal/domain"
	"github.com/ashureev/virtual-hr/internal/llm"
)

// fallbackReply is returned when classification fails. Routing failures never
// fail a turn.
const fallbackReply = "I'm having trouble understanding your request. Could you please rephrase?"

// Classifier routes a message to an intent, given recent conversation
// history.
type Classifier interface {
	Classify(ctx context.Context, message string, history []domain.Turn) (*llm.Classification, error)
}

// SessionStore records conversation turns and serves bounded history windows.
type SessionStore interface {
	Append(sessionID string, role domain.Role, content string)
	Recent(sessionID string, n int) []domain.Turn
}

// CallerContext is the authoritative identity supplied by the boundary API.
// It takes precedence over values the classifier extracts from free text.
type CallerContext struct {
	EmployeeID   string
	EmployeeName string
	Privileged   bool
}

// Orchestrator runs the full chat turn: record the user message, classify,
// dispatch, record the reply.
type Orchestrator struct {
	sessions   SessionStore
	classifier Classifier
	dispatcher *Dispatcher
	window     int
}

// NewOrchestrator composes the chat pipeline. window bounds how many prior
// turns the classifier sees.
func NewOrchestrator(sessions SessionStore, classifier Classifier, dispatcher *Dispatcher, window int) *Orchestrator {
	if window <= 0 {
		window = 10
	}
	return &Orchestrator{
		sessions:   sessions,
		classifier: classifier,
		dispatcher: dispatcher,
		window:     window,
	}
}

// Chat processes one user message and returns the assistant reply. Exactly
// one user turn and one assistant turn are appended per call; no error is
// ever returned to the caller.
func (o *Orchestrator) Chat(ctx context.Context, sessionID, message string, caller CallerContext) string {
	o.sessions.Append(sessionID, domain.RoleUser, message)

	// The current message was just appended; fetch one extra turn and slice
	// it off so the classifier sees a full window of prior turns.
	history := o.sessions.Recent(sessionID, o.window+1)
	if n := len(history); n > 0 {
		history = history[:n-1]
	}

	cls, err := o.classifier.Classify(ctx, message, history)
	if err != nil {
		slog.Error("Intent classification failed", "session_id", sessionID, "error", err)
		cls = &llm.Classification{Reply: fallbackReply}
	}

	var reply string
	if cls.IsReply() {
		reply = cls.Reply
	} else {
		reply = o.dispatcher.Execute(ctx, cls, message, caller)
	}

	o.sessions.Append(sessionID, domain.RoleAssistant, reply)
	return reply
}
