// Package policy answers company-policy questions from indexed document
// passages.
package policy

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ashureev/virtual-hr/internal/domain"
)

// Passage is one retrieved document fragment.
type Passage struct {
	Content string
	Source  string
	Score   float64
}

// Retriever returns the top-k passages ranked by similarity to the query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]Passage, error)
}

// Generator produces a completion for a system instruction and prompt.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// Handler answers policy questions via retrieval-augmented generation.
type Handler struct {
	retriever Retriever
	generator Generator
	k         int
}

// NewHandler creates a policy handler retrieving k passages per question.
func NewHandler(retriever Retriever, generator Generator, k int) *Handler {
	if k <= 0 {
		k = 3
	}
	return &Handler{retriever: retriever, generator: generator, k: k}
}

const answerSystem = `You are an HR Policy Assistant. Use the following context to answer the user's question.
If the answer is not in the context, just say you don't know in a polite manner. Do not disclose your sources.`

// Answer retrieves relevant passages and generates an answer constrained to
// them.
func (h *Handler) Answer(ctx context.Context, query string) (string, error) {
	passages, err := h.retriever.Retrieve(ctx, query, h.k)
	if err != nil {
		return "", &domain.ExternalServiceError{Service: "policy document index", Err: err}
	}

	if len(passages) == 0 {
		return "I couldn't find any relevant information in the policy documents.", nil
	}

	var sb strings.Builder
	for i, p := range passages {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(p.Content)
	}

	prompt := fmt.Sprintf("Context:\n%s\n\nQuestion: %s", sb.String(), query)

	slog.Debug("Answering policy question", "passages", len(passages), "query_length", len(query))

	answer, err := h.generator.Generate(ctx, answerSystem, prompt)
	if err != nil {
		return "", &domain.ExternalServiceError{Service: "policy answer model", Err: err}
	}
	return answer, nil
}
