// Package llm provides Gemini-backed language model clients for intent
// classification, response generation, sentiment analysis, and embeddings.
package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// Client wraps the Gemini API for all model-backed capabilities.
type Client struct {
	client         *genai.Client
	routerModel    string
	generateModel  string
	embeddingModel string
}

// Config holds model selection for the client.
type Config struct {
	APIKey         string
	RouterModel    string
	GenerateModel  string
	EmbeddingModel string
}

// NewClient creates a Gemini client.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("create Gemini client: %w", err)
	}

	routerModel := cfg.RouterModel
	if routerModel == "" {
		routerModel = "gemini-2.5-flash"
	}
	generateModel := cfg.GenerateModel
	if generateModel == "" {
		generateModel = "gemini-2.5-flash"
	}
	embeddingModel := cfg.EmbeddingModel
	if embeddingModel == "" {
		embeddingModel = "gemini-embedding-001"
	}

	return &Client{
		client:         client,
		routerModel:    routerModel,
		generateModel:  generateModel,
		embeddingModel: embeddingModel,
	}, nil
}

// Generate produces a free-text completion for the given system instruction
// and user prompt.
func (c *Client) Generate(ctx context.Context, system, prompt string) (string, error) {
	config := &genai.GenerateContentConfig{
		MaxOutputTokens: 1024,
	}
	if system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.generateModel, contents, config)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("model returned an empty response")
	}
	return text, nil
}
