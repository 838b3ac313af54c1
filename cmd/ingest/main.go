// ingest loads policy documents into the passage index used by the
// policy question handler.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/ashureev/virtual-hr/internal/config"
	"github.com/ashureev/virtual-hr/internal/llm"
	"github.com/ashureev/virtual-hr/internal/policy"
)

const (
	chunkSize    = 1000
	chunkOverlap = 200
)

func main() {
	docsDir := flag.String("dir", "./data/policies", "directory of .txt/.md policy documents")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if cfg.GeminiAPIKey == "" {
		slog.Error("GEMINI_API_KEY is required for ingestion")
		os.Exit(1)
	}

	ctx := context.Background()

	client, err := llm.NewClient(ctx, llm.Config{
		APIKey:         cfg.GeminiAPIKey,
		EmbeddingModel: cfg.EmbeddingModel,
	})
	if err != nil {
		slog.Error("Failed to initialize Gemini client", "error", err)
		os.Exit(1)
	}

	index, err := policy.NewSQLiteIndex(cfg.PolicyDBPath, client)
	if err != nil {
		slog.Error("Failed to open policy index", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := index.Close(); closeErr != nil {
			slog.Error("Failed to close policy index", "error", closeErr)
		}
	}()

	docs, err := loadDocuments(*docsDir)
	if err != nil {
		slog.Error("Failed to load documents", "error", err, "dir", *docsDir)
		os.Exit(1)
	}
	if len(docs) == 0 {
		slog.Warn("No .txt or .md documents found", "dir", *docsDir)
		return
	}

	slog.Info("Indexing documents", "files", len(docs))

	var passages []policy.Document
	for _, doc := range docs {
		chunks := policy.ChunkText(doc.content, chunkSize, chunkOverlap)
		for _, chunk := range chunks {
			passages = append(passages, policy.Document{Content: chunk, Source: doc.name})
		}
		slog.Info("Chunked document", "file", doc.name, "chunks", len(chunks))
	}

	if err := index.Index(ctx, passages); err != nil {
		slog.Error("Failed to index passages", "error", err)
		os.Exit(1)
	}

	total, err := index.Count(ctx)
	if err != nil {
		slog.Error("Failed to count passages", "error", err)
		os.Exit(1)
	}
	slog.Info("Ingestion complete", "passages_added", len(passages), "passages_total", total)
}

type document struct {
	name    string
	content string
}

// loadDocuments reads every .txt and .md file directly under dir.
func loadDocuments(dir string) ([]document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var docs []document
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".txt" && ext != ".md" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		text := strings.TrimSpace(string(data))
		if text == "" {
			continue
		}
		docs = append(docs, document{name: entry.Name(), content: text})
	}
	return docs, nil
}
