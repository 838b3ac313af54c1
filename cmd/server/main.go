// Virtual HR - conversational HR assistant server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/ashureev/virtual-hr/internal/api"
	"github.com/ashureev/virtual-hr/internal/config"
	"github.com/ashureev/virtual-hr/internal/convlog"
	"github.com/ashureev/virtual-hr/internal/domain"
	"github.com/ashureev/virtual-hr/internal/feedback"
	"github.com/ashureev/virtual-hr/internal/leave"
	"github.com/ashureev/virtual-hr/internal/llm"
	"github.com/ashureev/virtual-hr/internal/middleware"
	"github.com/ashureev/virtual-hr/internal/policy"
	"github.com/ashureev/virtual-hr/internal/router"
	"github.com/ashureev/virtual-hr/internal/session"
	"github.com/ashureev/virtual-hr/internal/store"
)

// errModelUnavailable is returned by the stub wired in when no Gemini
// credentials are configured. Every caller degrades gracefully on it, so the
// server can run (and report degraded health) without a key.
var errModelUnavailable = errors.New("model credentials not configured")

// modelUnavailable satisfies the classifier, generator, analyzer, and
// embedder interfaces when AI is disabled.
type modelUnavailable struct{}

func (modelUnavailable) Classify(ctx context.Context, message string, history []domain.Turn) (*llm.Classification, error) {
	return nil, errModelUnavailable
}

func (modelUnavailable) Generate(ctx context.Context, system, prompt string) (string, error) {
	return "", errModelUnavailable
}

func (modelUnavailable) Analyze(ctx context.Context, text string) (domain.Sentiment, string, error) {
	return "", "", errModelUnavailable
}

func (modelUnavailable) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, errModelUnavailable
}

func (modelUnavailable) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, errModelUnavailable
}

func main() {
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

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	// Model-backed capabilities. A missing key disables AI rather than
	// refusing to start; health reports the degradation.
	var (
		classifier router.Classifier = modelUnavailable{}
		generator  router.Generator  = modelUnavailable{}
		analyzer   feedback.Analyzer = modelUnavailable{}
		embedder   policy.Embedder   = modelUnavailable{}
	)
	if cfg.GeminiAPIKey != "" {
		client, err := llm.NewClient(context.Background(), llm.Config{
			APIKey:         cfg.GeminiAPIKey,
			RouterModel:    cfg.RouterModel,
			GenerateModel:  cfg.GenerateModel,
			EmbeddingModel: cfg.EmbeddingModel,
		})
		if err != nil {
			slog.Error("Failed to initialize Gemini client", "error", err)
			os.Exit(1)
		}
		classifier, generator, analyzer, embedder = client, client, client, client
		slog.Info("Gemini client initialized", "router_model", cfg.RouterModel, "generate_model", cfg.GenerateModel)
	} else {
		slog.Warn("GEMINI_API_KEY not set, AI features disabled")
	}

	index, err := policy.NewSQLiteIndex(cfg.PolicyDBPath, embedder)
	if err != nil {
		slog.Error("Failed to open policy index", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := index.Close(); closeErr != nil {
			slog.Error("Failed to close policy index", "error", closeErr)
		}
	}()

	// Initialize services.
	sessions := session.NewStore()
	leaveHandler := leave.NewHandler(repo, cfg.Allowances())
	feedbackHandler := feedback.NewHandler(repo, analyzer)
	policyHandler := policy.NewHandler(index, generator, cfg.RetrievalK)
	dispatcher := router.NewDispatcher(leaveHandler, feedbackHandler, policyHandler, generator)
	orchestrator := router.NewOrchestrator(sessions, classifier, dispatcher, cfg.HistoryWindow)

	conversationLog, err := convlog.New(convlog.Config{
		Enabled:       cfg.ConversationLog.Enabled,
		Dir:           cfg.ConversationLog.Dir,
		GlobalEnabled: cfg.ConversationLog.GlobalEnabled,
		GlobalPath:    cfg.ConversationLog.GlobalPath,
		QueueSize:     cfg.ConversationLog.QueueSize,
	})
	if err != nil {
		slog.Error("Failed to initialize conversation logger", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := conversationLog.Close(); closeErr != nil {
			slog.Error("Failed to close conversation logger", "error", closeErr)
		}
	}()

	// Initialize handlers.
	chatHandler := api.NewChatHandler(orchestrator, sessions, conversationLog)
	healthHandler := api.NewHealthHandler(repo, cfg)
	wsHandler := api.NewWebSocketHandler(orchestrator, conversationLog, cfg.FrontendURL, cfg.IsDevelopment())

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS([]string{cfg.FrontendURL}))

	// Public routes.
	r.Get("/", api.Root)
	healthHandler.RegisterHealth(r)
	chatHandler.RegisterRoutes(r)

	// WebSocket endpoint.
	r.Get("/ws/chat", wsHandler.ServeHTTP)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // chat turns can outlast a fixed write deadline
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
