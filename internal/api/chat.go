package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ashureev/virtual-hr/internal/convlog"
	"github.com/ashureev/virtual-hr/internal/router"
	"github.com/ashureev/virtual-hr/internal/session"
)

// turnLocks serializes chat turns within a session. Concurrent turns for the
// same session would interleave history appends.
var turnLocks sync.Map

// Chatter runs one conversational turn and returns the assistant reply.
type Chatter interface {
	Chat(ctx context.Context, sessionID, message string, caller router.CallerContext) string
}

// ChatHandler handles conversational endpoints.
type ChatHandler struct {
	orchestrator Chatter
	sessions     *session.Store
	log          *convlog.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(orchestrator Chatter, sessions *session.Store, log *convlog.Logger) *ChatHandler {
	return &ChatHandler{orchestrator: orchestrator, sessions: sessions, log: log}
}

// RegisterRoutes registers chat routes.
func (h *ChatHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/chat", h.Chat)
		r.Get("/chat/history/{session_id}", h.History)
		r.Delete("/chat/history/{session_id}", h.ClearHistory)
	})
}

// chatRequest is the POST /api/chat request body.
type chatRequest struct {
	Message      string `json:"message"`
	SessionID    string `json:"session_id,omitempty"`
	EmployeeID   string `json:"employee_id,omitempty"`
	EmployeeName string `json:"employee_name,omitempty"`
	IsHR         bool   `json:"is_hr,omitempty"`
}

// Chat processes one user message and returns the assistant reply.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		Error(w, http.StatusBadRequest, "message is required")
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	lock, _ := turnLocks.LoadOrStore(sessionID, &sync.Mutex{})
	mutex := lock.(*sync.Mutex)
	mutex.Lock()
	defer mutex.Unlock()

	caller := router.CallerContext{
		EmployeeID:   req.EmployeeID,
		EmployeeName: req.EmployeeName,
		Privileged:   req.IsHR,
	}

	h.log.Log(convlog.Event{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		SessionID: sessionID,
		Role:      "user",
		Content:   req.Message,
	})

	reply := h.orchestrator.Chat(r.Context(), sessionID, req.Message, caller)

	h.log.Log(convlog.Event{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		SessionID: sessionID,
		Role:      "assistant",
		Content:   reply,
	})

	JSON(w, http.StatusOK, map[string]string{
		"session_id": sessionID,
		"reply":      reply,
	})
}

// History returns the full conversation history for a session.
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")

	turns := h.sessions.History(sessionID)
	if turns == nil {
		Error(w, http.StatusNotFound, "session not found")
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"session_id": sessionID,
		"turns":      turns,
	})
}

// ClearHistory deletes a session's conversation history. Clearing an unknown
// session succeeds.
func (h *ChatHandler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")

	// Take the turn lock so a clear cannot interleave with an in-flight turn.
	// The lock entry stays in the map; deleting it would let a racing turn
	// mint a second mutex for the same session.
	lock, _ := turnLocks.LoadOrStore(sessionID, &sync.Mutex{})
	mutex := lock.(*sync.Mutex)
	mutex.Lock()
	defer mutex.Unlock()

	h.sessions.Clear(sessionID)

	slog.Info("Session history cleared", "session_id", sessionID)
	JSON(w, http.StatusOK, map[string]string{
		"session_id": sessionID,
		"status":     "cleared",
	})
}
