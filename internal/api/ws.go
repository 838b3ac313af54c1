package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/ashureev/virtual-hr/internal/convlog"
	"github.com/ashureev/virtual-hr/internal/router"
)

// WebSocketHandler handles WebSocket-based chat sessions. Each connection
// owns one conversation session; frames carry user messages in and assistant
// replies out.
type WebSocketHandler struct {
	orchestrator  Chatter
	log           *convlog.Logger
	allowedOrigin string
	isDev         bool
}

// NewWebSocketHandler creates a new WebSocket chat handler.
func NewWebSocketHandler(orchestrator Chatter, log *convlog.Logger, allowedOrigin string, isDev bool) *WebSocketHandler {
	return &WebSocketHandler{
		orchestrator:  orchestrator,
		log:           log,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
	}
}

// wsMessage represents the WebSocket frame structure.
type wsMessage struct {
	Type         string `json:"type"`
	Message      string `json:"message,omitempty"`
	EmployeeID   string `json:"employee_id,omitempty"`
	EmployeeName string `json:"employee_name,omitempty"`
	IsHR         bool   `json:"is_hr,omitempty"`
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	slog.Info("WebSocket connection request", "ip", r.RemoteAddr)

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr)
		}
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sessionID := uuid.NewString()
	if err := h.writeJSON(ws, map[string]string{"type": "session", "session_id": sessionID}); err != nil {
		slog.Debug("Failed to send session frame", "error", err)
		return
	}

	h.readLoop(ctx, ws, sessionID)
	slog.Info("Chat session ended", "session_id", sessionID)
}

func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" {
		return true
	}
	if origin == h.allowedOrigin {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

func (h *WebSocketHandler) readLoop(ctx context.Context, ws *websocket.Conn, sessionID string) {
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("WebSocket closed by client", "session_id", sessionID)
			} else {
				slog.Warn("WebSocket read error", "error", err, "session_id", sessionID)
			}
			return
		}

		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			if err := h.writeJSON(ws, map[string]string{"type": "error", "error": "invalid frame"}); err != nil {
				slog.Debug("Failed to send error frame", "error", err)
			}
			continue
		}

		switch msg.Type {
		case "ping":
			if err := h.writeJSON(ws, map[string]string{"type": "pong"}); err != nil {
				slog.Debug("Failed to send pong", "error", err)
			}
		case "chat", "":
			message := strings.TrimSpace(msg.Message)
			if message == "" {
				if err := h.writeJSON(ws, map[string]string{"type": "error", "error": "message is required"}); err != nil {
					slog.Debug("Failed to send error frame", "error", err)
				}
				continue
			}

			caller := router.CallerContext{
				EmployeeID:   msg.EmployeeID,
				EmployeeName: msg.EmployeeName,
				Privileged:   msg.IsHR,
			}

			h.log.Log(convlog.Event{
				Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
				SessionID: sessionID,
				Role:      "user",
				Content:   message,
			})

			reply := h.orchestrator.Chat(ctx, sessionID, message, caller)

			h.log.Log(convlog.Event{
				Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
				SessionID: sessionID,
				Role:      "assistant",
				Content:   reply,
			})

			if err := h.writeJSON(ws, map[string]string{
				"type":       "reply",
				"session_id": sessionID,
				"reply":      reply,
			}); err != nil {
				slog.Debug("Failed to send reply frame", "error", err, "session_id", sessionID)
				return
			}
		default:
			slog.Debug("Ignoring unknown frame type", "type", msg.Type, "session_id", sessionID)
		}
	}
}

// writeTimeout bounds a single frame write so a stalled client cannot wedge
// the read loop.
const writeTimeout = 10 * time.Second

func (h *WebSocketHandler) writeJSON(ws *websocket.Conn, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	return ws.Write(ctx, websocket.MessageText, data)
}
