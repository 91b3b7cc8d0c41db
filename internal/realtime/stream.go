package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tasksync/project/internal/contracts"
	"github.com/tasksync/project/internal/platform/auth"
)

const defaultHeartbeat = 25 * time.Second

// StreamHandler serves the SSE event stream. The handshake requires a valid
// bearer token (header or "token" query parameter); the stream is force-closed
// when the token's expiry passes.
type StreamHandler struct {
	Registry  *Registry
	Tokens    auth.Manager
	Heartbeat time.Duration
}

func NewStreamHandler(registry *Registry, tokens auth.Manager) *StreamHandler {
	return &StreamHandler{
		Registry:  registry,
		Tokens:    tokens,
		Heartbeat: defaultHeartbeat,
	}
}

func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	token := auth.BearerToken(r.Header.Get("Authorization"))
	if token == "" {
		token = strings.TrimSpace(r.URL.Query().Get("token"))
	}
	if token == "" {
		http.Error(w, "token is required", http.StatusUnauthorized)
		return
	}
	claims, err := h.Tokens.Parse(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	// The token's expiry bounds the stream: when it passes, the context
	// deadline fires and the session is torn down without waiting for the
	// client to disconnect.
	streamCtx, cancel := context.WithDeadline(r.Context(), claims.ExpiresAt)
	defer cancel()

	session := h.Registry.Connect(claims.Subject)
	defer h.Registry.Disconnect(session)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	heartbeat := h.Heartbeat
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}
	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-streamCtx.Done():
			return
		case <-ticker.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case e := <-session.Events():
			writeEvent(w, flusher, e)
		}
	}
}

func writeEvent(w http.ResponseWriter, flusher http.Flusher, e contracts.TaskEvent) {
	data, err := json.Marshal(wirePayload(e))
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Kind, data)
	flusher.Flush()
}

// wirePayload shapes the event payload per kind: task snapshots for create
// and update, the bare task id for deletes, and the task plus the assigning
// user for targeted assignment events.
func wirePayload(e contracts.TaskEvent) any {
	switch e.Kind {
	case contracts.KindTaskDeleted:
		return map[string]string{"task_id": e.TaskID}
	case contracts.KindTaskAssigned:
		return map[string]any{
			"task":                e.Task,
			"assigned_by_user_id": e.ActorUserID,
		}
	case contracts.KindTaskStatusChanged:
		return map[string]any{
			"task":                 e.Task,
			"completed_by_user_id": e.ActorUserID,
		}
	default:
		return e.Task
	}
}
