package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/alienxp03/courtroom/internal/core"
)

// Event types sent on a session stream.
const (
	EventSnapshot      = "snapshot"
	EventStatus        = "status"
	EventRoundComplete = "round_complete"
	EventVerdictReady  = "verdict_ready"
	EventVerdict       = "verdict"
	EventReset         = "reset"
	EventError         = "error"
)

const (
	streamBuffer    = 32
	streamKeepAlive = 15 * time.Second
	streamMaxAge    = 30 * time.Minute
)

// StreamEvent represents a server-sent event.
type StreamEvent struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// hub fans session events out to stream subscribers. Publishing never blocks;
// a subscriber that falls behind misses events until it catches up.
type hub struct {
	mu   sync.RWMutex
	subs map[string]map[chan StreamEvent]struct{}
}

func newHub() *hub {
	return &hub{subs: make(map[string]map[chan StreamEvent]struct{})}
}

func (h *hub) subscribe(sessionID string) (<-chan StreamEvent, func()) {
	ch := make(chan StreamEvent, streamBuffer)

	h.mu.Lock()
	if h.subs[sessionID] == nil {
		h.subs[sessionID] = make(map[chan StreamEvent]struct{})
	}
	h.subs[sessionID][ch] = struct{}{}
	h.mu.Unlock()

	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if set, ok := h.subs[sessionID]; ok {
			delete(set, ch)
			if len(set) == 0 {
				delete(h.subs, sessionID)
			}
		}
	}
}

func (h *hub) publish(sessionID string, ev StreamEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[sessionID] {
		select {
		case ch <- ev:
		default:
			slog.Debug("Dropping stream event for slow subscriber", "session", sessionID, "type", ev.Type)
		}
	}
}

// PublishStatus forwards agent progress to the session's stream. It is
// meant to be registered with engine.OnStatus.
func (h *Handler) PublishStatus(ev core.StatusEvent) {
	h.hub.publish(ev.SessionID, StreamEvent{Type: EventStatus, Data: ev})
}

// handleSessionStream streams session updates using Server-Sent Events.
func (h *Handler) handleSessionStream(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)
	h.logger.Debug("New session stream connection", "id", id, "remote_addr", r.RemoteAddr)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.logger.Error("Streaming unsupported: ResponseWriter does not implement http.Flusher")
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	s, ok := h.sessions.Get(id)
	if !ok {
		h.logger.Warn("Session not found for stream", "id", id)
		h.sendSSEError(w, flusher, "Session not found")
		return
	}

	events, unsubscribe := h.hub.subscribe(id)
	defer unsubscribe()

	h.sendSSEEvent(w, flusher, EventSnapshot, s.Snapshot())

	ctx, cancel := context.WithTimeout(r.Context(), streamMaxAge)
	defer cancel()

	ticker := time.NewTicker(streamKeepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.logger.Debug("Stream context done", "id", id)
			return
		case ev := <-events:
			h.sendSSEEvent(w, flusher, ev.Type, ev.Data)
		case <-ticker.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		}
	}
}

// sendSSEEvent sends a server-sent event.
func (h *Handler) sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, eventType string, data interface{}) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		h.logger.Error("Failed to marshal SSE data", "error", err)
		return
	}

	if _, err := fmt.Fprintf(w, "event: %s\n", eventType); err != nil {
		h.logger.Error("Failed to write SSE event", "error", err)
		return
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", jsonData); err != nil {
		h.logger.Error("Failed to write SSE data", "error", err)
		return
	}
	flusher.Flush()
}

// sendSSEError sends an error event.
func (h *Handler) sendSSEError(w http.ResponseWriter, flusher http.Flusher, message string) {
	h.sendSSEEvent(w, flusher, EventError, map[string]string{"message": message})
}
