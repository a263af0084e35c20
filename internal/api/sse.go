package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/roundtable-ai/roundtable/internal/events"
)

// handleSSE streams deliberation events as Server-Sent Events. An
// optional ?session= parameter narrows the stream to one session.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	if s.bus == nil {
		s.respondError(w, http.StatusServiceUnavailable, "event bus not available", "")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.respondError(w, http.StatusInternalServerError, "streaming not supported", "")
		return
	}

	ctx := r.Context()
	sessionID := r.URL.Query().Get("session")

	ch := s.bus.Subscribe()
	defer s.bus.Unsubscribe(ch)

	s.logger.Info("sse client connected",
		"remote_addr", r.RemoteAddr,
		"session_id", sessionID,
	)

	// Initial event so clients can confirm the stream is live.
	s.sendSSEEvent(w, flusher, "connected", map[string]string{
		"status": "connected",
	})

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sse client disconnected", "remote_addr", r.RemoteAddr)
			return

		case event, ok := <-ch:
			if !ok {
				s.logger.Info("event bus closed, ending sse stream")
				return
			}
			if sessionID != "" && event.SessionID() != sessionID {
				continue
			}
			s.sendEvent(w, flusher, event)
		}
	}
}

// sendSSEEvent writes one event to the stream.
func (s *Server) sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, eventType string, data interface{}) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		s.logger.Error("failed to marshal sse data", "error", err)
		return
	}

	// SSE format: event: type\ndata: json\n\n
	fmt.Fprintf(w, "event: %s\n", eventType)
	fmt.Fprintf(w, "data: %s\n\n", jsonData)
	flusher.Flush()
}

// sendEvent serializes a bus event. Events carry their own JSON tags,
// so the payload is the event itself.
func (s *Server) sendEvent(w http.ResponseWriter, flusher http.Flusher, event events.Event) {
	s.sendSSEEvent(w, flusher, event.EventType(), event)
}
