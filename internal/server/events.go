package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/claude/liftlog/internal/timer"
)

// sseEvent is an SSE message to send to subscribers.
type sseEvent struct {
	Event string
	Data  string
}

// Events fans session and timer changes out to SSE subscribers. Publishing
// never blocks; a subscriber that falls behind misses events.
type Events struct {
	mu   sync.Mutex
	subs map[chan sseEvent]struct{}
}

// NewEvents creates an empty broker.
func NewEvents() *Events {
	return &Events{subs: make(map[chan sseEvent]struct{})}
}

// PublishTimer forwards a rest timer change. It is safe to use as the
// timer's OnEvent callback: it only touches the broker.
func (e *Events) PublishTimer(ev timer.Event) {
	e.Publish("timer", ev)
}

// Publish sends v as JSON under the given event name.
func (e *Events) Publish(event string, v any) {
	e.broadcast(sseEvent{Event: event, Data: mustJSON(v)})
}

func (e *Events) broadcast(event sseEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for ch := range e.subs {
		select {
		case ch <- event:
		default:
			// slow subscriber, skip
		}
	}
}

func (e *Events) subscribe() chan sseEvent {
	ch := make(chan sseEvent, 32)
	e.mu.Lock()
	e.subs[ch] = struct{}{}
	e.mu.Unlock()
	return ch
}

func (e *Events) unsubscribe(ch chan sseEvent) {
	e.mu.Lock()
	delete(e.subs, ch)
	e.mu.Unlock()
}

func (e *Events) subscribers() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.subs)
}

func (s *Server) handleSessionEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming not supported"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := s.events.subscribe()
	defer s.events.unsubscribe(ch)

	// Send current state immediately
	fmt.Fprintf(w, "event: session\ndata: %s\n\n", mustJSON(s.session.Snapshot()))
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case evt := <-ch:
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Event, evt.Data)
			flusher.Flush()
		}
	}
}

// publishSession pushes the current session snapshot to subscribers.
func (s *Server) publishSession() {
	s.events.Publish("session", s.session.Snapshot())
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return `{}`
	}
	return string(b)
}
