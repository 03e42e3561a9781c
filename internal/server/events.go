package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	constants "sysmon/config"
	"sysmon/internal/logger"
	"sysmon/internal/publisher"
)

type sseMessage struct {
	event string
	data  []byte
}

// Hub streams published events to server-sent event clients. It is a
// publisher.Consumer; slow clients lose events rather than stall the loop.
type Hub struct {
	mu      sync.RWMutex
	clients map[chan sseMessage]struct{}
	buffer  int
	log     *logger.Logger
}

// NewHub creates an empty hub.
func NewHub(log *logger.Logger) *Hub {
	if log == nil {
		log = logger.Default()
	}
	return &Hub{
		clients: make(map[chan sseMessage]struct{}),
		buffer:  constants.SSE_BUFFER_SIZE,
		log:     log,
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Consume encodes ev once and fans it out.
func (h *Hub) Consume(_ context.Context, ev publisher.Event) error {
	var payload interface{}
	switch ev.Name {
	case constants.EVENT_SYSTEM_UPDATE:
		payload = ev.Snapshot
	default:
		payload = map[string]string{"error": ev.Message}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", ev.Name, err)
	}

	msg := sseMessage{event: ev.Name, data: data}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.clients {
		select {
		case ch <- msg:
		default:
			h.log.Debug("SSE client behind, dropped %s", ev.Name)
		}
	}
	return nil
}

func (h *Hub) add() chan sseMessage {
	ch := make(chan sseMessage, h.buffer)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *Hub) remove(ch chan sseMessage) {
	h.mu.Lock()
	delete(h.clients, ch)
	h.mu.Unlock()
}

// ServeHTTP streams events until the client disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := h.add()
	defer h.remove(ch)

	for {
		select {
		case <-r.Context().Done():
			return
		case msg := <-ch:
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.event, msg.data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
