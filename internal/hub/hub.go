package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/nao1215/scriptorium/internal/model"
)

// keepAliveInterval is how often idle connections receive a comment so
// intermediaries do not drop them.
const keepAliveInterval = 30 * time.Second

// EventType names a service announcement.
type EventType string

const (
	// EventScriptCreated is sent when a script is created through the API.
	EventScriptCreated EventType = "script-created"
	// EventScriptUpdated is sent when a script is overwritten.
	EventScriptUpdated EventType = "script-updated"
	// EventScriptDeleted is sent when a script is removed.
	EventScriptDeleted EventType = "script-deleted"
	// EventScriptsScanned is sent after each background rescan.
	EventScriptsScanned EventType = "scripts-scanned"
	// EventRunFinished is sent when a run completes, folded failures included.
	EventRunFinished EventType = "run-finished"
)

// Event is one announcement pushed to subscribers.
type Event struct {
	// Type says what happened.
	Type EventType `json:"type"`

	// Script is the affected script, when one is.
	Script string `json:"script,omitempty"`

	// Count carries the script total for scripts-scanned events.
	Count int `json:"count,omitempty"`

	// Status carries the run outcome for run-finished events.
	Status model.RunStatus `json:"status,omitempty"`

	// At is when the event happened.
	At time.Time `json:"at"`
}

// client is one connected subscriber.
type client struct {
	id     string
	events chan []byte
}

// Hub manages Server-Sent Events subscribers.
//
// Design decision: The subscriber map belongs exclusively to the Run
// goroutine because:
//  1. Register, unregister, and broadcast cannot race by construction
//  2. Channel close happens in exactly one place
//  3. Handlers communicate over channels and never block past shutdown
type Hub struct {
	// logger records subscriber churn and dropped events.
	logger *slog.Logger

	register   chan *client
	unregister chan *client
	broadcast  chan Event

	// done is closed when Run exits so handlers stop waiting on it.
	done chan struct{}

	// clientCount mirrors the subscriber map size for observability.
	clientCount atomic.Int32
}

// Option configures a Hub.
type Option func(*Hub)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Hub) {
		h.logger = logger
	}
}

// New creates a Hub. Call Run to start delivering events.
func New(opts ...Option) *Hub {
	h := &Hub{
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan Event, 256),
		done:       make(chan struct{}),
	}

	for _, opt := range opts {
		opt(h)
	}

	if h.logger == nil {
		h.logger = slog.Default()
	}
	return h
}

// Run delivers events until ctx ends, then closes every subscriber
// channel so open connections terminate.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	clients := make(map[*client]struct{})

	for {
		select {
		case c := <-h.register:
			clients[c] = struct{}{}
			h.clientCount.Store(int32(len(clients)))
			h.logger.Debug("event subscriber connected", "subscriber", c.id, "total", len(clients))

		case c := <-h.unregister:
			if _, ok := clients[c]; ok {
				delete(clients, c)
				close(c.events)
			}
			h.clientCount.Store(int32(len(clients)))
			h.logger.Debug("event subscriber disconnected", "subscriber", c.id, "total", len(clients))

		case ev := <-h.broadcast:
			data, err := json.Marshal(ev)
			if err != nil {
				h.logger.Warn("failed to marshal event", "error", err)
				continue
			}
			msg := []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", ev.Type, data))

			for c := range clients {
				select {
				case c.events <- msg:
				default:
					// Slow subscriber; skip this message.
					h.logger.Debug("event subscriber is slow, skipping message", "subscriber", c.id)
				}
			}

		case <-ctx.Done():
			for c := range clients {
				close(c.events)
			}
			h.clientCount.Store(0)
			return
		}
	}
}

// Broadcast queues an event for delivery. It never blocks; when the
// queue is full the event is dropped. A zero At is stamped with the
// current time.
func (h *Hub) Broadcast(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}

	select {
	case h.broadcast <- ev:
	default:
		h.logger.Warn("event queue full, dropping event", "type", ev.Type)
	}
}

// ClientCount returns the number of connected subscribers.
func (h *Hub) ClientCount() int {
	return int(h.clientCount.Load())
}

// ServeHTTP subscribes the caller and streams events until the
// connection or the hub goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	c := &client{
		id:     fmt.Sprintf("%d", time.Now().UnixNano()),
		events: make(chan []byte, 64),
	}

	select {
	case h.register <- c:
	case <-h.done:
		http.Error(w, "service is shutting down", http.StatusServiceUnavailable)
		return
	case <-r.Context().Done():
		return
	}

	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
			// Run already closed every channel.
		}
	}()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	fmt.Fprintf(w, ": connected\n\n")
	flusher.Flush()

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.events:
			if !ok {
				return
			}
			if _, err := w.Write(msg); err != nil {
				return
			}
			flusher.Flush()

		case <-ticker.C:
			if _, err := fmt.Fprintf(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
