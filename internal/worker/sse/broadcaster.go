// Package sse pushes ledger events to Server-Sent Events subscribers.
package sse

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

const (
	// ClientBuffer is how many events a subscriber may lag behind before it
	// is dropped as a slow consumer.
	ClientBuffer = 64
	// HeartbeatInterval keeps idle connections open through proxies.
	HeartbeatInterval = 30 * time.Second
)

// Event types published by the worker.
const (
	EventConnected      = "connected"
	EventThoughtAdded   = "thought_added"
	EventSessionRemoved = "session_removed"
	EventContradiction  = "contradiction"
)

// Event is one message on the stream.
type Event struct {
	Data    any    `json:"data,omitempty"`
	Type    string `json:"type"`
	Session string `json:"session,omitempty"`
}

// Client is one subscriber. A non-empty Session limits it to that
// session's events.
type Client struct {
	messages chan []byte
	done     chan struct{}
	ID       string
	Session  string
	once     sync.Once
}

// Done is closed when the client is removed.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) close() {
	c.once.Do(func() { close(c.done) })
}

// Broadcaster fans events out to subscribers without ever blocking the
// publisher.
type Broadcaster struct {
	clients map[string]*Client
	mu      sync.RWMutex
	nextID  int
}

// NewBroadcaster creates a new SSE broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		clients: make(map[string]*Client),
	}
}

// Subscribe registers a client for session ("" for all sessions).
func (b *Broadcaster) Subscribe(session string) *Client {
	b.mu.Lock()
	b.nextID++
	client := &Client{
		ID:       fmt.Sprintf("client-%d", b.nextID),
		Session:  session,
		messages: make(chan []byte, ClientBuffer),
		done:     make(chan struct{}),
	}
	b.clients[client.ID] = client
	count := len(b.clients)
	b.mu.Unlock()

	log.Debug().
		Str("clientId", client.ID).
		Str("session", session).
		Int("totalClients", count).
		Msg("SSE client connected")

	return client
}

// Unsubscribe removes a client. Safe to call more than once.
func (b *Broadcaster) Unsubscribe(client *Client) {
	b.mu.Lock()
	delete(b.clients, client.ID)
	count := len(b.clients)
	b.mu.Unlock()

	client.close()

	log.Debug().
		Str("clientId", client.ID).
		Int("totalClients", count).
		Msg("SSE client disconnected")
}

// Publish queues ev for every matching client. Clients whose buffer is
// full are dropped.
func (b *Broadcaster) Publish(ev Event) {
	payload, err := encode(ev)
	if err != nil {
		log.Error().Err(err).Str("type", ev.Type).Msg("Failed to marshal SSE event")
		return
	}

	var slow []*Client
	b.mu.RLock()
	for _, c := range b.clients {
		if c.Session != "" && ev.Session != "" && c.Session != ev.Session {
			continue
		}
		select {
		case c.messages <- payload:
		default:
			slow = append(slow, c)
		}
	}
	b.mu.RUnlock()

	for _, c := range slow {
		log.Warn().Str("clientId", c.ID).Msg("SSE client too slow, dropping")
		b.Unsubscribe(c)
	}
}

// ClientCount returns the number of connected clients.
func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Close disconnects every client.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	clients := b.clients
	b.clients = make(map[string]*Client)
	b.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}

func encode(ev Event) ([]byte, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", ev.Type, data)), nil
}

// HandleSSE streams events until the request ends or the client is
// dropped. ?session= restricts the stream to one session.
func (b *Broadcaster) HandleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	client := b.Subscribe(r.URL.Query().Get("session"))
	defer b.Unsubscribe(client)

	hello, err := encode(Event{Type: EventConnected, Data: map[string]string{"clientId": client.ID}})
	if err != nil {
		return
	}
	if _, err := w.Write(hello); err != nil {
		return
	}
	flusher.Flush()

	heartbeat := time.NewTicker(HeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-client.done:
			return
		case msg := <-client.messages:
			if _, err := w.Write(msg); err != nil {
				log.Debug().Err(err).Str("clientId", client.ID).Msg("SSE write failed")
				return
			}
			flusher.Flush()
		case <-heartbeat.C:
			if _, err := w.Write([]byte(": ping\n\n")); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
