package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
)

const bufferSize = 64

// Subscription receives the frames published to its topics until Close.
type Subscription struct {
	hub    *Hub
	topics []string
	ch     chan string
	once   sync.Once
	done   chan struct{}
}

// Events yields pre-formatted SSE frames.
func (s *Subscription) Events() <-chan string { return s.ch }

func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.unsubscribe(s)
		close(s.done)
	})
}

// Hub fans published events out to topic subscribers. Publishing never
// blocks: a subscriber with a full buffer misses frames.
type Hub struct {
	mu      sync.RWMutex
	topics  map[string]map[*Subscription]struct{}
	seq     atomic.Uint64
	ping    time.Duration
	retryMs int
}

func NewHub(ping time.Duration) *Hub {
	if ping <= 0 {
		ping = 30 * time.Second
	}
	return &Hub{topics: make(map[string]map[*Subscription]struct{}), ping: ping, retryMs: 5000}
}

func (h *Hub) Subscribe(topics ...string) *Subscription {
	s := &Subscription{hub: h, topics: topics, ch: make(chan string, bufferSize), done: make(chan struct{})}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, t := range topics {
		subs := h.topics[t]
		if subs == nil {
			subs = make(map[*Subscription]struct{})
			h.topics[t] = subs
		}
		subs[s] = struct{}{}
	}
	return s
}

func (h *Hub) unsubscribe(s *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, t := range s.topics {
		delete(h.topics[t], s)
		if len(h.topics[t]) == 0 {
			delete(h.topics, t)
		}
	}
}

// Publish sends a named event with a JSON payload to every subscriber of
// topic and returns how many frames were queued.
func (h *Hub) Publish(topic, event string, v any) (int, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return 0, err
	}
	frame := formatFrame(h.seq.Add(1), event, data)

	h.mu.RLock()
	defer h.mu.RUnlock()
	queued := 0
	for s := range h.topics[topic] {
		select {
		case s.ch <- frame:
			queued++
		default:
		}
	}
	return queued, nil
}

func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

func formatFrame(id uint64, event string, data []byte) string {
	var b strings.Builder
	fmt.Fprintf(&b, "id: %d\n", id)
	if event != "" {
		fmt.Fprintf(&b, "event: %s\n", event)
	}
	fmt.Fprintf(&b, "data: %s\n\n", data)
	return b.String()
}

// Serve streams the topics to the request until the client goes away.
func (h *Hub) Serve(c *gin.Context, topics ...string) {
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.Status(http.StatusInternalServerError)
		return
	}
	sub := h.Subscribe(topics...)
	defer sub.Close()

	header := c.Writer.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	c.Writer.WriteHeader(http.StatusOK)
	fmt.Fprintf(c.Writer, "retry: %d\n\n", h.retryMs)
	flusher.Flush()

	ticker := time.NewTicker(h.ping)
	defer ticker.Stop()
	for {
		select {
		case <-c.Request.Context().Done():
			return
		case <-sub.done:
			return
		case <-ticker.C:
			fmt.Fprint(c.Writer, ": ping\n\n")
			flusher.Flush()
		case frame := <-sub.ch:
			if _, err := c.Writer.Write([]byte(frame)); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
