package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/alfredjeanlab/panelkit/internal/events"
)

const (
	// sseRingBufferSize bounds how far back Last-Event-ID can resume.
	sseRingBufferSize = 1000

	sseKeepaliveInterval = 15 * time.Second
	sseClientBuffer      = 64
)

type sseEvent struct {
	ID        uint64
	Topic     string
	Component string
	Data      []byte
}

func (e *sseEvent) writeTo(w io.Writer) {
	fmt.Fprintf(w, "id:%d\nevent:%s\ndata:%s\n\n", e.ID, e.Topic, e.Data)
}

// replayLog is a fixed-size ring of recent events, oldest overwritten first.
type replayLog struct {
	buf  []sseEvent
	next int
	full bool
}

func (l *replayLog) add(e sseEvent) {
	if l.buf == nil {
		l.buf = make([]sseEvent, sseRingBufferSize)
	}
	l.buf[l.next] = e
	l.next = (l.next + 1) % len(l.buf)
	if l.next == 0 {
		l.full = true
	}
}

// since returns events newer than id, oldest first.
func (l *replayLog) since(id uint64) []*sseEvent {
	var ordered []sseEvent
	if l.full {
		ordered = append(ordered, l.buf[l.next:]...)
	}
	ordered = append(ordered, l.buf[:l.next]...)

	var out []*sseEvent
	for i := range ordered {
		if ordered[i].ID > id {
			out = append(out, &ordered[i])
		}
	}
	return out
}

// sseFilter selects the events a client receives. Zero values match all.
type sseFilter struct {
	topics    []string
	component string
}

func (f sseFilter) matches(e *sseEvent) bool {
	if f.component != "" && f.component != e.Component {
		return false
	}
	if len(f.topics) == 0 {
		return true
	}
	for _, p := range f.topics {
		if matchTopicPattern(p, e.Topic) {
			return true
		}
	}
	return false
}

type sseClient struct {
	filter sseFilter
	ch     chan *sseEvent
}

// sseHub is an events.Publisher that fans lifecycle events out to
// connected stream clients.
type sseHub struct {
	mu      sync.Mutex
	seq     uint64
	log     replayLog
	clients map[*sseClient]struct{}
}

func newSSEHub() *sseHub {
	return &sseHub{clients: make(map[*sseClient]struct{})}
}

// broadcast sends an event that carries no component.
func (h *sseHub) broadcast(topic string, payload []byte) {
	h.deliver(topic, "", payload)
}

func (h *sseHub) deliver(topic, component string, payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seq++
	evt := sseEvent{ID: h.seq, Topic: topic, Component: component, Data: payload}
	h.log.add(evt)
	for c := range h.clients {
		if !c.filter.matches(&evt) {
			continue
		}
		select {
		case c.ch <- &evt:
		default:
			// slow client; it can resume with Last-Event-ID
		}
	}
}

func (h *sseHub) subscribe(topics []string) *sseClient {
	return h.attach(sseFilter{topics: topics})
}

func (h *sseHub) attach(f sseFilter) *sseClient {
	c := &sseClient{filter: f, ch: make(chan *sseEvent, sseClientBuffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	return c
}

func (h *sseHub) unsubscribe(c *sseClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

func (h *sseHub) eventsSince(id uint64) []*sseEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.log.since(id)
}

// Publish implements events.Publisher. Envelopes keep their component so
// clients can filter on it.
func (h *sseHub) Publish(_ context.Context, topic string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode %s for stream clients: %w", topic, err)
	}
	var component string
	if env, ok := event.(events.Envelope); ok {
		component = env.Component
	}
	h.deliver(topic, component, payload)
	return nil
}

func (h *sseHub) Close() error { return nil }

// matchTopicPattern matches dot-separated topics NATS style: "*" is one
// segment and a trailing ">" is one or more.
func matchTopicPattern(pattern, topic string) bool {
	pat := strings.Split(pattern, ".")
	top := strings.Split(topic, ".")
	for i, seg := range pat {
		if seg == ">" && i == len(pat)-1 {
			return len(top) > i
		}
		if i >= len(top) || (seg != "*" && seg != top[i]) {
			return false
		}
	}
	return len(pat) == len(top)
}

func parseTopics(q string) []string {
	var topics []string
	for _, t := range strings.Split(q, ",") {
		if t = strings.TrimSpace(t); t != "" {
			topics = append(topics, t)
		}
	}
	return topics
}

// handleEventStream serves GET /v1/events/stream. Query parameters: topics
// (comma-separated patterns) and component.
func (s *Server) handleEventStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	filter := sseFilter{
		topics:    parseTopics(r.URL.Query().Get("topics")),
		component: r.URL.Query().Get("component"),
	}
	client := s.sseHub.attach(filter)
	defer s.sseHub.unsubscribe(client)

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if last, err := strconv.ParseUint(r.Header.Get("Last-Event-ID"), 10, 64); err == nil {
		for _, evt := range s.sseHub.eventsSince(last) {
			if filter.matches(evt) {
				evt.writeTo(w)
			}
		}
	}
	flusher.Flush()

	keepalive := time.NewTicker(sseKeepaliveInterval)
	defer keepalive.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case evt := <-client.ch:
			evt.writeTo(w)
		case <-keepalive.C:
			io.WriteString(w, ":keepalive\n\n")
		}
		flusher.Flush()
	}
}
