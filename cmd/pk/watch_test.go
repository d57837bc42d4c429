package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/alfredjeanlab/panelkit/internal/events"
	"github.com/alfredjeanlab/panelkit/internal/ui"
)

// chanSubscriber hands out one pre-filled channel.
type chanSubscriber struct {
	ch    chan []byte
	topic string
}

func (s *chanSubscriber) Subscribe(topic string) (<-chan []byte, func(), error) {
	s.topic = topic
	return s.ch, func() {}, nil
}

func (s *chanSubscriber) Close() error { return nil }

func envelope(t *testing.T, topic, component string, payload string) []byte {
	t.Helper()
	data, err := json.Marshal(events.Envelope{
		ID:        "ev-1",
		Topic:     topic,
		Component: component,
		Actor:     "cli",
		Payload:   json.RawMessage(payload),
		Time:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestWatchEvents(t *testing.T) {
	ui.ForceNoColor()
	logger = slog.New(slog.DiscardHandler)
	sub := &chanSubscriber{ch: make(chan []byte, 4)}
	sub.ch <- envelope(t, events.TopicComponentInstalled, "sms", `{"version":"1.0.0"}`)
	sub.ch <- []byte("not json")
	sub.ch <- envelope(t, events.TopicParameterSet, "widgets", `{}`)
	sub.ch <- envelope(t, events.TopicComponentUninstalled, "sms", `{}`)
	close(sub.ch)

	var out bytes.Buffer
	if err := watchEvents(context.Background(), sub, events.TopicAll, "sms", &out); err != nil {
		t.Fatal(err)
	}
	if sub.topic != events.TopicAll {
		t.Fatalf("subscribed to %q", sub.topic)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 sms events, got:\n%s", out.String())
	}
	if !strings.Contains(lines[0], "panelkit.component.installed sms by cli {\"version\":\"1.0.0\"}") {
		t.Fatalf("line 0 = %q", lines[0])
	}
	if strings.HasSuffix(lines[1], "{}") {
		t.Fatalf("empty payload should be omitted: %q", lines[1])
	}
}

func TestWatchEvents_StopsOnCancel(t *testing.T) {
	logger = slog.New(slog.DiscardHandler)
	sub := &chanSubscriber{ch: make(chan []byte)}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := watchEvents(ctx, sub, events.TopicAll, "", &bytes.Buffer{}); err != nil {
		t.Fatal(err)
	}
}
