package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/alfredjeanlab/panelkit/internal/idgen"
	"github.com/alfredjeanlab/panelkit/internal/model"
	"github.com/alfredjeanlab/panelkit/internal/store"
)

// Envelope is the JSON body published for every lifecycle event.
type Envelope struct {
	ID        string          `json:"id"`
	Topic     string          `json:"topic"`
	Component string          `json:"component"`
	Actor     string          `json:"actor,omitempty"`
	Payload   json.RawMessage `json:"payload"`
	Time      time.Time       `json:"time"`
}

// Emitter records lifecycle events in the store and publishes them. Event
// delivery is best-effort: failures are logged and never fail the operation
// that produced the event. A nil *Emitter discards everything.
type Emitter struct {
	store     store.Store
	publisher Publisher
	actor     string
	logger    *slog.Logger
}

// NewEmitter returns an Emitter. A nil publisher only records events.
func NewEmitter(s store.Store, publisher Publisher, actor string, logger *slog.Logger) *Emitter {
	if publisher == nil {
		publisher = &NoopPublisher{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Emitter{store: s, publisher: publisher, actor: actor, logger: logger}
}

// Emit records and publishes one event.
func (e *Emitter) Emit(ctx context.Context, topic, component string, payload any) {
	if e == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		e.logger.Error("marshal event payload", "topic", topic, "err", err)
		return
	}

	if e.store != nil {
		rec := &model.Event{Topic: topic, Component: component, Actor: e.actor, Payload: data}
		if err := e.store.RecordEvent(ctx, rec); err != nil {
			e.logger.Warn("record event failed", "topic", topic, "component", component, "err", err)
		}
	}

	id, err := idgen.Event()
	if err != nil {
		e.logger.Warn("event id", "err", err)
	}
	env := Envelope{
		ID:        id,
		Topic:     topic,
		Component: component,
		Actor:     e.actor,
		Payload:   data,
		Time:      time.Now().UTC(),
	}
	if err := e.publisher.Publish(ctx, topic, env); err != nil {
		e.logger.Warn("publish event failed", "topic", topic, "component", component, "err", err)
	}
}
