package events

import (
	"context"
)

// Event topic constants
const (
	TopicComponentInstalled   = "panelkit.component.installed"
	TopicComponentUninstalled = "panelkit.component.uninstalled"
	TopicComponentMigrated    = "panelkit.component.migrated"
	TopicParameterSet         = "panelkit.parameter.set"
	TopicParameterDeleted     = "panelkit.parameter.deleted"

	// TopicAll matches every panelkit topic.
	TopicAll = "panelkit.>"
)

// Event payloads

type ComponentInstalled struct {
	Version       string   `json:"version"`
	CreatedTables []string `json:"created_tables,omitempty"`
	MenuIDs       []int64  `json:"menu_ids,omitempty"`
}

type ComponentUninstalled struct {
	BackupFile    string   `json:"backup_file,omitempty"`
	DroppedTables []string `json:"dropped_tables,omitempty"`
	Warnings      []string `json:"warnings,omitempty"`
}

type ComponentMigrated struct {
	From    string   `json:"from"`
	To      string   `json:"to"`
	Applied []string `json:"applied"`
}

type ParameterSet struct {
	Section   string `json:"section"`
	Name      string `json:"parameter_name"`
	Value     string `json:"value"`
	ValueType string `json:"value_type"`
}

type ParameterDeleted struct {
	Section string `json:"section"`
	Name    string `json:"parameter_name"`
}

// Publisher fans lifecycle events out to a transport.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}

// Subscriber delivers raw event bodies for a topic pattern. The returned
// cancel func unsubscribes and closes the channel; it is safe to call twice.
type Subscriber interface {
	Subscribe(topic string) (<-chan []byte, func(), error)
	Close() error
}

// NoopPublisher drops every event. It stands in when no bus is configured.
type NoopPublisher struct{}

func (*NoopPublisher) Publish(context.Context, string, any) error { return nil }

func (*NoopPublisher) Close() error { return nil }
