package pubsub

import (
	"context"
	"encoding/json"

	"github.com/ritzau/graph-explorer/pkg/layout"
)

// Topics and event types
const (
	// SnapshotStatusTopic carries SnapshotStatus events
	SnapshotStatusTopic = "snapshot_status"

	EventViewDiff = "view_diff"
	EventLayout   = "layout"

	StatusLoading = "loading"
	StatusReady   = "ready"
	StatusError   = "error"
)

// SessionTopic is the topic a session's view changes are published on
func SessionTopic(sessionID string) string {
	return "session:" + sessionID
}

// Event represents a pub/sub event
type Event struct {
	Topic   string          `json:"topic"`   // Subscription topic (e.g., "snapshot_status", "session:<id>")
	Type    string          `json:"type"`    // Event type (e.g., "view_diff", "layout", "ready")
	Data    json.RawMessage `json:"data"`    // Event payload
	Version int             `json:"version"` // Version number for ordering
}

// Subscription represents a client subscription to a topic
type Subscription interface {
	// Topic returns the subscription topic
	Topic() string

	// Events returns a channel for receiving events
	Events() <-chan Event

	// Close closes the subscription
	Close() error
}

// Publisher manages pub/sub subscriptions and event publishing
type Publisher interface {
	// Subscribe creates a new subscription to a topic
	// Context cancellation will close the subscription
	Subscribe(ctx context.Context, topic string) (Subscription, error)

	// Publish sends an event to all subscribers of a topic
	Publish(topic string, eventType string, data any) error

	// Close shuts down the publisher and all subscriptions
	Close() error
}

// Recorder observes publishing
type Recorder interface {
	RecordEvent(eventType string)
	SetSubscribers(n int)
}

// SnapshotStatus reports the state of the loaded snapshot
type SnapshotStatus struct {
	State        string `json:"state"`   // loading, ready, error
	Message      string `json:"message"` // Human-readable status message
	Source       string `json:"source"`
	Nodes        int    `json:"nodes"`
	Edges        int    `json:"edges"`
	DroppedEdges int    `json:"droppedEdges"`
	Unclassified int    `json:"unclassified"`
}

// LayoutData carries positions for the nodes of a session view
type LayoutData struct {
	Positions map[string]layout.Position `json:"positions"`
	Converged bool                       `json:"converged"`
	Ticks     int                        `json:"ticks"`
}
