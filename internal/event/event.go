package event

import (
	"time"

	"github.com/google/uuid"
)

// Type names what happened.
type Type string

const (
	NodeAdded         Type = "node_added"
	NodeRemoved       Type = "node_removed"
	NodeUpdated       Type = "node_updated"
	ConnectionChanged Type = "connection_changed"
	RowsChanged       Type = "rows_changed"
	RootChanged       Type = "root_changed"
	GraphCleared      Type = "graph_cleared"
	GraphImported     Type = "graph_imported"
	SelectionChanged  Type = "selection_changed"
	PreviewTurn       Type = "preview_turn"
	PreviewTerminal   Type = "preview_terminal"
	SnapshotSaved     Type = "snapshot_saved"
)

// Event is the notification model sent to the presentation layer.
type Event struct {
	ID         string                 `json:"id"`
	Type       Type                   `json:"type"`
	NodeID     string                 `json:"node_id,omitempty"`
	OccurredAt time.Time              `json:"occurred_at"`
	Source     string                 `json:"source"`            // "editor", "preview", "autosave"
	Payload    map[string]interface{} `json:"payload,omitempty"` // type-specific data
}

// New stamps an event with a fresh id and the current time.
func New(typ Type, source, nodeID string, payload map[string]interface{}) Event {
	return Event{
		ID:         uuid.New().String(),
		Type:       typ,
		NodeID:     nodeID,
		OccurredAt: time.Now().UTC(),
		Source:     source,
		Payload:    payload,
	}
}
