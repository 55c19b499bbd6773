package flowio

import (
	"encoding/json"
)

// Version is written to meta.version of every exported document.
const Version = 1

// Document is the portable form of a flow graph.
type Document struct {
	Meta        Meta              `json:"meta" yaml:"meta"`
	Nodes       []NodeEntry       `json:"nodes" yaml:"nodes"`
	Connections []ConnectionEntry `json:"connections" yaml:"connections"`
}

// Meta carries the format version and the export time (RFC 3339).
type Meta struct {
	Version    int    `json:"version" yaml:"version"`
	ExportedAt string `json:"exportedAt" yaml:"exportedAt"`
}

// NodeEntry is one node. Decoding accepts the union of both node shapes;
// encoding writes only the fields of the entry's type.
type NodeEntry struct {
	ID   string  `json:"id" yaml:"id"`
	X    float64 `json:"x" yaml:"x"`
	Y    float64 `json:"y" yaml:"y"`
	Type string  `json:"type" yaml:"type"`

	// case
	Prompt   string         `json:"q" yaml:"q"`
	Rows     []RowEntry     `json:"rows" yaml:"rows"`
	Schedule *ScheduleEntry `json:"schedule" yaml:"schedule"`
	Root     bool           `json:"root" yaml:"root"`

	// answer
	Text       string     `json:"text" yaml:"text"`
	FollowQ    string     `json:"followQ" yaml:"followQ"`
	FollowRows []RowEntry `json:"followRows" yaml:"followRows"`
}

// RowEntry is one option row.
type RowEntry struct {
	Match string `json:"match" yaml:"match"`
	Resp  string `json:"resp" yaml:"resp"`
}

// ScheduleEntry mirrors flow.Schedule with days kept as raw strings so
// unknown names can be reported instead of failing the decode.
type ScheduleEntry struct {
	Start        string   `json:"start" yaml:"start"`
	End          string   `json:"end" yaml:"end"`
	Days         []string `json:"days" yaml:"days"`
	Indefinitely bool     `json:"indefinitely" yaml:"indefinitely"`
}

// Endpoint is one end of a connection. Type and Kind are older spellings
// of Port that are still accepted on import.
type Endpoint struct {
	Node  string `json:"node" yaml:"node"`
	Port  string `json:"port,omitempty" yaml:"port,omitempty"`
	Index *int   `json:"index,omitempty" yaml:"index,omitempty"`
	Type  string `json:"type,omitempty" yaml:"type,omitempty"`
	Kind  string `json:"kind,omitempty" yaml:"kind,omitempty"`
}

// ConnectionEntry is one connection. Owner is null for unowned links.
type ConnectionEntry struct {
	From  *Endpoint `json:"from" yaml:"from"`
	To    *Endpoint `json:"to" yaml:"to"`
	Owner *string   `json:"owner" yaml:"owner"`
}

type caseEntry struct {
	ID       string        `json:"id" yaml:"id"`
	X        float64       `json:"x" yaml:"x"`
	Y        float64       `json:"y" yaml:"y"`
	Type     string        `json:"type" yaml:"type"`
	Prompt   string        `json:"q" yaml:"q"`
	Rows     []RowEntry    `json:"rows" yaml:"rows"`
	Schedule ScheduleEntry `json:"schedule" yaml:"schedule"`
	Root     bool          `json:"root,omitempty" yaml:"root,omitempty"`
}

type answerEntry struct {
	ID         string     `json:"id" yaml:"id"`
	X          float64    `json:"x" yaml:"x"`
	Y          float64    `json:"y" yaml:"y"`
	Type       string     `json:"type" yaml:"type"`
	Text       string     `json:"text" yaml:"text"`
	FollowQ    string     `json:"followQ" yaml:"followQ"`
	FollowRows []RowEntry `json:"followRows" yaml:"followRows"`
}

type bareEntry struct {
	ID   string  `json:"id" yaml:"id"`
	X    float64 `json:"x" yaml:"x"`
	Y    float64 `json:"y" yaml:"y"`
	Type string  `json:"type" yaml:"type"`
}

func (e NodeEntry) shape() interface{} {
	switch e.Type {
	case typeCase:
		ce := caseEntry{
			ID: e.ID, X: e.X, Y: e.Y, Type: e.Type,
			Prompt: e.Prompt,
			Rows:   nonNilRows(e.Rows),
			Root:   e.Root,
		}
		if e.Schedule != nil {
			ce.Schedule = *e.Schedule
		}
		if ce.Schedule.Days == nil {
			ce.Schedule.Days = []string{}
		}
		return ce
	case typeAnswer:
		return answerEntry{
			ID: e.ID, X: e.X, Y: e.Y, Type: e.Type,
			Text:       e.Text,
			FollowQ:    e.FollowQ,
			FollowRows: nonNilRows(e.FollowRows),
		}
	}
	return bareEntry{ID: e.ID, X: e.X, Y: e.Y, Type: e.Type}
}

// MarshalJSON writes the case or answer shape of the entry.
func (e NodeEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.shape())
}

// MarshalYAML is MarshalJSON for the YAML encoder.
func (e NodeEntry) MarshalYAML() (interface{}, error) {
	return e.shape(), nil
}

func nonNilRows(rows []RowEntry) []RowEntry {
	if rows == nil {
		return []RowEntry{}
	}
	return rows
}
