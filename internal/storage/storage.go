// Package storage keeps named snapshots of exported flow documents. The
// sqlite and postgres subpackages implement Store.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gyaneshwarpardhi/caseflow/internal/flowio"
)

var ErrNotFound = errors.New("storage: snapshot not found")

// Snapshot describes one saved document. Body is the document encoded as
// JSON and is only filled by Get and Latest.
type Snapshot struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	SavedAt     time.Time `json:"saved_at"`
	Nodes       int       `json:"nodes"`
	Connections int       `json:"connections"`
	Body        []byte    `json:"-"`
}

// Document decodes the snapshot body.
func (s *Snapshot) Document() (*flowio.Document, error) {
	return flowio.Decode(bytes.NewReader(s.Body), flowio.FormatJSON)
}

// Store persists snapshots. Implementations are safe for concurrent use.
type Store interface {
	Save(ctx context.Context, snap *Snapshot) error
	Get(ctx context.Context, id string) (*Snapshot, error)
	// Latest returns the most recent snapshot saved under name.
	Latest(ctx context.Context, name string) (*Snapshot, error)
	// List returns up to limit snapshots of name, newest first, without
	// bodies. limit <= 0 means no limit.
	List(ctx context.Context, name string, limit int) ([]Snapshot, error)
	// Prune deletes all but the newest keep snapshots of name.
	Prune(ctx context.Context, name string, keep int) (int, error)
	Close() error
}

// NewSnapshot encodes doc under name with a fresh id.
func NewSnapshot(name string, doc *flowio.Document, now time.Time) (*Snapshot, error) {
	var buf bytes.Buffer
	if err := flowio.Encode(&buf, doc, flowio.FormatJSON); err != nil {
		return nil, fmt.Errorf("storage: encode snapshot: %w", err)
	}
	return &Snapshot{
		ID:          uuid.NewString(),
		Name:        name,
		SavedAt:     now.UTC(),
		Nodes:       len(doc.Nodes),
		Connections: len(doc.Connections),
		Body:        buf.Bytes(),
	}, nil
}
