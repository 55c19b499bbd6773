package engine

import (
	"context"
	"errors"
	"time"

	"github.com/gyaneshwarpardhi/caseflow/internal/editor"
	"github.com/gyaneshwarpardhi/caseflow/internal/flow"
	"github.com/gyaneshwarpardhi/caseflow/internal/flowio"
	"github.com/gyaneshwarpardhi/caseflow/internal/metrics"
)

// Export snapshots the flow as a document.
func (e *Engine) Export(ctx context.Context) (*flowio.Document, error) {
	var doc *flowio.Document
	err := e.View(ctx, "export", func(ed *editor.Editor) error {
		doc = ed.Export(time.Now())
		return nil
	})
	return doc, err
}

// Connect links a source port to a node, counting rejected links.
func (e *Engine) Connect(ctx context.Context, from flow.Anchor, to, owner string) (*flow.Connection, error) {
	var conn *flow.Connection
	err := e.Do(ctx, "connect", func(ed *editor.Editor) error {
		c, err := ed.Connect(from, to, owner)
		conn = c
		return err
	})
	if errors.Is(err, flow.ErrPortOccupied) {
		metrics.ConnectsRejected.Inc()
	}
	return conn, err
}
