package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/gyaneshwarpardhi/caseflow/internal/flow"
	"github.com/gyaneshwarpardhi/caseflow/internal/flowio"
	"github.com/gyaneshwarpardhi/caseflow/internal/storage"
)

func testStore(t *testing.T) *PGStore {
	t.Helper()
	dsn := os.Getenv("CASEFLOW_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("CASEFLOW_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	s, err := Open(ctx, dsn)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	t.Cleanup(func() {
		s.DropSchema(ctx)
		s.Close()
	})
	if _, err := s.Prune(ctx, t.Name(), 0); err != nil {
		t.Fatalf("Prune error: %v", err)
	}
	return s
}

func TestPGStore_RoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	g := flow.NewGraph()
	c := g.NewCase(flow.Position{X: 1, Y: 2})
	c.SetPrompt("Continue?")
	g.AddOption(c.ID(), flow.Option{Match: "Yes", Response: "Yes"})

	var last *storage.Snapshot
	for i := 0; i < 3; i++ {
		snap, err := storage.NewSnapshot(t.Name(), flowio.Export(g, base), base.Add(time.Duration(i)*time.Second))
		if err != nil {
			t.Fatalf("NewSnapshot error: %v", err)
		}
		if err := s.Save(ctx, snap); err != nil {
			t.Fatalf("Save error: %v", err)
		}
		last = snap
	}

	latest, err := s.Latest(ctx, t.Name())
	if err != nil {
		t.Fatalf("Latest error: %v", err)
	}
	if latest.ID != last.ID {
		t.Errorf("expected %s, got %s", last.ID, latest.ID)
	}
	doc, err := latest.Document()
	if err != nil {
		t.Fatalf("Document error: %v", err)
	}
	if len(doc.Nodes) != 1 || doc.Nodes[0].Prompt != "Continue?" || len(doc.Nodes[0].Rows) != 1 {
		t.Errorf("unexpected document %+v", doc.Nodes)
	}

	list, err := s.List(ctx, t.Name(), 0)
	if err != nil || len(list) != 3 {
		t.Fatalf("expected 3 snapshots, got %d (%v)", len(list), err)
	}
	n, err := s.Prune(ctx, t.Name(), 1)
	if err != nil || n != 2 {
		t.Errorf("expected 2 pruned, got %d (%v)", n, err)
	}
	if _, err := s.Get(ctx, list[2].ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
