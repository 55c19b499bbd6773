package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gyaneshwarpardhi/caseflow/internal/flow"
	"github.com/gyaneshwarpardhi/caseflow/internal/flowio"
	"github.com/gyaneshwarpardhi/caseflow/internal/storage"
)

// newTestStore creates an in-memory SQLite store for testing
func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})
	return s
}

func snapshotAt(t *testing.T, name, prompt string, at time.Time) *storage.Snapshot {
	t.Helper()
	g := flow.NewGraph()
	c := g.NewCase(flow.Position{X: 10, Y: 20})
	c.SetPrompt(prompt)
	snap, err := storage.NewSnapshot(name, flowio.Export(g, at), at)
	if err != nil {
		t.Fatalf("NewSnapshot error: %v", err)
	}
	return snap
}

func TestSaveAndLatest(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for i, prompt := range []string{"first", "second", "third"} {
		if err := s.Save(ctx, snapshotAt(t, "main", prompt, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("Save error: %v", err)
		}
	}
	if err := s.Save(ctx, snapshotAt(t, "other", "elsewhere", base.Add(time.Hour))); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	latest, err := s.Latest(ctx, "main")
	if err != nil {
		t.Fatalf("Latest error: %v", err)
	}
	doc, err := latest.Document()
	if err != nil {
		t.Fatalf("Document error: %v", err)
	}
	if len(doc.Nodes) != 1 || doc.Nodes[0].Prompt != "third" {
		t.Errorf("expected the third snapshot, got %+v", doc.Nodes)
	}
	if !latest.SavedAt.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("expected saved_at %v, got %v", base.Add(2*time.Minute), latest.SavedAt)
	}

	got, err := s.Get(ctx, latest.ID)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got.Name != "main" || got.Nodes != 1 || len(got.Body) == 0 {
		t.Errorf("unexpected snapshot %+v", got)
	}
}

func TestNotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if _, err := s.Latest(ctx, "none"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.Get(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListAndPrune(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 5; i++ {
		snap := snapshotAt(t, "main", "p", base.Add(time.Duration(i)*time.Second))
		ids = append(ids, snap.ID)
		if err := s.Save(ctx, snap); err != nil {
			t.Fatalf("Save error: %v", err)
		}
	}

	list, err := s.List(ctx, "main", 2)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(list) != 2 || list[0].ID != ids[4] || list[1].ID != ids[3] {
		t.Errorf("expected newest two, got %+v", list)
	}
	if list[0].Body != nil {
		t.Error("List should not load bodies")
	}

	n, err := s.Prune(ctx, "main", 3)
	if err != nil {
		t.Fatalf("Prune error: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 pruned, got %d", n)
	}
	all, _ := s.List(ctx, "main", 0)
	if len(all) != 3 {
		t.Errorf("expected 3 left, got %d", len(all))
	}
	if _, err := s.Get(ctx, ids[0]); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("oldest snapshot should be gone, got %v", err)
	}
}
