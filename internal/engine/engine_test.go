package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/gyaneshwarpardhi/caseflow/internal/config"
	"github.com/gyaneshwarpardhi/caseflow/internal/editor"
	"github.com/gyaneshwarpardhi/caseflow/internal/event"
	"github.com/gyaneshwarpardhi/caseflow/internal/flow"
	"github.com/gyaneshwarpardhi/caseflow/internal/handoff"
	"github.com/gyaneshwarpardhi/caseflow/internal/handoff/chatbot"
	"github.com/gyaneshwarpardhi/caseflow/internal/layout"
	"github.com/gyaneshwarpardhi/caseflow/internal/preview"
	"github.com/gyaneshwarpardhi/caseflow/internal/storage"
	"github.com/gyaneshwarpardhi/caseflow/internal/storage/sqlite"
)

func newTestEngine(t *testing.T, conf config.EngineConf) (*Engine, *event.Bus) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	bus := event.NewBus(50, 256)
	e := New(ctx, flow.NewGraph(), layout.DefaultConfig(), bus, conf)
	t.Cleanup(func() {
		e.Shutdown()
		cancel()
	})
	return e, bus
}

func defaultConf() config.EngineConf {
	return config.Default().Engine
}

func TestDo_ReturnsCommandError(t *testing.T) {
	e, _ := newTestEngine(t, defaultConf())
	ctx := context.Background()

	err := e.Do(ctx, "select", func(ed *editor.Editor) error {
		return ed.Select("missing")
	})
	if !errors.Is(err, flow.ErrNodeNotFound) {
		t.Errorf("expected ErrNodeNotFound, got %v", err)
	}

	err = e.Do(ctx, "boom", func(*editor.Editor) error {
		panic("kaboom")
	})
	if err == nil || !strings.Contains(err.Error(), "kaboom") {
		t.Errorf("expected panic turned into an error, got %v", err)
	}

	// The worker survives the panic.
	if err := e.View(ctx, "noop", func(*editor.Editor) error { return nil }); err != nil {
		t.Errorf("expected worker alive, got %v", err)
	}
}

func TestDo_QueueFull(t *testing.T) {
	conf := defaultConf()
	conf.QueueDepth = 1
	e, _ := newTestEngine(t, conf)
	ctx := context.Background()

	started := make(chan struct{})
	release := make(chan struct{})
	go e.Do(ctx, "block", func(*editor.Editor) error {
		close(started)
		<-release
		return nil
	})
	<-started
	go e.Do(ctx, "queued", func(*editor.Editor) error { return nil })

	deadline := time.Now().Add(2 * time.Second)
	for e.pool.QueueLen() < 1 {
		if time.Now().After(deadline) {
			t.Fatal("second command never queued")
		}
		time.Sleep(time.Millisecond)
	}

	err := e.Do(ctx, "rejected", func(*editor.Editor) error { return nil })
	if !errors.Is(err, ErrQueueFull) {
		t.Errorf("expected ErrQueueFull, got %v", err)
	}
	if u := e.QueueUtilization(); u != 1 {
		t.Errorf("expected full utilization, got %v", u)
	}
	close(release)
}

func TestDo_Timeout(t *testing.T) {
	conf := defaultConf()
	conf.CommandTimeoutMs = 20
	e, _ := newTestEngine(t, conf)

	err := e.Do(context.Background(), "slow", func(*editor.Editor) error {
		time.Sleep(200 * time.Millisecond)
		return nil
	})
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("expected ErrTimeout, got %v", err)
	}
}

func TestDo_MarksRevision(t *testing.T) {
	e, bus := newTestEngine(t, defaultConf())
	ctx := context.Background()

	e.View(ctx, "noop", func(*editor.Editor) error { return nil })
	if e.Revision() != 0 {
		t.Errorf("View must not bump the revision, got %d", e.Revision())
	}
	err := e.Do(ctx, "create_case", func(ed *editor.Editor) error {
		_, err := ed.CreateCase(layout.Point{X: 100, Y: 100})
		return err
	})
	if err != nil {
		t.Fatalf("create_case error: %v", err)
	}
	if e.Revision() != 1 {
		t.Errorf("expected revision 1, got %d", e.Revision())
	}
	if len(bus.Recent(0)) == 0 {
		t.Error("expected editor events on the bus")
	}
}

func TestDo_FailedCommandKeepsRevision(t *testing.T) {
	e, _ := newTestEngine(t, defaultConf())
	ctx := context.Background()

	cases := []struct {
		name string
		fn   func(*editor.Editor) error
	}{
		{"error", func(ed *editor.Editor) error { return ed.Select("missing") }},
		{"panic", func(*editor.Editor) error { panic("boom") }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := e.Do(ctx, tc.name, tc.fn); err == nil {
				t.Fatal("expected an error")
			}
			if e.Revision() != 0 {
				t.Errorf("expected revision 0, got %d", e.Revision())
			}
			if e.dirty.Load() {
				t.Error("expected a failed command to leave the engine clean")
			}
		})
	}
}

func buildGreatFlow(t *testing.T, e *Engine) {
	t.Helper()
	err := e.Do(context.Background(), "build", func(ed *editor.Editor) error {
		c, err := ed.CreateCase(layout.Point{X: 100, Y: 100})
		if err != nil {
			return err
		}
		if err := ed.SetPrompt(c.ID(), "Continue?"); err != nil {
			return err
		}
		if err := ed.UpdateRow(c.ID(), 0, flow.Option{Match: "Yes", Response: "Yes"}); err != nil {
			return err
		}
		ans := ed.Graph().FindOutgoing(flow.RowAnchor(c.ID(), 0)).To.NodeID
		return ed.SetResponseText(ans, "Great!")
	})
	if err != nil {
		t.Fatalf("build flow: %v", err)
	}
}

func TestPreview_WalkToHandoff(t *testing.T) {
	e, bus := newTestEngine(t, defaultConf())
	reg := handoff.NewRegistry()
	reg.Register(chatbot.New())
	b, err := reg.Bind("chatbot", map[string]interface{}{"url": "https://bots.example.com"})
	if err != nil {
		t.Fatalf("Bind error: %v", err)
	}
	e.SetHandoff(b)
	buildGreatFlow(t, e)
	ctx := context.Background()

	id, turn, err := e.StartPreview(ctx)
	if err != nil {
		t.Fatalf("StartPreview error: %v", err)
	}
	if turn.State != preview.StateCase || len(turn.Choices) != 1 {
		t.Fatalf("unexpected first turn %+v", turn)
	}

	turn, err = e.PreviewSay(ctx, id, "yes")
	if err != nil {
		t.Fatalf("PreviewSay error: %v", err)
	}
	if turn.State != preview.StateHandoff {
		t.Fatalf("expected hand-off, got %+v", turn)
	}
	if turn.Handoff == nil || turn.Handoff.URL != "https://bots.example.com" {
		t.Errorf("expected chatbot result, got %+v", turn.Handoff)
	}

	history, err := e.PreviewHistory(ctx, id)
	if err != nil || len(history) != 3 {
		t.Errorf("expected 3 messages, got %d (%v)", len(history), err)
	}

	var terminal int
	for _, ev := range bus.Recent(0) {
		if ev.Type == event.PreviewTerminal {
			terminal++
		}
	}
	if terminal != 1 {
		t.Errorf("expected one preview_terminal event, got %d", terminal)
	}

	if err := e.ClosePreview(ctx, id); err != nil {
		t.Fatalf("ClosePreview error: %v", err)
	}
	if _, err := e.PreviewCurrent(ctx, id); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestPreview_SessionLimit(t *testing.T) {
	conf := defaultConf()
	conf.MaxPreviewSessions = 1
	e, _ := newTestEngine(t, conf)
	ctx := context.Background()

	if _, _, err := e.StartPreview(ctx); err != nil {
		t.Fatalf("StartPreview error: %v", err)
	}
	if _, _, err := e.StartPreview(ctx); !errors.Is(err, ErrTooManySessions) {
		t.Errorf("expected ErrTooManySessions, got %v", err)
	}
}

func TestSnapshot_SaveAndRestore(t *testing.T) {
	e, _ := newTestEngine(t, defaultConf())
	ctx := context.Background()

	if _, err := e.SaveSnapshot(ctx); !errors.Is(err, ErrNoStore) {
		t.Fatalf("expected ErrNoStore, got %v", err)
	}

	store, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("sqlite.New error: %v", err)
	}
	defer store.Close()
	e.SetStore(store, config.AutosaveConf{Name: "test", Keep: 2})

	if _, err := e.Restore(ctx, ""); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound on an empty store, got %v", err)
	}

	buildGreatFlow(t, e)
	snap, err := e.SaveSnapshot(ctx)
	if err != nil {
		t.Fatalf("SaveSnapshot error: %v", err)
	}
	if snap.Nodes != 2 || snap.Connections != 1 {
		t.Errorf("unexpected snapshot %+v", snap)
	}

	e.Do(ctx, "clear", func(ed *editor.Editor) error {
		ed.Graph().Clear()
		return nil
	})
	report, err := e.Restore(ctx, "")
	if err != nil {
		t.Fatalf("Restore error: %v", err)
	}
	if report.Nodes != 2 || report.Connections != 1 {
		t.Errorf("unexpected report %+v", report)
	}

	for i := 0; i < 3; i++ {
		if _, err := e.SaveSnapshot(ctx); err != nil {
			t.Fatalf("SaveSnapshot error: %v", err)
		}
	}
	list, err := e.Snapshots(ctx, 0)
	if err != nil {
		t.Fatalf("Snapshots error: %v", err)
	}
	if len(list) != 2 {
		t.Errorf("expected pruning to keep 2, got %d", len(list))
	}
}

func TestConnect_CountsRejection(t *testing.T) {
	e, _ := newTestEngine(t, defaultConf())
	ctx := context.Background()
	var a1, a2, target string
	e.Do(ctx, "setup", func(ed *editor.Editor) error {
		g := ed.Graph()
		a1 = g.NewAnswer(flow.Position{}).ID()
		a2 = g.NewAnswer(flow.Position{}).ID()
		target = g.NewCase(flow.Position{}).ID()
		return nil
	})
	if _, err := e.Connect(ctx, flow.OutputAnchor(a1), target, ""); err != nil {
		t.Fatalf("Connect error: %v", err)
	}
	if _, err := e.Connect(ctx, flow.OutputAnchor(a2), target, ""); !errors.Is(err, flow.ErrPortOccupied) {
		t.Errorf("expected ErrPortOccupied, got %v", err)
	}
}
