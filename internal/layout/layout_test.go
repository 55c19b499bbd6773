package layout_test

import (
	"testing"

	"github.com/gyaneshwarpardhi/caseflow/internal/flow"
	"github.com/gyaneshwarpardhi/caseflow/internal/layout"
)

func TestRectOverlaps(t *testing.T) {
	base := layout.Rect{X: 0, Y: 0, W: 10, H: 10}
	cases := []struct {
		name string
		o    layout.Rect
		want bool
	}{
		{name: "inside", o: layout.Rect{X: 2, Y: 2, W: 2, H: 2}, want: true},
		{name: "partial", o: layout.Rect{X: 5, Y: 5, W: 10, H: 10}, want: true},
		{name: "touching edge", o: layout.Rect{X: 10, Y: 0, W: 5, H: 5}, want: false},
		{name: "apart", o: layout.Rect{X: 20, Y: 20, W: 5, H: 5}, want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := base.Overlaps(tc.o); got != tc.want {
				t.Errorf("expected %v, got %v", tc.want, got)
			}
			if got := tc.o.Overlaps(base); got != tc.want {
				t.Errorf("not symmetric: expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestFindFreeSpot_EmptyCanvas(t *testing.T) {
	cfg := layout.DefaultConfig()
	got := layout.FindFreeSpot(nil, layout.Point{X: 5, Y: 300}, cfg)
	if got != (layout.Point{X: 20, Y: 300}) {
		t.Errorf("expected clamp to (20, 300), got %+v", got)
	}
}

func TestFindFreeSpot_AvoidsExisting(t *testing.T) {
	cfg := layout.DefaultConfig()
	g := flow.NewGraph()
	g.NewCase(flow.Position{X: 100, Y: 100})
	g.NewAnswer(flow.Position{X: 720, Y: 140})
	occupied := cfg.Occupied(g.Nodes())

	got := layout.FindFreeSpot(occupied, layout.Point{X: 100, Y: 100}, cfg)
	caseBox := layout.Rect{X: got.X, Y: got.Y, W: cfg.CaseWidth, H: cfg.CaseHeight}.Inflate(cfg.Margin)
	ansBox := layout.Rect{X: got.X + cfg.CaseWidth + cfg.Gap, Y: got.Y + 40, W: cfg.AnswerWidth, H: cfg.AnswerHeight}.Inflate(cfg.Margin)
	for _, r := range occupied {
		if r.Overlaps(caseBox) || r.Overlaps(ansBox) {
			t.Fatalf("spot %+v overlaps %+v", got, r)
		}
	}
	if got == (layout.Point{X: 100, Y: 100}) {
		t.Error("expected a different spot than the occupied one")
	}
}

func TestFindFreeSpot_FallsBackToPreferred(t *testing.T) {
	cfg := layout.DefaultConfig()
	cfg.MaxTries = 10
	wall := []layout.Rect{{X: -1e6, Y: -1e6, W: 2e6, H: 2e6}}
	preferred := layout.Point{X: 7, Y: 9}
	if got := layout.FindFreeSpot(wall, preferred, cfg); got != preferred {
		t.Errorf("expected fallback %+v, got %+v", preferred, got)
	}
}

func TestAnswerSlot(t *testing.T) {
	cfg := layout.DefaultConfig()
	got := cfg.AnswerSlot(flow.Position{X: 100, Y: 50}, 2)
	want := flow.Position{X: 100 + 380 + 240, Y: 50 + 40 + 240}
	if got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
}
