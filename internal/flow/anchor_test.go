package flow_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/gyaneshwarpardhi/caseflow/internal/flow"
)

func TestAnchor_JSONKeepsRowZero(t *testing.T) {
	cases := []struct {
		name   string
		anchor flow.Anchor
		want   string
	}{
		{"first row", flow.RowAnchor("case_1", 0), `{"node":"case_1","port":"row","index":0}`},
		{"later row", flow.RowAnchor("case_1", 2), `{"node":"case_1","port":"row","index":2}`},
		{"output", flow.OutputAnchor("ans_2"), `{"node":"ans_2","port":"out","index":0}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := json.Marshal(tc.anchor)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			if string(data) != tc.want {
				t.Errorf("expected %s, got %s", tc.want, data)
			}
			var back flow.Anchor
			if err := json.Unmarshal(data, &back); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if back != tc.anchor {
				t.Errorf("expected %v, got %v", tc.anchor, back)
			}
		})
	}
}

func TestConnection_JSONKeepsRowZero(t *testing.T) {
	g := flow.NewGraph()
	c := g.NewCase(flow.Position{})
	a := g.NewAnswer(flow.Position{})
	if _, err := g.AddOption(c.ID(), flow.Option{Match: "Yes"}); err != nil {
		t.Fatalf("AddOption: %v", err)
	}
	conn, err := g.Connect(flow.RowAnchor(c.ID(), 0), a.ID(), c.ID())
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	data, err := json.Marshal(conn)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"from":{"node":"`+c.ID()+`","port":"row","index":0}`) {
		t.Errorf("expected row 0 in source anchor, got %s", data)
	}
	var back flow.Connection
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.From != conn.From || back.To != conn.To || back.Owner != conn.Owner {
		t.Errorf("expected %v, got %v", conn, &back)
	}
}
