package flowio

import (
	"time"

	"github.com/gyaneshwarpardhi/caseflow/internal/flow"
)

const (
	typeCase   = string(flow.NodeTypeCase)
	typeAnswer = string(flow.NodeTypeAnswer)

	portOut = "out"
	portRow = "row"
	portIn  = "in"
)

// Export snapshots g into a Document stamped with now.
func Export(g *flow.Graph, now time.Time) *Document {
	doc := &Document{
		Meta: Meta{
			Version:    Version,
			ExportedAt: now.UTC().Format(time.RFC3339),
		},
		Nodes:       make([]NodeEntry, 0, g.NodeCount()),
		Connections: []ConnectionEntry{},
	}

	for _, n := range g.Nodes() {
		doc.Nodes = append(doc.Nodes, EntryFor(n))
	}
	for _, c := range g.Connections() {
		doc.Connections = append(doc.Connections, ConnectionEntryFor(c))
	}
	return doc
}

// EntryFor renders one node in document form.
func EntryFor(n flow.Node) NodeEntry {
	pos := n.Position()
	e := NodeEntry{ID: n.ID(), X: pos.X, Y: pos.Y, Type: string(n.Type())}
	switch v := n.(type) {
	case *flow.CaseNode:
		e.Prompt = v.Prompt()
		e.Rows = rowEntries(v.Options())
		e.Schedule = scheduleEntry(v.Schedule())
		e.Root = v.IsRoot()
	case *flow.AnswerNode:
		e.Text = v.ResponseText()
		e.FollowQ = v.FollowUpQuestion()
		e.FollowRows = rowEntries(v.FollowOptions())
	}
	return e
}

// ConnectionEntryFor renders one connection in document form. Row sources
// carry their index; owner is nil for unowned links.
func ConnectionEntryFor(c *flow.Connection) ConnectionEntry {
	from := &Endpoint{Node: c.From.NodeID, Port: portOut}
	if c.From.Role == flow.PortRow {
		idx := c.From.Index
		from.Port = portRow
		from.Index = &idx
	}
	ce := ConnectionEntry{
		From: from,
		To:   &Endpoint{Node: c.To.NodeID, Port: portIn},
	}
	if c.Owner != "" {
		owner := c.Owner
		ce.Owner = &owner
	}
	return ce
}

func rowEntries(opts []flow.Option) []RowEntry {
	out := make([]RowEntry, len(opts))
	for i, o := range opts {
		out[i] = RowEntry{Match: o.Match, Resp: o.Response}
	}
	return out
}

func scheduleEntry(s flow.Schedule) *ScheduleEntry {
	days := make([]string, len(s.Days))
	for i, d := range s.Days {
		days[i] = string(d)
	}
	return &ScheduleEntry{
		Start:        s.Start,
		End:          s.End,
		Days:         days,
		Indefinitely: s.Indefinitely,
	}
}
