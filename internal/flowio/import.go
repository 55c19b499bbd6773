package flowio

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gyaneshwarpardhi/caseflow/internal/flow"
)

// ErrMalformedDocument means the document could not be used at all; the
// target graph was not touched.
var ErrMalformedDocument = errors.New("flowio: malformed document")

// WarningKind classifies an entry that Import skipped or downgraded.
type WarningKind string

const (
	WarnDanglingReference WarningKind = "dangling_reference"
	WarnUnknownNodeType   WarningKind = "unknown_node_type"
	WarnUnresolvedPort    WarningKind = "unresolved_port"
	WarnPortOccupied      WarningKind = "port_occupied"
	WarnMissingOwner      WarningKind = "missing_owner"
	WarnNewerVersion      WarningKind = "newer_version"
	WarnInvalidSchedule   WarningKind = "invalid_schedule"
)

// Warning is one non-fatal problem found during import.
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Message string      `json:"message"`
}

// Report summarises an import.
type Report struct {
	Nodes       int       `json:"nodes"`
	Connections int       `json:"connections"`
	Root        string    `json:"root,omitempty"`
	Warnings    []Warning `json:"warnings"`
}

func (r *Report) warn(kind WarningKind, format string, args ...interface{}) {
	w := Warning{Kind: kind, Message: fmt.Sprintf(format, args...)}
	r.Warnings = append(r.Warnings, w)
	slog.Warn("import: entry skipped", "kind", kind, "detail", w.Message)
}

// pending is a node decoded and validated before the graph is cleared.
type pending struct {
	node flow.Node
	rows []flow.Option
	root bool
}

// Import replaces the contents of g with doc. Every node entry is decoded
// and validated first; if that fails g is left unchanged and the error
// wraps ErrMalformedDocument. Connections are then rebuilt through the
// port resolver, skipping (and reporting) the ones that cannot be restored.
func Import(g *flow.Graph, doc *Document) (*Report, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: empty document", ErrMalformedDocument)
	}
	report := &Report{Warnings: []Warning{}}
	if doc.Meta.Version > Version {
		report.warn(WarnNewerVersion, "document version %d is newer than %d", doc.Meta.Version, Version)
	}

	nodes, err := decodeNodes(doc.Nodes, report)
	if err != nil {
		return nil, err
	}

	g.Clear()
	byID := make(map[string]flow.Node, len(nodes))
	rootID := ""
	for _, p := range nodes {
		if err := g.AddNode(p.node); err != nil {
			// decodeNodes already rejected duplicates.
			return nil, fmt.Errorf("%w: %w", ErrMalformedDocument, err)
		}
		byID[p.node.ID()] = p.node
		for _, row := range p.rows {
			if err := appendRow(g, p.node, row); err != nil {
				return nil, err
			}
		}
		if p.root {
			rootID = p.node.ID()
		}
	}
	if rootID != "" {
		if err := g.SetRoot(rootID); err != nil {
			return nil, err
		}
		report.Root = rootID
	}
	report.Nodes = len(nodes)

	for i, ce := range doc.Connections {
		if restoreConnection(g, byID, i, ce, report) {
			report.Connections++
		}
	}
	return report, nil
}

func decodeNodes(entries []NodeEntry, report *Report) ([]pending, error) {
	seen := make(map[string]bool, len(entries))
	out := make([]pending, 0, len(entries))
	var errs []error

	for i, e := range entries {
		if e.ID == "" {
			errs = append(errs, fmt.Errorf("nodes[%d]: id is required", i))
			continue
		}
		if seen[e.ID] {
			errs = append(errs, fmt.Errorf("nodes[%d]: %w: %s", i, flow.ErrDuplicateID, e.ID))
			continue
		}
		seen[e.ID] = true
		pos := flow.Position{X: e.X, Y: e.Y}

		switch e.Type {
		case typeCase:
			c := flow.NewCaseNode(e.ID, pos)
			c.SetPrompt(e.Prompt)
			if e.Schedule != nil {
				if err := c.SetSchedule(usableSchedule(i, e.ID, *e.Schedule, report)); err != nil {
					errs = append(errs, fmt.Errorf("nodes[%d] %s: %w", i, e.ID, err))
					continue
				}
			}
			out = append(out, pending{node: c, rows: toOptions(e.Rows), root: e.Root})
		case typeAnswer:
			a := flow.NewAnswerNode(e.ID, pos)
			a.SetResponseText(e.Text)
			a.SetFollowUpQuestion(e.FollowQ)
			out = append(out, pending{node: a, rows: toOptions(e.FollowRows)})
		default:
			report.warn(WarnUnknownNodeType, "nodes[%d] %s: type %q", i, e.ID, e.Type)
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrMalformedDocument, errors.Join(errs...))
	}
	return out, nil
}

func appendRow(g *flow.Graph, n flow.Node, row flow.Option) error {
	var err error
	switch n.Type() {
	case flow.NodeTypeCase:
		_, err = g.AddOption(n.ID(), row)
	case flow.NodeTypeAnswer:
		_, err = g.AddFollowOption(n.ID(), row)
	}
	return err
}

func restoreConnection(g *flow.Graph, byID map[string]flow.Node, i int, ce ConnectionEntry, report *Report) bool {
	if ce.From == nil || ce.To == nil {
		report.warn(WarnDanglingReference, "connections[%d]: missing endpoint", i)
		return false
	}
	src, ok := byID[ce.From.Node]
	if !ok {
		report.warn(WarnDanglingReference, "connections[%d]: source %q not found", i, ce.From.Node)
		return false
	}
	if _, ok := byID[ce.To.Node]; !ok {
		report.warn(WarnDanglingReference, "connections[%d]: target %q not found", i, ce.To.Node)
		return false
	}
	owner := ""
	if ce.Owner != nil && *ce.Owner != "" {
		if _, ok := byID[*ce.Owner]; ok {
			owner = *ce.Owner
		} else {
			report.warn(WarnMissingOwner, "connections[%d]: owner %q not found, restored unowned", i, *ce.Owner)
		}
	}

	from, ok := ResolveEndpoint(src, ce.From)
	if !ok {
		report.warn(WarnUnresolvedPort, "connections[%d]: no port %s on %s", i, describe(ce.From), src.ID())
		return false
	}
	if _, err := g.Connect(from, ce.To.Node, owner); err != nil {
		kind := WarnUnresolvedPort
		if errors.Is(err, flow.ErrPortOccupied) {
			kind = WarnPortOccupied
		}
		report.warn(kind, "connections[%d]: %v", i, err)
		return false
	}
	return true
}

// ResolveEndpoint maps a stored endpoint onto a source anchor. Older
// documents name the port through type or kind, use oport/outport/rport,
// or give only a numeric index.
func ResolveEndpoint(n flow.Node, ep *Endpoint) (flow.Anchor, bool) {
	port := ep.Port
	if port == "" {
		port = ep.Type
	}
	if port == "" {
		port = ep.Kind
	}

	switch port {
	case portOut, "oport", "outport":
		if a, ok := flow.ResolveSourceAnchor(n, flow.PortOut, 0); ok {
			return a, true
		}
	}
	if port == portRow || port == "rport" || ep.Index != nil {
		idx := 0
		if ep.Index != nil {
			idx = *ep.Index
		}
		return flow.ResolveSourceAnchor(n, flow.PortRow, idx)
	}
	return flow.Anchor{}, false
}

func describe(ep *Endpoint) string {
	if ep.Index != nil {
		return fmt.Sprintf("%q[%d]", ep.Port, *ep.Index)
	}
	return fmt.Sprintf("%q", ep.Port)
}

func toOptions(rows []RowEntry) []flow.Option {
	out := make([]flow.Option, len(rows))
	for i, r := range rows {
		out[i] = flow.Option{Match: r.Match, Response: r.Resp}
	}
	return out
}

// usableSchedule keeps the parts of e that validate. Unknown days and
// unparseable dates are dropped with a warning.
func usableSchedule(i int, id string, e ScheduleEntry, report *Report) flow.Schedule {
	known, unknown := flow.ParseDays(e.Days)
	if len(unknown) > 0 {
		report.warn(WarnInvalidSchedule, "nodes[%d] %s: unknown days %q dropped", i, id, unknown)
	}
	s := flow.Schedule{Days: known, Indefinitely: e.Indefinitely}
	for _, f := range []struct {
		name, val string
		dst       *string
	}{{"start", e.Start, &s.Start}, {"end", e.End, &s.End}} {
		if f.val == "" {
			continue
		}
		if _, err := time.Parse(flow.DateLayout, f.val); err != nil {
			report.warn(WarnInvalidSchedule, "nodes[%d] %s: %s date %q dropped", i, id, f.name, f.val)
			continue
		}
		*f.dst = f.val
	}
	return s
}

// ToSchedule converts a document schedule to the graph form.
func ToSchedule(e ScheduleEntry) flow.Schedule {
	days := make([]flow.Weekday, len(e.Days))
	for i, d := range e.Days {
		days[i] = flow.Weekday(d)
	}
	return flow.Schedule{
		Start:        e.Start,
		End:          e.End,
		Days:         days,
		Indefinitely: e.Indefinitely,
	}
}
