// Package editor implements the user-facing editing commands on top of a
// flow graph: auto-wired answers, placement, selection and event
// publication.
package editor

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gyaneshwarpardhi/caseflow/internal/event"
	"github.com/gyaneshwarpardhi/caseflow/internal/flow"
	"github.com/gyaneshwarpardhi/caseflow/internal/flowio"
	"github.com/gyaneshwarpardhi/caseflow/internal/layout"
)

const (
	source = "editor"

	// DefaultOptionText labels the row every new case starts with.
	DefaultOptionText = "Option 1"
	// NewOptionText labels rows added from the node's add button.
	NewOptionText = "New option"
	// NextQuestionText fills an empty follow-up question on AddNext.
	NextQuestionText = "Next question…"

	duplicateDX = 80
	duplicateDY = 40
)

// Publisher receives the editor's events.
type Publisher interface {
	Publish(e event.Event) int
}

// Editor owns one graph and applies commands to it. It is not safe for
// concurrent use; the engine serializes calls.
type Editor struct {
	g        *flow.Graph
	layout   layout.Config
	pub      Publisher
	selected string
	muted    bool
}

// New wraps g. pub may be nil.
func New(g *flow.Graph, cfg layout.Config, pub Publisher) *Editor {
	e := &Editor{g: g, layout: cfg, pub: pub}
	g.OnChange(e.onChange)
	return e
}

// Graph exposes the underlying graph for read access.
func (e *Editor) Graph() *flow.Graph { return e.g }

// SetLayout swaps the placement constants, e.g. after a config reload.
func (e *Editor) SetLayout(cfg layout.Config) { e.layout = cfg }

// Selected returns the id of the selected node, or "".
func (e *Editor) Selected() string { return e.selected }

// CreateCase adds a case near preferred, where neither it nor its first
// answer covers an existing node. The case starts with one option wired to
// a fresh answer, and becomes the selection.
func (e *Editor) CreateCase(preferred layout.Point) (*flow.CaseNode, error) {
	spot := layout.FindFreeSpot(e.layout.Occupied(e.g.Nodes()), preferred, e.layout)
	c := e.g.NewCase(flow.Position{X: spot.X, Y: spot.Y})
	if _, _, err := e.AddOption(c.ID(), DefaultOptionText); err != nil {
		return nil, err
	}
	e.setSelection(c.ID())
	return c, nil
}

// AddOption appends a row to a case and wires it to a new answer placed
// beside the case, with the row text as its response.
func (e *Editor) AddOption(caseID, text string) (int, *flow.AnswerNode, error) {
	c, err := e.g.Case(caseID)
	if err != nil {
		return 0, nil, err
	}
	row, err := e.g.AddOption(caseID, flow.Option{Match: text, Response: text})
	if err != nil {
		return 0, nil, err
	}
	a := e.g.NewAnswer(e.layout.AnswerSlot(c.Position(), row))
	a.SetResponseText(text)
	if _, err := e.g.Connect(flow.RowAnchor(caseID, row), a.ID(), caseID); err != nil {
		return row, a, fmt.Errorf("wire answer for row %d: %w", row, err)
	}
	return row, a, nil
}

// AddFollowOption appends a follow-up row to an answer. Nothing is wired
// to it.
func (e *Editor) AddFollowOption(answerID, text string) (int, error) {
	return e.g.AddFollowOption(answerID, flow.Option{Match: text, Response: text})
}

// AddNext prepares an answer for a follow-up: it gets a first option when
// it has none and a placeholder question when its question is blank.
func (e *Editor) AddNext(answerID string) error {
	a, err := e.g.Answer(answerID)
	if err != nil {
		return err
	}
	if len(a.FollowOptions()) == 0 {
		if _, err := e.AddFollowOption(answerID, DefaultOptionText); err != nil {
			return err
		}
	}
	if strings.TrimSpace(a.FollowUpQuestion()) == "" {
		a.SetFollowUpQuestion(NextQuestionText)
		e.publish(event.NodeUpdated, answerID, map[string]interface{}{"field": "follow_q"})
	}
	return nil
}

// Duplicate copies a node's fields and rows to a new node offset from the
// original. Connections and the root flag are not copied.
func (e *Editor) Duplicate(id string) (flow.Node, error) {
	n := e.g.Node(id)
	if n == nil {
		return nil, fmt.Errorf("%w: %s", flow.ErrNodeNotFound, id)
	}
	pos := n.Position()
	pos.X += duplicateDX
	pos.Y += duplicateDY

	var dup flow.Node
	switch src := n.(type) {
	case *flow.CaseNode:
		c := e.g.NewCase(pos)
		c.SetPrompt(src.Prompt())
		if err := c.SetSchedule(src.Schedule()); err != nil {
			return nil, err
		}
		for _, opt := range src.Options() {
			if _, err := e.g.AddOption(c.ID(), opt); err != nil {
				return nil, err
			}
		}
		dup = c
	case *flow.AnswerNode:
		a := e.g.NewAnswer(pos)
		a.SetResponseText(src.ResponseText())
		a.SetFollowUpQuestion(src.FollowUpQuestion())
		for _, opt := range src.FollowOptions() {
			if _, err := e.g.AddFollowOption(a.ID(), opt); err != nil {
				return nil, err
			}
		}
		dup = a
	}
	e.setSelection(dup.ID())
	return dup, nil
}

// Select makes id the selected node.
func (e *Editor) Select(id string) error {
	if e.g.Node(id) == nil {
		return fmt.Errorf("%w: %s", flow.ErrNodeNotFound, id)
	}
	e.setSelection(id)
	return nil
}

// ClearSelection deselects whatever is selected.
func (e *Editor) ClearSelection() {
	e.setSelection("")
}

func (e *Editor) setSelection(id string) {
	if e.selected == id {
		return
	}
	e.selected = id
	e.publish(event.SelectionChanged, id, nil)
}

// Move places a node at pos.
func (e *Editor) Move(id string, pos flow.Position) error {
	n := e.g.Node(id)
	if n == nil {
		return fmt.Errorf("%w: %s", flow.ErrNodeNotFound, id)
	}
	n.SetPosition(pos)
	e.publish(event.NodeUpdated, id, map[string]interface{}{"field": "position", "x": pos.X, "y": pos.Y})
	return nil
}

// MakeRoot marks a case as the preview start.
func (e *Editor) MakeRoot(id string) error {
	return e.g.SetRoot(id)
}

func (e *Editor) SetPrompt(caseID, prompt string) error {
	c, err := e.g.Case(caseID)
	if err != nil {
		return err
	}
	c.SetPrompt(prompt)
	e.publish(event.NodeUpdated, caseID, map[string]interface{}{"field": "q"})
	return nil
}

// SetSchedule validates and stores a case's schedule. An indefinite
// schedule has no end date.
func (e *Editor) SetSchedule(caseID string, s flow.Schedule) error {
	c, err := e.g.Case(caseID)
	if err != nil {
		return err
	}
	if s.Indefinitely {
		s.End = ""
	}
	if err := c.SetSchedule(s); err != nil {
		return err
	}
	e.publish(event.NodeUpdated, caseID, map[string]interface{}{"field": "schedule"})
	return nil
}

func (e *Editor) SetResponseText(answerID, text string) error {
	a, err := e.g.Answer(answerID)
	if err != nil {
		return err
	}
	a.SetResponseText(text)
	e.publish(event.NodeUpdated, answerID, map[string]interface{}{"field": "text"})
	return nil
}

func (e *Editor) SetFollowUpQuestion(answerID, q string) error {
	a, err := e.g.Answer(answerID)
	if err != nil {
		return err
	}
	a.SetFollowUpQuestion(q)
	e.publish(event.NodeUpdated, answerID, map[string]interface{}{"field": "follow_q"})
	return nil
}

// SetRows replaces the row texts of any node: options of a case, follow-up
// options of an answer.
func (e *Editor) SetRows(id string, matches []string) error {
	n := e.g.Node(id)
	if n == nil {
		return fmt.Errorf("%w: %s", flow.ErrNodeNotFound, id)
	}
	if n.Type() == flow.NodeTypeCase {
		return e.g.SetOptions(id, matches)
	}
	return e.g.SetFollowOptions(id, matches)
}

// RemoveRow removes row index of any node with its subtree.
func (e *Editor) RemoveRow(id string, index int) error {
	n := e.g.Node(id)
	if n == nil {
		return fmt.Errorf("%w: %s", flow.ErrNodeNotFound, id)
	}
	if n.Type() == flow.NodeTypeCase {
		return e.g.RemoveOption(id, index)
	}
	return e.g.RemoveFollowOption(id, index)
}

func (e *Editor) UpdateRow(id string, index int, opt flow.Option) error {
	return e.g.UpdateRow(id, index, opt)
}

// Delete removes a node and the subtree it owns, returning the removed ids.
func (e *Editor) Delete(id string) []string {
	return e.g.DeleteNode(id)
}

// Connect links a source port to a node. A rejected link is logged and the
// error returned; the graph is unchanged.
func (e *Editor) Connect(from flow.Anchor, to, owner string) (*flow.Connection, error) {
	c, err := e.g.Connect(from, to, owner)
	if err != nil {
		if errors.Is(err, flow.ErrPortOccupied) {
			slog.Warn("editor: connect skipped, target already has a parent", "from", from.String(), "to", to)
		}
		return nil, err
	}
	return c, nil
}

// Disconnect removes the link from a source port into the node to.
func (e *Editor) Disconnect(from flow.Anchor, to string) error {
	c := e.g.FindConnection(from, to)
	if c == nil || !e.g.Disconnect(c) {
		return fmt.Errorf("%w: %s -> %s", ErrNoConnection, from, to)
	}
	return nil
}

// ErrNoConnection is returned by Disconnect when no such link exists.
var ErrNoConnection = errors.New("editor: no such connection")

// Export snapshots the graph as a document.
func (e *Editor) Export(now time.Time) *flowio.Document {
	return flowio.Export(e.g, now)
}

// Import replaces the graph with doc. Per-change events are held back and
// a single graph_imported event is published instead.
func (e *Editor) Import(doc *flowio.Document) (*flowio.Report, error) {
	e.muted = true
	report, err := flowio.Import(e.g, doc)
	e.muted = false
	if err != nil {
		return nil, err
	}
	e.selected = ""
	e.publish(event.GraphImported, "", map[string]interface{}{
		"nodes":       report.Nodes,
		"connections": report.Connections,
		"root":        report.Root,
		"warnings":    len(report.Warnings),
	})
	return report, nil
}

func (e *Editor) onChange(c flow.Change) {
	switch c.Kind {
	case flow.ChangeNodeRemoved:
		if e.selected == c.NodeID {
			e.selected = ""
			e.publish(event.SelectionChanged, "", nil)
		}
	case flow.ChangeCleared:
		e.selected = ""
	}

	switch c.Kind {
	case flow.ChangeNodeAdded:
		e.publish(event.NodeAdded, c.NodeID, nil)
	case flow.ChangeNodeRemoved:
		e.publish(event.NodeRemoved, c.NodeID, nil)
	case flow.ChangeConnectionAdded, flow.ChangeConnectionRemoved:
		op := "added"
		if c.Kind == flow.ChangeConnectionRemoved {
			op = "removed"
		}
		e.publish(event.ConnectionChanged, c.NodeID, map[string]interface{}{
			"op":    op,
			"from":  c.Connection.From.String(),
			"to":    c.Connection.To.NodeID,
			"owner": c.Connection.Owner,
		})
	case flow.ChangeRowsChanged:
		e.publish(event.RowsChanged, c.NodeID, nil)
	case flow.ChangeRootChanged:
		e.publish(event.RootChanged, c.NodeID, nil)
	case flow.ChangeCleared:
		e.publish(event.GraphCleared, "", nil)
	}
}

func (e *Editor) publish(typ event.Type, nodeID string, payload map[string]interface{}) {
	if e.pub == nil || e.muted {
		return
	}
	e.pub.Publish(event.New(typ, source, nodeID, payload))
}
