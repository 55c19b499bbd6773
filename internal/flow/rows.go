package flow

import "fmt"

// AddOption appends an option to a case node and returns its row index.
// Wiring an answer to the new row is left to the caller.
func (g *Graph) AddOption(caseID string, opt Option) (int, error) {
	c, err := g.Case(caseID)
	if err != nil {
		return 0, err
	}
	return g.appendRow(c, opt), nil
}

// RemoveOption removes option index from a case node, deleting whatever
// hangs off its row port.
func (g *Graph) RemoveOption(caseID string, index int) error {
	c, err := g.Case(caseID)
	if err != nil {
		return err
	}
	return g.removeRowChecked(c, index)
}

// SetOptions replaces the option texts of a case node. Rows that survive
// keep their connections and only get a new match text; rows past the new
// length are removed with their subtrees; new rows are appended.
func (g *Graph) SetOptions(caseID string, matches []string) error {
	c, err := g.Case(caseID)
	if err != nil {
		return err
	}
	g.setRows(c, matches)
	return nil
}

// AddFollowOption appends a follow-up option to an answer node.
func (g *Graph) AddFollowOption(answerID string, opt Option) (int, error) {
	a, err := g.Answer(answerID)
	if err != nil {
		return 0, err
	}
	return g.appendRow(a, opt), nil
}

// RemoveFollowOption removes follow-up option index from an answer node
// with the same cascade as RemoveOption.
func (g *Graph) RemoveFollowOption(answerID string, index int) error {
	a, err := g.Answer(answerID)
	if err != nil {
		return err
	}
	return g.removeRowChecked(a, index)
}

// SetFollowOptions is SetOptions for an answer's follow-up options.
func (g *Graph) SetFollowOptions(answerID string, matches []string) error {
	a, err := g.Answer(answerID)
	if err != nil {
		return err
	}
	g.setRows(a, matches)
	return nil
}

// UpdateRow rewrites the texts of one row of any node in place.
func (g *Graph) UpdateRow(nodeID string, index int, opt Option) error {
	n, ok := g.nodes[nodeID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, nodeID)
	}
	rows := n.rows()
	if index < 0 || index >= len(*rows) {
		return fmt.Errorf("%w: %s has %d rows, got %d", ErrRowOutOfRange, nodeID, len(*rows), index)
	}
	(*rows)[index] = opt
	g.notify(Change{Kind: ChangeRowsChanged, NodeID: nodeID})
	return nil
}

func (g *Graph) appendRow(n Node, opt Option) int {
	rows := n.rows()
	*rows = append(*rows, opt)
	g.notify(Change{Kind: ChangeRowsChanged, NodeID: n.ID()})
	return len(*rows) - 1
}

func (g *Graph) removeRowChecked(n Node, index int) error {
	if index < 0 || index >= len(*n.rows()) {
		return fmt.Errorf("%w: %s has %d rows, got %d", ErrRowOutOfRange, n.ID(), len(*n.rows()), index)
	}
	g.removeRow(n, index, true)
	return nil
}

func (g *Graph) setRows(n Node, matches []string) {
	// A cascade may take earlier rows with it, so always drop the current
	// last row until few enough remain.
	for len(*n.rows()) > len(matches) {
		g.removeRow(n, len(*n.rows())-1, true)
		if g.nodes[n.ID()] == nil {
			return
		}
	}
	rows := n.rows()
	for i, m := range matches {
		if i < len(*rows) {
			(*rows)[i].Match = m
			continue
		}
		opt := Option{Match: m}
		if n.Type() == NodeTypeCase {
			opt.Response = m
		}
		*rows = append(*rows, opt)
	}
	g.notify(Change{Kind: ChangeRowsChanged, NodeID: n.ID()})
}

// removeRow drops row index of n. The row slot is taken out and later
// rows renumbered before anything else, so a cascade that removes other
// rows of n works on the already shifted indices. With cascade the targets
// of the row's connections are deleted afterwards.
func (g *Graph) removeRow(n Node, index int, cascade bool) {
	id := n.ID()
	rows := n.rows()
	if index < 0 || index >= len(*rows) {
		return
	}
	anchor := RowAnchor(id, index)

	var targets []string
	kept := g.conns[:0:0]
	var dropped []*Connection
	for _, c := range g.conns {
		if sameSource(c.From, anchor) {
			dropped = append(dropped, c)
			targets = append(targets, c.To.NodeID)
			continue
		}
		kept = append(kept, c)
	}
	g.conns = kept

	*rows = append((*rows)[:index], (*rows)[index+1:]...)
	for _, c := range g.conns {
		if c.From.NodeID == id && c.From.Role == PortRow && c.From.Index > index {
			c.From.Index--
		}
	}
	for _, c := range dropped {
		g.notify(Change{Kind: ChangeConnectionRemoved, NodeID: c.To.NodeID, Connection: c})
	}
	g.notify(Change{Kind: ChangeRowsChanged, NodeID: id})

	if !cascade {
		return
	}
	for _, t := range targets {
		if t == id {
			continue
		}
		g.DeleteNode(t)
	}
}
