package flow

// DeleteNode removes a node together with every node it owns, children
// before parents. Each deleted node takes with it the option row that led
// into it and every connection naming it as source, target or owner.
// It returns the removed ids in deletion order; an unknown id is a no-op.
func (g *Graph) DeleteNode(id string) []string {
	if _, ok := g.nodes[id]; !ok {
		return nil
	}
	var removed []string
	for _, nid := range g.deletionOrder(id) {
		if g.removeOne(nid) {
			removed = append(removed, nid)
		}
	}
	return removed
}

// deletionOrder walks owned children depth-first with an explicit stack and
// returns them in post-order. The visited set keeps shared or cyclic
// ownership from being expanded twice.
func (g *Graph) deletionOrder(id string) []string {
	type frame struct {
		id       string
		expanded bool
	}
	visited := map[string]bool{id: true}
	stack := []frame{{id: id}}
	var order []string

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if top.expanded {
			order = append(order, top.id)
			continue
		}
		stack = append(stack, frame{id: top.id, expanded: true})
		children := g.ownedChildren(top.id)
		for i := len(children) - 1; i >= 0; i-- {
			c := children[i]
			if visited[c] {
				continue
			}
			visited[c] = true
			stack = append(stack, frame{id: c})
		}
	}
	return order
}

// ownedChildren returns the distinct, present targets of connections owned
// by id, in connection order.
func (g *Graph) ownedChildren(id string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range g.conns {
		if c.Owner != id {
			continue
		}
		t := c.To.NodeID
		if seen[t] || g.nodes[t] == nil {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

func (g *Graph) removeOne(id string) bool {
	n, ok := g.nodes[id]
	if !ok {
		return false
	}

	// The option that led here goes with the node.
	for _, c := range g.Connections() {
		if c.To.NodeID != id || c.From.Role != PortRow || c.From.NodeID == id {
			continue
		}
		if parent := g.nodes[c.From.NodeID]; parent != nil {
			g.removeRow(parent, c.From.Index, false)
		}
	}

	kept := g.conns[:0:0]
	var dropped []*Connection
	for _, c := range g.conns {
		if c.From.NodeID == id || c.To.NodeID == id || c.Owner == id {
			dropped = append(dropped, c)
			continue
		}
		kept = append(kept, c)
	}
	g.conns = kept
	for _, c := range dropped {
		g.notify(Change{Kind: ChangeConnectionRemoved, NodeID: c.To.NodeID, Connection: c})
	}

	delete(g.nodes, id)
	for i, oid := range g.order {
		if oid == id {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
	if c, ok := n.(*CaseNode); ok && c.root {
		c.root = false
		g.notify(Change{Kind: ChangeRootChanged, NodeID: id})
	}
	g.notify(Change{Kind: ChangeNodeRemoved, NodeID: id})
	return true
}
