package flow

import "fmt"

// ChangeKind names a structural change to a Graph.
type ChangeKind string

const (
	ChangeNodeAdded         ChangeKind = "node_added"
	ChangeNodeRemoved       ChangeKind = "node_removed"
	ChangeConnectionAdded   ChangeKind = "connection_added"
	ChangeConnectionRemoved ChangeKind = "connection_removed"
	ChangeRowsChanged       ChangeKind = "rows_changed"
	ChangeRootChanged       ChangeKind = "root_changed"
	ChangeCleared           ChangeKind = "cleared"
)

// Change describes one structural change. Connection is set for connection
// changes; NodeID for the rest.
type Change struct {
	Kind       ChangeKind
	NodeID     string
	Connection *Connection
}

// Connection is a directed edge from a source port to a node's input port.
// Owner is the node whose deletion takes this connection's target with it;
// it is empty for unowned links.
type Connection struct {
	From  Anchor `json:"from"`
	To    Anchor `json:"to"`
	Owner string `json:"owner,omitempty"`
}

func (c *Connection) String() string {
	return fmt.Sprintf("%s -> %s (owner %q)", c.From, c.To, c.Owner)
}

// Graph owns every node and connection of a flow. It is not safe for
// concurrent use; callers serialize access.
type Graph struct {
	nodes     map[string]Node
	order     []string
	conns     []*Connection
	ids       *IDAllocator
	observers []func(Change)
}

// NewGraph allocates an empty Graph.
func NewGraph() *Graph {
	return &Graph{
		nodes: make(map[string]Node),
		ids:   NewIDAllocator(),
	}
}

// OnChange registers a callback invoked after every structural change.
func (g *Graph) OnChange(fn func(Change)) {
	g.observers = append(g.observers, fn)
}

func (g *Graph) notify(c Change) {
	for _, fn := range g.observers {
		fn(c)
	}
}

// NewCase creates a case node with a fresh id and adds it.
func (g *Graph) NewCase(pos Position) *CaseNode {
	n := NewCaseNode(g.freshID(CasePrefix), pos)
	g.insert(n)
	return n
}

// NewAnswer creates an answer node with a fresh id and adds it.
func (g *Graph) NewAnswer(pos Position) *AnswerNode {
	n := NewAnswerNode(g.freshID(AnswerPrefix), pos)
	g.insert(n)
	return n
}

func (g *Graph) freshID(prefix string) string {
	for {
		id := g.ids.Next(prefix)
		if _, taken := g.nodes[id]; !taken {
			return id
		}
	}
}

// AddNode inserts a node built elsewhere.
func (g *Graph) AddNode(n Node) error {
	if n == nil || n.ID() == "" {
		return fmt.Errorf("flow: node without id")
	}
	if _, ok := g.nodes[n.ID()]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateID, n.ID())
	}
	g.ids.Observe(n.ID())
	if c, ok := n.(*CaseNode); ok && c.root {
		g.clearRoots(c.id)
	}
	g.insert(n)
	return nil
}

func (g *Graph) insert(n Node) {
	g.nodes[n.ID()] = n
	g.order = append(g.order, n.ID())
	g.notify(Change{Kind: ChangeNodeAdded, NodeID: n.ID()})
}

// Node returns a node by id (nil if not found).
func (g *Graph) Node(id string) Node {
	return g.nodes[id]
}

// Case returns the case node with the given id.
func (g *Graph) Case(id string) (*CaseNode, error) {
	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	c, ok := n.(*CaseNode)
	if !ok {
		return nil, fmt.Errorf("%w: %s is %s, want case", ErrWrongNodeType, id, n.Type())
	}
	return c, nil
}

// Answer returns the answer node with the given id.
func (g *Graph) Answer(id string) (*AnswerNode, error) {
	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	a, ok := n.(*AnswerNode)
	if !ok {
		return nil, fmt.Errorf("%w: %s is %s, want answer", ErrWrongNodeType, id, n.Type())
	}
	return a, nil
}

// Nodes returns every node in insertion order.
func (g *Graph) Nodes() []Node {
	out := make([]Node, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.nodes[id])
	}
	return out
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// Connections returns the connections in creation order. The slice is a
// copy; the connections are shared.
func (g *Graph) Connections() []*Connection {
	out := make([]*Connection, len(g.conns))
	copy(out, g.conns)
	return out
}

// Connect links from to the input of the node to. It returns
// ErrPortOccupied, leaving the graph unchanged, when that input already has
// a parent.
func (g *Graph) Connect(from Anchor, to string, owner string) (*Connection, error) {
	src, ok := g.nodes[from.NodeID]
	if !ok {
		return nil, fmt.Errorf("%w: source %s", ErrNodeNotFound, from.NodeID)
	}
	anchor, ok := ResolveSourceAnchor(src, from.Role, from.Index)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoSuchPort, from)
	}
	dst, ok := g.nodes[to]
	if !ok {
		return nil, fmt.Errorf("%w: target %s", ErrNodeNotFound, to)
	}
	if owner != "" {
		if _, ok := g.nodes[owner]; !ok {
			return nil, fmt.Errorf("%w: owner %s", ErrNodeNotFound, owner)
		}
	}
	if existing := g.FindIncoming(to); existing != nil {
		return nil, fmt.Errorf("%w: %s (from %s)", ErrPortOccupied, to, existing.From)
	}
	c := &Connection{From: anchor, To: ResolveTargetAnchor(dst), Owner: owner}
	g.conns = append(g.conns, c)
	g.notify(Change{Kind: ChangeConnectionAdded, NodeID: to, Connection: c})
	return c, nil
}

// Disconnect removes c. Nodes are left alone. It reports whether c was
// part of the graph.
func (g *Graph) Disconnect(c *Connection) bool {
	for i, existing := range g.conns {
		if existing == c {
			g.conns = append(g.conns[:i], g.conns[i+1:]...)
			g.notify(Change{Kind: ChangeConnectionRemoved, NodeID: c.To.NodeID, Connection: c})
			return true
		}
	}
	return false
}

// FindIncoming returns the connection into the node's input, or nil.
func (g *Graph) FindIncoming(nodeID string) *Connection {
	for _, c := range g.conns {
		if c.To.NodeID == nodeID {
			return c
		}
	}
	return nil
}

// FindOutgoing returns the first connection leaving a, or nil.
func (g *Graph) FindOutgoing(a Anchor) *Connection {
	for _, c := range g.conns {
		if sameSource(c.From, a) {
			return c
		}
	}
	return nil
}

// FindConnection returns the connection from a into the node to, or nil.
func (g *Graph) FindConnection(from Anchor, to string) *Connection {
	for _, c := range g.conns {
		if sameSource(c.From, from) && c.To.NodeID == to {
			return c
		}
	}
	return nil
}

func sameSource(a, b Anchor) bool {
	if a.NodeID != b.NodeID || a.Role != b.Role {
		return false
	}
	return a.Role != PortRow || a.Index == b.Index
}

// RemoveNode deletes a node and the subtree it owns. See DeleteNode.
func (g *Graph) RemoveNode(id string) []string {
	return g.DeleteNode(id)
}

// Clear drops every node and connection and restarts id allocation.
func (g *Graph) Clear() {
	g.nodes = make(map[string]Node)
	g.order = nil
	g.conns = nil
	g.ids.Reset()
	g.notify(Change{Kind: ChangeCleared})
}

// SetRoot marks the case node id as the preview root, clearing the flag on
// every other case first.
func (g *Graph) SetRoot(id string) error {
	c, err := g.Case(id)
	if err != nil {
		return err
	}
	g.clearRoots(id)
	c.root = true
	g.notify(Change{Kind: ChangeRootChanged, NodeID: id})
	return nil
}

// ClearRoot removes the root flag from every case node.
func (g *Graph) ClearRoot() {
	g.clearRoots("")
	g.notify(Change{Kind: ChangeRootChanged})
}

func (g *Graph) clearRoots(except string) {
	for _, n := range g.nodes {
		if c, ok := n.(*CaseNode); ok && c.id != except {
			c.root = false
		}
	}
}

// Root returns the flagged root case, or the first case node when none is
// flagged, or nil when the graph has no cases.
func (g *Graph) Root() *CaseNode {
	var first *CaseNode
	for _, id := range g.order {
		c, ok := g.nodes[id].(*CaseNode)
		if !ok {
			continue
		}
		if c.root {
			return c
		}
		if first == nil {
			first = c
		}
	}
	return first
}
