package flow

import "fmt"

// PortRole tags which kind of port an Anchor names.
type PortRole string

const (
	// PortOut is the single node-level output of an answer node.
	PortOut PortRole = "out"
	// PortRow is the output of one option row; Anchor.Index selects the row.
	PortRow PortRole = "row"
	// PortIn is the single input of any node.
	PortIn PortRole = "in"
)

// Anchor identifies one port of one node. Index is meaningful only for
// PortRow.
type Anchor struct {
	NodeID string   `json:"node"`
	Role   PortRole `json:"port"`
	Index  int      `json:"index"`
}

func OutputAnchor(nodeID string) Anchor { return Anchor{NodeID: nodeID, Role: PortOut} }
func InputAnchor(nodeID string) Anchor  { return Anchor{NodeID: nodeID, Role: PortIn} }
func RowAnchor(nodeID string, index int) Anchor {
	return Anchor{NodeID: nodeID, Role: PortRow, Index: index}
}

func (a Anchor) String() string {
	if a.Role == PortRow {
		return fmt.Sprintf("%s.row[%d]", a.NodeID, a.Index)
	}
	return fmt.Sprintf("%s.%s", a.NodeID, a.Role)
}

// ResolveSourceAnchor maps (node, role, index) to the port a connection may
// start from. Case nodes only have row ports; answers have both an output
// and their follow-up rows. The index is ignored for PortOut.
func ResolveSourceAnchor(n Node, role PortRole, index int) (Anchor, bool) {
	if n == nil {
		return Anchor{}, false
	}
	switch role {
	case PortOut:
		if n.Type() != NodeTypeAnswer {
			return Anchor{}, false
		}
		return OutputAnchor(n.ID()), true
	case PortRow:
		if index < 0 || index >= len(*n.rows()) {
			return Anchor{}, false
		}
		return RowAnchor(n.ID(), index), true
	}
	return Anchor{}, false
}

// ResolveTargetAnchor returns the input port of n.
func ResolveTargetAnchor(n Node) Anchor {
	return InputAnchor(n.ID())
}
