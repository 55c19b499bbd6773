package flow

import "strings"

// NodeType discriminates the two kinds of flow nodes.
type NodeType string

const (
	NodeTypeCase   NodeType = "case"
	NodeTypeAnswer NodeType = "answer"
)

// Position is a node's location on the editor canvas.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Option is one row of a node: the text a user must give to pick it and
// the response label shown for it.
type Option struct {
	Match    string `json:"match"`
	Response string `json:"resp"`
}

// Label returns the text a preview shows for the row.
func (o Option) Label() string {
	if strings.TrimSpace(o.Match) != "" {
		return o.Match
	}
	if strings.TrimSpace(o.Response) != "" {
		return o.Response
	}
	return "Option"
}

// Node is the common interface for case and answer nodes.
type Node interface {
	ID() string
	Type() NodeType
	Position() Position
	SetPosition(p Position)
	// Rows returns a copy of the node's option rows: options for a case,
	// follow-up options for an answer.
	Rows() []Option

	rows() *[]Option
}

// -----------------------------------------------------------------------
// CaseNode
// -----------------------------------------------------------------------

// CaseNode is a decision point: a prompt plus the options a user can pick.
type CaseNode struct {
	id       string
	pos      Position
	prompt   string
	options  []Option
	schedule Schedule
	root     bool
}

func NewCaseNode(id string, pos Position) *CaseNode {
	return &CaseNode{id: id, pos: pos}
}

func (n *CaseNode) ID() string             { return n.id }
func (n *CaseNode) Type() NodeType         { return NodeTypeCase }
func (n *CaseNode) Position() Position     { return n.pos }
func (n *CaseNode) SetPosition(p Position) { n.pos = p }
func (n *CaseNode) Rows() []Option         { return cloneOptions(n.options) }
func (n *CaseNode) rows() *[]Option        { return &n.options }

func (n *CaseNode) Prompt() string     { return n.prompt }
func (n *CaseNode) SetPrompt(s string) { n.prompt = s }
func (n *CaseNode) Options() []Option  { return cloneOptions(n.options) }
func (n *CaseNode) Schedule() Schedule { return n.schedule.clone() }

// IsRoot reports whether preview starts here. Only Graph.SetRoot changes it.
func (n *CaseNode) IsRoot() bool { return n.root }

// SetSchedule validates s and stores it with its days in weekday order.
func (n *CaseNode) SetSchedule(s Schedule) error {
	norm, err := s.Normalize()
	if err != nil {
		return err
	}
	n.schedule = norm
	return nil
}

// -----------------------------------------------------------------------
// AnswerNode
// -----------------------------------------------------------------------

// AnswerNode carries a response and, optionally, a follow-up question with
// its own options.
type AnswerNode struct {
	id            string
	pos           Position
	text          string
	followUp      string
	followOptions []Option
}

func NewAnswerNode(id string, pos Position) *AnswerNode {
	return &AnswerNode{id: id, pos: pos}
}

func (n *AnswerNode) ID() string             { return n.id }
func (n *AnswerNode) Type() NodeType         { return NodeTypeAnswer }
func (n *AnswerNode) Position() Position     { return n.pos }
func (n *AnswerNode) SetPosition(p Position) { n.pos = p }
func (n *AnswerNode) Rows() []Option         { return cloneOptions(n.followOptions) }
func (n *AnswerNode) rows() *[]Option        { return &n.followOptions }

func (n *AnswerNode) ResponseText() string         { return n.text }
func (n *AnswerNode) SetResponseText(s string)     { n.text = s }
func (n *AnswerNode) FollowUpQuestion() string     { return n.followUp }
func (n *AnswerNode) SetFollowUpQuestion(s string) { n.followUp = s }
func (n *AnswerNode) FollowOptions() []Option      { return cloneOptions(n.followOptions) }

func cloneOptions(in []Option) []Option {
	out := make([]Option, len(in))
	copy(out, in)
	return out
}
