package preview

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/gyaneshwarpardhi/caseflow/internal/flow"
	"github.com/gyaneshwarpardhi/caseflow/internal/handoff"
)

var (
	ErrInvalidChoice = errors.New("preview: invalid choice")
	ErrSessionEnded  = errors.New("preview: session has ended")
	ErrNoMatch       = errors.New("preview: input matches no option")
)

// emptyPrompt is shown for a case without question text.
const emptyPrompt = "(no question)"

// State is where a walk currently stands.
type State string

const (
	// StateIdle means there was no case to start from.
	StateIdle   State = "idle"
	StateCase   State = "case"
	StateAnswer State = "answer"
	// StateStalled means the chosen row leads nowhere.
	StateStalled State = "stalled"
	// StateHandoff means an answer without follow-up options was reached.
	StateHandoff State = "handoff"
)

// Terminal reports whether no further choices are possible.
func (s State) Terminal() bool {
	return s == StateIdle || s == StateStalled || s == StateHandoff
}

type Speaker string

const (
	SpeakerBot  Speaker = "bot"
	SpeakerUser Speaker = "user"
)

// Message is one chat bubble. VideoID is set when the text carried a
// YouTube link; Text then holds the rest of the message.
type Message struct {
	Speaker Speaker `json:"speaker"`
	Text    string  `json:"text"`
	VideoID string  `json:"video_id,omitempty"`
}

// Choice is one button offered to the user. Row is the option row it
// follows on the current node.
type Choice struct {
	Row   int    `json:"row"`
	Label string `json:"label"`
}

// Turn is the outcome of one step: the messages it produced and the
// choices now offered.
type Turn struct {
	NodeID   string          `json:"node_id,omitempty"`
	State    State           `json:"state"`
	Messages []Message       `json:"messages"`
	Choices  []Choice        `json:"choices"`
	Handoff  *handoff.Result `json:"handoff,omitempty"`
}

// Graph is the read-only view of a flow a Session walks.
type Graph interface {
	Node(id string) flow.Node
	Root() *flow.CaseNode
	FindOutgoing(a flow.Anchor) *flow.Connection
}

// Resolver produces the hand-off once a walk reaches its end.
type Resolver interface {
	Resolve(ctx context.Context, req handoff.Request) (*handoff.Result, error)
}

// Session walks a Graph one choice at a time. It never mutates the graph
// and tolerates nodes or connections disappearing between steps. It is not
// safe for concurrent use.
type Session struct {
	id       string
	g        Graph
	resolver Resolver

	state   State
	nodeID  string
	choices []Choice
	history []Message
	last    *Turn
}

// New creates an idle session. resolver may be nil, in which case hand-off
// turns carry no Result. Call Reset to start walking.
func New(g Graph, resolver Resolver) *Session {
	return &Session{
		id:       uuid.New().String(),
		g:        g,
		resolver: resolver,
		state:    StateIdle,
	}
}

func (s *Session) ID() string     { return s.id }
func (s *Session) State() State   { return s.state }
func (s *Session) NodeID() string { return s.nodeID }

// History returns every message since the last Reset.
func (s *Session) History() []Message {
	out := make([]Message, len(s.history))
	copy(out, s.history)
	return out
}

// Current returns the most recent turn, or nil before the first Reset.
func (s *Session) Current() *Turn {
	return s.last
}

// Reset clears the history and starts again at the graph's current root.
func (s *Session) Reset(ctx context.Context) (*Turn, error) {
	s.history = nil
	s.choices = nil
	s.nodeID = ""
	s.state = StateIdle

	t := &Turn{}
	if root := s.g.Root(); root != nil {
		s.enter(ctx, t, root)
	}
	return s.finish(t), nil
}

// Choose picks the i-th offered choice.
func (s *Session) Choose(ctx context.Context, i int) (*Turn, error) {
	if s.state.Terminal() {
		return nil, ErrSessionEnded
	}
	if i < 0 || i >= len(s.choices) {
		return nil, ErrInvalidChoice
	}
	return s.follow(ctx, s.choices[i]), nil
}

// Say answers with free text. The first offered choice whose label equals
// text, ignoring case and surrounding space, is taken.
func (s *Session) Say(ctx context.Context, text string) (*Turn, error) {
	if s.state.Terminal() {
		return nil, ErrSessionEnded
	}
	want := strings.TrimSpace(text)
	for _, c := range s.choices {
		if strings.EqualFold(strings.TrimSpace(c.Label), want) {
			return s.follow(ctx, c), nil
		}
	}
	return nil, ErrNoMatch
}

func (s *Session) follow(ctx context.Context, c Choice) *Turn {
	t := &Turn{}
	s.emit(t, Message{Speaker: SpeakerUser, Text: c.Label})

	from := s.g.Node(s.nodeID)
	anchor, ok := flow.ResolveSourceAnchor(from, flow.PortRow, c.Row)
	if !ok {
		s.stall("row gone")
		return s.finish(t)
	}
	conn := s.g.FindOutgoing(anchor)
	if conn == nil {
		s.stall("row not connected")
		return s.finish(t)
	}
	next := s.g.Node(conn.To.NodeID)
	if next == nil {
		s.stall("target gone")
		return s.finish(t)
	}
	s.enter(ctx, t, next)
	return s.finish(t)
}

func (s *Session) enter(ctx context.Context, t *Turn, n flow.Node) {
	s.nodeID = n.ID()
	s.choices = nil
	switch v := n.(type) {
	case *flow.CaseNode:
		s.enterCase(t, v)
	case *flow.AnswerNode:
		s.enterAnswer(ctx, t, v)
	}
}

func (s *Session) enterCase(t *Turn, c *flow.CaseNode) {
	s.state = StateCase
	prompt := c.Prompt()
	if strings.TrimSpace(prompt) == "" {
		prompt = emptyPrompt
	}
	s.emit(t, botMessage(prompt))

	for i, opt := range c.Options() {
		if strings.TrimSpace(opt.Match) == "" {
			continue
		}
		s.choices = append(s.choices, Choice{Row: i, Label: opt.Match})
	}
	if len(s.choices) == 0 {
		s.stall("case offers no options")
	}
}

func (s *Session) enterAnswer(ctx context.Context, t *Turn, a *flow.AnswerNode) {
	s.state = StateAnswer
	if text := strings.TrimSpace(a.ResponseText()); text != "" {
		s.emit(t, botMessage(text))
	}
	if q := strings.TrimSpace(a.FollowUpQuestion()); q != "" {
		s.emit(t, botMessage(q))
	}

	for i, opt := range a.FollowOptions() {
		s.choices = append(s.choices, Choice{Row: i, Label: opt.Label()})
	}
	if len(s.choices) > 0 {
		return
	}

	s.state = StateHandoff
	if s.resolver == nil {
		return
	}
	req := handoff.Request{SessionID: s.id, NodeID: a.ID()}
	for i := len(s.history) - 1; i >= 0; i-- {
		if s.history[i].Speaker == SpeakerBot {
			req.LastMessage = s.history[i].Text
			break
		}
	}
	res, err := s.resolver.Resolve(ctx, req)
	if err != nil {
		slog.Warn("preview: hand-off failed", "session", s.id, "node", a.ID(), "err", err)
		return
	}
	t.Handoff = res
}

func (s *Session) stall(reason string) {
	s.state = StateStalled
	s.choices = nil
	slog.Debug("preview: stalled", "session", s.id, "node", s.nodeID, "reason", reason)
}

func (s *Session) emit(t *Turn, m Message) {
	t.Messages = append(t.Messages, m)
	s.history = append(s.history, m)
}

func (s *Session) finish(t *Turn) *Turn {
	t.NodeID = s.nodeID
	t.State = s.state
	if t.Messages == nil {
		t.Messages = []Message{}
	}
	t.Choices = make([]Choice, len(s.choices))
	copy(t.Choices, s.choices)
	s.last = t
	return t
}
