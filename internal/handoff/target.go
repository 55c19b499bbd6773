package handoff

import (
	"context"
)

// Request describes the conversation being handed off.
type Request struct {
	SessionID string `json:"session_id"`
	NodeID    string `json:"node_id"`
	// LastMessage is the last bot message shown before the hand-off.
	LastMessage string `json:"last_message,omitempty"`
}

// Result tells the presentation layer where the conversation continues.
type Result struct {
	NodeID  string `json:"node_id"`
	Type    string `json:"type"`
	URL     string `json:"url,omitempty"`
	Title   string `json:"title,omitempty"`
	Message string `json:"message"`
}

// Target is the interface all hand-off destinations must satisfy.
type Target interface {
	// Type returns the string key this target is registered under.
	Type() string
	// Resolve produces the hand-off for req using the configured params.
	Resolve(ctx context.Context, req Request, params map[string]interface{}) (*Result, error)
	// Validate checks params when the target is bound from config.
	Validate(params map[string]interface{}) error
}

// None ends the conversation without handing it anywhere.
type None struct{}

func (None) Type() string { return "none" }

func (None) Validate(map[string]interface{}) error { return nil }

func (n None) Resolve(_ context.Context, req Request, _ map[string]interface{}) (*Result, error) {
	return &Result{NodeID: req.NodeID, Type: n.Type(), Message: "conversation ended"}, nil
}
