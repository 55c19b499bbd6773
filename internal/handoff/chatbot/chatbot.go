package chatbot

import (
	"context"
	"fmt"
	"net/url"

	"github.com/gyaneshwarpardhi/caseflow/internal/handoff"
)

const defaultTitle = "Chatbot"

// Target hands the conversation to an embedded chatbot page.
// Params:
//   - url: absolute http(s) URL of the chatbot page (required)
//   - title: frame title shown by the presentation layer
type Target struct{}

func New() *Target { return &Target{} }

func (t *Target) Type() string { return "chatbot" }

func (t *Target) Validate(params map[string]interface{}) error {
	raw, _ := params["url"].(string)
	if raw == "" {
		return fmt.Errorf("chatbot: url is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("chatbot: url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("chatbot: url must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("chatbot: url %q has no host", raw)
	}
	return nil
}

func (t *Target) Resolve(ctx context.Context, req handoff.Request, params map[string]interface{}) (*handoff.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := t.Validate(params); err != nil {
		return nil, err
	}
	title, _ := params["title"].(string)
	if title == "" {
		title = defaultTitle
	}
	return &handoff.Result{
		NodeID:  req.NodeID,
		Type:    t.Type(),
		URL:     params["url"].(string),
		Title:   title,
		Message: fmt.Sprintf("continuing in %s", title),
	}, nil
}
