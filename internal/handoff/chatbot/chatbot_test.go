package chatbot_test

import (
	"context"
	"testing"

	"github.com/gyaneshwarpardhi/caseflow/internal/handoff"
	"github.com/gyaneshwarpardhi/caseflow/internal/handoff/chatbot"
)

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		params  map[string]interface{}
		wantErr bool
	}{
		{name: "valid", params: map[string]interface{}{"url": "https://bots.example.com/frame.html"}},
		{name: "missing url", params: map[string]interface{}{}, wantErr: true},
		{name: "not a string", params: map[string]interface{}{"url": 42}, wantErr: true},
		{name: "relative", params: map[string]interface{}{"url": "/frame.html"}, wantErr: true},
		{name: "wrong scheme", params: map[string]interface{}{"url": "ftp://bots.example.com"}, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := chatbot.New().Validate(tc.params)
			if (err != nil) != tc.wantErr {
				t.Errorf("expected error=%v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestResolveThroughRegistry(t *testing.T) {
	reg := handoff.NewRegistry()
	reg.Register(chatbot.New())

	b, err := reg.Bind("chatbot", map[string]interface{}{"url": "https://bots.example.com/frame.html"})
	if err != nil {
		t.Fatalf("Bind error: %v", err)
	}
	res, err := b.Resolve(context.Background(), handoff.Request{SessionID: "s1", NodeID: "ans_2"})
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if res.Type != "chatbot" || res.URL != "https://bots.example.com/frame.html" || res.NodeID != "ans_2" {
		t.Errorf("unexpected result %+v", res)
	}
	if res.Title != "Chatbot" {
		t.Errorf("expected default title, got %q", res.Title)
	}
}

func TestBindRejectsBadParams(t *testing.T) {
	reg := handoff.NewRegistry()
	reg.Register(chatbot.New())
	if _, err := reg.Bind("chatbot", nil); err == nil {
		t.Error("expected an error for missing url")
	}
	if _, err := reg.Bind("webhook", nil); err == nil {
		t.Error("expected an error for an unknown type")
	}
}
