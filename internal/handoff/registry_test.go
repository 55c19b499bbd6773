package handoff_test

import (
	"context"
	"testing"

	"github.com/gyaneshwarpardhi/caseflow/internal/handoff"
)

func TestRegistry_NoneIsBuiltIn(t *testing.T) {
	reg := handoff.NewRegistry()
	if types := reg.Types(); len(types) != 1 || types[0] != "none" {
		t.Fatalf("expected [none], got %v", types)
	}
	b, err := reg.Bind("none", nil)
	if err != nil {
		t.Fatalf("Bind error: %v", err)
	}
	res, err := b.Resolve(context.Background(), handoff.Request{NodeID: "ans_9"})
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if res.Type != "none" || res.NodeID != "ans_9" {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestRegistry_DuplicatePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	reg := handoff.NewRegistry()
	reg.Register(handoff.None{})
}
