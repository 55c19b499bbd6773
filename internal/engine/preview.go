package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/gyaneshwarpardhi/caseflow/internal/editor"
	"github.com/gyaneshwarpardhi/caseflow/internal/event"
	"github.com/gyaneshwarpardhi/caseflow/internal/handoff"
	"github.com/gyaneshwarpardhi/caseflow/internal/metrics"
	"github.com/gyaneshwarpardhi/caseflow/internal/preview"
)

var (
	ErrSessionNotFound = errors.New("engine: preview session not found")
	ErrTooManySessions = errors.New("engine: too many preview sessions")
)

// Resolve hands a finished walk to the configured target. Without one the
// walk simply ends.
func (e *Engine) Resolve(ctx context.Context, req handoff.Request) (*handoff.Result, error) {
	b := e.handoff.Load()
	if b == nil {
		return nil, nil
	}
	return b.Resolve(ctx, req)
}

// StartPreview opens a preview session at the current root.
func (e *Engine) StartPreview(ctx context.Context) (string, *preview.Turn, error) {
	var (
		id   string
		turn *preview.Turn
	)
	err := e.View(ctx, "preview_start", func(ed *editor.Editor) error {
		if len(e.sessions) >= e.conf.Load().MaxPreviewSessions {
			return fmt.Errorf("%w (max %d)", ErrTooManySessions, e.conf.Load().MaxPreviewSessions)
		}
		s := preview.New(ed.Graph(), e)
		t, err := s.Reset(ctx)
		if err != nil {
			return err
		}
		e.sessions[s.ID()] = s
		metrics.PreviewSessions.Set(float64(len(e.sessions)))
		e.recordTurn(s, t)
		id, turn = s.ID(), t
		return nil
	})
	return id, turn, err
}

// PreviewCurrent returns the latest turn of a session.
func (e *Engine) PreviewCurrent(ctx context.Context, id string) (*preview.Turn, error) {
	return e.withSession(ctx, "preview_current", id, func(s *preview.Session) (*preview.Turn, error) {
		return s.Current(), nil
	})
}

// PreviewHistory returns every message of a session since its last reset.
func (e *Engine) PreviewHistory(ctx context.Context, id string) ([]preview.Message, error) {
	var out []preview.Message
	_, err := e.withSession(ctx, "preview_history", id, func(s *preview.Session) (*preview.Turn, error) {
		out = s.History()
		return nil, nil
	})
	return out, err
}

// PreviewChoose picks the i-th offered choice.
func (e *Engine) PreviewChoose(ctx context.Context, id string, i int) (*preview.Turn, error) {
	return e.step(ctx, "preview_choose", id, func(s *preview.Session) (*preview.Turn, error) {
		return s.Choose(ctx, i)
	})
}

// PreviewSay answers with free text.
func (e *Engine) PreviewSay(ctx context.Context, id, text string) (*preview.Turn, error) {
	return e.step(ctx, "preview_say", id, func(s *preview.Session) (*preview.Turn, error) {
		return s.Say(ctx, text)
	})
}

// PreviewReset restarts a session at the current root.
func (e *Engine) PreviewReset(ctx context.Context, id string) (*preview.Turn, error) {
	return e.step(ctx, "preview_reset", id, func(s *preview.Session) (*preview.Turn, error) {
		return s.Reset(ctx)
	})
}

// ClosePreview forgets a session.
func (e *Engine) ClosePreview(ctx context.Context, id string) error {
	return e.View(ctx, "preview_close", func(*editor.Editor) error {
		if _, ok := e.sessions[id]; !ok {
			return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
		}
		delete(e.sessions, id)
		metrics.PreviewSessions.Set(float64(len(e.sessions)))
		return nil
	})
}

func (e *Engine) step(ctx context.Context, name, id string, fn func(*preview.Session) (*preview.Turn, error)) (*preview.Turn, error) {
	return e.withSession(ctx, name, id, func(s *preview.Session) (*preview.Turn, error) {
		t, err := fn(s)
		if err != nil {
			return nil, err
		}
		e.recordTurn(s, t)
		return t, nil
	})
}

func (e *Engine) withSession(ctx context.Context, name, id string, fn func(*preview.Session) (*preview.Turn, error)) (*preview.Turn, error) {
	var turn *preview.Turn
	err := e.View(ctx, name, func(*editor.Editor) error {
		s, ok := e.sessions[id]
		if !ok {
			return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
		}
		t, err := fn(s)
		turn = t
		return err
	})
	return turn, err
}

func (e *Engine) recordTurn(s *preview.Session, t *preview.Turn) {
	metrics.PreviewTurns.WithLabelValues(string(t.State)).Inc()
	typ := event.PreviewTurn
	if t.State.Terminal() {
		typ = event.PreviewTerminal
	}
	payload := map[string]interface{}{
		"session": s.ID(),
		"state":   string(t.State),
		"choices": len(t.Choices),
	}
	if t.Handoff != nil {
		payload["handoff"] = t.Handoff.Type
	}
	e.Publish(event.New(typ, "preview", t.NodeID, payload))
}
