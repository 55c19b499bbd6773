package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gyaneshwarpardhi/caseflow/internal/config"
	"github.com/gyaneshwarpardhi/caseflow/internal/editor"
	"github.com/gyaneshwarpardhi/caseflow/internal/event"
	"github.com/gyaneshwarpardhi/caseflow/internal/flowio"
	"github.com/gyaneshwarpardhi/caseflow/internal/metrics"
	"github.com/gyaneshwarpardhi/caseflow/internal/storage"
)

var ErrNoStore = errors.New("engine: no snapshot store configured")

type snapshotStore struct {
	store storage.Store
	conf  config.AutosaveConf
}

// SetStore attaches a snapshot store. Pass nil to detach.
func (e *Engine) SetStore(s storage.Store, conf config.AutosaveConf) {
	if s == nil {
		e.store.Store(nil)
		return
	}
	e.store.Store(&snapshotStore{store: s, conf: conf})
}

// SaveSnapshot exports the flow and stores it under the configured name,
// then prunes old snapshots.
func (e *Engine) SaveSnapshot(ctx context.Context) (*storage.Snapshot, error) {
	ss := e.store.Load()
	if ss == nil {
		return nil, ErrNoStore
	}

	var (
		doc *flowio.Document
		rev uint64
	)
	err := e.View(ctx, "export", func(ed *editor.Editor) error {
		doc = ed.Export(time.Now())
		rev = e.Revision()
		return nil
	})
	if err != nil {
		return nil, err
	}

	snap, err := storage.NewSnapshot(ss.conf.Name, doc, time.Now())
	if err != nil {
		metrics.Autosaves.WithLabelValues("error").Inc()
		return nil, err
	}
	if err := ss.store.Save(ctx, snap); err != nil {
		metrics.Autosaves.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.Autosaves.WithLabelValues("success").Inc()

	if ss.conf.Keep > 0 {
		if n, err := ss.store.Prune(ctx, ss.conf.Name, ss.conf.Keep); err != nil {
			slog.Warn("autosave: prune failed", "name", ss.conf.Name, "err", err)
		} else if n > 0 {
			slog.Debug("autosave: pruned snapshots", "name", ss.conf.Name, "count", n)
		}
	}

	e.Publish(event.New(event.SnapshotSaved, "autosave", "", map[string]interface{}{
		"id":       snap.ID,
		"name":     snap.Name,
		"revision": rev,
	}))
	return snap, nil
}

// Snapshots lists stored snapshots, newest first.
func (e *Engine) Snapshots(ctx context.Context, limit int) ([]storage.Snapshot, error) {
	ss := e.store.Load()
	if ss == nil {
		return nil, ErrNoStore
	}
	return ss.store.List(ctx, ss.conf.Name, limit)
}

// Restore imports the latest snapshot, or the one with id when id is set.
func (e *Engine) Restore(ctx context.Context, id string) (*flowio.Report, error) {
	ss := e.store.Load()
	if ss == nil {
		return nil, ErrNoStore
	}
	var (
		snap *storage.Snapshot
		err  error
	)
	if id == "" {
		snap, err = ss.store.Latest(ctx, ss.conf.Name)
	} else {
		snap, err = ss.store.Get(ctx, id)
	}
	if err != nil {
		return nil, err
	}
	doc, err := snap.Document()
	if err != nil {
		return nil, err
	}
	return e.Import(ctx, doc)
}

// Import replaces the flow with doc.
func (e *Engine) Import(ctx context.Context, doc *flowio.Document) (*flowio.Report, error) {
	var report *flowio.Report
	err := e.Do(ctx, "import", func(ed *editor.Editor) error {
		r, err := ed.Import(doc)
		if err != nil {
			return err
		}
		report = r
		return nil
	})
	if err != nil {
		metrics.Imports.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.Imports.WithLabelValues("success").Inc()
	for _, w := range report.Warnings {
		metrics.ImportWarnings.WithLabelValues(string(w.Kind)).Inc()
	}
	return report, nil
}

// RunAutosave saves a snapshot every interval while the flow has unsaved
// changes. It returns when ctx is done.
func (e *Engine) RunAutosave(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !e.dirty.CompareAndSwap(true, false) {
				continue
			}
			if _, err := e.SaveSnapshot(ctx); err != nil {
				e.dirty.Store(true)
				if !errors.Is(err, context.Canceled) {
					slog.Warn("autosave failed", "err", err)
				}
			}
		}
	}
}
