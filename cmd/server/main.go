package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gyaneshwarpardhi/caseflow/internal/api"
	"github.com/gyaneshwarpardhi/caseflow/internal/config"
	"github.com/gyaneshwarpardhi/caseflow/internal/editor"
	"github.com/gyaneshwarpardhi/caseflow/internal/engine"
	"github.com/gyaneshwarpardhi/caseflow/internal/event"
	"github.com/gyaneshwarpardhi/caseflow/internal/flow"
	"github.com/gyaneshwarpardhi/caseflow/internal/handoff"
	"github.com/gyaneshwarpardhi/caseflow/internal/handoff/chatbot"
	"github.com/gyaneshwarpardhi/caseflow/internal/mqtt"
	"github.com/gyaneshwarpardhi/caseflow/internal/storage"
	"github.com/gyaneshwarpardhi/caseflow/internal/storage/postgres"
	"github.com/gyaneshwarpardhi/caseflow/internal/storage/sqlite"
)

func main() {
	cfgPath := flag.String("config", "configs/caseflow.yaml", "Path to YAML config (empty for built-in defaults)")
	addr := flag.String("addr", "", "HTTP listen address (overrides server.addr)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// ── Load config ──────────────────────────────────────────────────────────
	var (
		loader *config.Loader
		cfg    = config.Default()
	)
	if *cfgPath != "" {
		l, err := config.NewLoader(*cfgPath)
		if err != nil {
			slog.Error("failed to load config", "err", err)
			os.Exit(1)
		}
		loader, cfg = l, l.Config()
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	// ── Hand-off targets ──────────────────────────────────────────────────────
	reg := handoff.NewRegistry()
	reg.Register(chatbot.New())
	binding, err := reg.Bind(cfg.Preview.Handoff.Type, cfg.Preview.Handoff.Params)
	if err != nil {
		slog.Error("invalid preview hand-off", "err", err)
		os.Exit(1)
	}

	// ── Engine ────────────────────────────────────────────────────────────────
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := event.NewBus(cfg.Events.Recent, cfg.Events.Buffer)
	eng := engine.New(ctx, flow.NewGraph(), cfg.Layout, bus, cfg.Engine)
	eng.SetHandoff(binding)

	// ── Snapshot store ────────────────────────────────────────────────────────
	if cfg.Autosave.Enabled {
		store, err := openStore(ctx, cfg.Autosave)
		if err != nil {
			slog.Error("failed to open snapshot store", "driver", cfg.Autosave.Driver, "err", err)
			os.Exit(1)
		}
		defer store.Close()
		eng.SetStore(store, cfg.Autosave)

		if cfg.Autosave.RestoreOnStart {
			report, err := eng.Restore(ctx, "")
			switch {
			case errors.Is(err, storage.ErrNotFound):
				slog.Info("no snapshot to restore", "name", cfg.Autosave.Name)
			case err != nil:
				slog.Warn("restore failed, starting empty", "err", err)
			default:
				slog.Info("flow restored", "nodes", report.Nodes, "connections", report.Connections, "warnings", len(report.Warnings))
			}
		}
		go eng.RunAutosave(ctx, time.Duration(cfg.Autosave.IntervalMs)*time.Millisecond)
	}

	// ── MQTT mirror ───────────────────────────────────────────────────────────
	if cfg.Events.MQTT.Enabled {
		client := mqtt.NewClient(cfg.Events.MQTT)
		if err := mqtt.Connect(client); err != nil {
			slog.Warn("mqtt unavailable, events stay local", "broker", cfg.Events.MQTT.Broker, "err", err)
		} else {
			defer client.Disconnect(250)
			go mqtt.New(client, cfg.Events.MQTT).Run(ctx, bus)
		}
	}

	// ── Hot-reload watcher ────────────────────────────────────────────────────
	if loader != nil {
		loader.OnChange(func(newCfg *config.Config) {
			eng.SetConf(newCfg.Engine)
			b, err := reg.Bind(newCfg.Preview.Handoff.Type, newCfg.Preview.Handoff.Params)
			if err != nil {
				slog.Warn("hot-reload: hand-off unchanged", "err", err)
			} else {
				eng.SetHandoff(b)
			}
			lc := newCfg.Layout
			if err := eng.View(ctx, "set_layout", func(ed *editor.Editor) error {
				ed.SetLayout(lc)
				return nil
			}); err != nil {
				slog.Warn("hot-reload: layout unchanged", "err", err)
			}
			slog.Info("config hot-reloaded", "version", newCfg.Version)
		})
		stopWatch, err := loader.Watch()
		if err != nil {
			slog.Warn("config watcher unavailable (hot-reload disabled)", "err", err)
		} else {
			defer stopWatch()
		}
	}

	// ── HTTP server ───────────────────────────────────────────────────────────
	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      api.New(eng, loader, bus),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutMs) * time.Millisecond,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutMs) * time.Millisecond,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down…")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeoutMs)*time.Millisecond)
	defer shutCancel()
	_ = srv.Shutdown(shutCtx)

	if cfg.Autosave.Enabled {
		if _, err := eng.SaveSnapshot(shutCtx); err != nil {
			slog.Warn("final snapshot failed", "err", err)
		}
	}
	cancel() // stop worker pools
	eng.Shutdown()
	bus.Close()
	slog.Info("goodbye")
}

func openStore(ctx context.Context, conf config.AutosaveConf) (storage.Store, error) {
	switch conf.Driver {
	case "sqlite":
		return sqlite.New(conf.DSN)
	case "postgres":
		return postgres.Open(ctx, conf.DSN)
	}
	return nil, fmt.Errorf("unknown autosave driver %q", conf.Driver)
}
