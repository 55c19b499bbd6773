package config

import (
	"fmt"
	"strings"
)

// Validate checks the config for:
//   - Required fields
//   - Positive sizes and limits
//   - Settings that only make sense together (autosave driver and DSN, MQTT broker)
func Validate(cfg *Config) error {
	if cfg.Version == "" {
		return fmt.Errorf("config: version is required")
	}
	var errs []string

	if cfg.Server.Addr == "" {
		errs = append(errs, "server.addr is required")
	}
	if cfg.Engine.QueueDepth < 1 {
		errs = append(errs, fmt.Sprintf("engine.queue_depth must be positive, got %d", cfg.Engine.QueueDepth))
	}
	if cfg.Engine.CommandTimeoutMs < 1 {
		errs = append(errs, fmt.Sprintf("engine.command_timeout_ms must be positive, got %d", cfg.Engine.CommandTimeoutMs))
	}
	if cfg.Engine.MaxPreviewSessions < 1 {
		errs = append(errs, fmt.Sprintf("engine.max_preview_sessions must be positive, got %d", cfg.Engine.MaxPreviewSessions))
	}

	lc := cfg.Layout
	for _, f := range []struct {
		name string
		val  float64
	}{
		{"layout.case_width", lc.CaseWidth},
		{"layout.case_height", lc.CaseHeight},
		{"layout.answer_width", lc.AnswerWidth},
		{"layout.answer_height", lc.AnswerHeight},
		{"layout.step_x", lc.StepX},
		{"layout.step_y", lc.StepY},
		{"layout.canvas_width", lc.CanvasW},
		{"layout.row_stride", lc.RowStride},
	} {
		if f.val <= 0 {
			errs = append(errs, fmt.Sprintf("%s must be positive, got %v", f.name, f.val))
		}
	}
	if lc.Gap < 0 || lc.Margin < 0 {
		errs = append(errs, "layout.gap and layout.margin must not be negative")
	}
	if lc.MaxTries < 1 {
		errs = append(errs, fmt.Sprintf("layout.max_tries must be positive, got %d", lc.MaxTries))
	}

	if cfg.Preview.Handoff.Type == "" {
		errs = append(errs, "preview.handoff.type is required")
	}

	if a := cfg.Autosave; a.Enabled {
		switch a.Driver {
		case "sqlite", "postgres":
		default:
			errs = append(errs, fmt.Sprintf("autosave.driver %q: want sqlite or postgres", a.Driver))
		}
		if a.DSN == "" {
			errs = append(errs, "autosave.dsn is required when autosave is enabled")
		}
		if a.IntervalMs < 1 {
			errs = append(errs, fmt.Sprintf("autosave.interval_ms must be positive, got %d", a.IntervalMs))
		}
		if a.Keep < 1 {
			errs = append(errs, fmt.Sprintf("autosave.keep must be positive, got %d", a.Keep))
		}
	}

	if cfg.Events.Recent < 0 || cfg.Events.Buffer < 1 {
		errs = append(errs, "events.recent must not be negative and events.buffer must be positive")
	}
	if m := cfg.Events.MQTT; m.Enabled {
		if m.Broker == "" {
			errs = append(errs, "events.mqtt.broker is required when mqtt is enabled")
		}
		if m.QoS < 0 || m.QoS > 2 {
			errs = append(errs, fmt.Sprintf("events.mqtt.qos must be 0, 1 or 2, got %d", m.QoS))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
