package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "caseflow.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoader_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
version: "1"
layout:
  gap: 300
preview:
  handoff:
    type: chatbot
    params:
      url: https://bots.example.com
`)
	l, err := NewLoader(path)
	if err != nil {
		t.Fatalf("NewLoader error: %v", err)
	}
	cfg := l.Config()
	if cfg.Server.Addr != ":8080" {
		t.Errorf("expected default addr, got %q", cfg.Server.Addr)
	}
	if cfg.Engine.QueueDepth != 1024 || cfg.Engine.CommandTimeoutMs != 5000 {
		t.Errorf("unexpected engine defaults %+v", cfg.Engine)
	}
	if cfg.Layout.Gap != 300 {
		t.Errorf("expected gap override 300, got %v", cfg.Layout.Gap)
	}
	if cfg.Layout.CaseWidth != 380 || cfg.Layout.MaxTries != 2000 {
		t.Errorf("unset layout fields should keep defaults, got %+v", cfg.Layout)
	}
	if cfg.Preview.Handoff.Type != "chatbot" || cfg.Preview.Handoff.Params["url"] != "https://bots.example.com" {
		t.Errorf("unexpected handoff %+v", cfg.Preview.Handoff)
	}
	if cfg.Events.Recent != 50 || cfg.Events.MQTT.Topic != "caseflow/events" {
		t.Errorf("unexpected events defaults %+v", cfg.Events)
	}
}

func TestLoader_ReloadNotifies(t *testing.T) {
	path := writeConfig(t, "version: \"1\"\n")
	l, err := NewLoader(path)
	if err != nil {
		t.Fatalf("NewLoader error: %v", err)
	}
	var got *Config
	l.OnChange(func(c *Config) { got = c })

	if err := os.WriteFile(path, []byte("version: \"1\"\nengine:\n  queue_depth: 7\n"), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}
	if _, err := l.Reload(); err != nil {
		t.Fatalf("Reload error: %v", err)
	}
	if got == nil || got.Engine.QueueDepth != 7 {
		t.Fatalf("expected callback with queue_depth 7, got %+v", got)
	}

	if err := os.WriteFile(path, []byte("engine: [broken"), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}
	if _, err := l.Reload(); err == nil {
		t.Fatal("expected a parse error")
	}
	if l.Config().Engine.QueueDepth != 7 {
		t.Errorf("a failed reload must keep the previous config, got %+v", l.Config().Engine)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(c *Config)
		wantErr []string
	}{
		{name: "defaults are valid", mutate: func(c *Config) {}},
		{
			name:    "missing version",
			mutate:  func(c *Config) { c.Version = "" },
			wantErr: []string{"version is required"},
		},
		{
			name: "collects every problem",
			mutate: func(c *Config) {
				c.Engine.QueueDepth = 0
				c.Layout.CaseWidth = -1
				c.Layout.MaxTries = 0
			},
			wantErr: []string{"engine.queue_depth", "layout.case_width", "layout.max_tries"},
		},
		{
			name: "autosave needs a known driver",
			mutate: func(c *Config) {
				c.Autosave.Enabled = true
				c.Autosave.Driver = "mysql"
			},
			wantErr: []string{`autosave.driver "mysql"`},
		},
		{
			name: "mqtt needs a broker",
			mutate: func(c *Config) {
				c.Events.MQTT.Enabled = true
				c.Events.MQTT.QoS = 3
			},
			wantErr: []string{"events.mqtt.broker", "events.mqtt.qos"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := Validate(cfg)
			if len(tc.wantErr) == 0 {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected errors %v, got nil", tc.wantErr)
			}
			for _, want := range tc.wantErr {
				if !strings.Contains(err.Error(), want) {
					t.Errorf("expected %q in %q", want, err.Error())
				}
			}
		})
	}
}

func TestShippedConfigIsValid(t *testing.T) {
	l, err := NewLoader(filepath.Join("..", "..", "configs", "caseflow.yaml"))
	if err != nil {
		t.Fatalf("NewLoader error: %v", err)
	}
	cfg := l.Config()
	if cfg.Preview.Handoff.Type != "chatbot" {
		t.Errorf("expected chatbot hand-off, got %q", cfg.Preview.Handoff.Type)
	}
	if cfg.Layout.CaseWidth != 380 || cfg.Autosave.Driver != "sqlite" {
		t.Errorf("unexpected config %+v", cfg)
	}
}
