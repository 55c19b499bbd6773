package config

import "github.com/gyaneshwarpardhi/caseflow/internal/layout"

// Config is the top-level YAML structure.
type Config struct {
	Version  string        `yaml:"version"`
	Server   ServerConf    `yaml:"server"`
	Engine   EngineConf    `yaml:"engine"`
	Layout   layout.Config `yaml:"layout"`
	Preview  PreviewConf   `yaml:"preview"`
	Autosave AutosaveConf  `yaml:"autosave"`
	Events   EventsConf    `yaml:"events"`
}

// ServerConf configures the HTTP listener.
type ServerConf struct {
	Addr              string `yaml:"addr"`
	ReadTimeoutMs     int    `yaml:"read_timeout_ms"`
	WriteTimeoutMs    int    `yaml:"write_timeout_ms"`
	ShutdownTimeoutMs int    `yaml:"shutdown_timeout_ms"`
}

// EngineConf holds the command queue settings.
type EngineConf struct {
	QueueDepth       int `yaml:"queue_depth"`
	CommandTimeoutMs int `yaml:"command_timeout_ms"`
	// MaxPreviewSessions caps concurrently open preview walks.
	MaxPreviewSessions int `yaml:"max_preview_sessions"`
}

// PreviewConf selects what a finished preview hands off to.
type PreviewConf struct {
	Handoff HandoffConf `yaml:"handoff"`
}

// HandoffConf names a registered hand-off target and its parameters.
type HandoffConf struct {
	Type   string                 `yaml:"type"`
	Params map[string]interface{} `yaml:"params"`
}

// AutosaveConf configures snapshot persistence.
type AutosaveConf struct {
	Enabled bool   `yaml:"enabled"`
	Driver  string `yaml:"driver"` // "sqlite" or "postgres"
	DSN     string `yaml:"dsn"`
	// Name is the key snapshots are saved under.
	Name       string `yaml:"name"`
	IntervalMs int    `yaml:"interval_ms"`
	Keep       int    `yaml:"keep"`
	// RestoreOnStart imports the latest snapshot when the server starts.
	RestoreOnStart bool `yaml:"restore_on_start"`
}

// EventsConf configures event fan-out.
type EventsConf struct {
	Recent int      `yaml:"recent"`
	Buffer int      `yaml:"buffer"`
	MQTT   MQTTConf `yaml:"mqtt"`
}

// MQTTConf configures the optional MQTT event publisher.
type MQTTConf struct {
	Enabled  bool   `yaml:"enabled"`
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Topic    string `yaml:"topic"`
	QoS      int    `yaml:"qos"`
	Retain   bool   `yaml:"retain"`
}
