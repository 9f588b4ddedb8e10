// Copyright 2026 The Guidrive Authors
//
// Configuration for the guidrive MCP server

// Package config loads the server configuration from environment variables
// (process and transport concerns) and an optional YAML file (the target
// application profile).
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/guidrive/guidrive/internal/gui"
)

// TransportType represents the MCP transport type.
type TransportType string

const (
	// TransportStdio uses stdin/stdout for communication.
	TransportStdio TransportType = "stdio"
	// TransportHTTP uses HTTP/SSE for communication.
	TransportHTTP TransportType = "sse"
)

// Config holds the full server configuration.
type Config struct {
	Transport          TransportType
	HTTPAddress        string
	HTTPSocketPath     string
	CORSOrigin         string
	AuditLogPath       string
	HeartbeatInterval  time.Duration
	HTTPReadTimeout    time.Duration
	HTTPWriteTimeout   time.Duration
	RequestTimeout     int // seconds, bounds one tool call end to end
	RateLimit          float64
	AuditLogMaxSizeMB  int
	AuditLogMaxBackups int
	Debug              bool
	Target             Target
}

// Duration is a time.Duration that unmarshals from YAML strings like "500ms".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Target is the profile of the application being driven: how to recognize
// its window, how to reach its run-script dialog, and how to find its log
// pane. It ships with defaults for the stock target and is overridable via
// the YAML config file so UI drift never requires a code change.
type Target struct {
	TitlePrefixes   []string          `yaml:"title_prefixes"`
	TitleSubstrings []string          `yaml:"title_substrings"`
	ClassSubstrings []string          `yaml:"class_substrings"`
	MenuPath        []string          `yaml:"menu_path"`
	DialogTitles    []string          `yaml:"dialog_titles"`
	EditHints       []string          `yaml:"edit_hints"`
	ConfirmButtons  []string          `yaml:"confirm_buttons"`
	ScriptSuffix    string            `yaml:"script_suffix"`
	TempDir         string            `yaml:"temp_dir"`
	RetainScripts   bool              `yaml:"retain_scripts"`
	Rescans         int               `yaml:"rescans"`
	RescanDelay     Duration          `yaml:"rescan_delay"`
	DialogTimeout   Duration          `yaml:"dialog_timeout"`
	PollInterval    Duration          `yaml:"poll_interval"`
	LogMatchers     []gui.MatcherSpec `yaml:"log_matchers"`
}

// DefaultTarget returns the stock target profile, mirroring the application
// this adapter was originally written against (an Abaqus/CAE session driven
// through File -> Run Script...).
func DefaultTarget() Target {
	return Target{
		TitlePrefixes:  []string{"Abaqus/CAE"},
		MenuPath:       []string{"File", "Run Script..."},
		DialogTitles:   []string{"Run Script", "Select File"},
		EditHints:      []string{"File name"},
		ConfirmButtons: []string{"OK", "Run", "Open"},
		ScriptSuffix:   ".py",
		Rescans:        2,
		RescanDelay:    Duration(500 * time.Millisecond),
		DialogTimeout:  Duration(10 * time.Second),
		PollInterval:   Duration(250 * time.Millisecond),
		LogMatchers:    gui.DefaultLogMatchers(),
	}
}

// Load reads configuration from the environment and, when
// GUIDRIVE_CONFIG_FILE is set, merges the target profile from that YAML
// file.
func Load() (*Config, error) {
	heartbeatInterval, err := getEnvAsDuration("GUIDRIVE_HEARTBEAT_INTERVAL", 30*time.Second)
	if err != nil {
		return nil, err
	}
	httpReadTimeout, err := getEnvAsDuration("GUIDRIVE_HTTP_READ_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}
	httpWriteTimeout, err := getEnvAsDuration("GUIDRIVE_HTTP_WRITE_TIMEOUT", 0)
	if err != nil {
		return nil, err
	}
	requestTimeout, err := getEnvAsInt("GUIDRIVE_REQUEST_TIMEOUT", 60)
	if err != nil {
		return nil, err
	}
	rateLimit, err := getEnvAsFloat("GUIDRIVE_RATE_LIMIT", 0)
	if err != nil {
		return nil, err
	}
	auditMaxSize, err := getEnvAsInt("GUIDRIVE_AUDIT_LOG_MAX_SIZE_MB", 10)
	if err != nil {
		return nil, err
	}
	auditMaxBackups, err := getEnvAsInt("GUIDRIVE_AUDIT_LOG_MAX_BACKUPS", 3)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Transport:          TransportType(getEnv("GUIDRIVE_TRANSPORT", "stdio")),
		HTTPAddress:        getEnv("GUIDRIVE_HTTP_ADDRESS", ":8080"),
		HTTPSocketPath:     os.Getenv("GUIDRIVE_HTTP_SOCKET"),
		CORSOrigin:         getEnv("GUIDRIVE_CORS_ORIGIN", "*"),
		HeartbeatInterval:  heartbeatInterval,
		HTTPReadTimeout:    httpReadTimeout,
		HTTPWriteTimeout:   httpWriteTimeout,
		RequestTimeout:     requestTimeout,
		RateLimit:          rateLimit,
		AuditLogPath:       os.Getenv("GUIDRIVE_AUDIT_LOG"),
		AuditLogMaxSizeMB:  auditMaxSize,
		AuditLogMaxBackups: auditMaxBackups,
		Debug:              getEnvAsBool("GUIDRIVE_DEBUG", false),
		Target:             DefaultTarget(),
	}

	if path := os.Getenv("GUIDRIVE_CONFIG_FILE"); path != "" {
		if err := loadTargetFile(path, &cfg.Target); err != nil {
			return nil, err
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadTargetFile overlays the YAML target profile onto the defaults.
// Fields absent from the file keep their default values.
func loadTargetFile(path string, target *Target) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	var file struct {
		Target *Target `yaml:"target"`
	}
	file.Target = target
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) validate() error {
	if c.Transport != TransportStdio && c.Transport != TransportHTTP {
		return fmt.Errorf("invalid transport type: %s (must be 'stdio' or 'sse')", c.Transport)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive, got %d", c.RequestTimeout)
	}
	if len(c.Target.TitlePrefixes) == 0 && len(c.Target.TitleSubstrings) == 0 && len(c.Target.ClassSubstrings) == 0 {
		return fmt.Errorf("target profile matches no windows: set title_prefixes, title_substrings or class_substrings")
	}
	if len(c.Target.MenuPath) == 0 {
		return fmt.Errorf("target profile has an empty menu_path")
	}
	if c.Target.DialogTimeout.Std() <= 0 || c.Target.PollInterval.Std() <= 0 {
		return fmt.Errorf("dialog_timeout and poll_interval must be positive")
	}
	if len(c.Target.LogMatchers) == 0 {
		return fmt.Errorf("target profile has an empty log_matchers list")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

func getEnvAsInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	var result int
	if _, err := fmt.Sscanf(value, "%d", &result); err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q (expected integer)", key, value)
	}
	return result, nil
}

func getEnvAsFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	var result float64
	if _, err := fmt.Sscanf(value, "%g", &result); err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q (expected number)", key, value)
	}
	return result, nil
}

func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q (expected duration, e.g. '30s', '5m')", key, value)
	}
	return d, nil
}
