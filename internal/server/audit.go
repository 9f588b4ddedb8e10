// Copyright 2026 The Guidrive Authors
//
// Audit logging for MCP tool invocations

package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// AuditLogger records tool invocations as structured JSON lines: tool name,
// redacted arguments, result status and duration. The log file is size-
// rotated so a long-lived server cannot fill the disk.
type AuditLogger struct {
	logger  *slog.Logger
	closer  io.Closer
	enabled bool
	mu      sync.RWMutex
}

// redactedKeys are argument keys whose values never reach the audit log.
// Matching is case-insensitive and includes substring hits.
var redactedKeys = map[string]bool{
	"password":    true,
	"secret":      true,
	"token":       true,
	"api_key":     true,
	"apikey":      true,
	"credential":  true,
	"credentials": true,
	"private_key": true,
	"passphrase":  true,
	"auth":        true,
}

// NewAuditLogger creates an audit logger writing to filePath with rotation
// at maxSizeMB megabytes, keeping maxBackups rotated files. An empty
// filePath disables audit logging entirely.
func NewAuditLogger(filePath string, maxSizeMB, maxBackups int) (*AuditLogger, error) {
	if filePath == "" {
		return &AuditLogger{enabled: false}, nil
	}

	writer := &lumberjack.Logger{
		Filename:   filePath,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
	}
	handler := slog.NewJSONHandler(writer, &slog.HandlerOptions{Level: slog.LevelInfo})

	return &AuditLogger{
		logger:  slog.New(handler),
		closer:  writer,
		enabled: true,
	}, nil
}

// Close closes the underlying log file. Safe to call multiple times.
func (a *AuditLogger) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closer != nil {
		c := a.closer
		a.closer = nil
		return c.Close()
	}
	return nil
}

// IsEnabled reports whether a log file was configured.
func (a *AuditLogger) IsEnabled() bool {
	if a == nil {
		return false
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// LogToolCall records one tool invocation with redacted arguments.
func (a *AuditLogger) LogToolCall(tool string, args json.RawMessage, status string, duration time.Duration) {
	if !a.IsEnabled() {
		return
	}

	a.mu.RLock()
	logger := a.logger
	a.mu.RUnlock()
	if logger == nil {
		return
	}

	logger.Info("tool_invocation",
		slog.String("tool", tool),
		slog.String("arguments", redactArguments(args)),
		slog.String("status", status),
		slog.Float64("duration_seconds", duration.Seconds()),
		slog.Time("timestamp", time.Now().UTC()),
	)
}

// redactArguments replaces sensitive values in JSON arguments.
func redactArguments(args json.RawMessage) string {
	if len(args) == 0 {
		return "{}"
	}

	var parsed map[string]any
	if err := json.Unmarshal(args, &parsed); err != nil {
		return "[unparseable]"
	}
	redactMapValues(parsed)

	redacted, err := json.Marshal(parsed)
	if err != nil {
		return "[error]"
	}
	return string(redacted)
}

// redactMapValues recursively redacts sensitive values in place.
func redactMapValues(m map[string]any) {
	for key, value := range m {
		lower := strings.ToLower(key)
		redact := redactedKeys[lower]
		if !redact {
			for k := range redactedKeys {
				if strings.Contains(lower, k) {
					redact = true
					break
				}
			}
		}
		if redact {
			m[key] = "[REDACTED]"
			continue
		}

		switch v := value.(type) {
		case map[string]any:
			redactMapValues(v)
		case []any:
			for _, item := range v {
				if nested, ok := item.(map[string]any); ok {
					redactMapValues(nested)
				}
			}
		}
	}
}
