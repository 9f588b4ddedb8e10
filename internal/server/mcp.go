// Copyright 2026 The Guidrive Authors
//
// MCP server implementation

// Package server implements the MCP adapter surface: two tools driving the
// target application's GUI and one static usage prompt. Every tool failure
// is converted into a human-readable status string returned as a normal
// result; callers distinguish adapter failures from target-application
// failures purely by string content.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/guidrive/guidrive/internal/config"
	"github.com/guidrive/guidrive/internal/gui"
	"github.com/guidrive/guidrive/internal/transport"
)

const (
	serverName      = "guidrive"
	serverVersion   = "0.1.0"
	protocolVersion = "2024-11-05"
)

// MCPServer dispatches MCP requests to the GUI automation layer.
//
// The one shared, externally owned resource is the target application's
// window. Tool calls are serialized with callMu so two callers can never
// interleave menu and dialog automation against it; everything else in the
// server is safe for concurrent use.
type MCPServer struct {
	cfg       *config.Config
	locator   *gui.Locator
	submitter *gui.Submitter
	scraper   *gui.Scraper
	tools     map[string]*Tool
	prompts   map[string]*Prompt
	audit     *AuditLogger
	metrics   *transport.MetricsRegistry

	callMu sync.Mutex
	mu     sync.RWMutex
	done   chan struct{}
	once   sync.Once
}

// Tool is one MCP tool: its advertised schema and its handler.
type Tool struct {
	Handler     func(*ToolCall) (*ToolResult, error)
	InputSchema map[string]any
	Name        string
	Description string
}

// ToolCall is a tools/call invocation.
type ToolCall struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ToolResult is the MCP tool result payload.
type ToolResult struct {
	Content []Content `json:"content"`
	IsError bool      `json:"isError,omitempty"`
}

// Content is one content item in a tool result.
type Content struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// NewMCPServer builds the server against the given desktop. Tests pass a
// fake desktop, main passes the platform backend; the server itself never
// touches the OS windowing layer.
func NewMCPServer(cfg *config.Config, desktop gui.Desktop) (*MCPServer, error) {
	audit, err := NewAuditLogger(cfg.AuditLogPath, cfg.AuditLogMaxSizeMB, cfg.AuditLogMaxBackups)
	if err != nil {
		return nil, fmt.Errorf("creating audit logger: %w", err)
	}

	t := cfg.Target
	s := &MCPServer{
		cfg: cfg,
		locator: &gui.Locator{
			Desktop: desktop,
			Config: gui.LocatorConfig{
				TitlePrefixes:   t.TitlePrefixes,
				TitleSubstrings: t.TitleSubstrings,
				ClassSubstrings: t.ClassSubstrings,
				Rescans:         t.Rescans,
				RescanDelay:     t.RescanDelay.Std(),
			},
		},
		submitter: &gui.Submitter{
			Config: gui.SubmitConfig{
				MenuPath:      t.MenuPath,
				DialogTitles:  t.DialogTitles,
				EditHints:     t.EditHints,
				ConfirmTitles: t.ConfirmButtons,
				ScriptSuffix:  t.ScriptSuffix,
				TempDir:       t.TempDir,
				DialogTimeout: t.DialogTimeout.Std(),
				PollInterval:  t.PollInterval.Std(),
				RetainScripts: t.RetainScripts,
			},
		},
		scraper: &gui.Scraper{Matchers: t.LogMatchers},
		audit:   audit,
		metrics: transport.NewMetricsRegistry(),
		done:    make(chan struct{}),
	}

	s.registerTools()
	s.registerPrompts()
	return s, nil
}

// Metrics returns the server's metrics registry, shared with the HTTP
// transport's /metrics endpoint.
func (s *MCPServer) Metrics() *transport.MetricsRegistry { return s.metrics }

// Shutdown stops the serve loop and closes the audit log. Idempotent.
func (s *MCPServer) Shutdown() {
	s.once.Do(func() {
		close(s.done)
		if err := s.audit.Close(); err != nil {
			log.Printf("closing audit log: %v", err)
		}
		log.Println("Shutting down MCP server...")
	})
}

// registerTools registers the two GUI tools.
func (s *MCPServer) registerTools() {
	s.tools = map[string]*Tool{
		toolExecuteScript: {
			Name: toolExecuteScript,
			Description: "Executes a script in the already-running target GUI application by driving " +
				"its run-script menu and dialog. Returns a submission acknowledgement only; it never " +
				"waits for or reports the script's own execution outcome.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"script_text": map[string]any{
						"type":        "string",
						"description": "The full script content to submit for execution",
					},
				},
				"required": []string{"script_text"},
			},
			Handler: s.handleExecuteScript,
		},
		toolGetMessageLog: {
			Name: toolGetMessageLog,
			Description: "Scrapes the target GUI application's message/log pane using ranked " +
				"heuristics and returns its current visible text. Best effort: the pane location " +
				"depends on the target's UI layout.",
			InputSchema: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
			Handler: s.handleGetMessageLog,
		},
	}
}

// Serve reads MCP requests from the stdio transport until EOF or Shutdown.
// Requests are handled on their own goroutines so a slow tool call cannot
// stall protocol traffic; the tool calls themselves still serialize on
// callMu.
func (s *MCPServer) Serve(tr *transport.StdioTransport) error {
	log.Println("MCP server starting...")

	for {
		select {
		case <-s.done:
			log.Println("MCP server stopping (shutdown)")
			return nil
		default:
		}

		msg, err := tr.ReadMessage()
		if err != nil {
			if err == io.EOF {
				log.Println("MCP server stopping (EOF)")
				return nil
			}
			select {
			case <-s.done:
				return nil
			default:
			}
			log.Printf("Error reading message: %v", err)
			continue
		}

		go func() {
			response, err := s.Handle(msg)
			if err != nil {
				response = transport.NewError(msg.ID, transport.ErrCodeInternalError, err.Error())
			}
			if response == nil {
				return
			}
			if err := tr.WriteMessage(response); err != nil {
				log.Printf("Error writing response: %v", err)
			}
		}()
	}
}

// ServeHTTP serves MCP requests over the HTTP/SSE transport until Close.
func (s *MCPServer) ServeHTTP(tr *transport.HTTPTransport) error {
	return tr.Serve(s.Handle)
}

// Handle dispatches one MCP message. Returns nil for notifications.
func (s *MCPServer) Handle(msg *transport.Message) (*transport.Message, error) {
	if s.cfg.Debug {
		log.Printf("handling method %s", msg.Method)
	}

	switch msg.Method {
	case "initialize":
		return s.handleInitialize(msg), nil
	case "notifications/initialized":
		return nil, nil
	case "ping":
		return transport.NewResult(msg.ID, json.RawMessage(`{}`)), nil
	case "tools/list":
		return s.handleToolsList(msg), nil
	case "tools/call":
		return s.handleToolsCall(msg), nil
	case "prompts/list":
		return s.handlePromptsList(msg), nil
	case "prompts/get":
		return s.handlePromptsGet(msg), nil
	default:
		return transport.NewError(msg.ID, transport.ErrCodeMethodNotFound,
			fmt.Sprintf("Method not found: %s", msg.Method)), nil
	}
}

func (s *MCPServer) handleInitialize(msg *transport.Message) *transport.Message {
	result, _ := json.Marshal(map[string]any{
		"protocolVersion": protocolVersion,
		"capabilities": map[string]any{
			"tools":   map[string]any{},
			"prompts": map[string]any{},
		},
		"serverInfo": map[string]any{
			"name":    serverName,
			"version": serverVersion,
		},
	})
	return transport.NewResult(msg.ID, result)
}

func (s *MCPServer) handleToolsList(msg *transport.Message) *transport.Message {
	s.mu.RLock()
	tools := make([]map[string]any, 0, len(s.tools))
	for _, tool := range s.tools {
		tools = append(tools, map[string]any{
			"name":        tool.Name,
			"description": tool.Description,
			"inputSchema": tool.InputSchema,
		})
	}
	s.mu.RUnlock()

	result, _ := json.Marshal(map[string]any{"tools": tools})
	return transport.NewResult(msg.ID, result)
}

func (s *MCPServer) handleToolsCall(msg *transport.Message) *transport.Message {
	var params ToolCall
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return transport.NewError(msg.ID, transport.ErrCodeInvalidRequest,
			fmt.Sprintf("Invalid request: %v", err))
	}

	s.mu.RLock()
	tool, exists := s.tools[params.Name]
	s.mu.RUnlock()
	if !exists {
		return transport.NewError(msg.ID, transport.ErrCodeMethodNotFound,
			fmt.Sprintf("Tool not found: %s", params.Name))
	}

	if errMsg := validateToolInput(tool, params.Arguments); errMsg != "" {
		return transport.NewError(msg.ID, transport.ErrCodeInvalidParams, errMsg)
	}

	start := time.Now()
	result, err := s.runTool(tool, &params)
	duration := time.Since(start)

	status := "ok"
	if err != nil || (result != nil && result.IsError) {
		status = "error"
	}
	s.metrics.RecordRequest(params.Name, status, duration)
	s.audit.LogToolCall(params.Name, params.Arguments, status, duration)
	if s.cfg.Debug {
		log.Printf("tools/call %s finished status=%s in %v", params.Name, status, duration)
	}

	if err != nil {
		return transport.NewError(msg.ID, transport.ErrCodeInternalError, err.Error())
	}

	payload := map[string]any{"content": result.Content}
	if result.IsError {
		payload["isError"] = true
	}
	resultBytes, _ := json.Marshal(payload)
	return transport.NewResult(msg.ID, resultBytes)
}

// toolOutcome carries a handler's return values across the timeout boundary.
type toolOutcome struct {
	result *ToolResult
	err    error
}

// runTool executes one tool handler under callMu, bounded end to end by the
// configured request timeout. A timed-out call returns an error result; the
// handler goroutine keeps callMu until it actually finishes, so a stuck GUI
// interaction delays later calls rather than overlapping them.
func (s *MCPServer) runTool(tool *Tool, params *ToolCall) (*ToolResult, error) {
	timeout := time.Duration(s.cfg.RequestTimeout) * time.Second

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	outcome := make(chan toolOutcome, 1)
	go func() {
		// One GUI interaction at a time: the target window is a shared,
		// externally owned resource with no locking of its own.
		s.callMu.Lock()
		defer s.callMu.Unlock()
		result, err := tool.Handler(params)
		outcome <- toolOutcome{result: result, err: err}
	}()

	select {
	case o := <-outcome:
		return o.result, o.err
	case <-ctx.Done():
		return errorResultf("The %s call did not complete within the configured %d-second timeout. "+
			"The target application may be unresponsive or blocked by a modal dialog.",
			params.Name, s.cfg.RequestTimeout), nil
	}
}
