// Copyright 2026 The Guidrive Authors

package server

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/guidrive/guidrive/internal/transport"
)

func TestPromptsList(t *testing.T) {
	desktop, _, _ := targetDesktop()
	s := newTestServer(t, desktop)

	resp, err := s.Handle(request(t, "prompts/list", ""))
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	var result struct {
		Prompts []struct {
			Name        string `json:"name"`
			Description string `json:"description"`
		} `json:"prompts"`
	}
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		t.Fatal(err)
	}
	if len(result.Prompts) != 1 {
		t.Fatalf("got %d prompts, want 1", len(result.Prompts))
	}
	if result.Prompts[0].Name != promptUsageStrategy {
		t.Errorf("prompt name = %q, want %q", result.Prompts[0].Name, promptUsageStrategy)
	}
	if result.Prompts[0].Description == "" {
		t.Error("prompt has no description")
	}
}

func TestPromptsGet(t *testing.T) {
	desktop, _, _ := targetDesktop()
	s := newTestServer(t, desktop)

	resp, err := s.Handle(request(t, "prompts/get", `{"name":"usage_strategy"}`))
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	var result struct {
		Description string `json:"description"`
		Messages    []struct {
			Role    string `json:"role"`
			Content struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		} `json:"messages"`
	}
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		t.Fatal(err)
	}
	if len(result.Messages) != 1 {
		t.Fatalf("got %d messages, want 1", len(result.Messages))
	}
	msg := result.Messages[0]
	if msg.Role != "user" || msg.Content.Type != "text" {
		t.Errorf("message = %+v, want a user text message", msg)
	}

	// The guidance must cover both tools and the submit-then-verify loop.
	for _, want := range []string{
		toolExecuteScript,
		toolGetMessageLog,
		"ALREADY RUNNING",
		"not idempotent",
	} {
		if !strings.Contains(msg.Content.Text, want) {
			t.Errorf("guidance text missing %q", want)
		}
	}
}

func TestPromptsGetUnknown(t *testing.T) {
	desktop, _, _ := targetDesktop()
	s := newTestServer(t, desktop)

	resp, err := s.Handle(request(t, "prompts/get", `{"name":"no_such_prompt"}`))
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if resp.Error == nil || resp.Error.Code != transport.ErrCodeInvalidParams {
		t.Errorf("response = %+v, want invalid-params error", resp)
	}
}

// The static guidance never leaks backend or host specifics; it must be the
// same for every caller and safe to show verbatim.
func TestPromptTextStable(t *testing.T) {
	if strings.TrimSpace(usageStrategyText) == "" {
		t.Fatal("usage strategy text is empty")
	}
	if !strings.Contains(usageStrategyText, "get_target_gui_message_log") {
		t.Error("guidance does not direct callers to the log tool")
	}
}
