// Copyright 2026 The Guidrive Authors
//
// Static prompts advertised by the server

package server

import (
	"encoding/json"
	"fmt"

	"github.com/guidrive/guidrive/internal/transport"
)

// Prompt is one static MCP prompt.
type Prompt struct {
	Name        string
	Description string
	Text        string
}

const promptUsageStrategy = "usage_strategy"

// registerPrompts registers the static guidance prompt.
func (s *MCPServer) registerPrompts() {
	s.prompts = map[string]*Prompt{
		promptUsageStrategy: {
			Name: promptUsageStrategy,
			Description: "Preferred strategy for driving the target GUI application through this " +
				"server: how to submit scripts and how to verify their outcome.",
			Text: usageStrategyText,
		},
	}
}

func (s *MCPServer) handlePromptsList(msg *transport.Message) *transport.Message {
	s.mu.RLock()
	prompts := make([]map[string]any, 0, len(s.prompts))
	for _, p := range s.prompts {
		prompts = append(prompts, map[string]any{
			"name":        p.Name,
			"description": p.Description,
		})
	}
	s.mu.RUnlock()

	result, _ := json.Marshal(map[string]any{"prompts": prompts})
	return transport.NewResult(msg.ID, result)
}

func (s *MCPServer) handlePromptsGet(msg *transport.Message) *transport.Message {
	var params struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return transport.NewError(msg.ID, transport.ErrCodeInvalidParams,
			fmt.Sprintf("Invalid params: %v", err))
	}

	s.mu.RLock()
	prompt, ok := s.prompts[params.Name]
	s.mu.RUnlock()
	if !ok {
		return transport.NewError(msg.ID, transport.ErrCodeInvalidParams,
			fmt.Sprintf("Prompt not found: %s", params.Name))
	}

	result, _ := json.Marshal(map[string]any{
		"description": prompt.Description,
		"messages": []map[string]any{
			{
				"role": "user",
				"content": map[string]any{
					"type": "text",
					"text": prompt.Text,
				},
			},
		},
	})
	return transport.NewResult(msg.ID, result)
}

// usageStrategyText is the fixed guidance document. It is advice for
// calling agents, not configuration; it is intentionally not parameterized.
const usageStrategyText = `When performing tasks in the target GUI application via this server:

1. Core assumption: this server interacts with an ALREADY RUNNING GUI session. It does not start
   or stop the target application. Ensure the application is open, responsive, and ideally the
   focused window before initiating tool calls.

2. Executing scripts (execute_script_in_target_gui tool):
   - Provide the complete script as a string in the script_text argument. The script should be
     self-contained; any models or files it needs must already be accessible to the target session.
   - Mechanism: the server drives the target's run-script menu entry and types the path of a
     temporary script file into the resulting dialog.
   - Return value: a string confirming the script was SUBMITTED. It does NOT return the script's
     own output and does not catch errors raised inside the target's execution context.
   - This tool is not idempotent: calling it twice runs the script twice.
   - After submitting, it is CRUCIAL to call get_target_gui_message_log to check the target's
     message area for completion messages, printed output, and errors.

3. Retrieving the message log (get_target_gui_message_log tool):
   - Fetches the text of the target's message/log area, usually at the bottom of the main window.
   - Use it to verify the outcome of submitted scripts and to check for general status messages.
   - Reliability note: the pane is located by heuristics against a third-party UI layout. If
     retrieval is inaccurate, the server's log_matchers configuration needs environment-specific
     identifiers from a UI inspection tool.

4. Recommended workflow:
   a. Confirm the target GUI is running and in a stable state (no unexpected modal dialogs).
   b. Call execute_script_in_target_gui with the script text.
   c. Note the submission acknowledgement.
   d. Wait a reasonable time for the script to execute; duration depends entirely on the script.
   e. Call get_target_gui_message_log and examine the returned text for the actual outcome.

5. Troubleshooting:
   - Window state: the tools attempt to restore and focus the target, but an already-active,
     unminimized window is most reliable.
   - Modal dialogs: unexpected modal dialogs in the target block automation.
   - Distinguish tool errors (e.g. "dialog did not appear") from errors reported inside the
     target's own message log; both arrive as strings, on the same channel, and only the latter
     describe your script's execution.`
