// Copyright 2026 The Guidrive Authors
//
// Script submission tool handler

package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/guidrive/guidrive/internal/gui"
)

const toolExecuteScript = "execute_script_in_target_gui"

// handleExecuteScript handles the execute_script_in_target_gui tool.
//
// Every failure is returned as a human-readable status string with
// IsError=true, never as a JSON-RPC error: absence of the target window is a
// normal outcome of a best-effort adapter, not a protocol fault.
func (s *MCPServer) handleExecuteScript(call *ToolCall) (*ToolResult, error) {
	var params struct {
		ScriptText string `json:"script_text"`
	}
	if err := json.Unmarshal(call.Arguments, &params); err != nil {
		return errorResultf("Invalid parameters: %v", err), nil
	}
	if params.ScriptText == "" {
		return errorResult("script_text parameter is required and must be non-empty"), nil
	}

	window, err := s.locator.Locate()
	if err != nil {
		return errorResult("Target window not found. Ensure the target application is running " +
			"with its GUI visible and not minimized."), nil
	}

	path, err := s.submitter.Submit(window, params.ScriptText)
	if err != nil {
		return errorResult(submitFailureMessage(err)), nil
	}

	menu := strings.Join(s.submitter.Config.MenuPath, " -> ")
	return textResultf("Script submitted for execution via %s: %s\n"+
		"Submitted content starts with: %q\n"+
		"Submission does not imply completion; call %s to observe the outcome.",
		menu, path, truncateText(params.ScriptText), toolGetMessageLog), nil
}

// submitFailureMessage maps the submitter's error taxonomy onto the status
// strings callers are expected to pattern-match.
func submitFailureMessage(err error) string {
	switch {
	case errors.Is(err, gui.ErrMenuNotFound):
		return fmt.Sprintf("Failed to open the run-script dialog: the menu path could not be "+
			"resolved on the target window (%v). The target's menu layout may have changed.", err)
	case errors.Is(err, gui.ErrDialogNotFound):
		return fmt.Sprintf("The run-script dialog did not appear within the configured wait (%v). "+
			"The target may be busy, blocked by another modal dialog, or unresponsive.", err)
	case errors.Is(err, gui.ErrControlNotFound):
		return fmt.Sprintf("Failed to interact with the run-script dialog: %v. "+
			"The dialog layout may differ from the configured profile.", err)
	default:
		return fmt.Sprintf("An error occurred during the script submission attempt: %v", err)
	}
}
