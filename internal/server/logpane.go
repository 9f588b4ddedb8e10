// Copyright 2026 The Guidrive Authors
//
// Message-log scraping tool handler

package server

import (
	"errors"
	"fmt"

	"github.com/guidrive/guidrive/internal/gui"
)

const toolGetMessageLog = "get_target_gui_message_log"

// handleGetMessageLog handles the get_target_gui_message_log tool. The
// scrape is an independent snapshot: nothing is stored or diffed between
// calls, and two calls with no intervening target activity return equal
// text.
func (s *MCPServer) handleGetMessageLog(_ *ToolCall) (*ToolResult, error) {
	window, err := s.locator.Locate()
	if err != nil {
		return errorResult("Target window not found. Cannot retrieve the message log."), nil
	}

	text, err := s.scraper.Scrape(window)
	if err != nil {
		return errorResult(scrapeFailureMessage(err)), nil
	}

	return textResultf("Message log content (best effort extraction):\n"+
		"------------------------\n%s\n------------------------", text), nil
}

// scrapeFailureMessage maps the scraper's error taxonomy onto status
// strings.
func scrapeFailureMessage(err error) string {
	switch {
	case errors.Is(err, gui.ErrReadFailure):
		return fmt.Sprintf("Found a candidate message-log control, but could not extract its text "+
			"(%v). The control may be custom-drawn or empty; adjusting the log_matchers "+
			"configuration for this environment may help.", err)
	case errors.Is(err, gui.ErrControlNotFound):
		return "Message log pane not found using the configured heuristics. For reliable " +
			"retrieval, inspect the target's UI and add a specific automation_id or class_name " +
			"entry to the log_matchers configuration."
	default:
		return fmt.Sprintf("An error occurred while retrieving the message log: %v", err)
	}
}
