// Copyright 2026 The Guidrive Authors

package gui_test

import (
	"errors"
	"testing"

	"github.com/guidrive/guidrive/internal/gui"
	"github.com/guidrive/guidrive/internal/gui/guitest"
)

func logWindow(controls ...gui.Control) *guitest.Window {
	return &guitest.Window{
		WindowTitle: "Abaqus/CAE 2024",
		Rect:        gui.Rect{X: 0, Y: 0, Width: 1600, Height: 900},
		ControlList: controls,
	}
}

func TestScrapeMatcherOrder(t *testing.T) {
	pane := &guitest.Control{
		Class:     "FXWindow",
		Rect:      gui.Rect{X: 0, Y: 700, Width: 1600, Height: 180},
		IsVisible: true,
		Content:   "The job has completed successfully.",
	}
	readonlyEdit := &guitest.Control{
		Class:     "Edit",
		Rect:      gui.Rect{X: 0, Y: 600, Width: 800, Height: 80},
		IsVisible: true,
		Content:   "edit pane text",
	}
	inputField := &guitest.Control{
		Class:     "Edit",
		Rect:      gui.Rect{X: 0, Y: 860, Width: 400, Height: 60},
		IsVisible: true,
		IsEdit:    true,
		Content:   ">>> ",
	}

	tests := []struct {
		name     string
		controls []gui.Control
		want     string
	}{
		{
			name:     "class matcher wins over later entries",
			controls: []gui.Control{inputField, readonlyEdit, pane},
			want:     "The job has completed successfully.",
		},
		{
			name:     "read-only edit when no custom pane",
			controls: []gui.Control{inputField, readonlyEdit},
			want:     "edit pane text",
		},
		{
			// Only the writable prompt remains; the read-only requirement
			// skips it for the Edit matcher and it is too short for the
			// bottom_pane fallback.
			name:     "writable fields never reported as the log",
			controls: []gui.Control{inputField},
			want:     "",
		},
	}

	s := &gui.Scraper{Matchers: gui.DefaultLogMatchers()}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, err := s.Scrape(logWindow(tt.controls...))
			if tt.want == "" {
				if !errors.Is(err, gui.ErrControlNotFound) {
					t.Fatalf("Scrape() error = %v, want ErrControlNotFound", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Scrape() error = %v", err)
			}
			if text != tt.want {
				t.Errorf("Scrape() = %q, want %q", text, tt.want)
			}
		})
	}
}

func TestScrapeBottomPaneFallback(t *testing.T) {
	top := &guitest.Control{
		Class:     "FXVerticalFrame",
		Rect:      gui.Rect{X: 0, Y: 0, Width: 1600, Height: 300},
		IsVisible: true,
		Content:   "toolbar area",
	}
	bottom := &guitest.Control{
		Class:     "FXVerticalFrame",
		Rect:      gui.Rect{X: 0, Y: 700, Width: 1600, Height: 180},
		IsVisible: true,
		Content:   "message area text",
	}

	s := &gui.Scraper{Matchers: gui.DefaultLogMatchers()}
	text, err := s.Scrape(logWindow(top, bottom))
	if err != nil {
		t.Fatalf("Scrape() error = %v", err)
	}
	if text != "message area text" {
		t.Errorf("Scrape() = %q, want the lower-half control's text", text)
	}
}

func TestScrapeAutomationID(t *testing.T) {
	pane := &guitest.Control{
		ID:        "messageArea",
		Class:     "CustomWidget",
		Rect:      gui.Rect{X: 0, Y: 100, Width: 120, Height: 40},
		IsVisible: true,
		Content:   "pinned by identifier",
	}
	s := &gui.Scraper{Matchers: []gui.MatcherSpec{
		{Kind: gui.MatchAutomationID, Value: "MessageArea"},
	}}
	text, err := s.Scrape(logWindow(pane))
	if err != nil {
		t.Fatalf("Scrape() error = %v", err)
	}
	if text != "pinned by identifier" {
		t.Errorf("Scrape() = %q, want the identifier-matched control's text", text)
	}
}

func TestScrapeSkipsEmptyMatches(t *testing.T) {
	empty := &guitest.Control{
		Class:     "FXWindow",
		Rect:      gui.Rect{X: 0, Y: 0, Width: 1600, Height: 200},
		IsVisible: true,
		Content:   "   ",
	}
	fallback := &guitest.Control{
		Class:     "FXMainWindow",
		Rect:      gui.Rect{X: 0, Y: 600, Width: 1600, Height: 280},
		IsVisible: true,
		Content:   "actual log content",
	}

	s := &gui.Scraper{Matchers: gui.DefaultLogMatchers()}
	text, err := s.Scrape(logWindow(empty, fallback))
	if err != nil {
		t.Fatalf("Scrape() error = %v", err)
	}
	if text != "actual log content" {
		t.Errorf("Scrape() = %q, want the weaker heuristic's non-empty text", text)
	}
}

func TestScrapeCaptionFallback(t *testing.T) {
	pane := &guitest.Control{
		Class:     "FXWindow",
		Caption:   "log lives in the caption",
		Rect:      gui.Rect{X: 0, Y: 0, Width: 1600, Height: 200},
		IsVisible: true,
	}
	s := &gui.Scraper{Matchers: gui.DefaultLogMatchers()}
	text, err := s.Scrape(logWindow(pane))
	if err != nil {
		t.Fatalf("Scrape() error = %v", err)
	}
	if text != "log lives in the caption" {
		t.Errorf("Scrape() = %q, want the caption text", text)
	}
}

func TestScrapeReadFailure(t *testing.T) {
	pane := &guitest.Control{
		Class:     "FXWindow",
		Rect:      gui.Rect{X: 0, Y: 0, Width: 1600, Height: 200},
		IsVisible: true,
		TextErr:   errors.New("WM_GETTEXT timed out"),
	}
	s := &gui.Scraper{Matchers: gui.DefaultLogMatchers()}
	_, err := s.Scrape(logWindow(pane))
	if !errors.Is(err, gui.ErrReadFailure) {
		t.Fatalf("Scrape() error = %v, want ErrReadFailure", err)
	}
}

func TestScrapeIdempotent(t *testing.T) {
	pane := &guitest.Control{
		Class:     "FXWindow",
		Rect:      gui.Rect{X: 0, Y: 0, Width: 1600, Height: 200},
		IsVisible: true,
		Content:   "stable content",
	}
	window := logWindow(pane)

	s := &gui.Scraper{Matchers: gui.DefaultLogMatchers()}
	first, err := s.Scrape(window)
	if err != nil {
		t.Fatalf("first Scrape() error = %v", err)
	}
	second, err := s.Scrape(window)
	if err != nil {
		t.Fatalf("second Scrape() error = %v", err)
	}
	if first != second {
		t.Errorf("consecutive scrapes differ: %q vs %q", first, second)
	}
}

func TestScrapeControlsError(t *testing.T) {
	window := &guitest.Window{ControlsErr: errors.New("window destroyed")}
	s := &gui.Scraper{Matchers: gui.DefaultLogMatchers()}
	_, err := s.Scrape(window)
	if !errors.Is(err, gui.ErrControlNotFound) {
		t.Fatalf("Scrape() error = %v, want ErrControlNotFound", err)
	}
}
