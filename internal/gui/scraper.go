// Copyright 2026 The Guidrive Authors
//
// Heuristic log-pane discovery and text extraction

package gui

import (
	"fmt"
	"strings"
)

// MatcherKind selects a discovery heuristic for one MatcherSpec entry.
type MatcherKind string

const (
	// MatchAutomationID matches a control's accessibility identifier
	// exactly (case-insensitive). Strongest heuristic when the environment
	// provides one.
	MatchAutomationID MatcherKind = "automation_id"

	// MatchClassName matches a substring of the control's class name.
	MatchClassName MatcherKind = "class_name"

	// MatchTitle matches a substring of the control's label or caption.
	MatchTitle MatcherKind = "title"

	// MatchBottomPane is the positional fallback: a large control whose
	// vertical center sits in the lower half of the window.
	MatchBottomPane MatcherKind = "bottom_pane"
)

// MatcherSpec is one entry in the ordered log-pane discovery list. The list
// is data-driven and lives in the target profile, so environment-specific UI
// changes are a config edit rather than a logic change.
type MatcherSpec struct {
	Kind  MatcherKind `yaml:"kind"`
	Value string      `yaml:"value,omitempty"`

	// MinWidth and MinHeight reject trivially small controls; zero means no
	// minimum.
	MinWidth  int `yaml:"min_width,omitempty"`
	MinHeight int `yaml:"min_height,omitempty"`

	// ReadOnly additionally requires the control to not accept input, which
	// distinguishes log displays from input fields of the same class.
	ReadOnly bool `yaml:"read_only,omitempty"`
}

// matches reports whether the control satisfies this matcher. Invisible
// controls never match.
func (m MatcherSpec) matches(c Control, window Rect) bool {
	if !c.Visible() {
		return false
	}
	b := c.Bounds()
	if b.Width < m.MinWidth || b.Height < m.MinHeight {
		return false
	}
	if m.ReadOnly && c.Editable() {
		return false
	}

	switch m.Kind {
	case MatchAutomationID:
		return m.Value != "" && strings.EqualFold(c.AutomationID(), m.Value)
	case MatchClassName:
		return m.Value != "" && strings.Contains(strings.ToLower(c.ClassName()), strings.ToLower(m.Value))
	case MatchTitle:
		return m.Value != "" && strings.Contains(strings.ToLower(c.Title()), strings.ToLower(m.Value))
	case MatchBottomPane:
		// Vertical center in the lower half of the window.
		return b.Y+b.Height/2 >= window.Y+window.Height/2
	default:
		return false
	}
}

// Scraper extracts the target's message-log text by evaluating an ordered
// matcher list over the window's flattened control tree. This is heuristic
// pattern matching against a third-party UI with no documented contract:
// false negatives and false positives are accepted risks, not bugs.
type Scraper struct {
	Matchers []MatcherSpec
}

// Scrape returns the current visible text of the first control matched by
// the highest-priority heuristic. Matched controls with no extractable text
// are skipped so a weaker heuristic can still succeed. The snapshot is not
// stored or diffed; consecutive calls with an unchanged target return equal
// text.
func (s *Scraper) Scrape(w Window) (string, error) {
	controls, err := w.Controls()
	if err != nil {
		return "", fmt.Errorf("%w: enumerating controls: %v", ErrControlNotFound, err)
	}

	window := w.Bounds()
	matched := false
	var lastReadErr error

	for _, m := range s.Matchers {
		for _, c := range controls {
			if !m.matches(c, window) {
				continue
			}
			matched = true

			text, err := c.Text()
			if err != nil {
				lastReadErr = fmt.Errorf("%w: %v", ErrReadFailure, err)
				continue
			}
			text = strings.TrimSpace(text)
			if text == "" {
				// Some backends surface the content as the caption.
				text = strings.TrimSpace(c.Title())
			}
			if text != "" {
				return text, nil
			}
		}
	}

	if lastReadErr != nil {
		return "", lastReadErr
	}
	if matched {
		return "", fmt.Errorf("%w: matched control has no extractable text", ErrReadFailure)
	}
	return "", fmt.Errorf("%w: no control matched any configured heuristic", ErrControlNotFound)
}

// DefaultLogMatchers reproduces the original discovery order for the stock
// target profile: large custom panes by class, then large read-only edit
// controls, then the positional bottom-of-window fallback.
func DefaultLogMatchers() []MatcherSpec {
	return []MatcherSpec{
		{Kind: MatchClassName, Value: "FXWindow", MinWidth: 200, MinHeight: 100},
		{Kind: MatchClassName, Value: "Edit", ReadOnly: true, MinHeight: 50},
		{Kind: MatchBottomPane, MinWidth: 200, MinHeight: 100},
	}
}
