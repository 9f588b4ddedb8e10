// Copyright 2026 The Guidrive Authors
//
// Best-effort window discovery

package gui

import (
	"fmt"
	"strings"
	"time"
)

// LocatorConfig describes how the target window is recognized.
//
// Matching is ranked: a title-prefix match always beats a title-substring
// match, which beats a class-substring match. Within a rank the first window
// in z-order (the most recently active) wins. All comparisons are
// case-insensitive.
type LocatorConfig struct {
	// TitlePrefixes match the start of a window caption, e.g. "Abaqus/CAE".
	TitlePrefixes []string

	// TitleSubstrings match anywhere in a window caption.
	TitleSubstrings []string

	// ClassSubstrings match anywhere in a window class name.
	ClassSubstrings []string

	// Rescans is how many additional enumeration passes to attempt after a
	// miss before giving up.
	Rescans int

	// RescanDelay is the pause between enumeration passes.
	RescanDelay time.Duration
}

// Locator finds the target application's top-level window. It holds no state
// between calls; every Locate re-discovers the window from scratch.
type Locator struct {
	Desktop Desktop
	Config  LocatorConfig

	// Sleep is the pause function between rescans. Nil means time.Sleep.
	Sleep func(time.Duration)
}

// Locate enumerates top-level windows and returns the best match for the
// configured profile, rescanning up to Config.Rescans times. The returned
// error wraps ErrWindowNotFound when no window matches on any pass.
//
// There is no consistency guarantee: the window may close between discovery
// and use, and callers must tolerate subsequent operations failing.
func (l *Locator) Locate() (Window, error) {
	sleep := l.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	passes := l.Config.Rescans + 1
	if passes < 1 {
		passes = 1
	}

	var lastErr error
	for pass := 0; pass < passes; pass++ {
		if pass > 0 && l.Config.RescanDelay > 0 {
			sleep(l.Config.RescanDelay)
		}

		windows, err := l.Desktop.Windows()
		if err != nil {
			lastErr = fmt.Errorf("enumerating windows: %w", err)
			continue
		}

		if w := l.pick(windows); w != nil {
			return w, nil
		}
	}

	if lastErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrWindowNotFound, lastErr)
	}
	return nil, ErrWindowNotFound
}

// pick returns the highest-ranked candidate, or nil when nothing matches.
// Windows arrive in z-order, so the first hit at the winning rank is also the
// most recently active one.
func (l *Locator) pick(windows []Window) Window {
	// Ranks: 0 title prefix, 1 title substring, 2 class substring.
	const noMatch = 3

	var best Window
	bestRank := noMatch

	for _, w := range windows {
		rank, ok := l.rank(w)
		if ok && rank < bestRank {
			best = w
			bestRank = rank
			if rank == 0 {
				break
			}
		}
	}
	return best
}

// rank classifies a window against the profile. Lower is stronger.
func (l *Locator) rank(w Window) (int, bool) {
	title := strings.ToLower(w.Title())
	for _, p := range l.Config.TitlePrefixes {
		if p != "" && strings.HasPrefix(title, strings.ToLower(p)) {
			return 0, true
		}
	}
	for _, s := range l.Config.TitleSubstrings {
		if s != "" && strings.Contains(title, strings.ToLower(s)) {
			return 1, true
		}
	}
	class := strings.ToLower(w.ClassName())
	for _, s := range l.Config.ClassSubstrings {
		if s != "" && strings.Contains(class, strings.ToLower(s)) {
			return 2, true
		}
	}
	return 0, false
}
