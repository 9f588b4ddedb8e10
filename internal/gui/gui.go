// Copyright 2026 The Guidrive Authors

// Package gui drives an already-running desktop application through its
// accessibility tree: locating the target window, submitting a script via the
// application's run-script dialog, and scraping its message/log pane.
//
// The package is deliberately split along the seam described by the adapter's
// design: all orchestration (locator, submitter, scraper) is written against
// the Desktop, Window and Control interfaces and never touches the operating
// system directly. The only real implementation lives in win32_windows.go;
// everything else can be exercised with the fakes in the guitest subpackage.
package gui

import "errors"

// Failure taxonomy. Exported operations return one of these sentinels,
// possibly wrapped with additional context, so the adapter boundary can
// translate them into human-readable status strings.
var (
	// ErrWindowNotFound means no top-level window matched the target profile.
	ErrWindowNotFound = errors.New("target window not found")

	// ErrMenuNotFound means a menu path could not be resolved on the target.
	ErrMenuNotFound = errors.New("menu item not found")

	// ErrDialogNotFound means the expected dialog did not appear within the
	// bounded wait after menu activation.
	ErrDialogNotFound = errors.New("dialog not found")

	// ErrControlNotFound means no control matched the discovery heuristics.
	ErrControlNotFound = errors.New("control not found")

	// ErrReadFailure means a control was matched but its text could not be
	// extracted.
	ErrReadFailure = errors.New("control text could not be read")
)

// Rect is a bounding rectangle in screen coordinates.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Desktop is the entry point into the OS windowing layer.
//
// Implementations are not required to be consistent between calls: a window
// returned by Windows may be gone by the time it is used. Callers treat every
// handle as valid for a single request only.
type Desktop interface {
	// Windows returns the currently visible top-level windows in z-order,
	// topmost (most recently active) first.
	Windows() ([]Window, error)
}

// Window is a transient handle to a top-level window or dialog.
type Window interface {
	// Title returns the window's caption text.
	Title() string

	// ClassName returns the window's class name.
	ClassName() string

	// Bounds returns the window rectangle in screen coordinates.
	Bounds() Rect

	// Focus restores the window if minimized and brings it to the
	// foreground.
	Focus() error

	// SelectMenu walks the window's menu bar along the given item captions
	// and activates the final item. The returned error wraps ErrMenuNotFound
	// when any path segment cannot be resolved.
	SelectMenu(path []string) error

	// Dialogs returns candidate dialog windows currently owned by the same
	// application as this window.
	Dialogs() ([]Window, error)

	// Controls returns the window's descendant controls, flattened in tree
	// order.
	Controls() ([]Control, error)
}

// Control is a transient handle to a UI element inside a window.
type Control interface {
	// AutomationID returns the control's accessibility identifier, or ""
	// when the backend does not expose one.
	AutomationID() string

	// ClassName returns the control's class name.
	ClassName() string

	// Title returns the control's label or caption.
	Title() string

	// Bounds returns the control rectangle in screen coordinates.
	Bounds() Rect

	// Visible reports whether the control is currently visible.
	Visible() bool

	// Editable reports whether the control accepts text input.
	Editable() bool

	// Text returns the control's current text content.
	Text() (string, error)

	// SetText replaces the control's text content.
	SetText(text string) error

	// Invoke performs the control's default action, e.g. pressing a button.
	Invoke() error
}
