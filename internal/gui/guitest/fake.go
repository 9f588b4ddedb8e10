// Copyright 2026 The Guidrive Authors

// Package guitest provides in-memory fakes for the gui interfaces so the
// locator, submitter, scraper and the MCP tool handlers can be exercised
// without a real windowing system.
package guitest

import (
	"errors"

	"github.com/guidrive/guidrive/internal/gui"
)

// Desktop is a fake gui.Desktop backed by a fixed window list.
type Desktop struct {
	// WindowList is returned by Windows, in z-order.
	WindowList []gui.Window

	// Err, when set, is returned by every Windows call.
	Err error

	// Scans counts Windows calls, one per locator pass.
	Scans int

	// OnScan, when set, is invoked before each enumeration and may mutate
	// the desktop, e.g. to make a window appear on a later pass.
	OnScan func(scan int, d *Desktop)
}

// Windows implements gui.Desktop.
func (d *Desktop) Windows() ([]gui.Window, error) {
	d.Scans++
	if d.OnScan != nil {
		d.OnScan(d.Scans, d)
	}
	if d.Err != nil {
		return nil, d.Err
	}
	return d.WindowList, nil
}

// Window is a fake gui.Window.
type Window struct {
	WindowTitle string
	Class       string
	Rect        gui.Rect

	// DialogList is returned by Dialogs. DialogsAfter delays its
	// availability: Dialogs returns nothing until it has been called that
	// many times, simulating a dialog that takes time to appear.
	DialogList   []gui.Window
	DialogsAfter int
	dialogCalls  int

	// ControlList is returned by Controls.
	ControlList []gui.Control

	FocusErr    error
	MenuErr     error
	ControlsErr error

	// SelectedMenus records every SelectMenu invocation.
	SelectedMenus [][]string

	Focused bool
}

// Title implements gui.Window.
func (w *Window) Title() string { return w.WindowTitle }

// ClassName implements gui.Window.
func (w *Window) ClassName() string { return w.Class }

// Bounds implements gui.Window.
func (w *Window) Bounds() gui.Rect { return w.Rect }

// Focus implements gui.Window.
func (w *Window) Focus() error {
	if w.FocusErr != nil {
		return w.FocusErr
	}
	w.Focused = true
	return nil
}

// SelectMenu implements gui.Window.
func (w *Window) SelectMenu(path []string) error {
	w.SelectedMenus = append(w.SelectedMenus, path)
	return w.MenuErr
}

// Dialogs implements gui.Window.
func (w *Window) Dialogs() ([]gui.Window, error) {
	w.dialogCalls++
	if w.dialogCalls <= w.DialogsAfter {
		return nil, nil
	}
	return w.DialogList, nil
}

// Controls implements gui.Window.
func (w *Window) Controls() ([]gui.Control, error) {
	if w.ControlsErr != nil {
		return nil, w.ControlsErr
	}
	return w.ControlList, nil
}

// Control is a fake gui.Control.
type Control struct {
	ID        string
	Class     string
	Caption   string
	Rect      gui.Rect
	IsVisible bool
	IsEdit    bool

	// Content is returned by Text and replaced by SetText.
	Content string

	TextErr    error
	SetTextErr error
	InvokeErr  error

	// SetTexts records every SetText value; Invoked counts Invoke calls.
	SetTexts []string
	Invoked  int

	// OnSetText, when set, observes each SetText before it is recorded.
	OnSetText func(text string)
}

// AutomationID implements gui.Control.
func (c *Control) AutomationID() string { return c.ID }

// ClassName implements gui.Control.
func (c *Control) ClassName() string { return c.Class }

// Title implements gui.Control.
func (c *Control) Title() string { return c.Caption }

// Bounds implements gui.Control.
func (c *Control) Bounds() gui.Rect { return c.Rect }

// Visible implements gui.Control.
func (c *Control) Visible() bool { return c.IsVisible }

// Editable implements gui.Control.
func (c *Control) Editable() bool { return c.IsEdit }

// Text implements gui.Control.
func (c *Control) Text() (string, error) {
	if c.TextErr != nil {
		return "", c.TextErr
	}
	return c.Content, nil
}

// SetText implements gui.Control.
func (c *Control) SetText(text string) error {
	if c.SetTextErr != nil {
		return c.SetTextErr
	}
	if c.OnSetText != nil {
		c.OnSetText(text)
	}
	c.SetTexts = append(c.SetTexts, text)
	c.Content = text
	return nil
}

// Invoke implements gui.Control.
func (c *Control) Invoke() error {
	if c.InvokeErr != nil {
		return c.InvokeErr
	}
	c.Invoked++
	return nil
}

// MenuNotFound returns an error wrapping gui.ErrMenuNotFound, as a real
// backend would for an unresolvable menu path.
func MenuNotFound(item string) error {
	return errors.Join(gui.ErrMenuNotFound, errors.New("no item "+item))
}

var (
	_ gui.Desktop = (*Desktop)(nil)
	_ gui.Window  = (*Window)(nil)
	_ gui.Control = (*Control)(nil)
)
