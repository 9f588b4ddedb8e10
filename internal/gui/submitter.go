// Copyright 2026 The Guidrive Authors
//
// Script submission via the target's run-script dialog

package gui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SubmitConfig describes the target application's run-script dialog flow.
type SubmitConfig struct {
	// MenuPath is the menu captions to walk, e.g. ["File", "Run Script..."].
	MenuPath []string

	// DialogTitles are caption substrings identifying the run-script dialog.
	DialogTitles []string

	// EditHints are label/identifier substrings for the dialog's file-path
	// input field, e.g. "File name".
	EditHints []string

	// ConfirmTitles are accepted captions for the confirm button, in
	// preference order, e.g. ["OK", "Run", "Open"].
	ConfirmTitles []string

	// ScriptSuffix is the temp file extension, including the dot.
	ScriptSuffix string

	// TempDir overrides the directory for temp script files. Empty means
	// os.TempDir.
	TempDir string

	// DialogTimeout bounds the wait for the dialog to appear after the menu
	// is activated.
	DialogTimeout time.Duration

	// PollInterval is the pause between dialog-appearance checks.
	PollInterval time.Duration

	// RetainScripts disables temp file removal after submission, leaving the
	// script on disk for debugging.
	RetainScripts bool
}

// Submitter submits a script to the target window by driving its run-script
// dialog. Each Submit is a linear sequence of UI steps with a single failure
// exit at each step and no rollback: a failure partway through can leave the
// dialog open on screen.
//
// Submit never waits for or inspects the target application's own execution
// outcome. The only sanctioned way to observe it is a subsequent log scrape.
type Submitter struct {
	Config SubmitConfig

	// Sleep is the pause function used while polling. Nil means time.Sleep.
	Sleep func(time.Duration)
}

// Submit hands the script text to the target application and returns the
// path of the temp file it was submitted through. Exactly one temp file is
// written per call, holding the script byte-for-byte; unless
// Config.RetainScripts is set the file is removed best-effort once the
// dialog interaction finishes, success or not.
func (s *Submitter) Submit(w Window, script string) (string, error) {
	if err := w.Focus(); err != nil {
		return "", fmt.Errorf("bringing target window to foreground: %w", err)
	}

	if err := w.SelectMenu(s.Config.MenuPath); err != nil {
		return "", fmt.Errorf("selecting %q: %w", strings.Join(s.Config.MenuPath, " -> "), err)
	}

	dialog, err := s.awaitDialog(w)
	if err != nil {
		return "", err
	}

	path, err := s.writeScript(script)
	if err != nil {
		return "", err
	}
	if !s.Config.RetainScripts {
		defer func() {
			// The dialog has consumed the path (or the call failed); the
			// file's lifetime ends with this submission either way.
			_ = os.Remove(path)
		}()
	}

	controls, err := dialog.Controls()
	if err != nil {
		return "", fmt.Errorf("enumerating dialog controls: %w", err)
	}

	edit := s.findPathInput(controls)
	if edit == nil {
		return "", fmt.Errorf("%w: no file-path input field in dialog %q", ErrControlNotFound, dialog.Title())
	}
	if err := edit.SetText(path); err != nil {
		return "", fmt.Errorf("entering script path: %w", err)
	}

	confirm := s.findConfirmButton(controls)
	if confirm == nil {
		return "", fmt.Errorf("%w: no confirm button in dialog %q", ErrControlNotFound, dialog.Title())
	}
	if err := confirm.Invoke(); err != nil {
		return "", fmt.Errorf("confirming dialog: %w", err)
	}

	return path, nil
}

// awaitDialog polls for a dialog whose caption matches any configured title
// substring, up to the configured timeout.
func (s *Submitter) awaitDialog(w Window) (Window, error) {
	sleep := s.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	interval := s.Config.PollInterval
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	attempts := int(s.Config.DialogTimeout/interval) + 1

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			sleep(interval)
		}

		dialogs, err := w.Dialogs()
		if err != nil {
			continue
		}
		for _, d := range dialogs {
			title := strings.ToLower(d.Title())
			for _, want := range s.Config.DialogTitles {
				if want != "" && strings.Contains(title, strings.ToLower(want)) {
					return d, nil
				}
			}
		}
	}

	return nil, fmt.Errorf("%w: no dialog matching %v appeared within %v",
		ErrDialogNotFound, s.Config.DialogTitles, s.Config.DialogTimeout)
}

// writeScript stores the payload in a uniquely named temp file.
func (s *Submitter) writeScript(script string) (string, error) {
	dir := s.Config.TempDir
	if dir == "" {
		dir = os.TempDir()
	}
	path := filepath.Join(dir, "guidrive-"+uuid.NewString()+s.Config.ScriptSuffix)
	if err := os.WriteFile(path, []byte(script), 0o600); err != nil {
		return "", fmt.Errorf("writing temp script file: %w", err)
	}
	return path, nil
}

// findPathInput locates the dialog's file-path field. Heuristics, strongest
// first: an editable control labelled/identified by an edit hint, any
// editable visible control, any control whose class name contains "Edit".
func (s *Submitter) findPathInput(controls []Control) Control {
	for _, c := range controls {
		if !c.Visible() || !c.Editable() {
			continue
		}
		for _, hint := range s.Config.EditHints {
			if hint == "" {
				continue
			}
			h := strings.ToLower(hint)
			if strings.Contains(strings.ToLower(c.Title()), h) ||
				strings.Contains(strings.ToLower(c.AutomationID()), h) {
				return c
			}
		}
	}
	for _, c := range controls {
		if c.Visible() && c.Editable() {
			return c
		}
	}
	for _, c := range controls {
		if c.Visible() && strings.Contains(strings.ToLower(c.ClassName()), "edit") {
			return c
		}
	}
	return nil
}

// findConfirmButton locates the confirm button by caption, in the configured
// preference order, falling back to the first visible button-classed control.
// Accelerator markers ("&") in captions are ignored.
func (s *Submitter) findConfirmButton(controls []Control) Control {
	for _, want := range s.Config.ConfirmTitles {
		if want == "" {
			continue
		}
		for _, c := range controls {
			if !c.Visible() {
				continue
			}
			title := strings.ReplaceAll(c.Title(), "&", "")
			if strings.EqualFold(strings.TrimSpace(title), want) {
				return c
			}
		}
	}
	for _, c := range controls {
		if c.Visible() && strings.Contains(strings.ToLower(c.ClassName()), "button") {
			return c
		}
	}
	return nil
}
