// Copyright 2026 The Guidrive Authors

//go:build !windows

package gui

import (
	"errors"
	"runtime"
)

// NewDesktop returns the platform Desktop implementation. Only the Win32
// backend exists; on other platforms the server can still be constructed
// against a fake Desktop for testing, but there is nothing real to drive.
func NewDesktop() (Desktop, error) {
	return nil, errors.New("GUI automation backend is not available on " + runtime.GOOS + " (windows only)")
}
