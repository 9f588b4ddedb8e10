// Copyright 2026 The Guidrive Authors
//
// Win32/user32 backend for the gui interfaces

//go:build windows

package gui

import (
	"fmt"
	"strconv"
	"strings"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

// user32 functions not wrapped by golang.org/x/sys/windows.
var (
	user32                  = windows.NewLazySystemDLL("user32.dll")
	procGetWindowTextW      = user32.NewProc("GetWindowTextW")
	procGetWindowRect       = user32.NewProc("GetWindowRect")
	procIsIconic            = user32.NewProc("IsIconic")
	procIsWindowEnabled     = user32.NewProc("IsWindowEnabled")
	procShowWindow          = user32.NewProc("ShowWindow")
	procSetForegroundWindow = user32.NewProc("SetForegroundWindow")
	procSendMessageW        = user32.NewProc("SendMessageW")
	procPostMessageW        = user32.NewProc("PostMessageW")
	procGetMenu             = user32.NewProc("GetMenu")
	procGetSubMenu          = user32.NewProc("GetSubMenu")
	procGetMenuItemCount    = user32.NewProc("GetMenuItemCount")
	procGetMenuStringW      = user32.NewProc("GetMenuStringW")
	procGetMenuItemID       = user32.NewProc("GetMenuItemID")
	procGetWindowLongW      = user32.NewProc("GetWindowLongW")
	procGetDlgCtrlID        = user32.NewProc("GetDlgCtrlID")
)

const (
	wmSetText       = 0x000C
	wmGetText       = 0x000D
	wmGetTextLength = 0x000E
	wmCommand       = 0x0111
	bmClick         = 0x00F5

	mfByPosition = 0x0400

	gwlStyle   = -16
	esReadOnly = 0x0800

	swRestore = 9
)

// win32Desktop is the real Desktop over the Win32 windowing layer. All
// handles it returns are raw HWNDs with no lifetime guarantee; the window
// may be destroyed between enumeration and use, in which case the individual
// operations fail.
type win32Desktop struct{}

// NewDesktop returns the platform Desktop implementation.
func NewDesktop() (Desktop, error) {
	return win32Desktop{}, nil
}

// Windows implements Desktop. EnumWindows reports top-level windows in
// z-order, topmost first, which is exactly the precedence the locator wants.
func (win32Desktop) Windows() ([]Window, error) {
	handles, err := enumTopLevel(func(h windows.HWND) bool {
		return windows.IsWindowVisible(h) && windowText(h) != ""
	})
	if err != nil {
		return nil, err
	}
	out := make([]Window, 0, len(handles))
	for _, h := range handles {
		out = append(out, &win32Window{hwnd: h})
	}
	return out, nil
}

// enumTopLevel collects top-level window handles passing the filter.
func enumTopLevel(keep func(windows.HWND) bool) ([]windows.HWND, error) {
	var handles []windows.HWND
	cb := windows.NewCallback(func(h windows.HWND, _ unsafe.Pointer) uintptr {
		if keep(h) {
			handles = append(handles, h)
		}
		return 1 // continue enumeration
	})
	if err := windows.EnumWindows(cb, nil); err != nil {
		return nil, fmt.Errorf("EnumWindows: %w", err)
	}
	return handles, nil
}

// win32Window is a Window over a raw HWND.
type win32Window struct {
	hwnd windows.HWND
}

func (w *win32Window) Title() string { return windowText(w.hwnd) }

func (w *win32Window) ClassName() string { return className(w.hwnd) }

func (w *win32Window) Bounds() Rect { return windowRect(w.hwnd) }

func (w *win32Window) Focus() error {
	if isIconic(w.hwnd) {
		procShowWindow.Call(uintptr(w.hwnd), swRestore)
	}
	ret, _, _ := procSetForegroundWindow.Call(uintptr(w.hwnd))
	if ret == 0 {
		return fmt.Errorf("SetForegroundWindow failed for %q", w.Title())
	}
	return nil
}

// SelectMenu resolves the caption path against the window's native menu bar
// and posts WM_COMMAND for the final item. Caption comparison ignores
// accelerator markers and trailing shortcut text ("Run Script...\tCtrl+R").
func (w *win32Window) SelectMenu(path []string) error {
	if len(path) == 0 {
		return fmt.Errorf("%w: empty menu path", ErrMenuNotFound)
	}

	menu, _, _ := procGetMenu.Call(uintptr(w.hwnd))
	if menu == 0 {
		return fmt.Errorf("%w: window %q has no native menu bar", ErrMenuNotFound, w.Title())
	}

	for depth, caption := range path {
		pos := findMenuItem(menu, caption)
		if pos < 0 {
			return fmt.Errorf("%w: %q not in menu level %d", ErrMenuNotFound, caption, depth)
		}

		if depth == len(path)-1 {
			id, _, _ := procGetMenuItemID.Call(menu, uintptr(pos))
			if int32(id) == -1 {
				return fmt.Errorf("%w: %q is a submenu, not an item", ErrMenuNotFound, caption)
			}
			ret, _, err := procPostMessageW.Call(uintptr(w.hwnd), wmCommand, id&0xFFFF, 0)
			if ret == 0 {
				return fmt.Errorf("posting menu command %q: %v", caption, err)
			}
			return nil
		}

		sub, _, _ := procGetSubMenu.Call(menu, uintptr(pos))
		if sub == 0 {
			return fmt.Errorf("%w: %q has no submenu", ErrMenuNotFound, caption)
		}
		menu = sub
	}
	return nil
}

// findMenuItem returns the position of the item matching the caption, or -1.
func findMenuItem(menu uintptr, caption string) int {
	count, _, _ := procGetMenuItemCount.Call(menu)
	want := normalizeCaption(caption)
	for i := 0; i < int(int32(count)); i++ {
		buf := make([]uint16, 256)
		procGetMenuStringW.Call(menu, uintptr(i),
			uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)), mfByPosition)
		if normalizeCaption(windows.UTF16ToString(buf)) == want {
			return i
		}
	}
	return -1
}

// normalizeCaption strips accelerator ampersands and shortcut suffixes and
// lowercases for comparison.
func normalizeCaption(s string) string {
	if i := strings.IndexByte(s, '\t'); i >= 0 {
		s = s[:i]
	}
	s = strings.ReplaceAll(s, "&", "")
	return strings.ToLower(strings.TrimSpace(s))
}

// Dialogs returns the visible top-level windows owned by the same process,
// excluding the main window itself. Modal file dialogs surface this way.
func (w *win32Window) Dialogs() ([]Window, error) {
	var pid uint32
	_, _ = windows.GetWindowThreadProcessId(w.hwnd, &pid)

	handles, err := enumTopLevel(func(h windows.HWND) bool {
		if h == w.hwnd || !windows.IsWindowVisible(h) {
			return false
		}
		var other uint32
		_, _ = windows.GetWindowThreadProcessId(h, &other)
		return other == pid
	})
	if err != nil {
		return nil, err
	}
	out := make([]Window, 0, len(handles))
	for _, h := range handles {
		out = append(out, &win32Window{hwnd: h})
	}
	return out, nil
}

// Controls returns all descendant controls. EnumChildWindows walks the full
// subtree, so the result is already flattened.
func (w *win32Window) Controls() ([]Control, error) {
	var out []Control
	cb := windows.NewCallback(func(h windows.HWND, _ unsafe.Pointer) uintptr {
		out = append(out, &win32Control{hwnd: h})
		return 1
	})
	windows.EnumChildWindows(w.hwnd, cb, nil)
	return out, nil
}

// win32Control is a Control over a raw child HWND.
type win32Control struct {
	hwnd windows.HWND
}

// AutomationID reports the Win32 dialog control ID; the classic windowing
// layer has no richer accessibility identifier without UI Automation COM.
func (c *win32Control) AutomationID() string {
	id, _, _ := procGetDlgCtrlID.Call(uintptr(c.hwnd))
	if id == 0 {
		return ""
	}
	return strconv.Itoa(int(int32(id)))
}

func (c *win32Control) ClassName() string { return className(c.hwnd) }

func (c *win32Control) Title() string { return windowText(c.hwnd) }

func (c *win32Control) Bounds() Rect { return windowRect(c.hwnd) }

func (c *win32Control) Visible() bool { return windows.IsWindowVisible(c.hwnd) }

// Editable reports a writable, enabled edit-classed control.
func (c *win32Control) Editable() bool {
	if !strings.Contains(strings.ToLower(className(c.hwnd)), "edit") {
		return false
	}
	enabled, _, _ := procIsWindowEnabled.Call(uintptr(c.hwnd))
	if enabled == 0 {
		return false
	}
	index := int32(gwlStyle)
	style, _, _ := procGetWindowLongW.Call(uintptr(c.hwnd), uintptr(uint32(index)))
	return uint32(style)&esReadOnly == 0
}

func (c *win32Control) Text() (string, error) {
	length, _, _ := procSendMessageW.Call(uintptr(c.hwnd), wmGetTextLength, 0, 0)
	if length == 0 {
		return "", nil
	}
	buf := make([]uint16, length+1)
	copied, _, _ := procSendMessageW.Call(uintptr(c.hwnd), wmGetText,
		uintptr(len(buf)), uintptr(unsafe.Pointer(&buf[0])))
	if copied == 0 {
		return "", fmt.Errorf("%w: WM_GETTEXT returned no data for %d-char control", ErrReadFailure, length)
	}
	return windows.UTF16ToString(buf), nil
}

func (c *win32Control) SetText(text string) error {
	p, err := syscall.UTF16PtrFromString(text)
	if err != nil {
		return fmt.Errorf("encoding text: %w", err)
	}
	ret, _, callErr := procSendMessageW.Call(uintptr(c.hwnd), wmSetText, 0, uintptr(unsafe.Pointer(p)))
	if ret == 0 {
		return fmt.Errorf("WM_SETTEXT rejected: %v", callErr)
	}
	return nil
}

func (c *win32Control) Invoke() error {
	procSendMessageW.Call(uintptr(c.hwnd), bmClick, 0, 0)
	return nil
}

// windowText reads a window or control caption via GetWindowTextW.
func windowText(h windows.HWND) string {
	buf := make([]uint16, 512)
	n, _, _ := procGetWindowTextW.Call(uintptr(h),
		uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	if n == 0 {
		return ""
	}
	return windows.UTF16ToString(buf)
}

// className reads a window class name.
func className(h windows.HWND) string {
	buf := make([]uint16, 256)
	n, err := windows.GetClassName(h, &buf[0], int32(len(buf)))
	if err != nil || n == 0 {
		return ""
	}
	return windows.UTF16ToString(buf[:n])
}

type win32Rect struct {
	left, top, right, bottom int32
}

// windowRect reads screen-coordinate bounds.
func windowRect(h windows.HWND) Rect {
	var r win32Rect
	ret, _, _ := procGetWindowRect.Call(uintptr(h), uintptr(unsafe.Pointer(&r)))
	if ret == 0 {
		return Rect{}
	}
	return Rect{
		X:      int(r.left),
		Y:      int(r.top),
		Width:  int(r.right - r.left),
		Height: int(r.bottom - r.top),
	}
}

// isIconic reports whether the window is minimized.
func isIconic(h windows.HWND) bool {
	ret, _, _ := procIsIconic.Call(uintptr(h))
	return ret != 0
}
