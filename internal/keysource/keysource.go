// Package keysource is the low-level key event source: an OS-specific tap
// that emits key-down/key-up/modifier-change events carrying a virtual key
// code, a side-specific modifier snapshot, and an autorepeat flag.
//
// Platform backends live in keysource_darwin.go / keysource_linux.go /
// keysource_windows.go, mirroring the teacher's own per-OS split
// (internal/input/hotkey_darwin.go, hotkey_linux.go). A coarse fallback
// backend built on golang.design/x/hotkey, adapted from the teacher's
// HotkeyManager, is available on any platform that package supports, for use
// when the low-level tap lacks the OS permission it needs.
package keysource

import (
	"context"

	"github.com/emmett/dictate/internal/shortcut"
)

// EventType enumerates the three kinds of raw key events the source emits.
type EventType int

const (
	KeyDown EventType = iota
	KeyUp
	ModifiersChanged
)

// Event is one raw key-event observation.
type Event struct {
	Type       EventType
	Key        string
	Modifiers  shortcut.ModifierSnapshot
	Autorepeat bool
}

// Source is the platform tap contract: Start begins delivering every raw key
// event the OS reports, regardless of which shortcut is currently
// configured, until ctx is cancelled or Stop is called; the channel is
// closed when the tap shuts down. The consumer matches the configured
// shortcut against this raw stream (shortcut.Shortcut.Matches) before
// feeding triggers to the hotkeyengine.
type Source interface {
	Start(ctx context.Context) (<-chan Event, error)
	Stop()
	// HasPermission reports whether the OS has granted whatever permission
	// the tap needs (e.g. macOS Accessibility). Platforms with no such
	// concept always return true.
	HasPermission() bool
}

// ShortcutSource is the coarse fallback contract: rather than a raw event
// stream, the OS is asked to watch one specific shortcut and report only its
// presses. golang.design/x/hotkey only exposes this coarser primitive, so the
// fallback backend cannot implement Source.
type ShortcutSource interface {
	StartFor(ctx context.Context, s shortcut.Shortcut) (<-chan Event, error)
	Stop()
	HasPermission() bool
}

// New returns the best available low-level Source for the current platform.
// It returns ok=false when the platform has no low-level tap implementation
// or the tap lacks the permission it needs, in which case the caller should
// fall back to NewFallback.
func New() (Source, bool) {
	src := newPlatformSource()
	if src == nil || !src.HasPermission() {
		return nil, false
	}
	return src, true
}

// NewFallback returns the coarse golang.design/x/hotkey-backed ShortcutSource
// available on any platform that library supports.
func NewFallback() ShortcutSource {
	return newFallbackSource()
}
