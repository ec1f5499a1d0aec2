package keysource

import (
	"context"
	"fmt"
	"sync"

	"golang.design/x/hotkey"

	"github.com/emmett/dictate/internal/shortcut"
)

// fallbackSource is a coarse Source built on golang.design/x/hotkey, for use
// when the low-level tap for the current platform is unavailable or lacks
// permission. It can only observe generic (non-side-specific) modifier
// families and cannot report Fn, so it registers a single OS-level global
// hotkey and synthesizes a KeyDown/KeyUp pair per press rather than tracking
// a live modifier snapshot. Adapted from the teacher's HotkeyManager, which
// used the same library the same way for toggle-only recording.
type fallbackSource struct {
	mu     sync.Mutex
	hk     *hotkey.Hotkey
	cancel context.CancelFunc
	done   chan struct{}
}

func newFallbackSource() *fallbackSource {
	return &fallbackSource{}
}

// StartFor registers s as a single global hotkey and emits a KeyDown
// followed immediately by a KeyUp on every press, since x/hotkey only
// reports a single combined "pressed" notification.
func (f *fallbackSource) StartFor(ctx context.Context, s shortcut.Shortcut) (<-chan Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	mods, key, ok := toPlatformHotkey(s)
	if !ok {
		return nil, fmt.Errorf("shortcut %q has no coarse-fallback equivalent", s.String())
	}

	hk := hotkey.New(mods, key)
	if err := hk.Register(); err != nil {
		return nil, fmt.Errorf("register fallback hotkey: %w", err)
	}
	f.hk = hk

	runCtx, cancel := context.WithCancel(ctx)
	f.cancel = cancel
	f.done = make(chan struct{})

	events := make(chan Event, 8)
	snapshot := snapshotFor(s)

	go func() {
		defer close(f.done)
		defer close(events)
		for {
			select {
			case <-runCtx.Done():
				return
			case _, ok := <-hk.Keydown():
				if !ok {
					return
				}
				select {
				case events <- Event{Type: KeyDown, Key: s.Key(), Modifiers: snapshot}:
				case <-runCtx.Done():
					return
				}
				select {
				case events <- Event{Type: KeyUp, Key: s.Key(), Modifiers: shortcut.ModifierSnapshot{}}:
				case <-runCtx.Done():
					return
				}
			}
		}
	}()

	return events, nil
}

func (f *fallbackSource) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancel != nil {
		f.cancel()
	}
	if f.hk != nil {
		f.hk.Unregister()
	}
	if f.done != nil {
		<-f.done
	}
}

func (f *fallbackSource) HasPermission() bool { return true }

// snapshotFor builds the ModifierSnapshot that would satisfy s, preferring
// the left-hand physical key for any family the shortcut leaves generic,
// since x/hotkey cannot distinguish sides.
func snapshotFor(s shortcut.Shortcut) shortcut.ModifierSnapshot {
	var snap shortcut.ModifierSnapshot
	for _, m := range s.Modifiers() {
		switch m {
		case shortcut.Alt, shortcut.LAlt:
			snap.LAlt = true
		case shortcut.RAlt:
			snap.RAlt = true
		case shortcut.Shift, shortcut.LShift:
			snap.LShift = true
		case shortcut.RShift:
			snap.RShift = true
		case shortcut.Ctrl, shortcut.LCtrl:
			snap.LCtrl = true
		case shortcut.RCtrl:
			snap.RCtrl = true
		case shortcut.Meta, shortcut.LMeta:
			snap.LMeta = true
		case shortcut.RMeta:
			snap.RMeta = true
		case shortcut.Fn:
			snap.Fn = true
		}
	}
	return snap
}

// toPlatformHotkey maps a parsed Shortcut onto x/hotkey's modifier/key
// vocabulary. Fn and side-specific modifiers have no x/hotkey equivalent, so
// shortcuts using them cannot run on the fallback backend.
func toPlatformHotkey(s shortcut.Shortcut) ([]hotkey.Modifier, hotkey.Key, bool) {
	if s.HasSideSpecificModifiers() {
		return nil, 0, false
	}
	for _, m := range s.Modifiers() {
		if m == shortcut.Fn {
			return nil, 0, false
		}
	}

	var mods []hotkey.Modifier
	for _, m := range s.Modifiers() {
		switch m {
		case shortcut.Ctrl:
			mods = append(mods, hotkey.ModCtrl)
		case shortcut.Shift:
			mods = append(mods, hotkey.ModShift)
		case shortcut.Alt:
			mods = append(mods, modAlt())
		case shortcut.Meta:
			mods = append(mods, modSuper())
		}
	}

	key, ok := platformKeyTokens[s.Key()]
	return mods, key, ok
}

var platformKeyTokens = buildPlatformKeyTokens()

func buildPlatformKeyTokens() map[string]hotkey.Key {
	m := map[string]hotkey.Key{
		"Space": hotkey.KeySpace, "Return": hotkey.KeyReturn, "Tab": hotkey.KeyTab,
		"Escape": hotkey.KeyEscape,
		"A": hotkey.KeyA, "B": hotkey.KeyB, "C": hotkey.KeyC, "D": hotkey.KeyD,
		"E": hotkey.KeyE, "F": hotkey.KeyF, "G": hotkey.KeyG, "H": hotkey.KeyH,
		"I": hotkey.KeyI, "J": hotkey.KeyJ, "K": hotkey.KeyK, "L": hotkey.KeyL,
		"M": hotkey.KeyM, "N": hotkey.KeyN, "O": hotkey.KeyO, "P": hotkey.KeyP,
		"Q": hotkey.KeyQ, "R": hotkey.KeyR, "S": hotkey.KeyS, "T": hotkey.KeyT,
		"U": hotkey.KeyU, "V": hotkey.KeyV, "W": hotkey.KeyW, "X": hotkey.KeyX,
		"Y": hotkey.KeyY, "Z": hotkey.KeyZ,
		"0": hotkey.Key0, "1": hotkey.Key1, "2": hotkey.Key2, "3": hotkey.Key3,
		"4": hotkey.Key4, "5": hotkey.Key5, "6": hotkey.Key6, "7": hotkey.Key7,
		"8": hotkey.Key8, "9": hotkey.Key9,
		"F1": hotkey.KeyF1, "F2": hotkey.KeyF2, "F3": hotkey.KeyF3, "F4": hotkey.KeyF4,
		"F5": hotkey.KeyF5, "F6": hotkey.KeyF6, "F7": hotkey.KeyF7, "F8": hotkey.KeyF8,
		"F9": hotkey.KeyF9, "F10": hotkey.KeyF10, "F11": hotkey.KeyF11, "F12": hotkey.KeyF12,
	}
	return m
}
