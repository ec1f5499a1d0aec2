//go:build darwin

package keysource

/*
#cgo LDFLAGS: -framework ApplicationServices -framework CoreFoundation
#include <ApplicationServices/ApplicationServices.h>

extern void dictateTapCallback(CGEventType type, CGEventRef event, uintptr_t handle);

static CGEventRef tapCallbackTrampoline(CGEventTapProxy proxy, CGEventType type, CGEventRef event, void *refcon) {
	dictateTapCallback(type, event, (uintptr_t)refcon);
	return event;
}

static CFMachPortRef dictateCreateTap(uintptr_t handle, int listenOnly) {
	CGEventMask mask = CGEventMaskBit(kCGEventKeyDown) | CGEventMaskBit(kCGEventKeyUp) | CGEventMaskBit(kCGEventFlagsChanged);
	CGEventTapOptions opts = listenOnly ? kCGEventTapOptionListenOnly : kCGEventTapOptionDefault;
	return CGEventTapCreate(kCGSessionEventTap, kCGHeadInsertEventTap, opts, mask, tapCallbackTrampoline, (void *)handle);
}
*/
import "C"

import (
	"context"
	"runtime/cgo"
	"sync"

	"github.com/emmett/dictate/internal/shortcut"
)

// NX_DEVICE*KEYMASK flags distinguish left/right modifiers in the flags
// carried on kCGEventFlagsChanged; kCGEventFlagMaskSecondaryFn reports Fn.
// Mirrors original_source's macos_event_tap.rs constants.
const (
	nxDeviceLCtrlKeyMask  = 0x00000001
	nxDeviceRCtrlKeyMask  = 0x00002000
	nxDeviceLShiftKeyMask = 0x00000002
	nxDeviceRShiftKeyMask = 0x00000004
	nxDeviceLCmdKeyMask   = 0x00000008
	nxDeviceRCmdKeyMask   = 0x00000010
	nxDeviceLAltKeyMask   = 0x00000020
	nxDeviceRAltKeyMask   = 0x00000040
	cgEventFlagMaskFn     = 0x00800000
)

// Virtual key codes for the modifier keys, used to tell which physical key
// produced a flagsChanged event when the NX_DEVICE mask alone is ambiguous.
const (
	keyCodeLeftCommand  = 0x37
	keyCodeRightCommand = 0x36
	keyCodeLeftShift    = 0x38
	keyCodeRightShift   = 0x3C
	keyCodeLeftAlt      = 0x3A
	keyCodeRightAlt     = 0x3D
	keyCodeLeftControl  = 0x3B
	keyCodeRightControl = 0x3E
	keyCodeFn           = 0x3F
)

type macEventTap struct {
	mu       sync.Mutex
	port     C.CFMachPortRef
	runLoop  C.CFRunLoopRef
	events   chan Event
	done     chan struct{}
	handle   cgo.Handle
	stopOnce sync.Once
}

func newPlatformSource() Source {
	return &macEventTap{}
}

func (t *macEventTap) HasPermission() bool {
	return C.AXIsProcessTrusted() != 0
}

func (t *macEventTap) Start(ctx context.Context) (<-chan Event, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.events = make(chan Event, 32)
	t.done = make(chan struct{})
	t.handle = cgo.NewHandle(t)

	started := make(chan error, 1)
	go t.runLoopThread(started)

	if err := <-started; err != nil {
		t.handle.Delete()
		return nil, err
	}

	go func() {
		<-ctx.Done()
		t.Stop()
	}()

	return t.events, nil
}

func (t *macEventTap) runLoopThread(started chan<- error) {
	port := C.dictateCreateTap(C.uintptr_t(t.handle), C.int(1))
	if port == 0 {
		started <- errTapCreateFailed
		return
	}
	t.port = port

	source := C.CFMachPortCreateRunLoopSource(0, port, 0)
	runLoop := C.CFRunLoopGetCurrent()
	C.CFRunLoopAddSource(runLoop, source, C.kCFRunLoopCommonModes)
	C.CGEventTapEnable(port, C.true)
	C.CFRelease(C.CFTypeRef(source))
	t.runLoop = runLoop

	started <- nil
	defer close(t.done)
	C.CFRunLoopRun()
}

func (t *macEventTap) Stop() {
	t.stopOnce.Do(func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.runLoop != 0 {
			C.CFRunLoopStop(t.runLoop)
			<-t.done
		}
		if t.port != 0 {
			C.CFRelease(C.CFTypeRef(t.port))
			t.port = 0
		}
		if t.handle != 0 {
			t.handle.Delete()
		}
		if t.events != nil {
			close(t.events)
			t.events = nil
		}
	})
}

//export dictateTapCallback
func dictateTapCallback(eventType C.CGEventType, event C.CGEventRef, handle C.uintptr_t) {
	tap, ok := cgo.Handle(handle).Value().(*macEventTap)
	if !ok || tap.events == nil {
		return
	}

	rawFlags := uint64(C.CGEventGetFlags(event))
	keyCode := int64(C.CGEventGetIntegerValueField(event, C.kCGKeyboardEventKeycode))

	snapshot := shortcut.ModifierSnapshot{
		LCtrl:  rawFlags&nxDeviceLCtrlKeyMask != 0,
		RCtrl:  rawFlags&nxDeviceRCtrlKeyMask != 0,
		LShift: rawFlags&nxDeviceLShiftKeyMask != 0,
		RShift: rawFlags&nxDeviceRShiftKeyMask != 0,
		LMeta:  rawFlags&nxDeviceLCmdKeyMask != 0,
		RMeta:  rawFlags&nxDeviceRCmdKeyMask != 0,
		LAlt:   rawFlags&nxDeviceLAltKeyMask != 0,
		RAlt:   rawFlags&nxDeviceRAltKeyMask != 0,
		Fn:     rawFlags&cgEventFlagMaskFn != 0,
	}

	var evt Event
	switch eventType {
	case C.kCGEventKeyDown:
		evt = Event{Type: KeyDown, Key: keyToken(keyCode), Modifiers: snapshot}
	case C.kCGEventKeyUp:
		evt = Event{Type: KeyUp, Key: keyToken(keyCode), Modifiers: snapshot}
	case C.kCGEventFlagsChanged:
		if keyCode == keyCodeFn {
			if snapshot.Fn {
				evt = Event{Type: KeyDown, Key: "Fn", Modifiers: snapshot}
			} else {
				evt = Event{Type: KeyUp, Key: "Fn", Modifiers: snapshot}
			}
		} else {
			evt = Event{Type: ModifiersChanged, Modifiers: snapshot}
		}
	default:
		return
	}

	select {
	case tap.events <- evt:
	default:
	}
}

var virtualKeyTokens = map[int64]string{
	0x31: "Space", 0x24: "Return", 0x30: "Tab", 0x35: "Escape",
	0x00: "A", 0x0B: "B", 0x08: "C", 0x02: "D", 0x0E: "E", 0x03: "F",
	0x05: "G", 0x04: "H", 0x22: "I", 0x26: "J", 0x28: "K", 0x25: "L",
	0x2E: "M", 0x2D: "N", 0x1F: "O", 0x23: "P", 0x0C: "Q", 0x0F: "R",
	0x01: "S", 0x11: "T", 0x20: "U", 0x09: "V", 0x0D: "W", 0x07: "X",
	0x10: "Y", 0x06: "Z",
	0x1D: "0", 0x12: "1", 0x13: "2", 0x14: "3", 0x15: "4", 0x17: "5",
	0x16: "6", 0x1A: "7", 0x1C: "8", 0x19: "9",
	0x7A: "F1", 0x78: "F2", 0x63: "F3", 0x76: "F4", 0x60: "F5", 0x61: "F6",
	0x62: "F7", 0x64: "F8", 0x65: "F9", 0x6D: "F10", 0x67: "F11", 0x6F: "F12",
}

func keyToken(code int64) string {
	if token, ok := virtualKeyTokens[code]; ok {
		return token
	}
	return ""
}

var errTapCreateFailed = errTapCreate{}

type errTapCreate struct{}

func (errTapCreate) Error() string {
	return "CGEventTapCreate failed; Accessibility permission may have been revoked"
}
