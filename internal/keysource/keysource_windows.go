//go:build windows

package keysource

import (
	"context"
	"fmt"
	"sync"
	"syscall"
	"unsafe"

	"github.com/emmett/dictate/internal/shortcut"
)

// user32 procs for a low-level keyboard hook, following the same
// syscall.NewLazyDLL/NewProc style and GetMessage run loop as the
// clipqueue Windows host reference.
var (
	user32                 = syscall.NewLazyDLL("user32.dll")
	kernel32               = syscall.NewLazyDLL("kernel32.dll")
	procSetWindowsHookExW  = user32.NewProc("SetWindowsHookExW")
	procUnhookWindowsHook  = user32.NewProc("UnhookWindowsHookEx")
	procCallNextHookEx     = user32.NewProc("CallNextHookEx")
	procGetMessageW        = user32.NewProc("GetMessageW")
	procTranslateMessage   = user32.NewProc("TranslateMessage")
	procDispatchMessageW   = user32.NewProc("DispatchMessageW")
	procPostThreadMessageW = user32.NewProc("PostThreadMessageW")
	procGetKeyState        = user32.NewProc("GetKeyState")
	procGetModuleHandleW   = kernel32.NewProc("GetModuleHandleW")
	procGetCurrentThreadId = kernel32.NewProc("GetCurrentThreadId")
)

const (
	whKeyboardLL = 13
	wmKeyDown    = 0x0100
	wmKeyUp      = 0x0101
	wmSysKeyDown = 0x0104
	wmSysKeyUp   = 0x0105
	wmQuit       = 0x0012

	vkLShift   = 0xA0
	vkRShift   = 0xA1
	vkLControl = 0xA2
	vkRControl = 0xA3
	vkLMenu    = 0xA4 // left alt
	vkRMenu    = 0xA5 // right alt
	vkLWin     = 0x5B
	vkRWin     = 0x5C
)

type kbdllHookStruct struct {
	VkCode      uint32
	ScanCode    uint32
	Flags       uint32
	Time        uint32
	DwExtraInfo uintptr
}

type winSource struct {
	mu       sync.Mutex
	events   chan Event
	threadID uintptr
	hookDone chan struct{}
	hhk      uintptr
	stopOnce sync.Once
}

func newPlatformSource() Source {
	return &winSource{}
}

// HasPermission is always true on Windows: a low-level keyboard hook
// requires no special privilege beyond running as the interactive user.
func (w *winSource) HasPermission() bool { return true }

var activeHook *winSource

func (w *winSource) Start(ctx context.Context) (<-chan Event, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if activeHook != nil {
		return nil, fmt.Errorf("a keyboard hook is already active in this process")
	}
	activeHook = w

	w.events = make(chan Event, 32)
	w.hookDone = make(chan struct{})

	started := make(chan error, 1)
	go w.messageLoop(started)

	if err := <-started; err != nil {
		activeHook = nil
		return nil, err
	}

	go func() {
		<-ctx.Done()
		w.Stop()
	}()

	return w.events, nil
}

func (w *winSource) messageLoop(started chan<- error) {
	defer close(w.hookDone)

	tid, _, _ := procGetCurrentThreadId.Call()
	w.threadID = tid

	moduleHandle, _, _ := procGetModuleHandleW.Call(0)
	hhk, _, errno := procSetWindowsHookExW.Call(
		uintptr(whKeyboardLL),
		syscall.NewCallback(lowLevelKeyboardProc),
		moduleHandle,
		0,
	)
	if hhk == 0 {
		started <- fmt.Errorf("SetWindowsHookExW failed: %v", errno)
		return
	}
	w.hhk = hhk
	started <- nil

	var msg struct {
		hwnd    uintptr
		message uint32
		wParam  uintptr
		lParam  uintptr
		time    uint32
		pt      struct{ x, y int32 }
	}
	for {
		ret, _, _ := procGetMessageW.Call(uintptr(unsafe.Pointer(&msg)), 0, 0, 0)
		if ret == 0 || msg.message == wmQuit {
			break
		}
		procTranslateMessage.Call(uintptr(unsafe.Pointer(&msg)))
		procDispatchMessageW.Call(uintptr(unsafe.Pointer(&msg)))
	}

	procUnhookWindowsHook.Call(hhk)
}

func lowLevelKeyboardProc(nCode int32, wParam uintptr, lParam uintptr) uintptr {
	if nCode >= 0 && activeHook != nil && activeHook.events != nil {
		info := (*kbdllHookStruct)(unsafe.Pointer(lParam))
		down := wParam == wmKeyDown || wParam == wmSysKeyDown
		up := wParam == wmKeyUp || wParam == wmSysKeyUp
		if down || up {
			activeHook.dispatch(info.VkCode, down)
		}
	}
	ret, _, _ := procCallNextHookEx.Call(0, uintptr(nCode), wParam, lParam)
	return ret
}

func keyPressed(vk int) bool {
	state, _, _ := procGetKeyState.Call(uintptr(vk))
	return state&0x8000 != 0
}

func (w *winSource) dispatch(vkCode uint32, down bool) {
	snapshot := shortcut.ModifierSnapshot{
		LShift: keyPressed(vkLShift), RShift: keyPressed(vkRShift),
		LCtrl: keyPressed(vkLControl), RCtrl: keyPressed(vkRControl),
		LAlt: keyPressed(vkLMenu), RAlt: keyPressed(vkRMenu),
		LMeta: keyPressed(vkLWin), RMeta: keyPressed(vkRWin),
		// Fn is handled by embedded-controller firmware on most laptops and
		// never reaches WH_KEYBOARD_LL; it is always reported unset here.
	}

	switch vkCode {
	case vkLShift, vkRShift, vkLControl, vkRControl, vkLMenu, vkRMenu, vkLWin, vkRWin:
		select {
		case w.events <- Event{Type: ModifiersChanged, Modifiers: snapshot}:
		default:
		}
		return
	}

	key := vkKeyToken(vkCode)
	if key == "" {
		return
	}
	evtType := KeyUp
	if down {
		evtType = KeyDown
	}
	select {
	case w.events <- Event{Type: evtType, Key: key, Modifiers: snapshot}:
	default:
	}
}

var vkTokens = map[uint32]string{
	0x20: "Space", 0x0D: "Return", 0x09: "Tab", 0x1B: "Escape",
	0x41: "A", 0x42: "B", 0x43: "C", 0x44: "D", 0x45: "E", 0x46: "F",
	0x47: "G", 0x48: "H", 0x49: "I", 0x4A: "J", 0x4B: "K", 0x4C: "L",
	0x4D: "M", 0x4E: "N", 0x4F: "O", 0x50: "P", 0x51: "Q", 0x52: "R",
	0x53: "S", 0x54: "T", 0x55: "U", 0x56: "V", 0x57: "W", 0x58: "X",
	0x59: "Y", 0x5A: "Z",
	0x30: "0", 0x31: "1", 0x32: "2", 0x33: "3", 0x34: "4",
	0x35: "5", 0x36: "6", 0x37: "7", 0x38: "8", 0x39: "9",
	0x70: "F1", 0x71: "F2", 0x72: "F3", 0x73: "F4", 0x74: "F5", 0x75: "F6",
	0x76: "F7", 0x77: "F8", 0x78: "F9", 0x79: "F10", 0x7A: "F11", 0x7B: "F12",
}

func vkKeyToken(vk uint32) string { return vkTokens[vk] }

func (w *winSource) Stop() {
	w.stopOnce.Do(func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		if w.threadID != 0 {
			procPostThreadMessageW.Call(w.threadID, uintptr(wmQuit), 0, 0)
			<-w.hookDone
		}
		activeHook = nil
		if w.events != nil {
			close(w.events)
			w.events = nil
		}
	})
}
