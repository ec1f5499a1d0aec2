//go:build windows

package insertion

import (
	"fmt"
	"syscall"
	"unicode/utf16"
	"unsafe"
)

// Windows backend posts synthetic input through user32's SendInput, the
// same syscall.NewLazyDLL/NewProc style keysource_windows.go uses for its
// low-level keyboard hook.
var (
	user32                = syscall.NewLazyDLL("user32.dll")
	procSendInput         = user32.NewProc("SendInput")
	procGetForegroundWindow = user32.NewProc("GetForegroundWindow")
	procGetGUIThreadInfo  = user32.NewProc("GetGUIThreadInfo")
	procGetWindowThreadProcessId = user32.NewProc("GetWindowThreadProcessId")
)

const (
	inputKeyboard   = 1
	keyEventFUnicode = 0x0004
	keyEventFKeyUp   = 0x0002

	vkControl = 0x11
	vkV       = 0x56
)

// windowsInput mirrors the tagged union Windows' SendInput expects: a type
// discriminant followed by the largest member (KEYBDINPUT) padded out to
// match MOUSEINPUT/HARDWAREINPUT's union size on 64-bit.
type windowsInput struct {
	Type uint32
	_    uint32 // alignment padding before the union on amd64
	Ki   keybdInput
	_    [8]byte // pad union to MOUSEINPUT's size
}

type keybdInput struct {
	Vk        uint16
	Scan      uint16
	Flags     uint32
	Time      uint32
	ExtraInfo uintptr
}

type guiThreadInfo struct {
	cbSize        uint32
	flags         uint32
	hwndActive    uintptr
	hwndFocus     uintptr
	hwndCapture   uintptr
	hwndMenuOwner uintptr
	hwndMoveSize  uintptr
	hwndCaret     uintptr
	rcCaret       [4]int32
}

type windowsBackend struct{}

func NewPlatformBackend() Backend { return windowsBackend{} }

// HasFocusedInputTarget checks whether the foreground thread reports a
// focused window via GetGUIThreadInfo; that is a much weaker signal than
// the macOS accessibility check (it cannot tell whether the focused
// control is actually editable), but it is the only focus surface
// available through user32 without a UI Automation dependency.
func (windowsBackend) HasFocusedInputTarget() bool {
	hwnd, _, _ := procGetForegroundWindow.Call()
	if hwnd == 0 {
		return false
	}
	var pid uint32
	tid, _, _ := procGetWindowThreadProcessId.Call(hwnd, uintptr(unsafe.Pointer(&pid)))
	if tid == 0 {
		return false
	}

	var info guiThreadInfo
	info.cbSize = uint32(unsafe.Sizeof(info))
	ok, _, _ := procGetGUIThreadInfo.Call(tid, uintptr(unsafe.Pointer(&info)))
	return ok != 0 && info.hwndFocus != 0
}

func (windowsBackend) TypeUnicodeText(text string) error {
	units := utf16.Encode([]rune(text))
	for _, unit := range units {
		if err := sendUnicodeKey(unit, false); err != nil {
			return err
		}
		if err := sendUnicodeKey(unit, true); err != nil {
			return err
		}
	}
	return nil
}

func sendUnicodeKey(unit uint16, keyUp bool) error {
	flags := uint32(keyEventFUnicode)
	if keyUp {
		flags |= keyEventFKeyUp
	}
	input := windowsInput{
		Type: inputKeyboard,
		Ki: keybdInput{
			Vk:    0,
			Scan:  unit,
			Flags: flags,
		},
	}
	return sendInputs(input)
}

func (windowsBackend) WriteClipboard(text string) error {
	return writeClipboard(text)
}

func (windowsBackend) PostPasteShortcut() error {
	steps := []struct {
		vk    uint16
		keyUp bool
	}{
		{vkControl, false},
		{vkV, false},
		{vkV, true},
		{vkControl, true},
	}
	for _, step := range steps {
		flags := uint32(0)
		if step.keyUp {
			flags = keyEventFKeyUp
		}
		input := windowsInput{
			Type: inputKeyboard,
			Ki:   keybdInput{Vk: step.vk, Flags: flags},
		}
		if err := sendInputs(input); err != nil {
			return fmt.Errorf("post ctrl+v: %w", err)
		}
	}
	return nil
}

func sendInputs(input windowsInput) error {
	ret, _, errno := procSendInput.Call(
		1,
		uintptr(unsafe.Pointer(&input)),
		unsafe.Sizeof(input),
	)
	if ret == 0 {
		return fmt.Errorf("SendInput failed: %v", errno)
	}
	return nil
}
