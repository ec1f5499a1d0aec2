//go:build linux

package insertion

import (
	"encoding/binary"
	"fmt"
	"os"
	"syscall"
)

// linuxBackend synthesizes a paste keystroke through a virtual /dev/uinput
// keyboard, the same raw-struct-write style keysource_linux.go uses to
// read real input events. There is no portable accessibility surface on
// Linux in this corpus (no AT-SPI client library is vendored anywhere in
// the retrieved examples), so HasFocusedInputTarget always reports false —
// every insertion falls back to clipboard-paste, which is always safe.
// Direct Unicode typing would require programming a temporary keymap onto
// the virtual device and is not implemented; TypeUnicodeText always
// reports an error so the Auto-mode fallback takes over.
type linuxBackend struct{}

func NewPlatformBackend() Backend { return linuxBackend{} }

func (linuxBackend) HasFocusedInputTarget() bool { return false }

func (linuxBackend) TypeUnicodeText(string) error {
	return fmt.Errorf("direct unicode typing is not supported on linux")
}

func (linuxBackend) WriteClipboard(text string) error {
	return writeClipboard(text)
}

func (linuxBackend) PostPasteShortcut() error {
	dev, err := openUinputKeyboard()
	if err != nil {
		return err
	}
	defer dev.close()

	for _, step := range []struct {
		code uint16
		down bool
	}{
		{keyLeftCtrl, true},
		{keyV, true},
		{keyV, false},
		{keyLeftCtrl, false},
	} {
		if err := dev.keyEvent(step.code, step.down); err != nil {
			return err
		}
	}
	return nil
}

const (
	keyLeftCtrl = 29
	keyV        = 47

	uiSetEvBit   = 0x40045564
	uiSetKeyBit  = 0x40045565
	uiDevCreate  = 0x5501
	uiDevDestroy = 0x5502

	evSyn = 0x00
	evKey = 0x01
)

// uinputEvent mirrors struct input_event from linux/input.h on 64-bit
// kernels (8-byte timeval fields).
type uinputEvent struct {
	Sec   int64
	Usec  int64
	Type  uint16
	Code  uint16
	Value int32
}

type uinputKeyboard struct {
	file *os.File
}

func openUinputKeyboard() (*uinputKeyboard, error) {
	file, err := os.OpenFile("/dev/uinput", os.O_WRONLY|syscall.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("open /dev/uinput (paste fallback needs write access to it): %w", err)
	}

	if err := ioctl(file.Fd(), uiSetEvBit, evKey); err != nil {
		file.Close()
		return nil, fmt.Errorf("configure uinput event bit: %w", err)
	}
	for _, code := range []uint16{keyLeftCtrl, keyV} {
		if err := ioctl(file.Fd(), uiSetKeyBit, uintptr(code)); err != nil {
			file.Close()
			return nil, fmt.Errorf("configure uinput key bit: %w", err)
		}
	}

	if err := registerUinputDevice(file); err != nil {
		file.Close()
		return nil, err
	}
	if err := ioctl(file.Fd(), uiDevCreate, 0); err != nil {
		file.Close()
		return nil, fmt.Errorf("create uinput device: %w", err)
	}

	return &uinputKeyboard{file: file}, nil
}

// registerUinputDevice writes a uinput_user_dev struct (80-byte name field
// followed by a bus/vendor/product/version id and zeroed absolute-axis
// tables) describing this virtual keyboard to the kernel.
func registerUinputDevice(file *os.File) error {
	buf := make([]byte, 80+8+4+64*4*4)
	copy(buf, "dictate-paste")
	idOffset := 80
	binary.LittleEndian.PutUint16(buf[idOffset:], 0x03) // bus type: BUS_USB
	binary.LittleEndian.PutUint16(buf[idOffset+2:], 1)  // vendor
	binary.LittleEndian.PutUint16(buf[idOffset+4:], 1)  // product
	binary.LittleEndian.PutUint16(buf[idOffset+6:], 1)  // version

	_, err := file.Write(buf)
	return err
}

func (k *uinputKeyboard) keyEvent(code uint16, down bool) error {
	value := int32(0)
	if down {
		value = 1
	}
	if err := k.emit(evKey, code, value); err != nil {
		return err
	}
	return k.emit(evSyn, 0, 0)
}

func (k *uinputKeyboard) emit(evType uint16, code uint16, value int32) error {
	event := uinputEvent{Type: evType, Code: code, Value: value}
	return binary.Write(k.file, binary.LittleEndian, &event)
}

func (k *uinputKeyboard) close() error {
	ioctl(k.file.Fd(), uiDevDestroy, 0)
	return k.file.Close()
}

func ioctl(fd uintptr, request uintptr, arg uintptr) error {
	_, _, errno := syscall.Syscall(syscall.SYS_IOCTL, fd, request, arg)
	if errno != 0 {
		return errno
	}
	return nil
}
