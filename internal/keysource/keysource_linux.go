//go:build linux

package keysource

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"unsafe"

	"github.com/emmett/dictate/internal/shortcut"
)

// evdevInputEvent mirrors struct input_event from linux/input.h. Read
// directly off /dev/input/eventN, the same raw-struct approach used by the
// waymon hotkey capture reference file; device discovery (scan /dev/input,
// keep a goroutine per device, an atomic stopping flag so in-flight reads
// exit cleanly) follows the AshBuk evdev provider's shape.
type evdevInputEvent struct {
	Time  syscall.Timeval
	Type  uint16
	Code  uint16
	Value int32
}

const (
	evKey = 0x01

	keyEsc   = 1
	keyTab   = 15
	keyEnter = 28
	keySpace = 57

	keyLeftCtrl   = 29
	keyRightCtrl  = 97
	keyLeftShift  = 42
	keyRightShift = 54
	keyLeftAlt    = 56
	keyRightAlt   = 100
	keyLeftMeta   = 125
	keyRightMeta  = 126
	keyFn         = 464
)

var evdevLetterDigitCodes = map[uint16]string{
	16: "Q", 17: "W", 18: "E", 19: "R", 20: "T", 21: "Y", 22: "U", 23: "I", 24: "O", 25: "P",
	30: "A", 31: "S", 32: "D", 33: "F", 34: "G", 35: "H", 36: "J", 37: "K", 38: "L",
	44: "Z", 45: "X", 46: "C", 47: "V", 48: "B", 49: "N", 50: "M",
	2: "1", 3: "2", 4: "3", 5: "4", 6: "5", 7: "6", 8: "7", 9: "8", 10: "9", 11: "0",
	59: "F1", 60: "F2", 61: "F3", 62: "F4", 63: "F5", 64: "F6",
	65: "F7", 66: "F8", 67: "F9", 68: "F10", 87: "F11", 88: "F12",
}

func evdevKeyToken(code uint16) string {
	switch code {
	case keySpace:
		return "Space"
	case keyEnter:
		return "Return"
	case keyTab:
		return "Tab"
	case keyEsc:
		return "Escape"
	}
	return evdevLetterDigitCodes[code]
}

type evdevSource struct {
	mu       sync.Mutex
	devices  []*os.File
	wg       sync.WaitGroup
	cancel   context.CancelFunc
	events   chan Event
	stopping int32
	stopOnce sync.Once
}

func newPlatformSource() Source {
	return &evdevSource{}
}

// HasPermission reports whether the process can open at least one keyboard
// device under /dev/input; on most distributions that requires membership
// in the "input" group.
func (s *evdevSource) HasPermission() bool {
	devices, err := findKeyboardDevicePaths()
	return err == nil && len(devices) > 0
}

func findKeyboardDevicePaths() ([]string, error) {
	paths, err := filepath.Glob("/dev/input/event*")
	if err != nil {
		return nil, fmt.Errorf("list input devices: %w", err)
	}
	var ok []string
	for _, p := range paths {
		f, err := os.OpenFile(p, os.O_RDONLY, 0)
		if err != nil {
			continue
		}
		f.Close()
		ok = append(ok, p)
	}
	return ok, nil
}

func (s *evdevSource) Start(ctx context.Context) (<-chan Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	paths, err := findKeyboardDevicePaths()
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no accessible keyboard devices under /dev/input")
	}

	for _, p := range paths {
		f, err := os.OpenFile(p, os.O_RDONLY, 0)
		if err != nil {
			continue
		}
		s.devices = append(s.devices, f)
	}
	if len(s.devices) == 0 {
		return nil, fmt.Errorf("failed to open any keyboard device")
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.events = make(chan Event, 32)
	atomic.StoreInt32(&s.stopping, 0)

	for _, dev := range s.devices {
		s.wg.Add(1)
		go s.readDevice(runCtx, dev)
	}

	go func() {
		<-runCtx.Done()
		s.Stop()
	}()

	return s.events, nil
}

func (s *evdevSource) readDevice(ctx context.Context, f *os.File) {
	defer s.wg.Done()

	eventSize := int(unsafe.Sizeof(evdevInputEvent{}))
	buf := make([]byte, eventSize)
	var held shortcut.ModifierSnapshot

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		n, err := f.Read(buf)
		if err != nil {
			if atomic.LoadInt32(&s.stopping) == 1 || strings.Contains(err.Error(), "file already closed") {
				return
			}
			return
		}
		if n != eventSize {
			continue
		}

		ev := (*evdevInputEvent)(unsafe.Pointer(&buf[0]))
		if ev.Type != evKey {
			continue
		}

		down := ev.Value != 0
		autorepeat := ev.Value == 2

		switch ev.Code {
		case keyLeftCtrl:
			held.LCtrl = down
		case keyRightCtrl:
			held.RCtrl = down
		case keyLeftShift:
			held.LShift = down
		case keyRightShift:
			held.RShift = down
		case keyLeftAlt:
			held.LAlt = down
		case keyRightAlt:
			held.RAlt = down
		case keyLeftMeta:
			held.LMeta = down
		case keyRightMeta:
			held.RMeta = down
		case keyFn:
			held.Fn = down
		}

		var evtType EventType
		var key string
		switch ev.Code {
		case keyLeftCtrl, keyRightCtrl, keyLeftShift, keyRightShift,
			keyLeftAlt, keyRightAlt, keyLeftMeta, keyRightMeta, keyFn:
			evtType = ModifiersChanged
		default:
			key = evdevKeyToken(ev.Code)
			if key == "" {
				continue
			}
			if down {
				evtType = KeyDown
			} else {
				evtType = KeyUp
			}
		}

		out := Event{Type: evtType, Key: key, Modifiers: held, Autorepeat: autorepeat}
		select {
		case s.events <- out:
		case <-ctx.Done():
			return
		}
	}
}

func (s *evdevSource) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		atomic.StoreInt32(&s.stopping, 1)
		if s.cancel != nil {
			s.cancel()
		}
		for _, f := range s.devices {
			f.Close()
		}
		s.devices = nil
		s.wg.Wait()
		if s.events != nil {
			close(s.events)
			s.events = nil
		}
	})
}
