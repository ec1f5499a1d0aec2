//go:build darwin

package insertion

/*
#cgo LDFLAGS: -framework ApplicationServices -framework CoreFoundation
#include <ApplicationServices/ApplicationServices.h>
#include <CoreFoundation/CoreFoundation.h>

static CFStringRef dictateCFString(const char *s) {
    return CFStringCreateWithCString(kCFAllocatorDefault, s, kCFStringEncodingUTF8);
}

static int dictateHasFocusedInputTarget(void) {
    AXUIElementRef systemWide = AXUIElementCreateSystemWide();
    if (systemWide == NULL) {
        return 0;
    }

    CFStringRef focusedAppAttr = dictateCFString("AXFocusedApplication");
    CFStringRef focusedElementAttr = dictateCFString("AXFocusedUIElement");
    if (focusedAppAttr == NULL || focusedElementAttr == NULL) {
        if (focusedAppAttr != NULL) CFRelease(focusedAppAttr);
        if (focusedElementAttr != NULL) CFRelease(focusedElementAttr);
        CFRelease(systemWide);
        return 0;
    }

    CFTypeRef focusedApp = NULL;
    AXError appStatus = AXUIElementCopyAttributeValue(systemWide, focusedAppAttr, &focusedApp);

    CFTypeRef focusedElement = NULL;
    AXError elementStatus = AXUIElementCopyAttributeValue(systemWide, focusedElementAttr, &focusedElement);

    if (focusedApp != NULL) CFRelease(focusedApp);
    if (focusedElement != NULL) CFRelease(focusedElement);
    CFRelease(focusedAppAttr);
    CFRelease(focusedElementAttr);
    CFRelease(systemWide);

    return (appStatus == kAXErrorSuccess && elementStatus == kAXErrorSuccess) ? 1 : 0;
}

static int dictatePostUnicodeKeystroke(const UniChar *chunk, CFIndex length, int keyDown) {
    CGEventRef event = CGEventCreateKeyboardEvent(NULL, 0, keyDown ? 1 : 0);
    if (event == NULL) {
        return 0;
    }
    CGEventKeyboardSetUnicodeString(event, length, chunk);
    CGEventPost(kCGSessionEventTap, event);
    CFRelease(event);
    return 1;
}

static int dictatePostCommandV(void) {
    CGEventRef keyDown = CGEventCreateKeyboardEvent(NULL, 0x09, 1);
    if (keyDown == NULL) {
        return 0;
    }
    CGEventSetFlags(keyDown, kCGEventFlagMaskCommand);
    CGEventPost(kCGSessionEventTap, keyDown);
    CFRelease(keyDown);

    CGEventRef keyUp = CGEventCreateKeyboardEvent(NULL, 0x09, 0);
    if (keyUp == NULL) {
        return 0;
    }
    CGEventSetFlags(keyUp, kCGEventFlagMaskCommand);
    CGEventPost(kCGSessionEventTap, keyUp);
    CFRelease(keyUp);
    return 1;
}
*/
import "C"

import (
	"fmt"
	"unicode/utf16"
	"unsafe"
)

type darwinBackend struct{}

// NewPlatformBackend returns the macOS insertion backend, grounded directly
// on text_insertion_service/mod.rs's CGEvent/AX-based implementation.
func NewPlatformBackend() Backend { return darwinBackend{} }

func (darwinBackend) HasFocusedInputTarget() bool {
	return C.dictateHasFocusedInputTarget() != 0
}

func (darwinBackend) TypeUnicodeText(text string) error {
	units := utf16.Encode([]rune(text))

	for start := 0; start < len(units); start += UnicodeChunkSize {
		end := start + UnicodeChunkSize
		if end > len(units) {
			end = len(units)
		}
		chunk := units[start:end]

		if ok := C.dictatePostUnicodeKeystroke((*C.UniChar)(unsafe.Pointer(&chunk[0])), C.CFIndex(len(chunk)), 1); ok == 0 {
			return fmt.Errorf("failed to create keyboard event")
		}
		if ok := C.dictatePostUnicodeKeystroke((*C.UniChar)(unsafe.Pointer(&chunk[0])), C.CFIndex(len(chunk)), 0); ok == 0 {
			return fmt.Errorf("failed to create keyboard event")
		}
	}
	return nil
}

func (darwinBackend) WriteClipboard(text string) error {
	return writeClipboard(text)
}

func (darwinBackend) PostPasteShortcut() error {
	if ok := C.dictatePostCommandV(); ok == 0 {
		return fmt.Errorf("failed to create key event for Cmd+V")
	}
	return nil
}
