// Package insertion delivers a finished transcript into whatever text
// field currently has focus, grounded on
// original_source/src-tauri/src/text_insertion_service/mod.rs.
package insertion

import "fmt"

const (
	// DirectTypeThresholdChars bounds how much text is safe to synthesize
	// as individual keystrokes before the clipboard-paste fallback is
	// cheaper and less visually disruptive.
	DirectTypeThresholdChars = 400
	// UnicodeChunkSize is how many UTF-16 code units the macOS backend posts
	// per synthetic keyboard event. The Windows backend posts one code unit
	// per event and does not use it.
	UnicodeChunkSize = 48
)

// Mode selects whether Insert always copies to the clipboard or attempts
// direct typing first.
type Mode int

const (
	Auto Mode = iota
	CopyOnly
)

// Backend is the narrow platform surface insertion needs: one
// implementation per OS (backend_darwin.go, backend_linux.go,
// backend_windows.go).
type Backend interface {
	HasFocusedInputTarget() bool
	TypeUnicodeText(text string) error
	WriteClipboard(text string) error
	PostPasteShortcut() error
}

// Engine wraps a platform Backend with the mode-selection and
// fallback policy shared across platforms.
type Engine struct {
	backend Backend
}

func New(backend Backend) *Engine {
	return &Engine{backend: backend}
}

func (e *Engine) InsertText(text string) error {
	return e.InsertTextWithMode(text, Auto)
}

func (e *Engine) CopyToClipboard(text string) error {
	return e.InsertTextWithMode(text, CopyOnly)
}

// InsertTextWithMode implements insert_text_with_backend: empty text is a
// no-op, CopyOnly always writes the clipboard, and Auto either types
// directly or falls back to a clipboard paste depending on text length and
// whether a focused editable target was detected. A failed direct type
// still attempts the paste fallback before giving up, and both errors are
// reported together so the caller can see what actually went wrong.
func (e *Engine) InsertTextWithMode(text string, mode Mode) error {
	if text == "" {
		return nil
	}

	if mode == CopyOnly {
		return e.backend.WriteClipboard(text)
	}

	shouldPaste := runeCount(text) > DirectTypeThresholdChars || !e.backend.HasFocusedInputTarget()
	if shouldPaste {
		return e.pasteViaClipboard(text)
	}

	if err := e.backend.TypeUnicodeText(text); err != nil {
		if pasteErr := e.pasteViaClipboard(text); pasteErr != nil {
			return fmt.Errorf("direct insertion failed (%v); clipboard fallback failed (%v)", err, pasteErr)
		}
		return nil
	}
	return nil
}

func (e *Engine) pasteViaClipboard(text string) error {
	if err := e.backend.WriteClipboard(text); err != nil {
		return err
	}
	return e.backend.PostPasteShortcut()
}

func runeCount(s string) int {
	count := 0
	for range s {
		count++
	}
	return count
}
