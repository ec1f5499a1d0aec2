package insertion

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockBackend struct {
	hasFocus       bool
	typeErr        error
	clipboardErr   error
	pasteErr       error
	typedText      string
	clipboardText  string
	pasteCalled    bool
}

func (m *mockBackend) HasFocusedInputTarget() bool { return m.hasFocus }

func (m *mockBackend) TypeUnicodeText(text string) error {
	if m.typeErr != nil {
		return m.typeErr
	}
	m.typedText = text
	return nil
}

func (m *mockBackend) WriteClipboard(text string) error {
	if m.clipboardErr != nil {
		return m.clipboardErr
	}
	m.clipboardText = text
	return nil
}

func (m *mockBackend) PostPasteShortcut() error {
	m.pasteCalled = true
	return m.pasteErr
}

func TestInsertTextWithModeEmptyTextIsNoop(t *testing.T) {
	backend := &mockBackend{hasFocus: true}
	err := New(backend).InsertText("")
	require.NoError(t, err)
	assert.Empty(t, backend.typedText)
	assert.Empty(t, backend.clipboardText)
}

func TestInsertTextWithModeCopyOnlyAlwaysUsesClipboardWithoutPaste(t *testing.T) {
	backend := &mockBackend{hasFocus: true}
	err := New(backend).CopyToClipboard("hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", backend.clipboardText)
	assert.False(t, backend.pasteCalled)
}

func TestInsertTextWithModeTypesDirectlyWhenFocusedAndShort(t *testing.T) {
	backend := &mockBackend{hasFocus: true}
	err := New(backend).InsertText("short text")
	require.NoError(t, err)
	assert.Equal(t, "short text", backend.typedText)
	assert.False(t, backend.pasteCalled)
}

func TestInsertTextWithModeFallsBackToPasteWhenNoFocusedTarget(t *testing.T) {
	backend := &mockBackend{hasFocus: false}
	err := New(backend).InsertText("short text")
	require.NoError(t, err)
	assert.Empty(t, backend.typedText)
	assert.Equal(t, "short text", backend.clipboardText)
	assert.True(t, backend.pasteCalled)
}

func TestInsertTextWithModeFallsBackToPasteAboveThreshold(t *testing.T) {
	backend := &mockBackend{hasFocus: true}
	longText := strings.Repeat("a", DirectTypeThresholdChars+1)
	err := New(backend).InsertText(longText)
	require.NoError(t, err)
	assert.Empty(t, backend.typedText)
	assert.Equal(t, longText, backend.clipboardText)
	assert.True(t, backend.pasteCalled)
}

func TestInsertTextWithModeMergesErrorsWhenBothDirectTypeAndPasteFail(t *testing.T) {
	backend := &mockBackend{
		hasFocus: true,
		typeErr:  fmt.Errorf("type failed"),
		pasteErr: fmt.Errorf("paste failed"),
	}
	err := New(backend).InsertText("short")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "type failed")
	assert.Contains(t, err.Error(), "paste failed")
}

func TestInsertTextWithModeRecoversViaPasteWhenDirectTypeFails(t *testing.T) {
	backend := &mockBackend{hasFocus: true, typeErr: fmt.Errorf("type failed")}
	err := New(backend).InsertText("short")
	require.NoError(t, err)
	assert.Equal(t, "short", backend.clipboardText)
	assert.True(t, backend.pasteCalled)
}
