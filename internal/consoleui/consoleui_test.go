package consoleui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/emmett/dictate/internal/pipeline"
)

func TestTranscriptWritesTextAndProvider(t *testing.T) {
	var buf bytes.Buffer
	c := New(Config{Writer: &buf})

	duration := 1.25
	c.Transcript(pipeline.Transcript{Text: "hello world", Provider: "realtime", DurationS: &duration})

	out := buf.String()
	assert.Contains(t, out, "hello world")
	assert.Contains(t, out, "realtime")
	assert.Contains(t, out, "1.2")
}

func TestStatusRendersGlyphAndLabel(t *testing.T) {
	var buf bytes.Buffer
	c := New(Config{Writer: &buf})

	c.Status(pipeline.Listening)

	assert.Contains(t, buf.String(), "listening")
}

func TestDeviceListMarksDefault(t *testing.T) {
	var buf bytes.Buffer
	c := New(Config{Writer: &buf})

	c.DeviceList([]AudioDevice{
		{Name: "Built-in Mic", ID: "default", IsDefault: true},
		{Name: "USB Mic", ID: "usb-1"},
	})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "*"))
	assert.True(t, strings.HasPrefix(lines[1], " "))
}

func TestDeviceListHandlesEmpty(t *testing.T) {
	var buf bytes.Buffer
	c := New(Config{Writer: &buf})

	c.DeviceList(nil)

	assert.Contains(t, buf.String(), "no input devices found")
}

func TestLevelRendersAProportionalMeter(t *testing.T) {
	var buf bytes.Buffer
	c := New(Config{Writer: &buf})

	c.Level(0.5)

	out := buf.String()
	assert.Contains(t, out, "listening")
	assert.Contains(t, out, "[")
}

func TestLevelClampsOutOfRangeInput(t *testing.T) {
	var buf bytes.Buffer
	c := New(Config{Writer: &buf})

	c.Level(1.5)
	assert.Contains(t, buf.String(), strings.Repeat("#", 20))

	buf.Reset()
	c.Level(-1)
	assert.Contains(t, buf.String(), strings.Repeat(".", 20))
}

func TestRecordingSizeHumanizesBytes(t *testing.T) {
	var buf bytes.Buffer
	c := New(Config{Writer: &buf})

	c.RecordingSize(2_500_000)

	assert.Contains(t, buf.String(), "MB")
}
