// Package consoleui renders the voice pipeline's status and transcripts to
// a terminal, adapted from internal/output/console.go's direct
// fmt.Fprintf style. Where the teacher wrote a generic transcription
// console, this one is shaped around pipeline.Status transitions,
// pipeline.Transcript records, and the device listing dictatectl prints.
package consoleui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/emmett/dictate/internal/pipeline"
)

// Console writes pipeline activity to a terminal. It is safe for
// concurrent use by the pipeline's status/transcript/error callbacks.
type Console struct {
	mu            sync.Mutex
	writer        io.Writer
	showTimestamp bool
}

// Config configures a Console.
type Config struct {
	// ShowTimestamp prefixes each line with a timestamp.
	ShowTimestamp bool
	// Writer is the output destination (default: os.Stdout).
	Writer io.Writer
}

func New(cfg Config) *Console {
	writer := cfg.Writer
	if writer == nil {
		writer = os.Stdout
	}
	return &Console{writer: writer, showTimestamp: cfg.ShowTimestamp}
}

// Default returns a Console with timestamps enabled, writing to stdout.
func Default() *Console {
	return New(Config{ShowTimestamp: true, Writer: os.Stdout})
}

func (c *Console) prefix() string {
	if !c.showTimestamp {
		return ""
	}
	return fmt.Sprintf("[%s] ", time.Now().Format("15:04:05"))
}

// Status renders a pipeline status transition, overwriting the current
// line so repeated status updates (idle -> listening -> transcribing)
// don't scroll the terminal.
func (c *Console) Status(status pipeline.Status) {
	c.mu.Lock()
	defer c.mu.Unlock()

	glyph := statusGlyph(status)
	fmt.Fprintf(c.writer, "\r%s[%s] %-12s", c.prefix(), glyph, status.String())
}

func statusGlyph(status pipeline.Status) string {
	switch status {
	case pipeline.Listening:
		return "*"
	case pipeline.Transcribing:
		return "~"
	case pipeline.Error:
		return "!"
	default:
		return " "
	}
}

// Level renders a live audio level meter on the status line while
// recording, overwriting the same line Status uses.
func (c *Console) Level(level float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	glyph := statusGlyph(pipeline.Listening)
	fmt.Fprintf(c.writer, "\r%s[%s] %-12s %s", c.prefix(), glyph, pipeline.Listening.String(), levelBar(level))
}

func levelBar(level float64) string {
	const width = 20
	if level < 0 {
		level = 0
	}
	if level > 1 {
		level = 1
	}
	filled := int(level * width)
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]"
}

// Transcript prints a finished transcript on its own line, clearing
// whatever status line preceded it.
func (c *Console) Transcript(t pipeline.Transcript) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.writer, "\r%80s\r", " ")
	meta := ""
	if t.DurationS != nil {
		meta = fmt.Sprintf(" (%.1fs, %s)", *t.DurationS, t.Provider)
	} else if t.Provider != "" {
		meta = fmt.Sprintf(" (%s)", t.Provider)
	}
	fmt.Fprintf(c.writer, "%s%s%s\n", c.prefix(), t.Text, meta)
}

// Error prints a pipeline error to stderr, tagged with the stage that
// produced it.
func (c *Console) Error(err *pipeline.Error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.writer, "\r%80s\r", " ")
	fmt.Fprintf(os.Stderr, "%s[error:%s] %s\n", c.prefix(), err.Stage.String(), err.Message)
}

// Info prints an informational line.
func (c *Console) Info(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.writer, "%s%s\n", c.prefix(), msg)
}

// AudioDevice is the subset of a capture device's identity consoleui needs
// to print a device list; internal/audio's concrete device type satisfies
// this structurally.
type AudioDevice struct {
	Name      string
	ID        string
	IsDefault bool
}

// DeviceList prints the audio input devices dictatectl's "devices"
// subcommand discovers, marking the default device.
func (c *Console) DeviceList(devices []AudioDevice) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(devices) == 0 {
		fmt.Fprintln(c.writer, "no input devices found")
		return
	}
	for _, d := range devices {
		marker := " "
		if d.IsDefault {
			marker = "*"
		}
		fmt.Fprintf(c.writer, "%s %s  (%s)\n", marker, d.Name, d.ID)
	}
}

// RecordingSize prints a captured clip's size in human-readable form,
// shown after a one-shot recording completes.
func (c *Console) RecordingSize(bytes int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.writer, "%scaptured %s of audio\n", c.prefix(), humanize.Bytes(uint64(bytes)))
}
