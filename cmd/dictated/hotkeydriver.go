package main

import (
	"context"

	"github.com/emmett/dictate/internal/applog"
	"github.com/emmett/dictate/internal/hotkeyengine"
	"github.com/emmett/dictate/internal/keysource"
	"github.com/emmett/dictate/internal/shortcut"
)

// hotkeyDriver reads a raw key-event stream, matches it against the
// currently configured shortcut, and feeds press/release observations
// into a hotkeyengine.Engine, invoking onStart/onStop for every
// transition the engine actually decides on. This is the glue lib.rs's
// register_pipeline_handlers wires through tauri's event bus; here it is
// a direct channel-reading goroutine instead.
//
// start/stop are abstracted behind plain functions so the same driver
// runs over either keysource.Source's raw, unfiltered stream (matched
// here against current) or keysource.ShortcutSource's fallback stream,
// which is already filtered to one shortcut's presses by the backend
// itself (preFiltered skips the redundant match in that case).
type hotkeyDriver struct {
	start func(ctx context.Context) (<-chan keysource.Event, error)
	stop  func()

	preFiltered bool
	current     shortcut.Shortcut

	// fnHeld tracks whether the shortcut's key (when it is itself "Fn") was
	// considered held as of the last ModifiersChanged event, so a toggle can
	// be turned into a synthetic Pressed/Released edge. Most key sources
	// never deliver Fn as a KeyDown/KeyUp, only as a modifier toggle.
	fnHeld bool

	engine  *hotkeyengine.Engine
	log     *applog.Logger
	onStart func(ctx context.Context)
	onStop  func(ctx context.Context)
}

func newHotkeyDriver(source keysource.Source, engine *hotkeyengine.Engine, s shortcut.Shortcut, log *applog.Logger) *hotkeyDriver {
	return &hotkeyDriver{
		start:   source.Start,
		stop:    source.Stop,
		current: s,
		engine:  engine,
		log:     log,
	}
}

func newFallbackHotkeyDriver(source keysource.ShortcutSource, engine *hotkeyengine.Engine, s shortcut.Shortcut, log *applog.Logger) *hotkeyDriver {
	return &hotkeyDriver{
		start:       func(ctx context.Context) (<-chan keysource.Event, error) { return source.StartFor(ctx, s) },
		stop:        source.Stop,
		preFiltered: true,
		current:     s,
		engine:      engine,
		log:         log,
	}
}

func (d *hotkeyDriver) Run(ctx context.Context) error {
	events, err := d.start(ctx)
	if err != nil {
		return err
	}
	defer d.stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case evt, ok := <-events:
			if !ok {
				return nil
			}
			d.handle(ctx, evt)
		}
	}
}

func (d *hotkeyDriver) handle(ctx context.Context, evt keysource.Event) {
	if evt.Type == keysource.ModifiersChanged {
		d.handleModifiersChanged(ctx, evt)
		return
	}
	if evt.Autorepeat {
		return
	}
	if !d.preFiltered && !d.current.Matches(evt.Modifiers, evt.Key) {
		return
	}

	trigger := hotkeyengine.Pressed
	if evt.Type == keysource.KeyUp {
		trigger = hotkeyengine.Released
	}

	d.applyTrigger(ctx, trigger)
}

// handleModifiersChanged synthesizes Pressed/Released edges out of
// ModifiersChanged toggles when the configured shortcut's key is itself a
// modifier (in practice, only "Fn" reaches here: normalizeKeyToken rejects
// every other modifier name as a key). Key sources report Fn exclusively
// through modifier-state changes, never as a KeyDown/KeyUp, so this is the
// only way such a shortcut can ever fire.
func (d *hotkeyDriver) handleModifiersChanged(ctx context.Context, evt keysource.Event) {
	if d.preFiltered || d.current.Key() != "Fn" {
		return
	}

	adjusted := evt.Modifiers
	adjusted.Fn = false
	matchingNow := d.current.Matches(adjusted, "Fn")
	if matchingNow == d.fnHeld {
		return
	}
	d.fnHeld = matchingNow

	trigger := hotkeyengine.Released
	if matchingNow {
		trigger = hotkeyengine.Pressed
	}
	d.applyTrigger(ctx, trigger)
}

func (d *hotkeyDriver) applyTrigger(ctx context.Context, trigger hotkeyengine.Trigger) {
	transition, ok := d.engine.Apply(trigger)
	if !ok {
		return
	}

	switch transition {
	case hotkeyengine.Started:
		d.log.Debug("hotkey matched: starting recording")
		if d.onStart != nil {
			d.onStart(ctx)
		}
		if d.engine.PendingStop() {
			d.processStop(ctx)
		}
	case hotkeyengine.Stopped:
		d.log.Debug("hotkey matched: stopping recording")
		d.processStop(ctx)
	}
}

// processStop resolves stop_processing_decision() for the Stopped
// transition that was just emitted and acts on it: a genuinely active
// recording is actually stopped, a stop that raced a not-yet-acknowledged
// start is deferred (and retried once that start acknowledges, from
// applyTrigger above), a spurious stop with nothing ever started is
// acknowledged without side effects, and a stop already in flight is
// ignored outright.
func (d *hotkeyDriver) processStop(ctx context.Context) {
	switch d.engine.StopDecision() {
	case hotkeyengine.Process:
		if d.onStop != nil {
			d.onStop(ctx)
		}
	case hotkeyengine.AcknowledgeOnly:
		d.log.Debug("hotkey stop acknowledged without an active recording")
		d.engine.Acknowledge(hotkeyengine.Stopped, true)
	case hotkeyengine.DeferUntilStarted:
		d.log.Debug("hotkey stop deferred until its start is acknowledged")
	case hotkeyengine.Ignore:
		d.log.Debug("hotkey stop ignored: one is already in flight")
	}
}
