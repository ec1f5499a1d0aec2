// Command dictated is the long-running dictation daemon: it listens for
// the configured hotkey, records audio while it is held (or toggled),
// transcribes the clip, and inserts the result into whatever application
// currently has focus.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/emmett/dictate/internal/applog"
	"github.com/emmett/dictate/internal/config"
	"github.com/emmett/dictate/internal/consoleui"
	"github.com/emmett/dictate/internal/hotkeyengine"
	"github.com/emmett/dictate/internal/insertion"
	"github.com/emmett/dictate/internal/keysource"
	"github.com/emmett/dictate/internal/pipeline"
	"github.com/emmett/dictate/internal/shortcut"
	"github.com/emmett/dictate/internal/store"
)

func main() {
	var configPath string

	root := &cobra.Command{
		Use:   "dictated",
		Short: "Run the dictation daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(configPath)
		},
	}
	root.Flags().StringVar(&configPath, "config", "", "path to config YAML (default: ~/.dictaterc)")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func runDaemon(configPath string) error {
	cfg, err := config.LoadWithFallback(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, closeLog, err := setupLogging(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	if err := os.MkdirAll(cfg.Data.Dir, 0755); err != nil {
		return fmt.Errorf("create data directory %q: %w", cfg.Data.Dir, err)
	}

	settings := store.NewSettingsStore(cfg.Data.Dir)
	if _, err := settings.Load(); err != nil {
		log.Warn("failed to load settings, using defaults", "error", err)
	}
	apiKeys := store.NewAPIKeyStore(cfg.Data.Dir)
	authz := store.NewAuthStore(cfg.Data.Dir)
	history, err := store.NewHistoryStore(cfg.Data.Dir)
	if err != nil {
		return fmt.Errorf("open history store: %w", err)
	}

	console := consoleui.Default()
	insertEngine := insertion.New(insertion.NewPlatformBackend())

	currentSettings := settings.Current()
	mode := hotkeyengine.HoldToTalk
	if currentSettings.RecordingMode == store.RecordingModeToggle {
		mode = hotkeyengine.Toggle
	}
	engine := hotkeyengine.New(hotkeyengine.Config{Mode: mode})

	parsedShortcut, err := shortcut.Parse(currentSettings.HotkeyShortcut)
	if err != nil {
		return fmt.Errorf("parse configured hotkey shortcut %q: %w", currentSettings.HotkeyShortcut, err)
	}

	pipe := pipeline.New(log)
	runtime := pipeline.NewRuntime(log)
	delegate := newAppDelegate(log, console, settings, apiKeys, authz, history, insertEngine, engine, runtime, pipe)

	driver, err := buildHotkeyDriver(engine, parsedShortcut, log)
	if err != nil {
		return fmt.Errorf("set up hotkey source: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	driver.onStart = func(ctx context.Context) {
		runtime.ExecutionLock.Lock()
		defer runtime.ExecutionLock.Unlock()

		sessionID := runtime.BeginSession()
		scoped := pipeline.NewSessionDelegate(delegate, runtime, sessionID, log)
		pipe.HandleHotkeyStarted(ctx, scoped)
	}
	driver.onStop = func(ctx context.Context) {
		runtime.ExecutionLock.Lock()
		defer runtime.ExecutionLock.Unlock()

		sessionID := runtime.BeginSession()
		scoped := pipeline.NewSessionDelegate(delegate, runtime, sessionID, log)
		pipe.HandleHotkeyStopped(ctx, scoped)
	}

	log.Info("dictation daemon starting", "hotkey", parsedShortcut.String(), "mode", currentSettings.RecordingMode)
	console.Info(fmt.Sprintf("listening for %s (%s)", parsedShortcut.String(), currentSettings.RecordingMode))

	return driver.Run(ctx)
}

// buildHotkeyDriver tries the low-level keysource.Source tap first,
// falling back to the coarser golang.design/x/hotkey-backed
// ShortcutSource when the tap is unavailable or lacks OS permission,
// matching keysource.New's documented fallback contract.
func buildHotkeyDriver(engine *hotkeyengine.Engine, s shortcut.Shortcut, log *applog.Logger) (*hotkeyDriver, error) {
	if source, ok := keysource.New(); ok {
		log.Info("using low-level key event tap")
		return newHotkeyDriver(source, engine, s, log), nil
	}

	log.Warn("low-level key tap unavailable or lacking permission, using coarse global-hotkey fallback")
	return newFallbackHotkeyDriver(keysource.NewFallback(), engine, s, log), nil
}

func setupLogging(cfg *config.Config) (*applog.Logger, func(), error) {
	if cfg.Log.File == "" {
		log := applog.New(os.Stderr, "dictated")
		log.SetLevelName(cfg.Log.Level)
		return log, func() {}, nil
	}

	path := cfg.Log.File
	if !filepath.IsAbs(path) {
		path = filepath.Join(cfg.Data.Dir, path)
	}
	f, err := applog.OpenLogFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	log := applog.New(f, "dictated")
	log.SetLevelName(cfg.Log.Level)
	return log, func() { f.Close() }, nil
}
