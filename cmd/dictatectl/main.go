// Command dictatectl is the one-shot companion CLI to dictated: it lists
// capture devices, dumps transcript history, and lets an operator check
// whether the configured hotkey shortcut parses, printing its canonical form.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/emmett/dictate/internal/audio"
	"github.com/emmett/dictate/internal/config"
	"github.com/emmett/dictate/internal/consoleui"
	"github.com/emmett/dictate/internal/shortcut"
	"github.com/emmett/dictate/internal/store"
)

func main() {
	var configPath string

	root := &cobra.Command{
		Use:   "dictatectl",
		Short: "Inspect and test the dictation daemon's configuration",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config YAML (default: ~/.dictaterc)")

	root.AddCommand(
		devicesCommand(&configPath),
		historyCommand(&configPath),
		testHotkeyCommand(&configPath),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func devicesCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List available audio input devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			devices, err := audio.ListDevices()
			if err != nil {
				return fmt.Errorf("list devices: %w", err)
			}

			console := consoleui.Default()
			out := make([]consoleui.AudioDevice, len(devices))
			for i, d := range devices {
				out[i] = consoleui.AudioDevice{Name: d.Name, ID: d.ID, IsDefault: d.IsDefault}
			}
			console.DeviceList(out)
			return nil
		},
	}
}

func historyCommand(configPath *string) *cobra.Command {
	var limit int
	var offset int
	var clear bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print (or clear) saved transcript history",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadWithFallback(*configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			history, err := store.NewHistoryStore(cfg.Data.Dir)
			if err != nil {
				return fmt.Errorf("open history store: %w", err)
			}

			if clear {
				if err := history.ClearHistory(); err != nil {
					return fmt.Errorf("clear history: %w", err)
				}
				fmt.Println("history cleared")
				return nil
			}

			entries, err := history.ListEntries(limit, offset)
			if err != nil {
				return fmt.Errorf("list history: %w", err)
			}
			if len(entries) == 0 {
				fmt.Println("no history entries")
				return nil
			}
			for _, e := range entries {
				fmt.Printf("[%s] (%s) %s\n", e.Timestamp, e.Provider, e.Text)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of entries to print")
	cmd.Flags().IntVar(&offset, "offset", 0, "number of most-recent entries to skip")
	cmd.Flags().BoolVar(&clear, "clear", false, "delete all stored history entries instead of printing them")
	return cmd
}

func testHotkeyCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "test-hotkey [shortcut]",
		Short: "Parse a hotkey shortcut string (or the configured one) and print its canonical form",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw := ""
			if len(args) == 1 {
				raw = args[0]
			} else {
				cfg, err := config.LoadWithFallback(*configPath)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				settings := store.NewSettingsStore(cfg.Data.Dir)
				if _, err := settings.Load(); err != nil {
					return fmt.Errorf("load settings: %w", err)
				}
				raw = settings.Current().HotkeyShortcut
			}

			parsed, err := shortcut.Parse(raw)
			if err != nil {
				return fmt.Errorf("invalid shortcut %q: %w", raw, err)
			}
			fmt.Printf("parsed %q as %s\n", raw, parsed.String())
			return nil
		},
	}
}
