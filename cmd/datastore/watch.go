package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	dslifecycle "github.com/aretw0/datastore/pkg/adapters/lifecycle"
)

var watchPattern string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-inject fixture files on change and print store events",
	Long: `Load the configured fixtures, then watch the fixture files. Every time a file
is written its records are injected again, and the resulting CREATE and MODIFY
events are printed. Unchanged records produce no event.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		s, err := openSession(ctx)
		if err != nil {
			fatal("Failed to open store", err)
		}

		source := dslifecycle.NewSource(s.store, watchPattern)
		if err := source.Start(ctx); err != nil {
			fatal("Failed to watch store", err)
		}

		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			fatal("Failed to create watcher", err)
		}
		defer watcher.Close()

		paths := make(map[string]bool)
		for _, p := range s.config.FixturePaths() {
			abs, err := filepath.Abs(p)
			if err != nil {
				fatal("Invalid fixture path", err)
			}
			paths[abs] = true
			// Editors replace files on save, the directory survives.
			if err := watcher.Add(filepath.Dir(abs)); err != nil {
				fatal("Failed to watch fixtures", err)
			}
		}
		fmt.Fprintf(os.Stderr, "Watching %d fixture file(s). Press Ctrl+C to stop.\n", len(paths))

		for {
			select {
			case <-ctx.Done():
				return

			case e, ok := <-source.Events():
				if !ok {
					return
				}
				fmt.Println(e.String())

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !paths[event.Name] || !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
					continue
				}
				if _, err := s.load(ctx, event.Name, false); err != nil {
					slog.Error("failed to reload fixtures", "path", event.Name, "error", err)
				}

			case wErr, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Error("watcher error", "error", wErr)
			}
		}
	},
}

func init() {
	watchCmd.Flags().StringVarP(&watchPattern, "pattern", "p", "", "Glob over resource/id, e.g. 'post/*'")
	rootCmd.AddCommand(watchCmd)
}
