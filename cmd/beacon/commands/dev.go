package commands

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/ajhcs/beacon/pkg/beaconerr"
)

func newDevCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dev <spec.json>",
		Short: "Recompile a specification on every save and report the result",
		Long: `dev watches a specification file for changes and recompiles it on
every write, debounced by 500ms so a save that touches the file more than
once (some editors do) only triggers one recompile. It never starts a
campaign — it's the fast local-iteration loop for getting a spec past
schema, structural, and type checking before reaching for "run".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return watchAndRecompile(cmd.Context(), args[0])
		},
	}
	return cmd
}

func watchAndRecompile(ctx context.Context, specPath string) error {
	logger, err := newComponentLogger("dev")
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the containing directory rather than the file itself: many
	// editors save by renaming a temp file over the original, which
	// fsnotify sees as the watched file disappearing, not as a write to
	// it.
	dir := filepath.Dir(specPath)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	recompile := func() {
		compiled, err := loadAndCompile(specPath)
		if err != nil {
			cerr := beaconerr.NewCompilationError("specification rejected", err)
			logger.WithError(cerr).Error("compile failed")
			return
		}
		logger.WithSpecHash(compiled.Hash).Info("specification compiled")
		fmt.Printf("ok  content_hash=%s protocols=%d entry=%s\n", compiled.Hash, len(compiled.Graphs), compiled.Spec.Bindings.Entry)
	}

	logger.WithField("path", specPath).Info("watching for changes")
	recompile()

	var reloadTimer *time.Timer
	const debounce = 500 * time.Millisecond

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(specPath) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			reloadTimer = time.AfterFunc(debounce, recompile)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.WithError(err).Error("watcher error")
		}
	}
}
