package corpus

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 75 * time.Millisecond

// Watch reloads p with load whenever one of paths changes, until ctx is done.
// Parent directories are watched so that editors replacing a file by rename
// are seen too. A failed reload keeps the previous corpus.
func Watch(ctx context.Context, paths []string, load func() ([]string, error), p *Predictive) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer w.Close()

	watched := make(map[string]bool, len(paths))
	dirs := make(map[string]bool)
	for _, path := range paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		watched[abs] = true
		dir := filepath.Dir(abs)
		if dirs[dir] {
			continue
		}
		if err := w.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		dirs[dir] = true
	}

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			name, err := filepath.Abs(ev.Name)
			if err != nil || !watched[name] {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
			} else {
				timer.Reset(watchDebounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			phrases, err := load()
			if err != nil {
				slog.Warn("corpus reload failed, keeping previous phrases", "error", err)
				continue
			}
			p.SetPhrases(phrases)
			slog.Info("corpus reloaded", "phrases", p.Len())
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			slog.Warn("corpus watch error", "error", err)
		}
	}
}
