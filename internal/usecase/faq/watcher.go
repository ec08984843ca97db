package faq

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watch reloads the FAQ table whenever the file changes, swapping the
// whole table atomically. Blocks until ctx is canceled; run in a goroutine.
// Editors often replace files via rename, so the parent directory is
// watched rather than the file itself.
func (s *Service) Watch(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	target := filepath.Clean(path)

	// Debounce: editors emit bursts of events per save.
	var pending <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			pending = time.After(250 * time.Millisecond)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("FAQ watcher error", zap.Error(err))
		case <-pending:
			pending = nil
			entries, err := LoadTable(path)
			if err != nil {
				s.logger.Error("FAQ reload failed, keeping previous table",
					zap.String("path", path), zap.Error(err))
				continue
			}
			s.Replace(entries)
			s.logger.Info("FAQ table reloaded",
				zap.String("path", path), zap.Int("entries", len(entries)))
		}
	}
}
