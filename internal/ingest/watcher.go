package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// debounceWindow batches bursts of filesystem events (editors write
// multiple times per save) into a single re-ingest.
const debounceWindow = 2 * time.Second

// Watch re-runs onChange whenever a markdown file under docsPath is
// created, written or removed. It blocks until ctx is cancelled.
func Watch(ctx context.Context, docsPath string, onChange func(), log *zap.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(docsPath); err != nil {
		return fmt.Errorf("watch %s: %w", docsPath, err)
	}
	log.Info("watching docs directory", zap.String("path", docsPath))

	var timer *time.Timer
	fire := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !strings.HasSuffix(strings.ToLower(event.Name), ".md") {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounceWindow, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("docs watcher error", zap.Error(err))
		case <-fire:
			log.Info("docs changed, re-ingesting")
			onChange()
		}
	}
}
