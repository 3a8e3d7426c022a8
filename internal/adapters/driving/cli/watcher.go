package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/boomvriend/zotero2remarkable-bridge/internal/logger"
)

// pendingDebounce collapses the burst of events a single file copy raises.
var pendingDebounce = 2 * time.Second

// watchPending calls onChange after PDFs are created in or written to dir,
// at most once per quiet period. If onChange reports false it is called
// again after another quiet period. It returns when ctx is done.
func watchPending(ctx context.Context, dir string, onChange func(context.Context) bool) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create pending directory: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	logger.Debug("Watching %s for pending files", dir)

	timer := time.NewTimer(pendingDebounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if isPendingPDF(event) {
				logger.Debug("Pending file %s: %s", event.Op, filepath.Base(event.Name))
				timer.Reset(pendingDebounce)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("pending watcher: %v", err)
		case <-timer.C:
			if !onChange(ctx) {
				timer.Reset(pendingDebounce)
			}
		}
	}
}

func isPendingPDF(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return false
	}
	return strings.EqualFold(filepath.Ext(event.Name), ".pdf")
}
