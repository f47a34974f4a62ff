package watcher

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// WatchCoordinator routes debounced file changes to a Runner. The watcher is
// paused while a run is in progress so changes made during the run are
// batched into the next one.
type WatchCoordinator struct {
	files  FileWatcher
	runner Runner
	log    logrus.FieldLogger
}

// NewWatchCoordinator creates a new watch coordinator.
func NewWatchCoordinator(files FileWatcher, runner Runner, log logrus.FieldLogger) *WatchCoordinator {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &WatchCoordinator{files: files, runner: runner, log: log}
}

// Start watches until ctx is cancelled, then stops the watcher.
func (c *WatchCoordinator) Start(ctx context.Context) error {
	if err := c.files.Start(ctx, func(files []string) { c.handleFileChange(ctx, files) }); err != nil {
		c.cleanup()
		return err
	}
	<-ctx.Done()
	c.cleanup()
	return ctx.Err()
}

func (c *WatchCoordinator) cleanup() {
	if err := c.files.Stop(); err != nil {
		c.log.WithError(err).Warn("file watcher stop failed")
	}
}

// handleFileChange runs the runner once for a batch of changes. Run errors
// are logged, not returned, so watching continues.
func (c *WatchCoordinator) handleFileChange(ctx context.Context, files []string) {
	if len(files) == 0 || ctx.Err() != nil {
		return
	}

	c.files.Pause()
	defer c.files.Resume()

	c.log.WithField("changes", len(files)).Info("inputs changed, re-summarizing")
	start := time.Now()
	if err := c.runner.Run(ctx, files); err != nil {
		c.log.WithError(err).Error("re-summarize failed")
		return
	}
	c.log.WithField("elapsed", time.Since(start).Round(time.Millisecond)).Info("re-summarize complete")
}
