// Package watcher installs plugin archives dropped into a watched
// directory, the way desktop hosts pick up downloads without an API call.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/lumenide/pluginhub/internal/installer"
	"github.com/lumenide/pluginhub/internal/reconcile"
)

// settleDelay gives the writer time to finish before the archive is read.
const settleDelay = 500 * time.Millisecond

// DropWatcher watches a directory for plugin archives. Each new .zip is
// staged and registered with the session; activation waits for Apply.
type DropWatcher struct {
	dir     string
	driver  *installer.Driver
	session *reconcile.Session
	watcher *fsnotify.Watcher
	logger  *zap.Logger
}

// New creates a drop watcher over dir.
func New(dir string, driver *installer.Driver, session *reconcile.Session, logger *zap.Logger) (*DropWatcher, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create drop dir: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	return &DropWatcher{
		dir:     dir,
		driver:  driver,
		session: session,
		watcher: w,
		logger:  logger,
	}, nil
}

// Run consumes watcher events until ctx is done. Archives already in the
// drop directory at start are picked up first.
func (d *DropWatcher) Run(ctx context.Context) error {
	defer d.watcher.Close()

	d.sweepExisting(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-d.watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !isArchive(event.Name) {
				continue
			}
			// writes arrive in bursts while the file is copied in
			time.Sleep(settleDelay)
			d.ingest(ctx, event.Name)

		case err, ok := <-d.watcher.Errors:
			if !ok {
				return nil
			}
			d.logger.Error("watcher error", zap.Error(err))
		}
	}
}

func (d *DropWatcher) sweepExisting(ctx context.Context) {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		d.logger.Error("failed to read drop dir", zap.Error(err))
		return
	}
	for _, entry := range entries {
		if entry.IsDir() || !isArchive(entry.Name()) {
			continue
		}
		d.ingest(ctx, filepath.Join(d.dir, entry.Name()))
	}
}

// ingest stages a dropped archive and hands it to the session. The drop
// file is consumed either way so a broken archive is not retried forever.
func (d *DropWatcher) ingest(ctx context.Context, path string) {
	if _, err := os.Stat(path); err != nil {
		return // already consumed
	}

	pending, err := d.driver.StageFile(ctx, path)
	if err != nil {
		d.logger.Error("failed to stage dropped archive",
			zap.String("archive", filepath.Base(path)),
			zap.Error(err),
		)
		os.Remove(path)
		return
	}

	if err := d.session.InstalledFromDisk(pending); err != nil {
		d.logger.Error("failed to register dropped archive",
			zap.String("plugin", pending.Descriptor.ID),
			zap.Error(err),
		)
		d.driver.DiscardStaged(ctx, pending)
		os.Remove(path)
		return
	}

	os.Remove(path)
	d.logger.Info("dropped archive staged",
		zap.String("plugin", pending.Descriptor.ID),
		zap.String("version", pending.Descriptor.Version),
	)
}

func isArchive(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".zip")
}
