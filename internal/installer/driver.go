package installer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lumenide/pluginhub/internal/reconcile"
	"github.com/lumenide/pluginhub/internal/resilience"
)

// Driver performs the file-level install work for the session: staging
// archives with checksum and manifest verification, extracting dynamic
// plugins into the plugins directory, and scheduling non-dynamic ones for
// the next start. It implements reconcile.InstallDriver.
type Driver struct {
	pluginsDir string
	stagingDir string
	retry      *resilience.RetryConfig
	logger     *zap.Logger
}

// New creates a driver and its working directories.
func New(pluginsDir, stagingDir string, logger *zap.Logger) (*Driver, error) {
	d := &Driver{
		pluginsDir: pluginsDir,
		stagingDir: stagingDir,
		retry:      resilience.DefaultRetryConfig(),
		logger:     logger,
	}
	for _, dir := range []string{pluginsDir, stagingDir, d.pendingDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return d, nil
}

func (d *Driver) pendingDir() string {
	return filepath.Join(d.stagingDir, "pending")
}

func (d *Driver) installDir(id string) string {
	return filepath.Join(d.pluginsDir, id)
}

func (d *Driver) removalMarker(id string) string {
	return filepath.Join(d.pendingDir(), id+".uninstall")
}

// Stage copies the archive into the staging area, hashes it and reads its
// manifest. The copy is retried; archives often arrive over flaky mounts.
func (d *Driver) Stage(ctx context.Context, req reconcile.InstallRequest) (*reconcile.PendingInstall, error) {
	staged := filepath.Join(d.stagingDir, uuid.New().String()+".zip")

	err := resilience.Retry(ctx, d.retry, func(context.Context) error {
		return copyFile(req.ArchivePath, staged)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to stage archive: %w", err)
	}

	if err := ctx.Err(); err != nil {
		os.Remove(staged)
		return nil, err
	}

	checksum, err := hashFile(staged)
	if err != nil {
		os.Remove(staged)
		return nil, fmt.Errorf("failed to hash archive: %w", err)
	}

	m, err := readArchiveManifest(staged)
	if err != nil {
		os.Remove(staged)
		return nil, err
	}
	if req.PluginID != "" && m.ID != req.PluginID {
		os.Remove(staged)
		return nil, fmt.Errorf("archive manifest id %s does not match requested %s", m.ID, req.PluginID)
	}

	d.logger.Debug("archive staged",
		zap.String("plugin", m.ID),
		zap.String("version", m.Version),
		zap.String("checksum", checksum),
	)
	return &reconcile.PendingInstall{
		Descriptor: reconcile.FromManifest(m, staged, checksum),
		StagedPath: staged,
	}, nil
}

// StageFile stages an archive already on local disk, for the drop-directory
// watcher. Unlike Stage there is no requested id to match against.
func (d *Driver) StageFile(ctx context.Context, path string) (*reconcile.PendingInstall, error) {
	return d.Stage(ctx, reconcile.InstallRequest{ArchivePath: path})
}

// InstallDynamic extracts a staged plugin into the plugins directory,
// replacing any previous version, and releases the staged archive.
func (d *Driver) InstallDynamic(_ context.Context, p *reconcile.PendingInstall) error {
	id := p.Descriptor.ID
	dest := d.installDir(id)

	if err := os.RemoveAll(dest); err != nil {
		return fmt.Errorf("failed to clear %s: %w", dest, err)
	}
	if err := extractArchive(p.StagedPath, dest); err != nil {
		os.RemoveAll(dest)
		return err
	}
	p.Descriptor.Path = dest
	os.Remove(p.StagedPath)

	d.logger.Info("plugin installed",
		zap.String("plugin", id),
		zap.String("version", p.Descriptor.Version),
	)
	return nil
}

// InstallAfterRestart moves the staged archive into the pending area that
// ProcessPending drains on the next start.
func (d *Driver) InstallAfterRestart(_ context.Context, p *reconcile.PendingInstall) error {
	dest := filepath.Join(d.pendingDir(), p.Descriptor.ID+".zip")
	if err := os.Rename(p.StagedPath, dest); err != nil {
		// staging and pending may sit on different filesystems
		if cerr := copyFile(p.StagedPath, dest); cerr != nil {
			return fmt.Errorf("failed to schedule install: %w", cerr)
		}
		os.Remove(p.StagedPath)
	}
	p.Descriptor.Path = dest

	d.logger.Info("plugin scheduled for next start", zap.String("plugin", p.Descriptor.ID))
	return nil
}

// UninstallDynamic removes an installed plugin's directory and any install
// still scheduled for it.
func (d *Driver) UninstallDynamic(_ context.Context, desc *reconcile.Descriptor) error {
	if err := os.RemoveAll(d.installDir(desc.ID)); err != nil {
		return fmt.Errorf("failed to remove plugin %s: %w", desc.ID, err)
	}
	os.Remove(filepath.Join(d.pendingDir(), desc.ID+".zip"))

	d.logger.Info("plugin uninstalled", zap.String("plugin", desc.ID))
	return nil
}

// UninstallAfterRestart leaves a removal marker in the pending area that
// ProcessPending honors before it installs anything on the next start. An
// install already scheduled for the id is dropped.
func (d *Driver) UninstallAfterRestart(_ context.Context, desc *reconcile.Descriptor) error {
	if err := os.WriteFile(d.removalMarker(desc.ID), []byte(desc.ID+"\n"), 0o644); err != nil {
		return fmt.Errorf("failed to schedule uninstall of %s: %w", desc.ID, err)
	}
	os.Remove(filepath.Join(d.pendingDir(), desc.ID+".zip"))

	d.logger.Info("plugin scheduled for removal at next start", zap.String("plugin", desc.ID))
	return nil
}

// DiscardStaged deletes a staged archive that will never be applied.
func (d *Driver) DiscardStaged(_ context.Context, p *reconcile.PendingInstall) error {
	if p.StagedPath == "" {
		return nil
	}
	return os.Remove(p.StagedPath)
}

// ProcessPending completes every removal and install scheduled for this
// start, removals first so a replaced plugin never loses its new version,
// and returns the descriptors of the plugins it activated.
func (d *Driver) ProcessPending(ctx context.Context) ([]*reconcile.Descriptor, error) {
	entries, err := os.ReadDir(d.pendingDir())
	if err != nil {
		return nil, err
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".uninstall" {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ".uninstall")
		if err := os.RemoveAll(d.installDir(id)); err != nil {
			// keep the marker, the next start retries
			d.logger.Error("failed to remove uninstalled plugin",
				zap.String("plugin", id),
				zap.Error(err),
			)
			continue
		}
		os.Remove(d.removalMarker(id))
		d.logger.Info("plugin removed", zap.String("plugin", id))
	}

	var installed []*reconcile.Descriptor
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".zip" {
			continue
		}
		path := filepath.Join(d.pendingDir(), entry.Name())

		m, err := readArchiveManifest(path)
		if err != nil {
			d.logger.Error("skipping unreadable pending archive",
				zap.String("archive", entry.Name()),
				zap.Error(err),
			)
			continue
		}

		checksum, err := hashFile(path)
		if err != nil {
			d.logger.Error("failed to hash pending archive",
				zap.String("archive", entry.Name()),
				zap.Error(err),
			)
			continue
		}

		pending := &reconcile.PendingInstall{
			Descriptor: reconcile.FromManifest(m, path, checksum),
			StagedPath: path,
		}
		if err := d.InstallDynamic(ctx, pending); err != nil {
			d.logger.Error("failed to install pending plugin",
				zap.String("plugin", m.ID),
				zap.Error(err),
			)
			continue
		}
		installed = append(installed, pending.Descriptor)
	}
	return installed, nil
}

// SweepStaging removes staged archives older than ttl that no install claims
// anymore. Pending archives are never swept.
func (d *Driver) SweepStaging(ttl time.Duration) (int, error) {
	entries, err := os.ReadDir(d.stagingDir)
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-ttl)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(d.stagingDir, entry.Name())); err == nil {
			removed++
		}
	}
	if removed > 0 {
		d.logger.Info("swept stale staged archives", zap.Int("count", removed))
	}
	return removed, nil
}
