package reconcile

import (
	"context"
	"time"
)

// InstallPhase is the orchestrator state for one in-flight plugin id.
type InstallPhase string

const (
	PhaseDownloading        InstallPhase = "DOWNLOADING"
	PhaseStaged             InstallPhase = "STAGED"
	PhaseAppliedImmediately InstallPhase = "APPLIED_IMMEDIATELY"
	PhasePendingRestart     InstallPhase = "PENDING_RESTART"
)

// InstallRequest asks the session to install or update a plugin from a local
// archive. PluginID may be empty for archives whose id is only known after
// the manifest is read (drop-directory installs go through InstalledFromDisk
// instead).
type InstallRequest struct {
	PluginID    string
	ArchivePath string
	Update      bool
}

// PendingInstall is a staged plugin awaiting activation. Previous holds the
// descriptor that was registered before this install, so cancel can restore
// it; nil when the plugin is new.
type PendingInstall struct {
	Descriptor *Descriptor
	StagedPath string
	Previous   *Descriptor
}

// RestartRequired reports whether activating the staged plugin needs a host
// restart.
func (p *PendingInstall) RestartRequired() bool {
	return !p.Descriptor.Dynamic
}

// InstallInfo tracks one in-flight install operation. Entries are keyed
// uniquely by plugin id in the session; a second request for the same id
// joins the existing entry.
type InstallInfo struct {
	OpID      string
	PluginID  string
	Phase     InstallPhase
	Update    bool
	StartedAt time.Time

	cancel context.CancelFunc
}

// Cancel requests cooperative cancellation of the background work.
func (i *InstallInfo) Cancel() {
	if i.cancel != nil {
		i.cancel()
	}
}

// InstallDriver performs the file-level install work: staging archives,
// activating dynamic plugins, scheduling after-restart installs and
// uninstalling. Implementations run staging on background goroutines; every
// other method is invoked from the session loop.
type InstallDriver interface {
	// Stage copies the archive into the staging area, verifies it and reads
	// the manifest. Cancellation is cooperative through ctx.
	Stage(ctx context.Context, req InstallRequest) (*PendingInstall, error)

	// InstallDynamic activates a staged dynamic plugin without a restart.
	InstallDynamic(ctx context.Context, p *PendingInstall) error

	// InstallAfterRestart schedules a staged plugin for activation on the
	// next host restart.
	InstallAfterRestart(ctx context.Context, p *PendingInstall) error

	// UninstallDynamic removes an installed dynamic plugin immediately.
	UninstallDynamic(ctx context.Context, d *Descriptor) error

	// UninstallAfterRestart schedules removal of an installed plugin for the
	// next host start.
	UninstallAfterRestart(ctx context.Context, d *Descriptor) error

	// DiscardStaged deletes a staged archive that will never be applied.
	DiscardStaged(ctx context.Context, p *PendingInstall) error
}
