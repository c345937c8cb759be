package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrPluginNotFound = errors.New("plugin not found")
	ErrNotManageable  = errors.New("plugin cannot be enabled or disabled explicitly")
	ErrSessionClosed  = errors.New("session is closed")
	ErrAlreadyDeleted = errors.New("plugin is already marked for uninstall")
)

// DependentsError is returned when an uninstall would break enabled plugins
// that require the target.
type DependentsError struct {
	PluginID   string
	Dependents []string
}

func (e *DependentsError) Error() string {
	return fmt.Sprintf("plugins depend on %s: %s", e.PluginID, strings.Join(e.Dependents, ", "))
}

// Options configures a session.
type Options struct {
	Store        StateStore
	Driver       InstallDriver
	Logger       *zap.Logger
	Recorder     Recorder
	IsHostModule HostModuleFunc
	// InstallWorkers bounds concurrent background staging operations.
	InstallWorkers int
}

// Session owns the plugin state-reconciliation model for one plugin-manager
// lifetime: the descriptor registry, the enablement diff, the pending
// install and uninstall sets and the in-flight install map. All of them are
// mutated only on the run loop goroutine; public methods post commands to
// the loop and wait, background staging posts its completion back. The
// session is created with the manager and torn down with it — there is no
// process-wide install registry.
type Session struct {
	registry *Registry
	diff     *DiffTracker
	graph    *DependencyGraph

	store    StateStore
	driver   InstallDriver
	logger   *zap.Logger
	recorder Recorder

	commands chan func()
	stopped  chan struct{}

	listeners []Listener

	installing        map[string]*InstallInfo
	pendingInstalls   []*PendingInstall
	pendingUninstalls map[string]*Descriptor
	removeOnCancel    map[string]*PendingInstall

	workers chan struct{}

	needRestart              bool
	installsRequiringRestart bool
}

// NewSession creates a session. Run must be called before any other method.
func NewSession(opts Options) *Session {
	registry := NewRegistry()
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	recorder := opts.Recorder
	if recorder == nil {
		recorder = NopRecorder{}
	}
	workers := opts.InstallWorkers
	if workers < 1 {
		workers = 1
	}
	return &Session{
		registry:          registry,
		diff:              NewDiffTracker(),
		graph:             NewDependencyGraph(registry, opts.IsHostModule),
		store:             opts.Store,
		driver:            opts.Driver,
		logger:            logger,
		recorder:          recorder,
		commands:          make(chan func(), 64),
		stopped:           make(chan struct{}),
		installing:        make(map[string]*InstallInfo),
		pendingUninstalls: make(map[string]*Descriptor),
		removeOnCancel:    make(map[string]*PendingInstall),
		workers:           make(chan struct{}, workers),
	}
}

// Run consumes the command channel until ctx is done. It must run on
// exactly one goroutine; that goroutine is the only writer of session state.
func (s *Session) Run(ctx context.Context) {
	defer close(s.stopped)
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-s.commands:
			cmd()
		}
	}
}

// post schedules f on the loop without waiting. Used by background workers
// to marshal completions back onto the loop.
func (s *Session) post(f func()) {
	select {
	case s.commands <- f:
	case <-s.stopped:
	}
}

// call runs f on the loop and waits for it. This is the synchronous path
// callers use; it must stay short.
func (s *Session) call(f func()) error {
	done := make(chan struct{})
	select {
	case s.commands <- func() { f(); close(done) }:
	case <-s.stopped:
		return ErrSessionClosed
	}
	select {
	case <-done:
		return nil
	case <-s.stopped:
		return ErrSessionClosed
	}
}

// AddListener registers a state-change listener. Listeners are notified in
// registration order; register them before Run starts dispatching work.
func (s *Session) AddListener(l Listener) {
	s.listeners = append(s.listeners, l)
}

func (s *Session) emit(eventType EventType, pluginID string, data map[string]any) {
	e := Event{Type: eventType, PluginID: pluginID, Data: data, Timestamp: time.Now()}
	for _, l := range s.listeners {
		l.OnPluginEvent(e)
	}
}

// Seed loads the committed descriptors into the registry at session start.
func (s *Session) Seed(descriptors []*Descriptor) error {
	return s.call(func() {
		for _, d := range descriptors {
			d.Loaded = true
			s.registry.AppendOrUpdate(d)
		}
	})
}

// Descriptors returns a snapshot of all registered descriptors.
func (s *Session) Descriptors() []*Descriptor {
	var out []*Descriptor
	s.call(func() {
		for _, d := range s.registry.All() {
			out = append(out, d.Clone())
		}
	})
	return out
}

// Get returns a snapshot of one descriptor.
func (s *Session) Get(id string) (*Descriptor, error) {
	var d *Descriptor
	err := s.call(func() {
		if found := s.registry.Find(id); found != nil {
			d = found.Clone()
		}
	})
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, ErrPluginNotFound
	}
	return d, nil
}

// IsModified reports whether any change is pending against committed state.
func (s *Session) IsModified() bool {
	var modified bool
	s.call(func() {
		modified = s.needRestart ||
			len(s.pendingInstalls) > 0 ||
			len(s.pendingUninstalls) > 0 ||
			len(s.removeOnCancel) > 0 ||
			!s.diff.IsEmpty()
	})
	return modified
}

// NeedsRestart reports whether a committed change still requires a restart.
func (s *Session) NeedsRestart() bool {
	var need bool
	s.call(func() { need = s.needRestart })
	return need
}

// PendingDiff returns a copy of the uncommitted enablement changes.
func (s *Session) PendingDiff() map[string]DiffEntry {
	out := make(map[string]DiffEntry)
	s.call(func() {
		for _, d := range s.registry.All() {
			if entry, ok := s.diff.Entry(d.ID); ok {
				out[d.ID] = entry
			}
		}
	})
	return out
}

// SetEnabled records a pending enable/disable for one plugin. The change is
// in-memory only until Apply; toggling back to the original state removes
// the pending entry. Implementation-detail and unloaded plugins are not
// explicitly toggled, and a plugin already marked for uninstall cannot be
// toggled at all.
func (s *Session) SetEnabled(id string, action EnableAction) error {
	var err error
	callErr := s.call(func() {
		d := s.registry.Find(id)
		if d == nil {
			err = ErrPluginNotFound
			return
		}
		if d.ImplementationDetail || !d.Loaded {
			err = ErrNotManageable
			return
		}
		if d.Deleted {
			err = ErrAlreadyDeleted
			return
		}
		s.diff.Record(d, action)
		d.State = action.TargetState()
		s.emit(EventEnablementChanged, id, map[string]any{
			"state":   string(d.State),
			"pending": s.diff.Len(),
		})
	})
	if callErr != nil {
		return callErr
	}
	return err
}

// EnableRequired enables every transitive required dependency of a plugin
// that is present but disabled. Used to offer auto-enable after an install
// satisfies waiting dependents.
func (s *Session) EnableRequired(id string) error {
	var err error
	callErr := s.call(func() {
		if s.registry.Find(id) == nil {
			err = ErrPluginNotFound
			return
		}
		for _, reqID := range s.graph.TransitiveRequired(id) {
			d := s.registry.Find(reqID)
			if d == nil || d.IsEnabled() || d.Deleted || d.ImplementationDetail || !d.Loaded {
				continue
			}
			s.diff.Record(d, ActionEnable)
			d.State = StateEnabled
			s.emit(EventEnablementChanged, reqID, map[string]any{
				"state":   string(StateEnabled),
				"pending": s.diff.Len(),
			})
		}
	})
	if callErr != nil {
		return callErr
	}
	return err
}

// Installing returns a snapshot of the in-flight install operations.
func (s *Session) Installing() []InstallInfo {
	var out []InstallInfo
	s.call(func() {
		for _, info := range s.installing {
			out = append(out, *info)
		}
	})
	return out
}

// StartInstall begins a background install for an archive. At most one
// install is in flight per plugin id: a second request joins the existing
// operation and returns its info.
func (s *Session) StartInstall(req InstallRequest) (InstallInfo, error) {
	var info InstallInfo
	var err error
	callErr := s.call(func() {
		if existing, ok := s.installing[req.PluginID]; ok {
			info = *existing
			return
		}

		ctx, cancel := context.WithCancel(context.Background())
		op := &InstallInfo{
			OpID:      uuid.New().String(),
			PluginID:  req.PluginID,
			Phase:     PhaseDownloading,
			Update:    req.Update,
			StartedAt: time.Now(),
			cancel:    cancel,
		}
		s.installing[req.PluginID] = op
		info = *op

		s.recorder.InstallStarted()
		s.emit(EventInstallStarted, req.PluginID, map[string]any{"op_id": op.OpID})

		go s.runInstall(ctx, req, op.OpID)
	})
	if callErr != nil {
		return InstallInfo{}, callErr
	}
	return info, err
}

// CancelInstall cancels the in-flight install for a plugin id.
func (s *Session) CancelInstall(id string) error {
	var err error
	callErr := s.call(func() {
		info, ok := s.installing[id]
		if !ok {
			err = ErrPluginNotFound
			return
		}
		info.Cancel()
	})
	if callErr != nil {
		return callErr
	}
	return err
}

// runInstall executes staging on a background worker and marshals the
// result back to the loop. It never touches session state directly.
func (s *Session) runInstall(ctx context.Context, req InstallRequest, opID string) {
	select {
	case s.workers <- struct{}{}:
		defer func() { <-s.workers }()
	case <-ctx.Done():
		s.post(func() { s.finishInstall(req.PluginID, opID, nil, ctx.Err()) })
		return
	}

	pending, err := s.driver.Stage(ctx, req)
	s.post(func() { s.finishInstall(req.PluginID, opID, pending, err) })
}

// finishInstall runs on the loop and applies a staging outcome: registry
// update, immediate dynamic activation or deferral, and event fan-out.
func (s *Session) finishInstall(pluginID, opID string, pending *PendingInstall, stageErr error) {
	info, ok := s.installing[pluginID]
	if !ok || info.OpID != opID {
		// superseded or already cancelled away
		return
	}

	cancelled := errors.Is(stageErr, context.Canceled)
	if stageErr != nil {
		delete(s.installing, pluginID)
		if cancelled {
			s.logger.Info("plugin install cancelled", zap.String("plugin", pluginID))
		} else {
			s.logger.Error("plugin install failed",
				zap.String("plugin", pluginID),
				zap.Error(stageErr),
			)
		}
		s.recorder.InstallFinished(false, cancelled, false)
		s.emit(EventInstallFinished, pluginID, map[string]any{
			"success":   false,
			"cancelled": cancelled,
		})
		return
	}

	info.Phase = PhaseStaged

	d := pending.Descriptor
	var prev *Descriptor
	if existing := s.registry.Find(d.ID); existing != nil {
		prev = existing.Clone()
		// an update keeps the current enablement
		d.State = existing.State
	}
	pending.Previous = prev

	restartRequired := pending.RestartRequired()
	if !restartRequired {
		if err := s.driver.InstallDynamic(context.Background(), pending); err != nil {
			s.logger.Warn("dynamic activation failed, deferring to restart",
				zap.String("plugin", d.ID),
				zap.Error(err),
			)
			restartRequired = true
		} else {
			info.Phase = PhaseAppliedImmediately
			s.removeOnCancel[d.ID] = pending
		}
	}
	if restartRequired {
		info.Phase = PhasePendingRestart
		s.upsertPendingInstall(pending)
	}
	delete(s.installing, pluginID)

	s.appendOrUpdateDescriptor(d, restartRequired)

	s.recorder.InstallFinished(true, false, restartRequired)
	s.emit(EventInstallFinished, d.ID, map[string]any{
		"success":          true,
		"cancelled":        false,
		"restart_required": restartRequired,
		"phase":            string(info.Phase),
		"version":          d.Version,
	})
	s.offerDependents(d.ID)
}

// InstalledFromDisk registers an archive staged outside the normal install
// flow (the drop-directory watcher). Activation is deferred to Apply.
func (s *Session) InstalledFromDisk(pending *PendingInstall) error {
	return s.call(func() {
		d := pending.Descriptor
		if existing := s.registry.Find(d.ID); existing != nil {
			pending.Previous = existing.Clone()
			d.State = existing.State
		}
		s.upsertPendingInstall(pending)
		s.appendOrUpdateDescriptor(d, pending.RestartRequired())
		s.emit(EventDescriptorUpdated, d.ID, map[string]any{
			"source":           "disk",
			"restart_required": pending.RestartRequired(),
		})
		s.offerDependents(d.ID)
	})
}

// upsertPendingInstall keeps at most one staged install per plugin id while
// preserving the order installs were staged in.
func (s *Session) upsertPendingInstall(pending *PendingInstall) {
	for i, p := range s.pendingInstalls {
		if p.Descriptor.ID == pending.Descriptor.ID {
			s.pendingInstalls[i] = pending
			return
		}
	}
	s.pendingInstalls = append(s.pendingInstalls, pending)
}

// appendOrUpdateDescriptor is the single registry write path for installs.
func (s *Session) appendOrUpdateDescriptor(d *Descriptor, restartRequired bool) {
	d.Loaded = true
	s.registry.AppendOrUpdate(d)
	if restartRequired {
		s.needRestart = true
		s.installsRequiringRestart = true
		s.recorder.RestartPending(true)
	}
	s.emit(EventDescriptorUpdated, d.ID, map[string]any{
		"version":          d.Version,
		"restart_required": restartRequired,
	})
}

// offerDependents notifies listeners about disabled plugins whose missing
// requirement just arrived, so the UI can offer auto-enable.
func (s *Session) offerDependents(id string) {
	var waiting []string
	for _, d := range s.registry.All() {
		if d.ID == id || d.IsEnabled() || d.Deleted || d.ImplementationDetail {
			continue
		}
		for _, reqID := range d.RequiredDependencyIDs() {
			if reqID == id {
				waiting = append(waiting, d.ID)
				break
			}
		}
	}
	if len(waiting) > 0 {
		s.emit(EventDependentsWaiting, id, map[string]any{"dependents": waiting})
	}
}

// Uninstall marks a plugin for removal. Dynamic plugins are removed on
// Apply without a restart; everything else is scheduled on Apply for
// removal at the next start and flips the restart flag now. When enabled
// plugins depend on the target and force is false, a DependentsError is
// returned and nothing changes.
func (s *Session) Uninstall(id string, force bool) (bool, error) {
	var restartNeeded bool
	var err error
	callErr := s.call(func() {
		d := s.registry.Find(id)
		if d == nil {
			err = ErrPluginNotFound
			return
		}
		if d.Deleted {
			err = ErrAlreadyDeleted
			return
		}

		if dependents := s.graph.Dependents(id); len(dependents) > 0 && !force {
			err = &DependentsError{PluginID: id, Dependents: dependents}
			return
		}

		d.Deleted = true
		s.pendingUninstalls[id] = d
		if !d.Dynamic {
			restartNeeded = true
			s.needRestart = true
			s.installsRequiringRestart = true
			s.recorder.RestartPending(true)
		}
		s.emit(EventUninstallRequested, id, map[string]any{
			"restart_required": restartNeeded,
		})
	})
	if callErr != nil {
		return false, callErr
	}
	return restartNeeded, err
}

// Apply commits all pending state: it validates dependencies, performs
// pending uninstalls and installs, and batches the enablement diff into the
// store. It returns true when every change took effect without a restart.
// On a validation failure nothing is committed and the diff is untouched.
func (s *Session) Apply(ctx context.Context) (bool, error) {
	var withoutRestart bool
	var err error
	callErr := s.call(func() { withoutRestart, err = s.applyLocked(ctx) })
	if callErr != nil {
		return false, callErr
	}
	return withoutRestart, err
}

func (s *Session) applyLocked(ctx context.Context) (bool, error) {
	if verr := s.graph.Validate(); verr != nil {
		return false, verr
	}

	// Uninstalls first: a plugin being replaced must not race its own removal.
	uninstallRestart := make(map[string]bool)
	for id, d := range s.pendingUninstalls {
		s.diff.Remove(id)

		removedNow := false
		if d.Dynamic {
			if uerr := s.driver.UninstallDynamic(ctx, d); uerr != nil {
				s.logger.Error("dynamic uninstall failed, deferring to restart",
					zap.String("plugin", id),
					zap.Error(uerr),
				)
			} else {
				removedNow = true
			}
		}
		if removedNow {
			s.registry.Remove(id)
		} else {
			// files go at the next start; the descriptor stays registered,
			// marked deleted, until then
			if uerr := s.driver.UninstallAfterRestart(ctx, d); uerr != nil {
				s.logger.Error("failed to schedule uninstall after restart",
					zap.String("plugin", id),
					zap.Error(uerr),
				)
			}
			uninstallRestart[id] = true
		}
		if serr := s.store.RemoveUninstalled(ctx, id); serr != nil {
			s.logger.Error("failed to remove committed record",
				zap.String("plugin", id),
				zap.Error(serr),
			)
			uninstallRestart[id] = true
		}
	}
	s.pendingUninstalls = make(map[string]*Descriptor)

	ioRestart := false

	// Commit dynamic installs that were already activated.
	for id, pending := range s.removeOnCancel {
		if serr := s.store.SaveInstalled(ctx, pending.Descriptor); serr != nil {
			s.logger.Error("failed to commit installed plugin",
				zap.String("plugin", id),
				zap.Error(serr),
			)
			ioRestart = true
		}
	}
	s.removeOnCancel = make(map[string]*PendingInstall)

	// Staged installs: dynamic ones activate now, the rest are scheduled
	// for after restart. An id whose uninstall already deferred to restart
	// must not be re-activated in this process.
	installsRestart := s.installsRequiringRestart
	for _, pending := range s.pendingInstalls {
		id := pending.Descriptor.ID
		deferred := uninstallRestart[id] || pending.RestartRequired()

		if !deferred {
			if ierr := s.driver.InstallDynamic(ctx, pending); ierr != nil {
				s.logger.Error("dynamic activation failed, deferring to restart",
					zap.String("plugin", id),
					zap.Error(ierr),
				)
				deferred = true
			}
		}
		if deferred {
			if ierr := s.driver.InstallAfterRestart(ctx, pending); ierr != nil {
				s.logger.Error("failed to schedule install after restart",
					zap.String("plugin", id),
					zap.Error(ierr),
				)
			}
			installsRestart = true
		}
		if serr := s.store.SaveInstalled(ctx, pending.Descriptor); serr != nil {
			s.logger.Error("failed to commit installed plugin",
				zap.String("plugin", id),
				zap.Error(serr),
			)
			ioRestart = true
		}
	}
	s.pendingInstalls = nil

	enableOK := s.diff.Apply(ctx, s.store, s.registry)

	withoutRestart := enableOK &&
		len(uninstallRestart) == 0 &&
		!installsRestart &&
		!ioRestart
	if !withoutRestart {
		s.needRestart = true
		s.recorder.RestartPending(true)
		s.emit(EventRestartRequired, "", nil)
	}

	s.recorder.ApplyFinished(withoutRestart)
	s.emit(EventApplied, "", map[string]any{"without_restart": withoutRestart})
	return withoutRestart, nil
}

// Cancel discards pending enablement changes and removes plugins that were
// staged but not yet applied. Uninstall marks survive, matching Apply's
// treatment of them as committed intent.
func (s *Session) Cancel(ctx context.Context) error {
	return s.call(func() {
		s.diff.Cancel(s.registry)

		// Undo dynamic installs that were activated immediately.
		for id, pending := range s.removeOnCancel {
			if err := s.driver.UninstallDynamic(ctx, pending.Descriptor); err != nil {
				s.logger.Warn("failed to undo dynamic install",
					zap.String("plugin", id),
					zap.Error(err),
				)
			}
			s.restorePrevious(id, pending)
		}
		s.removeOnCancel = make(map[string]*PendingInstall)

		// Discard staged-but-unapplied archives.
		for _, pending := range s.pendingInstalls {
			id := pending.Descriptor.ID
			if err := s.driver.DiscardStaged(ctx, pending); err != nil {
				s.logger.Warn("failed to discard staged archive",
					zap.String("plugin", id),
					zap.Error(err),
				)
			}
			s.restorePrevious(id, pending)
		}
		s.pendingInstalls = nil

		s.emit(EventCancelled, "", nil)
	})
}

func (s *Session) restorePrevious(id string, pending *PendingInstall) {
	if pending.Previous != nil {
		s.registry.AppendOrUpdate(pending.Previous)
	} else {
		s.registry.Remove(id)
	}
}
