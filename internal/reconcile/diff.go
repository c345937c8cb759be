package reconcile

import "context"

// DiffEntry records one uncommitted enablement change: the requested action
// and the state the plugin had before the first divergence.
type DiffEntry struct {
	Action   EnableAction
	Original EnableState
}

// StateStore is the persistence collaborator the tracker commits through.
type StateStore interface {
	// ApplyEnablement commits one batch of plugins moving under one action.
	ApplyEnablement(ctx context.Context, action EnableAction, ids []string) error
	// SaveInstalled persists a newly installed or updated plugin record.
	SaveInstalled(ctx context.Context, d *Descriptor) error
	// RemoveUninstalled deletes the committed record of an uninstalled plugin.
	RemoveUninstalled(ctx context.Context, id string) error
}

// DiffTracker holds pending enablement changes keyed by plugin id. A plugin
// has at most one entry; an entry disappears when the plugin returns to its
// original state.
type DiffTracker struct {
	entries map[string]DiffEntry
}

// NewDiffTracker creates an empty tracker.
func NewDiffTracker() *DiffTracker {
	return &DiffTracker{entries: make(map[string]DiffEntry)}
}

// Record notes that d is being moved by action. If the action's target state
// equals the recorded original (or the current state when no entry exists
// yet), the entry is dropped instead: a round-trip toggle leaves no diff.
func (t *DiffTracker) Record(d *Descriptor, action EnableAction) {
	target := action.TargetState()

	original := d.State
	if entry, ok := t.entries[d.ID]; ok {
		original = entry.Original
	}

	if original == target {
		delete(t.entries, d.ID)
		return
	}
	t.entries[d.ID] = DiffEntry{Action: action, Original: original}
}

// Entry returns the pending entry for a plugin id.
func (t *DiffTracker) Entry(id string) (DiffEntry, bool) {
	entry, ok := t.entries[id]
	return entry, ok
}

// Remove drops the entry for a plugin id, if any.
func (t *DiffTracker) Remove(id string) {
	delete(t.entries, id)
}

// Len returns the number of pending entries.
func (t *DiffTracker) Len() int {
	return len(t.entries)
}

// IsEmpty reports whether no changes are pending.
func (t *DiffTracker) IsEmpty() bool {
	return len(t.entries) == 0
}

// Apply groups the entries by action and commits each group through the
// store in one batch. Entries whose descriptor is skipped (implementation
// detail, not loaded) are dropped without a commit. The tracker is cleared
// afterwards regardless of outcome; on a partial failure the caller treats
// the apply as requiring a restart. Returns true when every group committed.
func (t *DiffTracker) Apply(ctx context.Context, store StateStore, registry *Registry) bool {
	grouped := make(map[EnableAction][]string)
	for id, entry := range t.entries {
		d := registry.Find(id)
		if d == nil || d.ImplementationDetail || !d.Loaded {
			continue
		}
		if d.State == entry.Original {
			// toggled back without the tracker noticing; nothing to commit
			continue
		}
		grouped[entry.Action] = append(grouped[entry.Action], id)
	}

	ok := true
	for action, ids := range grouped {
		if err := store.ApplyEnablement(ctx, action, ids); err != nil {
			ok = false
		}
	}

	t.entries = make(map[string]DiffEntry)
	return ok
}

// Cancel reverts every entry's descriptor to its recorded original state and
// clears the tracker.
func (t *DiffTracker) Cancel(registry *Registry) {
	for id, entry := range t.entries {
		if d := registry.Find(id); d != nil {
			d.State = entry.Original
		}
	}
	t.entries = make(map[string]DiffEntry)
}
