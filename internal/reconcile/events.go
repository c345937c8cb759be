package reconcile

import "time"

// EventType identifies a session state-change notification.
type EventType string

const (
	EventDescriptorUpdated  EventType = "descriptor_updated"
	EventEnablementChanged  EventType = "enablement_changed"
	EventInstallStarted     EventType = "install_started"
	EventInstallFinished    EventType = "install_finished"
	EventUninstallRequested EventType = "uninstall_requested"
	EventApplied            EventType = "applied"
	EventCancelled          EventType = "cancelled"
	EventRestartRequired    EventType = "restart_required"
	EventDependentsWaiting  EventType = "dependents_waiting"
)

// Event is one state-change notification emitted by the session. Events are
// delivered from the session loop to listeners in registration order; this
// replaces ad-hoc UI callbacks with explicit message passing.
type Event struct {
	Type      EventType      `json:"type"`
	PluginID  string         `json:"plugin_id,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Listener receives session events. OnPluginEvent runs on the session loop
// goroutine and must not block; hand off to a channel for slow consumers.
type Listener interface {
	OnPluginEvent(Event)
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(Event)

// OnPluginEvent implements Listener.
func (f ListenerFunc) OnPluginEvent(e Event) {
	f(e)
}

// Recorder receives install and apply outcomes for metrics. Implementations
// must be safe to call from the session loop.
type Recorder interface {
	InstallStarted()
	InstallFinished(success, cancelled, restartRequired bool)
	ApplyFinished(withoutRestart bool)
	RestartPending(pending bool)
}

// NopRecorder discards all measurements.
type NopRecorder struct{}

func (NopRecorder) InstallStarted()              {}
func (NopRecorder) InstallFinished(_, _, _ bool) {}
func (NopRecorder) ApplyFinished(_ bool)         {}
func (NopRecorder) RestartPending(_ bool)        {}
