package replay

import "time"

// Phase is the coordinator's lifecycle state
type Phase string

const (
	PhaseStopped    Phase = "STOPPED"
	PhasePreparing  Phase = "PREPARING"
	PhasePreheating Phase = "PREHEATING"
	PhaseRunning    Phase = "RUNNING"
	PhaseStopping   Phase = "STOPPING"
	PhaseFailed     Phase = "FAILED"
)

// Status is a snapshot of the replay state, safe to serve concurrently
// with a run.
type Status struct {
	RunID              string `json:"runId,omitempty"`
	Phase              Phase  `json:"phase"`
	CurrentVirtualTime string `json:"currentVirtualTime,omitempty"`
	LastLoadedWindow   string `json:"lastLoadedWindow,omitempty"`
	EmittedCount       int64  `json:"emittedCount"`
	DroppedCount       int64  `json:"droppedCount"`
	ErrorCause         string `json:"errorCause,omitempty"`
}

// stateSink is how the workers report progress. Only the coordinator
// implements it; all mutation funnels through its lock.
type stateSink interface {
	setVirtualTime(t time.Time)
	setLastWindow(w Window)
	addEmitted(n int64)
	addDropped(n int64)
}
