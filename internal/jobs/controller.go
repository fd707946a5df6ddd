// Package jobs tracks the lifecycle of the daemon's background jobs.
//
// The daemon owns the jobs; this controller only mirrors their state from
// lifecycle events and turns each transition into abstract UI intents. The
// daemon's event ordering is not contractually fixed: embedding completion
// in particular may arrive as a final progress tick, an explicit terminal
// event, or both in either order. Every job therefore carries a terminal latch:
// whichever terminal signal lands first performs the transition and any
// signal after it is a no-op.
package jobs

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/sortdesk/sortdesk/internal/protocol"
)

// Kind identifies one of the daemon's background jobs.
type Kind int

const (
	Embedding Kind = iota
	Grouping
	Undo
)

func (k Kind) String() string {
	switch k {
	case Embedding:
		return "embedding"
	case Grouping:
		return "grouping"
	case Undo:
		return "undo"
	default:
		return "unknown"
	}
}

// Phase is the client-side view of a job's lifecycle.
type Phase int

const (
	Idle Phase = iota
	Starting
	Running
	Stopping
	Succeeded
	Failed
	Cancelled
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Active reports whether the phase is non-terminal and in flight.
func (p Phase) Active() bool {
	return p == Starting || p == Running || p == Stopping
}

type jobState struct {
	phase    Phase
	done     int
	total    int
	terminal bool // latched on the first terminal signal for this run
}

// hideDelay matches the daemon GUI's grace period before the progress
// surface disappears after completion.
const hideDelay = time.Second

// Controller is the client-side state machine for all three jobs. It is not
// safe for concurrent use; the TUI drives it from its single event loop.
type Controller struct {
	logger *slog.Logger
	jobs   [3]jobState
}

// NewController creates a controller with all jobs idle.
func NewController(logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{logger: logger}
}

// Phase returns the current phase of a job.
func (c *Controller) Phase(k Kind) Phase {
	return c.jobs[k].phase
}

// Active reports whether a job is in flight from this client's perspective.
// This is advisory single-flight only: the daemon's own concurrency rules are
// not observable here.
func (c *Controller) Active(k Kind) bool {
	return c.jobs[k].phase.Active()
}

// Progress returns the last reported progress counts for a job.
func (c *Controller) Progress(k Kind) (done, total int) {
	return c.jobs[k].done, c.jobs[k].total
}

// Reset returns every job to idle. Used when a connection is torn down: the
// daemon holds the authoritative state and replays on a fresh session.
func (c *Controller) Reset() {
	c.jobs = [3]jobState{}
}

// Start handles a user start request for a job. It returns the UI intents of
// the optimistic pre-transition and whether the request should be sent; a
// start while the job is in flight is suppressed entirely.
func (c *Controller) Start(k Kind) ([]Intent, bool) {
	j := &c.jobs[k]
	if j.phase.Active() {
		c.logger.Debug("start suppressed, job in flight", "job", k.String(), "phase", j.phase.String())
		return nil, false
	}

	// Re-arm from any terminal state.
	*j = jobState{phase: Starting}

	switch k {
	case Embedding:
		return []Intent{
			SetEnabled{Control: ControlGroupFolders, Enabled: false},
			SetEnabled{Control: ControlUndoGrouping, Enabled: false},
			ShowControl{Control: ControlStopEmbedding},
			ShowProgress{Job: k},
			SetProgress{Job: k},
			SetLabel{Job: k, Text: "starting embedding..."},
		}, true
	case Grouping:
		return []Intent{
			SetEnabled{Control: ControlGroupFolders, Enabled: false},
			ShowProgress{Job: k},
			SetProgress{Job: k},
			SetLabel{Job: k, Text: "preparing to group folders..."},
		}, true
	case Undo:
		return []Intent{
			SetEnabled{Control: ControlUndoGrouping, Enabled: false},
			ShowProgress{Job: k},
			SetProgress{Job: k},
			SetLabel{Job: k, Text: "undoing folder grouping..."},
		}, true
	default:
		return nil, false
	}
}

// Stop handles a user stop request for the embedding job (the only job with a
// stop affordance). The stop control is hidden optimistically; the phase the
// daemon ultimately confirms (stopped vs completed first) wins.
func (c *Controller) Stop(k Kind) ([]Intent, bool) {
	if k != Embedding {
		return nil, false
	}
	j := &c.jobs[k]
	if j.phase != Starting && j.phase != Running {
		return nil, false
	}
	j.phase = Stopping
	return []Intent{
		HideControl{Control: ControlStopEmbedding},
	}, true
}

// Handle applies one inbound lifecycle event and returns the UI intents it
// produced. Events that belong to the proposal board return nil.
func (c *Controller) Handle(ev protocol.Event) []Intent {
	switch ev := ev.(type) {
	case protocol.EmbedStarted:
		return c.embedStarted()
	case protocol.EmbedProgress:
		return c.embedProgress(ev.Done, ev.Total)
	case protocol.EmbedStopping:
		return c.embedStopping()
	case protocol.EmbedStopped:
		return c.embedStopped()
	case protocol.EmbedComplete:
		return c.embedComplete("embedding completed")
	case protocol.GroupResult:
		return c.groupResult(ev)
	case protocol.UndoProgress:
		return c.undoProgress(ev.Done, ev.Total)
	case protocol.UndoResult:
		return c.undoResult(ev)
	default:
		return nil
	}
}

// embedStarted re-arms the machine regardless of prior terminal state. The
// job may have been started by another client, so the same affordance
// adjustments as a local start are emitted; the rendering adapter applies
// them against current state, so repeats cause no visible churn.
func (c *Controller) embedStarted() []Intent {
	c.jobs[Embedding] = jobState{phase: Starting}
	return []Intent{
		SetEnabled{Control: ControlGroupFolders, Enabled: false},
		SetEnabled{Control: ControlUndoGrouping, Enabled: false},
		ShowControl{Control: ControlStopEmbedding},
		ShowProgress{Job: Embedding},
		SetProgress{Job: Embedding},
		SetLabel{Job: Embedding, Text: "embedding started"},
	}
}

func (c *Controller) embedProgress(done, total int) []Intent {
	j := &c.jobs[Embedding]
	if j.terminal {
		// Progress after a terminal signal must not resurrect the job.
		return nil
	}
	// A tick that races a pending stop keeps the stopping phase; only the
	// daemon's confirmation resolves stopped vs completed-before-stop.
	if j.phase != Stopping {
		j.phase = Running
	}
	j.done, j.total = done, total

	intents := []Intent{
		SetProgress{Job: Embedding, Done: done, Total: total},
		SetLabel{Job: Embedding, Text: fmt.Sprintf("embedding folders (%d/%d)", done, total)},
	}
	if total > 0 && done >= total {
		// Implicit completion: the final tick is as authoritative as an
		// explicit embed_complete.
		intents = append(intents, c.embedComplete("embedding complete")...)
	}
	return intents
}

func (c *Controller) embedComplete(label string) []Intent {
	j := &c.jobs[Embedding]
	if j.terminal {
		return nil
	}
	j.terminal = true
	j.phase = Succeeded
	c.logger.Info("embedding job completed", "done", j.done, "total", j.total)
	return []Intent{
		SetLabel{Job: Embedding, Text: label},
		SetEnabled{Control: ControlGroupFolders, Enabled: true},
		SetEnabled{Control: ControlUndoGrouping, Enabled: true},
		HideControl{Control: ControlStopEmbedding},
		HideProgress{Job: Embedding, After: hideDelay},
	}
}

func (c *Controller) embedStopping() []Intent {
	j := &c.jobs[Embedding]
	if j.terminal {
		return nil
	}
	j.phase = Stopping
	return []Intent{
		SetEnabled{Control: ControlGroupFolders, Enabled: true},
		SetEnabled{Control: ControlUndoGrouping, Enabled: true},
		SetLabel{Job: Embedding, Text: "stopping embedding..."},
	}
}

func (c *Controller) embedStopped() []Intent {
	j := &c.jobs[Embedding]
	if j.terminal {
		return nil
	}
	j.terminal = true
	j.phase = Cancelled
	c.logger.Info("embedding job cancelled")
	return []Intent{
		Alert{Text: "embedding was cancelled"},
		HideControl{Control: ControlStopEmbedding},
		SetEnabled{Control: ControlGroupFolders, Enabled: true},
		SetEnabled{Control: ControlUndoGrouping, Enabled: true},
		HideProgress{Job: Embedding},
	}
}

func (c *Controller) groupResult(ev protocol.GroupResult) []Intent {
	j := &c.jobs[Grouping]
	if j.terminal {
		return nil
	}
	j.terminal = true

	intents := []Intent{
		HideProgress{Job: Grouping},
		SetEnabled{Control: ControlGroupFolders, Enabled: true},
	}
	if ev.Status == protocol.ResultSuccess {
		j.phase = Succeeded
		c.logger.Info("grouping job succeeded", "groups", len(ev.Groups))
		return append(intents,
			SetLabel{Job: Grouping, Text: "folders grouped"},
			ShowGroups{Groups: ev.Groups},
		)
	}
	j.phase = Failed
	c.logger.Warn("grouping job failed", "message", ev.Message)
	return append(intents, Alert{Text: "grouping failed: " + ev.Message})
}

func (c *Controller) undoProgress(done, total int) []Intent {
	j := &c.jobs[Undo]
	if j.terminal {
		return nil
	}
	j.phase = Running
	j.done, j.total = done, total
	return []Intent{
		SetProgress{Job: Undo, Done: done, Total: total},
		SetLabel{Job: Undo, Text: fmt.Sprintf("undoing grouping (%d/%d)", done, total)},
	}
}

func (c *Controller) undoResult(ev protocol.UndoResult) []Intent {
	j := &c.jobs[Undo]
	if j.terminal {
		return nil
	}
	j.terminal = true

	intents := []Intent{
		HideProgress{Job: Undo},
		SetEnabled{Control: ControlUndoGrouping, Enabled: true},
	}
	if ev.Status == protocol.ResultSuccess {
		j.phase = Succeeded
		c.logger.Info("undo job succeeded")
		return append(intents, Alert{Text: "undo completed"})
	}
	j.phase = Failed
	c.logger.Warn("undo job failed", "message", ev.Message)
	return append(intents, Alert{Text: "undo failed: " + ev.Message})
}
