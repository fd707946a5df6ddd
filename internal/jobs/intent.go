package jobs

import "time"

// Control identifies a user-facing job control.
type Control int

const (
	ControlStartEmbedding Control = iota
	ControlStopEmbedding
	ControlGroupFolders
	ControlUndoGrouping
)

func (c Control) String() string {
	switch c {
	case ControlStartEmbedding:
		return "start-embedding"
	case ControlStopEmbedding:
		return "stop-embedding"
	case ControlGroupFolders:
		return "group-folders"
	case ControlUndoGrouping:
		return "undo-grouping"
	default:
		return "unknown"
	}
}

// Intent is an abstract UI command emitted by the controller. The rendering
// adapter interprets intents against whatever display surface it owns; the
// controller never touches widgets directly.
type Intent interface {
	isIntent()
}

// SetProgress sets the progress surface value for a job.
type SetProgress struct {
	Job   Kind
	Done  int
	Total int
}

// SetLabel sets the progress label text.
type SetLabel struct {
	Job  Kind
	Text string
}

// ShowProgress reveals the progress surface at zero.
type ShowProgress struct {
	Job Kind
}

// HideProgress hides the progress surface, after the given delay if nonzero.
type HideProgress struct {
	Job   Kind
	After time.Duration
}

// ShowControl reveals a control.
type ShowControl struct {
	Control Control
}

// HideControl hides a control.
type HideControl struct {
	Control Control
}

// SetEnabled enables or disables a control.
type SetEnabled struct {
	Control Control
	Enabled bool
}

// Alert surfaces a message to the user.
type Alert struct {
	Text string
}

// ShowGroups presents a grouping topology.
type ShowGroups struct {
	Groups map[string][]string
}

func (SetProgress) isIntent()  {}
func (SetLabel) isIntent()     {}
func (ShowProgress) isIntent() {}
func (HideProgress) isIntent() {}
func (ShowControl) isIntent()  {}
func (HideControl) isIntent()  {}
func (SetEnabled) isIntent()   {}
func (Alert) isIntent()        {}
func (ShowGroups) isIntent()   {}
