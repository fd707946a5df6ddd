// Package protocol defines the wire messages exchanged with the organizer daemon.
//
// Frames are JSON objects tagged by an "action" field. Proposal broadcasts are
// the one exception: the daemon sends them without an action tag, so they are
// recognized by the presence of "path" alone.
package protocol

import (
	"encoding/json"
	"fmt"
)

// Client -> daemon actions.
const (
	ActionStartEmbedding = "start_embedding"
	ActionStopEmbedding  = "stop_embedding"
	ActionGroupFolders   = "group_folders"
	ActionUndoGrouping   = "undo_grouping"
	ActionMove           = "move"
	ActionSkip           = "skip"
)

// Daemon -> client actions.
const (
	ActionEmbedStarted  = "embed_started"
	ActionEmbedProgress = "embed_progress"
	ActionEmbedStopping = "embed_stopping"
	ActionEmbedStopped  = "embed_stopped"
	ActionEmbedComplete = "embed_complete"
	ActionGroupResult   = "group_result"
	ActionUndoProgress  = "undo_progress"
	ActionUndoResult    = "undo_result"
	ActionStatus        = "status"
)

// Result status values carried by group_result / undo_result.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// Per-file decision status values carried by status events.
const (
	FileMoved   = "moved"
	FileSkipped = "skipped"
	FileError   = "error"
)

// Request is a client -> daemon frame.
type Request struct {
	Action   string `json:"action"`
	Path     string `json:"path,omitempty"`
	Category string `json:"category,omitempty"`
}

// StartEmbedding requests the folder-embedding job.
func StartEmbedding() Request { return Request{Action: ActionStartEmbedding} }

// StopEmbedding requests cancellation of a running embedding job.
func StopEmbedding() Request { return Request{Action: ActionStopEmbedding} }

// GroupFolders requests the folder-grouping job.
func GroupFolders() Request { return Request{Action: ActionGroupFolders} }

// UndoGrouping requests the undo-grouping job.
func UndoGrouping() Request { return Request{Action: ActionUndoGrouping} }

// Move accepts a proposal, asking the daemon to file path under category.
func Move(path, category string) Request {
	return Request{Action: ActionMove, Path: path, Category: category}
}

// Skip rejects a proposal.
func Skip(path string) Request {
	return Request{Action: ActionSkip, Path: path}
}

// Event is a daemon -> client frame. The set of variants is closed; frames
// with an unrecognized action decode to Unknown rather than an error so the
// dispatch loop can log and move on.
type Event interface {
	isEvent()
}

// EmbedStarted signals the embedding job has been accepted.
type EmbedStarted struct{}

// EmbedProgress reports embedding progress counts.
type EmbedProgress struct {
	Done  int
	Total int
}

// EmbedStopping acknowledges a stop request; the job has not stopped yet.
type EmbedStopping struct{}

// EmbedStopped confirms the embedding job was cancelled.
type EmbedStopped struct{}

// EmbedComplete is the explicit terminal signal for the embedding job. The
// daemon may instead (or additionally) signal completion implicitly via a
// final EmbedProgress with Done == Total.
type EmbedComplete struct{}

// GroupResult is the terminal signal for the grouping job.
type GroupResult struct {
	Status  string
	Groups  map[string][]string
	Message string
}

// UndoProgress reports undo-grouping progress counts.
type UndoProgress struct {
	Done  int
	Total int
}

// UndoResult is the terminal signal for the undo-grouping job.
type UndoResult struct {
	Status  string
	Message string
}

// FileStatus is the per-file terminal decision echo for a proposal.
type FileStatus struct {
	Path   string
	Status string
}

// Proposal is a bare broadcast announcing a file awaiting a decision.
type Proposal struct {
	Path     string
	Filename string
	Category string
	Summary  string
}

// Unknown is a well-formed frame whose action the client does not recognize.
type Unknown struct {
	Action string
	Raw    json.RawMessage
}

func (EmbedStarted) isEvent()  {}
func (EmbedProgress) isEvent() {}
func (EmbedStopping) isEvent() {}
func (EmbedStopped) isEvent()  {}
func (EmbedComplete) isEvent() {}
func (GroupResult) isEvent()   {}
func (UndoProgress) isEvent()  {}
func (UndoResult) isEvent()    {}
func (FileStatus) isEvent()    {}
func (Proposal) isEvent()      {}
func (Unknown) isEvent()       {}

// frame is the superset of fields any inbound frame may carry.
type frame struct {
	Action   string              `json:"action"`
	Done     int                 `json:"done"`
	Total    int                 `json:"total"`
	Status   string              `json:"status"`
	Message  string              `json:"message"`
	Groups   map[string][]string `json:"groups"`
	Path     string              `json:"path"`
	Filename string              `json:"filename"`
	Category string              `json:"category"`
	Summary  *string             `json:"summary"`
}

// Decode parses one inbound frame. Malformed payloads return an error; the
// caller drops and logs them. Well-formed frames always decode to some Event.
func Decode(data []byte) (Event, error) {
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}

	switch f.Action {
	case ActionEmbedStarted:
		return EmbedStarted{}, nil
	case ActionEmbedProgress:
		return EmbedProgress{Done: f.Done, Total: f.Total}, nil
	case ActionEmbedStopping:
		return EmbedStopping{}, nil
	case ActionEmbedStopped:
		return EmbedStopped{}, nil
	// Older daemon builds spell the explicit terminal event two more ways.
	case ActionEmbedComplete, "embedding_complete", "embedding_done":
		return EmbedComplete{}, nil
	case ActionGroupResult:
		return GroupResult{Status: f.Status, Groups: f.Groups, Message: f.Message}, nil
	case ActionUndoProgress:
		return UndoProgress{Done: f.Done, Total: f.Total}, nil
	case ActionUndoResult:
		return UndoResult{Status: f.Status, Message: f.Message}, nil
	case ActionStatus:
		return FileStatus{Path: f.Path, Status: f.Status}, nil
	case "":
		if f.Path != "" {
			p := Proposal{Path: f.Path, Filename: f.Filename, Category: f.Category}
			if f.Summary != nil {
				p.Summary = *f.Summary
			}
			return p, nil
		}
		return Unknown{Raw: append(json.RawMessage(nil), data...)}, nil
	default:
		return Unknown{Action: f.Action, Raw: append(json.RawMessage(nil), data...)}, nil
	}
}
