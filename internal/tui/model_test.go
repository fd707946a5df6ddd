package tui

import (
	"context"
	"errors"
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/sortdesk/sortdesk/internal/board"
	"github.com/sortdesk/sortdesk/internal/history"
	"github.com/sortdesk/sortdesk/internal/jobs"
	"github.com/sortdesk/sortdesk/internal/protocol"
)

// fakeConn records outbound requests and lets the test feed events.
type fakeConn struct {
	sends  []protocol.Request
	events chan protocol.Event
}

func newFakeConn() *fakeConn {
	return &fakeConn{events: make(chan protocol.Event, 16)}
}

func (f *fakeConn) Send(req protocol.Request)     { f.sends = append(f.sends, req) }
func (f *fakeConn) Events() <-chan protocol.Event { return f.events }

type fakeQuerier struct {
	rows []history.Record
	err  error
	got  history.Filter
}

func (q *fakeQuerier) Query(_ context.Context, f history.Filter) ([]history.Record, error) {
	q.got = f
	return q.rows, q.err
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	got, ok := next.(Model)
	if !ok {
		t.Fatalf("Update() returned %T, want Model", next)
	}
	return got
}

func event(t *testing.T, m Model, ev protocol.Event) Model {
	t.Helper()
	return update(t, m, eventMsg{ev: ev})
}

func key(t *testing.T, m Model, k string) Model {
	t.Helper()
	next, _ := m.handleKey(k, nil)
	return next
}

func proposalFor(path string) protocol.Proposal {
	return protocol.Proposal{Path: path, Filename: "a.pdf", Category: "invoices", Summary: "march invoice"}
}

func TestProposal_Deduplicated(t *testing.T) {
	conn := newFakeConn()
	m := New(conn, nil, nil)

	m = event(t, m, proposalFor("/in/a.pdf"))
	m = event(t, m, proposalFor("/in/a.pdf"))

	if got := m.board.Len(); got != 1 {
		t.Errorf("board.Len() = %d, want 1", got)
	}
}

func TestStartEmbedding(t *testing.T) {
	conn := newFakeConn()
	m := New(conn, nil, nil)

	m = key(t, m, "e")

	if len(conn.sends) != 1 || conn.sends[0].Action != protocol.ActionStartEmbedding {
		t.Fatalf("sends = %+v, want one start_embedding", conn.sends)
	}
	if !m.progressVisible {
		t.Error("progress not visible after start")
	}
	if !m.controls[jobs.ControlStopEmbedding].visible {
		t.Error("stop control not visible after start")
	}
	if m.controls[jobs.ControlGroupFolders].enabled {
		t.Error("group control still enabled during embedding")
	}

	// Single-flight: a second press while in flight sends nothing.
	m = key(t, m, "e")
	if len(conn.sends) != 1 {
		t.Errorf("sends after repeat press = %d, want 1", len(conn.sends))
	}
}

func TestStartEmbedding_Disconnected(t *testing.T) {
	conn := newFakeConn()
	m := New(conn, nil, nil)
	m.connected = false

	m = key(t, m, "e")

	if len(conn.sends) != 0 {
		t.Errorf("sends = %+v, want none while disconnected", conn.sends)
	}
	if m.alert == "" {
		t.Error("no alert shown for start while disconnected")
	}
}

func TestEmbedding_DualCompletionSignals(t *testing.T) {
	conn := newFakeConn()
	m := New(conn, nil, nil)
	m = key(t, m, "e")

	m = event(t, m, protocol.EmbedStarted{})
	m = event(t, m, protocol.EmbedProgress{Done: 3, Total: 3})
	m = event(t, m, protocol.EmbedComplete{})

	if !m.controls[jobs.ControlGroupFolders].enabled {
		t.Error("group control not re-enabled after completion")
	}
	if m.controls[jobs.ControlStopEmbedding].visible {
		t.Error("stop control still visible after completion")
	}

	// The grace-period timer fires and clears the shared surface.
	m = update(t, m, hideProgressMsg{job: jobs.Embedding})
	if m.progressVisible {
		t.Error("progress still visible after grace period")
	}
}

func TestHideProgress_SkippedWhenRearmed(t *testing.T) {
	conn := newFakeConn()
	m := New(conn, nil, nil)
	m = key(t, m, "e")
	m = event(t, m, protocol.EmbedComplete{})

	// Re-armed during the grace period; the stale timer must not hide it.
	m = key(t, m, "e")
	m = update(t, m, hideProgressMsg{job: jobs.Embedding})
	if !m.progressVisible {
		t.Error("progress hidden by stale timer while job re-armed")
	}
}

func TestStopEmbedding(t *testing.T) {
	conn := newFakeConn()
	m := New(conn, nil, nil)
	m = key(t, m, "e")

	m = key(t, m, "x")

	if len(conn.sends) != 2 || conn.sends[1].Action != protocol.ActionStopEmbedding {
		t.Fatalf("sends = %+v, want stop_embedding", conn.sends)
	}
	if m.controls[jobs.ControlStopEmbedding].visible {
		t.Error("stop control still visible after stop request")
	}

	// Stop with nothing running sends nothing.
	m = event(t, m, protocol.EmbedStopped{})
	m = key(t, m, "x")
	if len(conn.sends) != 2 {
		t.Errorf("sends after idle stop = %d, want 2", len(conn.sends))
	}
}

func TestDecide_OneShot(t *testing.T) {
	conn := newFakeConn()
	m := New(conn, nil, nil)
	m = event(t, m, proposalFor("/in/a.pdf"))

	m = key(t, m, "m")
	if len(conn.sends) != 1 {
		t.Fatalf("sends = %d, want 1", len(conn.sends))
	}
	req := conn.sends[0]
	if req.Action != protocol.ActionMove || req.Path != "/in/a.pdf" || req.Category != "invoices" {
		t.Errorf("sent %+v, want move with path and category", req)
	}

	// Repeats and the opposite decision are swallowed.
	m = key(t, m, "m")
	m = key(t, m, "s")
	if len(conn.sends) != 1 {
		t.Errorf("sends after repeats = %d, want 1", len(conn.sends))
	}
}

func TestDecide_EmptyBoard(t *testing.T) {
	conn := newFakeConn()
	m := New(conn, nil, nil)

	m = key(t, m, "m")
	m = key(t, m, "s")
	if len(conn.sends) != 0 {
		t.Errorf("sends = %+v, want none on empty board", conn.sends)
	}
}

func TestStatus_AnnotatesCard(t *testing.T) {
	conn := newFakeConn()
	m := New(conn, nil, nil)
	m = event(t, m, proposalFor("/in/a.pdf"))
	m = key(t, m, "m")

	m = event(t, m, protocol.FileStatus{Path: "/in/a.pdf", Status: protocol.FileMoved})

	c, _ := m.board.Get("/in/a.pdf")
	if c.Decision != board.Moved {
		t.Errorf("Decision = %v, want Moved", c.Decision)
	}
}

func TestUndo_SuppressesStatuses(t *testing.T) {
	conn := newFakeConn()
	m := New(conn, nil, nil)
	m = event(t, m, proposalFor("/in/a.pdf"))

	m = key(t, m, "u")
	if conn.sends[len(conn.sends)-1].Action != protocol.ActionUndoGrouping {
		t.Fatalf("sends = %+v, want undo_grouping last", conn.sends)
	}

	// Status echoes during the undo window are stale and must not land.
	m = event(t, m, protocol.UndoProgress{Done: 1, Total: 2})
	m = event(t, m, protocol.FileStatus{Path: "/in/a.pdf", Status: protocol.FileMoved})
	c, _ := m.board.Get("/in/a.pdf")
	if c.Decision != board.Pending {
		t.Errorf("Decision = %v, want Pending while undo in flight", c.Decision)
	}

	// The result lifts the suppression.
	m = event(t, m, protocol.UndoResult{Status: protocol.ResultSuccess})
	m = event(t, m, protocol.FileStatus{Path: "/in/a.pdf", Status: protocol.FileMoved})
	c, _ = m.board.Get("/in/a.pdf")
	if c.Decision != board.Moved {
		t.Errorf("Decision = %v, want Moved after undo finished", c.Decision)
	}
}

func TestUndo_StartedRemotely(t *testing.T) {
	conn := newFakeConn()
	m := New(conn, nil, nil)
	m = event(t, m, proposalFor("/in/a.pdf"))

	// Undo progress without a local start still suppresses statuses.
	m = event(t, m, protocol.UndoProgress{Done: 1, Total: 2})
	m = event(t, m, protocol.FileStatus{Path: "/in/a.pdf", Status: protocol.FileMoved})
	c, _ := m.board.Get("/in/a.pdf")
	if c.Decision != board.Pending {
		t.Errorf("Decision = %v, want Pending", c.Decision)
	}
}

func TestGroupResult_ShowsGroups(t *testing.T) {
	conn := newFakeConn()
	m := New(conn, nil, nil)
	m = key(t, m, "g")

	m = event(t, m, protocol.GroupResult{
		Status: protocol.ResultSuccess,
		Groups: map[string][]string{"invoices": {"a", "b"}},
	})

	if len(m.groups) != 1 {
		t.Errorf("groups = %v, want the grouping result", m.groups)
	}
	if !m.controls[jobs.ControlGroupFolders].enabled {
		t.Error("group control not re-enabled")
	}
}

func TestChannelClosed(t *testing.T) {
	conn := newFakeConn()
	m := New(conn, nil, nil)
	m = key(t, m, "e")

	m = update(t, m, channelClosedMsg{})

	if m.connected {
		t.Error("still connected after channel close")
	}
	if m.progressVisible {
		t.Error("progress still visible after channel close")
	}
	for ctl, st := range m.controls {
		if st.enabled {
			t.Errorf("control %v still enabled after channel close", ctl)
		}
	}
	if m.alert == "" {
		t.Error("no alert after channel close")
	}
}

func TestCursor_Bounds(t *testing.T) {
	conn := newFakeConn()
	m := New(conn, nil, nil)
	m = event(t, m, proposalFor("/in/a.pdf"))
	m = event(t, m, protocol.Proposal{Path: "/in/b.pdf", Filename: "b.pdf", Category: "photos"})

	m = key(t, m, "k")
	if m.cursor != 0 {
		t.Errorf("cursor = %d, want 0 at top", m.cursor)
	}
	m = key(t, m, "j")
	if m.cursor != 1 {
		t.Errorf("cursor = %d, want 1", m.cursor)
	}
	m = key(t, m, "j")
	if m.cursor != 1 {
		t.Errorf("cursor = %d, want clamped at 1", m.cursor)
	}
}

func TestHint_Expires(t *testing.T) {
	conn := newFakeConn()
	m := New(conn, nil, nil)
	if m.hint == "" {
		t.Fatal("fresh session has no hint")
	}
	m = update(t, m, hintExpiredMsg{})
	if m.hint != "" {
		t.Errorf("hint = %q, want cleared", m.hint)
	}
}

func TestHistoryMode(t *testing.T) {
	conn := newFakeConn()
	q := &fakeQuerier{rows: []history.Record{{Filename: "a.pdf", Category: "invoices"}}}
	m := New(conn, q, nil)

	m = key(t, m, "h")
	if m.mode != modeHistory {
		t.Fatalf("mode = %v, want history", m.mode)
	}

	// Run the query command synchronously.
	cmd := m.runQuery()
	msg, ok := cmd().(historyMsg)
	if !ok {
		t.Fatal("runQuery() command did not yield a historyMsg")
	}
	m = update(t, m, msg)
	if m.histErr != nil {
		t.Fatalf("histErr = %v", m.histErr)
	}
	if len(m.histRows) != 1 {
		t.Errorf("histRows = %d, want 1", len(m.histRows))
	}

	m = key(t, m, "esc")
	if m.mode != modeBoard {
		t.Errorf("mode = %v, want board after esc", m.mode)
	}
}

func TestHistoryMode_QueryError(t *testing.T) {
	conn := newFakeConn()
	q := &fakeQuerier{err: errors.New("disk gone")}
	m := New(conn, q, nil)
	m = key(t, m, "h")

	msg := m.runQuery()().(historyMsg)
	m = update(t, m, msg)
	if m.histErr == nil {
		t.Error("histErr = nil, want error")
	}
}

func TestHistoryMode_NoStore(t *testing.T) {
	conn := newFakeConn()
	m := New(conn, nil, nil)
	m = key(t, m, "h")

	msg := m.runQuery()().(historyMsg)
	if msg.err == nil {
		t.Error("err = nil, want unavailable error")
	}
}

func TestUnknownEvent_Ignored(t *testing.T) {
	conn := newFakeConn()
	m := New(conn, nil, nil)

	before := m.board.Len()
	m = event(t, m, protocol.Unknown{Action: "reindex_all"})
	if m.board.Len() != before {
		t.Error("unknown event mutated the board")
	}
}
