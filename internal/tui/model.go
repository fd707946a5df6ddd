// Package tui renders the client: the proposal board, job controls and
// progress, and the history view. It is the thin rendering adapter for the
// job controller's UI intents; all state lives in the Model and is mutated
// only from the bubbletea update loop.
package tui

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"charm.land/bubbles/v2/progress"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"

	"github.com/sortdesk/sortdesk/internal/board"
	"github.com/sortdesk/sortdesk/internal/history"
	"github.com/sortdesk/sortdesk/internal/jobs"
	"github.com/sortdesk/sortdesk/internal/protocol"
)

// Conn is the slice of the daemon connection the model needs.
type Conn interface {
	Send(protocol.Request)
	Events() <-chan protocol.Event
}

// Querier runs history queries against the daemon's decision log.
type Querier interface {
	Query(ctx context.Context, f history.Filter) ([]history.Record, error)
}

const (
	hintDuration = 5 * time.Second
	queryTimeout = 5 * time.Second
)

type viewMode int

const (
	modeBoard viewMode = iota
	modeHistory
)

// eventMsg carries one inbound daemon event.
type eventMsg struct {
	ev protocol.Event
}

// channelClosedMsg signals the connection is gone.
type channelClosedMsg struct{}

// hideProgressMsg fires after the grace period following job completion.
type hideProgressMsg struct {
	job jobs.Kind
}

// hintExpiredMsg dismisses the first-connect hint.
type hintExpiredMsg struct{}

// historyMsg carries a finished history query.
type historyMsg struct {
	rows []history.Record
	err  error
}

// controlState is the rendered state of one job control, re-derived from
// intents rather than cached against widget lookups.
type controlState struct {
	visible bool
	enabled bool
}

// Model is the bubbletea model for the client session.
type Model struct {
	conn   Conn
	store  Querier // nil when the log store failed to open
	logger *slog.Logger

	jobs  *jobs.Controller
	board *board.Board

	progress progress.Model
	theme    Theme

	controls map[jobs.Control]controlState

	// Progress surface (one shared surface, owned by whichever job last
	// showed it, as in the daemon's own GUI).
	progressVisible bool
	progressJob     jobs.Kind
	label           string
	done, total     int

	alert  string
	hint   string
	groups map[string][]string

	cursor    int
	mode      viewMode
	connected bool
	quitting  bool

	searchInput   textinput.Model
	categoryInput textinput.Model
	focusCategory bool
	histRows      []history.Record
	histErr       error
	histRan       bool

	width  int
	height int
}

// New creates the model for a fresh session.
func New(conn Conn, store Querier, logger *slog.Logger) Model {
	if logger == nil {
		logger = slog.Default()
	}

	prog := progress.New(
		progress.WithDefaultBlend(),
		progress.WithWidth(40),
	)

	search := textinput.New()
	search.Placeholder = "search filename or summary"
	category := textinput.New()
	category.Placeholder = "category"

	return Model{
		conn:     conn,
		store:    store,
		logger:   logger,
		jobs:     jobs.NewController(logger),
		board:    board.New(logger),
		progress: prog,
		theme:    defaultTheme,
		controls: map[jobs.Control]controlState{
			jobs.ControlStartEmbedding: {visible: true, enabled: true},
			jobs.ControlStopEmbedding:  {visible: false, enabled: true},
			jobs.ControlGroupFolders:   {visible: true, enabled: true},
			jobs.ControlUndoGrouping:   {visible: true, enabled: true},
		},
		connected:     true,
		hint:          "new here? run folder embedding first, it may take a while",
		searchInput:   search,
		categoryInput: category,
	}
}

// Init starts the event pump, the progress animation and the hint timer.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.progress.Init(),
		m.waitForEvent(),
		tea.Tick(hintDuration, func(time.Time) tea.Msg { return hintExpiredMsg{} }),
	)
}

// waitForEvent blocks on the next daemon event. Re-armed after every receipt
// so events are processed strictly in arrival order.
func (m Model) waitForEvent() tea.Cmd {
	events := m.conn.Events()
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return channelClosedMsg{}
		}
		return eventMsg{ev: ev}
	}
}

// Update handles messages and returns the updated model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		return m.handleKey(msg.String(), msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case eventMsg:
		next, cmd := m.safeHandleEvent(msg.ev)
		return next, tea.Batch(cmd, next.waitForEvent())

	case channelClosedMsg:
		m.connected = false
		m.jobs.Reset()
		m.progressVisible = false
		m.alert = "connection to daemon lost, restart sortdesk to reconnect"
		for ctl, st := range m.controls {
			st.enabled = false
			m.controls[ctl] = st
		}
		m.logger.Warn("event stream closed")
		return m, nil

	case hideProgressMsg:
		// A job re-armed during the grace period keeps its surface.
		if m.progressJob == msg.job && !m.jobs.Active(msg.job) {
			m.progressVisible = false
		}
		return m, nil

	case hintExpiredMsg:
		m.hint = ""
		return m, nil

	case historyMsg:
		m.histRows = msg.rows
		m.histErr = msg.err
		m.histRan = true
		return m, nil

	case progress.FrameMsg:
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		return m, cmd
	}

	return m, nil
}

// safeHandleEvent isolates each event: a handler panic is logged and the
// loop keeps processing subsequent events.
func (m Model) safeHandleEvent(ev protocol.Event) (next Model, cmd tea.Cmd) {
	next = m
	defer func() {
		if r := recover(); r != nil {
			next = m
			cmd = nil
			m.logger.Error("event handler panicked", "panic", fmt.Sprint(r))
		}
	}()
	next, cmd = m.handleEvent(ev)
	return next, cmd
}

func (m Model) handleEvent(ev protocol.Event) (Model, tea.Cmd) {
	switch ev := ev.(type) {
	case protocol.Proposal:
		if m.board.Add(ev) {
			m.logger.Info("proposal received", "path", ev.Path, "category", ev.Category)
		}
		return m, nil

	case protocol.FileStatus:
		// Ignored when no card matches: the path belongs to a prior session.
		m.board.ApplyStatus(ev.Path, ev.Status)
		return m, nil

	case protocol.Unknown:
		m.logger.Debug("ignoring unknown event", "action", ev.Action)
		return m, nil

	default:
		// Undo invalidates in-flight per-file decisions, so suppress their
		// echoes for the whole undo window regardless of who started it.
		switch ev.(type) {
		case protocol.UndoProgress:
			m.board.SetSuppressStatus(true)
		case protocol.UndoResult:
			m.board.SetSuppressStatus(false)
		}
		return m.applyIntents(m.jobs.Handle(ev))
	}
}

// applyIntents folds the controller's abstract UI commands into model state.
func (m Model) applyIntents(intents []jobs.Intent) (Model, tea.Cmd) {
	var cmds []tea.Cmd
	for _, it := range intents {
		switch it := it.(type) {
		case jobs.SetProgress:
			m.progressJob = it.Job
			m.done, m.total = it.Done, it.Total
		case jobs.SetLabel:
			m.label = it.Text
		case jobs.ShowProgress:
			m.progressVisible = true
			m.progressJob = it.Job
			m.done, m.total = 0, 0
		case jobs.HideProgress:
			if it.After > 0 {
				job := it.Job
				cmds = append(cmds, tea.Tick(it.After, func(time.Time) tea.Msg {
					return hideProgressMsg{job: job}
				}))
			} else if m.progressJob == it.Job {
				m.progressVisible = false
			}
		case jobs.ShowControl:
			st := m.controls[it.Control]
			st.visible = true
			m.controls[it.Control] = st
		case jobs.HideControl:
			st := m.controls[it.Control]
			st.visible = false
			m.controls[it.Control] = st
		case jobs.SetEnabled:
			st := m.controls[it.Control]
			st.enabled = it.Enabled
			m.controls[it.Control] = st
		case jobs.Alert:
			m.alert = it.Text
		case jobs.ShowGroups:
			m.groups = it.Groups
		}
	}
	return m, tea.Batch(cmds...)
}

// handleKey routes key presses. raw is forwarded to the focused text input
// in history mode; key is its string form (kept separate so tests can drive
// the model without constructing key events).
func (m Model) handleKey(key string, raw tea.Msg) (Model, tea.Cmd) {
	switch key {
	case "ctrl+c", "q":
		if m.mode == modeHistory && key == "q" {
			break // "q" is typeable in the filter inputs
		}
		m.quitting = true
		return m, tea.Quit
	}

	if m.mode == modeHistory {
		return m.handleHistoryKey(key, raw)
	}
	return m.handleBoardKey(key)
}

func (m Model) handleBoardKey(key string) (Model, tea.Cmd) {
	switch key {
	case "e":
		return m.startJob(jobs.Embedding, protocol.StartEmbedding())

	case "x":
		if !m.connected {
			return m, nil
		}
		intents, ok := m.jobs.Stop(jobs.Embedding)
		if !ok {
			return m, nil
		}
		m.conn.Send(protocol.StopEmbedding())
		m.logger.Info("stop requested", "job", "embedding")
		return m.applyIntents(intents)

	case "g":
		return m.startJob(jobs.Grouping, protocol.GroupFolders())

	case "u":
		next, cmd := m.startJob(jobs.Undo, protocol.UndoGrouping())
		if next.jobs.Active(jobs.Undo) {
			next.board.SetSuppressStatus(true)
		}
		return next, cmd

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case "down", "j":
		if m.cursor < m.board.Len()-1 {
			m.cursor++
		}
		return m, nil

	case "m":
		return m.decide(true)

	case "s":
		return m.decide(false)

	case "h":
		m.mode = modeHistory
		m.focusCategory = false
		m.categoryInput.Blur()
		return m, m.searchInput.Focus()
	}
	return m, nil
}

func (m Model) startJob(k jobs.Kind, req protocol.Request) (Model, tea.Cmd) {
	if !m.connected {
		m.alert = "not connected to daemon"
		return m, nil
	}
	intents, ok := m.jobs.Start(k)
	if !ok {
		return m, nil
	}
	m.conn.Send(req)
	m.logger.Info("job start requested", "job", k.String())
	return m.applyIntents(intents)
}

// decide issues the move/skip decision for the card under the cursor.
func (m Model) decide(move bool) (Model, tea.Cmd) {
	cards := m.board.Cards()
	if !m.connected || m.cursor >= len(cards) {
		return m, nil
	}
	card := cards[m.cursor]

	var req protocol.Request
	var ok bool
	if move {
		req, ok = m.board.Move(card.Path)
	} else {
		req, ok = m.board.Skip(card.Path)
	}
	if !ok {
		return m, nil
	}
	m.conn.Send(req)
	m.logger.Info("decision sent", "action", req.Action, "path", card.Path)
	return m, nil
}

func (m Model) handleHistoryKey(key string, raw tea.Msg) (Model, tea.Cmd) {
	switch key {
	case "esc":
		m.mode = modeBoard
		m.searchInput.Blur()
		m.categoryInput.Blur()
		return m, nil

	case "tab":
		m.focusCategory = !m.focusCategory
		if m.focusCategory {
			m.searchInput.Blur()
			return m, m.categoryInput.Focus()
		}
		m.categoryInput.Blur()
		return m, m.searchInput.Focus()

	case "enter":
		return m, m.runQuery()
	}

	var cmd tea.Cmd
	if m.focusCategory {
		m.categoryInput, cmd = m.categoryInput.Update(raw)
	} else {
		m.searchInput, cmd = m.searchInput.Update(raw)
	}
	return m, cmd
}

// runQuery executes the history query off the update loop. Failures land in
// historyMsg.err and render as an error state, never a crash.
func (m Model) runQuery() tea.Cmd {
	if m.store == nil {
		return func() tea.Msg {
			return historyMsg{err: fmt.Errorf("history log unavailable")}
		}
	}
	filter := history.Filter{
		Search:   m.searchInput.Value(),
		Category: m.categoryInput.Value(),
	}
	store := m.store
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
		defer cancel()
		rows, err := store.Query(ctx, filter)
		return historyMsg{rows: rows, err: err}
	}
}
