// Package board maintains the set of file proposals awaiting a user decision.
//
// The daemon broadcasts proposals without de-duplication, so the board keys
// cards by a stable identifier derived from the file path and treats repeat
// broadcasts as no-ops. Decisions are one-shot: once a card is decided the
// daemon will not re-prompt, so the decision request is handed out exactly
// once.
package board

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"

	"github.com/sortdesk/sortdesk/internal/protocol"
)

// Decision is the user-visible state of a proposal.
type Decision int

const (
	Pending Decision = iota
	Moved
	Skipped
	Errored
)

func (d Decision) String() string {
	switch d {
	case Pending:
		return "pending"
	case Moved:
		return "moved"
	case Skipped:
		return "skipped"
	case Errored:
		return "errored"
	default:
		return "unknown"
	}
}

// Card is one rendered proposal.
type Card struct {
	ID       string
	Path     string
	Filename string
	Category string
	Summary  string
	Decision Decision
	Decided  bool   // a move/skip request has been issued
	Note     string // terminal status annotation from the daemon
}

// CardID derives the stable card identifier for a path: a hex digest keeps it
// identifier-safe and collision-resistant for arbitrary paths.
func CardID(path string) string {
	sum := sha256.Sum256([]byte(path))
	return "card-" + hex.EncodeToString(sum[:])
}

// Board holds the session's proposals in arrival order. Not safe for
// concurrent use; mutated only from the TUI event loop.
type Board struct {
	logger   *slog.Logger
	cards    map[string]*Card
	order    []string
	suppress bool
}

// New creates an empty board.
func New(logger *slog.Logger) *Board {
	if logger == nil {
		logger = slog.Default()
	}
	return &Board{
		logger: logger,
		cards:  make(map[string]*Card),
	}
}

// Add inserts a card for a proposal broadcast. Repeat broadcasts for a path
// already on the board are no-ops; Add reports whether a card was created.
func (b *Board) Add(p protocol.Proposal) bool {
	if p.Path == "" {
		return false
	}
	id := CardID(p.Path)
	if _, ok := b.cards[id]; ok {
		b.logger.Debug("duplicate proposal ignored", "path", p.Path)
		return false
	}
	b.cards[id] = &Card{
		ID:       id,
		Path:     p.Path,
		Filename: p.Filename,
		Category: p.Category,
		Summary:  p.Summary,
	}
	b.order = append(b.order, id)
	return true
}

// Move issues the accept decision for a path. The returned request must be
// sent to the daemon; ok is false when the card is missing or already
// decided, in which case nothing may be sent.
func (b *Board) Move(path string) (protocol.Request, bool) {
	c, ok := b.decidable(path)
	if !ok {
		return protocol.Request{}, false
	}
	c.Decided = true
	return protocol.Move(c.Path, c.Category), true
}

// Skip issues the reject decision for a path, one-shot like Move.
func (b *Board) Skip(path string) (protocol.Request, bool) {
	c, ok := b.decidable(path)
	if !ok {
		return protocol.Request{}, false
	}
	c.Decided = true
	return protocol.Skip(c.Path), true
}

func (b *Board) decidable(path string) (*Card, bool) {
	c, ok := b.cards[CardID(path)]
	if !ok || c.Decided {
		return nil, false
	}
	return c, true
}

// ApplyStatus annotates a card with its terminal per-file status. Statuses
// for paths without a card refer to a prior session and are silently
// ignored, as is everything while status suppression is on.
func (b *Board) ApplyStatus(path, status string) bool {
	if b.suppress {
		b.logger.Debug("status suppressed during undo", "path", path, "status", status)
		return false
	}
	c, ok := b.cards[CardID(path)]
	if !ok {
		return false
	}
	switch status {
	case protocol.FileMoved:
		c.Decision = Moved
		c.Note = "moved"
	case protocol.FileSkipped:
		c.Decision = Skipped
		c.Note = "skipped"
	default:
		c.Decision = Errored
		c.Note = "error"
	}
	return true
}

// SetSuppressStatus toggles status suppression. While an undo job is in
// flight, per-file statuses would echo decisions the undo is about to
// invalidate, so the board drops them entirely.
func (b *Board) SetSuppressStatus(on bool) {
	b.suppress = on
}

// Cards returns the cards in arrival order.
func (b *Board) Cards() []*Card {
	out := make([]*Card, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, b.cards[id])
	}
	return out
}

// Get returns the card for a path, if present.
func (b *Board) Get(path string) (*Card, bool) {
	c, ok := b.cards[CardID(path)]
	return c, ok
}

// Len returns the number of cards on the board.
func (b *Board) Len() int {
	return len(b.order)
}

// Clear empties the board for a fresh session.
func (b *Board) Clear() {
	b.cards = make(map[string]*Card)
	b.order = nil
	b.suppress = false
}
