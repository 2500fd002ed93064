package store

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"ganttline/internal/model"
)

// ErrInvalidTransition is returned when an edit operation is not allowed
// in the session's current state.
var ErrInvalidTransition = errors.New("invalid edit transition")

// EditState is the state of an inline rename.
type EditState int

const (
	EditIdle EditState = iota
	EditEditing
	EditCommitted
	EditCancelled
)

func (s EditState) String() string {
	switch s {
	case EditIdle:
		return "idle"
	case EditEditing:
		return "editing"
	case EditCommitted:
		return "committed"
	case EditCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("EditState(%d)", int(s))
	}
}

// Renamer is the mutation path an edit commits through.
type Renamer interface {
	Rename(id, name string) (model.Item, error)
}

// EditSession drives the double-click rename flow:
//
//	idle -> editing -> committed | cancelled
//
// Enter and blur commit, Escape cancels. Committing a blank buffer ends the
// session without touching the item.
type EditSession struct {
	mu      sync.Mutex
	target  Renamer
	state   EditState
	itemID  string
	buffer  string
	renamed bool
}

func NewEditSession(target Renamer) *EditSession {
	return &EditSession{target: target}
}

func (e *EditSession) State() EditState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Buffer returns the text being edited.
func (e *EditSession) Buffer() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.buffer
}

// Renamed reports whether the last commit changed the item.
func (e *EditSession) Renamed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.renamed
}

// Begin starts editing it, seeding the buffer with its current name. A
// finished session may be reused.
func (e *EditSession) Begin(it model.Item) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == EditEditing {
		return fmt.Errorf("%w: already editing %q", ErrInvalidTransition, e.itemID)
	}
	e.state = EditEditing
	e.itemID = it.ID
	e.buffer = it.Name
	e.renamed = false
	return nil
}

// Input replaces the buffer.
func (e *EditSession) Input(text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != EditEditing {
		return fmt.Errorf("%w: input while %s", ErrInvalidTransition, e.state)
	}
	e.buffer = text
	return nil
}

// Key handles a key press. Keys other than Enter and Escape are ignored.
func (e *EditSession) Key(key string) error {
	switch key {
	case "Enter":
		return e.Commit()
	case "Escape":
		return e.Cancel()
	default:
		return nil
	}
}

// Blur commits, matching a text field losing focus.
func (e *EditSession) Blur() error {
	return e.Commit()
}

// Commit applies the trimmed buffer as the item's new name.
func (e *EditSession) Commit() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != EditEditing {
		return fmt.Errorf("%w: commit while %s", ErrInvalidTransition, e.state)
	}
	name := strings.TrimSpace(e.buffer)
	e.state = EditCommitted
	e.buffer = ""
	if name == "" {
		return nil
	}
	if _, err := e.target.Rename(e.itemID, name); err != nil {
		return err
	}
	e.renamed = true
	return nil
}

// Cancel abandons the edit.
func (e *EditSession) Cancel() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != EditEditing {
		return fmt.Errorf("%w: cancel while %s", ErrInvalidTransition, e.state)
	}
	e.state = EditCancelled
	e.buffer = ""
	return nil
}
