package document

import (
	"maps"

	"github.com/naveenspark/stepdeck/pkg/domain"
)

// ActionInteraction is the history type pushed for every click-driven step.
const ActionInteraction = "interaction"

// Snapshot is the visual state captured before an action runs. It holds
// plain values only, never live scene objects.
type Snapshot struct {
	Viewport   domain.Viewport
	Visibility map[string]bool
}

// Action is one reversible history entry.
type Action struct {
	Type     string
	TargetID string
	Snapshot Snapshot
}

// Cursor is the viewer's position in the current slide's sequence.
// Index is -1 before the first step.
type Cursor struct {
	SlideID string
	Index   int
	History []Action
}

func (s Snapshot) clone() Snapshot {
	return Snapshot{Viewport: s.Viewport, Visibility: maps.Clone(s.Visibility)}
}

// Cursor returns a copy of the playback cursor.
func (m *Model) Cursor() Cursor {
	c := m.cursor
	c.History = append([]Action(nil), m.cursor.History...)
	return c
}

// CursorIndex returns the current sequence index, -1 when not started.
func (m *Model) CursorIndex() int {
	return m.cursor.Index
}

// SetCursorIndex moves the cursor. Values below -1 are floored.
func (m *Model) SetCursorIndex(i int) {
	if i < -1 {
		i = -1
	}
	m.cursor.Index = i
}

// PushHistory records a. The snapshot is copied so later scene changes
// cannot alter it.
func (m *Model) PushHistory(a Action) {
	a.Snapshot = a.Snapshot.clone()
	m.cursor.History = append(m.cursor.History, a)
}

// PopHistory removes and returns the newest history entry.
func (m *Model) PopHistory() (Action, bool) {
	n := len(m.cursor.History)
	if n == 0 {
		return Action{}, false
	}
	a := m.cursor.History[n-1]
	m.cursor.History = m.cursor.History[:n-1]
	return a, true
}

// HistoryLen returns the number of reversible steps.
func (m *Model) HistoryLen() int {
	return len(m.cursor.History)
}

// ResetCursor returns the cursor to "not started" with no history.
func (m *Model) ResetCursor() {
	m.cursor = Cursor{SlideID: m.currentSlideID, Index: -1}
}
