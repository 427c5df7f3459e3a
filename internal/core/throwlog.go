package core

import (
	"fmt"

	"strongholdcore/pkg/domain"
)

// DefaultUndoLimit bounds the undo history; the oldest entries are evicted first.
const DefaultUndoLimit = 64

// Gate is consulted before every mutation of a ThrowLog.
type Gate interface {
	Permit() error
}

type openGate struct{}

func (openGate) Permit() error { return nil }

// ThrowLog is the ordered list of accepted throws plus a bounded stack of
// prior versions. It is not safe for concurrent use; StateHandler serializes
// access.
type ThrowLog struct {
	throws  []Throw
	history [][]Throw
	limit   int
	gate    Gate
}

// NewThrowLog constructs an empty log. A nil gate permits every mutation and a
// non-positive limit selects DefaultUndoLimit.
func NewThrowLog(limit int, gate Gate) *ThrowLog {
	if limit <= 0 {
		limit = DefaultUndoLimit
	}
	if gate == nil {
		gate = openGate{}
	}
	return &ThrowLog{limit: limit, gate: gate}
}

// Len returns the number of throws.
func (l *ThrowLog) Len() int { return len(l.throws) }

// UndoDepth returns how many mutations can be undone.
func (l *ThrowLog) UndoDepth() int { return len(l.history) }

// Throws returns a copy of the current contents in insertion order.
func (l *ThrowLog) Throws() []Throw { return domain.CloneThrows(l.throws) }

// Last returns the most recent throw.
func (l *ThrowLog) Last() (Throw, bool) {
	if len(l.throws) == 0 {
		return Throw{}, false
	}
	return l.throws[len(l.throws)-1].Clone(), true
}

// SetLimit changes the history bound, dropping the oldest entries if needed.
func (l *ThrowLog) SetLimit(limit int) {
	if limit <= 0 {
		limit = DefaultUndoLimit
	}
	l.limit = limit
	l.trim()
}

func (l *ThrowLog) push() {
	l.history = append(l.history, domain.CloneThrows(l.throws))
	l.trim()
}

func (l *ThrowLog) trim() {
	if over := len(l.history) - l.limit; over > 0 {
		l.history = append([][]Throw(nil), l.history[over:]...)
	}
}

// Append adds a throw at the end and returns its index.
func (l *ThrowLog) Append(t Throw) (int, error) {
	if err := l.gate.Permit(); err != nil {
		return 0, err
	}
	l.push()
	l.throws = append(l.throws, t.Clone())
	return len(l.throws) - 1, nil
}

// Undo restores the log to the state before the most recent mutation. A
// refused undo reports domain.ErrEmptyHistory alongside the gate's error.
func (l *ThrowLog) Undo() error {
	if err := l.gate.Permit(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrEmptyHistory, err)
	}
	n := len(l.history)
	if n == 0 {
		return domain.ErrEmptyHistory
	}
	l.throws = l.history[n-1]
	l.history = l.history[:n-1]
	return nil
}

// Amendment describes a change to the most recent throw.
type Amendment struct {
	steps      int
	toggleKind bool
	toggleBoat bool
}

// AdjustAngle shifts the angle by n correction steps; negative n decrements.
func AdjustAngle(n int) Amendment { return Amendment{steps: n} }

// ToggleKind flips between the standard and alternate error model.
func ToggleKind() Amendment { return Amendment{toggleKind: true} }

// ToggleBoat flips the boat flag.
func ToggleBoat() Amendment { return Amendment{toggleBoat: true} }

func (a Amendment) apply(t *Throw) {
	t.Correction += a.steps
	if a.toggleKind {
		kind := t.Kind
		if kind == "" {
			kind = KindStandard
		}
		t.Kind = kind.Toggled()
	}
	if a.toggleBoat {
		t.Boat = !t.Boat
	}
}

func (a Amendment) String() string {
	switch {
	case a.toggleKind:
		return "toggle_kind"
	case a.toggleBoat:
		return "toggle_boat"
	default:
		return fmt.Sprintf("angle%+d", a.steps)
	}
}

// AmendLast replaces the final throw with an amended copy.
func (l *ThrowLog) AmendLast(a Amendment) error {
	if err := l.gate.Permit(); err != nil {
		return err
	}
	n := len(l.throws)
	if n == 0 {
		return domain.ErrEmptyLog
	}
	l.push()
	next := make([]Throw, n)
	copy(next, l.throws)
	amended := next[n-1].Clone()
	a.apply(&amended)
	next[n-1] = amended
	l.throws = next
	return nil
}

// Clear empties the log and drops the undo history. The prior contents stay
// reachable through a single Undo. Clearing an empty log only drops history.
func (l *ThrowLog) Clear() error {
	if err := l.gate.Permit(); err != nil {
		return err
	}
	if len(l.throws) == 0 {
		l.history = nil
		return nil
	}
	l.history = [][]Throw{l.throws}
	l.throws = nil
	return nil
}
