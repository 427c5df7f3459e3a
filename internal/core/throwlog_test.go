package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strongholdcore/pkg/domain"
)

func TestThrowLogAppendUndoRestoresOriginal(t *testing.T) {
	log := NewThrowLog(0, nil)
	_, err := log.Append(domain.NewThrow(0, 0, 10))
	require.NoError(t, err)
	original := log.Throws()

	for i := 0; i < 5; i++ {
		idx, err := log.Append(domain.NewThrow(float64(i*100), 50, float64(i)))
		require.NoError(t, err)
		assert.Equal(t, i+1, idx)
	}
	require.Equal(t, 6, log.Len())
	for i := 0; i < 5; i++ {
		require.NoError(t, log.Undo())
	}
	assert.Equal(t, original, log.Throws())

	require.NoError(t, log.Undo())
	assert.Zero(t, log.Len())
	assert.ErrorIs(t, log.Undo(), domain.ErrEmptyHistory)
}

func TestThrowLogAmendAngleRoundTripsExactly(t *testing.T) {
	log := NewThrowLog(0, nil)
	_, err := log.Append(domain.NewThrow(10, 10, 33.33))
	require.NoError(t, err)

	require.NoError(t, log.AmendLast(AdjustAngle(1)))
	last, _ := log.Last()
	assert.Equal(t, 1, last.Correction)
	assert.InDelta(t, 33.34, last.EffectiveAngle(0.01), 1e-9)

	require.NoError(t, log.AmendLast(AdjustAngle(-1)))
	last, _ = log.Last()
	assert.Equal(t, 33.33, last.EffectiveAngle(0.01))
	assert.Equal(t, 3, log.UndoDepth())
}

func TestThrowLogAmendTouchesOnlyLast(t *testing.T) {
	log := NewThrowLog(0, nil)
	assert.ErrorIs(t, log.AmendLast(ToggleKind()), domain.ErrEmptyLog)

	_, _ = log.Append(domain.NewThrow(0, 0, 1))
	_, _ = log.Append(domain.NewThrow(5, 5, 2))
	require.NoError(t, log.AmendLast(ToggleKind()))
	require.NoError(t, log.AmendLast(ToggleBoat()))

	throws := log.Throws()
	assert.Equal(t, domain.KindStandard, throws[0].Kind)
	assert.False(t, throws[0].Boat)
	assert.Equal(t, domain.KindAlternate, throws[1].Kind)
	assert.True(t, throws[1].Boat)

	require.NoError(t, log.Undo())
	require.NoError(t, log.Undo())
	last, _ := log.Last()
	assert.Equal(t, domain.KindStandard, last.Kind)
	assert.False(t, last.Boat)
}

func TestThrowLogClearIsUndoableOnce(t *testing.T) {
	log := NewThrowLog(0, nil)
	for i := 0; i < 3; i++ {
		_, _ = log.Append(domain.NewThrow(float64(i), 0, 0))
	}
	before := log.Throws()

	require.NoError(t, log.Clear())
	assert.Zero(t, log.Len())
	assert.Equal(t, 1, log.UndoDepth())

	require.NoError(t, log.Undo())
	assert.Equal(t, before, log.Throws())
	assert.ErrorIs(t, log.Undo(), domain.ErrEmptyHistory)

	empty := NewThrowLog(0, nil)
	require.NoError(t, empty.Clear())
	assert.Zero(t, empty.UndoDepth())
}

func TestThrowLogEvictsOldestHistory(t *testing.T) {
	log := NewThrowLog(2, nil)
	for i := 0; i < 4; i++ {
		_, _ = log.Append(domain.NewThrow(float64(i), 0, 0))
	}
	assert.Equal(t, 2, log.UndoDepth())
	require.NoError(t, log.Undo())
	require.NoError(t, log.Undo())
	assert.Equal(t, 2, log.Len())
	assert.ErrorIs(t, log.Undo(), domain.ErrEmptyHistory)

	log.SetLimit(1)
	_, _ = log.Append(domain.NewThrow(9, 9, 9))
	_, _ = log.Append(domain.NewThrow(8, 8, 8))
	assert.Equal(t, 1, log.UndoDepth())
}

func TestThrowLogRefusesWhileLocked(t *testing.T) {
	lock := NewLockController(false, AutoReset{}, nil)
	log := NewThrowLog(0, lock)
	_, err := log.Append(domain.NewThrow(1, 2, 3))
	require.NoError(t, err)
	before := log.Throws()

	lock.Toggle()
	_, err = log.Append(domain.NewThrow(4, 5, 6))
	assert.ErrorIs(t, err, domain.ErrLocked)
	assert.ErrorIs(t, log.AmendLast(AdjustAngle(1)), domain.ErrLocked)
	assert.ErrorIs(t, log.Clear(), domain.ErrLocked)
	err = log.Undo()
	assert.ErrorIs(t, err, domain.ErrEmptyHistory)
	assert.ErrorIs(t, err, domain.ErrLocked)

	assert.Equal(t, before, log.Throws())
	assert.Equal(t, 1, log.UndoDepth())
}
