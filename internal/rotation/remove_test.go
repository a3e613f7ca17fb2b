package rotation

import (
	"testing"

	"github.com/maheshrc27/contentloop/internal/models"
	"github.com/stretchr/testify/require"
)

func TestRemoveClosesGap(t *testing.T) {
	t.Parallel()

	items := makeItems(5) // ids 1..5 at positions 0..4
	loop := &models.Loop{CurrentPosition: 0}

	removed, remaining, err := Remove(loop, items, 2)
	require.NoError(t, err)
	require.Equal(t, int64(2), removed.ID)
	require.Equal(t, []int64{1, 3, 4, 5}, ids(remaining))
	require.Equal(t, []int{0, 1, 2, 3}, positions(remaining))
	require.Equal(t, 0, loop.CurrentPosition)
}

func TestRemoveBeforeCursorShiftsCursor(t *testing.T) {
	t.Parallel()

	items := makeItems(5)
	loop := &models.Loop{CurrentPosition: 3} // points at id 4

	_, remaining, err := Remove(loop, items, 1)
	require.NoError(t, err)
	require.Equal(t, 2, loop.CurrentPosition)
	require.Equal(t, int64(4), NextItem(loop, remaining).ID)
}

func TestRemoveAtCursorNeverPointsPastEnd(t *testing.T) {
	t.Parallel()

	for n := 1; n <= 6; n++ {
		for cursor := 0; cursor < n; cursor++ {
			items := makeItems(n)
			loop := &models.Loop{CurrentPosition: cursor}
			target := items[cursor].ID

			_, remaining, err := Remove(loop, items, target)
			require.NoError(t, err)
			if len(remaining) == 0 {
				require.Equal(t, 0, loop.CurrentPosition)
				continue
			}
			require.Less(t, loop.CurrentPosition, len(remaining))
			require.NotNil(t, NextItem(loop, remaining))
		}
	}
}

func TestRemoveLastItemAtCursorWraps(t *testing.T) {
	t.Parallel()

	items := makeItems(3)
	loop := &models.Loop{CurrentPosition: 2}

	_, remaining, err := Remove(loop, items, 3)
	require.NoError(t, err)
	require.Equal(t, 0, loop.CurrentPosition)
	require.Equal(t, int64(1), NextItem(loop, remaining).ID)
}

func TestRemoveUnknownItem(t *testing.T) {
	t.Parallel()

	_, _, err := Remove(&models.Loop{}, makeItems(2), 42)
	require.ErrorIs(t, err, ErrItemNotInLoop)
	require.ErrorIs(t, err, models.ErrNotFound)
}
