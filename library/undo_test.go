package library

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUndoLogIsLIFO(t *testing.T) {
	var log UndoLog
	log.Push(AddEntry{ISBN: 1})
	log.Push(DeleteEntry{ISBN: 2, Prior: Book{ISBN: 2}})
	log.Push(UpdateEntry{ISBN: 3, Prior: Book{ISBN: 3}})
	require.Equal(t, 3, log.Len())

	top, ok := log.Peek()
	require.True(t, ok)
	assert.Equal(t, "update", UndoKind(top))
	assert.Equal(t, 3, log.Len())

	var kinds []string
	for log.Len() > 0 {
		e, err := log.Pop()
		require.NoError(t, err)
		kinds = append(kinds, UndoKind(e))
	}
	assert.Equal(t, []string{"update", "delete", "add"}, kinds)
}

func TestUndoLogEmpty(t *testing.T) {
	var log UndoLog
	_, err := log.Pop()
	assert.ErrorIs(t, err, ErrNothingToUndo)
	_, ok := log.Peek()
	assert.False(t, ok)
	assert.Zero(t, log.Len())
}

func TestUndoEntryHoldsCopy(t *testing.T) {
	b := Book{ISBN: 1, Title: "Before", Copies: 1}
	var log UndoLog
	log.Push(UpdateEntry{ISBN: 1, Prior: b})

	b.Title = "After"
	e, err := log.Pop()
	require.NoError(t, err)
	assert.Equal(t, "Before", e.(UpdateEntry).Prior.Title)
}
