package automaxprocs

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitUndo(t *testing.T) {
	before := Current()
	t.Cleanup(func() { runtime.GOMAXPROCS(before) })

	require.NoError(t, Init())
	assert.GreaterOrEqual(t, Current(), 1)

	assert.Equal(t, before, Undo())
	assert.Equal(t, before, Current())
}

func TestUndoWithoutInit(t *testing.T) {
	before := Current()
	t.Cleanup(func() { runtime.GOMAXPROCS(before) })

	runtime.GOMAXPROCS(1)
	assert.Equal(t, initial, Undo())
}
