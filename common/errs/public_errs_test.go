package errs

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublicError(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		assert.NoError(t, WithPublicMessage(nil, "ignored"))
		assert.NoError(t, WithPublicMessageCode(nil, "ignored", "X"))
	})

	t.Run("prefix and code", func(t *testing.T) {
		err := errors.Wrap(WithPublicMessageCode(errors.Wrap(NotFound, "tick"), "invalid wallet", "E_WALLET"), "handler")

		p, ok := AsPublic(err)
		require.True(t, ok)
		assert.Equal(t, "invalid wallet: tick: Not Found", p.Message())
		assert.Equal(t, "E_WALLET", p.Code())
		assert.ErrorIs(t, err, NotFound)
	})

	t.Run("new", func(t *testing.T) {
		p, ok := AsPublic(errors.Mark(NewPublicError("no such inscription"), NotFound))
		require.True(t, ok)
		assert.Equal(t, "no such inscription", p.Message())
		assert.Empty(t, p.Code())
	})

	t.Run("private", func(t *testing.T) {
		_, ok := AsPublic(errors.New("db down"))
		assert.False(t, ok)
	})
}
