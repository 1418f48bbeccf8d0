package server

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticValidator(t *testing.T) {
	t.Parallel()

	v := NewStaticValidator(map[string]string{
		"token-1": "alice",
		"token-2": "bob",
	})

	id, err := v.Validate(context.Background(), "token-1")
	require.NoError(t, err)
	assert.Equal(t, "alice", id.PlayerID)

	_, err = v.Validate(context.Background(), "wrong")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = v.Validate(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNoopValidator(t *testing.T) {
	t.Parallel()

	v := NewNoopValidator()
	id, err := v.Validate(context.Background(), "anything")
	assert.NoError(t, err)
	assert.Nil(t, id)
}
