package presence_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chamber/internal/presence"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := presence.NewMemory()

	require.NoError(t, s.SetOnline(ctx, "a", true))
	require.NoError(t, s.SetOnline(ctx, "b", true))

	n, err := s.CountOnline(ctx, []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Flipping offline is unconditional and idempotent.
	require.NoError(t, s.SetOnline(ctx, "a", false))
	require.NoError(t, s.SetOnline(ctx, "a", false))

	n, err = s.CountOnline(ctx, []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, s.Reset(ctx))
	n, err = s.CountOnline(ctx, []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
