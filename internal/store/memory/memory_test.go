package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kasirpos/internal/store"
)

func TestLoadMissingKeyReturnsNotFound(t *testing.T) {
	s := New()
	_, err := s.Load(context.Background(), store.KeyProducts)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestSaveCopiesPayload(t *testing.T) {
	ctx := context.Background()
	s := New()

	payload := []byte(`[{"id":"1"}]`)
	require.NoError(t, s.Save(ctx, store.KeyProducts, payload))
	payload[0] = 'X'

	got, err := s.Load(ctx, store.KeyProducts)
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"1"}]`, string(got))
	assert.Equal(t, 1, s.Saves())
}
