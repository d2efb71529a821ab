package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kasirpos/internal/store"
)

func newIntegrationStore(t *testing.T) *Store {
	t.Helper()
	databaseURL := os.Getenv("KASIRPOS_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set KASIRPOS_TEST_DATABASE_URL to run postgres integration test")
	}

	s, err := New(context.Background(), databaseURL)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

func TestSnapshotRoundTripAndOverwrite(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()
	key := fmt.Sprintf("it-snapshot-%d", time.Now().UnixNano())
	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM pos_snapshots WHERE key = $1`, key)
	})

	_, err := s.Load(ctx, key)
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.Save(ctx, key, []byte(`[{"id":"A"}]`)))
	require.NoError(t, s.Save(ctx, key, []byte(`[{"id":"B"}]`)))

	got, err := s.Load(ctx, key)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"B"}]`, string(got))
}

func TestSaveRejectsInvalidJSON(t *testing.T) {
	s := newIntegrationStore(t)
	err := s.Save(context.Background(), "it-invalid", []byte(`{not json`))
	require.ErrorIs(t, err, store.ErrInvalidPayload)
}
