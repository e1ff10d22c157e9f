package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryStore_StoreGetDelete(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	st := NewMemoryStore()

	_, err := st.Get(ctx, now, 1, "d1")
	require.ErrorIs(t, err, ErrSessionNotFound)

	sess := Session{TokenID: "t1", TokenHash: "h1", ExpiresAt: now.Add(time.Hour)}
	require.NoError(t, st.Store(ctx, 1, "d1", sess))

	got, err := st.Get(ctx, now, 1, "d1")
	require.NoError(t, err)
	require.Equal(t, sess, got)

	// Overwrite on rotation.
	sess2 := Session{TokenID: "t2", TokenHash: "h2", ExpiresAt: now.Add(2 * time.Hour)}
	require.NoError(t, st.Store(ctx, 1, "d1", sess2))
	got, err = st.Get(ctx, now, 1, "d1")
	require.NoError(t, err)
	require.Equal(t, "t2", got.TokenID)

	require.NoError(t, st.Delete(ctx, 1, "d1"))
	_, err = st.Get(ctx, now, 1, "d1")
	require.ErrorIs(t, err, ErrSessionNotFound)

	// Deleting twice is not an error.
	require.NoError(t, st.Delete(ctx, 1, "d1"))
}

func TestMemoryStore_ExpiryIsLazy(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	st := NewMemoryStore()

	require.NoError(t, st.Store(ctx, 1, "d1", Session{TokenID: "t1", ExpiresAt: now.Add(time.Minute)}))

	_, err := st.Get(ctx, now.Add(2*time.Minute), 1, "d1")
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemoryStore_DeleteAllAndDevices(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	st := NewMemoryStore()

	exp := now.Add(time.Hour)
	require.NoError(t, st.Store(ctx, 1, "d1", Session{TokenID: "t1", ExpiresAt: exp}))
	require.NoError(t, st.Store(ctx, 1, "d2", Session{TokenID: "t2", ExpiresAt: exp}))
	require.NoError(t, st.Store(ctx, 2, "d1", Session{TokenID: "t3", ExpiresAt: exp}))

	devices, err := st.Devices(ctx, now, 1)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"d1", "d2"}, devices)

	require.NoError(t, st.DeleteAll(ctx, 1))

	devices, err = st.Devices(ctx, now, 1)
	require.NoError(t, err)
	require.Empty(t, devices)

	// Unrelated user untouched.
	_, err = st.Get(ctx, now, 2, "d1")
	require.NoError(t, err)
}

func TestMemoryStore_ReplayLedger(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	st := NewMemoryStore()

	used, err := st.IsUsed(ctx, now, "t1")
	require.NoError(t, err)
	require.False(t, used)

	first, err := st.MarkUsed(ctx, "t1", now.Add(time.Hour))
	require.NoError(t, err)
	require.True(t, first)

	// Second mark loses the insert-if-absent race.
	first, err = st.MarkUsed(ctx, "t1", now.Add(time.Hour))
	require.NoError(t, err)
	require.False(t, first)

	used, err = st.IsUsed(ctx, now, "t1")
	require.NoError(t, err)
	require.True(t, used)

	// Ledger entries die with the token they guard.
	used, err = st.IsUsed(ctx, now.Add(2*time.Hour), "t1")
	require.NoError(t, err)
	require.False(t, used)
}

func TestMemoryStore_PurgeExpired(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	st := NewMemoryStore()

	require.NoError(t, st.Store(ctx, 1, "d1", Session{TokenID: "t1", ExpiresAt: now.Add(time.Minute)}))
	require.NoError(t, st.Store(ctx, 1, "d2", Session{TokenID: "t2", ExpiresAt: now.Add(time.Hour)}))
	_, err := st.MarkUsed(ctx, "t0", now.Add(time.Minute))
	require.NoError(t, err)

	require.NoError(t, st.PurgeExpired(ctx, now.Add(30*time.Minute)))

	_, err = st.Get(ctx, now, 1, "d1")
	require.ErrorIs(t, err, ErrSessionNotFound)
	_, err = st.Get(ctx, now, 1, "d2")
	require.NoError(t, err)
}
