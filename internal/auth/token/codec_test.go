package token

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func testCodec(t *testing.T, now func() time.Time) *Codec {
	t.Helper()
	c, err := NewCodec(Config{
		Secret:     testSecret,
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 30 * 24 * time.Hour,
		ClockSkew:  2 * time.Minute,
	}, WithClock(now))
	require.NoError(t, err)
	return c
}

func TestNewCodec_WeakSecret(t *testing.T) {
	_, err := NewCodec(Config{
		Secret:     []byte("too-short"),
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
	})
	require.ErrorIs(t, err, ErrWeakSecret)
}

func TestCodec_AccessRoundtrip(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := testCodec(t, func() time.Time { return base })

	raw, exp, err := c.IssueAccess(42, 7)
	require.NoError(t, err)
	require.Equal(t, base.Add(15*time.Minute), exp)

	claims, err := c.Verify(raw)
	require.NoError(t, err)
	require.Equal(t, int64(42), claims.UserID)
	require.Equal(t, TypeAccess, claims.TokenType)
	require.Equal(t, int64(7), claims.Version)
	require.Empty(t, claims.ID)
	require.Empty(t, claims.DeviceID)
}

func TestCodec_RefreshRoundtrip(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := testCodec(t, func() time.Time { return base })

	raw, tokenID, exp, err := c.IssueRefresh(42, 7, "device-a")
	require.NoError(t, err)
	require.NotEmpty(t, tokenID)
	require.Equal(t, base.Add(30*24*time.Hour), exp)

	claims, err := c.Verify(raw)
	require.NoError(t, err)
	require.Equal(t, TypeRefresh, claims.TokenType)
	require.Equal(t, tokenID, claims.ID)
	require.Equal(t, "device-a", claims.DeviceID)
}

func TestCodec_RefreshIDsAreUnique(t *testing.T) {
	c := testCodec(t, nil)

	_, id1, _, err := c.IssueRefresh(1, 0, "d")
	require.NoError(t, err)
	_, id2, _, err := c.IssueRefresh(1, 0, "d")
	require.NoError(t, err)
	require.NotEqual(t, id1, id2)
}

func TestCodec_TamperedTokenInvalid(t *testing.T) {
	c := testCodec(t, nil)

	raw, _, err := c.IssueAccess(1, 0)
	require.NoError(t, err)

	tampered := raw[:len(raw)-2] + "xx"
	_, err = c.Verify(tampered)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestCodec_GarbageInvalid(t *testing.T) {
	c := testCodec(t, nil)

	for _, raw := range []string{"", "garbage", "a.b.c", strings.Repeat("x", 4096)} {
		_, err := c.Verify(raw)
		require.ErrorIs(t, err, ErrTokenInvalid, "input %q", raw)
	}
}

func TestCodec_WrongKeyInvalid(t *testing.T) {
	c := testCodec(t, nil)
	other, err := NewCodec(Config{
		Secret:     []byte("ffffffffffffffffffffffffffffffff"),
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
	})
	require.NoError(t, err)

	raw, _, err := c.IssueAccess(1, 0)
	require.NoError(t, err)

	_, err = other.Verify(raw)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestCodec_Expiry(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := &now
	c := testCodec(t, func() time.Time { return *clock })

	raw, _, err := c.IssueAccess(1, 0)
	require.NoError(t, err)

	// Inside TTL.
	_, err = c.Verify(raw)
	require.NoError(t, err)

	// Past expiry but inside the skew allowance.
	later := now.Add(15*time.Minute + time.Minute)
	clock = &later
	_, err = c.Verify(raw)
	require.NoError(t, err)

	// Past expiry and past the skew allowance.
	past := now.Add(15*time.Minute + 3*time.Minute)
	clock = &past
	_, err = c.Verify(raw)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestHashHex_Deterministic(t *testing.T) {
	h1 := HashHex("some-token")
	h2 := HashHex("some-token")
	require.Equal(t, h1, h2)
	require.Len(t, h1, 64)
	require.NotEqual(t, h1, HashHex("other-token"))
}

func TestSecureCompare(t *testing.T) {
	require.True(t, SecureCompare("abc", "abc"))
	require.False(t, SecureCompare("abc", "abd"))
	require.False(t, SecureCompare("abc", "abcd"))
}
