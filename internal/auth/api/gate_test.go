package authapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/potato-club/ripple-server/internal/auth/token"
)

func gateCodec(t *testing.T, now func() time.Time) *token.Codec {
	t.Helper()
	opts := []token.Option{}
	if now != nil {
		opts = append(opts, token.WithClock(now))
	}
	c, err := token.NewCodec(token.Config{
		Secret:     []byte("0123456789abcdef0123456789abcdef"),
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 24 * time.Hour,
		ClockSkew:  2 * time.Minute,
	}, opts...)
	require.NoError(t, err)
	return c
}

func decodeAPIError(t *testing.T, rec *httptest.ResponseRecorder) apiError {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp.Error
}

func TestGate_ValidToken(t *testing.T) {
	codec := gateCodec(t, nil)
	access, _, err := codec.IssueAccess(42, 3)
	require.NoError(t, err)

	gate := NewGate(codec)
	var got Principal
	h := gate.Wrap(Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = PrincipalFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	})))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, Principal{UserID: 42, Version: 3}, got)
}

func TestGate_Failures(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := base
	codec := gateCodec(t, func() time.Time { return now })

	access, _, err := codec.IssueAccess(42, 0)
	require.NoError(t, err)
	refresh, _, _, err := codec.IssueRefresh(42, 0, "phone")
	require.NoError(t, err)

	gate := NewGate(codec)
	h := gate.Wrap(Require(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	cases := []struct {
		name   string
		header string
		at     time.Time
		code   int
	}{
		{name: "missing", header: "", at: base, code: 40101},
		{name: "not bearer", header: "Basic abc", at: base, code: 40101},
		{name: "garbage", header: "Bearer garbage", at: base, code: 40102},
		{name: "refresh token", header: "Bearer " + refresh, at: base, code: 40104},
		{name: "expired", header: "Bearer " + access, at: base.Add(time.Hour), code: 40103},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			now = tc.at
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			require.Equal(t, http.StatusUnauthorized, rec.Code)
			require.Equal(t, tc.code, decodeAPIError(t, rec).Code)
		})
	}
}

func TestGate_SkipPaths(t *testing.T) {
	codec := gateCodec(t, nil)
	gate := NewGate(codec, "/auth/login")

	h := gate.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := PrincipalFrom(r.Context()); ok {
			t.Error("unexpected principal on skip path")
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	// Preflight requests pass through everywhere.
	req = httptest.NewRequest(http.MethodOptions, "/me", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}
