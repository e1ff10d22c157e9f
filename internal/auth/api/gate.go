package authapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/potato-club/ripple-server/internal/auth/token"
)

// Principal is the authenticated identity attached to the request context.
type Principal struct {
	UserID  int64
	Version int64
}

type gateCtxKey int

const (
	principalKey gateCtxKey = iota
	gateErrorKey
)

// Gate is the per-request authentication filter. It extracts the bearer
// access token, verifies it, and attaches either a Principal or a typed
// failure to the request context. It never writes the HTTP response itself;
// Require renders the stored outcome for protected routes.
type Gate struct {
	codec *token.Codec
	skip  map[string]struct{}
}

// NewGate builds a Gate that leaves the listed paths unauthenticated
// (typically the login and refresh routes plus health endpoints).
func NewGate(codec *token.Codec, skipPaths ...string) *Gate {
	skip := make(map[string]struct{}, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = struct{}{}
	}
	return &Gate{codec: codec, skip: skip}
}

// Wrap annotates every request with the authentication outcome.
// Preflight requests and skip-listed paths pass through untouched.
func (g *Gate) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		if _, ok := g.skip[r.URL.Path]; ok {
			next.ServeHTTP(w, r)
			return
		}

		ctx := g.authenticate(r)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (g *Gate) authenticate(r *http.Request) context.Context {
	ctx := r.Context()

	raw := bearerToken(r)
	if raw == "" {
		return context.WithValue(ctx, gateErrorKey, codeTokenMissing)
	}

	claims, err := g.codec.Verify(raw)
	if err != nil {
		code, _ := classify(err)
		return context.WithValue(ctx, gateErrorKey, code)
	}
	if claims.TokenType != token.TypeAccess {
		return context.WithValue(ctx, gateErrorKey, codeTokenTypeInvalid)
	}

	return context.WithValue(ctx, principalKey, Principal{
		UserID:  claims.UserID,
		Version: claims.Version,
	})
}

// Require renders the gate outcome: 401 with the stored code when the
// request is unauthenticated, otherwise the wrapped handler runs.
func Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := PrincipalFrom(r.Context()); ok {
			next.ServeHTTP(w, r)
			return
		}

		code := codeTokenMissing
		if c, ok := r.Context().Value(gateErrorKey).(errCode); ok {
			code = c
		}
		writeError(w, http.StatusUnauthorized, code, "authentication required")
	})
}

// PrincipalFrom returns the authenticated principal, if any.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}

func bearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw == "" {
		return ""
	}
	parts := strings.SplitN(raw, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
