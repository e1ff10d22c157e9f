package authapi

import (
	"errors"

	"github.com/potato-club/ripple-server/internal/auth/session"
	"github.com/potato-club/ripple-server/internal/auth/token"
)

// errCode is a stable machine-readable failure code. Clients switch on the
// number; the reason slug is for humans reading logs and payloads.
type errCode int

const (
	codeInvalidRequest errCode = 40001
	codeInvalidJSON    errCode = 40002

	codeTokenMissing       errCode = 40101
	codeTokenInvalid       errCode = 40102
	codeTokenExpired       errCode = 40103
	codeTokenTypeInvalid   errCode = 40104
	codeDeviceMismatch     errCode = 40105
	codeRefreshNotFound    errCode = 40106
	codeRefreshMismatch    errCode = 40107
	codeRefreshReused      errCode = 40108
	codeSessionInvalidated errCode = 40109
	codeInvalidCredentials errCode = 40110
	codeUserInactive       errCode = 40111

	codeServerBusy  errCode = 50301
	codeServerError errCode = 50001
)

func (c errCode) reason() string {
	switch c {
	case codeInvalidRequest:
		return "invalid_request"
	case codeInvalidJSON:
		return "invalid_json"
	case codeTokenMissing:
		return "token_missing"
	case codeTokenInvalid:
		return "token_invalid"
	case codeTokenExpired:
		return "token_expired"
	case codeTokenTypeInvalid:
		return "token_type_invalid"
	case codeDeviceMismatch:
		return "device_mismatch"
	case codeRefreshNotFound:
		return "refresh_not_found"
	case codeRefreshMismatch:
		return "refresh_mismatch"
	case codeRefreshReused:
		return "refresh_reused"
	case codeSessionInvalidated:
		return "session_invalidated"
	case codeInvalidCredentials:
		return "invalid_credentials"
	case codeUserInactive:
		return "user_inactive"
	case codeServerBusy:
		return "server_busy"
	default:
		return "server_error"
	}
}

// classify maps a service error to its code. The boolean reports whether the
// error is a recognized auth failure; anything else is infrastructure.
func classify(err error) (errCode, bool) {
	switch {
	case errors.Is(err, token.ErrTokenExpired):
		return codeTokenExpired, true
	case errors.Is(err, token.ErrTokenInvalid):
		return codeTokenInvalid, true
	case errors.Is(err, session.ErrTokenTypeInvalid):
		return codeTokenTypeInvalid, true
	case errors.Is(err, session.ErrDeviceMismatch):
		return codeDeviceMismatch, true
	case errors.Is(err, session.ErrRefreshNotFound):
		return codeRefreshNotFound, true
	case errors.Is(err, session.ErrRefreshMismatch):
		return codeRefreshMismatch, true
	case errors.Is(err, session.ErrRefreshReused):
		return codeRefreshReused, true
	case errors.Is(err, session.ErrSessionInvalidated):
		return codeSessionInvalidated, true
	case errors.Is(err, session.ErrInvalidCredentials):
		return codeInvalidCredentials, true
	case errors.Is(err, session.ErrUserInactive):
		return codeUserInactive, true
	default:
		return codeServerBusy, false
	}
}
