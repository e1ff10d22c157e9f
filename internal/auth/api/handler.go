// Package authapi exposes the session lifecycle over HTTP and provides the
// per-request authentication gate for protected routes.
package authapi

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/potato-club/ripple-server/internal/auth/session"
	"github.com/potato-club/ripple-server/internal/identity"
)

const defaultMaxBodyBytes = 1 << 20 // 1 MiB

// Handler wires HTTP auth endpoints to the session service and user
// directory.
type Handler struct {
	log      *slog.Logger
	sessions *session.Service
	users    identity.Directory
	metrics  *Metrics

	maxBodyBytes int64
}

// HandlerOption configures optional handler behavior.
type HandlerOption func(*Handler)

// WithMetrics attaches outcome counters.
func WithMetrics(m *Metrics) HandlerOption {
	return func(h *Handler) { h.metrics = m }
}

// WithMaxBodyBytes overrides the request body limit.
func WithMaxBodyBytes(n int64) HandlerOption {
	return func(h *Handler) {
		if n > 0 {
			h.maxBodyBytes = n
		}
	}
}

// NewHandler constructs an auth Handler.
func NewHandler(log *slog.Logger, sessions *session.Service, users identity.Directory, opts ...HandlerOption) (*Handler, error) {
	if sessions == nil {
		return nil, errors.New("auth: nil session service")
	}
	if users == nil {
		return nil, errors.New("auth: nil user directory")
	}
	if log == nil {
		log = slog.Default()
	}

	h := &Handler{
		log:          log,
		sessions:     sessions,
		users:        users,
		maxBodyBytes: defaultMaxBodyBytes,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h, nil
}

// Register wires auth routes onto the provided mux. Protected routes are
// wrapped with Require so the gate outcome is rendered before they run.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("/auth/login", h.handleLogin)
	mux.HandleFunc("/auth/refresh", h.handleRefresh)
	mux.HandleFunc("/auth/logout", h.handleLogout)
	mux.HandleFunc("/auth/logout-all", h.handleLogoutAll)
	mux.Handle("/auth/devices", Require(http.HandlerFunc(h.handleDevices)))
	mux.Handle("/auth/devices/revoke", Require(http.HandlerFunc(h.handleRevokeDevice)))
	mux.Handle("/me", Require(http.HandlerFunc(h.handleMe)))
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, h.maxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidJSON, "invalid request body")
		return
	}

	identifier := strings.TrimSpace(req.Identifier)
	deviceID := strings.TrimSpace(req.DeviceID)
	if identifier == "" || req.Password == "" || deviceID == "" {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "identifier, password and device_id are required")
		return
	}

	pair, err := h.sessions.Login(r.Context(), identifier, req.Password, deviceID)
	if err != nil {
		code, known := classify(err)
		if !known {
			h.log.Error("auth.login.fail", "err", err)
			h.metrics.login("error")
			writeError(w, http.StatusServiceUnavailable, code, "please retry later")
			return
		}
		h.metrics.login("denied")
		writeError(w, http.StatusUnauthorized, code, "invalid credentials")
		return
	}

	h.metrics.login("ok")
	writeJSON(w, http.StatusOK, toTokenPairResponse(pair))
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req refreshRequest
	if err := decodeJSON(w, r, h.maxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidJSON, "invalid request body")
		return
	}

	refreshToken := strings.TrimSpace(req.RefreshToken)
	deviceID := strings.TrimSpace(req.DeviceID)
	if refreshToken == "" || deviceID == "" {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "refresh_token and device_id are required")
		return
	}

	pair, err := h.sessions.Refresh(r.Context(), refreshToken, deviceID)
	if err != nil {
		code, known := classify(err)
		if !known {
			h.log.Error("auth.refresh.fail", "err", err)
			h.metrics.refresh("error")
			writeError(w, http.StatusServiceUnavailable, code, "please retry later")
			return
		}
		if code == codeRefreshReused {
			h.metrics.reuseDetected()
		}
		h.metrics.refresh("denied")
		writeError(w, http.StatusUnauthorized, code, "refresh rejected")
		return
	}

	h.metrics.refresh("ok")
	writeJSON(w, http.StatusOK, toTokenPairResponse(pair))
}

// handleLogout always answers 204: an idempotent logout with a garbage token
// must not fail loudly or leak token state.
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	deviceID := strings.TrimSpace(r.Header.Get("X-Device-ID"))
	if r.ContentLength != 0 {
		var req logoutRequest
		if err := decodeJSON(w, r, h.maxBodyBytes, &req); err == nil && strings.TrimSpace(req.DeviceID) != "" {
			deviceID = strings.TrimSpace(req.DeviceID)
		}
	}

	if err := h.sessions.Logout(r.Context(), bearerToken(r), deviceID); err != nil {
		h.log.Error("auth.logout.fail", "err", err)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleLogoutAll(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if err := h.sessions.LogoutAll(r.Context(), bearerToken(r)); err != nil {
		h.log.Error("auth.logout_all.fail", "err", err)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDevices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	p, _ := PrincipalFrom(r.Context())
	devices, err := h.sessions.Devices(r.Context(), p.UserID)
	if err != nil {
		h.log.Error("auth.devices.fail", "err", err)
		writeError(w, http.StatusServiceUnavailable, codeServerBusy, "please retry later")
		return
	}
	if devices == nil {
		devices = []string{}
	}
	writeJSON(w, http.StatusOK, devicesResponse{Devices: devices})
}

func (h *Handler) handleRevokeDevice(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req revokeDeviceRequest
	if err := decodeJSON(w, r, h.maxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidJSON, "invalid request body")
		return
	}
	deviceID := strings.TrimSpace(req.DeviceID)
	if deviceID == "" {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "device_id is required")
		return
	}

	p, _ := PrincipalFrom(r.Context())
	if err := h.sessions.RevokeDevice(r.Context(), p.UserID, deviceID); err != nil {
		h.log.Error("auth.devices.revoke.fail", "err", err)
		writeError(w, http.StatusServiceUnavailable, codeServerBusy, "please retry later")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	p, _ := PrincipalFrom(r.Context())
	u, err := h.users.GetByID(r.Context(), p.UserID)
	if err != nil {
		if identity.IsNotFound(err) {
			writeError(w, http.StatusUnauthorized, codeInvalidCredentials, "user not found")
			return
		}
		h.log.Error("auth.me.fail", "err", err)
		writeError(w, http.StatusServiceUnavailable, codeServerBusy, "please retry later")
		return
	}

	writeJSON(w, http.StatusOK, meResponse{User: userResponse{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
	}})
}

func toTokenPairResponse(p session.TokenPair) tokenPairResponse {
	return tokenPairResponse{
		AccessToken:      p.AccessToken,
		AccessExpiresAt:  p.AccessExpiresAt,
		RefreshToken:     p.RefreshToken,
		RefreshExpiresAt: p.RefreshExpiresAt,
	}
}
