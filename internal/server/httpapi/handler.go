// Package httpapi serves the REST surface of the ShiftDesk server: primary
// sign-in, session activation, quick-switch PIN management and presence.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/dmitrijs2005/shiftdesk/internal/common"
	"github.com/dmitrijs2005/shiftdesk/internal/logging"
	"github.com/dmitrijs2005/shiftdesk/internal/server/models"
	"github.com/dmitrijs2005/shiftdesk/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const maxBodyBytes = 1 << 16

// IdentityProvider is the subset of *services.IdentityService used here.
type IdentityProvider interface {
	Login(ctx context.Context, email, password string) (*services.AuthResult, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	ActivateSession(ctx context.Context, accessToken, refreshToken string) (*services.AuthResult, error)
	RedeemLoginToken(ctx context.Context, token string) (*services.AuthResult, error)
	SignOut(ctx context.Context, userID string) error
	VerifyPassword(ctx context.Context, accountID, password string) error
}

// PinManager is the subset of *services.PinService used here.
type PinManager interface {
	GetStatus(ctx context.Context, accountID string) (*services.PinStatus, error)
	SetPin(ctx context.Context, accountID, pin string) (*services.PinStatus, error)
	ClearPin(ctx context.Context, accountID string) error
	VerifyPin(ctx context.Context, email, pin string) (*services.PinLogin, error)
}

// PresenceManager is the subset of *services.PresenceService used here.
type PresenceManager interface {
	SetOnline(ctx context.Context, accountID string, online bool) error
	ListActive(ctx context.Context) ([]models.UserSummary, error)
	ListByPresence(ctx context.Context) (online, offline []models.UserSummary, err error)
}

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	identity IdentityProvider
	pins     PinManager
	presence PresenceManager
	logger   logging.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(identity IdentityProvider, pins PinManager, presence PresenceManager, logger logging.Logger) *Handler {
	return &Handler{identity: identity, pins: pins, presence: presence, logger: logger}
}

// NewRouter registers all routes and wraps them with request id, logging
// and recovery middleware.
func NewRouter(h *Handler, jwtSecret []byte, logger logging.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoveryMiddleware(logger))

	r.Get("/healthz", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", h.Login)
		r.Post("/auth/refresh", h.Refresh)
		r.Post("/auth/session", h.ActivateSession)
		r.Post("/auth/magic", h.RedeemMagic)
		r.Post("/auth/pin-login", h.PinLogin)

		r.Group(func(r chi.Router) {
			r.Use(bearerAuth(jwtSecret))

			r.Post("/auth/logout", h.Logout)
			r.Get("/auth/pin", h.PinStatus)
			r.Post("/auth/pin", h.SetPin)
			r.Delete("/auth/pin", h.ClearPin)
			r.Post("/auth/verify-password", h.VerifyPassword)

			r.Get("/users/active", h.ListActive)
			r.Get("/users", h.ListUsers)
			r.Put("/users/me/presence", h.SetPresence)
		})
	})

	return r
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Login signs an account in with email and password.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.identity.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(w, r, "login failed", err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(res))
}

// Refresh rotates a refresh token.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !h.decode(w, r, &req) {
		return
	}

	pair, err := h.identity.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		h.fail(w, r, "refresh failed", err)
		return
	}
	writeJSON(w, http.StatusOK, toTokenResponse(*pair))
}

// ActivateSession revives a stored token pair.
func (h *Handler) ActivateSession(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.identity.ActivateSession(r.Context(), req.AccessToken, req.RefreshToken)
	if err != nil {
		h.fail(w, r, "session activation failed", err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(res))
}

// RedeemMagic exchanges a one-time login token for a session.
func (h *Handler) RedeemMagic(w http.ResponseWriter, r *http.Request) {
	var req magicRequest
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.identity.RedeemLoginToken(r.Context(), req.TokenHash)
	if err != nil {
		h.fail(w, r, "login token redemption failed", err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(res))
}

// Logout revokes the caller's refresh tokens and marks it offline.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.identity.SignOut(r.Context(), UserIDFromContext(r.Context())); err != nil {
		h.fail(w, r, "sign out failed", err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

// PinStatus reports whether quick switch is enabled for the caller.
func (h *Handler) PinStatus(w http.ResponseWriter, r *http.Request) {
	st, err := h.pins.GetStatus(r.Context(), UserIDFromContext(r.Context()))
	if err != nil {
		h.fail(w, r, "pin status failed", err)
		return
	}
	writeJSON(w, http.StatusOK, PinStatusResponse{QuickSwitchEnabled: st.QuickSwitchEnabled, Degraded: st.Degraded})
}

// SetPin sets or rotates the caller's PIN.
func (h *Handler) SetPin(w http.ResponseWriter, r *http.Request) {
	var req setPinRequest
	if !h.decode(w, r, &req) {
		return
	}

	st, err := h.pins.SetPin(r.Context(), UserIDFromContext(r.Context()), req.Pin)
	if err != nil {
		if errors.Is(err, common.ErrInvalidFormat) {
			writeError(w, http.StatusBadRequest, "PIN must be 4-6 digits")
			return
		}
		h.fail(w, r, "set pin failed", err)
		return
	}
	writeJSON(w, http.StatusOK, SetPinResponse{Success: true, Degraded: st.Degraded})
}

// ClearPin disables quick switch for the caller.
func (h *Handler) ClearPin(w http.ResponseWriter, r *http.Request) {
	if err := h.pins.ClearPin(r.Context(), UserIDFromContext(r.Context())); err != nil {
		h.fail(w, r, "clear pin failed", err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

// PinLogin verifies an email and PIN and returns a one-time login token.
func (h *Handler) PinLogin(w http.ResponseWriter, r *http.Request) {
	var req pinLoginRequest
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.pins.VerifyPin(r.Context(), req.Email, req.Pin)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrorNotFound):
			writeError(w, http.StatusNotFound, "user not found")
		case errors.Is(err, common.ErrPinNotSet):
			writeError(w, http.StatusBadRequest, "PIN not configured")
		case errors.Is(err, common.ErrInvalidCredential):
			writeError(w, http.StatusUnauthorized, "invalid PIN")
		default:
			h.fail(w, r, "pin verification failed", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, PinLoginResponse{Success: true, TokenHash: res.TokenHash, Email: res.Email})
}

// VerifyPassword re-checks the caller's password.
func (h *Handler) VerifyPassword(w http.ResponseWriter, r *http.Request) {
	var req verifyPasswordRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.identity.VerifyPassword(r.Context(), UserIDFromContext(r.Context()), req.Password); err != nil {
		if errors.Is(err, common.ErrInvalidCredential) {
			writeError(w, http.StatusUnauthorized, "invalid password")
			return
		}
		h.fail(w, r, "password verification failed", err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

// ListActive lists accounts for the account chooser.
func (h *Handler) ListActive(w http.ResponseWriter, r *http.Request) {
	users, err := h.presence.ListActive(r.Context())
	if err != nil {
		h.fail(w, r, "list active users failed", err)
		return
	}
	writeJSON(w, http.StatusOK, ActiveUsersResponse{Users: toUserResponses(users)})
}

// ListUsers lists accounts split by presence.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	online, offline, err := h.presence.ListByPresence(r.Context())
	if err != nil {
		h.fail(w, r, "list users failed", err)
		return
	}
	writeJSON(w, http.StatusOK, UsersByPresenceResponse{Online: toUserResponses(online), Offline: toUserResponses(offline)})
}

// SetPresence updates the caller's online flag.
func (h *Handler) SetPresence(w http.ResponseWriter, r *http.Request) {
	var req presenceRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Online == nil {
		writeError(w, http.StatusBadRequest, "online is required")
		return
	}

	if err := h.presence.SetOnline(r.Context(), UserIDFromContext(r.Context()), *req.Online); err != nil {
		h.fail(w, r, "presence update failed", err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// fail writes the mapped status. Server-side failures are logged and their
// details are not sent to the client.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(r.Context(), msg, "error", err)
		if status == http.StatusInternalServerError {
			writeError(w, status, "internal server error")
			return
		}
	}
	writeError(w, status, err.Error())
}
