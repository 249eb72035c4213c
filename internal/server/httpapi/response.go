package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/shiftdesk/internal/common"
	"github.com/dmitrijs2005/shiftdesk/internal/server/models"
	"github.com/dmitrijs2005/shiftdesk/internal/server/services"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrInvalidFormat), errors.Is(err, common.ErrPinNotSet):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrUnauthenticated),
		errors.Is(err, common.ErrInvalidCredential),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrRefreshTokenExpired),
		errors.Is(err, common.ErrSessionInvalid):
		return http.StatusUnauthorized
	case errors.Is(err, common.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, common.ErrHasherUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

type successResponse struct {
	Success bool `json:"success"`
}

// UserResponse is the JSON representation of an account.
type UserResponse struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
	IsOnline bool   `json:"is_online"`
}

// TokenResponse carries a token pair. ExpiresAt is the access token expiry
// in Unix seconds.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
}

// SessionResponse is returned by every flow that signs an account in.
type SessionResponse struct {
	TokenResponse
	User UserResponse `json:"user"`
}

// PinStatusResponse is the body of GET /api/auth/pin.
type PinStatusResponse struct {
	QuickSwitchEnabled bool `json:"quickSwitchEnabled"`
	Degraded           bool `json:"degraded"`
}

// SetPinResponse is the body of a successful POST /api/auth/pin.
type SetPinResponse struct {
	Success  bool `json:"success"`
	Degraded bool `json:"degraded"`
}

// PinLoginResponse is the body of a successful PIN verification.
type PinLoginResponse struct {
	Success   bool   `json:"success"`
	TokenHash string `json:"token_hash"`
	Email     string `json:"email"`
}

// ActiveUsersResponse is the body of GET /api/users/active.
type ActiveUsersResponse struct {
	Users []UserResponse `json:"users"`
}

// UsersByPresenceResponse is the body of GET /api/users.
type UsersByPresenceResponse struct {
	Online  []UserResponse `json:"online"`
	Offline []UserResponse `json:"offline"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type sessionRequest struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type magicRequest struct {
	TokenHash string `json:"token_hash"`
}

type setPinRequest struct {
	Pin string `json:"pin"`
}

type pinLoginRequest struct {
	Email string `json:"email"`
	Pin   string `json:"pin"`
}

type verifyPasswordRequest struct {
	Password string `json:"password"`
}

type presenceRequest struct {
	Online *bool `json:"online"`
}

func toUserResponse(u models.UserSummary) UserResponse {
	return UserResponse{ID: u.ID, Email: u.Email, FullName: u.FullName, Role: u.Role, IsOnline: u.IsOnline}
}

func toUserResponses(users []models.UserSummary) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	return out
}

func toTokenResponse(p services.TokenPair) TokenResponse {
	return TokenResponse{AccessToken: p.AccessToken, RefreshToken: p.RefreshToken, ExpiresAt: p.ExpiresAt.Unix()}
}

func toSessionResponse(r *services.AuthResult) SessionResponse {
	return SessionResponse{TokenResponse: toTokenResponse(r.Tokens), User: toUserResponse(r.Account.Summary())}
}
