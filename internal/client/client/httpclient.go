package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/shiftdesk/internal/common"
)

const maxResponseBytes = 1 << 20

// HTTPClient talks to the server's JSON API.
type HTTPClient struct {
	baseURL string
	http    *http.Client
}

// NewHTTPClient returns a client for baseURL such as "http://127.0.0.1:8080".
// A nil hc uses a client with a 30 second overall timeout; per-call
// deadlines come from the context.
func NewHTTPClient(baseURL string, hc *http.Client) *HTTPClient {
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPClient{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
}

func (t tokenResponse) tokens() Tokens {
	out := Tokens{AccessToken: t.AccessToken, RefreshToken: t.RefreshToken}
	if t.ExpiresAt > 0 {
		out.ExpiresAt = time.Unix(t.ExpiresAt, 0)
	}
	return out
}

type sessionResponse struct {
	tokenResponse
	User User `json:"user"`
}

func (s sessionResponse) session() *Session {
	return &Session{Tokens: s.tokens(), User: s.User}
}

type successResponse struct {
	Success  bool `json:"success"`
	Degraded bool `json:"degraded"`
}

type pinLoginResponse struct {
	Success   bool   `json:"success"`
	TokenHash string `json:"token_hash"`
	Email     string `json:"email"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// call describes one request. unauthorized is the error a 401 maps to when
// the response is not about the bearer token itself.
type call struct {
	method       string
	path         string
	token        string
	in           any
	out          any
	unauthorized error
}

func (c *HTTPClient) Health(ctx context.Context) error {
	var out struct {
		Status string `json:"status"`
	}
	if err := c.do(ctx, call{method: http.MethodGet, path: "/healthz", out: &out}); err != nil {
		return err
	}
	if out.Status != "ok" {
		return ErrUnavailable
	}
	return nil
}

func (c *HTTPClient) Login(ctx context.Context, email, password string) (*Session, error) {
	var out sessionResponse
	err := c.do(ctx, call{
		method:       http.MethodPost,
		path:         "/api/auth/login",
		in:           map[string]string{"email": email, "password": password},
		out:          &out,
		unauthorized: common.ErrInvalidCredential,
	})
	if err != nil {
		return nil, err
	}
	return out.session(), nil
}

func (c *HTTPClient) Refresh(ctx context.Context, refreshToken string) (*Tokens, error) {
	var out tokenResponse
	err := c.do(ctx, call{
		method:       http.MethodPost,
		path:         "/api/auth/refresh",
		in:           map[string]string{"refresh_token": refreshToken},
		out:          &out,
		unauthorized: common.ErrSessionInvalid,
	})
	if err != nil {
		return nil, err
	}
	t := out.tokens()
	return &t, nil
}

// ActivateSession presents a stored token pair. Any 401 means the pair can
// no longer be used and is reported as common.ErrSessionInvalid.
func (c *HTTPClient) ActivateSession(ctx context.Context, accessToken, refreshToken string) (*Session, error) {
	var out sessionResponse
	err := c.do(ctx, call{
		method:       http.MethodPost,
		path:         "/api/auth/session",
		in:           map[string]string{"access_token": accessToken, "refresh_token": refreshToken},
		out:          &out,
		unauthorized: common.ErrSessionInvalid,
	})
	if err != nil {
		return nil, err
	}
	return out.session(), nil
}

func (c *HTTPClient) Logout(ctx context.Context, accessToken string) error {
	return c.do(ctx, call{method: http.MethodPost, path: "/api/auth/logout", token: accessToken})
}

func (c *HTTPClient) PinStatus(ctx context.Context, accessToken string) (*PinStatus, error) {
	var out PinStatus
	if err := c.do(ctx, call{method: http.MethodGet, path: "/api/auth/pin", token: accessToken, out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) SetPin(ctx context.Context, accessToken, pin string) (bool, error) {
	var out successResponse
	err := c.do(ctx, call{
		method: http.MethodPost,
		path:   "/api/auth/pin",
		token:  accessToken,
		in:     map[string]string{"pin": pin},
		out:    &out,
	})
	if err != nil {
		return false, err
	}
	return out.Degraded, nil
}

func (c *HTTPClient) ClearPin(ctx context.Context, accessToken string) error {
	return c.do(ctx, call{method: http.MethodDelete, path: "/api/auth/pin", token: accessToken})
}

func (c *HTTPClient) VerifyPin(ctx context.Context, email, pin string) (*PinLogin, error) {
	var out pinLoginResponse
	err := c.do(ctx, call{
		method:       http.MethodPost,
		path:         "/api/auth/pin-login",
		in:           map[string]string{"email": email, "pin": pin},
		out:          &out,
		unauthorized: common.ErrInvalidCredential,
	})
	if err != nil {
		return nil, err
	}
	return &PinLogin{TokenHash: out.TokenHash, Email: out.Email}, nil
}

func (c *HTTPClient) VerifyPassword(ctx context.Context, accessToken, password string) error {
	return c.do(ctx, call{
		method:       http.MethodPost,
		path:         "/api/auth/verify-password",
		token:        accessToken,
		in:           map[string]string{"password": password},
		unauthorized: common.ErrInvalidCredential,
	})
}

func (c *HTTPClient) ActiveUsers(ctx context.Context, accessToken string) ([]User, error) {
	var out struct {
		Users []User `json:"users"`
	}
	if err := c.do(ctx, call{method: http.MethodGet, path: "/api/users/active", token: accessToken, out: &out}); err != nil {
		return nil, err
	}
	return out.Users, nil
}

func (c *HTTPClient) UsersByPresence(ctx context.Context, accessToken string) ([]User, []User, error) {
	var out struct {
		Online  []User `json:"online"`
		Offline []User `json:"offline"`
	}
	if err := c.do(ctx, call{method: http.MethodGet, path: "/api/users", token: accessToken, out: &out}); err != nil {
		return nil, nil, err
	}
	return out.Online, out.Offline, nil
}

func (c *HTTPClient) SetPresence(ctx context.Context, accessToken string, online bool) error {
	return c.do(ctx, call{
		method: http.MethodPut,
		path:   "/api/users/me/presence",
		token:  accessToken,
		in:     map[string]bool{"online": online},
	})
}

func (c *HTTPClient) do(ctx context.Context, cl call) error {
	var body io.Reader
	if cl.in != nil {
		data, err := json.Marshal(cl.in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, c.baseURL+cl.path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cl.token != "" {
		req.Header.Set("Authorization", "Bearer "+cl.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return c.mapTransportError(ctx, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return c.mapTransportError(ctx, err)
	}

	if resp.StatusCode >= 300 {
		var e errorResponse
		_ = json.Unmarshal(data, &e)
		return mapStatus(resp.StatusCode, e.Error, cl)
	}

	if cl.out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, cl.out); err != nil {
		return fmt.Errorf("decode %s response: %w", cl.path, err)
	}
	return nil
}

func (c *HTTPClient) mapTransportError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", common.ErrTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

// mapStatus turns an error response back into the shared taxonomy.
func mapStatus(status int, msg string, cl call) error {
	var sentinel error

	switch status {
	case http.StatusBadRequest:
		sentinel = common.ErrInvalidFormat
		if msg == "PIN not configured" || strings.Contains(msg, common.ErrPinNotSet.Error()) {
			sentinel = common.ErrPinNotSet
		}
	case http.StatusUnauthorized:
		sentinel = unauthorizedError(msg, cl)
	case http.StatusNotFound:
		sentinel = common.ErrorNotFound
	case http.StatusTooManyRequests:
		sentinel = common.ErrRateLimited
	case http.StatusServiceUnavailable:
		sentinel = common.ErrHasherUnavailable
		if !strings.Contains(msg, common.ErrHasherUnavailable.Error()) {
			sentinel = ErrUnavailable
		}
	default:
		sentinel = ErrUnavailable
	}

	if msg == "" {
		return fmt.Errorf("%w: status %d", sentinel, status)
	}
	return fmt.Errorf("%w: %s", sentinel, msg)
}

func unauthorizedError(msg string, cl call) error {
	if cl.token != "" {
		switch msg {
		case common.ErrTokenExpired.Error():
			return common.ErrTokenExpired
		case common.ErrInvalidToken.Error(), "missing bearer token":
			return common.ErrUnauthenticated
		}
		if cl.unauthorized != nil {
			return cl.unauthorized
		}
		return common.ErrUnauthenticated
	}
	if cl.unauthorized != nil {
		return cl.unauthorized
	}
	return ErrUnauthorized
}
