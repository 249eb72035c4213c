// Package switcher moves a device between signed-in accounts.
//
// A quick switch checks that the target has a stored session, verifies the
// target's PIN with the server, activates the stored token pair, flips both
// accounts' presence and finally moves the active pointer. Primary sign-in,
// exit session and full sign-out go through the same guard, so only one of
// them runs at a time.
package switcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/shiftdesk/internal/client/client"
	"github.com/dmitrijs2005/shiftdesk/internal/client/sessionstore"
	"github.com/dmitrijs2005/shiftdesk/internal/common"
	"github.com/dmitrijs2005/shiftdesk/internal/logging"
)

// ErrBusy is returned when an operation is attempted while another one is
// still in flight.
var ErrBusy = errors.New("switch already in progress")

// SessionStore is the slice of sessionstore.Store the switcher needs.
type SessionStore interface {
	Get(ctx context.Context, accountID string) (sessionstore.StoredSession, error)
	UpsertActive(ctx context.Context, s sessionstore.StoredSession) error
	ReplaceTokens(ctx context.Context, s sessionstore.StoredSession) error
	Evict(ctx context.Context, accountID string) error
	ClearAll(ctx context.Context) error
	Active(ctx context.Context) (string, error)
	ClearActive(ctx context.Context) error
}

// Provider is the slice of client.API the switcher needs.
type Provider interface {
	Login(ctx context.Context, email, password string) (*client.Session, error)
	VerifyPin(ctx context.Context, email, pin string) (*client.PinLogin, error)
	ActivateSession(ctx context.Context, accessToken, refreshToken string) (*client.Session, error)
	Refresh(ctx context.Context, refreshToken string) (*client.Tokens, error)
	Logout(ctx context.Context, accessToken string) error
	SetPresence(ctx context.Context, accessToken string, online bool) error
}

type Option func(*Switcher)

// WithObserver registers a callback for state changes.
func WithObserver(o Observer) Option {
	return func(s *Switcher) { s.observer = o }
}

// WithStepTimeout bounds every network step. The default is 10 seconds.
func WithStepTimeout(d time.Duration) Option {
	return func(s *Switcher) {
		if d > 0 {
			s.stepTimeout = d
		}
	}
}

type Switcher struct {
	store       SessionStore
	provider    Provider
	logger      logging.Logger
	stepTimeout time.Duration
	observer    Observer
	now         func() time.Time

	busy  atomic.Bool
	mu    sync.Mutex
	state State
}

func New(store SessionStore, provider Provider, logger logging.Logger, opts ...Option) *Switcher {
	if logger == nil {
		logger = logging.NopLogger{}
	}
	s := &Switcher{
		store:       store,
		provider:    provider,
		logger:      logger,
		stepTimeout: 10 * time.Second,
		now:         time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// State returns the current phase.
func (s *Switcher) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Switcher) setState(st State, err error) {
	s.mu.Lock()
	s.state = st
	obs := s.observer
	s.mu.Unlock()

	if obs != nil {
		obs(st, err)
	}
}

// begin claims the guard. The returned func must be called with the
// operation's final error; it routes the machine back to Idle.
func (s *Switcher) begin() (func(err error), error) {
	if !s.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	return func(err error) {
		if err != nil {
			s.setState(Failed, err)
		}
		s.setState(Idle, nil)
		s.busy.Store(false)
	}, nil
}

// step runs one network call under the step timeout. A call cut short by
// that timeout reports common.ErrTimeout.
func (s *Switcher) step(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	stepCtx, cancel := context.WithTimeout(ctx, s.stepTimeout)
	defer cancel()

	err := fn(stepCtx)
	if err == nil {
		return nil
	}
	if errors.Is(err, common.ErrTimeout) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(stepCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", common.ErrTimeout, name)
	}
	return err
}

// Switch moves the device to targetID after verifying pin.
//
// The stored session is looked up before anything else; without one the
// switch fails with common.ErrNoStoredSession and the server is never
// asked. An expired session is evicted and reported as
// common.ErrSessionExpired; one the server rejects is evicted and reported
// as common.ErrSessionInvalid. Failing to mark the outgoing account offline
// does not fail the switch.
func (s *Switcher) Switch(ctx context.Context, targetID, pin string) (result *sessionstore.StoredSession, err error) {
	done, err := s.begin()
	if err != nil {
		return nil, err
	}
	defer func() { done(err) }()

	target, err := s.store.Get(ctx, targetID)
	if err != nil {
		return nil, err
	}

	s.setState(Verifying, nil)
	err = s.step(ctx, "verify pin", func(ctx context.Context) error {
		_, err := s.provider.VerifyPin(ctx, target.Email, pin)
		return err
	})
	if err != nil {
		return nil, err
	}

	// The table may have changed while the PIN was being checked.
	target, err = s.store.Get(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if target.Expired(s.now()) {
		if evictErr := s.store.Evict(ctx, targetID); evictErr != nil {
			s.logger.Error(ctx, "evict expired session failed", "account_id", targetID, "error", evictErr)
		}
		return nil, common.ErrSessionExpired
	}

	s.setState(Activating, nil)
	activated, err := s.activate(ctx, target)
	if err != nil {
		return nil, err
	}

	s.setState(Finalizing, nil)
	outgoing, err := s.store.Active(ctx)
	if err != nil {
		return nil, err
	}
	if outgoing != "" && outgoing != targetID {
		s.markOutgoingOffline(ctx, outgoing)
	}

	err = s.step(ctx, "presence online", func(ctx context.Context) error {
		return s.provider.SetPresence(ctx, activated.AccessToken, true)
	})
	if err != nil {
		return nil, err
	}

	if err := s.store.UpsertActive(ctx, activated); err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "switched account", "from", outgoing, "to", targetID)
	return &activated, nil
}

// activate presents the stored pair to the provider and returns the session
// as it should be stored afterwards, with rotated tokens if the provider
// issued new ones.
func (s *Switcher) activate(ctx context.Context, stored sessionstore.StoredSession) (sessionstore.StoredSession, error) {
	var sess *client.Session
	err := s.step(ctx, "activate session", func(ctx context.Context) error {
		var err error
		sess, err = s.provider.ActivateSession(ctx, stored.AccessToken, stored.RefreshToken)
		return err
	})
	if err != nil {
		if !isRejection(err) {
			return sessionstore.StoredSession{}, err
		}
		if evictErr := s.store.Evict(ctx, stored.AccountID); evictErr != nil {
			s.logger.Error(ctx, "evict rejected session failed", "account_id", stored.AccountID, "error", evictErr)
		}
		return sessionstore.StoredSession{}, fmt.Errorf("%w: %v", common.ErrSessionInvalid, err)
	}

	updated := stored
	updated.AccessToken = sess.AccessToken
	updated.RefreshToken = sess.RefreshToken
	if !sess.ExpiresAt.IsZero() {
		updated.ExpiresAt = sess.ExpiresAt.UnixMilli()
	}
	if sess.User.FullName != "" {
		updated.DisplayName = sess.User.FullName
	}
	return updated, nil
}

func isRejection(err error) bool {
	return errors.Is(err, common.ErrSessionInvalid) ||
		errors.Is(err, common.ErrInvalidToken) ||
		errors.Is(err, common.ErrUnauthenticated) ||
		errors.Is(err, common.ErrorNotFound)
}

func (s *Switcher) markOutgoingOffline(ctx context.Context, accountID string) {
	prev, err := s.store.Get(ctx, accountID)
	if err != nil {
		s.logger.Warn(ctx, "outgoing session missing, presence left as is", "account_id", accountID)
		return
	}
	err = s.step(ctx, "presence offline", func(ctx context.Context) error {
		return s.provider.SetPresence(ctx, prev.AccessToken, false)
	})
	if err != nil {
		s.logger.Warn(ctx, "could not mark outgoing account offline", "account_id", accountID, "error", err)
	}
}

// Login signs an account in with its password, stores the session, makes it
// active and marks it online. The previously active account, if any, is
// marked offline first.
func (s *Switcher) Login(ctx context.Context, email, password string) (result *sessionstore.StoredSession, err error) {
	done, err := s.begin()
	if err != nil {
		return nil, err
	}
	defer func() { done(err) }()

	s.setState(Verifying, nil)
	var sess *client.Session
	err = s.step(ctx, "login", func(ctx context.Context) error {
		var err error
		sess, err = s.provider.Login(ctx, email, password)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.setState(Finalizing, nil)
	outgoing, err := s.store.Active(ctx)
	if err != nil {
		return nil, err
	}
	if outgoing != "" && outgoing != sess.User.ID {
		s.markOutgoingOffline(ctx, outgoing)
	}

	stored := sessionstore.StoredSession{
		AccountID:    sess.User.ID,
		Email:        sess.User.Email,
		DisplayName:  sess.User.FullName,
		AccessToken:  sess.AccessToken,
		RefreshToken: sess.RefreshToken,
	}
	if !sess.ExpiresAt.IsZero() {
		stored.ExpiresAt = sess.ExpiresAt.UnixMilli()
	} else {
		stored.ExpiresAt = s.now().Add(common.DefaultSessionValidity).UnixMilli()
	}
	if err := s.store.UpsertActive(ctx, stored); err != nil {
		return nil, err
	}

	err = s.step(ctx, "presence online", func(ctx context.Context) error {
		return s.provider.SetPresence(ctx, stored.AccessToken, true)
	})
	if err != nil {
		s.logger.Warn(ctx, "could not mark account online", "account_id", stored.AccountID, "error", err)
	}

	return &stored, nil
}

// ExitSession marks the active account offline and clears the active
// pointer. Its stored session is kept, so it can be re-entered with a PIN.
func (s *Switcher) ExitSession(ctx context.Context) (err error) {
	done, err := s.begin()
	if err != nil {
		return err
	}
	defer func() { done(err) }()

	s.setState(Finalizing, nil)
	active, err := s.store.Active(ctx)
	if err != nil {
		return err
	}
	if active == "" {
		return common.ErrUnauthenticated
	}

	s.markOutgoingOffline(ctx, active)
	return s.store.ClearActive(ctx)
}

// SignOut marks the active account offline, invalidates its server session
// and purges every stored session together with the pointer. The local purge
// happens even when the server cannot be reached.
func (s *Switcher) SignOut(ctx context.Context) (err error) {
	done, err := s.begin()
	if err != nil {
		return err
	}
	defer func() { done(err) }()

	s.setState(Finalizing, nil)
	active, err := s.store.Active(ctx)
	if err != nil {
		s.logger.Warn(ctx, "active pointer unreadable, purging anyway", "error", err)
	}

	if active != "" {
		if sess, getErr := s.store.Get(ctx, active); getErr == nil {
			s.markOutgoingOffline(ctx, active)
			logoutErr := s.step(ctx, "logout", func(ctx context.Context) error {
				return s.provider.Logout(ctx, sess.AccessToken)
			})
			if logoutErr != nil {
				s.logger.Warn(ctx, "server sign out failed", "account_id", active, "error", logoutErr)
			}
		}
	}

	return s.store.ClearAll(ctx)
}

// GoOffline marks the active account offline without touching local state.
// It is used when the client exits.
func (s *Switcher) GoOffline(ctx context.Context) {
	active, err := s.store.Active(ctx)
	if err != nil || active == "" {
		return
	}
	s.markOutgoingOffline(ctx, active)
}

// ActiveSession returns the stored session of the active account, or
// common.ErrUnauthenticated when there is none.
func (s *Switcher) ActiveSession(ctx context.Context) (sessionstore.StoredSession, error) {
	active, err := s.store.Active(ctx)
	if err != nil {
		return sessionstore.StoredSession{}, err
	}
	if active == "" {
		return sessionstore.StoredSession{}, common.ErrUnauthenticated
	}
	sess, err := s.store.Get(ctx, active)
	if errors.Is(err, common.ErrNoStoredSession) {
		return sessionstore.StoredSession{}, common.ErrUnauthenticated
	}
	return sess, err
}

// WithActiveToken calls fn with the active account's access token. When fn
// reports common.ErrTokenExpired the refresh token is exchanged, the rotated
// pair is saved and fn is retried once.
func (s *Switcher) WithActiveToken(ctx context.Context, fn func(ctx context.Context, accessToken string) error) error {
	sess, err := s.ActiveSession(ctx)
	if err != nil {
		return err
	}

	err = s.step(ctx, "request", func(ctx context.Context) error { return fn(ctx, sess.AccessToken) })
	if !errors.Is(err, common.ErrTokenExpired) {
		return err
	}

	token, err := s.renew(ctx, sess)
	if err != nil {
		return err
	}
	return s.step(ctx, "request", func(ctx context.Context) error { return fn(ctx, token) })
}

// RefreshAccessToken renews the active account's session when expiredToken
// is its current access token. It satisfies client.TokenRefresher.
func (s *Switcher) RefreshAccessToken(ctx context.Context, expiredToken string) (string, error) {
	sess, err := s.ActiveSession(ctx)
	if err != nil {
		return "", err
	}
	if sess.AccessToken != expiredToken {
		// someone already renewed it
		return sess.AccessToken, nil
	}
	return s.renew(ctx, sess)
}

// renew exchanges the refresh token of sess for a new pair. It runs outside
// the switch guard, so it only rewrites the tokens of that one account and
// leaves the active pointer to whoever owns it now.
func (s *Switcher) renew(ctx context.Context, sess sessionstore.StoredSession) (string, error) {
	var tokens *client.Tokens
	err := s.step(ctx, "refresh session", func(ctx context.Context) error {
		var err error
		tokens, err = s.provider.Refresh(ctx, sess.RefreshToken)
		return err
	})
	if err != nil {
		if !isRejection(err) {
			return "", err
		}
		if evictErr := s.store.Evict(ctx, sess.AccountID); evictErr != nil {
			s.logger.Error(ctx, "evict rejected session failed", "account_id", sess.AccountID, "error", evictErr)
		}
		return "", fmt.Errorf("%w: %v", common.ErrSessionInvalid, err)
	}

	updated := sess
	updated.AccessToken = tokens.AccessToken
	updated.RefreshToken = tokens.RefreshToken
	if !tokens.ExpiresAt.IsZero() {
		updated.ExpiresAt = tokens.ExpiresAt.UnixMilli()
	} else {
		updated.ExpiresAt = s.now().Add(common.DefaultSessionValidity).UnixMilli()
	}

	err = s.store.ReplaceTokens(ctx, updated)
	if errors.Is(err, common.ErrNoStoredSession) {
		// signed out or evicted while the refresh was in flight
		return "", common.ErrUnauthenticated
	}
	if err != nil {
		return "", err
	}
	return updated.AccessToken, nil
}
