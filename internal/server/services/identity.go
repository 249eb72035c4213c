// Package services contains server-side business logic. This file implements
// IdentityService, the identity provider consumed by the quick-switch flows:
// password sign-in, token refresh and rotation, session activation, one-time
// login tokens and sign out.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/shiftdesk/internal/common"
	"github.com/dmitrijs2005/shiftdesk/internal/cryptox"
	"github.com/dmitrijs2005/shiftdesk/internal/dbx"
	"github.com/dmitrijs2005/shiftdesk/internal/logging"
	"github.com/dmitrijs2005/shiftdesk/internal/server/auth"
	"github.com/dmitrijs2005/shiftdesk/internal/server/config"
	"github.com/dmitrijs2005/shiftdesk/internal/server/models"
	"github.com/dmitrijs2005/shiftdesk/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
// ExpiresAt is the access token expiry.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// AuthResult is what a successful sign-in or activation hands back.
type AuthResult struct {
	Account *models.Account
	Tokens  TokenPair
}

// IdentityService issues and validates credentials for accounts.
type IdentityService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	logger                       logging.Logger
	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
	loginTokenValidityDuration   time.Duration
	now                          func() time.Time
}

// NewIdentityService constructs an IdentityService using repositories and server config.
func NewIdentityService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, logger logging.Logger) *IdentityService {
	return &IdentityService{
		db:                           db,
		repomanager:                  m,
		logger:                       logger,
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
		loginTokenValidityDuration:   cfg.LoginTokenValidityDuration,
		now:                          time.Now,
	}
}

// Provision creates an account with an argon2id password hash.
func (s *IdentityService) Provision(ctx context.Context, email, fullName, role, password string) (*models.Account, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, common.ErrInvalidFormat
	}
	account := &models.Account{
		ID:           uuid.NewString(),
		Email:        email,
		FullName:     fullName,
		Role:         role,
		PasswordHash: cryptox.HashPassword([]byte(password)),
	}
	a, err := s.repomanager.Accounts(s.db).Create(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("error creating account: %w", err)
	}
	return a, nil
}

// Login verifies email and password and returns a fresh token pair.
func (s *IdentityService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, common.ErrInvalidFormat
	}

	account, err := s.repomanager.Accounts(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidCredential
		}
		return nil, fmt.Errorf("error searching account: %w", err)
	}

	if err := s.checkPassword(ctx, account, password); err != nil {
		return nil, err
	}

	pair, err := s.generateTokenPair(ctx, account.ID, s.db)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Account: account, Tokens: *pair}, nil
}

// VerifyPassword re-checks the primary credential of an authenticated account.
func (s *IdentityService) VerifyPassword(ctx context.Context, accountID, password string) error {
	if accountID == "" {
		return common.ErrUnauthenticated
	}
	if password == "" {
		return common.ErrInvalidFormat
	}

	account, err := s.repomanager.Accounts(s.db).GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrUnauthenticated
		}
		return fmt.Errorf("error searching account: %w", err)
	}
	return s.checkPassword(ctx, account, password)
}

// RefreshToken validates a refresh token, rotates it transactionally, and
// returns a fresh TokenPair. Expired tokens yield ErrRefreshTokenExpired.
func (s *IdentityService) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	_, pair, err := s.rotate(ctx, refreshToken)
	return pair, err
}

// ActivateSession turns a stored token pair back into a live session.
// A valid access token is accepted as is; an expired one is replaced by
// rotating the refresh token. Unknown, revoked or mismatched tokens yield
// common.ErrSessionInvalid.
func (s *IdentityService) ActivateSession(ctx context.Context, accessToken, refreshToken string) (*AuthResult, error) {
	if accessToken == "" || refreshToken == "" {
		return nil, common.ErrSessionInvalid
	}

	stored, err := s.repomanager.RefreshTokens(s.db).Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrSessionInvalid
		}
		return nil, fmt.Errorf("error searching refresh token: %w", err)
	}
	if stored.Expires.Before(s.now()) {
		return nil, common.ErrSessionInvalid
	}

	claims, err := auth.ParseToken(accessToken, s.jwtSecret)
	switch {
	case err == nil:
		if claims.UserID != stored.UserID {
			return nil, common.ErrSessionInvalid
		}
		account, err := s.loadAccount(ctx, claims.UserID)
		if err != nil {
			return nil, err
		}
		return &AuthResult{
			Account: account,
			Tokens:  TokenPair{AccessToken: accessToken, RefreshToken: refreshToken, ExpiresAt: claims.ExpiresAt.Time},
		}, nil

	case errors.Is(err, common.ErrTokenExpired):
		userID, pair, err := s.rotate(ctx, refreshToken)
		if err != nil {
			if errors.Is(err, common.ErrRefreshTokenExpired) || errors.Is(err, common.ErrInvalidToken) {
				return nil, common.ErrSessionInvalid
			}
			return nil, err
		}
		account, err := s.loadAccount(ctx, userID)
		if err != nil {
			return nil, err
		}
		return &AuthResult{Account: account, Tokens: *pair}, nil

	default:
		return nil, common.ErrSessionInvalid
	}
}

// MintLoginToken creates a one-time login token for userID and returns it
// in clear. Only its digest is persisted.
func (s *IdentityService) MintLoginToken(ctx context.Context, userID string) (string, error) {
	token, err := common.MakeRandHexString(32)
	if err != nil {
		return "", common.ErrorInternal
	}
	lt := &models.LoginToken{
		Digest:  cryptox.TokenDigest(token),
		UserID:  userID,
		Expires: s.now().Add(s.loginTokenValidityDuration),
	}
	if err := s.repomanager.LoginTokens(s.db).Create(ctx, lt); err != nil {
		return "", fmt.Errorf("error storing login token: %w", err)
	}
	return token, nil
}

// RedeemLoginToken consumes a one-time login token and signs its account in.
// The token is burned even when it turns out to be expired.
func (s *IdentityService) RedeemLoginToken(ctx context.Context, token string) (*AuthResult, error) {
	if token == "" {
		return nil, common.ErrInvalidToken
	}

	lt, err := s.repomanager.LoginTokens(s.db).Consume(ctx, cryptox.TokenDigest(token))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidToken
		}
		return nil, fmt.Errorf("error consuming login token: %w", err)
	}
	if lt.Expires.Before(s.now()) {
		return nil, common.ErrTokenExpired
	}

	account, err := s.repomanager.Accounts(s.db).GetByID(ctx, lt.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidToken
		}
		return nil, fmt.Errorf("error searching account: %w", err)
	}

	pair, err := s.generateTokenPair(ctx, account.ID, s.db)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Account: account, Tokens: *pair}, nil
}

// SignOut revokes every refresh token of userID and marks it offline.
func (s *IdentityService) SignOut(ctx context.Context, userID string) error {
	if userID == "" {
		return common.ErrUnauthenticated
	}
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.RefreshTokens(tx).DeleteByUser(ctx, userID); err != nil {
			return fmt.Errorf("error revoking refresh tokens: %w", err)
		}
		if err := s.repomanager.Accounts(tx).SetOnline(ctx, userID, false); err != nil && !errors.Is(err, common.ErrorNotFound) {
			return fmt.Errorf("error updating presence: %w", err)
		}
		return nil
	})
}

// --- helpers below ---

func (s *IdentityService) rotate(ctx context.Context, refreshToken string) (string, *TokenPair, error) {
	repo := s.repomanager.RefreshTokens(s.db)

	token, err := repo.Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", nil, common.ErrInvalidToken
		}
		return "", nil, fmt.Errorf("error searching refresh token: %w", err)
	}
	if token.Expires.Before(s.now()) {
		return "", nil, common.ErrRefreshTokenExpired
	}

	var pair *TokenPair
	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repoTx := s.repomanager.RefreshTokens(tx)
		if err := repoTx.Delete(ctx, refreshToken); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrInvalidToken
			}
			return fmt.Errorf("error deleting refresh token: %w", err)
		}
		var genErr error
		pair, genErr = s.generateTokenPair(ctx, token.UserID, tx)
		return genErr
	}); err != nil {
		return "", nil, err
	}
	return token.UserID, pair, nil
}

func (s *IdentityService) loadAccount(ctx context.Context, id string) (*models.Account, error) {
	account, err := s.repomanager.Accounts(s.db).GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrSessionInvalid
		}
		return nil, fmt.Errorf("error searching account: %w", err)
	}
	return account, nil
}

func (s *IdentityService) checkPassword(ctx context.Context, account *models.Account, password string) error {
	ok, err := cryptox.VerifyPassword([]byte(password), account.PasswordHash)
	if err != nil {
		s.logger.Error(ctx, "stored password hash is unreadable", "account_id", account.ID, "error", err)
		return common.ErrInvalidCredential
	}
	if !ok {
		return common.ErrInvalidCredential
	}
	return nil
}

func (s *IdentityService) generateAccessToken(userID string) (string, time.Time, error) {
	expires := s.now().Add(s.accessTokenValidityDuration)
	token, err := auth.GenerateToken(userID, s.jwtSecret, s.accessTokenValidityDuration)
	return token, expires, err
}

func (s *IdentityService) generateRefreshToken() (string, error) {
	return common.MakeRandHexString(32)
}

func (s *IdentityService) generateTokenPair(ctx context.Context, userID string, tx dbx.DBTX) (*TokenPair, error) {
	access, expires, err := s.generateAccessToken(userID)
	if err != nil {
		return nil, common.ErrorInternal
	}
	refresh, err := s.generateRefreshToken()
	if err != nil {
		return nil, common.ErrorInternal
	}
	refreshRepo := s.repomanager.RefreshTokens(tx)
	if err := refreshRepo.Create(ctx, userID, refresh, s.now().Add(s.refreshTokenValidityDuration)); err != nil {
		return nil, common.ErrorInternal
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresAt: expires}, nil
}
