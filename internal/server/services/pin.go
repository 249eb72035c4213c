package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	"github.com/dmitrijs2005/shiftdesk/internal/common"
	"github.com/dmitrijs2005/shiftdesk/internal/logging"
	"github.com/dmitrijs2005/shiftdesk/internal/server/config"
	"github.com/dmitrijs2005/shiftdesk/internal/server/hasher"
	"github.com/dmitrijs2005/shiftdesk/internal/server/models"
	"github.com/dmitrijs2005/shiftdesk/internal/server/repositories/repomanager"
)

var pinFormat = regexp.MustCompile(`^\d{4,6}$`)

// ValidPin reports whether pin is 4 to 6 ASCII digits.
func ValidPin(pin string) bool {
	return pinFormat.MatchString(pin)
}

// AttemptLimiter bounds failed PIN verifications per email.
// *ratelimit.PinLimiter implements it.
type AttemptLimiter interface {
	Check(ctx context.Context, email string) error
	Fail(ctx context.Context, email string) error
	Reset(ctx context.Context, email string) error
}

// LoginTokenMinter mints one-time login tokens. *IdentityService implements it.
type LoginTokenMinter interface {
	MintLoginToken(ctx context.Context, userID string) (string, error)
}

// PinStatus is the quick-switch state of an account.
type PinStatus struct {
	QuickSwitchEnabled bool
	Degraded           bool
}

// PinLogin is returned by a successful verification.
type PinLogin struct {
	TokenHash string
	Email     string
}

// PinService manages quick-switch PINs.
type PinService struct {
	db                *sql.DB
	repomanager       repomanager.RepositoryManager
	hasher            hasher.Hasher
	limiter           AttemptLimiter
	minter            LoginTokenMinter
	logger            logging.Logger
	uniformErrors     bool
	allowPlaintextPin bool
}

// NewPinService wires a PinService. limiter may be nil, which disables
// attempt limiting.
func NewPinService(db *sql.DB, m repomanager.RepositoryManager, h hasher.Hasher, limiter AttemptLimiter,
	minter LoginTokenMinter, cfg *config.Config, logger logging.Logger) *PinService {
	return &PinService{
		db:                db,
		repomanager:       m,
		hasher:            h,
		limiter:           limiter,
		minter:            minter,
		logger:            logger,
		uniformErrors:     cfg.UniformPinErrors,
		allowPlaintextPin: cfg.AllowPlaintextPin,
	}
}

// GetStatus reports the quick-switch state of the authenticated account.
func (s *PinService) GetStatus(ctx context.Context, accountID string) (*PinStatus, error) {
	account, err := s.caller(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return &PinStatus{
		QuickSwitchEnabled: account.QuickSwitchEnabled,
		Degraded:           account.Pin.Degraded(),
	}, nil
}

// SetPin stores pin for the authenticated account and enables quick switch.
// The returned status tells whether the PIN had to be stored as a
// plaintext fallback.
func (s *PinService) SetPin(ctx context.Context, accountID, pin string) (*PinStatus, error) {
	if accountID == "" {
		return nil, common.ErrUnauthenticated
	}
	if !ValidPin(pin) {
		return nil, common.ErrInvalidFormat
	}

	secret, err := s.hashPin(ctx, accountID, pin)
	if err != nil {
		return nil, err
	}

	if err := s.repomanager.Accounts(s.db).SetPin(ctx, accountID, secret); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrUnauthenticated
		}
		return nil, fmt.Errorf("error storing pin: %w", err)
	}

	s.logger.Info(ctx, "pin updated", "account_id", accountID, "pin_kind", secret.Kind().String())
	return &PinStatus{QuickSwitchEnabled: true, Degraded: secret.Degraded()}, nil
}

// ClearPin disables quick switch and removes the PIN.
func (s *PinService) ClearPin(ctx context.Context, accountID string) error {
	if accountID == "" {
		return common.ErrUnauthenticated
	}
	if err := s.repomanager.Accounts(s.db).ClearPin(ctx, accountID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrUnauthenticated
		}
		return fmt.Errorf("error clearing pin: %w", err)
	}
	s.logger.Info(ctx, "pin cleared", "account_id", accountID)
	return nil
}

// VerifyPin checks pin for the account registered under email and, on a
// match, mints a one-time login token.
//
// Errors are common.ErrInvalidFormat, common.ErrorNotFound,
// common.ErrPinNotSet, common.ErrInvalidCredential and
// common.ErrRateLimited. With uniform errors enabled the second and third
// collapse into common.ErrInvalidCredential.
func (s *PinService) VerifyPin(ctx context.Context, email, pin string) (*PinLogin, error) {
	if email == "" || !ValidPin(pin) {
		return nil, common.ErrInvalidFormat
	}

	if err := s.checkLimit(ctx, email); err != nil {
		return nil, err
	}

	account, err := s.repomanager.Accounts(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.recordFailure(ctx, email)
			if s.uniformErrors {
				hasher.CompareDummy(pin)
				return nil, common.ErrInvalidCredential
			}
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error searching account: %w", err)
	}

	if !account.QuickSwitchEnabled || !account.Pin.IsSet() {
		s.recordFailure(ctx, email)
		if s.uniformErrors {
			hasher.CompareDummy(pin)
			return nil, common.ErrInvalidCredential
		}
		return nil, common.ErrPinNotSet
	}

	if !hasher.Compare(account.Pin, pin) {
		s.recordFailure(ctx, email)
		return nil, common.ErrInvalidCredential
	}

	if s.limiter != nil {
		if err := s.limiter.Reset(ctx, email); err != nil {
			s.logger.Warn(ctx, "pin attempt counter reset failed", "error", err)
		}
	}

	token, err := s.minter.MintLoginToken(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	return &PinLogin{TokenHash: token, Email: account.Email}, nil
}

func (s *PinService) caller(ctx context.Context, accountID string) (*models.Account, error) {
	if accountID == "" {
		return nil, common.ErrUnauthenticated
	}
	account, err := s.repomanager.Accounts(s.db).GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrUnauthenticated
		}
		return nil, fmt.Errorf("error searching account: %w", err)
	}
	return account, nil
}

func (s *PinService) hashPin(ctx context.Context, accountID, pin string) (models.PinSecret, error) {
	hash, err := s.hasher.Hash(ctx, pin)
	if err == nil {
		return models.HashedPin(hash), nil
	}
	if !errors.Is(err, common.ErrHasherUnavailable) {
		return models.PinSecret{}, fmt.Errorf("error hashing pin: %w", err)
	}
	if !s.allowPlaintextPin {
		s.logger.Error(ctx, "credential hasher unavailable, pin rejected", "account_id", accountID)
		return models.PinSecret{}, common.ErrHasherUnavailable
	}

	s.logger.Warn(ctx, "credential hasher unavailable, storing plaintext fallback pin",
		"account_id", accountID, "degraded", true)
	return models.PlaintextFallbackPin(pin), nil
}

// Limiter outages fail open; the failure is logged.
func (s *PinService) checkLimit(ctx context.Context, email string) error {
	if s.limiter == nil {
		return nil
	}
	err := s.limiter.Check(ctx, email)
	if err == nil || errors.Is(err, common.ErrRateLimited) {
		return err
	}
	s.logger.Warn(ctx, "pin attempt limiter unavailable", "error", err)
	return nil
}

func (s *PinService) recordFailure(ctx context.Context, email string) {
	if s.limiter == nil {
		return
	}
	if err := s.limiter.Fail(ctx, email); err != nil {
		s.logger.Warn(ctx, "pin attempt limiter unavailable", "error", err)
	}
}
