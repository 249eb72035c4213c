package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/shiftdesk/internal/common"
	"github.com/dmitrijs2005/shiftdesk/internal/server/config"
	"github.com/dmitrijs2005/shiftdesk/internal/server/models"
	"github.com/dmitrijs2005/shiftdesk/internal/server/repositories/repomanager"
)

// PresenceService owns the online flag of accounts.
type PresenceService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	activeLimit int
}

func NewPresenceService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *PresenceService {
	limit := cfg.ActiveUsersLimit
	if limit <= 0 {
		limit = 12
	}
	return &PresenceService{db: db, repomanager: m, activeLimit: limit}
}

// SetOnline updates the presence flag of the authenticated account.
func (s *PresenceService) SetOnline(ctx context.Context, accountID string, online bool) error {
	if accountID == "" {
		return common.ErrUnauthenticated
	}
	if err := s.repomanager.Accounts(s.db).SetOnline(ctx, accountID, online); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrUnauthenticated
		}
		return fmt.Errorf("error updating presence: %w", err)
	}
	return nil
}

// ListActive returns up to the configured number of accounts ordered by name.
func (s *PresenceService) ListActive(ctx context.Context) ([]models.UserSummary, error) {
	users, err := s.repomanager.Accounts(s.db).ListActive(ctx, s.activeLimit)
	if err != nil {
		return nil, fmt.Errorf("error listing users: %w", err)
	}
	return users, nil
}

// ListByPresence splits every account into online and offline groups,
// each ordered by name.
func (s *PresenceService) ListByPresence(ctx context.Context) (online, offline []models.UserSummary, err error) {
	users, err := s.repomanager.Accounts(s.db).ListByPresence(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("error listing users: %w", err)
	}
	online = []models.UserSummary{}
	offline = []models.UserSummary{}
	for _, u := range users {
		if u.IsOnline {
			online = append(online, u)
		} else {
			offline = append(offline, u)
		}
	}
	return online, offline, nil
}
