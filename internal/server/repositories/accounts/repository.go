// Package accounts declares the server-side repository contract for
// account records: lookup, PIN state and presence.
package accounts

import (
	"context"

	"github.com/dmitrijs2005/shiftdesk/internal/server/models"
)

// Repository defines persistence operations on accounts. Lookups return
// common.ErrorNotFound for missing rows; updates of a missing account do too.
type Repository interface {
	Create(ctx context.Context, account *models.Account) (*models.Account, error)
	GetByID(ctx context.Context, id string) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)

	// SetPin stores pin and enables quick switch in a single statement.
	SetPin(ctx context.Context, id string, pin models.PinSecret) error
	// ClearPin disables quick switch and removes the PIN in a single statement.
	ClearPin(ctx context.Context, id string) error

	SetOnline(ctx context.Context, id string, online bool) error
	ListActive(ctx context.Context, limit int) ([]models.UserSummary, error)
	ListByPresence(ctx context.Context) ([]models.UserSummary, error)
}
