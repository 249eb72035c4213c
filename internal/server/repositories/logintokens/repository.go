// Package logintokens stores one-time login artifacts ("magic tokens")
// minted after a successful PIN verification.
package logintokens

import (
	"context"

	"github.com/dmitrijs2005/shiftdesk/internal/server/models"
)

// Repository persists login tokens by digest.
type Repository interface {
	Create(ctx context.Context, token *models.LoginToken) error

	// Consume removes the token and returns it. A token can be consumed once;
	// the second call returns common.ErrorNotFound.
	Consume(ctx context.Context, digest string) (*models.LoginToken, error)
}
