// Package refreshtokens declares the server-side repository contract for
// managing refresh tokens in persistent storage.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/shiftdesk/internal/server/models"
)

// Repository defines operations for issuing, retrieving, and revoking refresh tokens.
type Repository interface {
	// Create stores a new refresh token for userID.
	Create(ctx context.Context, userID string, token string, expiresAt time.Time) error

	// Find looks up a refresh token by its opaque token string.
	// Implementations return common.ErrorNotFound when the token is absent.
	Find(ctx context.Context, token string) (*models.RefreshToken, error)

	// Delete removes a refresh token, returning common.ErrorNotFound if it
	// was already gone.
	Delete(ctx context.Context, token string) error

	// DeleteByUser revokes all refresh tokens of a user (sign out).
	DeleteByUser(ctx context.Context, userID string) error
}
