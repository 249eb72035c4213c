package logintokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/shiftdesk/internal/common"
	"github.com/dmitrijs2005/shiftdesk/internal/dbx"
	"github.com/dmitrijs2005/shiftdesk/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, token *models.LoginToken) error {
	query := `
		INSERT INTO login_tokens (digest, user_id, expires_at)
		VALUES ($1, $2, $3)
	`
	if _, err := r.db.ExecContext(ctx, query, token.Digest, token.UserID, token.Expires); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Consume(ctx context.Context, digest string) (*models.LoginToken, error) {
	query := `
		DELETE FROM login_tokens
		WHERE digest = $1
		RETURNING user_id, expires_at
	`
	token := &models.LoginToken{Digest: digest}
	if err := r.db.QueryRowContext(ctx, query, digest).Scan(&token.UserID, &token.Expires); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return token, nil
}
