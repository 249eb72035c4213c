package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/shiftdesk/internal/common"
	"github.com/dmitrijs2005/shiftdesk/internal/dbx"
	"github.com/dmitrijs2005/shiftdesk/internal/server/models"
)

const accountColumns = `id, email, full_name, role, password_hash,
		        quick_switch_enabled, quick_switch_pin, pin_degraded, is_online, created_at`

// PostgresRepository implements Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	query :=
		`INSERT INTO accounts (id, email, full_name, role, password_hash)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at`

	err := r.db.QueryRowContext(ctx, query,
		account.ID, account.Email, account.FullName, account.Role, account.PasswordHash).Scan(&account.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return account, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return r.getOne(ctx, query, id)
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE lower(email) = lower($1)`
	return r.getOne(ctx, query, email)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*models.Account, error) {
	var (
		a        models.Account
		pin      sql.NullString
		degraded bool
	)

	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&a.ID, &a.Email, &a.FullName, &a.Role, &a.PasswordHash,
		&a.QuickSwitchEnabled, &pin, &degraded, &a.IsOnline, &a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if pin.Valid {
		a.Pin = models.PinFromColumns(&pin.String, degraded)
	}
	return &a, nil
}

func (r *PostgresRepository) SetPin(ctx context.Context, id string, pin models.PinSecret) error {
	if !pin.IsSet() {
		return fmt.Errorf("db error: empty pin for account %s", id)
	}

	query :=
		`UPDATE accounts
		 SET quick_switch_enabled = TRUE, quick_switch_pin = $2, pin_degraded = $3
		 WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id, pin.Value(), pin.Degraded())
	return affectedOne(res, err)
}

func (r *PostgresRepository) ClearPin(ctx context.Context, id string) error {
	query :=
		`UPDATE accounts
		 SET quick_switch_enabled = FALSE, quick_switch_pin = NULL, pin_degraded = FALSE
		 WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id)
	return affectedOne(res, err)
}

func (r *PostgresRepository) SetOnline(ctx context.Context, id string, online bool) error {
	query := `UPDATE accounts SET is_online = $2 WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id, online)
	return affectedOne(res, err)
}

func (r *PostgresRepository) ListActive(ctx context.Context, limit int) ([]models.UserSummary, error) {
	query :=
		`SELECT id, email, full_name, role, is_online FROM accounts
		 ORDER BY full_name, email
		 LIMIT $1`

	return r.list(ctx, query, limit)
}

func (r *PostgresRepository) ListByPresence(ctx context.Context) ([]models.UserSummary, error) {
	query :=
		`SELECT id, email, full_name, role, is_online FROM accounts
		 ORDER BY is_online DESC, full_name ASC`

	return r.list(ctx, query)
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]models.UserSummary, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	users := make([]models.UserSummary, 0)
	for rows.Next() {
		var u models.UserSummary
		if err := rows.Scan(&u.ID, &u.Email, &u.FullName, &u.Role, &u.IsOnline); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return users, nil
}

func affectedOne(res sql.Result, err error) error {
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
