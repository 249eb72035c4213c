// Package hasher implements the credential hasher used for quick-switch PINs.
//
// The primary implementation delegates to the database function hash_pin,
// which wraps pgcrypto's bcrypt. When that function is missing the hasher
// reports common.ErrHasherUnavailable so the caller can degrade explicitly.
package hasher

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/shiftdesk/internal/common"
	"github.com/dmitrijs2005/shiftdesk/internal/dbx"
	"github.com/dmitrijs2005/shiftdesk/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"
)

// pgUndefinedFunction is SQLSTATE 42883.
const pgUndefinedFunction = "42883"

// Hasher produces one-way hashes of PINs.
type Hasher interface {
	Hash(ctx context.Context, pin string) (string, error)
}

// PostgresHasher calls hash_pin($1) in the database.
type PostgresHasher struct {
	db dbx.DBTX
}

func NewPostgresHasher(db dbx.DBTX) *PostgresHasher {
	return &PostgresHasher{db: db}
}

func (h *PostgresHasher) Hash(ctx context.Context, pin string) (string, error) {
	var hash string
	err := h.db.QueryRowContext(ctx, `SELECT hash_pin($1)`, pin).Scan(&hash)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUndefinedFunction {
			return "", common.ErrHasherUnavailable
		}
		return "", fmt.Errorf("db error: %w", err)
	}
	if hash == "" {
		return "", common.ErrHasherUnavailable
	}
	return hash, nil
}

// New returns the hasher named by kind: "postgres" (hash_pin in the
// database) or "bcrypt" (in process, default cost).
func New(kind string, db dbx.DBTX) (Hasher, error) {
	switch kind {
	case "", "postgres":
		return NewPostgresHasher(db), nil
	case "bcrypt":
		return NewBcryptHasher(bcrypt.DefaultCost), nil
	default:
		return nil, fmt.Errorf("unknown pin hasher %q", kind)
	}
}

// BcryptHasher hashes in process. It is used when the database is not the
// hashing authority, e.g. a Postgres without pgcrypto.
type BcryptHasher struct {
	cost int
}

func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Hash(_ context.Context, pin string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pin), h.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Compare reports whether pin matches the stored secret. Hashes from
// pgcrypto's crypt(.., gen_salt('bf')) are bcrypt-compatible.
func Compare(secret models.PinSecret, pin string) bool {
	switch secret.Kind() {
	case models.PinHashed:
		return bcrypt.CompareHashAndPassword([]byte(secret.Value()), []byte(pin)) == nil
	case models.PinPlaintextFallback:
		return subtle.ConstantTimeCompare([]byte(secret.Value()), []byte(pin)) == 1
	default:
		return false
	}
}

// dummyHash is compared against when there is no account, so a miss costs
// about as much as a wrong PIN.
var dummyHash = mustDummyHash()

func mustDummyHash() []byte {
	b, err := bcrypt.GenerateFromPassword([]byte("000000"), bcrypt.DefaultCost)
	if err != nil {
		panic(err)
	}
	return b
}

// CompareDummy burns one bcrypt comparison and always reports false.
func CompareDummy(pin string) bool {
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(pin))
	return false
}
