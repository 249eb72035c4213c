package client

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/shiftdesk/internal/client/migrations"
	"github.com/dmitrijs2005/shiftdesk/internal/filex"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// RunMigrations applies the embedded client migrations. It uses a goose
// provider rather than the package-level goose state, so it is safe to call
// for several databases at once.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, migrations.Migrations)
	if err != nil {
		return fmt.Errorf("goose provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// InitDatabase opens the SQLite database at dsn and brings its schema up to
// date. The pool is limited to one connection: SQLite allows a single writer,
// and an in-memory database only exists on the connection that created it.
func InitDatabase(ctx context.Context, dsn string) (*sql.DB, error) {
	if err := filex.EnsureParentDir(dsn); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
