// Command provision creates a ShiftDesk account.
//
//	provision -d postgres://... -email ann@example.com -name "Ann Lee" -role lead
//
// The password is read from the terminal without echo.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/dmitrijs2005/shiftdesk/internal/flagx"
	"github.com/dmitrijs2005/shiftdesk/internal/logging"
	"github.com/dmitrijs2005/shiftdesk/internal/server/config"
	"github.com/dmitrijs2005/shiftdesk/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/shiftdesk/internal/server/services"
	"golang.org/x/term"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()

	var email, name, role string
	fs := flag.NewFlagSet("provision", flag.ContinueOnError)
	fs.StringVar(&email, "email", "", "account email")
	fs.StringVar(&name, "name", "", "display name")
	fs.StringVar(&role, "role", "staff", "account role")
	if err := fs.Parse(flagx.FilterArgs(os.Args[1:], []string{"-email", "-name", "-role"})); err != nil {
		log.Fatal(err)
	}
	if email == "" || name == "" {
		log.Fatal("-email and -name are required")
	}

	fmt.Fprint(os.Stderr, "Password: ")
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		log.Fatalf("read password: %v", err)
	}

	db, err := repomanager.OpenPostgres(ctx, cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}
	defer db.Close()

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		log.Fatalf("migration error: %v", err)
	}

	logger := logging.NewTextLogger(os.Stderr, slog.LevelWarn)
	identity := services.NewIdentityService(db, rm, cfg, logger)

	account, err := identity.Provision(ctx, email, name, role, string(password))
	if err != nil {
		log.Fatalf("provision: %v", err)
	}

	fmt.Printf("created account %s (%s)\n", account.ID, account.Email)
}
