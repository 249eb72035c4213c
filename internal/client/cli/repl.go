package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/shiftdesk/internal/client/client"
	"github.com/dmitrijs2005/shiftdesk/internal/client/switcher"
	"github.com/dmitrijs2005/shiftdesk/internal/common"
)

const helpText = `Available commands:
  login                 sign in with email and password
  accounts              list stored accounts
  switch <n|email>      quick-switch to a stored account with its PIN
  exit-session          go offline and return to the account chooser
  logout                sign out of every account on this device
  pin status|set|clear  manage your quick-switch PIN
  verify-password       re-check your password
  users [active]        list staff by presence, or active accounts
  help                  show this text
  quit                  leave (marks you offline)`

// commands is the surface the REPL dispatches to. *App satisfies it; tests
// provide a recording stub.
type commands interface {
	Login(ctx context.Context) error
	Accounts(ctx context.Context) error
	Switch(ctx context.Context, args []string) error
	ExitSession(ctx context.Context) error
	Logout(ctx context.Context) error
	Pin(ctx context.Context, args []string) error
	VerifyPassword(ctx context.Context) error
	Users(ctx context.Context, args []string) error
}

// runREPL reads commands from reader until EOF, "quit" or "exit". Handler
// errors are reported to w and never end the loop.
func runREPL(ctx context.Context, a commands, statusFn func(ctx context.Context) string, reader *bufio.Reader, w io.Writer) {
	for {
		fmt.Fprintf(w, "sd %s> ", statusFn(ctx))

		line, err := readLine(reader)
		if err != nil {
			fmt.Fprintln(w)
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help", "?":
			fmt.Fprintln(w, helpText)
		case "login":
			err = a.Login(ctx)
		case "accounts", "ls":
			err = a.Accounts(ctx)
		case "switch", "sw":
			err = a.Switch(ctx, args)
		case "exit-session":
			err = a.ExitSession(ctx)
		case "logout":
			err = a.Logout(ctx)
		case "pin":
			err = a.Pin(ctx, args)
		case "verify-password":
			err = a.VerifyPassword(ctx)
		case "users":
			err = a.Users(ctx, args)
		case "quit", "exit":
			fmt.Fprintln(w, "Bye!")
			return
		default:
			fmt.Fprintln(w, "Unknown command:", cmd, "(type 'help')")
		}

		if err != nil {
			fmt.Fprintln(w, "error:", describe(err))
		}
	}
}

// describe turns a failure into a message for the person at the keyboard.
func describe(err error) string {
	switch {
	case errors.Is(err, errUsage):
		return err.Error()
	case errors.Is(err, switcher.ErrBusy):
		return "another switch is still running"
	case errors.Is(err, common.ErrNoStoredSession):
		return "that account is not signed in on this device, use 'login'"
	case errors.Is(err, common.ErrSessionExpired), errors.Is(err, common.ErrSessionInvalid):
		return "the stored session has ended, please sign in again"
	case errors.Is(err, common.ErrInvalidFormat):
		return "PIN must be 4-6 digits"
	case errors.Is(err, common.ErrPinNotSet):
		return "quick switch is not enabled for that account"
	case errors.Is(err, common.ErrorNotFound):
		return "account not found"
	case errors.Is(err, common.ErrInvalidCredential):
		return "invalid credentials"
	case errors.Is(err, common.ErrRateLimited):
		return "too many attempts, try again later"
	case errors.Is(err, common.ErrHasherUnavailable):
		return "the server cannot store PINs right now"
	case errors.Is(err, common.ErrTimeout):
		return "the server did not answer in time"
	case errors.Is(err, common.ErrUnauthenticated), errors.Is(err, common.ErrTokenExpired):
		return "you are not signed in"
	case errors.Is(err, client.ErrUnavailable):
		return "the server is unavailable"
	default:
		return err.Error()
	}
}
