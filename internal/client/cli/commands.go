package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/shiftdesk/internal/client/client"
	"github.com/dmitrijs2005/shiftdesk/internal/client/sessionstore"
)

var errUsage = errors.New("usage")

func usage(text string) error {
	return fmt.Errorf("%w: %s", errUsage, text)
}

func (a *App) Login(ctx context.Context) error {
	email, err := GetSimpleText(a.reader, "Email", a.out)
	if err != nil {
		return err
	}
	password, err := a.readSecret("Password: ")
	if err != nil {
		return err
	}

	sess, err := a.switcher.Login(ctx, email, password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Signed in as %s\n", sess.Label())
	return nil
}

// Accounts prints the valid stored sessions, numbered for 'switch'.
func (a *App) Accounts(ctx context.Context) error {
	sessions, err := a.sessions.ListValid(ctx, a.now())
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Fprintln(a.out, "No accounts on this device. Use 'login' to add one.")
		return nil
	}

	active, err := a.sessions.Active(ctx)
	if err != nil {
		return err
	}

	for i, s := range sessions {
		marker := " "
		if s.AccountID == active {
			marker = "*"
		}
		fmt.Fprintf(a.out, "%s %d) %s\n", marker, i+1, s.Label())
	}

	if ok, err := a.sessions.CanQuickSwitch(ctx, a.now()); err == nil && ok {
		fmt.Fprintln(a.out, "Use 'switch <n|email>' to change account.")
	}
	return nil
}

func (a *App) Switch(ctx context.Context, args []string) error {
	if len(args) == 0 {
		others, err := a.sessions.Others(ctx, a.now())
		if err != nil {
			return err
		}
		for _, o := range others {
			fmt.Fprintf(a.out, "  %s\n", o.Label())
		}
	}
	if len(args) != 1 {
		return usage("switch <n|email>")
	}

	target, err := a.resolve(ctx, args[0])
	if err != nil {
		return err
	}

	pin, err := a.readSecret(fmt.Sprintf("PIN for %s: ", target.Email))
	if err != nil {
		return err
	}

	sess, err := a.switcher.Switch(ctx, target.AccountID, pin)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Switched to %s\n", sess.Label())
	return nil
}

// resolve maps a 1-based index from 'accounts' or an email onto a stored
// session.
func (a *App) resolve(ctx context.Context, ref string) (sessionstore.StoredSession, error) {
	if n, err := strconv.Atoi(ref); err == nil {
		sessions, err := a.sessions.ListValid(ctx, a.now())
		if err != nil {
			return sessionstore.StoredSession{}, err
		}
		if n < 1 || n > len(sessions) {
			return sessionstore.StoredSession{}, usage(fmt.Sprintf("no account number %d, see 'accounts'", n))
		}
		return sessions[n-1], nil
	}
	return a.sessions.FindByEmail(ctx, ref)
}

func (a *App) ExitSession(ctx context.Context) error {
	if err := a.switcher.ExitSession(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Session exited.")
	return a.Accounts(ctx)
}

func (a *App) Logout(ctx context.Context) error {
	if err := a.switcher.SignOut(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Signed out. All accounts were removed from this device.")
	return nil
}

func (a *App) Pin(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("pin status|set|clear")
	}

	switch args[0] {
	case "status":
		var st *client.PinStatus
		err := a.switcher.WithActiveToken(ctx, func(ctx context.Context, token string) error {
			var err error
			st, err = a.api.PinStatus(ctx, token)
			return err
		})
		if err != nil {
			return err
		}
		if st.QuickSwitchEnabled {
			fmt.Fprintln(a.out, "Quick switch: enabled")
		} else {
			fmt.Fprintln(a.out, "Quick switch: disabled")
		}
		if st.Degraded {
			fmt.Fprintln(a.out, "Warning: the PIN is stored without hashing. Set it again once the server is healthy.")
		}
		return nil

	case "set":
		pin, err := a.readSecret("New PIN (4-6 digits): ")
		if err != nil {
			return err
		}
		confirm, err := a.readSecret("Repeat PIN: ")
		if err != nil {
			return err
		}
		if pin != confirm {
			return usage("PINs do not match")
		}

		var degraded bool
		err = a.switcher.WithActiveToken(ctx, func(ctx context.Context, token string) error {
			var err error
			degraded, err = a.api.SetPin(ctx, token, pin)
			return err
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(a.out, "PIN saved. Quick switch is enabled.")
		if degraded {
			fmt.Fprintln(a.out, "Warning: the PIN is stored without hashing. Set it again once the server is healthy.")
		}
		return nil

	case "clear":
		err := a.switcher.WithActiveToken(ctx, func(ctx context.Context, token string) error {
			return a.api.ClearPin(ctx, token)
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(a.out, "PIN removed. Quick switch is disabled.")
		return nil

	default:
		return usage("pin status|set|clear")
	}
}

func (a *App) VerifyPassword(ctx context.Context) error {
	password, err := a.readSecret("Password: ")
	if err != nil {
		return err
	}
	err = a.switcher.WithActiveToken(ctx, func(ctx context.Context, token string) error {
		return a.api.VerifyPassword(ctx, token, password)
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Password confirmed.")
	return nil
}

// Users lists staff split by presence, or with "active" only the accounts
// that are not deactivated.
func (a *App) Users(ctx context.Context, args []string) error {
	printUsers := func(title string, users []client.User) {
		fmt.Fprintf(a.out, "%s (%d)\n", title, len(users))
		for _, u := range users {
			fmt.Fprintf(a.out, "  %-24s %-28s %s\n", u.FullName, u.Email, strings.ToLower(u.Role))
		}
	}

	switch {
	case len(args) == 0:
		var online, offline []client.User
		err := a.switcher.WithActiveToken(ctx, func(ctx context.Context, token string) error {
			var err error
			online, offline, err = a.api.UsersByPresence(ctx, token)
			return err
		})
		if err != nil {
			return err
		}
		printUsers("Online", online)
		printUsers("Offline", offline)
		return nil

	case len(args) == 1 && args[0] == "active":
		var active []client.User
		err := a.switcher.WithActiveToken(ctx, func(ctx context.Context, token string) error {
			var err error
			active, err = a.api.ActiveUsers(ctx, token)
			return err
		})
		if err != nil {
			return err
		}
		printUsers("Active", active)
		return nil

	default:
		return usage("users [active]")
	}
}
