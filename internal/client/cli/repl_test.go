package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/dmitrijs2005/shiftdesk/internal/client/client"
	"github.com/dmitrijs2005/shiftdesk/internal/client/switcher"
	"github.com/dmitrijs2005/shiftdesk/internal/common"
	"github.com/stretchr/testify/assert"
)

type fakeCommands struct {
	calls []string
	err   error
}

func (f *fakeCommands) record(call string) error {
	f.calls = append(f.calls, call)
	return f.err
}

func (f *fakeCommands) Login(context.Context) error       { return f.record("login") }
func (f *fakeCommands) Accounts(context.Context) error    { return f.record("accounts") }
func (f *fakeCommands) ExitSession(context.Context) error { return f.record("exit-session") }
func (f *fakeCommands) Logout(context.Context) error      { return f.record("logout") }
func (f *fakeCommands) VerifyPassword(context.Context) error {
	return f.record("verify-password")
}
func (f *fakeCommands) Switch(_ context.Context, args []string) error {
	return f.record(fmt.Sprint("switch", args))
}
func (f *fakeCommands) Users(_ context.Context, args []string) error {
	return f.record(fmt.Sprint("users", args))
}
func (f *fakeCommands) Pin(_ context.Context, args []string) error {
	return f.record(fmt.Sprint("pin", args))
}

func staticStatus(context.Context) string { return "(test)" }

func TestRunREPL_Dispatch(t *testing.T) {
	f := &fakeCommands{}
	var out bytes.Buffer

	script := "\nlogin\naccounts\nls\nswitch 2\nsw a@x.com\nexit-session\npin set\nverify-password\nusers\nusers active\nlogout\nhelp\nbogus\nquit\nlogin\n"
	runREPL(context.Background(), f, staticStatus, rdr(script), &out)

	assert.Equal(t, []string{
		"login", "accounts", "accounts", "switch[2]", "switch[a@x.com]", "exit-session",
		"pin[set]", "verify-password", "users[]", "users[active]", "logout",
	}, f.calls, "nothing after quit is executed")
	assert.Contains(t, out.String(), "sd (test)> ")
	assert.Contains(t, out.String(), "Available commands:")
	assert.Contains(t, out.String(), "Unknown command: bogus")
	assert.Contains(t, out.String(), "Bye!")
}

func TestRunREPL_StopsAtEOF(t *testing.T) {
	f := &fakeCommands{}
	var out bytes.Buffer

	runREPL(context.Background(), f, staticStatus, rdr("accounts"), &out)

	assert.Equal(t, []string{"accounts"}, f.calls)
}

func TestRunREPL_ReportsErrorsAndContinues(t *testing.T) {
	f := &fakeCommands{err: common.ErrNoStoredSession}
	var out bytes.Buffer

	runREPL(context.Background(), f, staticStatus, rdr("switch 1\naccounts\n"), &out)

	assert.Len(t, f.calls, 2)
	assert.Contains(t, out.String(), "error: that account is not signed in on this device")
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{usage("switch <n|email>"), "usage: switch <n|email>"},
		{switcher.ErrBusy, "another switch is still running"},
		{common.ErrSessionExpired, "the stored session has ended, please sign in again"},
		{fmt.Errorf("%w: revoked", common.ErrSessionInvalid), "the stored session has ended, please sign in again"},
		{common.ErrInvalidFormat, "PIN must be 4-6 digits"},
		{common.ErrPinNotSet, "quick switch is not enabled for that account"},
		{common.ErrorNotFound, "account not found"},
		{common.ErrInvalidCredential, "invalid credentials"},
		{common.ErrRateLimited, "too many attempts, try again later"},
		{common.ErrHasherUnavailable, "the server cannot store PINs right now"},
		{common.ErrTimeout, "the server did not answer in time"},
		{common.ErrUnauthenticated, "you are not signed in"},
		{client.ErrUnavailable, "the server is unavailable"},
		{errors.New("disk full"), "disk full"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, describe(tt.err))
		})
	}
}
