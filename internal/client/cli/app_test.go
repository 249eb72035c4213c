package cli

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/shiftdesk/internal/client/client"
	"github.com/dmitrijs2005/shiftdesk/internal/client/sessionstore"
	"github.com/dmitrijs2005/shiftdesk/internal/client/switcher"
	"github.com/dmitrijs2005/shiftdesk/internal/common"
	"github.com/dmitrijs2005/shiftdesk/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI is a tiny in-memory server: accounts by email, PINs by token.
type fakeAPI struct {
	mu       sync.Mutex
	accounts map[string]client.User
	password map[string]string
	pins     map[string]string
	presence map[string]bool
	logouts  int
	down     error
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		accounts: map[string]client.User{
			"ann@x.com": {ID: "u1", Email: "ann@x.com", FullName: "Ann", Role: "Nurse"},
			"bob@x.com": {ID: "u2", Email: "bob@x.com", FullName: "Bob", Role: "Doctor"},
		},
		password: map[string]string{"ann@x.com": "pw-ann", "bob@x.com": "pw-bob"},
		pins:     map[string]string{},
		presence: map[string]bool{},
	}
}

// tokens are "at:<email>"; the email is recovered from them.
func emailOf(token string) string { return strings.TrimPrefix(token, "at:") }

func (f *fakeAPI) session(email string) *client.Session {
	return &client.Session{
		Tokens: client.Tokens{AccessToken: "at:" + email, RefreshToken: "rt:" + email, ExpiresAt: time.Now().Add(time.Hour)},
		User:   f.accounts[email],
	}
}

func (f *fakeAPI) authed(token string) (string, error) {
	email := emailOf(token)
	if _, ok := f.accounts[email]; !ok {
		return "", common.ErrUnauthenticated
	}
	return email, nil
}

func (f *fakeAPI) Health(context.Context) error { return f.down }

func (f *fakeAPI) Login(_ context.Context, email, password string) (*client.Session, error) {
	if f.password[email] != password || password == "" {
		return nil, common.ErrInvalidCredential
	}
	return f.session(email), nil
}

func (f *fakeAPI) Refresh(_ context.Context, refresh string) (*client.Tokens, error) {
	email := strings.TrimPrefix(refresh, "rt:")
	if _, ok := f.accounts[email]; !ok {
		return nil, common.ErrSessionInvalid
	}
	return &f.session(email).Tokens, nil
}

func (f *fakeAPI) ActivateSession(_ context.Context, access, _ string) (*client.Session, error) {
	email, err := f.authed(access)
	if err != nil {
		return nil, common.ErrSessionInvalid
	}
	return f.session(email), nil
}

func (f *fakeAPI) Logout(context.Context, string) error {
	f.logouts++
	return nil
}

func (f *fakeAPI) PinStatus(_ context.Context, token string) (*client.PinStatus, error) {
	email, err := f.authed(token)
	if err != nil {
		return nil, err
	}
	return &client.PinStatus{QuickSwitchEnabled: f.pins[email] != ""}, nil
}

func (f *fakeAPI) SetPin(_ context.Context, token, pin string) (bool, error) {
	email, err := f.authed(token)
	if err != nil {
		return false, err
	}
	if len(pin) < 4 || len(pin) > 6 {
		return false, common.ErrInvalidFormat
	}
	f.pins[email] = pin
	return false, nil
}

func (f *fakeAPI) ClearPin(_ context.Context, token string) error {
	email, err := f.authed(token)
	if err != nil {
		return err
	}
	delete(f.pins, email)
	return nil
}

func (f *fakeAPI) VerifyPin(_ context.Context, email, pin string) (*client.PinLogin, error) {
	if _, ok := f.accounts[email]; !ok {
		return nil, common.ErrorNotFound
	}
	switch f.pins[email] {
	case "":
		return nil, common.ErrPinNotSet
	case pin:
		return &client.PinLogin{TokenHash: "th", Email: email}, nil
	default:
		return nil, common.ErrInvalidCredential
	}
}

func (f *fakeAPI) VerifyPassword(_ context.Context, token, password string) error {
	email, err := f.authed(token)
	if err != nil {
		return err
	}
	if f.password[email] != password {
		return common.ErrInvalidCredential
	}
	return nil
}

func (f *fakeAPI) ActiveUsers(_ context.Context, token string) ([]client.User, error) {
	if _, err := f.authed(token); err != nil {
		return nil, err
	}
	return []client.User{f.accounts["ann@x.com"], f.accounts["bob@x.com"]}, nil
}

func (f *fakeAPI) UsersByPresence(_ context.Context, token string) ([]client.User, []client.User, error) {
	if _, err := f.authed(token); err != nil {
		return nil, nil, err
	}
	var online, offline []client.User
	for _, email := range []string{"ann@x.com", "bob@x.com"} {
		u := f.accounts[email]
		if f.presence[u.ID] {
			online = append(online, u)
		} else {
			offline = append(offline, u)
		}
	}
	return online, offline, nil
}

func (f *fakeAPI) SetPresence(_ context.Context, token string, online bool) error {
	email, err := f.authed(token)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.presence[f.accounts[email].ID] = online
	return nil
}

func (f *fakeAPI) online(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.presence[id]
}

type appFixture struct {
	app     *App
	api     *fakeAPI
	store   *sessionstore.Store
	out     *bytes.Buffer
	secrets []string
}

func newAppFixture(t *testing.T, input string) *appFixture {
	t.Helper()
	db, err := client.InitDatabase(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	f := &appFixture{api: newFakeAPI(), store: sessionstore.New(db, nil), out: &bytes.Buffer{}}
	sw := switcher.New(f.store, f.api, logging.NopLogger{}, switcher.WithStepTimeout(time.Second))
	f.app = newApp(f.api, f.store, sw, nil, strings.NewReader(input), f.out, time.Second, logging.NopLogger{})
	f.app.readSecret = func(string) (string, error) {
		require.NotEmpty(t, f.secrets, "unexpected secret prompt")
		s := f.secrets[0]
		f.secrets = f.secrets[1:]
		return s, nil
	}
	return f
}

func (f *appFixture) login(t *testing.T, email, password string) {
	t.Helper()
	f.app.reader = rdr(email + "\n")
	f.secrets = append(f.secrets, password)
	require.NoError(t, f.app.Login(context.Background()))
}

func (f *appFixture) active(t *testing.T) string {
	t.Helper()
	id, err := f.store.Active(context.Background())
	require.NoError(t, err)
	return id
}

func TestApp_LoginAndAccounts(t *testing.T) {
	f := newAppFixture(t, "")
	ctx := context.Background()

	require.NoError(t, f.app.Accounts(ctx))
	assert.Contains(t, f.out.String(), "No accounts on this device")

	f.login(t, "ann@x.com", "pw-ann")
	f.login(t, "bob@x.com", "pw-bob")
	assert.Contains(t, f.out.String(), "Signed in as Bob <bob@x.com>")
	assert.Equal(t, "u2", f.active(t))
	assert.False(t, f.api.online("u1"))
	assert.True(t, f.api.online("u2"))

	f.out.Reset()
	require.NoError(t, f.app.Accounts(ctx))
	assert.Equal(t, "  1) Ann <ann@x.com>\n* 2) Bob <bob@x.com>\nUse 'switch <n|email>' to change account.\n", f.out.String())
}

func TestApp_LoginBadPassword(t *testing.T) {
	f := newAppFixture(t, "")
	f.app.reader = rdr("ann@x.com\n")
	f.secrets = []string{"wrong"}

	require.ErrorIs(t, f.app.Login(context.Background()), common.ErrInvalidCredential)
	assert.Empty(t, f.active(t))
}

func TestApp_PinAndSwitch(t *testing.T) {
	f := newAppFixture(t, "")
	ctx := context.Background()

	f.login(t, "ann@x.com", "pw-ann")
	f.secrets = []string{"1234", "1234"}
	require.NoError(t, f.app.Pin(ctx, []string{"set"}))
	assert.Contains(t, f.out.String(), "PIN saved")

	f.login(t, "bob@x.com", "pw-bob")

	f.secrets = []string{"9999"}
	require.ErrorIs(t, f.app.Switch(ctx, []string{"1"}), common.ErrInvalidCredential)
	assert.Equal(t, "u2", f.active(t))

	f.secrets = []string{"1234"}
	require.NoError(t, f.app.Switch(ctx, []string{"1"}))
	assert.Contains(t, f.out.String(), "Switched to Ann <ann@x.com>")
	assert.Equal(t, "u1", f.active(t))
	assert.True(t, f.api.online("u1"))
	assert.False(t, f.api.online("u2"))

	f.secrets = []string{"0000"}
	require.ErrorIs(t, f.app.Switch(ctx, []string{"BOB@x.com"}), common.ErrPinNotSet)

	f.out.Reset()
	require.NoError(t, f.app.Pin(ctx, []string{"status"}))
	assert.Equal(t, "Quick switch: enabled\n", f.out.String())

	require.NoError(t, f.app.Pin(ctx, []string{"clear"}))
	f.out.Reset()
	require.NoError(t, f.app.Pin(ctx, []string{"status"}))
	assert.Equal(t, "Quick switch: disabled\n", f.out.String())
}

func TestApp_PinSetMismatchAndUsage(t *testing.T) {
	f := newAppFixture(t, "")
	ctx := context.Background()
	f.login(t, "ann@x.com", "pw-ann")

	f.secrets = []string{"1234", "4321"}
	require.ErrorIs(t, f.app.Pin(ctx, []string{"set"}), errUsage)
	assert.Empty(t, f.api.pins)

	f.secrets = []string{"12", "12"}
	require.ErrorIs(t, f.app.Pin(ctx, []string{"set"}), common.ErrInvalidFormat)

	require.ErrorIs(t, f.app.Pin(ctx, nil), errUsage)
	require.ErrorIs(t, f.app.Pin(ctx, []string{"rotate"}), errUsage)
}

func TestApp_SwitchUsage(t *testing.T) {
	f := newAppFixture(t, "")
	ctx := context.Background()

	require.ErrorIs(t, f.app.Switch(ctx, nil), errUsage)
	assert.Empty(t, f.out.String())
	require.ErrorIs(t, f.app.Switch(ctx, []string{"3"}), errUsage)
	require.ErrorIs(t, f.app.Switch(ctx, []string{"nobody@x.com"}), common.ErrNoStoredSession)
}

func TestApp_SignedOutCommands(t *testing.T) {
	f := newAppFixture(t, "")
	ctx := context.Background()

	require.ErrorIs(t, f.app.Pin(ctx, []string{"status"}), common.ErrUnauthenticated)
	require.ErrorIs(t, f.app.Users(ctx, nil), common.ErrUnauthenticated)
	require.ErrorIs(t, f.app.Users(ctx, []string{"active"}), common.ErrUnauthenticated)
	f.secrets = []string{"pw"}
	require.ErrorIs(t, f.app.VerifyPassword(ctx), common.ErrUnauthenticated)
	require.ErrorIs(t, f.app.ExitSession(ctx), common.ErrUnauthenticated)
}

func TestApp_VerifyPasswordAndUsers(t *testing.T) {
	f := newAppFixture(t, "")
	ctx := context.Background()
	f.login(t, "ann@x.com", "pw-ann")

	f.secrets = []string{"nope"}
	require.ErrorIs(t, f.app.VerifyPassword(ctx), common.ErrInvalidCredential)
	f.secrets = []string{"pw-ann"}
	require.NoError(t, f.app.VerifyPassword(ctx))
	assert.Contains(t, f.out.String(), "Password confirmed.")

	f.out.Reset()
	require.NoError(t, f.app.Users(ctx, nil))
	out := f.out.String()
	assert.Contains(t, out, "Online (1)")
	assert.Contains(t, out, "Offline (1)")
	assert.Contains(t, out, "doctor")

	f.out.Reset()
	require.NoError(t, f.app.Users(ctx, []string{"active"}))
	out = f.out.String()
	assert.Contains(t, out, "Active (2)")
	assert.Contains(t, out, "bob@x.com")
	assert.NotContains(t, out, "Online")

	require.ErrorIs(t, f.app.Users(ctx, []string{"idle"}), errUsage)
}

func TestApp_ExitSessionAndLogout(t *testing.T) {
	f := newAppFixture(t, "")
	ctx := context.Background()
	f.login(t, "ann@x.com", "pw-ann")

	require.NoError(t, f.app.ExitSession(ctx))
	assert.Empty(t, f.active(t))
	assert.False(t, f.api.online("u1"))
	assert.Contains(t, f.out.String(), "1) Ann <ann@x.com>", "the account stays listed")

	f.login(t, "bob@x.com", "pw-bob")
	require.NoError(t, f.app.Logout(ctx))
	assert.Equal(t, 1, f.api.logouts)
	assert.Empty(t, f.active(t))

	sessions, err := f.store.ListValid(ctx, time.Now())
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestApp_RunMarksOfflineOnQuit(t *testing.T) {
	f := newAppFixture(t, "accounts\nquit\n")
	f.login(t, "ann@x.com", "pw-ann")
	f.app.reader = rdr("accounts\nquit\n")
	require.True(t, f.api.online("u1"))

	require.NoError(t, f.app.Run(context.Background()))

	assert.False(t, f.api.online("u1"))
	assert.Equal(t, "u1", f.active(t), "quitting keeps the device signed in")
	assert.Contains(t, f.out.String(), "sd (Ann <ann@x.com>)> ")
	assert.Contains(t, f.out.String(), "Bye!")
}

func TestApp_RunWarnsWhenServerIsDown(t *testing.T) {
	f := newAppFixture(t, "quit\n")
	f.api.down = client.ErrUnavailable

	require.NoError(t, f.app.Run(context.Background()))

	out := f.out.String()
	assert.Contains(t, out, "Warning: the server is unavailable.")
	assert.Contains(t, out, "No accounts on this device")
}

func TestApp_RunStopsOnCancel(t *testing.T) {
	f := newAppFixture(t, "")
	f.login(t, "ann@x.com", "pw-ann")

	// a reader that never returns keeps the REPL blocked
	pr, pw := ioPipe()
	t.Cleanup(func() { _ = pw.Close() })
	f.app.reader = rdrFrom(pr)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.app.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.False(t, f.api.online("u1"))
}

func ioPipe() (*io.PipeReader, *io.PipeWriter) { return io.Pipe() }

func rdrFrom(r io.Reader) *bufio.Reader { return bufio.NewReader(r) }

func TestApp_AccountsHidesSessionsExpiredAtAppClock(t *testing.T) {
	f := newAppFixture(t, "")
	ctx := context.Background()
	f.login(t, "ann@x.com", "pw-ann")

	f.app.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	f.out.Reset()
	require.NoError(t, f.app.Accounts(ctx))

	assert.Contains(t, f.out.String(), "No accounts on this device")
	assert.Empty(t, f.active(t), "the expired active account loses the pointer")
}

func TestApp_SwitchWithoutTargetListsOtherAccounts(t *testing.T) {
	f := newAppFixture(t, "")
	f.login(t, "ann@x.com", "pw-ann")
	f.login(t, "bob@x.com", "pw-bob")
	f.out.Reset()

	require.ErrorIs(t, f.app.Switch(context.Background(), nil), errUsage)
	assert.Equal(t, "  Ann <ann@x.com>\n", f.out.String())
}
