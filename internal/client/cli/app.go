package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dmitrijs2005/shiftdesk/internal/client/client"
	"github.com/dmitrijs2005/shiftdesk/internal/client/config"
	"github.com/dmitrijs2005/shiftdesk/internal/client/presence"
	"github.com/dmitrijs2005/shiftdesk/internal/client/sessionstore"
	"github.com/dmitrijs2005/shiftdesk/internal/client/switcher"
	"github.com/dmitrijs2005/shiftdesk/internal/logging"
)

// SessionStore is what the CLI reads from the local store. Writes go through
// the switcher.
type SessionStore interface {
	ListValid(ctx context.Context, now time.Time) ([]sessionstore.StoredSession, error)
	Active(ctx context.Context) (string, error)
	FindByEmail(ctx context.Context, email string) (sessionstore.StoredSession, error)
	CanQuickSwitch(ctx context.Context, now time.Time) (bool, error)
	Others(ctx context.Context, now time.Time) ([]sessionstore.StoredSession, error)
}

type App struct {
	api       client.API
	sessions  SessionStore
	switcher  *switcher.Switcher
	heartbeat *presence.Heartbeat
	logger    logging.Logger
	timeout   time.Duration
	now       func() time.Time

	reader     *bufio.Reader
	out        io.Writer
	readSecret func(prompt string) (string, error)

	closers []io.Closer
}

// NewApp opens the local database and connects the transports described by
// cfg.
func NewApp(ctx context.Context, cfg *config.Config, logger logging.Logger) (*App, error) {
	db, err := client.InitDatabase(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open local database: %w", err)
	}

	api := client.NewHTTPClient(cfg.ServerBaseURL, nil)
	store := sessionstore.New(db, logger)
	sw := switcher.New(store, api, logger, switcher.WithStepTimeout(cfg.StepTimeout))

	grpcClient, err := client.NewGRPCClient(cfg.ServerGRPCAddr, sw.RefreshAccessToken)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("presence client: %w", err)
	}

	hb := presence.NewHeartbeat(grpcClient, activeToken(sw), cfg.HeartbeatInterval, cfg.StepTimeout, logger)

	a := newApp(api, store, sw, hb, os.Stdin, os.Stdout, cfg.StepTimeout, logger)
	a.closers = []io.Closer{grpcClient, db}
	return a, nil
}

func newApp(api client.API, sessions SessionStore, sw *switcher.Switcher, hb *presence.Heartbeat,
	in io.Reader, out io.Writer, timeout time.Duration, logger logging.Logger) *App {
	a := &App{
		api:       api,
		sessions:  sessions,
		switcher:  sw,
		heartbeat: hb,
		logger:    logger,
		timeout:   timeout,
		now:       time.Now,
		reader:    bufio.NewReader(in),
		out:       out,
	}
	a.readSecret = func(prompt string) (string, error) { return GetSecret(a.reader, prompt, a.out) }
	return a
}

func activeToken(sw *switcher.Switcher) presence.TokenSource {
	return func(ctx context.Context) (string, error) {
		s, err := sw.ActiveSession(ctx)
		if err != nil {
			return "", err
		}
		return s.AccessToken, nil
	}
}

// Run starts the heartbeat and the REPL. It returns when the user quits,
// input ends or ctx is cancelled; in every case the active account is
// marked offline first.
func (a *App) Run(ctx context.Context) error {
	defer a.close()

	hbCtx, stopHeartbeat := context.WithCancel(ctx)
	defer stopHeartbeat()
	if a.heartbeat != nil {
		go a.heartbeat.Run(hbCtx)
	}

	fmt.Fprintln(a.out, "ShiftDesk CLI (type 'help' for commands)")
	if err := a.api.Health(ctx); err != nil {
		a.logger.Warn(ctx, "health check failed", "error", err)
		fmt.Fprintln(a.out, "Warning: the server is unavailable.")
	}
	if err := a.Accounts(ctx); err != nil {
		fmt.Fprintln(a.out, "error:", describe(err))
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		runREPL(ctx, a, a.status, a.reader, a.out)
	}()

	select {
	case <-done:
	case <-ctx.Done():
	}
	stopHeartbeat()

	offCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.timeout)
	defer cancel()
	a.switcher.GoOffline(offCtx)
	return nil
}

func (a *App) close() {
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.logger.Warn(context.Background(), "close failed", "error", err)
		}
	}
}

// status is shown in the prompt: the active account and connectivity.
func (a *App) status(ctx context.Context) string {
	s := "(signed out"
	if sess, err := a.switcher.ActiveSession(ctx); err == nil {
		s = "(" + sess.Label()
	}
	if a.heartbeat != nil {
		s += " " + string(a.heartbeat.Mode())
	}
	return s + ")"
}
