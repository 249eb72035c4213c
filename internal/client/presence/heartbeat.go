// Package presence keeps the active account's online flag alive while the
// client runs.
package presence

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dmitrijs2005/shiftdesk/internal/common"
	"github.com/dmitrijs2005/shiftdesk/internal/logging"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

// Channel is the part of the presence transport the heartbeat uses.
type Channel interface {
	Ping(ctx context.Context) error
	Heartbeat(ctx context.Context, accessToken string) error
}

// TokenSource yields the active account's access token, or
// common.ErrUnauthenticated when no account is active.
type TokenSource func(ctx context.Context) (string, error)

// Heartbeat pings the server on every tick and, while it is reachable and
// an account is active, re-marks that account online. This heals a presence
// flag cleared by another client or lost during an outage.
type Heartbeat struct {
	channel  Channel
	tokens   TokenSource
	interval time.Duration
	timeout  time.Duration
	logger   logging.Logger

	mu   sync.Mutex
	mode Mode
}

func NewHeartbeat(channel Channel, tokens TokenSource, interval, timeout time.Duration, logger logging.Logger) *Heartbeat {
	if logger == nil {
		logger = logging.NopLogger{}
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Heartbeat{
		channel:  channel,
		tokens:   tokens,
		interval: interval,
		timeout:  timeout,
		logger:   logger,
		mode:     ModeOffline,
	}
}

// Mode reports whether the last ping reached the server.
func (h *Heartbeat) Mode() Mode {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.mode
}

func (h *Heartbeat) setMode(ctx context.Context, mode Mode) {
	h.mu.Lock()
	changed := h.mode != mode
	h.mode = mode
	h.mu.Unlock()

	if changed {
		h.logger.Info(ctx, "server connectivity changed", "mode", string(mode))
	}
}

// Run beats once immediately, then on every interval until ctx is done.
func (h *Heartbeat) Run(ctx context.Context) {
	h.Beat(ctx)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			h.Beat(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Beat performs a single ping and heartbeat.
func (h *Heartbeat) Beat(ctx context.Context) {
	pingCtx, cancel := context.WithTimeout(ctx, h.timeout)
	err := h.channel.Ping(pingCtx)
	cancel()

	if err != nil {
		h.setMode(ctx, ModeOffline)
		return
	}
	h.setMode(ctx, ModeOnline)

	token, err := h.tokens(ctx)
	if err != nil {
		if !errors.Is(err, common.ErrUnauthenticated) {
			h.logger.Warn(ctx, "heartbeat skipped", "error", err)
		}
		return
	}

	beatCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()
	if err := h.channel.Heartbeat(beatCtx, token); err != nil {
		h.logger.Warn(ctx, "heartbeat failed", "error", err)
	}
}
