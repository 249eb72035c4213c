// Package server wires storage, services and transports together and runs
// the ShiftDesk server until it receives a termination signal.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/shiftdesk/internal/logging"
	"github.com/dmitrijs2005/shiftdesk/internal/server/config"
	"github.com/dmitrijs2005/shiftdesk/internal/server/hasher"
	"github.com/dmitrijs2005/shiftdesk/internal/server/httpapi"
	"github.com/dmitrijs2005/shiftdesk/internal/server/ratelimit"
	"github.com/dmitrijs2005/shiftdesk/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/shiftdesk/internal/server/services"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	gs "github.com/dmitrijs2005/shiftdesk/internal/server/grpc"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	redis    *redis.Client
	identity *services.IdentityService
	pins     *services.PinService
	presence *services.PresenceService
}

// NewApp opens the database, applies migrations and builds the services.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger := logging.NewJSONLogger(os.Stdout, slog.LevelInfo)

	db, err := repomanager.OpenPostgres(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}

	pinHasher, err := hasher.New(c.PinHasher, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	app := &App{config: c, logger: logger, db: db}

	var limiter services.AttemptLimiter
	if c.RedisAddr != "" {
		app.redis = redis.NewClient(&redis.Options{Addr: c.RedisAddr})
		if err := app.redis.Ping(ctx).Err(); err != nil {
			logger.Warn(ctx, "redis unreachable, pin attempt limits fail open", "address", c.RedisAddr, "error", err)
		}
		limiter = ratelimit.New(app.redis, ratelimit.Config{MaxAttempts: c.PinMaxAttempts, Window: c.PinAttemptWindow})
	} else {
		logger.Warn(ctx, "redis address not set, pin attempt limits disabled")
	}

	app.identity = services.NewIdentityService(db, rm, c, logger)
	app.pins = services.NewPinService(db, rm, pinHasher, limiter, app.identity, c, logger)
	app.presence = services.NewPresenceService(db, rm, c)

	return app, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves HTTP and gRPC until a signal arrives or either server fails,
// then stops both and releases storage.
func (app *App) Run(ctx context.Context) error {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	h := httpapi.NewHandler(app.identity, app.pins, app.presence, app.logger)
	router := httpapi.NewRouter(h, []byte(app.config.SecretKey), app.logger)
	grpcServer := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.presence, app.config.SecretKey)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return serveHTTP(ctx, app.config.EndpointAddrHTTP, router, app.logger)
	})
	g.Go(func() error {
		return grpcServer.Run(ctx)
	})

	err := g.Wait()
	app.close()
	if err != nil {
		app.logger.Error(context.Background(), "server stopped with error", "error", err)
	}
	return err
}

func (app *App) close() {
	if app.redis != nil {
		_ = app.redis.Close()
	}
	if app.db != nil {
		_ = app.db.Close()
	}
}

// serveHTTP runs an HTTP server on addr until ctx is done.
func serveHTTP(ctx context.Context, addr string, handler http.Handler, logger logging.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "Starting HTTP server", "address", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info(ctx, "Stopping HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
