// Package server wires configuration, storage, services and transports
// into the running auth server and handles graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/cryptox"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/metrics"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/challenges"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophauth/internal/server/rest"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"

	gs "github.com/dmitrijs2005/gophauth/internal/server/grpc"
)

const (
	connectRetries  = 5
	shutdownTimeout = 5 * time.Second
)

var connectBackoff = 200 * time.Millisecond

// openDB is a seam for tests.
var openDB = func(dsn string) (*sql.DB, error) {
	return sql.Open("pgx", dsn)
}

// newRepositoryManager is a seam for tests.
var newRepositoryManager = func() repomanager.RepositoryManager {
	return repomanager.NewPostgresRepositoryManager()
}

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	redis   redis.UniversalClient
	sweeper *services.Sweeper
	rest    *rest.Server
	grpc    *gs.GRPCServer
}

// NewApp validates c, connects to storage, applies migrations and builds
// every service and transport.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)
	app := &App{config: c, logger: logger}

	db, err := openDB(c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	app.db = db

	if err := connect(ctx, "database", db.PingContext); err != nil {
		app.close()
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := newRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		app.close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	challengeRepo, err := app.challengeRepository(ctx, rm)
	if err != nil {
		app.close()
		return nil, err
	}

	verifier := cryptox.NewVerifier(c.AllowInsecureSignatures)
	if c.AllowInsecureSignatures {
		logger.Warn(ctx, "signature verification is DISABLED; every signature is accepted")
	}

	rec := metrics.NewPrometheus()

	cs := services.NewChallengeService(challengeRepo)
	ss := services.NewSessionService(db, rm, c.SessionSecret, c.SessionLifetime())
	as := services.NewAuthService(db, rm, cs, ss, verifier, c.RelyingPartyID, rec, logger)
	ls := services.NewLinkService(db, rm, verifier, c.RelyingPartyID, c.FrontendOrigin, rec, logger)
	acc := services.NewAccountService(db, rm)
	app.sweeper = services.NewSweeper(db, rm, challengeRepo, c.PendingDeviceTTL, c.AccountRetention, rec, logger)

	app.rest = rest.NewServer(rest.Services{
		Auth:       as,
		Links:      ls,
		Accounts:   acc,
		Sessions:   ss,
		Challenges: cs,
	}, rest.Options{
		Production: c.Production,
		Metrics:    rec.Handler(),
		Ping:       db.PingContext,
		Logger:     logger,
	})
	app.grpc = gs.NewGRPCServer(c.EndpointAddrGRPC, logger, ss, db.PingContext)

	return app, nil
}

// connect retries ping with exponential backoff.
func connect(ctx context.Context, what string, ping func(context.Context) error) error {
	backoff := retry.WithMaxRetries(connectRetries, retry.NewExponential(connectBackoff))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := ping(ctx); err != nil {
			return retry.RetryableError(fmt.Errorf("%s unreachable: %w", what, err))
		}
		return nil
	})
}

func (app *App) challengeRepository(ctx context.Context, rm repomanager.RepositoryManager) (challenges.Repository, error) {
	if app.config.ChallengeBackend != config.ChallengeBackendRedis {
		return rm.Challenges(app.db), nil
	}

	client := redis.NewClient(&redis.Options{Addr: app.config.RedisAddr})
	app.redis = client
	err := connect(ctx, "redis", func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
	if err != nil {
		return nil, fmt.Errorf("redis init error: %w", err)
	}
	return challenges.NewRedisRepository(client), nil
}

func (app *App) close() {
	if app.redis != nil {
		_ = app.redis.Close()
	}
	if app.db != nil {
		_ = app.db.Close()
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	srv := &http.Server{
		Addr:              app.config.EndpointAddrHTTP,
		Handler:           app.rest.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		app.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	app.logger.Info(ctx, "Starting HTTP server", "address", app.config.EndpointAddrHTTP)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.grpc.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves HTTP and gRPC until ctx is cancelled, a signal arrives or
// a server fails.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()
	defer app.close()

	app.logger.Info(ctx, "Starting app...")
	app.initSignalHandler(cancelFunc)

	if _, err := app.sweeper.Start(ctx, app.config.SweepSchedule); err != nil {
		app.logger.Error(ctx, err.Error())
		return
	}

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	wg.Wait()
	app.logger.Info(ctx, "App stopped")
}
