package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/joho/godotenv"

	"rolloutdb/internal/expiry"
	"rolloutdb/pkg/config"
	"rolloutdb/pkg/core"
	"rolloutdb/pkg/journal"
	"rolloutdb/pkg/logger"
	"rolloutdb/pkg/models"
	"rolloutdb/pkg/ratelimit"
)

// App encapsulates the server components and lifecycle.
type App struct {
	cfg     *config.Config
	eng     *core.Engine
	lim     *ratelimit.Pool
	srv     *http.Server
	version string
}

// New validates the config and initializes everything that does not need a
// running context: the engine, the optional journal and the rate limiter.
// Call Run to start the HTTP server and block until shutdown.
func New(cfg *config.Config, version string) (*App, error) {
	_ = godotenv.Load(".env")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	eng := core.New(cfg.Batch.Size)
	if cfg.Journal.Enabled {
		if cfg.Journal.DBPath == "" {
			return nil, fmt.Errorf("journal.db_path required when journal is enabled")
		}
		if err := journal.Open(cfg.Journal.DBPath); err != nil {
			return nil, fmt.Errorf("failed to open journal at %s: %w", cfg.Journal.DBPath, err)
		}
		eng.OnBatch(func(b models.Batch) {
			if err := journal.Append(b); err != nil {
				logger.Error("journal_append_failed", "step", b.Step, "error", err)
			}
		})
	}

	return &App{
		cfg:     cfg,
		eng:     eng,
		lim:     ratelimit.NewPool(cfg.RateLimit.RPS, cfg.RateLimit.Burst),
		version: version,
	}, nil
}

// Engine exposes the core engine, mainly for tests.
func (a *App) Engine() *core.Engine { return a.eng }

// Run starts the expiry sweeper and the HTTP server, and blocks until ctx
// is canceled or a fatal server error occurs.
func (a *App) Run(ctx context.Context) error {
	var maxAge time.Duration
	if a.cfg.Expiry.Enabled {
		var err error
		if maxAge, err = a.cfg.ExpiryMaxAge(); err != nil {
			return err
		}
	}
	stopExpiry, err := expiry.Start(ctx, a.eng, a.cfg.Expiry.Enabled, a.cfg.Expiry.Cron, maxAge)
	if err != nil {
		return err
	}
	defer stopExpiry()

	errCh := a.startHTTP(ctx)

	logger.Info("server_started", "addr", a.cfg.Addr(), "batch_size", a.cfg.Batch.Size,
		"journal", a.cfg.Journal.Enabled, "version", a.version)

	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = a.srv.Shutdown(shutCtx)
		_ = journal.Close()
		return nil
	case err := <-errCh:
		_ = journal.Close()
		return err
	}
}
