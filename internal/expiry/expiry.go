package expiry

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"

	"rolloutdb/pkg/core"
	"rolloutdb/pkg/logger"
)

// Stale partial-buffer sweeper. A producer that never completes a unit
// would otherwise hold its partial sequences forever; when enabled, partials
// untouched for longer than maxAge are discarded on a cron schedule.

// Start launches the sweeper if enabled. Returns a cancel func; the no-op
// cancel is returned when disabled.
func Start(ctx context.Context, eng *core.Engine, enabled bool, cronExpr string, maxAge time.Duration) (context.CancelFunc, error) {
	if !enabled {
		logger.Info("expiry_disabled")
		return func() {}, nil
	}
	if cronExpr == "" {
		cronExpr = "*/5 * * * *"
	}
	if !gronx.IsValid(cronExpr) {
		return nil, fmt.Errorf("invalid expiry cron expression: %s", cronExpr)
	}
	logger.Info("expiry_enabled", "cron", cronExpr, "max_age", maxAge)
	ctx2, cancel := context.WithCancel(ctx)
	go run(ctx2, eng, cronExpr, maxAge)
	return cancel, nil
}

func run(ctx context.Context, eng *core.Engine, cronExpr string, maxAge time.Duration) {
	for {
		select {
		case <-ctx.Done():
			logger.Info("expiry_stopping")
			return
		default:
		}

		now := time.Now().UTC()
		next, err := gronx.NextTickAfter(cronExpr, now, false)
		if err != nil {
			logger.Error("expiry_nexttick_failed", "cron", cronExpr, "error", err)
			select {
			case <-time.After(30 * time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		select {
		case <-time.After(time.Until(next)):
			Sweep(eng, maxAge)
		case <-ctx.Done():
			logger.Info("expiry_stopping")
			return
		}
	}
}

// Sweep runs one expiry pass. Exposed so tests and admin triggers can run
// it on demand.
func Sweep(eng *core.Engine, maxAge time.Duration) {
	dropped := eng.ExpireStale(maxAge)
	for id, n := range dropped {
		logger.Info("expired_partial", "producer", id, "sequences", n)
	}
}
