package app

import (
	"context"
	"time"
)

const sweeperLockKey = "sweeper:leader"

// StartSweeper launches the background reclamation loop. It rewrites lapsed
// HOLD rows to EXPIRED for storage hygiene only; conflict checks and reads
// re-derive expiry on their own, so correctness never depends on the sweeper
// running.
func (app *Application) StartSweeper() {
	if !app.config.Sweeper.Enabled {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	app.sweeperCancel = cancel
	app.sweeperDone = make(chan struct{})

	go func() {
		defer close(app.sweeperDone)

		ticker := time.NewTicker(app.config.Sweeper.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				app.sweepExpiredHolds(ctx)
			}
		}
	}()
}

func (app *Application) sweepExpiredHolds(ctx context.Context) {
	// One instance sweeps at a time. Losing the lock (or Redis being down)
	// just skips this round.
	if app.redis != nil {
		acquired, err := app.redis.SetNX(ctx, sweeperLockKey, "1", app.config.Sweeper.Interval).Result()
		if err != nil {
			app.logger.Warn("failed to acquire sweeper lock", "error", err)
			return
		}

		if !acquired {
			return
		}
	}

	sweepCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	reaped, err := app.reservationRepo.ReapExpired(sweepCtx, app.config.Sweeper.BatchSize)
	if err != nil {
		app.logger.Error("failed to reclaim expired holds", "error", err)
		return
	}

	if reaped > 0 {
		app.metrics.holdsReaped.Add(ctx, int64(reaped))
		app.logger.Info("reclaimed expired holds", "count", reaped)
	}
}
