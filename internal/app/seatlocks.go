package app

import (
	"context"
	"fmt"
	"time"
)

// Advisory seat marks mirror live holds in Redis. They are a hint only: every
// conflict decision comes from the reservation store, and a mark's TTL is cut
// below the hold deadline so no mark outlives the row it mirrors. Marks are
// removed on cancel and lapse on their own before the hold expires.

// advisoryMarkSlack keeps marks strictly shorter-lived than the database
// deadline, absorbing clock skew between Redis and Postgres.
const advisoryMarkSlack = 5 * time.Second

func seatHoldKey(slotID int64, seatID string) string {
	return fmt.Sprintf("seat_hold:%d:%s", slotID, seatID)
}

func (app *Application) advisoryConflicts(ctx context.Context, slotID int64, seats []string) ([]string, error) {
	if app.redis == nil {
		return nil, nil
	}

	keys := make([]string, len(seats))
	for i, seatID := range seats {
		keys[i] = seatHoldKey(slotID, seatID)
	}

	values, err := app.redis.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	held := make([]string, 0)

	for i, v := range values {
		if v != nil {
			held = append(held, seats[i])
		}
	}

	return held, nil
}

// markSeatsHeld is best effort: a failed write only dulls the hint.
func (app *Application) markSeatsHeld(ctx context.Context, slotID int64, seats []string, expiresAt time.Time) {
	if app.redis == nil {
		return
	}

	ttl := time.Until(expiresAt) - advisoryMarkSlack
	if ttl <= 0 {
		return
	}

	pipe := app.redis.Pipeline()

	for _, seatID := range seats {
		pipe.Set(ctx, seatHoldKey(slotID, seatID), "1", ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		app.logger.Warn("failed to write advisory seat marks", "error", err)
	}
}

func (app *Application) releaseSeatMarks(ctx context.Context, slotID int64, seats []string) {
	if app.redis == nil {
		return
	}

	keys := make([]string, len(seats))
	for i, seatID := range seats {
		keys[i] = seatHoldKey(slotID, seatID)
	}

	if err := app.redis.Del(ctx, keys...).Err(); err != nil {
		app.logger.Warn("failed to release advisory seat marks", "error", err)
	}
}
