package db

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"
)

// StartStreakSweeper periodically resets the current streak of users who
// have not checked in since before yesterday. It stops when ctx is done.
// A non-positive interval disables the sweeper.
func StartStreakSweeper(
	ctx context.Context,
	conn *sql.DB,
	dialect Dialect,
	interval time.Duration,
	log *zap.Logger,
) {
	if interval <= 0 {
		log.Warn("streak sweeper disabled", zap.Duration("interval", interval))
		return
	}
	ticker := time.NewTicker(interval)
	query := dialect.Rebind(`
		UPDATE streaks
		   SET current = 0
		 WHERE current > 0
		   AND last_updated < $1
	`)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cutoff := time.Now().AddDate(0, 0, -1).Format(time.DateOnly)
				res, err := conn.ExecContext(ctx, query, cutoff)
				if err != nil {
					log.Error("failed to reset lapsed streaks", zap.Error(err))
					continue
				}
				if rows, _ := res.RowsAffected(); rows > 0 {
					log.Info("reset lapsed streaks", zap.Int64("reset", rows))
				}
			}
		}
	}()
}
