package maintenance

import (
	"context"
	"log/slog"
	"time"

	"monolithgo/pkg/db"
	"monolithgo/pkg/store"
)

// LastRunKey records when maintenance last completed.
const LastRunKey = "maintenance_last_run"

// Run executes all maintenance tasks: closing dangling recordings and pruning old ones.
// A zero retention keeps every recording. It blocks until completion.
func Run(ctx context.Context, s store.Store, d *db.DB, retention time.Duration) error {
	slog.Info("Starting database maintenance...")

	if n, err := s.CloseDanglingSessions(ctx); err != nil {
		slog.Error("Closing dangling recordings failed", "error", err)
	} else if n > 0 {
		slog.Info("Closed recordings left open by an unclean shutdown", "count", n)
	}

	if retention > 0 {
		if n, err := d.PruneRecordings(retention); err != nil {
			slog.Error("Recording pruning failed", "error", err)
		} else {
			slog.Info("Recording pruning completed", "removed", n, "retention", retention)
		}
	}

	return s.SetState(ctx, LastRunKey, time.Now().UTC().Format(time.RFC3339))
}
