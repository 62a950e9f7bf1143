package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// ReconcileIndexes ensures the indexes of every column exist. It returns the
// number of columns checked and the first error; other columns are still
// processed after a failure.
func ReconcileIndexes(ctx context.Context, columns *ColumnService, indexes *IndexManager) (int, error) {
	cols, err := columns.AllColumns(ctx)
	if err != nil {
		return 0, err
	}
	var first error
	for _, c := range cols {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if err := indexes.EnsureIndexes(ctx, c.TableID, c.ID, c.Type); err != nil {
			slog.WarnContext(ctx, "index reconcile", "table", c.TableID, "column", c.ID, "err", err)
			if first == nil {
				first = err
			}
		}
	}
	return len(cols), first
}

// Reconciler runs ReconcileIndexes on a cron schedule.
type Reconciler struct {
	columns *ColumnService
	indexes *IndexManager
	c       *cron.Cron
}

// NewReconciler creates a reconciler for schedule, a robfig/cron expression
// such as "@every 1h".
func NewReconciler(columns *ColumnService, indexes *IndexManager, schedule string) (*Reconciler, error) {
	r := &Reconciler{columns: columns, indexes: indexes, c: cron.New()}
	if _, err := r.c.AddFunc(schedule, r.run); err != nil {
		return nil, fmt.Errorf("invalid reconcile schedule %q: %w", schedule, err)
	}
	return r, nil
}

// Run performs one pass immediately, then follows the schedule until ctx is
// done.
func (r *Reconciler) Run(ctx context.Context) error {
	r.run()
	r.c.Start()
	<-ctx.Done()
	<-r.c.Stop().Done()
	return nil
}

func (r *Reconciler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	start := time.Now()
	n, err := ReconcileIndexes(ctx, r.columns, r.indexes)
	if err != nil {
		slog.ErrorContext(ctx, "index reconcile failed", "columns", n, "err", err)
		return
	}
	slog.InfoContext(ctx, "index reconcile", "columns", n, "dur", time.Since(start).Round(time.Millisecond))
}
