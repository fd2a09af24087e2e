package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/infinity-labs/dominion/internal/catalog"
	jobmetrics "github.com/infinity-labs/dominion/internal/jobs"
	"github.com/infinity-labs/dominion/internal/sync"
)

// Syncer is the slice of the catalog reconciler the job needs.
type Syncer interface {
	Sync(ctx context.Context, cat catalog.Catalog, opts sync.Options) (*sync.Report, error)
}

// NewCatalogSyncHandler returns the Asynq handler for catalog:sync
// tasks. The handler reconciles the default catalog; dry-run and
// prune flags come from the task payload.
func NewCatalogSyncHandler(syncer Syncer, metrics *jobmetrics.Metrics, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		tracker := metrics.Track(TaskTypeCatalogSync)
		var payload CatalogSyncPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			_ = tracker.End(err)
			return asynq.SkipRetry
		}
		report, err := syncer.Sync(ctx, catalog.Default(), sync.Options{
			DryRun: payload.DryRun,
			Prune:  payload.Prune,
		})
		if err != nil {
			logger.Error("catalog sync task failed", slog.Any("error", err))
			return tracker.End(err)
		}
		if !report.Empty() {
			logger.Info("catalog sync task applied changes",
				slog.Int("roles_created", len(report.CreatedRoles)),
				slog.Int("roles_pruned", len(report.PrunedRoles)),
				slog.Int("permissions_created", len(report.CreatedPermissions)),
				slog.Int("permissions_pruned", len(report.PrunedPermissions)))
		}
		return tracker.End(nil)
	}
}
