package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeCatalogSync is the task type for reconciling the
	// configured role and permission catalog into storage.
	TaskTypeCatalogSync = "catalog:sync"
)

// CatalogSyncPayload controls a catalog reconciliation run.
type CatalogSyncPayload struct {
	DryRun bool `json:"dry_run"`
	Prune  bool `json:"prune"`
}

// NewCatalogSyncTask constructs an Asynq task.
func NewCatalogSyncTask(payload CatalogSyncPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeCatalogSync, data), nil
}
