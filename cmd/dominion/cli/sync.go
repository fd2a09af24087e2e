package cli

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/infinity-labs/dominion/internal/catalog"
	"github.com/infinity-labs/dominion/internal/sync"
)

// SyncOptions defines available flags for the sync command.
type SyncOptions struct {
	DryRun     bool
	Prune      bool
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// ParseSyncOptions parses command line arguments into SyncOptions.
func ParseSyncOptions(args []string) (SyncOptions, error) {
	var opts SyncOptions
	fs := flag.NewFlagSet("sync", flag.ContinueOnError)
	fs.BoolVar(&opts.DryRun, "dry-run", false, "report changes without mutating storage")
	fs.BoolVar(&opts.Prune, "prune", false, "remove roles and permissions the catalog no longer declares")
	fs.BoolVar(&opts.JSONOutput, "json", false, "emit the report as JSON")
	if err := fs.Parse(args); err != nil {
		return SyncOptions{}, err
	}
	return opts, nil
}

// SyncCLI runs catalog reconciliation from the command line.
type SyncCLI struct {
	reconciler *sync.Reconciler
}

// NewSyncCLI constructs the helper around a prepared reconciler.
func NewSyncCLI(reconciler *sync.Reconciler) *SyncCLI {
	return &SyncCLI{reconciler: reconciler}
}

// SyncCommand reconciles the default catalog and prints the outcome.
func (c *SyncCLI) SyncCommand(ctx context.Context, opts SyncOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	report, err := c.reconciler.Sync(ctx, catalog.Default(), sync.Options{
		DryRun: opts.DryRun,
		Prune:  opts.Prune,
	})
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "sync: %v\n", err)
		return 1
	}
	if opts.JSONOutput {
		if err := json.NewEncoder(opts.Stdout).Encode(report); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "sync: encode json: %v\n", err)
			return 1
		}
		return 0
	}
	renderSyncHuman(opts.Stdout, report, opts.DryRun)
	return 0
}

func renderSyncHuman(w io.Writer, report *sync.Report, dryRun bool) {
	verb := "created"
	pruneVerb := "pruned"
	if dryRun {
		verb = "would create"
		pruneVerb = "would prune"
	}
	if report.Empty() {
		_, _ = fmt.Fprintln(w, "catalog is up to date")
		return
	}
	for _, name := range report.CreatedRoles {
		_, _ = fmt.Fprintf(w, "role %s: %s\n", verb, name)
	}
	for _, name := range report.PrunedRoles {
		_, _ = fmt.Fprintf(w, "role %s: %s\n", pruneVerb, name)
	}
	for _, name := range report.CreatedPermissions {
		_, _ = fmt.Fprintf(w, "permission %s: %s\n", verb, name)
	}
	for _, name := range report.PrunedPermissions {
		_, _ = fmt.Fprintf(w, "permission %s: %s\n", pruneVerb, name)
	}
}
