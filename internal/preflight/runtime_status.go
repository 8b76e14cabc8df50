package preflight

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"aecvision/internal/catalog"
)

// CatalogStatus is a snapshot of the local catalog for status UIs.
type CatalogStatus struct {
	Path     string
	Exists   bool
	Counts   catalog.Counts
	LastRuns map[string]*catalog.Run
	Err      error
}

// Commands whose last run is reported by InspectCatalog.
var statusCommands = []string{"scrape", "build", "upload"}

// InspectCatalog reads catalog counts and the last run of each command. A
// missing catalog file is reported rather than created.
func InspectCatalog(ctx context.Context, path string) CatalogStatus {
	status := CatalogStatus{Path: path, LastRuns: map[string]*catalog.Run{}}
	if _, err := os.Stat(path); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			status.Err = err
		}
		return status
	}
	status.Exists = true

	store, err := catalog.Open(ctx, path)
	if err != nil {
		status.Err = err
		return status
	}
	defer store.Close()

	if status.Counts, err = store.Counts(ctx); err != nil {
		status.Err = err
		return status
	}
	for _, command := range statusCommands {
		run, err := store.LastRun(ctx, command)
		if err != nil {
			status.Err = err
			return status
		}
		if run != nil {
			status.LastRuns[command] = run
		}
	}
	return status
}

// Result converts the snapshot into a preflight result.
func (s CatalogStatus) Result() Result {
	const name = "Catalog"
	switch {
	case s.Err != nil:
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", s.Path, s.Err)}
	case !s.Exists:
		return Result{Name: name, Detail: "not scraped yet (run scrape)"}
	case s.Counts.Details == 0 || s.Counts.Specs == 0:
		return Result{Name: name, Detail: fmt.Sprintf("%d details, %d specifications (run scrape)", s.Counts.Details, s.Counts.Specs)}
	default:
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d details, %d specifications, %d cached captions", s.Counts.Details, s.Counts.Specs, s.Counts.Captions)}
	}
}

// LastRunDetail renders a display-friendly line for a command's last run.
func (s CatalogStatus) LastRunDetail(command string, now time.Time) string {
	run, ok := s.LastRuns[command]
	if !ok || run == nil {
		return "never"
	}
	age := now.Sub(run.FinishedAt).Round(time.Minute)
	return fmt.Sprintf("%s %s ago", run.Outcome, age)
}
