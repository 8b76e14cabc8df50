package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"aecvision/internal/config"
	"aecvision/internal/preflight"
	"aecvision/internal/report"
)

type statusCheckJSON struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

type statusRunJSON struct {
	Command    string    `json:"command"`
	RunID      string    `json:"run_id"`
	Outcome    string    `json:"outcome"`
	FinishedAt time.Time `json:"finished_at"`
}

type statusJSON struct {
	ConfigPath string            `json:"config_path"`
	Checks     []statusCheckJSON `json:"checks"`
	Catalog    struct {
		Path     string `json:"path"`
		Exists   bool   `json:"exists"`
		Details  int    `json:"details"`
		Specs    int    `json:"specifications"`
		Captions int    `json:"cached_captions"`
		Runs     int    `json:"runs"`
		Error    string `json:"error,omitempty"`
	} `json:"catalog"`
	LastRuns []statusRunJSON `json:"last_runs"`
	Dataset  struct {
		Path   string `json:"path"`
		Exists bool   `json:"exists"`
		Bytes  int64  `json:"bytes"`
	} `json:"dataset"`
}

var statusCommandsOrder = []string{"scrape", "build", "upload"}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var network bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show workspace health, catalog contents and recent runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			checks := preflight.RunAll(cmd.Context(), cfg, preflight.Options{Network: network})
			catalogStatus := preflight.InspectCatalog(cmd.Context(), cfg.CatalogPath())

			if ctx.jsonOutput() {
				return writeJSON(cmd, buildStatusJSON(ctx.configPath, cfg, checks, catalogStatus))
			}
			renderStatus(cmd.OutOrStdout(), cfg, checks, catalogStatus, time.Now(), shouldColorize(cmd.OutOrStdout()))
			return nil
		},
	}
	cmd.Flags().BoolVar(&network, "network", false, "Verify API credentials against the remote services")
	return cmd
}

func buildStatusJSON(configPath string, cfg *config.Config, checks []preflight.Result, catalogStatus preflight.CatalogStatus) statusJSON {
	var out statusJSON
	out.ConfigPath = configPath
	for _, check := range checks {
		out.Checks = append(out.Checks, statusCheckJSON{Name: check.Name, Passed: check.Passed, Detail: check.Detail})
	}
	out.Catalog.Path = catalogStatus.Path
	out.Catalog.Exists = catalogStatus.Exists
	out.Catalog.Details = catalogStatus.Counts.Details
	out.Catalog.Specs = catalogStatus.Counts.Specs
	out.Catalog.Captions = catalogStatus.Counts.Captions
	out.Catalog.Runs = catalogStatus.Counts.Runs
	if catalogStatus.Err != nil {
		out.Catalog.Error = catalogStatus.Err.Error()
	}
	out.LastRuns = []statusRunJSON{}
	for _, command := range statusCommandsOrder {
		if run := catalogStatus.LastRuns[command]; run != nil {
			out.LastRuns = append(out.LastRuns, statusRunJSON{
				Command:    command,
				RunID:      run.ID,
				Outcome:    run.Outcome,
				FinishedAt: run.FinishedAt,
			})
		}
	}
	out.Dataset.Path = cfg.Dataset.OutputPath
	if size, ok := fileSize(cfg.Dataset.OutputPath); ok {
		out.Dataset.Exists = true
		out.Dataset.Bytes = size
	}
	return out
}

func renderStatus(w io.Writer, cfg *config.Config, checks []preflight.Result, catalogStatus preflight.CatalogStatus, now time.Time, colorize bool) {
	p := statusPrinter{w: w, colorize: colorize}
	p.section("Workspace")
	for _, check := range checks {
		p.result(check, isOptionalCheck(check.Name))
	}
	fmt.Fprintln(w)

	p.section("Catalog")
	p.result(catalogStatus.Result(), true)
	if size, ok := fileSize(cfg.Dataset.OutputPath); ok {
		p.line("Dataset", statusOK, fmt.Sprintf("%s (%d bytes)", cfg.Dataset.OutputPath, size))
	} else {
		p.line("Dataset", statusInfo, "not built yet (run build)")
	}
	fmt.Fprintln(w)

	p.section("Recent Runs")
	rows := make([][]string, 0, len(statusCommandsOrder))
	for _, command := range statusCommandsOrder {
		rows = append(rows, []string{command, catalogStatus.LastRunDetail(command, now)})
	}
	fmt.Fprintln(w, report.RenderTable([]string{"Command", "Last Run"}, rows, []report.Alignment{report.AlignLeft, report.AlignLeft}))
}

// isOptionalCheck reports whether a failing check only limits some commands.
func isOptionalCheck(name string) bool {
	switch name {
	case "Replicate", "Hugging Face Hub":
		return true
	default:
		return false
	}
}
