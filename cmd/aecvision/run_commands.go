package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"aecvision/internal/pipeline"
	"aecvision/internal/report"
)

type runFunc func(context.Context, *pipeline.Runner) (*report.Summary, error)

// runPipeline executes one pipeline command until it finishes or the process
// is interrupted, then prints its summary.
func runPipeline(cmd *cobra.Command, ctx *commandContext, run runFunc) error {
	runner, err := ctx.runner()
	if err != nil {
		return err
	}

	signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	summary, runErr := run(signalCtx, runner)
	if err := printSummary(cmd, ctx, summary); err != nil && runErr == nil {
		return err
	}
	return runErr
}

func newScrapeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "scrape",
		Short: "Refresh the local catalog from the detail and specification tables",
		Long: "Download the detail and specification catalogs, rasterize detail PDFs into page\n" +
			"images and extract specification text. A source that cannot be read keeps\n" +
			"its previously cataloged records.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd, ctx, func(c context.Context, r *pipeline.Runner) (*report.Summary, error) {
				return r.Scrape(c)
			})
		},
	}
}

func newBuildCommand(ctx *commandContext) *cobra.Command {
	var noEnrich bool

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Link cataloged records, caption drawings and write the dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := pipeline.BuildOptions{SkipEnrich: noEnrich}
			return runPipeline(cmd, ctx, func(c context.Context, r *pipeline.Runner) (*report.Summary, error) {
				return r.Build(c, opts)
			})
		},
	}
	cmd.Flags().BoolVar(&noEnrich, "no-enrich", false, "Skip captioning and use fallback answers only")
	return cmd
}

func newUploadCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "upload",
		Short: "Publish the built dataset file to the configured repository",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd, ctx, func(c context.Context, r *pipeline.Runner) (*report.Summary, error) {
				return r.Upload(c)
			})
		},
	}
}
