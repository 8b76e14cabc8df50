package pipeline

import (
	"context"
	"time"

	"aecvision/internal/dataset"
	"aecvision/internal/enrichment"
	"aecvision/internal/linking"
	"aecvision/internal/logging"
	"aecvision/internal/report"
	"aecvision/internal/services"
	"aecvision/internal/services/replicate"
)

// BuildOptions adjusts one build run.
type BuildOptions struct {
	// SkipEnrich builds the dataset from fallback answers only.
	SkipEnrich bool
}

// Build links the cataloged records, optionally captions them and writes the
// dataset file. The previous dataset file is left untouched when the run is
// cancelled or fails before the write.
func (r *Runner) Build(ctx context.Context, opts BuildOptions) (*report.Summary, error) {
	s, err := r.begin(ctx, "build")
	if err != nil {
		return nil, err
	}
	return s.summary, r.finish(s, r.build(s, opts))
}

func (r *Runner) build(s *session, opts BuildOptions) error {
	details, err := s.store.Details(s.ctx)
	if err != nil {
		return services.Wrap(services.ErrIO, "build", "load details", "", err)
	}
	specs, err := s.store.Specs(s.ctx)
	if err != nil {
		return services.Wrap(services.ErrIO, "build", "load specifications", "", err)
	}
	if len(details) == 0 && len(specs) == 0 {
		return services.Wrap(services.ErrValidation, "build", "load catalog", "catalog is empty; run scrape first", nil)
	}

	linked, linkReport := linking.Link(details, specs)
	s.summary.Set("details", linkReport.Details)
	s.summary.Set("specifications", linkReport.Specs)
	s.summary.Set("linked", linkReport.Linked)
	s.summary.Set("unmatched_details", linkReport.UnmatchedDetails)
	s.summary.Set("unmatched_specifications", linkReport.UnmatchedSpecs)
	if n := len(linkReport.DuplicateSpecNumbers); n > 0 {
		s.summary.AddIssue("link", "duplicate_spec_number", n)
		logging.WarnWithContext(s.logger, "duplicate specification numbers produce one record per pairing", "duplicate_spec_number",
			logging.Int("count", n),
			logging.Any("spec_numbers", linkReport.DuplicateSpecNumbers),
			logging.String(logging.FieldErrorHint, "check the specification catalog for repeated section numbers"),
			logging.String(logging.FieldImpact, "affected details appear once per duplicate specification"),
		)
	}
	s.logger.Info("records linked",
		logging.String(logging.FieldEventType, "link_finished"),
		logging.Int("linked", linkReport.Linked),
		logging.Int("unmatched_details", linkReport.UnmatchedDetails),
		logging.Int("unmatched_specifications", linkReport.UnmatchedSpecs),
	)

	assembler := dataset.NewAssembler(dataset.Options{
		ImagePolicy:    r.cfg.Dataset.ImagePolicy,
		FallbackSource: r.cfg.Dataset.FallbackSource,
		IDPrefix:       r.cfg.Dataset.IDPrefix,
		ImageBaseURL:   r.cfg.Enrichment.ImageBaseURL,
	})
	// Only records that become entries are sent to the model.
	selected := assembler.Select(linked)
	s.summary.Set("selected", len(selected))
	if dropped := len(linked) - len(selected); dropped > 0 {
		logging.LogDecision(s.logger, "later page images left out of the dataset", "image_policy", r.cfg.Dataset.ImagePolicy, "one entry per detail and specification",
			logging.Int("dropped", dropped),
		)
	}

	if err := r.enrich(s, opts, selected); err != nil {
		return err
	}

	entries := assembler.Assemble(selected)
	if err := s.ctx.Err(); err != nil {
		return err
	}
	if err := dataset.Write(r.cfg.Dataset.OutputPath, r.cfg.Dataset.Format, entries); err != nil {
		return err
	}
	s.summary.Set("entries", len(entries))
	s.summary.OutputPath = r.cfg.Dataset.OutputPath
	s.logger.Info("dataset written",
		logging.String(logging.FieldEventType, "dataset_written"),
		logging.Int("entries", len(entries)),
		logging.String("output_path", r.cfg.Dataset.OutputPath),
		logging.String("format", r.cfg.Dataset.Format),
	)
	return nil
}

func (r *Runner) enrich(s *session, opts BuildOptions, linked []*linking.LinkedRecord) error {
	switch {
	case opts.SkipEnrich:
		logging.LogDecision(s.logger, "enrichment skipped", "enrichment", "skipped", "disabled by flag")
		return nil
	case !r.cfg.Enrichment.Enabled:
		logging.LogDecision(s.logger, "enrichment skipped", "enrichment", "skipped", "disabled in config")
		return nil
	}
	if err := r.cfg.ValidateEnrichmentCredentials(); err != nil {
		s.summary.AddIssue("enrich", "configuration", 1)
		logging.WarnWithContext(s.logger, "enrichment skipped; credentials missing", "enrichment_unconfigured",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "set REPLICATE_API_TOKEN or enrichment.api_token"),
			logging.String(logging.FieldImpact, "every entry uses its fallback answer"),
		)
		return nil
	}

	captioner := r.captioner
	if captioner == nil {
		captioner = replicate.NewClient(replicate.Config{
			APIToken:       r.cfg.Enrichment.APIToken,
			BaseURL:        r.cfg.Enrichment.BaseURL,
			Model:          r.cfg.Enrichment.Model,
			MaxTokens:      r.cfg.Enrichment.MaxTokens,
			Temperature:    r.cfg.Enrichment.Temperature,
			TopP:           r.cfg.Enrichment.TopP,
			TimeoutSeconds: r.cfg.Enrichment.RequestTimeout,
		})
	}
	var options []enrichment.Option
	if r.cfg.Enrichment.UseCache {
		options = append(options, enrichment.WithCache(s.store))
	}
	enricher := enrichment.New(captioner, enrichment.Options{
		ImageBaseURL:   r.cfg.Enrichment.ImageBaseURL,
		Model:          r.cfg.Enrichment.Model,
		Workers:        r.cfg.Enrichment.Workers,
		RequestTimeout: time.Duration(r.cfg.Enrichment.RequestTimeout) * time.Second,
		BenignMarkers:  r.cfg.Enrichment.BenignMarkers,
	}, r.logger, options...)

	result := enricher.Enrich(s.ctx, linked)
	s.summary.Set("captioned", result.Completed)
	s.summary.Set("cached", result.Cached)
	s.summary.AddIssues("enrich", result.Reasons)
	return s.ctx.Err()
}
