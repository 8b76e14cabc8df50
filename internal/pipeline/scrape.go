package pipeline

import (
	"context"
	"errors"

	"aecvision/internal/logging"
	"aecvision/internal/preflight"
	"aecvision/internal/records"
	"aecvision/internal/report"
	"aecvision/internal/scrape"
	"aecvision/internal/services"
)

// Scrape refreshes the local catalog from both source tables. A source that
// cannot be read keeps its previous catalog contents; the command fails only
// when neither source is readable.
func (r *Runner) Scrape(ctx context.Context) (*report.Summary, error) {
	s, err := r.begin(ctx, "scrape")
	if err != nil {
		return nil, err
	}
	return s.summary, r.finish(s, r.scrape(s))
}

func (r *Runner) scrape(s *session) error {
	if check := preflight.CheckRasterizer(s.ctx, r.cfg); !check.Passed {
		return services.Wrap(services.ErrConfiguration, "scrape", "preflight", check.Name+": "+check.Detail, nil)
	}

	scraper, err := scrape.New(r.cfg, r.logger, r.scrapeOptions...)
	if err != nil {
		return err
	}

	detailRows, detailStats, detailErr := scraper.ScrapeDetails(s.ctx)
	if err := s.ctx.Err(); err != nil {
		return err
	}
	specRows, specStats, specErr := scraper.ScrapeSpecifications(s.ctx)
	if err := s.ctx.Err(); err != nil {
		return err
	}
	if detailErr != nil && specErr != nil {
		return errors.Join(detailErr, specErr)
	}

	if detailErr != nil {
		r.sourceFailed(s, "scrape_details", detailErr)
	} else {
		details, errs := records.ValidateDetails(detailRows)
		r.recordStats(s, "scrape_details", detailStats)
		r.reportInvalid(s, errs)
		if err := s.store.ReplaceDetails(s.ctx, details); err != nil {
			return services.Wrap(services.ErrIO, "scrape", "store details", "", err)
		}
		s.summary.Set("details", len(details))
		s.summary.Set("pages", detailStats.Pages)
	}

	if specErr != nil {
		r.sourceFailed(s, "scrape_specs", specErr)
	} else {
		specs, errs := records.ValidateSpecifications(specRows)
		r.recordStats(s, "scrape_specs", specStats)
		r.reportInvalid(s, errs)
		if err := s.store.ReplaceSpecs(s.ctx, specs); err != nil {
			return services.Wrap(services.ErrIO, "scrape", "store specifications", "", err)
		}
		s.summary.Set("specifications", len(specs))
	}
	return nil
}

func (r *Runner) recordStats(s *session, stage string, stats scrape.Stats) {
	s.summary.Set(stage+"_rows", stats.Rows)
	s.summary.AddIssues(stage, stats.Skipped)
	s.summary.AddIssues(stage, stats.Failed)
}

func (r *Runner) sourceFailed(s *session, stage string, err error) {
	s.summary.AddIssue(stage, services.Reason(err), 1)
	logging.WarnWithContext(s.logger, "catalog source unavailable; keeping previous records", "source_unavailable",
		logging.String(logging.FieldStage, stage),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check the source URL and network, then rerun scrape"),
		logging.String(logging.FieldImpact, "catalog keeps the records from the last successful scrape"),
	)
}

func (r *Runner) reportInvalid(s *session, errs []error) {
	s.summary.AddErrors("validate", errs)
	for _, err := range errs {
		logging.WarnWithContext(s.logger, "row dropped by validation", "row_invalid",
			logging.Error(err),
			logging.String(logging.FieldErrorKind, services.Reason(err)),
			logging.String(logging.FieldErrorHint, "the source row is missing a required cell"),
			logging.String(logging.FieldImpact, "row omitted from the catalog"),
		)
	}
}
