package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"aecvision/internal/catalog"
	"aecvision/internal/config"
	"aecvision/internal/enrichment"
	"aecvision/internal/logging"
	"aecvision/internal/notifications"
	"aecvision/internal/report"
	"aecvision/internal/scrape"
	"aecvision/internal/services"
	"aecvision/internal/services/hfhub"
)

// ErrLocked reports that another run holds the workspace lock.
var ErrLocked = errors.New("another aecvision run holds the workspace lock")

// Runner executes the scrape, build and upload commands against one
// workspace.
type Runner struct {
	cfg    *config.Config
	logger *slog.Logger
	now    func() time.Time

	scrapeOptions []scrape.Option
	hubOptions    []hfhub.Option
	captioner     enrichment.Captioner
	notifier      notifications.Service
}

// Option customizes a Runner.
type Option func(*Runner)

// WithScrapeOptions passes options to the scraper.
func WithScrapeOptions(opts ...scrape.Option) Option {
	return func(r *Runner) {
		r.scrapeOptions = append(r.scrapeOptions, opts...)
	}
}

// WithHubOptions passes options to the upload client.
func WithHubOptions(opts ...hfhub.Option) Option {
	return func(r *Runner) {
		r.hubOptions = append(r.hubOptions, opts...)
	}
}

// WithCaptioner replaces the hosted captioning client.
func WithCaptioner(c enrichment.Captioner) Option {
	return func(r *Runner) {
		r.captioner = c
	}
}

// WithNotifier replaces the run notification service.
func WithNotifier(n notifications.Service) Option {
	return func(r *Runner) {
		r.notifier = n
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

// New constructs a Runner.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Runner {
	if logger == nil {
		logger = logging.NewNop()
	}
	r := &Runner{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "pipeline"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.notifier == nil {
		r.notifier = notifications.NewService(cfg)
	}
	return r
}

// session holds the resources of one command run.
type session struct {
	ctx     context.Context
	runID   string
	lock    *flock.Flock
	store   *catalog.Store
	summary *report.Summary
	logger  *slog.Logger
}

// begin prepares directories, takes the workspace lock, opens the catalog and
// assigns a run ID.
func (r *Runner) begin(ctx context.Context, command string) (*session, error) {
	if r.cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, command, "config", "config is required", nil)
	}
	if err := r.cfg.EnsureDirectories(); err != nil {
		return nil, services.Wrap(services.ErrIO, command, "directories", "", err)
	}

	lock := flock.New(r.cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrIO, command, "lock", r.cfg.LockPath(), err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (%s)", ErrLocked, r.cfg.LockPath())
	}

	store, err := catalog.Open(ctx, r.cfg.CatalogPath())
	if err != nil {
		_ = lock.Unlock()
		return nil, services.Wrap(services.ErrIO, command, "open catalog", r.cfg.CatalogPath(), err)
	}

	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)
	ctx = services.WithStage(ctx, command)
	s := &session{
		ctx:     ctx,
		runID:   runID,
		lock:    lock,
		store:   store,
		summary: report.New(runID, command, r.now()),
		logger:  logging.WithContext(ctx, r.logger),
	}

	if pruned := logging.PruneLogs(r.logger, r.cfg.Paths.LogDir, r.cfg.Logging.RetentionDays, r.now()); pruned > 0 {
		s.logger.Debug("old log files pruned", logging.Int("count", pruned))
	}
	s.logger.Info("run started",
		logging.String(logging.FieldEventType, "run_started"),
		logging.String("command", command),
	)
	return s, nil
}

// finish stamps the summary, records the run, exports metrics and releases
// the session resources. It returns err unchanged.
func (r *Runner) finish(s *session, err error) error {
	s.summary.Finish(r.now(), err)

	// Run bookkeeping outlives a cancelled command context.
	bookCtx := context.WithoutCancel(s.ctx)
	if payload, jsonErr := s.summary.JSON(); jsonErr == nil {
		recordErr := s.store.RecordRun(bookCtx, catalog.Run{
			ID:          s.runID,
			Command:     s.summary.Command,
			StartedAt:   s.summary.StartedAt,
			FinishedAt:  s.summary.FinishedAt,
			Outcome:     s.summary.Outcome,
			SummaryJSON: string(payload),
		})
		if recordErr != nil {
			logging.WarnWithContext(s.logger, "run history not recorded", "run_record_failed",
				logging.Error(recordErr),
				logging.String(logging.FieldErrorHint, "check the catalog database"),
			)
		}
	}
	if metricsErr := report.WriteTextfile(r.cfg.Metrics.TextfilePath, s.summary); metricsErr != nil {
		logging.WarnWithContext(s.logger, "metrics textfile not written", "metrics_write_failed",
			logging.Error(metricsErr),
			logging.String("metrics_path", r.cfg.Metrics.TextfilePath),
			logging.String(logging.FieldErrorHint, "check metrics.textfile_path permissions"),
		)
	}

	if notifyErr := r.notifier.NotifyRunFinished(bookCtx, s.summary); notifyErr != nil {
		logging.WarnWithContext(s.logger, "run notification not delivered", "notification_failed",
			logging.Error(notifyErr),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
			logging.String(logging.FieldImpact, "run outcome is only visible in logs and status"),
		)
	}

	attrs := []logging.Attr{
		logging.String("outcome", s.summary.Outcome),
		logging.Duration("run_duration", s.summary.Duration),
		logging.Int("issues", s.summary.IssueTotal()),
	}
	if err != nil {
		attrs = append(attrs, logging.Error(err), logging.String(logging.FieldErrorKind, services.Reason(err)))
		logging.ErrorWithContext(s.logger, "run failed", "run_failed", attrs...)
	} else {
		attrs = append(attrs, logging.String(logging.FieldEventType, "run_finished"))
		s.logger.Info("run finished", logging.Args(attrs...)...)
	}

	if closeErr := s.store.Close(); closeErr != nil {
		s.logger.Debug("catalog close failed", logging.Error(closeErr))
	}
	if unlockErr := s.lock.Unlock(); unlockErr != nil {
		s.logger.Debug("workspace unlock failed", logging.Error(unlockErr))
	}
	return err
}
