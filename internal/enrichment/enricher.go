package enrichment

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"aecvision/internal/catalog"
	"aecvision/internal/linking"
	"aecvision/internal/logging"
	"aecvision/internal/services"
)

// EmptyCaptionPlaceholder replaces an empty model reply.
const EmptyCaptionPlaceholder = "No response generated"

const (
	defaultWorkers        = 4
	defaultRequestTimeout = 120 * time.Second
)

// Captioner produces a caption for an image as an ordered sequence of text
// fragments.
type Captioner interface {
	Caption(ctx context.Context, imageURL, prompt string) (iter.Seq[string], error)
}

// CaptionCache stores captions between runs.
type CaptionCache interface {
	LookupCaption(ctx context.Context, key catalog.CaptionKey) (string, bool, error)
	SaveCaption(ctx context.Context, key catalog.CaptionKey, caption, requestID string) error
}

// Options configures an Enricher.
type Options struct {
	ImageBaseURL   string
	Model          string
	Workers        int
	RequestTimeout time.Duration
	BenignMarkers  []string
}

// Result is the outcome for one record.
type Result struct {
	Index     int
	State     State
	Reason    string
	Cached    bool
	RequestID string
	ImageURL  string
	Err       error
}

// Summary aggregates the results of one Enrich call. Results is indexed like
// the input slice.
type Summary struct {
	Total     int
	Completed int
	Cached    int
	Skipped   int
	Reported  int
	Reasons   map[string]int
	Results   []Result
}

// Enricher attaches model captions to linked records.
type Enricher struct {
	captioner Captioner
	cache     CaptionCache
	opts      Options
	logger    *slog.Logger
}

// Option customizes an Enricher.
type Option func(*Enricher)

// WithCache enables the caption cache.
func WithCache(cache CaptionCache) Option {
	return func(e *Enricher) {
		e.cache = cache
	}
}

// New constructs an Enricher.
func New(captioner Captioner, opts Options, logger *slog.Logger, options ...Option) *Enricher {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultRequestTimeout
	}
	e := &Enricher{
		captioner: captioner,
		opts:      opts,
		logger:    logging.NewComponentLogger(logger, "enricher"),
	}
	for _, option := range options {
		option(e)
	}
	return e
}

// Prompt returns the question sent to the model for a detail titled title.
func Prompt(title string) string {
	return fmt.Sprintf("Can you explain what this %s drawing indicates? Provide as much detail as possible", title)
}

// Enrich captions every record using a bounded worker pool. A failure for one
// record never affects another. Records still waiting when ctx is cancelled
// are skipped.
func (e *Enricher) Enrich(ctx context.Context, records []*linking.LinkedRecord) Summary {
	ctx = services.WithStage(ctx, "enrich")
	results := make([]Result, len(records))
	for i := range results {
		results[i] = Result{Index: i, State: Pending}
	}

	var g errgroup.Group
	g.SetLimit(e.opts.Workers)
	for i, rec := range records {
		if ctx.Err() != nil {
			results[i] = e.skip(i, ReasonCancelled, ctx.Err())
			continue
		}
		g.Go(func() error {
			results[i] = e.enrichOne(ctx, i, rec)
			return nil
		})
	}
	_ = g.Wait()

	summary := Summary{Total: len(records), Reasons: map[string]int{}, Results: results}
	for _, res := range results {
		switch res.State {
		case Completed:
			summary.Completed++
			if res.Cached {
				summary.Cached++
			}
		case Skipped:
			summary.Skipped++
			summary.Reasons[res.Reason]++
			if res.Reason == ReasonModel || res.Reason == ReasonTimeout {
				summary.Reported++
			}
		}
	}
	logging.WithContext(ctx, e.logger).Info("enrichment finished",
		logging.String(logging.FieldEventType, "enrichment_finished"),
		logging.Int("records", summary.Total),
		logging.Int("captioned", summary.Completed),
		logging.Int("cached", summary.Cached),
		logging.Int("skipped", summary.Skipped),
		logging.Int("failed", summary.Reported),
	)
	return summary
}

// EnrichOne captions a single record.
func (e *Enricher) EnrichOne(ctx context.Context, rec *linking.LinkedRecord) Result {
	return e.enrichOne(services.WithStage(ctx, "enrich"), 0, rec)
}

func (e *Enricher) enrichOne(ctx context.Context, index int, rec *linking.LinkedRecord) Result {
	if err := ctx.Err(); err != nil {
		return e.skip(index, ReasonCancelled, err)
	}
	imageURL := rec.Detail.ImageURL(e.opts.ImageBaseURL)
	if imageURL == "" {
		e.logger.Debug("enrichment skipped; detail has no image",
			logging.String(logging.FieldRecord, rec.Detail.Number),
			logging.String("detail_link", rec.Detail.Link),
		)
		return e.skip(index, ReasonNoImage, nil)
	}
	prompt := Prompt(rec.Detail.Title)
	key := catalog.CaptionKey{ImageURL: imageURL, Prompt: prompt, Model: e.opts.Model}
	ctx = services.WithRecord(ctx, rec.Detail.FileName)
	logger := logging.WithContext(ctx, e.logger).With(logging.String("detail_number", rec.Detail.Number))

	if e.cache != nil {
		cached, ok, err := e.cache.LookupCaption(ctx, key)
		if err != nil {
			logger.Debug("caption cache lookup failed", logging.Error(err))
		} else if ok {
			complete(rec, prompt, cached, imageURL)
			logger.Debug("caption served from cache", logging.String(logging.FieldEventType, "caption_cached"))
			return Result{Index: index, State: Completed, Cached: true, ImageURL: imageURL}
		}
	}

	requested := Result{Index: index, State: Requested, ImageURL: imageURL}
	text, err := e.caption(ctx, imageURL, prompt)
	if err != nil {
		return e.fail(ctx, logger, requested, rec, err)
	}

	complete(rec, prompt, text, imageURL)
	if e.cache != nil {
		if err := e.cache.SaveCaption(ctx, key, rec.Description.Assistant, ""); err != nil {
			logger.Debug("caption cache store failed", logging.Error(err))
		}
	}
	logger.Debug("caption completed", logging.String(logging.FieldEventType, "caption_completed"))
	requested.State = Completed
	return requested
}

func (e *Enricher) caption(ctx context.Context, imageURL, prompt string) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, e.opts.RequestTimeout)
	defer cancel()

	fragments, err := e.captioner.Caption(reqCtx, imageURL, prompt)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for fragment := range fragments {
		b.WriteString(fragment)
	}
	if err := reqCtx.Err(); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (e *Enricher) fail(ctx context.Context, logger *slog.Logger, res Result, rec *linking.LinkedRecord, err error) Result {
	res.State = Skipped
	res.Err = services.Wrap(services.ErrModel, "enrich", "caption", rec.Detail.FileName, err)
	res.RequestID = RequestIDOf(err)

	switch {
	case ctx.Err() != nil:
		res.Reason = ReasonCancelled
		res.Err = err
		return res
	case IsKnownBenignFailure(err, e.opts.BenignMarkers):
		res.Reason = ReasonBenign
		logger.Debug("caption skipped after known benign failure",
			logging.String(logging.FieldEventType, "caption_benign_failure"),
			logging.Error(err),
		)
		return res
	case errors.Is(err, context.DeadlineExceeded):
		res.Reason = ReasonTimeout
	default:
		res.Reason = ReasonModel
	}

	logging.WarnWithContext(logger, "caption failed; record keeps its fallback answer", "caption_failed",
		logging.Error(err),
		logging.String(logging.FieldErrorKind, res.Reason),
		logging.String(logging.FieldRequestID, res.RequestID),
		logging.String("detail_link", rec.Detail.Link),
		logging.String(logging.FieldErrorHint, "inspect the prediction by request_id or rerun build to retry"),
		logging.String(logging.FieldImpact, "dataset entry uses the specification reference instead of a caption"),
	)
	return res
}

func (e *Enricher) skip(index int, reason string, err error) Result {
	return Result{Index: index, State: Skipped, Reason: reason, Err: err}
}

func complete(rec *linking.LinkedRecord, prompt, text, imageURL string) {
	if strings.TrimSpace(text) == "" {
		text = EmptyCaptionPlaceholder
	}
	rec.Description = &linking.TurnPair{User: prompt, Assistant: text}
	rec.Detail.Link = imageURL
}
