package scrape

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"aecvision/internal/config"
	"aecvision/internal/logging"
	"aecvision/internal/records"
	"aecvision/internal/services"
)

// Skip reasons recorded in Stats.Skipped for rows that produce no record.
const (
	SkipNoNumber = "no_number"
	SkipNoLink   = "no_link"
)

// Stats summarizes one table scrape.
type Stats struct {
	Source  string
	Rows    int
	Records int
	Pages   int
	// Skipped counts rows dropped before download by reason.
	Skipped map[string]int
	// Failed counts rows dropped because their document could not be
	// downloaded or converted, by failure reason.
	Failed map[string]int
}

func newStats(source string, rows int) Stats {
	return Stats{Source: source, Rows: rows, Skipped: map[string]int{}, Failed: map[string]int{}}
}

// Scraper reads the detail and specification catalogs and downloads the
// documents they link to.
type Scraper struct {
	client     *http.Client
	userAgent  string
	base       *url.URL
	detailsURL string
	specsURL   string
	dataDir    string
	workers    int
	rasterizer Rasterizer
	logger     *slog.Logger
}

// Option customizes a Scraper.
type Option func(*Scraper)

// WithHTTPClient overrides the HTTP client used for pages and documents.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Scraper) {
		if client != nil {
			s.client = client
		}
	}
}

// WithRasterizer overrides the PDF rasterizer.
func WithRasterizer(r Rasterizer) Option {
	return func(s *Scraper) {
		if r != nil {
			s.rasterizer = r
		}
	}
}

// New constructs a Scraper from configuration.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Scraper, error) {
	if cfg == nil {
		return nil, errors.New("scrape: config is required")
	}
	base, err := url.Parse(cfg.Sources.BaseURL + "/")
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "scrape", "base url", cfg.Sources.BaseURL, err)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Scraper{
		client:     &http.Client{Timeout: time.Duration(cfg.Sources.RequestTimeout) * time.Second},
		userAgent:  cfg.Sources.UserAgent,
		base:       base,
		detailsURL: cfg.Sources.DetailsURL,
		specsURL:   cfg.Sources.SpecsURL,
		dataDir:    cfg.Paths.DataDir,
		workers:    cfg.Sources.DownloadWorkers,
		rasterizer: Pdftoppm{Binary: cfg.PdftoppmBinary(), DPI: cfg.Conversion.DPI},
		logger:     logging.NewComponentLogger(logger, "scraper"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.workers <= 0 {
		s.workers = 1
	}
	return s, nil
}

// ReadTable fetches a catalog page and returns its table rows.
func (s *Scraper) ReadTable(ctx context.Context, pageURL string) ([]TableRow, error) {
	body, err := s.fetch(ctx, pageURL, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrSourceUnavailable, "scrape", "fetch table", pageURL, err)
	}
	rows, err := ParseTables(bytes.NewReader(body), s.base)
	if err != nil {
		return nil, services.Wrap(services.ErrSourceUnavailable, "scrape", "parse table", pageURL, err)
	}
	return rows, nil
}

// ScrapeDetails reads the detail catalog, rasterizes every linked PDF into
// data_dir and returns one row per saved page image in table order. A detail
// whose document cannot be downloaded or converted is dropped and counted in
// Stats.Failed. Rows whose numbers reduce to the same file stem get distinct
// page names (see PageStems).
func (s *Scraper) ScrapeDetails(ctx context.Context) ([]records.Row, Stats, error) {
	ctx = services.WithStage(ctx, "scrape_details")
	table, err := s.ReadTable(ctx, s.detailsURL)
	if err != nil {
		return nil, newStats(s.detailsURL, 0), err
	}
	if err := os.MkdirAll(s.dataDir, 0o755); err != nil {
		return nil, newStats(s.detailsURL, len(table)), services.Wrap(services.ErrIO, "scrape", "data dir", s.dataDir, err)
	}
	numbers := make([]string, len(table))
	for i, row := range table {
		cell, _ := row.Cell(0)
		numbers[i] = cell.Text
	}
	stems := PageStems(numbers)
	rows, stats := s.run(ctx, s.detailsURL, table, func(ctx context.Context, logger *slog.Logger, i int, row TableRow) rowOutcome {
		return s.detailRows(ctx, logger, row, stems[i])
	})
	for _, row := range rows {
		if row.FileName != nil {
			stats.Pages++
		}
	}
	return rows, stats, ctx.Err()
}

// ScrapeSpecifications reads the specification catalog and extracts the text
// of every linked DOCX document. A specification whose document cannot be
// downloaded or read is dropped and counted in Stats.Failed.
func (s *Scraper) ScrapeSpecifications(ctx context.Context) ([]records.Row, Stats, error) {
	ctx = services.WithStage(ctx, "scrape_specs")
	table, err := s.ReadTable(ctx, s.specsURL)
	if err != nil {
		return nil, newStats(s.specsURL, 0), err
	}
	rows, stats := s.run(ctx, s.specsURL, table, func(ctx context.Context, logger *slog.Logger, _ int, row TableRow) rowOutcome {
		return s.specRows(ctx, logger, row)
	})
	return rows, stats, ctx.Err()
}

type rowOutcome struct {
	rows    []records.Row
	skipped string
	err     error
}

type rowFunc func(ctx context.Context, logger *slog.Logger, index int, row TableRow) rowOutcome

// run processes table rows on a bounded pool and flattens the results in
// table order.
func (s *Scraper) run(ctx context.Context, source string, table []TableRow, fn rowFunc) ([]records.Row, Stats) {
	logger := logging.WithContext(ctx, s.logger)
	stats := newStats(source, len(table))
	outcomes := make([]rowOutcome, len(table))

	var (
		mu      sync.Mutex
		done    int
		sampler = logging.NewProgressSampler(10)
	)
	progress := func() {
		mu.Lock()
		defer mu.Unlock()
		done++
		if percent, ok := sampler.Observe(done, len(table)); ok {
			logger.Info("document downloads progress",
				logging.String(logging.FieldEventType, "scrape_progress"),
				logging.Float64(logging.FieldProgressPercent, percent),
				logging.Int("done", done),
				logging.Int("total", len(table)),
			)
		}
	}

	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, row := range table {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			outcomes[i] = fn(ctx, logger, i, row)
			progress()
			return nil
		})
	}
	_ = g.Wait()

	var out []records.Row
	for _, outcome := range outcomes {
		if outcome.skipped != "" {
			stats.Skipped[outcome.skipped]++
			continue
		}
		if outcome.err != nil {
			stats.Failed[services.Reason(outcome.err)]++
		}
		out = append(out, outcome.rows...)
	}
	stats.Records = len(out)
	logger.Info("catalog table scraped",
		logging.String(logging.FieldEventType, "scrape_complete"),
		logging.String("source_url", source),
		logging.Int("rows", stats.Rows),
		logging.Int("records", stats.Records),
	)
	return out, stats
}

func (s *Scraper) detailRows(ctx context.Context, logger *slog.Logger, row TableRow, stem string) rowOutcome {
	numberCell, _ := row.Cell(0)
	titleCell, hasTitle := row.Cell(1)
	linkCell, _ := row.Cell(2)

	if numberCell.Text == "" {
		logging.WarnWithContext(logger, "detail row has no number", "detail_skipped",
			logging.String("title", titleCell.Text),
			logging.String(logging.FieldErrorHint, "check the catalog row; it cannot be linked without a number"),
			logging.String(logging.FieldImpact, "detail omitted from the catalog"),
		)
		return rowOutcome{skipped: SkipNoNumber}
	}
	if linkCell.Href == "" {
		logger.Debug("detail row has no document link", logging.String(logging.FieldRecord, numberCell.Text))
		return rowOutcome{skipped: SkipNoLink}
	}

	base := records.Row{
		Number: records.Str(numberCell.Text),
		Link:   records.Str(linkCell.Href),
	}
	if hasTitle {
		base.Title = records.Str(titleCell.Text)
	}

	names, err := s.rasterizeDetail(ctx, stem, linkCell.Href)
	if err != nil {
		if ctx.Err() == nil {
			logging.WarnWithContext(logger, "detail document unavailable", "detail_dropped",
				logging.String(logging.FieldRecord, numberCell.Text),
				logging.String("link", linkCell.Href),
				logging.String(logging.FieldErrorKind, services.Reason(err)),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the document link and rerun scrape"),
				logging.String(logging.FieldImpact, "detail omitted from the catalog"),
			)
		}
		return rowOutcome{err: err}
	}

	rows := make([]records.Row, 0, len(names))
	for _, name := range names {
		r := base
		r.FileName = records.Str(name)
		rows = append(rows, r)
	}
	return rowOutcome{rows: rows}
}

func (s *Scraper) rasterizeDetail(ctx context.Context, stem, link string) ([]string, error) {
	data, err := s.fetch(ctx, link, isPDF)
	if err != nil {
		return nil, services.Wrap(services.ErrSourceUnavailable, "scrape", "download pdf", link, err)
	}

	workDir, err := os.MkdirTemp(s.dataDir, ".raster-*")
	if err != nil {
		return nil, services.Wrap(services.ErrIO, "scrape", "temp dir", s.dataDir, err)
	}
	defer os.RemoveAll(workDir)

	pdfPath := filepath.Join(workDir, "document.pdf")
	if err := os.WriteFile(pdfPath, data, 0o644); err != nil {
		return nil, services.Wrap(services.ErrIO, "scrape", "write pdf", pdfPath, err)
	}
	pages, err := s.rasterizer.Rasterize(ctx, pdfPath, workDir)
	if err != nil {
		return nil, services.Wrap(services.ErrConversion, "scrape", "rasterize", link, err)
	}
	names, err := movePages(pages, s.dataDir, stem)
	if err != nil {
		return nil, services.Wrap(services.ErrIO, "scrape", "save pages", link, err)
	}
	return names, nil
}

func (s *Scraper) specRows(ctx context.Context, logger *slog.Logger, row TableRow) rowOutcome {
	numberCell, _ := row.Cell(0)
	titleCell, hasTitle := row.Cell(1)

	if numberCell.Text == "" {
		logging.WarnWithContext(logger, "specification row has no number", "spec_skipped",
			logging.String("title", titleCell.Text),
			logging.String(logging.FieldErrorHint, "check the catalog row; it cannot be linked without a number"),
			logging.String(logging.FieldImpact, "specification omitted from the catalog"),
		)
		return rowOutcome{skipped: SkipNoNumber}
	}
	if numberCell.Href == "" {
		logger.Debug("specification row has no document link", logging.String(logging.FieldRecord, numberCell.Text))
		return rowOutcome{skipped: SkipNoLink}
	}

	out := records.Row{
		Number: records.Str(numberCell.Text),
		Link:   records.Str(numberCell.Href),
	}
	if hasTitle {
		out.Title = records.Str(titleCell.Text)
	}

	body, err := s.specBody(ctx, numberCell.Href)
	if err != nil {
		if ctx.Err() == nil {
			logging.WarnWithContext(logger, "specification document unavailable", "spec_dropped",
				logging.String(logging.FieldRecord, numberCell.Text),
				logging.String("link", numberCell.Href),
				logging.String(logging.FieldErrorKind, services.Reason(err)),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the document link and rerun scrape"),
				logging.String(logging.FieldImpact, "specification omitted from the catalog"),
			)
		}
		return rowOutcome{err: err}
	}
	out.Body = records.Str(body)
	return rowOutcome{rows: []records.Row{out}}
}

func (s *Scraper) specBody(ctx context.Context, link string) (string, error) {
	data, err := s.fetch(ctx, link, isDocx)
	if err != nil {
		return "", services.Wrap(services.ErrSourceUnavailable, "scrape", "download docx", link, err)
	}
	text, err := ExtractDocxText(data)
	if err != nil {
		return "", services.Wrap(services.ErrConversion, "scrape", "extract text", link, err)
	}
	return text, nil
}
