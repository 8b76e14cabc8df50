package pipeline_test

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"aecvision/internal/config"
	"aecvision/internal/dataset"
	"aecvision/internal/logging"
	"aecvision/internal/pipeline"
	"aecvision/internal/report"
	"aecvision/internal/scrape"
	"aecvision/internal/services"
	"aecvision/internal/services/hfhub"
	"aecvision/internal/testsupport"
)

type fakeRasterizer struct{}

func (fakeRasterizer) Rasterize(_ context.Context, pdfPath, outDir string) ([]string, error) {
	data, err := os.ReadFile(pdfPath)
	if err != nil {
		return nil, err
	}
	if string(data) != "two-pages" {
		return nil, errors.New("corrupt pdf")
	}
	var out []string
	for i := 1; i <= 2; i++ {
		path := filepath.Join(outDir, fmt.Sprintf("page-%d.png", i))
		if err := os.WriteFile(path, []byte("png"), 0o644); err != nil {
			return nil, err
		}
		out = append(out, path)
	}
	return out, nil
}

type fakeCaptioner struct {
	mu     sync.Mutex
	images []string
}

func (f *fakeCaptioner) Caption(_ context.Context, imageURL, _ string) (iter.Seq[string], error) {
	f.mu.Lock()
	f.images = append(f.images, imageURL)
	f.mu.Unlock()
	return func(yield func(string) bool) {
		for _, fragment := range []string{"A slab ", "edge detail."} {
			if !yield(fragment) {
				return
			}
		}
	}, nil
}

type sourceServer struct {
	*httptest.Server
	mu         sync.Mutex
	specStatus int
}

func (s *sourceServer) failSpecs(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.specStatus = status
}

func newSourceServer(t *testing.T) *sourceServer {
	t.Helper()
	src := &sourceServer{}
	docx := testsupport.DocxBytes(t, "Thermal insulation.", "Install per manufacturer.")
	mux := http.NewServeMux()
	mux.HandleFunc("/til/sdetail.asp", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<table class="tblStandard">
<tr><th>Number</th><th>Title</th><th>Link</th></tr>
<tr><td>SD072100-01</td><td>Slab Edge</td><td><a href="/docs/slab.pdf">PDF</a></td></tr>
<tr><td>SD099999-01</td><td>Orphan</td><td><a href="/docs/orphan.pdf">PDF</a></td></tr>
<tr><td>SD033000-01</td><td>Broken</td><td><a href="/docs/broken.pdf">PDF</a></td></tr>
</table>`)
	})
	mux.HandleFunc("/til/spec.asp", func(w http.ResponseWriter, r *http.Request) {
		src.mu.Lock()
		status := src.specStatus
		src.mu.Unlock()
		if status != 0 {
			w.WriteHeader(status)
			return
		}
		fmt.Fprint(w, `<table class="tblStandard">
<tr><th>Number</th><th>Title</th></tr>
<tr><td><a href="/docs/072100.docx">07 21 00</a></td><td>Thermal Insulation</td></tr>
</table>`)
	})
	mux.HandleFunc("/docs/slab.pdf", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		fmt.Fprint(w, "two-pages")
	})
	mux.HandleFunc("/docs/orphan.pdf", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		fmt.Fprint(w, "two-pages")
	})
	mux.HandleFunc("/docs/broken.pdf", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		fmt.Fprint(w, "garbage")
	})
	mux.HandleFunc("/docs/072100.docx", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.wordprocessingml.document")
		_, _ = w.Write(docx)
	})
	src.Server = httptest.NewServer(mux)
	t.Cleanup(src.Close)
	return src
}

func newRunner(t *testing.T, src *sourceServer, opts ...testsupport.ConfigOption) (*pipeline.Runner, *config.Config) {
	t.Helper()
	opts = append([]testsupport.ConfigOption{
		testsupport.WithSources(src.URL+"/til/sdetail.asp", src.URL+"/til/spec.asp", src.URL),
		testsupport.WithStubbedBinaries(),
	}, opts...)
	cfg := testsupport.NewConfig(t, opts...)
	cfg.Enrichment.ImageBaseURL = "https://images.test/data"
	runner := pipeline.New(cfg, logging.NewNop(),
		pipeline.WithScrapeOptions(scrape.WithRasterizer(fakeRasterizer{}), scrape.WithHTTPClient(src.Client())),
	)
	return runner, cfg
}

func readEntries(t *testing.T, path string) []dataset.Entry {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open dataset: %v", err)
	}
	defer f.Close()
	var entries []dataset.Entry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry dataset.Entry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			t.Fatalf("decode %q: %v", scanner.Text(), err)
		}
		entries = append(entries, entry)
	}
	return entries
}

func TestScrapeThenBuildWithoutEnrichment(t *testing.T) {
	src := newSourceServer(t)
	runner, cfg := newRunner(t, src)
	ctx := context.Background()

	summary, err := runner.Scrape(ctx)
	if err != nil {
		t.Fatalf("Scrape returned error: %v", err)
	}
	if summary.Get("details") != 4 || summary.Get("specifications") != 1 || summary.Get("pages") != 4 {
		t.Fatalf("unexpected scrape counts: %+v", summary.Counts)
	}
	if summary.Outcome != report.OutcomePartial {
		t.Fatalf("expected partial outcome for the unconvertible detail, got %q", summary.Outcome)
	}
	if len(summary.Issues) != 1 || summary.Issues[0] != (report.Issue{Stage: "scrape_details", Reason: "conversion", Count: 1}) {
		t.Fatalf("expected one conversion issue, got %+v", summary.Issues)
	}

	summary, err = runner.Build(ctx, pipeline.BuildOptions{SkipEnrich: true})
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if summary.Get("linked") != 2 || summary.Get("unmatched_details") != 2 || summary.Get("entries") != 2 {
		t.Fatalf("unexpected build counts: %+v", summary.Counts)
	}
	if summary.OutputPath != cfg.Dataset.OutputPath {
		t.Fatalf("expected output path %q, got %q", cfg.Dataset.OutputPath, summary.OutputPath)
	}

	entries := readEntries(t, cfg.Dataset.OutputPath)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	for _, entry := range entries {
		if strings.Contains(entry.Conversations[0].Value, "broken.pdf") {
			t.Fatalf("unconvertible detail reached the dataset: %q", entry.Conversations[0].Value)
		}
	}
	first := entries[0]
	if first.ID != "construction_0" || entries[1].ID != "construction_1" {
		t.Fatalf("unexpected ids %q %q", first.ID, entries[1].ID)
	}
	if !strings.Contains(first.Conversations[0].Value, "https://images.test/data/SD072100-01_1.png") {
		t.Fatalf("expected hosted image in user turn, got %q", first.Conversations[0].Value)
	}
	wantAnswer := "The specification Thermal Insulation for Slab Edge can be found in the following document: " + src.URL + "/docs/072100.docx"
	if first.Conversations[1].Value != wantAnswer {
		t.Fatalf("assistant turn = %q, want %q", first.Conversations[1].Value, wantAnswer)
	}
}

func TestBuildWithCaptions(t *testing.T) {
	src := newSourceServer(t)
	runner, cfg := newRunner(t, src, testsupport.WithReplicateToken("r8_test", ""))
	captioner := &fakeCaptioner{}
	runner = pipeline.New(cfg, logging.NewNop(),
		pipeline.WithScrapeOptions(scrape.WithRasterizer(fakeRasterizer{}), scrape.WithHTTPClient(src.Client())),
		pipeline.WithCaptioner(captioner),
	)
	ctx := context.Background()
	if _, err := runner.Scrape(ctx); err != nil {
		t.Fatalf("Scrape returned error: %v", err)
	}

	summary, err := runner.Build(ctx, pipeline.BuildOptions{})
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if summary.Get("captioned") != 2 || summary.Get("cached") != 0 {
		t.Fatalf("unexpected enrichment counts: %+v", summary.Counts)
	}
	for _, entry := range readEntries(t, cfg.Dataset.OutputPath) {
		if entry.Conversations[1].Value != "A slab edge detail." {
			t.Fatalf("expected caption answer, got %q", entry.Conversations[1].Value)
		}
	}

	summary, err = runner.Build(ctx, pipeline.BuildOptions{})
	if err != nil {
		t.Fatalf("second Build returned error: %v", err)
	}
	if summary.Get("cached") != 2 {
		t.Fatalf("expected captions served from cache, got %+v", summary.Counts)
	}
	if len(captioner.images) != 2 {
		t.Fatalf("expected 2 model calls across both builds, got %d", len(captioner.images))
	}
}

func TestBuildFirstImageCaptionsOnlySelectedPages(t *testing.T) {
	src := newSourceServer(t)
	runner, cfg := newRunner(t, src, testsupport.WithReplicateToken("r8_test", ""))
	cfg.Dataset.ImagePolicy = config.ImagePolicyFirstImage
	captioner := &fakeCaptioner{}
	runner = pipeline.New(cfg, logging.NewNop(),
		pipeline.WithScrapeOptions(scrape.WithRasterizer(fakeRasterizer{}), scrape.WithHTTPClient(src.Client())),
		pipeline.WithCaptioner(captioner),
	)
	ctx := context.Background()
	if _, err := runner.Scrape(ctx); err != nil {
		t.Fatalf("Scrape returned error: %v", err)
	}

	summary, err := runner.Build(ctx, pipeline.BuildOptions{})
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if summary.Get("linked") != 2 || summary.Get("selected") != 1 || summary.Get("captioned") != 1 || summary.Get("entries") != 1 {
		t.Fatalf("unexpected build counts: %+v", summary.Counts)
	}
	if len(captioner.images) != 1 || captioner.images[0] != "https://images.test/data/SD072100-01_1.png" {
		t.Fatalf("expected only the first page captioned, got %v", captioner.images)
	}
}

func TestBuildWithoutCredentialsRecordsIssue(t *testing.T) {
	src := newSourceServer(t)
	runner, cfg := newRunner(t, src)
	cfg.Enrichment.Enabled = true
	ctx := context.Background()
	if _, err := runner.Scrape(ctx); err != nil {
		t.Fatalf("Scrape returned error: %v", err)
	}

	summary, err := runner.Build(ctx, pipeline.BuildOptions{})
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if summary.Outcome != report.OutcomePartial {
		t.Fatalf("expected partial outcome, got %q", summary.Outcome)
	}
	found := false
	for _, issue := range summary.Issues {
		if issue.Stage == "enrich" && issue.Reason == "configuration" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected enrich configuration issue, got %+v", summary.Issues)
	}
}

func TestBuildOnEmptyCatalogFails(t *testing.T) {
	src := newSourceServer(t)
	runner, cfg := newRunner(t, src)

	summary, err := runner.Build(context.Background(), pipeline.BuildOptions{SkipEnrich: true})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if summary.Outcome != report.OutcomeFailed {
		t.Fatalf("expected failed outcome, got %q", summary.Outcome)
	}
	if _, statErr := os.Stat(cfg.Dataset.OutputPath); !os.IsNotExist(statErr) {
		t.Fatalf("expected no dataset file, stat err = %v", statErr)
	}

	store := testsupport.MustOpenCatalog(t, cfg)
	run, err := store.LastRun(context.Background(), "build")
	if err != nil {
		t.Fatalf("LastRun returned error: %v", err)
	}
	if run == nil || run.Outcome != report.OutcomeFailed || run.ID != summary.RunID {
		t.Fatalf("expected failed build recorded, got %+v", run)
	}
}

type recordingNotifier struct {
	summaries []*report.Summary
}

func (n *recordingNotifier) NotifyRunFinished(_ context.Context, s *report.Summary) error {
	n.summaries = append(n.summaries, s)
	return nil
}

func (n *recordingNotifier) TestNotification(context.Context) error { return nil }

func TestRunNotifiesWhenFinished(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	notifier := &recordingNotifier{}
	runner := pipeline.New(cfg, logging.NewNop(), pipeline.WithNotifier(notifier))

	if _, err := runner.Build(context.Background(), pipeline.BuildOptions{}); err == nil {
		t.Fatal("expected build on empty catalog to fail")
	}
	if len(notifier.summaries) != 1 || notifier.summaries[0].Outcome != report.OutcomeFailed {
		t.Fatalf("expected one failed run notification, got %+v", notifier.summaries)
	}
}

func TestBuildCancelledKeepsPreviousDataset(t *testing.T) {
	src := newSourceServer(t)
	runner, cfg := newRunner(t, src)
	if _, err := runner.Scrape(context.Background()); err != nil {
		t.Fatalf("Scrape returned error: %v", err)
	}
	testsupport.WriteFile(t, cfg.Dataset.OutputPath, []byte("previous\n"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := runner.Build(ctx, pipeline.BuildOptions{SkipEnrich: true}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	data, err := os.ReadFile(cfg.Dataset.OutputPath)
	if err != nil || string(data) != "previous\n" {
		t.Fatalf("expected previous dataset kept, got %q (%v)", data, err)
	}
}

func TestScrapeKeepsCatalogWhenOneSourceFails(t *testing.T) {
	src := newSourceServer(t)
	runner, cfg := newRunner(t, src)
	ctx := context.Background()
	if _, err := runner.Scrape(ctx); err != nil {
		t.Fatalf("Scrape returned error: %v", err)
	}

	src.failSpecs(http.StatusServiceUnavailable)
	summary, err := runner.Scrape(ctx)
	if err != nil {
		t.Fatalf("Scrape returned error: %v", err)
	}
	if summary.Outcome != report.OutcomePartial {
		t.Fatalf("expected partial outcome, got %q", summary.Outcome)
	}

	store := testsupport.MustOpenCatalog(t, cfg)
	specs, err := store.Specs(ctx)
	if err != nil {
		t.Fatalf("Specs returned error: %v", err)
	}
	if len(specs) != 1 || specs[0].Number != "07 21 00" {
		t.Fatalf("expected previous specifications kept, got %+v", specs)
	}
}

func TestScrapeFailsWhenBothSourcesFail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()
	cfg := testsupport.NewConfig(t,
		testsupport.WithSources(server.URL+"/details", server.URL+"/specs", server.URL),
		testsupport.WithStubbedBinaries(),
	)
	runner := pipeline.New(cfg, logging.NewNop(), pipeline.WithScrapeOptions(scrape.WithHTTPClient(server.Client())))

	_, err := runner.Scrape(context.Background())
	if !errors.Is(err, services.ErrSourceUnavailable) {
		t.Fatalf("expected source unavailable, got %v", err)
	}
}

func TestScrapeRequiresRasterizer(t *testing.T) {
	src := newSourceServer(t)
	cfg := testsupport.NewConfig(t, testsupport.WithSources(src.URL+"/a", src.URL+"/b", src.URL))
	cfg.Conversion.PdftoppmBinary = filepath.Join(t.TempDir(), "missing-pdftoppm")
	runner := pipeline.New(cfg, logging.NewNop())

	_, err := runner.Scrape(context.Background())
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestRunRefusesHeldLock(t *testing.T) {
	src := newSourceServer(t)
	runner, cfg := newRunner(t, src)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	lock := flock.New(cfg.LockPath())
	if ok, err := lock.TryLock(); err != nil || !ok {
		t.Fatalf("take lock: ok=%v err=%v", ok, err)
	}
	defer lock.Unlock()

	if _, err := runner.Scrape(context.Background()); !errors.Is(err, pipeline.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
}

func TestRunWritesMetricsTextfile(t *testing.T) {
	src := newSourceServer(t)
	runner, cfg := newRunner(t, src)
	cfg.Metrics.TextfilePath = filepath.Join(t.TempDir(), "aecvision.prom")
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	runner = pipeline.New(cfg, logging.NewNop(),
		pipeline.WithScrapeOptions(scrape.WithRasterizer(fakeRasterizer{}), scrape.WithHTTPClient(src.Client())),
		pipeline.WithClock(func() time.Time { return now }),
	)

	if _, err := runner.Scrape(context.Background()); err != nil {
		t.Fatalf("Scrape returned error: %v", err)
	}
	data, err := os.ReadFile(cfg.Metrics.TextfilePath)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	if !strings.Contains(string(data), `aecvision_run_items{command="scrape",name="details"} 4`) {
		t.Fatalf("expected detail gauge, got %s", data)
	}
}

func TestUploadPublishesDataset(t *testing.T) {
	var (
		mu      sync.Mutex
		paths   []string
		payload []byte
	)
	hub := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		paths = append(paths, r.URL.Path)
		if strings.Contains(r.URL.Path, "/commit/") {
			payload = body
		}
		mu.Unlock()
		switch r.URL.Path {
		case "/api/repos/create":
			w.WriteHeader(http.StatusConflict)
		case "/api/datasets/owner/aec-details/commit/main":
			_, _ = io.WriteString(w, `{"commitUrl":"https://hub.test/commit/abc","commitOid":"abc"}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer hub.Close()

	cfg := testsupport.NewConfig(t)
	cfg.Upload.RepoID = "owner/aec-details"
	cfg.Upload.Token = "hf_test"
	cfg.Upload.BaseURL = hub.URL
	cfg.Upload.CreateRepo = true
	testsupport.WriteFile(t, cfg.Dataset.OutputPath, []byte("{\"id\":\"construction_0\"}\n"))
	runner := pipeline.New(cfg, logging.NewNop(), pipeline.WithHubOptions(hfhub.WithHTTPClient(hub.Client())))

	summary, err := runner.Upload(context.Background())
	if err != nil {
		t.Fatalf("Upload returned error: %v", err)
	}
	if summary.OutputPath != "https://hub.test/commit/abc" || summary.Get("bytes") != 24 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if len(paths) != 2 || paths[0] != "/api/repos/create" {
		t.Fatalf("unexpected request sequence %v", paths)
	}
	if !strings.Contains(string(payload), summary.RunID) {
		t.Fatalf("expected commit summary to name the run, got %s", payload)
	}
}

func TestUploadWithoutDatasetFails(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Upload.RepoID = "owner/aec-details"
	cfg.Upload.Token = "hf_test"
	runner := pipeline.New(cfg, logging.NewNop())

	if _, err := runner.Upload(context.Background()); !errors.Is(err, services.ErrIO) {
		t.Fatalf("expected io error, got %v", err)
	}
}

func TestUploadRequiresRepo(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	runner := pipeline.New(cfg, logging.NewNop())

	if _, err := runner.Upload(context.Background()); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
