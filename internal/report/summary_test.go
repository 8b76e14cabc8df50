package report_test

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"aecvision/internal/records"
	"aecvision/internal/report"
	"aecvision/internal/services"
)

func TestSummaryCountsAndIssues(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := report.New("run-1", "build", start)
	s.Set("details", 4)
	s.Set("linked", 3)
	s.Set("details", 5)
	s.AddIssue("enrich", "model", 1)
	s.AddIssue("enrich", "model", 2)
	s.AddIssue("enrich", "no_image", 0)
	s.AddIssues("link", map[string]int{"unmatched_spec": 2, "unmatched_detail": 1})
	s.AddErrors("validate", []error{&records.ValidationError{Kind: "detail", Field: "title"}})

	if s.Get("details") != 5 || s.Get("missing") != 0 {
		t.Fatalf("unexpected counters %+v", s.Counts)
	}
	if s.Counts[0].Name != "details" || s.Counts[1].Name != "linked" {
		t.Fatalf("expected first-set order, got %+v", s.Counts)
	}
	wantIssues := []report.Issue{
		{Stage: "enrich", Reason: "model", Count: 3},
		{Stage: "link", Reason: "unmatched_detail", Count: 1},
		{Stage: "link", Reason: "unmatched_spec", Count: 2},
		{Stage: "validate", Reason: "validation", Count: 1},
	}
	if len(s.Issues) != len(wantIssues) {
		t.Fatalf("unexpected issues %+v", s.Issues)
	}
	for i, want := range wantIssues {
		if s.Issues[i] != want {
			t.Fatalf("issue %d = %+v, want %+v", i, s.Issues[i], want)
		}
	}
	if s.IssueTotal() != 7 {
		t.Fatalf("IssueTotal = %d", s.IssueTotal())
	}

	s.Finish(start.Add(2*time.Second), nil)
	if s.Outcome != report.OutcomePartial || s.Duration != 2*time.Second {
		t.Fatalf("unexpected finish state %s %s", s.Outcome, s.Duration)
	}
}

func TestSummaryOutcomes(t *testing.T) {
	start := time.Now()
	ok := report.New("r", "scrape", start)
	ok.Finish(start, nil)
	if ok.Outcome != report.OutcomeSuccess {
		t.Fatalf("expected success, got %s", ok.Outcome)
	}

	failed := report.New("r", "build", start)
	failed.Finish(start, services.Wrap(services.ErrIO, "write", "dataset", "out.jsonl", errors.New("disk full")))
	if failed.Outcome != report.OutcomeFailed || !strings.Contains(failed.Error, "disk full") {
		t.Fatalf("unexpected failed summary %+v", failed)
	}
}

func TestSummaryRenderAndJSON(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := report.New("run-7", "build", start)
	s.Set("entries", 12)
	s.AddIssue("enrich", "timeout", 2)
	s.OutputPath = "/tmp/output.jsonl"
	s.Finish(start.Add(1500*time.Millisecond), nil)

	out := s.Render()
	for _, want := range []string{"build partial in 1.5s (run run-7)", "entries", "12", "timeout", "output: /tmp/output.jsonl"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in rendered summary:\n%s", want, out)
		}
	}

	data, err := s.JSON()
	if err != nil {
		t.Fatalf("JSON returned error: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if decoded["run_id"] != "run-7" || decoded["outcome"] != "partial" {
		t.Fatalf("unexpected json %s", data)
	}
}

func TestRenderTableEmptyHeaders(t *testing.T) {
	if got := report.RenderTable(nil, [][]string{{"x"}}, nil); got != "" {
		t.Fatalf("expected empty render, got %q", got)
	}
	got := report.RenderTable([]string{"A", "B"}, [][]string{{"only"}}, []report.Alignment{report.AlignLeft, report.AlignRight})
	if !strings.Contains(got, "only") || !strings.Contains(got, "╭") {
		t.Fatalf("unexpected table %q", got)
	}
}

func TestWriteTextfile(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := report.New("run-1", "build", start)
	s.Set("entries", 12)
	s.AddIssue("enrich", "model", 1)
	s.Finish(start.Add(3*time.Second), nil)

	path := filepath.Join(t.TempDir(), "aecvision.prom")
	if err := report.WriteTextfile(path, s); err != nil {
		t.Fatalf("WriteTextfile returned error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	for _, want := range []string{
		`aecvision_run_items{command="build",name="entries"} 12`,
		`aecvision_run_issues{command="build",reason="model",stage="enrich"} 1`,
		`aecvision_run_duration_seconds{command="build"} 3`,
		`aecvision_run_finished_timestamp_seconds{command="build",outcome="partial"}`,
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %q in textfile:\n%s", want, text)
		}
	}

	if err := report.WriteTextfile("", s); err != nil {
		t.Fatalf("expected empty path to be a no-op, got %v", err)
	}
}
