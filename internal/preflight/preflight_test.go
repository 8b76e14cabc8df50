package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"aecvision/internal/catalog"
	"aecvision/internal/config"
	"aecvision/internal/records"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "missing"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if !strings.Contains(result.Detail, "does not exist") {
		t.Fatalf("unexpected detail: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", file)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckBearerEndpoints(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Path {
		case "/account", "/api/whoami-v2":
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	tests := []struct {
		name   string
		check  func(ctx context.Context, baseURL, token string) Result
		token  string
		passed bool
	}{
		{name: "replicate ok", check: CheckReplicate, token: "good-token", passed: true},
		{name: "replicate bad token", check: CheckReplicate, token: "bad-token"},
		{name: "replicate missing token", check: CheckReplicate, token: ""},
		{name: "hub ok", check: CheckHub, token: "good-token", passed: true},
		{name: "hub bad token", check: CheckHub, token: "bad-token"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := tc.check(context.Background(), srv.URL, tc.token)
			if result.Passed != tc.passed {
				t.Fatalf("expected passed=%v, got %+v", tc.passed, result)
			}
		})
	}
}

func TestCheckRasterizer(t *testing.T) {
	cfg := config.Default()
	cfg.Conversion.PdftoppmBinary = "clearly-not-present-pdftoppm"
	if result := CheckRasterizer(context.Background(), &cfg); result.Passed {
		t.Fatalf("expected missing rasterizer, got %+v", result)
	}

	binDir := t.TempDir()
	stub := filepath.Join(binDir, "pdftoppm")
	if err := os.WriteFile(stub, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	cfg.Conversion.PdftoppmBinary = stub
	if result := CheckRasterizer(context.Background(), &cfg); !result.Passed {
		t.Fatalf("expected rasterizer available, got %+v", result)
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil, Options{}); results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_OfflineCredentials(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.DataDir = t.TempDir()
	cfg.Paths.StateDir = t.TempDir()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Enrichment.Enabled = true
	cfg.Enrichment.APIToken = ""
	cfg.Upload.RepoID = "owner/repo"
	cfg.Upload.Token = "hf_x"

	results := RunAll(context.Background(), &cfg, Options{})
	if len(results) != 6 {
		t.Fatalf("expected 6 results, got %+v", results)
	}
	byName := map[string]Result{}
	for _, r := range results {
		byName[r.Name] = r
	}
	if byName["Replicate"].Passed {
		t.Fatal("expected missing replicate token to fail")
	}
	if !byName["Hugging Face Hub"].Passed {
		t.Fatalf("expected hub token present, got %+v", byName["Hugging Face Hub"])
	}
	for _, name := range []string{"Data directory", "State directory", "Log directory"} {
		if !byName[name].Passed {
			t.Fatalf("expected %s to pass, got %+v", name, byName[name])
		}
	}
	failed := Failed(results)
	for _, r := range failed {
		if r.Name == "Hugging Face Hub" {
			t.Fatal("Failed returned a passing check")
		}
	}
}

func TestInspectCatalog(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "catalog.db")

	missing := InspectCatalog(ctx, path)
	if missing.Exists || missing.Result().Passed {
		t.Fatalf("expected missing catalog, got %+v", missing)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("preflight must not create the catalog")
	}

	store, err := catalog.Open(ctx, path)
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}
	if err := store.ReplaceDetails(ctx, []records.Detail{{Number: "072100-1", Title: "Slab"}}); err != nil {
		t.Fatal(err)
	}
	if err := store.ReplaceSpecs(ctx, []records.Specification{{Number: "07 21 00", Title: "Concrete"}}); err != nil {
		t.Fatal(err)
	}
	finished := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := store.RecordRun(ctx, catalog.Run{ID: "r1", Command: "scrape", StartedAt: finished.Add(-time.Minute), FinishedAt: finished, Outcome: "success"}); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	status := InspectCatalog(ctx, path)
	if status.Err != nil || !status.Exists {
		t.Fatalf("unexpected status %+v", status)
	}
	if !status.Result().Passed || status.Counts.Details != 1 || status.Counts.Specs != 1 {
		t.Fatalf("unexpected catalog result %+v", status.Result())
	}
	if got := status.LastRunDetail("scrape", finished.Add(2*time.Hour)); got != "success 2h0m0s ago" {
		t.Fatalf("LastRunDetail = %q", got)
	}
	if got := status.LastRunDetail("build", finished); got != "never" {
		t.Fatalf("LastRunDetail(build) = %q", got)
	}
}
