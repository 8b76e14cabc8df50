package scrape

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"testing"
)

func stubCommand(t *testing.T, mode string, captured *[]string) {
	t.Helper()
	original := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		*captured = append([]string{name}, args...)
		cmd := exec.CommandContext(ctx, os.Args[0], "-test.run=TestHelperProcess")
		cmd.Env = append(os.Environ(),
			"GO_WANT_HELPER_PROCESS=1",
			"PDFTOPPM_HELPER_MODE="+mode,
			"PDFTOPPM_HELPER_PREFIX="+args[len(args)-1],
		)
		return cmd
	}
	t.Cleanup(func() {
		commandContext = original
	})
}

func TestPdftoppmRasterizeOrdersPages(t *testing.T) {
	var args []string
	stubCommand(t, "pages", &args)

	dir := t.TempDir()
	pages, err := Pdftoppm{Binary: "pdftoppm", DPI: 200}.Rasterize(context.Background(), filepath.Join(dir, "in.pdf"), dir)
	if err != nil {
		t.Fatalf("Rasterize returned error: %v", err)
	}
	want := []string{"page-01.png", "page-02.png", "page-10.png"}
	if len(pages) != len(want) {
		t.Fatalf("expected %d pages, got %v", len(want), pages)
	}
	for i, name := range want {
		if filepath.Base(pages[i]) != name {
			t.Fatalf("page %d = %s, want %s", i, filepath.Base(pages[i]), name)
		}
	}
	if args[0] != "pdftoppm" || args[1] != "-png" || args[2] != "-r" || args[3] != "200" {
		t.Fatalf("unexpected command line %v", args)
	}
}

func TestPdftoppmRasterizeFailure(t *testing.T) {
	var args []string
	stubCommand(t, "failure", &args)

	dir := t.TempDir()
	_, err := Pdftoppm{}.Rasterize(context.Background(), filepath.Join(dir, "in.pdf"), dir)
	if err == nil {
		t.Fatal("expected error from failing rasterizer")
	}
	if got := err.Error(); !containsAll(got, "pdftoppm", "Syntax Error") {
		t.Fatalf("expected stderr in error, got %q", got)
	}
}

func TestPdftoppmRasterizeNoPages(t *testing.T) {
	var args []string
	stubCommand(t, "empty", &args)

	dir := t.TempDir()
	if _, err := (Pdftoppm{}).Rasterize(context.Background(), filepath.Join(dir, "in.pdf"), dir); err == nil {
		t.Fatal("expected error when no pages are produced")
	}
}

func TestPageFileName(t *testing.T) {
	if got := PageFileName("072100-1", 2); got != "072100-1_2.png" {
		t.Fatalf("PageFileName = %q", got)
	}
	if got := PageFileName("03 30 00/1", 1); got != "03 30 00-1_1.png" {
		t.Fatalf("PageFileName sanitized = %q", got)
	}
}

func TestPageStems(t *testing.T) {
	tests := []struct {
		name    string
		numbers []string
		want    []string
	}{
		{"distinct", []string{"072100-1", "033000-1"}, []string{"072100-1", "033000-1"}},
		{"repeated number", []string{"SD-1", "SD-1"}, []string{"SD-1", "SD-1-2"}},
		{"same stem", []string{"A/1", "A-1", "A:1"}, []string{"A-1", "A-1-2", "A-1-3"}},
		{"suffix taken by a real number", []string{"B", "B", "B-2"}, []string{"B", "B-3", "B-2"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := PageStems(tc.numbers)
			if !slices.Equal(got, tc.want) {
				t.Fatalf("PageStems(%q) = %q, want %q", tc.numbers, got, tc.want)
			}
		})
	}
}

func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	prefix := os.Getenv("PDFTOPPM_HELPER_PREFIX")
	switch os.Getenv("PDFTOPPM_HELPER_MODE") {
	case "pages":
		for _, n := range []int{10, 2, 1} {
			name := fmt.Sprintf("%s-%02d.png", prefix, n)
			if err := os.WriteFile(name, []byte("png"+strconv.Itoa(n)), 0o644); err != nil {
				os.Exit(2)
			}
		}
		os.Exit(0)
	case "failure":
		fmt.Fprintln(os.Stderr, "Syntax Error: Couldn't read xref table")
		os.Exit(1)
	default:
		os.Exit(0)
	}
}

func containsAll(s string, parts ...string) bool {
	for _, part := range parts {
		if !strings.Contains(s, part) {
			return false
		}
	}
	return true
}
