package scrape

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"aecvision/internal/textutil"
)

var commandContext = exec.CommandContext

// Rasterizer converts a PDF file into page images.
type Rasterizer interface {
	// Rasterize writes one PNG per page into outDir and returns their paths in
	// page order.
	Rasterize(ctx context.Context, pdfPath, outDir string) ([]string, error)
}

// Pdftoppm rasterizes with the poppler pdftoppm command.
type Pdftoppm struct {
	Binary string
	DPI    int
}

const pagePrefix = "page"

// Rasterize runs pdftoppm -png -r DPI pdfPath outDir/page.
func (p Pdftoppm) Rasterize(ctx context.Context, pdfPath, outDir string) ([]string, error) {
	binary := strings.TrimSpace(p.Binary)
	if binary == "" {
		binary = "pdftoppm"
	}
	args := []string{"-png"}
	if p.DPI > 0 {
		args = append(args, "-r", strconv.Itoa(p.DPI))
	}
	args = append(args, pdfPath, filepath.Join(outDir, pagePrefix))

	cmd := commandContext(ctx, binary, args...) //nolint:gosec
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%s: %w: %s", binary, err, msg)
		}
		return nil, fmt.Errorf("%s: %w", binary, err)
	}

	pages, err := collectPages(outDir)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("%s produced no pages", binary)
	}
	return pages, nil
}

// collectPages finds pdftoppm output ("page-1.png", "page-01.png", ...) and
// orders it by page number.
func collectPages(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, pagePrefix+"-*.png"))
	if err != nil {
		return nil, err
	}
	type page struct {
		path string
		num  int
	}
	pages := make([]page, 0, len(matches))
	for _, match := range matches {
		base := strings.TrimSuffix(filepath.Base(match), ".png")
		num, err := strconv.Atoi(strings.TrimPrefix(base, pagePrefix+"-"))
		if err != nil {
			continue
		}
		pages = append(pages, page{path: match, num: num})
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].num < pages[j].num })
	out := make([]string, len(pages))
	for i, p := range pages {
		out[i] = p.path
	}
	return out, nil
}

// PageFileName names the n-th page image (1-based) of a detail.
func PageFileName(number string, n int) string {
	return fmt.Sprintf("%s_%d.png", textutil.FileStem(number), n)
}

// PageStems assigns each detail number the stem its page images are saved
// under. Numbers are reduced with textutil.FileStem; when two rows reduce to
// the same stem, the first in table order keeps it and later ones get the
// lowest "-k" suffix (k >= 2) that no other row uses.
func PageStems(numbers []string) []string {
	natural := make(map[string]bool, len(numbers))
	for _, number := range numbers {
		natural[textutil.FileStem(number)] = true
	}
	used := make(map[string]bool, len(numbers))
	stems := make([]string, len(numbers))
	for i, number := range numbers {
		stem := textutil.FileStem(number)
		if used[stem] {
			base := stem
			for k := 2; ; k++ {
				stem = fmt.Sprintf("%s-%d", base, k)
				if !used[stem] && !natural[stem] {
					break
				}
			}
		}
		used[stem] = true
		stems[i] = stem
	}
	return stems
}

func movePages(pages []string, dataDir, stem string) ([]string, error) {
	names := make([]string, 0, len(pages))
	for i, src := range pages {
		name := PageFileName(stem, i+1)
		if err := os.Rename(src, filepath.Join(dataDir, name)); err != nil {
			return nil, fmt.Errorf("save page %d: %w", i+1, err)
		}
		names = append(names, name)
	}
	return names, nil
}
