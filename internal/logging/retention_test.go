package logging_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"aecvision/internal/logging"
)

func TestPruneLogsRemovesOnlyOldRotatedFiles(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	old := now.AddDate(0, 0, -40)

	write := func(name string, mod time.Time) string {
		t.Helper()
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		if err := os.Chtimes(path, mod, mod); err != nil {
			t.Fatalf("chtimes %s: %v", name, err)
		}
		return path
	}

	active := write(logging.LogFileName, old)
	stale := write("aecvision-2026-01-01.log", old)
	fresh := write("aecvision-recent.log", now)
	other := write("notes.txt", old)

	removed := logging.PruneLogs(logging.NewNop(), dir, 30, now)
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("expected stale log removed, stat err=%v", err)
	}
	for _, keep := range []string{active, fresh, other} {
		if _, err := os.Stat(keep); err != nil {
			t.Fatalf("expected %s kept: %v", keep, err)
		}
	}

	if got := logging.PruneLogs(nil, dir, 0, now); got != 0 {
		t.Fatalf("retention 0 should disable pruning, removed %d", got)
	}
}
