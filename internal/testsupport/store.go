package testsupport

import (
	"context"
	"testing"

	"aecvision/internal/catalog"
	"aecvision/internal/config"
)

// MustOpenCatalog opens the catalog for cfg and registers cleanup.
func MustOpenCatalog(t testing.TB, cfg *config.Config) *catalog.Store {
	t.Helper()

	store, err := catalog.Open(context.Background(), cfg.CatalogPath())
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
