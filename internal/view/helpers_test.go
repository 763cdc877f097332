package view

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/hitoshi/watchfav/internal/catalog"
	"github.com/hitoshi/watchfav/internal/favorites"
	"github.com/hitoshi/watchfav/internal/model"
	"github.com/hitoshi/watchfav/internal/repository"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func testCatalog(t *testing.T) *catalog.StaticProvider {
	t.Helper()
	auto := true
	p, err := catalog.NewStaticProvider([]model.WatchItem{
		{ID: "1", WatchName: "Submariner", BrandName: "Rolex", Price: 9100, IsAutomatic: &auto,
			Feedbacks: []model.Feedback{{Author: "a", Rating: 5}, {Author: "b", Rating: 4}, {Author: "c", Rating: 4}}},
		{ID: "2", WatchName: "Speedmaster", BrandName: "Omega", Price: 6300},
		{ID: "3", WatchName: "Navitimer", BrandName: "Breitling", Price: 8200},
	})
	if err != nil {
		t.Fatalf("NewStaticProvider error: %v", err)
	}
	return p
}

type fixture struct {
	catalog *catalog.StaticProvider
	repo    *repository.MemoryKVRepo
	store   *favorites.Store
	nav     *Navigator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := repository.NewMemoryKVRepo()
	store := favorites.NewStore(repo, favorites.StoreOptions{Logger: discardLogger(), Timeout: time.Second})
	cat := testCatalog(t)
	return &fixture{
		catalog: cat,
		repo:    repo,
		store:   store,
		nav:     NewNavigator(cat, store, discardLogger(), nil),
	}
}

func favoriteIDs(cards []WatchCard) []string {
	var out []string
	for _, c := range cards {
		if c.IsFavorite {
			out = append(out, c.ID)
		}
	}
	return out
}

func sameStrings(got []string, want ...string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}
