package testsupport

import (
	"context"
	"testing"

	"encore/internal/config"
	"encore/internal/games"
	"encore/internal/storage"
)

// MustOpenStore opens a record store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *storage.Store {
	t.Helper()

	store, err := storage.Open(cfg)
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// SeedCatalog inserts reference songs and charts, failing the test on error.
func SeedCatalog(t testing.TB, store *storage.Store, songs []*storage.Song, charts []*storage.Chart) {
	t.Helper()

	if len(songs) > 0 {
		if err := store.InsertSongs(context.Background(), songs); err != nil {
			t.Fatalf("store.InsertSongs: %v", err)
		}
	}
	if len(charts) > 0 {
		if err := store.InsertCharts(context.Background(), charts); err != nil {
			t.Fatalf("store.InsertCharts: %v", err)
		}
	}
}

// SeedIIDXChart inserts one iidx SP chart with every lookup key populated
// and returns it. Tests that just need a resolvable chart start here.
func SeedIIDXChart(t testing.TB, store *storage.Store) *storage.Chart {
	t.Helper()

	song := &storage.Song{
		Game:   games.GameIIDX,
		SongID: 1,
		Title:  "5.1.1.",
		Artist: "dj nagureo",
	}
	chart := &storage.Chart{
		ChartID:    "iidx-1-sp-another",
		Game:       games.GameIIDX,
		Playtype:   games.PlaytypeSP,
		SongID:     1,
		Difficulty: "ANOTHER",
		Level:      "10",
		LevelNum:   10,
		Notecount:  786,
		IsPrimary:  true,
		Versions:   []string{"27", "28"},
		Data: storage.ChartData{
			InGameID:   1000,
			HashMD5:    "a44e67bbbe9bfd1d86d84ad09ba22ad6",
			HashSHA256: "2e3b7de2a1bd454fd713c0b9e921d19a9588e97bbfc2b4e1baeba67c58f1a232",
		},
	}
	SeedCatalog(t, store, []*storage.Song{song}, []*storage.Chart{chart})
	return chart
}
