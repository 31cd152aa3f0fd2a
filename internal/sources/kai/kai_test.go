package kai_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"
	"time"

	"encore/internal/games"
	"encore/internal/logging"
	"encore/internal/sources"
	"encore/internal/sources/kai"
	"encore/internal/storage"
	"encore/internal/testsupport"
)

func seedKaiIIDXChart(t *testing.T, store *storage.Store) *storage.Chart {
	t.Helper()
	song := &storage.Song{Game: games.GameIIDX, SongID: 1, Title: "AA"}
	chart := &storage.Chart{
		ChartID: "iidx-1-sp-another", Game: games.GameIIDX, Playtype: games.PlaytypeSP,
		SongID: 1, Difficulty: "ANOTHER", LevelNum: 12, Notecount: 1834, IsPrimary: true,
		Versions: []string{"27", "28"},
		Data:     storage.ChartData{InGameID: 22090},
	}
	testsupport.SeedCatalog(t, store, []*storage.Song{song}, []*storage.Chart{chart})
	return chart
}

// kaiServer serves a two-page play history plus a player profile.
func kaiServer(t *testing.T, scores []string, dan int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/iidx/v2/play_history", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		half := len(scores) / 2
		if r.URL.Query().Get("page") == "2" {
			fmt.Fprintf(w, `{"_links":{"_next":""},"_items":[%s]}`, join(scores[half:]))
			return
		}
		fmt.Fprintf(w, `{"_links":{"_next":"/api/iidx/v2/play_history?page=2"},"_items":[%s]}`, join(scores[:half]))
	})
	mux.HandleFunc("/api/iidx/v2/player_profile", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `{"dan":%d}`, dan)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func join(items []string) string {
	out := ""
	for i, item := range items {
		if i > 0 {
			out += ","
		}
		out += item
	}
	return out
}

func iidxPlayJSON(musicID, ex, lamp int) string {
	return fmt.Sprintf(`{"music_id":%d,"play_style":"SINGLE","difficulty":"ANOTHER","version_played":28,"lamp":%d,"ex_score":%d,"miss_count":-1,"timestamp":"2024-03-01 12:00:00"}`, musicID, lamp, ex)
}

func TestIIDXParseTraversesAllPages(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	chart := seedKaiIIDXChart(t, store)

	server := kaiServer(t, []string{
		iidxPlayJSON(22090, 3000, 5),
		iidxPlayJSON(22090, 3100, 6),
		iidxPlayJSON(22090, 3200, 7),
		iidxPlayJSON(22090, 3300, 7),
	}, 17)

	client := kai.NewClient(server.URL, kai.StaticToken("test-token"), 5*time.Second)
	src := kai.NewIIDX(store, "FLO", client)
	if src.ImportType() != "api/flo-iidx" {
		t.Fatalf("import type = %q", src.ImportType())
	}

	batch, err := src.Parse(context.Background(), sources.Input{UserID: 1}, logging.NewNop())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	recs := slices.Collect(batch.Records)
	if len(recs) != 4 {
		t.Fatalf("got %d records across pages, want 4", len(recs))
	}

	conv, err := src.Convert(context.Background(), recs[0], batch.Context, logging.NewNop())
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if conv.Chart.ChartID != chart.ChartID {
		t.Fatalf("resolved %s, want %s", conv.Chart.ChartID, chart.ChartID)
	}
	if conv.Dry.ScoreData.Lamp != "HARD CLEAR" {
		t.Fatalf("lamp = %q, want HARD CLEAR", conv.Dry.ScoreData.Lamp)
	}
	// The services send -1 for miss counts they never recorded.
	if conv.Dry.ScoreData.HitMeta["bp"] != nil {
		t.Fatalf("bp = %v, want nil", conv.Dry.ScoreData.HitMeta["bp"])
	}
	if conv.Dry.Service != "FLO" {
		t.Fatalf("service = %q, want FLO", conv.Dry.Service)
	}
	if conv.Dry.TimeAchieved == nil {
		t.Fatal("timestamped play lost its timeAchieved")
	}

	// The class handler reports the profile's dan.
	classes, err := batch.ClassHandler(context.Background(), games.GameIIDX, games.PlaytypeSP, 1, nil, logging.NewNop())
	if err != nil {
		t.Fatalf("ClassHandler: %v", err)
	}
	if classes["dan"] != "CHUUDEN" {
		t.Fatalf("dan = %q, want CHUUDEN for index 17", classes["dan"])
	}
}

func TestIIDXConvertRejectsUnsupportedVersion(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	seedKaiIIDXChart(t, store)

	server := kaiServer(t, []string{
		`{"music_id":22090,"play_style":"SINGLE","difficulty":"ANOTHER","version_played":12,"lamp":4,"ex_score":100,"timestamp":""}`,
		iidxPlayJSON(22090, 3000, 5),
	}, 0)

	client := kai.NewClient(server.URL, kai.StaticToken("test-token"), 5*time.Second)
	src := kai.NewIIDX(store, "EAG", client)

	batch, err := src.Parse(context.Background(), sources.Input{UserID: 1}, logging.NewNop())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	recs := slices.Collect(batch.Records)

	_, err = src.Convert(context.Background(), recs[0], batch.Context, logging.NewNop())
	if !errors.Is(err, sources.ErrInvalidScore) {
		t.Fatalf("want ErrInvalidScore for version 12, got %v", err)
	}
	if _, err := src.Convert(context.Background(), recs[1], batch.Context, logging.NewNop()); err != nil {
		t.Fatalf("supported version failed: %v", err)
	}
}

func TestParseFailsWithoutToken(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	client := kai.NewClient("http://127.0.0.1:0", kai.StaticToken(""), time.Second)
	src := kai.NewIIDX(store, "FLO", client)

	_, err := src.Parse(context.Background(), sources.Input{UserID: 1}, logging.NewNop())
	fatal, ok := sources.AsFatal(err)
	if !ok || fatal.StatusCode != http.StatusUnauthorized {
		t.Fatalf("want fatal 401, got %v", err)
	}
}

func TestTraverseKeepsPartialResultsOnPageFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	seedKaiIIDXChart(t, store)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/iidx/v2/play_history", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprintf(w, `{"_links":{"_next":"/api/iidx/v2/play_history?page=2"},"_items":[%s]}`, iidxPlayJSON(22090, 3000, 5))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client := kai.NewClient(server.URL, kai.StaticToken("test-token"), 5*time.Second)
	src := kai.NewIIDX(store, "FLO", client)

	batch, err := src.Parse(context.Background(), sources.Input{UserID: 1}, logging.NewNop())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	recs := slices.Collect(batch.Records)
	if len(recs) != 1 {
		t.Fatalf("got %d records, want the first page's score kept", len(recs))
	}
}

func TestTraverseStopsOnLoopingNextLink(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/sdvx/v1/play_history", func(w http.ResponseWriter, r *http.Request) {
		// The next link points right back at this page.
		fmt.Fprint(w, `{"_links":{"_next":"/api/sdvx/v1/play_history"},"_items":[{"music_id":1}]}`)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client := kai.NewClient(server.URL, kai.StaticToken("test-token"), 5*time.Second)
	src := kai.NewSDVX(store, "FLO", client)

	batch, err := src.Parse(context.Background(), sources.Input{UserID: 1}, logging.NewNop())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	recs := slices.Collect(batch.Records)
	if len(recs) != 1 {
		t.Fatalf("got %d records, want traversal stopped after one looping page", len(recs))
	}
}

func TestSDVXConvertResolvesVersionedSlotThree(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	song := &storage.Song{Game: games.GameSDVX, SongID: 5, Title: "Lachryma"}
	chart := &storage.Chart{
		ChartID: "sdvx-5-grv", Game: games.GameSDVX, Playtype: games.PlaytypeSingle,
		SongID: 5, Difficulty: "GRV", LevelNum: 19, IsPrimary: true,
		Versions: []string{"3"},
		Data:     storage.ChartData{InGameID: 1926},
	}
	testsupport.SeedCatalog(t, store, []*storage.Song{song}, []*storage.Chart{chart})

	mux := http.NewServeMux()
	mux.HandleFunc("/api/sdvx/v1/play_history", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"_links":{"_next":""},"_items":[
			{"music_id":1926,"music_difficulty":3,"played_version":3,"clear_type":3,"score":9650000,
			 "max_chain":1200,"critical":2000,"near":100,"error":30,"timestamp":"2024-03-01 12:00:00"}
		]}`)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client := kai.NewClient(server.URL, kai.StaticToken("test-token"), 5*time.Second)
	src := kai.NewSDVX(store, "FLO", client)

	batch, err := src.Parse(context.Background(), sources.Input{UserID: 1}, logging.NewNop())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	recs := slices.Collect(batch.Records)
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}

	conv, err := src.Convert(context.Background(), recs[0], batch.Context, logging.NewNop())
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if conv.Chart.ChartID != chart.ChartID {
		t.Fatalf("resolved %s, want %s", conv.Chart.ChartID, chart.ChartID)
	}
	if conv.Dry.ScoreData.Lamp != "EXCESSIVE CLEAR" {
		t.Fatalf("lamp = %q", conv.Dry.ScoreData.Lamp)
	}
	if conv.Dry.ScoreData.Percent != 96.5 {
		t.Fatalf("percent = %v, want 96.5", conv.Dry.ScoreData.Percent)
	}
}
