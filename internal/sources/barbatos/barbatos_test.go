package barbatos_test

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"testing"

	"encore/internal/games"
	"encore/internal/logging"
	"encore/internal/sources"
	"encore/internal/sources/barbatos"
	"encore/internal/storage"
	"encore/internal/testsupport"
)

func seedSDVXChart(t *testing.T, store *storage.Store) *storage.Chart {
	t.Helper()
	song := &storage.Song{Game: games.GameSDVX, SongID: 1, Title: "ALBIDA Powerless Mix"}
	chart := &storage.Chart{
		ChartID: "sdvx-1-adv", Game: games.GameSDVX, Playtype: games.PlaytypeSingle,
		SongID: 1, Difficulty: "ADV", LevelNum: 10, IsPrimary: true,
		Data: storage.ChartData{InGameID: 1},
	}
	testsupport.SeedCatalog(t, store, []*storage.Song{song}, []*storage.Chart{chart})
	return chart
}

const validBody = `{
	"difficulty": 2, "level": 10, "song_id": 1,
	"max_chain": 450, "critical": 900, "near_total": 80, "near_fast": 50, "near_slow": 30,
	"score": 9300000, "error": 12, "percent": 91.2,
	"did_fail": false, "clear_type": 2, "gauge_type": 1, "is_skill_analyser": false
}`

func TestConvertSingleScore(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	chart := seedSDVXChart(t, store)
	src := barbatos.New(store)

	batch, err := src.Parse(context.Background(), sources.Input{Body: []byte(validBody)}, logging.NewNop())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if batch.Game != games.GameSDVX {
		t.Fatalf("game = %s, want sdvx", batch.Game)
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
	if conv.Dry.ScoreData.Lamp != "CLEAR" {
		t.Fatalf("lamp = %q, want CLEAR", conv.Dry.ScoreData.Lamp)
	}
	// 9.3M out of 10M.
	if conv.Dry.ScoreData.Percent != 93 || conv.Dry.ScoreData.Grade != "AA" {
		t.Fatalf("derived %v %q, want 93 AA", conv.Dry.ScoreData.Percent, conv.Dry.ScoreData.Grade)
	}
	j := conv.Dry.ScoreData.Judgements
	if j["critical"] != 900 || j["near"] != 80 || j["miss"] != 12 {
		t.Fatalf("judgements = %v", j)
	}
	if conv.Dry.ScoreMeta["gaugeType"] != 1 || conv.Dry.ScoreMeta["isSkillAnalyser"] != false {
		t.Fatalf("score meta = %v", conv.Dry.ScoreMeta)
	}
	if conv.Dry.TimeAchieved == nil {
		t.Fatal("realtime pushes must carry a play time")
	}
}

func TestConvertUnknownSong(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	src := barbatos.New(store)

	batch, err := src.Parse(context.Background(), sources.Input{Body: []byte(validBody)}, logging.NewNop())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	_, err = src.Convert(context.Background(), slices.Collect(batch.Records)[0], batch.Context, logging.NewNop())
	if !errors.Is(err, sources.ErrDataNotFound) {
		t.Fatalf("want ErrDataNotFound, got %v", err)
	}
}

func TestParseRejectsBadBodies(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	src := barbatos.New(store)

	for _, body := range []string{
		`{`,
		`{"difficulty": 9, "song_id": 1, "percent": 50, "did_fail": false, "clear_type": 2, "gauge_type": 1, "is_skill_analyser": false}`,
		`{"difficulty": 2, "song_id": 1, "percent": 50}`, // missing required flags
		`{"difficulty": 2, "song_id": 1, "score": 20000000, "percent": 50, "did_fail": false, "clear_type": 2, "gauge_type": 1, "is_skill_analyser": false}`,
	} {
		_, err := src.Parse(context.Background(), sources.Input{Body: []byte(body)}, logging.NewNop())
		fatal, ok := sources.AsFatal(err)
		if !ok || fatal.StatusCode != http.StatusBadRequest {
			t.Fatalf("want fatal 400 for %s, got %v", body, err)
		}
	}
}
