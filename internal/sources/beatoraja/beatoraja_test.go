package beatoraja_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"testing"

	"encore/internal/games"
	"encore/internal/logging"
	"encore/internal/sources"
	"encore/internal/sources/beatoraja"
	"encore/internal/storage"
	"encore/internal/testsupport"
)

const (
	testSHA256 = "b5a2c96250612366ea272ffac6d9744aaf4b45aacd96aa7cfcb931ee3b558259"
	testMD5    = "a8f5f167f44f4964e6c998dee827110c"
)

func seedBMSChart(t *testing.T, store *storage.Store) *storage.Chart {
	t.Helper()
	song := &storage.Song{Game: games.GameBMS, SongID: 1, Title: "Air"}
	chart := &storage.Chart{
		ChartID: "bms-1-7k", Game: games.GameBMS, Playtype: games.Playtype7K,
		SongID: 1, Difficulty: "CHART", LevelNum: 11, Notecount: 1200, IsPrimary: true,
		Data: storage.ChartData{HashMD5: testMD5, HashSHA256: testSHA256},
	}
	testsupport.SeedCatalog(t, store, []*storage.Song{song}, []*storage.Chart{chart})
	return chart
}

func requestBody(clear string, exScore, minBP int, gauge float64) []byte {
	return []byte(fmt.Sprintf(`{
		"client": "beatoraja 0.8.7",
		"score": {"sha256": %q, "exscore": %d, "gauge": %v, "minbp": %d, "clear": %q, "maxcombo": 500,
		          "epg": 400, "lpg": 100, "egr": 150, "lgr": 50, "egd": 20, "lgd": 10, "ebd": 4, "lbd": 2, "epr": 5, "lpr": 3},
		"chart": {"md5": %q, "sha256": %q, "title": "Air", "mode": "BEAT_7K", "notes": 1200}
	}`, testSHA256, exScore, gauge, minBP, clear, testMD5, testSHA256))
}

func convertOne(t *testing.T, store *storage.Store, body []byte) (*sources.ConvertedScore, error) {
	t.Helper()
	src := beatoraja.New(store)
	batch, err := src.Parse(context.Background(), sources.Input{Body: body}, logging.NewNop())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	recs := slices.Collect(batch.Records)
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}
	return src.Convert(context.Background(), recs[0], batch.Context, logging.NewNop())
}

func TestConvertResolvesByHashAndSumsJudgements(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	chart := seedBMSChart(t, store)

	conv, err := convertOne(t, store, requestBody("Hard", 1800, 12, 95.5))
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if conv.Chart.ChartID != chart.ChartID {
		t.Fatalf("resolved %s, want %s", conv.Chart.ChartID, chart.ChartID)
	}
	if conv.Dry.ScoreData.Lamp != "HARD CLEAR" {
		t.Fatalf("lamp = %q, want HARD CLEAR", conv.Dry.ScoreData.Lamp)
	}
	// Early and late counts fold into one judgement each.
	j := conv.Dry.ScoreData.Judgements
	if j["pgreat"] != 500 || j["great"] != 200 || j["good"] != 30 || j["bad"] != 6 || j["poor"] != 8 {
		t.Fatalf("judgements = %v", j)
	}
	if conv.Dry.ScoreData.HitMeta["bp"] != 12 {
		t.Fatalf("bp = %v, want 12", conv.Dry.ScoreData.HitMeta["bp"])
	}
	// 1800 / 2400 EX.
	if conv.Dry.ScoreData.Percent != 75 {
		t.Fatalf("percent = %v, want 75", conv.Dry.ScoreData.Percent)
	}
	if conv.Dry.TimeAchieved == nil {
		t.Fatal("realtime pushes must carry a play time")
	}
}

func TestConvertPerfectIsFullCombo(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	seedBMSChart(t, store)

	conv, err := convertOne(t, store, requestBody("Perfect", 2400, 0, 100))
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if conv.Dry.ScoreData.Lamp != "FULL COMBO" {
		t.Fatalf("lamp = %q, want FULL COMBO", conv.Dry.ScoreData.Lamp)
	}
}

func TestConvertAbortedPlaySentinels(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	seedBMSChart(t, store)

	// minbp beyond the notecount and a gauge past full both mean unknown.
	conv, err := convertOne(t, store, requestBody("Failed", 600, 65535, 250))
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if conv.Dry.ScoreData.HitMeta["bp"] != nil {
		t.Fatalf("bp = %v, want nil", conv.Dry.ScoreData.HitMeta["bp"])
	}
	if conv.Dry.ScoreData.HitMeta["gauge"] != nil {
		t.Fatalf("gauge = %v, want nil", conv.Dry.ScoreData.HitMeta["gauge"])
	}
}

func TestConvertPlaytypeMismatch(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	seedBMSChart(t, store)

	body := []byte(fmt.Sprintf(`{
		"client": "beatoraja 0.8.7",
		"score": {"sha256": %q, "exscore": 100, "clear": "Normal", "minbp": 0},
		"chart": {"md5": %q, "sha256": %q, "mode": "BEAT_14K", "notes": 1200}
	}`, testSHA256, testMD5, testSHA256))

	_, err := convertOne(t, store, body)
	if !errors.Is(err, sources.ErrInvalidScore) {
		t.Fatalf("want ErrInvalidScore for a 7K chart played as 14K, got %v", err)
	}
}

func TestConvertUnknownChart(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	_, err := convertOne(t, store, requestBody("Normal", 100, 0, 50))
	if !errors.Is(err, sources.ErrDataNotFound) {
		t.Fatalf("want ErrDataNotFound, got %v", err)
	}
}

func TestParseRejectsBadEnvelope(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	src := beatoraja.New(store)

	for _, body := range []string{
		`not json`,
		`{"score": {}, "chart": {}}`,
		fmt.Sprintf(`{"client":"x","score":{"sha256":%q,"clear":"Normal"},"chart":{"md5":%q,"sha256":%q,"mode":"POPN_9K","notes":100}}`, testSHA256, testMD5, testSHA256),
	} {
		_, err := src.Parse(context.Background(), sources.Input{Body: []byte(body)}, logging.NewNop())
		fatal, ok := sources.AsFatal(err)
		if !ok || fatal.StatusCode != http.StatusBadRequest {
			t.Fatalf("want fatal 400 for %s, got %v", body, err)
		}
	}
}
