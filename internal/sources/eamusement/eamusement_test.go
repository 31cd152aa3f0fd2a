package eamusement_test

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"
	"testing"
	"time"

	"encore/internal/games"
	"encore/internal/logging"
	"encore/internal/sources"
	"encore/internal/sources/eamusement"
	"encore/internal/testsupport"
)

var emptyBlock = []string{"0", "0", "0", "0", "---", "NO PLAY", "---"}

// csvRow renders one pre-LEGGENDARIA row (41 columns) with only the
// ANOTHER block filled in.
func csvRow(title string, another []string, timestamp string) string {
	cols := []string{"28", title, "GENRE", "ARTIST", "3"}
	for _, diff := range []string{"BEGINNER", "NORMAL", "HYPER", "ANOTHER"} {
		block := emptyBlock
		if diff == "ANOTHER" && another != nil {
			block = another
		}
		cols = append(cols, block...)
	}
	cols = append(cols, timestamp)
	return strings.Join(cols, ",")
}

func csvBody(rows ...string) []byte {
	header := csvRow("header", nil, "last played")
	return []byte(header + "\n" + strings.Join(rows, "\n") + "\n")
}

func TestParseAndConvertPlayedDifficulty(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	chart := testsupport.SeedIIDXChart(t, store)
	src := eamusement.New(store)
	logger := logging.NewNop()

	body := csvBody(csvRow("5.1.1.", []string{"10", "1400", "600", "200", "5", "HARD CLEAR", "AAA"}, "2024-03-01 21:30"))

	batch, err := src.Parse(context.Background(), sources.Input{Body: body, Playtype: games.PlaytypeSP}, logger)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	recs := slices.Collect(batch.Records)
	// Three unplayed difficulties vanish; one record survives.
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}

	conv, err := src.Convert(context.Background(), recs[0], batch.Context, logger)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if conv.Chart.ChartID != chart.ChartID {
		t.Fatalf("resolved chart %s, want %s", conv.Chart.ChartID, chart.ChartID)
	}
	if conv.Dry.ScoreData.Score != 1400 {
		t.Fatalf("ex score = %v, want 1400", conv.Dry.ScoreData.Score)
	}
	if conv.Dry.ScoreData.Judgements["pgreat"] != 600 || conv.Dry.ScoreData.Judgements["great"] != 200 {
		t.Fatalf("judgements = %v", conv.Dry.ScoreData.Judgements)
	}
	if bp, ok := conv.Dry.ScoreData.HitMeta["bp"]; !ok || bp != 5 {
		t.Fatalf("bp = %v, want 5", bp)
	}

	// The site renders timestamps in JST with no zone marker.
	want := time.Date(2024, 3, 1, 21, 30, 0, 0, time.FixedZone("JST", 9*60*60)).UnixMilli()
	if conv.Dry.TimeAchieved == nil || *conv.Dry.TimeAchieved != want {
		t.Fatalf("timeAchieved = %v, want %d", conv.Dry.TimeAchieved, want)
	}
}

func TestParseMapsFullComboLamp(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.SeedIIDXChart(t, store)
	src := eamusement.New(store)

	body := csvBody(csvRow("5.1.1.", []string{"10", "1572", "786", "0", "0", "FULLCOMBO CLEAR", "MAX"}, ""))
	batch, err := src.Parse(context.Background(), sources.Input{Body: body, Playtype: games.PlaytypeSP}, logging.NewNop())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	recs := slices.Collect(batch.Records)

	conv, err := src.Convert(context.Background(), recs[0], batch.Context, logging.NewNop())
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if conv.Dry.ScoreData.Lamp != "FULL COMBO" {
		t.Fatalf("lamp = %q, want FULL COMBO", conv.Dry.ScoreData.Lamp)
	}
	if conv.Dry.TimeAchieved != nil {
		t.Fatal("a blank timestamp should yield no timeAchieved")
	}
}

func TestUntrackedMissCountStoresNullBP(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.SeedIIDXChart(t, store)
	src := eamusement.New(store)

	body := csvBody(csvRow("5.1.1.", []string{"10", "1400", "600", "200", "---", "CLEAR", "AAA"}, ""))
	batch, err := src.Parse(context.Background(), sources.Input{Body: body, Playtype: games.PlaytypeSP}, logging.NewNop())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	conv, err := src.Convert(context.Background(), slices.Collect(batch.Records)[0], batch.Context, logging.NewNop())
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	bp, ok := conv.Dry.ScoreData.HitMeta["bp"]
	if !ok {
		t.Fatal("untracked miss count should still store an explicit bp")
	}
	if bp != nil {
		t.Fatalf("bp = %v, want null for an untracked miss count", bp)
	}
}

func TestBadRowFailsOnlyItself(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.SeedIIDXChart(t, store)
	src := eamusement.New(store)

	body := csvBody(
		csvRow("5.1.1.", []string{"10", "not-a-number", "0", "0", "0", "CLEAR", "A"}, ""),
		csvRow("5.1.1.", []string{"10", "1400", "600", "200", "5", "CLEAR", "AAA"}, ""),
	)
	batch, err := src.Parse(context.Background(), sources.Input{Body: body, Playtype: games.PlaytypeSP}, logging.NewNop())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	recs := slices.Collect(batch.Records)
	if len(recs) != 2 {
		t.Fatalf("got %d records, want the bad row plus the good one", len(recs))
	}

	_, err = src.Convert(context.Background(), recs[0], batch.Context, logging.NewNop())
	if !errors.Is(err, sources.ErrInvalidScore) {
		t.Fatalf("bad row: want ErrInvalidScore, got %v", err)
	}
	if _, err := src.Convert(context.Background(), recs[1], batch.Context, logging.NewNop()); err != nil {
		t.Fatalf("good row failed: %v", err)
	}
}

func TestParseRejectsUnknownLayout(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	src := eamusement.New(store)

	body := []byte("a,b,c\n1,2,3\n")
	_, err := src.Parse(context.Background(), sources.Input{Body: body, Playtype: games.PlaytypeSP}, logging.NewNop())
	fatal, ok := sources.AsFatal(err)
	if !ok || fatal.StatusCode != http.StatusBadRequest {
		t.Fatalf("want fatal 400 for a 3-column csv, got %v", err)
	}
}

func TestParseRejectsBadPlaytype(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	src := eamusement.New(store)

	_, err := src.Parse(context.Background(), sources.Input{Body: csvBody(), Playtype: games.PlaytypeSingle}, logging.NewNop())
	fatal, ok := sources.AsFatal(err)
	if !ok || fatal.StatusCode != http.StatusBadRequest {
		t.Fatalf("want fatal 400 for playtype Single, got %v", err)
	}
}
