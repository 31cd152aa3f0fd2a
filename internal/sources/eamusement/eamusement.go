// Package eamusement implements the file/eamusement-iidx-csv import
// source: the score CSV exported from the IIDX e-amusement website.
//
// Each CSV row describes one song with a fixed block of columns per
// difficulty; the parser splits rows into one record per played
// difficulty so the converter deals in single plays like every other
// source.
package eamusement

import (
	"bytes"
	"context"
	"encoding/csv"
	"iter"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"encore/internal/games"
	"encore/internal/sources"
	"encore/internal/storage"
)

// The e-amusement site renders timestamps in Japan Standard Time with no
// zone marker.
var jst = time.FixedZone("JST", 9*60*60)

// Per-row layout: leading song columns, then a 7-column block per
// difficulty, then the last-played timestamp.
const (
	songColumns  = 5
	blockColumns = 7
)

var preLeggendariaDiffs = []string{"BEGINNER", "NORMAL", "HYPER", "ANOTHER"}
var leggendariaDiffs = []string{"BEGINNER", "NORMAL", "HYPER", "ANOTHER", "LEGGENDARIA"}

var lampMap = map[string]string{
	"NO PLAY":         "NO PLAY",
	"FAILED":          "FAILED",
	"ASSIST CLEAR":    "ASSIST CLEAR",
	"EASY CLEAR":      "EASY CLEAR",
	"CLEAR":           "CLEAR",
	"HARD CLEAR":      "HARD CLEAR",
	"EX HARD CLEAR":   "EX HARD CLEAR",
	"FULLCOMBO CLEAR": "FULL COMBO",
}

// record is one (song, difficulty) play extracted from a CSV row.
type record struct {
	title        string
	difficulty   string
	exScore      int
	pgreat       int
	great        int
	missCount    *int
	lamp         string
	timeAchieved *int64
}

type batchContext struct {
	playtype games.Playtype
}

type Source struct {
	store *storage.Store
}

func New(store *storage.Store) *Source {
	return &Source{store: store}
}

func (s *Source) ImportType() string {
	return "file/eamusement-iidx-csv"
}

// Parse reads the whole CSV up front. Malformed CSV or an unrecognizable
// column layout rejects the file; individual bad rows only fail their own
// records.
func (s *Source) Parse(_ context.Context, input sources.Input, logger *slog.Logger) (*sources.Batch, error) {
	if !games.IsValidGPT(games.GameIIDX, input.Playtype) {
		return nil, sources.Fatalf(http.StatusBadRequest, "invalid iidx playtype %q", input.Playtype)
	}

	reader := csv.NewReader(bytes.NewReader(input.Body))
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, sources.Fatalf(http.StatusBadRequest, "invalid e-amusement csv: %v", err)
	}
	if len(rows) < 2 {
		return nil, sources.Fatalf(http.StatusBadRequest, "e-amusement csv has no score rows")
	}

	diffs, err := layoutFor(len(rows[0]))
	if err != nil {
		return nil, err
	}

	// Header row carries column names only.
	rows = rows[1:]

	records := make([]sources.Record, 0, len(rows)*2)
	for i, row := range rows {
		recs, err := splitRow(row, diffs)
		if err != nil {
			logger.Warn("skipping unreadable csv row", "row", i+2, "error", err)
			records = append(records, badRow{row: i + 2, err: err})
			continue
		}
		for _, r := range recs {
			records = append(records, r)
		}
	}

	seq := func(yield func(sources.Record) bool) {
		for _, r := range records {
			if !yield(r) {
				return
			}
		}
	}

	return &sources.Batch{
		Game:    games.GameIIDX,
		Records: iter.Seq[sources.Record](seq),
		Context: &batchContext{playtype: input.Playtype},
	}, nil
}

// badRow defers a row-level parse failure to conversion time so it is
// reported alongside the other per-record failures.
type badRow struct {
	row int
	err error
}

func layoutFor(columns int) ([]string, error) {
	switch columns {
	case songColumns + 4*blockColumns + 1:
		return preLeggendariaDiffs, nil
	case songColumns + 5*blockColumns + 1:
		return leggendariaDiffs, nil
	default:
		return nil, sources.Fatalf(http.StatusBadRequest,
			"unrecognized e-amusement csv layout (%d columns)", columns)
	}
}

// splitRow turns one CSV row into a record per difficulty that was
// actually played. Unplayed difficulties have an EX score of 0 and a
// NO PLAY lamp.
func splitRow(row []string, diffs []string) ([]*record, error) {
	title := strings.TrimSpace(row[1])
	if title == "" {
		return nil, sources.InvalidScoref("row has no song title")
	}

	timeAchieved := parseJSTTimestamp(row[len(row)-1])

	var records []*record
	for i, difficulty := range diffs {
		block := row[songColumns+i*blockColumns : songColumns+(i+1)*blockColumns]

		exScore, err := strconv.Atoi(strings.TrimSpace(block[1]))
		if err != nil {
			return nil, sources.InvalidScoref("%s %s: bad ex score %q", title, difficulty, block[1])
		}
		if exScore == 0 {
			continue
		}

		pgreat, err := strconv.Atoi(strings.TrimSpace(block[2]))
		if err != nil {
			return nil, sources.InvalidScoref("%s %s: bad pgreat count %q", title, difficulty, block[2])
		}
		great, err := strconv.Atoi(strings.TrimSpace(block[3]))
		if err != nil {
			return nil, sources.InvalidScoref("%s %s: bad great count %q", title, difficulty, block[3])
		}

		lamp, ok := lampMap[strings.TrimSpace(block[5])]
		if !ok {
			return nil, sources.InvalidScoref("%s %s: unknown clear lamp %q", title, difficulty, block[5])
		}
		if lamp == "NO PLAY" {
			continue
		}

		records = append(records, &record{
			title:        title,
			difficulty:   difficulty,
			exScore:      exScore,
			pgreat:       pgreat,
			great:        great,
			missCount:    parseMissCount(block[4]),
			lamp:         lamp,
			timeAchieved: timeAchieved,
		})
	}
	return records, nil
}

// The site writes "---" for miss counts it never tracked.
func parseMissCount(raw string) *int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return nil
	}
	return &n
}

func parseJSTTimestamp(raw string) *int64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	t, err := time.ParseInLocation("2006-01-02 15:04", raw, jst)
	if err != nil {
		return nil
	}
	millis := t.UnixMilli()
	return &millis
}

// Convert resolves the record's song by title and builds the dry score.
func (s *Source) Convert(ctx context.Context, rec sources.Record, batchCtx any, _ *slog.Logger) (*sources.ConvertedScore, error) {
	bctx, ok := batchCtx.(*batchContext)
	if !ok {
		return nil, sources.Internalf("eamusement context has wrong type %T", batchCtx)
	}

	if bad, ok := rec.(badRow); ok {
		return nil, sources.InvalidScoref("row %d: %v", bad.row, bad.err)
	}
	r, ok := rec.(*record)
	if !ok {
		return nil, sources.Internalf("eamusement record has wrong type %T", rec)
	}

	song, err := s.store.FindSongByTitle(ctx, games.GameIIDX, r.title)
	if err != nil {
		return nil, sources.Internalf("%v", err)
	}
	if song == nil {
		return nil, sources.NotFoundf("no iidx song titled %q", r.title)
	}

	chart, err := s.store.FindChartBySongDifficulty(ctx, games.GameIIDX, bctx.playtype, song.SongID, r.difficulty)
	if err != nil {
		return nil, sources.Internalf("%v", err)
	}
	if chart == nil {
		return nil, sources.NotFoundf("%q has no %s %s chart", r.title, bctx.playtype, r.difficulty)
	}

	cfg, err := games.GetGPTConfig(games.GameIIDX, bctx.playtype)
	if err != nil {
		return nil, sources.Internalf("%v", err)
	}
	percent, grade, err := sources.GradeAndPercentFromEX(cfg, r.exScore, chart.Notecount)
	if err != nil {
		return nil, err
	}

	// An untracked miss count ("---") still stores an explicit null bp,
	// matching the other converters' sentinel handling.
	hitMeta := map[string]any{"bp": nil}
	if r.missCount != nil {
		hitMeta["bp"] = *r.missCount
	}

	dry := sources.DryScore{
		Game:         games.GameIIDX,
		Service:      "e-amusement",
		TimeAchieved: r.timeAchieved,
		ScoreData: sources.DryScoreData{
			Score:   float64(r.exScore),
			Percent: percent,
			Grade:   grade,
			Lamp:    r.lamp,
			Judgements: map[string]int{
				"pgreat": r.pgreat,
				"great":  r.great,
			},
			HitMeta: hitMeta,
		},
		ScoreMeta: map[string]any{},
	}

	return &sources.ConvertedScore{Song: song, Chart: chart, Dry: dry}, nil
}
