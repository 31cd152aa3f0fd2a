// Package barbatos implements the ir/barbatos import source: single SDVX
// scores pushed by the Barbatos client as each play finishes.
package barbatos

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"encore/internal/games"
	"encore/internal/sources"
	"encore/internal/storage"
)

var difficultyMap = map[int]string{
	1: "NOV",
	2: "ADV",
	3: "EXH",
	4: "MXM",
}

var lampMap = map[int]string{
	1: "FAILED",
	2: "CLEAR",
	3: "EXCESSIVE CLEAR",
	4: "ULTIMATE CHAIN",
	5: "PERFECT ULTIMATE CHAIN",
}

// score is the request body the client sends, one play per request.
type score struct {
	Difficulty      *int     `json:"difficulty" validate:"required,min=1,max=4"`
	Level           int      `json:"level" validate:"min=1,max=20"`
	SongID          int      `json:"song_id" validate:"min=1"`
	MaxChain        int      `json:"max_chain" validate:"min=0"`
	Critical        int      `json:"critical" validate:"min=0"`
	NearTotal       int      `json:"near_total" validate:"min=0"`
	NearFast        int      `json:"near_fast" validate:"min=0"`
	NearSlow        int      `json:"near_slow" validate:"min=0"`
	Score           int      `json:"score" validate:"min=0,max=10000000"`
	Error           int      `json:"error" validate:"min=0"`
	Percent         *float64 `json:"percent" validate:"required,min=0,max=100"`
	DidFail         *bool    `json:"did_fail" validate:"required"`
	ClearType       *int     `json:"clear_type" validate:"required,min=1,max=5"`
	GaugeType       *int     `json:"gauge_type" validate:"required,min=0,max=3"`
	IsSkillAnalyser *bool    `json:"is_skill_analyser" validate:"required"`
}

type Source struct {
	store *storage.Store
}

func New(store *storage.Store) *Source {
	return &Source{store: store}
}

func (s *Source) ImportType() string {
	return "ir/barbatos"
}

// Parse validates the body up front. The request is one score, so a bad
// body has nothing to salvage and fails the whole import.
func (s *Source) Parse(_ context.Context, input sources.Input, _ *slog.Logger) (*sources.Batch, error) {
	var sc score
	if err := json.Unmarshal(input.Body, &sc); err != nil {
		return nil, sources.Fatalf(http.StatusBadRequest, "invalid barbatos request: %v", err)
	}
	if err := sources.ValidateStruct(&sc); err != nil {
		return nil, sources.Fatalf(http.StatusBadRequest, "invalid barbatos request: %v", err)
	}

	seq := func(yield func(sources.Record) bool) {
		yield(&sc)
	}

	return &sources.Batch{
		Game:    games.GameSDVX,
		Records: seq,
		Context: nil,
	}, nil
}

func (s *Source) Convert(ctx context.Context, record sources.Record, _ any, logger *slog.Logger) (*sources.ConvertedScore, error) {
	sc, ok := record.(*score)
	if !ok {
		return nil, sources.Internalf("barbatos record has wrong type %T", record)
	}

	difficulty := difficultyMap[*sc.Difficulty]

	chart, err := s.store.FindChartByInGameID(ctx, games.GameSDVX, games.PlaytypeSingle, sc.SongID, difficulty, "")
	if err != nil {
		return nil, sources.Internalf("%v", err)
	}
	if chart == nil {
		return nil, sources.NotFoundf("no chart for song_id %d (%s)", sc.SongID, difficulty)
	}

	song, err := s.store.FindSongByID(ctx, games.GameSDVX, chart.SongID)
	if err != nil {
		return nil, sources.Internalf("%v", err)
	}
	if song == nil {
		logger.Error("song-chart desync", "songID", chart.SongID, "chartID", chart.ChartID)
		return nil, sources.Internalf("song-chart desync: song %d missing for chart %s", chart.SongID, chart.ChartID)
	}

	cfg, err := games.GetGPTConfig(games.GameSDVX, games.PlaytypeSingle)
	if err != nil {
		return nil, sources.Internalf("%v", err)
	}
	percent, grade, err := sources.GradeAndPercentFromScore(cfg, float64(sc.Score), 10_000_000)
	if err != nil {
		return nil, err
	}

	// The client pushes scores as plays finish, so now is the play time.
	dry := sources.DryScore{
		Game:         games.GameSDVX,
		Service:      "Barbatos",
		TimeAchieved: sources.MillisPtr(time.Now().UnixMilli()),
		ScoreData: sources.DryScoreData{
			Score:   float64(sc.Score),
			Percent: percent,
			Grade:   grade,
			Lamp:    lampMap[*sc.ClearType],
			Judgements: map[string]int{
				"critical": sc.Critical,
				"near":     sc.NearTotal,
				"miss":     sc.Error,
			},
			HitMeta: map[string]any{
				"maxCombo": sc.MaxChain,
				"fast":     sc.NearFast,
				"slow":     sc.NearSlow,
			},
		},
		ScoreMeta: map[string]any{
			"gaugeType":       *sc.GaugeType,
			"isSkillAnalyser": *sc.IsSkillAnalyser,
		},
	}

	return &sources.ConvertedScore{Song: song, Chart: chart, Dry: dry}, nil
}
