// Package batchmanual implements the batch-manual import source: a JSON
// envelope of scores in our own declared format, submitted either directly
// over HTTP or as an uploaded file.
package batchmanual

import (
	"context"
	"encoding/json"
	"iter"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"encore/internal/games"
	"encore/internal/sources"
	"encore/internal/storage"
)

// head is the envelope metadata shared by every score in the batch.
type head struct {
	Service string `json:"service" validate:"required,min=2"`
	Game    string `json:"game" validate:"required"`
}

type envelope struct {
	Head   head              `json:"head"`
	Scores []json.RawMessage `json:"scores" validate:"required"`
}

// rawScore is one batch-manual score record. MatchType picks the catalog
// resolution path Identifier is interpreted under.
type rawScore struct {
	Identifier   string         `json:"identifier" validate:"required"`
	MatchType    string         `json:"matchType" validate:"required,oneof=songID title inGameID hash"`
	Playtype     string         `json:"playtype" validate:"required"`
	Difficulty   string         `json:"difficulty"`
	Version      string         `json:"version"`
	Score        float64        `json:"score" validate:"min=0"`
	Lamp         string         `json:"lamp" validate:"required"`
	Percent      *float64       `json:"percent"`
	TimeAchieved *int64         `json:"timeAchieved"`
	Judgements   map[string]int `json:"judgements"`
	HitMeta      map[string]any `json:"hitMeta"`
	Comment      *string        `json:"comment"`
}

type batchContext struct {
	service string
	game    games.Game
}

// Source is the batch-manual source. The same implementation serves both
// the direct (request body) and file (upload) import types.
type Source struct {
	store      *storage.Store
	importType string
}

// New constructs a batch-manual source with the given import type tag.
func New(store *storage.Store, importType string) *Source {
	return &Source{store: store, importType: importType}
}

func (s *Source) ImportType() string {
	return s.importType
}

// Parse validates the envelope and yields the raw score objects. A bad
// envelope is a batch-boundary failure, not a per-record one.
func (s *Source) Parse(_ context.Context, input sources.Input, _ *slog.Logger) (*sources.Batch, error) {
	var env envelope
	if err := json.Unmarshal(input.Body, &env); err != nil {
		return nil, sources.Fatalf(http.StatusBadRequest, "invalid batch-manual: %v", err)
	}
	if err := sources.ValidateStruct(&env); err != nil {
		return nil, sources.Fatalf(http.StatusBadRequest, "invalid batch-manual: %v", err)
	}

	game := games.Game(env.Head.Game)
	if len(games.ValidPlaytypes(game)) == 0 {
		return nil, sources.Fatalf(http.StatusBadRequest, "unsupported game %q", env.Head.Game)
	}

	records := env.Scores
	seq := func(yield func(sources.Record) bool) {
		for _, raw := range records {
			if !yield(raw) {
				return
			}
		}
	}

	return &sources.Batch{
		Game:    game,
		Records: iter.Seq[sources.Record](seq),
		Context: &batchContext{service: env.Head.Service, game: game},
	}, nil
}

// Convert validates one raw score and resolves it against the catalog.
func (s *Source) Convert(ctx context.Context, record sources.Record, batchCtx any, logger *slog.Logger) (*sources.ConvertedScore, error) {
	bctx, ok := batchCtx.(*batchContext)
	if !ok {
		return nil, sources.Internalf("batch-manual context has wrong type %T", batchCtx)
	}

	raw, ok := record.(json.RawMessage)
	if !ok {
		return nil, sources.Internalf("batch-manual record has wrong type %T", record)
	}

	var score rawScore
	if err := json.Unmarshal(raw, &score); err != nil {
		return nil, sources.InvalidScoref("malformed score object: %v", err)
	}
	if err := sources.ValidateStruct(&score); err != nil {
		return nil, err
	}

	playtype := games.Playtype(score.Playtype)
	if !games.IsValidGPT(bctx.game, playtype) {
		return nil, sources.InvalidScoref("invalid playtype %q for %s", score.Playtype, bctx.game)
	}
	cfg, err := games.GetGPTConfig(bctx.game, playtype)
	if err != nil {
		return nil, sources.Internalf("%v", err)
	}
	if cfg.LampIndex(score.Lamp) < 0 {
		return nil, sources.InvalidScoref("invalid lamp %q for %s:%s", score.Lamp, bctx.game, playtype)
	}

	chart, err := s.resolveChart(ctx, bctx.game, playtype, &score)
	if err != nil {
		return nil, err
	}
	if chart == nil {
		return nil, sources.NotFoundf("no chart matches %s %q (%s %s)",
			score.MatchType, score.Identifier, playtype, score.Difficulty)
	}

	song, err := s.store.FindSongByID(ctx, bctx.game, chart.SongID)
	if err != nil {
		return nil, sources.Internalf("%v", err)
	}
	if song == nil {
		logger.Error("song-chart desync", "songID", chart.SongID, "chartID", chart.ChartID)
		return nil, sources.Internalf("song-chart desync: song %d missing for chart %s", chart.SongID, chart.ChartID)
	}

	percent, grade, err := derivePercentGrade(cfg, bctx.game, &score, chart)
	if err != nil {
		return nil, err
	}

	dry := sources.DryScore{
		Game:         bctx.game,
		Service:      bctx.service,
		Comment:      score.Comment,
		TimeAchieved: score.TimeAchieved,
		ScoreData: sources.DryScoreData{
			Score:      score.Score,
			Percent:    percent,
			Grade:      grade,
			Lamp:       score.Lamp,
			Judgements: score.Judgements,
			HitMeta:    cleanHitMeta(score.HitMeta),
		},
		ScoreMeta: map[string]any{},
	}

	return &sources.ConvertedScore{Song: song, Chart: chart, Dry: dry}, nil
}

func (s *Source) resolveChart(ctx context.Context, game games.Game, playtype games.Playtype, score *rawScore) (*storage.Chart, error) {
	switch score.MatchType {
	case "songID":
		songID, err := strconv.Atoi(score.Identifier)
		if err != nil {
			return nil, sources.InvalidScoref("songID identifier %q is not numeric", score.Identifier)
		}
		chart, err := s.store.FindChartBySongDifficulty(ctx, game, playtype, songID, score.Difficulty)
		if err != nil {
			return nil, sources.Internalf("%v", err)
		}
		return chart, nil
	case "title":
		song, err := s.store.FindSongByTitle(ctx, game, score.Identifier)
		if err != nil {
			return nil, sources.Internalf("%v", err)
		}
		if song == nil {
			return nil, sources.NotFoundf("no song titled %q", score.Identifier)
		}
		chart, err := s.store.FindChartBySongDifficulty(ctx, game, playtype, song.SongID, score.Difficulty)
		if err != nil {
			return nil, sources.Internalf("%v", err)
		}
		return chart, nil
	case "inGameID":
		inGameID, err := strconv.Atoi(score.Identifier)
		if err != nil {
			return nil, sources.InvalidScoref("inGameID identifier %q is not numeric", score.Identifier)
		}
		chart, err := s.store.FindChartByInGameID(ctx, game, playtype, inGameID, score.Difficulty, score.Version)
		if err != nil {
			return nil, sources.Internalf("%v", err)
		}
		return chart, nil
	case "hash":
		chart, err := s.store.FindChartByHash(ctx, game, "", score.Identifier)
		if err != nil {
			return nil, sources.Internalf("%v", err)
		}
		return chart, nil
	default:
		return nil, sources.InvalidScoref("unknown matchType %q", score.MatchType)
	}
}

// derivePercentGrade computes percent and grade from whichever the record
// carries: an explicit percent, or a raw score interpreted under the game's
// scoring model.
func derivePercentGrade(cfg *games.GPTConfig, game games.Game, score *rawScore, chart *storage.Chart) (float64, string, error) {
	if score.Percent != nil {
		grade, err := cfg.GradeForPercent(*score.Percent)
		if err != nil {
			return 0, "", sources.InvalidScoref("%v", err)
		}
		return *score.Percent, grade, nil
	}

	switch game {
	case games.GameIIDX, games.GameBMS:
		return sources.GradeAndPercentFromEX(cfg, int(score.Score), chart.Notecount)
	case games.GameSDVX, games.GameUSC:
		return sources.GradeAndPercentFromScore(cfg, score.Score, 10_000_000)
	case games.GameChunithm:
		return sources.GradeAndPercentFromScore(cfg, score.Score, 1_010_000)
	case games.GameMuseca:
		return sources.GradeAndPercentFromScore(cfg, score.Score, 1_000_000)
	default:
		// ddr, gitadora and maimai percents cannot be derived from the raw
		// score alone; the record must carry one.
		return 0, "", sources.InvalidScoref("%s scores must carry an explicit percent", game)
	}
}

// cleanHitMeta applies the batch-manual sentinel table: negative or NaN
// bp means unknown, gauge readings outside [0, 200] are corrupt.
func cleanHitMeta(meta map[string]any) map[string]any {
	if meta == nil {
		return nil
	}
	out := make(map[string]any, len(meta))
	for key, value := range meta {
		out[key] = value
	}
	if bp, ok := numeric(out["bp"]); ok {
		if bp < 0 || math.IsNaN(bp) {
			out["bp"] = nil
		}
	}
	if gauge, ok := numeric(out["gauge"]); ok {
		if gauge < 0 || gauge > 200 {
			out["gauge"] = nil
		}
	}
	return out
}

func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}
