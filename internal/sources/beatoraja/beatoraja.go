// Package beatoraja implements the ir/beatoraja import source: single BMS
// scores pushed by the beatoraja IR client together with the chart they
// were played on.
package beatoraja

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

var lampMap = map[string]string{
	"NoPlay":          "NO PLAY",
	"Failed":          "FAILED",
	"LightAssistEasy": "ASSIST CLEAR",
	"Easy":            "EASY CLEAR",
	"Normal":          "CLEAR",
	"Hard":            "HARD CLEAR",
	"ExHard":          "EX HARD CLEAR",
	"FullCombo":       "FULL COMBO",
	"Perfect":         "FULL COMBO",
}

// chart is the client's description of what was played. Only the hashes
// and mode matter for resolution; the rest is belt and braces for logs.
type chart struct {
	MD5    string `json:"md5" validate:"required"`
	SHA256 string `json:"sha256" validate:"required"`
	Title  string `json:"title"`
	Mode   string `json:"mode" validate:"required,oneof=BEAT_7K BEAT_14K"`
	Notes  int    `json:"notes" validate:"min=1"`
}

type irScore struct {
	SHA256   string  `json:"sha256" validate:"required"`
	EXScore  int     `json:"exscore" validate:"min=0"`
	Gauge    float64 `json:"gauge"`
	MinBP    int     `json:"minbp"`
	Clear    string  `json:"clear" validate:"required"`
	MaxCombo int     `json:"maxcombo" validate:"min=0"`

	// Early/late judgement counts.
	EPG int `json:"epg"`
	EGR int `json:"egr"`
	EGD int `json:"egd"`
	EBD int `json:"ebd"`
	EPR int `json:"epr"`
	LPG int `json:"lpg"`
	LGR int `json:"lgr"`
	LGD int `json:"lgd"`
	LBD int `json:"lbd"`
	LPR int `json:"lpr"`
}

type envelope struct {
	Client string  `json:"client" validate:"required"`
	Score  irScore `json:"score"`
	Chart  chart   `json:"chart"`
}

type record struct {
	score    *irScore
	playtype games.Playtype
}

type Source struct {
	store *storage.Store
}

func New(store *storage.Store) *Source {
	return &Source{store: store}
}

func (s *Source) ImportType() string {
	return "ir/beatoraja"
}

// Parse validates the envelope. Like barbatos, the request carries exactly
// one score, so envelope problems fail the import outright.
func (s *Source) Parse(_ context.Context, input sources.Input, _ *slog.Logger) (*sources.Batch, error) {
	var env envelope
	if err := json.Unmarshal(input.Body, &env); err != nil {
		return nil, sources.Fatalf(http.StatusBadRequest, "invalid beatoraja request: %v", err)
	}
	if err := sources.ValidateStruct(&env); err != nil {
		return nil, sources.Fatalf(http.StatusBadRequest, "invalid beatoraja request: %v", err)
	}

	playtype := games.Playtype7K
	if env.Chart.Mode == "BEAT_14K" {
		playtype = games.Playtype14K
	}

	rec := &record{score: &env.Score, playtype: playtype}
	seq := func(yield func(sources.Record) bool) {
		yield(rec)
	}

	return &sources.Batch{
		Game:    games.GameBMS,
		Records: seq,
		Context: nil,
	}, nil
}

func (s *Source) Convert(ctx context.Context, rec sources.Record, _ any, logger *slog.Logger) (*sources.ConvertedScore, error) {
	r, ok := rec.(*record)
	if !ok {
		return nil, sources.Internalf("beatoraja record has wrong type %T", rec)
	}
	sc := r.score

	lamp, ok := lampMap[sc.Clear]
	if !ok {
		return nil, sources.InvalidScoref("unknown clear type %q", sc.Clear)
	}

	dbChart, err := s.store.FindChartByHash(ctx, games.GameBMS, "", sc.SHA256)
	if err != nil {
		return nil, sources.Internalf("%v", err)
	}
	if dbChart == nil {
		return nil, sources.NotFoundf("chart %s is not in the database", sc.SHA256)
	}
	if dbChart.Playtype != r.playtype {
		return nil, sources.InvalidScoref("chart %s is %s, client played %s", sc.SHA256, dbChart.Playtype, r.playtype)
	}

	song, err := s.store.FindSongByID(ctx, games.GameBMS, dbChart.SongID)
	if err != nil {
		return nil, sources.Internalf("%v", err)
	}
	if song == nil {
		logger.Error("song-chart desync", "songID", dbChart.SongID, "chartID", dbChart.ChartID)
		return nil, sources.Internalf("song-chart desync: song %d missing for chart %s", dbChart.SongID, dbChart.ChartID)
	}

	cfg, err := games.GetGPTConfig(games.GameBMS, r.playtype)
	if err != nil {
		return nil, sources.Internalf("%v", err)
	}
	percent, grade, err := sources.GradeAndPercentFromEX(cfg, sc.EXScore, dbChart.Notecount)
	if err != nil {
		return nil, err
	}

	hitMeta := map[string]any{
		"maxCombo": sc.MaxCombo,
	}
	// The client sends a huge minbp for aborted plays and gauge readings
	// past full for broken gauge mods; both mean "unknown".
	if sc.MinBP >= 0 && sc.MinBP <= dbChart.Notecount {
		hitMeta["bp"] = sc.MinBP
	} else {
		hitMeta["bp"] = nil
	}
	if sc.Gauge >= 0 && sc.Gauge <= 200 {
		hitMeta["gauge"] = sc.Gauge
	} else {
		hitMeta["gauge"] = nil
	}

	dry := sources.DryScore{
		Game:         games.GameBMS,
		Service:      "beatoraja",
		TimeAchieved: sources.MillisPtr(time.Now().UnixMilli()),
		ScoreData: sources.DryScoreData{
			Score:   float64(sc.EXScore),
			Percent: percent,
			Grade:   grade,
			Lamp:    lamp,
			Judgements: map[string]int{
				"pgreat": sc.EPG + sc.LPG,
				"great":  sc.EGR + sc.LGR,
				"good":   sc.EGD + sc.LGD,
				"bad":    sc.EBD + sc.LBD,
				"poor":   sc.EPR + sc.LPR,
			},
			HitMeta: hitMeta,
		},
		ScoreMeta: map[string]any{},
	}

	return &sources.ConvertedScore{Song: song, Chart: dbChart, Dry: dry}, nil
}
