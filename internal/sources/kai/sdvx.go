package kai

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"encore/internal/games"
	"encore/internal/sources"
	"encore/internal/storage"
)

const sdvxHistoryPath = "/api/sdvx/v1/play_history"

var sdvxLampMap = map[int]string{
	1: "FAILED",
	2: "CLEAR",
	3: "EXCESSIVE CLEAR",
	4: "ULTIMATE CHAIN",
	5: "PERFECT ULTIMATE CHAIN",
}

// sdvxScore is one play-history entry as the Kai API sends it.
type sdvxScore struct {
	MusicID         int    `json:"music_id" validate:"min=1"`
	MusicDifficulty *int   `json:"music_difficulty" validate:"required,min=0,max=4"`
	PlayedVersion   *int   `json:"played_version" validate:"required,min=1,max=6"`
	ClearType       int    `json:"clear_type" validate:"min=1,max=5"`
	Score           int    `json:"score" validate:"min=0,max=10000000"`
	MaxChain        *int   `json:"max_chain"`
	Critical        *int   `json:"critical"`
	Near            *int   `json:"near"`
	Error           *int   `json:"error"`
	EarlyNearCount  *int   `json:"early_near_count"`
	LateNearCount   *int   `json:"late_near_count"`
	Timestamp       string `json:"timestamp"`
}

// SDVXSource imports SDVX play history from a Kai-API service.
type SDVXSource struct {
	store   *storage.Store
	service string
	client  *Client
}

func NewSDVX(store *storage.Store, service string, client *Client) *SDVXSource {
	return &SDVXSource{store: store, service: service, client: client}
}

func (s *SDVXSource) ImportType() string {
	return "api/" + strings.ToLower(s.service) + "-sdvx"
}

func (s *SDVXSource) Parse(ctx context.Context, input sources.Input, logger *slog.Logger) (*sources.Batch, error) {
	token, err := s.client.tokens.Token(ctx, input.UserID)
	if err != nil {
		return nil, sources.Fatalf(http.StatusUnauthorized, "no %s api token for user %d", s.service, input.UserID)
	}

	items := s.client.traverse(ctx, sdvxHistoryPath, token, logger)

	seq := func(yield func(sources.Record) bool) {
		for item := range items {
			if !yield(item) {
				return
			}
		}
	}

	return &sources.Batch{
		Game:    games.GameSDVX,
		Records: seq,
		Context: &batchContext{service: s.service},
	}, nil
}

// sdvxDifficulty maps the API's numeric difficulty to chart difficulty
// names. Slot 3 is the version-exclusive difficulty whose name changed
// between releases.
func sdvxDifficulty(difficulty, version int) (string, error) {
	switch difficulty {
	case 0:
		return "NOV", nil
	case 1:
		return "ADV", nil
	case 2:
		return "EXH", nil
	case 4:
		return "MXM", nil
	case 3:
		switch version {
		case 2:
			return "INF", nil
		case 3:
			return "GRV", nil
		case 4:
			return "HVN", nil
		case 5, 6:
			return "VVD", nil
		default:
			return "", sources.InvalidScoref("version %d has no slot-3 difficulty", version)
		}
	default:
		return "", sources.InvalidScoref("unknown sdvx difficulty %d", difficulty)
	}
}

func (s *SDVXSource) Convert(ctx context.Context, record sources.Record, batchCtx any, logger *slog.Logger) (*sources.ConvertedScore, error) {
	bctx, ok := batchCtx.(*batchContext)
	if !ok {
		return nil, sources.Internalf("kai context has wrong type %T", batchCtx)
	}

	raw, ok := record.(json.RawMessage)
	if !ok {
		return nil, sources.Internalf("kai sdvx record has wrong type %T", record)
	}

	var score sdvxScore
	if err := json.Unmarshal(raw, &score); err != nil {
		return nil, sources.InvalidScoref("malformed %s sdvx score: %v", s.service, err)
	}
	if err := sources.ValidateStruct(&score); err != nil {
		return nil, err
	}

	difficulty, err := sdvxDifficulty(*score.MusicDifficulty, *score.PlayedVersion)
	if err != nil {
		return nil, err
	}
	version := strconv.Itoa(*score.PlayedVersion)

	chart, err := s.store.FindChartByInGameID(ctx, games.GameSDVX, games.PlaytypeSingle, score.MusicID, difficulty, version)
	if err != nil {
		return nil, sources.Internalf("%v", err)
	}
	if chart == nil {
		return nil, sources.NotFoundf("no chart for music_id %d (%s, version %s)", score.MusicID, difficulty, version)
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
	percent, grade, err := sources.GradeAndPercentFromScore(cfg, float64(score.Score), 10_000_000)
	if err != nil {
		return nil, err
	}

	judgements := map[string]int{}
	if score.Critical != nil {
		judgements["critical"] = *score.Critical
	}
	if score.Near != nil {
		judgements["near"] = *score.Near
	}
	if score.Error != nil {
		judgements["miss"] = *score.Error
	}

	hitMeta := map[string]any{}
	if score.MaxChain != nil {
		hitMeta["maxCombo"] = *score.MaxChain
	}
	if score.EarlyNearCount != nil {
		hitMeta["fast"] = *score.EarlyNearCount
	}
	if score.LateNearCount != nil {
		hitMeta["slow"] = *score.LateNearCount
	}

	dry := sources.DryScore{
		Game:         games.GameSDVX,
		Service:      bctx.service,
		TimeAchieved: sources.ParseTimestamp(score.Timestamp),
		ScoreData: sources.DryScoreData{
			Score:      float64(score.Score),
			Percent:    percent,
			Grade:      grade,
			Lamp:       sdvxLampMap[score.ClearType],
			Judgements: judgements,
			HitMeta:    hitMeta,
		},
		ScoreMeta: map[string]any{},
	}

	return &sources.ConvertedScore{Song: song, Chart: chart, Dry: dry}, nil
}
