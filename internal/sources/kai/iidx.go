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

const iidxHistoryPath = "/api/iidx/v2/play_history"
const iidxProfilePath = "/api/iidx/v2/player_profile"

// Versions of the game the services are known to send charts for.
var supportedIIDXVersions = map[int]bool{
	20: true, 21: true, 22: true, 23: true, 24: true,
	25: true, 26: true, 27: true, 28: true,
}

var iidxLampMap = map[int]string{
	0: "NO PLAY",
	1: "FAILED",
	2: "ASSIST CLEAR",
	3: "EASY CLEAR",
	4: "CLEAR",
	5: "HARD CLEAR",
	6: "EX HARD CLEAR",
	7: "FULL COMBO",
}

// iidxScore is one play-history entry as the Kai API sends it.
type iidxScore struct {
	MusicID       int    `json:"music_id" validate:"min=1"`
	PlayStyle     string `json:"play_style" validate:"required,oneof=SINGLE DOUBLE"`
	Difficulty    string `json:"difficulty" validate:"required,oneof=BEGINNER NORMAL HYPER ANOTHER LEGGENDARIA"`
	VersionPlayed int    `json:"version_played" validate:"min=9,max=28"`
	Lamp          *int   `json:"lamp" validate:"required,min=0,max=7"`
	EXScore       int    `json:"ex_score" validate:"min=0"`
	MissCount     *int   `json:"miss_count"`
	FastCount     *int   `json:"fast_count"`
	SlowCount     *int   `json:"slow_count"`
	Timestamp     string `json:"timestamp"`
}

type iidxProfile struct {
	Dan *int `json:"dan"`
}

type batchContext struct {
	service string
}

// IIDXSource imports IIDX play history from a Kai-API service.
type IIDXSource struct {
	store   *storage.Store
	service string
	client  *Client
}

// NewIIDX constructs the source for one service ("FLO" or "EAG").
func NewIIDX(store *storage.Store, service string, client *Client) *IIDXSource {
	return &IIDXSource{store: store, service: service, client: client}
}

func (s *IIDXSource) ImportType() string {
	return "api/" + strings.ToLower(s.service) + "-iidx"
}

// Parse starts the lazy play-history traversal and wires up the dan class
// handler. A missing token is the user's problem, not the service's, so it
// fails the whole import with a client error.
func (s *IIDXSource) Parse(ctx context.Context, input sources.Input, logger *slog.Logger) (*sources.Batch, error) {
	token, err := s.client.tokens.Token(ctx, input.UserID)
	if err != nil {
		return nil, sources.Fatalf(http.StatusUnauthorized, "no %s api token for user %d", s.service, input.UserID)
	}

	items := s.client.traverse(ctx, iidxHistoryPath, token, logger)

	seq := func(yield func(sources.Record) bool) {
		for item := range items {
			if !yield(item) {
				return
			}
		}
	}

	return &sources.Batch{
		Game:         games.GameIIDX,
		Records:      seq,
		Context:      &batchContext{service: s.service},
		ClassHandler: s.danClassHandler(token),
	}, nil
}

// danClassHandler fetches the user's profile and reports their dan rank.
// Profile failures only cost the class update, never the import, so they
// log and return nothing.
func (s *IIDXSource) danClassHandler(token string) sources.ClassHandler {
	return func(ctx context.Context, game games.Game, playtype games.Playtype, userID int, _ map[string]float64, logger *slog.Logger) (map[string]string, error) {
		var profile iidxProfile
		if err := s.client.getJSON(ctx, s.client.baseURL+iidxProfilePath, token, &profile); err != nil {
			logger.Warn("player profile fetch failed, skipping dan update", "error", err)
			return nil, nil
		}
		if profile.Dan == nil {
			return nil, nil
		}
		dan, err := games.ClassValueByIndex(game, playtype, "dan", *profile.Dan)
		if err != nil {
			logger.Warn("service reported unknown dan", "dan", *profile.Dan, "error", err)
			return nil, nil
		}
		return map[string]string{"dan": dan}, nil
	}
}

func (s *IIDXSource) Convert(ctx context.Context, record sources.Record, batchCtx any, logger *slog.Logger) (*sources.ConvertedScore, error) {
	bctx, ok := batchCtx.(*batchContext)
	if !ok {
		return nil, sources.Internalf("kai context has wrong type %T", batchCtx)
	}

	raw, ok := record.(json.RawMessage)
	if !ok {
		return nil, sources.Internalf("kai iidx record has wrong type %T", record)
	}

	var score iidxScore
	if err := json.Unmarshal(raw, &score); err != nil {
		return nil, sources.InvalidScoref("malformed %s iidx score: %v", s.service, err)
	}
	if err := sources.ValidateStruct(&score); err != nil {
		return nil, err
	}

	if !supportedIIDXVersions[score.VersionPlayed] {
		return nil, sources.InvalidScoref("unsupported iidx version %d", score.VersionPlayed)
	}

	playtype := games.PlaytypeSP
	if score.PlayStyle == "DOUBLE" {
		playtype = games.PlaytypeDP
	}
	version := strconv.Itoa(score.VersionPlayed)

	chart, err := s.store.FindChartByInGameID(ctx, games.GameIIDX, playtype, score.MusicID, score.Difficulty, version)
	if err != nil {
		return nil, sources.Internalf("%v", err)
	}
	if chart == nil {
		return nil, sources.NotFoundf("no chart for music_id %d (%s %s, version %s)",
			score.MusicID, playtype, score.Difficulty, version)
	}

	song, err := s.store.FindSongByID(ctx, games.GameIIDX, chart.SongID)
	if err != nil {
		return nil, sources.Internalf("%v", err)
	}
	if song == nil {
		logger.Error("song-chart desync", "songID", chart.SongID, "chartID", chart.ChartID)
		return nil, sources.Internalf("song-chart desync: song %d missing for chart %s", chart.SongID, chart.ChartID)
	}

	cfg, err := games.GetGPTConfig(games.GameIIDX, playtype)
	if err != nil {
		return nil, sources.Internalf("%v", err)
	}
	percent, grade, err := sources.GradeAndPercentFromEX(cfg, score.EXScore, chart.Notecount)
	if err != nil {
		return nil, err
	}

	hitMeta := map[string]any{
		"fast": score.FastCount,
		"slow": score.SlowCount,
	}
	// The services send -1 for miss counts they never recorded.
	if score.MissCount != nil && *score.MissCount >= 0 {
		hitMeta["bp"] = *score.MissCount
	} else {
		hitMeta["bp"] = nil
	}

	dry := sources.DryScore{
		Game:         games.GameIIDX,
		Service:      bctx.service,
		TimeAchieved: sources.ParseTimestamp(score.Timestamp),
		ScoreData: sources.DryScoreData{
			Score:      float64(score.EXScore),
			Percent:    percent,
			Grade:      grade,
			Lamp:       iidxLampMap[*score.Lamp],
			Judgements: map[string]int{},
			HitMeta:    hitMeta,
		},
		ScoreMeta: map[string]any{},
	}

	return &sources.ConvertedScore{Song: song, Chart: chart, Dry: dry}, nil
}
