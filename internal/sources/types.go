package sources

import (
	"context"
	"iter"
	"log/slog"

	"encore/internal/games"
	"encore/internal/storage"
)

// Record is one source-native score record as yielded by a parser. The
// concrete type is private to the source; its converter knows how to read
// it back.
type Record any

// Input is the raw material handed to a parser: file bytes or an HTTP
// request body, plus the request-scoped fields some sources need.
type Input struct {
	Body []byte
	// Playtype is a caller-declared playtype for sources whose payload
	// does not carry one (the eamusement CSV upload form does this).
	Playtype games.Playtype
	// UserID is the importing user. Network-backed sources use it to look
	// up stored API credentials.
	UserID int
}

// ClassHandler resolves externally-known class values (dan ranks and the
// like) for the importing user. Sources that can ask their service for
// classes return one from Parse; most return nil.
type ClassHandler func(ctx context.Context, game games.Game, playtype games.Playtype, userID int, ratings map[string]float64, logger *slog.Logger) (map[string]string, error)

// Batch is everything a parser extracts from one import request. Records is
// finite and single-pass; network-backed parsers fetch pages lazily while
// it is consumed, and a page failure ends the sequence early rather than
// discarding prior pages.
type Batch struct {
	Game         games.Game
	Records      iter.Seq[Record]
	Context      any
	ClassHandler ClassHandler
}

// DryScoreData is the normalized play result before derived ratings and
// ordering indices are attached.
type DryScoreData struct {
	Score      float64
	Percent    float64
	Grade      string
	Lamp       string
	Judgements map[string]int
	HitMeta    map[string]any
}

// DryScore is a converted score prior to hydration: identity, indices and
// calculated data are attached by the orchestrator, not the converter.
type DryScore struct {
	Game         games.Game
	Service      string
	Comment      *string
	TimeAchieved *int64
	ScoreData    DryScoreData
	ScoreMeta    map[string]any
}

// ConvertedScore is a successful conversion: the resolved catalog entries
// plus the dry score.
type ConvertedScore struct {
	Song  *storage.Song
	Chart *storage.Chart
	Dry   DryScore
}

// Source is one import source implementation. Implementations are stateless
// across batches; per-batch state travels in Batch.Context.
type Source interface {
	ImportType() string
	Parse(ctx context.Context, input Input, logger *slog.Logger) (*Batch, error)
	Convert(ctx context.Context, record Record, batchContext any, logger *slog.Logger) (*ConvertedScore, error)
}
