package scoreimport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"encore/internal/games"
	"encore/internal/logging"
	"encore/internal/sessions"
	"encore/internal/sources"
	"encore/internal/storage"
	"encore/internal/userstats"
)

// Progress reports how far through conversion a batch is. done counts
// records whose conversion finished, successfully or not.
type Progress func(done, total int)

type Importer struct {
	store    *storage.Store
	registry *Registry
	sessions *sessions.Builder
	stats    *userstats.Updater
	workers  int
	locks    *userLock
}

func NewImporter(store *storage.Store, registry *Registry, sessionBuilder *sessions.Builder, stats *userstats.Updater, workers int) *Importer {
	if workers <= 0 {
		workers = 1
	}
	return &Importer{
		store:    store,
		registry: registry,
		sessions: sessionBuilder,
		stats:    stats,
		workers:  workers,
		locks:    newUserLock(),
	}
}

type convertResult struct {
	score *storage.Score
	fail  *storage.ImportError
}

// Run executes one import end to end and returns the persisted import
// document, stored under importID so the poll surface can find it.
// Per-record failures are collected on the document; batch-level failures
// (bad envelope, infrastructure errors) abort with an error.
func (im *Importer) Run(ctx context.Context, importID string, userID int, importType string, input sources.Input, progress Progress, logger *slog.Logger) (*storage.ImportDocument, error) {
	started := time.Now().UnixMilli()
	logger = logger.With("importID", importID, "importType", importType, "userID", userID)
	ilog := logging.WithSubject(logger, "import")

	src, err := im.registry.Get(importType)
	if err != nil {
		return nil, sources.Fatalf(http.StatusBadRequest, "%v", err)
	}

	// The source's own log lines carry it as their subject.
	srcLog := logging.WithSubject(logger, importType)

	batch, err := src.Parse(ctx, input, srcLog)
	if err != nil {
		return nil, err
	}

	// Materializing gives conversion a known denominator for progress and
	// keeps network-backed sources' partial-page semantics intact: the
	// sequence already ends early on a failed page.
	records := slices.Collect(batch.Records)
	ilog.Info("parsed batch", "game", batch.Game, "records", len(records))

	results, err := im.convertAll(ctx, userID, src, batch, records, progress, srcLog)
	if err != nil {
		return nil, err
	}

	var importErrors []storage.ImportError
	converted := make([]*storage.Score, 0, len(results))
	for i := range results {
		if results[i].fail != nil {
			importErrors = append(importErrors, *results[i].fail)
			continue
		}
		if results[i].score != nil {
			converted = append(converted, results[i].score)
		}
	}

	// Everything from here reads and mutates the user's score state and
	// must not interleave with another import for the same user and game.
	// The dedup existence check has to sit in the same critical section as
	// the insert it guards.
	unlock := im.locks.lock(userID, batch.Game)
	defer unlock()

	newScores, err := im.dedup(ctx, converted)
	if err != nil {
		return nil, err
	}
	ilog.Info("converted batch",
		"converted", len(converted), "new", len(newScores), "failed", len(importErrors))

	doc := &storage.ImportDocument{
		ImportID:    importID,
		UserID:      userID,
		Game:        batch.Game,
		ImportType:  importType,
		TimeStarted: started,
		Errors:      importErrors,
	}

	if len(newScores) > 0 {
		if err := im.store.InsertScores(ctx, newScores); err != nil {
			return nil, fmt.Errorf("score insert: %w", err)
		}
		for _, s := range newScores {
			doc.ScoreIDs = append(doc.ScoreIDs, s.ScoreID)
		}

		if err := im.processDerived(ctx, userID, importType, batch, newScores, doc, logger); err != nil {
			return nil, err
		}
	}

	doc.TimeFinished = time.Now().UnixMilli()
	if err := im.store.InsertImport(ctx, doc); err != nil {
		return nil, fmt.Errorf("import document insert: %w", err)
	}
	return doc, nil
}

// convertAll runs the source's converter over every record with bounded
// parallelism. Invalid and unresolvable records become per-record
// failures; anything else aborts the batch.
func (im *Importer) convertAll(ctx context.Context, userID int, src sources.Source, batch *sources.Batch, records []sources.Record, progress Progress, logger *slog.Logger) ([]convertResult, error) {
	results := make([]convertResult, len(records))
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(im.workers)

	for i, record := range records {
		g.Go(func() error {
			defer func() {
				if progress != nil {
					progress(int(done.Add(1)), len(records))
				}
			}()

			conv, err := src.Convert(gctx, record, batch.Context, logger)
			switch {
			case err == nil:
			case errors.Is(err, sources.ErrInvalidScore):
				results[i].fail = &storage.ImportError{Type: "InvalidScore", Message: err.Error()}
				return nil
			case errors.Is(err, sources.ErrDataNotFound):
				results[i].fail = &storage.ImportError{Type: "DataNotFound", Message: err.Error()}
				return nil
			default:
				return err
			}

			score, err := hydrate(userID, src.ImportType(), conv)
			if err != nil {
				return err
			}
			results[i].score = score
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// dedup drops scores already known, either from the database or earlier in
// this same batch. Duplicates are normal (re-importing a CSV) and silent.
func (im *Importer) dedup(ctx context.Context, converted []*storage.Score) ([]*storage.Score, error) {
	if len(converted) == 0 {
		return nil, nil
	}

	ids := make([]string, len(converted))
	for i, s := range converted {
		ids[i] = s.ScoreID
	}
	existing, err := im.store.FilterExistingScoreIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("dedup lookup: %w", err)
	}

	seen := map[string]bool{}
	out := make([]*storage.Score, 0, len(converted))
	for _, s := range converted {
		if existing[s.ScoreID] || seen[s.ScoreID] {
			continue
		}
		seen[s.ScoreID] = true
		out = append(out, s)
	}
	return out, nil
}

// processDerived runs everything downstream of score insertion: sessions,
// PB rebuilds, stats, goals and milestones, in that order, split per
// playtype since every derived structure is playtype-scoped.
func (im *Importer) processDerived(ctx context.Context, userID int, importType string, batch *sources.Batch, newScores []*storage.Score, doc *storage.ImportDocument, logger *slog.Logger) error {
	byPlaytype := map[games.Playtype][]storage.Score{}
	chartsByPlaytype := map[games.Playtype][]string{}
	chartSeen := map[string]bool{}
	var allCharts []string

	for _, s := range newScores {
		byPlaytype[s.Playtype] = append(byPlaytype[s.Playtype], *s)
		if !chartSeen[s.ChartID] {
			chartSeen[s.ChartID] = true
			chartsByPlaytype[s.Playtype] = append(chartsByPlaytype[s.Playtype], s.ChartID)
			allCharts = append(allCharts, s.ChartID)
		}
	}

	sessionLog := logging.WithSubject(logger, "sessions")
	statsLog := logging.WithSubject(logger, "userstats")

	// Sessions diff against the PBs standing before this batch, so they
	// run before the rebuild.
	for playtype, scores := range byPlaytype {
		info, err := im.sessions.Load(ctx, userID, importType, batch.Game, playtype, scores, sessionLog)
		if err != nil {
			return fmt.Errorf("session generation: %w", err)
		}
		doc.CreatedSessions = append(doc.CreatedSessions, info...)
	}

	if err := im.rebuildPBs(ctx, userID, allCharts); err != nil {
		return err
	}

	for playtype := range byPlaytype {
		deltas, err := im.stats.Update(ctx, userID, batch.Game, playtype, batch.ClassHandler, statsLog)
		if err != nil {
			return fmt.Errorf("user stats update: %w", err)
		}
		doc.ClassDeltas = append(doc.ClassDeltas, deltas...)

		goalInfo, err := im.stats.ProcessGoals(ctx, userID, batch.Game, playtype, chartsByPlaytype[playtype], statsLog)
		if err != nil {
			return fmt.Errorf("goal processing: %w", err)
		}
		doc.GoalInfo = append(doc.GoalInfo, goalInfo...)

		milestoneInfo, err := im.stats.UpdateMilestones(ctx, goalInfo, batch.Game, playtype, userID, statsLog)
		if err != nil {
			return fmt.Errorf("milestone processing: %w", err)
		}
		doc.MilestoneInfo = append(doc.MilestoneInfo, milestoneInfo...)
	}

	return nil
}
