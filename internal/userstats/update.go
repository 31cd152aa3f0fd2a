package userstats

import (
	"context"
	"fmt"
	"log/slog"
	"maps"

	"encore/internal/events"
	"encore/internal/games"
	"encore/internal/sources"
	"encore/internal/storage"
)

type Updater struct {
	store  *storage.Store
	events *events.Publisher
}

func NewUpdater(store *storage.Store, publisher *events.Publisher) *Updater {
	return &Updater{store: store, events: publisher}
}

// Update recomputes the user's ratings and classes for one (game,
// playtype), persists the new aggregate and returns the class deltas the
// import should report. sourceHandler comes from the import source when its
// service can be asked for classes directly; nil otherwise.
func (u *Updater) Update(ctx context.Context, userID int, game games.Game, playtype games.Playtype, sourceHandler sources.ClassHandler, logger *slog.Logger) ([]storage.ClassDelta, error) {
	ratings, err := u.CalculateRatings(ctx, game, playtype, userID)
	if err != nil {
		return nil, fmt.Errorf("profile ratings: %w", err)
	}

	classes := u.resolveClasses(ctx, game, playtype, userID, ratings, sourceHandler, logger)

	old, err := u.store.FindGameStats(ctx, userID, game, playtype)
	if err != nil {
		return nil, fmt.Errorf("game stats lookup: %w", err)
	}

	deltas := classDeltas(game, playtype, classes, old, logger)

	// Class sets this update could not resolve keep their stored value.
	merged := map[string]string{}
	if old != nil {
		maps.Copy(merged, old.Classes)
	}
	for _, delta := range deltas {
		merged[delta.Set] = delta.New
	}

	stats := &storage.UserGameStats{
		UserID:   userID,
		Game:     game,
		Playtype: playtype,
		Ratings:  ratings,
		Classes:  merged,
	}
	if old != nil {
		stats.ID = old.ID
	}
	if err := u.store.UpsertGameStats(ctx, stats); err != nil {
		return nil, fmt.Errorf("game stats update: %w", err)
	}

	for _, delta := range deltas {
		eventType := events.TypeClassImproved
		if delta.Old == nil {
			eventType = events.TypeClassAchieved
		}
		u.events.Publish(ctx, eventType, userID, delta)
	}

	return deltas, nil
}
