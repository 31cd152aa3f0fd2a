package userstats

import (
	"context"
	"log/slog"

	"encore/internal/games"
	"encore/internal/sources"
	"encore/internal/storage"
)

// gitadoraColourBoundaries maps a skill total to a colour: boundary[i] is
// the minimum skill for colour index i of the set.
var gitadoraColourBoundaries = []float64{
	0, 1000, 1500, 2000, 2500,
	3000, 3500, 4000, 4500, 5000, 5500,
	6000, 6500, 7000, 7500, 8000, 8500,
}

// staticClassHandlers always run when a pair's stats update, no external
// data needed. Gitadora colours fall straight out of the skill rating.
var staticClassHandlers = map[games.GPT]sources.ClassHandler{
	{Game: games.GameGitadora, Playtype: games.PlaytypeGita}: gitadoraColour,
	{Game: games.GameGitadora, Playtype: games.PlaytypeDora}: gitadoraColour,
}

func gitadoraColour(_ context.Context, game games.Game, playtype games.Playtype, _ int, ratings map[string]float64, logger *slog.Logger) (map[string]string, error) {
	skill := ratings["skill"]
	idx := 0
	for i, boundary := range gitadoraColourBoundaries {
		if skill >= boundary {
			idx = i
		}
	}
	colour, err := games.ClassValueByIndex(game, playtype, "colour", idx)
	if err != nil {
		logger.Error("colour boundary table out of sync with class set", "index", idx, "error", err)
		return nil, nil
	}
	return map[string]string{"colour": colour}, nil
}

// resolveClasses combines the static handler's classes with whatever the
// import source was able to ask its service for. The static handler wins
// on conflicts; it is computed from our own data.
func (u *Updater) resolveClasses(ctx context.Context, game games.Game, playtype games.Playtype, userID int, ratings map[string]float64, sourceHandler sources.ClassHandler, logger *slog.Logger) map[string]string {
	classes := map[string]string{}

	if sourceHandler != nil {
		custom, err := sourceHandler(ctx, game, playtype, userID, ratings, logger)
		if err != nil {
			logger.Warn("source class handler failed", "error", err)
		}
		for set, value := range custom {
			classes[set] = value
		}
	}

	if static, ok := staticClassHandlers[games.GPT{Game: game, Playtype: playtype}]; ok {
		builtin, err := static(ctx, game, playtype, userID, ratings, logger)
		if err != nil {
			logger.Warn("static class handler failed", "error", err)
		}
		for set, value := range builtin {
			classes[set] = value
		}
	}

	return classes
}

// classDeltas diffs the freshly resolved classes against the stored stats.
// A first-ever value always emits; an improvement emits; anything else is
// dropped. Unknown values are a data problem on the source's side and are
// logged and skipped rather than crashing the import.
func classDeltas(game games.Game, playtype games.Playtype, classes map[string]string, old *storage.UserGameStats, logger *slog.Logger) []storage.ClassDelta {
	var deltas []storage.ClassDelta

	for set, value := range classes {
		if _, err := games.ClassValueIndex(game, playtype, set, value); err != nil {
			logger.Error("unknown class value", "set", set, "value", value, "error", err)
			continue
		}

		var oldValue string
		if old != nil {
			oldValue = old.Classes[set]
		}

		if oldValue == "" {
			deltas = append(deltas, storage.ClassDelta{
				Game: game, Playtype: playtype, Set: set, Old: nil, New: value,
			})
			continue
		}

		greater, err := games.ClassIsGreater(game, playtype, set, value, oldValue)
		if err != nil {
			logger.Error("stored class value unknown", "set", set, "value", oldValue, "error", err)
			continue
		}
		if greater {
			prev := oldValue
			deltas = append(deltas, storage.ClassDelta{
				Game: game, Playtype: playtype, Set: set, Old: &prev, New: value,
			})
		}
	}

	return deltas
}
