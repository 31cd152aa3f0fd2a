package userstats

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"encore/internal/events"
	"encore/internal/games"
	"encore/internal/storage"
)

// criteriaValue reads the goal's criteria key off a personal best.
func criteriaValue(key string, pb *storage.PBScore) (float64, error) {
	switch key {
	case "percent":
		return pb.ScoreData.Percent, nil
	case "score":
		return pb.ScoreData.Score, nil
	case "lampIndex":
		return float64(pb.ScoreData.LampIndex), nil
	case "gradeIndex":
		return float64(pb.ScoreData.GradeIndex), nil
	default:
		return 0, fmt.Errorf("unknown goal criteria key %q", key)
	}
}

// evaluateGoal computes the user's current standing on a goal from their
// personal bests on its charts.
func evaluateGoal(goal *storage.Goal, pbs map[string]*storage.PBScore) (storage.GoalProgress, error) {
	switch goal.Charts.Type {
	case "single", "any":
		// Progress is the best relevant value across the goal's charts.
		var best *float64
		for _, chartID := range goal.Charts.ChartIDs {
			pb := pbs[chartID]
			if pb == nil {
				continue
			}
			v, err := criteriaValue(goal.Criteria.Key, pb)
			if err != nil {
				return storage.GoalProgress{}, err
			}
			if best == nil || v > *best {
				best = &v
			}
		}
		progress := storage.GoalProgress{
			Progress: best,
			OutOf:    goal.Criteria.Value,
		}
		progress.Achieved = best != nil && *best >= goal.Criteria.Value
		return progress, nil

	case "all":
		// Progress counts charts meeting the criteria.
		met := 0.0
		for _, chartID := range goal.Charts.ChartIDs {
			pb := pbs[chartID]
			if pb == nil {
				continue
			}
			v, err := criteriaValue(goal.Criteria.Key, pb)
			if err != nil {
				return storage.GoalProgress{}, err
			}
			if v >= goal.Criteria.Value {
				met++
			}
		}
		return storage.GoalProgress{
			Achieved: met == float64(len(goal.Charts.ChartIDs)),
			Progress: &met,
			OutOf:    float64(len(goal.Charts.ChartIDs)),
		}, nil

	default:
		return storage.GoalProgress{}, fmt.Errorf("unknown goal charts type %q", goal.Charts.Type)
	}
}

// ProcessGoals re-evaluates the user's subscribed goals touching the given
// charts and reports the ones whose state changed.
func (u *Updater) ProcessGoals(ctx context.Context, userID int, game games.Game, playtype games.Playtype, chartIDs []string, logger *slog.Logger) ([]storage.GoalImportInfo, error) {
	if len(chartIDs) == 0 {
		return nil, nil
	}

	goals, err := u.store.FindGoalsTouchingCharts(ctx, game, playtype, chartIDs)
	if err != nil {
		return nil, fmt.Errorf("goal lookup: %w", err)
	}
	if len(goals) == 0 {
		return nil, nil
	}

	goalIDs := make([]string, len(goals))
	for i := range goals {
		goalIDs[i] = goals[i].GoalID
	}
	userGoals, err := u.store.FindUserGoals(ctx, userID, goalIDs)
	if err != nil {
		return nil, fmt.Errorf("user goal lookup: %w", err)
	}
	subscribed := make(map[string]*storage.UserGoal, len(userGoals))
	for i := range userGoals {
		subscribed[userGoals[i].GoalID] = &userGoals[i]
	}

	// One PB fetch covering every chart any subscribed goal touches.
	chartSet := map[string]bool{}
	for i := range goals {
		if subscribed[goals[i].GoalID] == nil {
			continue
		}
		for _, chartID := range goals[i].Charts.ChartIDs {
			chartSet[chartID] = true
		}
	}
	allCharts := make([]string, 0, len(chartSet))
	for chartID := range chartSet {
		allCharts = append(allCharts, chartID)
	}
	pbRows, err := u.store.FindPBsForCharts(ctx, userID, allCharts)
	if err != nil {
		return nil, fmt.Errorf("goal pb lookup: %w", err)
	}
	pbs := make(map[string]*storage.PBScore, len(pbRows))
	for i := range pbRows {
		pbs[pbRows[i].ChartID] = &pbRows[i]
	}

	var changed []storage.GoalImportInfo
	for i := range goals {
		userGoal := subscribed[goals[i].GoalID]
		if userGoal == nil {
			continue
		}

		progress, err := evaluateGoal(&goals[i], pbs)
		if err != nil {
			logger.Error("goal evaluation failed", "goalID", goals[i].GoalID, "error", err)
			continue
		}

		old := storage.GoalProgress{
			Achieved: userGoal.Achieved,
			Progress: userGoal.Progress,
			OutOf:    userGoal.OutOf,
		}
		if !progressChanged(old, progress) {
			continue
		}

		userGoal.Achieved = progress.Achieved
		userGoal.Progress = progress.Progress
		userGoal.OutOf = progress.OutOf
		if progress.Achieved && !old.Achieved {
			now := time.Now().UnixMilli()
			userGoal.TimeAchieved = &now
			u.events.Publish(ctx, events.TypeGoalAchieved, userID, map[string]any{
				"goalID": goals[i].GoalID,
				"game":   game,
			})
		}
		if err := u.store.SaveUserGoal(ctx, userGoal); err != nil {
			return nil, fmt.Errorf("user goal update: %w", err)
		}

		changed = append(changed, storage.GoalImportInfo{
			GoalID: goals[i].GoalID,
			Old:    old,
			New:    progress,
		})
	}
	return changed, nil
}

func progressChanged(old, new storage.GoalProgress) bool {
	if old.Achieved != new.Achieved {
		return true
	}
	switch {
	case old.Progress == nil && new.Progress == nil:
		return false
	case old.Progress == nil || new.Progress == nil:
		return true
	default:
		return *old.Progress != *new.Progress
	}
}
