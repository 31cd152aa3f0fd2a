package userstats

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"encore/internal/events"
	"encore/internal/games"
	"encore/internal/storage"
)

// UpdateMilestones reconciles the user's milestones against the goal
// changes an import produced. Only milestones containing a changed goal are
// touched; only real progress changes are reported. A milestone the user is
// somehow not subscribed to is corrupt subscription state and aborts the
// import.
func (u *Updater) UpdateMilestones(ctx context.Context, goalInfo []storage.GoalImportInfo, game games.Game, playtype games.Playtype, userID int, logger *slog.Logger) ([]storage.MilestoneImportInfo, error) {
	if len(goalInfo) == 0 {
		return nil, nil
	}

	changedGoals := make(map[string]storage.GoalProgress, len(goalInfo))
	for _, gi := range goalInfo {
		changedGoals[gi.GoalID] = gi.New
	}

	userMilestones, err := u.store.FindUserMilestones(ctx, userID, game, playtype)
	if err != nil {
		return nil, fmt.Errorf("user milestone lookup: %w", err)
	}
	if len(userMilestones) == 0 {
		return nil, nil
	}

	umMap := make(map[string]*storage.UserMilestone, len(userMilestones))
	ids := make([]string, len(userMilestones))
	for i := range userMilestones {
		umMap[userMilestones[i].MilestoneID] = &userMilestones[i]
		ids[i] = userMilestones[i].MilestoneID
	}

	milestones, err := u.store.FindMilestonesByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("milestone lookup: %w", err)
	}

	var report []storage.MilestoneImportInfo
	updates := map[string]storage.MilestoneProgress{}

	for i := range milestones {
		milestone := &milestones[i]
		if !touchesChangedGoal(milestone, changedGoals) {
			continue
		}

		userMilestone := umMap[milestone.MilestoneID]
		if userMilestone == nil {
			logger.Error("processed milestone the user has no subscription row for",
				"milestoneID", milestone.MilestoneID)
			return nil, fmt.Errorf("no user-milestone row for %s", milestone.MilestoneID)
		}

		progress, err := u.milestoneProgress(ctx, userID, milestone, changedGoals)
		if err != nil {
			return nil, err
		}

		updates[milestone.MilestoneID] = progress

		if progress.Progress != userMilestone.Progress {
			report = append(report, storage.MilestoneImportInfo{
				MilestoneID: milestone.MilestoneID,
				Old: storage.MilestoneProgress{
					Achieved: userMilestone.Achieved,
					Progress: userMilestone.Progress,
				},
				New: progress,
			})
		}
		if progress.Achieved && !userMilestone.Achieved {
			u.events.Publish(ctx, events.TypeMilestoneAchieved, userID, map[string]any{
				"milestoneID": milestone.MilestoneID,
				"game":        game,
			})
		}
	}

	if len(updates) > 0 {
		if err := u.store.BulkUpdateUserMilestones(ctx, userID, updates); err != nil {
			return nil, fmt.Errorf("milestone update: %w", err)
		}
	}
	return report, nil
}

func touchesChangedGoal(milestone *storage.Milestone, changed map[string]storage.GoalProgress) bool {
	return slices.ContainsFunc(milestone.GoalIDs, func(goalID string) bool {
		_, ok := changed[goalID]
		return ok
	})
}

// milestoneProgress counts achieved member goals, preferring this import's
// fresh goal states over the stored rows.
func (u *Updater) milestoneProgress(ctx context.Context, userID int, milestone *storage.Milestone, changed map[string]storage.GoalProgress) (storage.MilestoneProgress, error) {
	stored, err := u.store.FindUserGoals(ctx, userID, milestone.GoalIDs)
	if err != nil {
		return storage.MilestoneProgress{}, fmt.Errorf("milestone goal lookup: %w", err)
	}
	achievedMap := make(map[string]bool, len(stored))
	for i := range stored {
		achievedMap[stored[i].GoalID] = stored[i].Achieved
	}
	for goalID, progress := range changed {
		achievedMap[goalID] = progress.Achieved
	}

	count := 0
	for _, goalID := range milestone.GoalIDs {
		if achievedMap[goalID] {
			count++
		}
	}

	threshold := milestone.Threshold
	if threshold == 0 {
		threshold = len(milestone.GoalIDs)
	}

	return storage.MilestoneProgress{
		Achieved: count >= threshold,
		Progress: count,
	}, nil
}
