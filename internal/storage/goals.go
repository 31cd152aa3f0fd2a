package storage

import (
	"context"
	"fmt"
	"slices"

	"gorm.io/gorm/clause"

	"encore/internal/games"
)

// InsertGoals persists goal definitions.
func (s *Store) InsertGoals(ctx context.Context, goals []*Goal) error {
	if len(goals) == 0 {
		return nil
	}
	return s.ctx(ctx).Create(goals).Error
}

// InsertMilestones persists milestone definitions.
func (s *Store) InsertMilestones(ctx context.Context, milestones []*Milestone) error {
	if len(milestones) == 0 {
		return nil
	}
	return s.ctx(ctx).Create(milestones).Error
}

// InsertUserGoals persists user-goal subscription rows.
func (s *Store) InsertUserGoals(ctx context.Context, rows []*UserGoal) error {
	if len(rows) == 0 {
		return nil
	}
	return s.ctx(ctx).Create(rows).Error
}

// InsertUserMilestones persists user-milestone subscription rows.
func (s *Store) InsertUserMilestones(ctx context.Context, rows []*UserMilestone) error {
	if len(rows) == 0 {
		return nil
	}
	return s.ctx(ctx).Create(rows).Error
}

// FindGoalsTouchingCharts returns the goals for the pair whose chart set
// intersects chartIDs. Goal counts are small; the intersection is checked
// in Go over the pair's goals.
func (s *Store) FindGoalsTouchingCharts(ctx context.Context, game games.Game, playtype games.Playtype, chartIDs []string) ([]Goal, error) {
	var goals []Goal
	err := s.ctx(ctx).Where("game = ? AND playtype = ?", game, playtype).Find(&goals).Error
	if err != nil {
		return nil, fmt.Errorf("find goals for pair: %w", err)
	}

	touched := make([]Goal, 0, len(goals))
	for _, goal := range goals {
		for _, chartID := range goal.Charts.ChartIDs {
			if slices.Contains(chartIDs, chartID) {
				touched = append(touched, goal)
				break
			}
		}
	}
	return touched, nil
}

// FindUserGoals fetches the user's rows for the given goal IDs.
func (s *Store) FindUserGoals(ctx context.Context, userID int, goalIDs []string) ([]UserGoal, error) {
	if len(goalIDs) == 0 {
		return nil, nil
	}
	var rows []UserGoal
	err := s.ctx(ctx).Where("user_id = ? AND goal_id IN ?", userID, goalIDs).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("find user goals: %w", err)
	}
	return rows, nil
}

// SaveUserGoal writes back an updated user-goal row.
func (s *Store) SaveUserGoal(ctx context.Context, row *UserGoal) error {
	return s.ctx(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "goal_id"}, {Name: "user_id"}},
		UpdateAll: true,
	}).Create(row).Error
}

// FindUserMilestones fetches all of a user's milestone rows for one pair.
func (s *Store) FindUserMilestones(ctx context.Context, userID int, game games.Game, playtype games.Playtype) ([]UserMilestone, error) {
	var rows []UserMilestone
	err := s.ctx(ctx).Where("user_id = ? AND game = ? AND playtype = ?", userID, game, playtype).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("find user milestones: %w", err)
	}
	return rows, nil
}

// FindMilestonesByIDs fetches milestone definitions by ID.
func (s *Store) FindMilestonesByIDs(ctx context.Context, milestoneIDs []string) ([]Milestone, error) {
	if len(milestoneIDs) == 0 {
		return nil, nil
	}
	var rows []Milestone
	err := s.ctx(ctx).Where("milestone_id IN ?", milestoneIDs).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("find milestones: %w", err)
	}
	return rows, nil
}

// BulkUpdateUserMilestones writes achieved/progress for many user-milestone
// rows in one pass.
func (s *Store) BulkUpdateUserMilestones(ctx context.Context, userID int, updates map[string]MilestoneProgress) error {
	if len(updates) == 0 {
		return nil
	}
	db := s.ctx(ctx)
	for milestoneID, state := range updates {
		err := db.Model(&UserMilestone{}).
			Where("user_id = ? AND milestone_id = ?", userID, milestoneID).
			Updates(map[string]any{"achieved": state.Achieved, "progress": state.Progress}).Error
		if err != nil {
			return fmt.Errorf("update user milestone %s: %w", milestoneID, err)
		}
	}
	return nil
}
