package storage

import (
	"context"
	"fmt"

	"encore/internal/games"
)

// FilterExistingScoreIDs returns the subset of ids already present in the
// store. The orchestrator uses this for idempotent re-import: a known
// identity is discarded silently.
func (s *Store) FilterExistingScoreIDs(ctx context.Context, ids []string) (map[string]bool, error) {
	existing := make(map[string]bool, len(ids))
	if len(ids) == 0 {
		return existing, nil
	}
	var found []string
	err := s.ctx(ctx).Model(&Score{}).Where("score_id IN ?", ids).Pluck("score_id", &found).Error
	if err != nil {
		return nil, fmt.Errorf("filter existing score ids: %w", err)
	}
	for _, id := range found {
		existing[id] = true
	}
	return existing, nil
}

// InsertScores persists a batch of accepted scores.
func (s *Store) InsertScores(ctx context.Context, scores []*Score) error {
	if len(scores) == 0 {
		return nil
	}
	return s.ctx(ctx).Create(scores).Error
}

// FindScoresByIDs fetches scores by score identity.
func (s *Store) FindScoresByIDs(ctx context.Context, ids []string) ([]Score, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var scores []Score
	err := s.ctx(ctx).Where("score_id IN ?", ids).Find(&scores).Error
	if err != nil {
		return nil, fmt.Errorf("find scores by ids: %w", err)
	}
	return scores, nil
}

// FindUserChartScores returns all of a user's scores on one chart.
func (s *Store) FindUserChartScores(ctx context.Context, userID int, chartID string) ([]Score, error) {
	var scores []Score
	err := s.ctx(ctx).Where("user_id = ? AND chart_id = ?", userID, chartID).Find(&scores).Error
	if err != nil {
		return nil, fmt.Errorf("find user chart scores: %w", err)
	}
	return scores, nil
}

// SetPrimaryScore marks scoreID as the single primary score for the
// (user, chart) pair, clearing the flag on every other score there.
func (s *Store) SetPrimaryScore(ctx context.Context, userID int, chartID, scoreID string) error {
	db := s.ctx(ctx)
	if err := db.Model(&Score{}).
		Where("user_id = ? AND chart_id = ? AND score_id != ?", userID, chartID, scoreID).
		Update("is_primary", false).Error; err != nil {
		return fmt.Errorf("clear primary scores: %w", err)
	}
	if err := db.Model(&Score{}).
		Where("score_id = ?", scoreID).
		Update("is_primary", true).Error; err != nil {
		return fmt.Errorf("set primary score: %w", err)
	}
	return nil
}

// CountUserScores returns the number of stored scores for a user and game.
func (s *Store) CountUserScores(ctx context.Context, userID int, game games.Game) (int64, error) {
	var n int64
	err := s.ctx(ctx).Model(&Score{}).Where("user_id = ? AND game = ?", userID, game).Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count user scores: %w", err)
	}
	return n, nil
}
