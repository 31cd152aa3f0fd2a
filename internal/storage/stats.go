package storage

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"encore/internal/games"
)

// FindGameStats fetches a user's aggregate stats for one pair, or nil when
// the user has never imported for it.
func (s *Store) FindGameStats(ctx context.Context, userID int, game games.Game, playtype games.Playtype) (*UserGameStats, error) {
	var stats UserGameStats
	err := s.ctx(ctx).Where("user_id = ? AND game = ? AND playtype = ?", userID, game, playtype).First(&stats).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find game stats: %w", err)
	}
	return &stats, nil
}

// UpsertGameStats replaces a user's aggregate stats for one pair.
func (s *Store) UpsertGameStats(ctx context.Context, stats *UserGameStats) error {
	return s.ctx(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "game"}, {Name: "playtype"}},
		UpdateAll: true,
	}).Create(stats).Error
}
