package storage

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"encore/internal/games"
)

// FindPB fetches the personal best for one (user, chart), or nil.
func (s *Store) FindPB(ctx context.Context, userID int, chartID string) (*PBScore, error) {
	var pb PBScore
	err := s.ctx(ctx).Where("user_id = ? AND chart_id = ?", userID, chartID).First(&pb).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find pb: %w", err)
	}
	return &pb, nil
}

// FindPBsForCharts fetches a user's personal bests across a chart set.
func (s *Store) FindPBsForCharts(ctx context.Context, userID int, chartIDs []string) ([]PBScore, error) {
	if len(chartIDs) == 0 {
		return nil, nil
	}
	var pbs []PBScore
	err := s.ctx(ctx).Where("user_id = ? AND chart_id IN ?", userID, chartIDs).Find(&pbs).Error
	if err != nil {
		return nil, fmt.Errorf("find pbs for charts: %w", err)
	}
	return pbs, nil
}

// UpsertPB writes a personal best, replacing any previous row for the
// (user, chart) pair.
func (s *Store) UpsertPB(ctx context.Context, pb *PBScore) error {
	return s.ctx(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "chart_id"}},
		UpdateAll: true,
	}).Create(pb).Error
}

// FindTopPBsByCalcKey returns a user's primary personal bests with the
// given calculated-data key positive, best first, at most limit rows.
func (s *Store) FindTopPBsByCalcKey(ctx context.Context, game games.Game, playtype games.Playtype, userID int, key string, limit int) ([]PBScore, error) {
	// key comes from the fixed per-GPT rating tables, never from callers.
	order := fmt.Sprintf("json_extract(calculated_data, '$.%s') DESC", key)
	var pbs []PBScore
	err := s.ctx(ctx).
		Where("game = ? AND playtype = ? AND user_id = ? AND is_primary = ? AND json_extract(calculated_data, ?) > 0",
			game, playtype, userID, true, "$."+key).
		Order(order).
		Limit(limit).
		Find(&pbs).Error
	if err != nil {
		return nil, fmt.Errorf("find top pbs by %s: %w", key, err)
	}
	return pbs, nil
}

// SumPBsCalcKey sums a calculated-data key over every qualifying primary
// personal best the user has for the pair.
func (s *Store) SumPBsCalcKey(ctx context.Context, game games.Game, playtype games.Playtype, userID int, key string) (float64, error) {
	path := "$." + key
	var total float64
	err := s.ctx(ctx).Model(&PBScore{}).
		Where("game = ? AND playtype = ? AND user_id = ? AND is_primary = ? AND json_extract(calculated_data, ?) > 0",
			game, playtype, userID, true, path).
		Select("COALESCE(SUM(json_extract(calculated_data, ?)), 0)", path).
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("sum pbs by %s: %w", key, err)
	}
	return total, nil
}

// FindBestPBPerSong returns, for each song in songIDs, the user's best
// personal best ranked by the calculated-data key, best first, at most
// limit songs. Rating functions that split the catalog into pools use this.
func (s *Store) FindBestPBPerSong(ctx context.Context, game games.Game, playtype games.Playtype, userID int, songIDs []int, key string, limit int) ([]PBScore, error) {
	if len(songIDs) == 0 {
		return nil, nil
	}
	order := fmt.Sprintf("json_extract(calculated_data, '$.%s') DESC", key)
	var pbs []PBScore
	err := s.ctx(ctx).
		Where("game = ? AND playtype = ? AND user_id = ? AND song_id IN ? AND json_extract(calculated_data, ?) > 0",
			game, playtype, userID, songIDs, "$."+key).
		Order(order).
		Find(&pbs).Error
	if err != nil {
		return nil, fmt.Errorf("find best pb per song: %w", err)
	}

	seen := make(map[int]bool, len(pbs))
	out := make([]PBScore, 0, limit)
	for _, pb := range pbs {
		if seen[pb.SongID] {
			continue
		}
		seen[pb.SongID] = true
		out = append(out, pb)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}
