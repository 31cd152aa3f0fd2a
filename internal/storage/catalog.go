package storage

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"gorm.io/gorm"

	"encore/internal/games"
)

// InsertSongs persists catalog songs. Used by seeding tooling and tests.
func (s *Store) InsertSongs(ctx context.Context, songs []*Song) error {
	if len(songs) == 0 {
		return nil
	}
	return s.ctx(ctx).Create(songs).Error
}

// InsertCharts persists catalog charts.
func (s *Store) InsertCharts(ctx context.Context, charts []*Chart) error {
	if len(charts) == 0 {
		return nil
	}
	return s.ctx(ctx).Create(charts).Error
}

// FindSongByID looks a song up by its game-native numeric ID.
func (s *Store) FindSongByID(ctx context.Context, game games.Game, songID int) (*Song, error) {
	var song Song
	err := s.ctx(ctx).Where("game = ? AND song_id = ?", game, songID).First(&song).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find song %s/%d: %w", game, songID, err)
	}
	return &song, nil
}

// FindSongByTitle resolves a song by exact title, falling back to alternate
// titles. CSV sources only carry titles, not IDs.
func (s *Store) FindSongByTitle(ctx context.Context, game games.Game, title string) (*Song, error) {
	var song Song
	err := s.ctx(ctx).Where("game = ? AND title = ?", game, title).First(&song).Error
	if err == nil {
		return &song, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("find song by title: %w", err)
	}

	// Alt titles are a JSON array; narrow with LIKE and confirm in Go.
	var candidates []Song
	pattern := `%"` + title + `"%`
	if err := s.ctx(ctx).Where("game = ? AND alt_titles LIKE ?", game, pattern).Find(&candidates).Error; err != nil {
		return nil, fmt.Errorf("find song by alt title: %w", err)
	}
	for i := range candidates {
		if slices.Contains(candidates[i].AltTitles, title) {
			return &candidates[i], nil
		}
	}
	return nil, nil
}

// FindChartByID looks a chart up by its opaque chart ID.
func (s *Store) FindChartByID(ctx context.Context, chartID string) (*Chart, error) {
	var chart Chart
	err := s.ctx(ctx).Where("chart_id = ?", chartID).First(&chart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find chart %s: %w", chartID, err)
	}
	return &chart, nil
}

// FindChartBySongDifficulty resolves a chart from song ID plus difficulty,
// the resolution path for sources that know our song IDs.
func (s *Store) FindChartBySongDifficulty(ctx context.Context, game games.Game, playtype games.Playtype, songID int, difficulty string) (*Chart, error) {
	var chart Chart
	err := s.ctx(ctx).
		Where("game = ? AND playtype = ? AND song_id = ? AND difficulty = ?", game, playtype, songID, difficulty).
		First(&chart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find chart %s/%d/%s: %w", game, songID, difficulty, err)
	}
	return &chart, nil
}

// FindChartByInGameID resolves a chart from the in-game numeric ID plus a
// version epoch, the resolution path for vendor APIs. The version must be
// one of the chart's listed versions.
func (s *Store) FindChartByInGameID(ctx context.Context, game games.Game, playtype games.Playtype, inGameID int, difficulty, version string) (*Chart, error) {
	var candidates []Chart
	err := s.ctx(ctx).
		Where("game = ? AND playtype = ? AND difficulty = ? AND json_extract(data, '$.inGameID') = ?",
			game, playtype, difficulty, inGameID).
		Find(&candidates).Error
	if err != nil {
		return nil, fmt.Errorf("find chart by in-game id: %w", err)
	}
	for i := range candidates {
		if version == "" || slices.Contains(candidates[i].Versions, version) {
			return &candidates[i], nil
		}
	}
	return nil, nil
}

// FindChartByHash resolves a BMS-family chart from its content hash. Either
// hash may be empty.
func (s *Store) FindChartByHash(ctx context.Context, game games.Game, md5, sha256 string) (*Chart, error) {
	q := s.ctx(ctx).Where("game = ?", game)
	switch {
	case sha256 != "":
		q = q.Where("json_extract(data, '$.hashSHA256') = ?", sha256)
	case md5 != "":
		q = q.Where("json_extract(data, '$.hashMD5') = ?", md5)
	default:
		return nil, errors.New("no content hash provided")
	}

	var chart Chart
	err := q.First(&chart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find chart by hash: %w", err)
	}
	return &chart, nil
}

// FindSongsWithDataFlag returns song IDs whose data JSON has the flag set to
// the given boolean. Used by rating functions that split the catalog into
// hot/cold pools.
func (s *Store) FindSongsWithDataFlag(ctx context.Context, game games.Game, flag string, value bool) ([]int, error) {
	var ids []int
	err := s.ctx(ctx).Model(&Song{}).
		Where("game = ? AND json_extract(data, ?) = ?", game, "$."+flag, value).
		Pluck("song_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("find songs by flag %s: %w", flag, err)
	}
	return ids, nil
}
