package storage

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"encore/internal/games"
)

// FindNearbySession finds an existing session for the user/game/playtype/
// importType whose span starts or ends inside [windowStart, windowEnd).
// More than one session can match when sessions are sparse and long; only
// the earliest-started match is returned, which is the documented merge
// behavior.
func (s *Store) FindNearbySession(ctx context.Context, userID int, game games.Game, playtype games.Playtype, importType string, windowStart, windowEnd int64) (*Session, error) {
	var session Session
	err := s.ctx(ctx).
		Where("user_id = ? AND game = ? AND playtype = ? AND import_type = ?", userID, game, playtype, importType).
		Where("(time_started >= ? AND time_started < ?) OR (time_ended >= ? AND time_ended < ?)",
			windowStart, windowEnd, windowStart, windowEnd).
		Order("time_started ASC").
		First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find nearby session: %w", err)
	}
	return &session, nil
}

// FindSessionByID fetches a session by its opaque ID, or nil.
func (s *Store) FindSessionByID(ctx context.Context, sessionID string) (*Session, error) {
	var session Session
	err := s.ctx(ctx).Where("session_id = ?", sessionID).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find session %s: %w", sessionID, err)
	}
	return &session, nil
}

// FindSessionsByIDs fetches sessions by their opaque IDs.
func (s *Store) FindSessionsByIDs(ctx context.Context, sessionIDs []string) ([]Session, error) {
	if len(sessionIDs) == 0 {
		return nil, nil
	}
	var sessions []Session
	err := s.ctx(ctx).Where("session_id IN ?", sessionIDs).Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("find sessions: %w", err)
	}
	return sessions, nil
}

// InsertSession persists a new session.
func (s *Store) InsertSession(ctx context.Context, session *Session) error {
	return s.ctx(ctx).Create(session).Error
}

// SaveSession writes back a merged session.
func (s *Store) SaveSession(ctx context.Context, session *Session) error {
	return s.ctx(ctx).Save(session).Error
}

// SessionScores resolves the member scores of a session from its score info.
func (s *Store) SessionScores(ctx context.Context, session *Session) ([]Score, error) {
	ids := make([]string, 0, len(session.ScoreInfo))
	for _, info := range session.ScoreInfo {
		ids = append(ids, info.ScoreID)
	}
	return s.FindScoresByIDs(ctx, ids)
}
