// Package sessions clusters timestamped scores into play sessions. Scores
// within the gap window of each other belong together; a cluster lands in a
// nearby existing session when one exists and becomes a new session
// otherwise.
package sessions

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"encore/internal/calcdata"
	"encore/internal/games"
	"encore/internal/storage"
)

// DefaultGap is the silence that ends a session.
const DefaultGap = 2 * time.Hour

type Builder struct {
	store *storage.Store
	gap   int64 // millis
}

func NewBuilder(store *storage.Store, gap time.Duration) *Builder {
	if gap <= 0 {
		gap = DefaultGap
	}
	return &Builder{store: store, gap: gap.Milliseconds()}
}

// Load places the batch's scores into sessions and reports which sessions
// were created or appended to. Scores without a timeAchieved cannot be
// placed and are skipped.
func (b *Builder) Load(ctx context.Context, userID int, importType string, game games.Game, playtype games.Playtype, scores []storage.Score, logger *slog.Logger) ([]storage.SessionInfoReturn, error) {
	timestamped := make([]storage.Score, 0, len(scores))
	for i := range scores {
		if scores[i].TimeAchieved == nil {
			continue
		}
		timestamped = append(timestamped, scores[i])
	}
	if len(timestamped) == 0 {
		logger.Debug("no timestamped scores, skipping session generation")
		return nil, nil
	}

	slices.SortFunc(timestamped, func(a, b storage.Score) int {
		switch {
		case *a.TimeAchieved < *b.TimeAchieved:
			return -1
		case *a.TimeAchieved > *b.TimeAchieved:
			return 1
		default:
			return 0
		}
	})

	groups := b.groupByGap(timestamped)
	logger.Debug("grouped timestamped scores", "groups", len(groups))

	var returns []storage.SessionInfoReturn
	for _, group := range groups {
		info, err := b.loadGroup(ctx, userID, importType, game, playtype, group, logger)
		if err != nil {
			return nil, err
		}
		returns = append(returns, *info)
	}
	return returns, nil
}

// groupByGap splits ascending-sorted scores wherever the silence between
// consecutive plays reaches the gap. The comparison runs against the last
// score seen, not the group's start, so a long session stays one group.
func (b *Builder) groupByGap(sorted []storage.Score) [][]storage.Score {
	var groups [][]storage.Score
	var current []storage.Score
	lastTimestamp := int64(0)

	for i := range sorted {
		t := *sorted[i].TimeAchieved
		if t < lastTimestamp+b.gap {
			current = append(current, sorted[i])
		} else {
			if len(current) > 0 {
				groups = append(groups, current)
			}
			current = []storage.Score{sorted[i]}
		}
		lastTimestamp = t
	}
	groups = append(groups, current)
	return groups
}

func (b *Builder) loadGroup(ctx context.Context, userID int, importType string, game games.Game, playtype games.Playtype, group []storage.Score, logger *slog.Logger) (*storage.SessionInfoReturn, error) {
	start := *group[0].TimeAchieved
	end := *group[len(group)-1].TimeAchieved

	// Deltas compare against the PBs standing right now, before this
	// batch's rebuild runs.
	chartIDs := make([]string, len(group))
	for i := range group {
		chartIDs[i] = group[i].ChartID
	}
	pbs, err := b.store.FindPBsForCharts(ctx, userID, chartIDs)
	if err != nil {
		return nil, fmt.Errorf("session pb lookup: %w", err)
	}
	pbMap := make(map[string]*storage.PBScore, len(pbs))
	for i := range pbs {
		pbMap[pbs[i].ChartID] = &pbs[i]
	}

	info := make([]storage.ScoreInfo, len(group))
	for i := range group {
		info[i] = scoreInfoAgainstPB(&group[i], pbMap[group[i].ChartID])
	}

	nearby, err := b.store.FindNearbySession(ctx, userID, game, playtype, importType, start-b.gap, end+b.gap)
	if err != nil {
		return nil, fmt.Errorf("nearby session lookup: %w", err)
	}

	if nearby != nil {
		logger.Debug("appending to nearby session", "sessionID", nearby.SessionID)
		if err := b.appendToSession(ctx, nearby, info, group, start, end); err != nil {
			return nil, err
		}
		return &storage.SessionInfoReturn{SessionID: nearby.SessionID, Type: "Appended"}, nil
	}

	session, err := b.createSession(ctx, userID, importType, game, playtype, info, group, start, end)
	if err != nil {
		return nil, err
	}
	logger.Debug("created session", "sessionID", session.SessionID, "scores", len(group))
	return &storage.SessionInfoReturn{SessionID: session.SessionID, Type: "Created"}, nil
}

func (b *Builder) appendToSession(ctx context.Context, session *storage.Session, info []storage.ScoreInfo, group []storage.Score, start, end int64) error {
	oldScores, err := b.store.SessionScores(ctx, session)
	if err != nil {
		return fmt.Errorf("session member lookup: %w", err)
	}

	all := append(oldScores, group...)
	calc, err := calcdata.ForSession(session.Game, session.Playtype, all)
	if err != nil {
		return err
	}

	session.CalculatedData = calc
	session.ScoreInfo = append(session.ScoreInfo, info...)
	if start < session.TimeStarted {
		session.TimeStarted = start
	}
	if end > session.TimeEnded {
		session.TimeEnded = end
	}

	if err := b.store.SaveSession(ctx, session); err != nil {
		return fmt.Errorf("session update: %w", err)
	}
	return nil
}

func (b *Builder) createSession(ctx context.Context, userID int, importType string, game games.Game, playtype games.Playtype, info []storage.ScoreInfo, group []storage.Score, start, end int64) (*storage.Session, error) {
	calc, err := calcdata.ForSession(game, playtype, group)
	if err != nil {
		return nil, err
	}

	session := &storage.Session{
		SessionID:      uuid.NewString(),
		UserID:         userID,
		Game:           game,
		Playtype:       playtype,
		ImportType:     importType,
		Name:           RandomName(),
		TimeInserted:   time.Now().UnixMilli(),
		TimeStarted:    start,
		TimeEnded:      end,
		ScoreInfo:      info,
		CalculatedData: calc,
	}

	if err := b.store.InsertSession(ctx, session); err != nil {
		return nil, fmt.Errorf("session insert: %w", err)
	}
	return session, nil
}

// scoreInfoAgainstPB diffs a new score against the previous personal best
// on its chart. Positive deltas mean improvement.
func scoreInfoAgainstPB(score *storage.Score, pb *storage.PBScore) storage.ScoreInfo {
	if pb == nil {
		return storage.ScoreInfo{ScoreID: score.ScoreID, IsNewScore: true}
	}

	gradeDelta := score.ScoreData.GradeIndex - pb.ScoreData.GradeIndex
	lampDelta := score.ScoreData.LampIndex - pb.ScoreData.LampIndex
	percentDelta := score.ScoreData.Percent - pb.ScoreData.Percent
	scoreDelta := score.ScoreData.Score - pb.ScoreData.Score

	return storage.ScoreInfo{
		ScoreID:      score.ScoreID,
		IsNewScore:   false,
		GradeDelta:   &gradeDelta,
		LampDelta:    &lampDelta,
		PercentDelta: &percentDelta,
		ScoreDelta:   &scoreDelta,
	}
}
