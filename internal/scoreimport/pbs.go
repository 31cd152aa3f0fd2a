package scoreimport

import (
	"context"
	"fmt"

	"encore/internal/calcdata"
	"encore/internal/storage"
)

// rebuildPBs recomputes the personal best on every touched (user, chart).
// A PB is composed, not copied: the best score-wise play contributes the
// score data, the best lamp-wise play contributes the lamp, and the
// composition is recorded so the PB can always be traced back.
func (im *Importer) rebuildPBs(ctx context.Context, userID int, chartIDs []string) error {
	for _, chartID := range chartIDs {
		if err := im.rebuildPB(ctx, userID, chartID); err != nil {
			return fmt.Errorf("pb rebuild for chart %s: %w", chartID, err)
		}
	}
	return nil
}

func (im *Importer) rebuildPB(ctx context.Context, userID int, chartID string) error {
	scores, err := im.store.FindUserChartScores(ctx, userID, chartID)
	if err != nil {
		return err
	}
	if len(scores) == 0 {
		return nil
	}

	scorePB := &scores[0]
	lampPB := &scores[0]
	for i := range scores[1:] {
		s := &scores[i+1]
		if betterScore(s, scorePB) {
			scorePB = s
		}
		if betterLamp(s, lampPB) {
			lampPB = s
		}
	}

	chart, err := im.store.FindChartByID(ctx, chartID)
	if err != nil {
		return err
	}
	if chart == nil {
		return fmt.Errorf("chart %s vanished during pb rebuild", chartID)
	}

	sd := scorePB.ScoreData
	sd.Lamp = lampPB.ScoreData.Lamp
	sd.LampIndex = lampPB.ScoreData.LampIndex

	// Ratings follow the composed result, not either contributing play.
	calc, err := calcdata.ForScore(scorePB.Game, scorePB.Playtype, chart, &sd)
	if err != nil {
		return err
	}

	pb := &storage.PBScore{
		UserID:       userID,
		ChartID:      chartID,
		SongID:       scorePB.SongID,
		Game:         scorePB.Game,
		Playtype:     scorePB.Playtype,
		IsPrimary:    true,
		TimeAchieved:   scorePB.TimeAchieved,
		ScoreData:      sd,
		CalculatedData: calc,
		ComposedFrom: storage.PBComposition{
			ScorePB: scorePB.ScoreID,
			LampPB:  lampPB.ScoreID,
		},
	}

	if err := im.store.UpsertPB(ctx, pb); err != nil {
		return err
	}
	return im.store.SetPrimaryScore(ctx, userID, chartID, scorePB.ScoreID)
}

func betterScore(a, b *storage.Score) bool {
	if a.ScoreData.Percent != b.ScoreData.Percent {
		return a.ScoreData.Percent > b.ScoreData.Percent
	}
	return a.ScoreData.Score > b.ScoreData.Score
}

func betterLamp(a, b *storage.Score) bool {
	return a.ScoreData.LampIndex > b.ScoreData.LampIndex
}
