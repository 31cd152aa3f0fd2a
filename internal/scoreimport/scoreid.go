package scoreimport

import (
	"fmt"

	"github.com/cespare/xxhash/v2"

	"encore/internal/sources"
	"encore/internal/storage"
)

// scoreID derives a score's identity. Two submissions of the same play
// hash identically, which is what makes re-importing a file a no-op; the
// fields below are exactly the ones that define "the same play".
func scoreID(userID int, chart *storage.Chart, dry *sources.DryScore) string {
	t := int64(-1)
	if dry.TimeAchieved != nil {
		t = *dry.TimeAchieved
	}
	key := fmt.Sprintf("%d|%s|%.6f|%s|%s|%.6f|%d",
		userID, chart.ChartID,
		dry.ScoreData.Score, dry.ScoreData.Lamp, dry.ScoreData.Grade,
		dry.ScoreData.Percent, t,
	)
	return fmt.Sprintf("E%016x", xxhash.Sum64String(key))
}
