package scoreimport

import (
	"fmt"
	"time"

	"encore/internal/calcdata"
	"encore/internal/games"
	"encore/internal/sources"
	"encore/internal/storage"
)

// hydrate turns a converted dry score into a full score document: identity,
// ordering indices and calculated data attached. The playtype is the
// resolved chart's; one batch may span playtypes.
func hydrate(userID int, importType string, conv *sources.ConvertedScore) (*storage.Score, error) {
	dry := &conv.Dry
	playtype := conv.Chart.Playtype

	cfg, err := games.GetGPTConfig(dry.Game, playtype)
	if err != nil {
		return nil, err
	}

	gradeIndex := cfg.GradeIndex(dry.ScoreData.Grade)
	if gradeIndex < 0 {
		return nil, fmt.Errorf("converter produced unknown grade %q for %s:%s", dry.ScoreData.Grade, dry.Game, playtype)
	}
	lampIndex := cfg.LampIndex(dry.ScoreData.Lamp)
	if lampIndex < 0 {
		return nil, fmt.Errorf("converter produced unknown lamp %q for %s:%s", dry.ScoreData.Lamp, dry.Game, playtype)
	}

	sd := storage.ScoreData{
		Score:      dry.ScoreData.Score,
		Percent:    dry.ScoreData.Percent,
		Grade:      dry.ScoreData.Grade,
		GradeIndex: gradeIndex,
		Lamp:       dry.ScoreData.Lamp,
		LampIndex:  lampIndex,
		Judgements: dry.ScoreData.Judgements,
		HitMeta:    dry.ScoreData.HitMeta,
	}

	calc, err := calcdata.ForScore(dry.Game, playtype, conv.Chart, &sd)
	if err != nil {
		return nil, err
	}

	return &storage.Score{
		ScoreID:        scoreID(userID, conv.Chart, dry),
		UserID:         userID,
		ChartID:        conv.Chart.ChartID,
		SongID:         conv.Song.SongID,
		Game:           dry.Game,
		Playtype:       playtype,
		ImportType:     importType,
		Service:        dry.Service,
		Comment:        dry.Comment,
		TimeAchieved:   dry.TimeAchieved,
		TimeAdded:      time.Now().UnixMilli(),
		ScoreData:      sd,
		ScoreMeta:      dry.ScoreMeta,
		CalculatedData: calc,
	}, nil
}
