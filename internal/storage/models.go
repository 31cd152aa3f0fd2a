package storage

import (
	"encore/internal/games"
)

// CalculatedData maps a rating name to its value. A nil entry is an explicit
// "does not apply" and is preserved through serialization; the key set for a
// (game, playtype) pair is fixed by its rating table.
type CalculatedData map[string]*float64

// Song is one reference catalog song.
type Song struct {
	ID        uint           `gorm:"primaryKey"`
	Game      games.Game     `gorm:"index:idx_songs_game_song,unique;index:idx_songs_game_title"`
	SongID    int            `gorm:"index:idx_songs_game_song,unique"`
	Title     string         `gorm:"index:idx_songs_game_title"`
	Artist    string
	AltTitles []string       `gorm:"serializer:json"`
	Data      map[string]any `gorm:"serializer:json"`
}

// ChartData carries the source-specific resolution keys for a chart.
type ChartData struct {
	InGameID   int      `json:"inGameID,omitempty"`
	HashMD5    string   `json:"hashMD5,omitempty"`
	HashSHA256 string   `json:"hashSHA256,omitempty"`
	IsOfficial *bool    `json:"isOfficial,omitempty"`
	IsHot      *bool    `json:"isHot,omitempty"`
	// KaidenAverage and WorldRecord form the chart ranking context some
	// rating functions need; absent context nulls those ratings.
	KaidenAverage *int `json:"kaidenAverage,omitempty"`
	WorldRecord   *int `json:"worldRecord,omitempty"`
}

// Chart is one playable difficulty of a song for a (game, playtype).
type Chart struct {
	ID         uint           `gorm:"primaryKey"`
	ChartID    string         `gorm:"uniqueIndex"`
	Game       games.Game     `gorm:"index:idx_charts_resolve"`
	Playtype   games.Playtype `gorm:"index:idx_charts_resolve"`
	SongID     int            `gorm:"index:idx_charts_resolve"`
	Difficulty string         `gorm:"index:idx_charts_resolve"`
	Level      string
	LevelNum   float64
	Notecount  int
	IsPrimary  bool
	Versions   []string  `gorm:"serializer:json"`
	Data       ChartData `gorm:"serializer:json"`
}

// ScoreData is the normalized result of one play.
type ScoreData struct {
	Score      float64
	Percent    float64
	Grade      string
	GradeIndex int
	Lamp       string
	LampIndex  int
	Judgements map[string]int `gorm:"serializer:json"`
	HitMeta    map[string]any `gorm:"serializer:json"`
}

// Score is a canonical score document. Immutable once persisted except for
// CalculatedData and IsPrimary.
type Score struct {
	ID             uint           `gorm:"primaryKey"`
	ScoreID        string         `gorm:"uniqueIndex"`
	UserID         int            `gorm:"index:idx_scores_user_chart"`
	ChartID        string         `gorm:"index:idx_scores_user_chart"`
	SongID         int
	Game           games.Game
	Playtype       games.Playtype
	ImportType     string
	Service        string
	Comment        *string
	TimeAchieved   *int64
	TimeAdded      int64
	IsPrimary      bool
	ScoreData      ScoreData      `gorm:"embedded"`
	ScoreMeta      map[string]any `gorm:"serializer:json"`
	CalculatedData CalculatedData `gorm:"serializer:json"`
}

// PBComposition records which scores a personal best was composed from.
type PBComposition struct {
	ScorePB string `json:"scorePB"`
	LampPB  string `json:"lampPB"`
}

// PBScore is the derived best for one (user, chart). Never independently
// authored; rebuilt whenever a better score arrives.
type PBScore struct {
	ID             uint           `gorm:"primaryKey"`
	UserID         int            `gorm:"index:idx_pbs_user_chart,unique;index:idx_pbs_ranking"`
	ChartID        string         `gorm:"index:idx_pbs_user_chart,unique"`
	SongID         int
	Game           games.Game     `gorm:"index:idx_pbs_ranking"`
	Playtype       games.Playtype `gorm:"index:idx_pbs_ranking"`
	IsPrimary      bool
	TimeAchieved   *int64
	ScoreData      ScoreData      `gorm:"embedded"`
	CalculatedData CalculatedData `gorm:"serializer:json"`
	ComposedFrom   PBComposition  `gorm:"serializer:json"`
}

// ScoreInfo is one session member's delta against the personal best that
// stood before the member was imported.
type ScoreInfo struct {
	ScoreID      string   `json:"scoreID"`
	IsNewScore   bool     `json:"isNewScore"`
	GradeDelta   *int     `json:"gradeDelta,omitempty"`
	LampDelta    *int     `json:"lampDelta,omitempty"`
	PercentDelta *float64 `json:"percentDelta,omitempty"`
	ScoreDelta   *float64 `json:"scoreDelta,omitempty"`
}

// Session is a time-clustered group of one user's scores for one
// game+playtype+source. Append-only growth; the time span always equals the
// min/max timeAchieved over members.
type Session struct {
	ID             uint           `gorm:"primaryKey"`
	SessionID      string         `gorm:"uniqueIndex"`
	UserID         int            `gorm:"index:idx_sessions_lookup"`
	Game           games.Game     `gorm:"index:idx_sessions_lookup"`
	Playtype       games.Playtype `gorm:"index:idx_sessions_lookup"`
	ImportType     string         `gorm:"index:idx_sessions_lookup"`
	Name           string
	Desc           *string
	Highlight      bool
	Views          int
	TimeInserted   int64
	TimeStarted    int64 `gorm:"index"`
	TimeEnded      int64 `gorm:"index"`
	ScoreInfo      []ScoreInfo    `gorm:"serializer:json"`
	CalculatedData CalculatedData `gorm:"serializer:json"`
}

// GoalCharts names the charts a goal is judged over.
type GoalCharts struct {
	// Type is "single", "any" or "all".
	Type     string   `json:"type"`
	ChartIDs []string `json:"chartIDs"`
}

// GoalCriteria is the numeric condition a goal checks against a PB.
type GoalCriteria struct {
	// Key is one of percent, score, lampIndex, gradeIndex.
	Key   string  `json:"key"`
	Value float64 `json:"value"`
}

// Goal is a long-lived condition users can subscribe to.
type Goal struct {
	ID       uint           `gorm:"primaryKey"`
	GoalID   string         `gorm:"uniqueIndex"`
	Game     games.Game     `gorm:"index:idx_goals_gpt"`
	Playtype games.Playtype `gorm:"index:idx_goals_gpt"`
	Title    string
	Charts   GoalCharts   `gorm:"serializer:json"`
	Criteria GoalCriteria `gorm:"serializer:json"`
}

// UserGoal tracks one user's progress against a goal.
type UserGoal struct {
	ID           uint       `gorm:"primaryKey"`
	GoalID       string     `gorm:"index:idx_usergoals,unique"`
	UserID       int        `gorm:"index:idx_usergoals,unique"`
	Game         games.Game
	Playtype     games.Playtype
	Achieved     bool
	Progress     *float64
	OutOf        float64
	TimeAchieved *int64
}

// Milestone groups goals; progress counts achieved member goals.
type Milestone struct {
	ID          uint           `gorm:"primaryKey"`
	MilestoneID string         `gorm:"uniqueIndex"`
	Game        games.Game     `gorm:"index:idx_milestones_gpt"`
	Playtype    games.Playtype `gorm:"index:idx_milestones_gpt"`
	Name        string
	Desc        string
	GoalIDs     []string `gorm:"serializer:json"`
	// Threshold is how many member goals must be achieved; zero means all.
	Threshold int
}

// UserMilestone tracks one user's progress against a milestone.
type UserMilestone struct {
	ID          uint           `gorm:"primaryKey"`
	MilestoneID string         `gorm:"index:idx_usermilestones,unique"`
	UserID      int            `gorm:"index:idx_usermilestones,unique;index:idx_usermilestones_gpt"`
	Game        games.Game     `gorm:"index:idx_usermilestones_gpt"`
	Playtype    games.Playtype `gorm:"index:idx_usermilestones_gpt"`
	Achieved    bool
	Progress    int
}

// UserGameStats is a user's rolling aggregate state for one (game,
// playtype). Ratings and classes are fully recomputed each update cycle.
type UserGameStats struct {
	ID       uint               `gorm:"primaryKey"`
	UserID   int                `gorm:"index:idx_gamestats,unique"`
	Game     games.Game         `gorm:"index:idx_gamestats,unique"`
	Playtype games.Playtype     `gorm:"index:idx_gamestats,unique"`
	Ratings  map[string]float64 `gorm:"serializer:json"`
	Classes  map[string]string  `gorm:"serializer:json"`
}

// SessionInfoReturn records whether an import created or appended a session.
type SessionInfoReturn struct {
	SessionID string `json:"sessionID"`
	Type      string `json:"type"` // "Created" or "Appended"
}

// ImportError is one skipped record's reason, kept on the import document so
// callers can inspect the per-record report.
type ImportError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// ClassDelta records a class improvement or first achievement.
type ClassDelta struct {
	Game     games.Game     `json:"game"`
	Playtype games.Playtype `json:"playtype"`
	Set      string         `json:"set"`
	Old      *string        `json:"old"`
	New      string         `json:"new"`
}

// GoalProgress is a user-goal state snapshot.
type GoalProgress struct {
	Achieved bool     `json:"achieved"`
	Progress *float64 `json:"progress"`
	OutOf    float64  `json:"outOf"`
}

// GoalImportInfo reports a goal whose state changed during an import.
type GoalImportInfo struct {
	GoalID string       `json:"goalID"`
	Old    GoalProgress `json:"old"`
	New    GoalProgress `json:"new"`
}

// MilestoneProgress is a user-milestone state snapshot.
type MilestoneProgress struct {
	Achieved bool `json:"achieved"`
	Progress int  `json:"progress"`
}

// MilestoneImportInfo reports a milestone whose progress actually changed.
type MilestoneImportInfo struct {
	MilestoneID string            `json:"milestoneID"`
	Old         MilestoneProgress `json:"old"`
	New         MilestoneProgress `json:"new"`
}

// ImportDocument is the persisted record of one import batch.
type ImportDocument struct {
	ID              uint       `gorm:"primaryKey"`
	ImportID        string     `gorm:"uniqueIndex"`
	UserID          int        `gorm:"index"`
	Game            games.Game
	ImportType      string
	TimeStarted     int64
	TimeFinished    int64
	ScoreIDs        []string              `gorm:"serializer:json"`
	CreatedSessions []SessionInfoReturn   `gorm:"serializer:json"`
	Errors          []ImportError         `gorm:"serializer:json"`
	ClassDeltas     []ClassDelta          `gorm:"serializer:json"`
	GoalInfo        []GoalImportInfo      `gorm:"serializer:json"`
	MilestoneInfo   []MilestoneImportInfo `gorm:"serializer:json"`
}
