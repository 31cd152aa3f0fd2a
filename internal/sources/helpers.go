package sources

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"encore/internal/games"
)

var validate = validator.New()

// ValidateStruct runs structural validation over a source-native record
// struct and reports the first offending fields in a readable form. A
// non-nil return is always an ErrInvalidScore failure.
func ValidateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return InvalidScoref("%v", err)
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fe.Field()+" failed "+fe.Tag())
	}
	return InvalidScoref("%s", strings.Join(parts, ", "))
}

// GradeAndPercentFromEX derives percent and grade from an EX score against
// the chart's notecount, the scoring model of the iidx/bms family.
func GradeAndPercentFromEX(cfg *games.GPTConfig, exScore, notecount int) (float64, string, error) {
	if notecount <= 0 {
		return 0, "", Internalf("chart has no notecount")
	}
	percent := float64(exScore) / (float64(notecount) * 2) * 100
	grade, err := cfg.GradeForPercent(percent)
	if err != nil {
		return 0, "", InvalidScoref("%v", err)
	}
	return percent, grade, nil
}

// GradeAndPercentFromScore derives percent and grade from a raw score with
// a fixed maximum, the scoring model of the sdvx/museca/chunithm family.
func GradeAndPercentFromScore(cfg *games.GPTConfig, score, max float64) (float64, string, error) {
	if max <= 0 {
		return 0, "", Internalf("score maximum not configured")
	}
	percent := score / max * 100
	grade, err := cfg.GradeForPercent(percent)
	if err != nil {
		return 0, "", InvalidScoref("%v", err)
	}
	return percent, grade, nil
}

// ParseTimestamp parses the "2006-01-02 15:04:05" timestamps partner APIs
// send, in UTC. Empty or unparseable values yield nil: the score simply has
// no timeAchieved and stays out of sessions.
func ParseTimestamp(raw string) *int64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02 15:04:05", raw)
	if err != nil {
		return nil
	}
	millis := t.UnixMilli()
	return &millis
}

// MillisPtr boxes an epoch-millis value.
func MillisPtr(millis int64) *int64 {
	return &millis
}
