package games

import "fmt"

// GPTConfig holds the fixed per-(game, playtype) tables. Grades and Lamps
// are ordered worst-to-best; their indices are the gradeIndex/lampIndex
// stored on every score. RatingKeys is the exact calculated-data key set for
// the pair; a computed score always carries all of these keys, with explicit
// nulls where a rating does not apply.
type GPTConfig struct {
	Grades []string
	// GradeBoundaries[i] is the minimum percent for Grades[i].
	GradeBoundaries []float64
	Lamps           []string
	// ClearLamp is the index of the first lamp that counts as a clear.
	ClearLamp int
	// PercentMax is the highest percent a score may legally have.
	PercentMax float64
	RatingKeys []string
	// ClassSets maps a class set name (e.g. "dan", "colour") to its values
	// ordered worst-to-best.
	ClassSets map[string][]string
	// ProfileRatingKeys is the key set of the user's aggregate ratings for
	// this pair.
	ProfileRatingKeys []string
}

var iidxDans = []string{
	"7KYU", "6KYU", "5KYU", "4KYU", "3KYU", "2KYU", "1KYU",
	"1DAN", "2DAN", "3DAN", "4DAN", "5DAN", "6DAN", "7DAN", "8DAN", "9DAN", "10DAN",
	"CHUUDEN", "KAIDEN",
}

var sdvxDans = []string{
	"DAN_1", "DAN_2", "DAN_3", "DAN_4", "DAN_5", "DAN_6", "DAN_7",
	"DAN_8", "DAN_9", "DAN_10", "DAN_11", "INF",
}

var ddrDans = []string{
	"1DAN", "2DAN", "3DAN", "4DAN", "5DAN", "6DAN", "7DAN", "8DAN", "9DAN", "10DAN", "KAIDEN",
}

// bmsDans follows the GENOSIDE dan ladder, which ranks past kaiden.
var bmsDans = []string{
	"1DAN", "2DAN", "3DAN", "4DAN", "5DAN", "6DAN", "7DAN", "8DAN", "9DAN", "10DAN",
	"KAIDEN", "OVERJOY",
}

var gitadoraColours = []string{
	"WHITE", "ORANGE", "ORANGE_GRADIENT", "YELLOW", "YELLOW_GRADIENT",
	"GREEN", "GREEN_GRADIENT", "BLUE", "BLUE_GRADIENT", "PURPLE", "PURPLE_GRADIENT",
	"RED", "RED_GRADIENT", "BRONZE", "SILVER", "GOLD", "RAINBOW",
}

var iidxConfig = GPTConfig{
	Grades:          []string{"F", "E", "D", "C", "B", "A", "AA", "AAA", "MAX-", "MAX"},
	GradeBoundaries: []float64{0, 22.22, 33.33, 44.44, 55.55, 66.66, 77.77, 88.88, 94.44, 100},
	Lamps: []string{
		"NO PLAY", "FAILED", "ASSIST CLEAR", "EASY CLEAR",
		"CLEAR", "HARD CLEAR", "EX HARD CLEAR", "FULL COMBO",
	},
	ClearLamp:         2,
	PercentMax:        100,
	RatingKeys:        []string{"ktRating", "ktLampRating", "BPI"},
	ClassSets:         map[string][]string{"dan": iidxDans},
	ProfileRatingKeys: []string{"ktRating", "ktLampRating", "BPI"},
}

var sdvxConfig = GPTConfig{
	Grades:          []string{"D", "C", "B", "A", "A+", "AA", "AA+", "AAA", "AAA+", "S"},
	GradeBoundaries: []float64{0, 70, 80, 87, 90, 93, 95, 97, 98, 99},
	Lamps: []string{
		"FAILED", "CLEAR", "EXCESSIVE CLEAR", "ULTIMATE CHAIN", "PERFECT ULTIMATE CHAIN",
	},
	ClearLamp:         1,
	PercentMax:        100,
	RatingKeys:        []string{"VF6"},
	ClassSets:         map[string][]string{"dan": sdvxDans},
	ProfileRatingKeys: []string{"VF6"},
}

var bmsConfig = GPTConfig{
	Grades:          []string{"F", "E", "D", "C", "B", "A", "AA", "AAA", "MAX-", "MAX"},
	GradeBoundaries: []float64{0, 22.22, 33.33, 44.44, 55.55, 66.66, 77.77, 88.88, 94.44, 100},
	Lamps: []string{
		"NO PLAY", "FAILED", "ASSIST CLEAR", "EASY CLEAR",
		"CLEAR", "HARD CLEAR", "EX HARD CLEAR", "FULL COMBO",
	},
	ClearLamp:         2,
	PercentMax:        100,
	RatingKeys:        []string{"ktLampRating"},
	ClassSets:         map[string][]string{"dan": bmsDans},
	ProfileRatingKeys: []string{"ktLampRating"},
}

var ddrConfig = GPTConfig{
	Grades: []string{
		"D", "D+", "C-", "C", "C+", "B-", "B", "B+",
		"A-", "A", "A+", "AA-", "AA", "AA+", "AAA",
	},
	GradeBoundaries: []float64{
		0, 55, 59, 60, 65, 69, 70, 75, 79, 80, 85, 89, 90, 95, 99,
	},
	Lamps: []string{
		"FAILED", "CLEAR", "LIFE4", "FULL COMBO",
		"GREAT FULL COMBO", "PERFECT FULL COMBO", "MARVELOUS FULL COMBO",
	},
	ClearLamp:         1,
	PercentMax:        100,
	RatingKeys:        []string{"MFCP", "ktRating"},
	ClassSets:         map[string][]string{"dan": ddrDans},
	ProfileRatingKeys: []string{"MFCP", "ktRating"},
}

var gitadoraConfig = GPTConfig{
	Grades:          []string{"C", "B", "A", "S", "SS", "MAX"},
	GradeBoundaries: []float64{0, 63, 73, 80, 95, 100},
	Lamps:           []string{"FAILED", "CLEAR", "FULL COMBO", "EXCELLENT"},
	ClearLamp:       1,
	PercentMax:      100,
	RatingKeys:      []string{"skill"},
	ClassSets:       map[string][]string{"colour": gitadoraColours},
	ProfileRatingKeys: []string{"skill"},
}

var chunithmConfig = GPTConfig{
	Grades: []string{
		"D", "C", "B", "BB", "BBB", "A", "AA", "AAA", "S", "SS", "SSS",
	},
	GradeBoundaries: []float64{
		0, 50, 60, 70, 80, 90, 92.5, 95, 97.5, 100, 100.75,
	},
	Lamps: []string{
		"FAILED", "CLEAR", "FULL COMBO", "ALL JUSTICE", "ALL JUSTICE CRITICAL",
	},
	ClearLamp:         1,
	PercentMax:        101,
	RatingKeys:        []string{"rating"},
	ClassSets:         map[string][]string{},
	ProfileRatingKeys: []string{"naiveRating"},
}

var musecaConfig = GPTConfig{
	Grades:          []string{"没", "拙", "凡", "佳", "良", "優", "秀", "傑", "傑G"},
	GradeBoundaries: []float64{0, 60, 70, 80, 85, 90, 95, 97.5, 100},
	Lamps:           []string{"FAILED", "CLEAR", "CONNECT ALL", "PERFECT CONNECT ALL"},
	ClearLamp:       1,
	PercentMax:      100,
	RatingKeys:      []string{"ktRating"},
	ClassSets:       map[string][]string{},
	ProfileRatingKeys: []string{"ktRating"},
}

var maimaiConfig = GPTConfig{
	Grades: []string{
		"F", "E", "D", "C", "B", "A", "AA", "AAA", "S", "S+", "SS", "SS+", "SSS", "SSS+",
	},
	GradeBoundaries: []float64{
		0, 10, 20, 40, 60, 80, 90, 94, 97, 98, 99, 99.5, 100, 100.5,
	},
	Lamps:           []string{"FAILED", "CLEAR", "FULL COMBO", "ALL PERFECT", "ALL PERFECT+"},
	ClearLamp:       1,
	PercentMax:      104,
	RatingKeys:      []string{"ktRating"},
	ClassSets:       map[string][]string{},
	ProfileRatingKeys: []string{"ktRating"},
}

var gptConfigs = map[GPT]*GPTConfig{
	{GameIIDX, PlaytypeSP}:           &iidxConfig,
	{GameIIDX, PlaytypeDP}:           &iidxConfig,
	{GameSDVX, PlaytypeSingle}:       &sdvxConfig,
	{GameUSC, PlaytypeKeyboard}:      &sdvxConfig,
	{GameUSC, PlaytypeController}:    &sdvxConfig,
	{GameBMS, Playtype7K}:            &bmsConfig,
	{GameBMS, Playtype14K}:           &bmsConfig,
	{GameDDR, PlaytypeSP}:            &ddrConfig,
	{GameDDR, PlaytypeDP}:            &ddrConfig,
	{GameGitadora, PlaytypeGita}:     &gitadoraConfig,
	{GameGitadora, PlaytypeDora}:     &gitadoraConfig,
	{GameChunithm, PlaytypeSingle}:   &chunithmConfig,
	{GameMuseca, PlaytypeSingle}:     &musecaConfig,
	{GameMaimai, PlaytypeSingle}:     &maimaiConfig,
}

// GetGPTConfig returns the configuration tables for a (game, playtype)
// pair. Asking for an unsupported pair is a programming error on the
// caller's side and yields an error, never a nil config with nil maps.
func GetGPTConfig(game Game, playtype Playtype) (*GPTConfig, error) {
	cfg, ok := gptConfigs[GPT{game, playtype}]
	if !ok {
		return nil, fmt.Errorf("no configuration for %s:%s", game, playtype)
	}
	return cfg, nil
}

// GradeIndex returns the index of grade within the pair's ordering, or -1.
func (c *GPTConfig) GradeIndex(grade string) int {
	for i, g := range c.Grades {
		if g == grade {
			return i
		}
	}
	return -1
}

// LampIndex returns the index of lamp within the pair's ordering, or -1.
func (c *GPTConfig) LampIndex(lamp string) int {
	for i, l := range c.Lamps {
		if l == lamp {
			return i
		}
	}
	return -1
}

// GradeForPercent resolves the grade a percent value earns.
func (c *GPTConfig) GradeForPercent(percent float64) (string, error) {
	if percent < 0 || percent > c.PercentMax {
		return "", fmt.Errorf("percent %.2f out of bounds (max %.2f)", percent, c.PercentMax)
	}
	grade := c.Grades[0]
	for i, boundary := range c.GradeBoundaries {
		if percent >= boundary {
			grade = c.Grades[i]
		}
	}
	return grade, nil
}
