package calcdata

import (
	"fmt"
	"math"

	"encore/internal/games"
	"encore/internal/storage"
)

type scoreFunc func(chart *storage.Chart, sd *storage.ScoreData) storage.CalculatedData

var scoreFuncs = map[games.GPT]scoreFunc{
	{Game: games.GameIIDX, Playtype: games.PlaytypeSP}:         iidxCalc,
	{Game: games.GameIIDX, Playtype: games.PlaytypeDP}:         iidxCalc,
	{Game: games.GameSDVX, Playtype: games.PlaytypeSingle}:     volforceCalc,
	{Game: games.GameUSC, Playtype: games.PlaytypeKeyboard}:    volforceCalc,
	{Game: games.GameUSC, Playtype: games.PlaytypeController}:  volforceCalc,
	{Game: games.GameBMS, Playtype: games.Playtype7K}:          bmsCalc,
	{Game: games.GameBMS, Playtype: games.Playtype14K}:         bmsCalc,
	{Game: games.GameDDR, Playtype: games.PlaytypeSP}:          ddrCalc,
	{Game: games.GameDDR, Playtype: games.PlaytypeDP}:          ddrCalc,
	{Game: games.GameGitadora, Playtype: games.PlaytypeGita}:   gitadoraCalc,
	{Game: games.GameGitadora, Playtype: games.PlaytypeDora}:   gitadoraCalc,
	{Game: games.GameChunithm, Playtype: games.PlaytypeSingle}: chunithmCalc,
	{Game: games.GameMuseca, Playtype: games.PlaytypeSingle}:   ktRatingCalc,
	{Game: games.GameMaimai, Playtype: games.PlaytypeSingle}:   ktRatingCalc,
}

// ForScore computes the calculated data for one play. The returned map
// carries exactly the pair's declared rating keys.
func ForScore(game games.Game, playtype games.Playtype, chart *storage.Chart, sd *storage.ScoreData) (storage.CalculatedData, error) {
	fn, ok := scoreFuncs[games.GPT{Game: game, Playtype: playtype}]
	if !ok {
		return nil, fmt.Errorf("no rating function for %s:%s", game, playtype)
	}
	return fn(chart, sd), nil
}

func fptr(v float64) *float64 {
	return &v
}

func floorN(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Floor(v*scale) / scale
}

func iidxCalc(chart *storage.Chart, sd *storage.ScoreData) storage.CalculatedData {
	return storage.CalculatedData{
		"ktRating":     ktRating(chart, sd),
		"ktLampRating": lampRating(chart, sd),
		"BPI":          bpi(chart, sd),
	}
}

func bmsCalc(chart *storage.Chart, sd *storage.ScoreData) storage.CalculatedData {
	return storage.CalculatedData{
		"ktLampRating": lampRating(chart, sd),
	}
}

func ktRatingCalc(chart *storage.Chart, sd *storage.ScoreData) storage.CalculatedData {
	return storage.CalculatedData{
		"ktRating": ktRating(chart, sd),
	}
}

// ktRating scales the chart level by accuracy, weighted so high percents
// dominate. Monotone in percent for a fixed chart.
func ktRating(chart *storage.Chart, sd *storage.ScoreData) *float64 {
	frac := sd.Percent / 100
	return fptr(floorN(chart.LevelNum*frac*frac, 2))
}

// lampRating expresses "what level can you clear like this". Below a real
// clear it is worth nothing; a hard clear or better is worth the full
// chart level.
var lampWorth = map[string]float64{
	"EASY CLEAR":    0.25,
	"CLEAR":         0.5,
	"HARD CLEAR":    1,
	"EX HARD CLEAR": 1,
	"FULL COMBO":    1,
}

func lampRating(chart *storage.Chart, sd *storage.ScoreData) *float64 {
	return fptr(floorN(chart.LevelNum*lampWorth[sd.Lamp], 2))
}

// bpiPowCoef is the poyashi exponent.
const bpiPowCoef = 1.175

// bpi implements Beat Power Indicator: 0 at the kaiden average, 100 at the
// world record, clamped below at -15. Needs the chart's ranking context;
// without it the rating is null.
func bpi(chart *storage.Chart, sd *storage.ScoreData) *float64 {
	kavg := chart.Data.KaidenAverage
	wr := chart.Data.WorldRecord
	if kavg == nil || wr == nil || chart.Notecount <= 0 {
		return nil
	}
	maxEX := float64(chart.Notecount * 2)
	if float64(*wr) <= float64(*kavg) || float64(*wr) > maxEX {
		return nil
	}

	pgf := func(x float64) float64 {
		if x >= maxEX {
			return maxEX * 0.8
		}
		return 1 + (x/maxEX-0.5)/(1-x/maxEX)
	}

	s := pgf(sd.Score) / pgf(float64(*kavg))
	z := pgf(float64(*wr)) / pgf(float64(*kavg))
	lnZ := math.Log(z)
	if lnZ <= 0 || s <= 0 {
		return nil
	}

	var value float64
	if lnS := math.Log(s); lnS >= 0 {
		value = 100 * math.Pow(lnS, bpiPowCoef) / math.Pow(lnZ, bpiPowCoef)
	} else {
		value = -100 * math.Pow(-lnS, bpiPowCoef) / math.Pow(lnZ, bpiPowCoef)
	}
	return fptr(floorN(math.Max(value, -15), 2))
}

var vfGradeCoef = map[string]float64{
	"S": 1.05, "AAA+": 1.02, "AAA": 1.00, "AA+": 0.97, "AA": 0.94,
	"A+": 0.91, "A": 0.88, "B": 0.85, "C": 0.82, "D": 0.80,
}

var vfLampCoef = map[string]float64{
	"PERFECT ULTIMATE CHAIN": 1.10,
	"ULTIMATE CHAIN":         1.05,
	"EXCESSIVE CLEAR":        1.02,
	"CLEAR":                  1.00,
	"FAILED":                 0.50,
}

// volforceCalc computes VOLFORCE (VF6). Unofficial charts carry no
// volforce, which keeps converted charts out of the rankings.
func volforceCalc(chart *storage.Chart, sd *storage.ScoreData) storage.CalculatedData {
	if chart.Data.IsOfficial == nil || !*chart.Data.IsOfficial {
		return storage.CalculatedData{"VF6": nil}
	}
	vf := chart.LevelNum * 2 * (sd.Score / 10_000_000) * vfGradeCoef[sd.Grade] * vfLampCoef[sd.Lamp] / 100
	return storage.CalculatedData{"VF6": fptr(floorN(vf, 3))}
}

// mfcPoints is the per-level point award for a MARVELOUS FULL COMBO.
func mfcPoints(level float64) float64 {
	switch lv := int(level); {
	case lv <= 4:
		return 1
	case lv <= 6:
		return 2
	case lv == 7:
		return 4
	case lv == 8:
		return 8
	case lv == 9:
		return 15
	case lv == 10:
		return 25
	case lv == 11:
		return 40
	case lv == 12:
		return 70
	case lv == 13:
		return 103
	case lv == 14:
		return 145
	case lv == 15:
		return 186
	default:
		return 227
	}
}

func ddrCalc(chart *storage.Chart, sd *storage.ScoreData) storage.CalculatedData {
	out := storage.CalculatedData{
		"MFCP":     nil,
		"ktRating": ktRating(chart, sd),
	}
	if sd.Lamp == "MARVELOUS FULL COMBO" {
		out["MFCP"] = fptr(mfcPoints(chart.LevelNum))
	}
	return out
}

// gitadoraCalc computes per-chart skill the way the games do: a full-rate
// play of a chart is worth twenty times its level.
func gitadoraCalc(chart *storage.Chart, sd *storage.ScoreData) storage.CalculatedData {
	skill := chart.LevelNum * 20 * (sd.Percent / 100)
	return storage.CalculatedData{"skill": fptr(floorN(skill, 2))}
}

// chunithmCalc computes the play rating from the score, piecewise linear
// between the game's rating breakpoints.
func chunithmCalc(chart *storage.Chart, sd *storage.ScoreData) storage.CalculatedData {
	base := chart.LevelNum
	s := sd.Score

	var rating float64
	switch {
	case s >= 1_007_500:
		rating = base + 2
	case s >= 1_005_000:
		rating = base + 1.5 + (s-1_005_000)/5_000
	case s >= 1_000_000:
		rating = base + 1 + (s-1_000_000)/10_000
	case s >= 975_000:
		rating = base + (s-975_000)/25_000
	case s >= 925_000:
		rating = base - 3 + (s-925_000)*3/50_000
	case s >= 900_000:
		rating = base - 5 + (s-900_000)*2/25_000
	default:
		rating = (base - 5) * (s / 900_000)
	}
	return storage.CalculatedData{"rating": fptr(floorN(math.Max(rating, 0), 2))}
}
