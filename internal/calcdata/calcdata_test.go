package calcdata_test

import (
	"math"
	"testing"

	"encore/internal/calcdata"
	"encore/internal/games"
	"encore/internal/storage"
)

func boolPtr(v bool) *bool    { return &v }
func intPtr(v int) *int       { return &v }
func fptr(v float64) *float64 { return &v }

func iidxChart() *storage.Chart {
	return &storage.Chart{
		ChartID:    "iidx-1-sp-another",
		Game:       games.GameIIDX,
		Playtype:   games.PlaytypeSP,
		SongID:     1,
		Difficulty: "ANOTHER",
		LevelNum:   12,
		Notecount:  2000,
	}
}

func TestForScoreCarriesEveryRatingKey(t *testing.T) {
	for _, gpt := range games.AllGPTs() {
		cfg, err := games.GetGPTConfig(gpt.Game, gpt.Playtype)
		if err != nil {
			t.Fatalf("GetGPTConfig(%s): %v", gpt, err)
		}

		chart := &storage.Chart{Game: gpt.Game, Playtype: gpt.Playtype, LevelNum: 10, Notecount: 1000}
		sd := &storage.ScoreData{Score: 500000, Percent: 50, Grade: cfg.Grades[0], Lamp: cfg.Lamps[0]}

		calc, err := calcdata.ForScore(gpt.Game, gpt.Playtype, chart, sd)
		if err != nil {
			t.Fatalf("ForScore(%s): %v", gpt, err)
		}
		if len(calc) != len(cfg.RatingKeys) {
			t.Fatalf("%s: got %d keys, want %d", gpt, len(calc), len(cfg.RatingKeys))
		}
		for _, key := range cfg.RatingKeys {
			if _, ok := calc[key]; !ok {
				t.Fatalf("%s: missing rating key %q", gpt, key)
			}
		}
	}
}

func TestKtRatingWeighsAccuracy(t *testing.T) {
	chart := iidxChart()
	sd := &storage.ScoreData{Percent: 50, Grade: "C", Lamp: "CLEAR"}

	calc, err := calcdata.ForScore(games.GameIIDX, games.PlaytypeSP, chart, sd)
	if err != nil {
		t.Fatalf("ForScore: %v", err)
	}
	// 12 * 0.5^2 = 3.
	if got := calc["ktRating"]; got == nil || *got != 3 {
		t.Fatalf("ktRating = %v, want 3", got)
	}
}

func TestLampRatingWorth(t *testing.T) {
	chart := iidxChart()
	cases := []struct {
		lamp string
		want float64
	}{
		{"FAILED", 0},
		{"EASY CLEAR", 3},
		{"CLEAR", 6},
		{"HARD CLEAR", 12},
		{"FULL COMBO", 12},
	}
	for _, tc := range cases {
		sd := &storage.ScoreData{Percent: 80, Grade: "AA", Lamp: tc.lamp}
		calc, err := calcdata.ForScore(games.GameIIDX, games.PlaytypeSP, chart, sd)
		if err != nil {
			t.Fatalf("ForScore(%s): %v", tc.lamp, err)
		}
		if got := calc["ktLampRating"]; got == nil || *got != tc.want {
			t.Fatalf("ktLampRating(%s) = %v, want %v", tc.lamp, got, tc.want)
		}
	}
}

func TestBPINullWithoutRankingContext(t *testing.T) {
	chart := iidxChart()
	sd := &storage.ScoreData{Score: 3600, Percent: 90, Grade: "AAA", Lamp: "HARD CLEAR"}

	calc, err := calcdata.ForScore(games.GameIIDX, games.PlaytypeSP, chart, sd)
	if err != nil {
		t.Fatalf("ForScore: %v", err)
	}
	if calc["BPI"] != nil {
		t.Fatalf("BPI = %v, want null without kaiden average", *calc["BPI"])
	}
}

func TestBPIAnchors(t *testing.T) {
	chart := iidxChart()
	chart.Data.KaidenAverage = intPtr(3400)
	chart.Data.WorldRecord = intPtr(3900)

	// A score at the kaiden average is BPI 0.
	sd := &storage.ScoreData{Score: 3400, Percent: 85, Grade: "AA", Lamp: "HARD CLEAR"}
	calc, err := calcdata.ForScore(games.GameIIDX, games.PlaytypeSP, chart, sd)
	if err != nil {
		t.Fatalf("ForScore: %v", err)
	}
	if got := calc["BPI"]; got == nil || *got != 0 {
		t.Fatalf("BPI at kaiden average = %v, want 0", got)
	}

	// A score at the world record is BPI 100.
	sd.Score = 3900
	calc, err = calcdata.ForScore(games.GameIIDX, games.PlaytypeSP, chart, sd)
	if err != nil {
		t.Fatalf("ForScore: %v", err)
	}
	if got := calc["BPI"]; got == nil || math.Abs(*got-100) > 0.01 {
		t.Fatalf("BPI at world record = %v, want 100", got)
	}

	// An awful score clamps at -15 rather than diverging.
	sd.Score = 1200
	calc, err = calcdata.ForScore(games.GameIIDX, games.PlaytypeSP, chart, sd)
	if err != nil {
		t.Fatalf("ForScore: %v", err)
	}
	if got := calc["BPI"]; got == nil || *got < -15 {
		t.Fatalf("BPI floor = %v, want >= -15", got)
	}
}

func TestVolforceRequiresOfficialChart(t *testing.T) {
	chart := &storage.Chart{Game: games.GameSDVX, Playtype: games.PlaytypeSingle, LevelNum: 18}
	sd := &storage.ScoreData{Score: 9_700_000, Percent: 97, Grade: "AAA", Lamp: "EXCESSIVE CLEAR"}

	calc, err := calcdata.ForScore(games.GameSDVX, games.PlaytypeSingle, chart, sd)
	if err != nil {
		t.Fatalf("ForScore: %v", err)
	}
	if calc["VF6"] != nil {
		t.Fatalf("VF6 = %v, want null for unofficial chart", *calc["VF6"])
	}

	chart.Data.IsOfficial = boolPtr(true)
	calc, err = calcdata.ForScore(games.GameSDVX, games.PlaytypeSingle, chart, sd)
	if err != nil {
		t.Fatalf("ForScore: %v", err)
	}
	// 18 * 2 * 0.97 * 1.00 * 1.02 / 100 = 0.3561...
	if got := calc["VF6"]; got == nil || *got != 0.356 {
		t.Fatalf("VF6 = %v, want 0.356", got)
	}
}

func TestMFCPOnlyForMarvelousFullCombo(t *testing.T) {
	chart := &storage.Chart{Game: games.GameDDR, Playtype: games.PlaytypeSP, LevelNum: 13}

	sd := &storage.ScoreData{Percent: 99, Grade: "AAA", Lamp: "PERFECT FULL COMBO"}
	calc, err := calcdata.ForScore(games.GameDDR, games.PlaytypeSP, chart, sd)
	if err != nil {
		t.Fatalf("ForScore: %v", err)
	}
	if calc["MFCP"] != nil {
		t.Fatalf("MFCP = %v, want null below MFC", *calc["MFCP"])
	}

	sd.Lamp = "MARVELOUS FULL COMBO"
	calc, err = calcdata.ForScore(games.GameDDR, games.PlaytypeSP, chart, sd)
	if err != nil {
		t.Fatalf("ForScore: %v", err)
	}
	if got := calc["MFCP"]; got == nil || *got != 103 {
		t.Fatalf("MFCP = %v, want 103 for a level 13", got)
	}
}

func TestChunithmRatingBreakpoints(t *testing.T) {
	chart := &storage.Chart{Game: games.GameChunithm, Playtype: games.PlaytypeSingle, LevelNum: 13}

	cases := []struct {
		score float64
		want  float64
	}{
		{1_007_500, 15},
		{1_005_000, 14.5},
		{1_000_000, 14},
		{975_000, 13},
	}
	for _, tc := range cases {
		sd := &storage.ScoreData{Score: tc.score, Grade: "SS", Lamp: "CLEAR"}
		calc, err := calcdata.ForScore(games.GameChunithm, games.PlaytypeSingle, chart, sd)
		if err != nil {
			t.Fatalf("ForScore(%v): %v", tc.score, err)
		}
		if got := calc["rating"]; got == nil || *got != tc.want {
			t.Fatalf("rating(%v) = %v, want %v", tc.score, got, tc.want)
		}
	}
}

func TestForSessionMeansTopTen(t *testing.T) {
	var scores []storage.Score
	// Twelve plays rated 1..12; the session mean covers only the best ten.
	for i := 1; i <= 12; i++ {
		scores = append(scores, storage.Score{
			CalculatedData: storage.CalculatedData{
				"ktRating":     fptr(float64(i)),
				"ktLampRating": nil,
				"BPI":          nil,
			},
		})
	}

	calc, err := calcdata.ForSession(games.GameIIDX, games.PlaytypeSP, scores)
	if err != nil {
		t.Fatalf("ForSession: %v", err)
	}
	// mean(3..12) = 7.5
	if got := calc["ktRating"]; got == nil || *got != 7.5 {
		t.Fatalf("ktRating = %v, want 7.5", got)
	}
	if calc["BPI"] != nil {
		t.Fatalf("BPI = %v, want null when no member has one", *calc["BPI"])
	}
}

func TestForSessionSumsVolforce(t *testing.T) {
	var scores []storage.Score
	for i := 0; i < 12; i++ {
		scores = append(scores, storage.Score{
			CalculatedData: storage.CalculatedData{"VF6": fptr(0.25)},
		})
	}

	calc, err := calcdata.ForSession(games.GameSDVX, games.PlaytypeSingle, scores)
	if err != nil {
		t.Fatalf("ForSession: %v", err)
	}
	// Summed keys total every member, not just the top ten.
	if got := calc["VF6"]; got == nil || *got != 3 {
		t.Fatalf("VF6 = %v, want 3", got)
	}
}
