package games_test

import (
	"testing"

	"encore/internal/games"
)

func TestEveryClassSetRoundTrips(t *testing.T) {
	cases := []struct {
		game     games.Game
		playtype games.Playtype
		set      string
		value    string
		index    int
	}{
		{games.GameIIDX, games.PlaytypeSP, "dan", "KAIDEN", 18},
		{games.GameSDVX, games.PlaytypeSingle, "dan", "INF", 11},
		{games.GameBMS, games.Playtype7K, "dan", "OVERJOY", 11},
		{games.GameDDR, games.PlaytypeSP, "dan", "KAIDEN", 10},
		{games.GameGitadora, games.PlaytypeGita, "colour", "RAINBOW", 16},
	}
	for _, c := range cases {
		idx, err := games.ClassValueIndex(c.game, c.playtype, c.set, c.value)
		if err != nil {
			t.Fatalf("%s %s %s: %v", c.game, c.playtype, c.value, err)
		}
		if idx != c.index {
			t.Fatalf("%s %s index = %d, want %d", c.game, c.set, idx, c.index)
		}
		value, err := games.ClassValueByIndex(c.game, c.playtype, c.set, c.index)
		if err != nil {
			t.Fatalf("%s %s index %d: %v", c.game, c.set, c.index, err)
		}
		if value != c.value {
			t.Fatalf("%s %s value = %q, want %q", c.game, c.set, value, c.value)
		}
	}
}

func TestBMSDanOrderingRanksPastKaiden(t *testing.T) {
	greater, err := games.ClassIsGreater(games.GameBMS, games.Playtype7K, "dan", "OVERJOY", "KAIDEN")
	if err != nil {
		t.Fatalf("ClassIsGreater: %v", err)
	}
	if !greater {
		t.Fatal("OVERJOY should outrank KAIDEN")
	}
	greater, err = games.ClassIsGreater(games.GameBMS, games.Playtype14K, "dan", "9DAN", "10DAN")
	if err != nil {
		t.Fatalf("ClassIsGreater: %v", err)
	}
	if greater {
		t.Fatal("9DAN should not outrank 10DAN")
	}
}

func TestUnknownClassValueIsAnError(t *testing.T) {
	if _, err := games.ClassValueIndex(games.GameIIDX, games.PlaytypeSP, "dan", "GRANDMASTER"); err == nil {
		t.Fatal("unknown dan accepted")
	}
	if _, err := games.ClassValueByIndex(games.GameIIDX, games.PlaytypeSP, "dan", 99); err == nil {
		t.Fatal("out-of-range index accepted")
	}
}
