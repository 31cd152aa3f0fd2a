package games

import "fmt"

// Game identifies a supported rhythm game.
type Game string

// Playtype identifies a play mode within a game.
type Playtype string

const (
	GameIIDX     Game = "iidx"
	GameSDVX     Game = "sdvx"
	GameUSC      Game = "usc"
	GameBMS      Game = "bms"
	GameDDR      Game = "ddr"
	GameGitadora Game = "gitadora"
	GameChunithm Game = "chunithm"
	GameMuseca   Game = "museca"
	GameMaimai   Game = "maimai"
)

const (
	PlaytypeSP         Playtype = "SP"
	PlaytypeDP         Playtype = "DP"
	PlaytypeSingle     Playtype = "Single"
	PlaytypeKeyboard   Playtype = "Keyboard"
	PlaytypeController Playtype = "Controller"
	Playtype7K         Playtype = "7K"
	Playtype14K        Playtype = "14K"
	PlaytypeGita       Playtype = "Gita"
	PlaytypeDora       Playtype = "Dora"
)

// GPT is a (game, playtype) pair, the unit every dispatch table is keyed on.
type GPT struct {
	Game     Game
	Playtype Playtype
}

func (g GPT) String() string {
	return fmt.Sprintf("%s:%s", g.Game, g.Playtype)
}

var validPlaytypes = map[Game][]Playtype{
	GameIIDX:     {PlaytypeSP, PlaytypeDP},
	GameSDVX:     {PlaytypeSingle},
	GameUSC:      {PlaytypeKeyboard, PlaytypeController},
	GameBMS:      {Playtype7K, Playtype14K},
	GameDDR:      {PlaytypeSP, PlaytypeDP},
	GameGitadora: {PlaytypeGita, PlaytypeDora},
	GameChunithm: {PlaytypeSingle},
	GameMuseca:   {PlaytypeSingle},
	GameMaimai:   {PlaytypeSingle},
}

// SupportedGames returns every game the service accepts scores for.
func SupportedGames() []Game {
	return []Game{
		GameIIDX, GameSDVX, GameUSC, GameBMS, GameDDR,
		GameGitadora, GameChunithm, GameMuseca, GameMaimai,
	}
}

// ValidPlaytypes returns the playtypes a game supports, or nil for an
// unknown game.
func ValidPlaytypes(game Game) []Playtype {
	return validPlaytypes[game]
}

// IsValidGPT reports whether the (game, playtype) pair is part of the
// supported set.
func IsValidGPT(game Game, playtype Playtype) bool {
	for _, pt := range validPlaytypes[game] {
		if pt == playtype {
			return true
		}
	}
	return false
}

// AllGPTs enumerates every supported (game, playtype) pair in a stable order.
func AllGPTs() []GPT {
	var out []GPT
	for _, game := range SupportedGames() {
		for _, pt := range validPlaytypes[game] {
			out = append(out, GPT{game, pt})
		}
	}
	return out
}
