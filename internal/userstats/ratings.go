package userstats

import (
	"context"
	"fmt"

	"encore/internal/games"
)

type ratingFunc func(ctx context.Context, u *Updater, game games.Game, playtype games.Playtype, userID int) (map[string]float64, error)

var ratingFuncs = map[games.GPT]ratingFunc{
	{Game: games.GameIIDX, Playtype: games.PlaytypeSP}:         iidxRatings,
	{Game: games.GameIIDX, Playtype: games.PlaytypeDP}:         iidxRatings,
	{Game: games.GameSDVX, Playtype: games.PlaytypeSingle}:     volforceRatings,
	{Game: games.GameUSC, Playtype: games.PlaytypeKeyboard}:    volforceRatings,
	{Game: games.GameUSC, Playtype: games.PlaytypeController}:  volforceRatings,
	{Game: games.GameBMS, Playtype: games.Playtype7K}:          bmsRatings,
	{Game: games.GameBMS, Playtype: games.Playtype14K}:         bmsRatings,
	{Game: games.GameDDR, Playtype: games.PlaytypeSP}:          ddrRatings,
	{Game: games.GameDDR, Playtype: games.PlaytypeDP}:          ddrRatings,
	{Game: games.GameGitadora, Playtype: games.PlaytypeGita}:   gitadoraRatings,
	{Game: games.GameGitadora, Playtype: games.PlaytypeDora}:   gitadoraRatings,
	{Game: games.GameChunithm, Playtype: games.PlaytypeSingle}: chunithmRatings,
	{Game: games.GameMuseca, Playtype: games.PlaytypeSingle}:   ktProfileRatings,
	{Game: games.GameMaimai, Playtype: games.PlaytypeSingle}:   ktProfileRatings,
}

// CalculateRatings recomputes the user's profile ratings from their
// personal bests.
func (u *Updater) CalculateRatings(ctx context.Context, game games.Game, playtype games.Playtype, userID int) (map[string]float64, error) {
	fn, ok := ratingFuncs[games.GPT{Game: game, Playtype: playtype}]
	if !ok {
		return nil, fmt.Errorf("no profile rating function for %s:%s", game, playtype)
	}
	return fn(ctx, u, game, playtype, userID)
}

// meanBestN averages the user's best n values of key. The divisor stays n
// even with fewer scores, so a thin profile does not outrank a full one.
func (u *Updater) meanBestN(ctx context.Context, game games.Game, playtype games.Playtype, userID int, key string, n int) (float64, error) {
	total, err := u.sumBestN(ctx, game, playtype, userID, key, n)
	if err != nil {
		return 0, err
	}
	return total / float64(n), nil
}

func (u *Updater) sumBestN(ctx context.Context, game games.Game, playtype games.Playtype, userID int, key string, n int) (float64, error) {
	pbs, err := u.store.FindTopPBsByCalcKey(ctx, game, playtype, userID, key, n)
	if err != nil {
		return 0, fmt.Errorf("top pbs for %s: %w", key, err)
	}
	total := 0.0
	for i := range pbs {
		if v := pbs[i].CalculatedData[key]; v != nil {
			total += *v
		}
	}
	return total, nil
}

func iidxRatings(ctx context.Context, u *Updater, game games.Game, playtype games.Playtype, userID int) (map[string]float64, error) {
	out := map[string]float64{}
	for _, key := range []string{"BPI", "ktRating", "ktLampRating"} {
		v, err := u.meanBestN(ctx, game, playtype, userID, key, 20)
		if err != nil {
			return nil, err
		}
		out[key] = v
	}
	return out, nil
}

func volforceRatings(ctx context.Context, u *Updater, game games.Game, playtype games.Playtype, userID int) (map[string]float64, error) {
	vf, err := u.sumBestN(ctx, game, playtype, userID, "VF6", 50)
	if err != nil {
		return nil, err
	}
	return map[string]float64{"VF6": vf}, nil
}

func bmsRatings(ctx context.Context, u *Updater, game games.Game, playtype games.Playtype, userID int) (map[string]float64, error) {
	v, err := u.meanBestN(ctx, game, playtype, userID, "ktLampRating", 20)
	if err != nil {
		return nil, err
	}
	return map[string]float64{"ktLampRating": v}, nil
}

func ddrRatings(ctx context.Context, u *Updater, game games.Game, playtype games.Playtype, userID int) (map[string]float64, error) {
	mfcp, err := u.store.SumPBsCalcKey(ctx, game, playtype, userID, "MFCP")
	if err != nil {
		return nil, fmt.Errorf("mfcp sum: %w", err)
	}
	kt, err := u.meanBestN(ctx, game, playtype, userID, "ktRating", 20)
	if err != nil {
		return nil, err
	}
	return map[string]float64{"MFCP": mfcp, "ktRating": kt}, nil
}

// gitadoraRatings computes skill the way the games do: your best rating on
// each of 25 current-version ("hot") songs plus 25 older songs, counting
// one chart per song.
func gitadoraRatings(ctx context.Context, u *Updater, game games.Game, playtype games.Playtype, userID int) (map[string]float64, error) {
	total := 0.0
	for _, hot := range []bool{true, false} {
		songIDs, err := u.store.FindSongsWithDataFlag(ctx, game, "isHot", hot)
		if err != nil {
			return nil, fmt.Errorf("hot song lookup: %w", err)
		}
		pbs, err := u.store.FindBestPBPerSong(ctx, game, playtype, userID, songIDs, "skill", 25)
		if err != nil {
			return nil, fmt.Errorf("best pb per song: %w", err)
		}
		for i := range pbs {
			if v := pbs[i].CalculatedData["skill"]; v != nil {
				total += *v
			}
		}
	}
	return map[string]float64{"skill": total}, nil
}

func chunithmRatings(ctx context.Context, u *Updater, game games.Game, playtype games.Playtype, userID int) (map[string]float64, error) {
	v, err := u.meanBestN(ctx, game, playtype, userID, "rating", 20)
	if err != nil {
		return nil, err
	}
	return map[string]float64{"naiveRating": v}, nil
}

func ktProfileRatings(ctx context.Context, u *Updater, game games.Game, playtype games.Playtype, userID int) (map[string]float64, error) {
	v, err := u.meanBestN(ctx, game, playtype, userID, "ktRating", 20)
	if err != nil {
		return nil, err
	}
	return map[string]float64{"ktRating": v}, nil
}
