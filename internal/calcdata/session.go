package calcdata

import (
	"fmt"
	"sort"

	"encore/internal/games"
	"encore/internal/storage"
)

// How many member values a mean-style session aggregate considers.
const sessionTopN = 10

// Keys whose profile rating is a sum rather than a mean; their session
// aggregate sums every member value the same way.
var summedKeys = map[string]bool{
	"MFCP":  true,
	"VF6":   true,
	"skill": true,
}

// ForSession aggregates member score ratings into session calculated data.
// Mean-style keys average the top values of the session; sum-style keys
// total every member. A key nobody in the session has a value for is null.
func ForSession(game games.Game, playtype games.Playtype, scores []storage.Score) (storage.CalculatedData, error) {
	cfg, err := games.GetGPTConfig(game, playtype)
	if err != nil {
		return nil, fmt.Errorf("session calculated data: %w", err)
	}

	out := storage.CalculatedData{}
	for _, key := range cfg.RatingKeys {
		var values []float64
		for i := range scores {
			if v, ok := scores[i].CalculatedData[key]; ok && v != nil {
				values = append(values, *v)
			}
		}
		if len(values) == 0 {
			out[key] = nil
			continue
		}

		if summedKeys[key] {
			total := 0.0
			for _, v := range values {
				total += v
			}
			out[key] = fptr(floorN(total, 2))
			continue
		}

		sort.Sort(sort.Reverse(sort.Float64Slice(values)))
		n := min(len(values), sessionTopN)
		total := 0.0
		for _, v := range values[:n] {
			total += v
		}
		out[key] = fptr(floorN(total/float64(n), 2))
	}
	return out, nil
}
