package sessions

import "math/rand/v2"

var nameAdjectives = []string{
	"Blazing", "Quiet", "Restless", "Golden", "Midnight", "Electric",
	"Patient", "Reckless", "Steady", "Wandering", "Fearless", "Lucky",
	"Stubborn", "Radiant", "Sleepless", "Rapid", "Gentle", "Defiant",
}

var nameNouns = []string{
	"Comeback", "Marathon", "Warmup", "Grind", "Breakthrough", "Encore",
	"Rally", "Detour", "Ascent", "Streak", "Voyage", "Ritual",
	"Expedition", "Sprint", "Overture", "Finale", "Rehearsal", "Gambit",
}

// RandomName generates a throwaway session name. Users rename the ones
// they care about.
func RandomName() string {
	return nameAdjectives[rand.IntN(len(nameAdjectives))] + " " + nameNouns[rand.IntN(len(nameNouns))]
}
