package games

import "fmt"

// ClassValueIndex resolves a class value to its position in the named class
// set for the pair. Classes are only comparable within one set; the index is
// what the improvement check in the stats updater compares.
func ClassValueIndex(game Game, playtype Playtype, set, value string) (int, error) {
	cfg, err := GetGPTConfig(game, playtype)
	if err != nil {
		return 0, err
	}
	values, ok := cfg.ClassSets[set]
	if !ok {
		return 0, fmt.Errorf("%s:%s has no class set %q", game, playtype, set)
	}
	for i, v := range values {
		if v == value {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%q is not a value of class set %s for %s:%s", value, set, game, playtype)
}

// ClassValueByIndex is the inverse of ClassValueIndex, used by sources whose
// services report classes as ordinals.
func ClassValueByIndex(game Game, playtype Playtype, set string, index int) (string, error) {
	cfg, err := GetGPTConfig(game, playtype)
	if err != nil {
		return "", err
	}
	values, ok := cfg.ClassSets[set]
	if !ok {
		return "", fmt.Errorf("%s:%s has no class set %q", game, playtype, set)
	}
	if index < 0 || index >= len(values) {
		return "", fmt.Errorf("index %d out of range for class set %s (%d values)", index, set, len(values))
	}
	return values[index], nil
}

// ClassIsGreater reports whether newValue outranks oldValue within the named
// class set. Both values must belong to the set.
func ClassIsGreater(game Game, playtype Playtype, set, newValue, oldValue string) (bool, error) {
	newIdx, err := ClassValueIndex(game, playtype, set, newValue)
	if err != nil {
		return false, err
	}
	oldIdx, err := ClassValueIndex(game, playtype, set, oldValue)
	if err != nil {
		return false, err
	}
	return newIdx > oldIdx, nil
}
