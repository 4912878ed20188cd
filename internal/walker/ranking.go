package walker

import (
	"sort"
)

// expectedOrder returns walkers fastest first, ties by name.
func expectedOrder(walkers []Walker) []Walker {
	out := make([]Walker, len(walkers))
	copy(out, walkers)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Speed != out[j].Speed {
			return out[i].Speed > out[j].Speed
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// ownEntries keeps the leaderboard rows that belong to walkers, in
// leaderboard order. Rows from earlier runs or real players are skipped.
func ownEntries(lb Leaderboard, walkers []Walker) []Entry {
	names := make(map[string]struct{}, len(walkers))
	for _, w := range walkers {
		names[w.Name] = struct{}{}
	}
	out := make([]Entry, 0, len(walkers))
	for _, e := range lb.Entries {
		if _, ok := names[e.Name]; ok {
			out = append(out, e)
		}
	}
	return out
}
