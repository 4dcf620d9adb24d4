package replay

import "sort"

// Rank orders the revealed entities by race progress. The comparator is
// raw progress descending; among entities with equal progress the one
// that reached the shared minisector first ranks ahead (it is further
// into the following sector). Unrevealed entities never appear. The
// sort is stable, so remaining ties keep entity registration order.
func Rank(entries []*EntityProgress) []*EntityProgress {
	ranked := make([]*EntityProgress, 0, len(entries))
	for _, e := range entries {
		if e.Revealed {
			ranked = append(ranked, e)
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.RawProgress() != b.RawProgress() {
			return a.RawProgress() > b.RawProgress()
		}
		switch {
		case a.HasMiniCross && b.HasMiniCross:
			return a.LastMiniCross < b.LastMiniCross
		case a.HasMiniCross:
			return true
		default:
			return false
		}
	})
	return ranked
}
