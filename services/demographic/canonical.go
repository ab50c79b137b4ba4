package demographic

import (
	"incov-backend/lib/textutil"

	"github.com/antzucaro/matchr"
)

const stateSimilarityThreshold = 0.92

// CanonicalizeStates folds the STATE keys of profile onto the matching
// scraped region name, so that spellings such as "Jammu & Kashmir" and
// "Jammu and Kashmir" from the linelist line up with the state table. Keys without a close
// enough region are kept as they are. The table total does not change.
func CanonicalizeStates(profile Profile, regions []string) Profile {
	if len(regions) == 0 {
		return profile
	}

	normalized := make([]string, len(regions))
	for i, r := range regions {
		normalized[i] = textutil.NormalizeName(r)
	}

	folded := Table{}
	for state, count := range profile.State {
		key := state
		target := textutil.NormalizeName(state)

		bestIdx := -1
		bestSimilarity := 0.0
		for i, region := range normalized {
			similarity := matchr.JaroWinkler(target, region, false)
			if similarity > bestSimilarity {
				bestIdx = i
				bestSimilarity = similarity
			}
		}
		if bestIdx >= 0 && bestSimilarity >= stateSimilarityThreshold {
			key = regions[bestIdx]
		}
		folded[key] += count
	}

	profile.State = folded
	return profile
}
