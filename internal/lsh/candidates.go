package lsh

import "sort"

// BucketSource is anything that can answer "which embedding ids sit in
// bucket (t, h)". *index.Index satisfies this without lsh needing to
// import the index package.
type BucketSource interface {
	BucketsFor(t, h int) []string
}

// FindCandidates walks t = 0..T-1, unions BucketsFor(t, queryCodes[t]) into
// a per-embedding match counter, and returns the ids whose match count is
// at least minMatches. If cap > 0, the result is truncated deterministically:
// higher match count first, then lower embedding_id as a stable
// tie-breaker. candidatesFound is the count before truncation.
func FindCandidates(queryCodes []int, buckets BucketSource, minMatches int, cap int) (ids []string, candidatesFound int) {
	if minMatches <= 0 {
		minMatches = 1
	}

	matches := make(map[string]int)
	for t, code := range queryCodes {
		for _, id := range buckets.BucketsFor(t, code) {
			matches[id]++
		}
	}

	type scored struct {
		id    string
		count int
	}
	all := make([]scored, 0, len(matches))
	for id, count := range matches {
		if count >= minMatches {
			all = append(all, scored{id: id, count: count})
		}
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].count != all[j].count {
			return all[i].count > all[j].count
		}
		return all[i].id < all[j].id
	})

	candidatesFound = len(all)

	if cap > 0 && len(all) > cap {
		all = all[:cap]
	}

	ids = make([]string, len(all))
	for i, s := range all {
		ids[i] = s.id
	}
	return ids, candidatesFound
}
