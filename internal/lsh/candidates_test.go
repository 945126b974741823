package lsh

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeBuckets map[[2]int][]string

func (f fakeBuckets) BucketsFor(t, h int) []string { return f[[2]int{t, h}] }

func TestFindCandidates_UnionsAcrossTables(t *testing.T) {
	buckets := fakeBuckets{
		{0, 5}: {"a", "b"},
		{1, 7}: {"b", "c"},
		{2, 9}: {"b"},
	}

	ids, found := FindCandidates([]int{5, 7, 9}, buckets, 1, 0)
	assert.Equal(t, 3, found)
	assert.Equal(t, []string{"b", "a", "c"}, ids)
}

func TestFindCandidates_RespectsMinMatches(t *testing.T) {
	buckets := fakeBuckets{
		{0, 5}: {"a", "b"},
		{1, 7}: {"b"},
	}

	ids, found := FindCandidates([]int{5, 7}, buckets, 2, 0)
	assert.Equal(t, 1, found)
	assert.Equal(t, []string{"b"}, ids)
}

func TestFindCandidates_TruncatesDeterministically(t *testing.T) {
	buckets := fakeBuckets{
		{0, 1}: {"z", "a", "m"},
	}

	ids, found := FindCandidates([]int{1}, buckets, 1, 2)
	assert.Equal(t, 3, found, "candidatesFound reflects the pre-truncation count")
	assert.Equal(t, []string{"a", "m"}, ids)
}

func TestFindCandidates_NoMatches(t *testing.T) {
	buckets := fakeBuckets{}
	ids, found := FindCandidates([]int{1, 2}, buckets, 1, 10)
	assert.Equal(t, 0, found)
	assert.Empty(t, ids)
}
