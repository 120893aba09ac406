package domain

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// keysAt builds ascending candidate keys with Seq equal to the minute offset.
func keysAt(minutes ...int) []CandidateKey {
	keys := make([]CandidateKey, 0, len(minutes))
	for _, m := range minutes {
		keys = append(keys, CandidateKey{
			Seq:       int64(m),
			Ref:       fmt.Sprintf("rec-%d", m),
			Timestamp: ts(m),
		})
	}
	return keys
}

func seqs(keys []CandidateKey) []int64 {
	out := make([]int64, 0, len(keys))
	for _, k := range keys {
		out = append(out, k.Seq)
	}
	return out
}

func TestComposeOrderDescendingNoFences(t *testing.T) {
	got := ComposeOrder(keysAt(1, 2, 3, 4, 5), nil, DirectionDescending, nil)

	assert.Equal(t, []int64{5, 4, 3, 2, 1}, seqs(got))
}

func TestComposeOrderAscendingNoFences(t *testing.T) {
	got := ComposeOrder(keysAt(3, 1, 2), nil, DirectionAscending, nil)

	assert.Equal(t, []int64{1, 2, 3}, seqs(got))
}

func TestComposeOrderDescendingSkipsFenced(t *testing.T) {
	// Fence covers everything with timestamp <= 3.
	fences := FenceSet{{Earliest: ts(0), Latest: ts(3)}}

	got := ComposeOrder(keysAt(1, 2, 3, 4, 5), fences, DirectionDescending, nil)

	assert.Equal(t, []int64{5, 4}, seqs(got), "only uncovered keys remain, newest first")
}

func TestComposeOrderDescendingInteriorGap(t *testing.T) {
	fences := FenceSet{
		{Earliest: ts(0), Latest: ts(2)},
		{Earliest: ts(5), Latest: ts(6)},
	}

	got := ComposeOrder(keysAt(1, 3, 4, 7, 8), fences, DirectionDescending, nil)

	// Keys above the span come first newest-first, then the interior gap
	// newest-first. Covered keys are gone.
	assert.Equal(t, []int64{8, 7, 4, 3}, seqs(got))
}

func TestComposeOrderDescendingBackfillBelowFence(t *testing.T) {
	fences := FenceSet{{Earliest: ts(10), Latest: ts(20)}}

	got := ComposeOrder(keysAt(5, 6, 15, 25, 30), fences, DirectionDescending, nil)

	// Newer-than-fence block first, then pre-fence history, each newest first.
	assert.Equal(t, []int64{30, 25, 6, 5}, seqs(got))
}

func TestComposeOrderAscendingExplicitSince(t *testing.T) {
	fences := FenceSet{{Earliest: ts(10), Latest: ts(20)}}

	got := ComposeOrder(keysAt(5, 6, 15, 25, 30), fences, DirectionAscending, tsp(0))

	// Backfill below the fence oldest-first, then keys above it oldest-first.
	assert.Equal(t, []int64{5, 6, 25, 30}, seqs(got))
}

func TestComposeOrderAscendingWithoutSinceExcludesHistory(t *testing.T) {
	fences := FenceSet{{Earliest: ts(10), Latest: ts(20)}}

	got := ComposeOrder(keysAt(5, 15, 25, 30), fences, DirectionAscending, nil)

	// No explicit since: pre-fence history is not re-opened.
	assert.Equal(t, []int64{25, 30}, seqs(got))
}

func TestComposeOrderTieBreakOnNativeOrder(t *testing.T) {
	sameTime := []CandidateKey{
		{Seq: 2, Ref: "b", Timestamp: ts(1)},
		{Seq: 1, Ref: "a", Timestamp: ts(1)},
	}

	got := ComposeOrder(sameTime, nil, DirectionAscending, nil)
	assert.Equal(t, []int64{1, 2}, seqs(got))

	got = ComposeOrder(sameTime, nil, DirectionDescending, nil)
	assert.Equal(t, []int64{2, 1}, seqs(got))
}
