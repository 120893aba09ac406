package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ts builds a test timestamp at the given offset in minutes.
func ts(min int) time.Time {
	return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(min) * time.Minute)
}

func tsp(min int) *time.Time {
	t := ts(min)
	return &t
}

func TestFenceContains(t *testing.T) {
	f := Fence{Earliest: ts(10), Latest: ts(20)}

	assert.True(t, f.Contains(ts(10)), "lower bound is inclusive")
	assert.True(t, f.Contains(ts(20)), "upper bound is inclusive")
	assert.True(t, f.Contains(ts(15)))
	assert.False(t, f.Contains(ts(9)))
	assert.False(t, f.Contains(ts(21)))
}

func TestFenceSetNormalized(t *testing.T) {
	tests := []struct {
		name string
		in   FenceSet
		want FenceSet
	}{
		{
			name: "empty",
			in:   FenceSet{},
			want: FenceSet{},
		},
		{
			name: "overlapping fences merge",
			in: FenceSet{
				{Earliest: ts(8), Latest: ts(12)},
				{Earliest: ts(5), Latest: ts(10)},
			},
			want: FenceSet{{Earliest: ts(5), Latest: ts(12)}},
		},
		{
			name: "contiguous fences merge",
			in: FenceSet{
				{Earliest: ts(0), Latest: ts(5)},
				{Earliest: ts(5), Latest: ts(9)},
			},
			want: FenceSet{{Earliest: ts(0), Latest: ts(9)}},
		},
		{
			name: "disjoint fences stay separate and sorted",
			in: FenceSet{
				{Earliest: ts(30), Latest: ts(40)},
				{Earliest: ts(0), Latest: ts(10)},
			},
			want: FenceSet{
				{Earliest: ts(0), Latest: ts(10)},
				{Earliest: ts(30), Latest: ts(40)},
			},
		},
		{
			name: "contained fence absorbed",
			in: FenceSet{
				{Earliest: ts(0), Latest: ts(50)},
				{Earliest: ts(10), Latest: ts(20)},
			},
			want: FenceSet{{Earliest: ts(0), Latest: ts(50)}},
		},
		{
			name: "invalid fence dropped",
			in: FenceSet{
				{Earliest: ts(20), Latest: ts(10)},
				{Earliest: ts(0), Latest: ts(5)},
			},
			want: FenceSet{{Earliest: ts(0), Latest: ts(5)}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Normalized())
		})
	}
}

func TestFenceSetInsert(t *testing.T) {
	s := FenceSet{{Earliest: ts(8), Latest: ts(12)}}

	s = s.Insert(Fence{Earliest: ts(5), Latest: ts(10)})

	require.Len(t, s, 1)
	assert.Equal(t, Fence{Earliest: ts(5), Latest: ts(12)}, s[0])
}

func TestFenceSetCovers(t *testing.T) {
	s := FenceSet{
		{Earliest: ts(0), Latest: ts(10)},
		{Earliest: ts(20), Latest: ts(30)},
	}

	assert.True(t, s.Covers(ts(5)))
	assert.True(t, s.Covers(ts(20)))
	assert.False(t, s.Covers(ts(15)), "interior gap is not covered")
	assert.False(t, s.Covers(ts(31)))
}

func TestFenceSetGaps(t *testing.T) {
	now := ts(100)

	tests := []struct {
		name   string
		fences FenceSet
		since  *time.Time
		until  *time.Time
		want   []Fence
	}{
		{
			name:   "empty set yields whole window",
			fences: FenceSet{},
			since:  tsp(0),
			until:  tsp(50),
			want:   []Fence{{Earliest: ts(0), Latest: ts(50)}},
		},
		{
			name:   "empty set unbounded ends default to epoch and now",
			fences: FenceSet{},
			want:   []Fence{{Earliest: time.Unix(0, 0).UTC(), Latest: now}},
		},
		{
			name: "interior gap between two fences",
			fences: FenceSet{
				{Earliest: ts(0), Latest: ts(10)},
				{Earliest: ts(30), Latest: ts(40)},
			},
			since: tsp(0),
			until: tsp(40),
			want:  []Fence{{Earliest: ts(10), Latest: ts(30)}},
		},
		{
			name: "no window extends to now past latest fence",
			fences: FenceSet{
				{Earliest: ts(0), Latest: ts(40)},
			},
			want: []Fence{{Earliest: ts(40), Latest: now}},
		},
		{
			name: "gap before first fence when since precedes it",
			fences: FenceSet{
				{Earliest: ts(20), Latest: ts(40)},
			},
			since: tsp(0),
			until: tsp(40),
			want:  []Fence{{Earliest: ts(0), Latest: ts(20)}},
		},
		{
			name: "window entirely outside all fences",
			fences: FenceSet{
				{Earliest: ts(0), Latest: ts(10)},
			},
			since: tsp(50),
			until: tsp(60),
			want:  []Fence{{Earliest: ts(50), Latest: ts(60)}},
		},
		{
			name: "fully covered window yields no gaps",
			fences: FenceSet{
				{Earliest: ts(0), Latest: ts(40)},
			},
			since: tsp(5),
			until: tsp(35),
			want:  nil,
		},
		{
			name: "interrupted run shape: covered-recent and covered-old",
			fences: FenceSet{
				{Earliest: ts(0), Latest: ts(20)},
				{Earliest: ts(60), Latest: ts(90)},
			},
			since: tsp(0),
			until: tsp(90),
			want:  []Fence{{Earliest: ts(20), Latest: ts(60)}},
		},
		{
			name:   "inverted window yields nothing",
			fences: FenceSet{{Earliest: ts(0), Latest: ts(10)}},
			since:  tsp(50),
			until:  tsp(40),
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.fences.Gaps(tt.since, tt.until, now)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFenceSetSpan(t *testing.T) {
	_, ok := FenceSet{}.Span()
	assert.False(t, ok)

	span, ok := FenceSet{
		{Earliest: ts(20), Latest: ts(30)},
		{Earliest: ts(0), Latest: ts(10)},
	}.Span()
	require.True(t, ok)
	assert.Equal(t, Fence{Earliest: ts(0), Latest: ts(30)}, span)
}
