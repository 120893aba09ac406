package domain

import (
	"sort"
	"time"
)

// Direction is the order a run works through its candidates.
type Direction string

const (
	// DirectionDescending processes newest records first. This is the
	// default: recent records are the ones a user is waiting on.
	DirectionDescending Direction = "descending"

	// DirectionAscending processes oldest records first, for backfills.
	DirectionAscending Direction = "ascending"
)

// Valid reports whether the direction is a known value.
func (d Direction) Valid() bool {
	return d == DirectionDescending || d == DirectionAscending
}

// ComposeOrder turns listed candidate keys into the order a run processes
// them: covered keys are dropped, keys newer than all coverage form one
// block, and the remaining uncovered keys (interior gaps and pre-coverage
// history) form another. Descending runs take the newer block first;
// ascending runs leave it for last. Without an explicit since, ascending
// runs do not re-open history older than existing coverage.
func ComposeOrder(keys []CandidateKey, fences FenceSet, dir Direction, since *time.Time) []CandidateKey {
	span, ok := fences.Span()
	if !ok {
		out := append([]CandidateKey(nil), keys...)
		sortKeys(out, dir)
		return out
	}

	var newer, rest []CandidateKey
	for _, k := range keys {
		ts := k.Timestamp
		switch {
		case fences.Covers(ts):
			// Already submitted.
		case ts.After(span.Latest):
			newer = append(newer, k)
		case ts.Before(span.Earliest) && dir == DirectionAscending && since == nil:
			// History the caller did not ask to re-open.
		default:
			rest = append(rest, k)
		}
	}

	sortKeys(newer, dir)
	sortKeys(rest, dir)

	if dir == DirectionAscending {
		return append(rest, newer...)
	}
	return append(newer, rest...)
}

// sortKeys orders keys in place for the given direction.
func sortKeys(keys []CandidateKey, dir Direction) {
	if dir == DirectionAscending {
		sort.SliceStable(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
		return
	}
	sort.SliceStable(keys, func(i, j int) bool { return keys[j].Less(keys[i]) })
}
