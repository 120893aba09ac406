package domain

import (
	"sort"
	"time"
)

// Fence is a closed interval of canonical record timestamps whose records
// have all been durably submitted. Both bounds are inclusive.
type Fence struct {
	Earliest time.Time `json:"earliest"`
	Latest   time.Time `json:"latest"`
}

// Valid reports whether the fence's bounds are ordered.
func (f Fence) Valid() bool {
	return !f.Earliest.After(f.Latest)
}

// Contains reports whether t falls inside the fence.
func (f Fence) Contains(t time.Time) bool {
	return !t.Before(f.Earliest) && !t.After(f.Latest)
}

// FenceSet is a scope's coverage: a set of fences kept sorted and
// non-overlapping through Normalized. The zero value is usable and means
// nothing is covered.
type FenceSet []Fence

// Normalized returns the set sorted by Earliest with overlapping and
// touching fences merged. Invalid fences are dropped.
func (s FenceSet) Normalized() FenceSet {
	valid := make(FenceSet, 0, len(s))
	for _, f := range s {
		if f.Valid() {
			valid = append(valid, f)
		}
	}
	sort.Slice(valid, func(i, j int) bool {
		if !valid[i].Earliest.Equal(valid[j].Earliest) {
			return valid[i].Earliest.Before(valid[j].Earliest)
		}
		return valid[i].Latest.Before(valid[j].Latest)
	})

	out := make(FenceSet, 0, len(valid))
	for _, f := range valid {
		if len(out) > 0 {
			last := &out[len(out)-1]
			if !f.Earliest.After(last.Latest) {
				if f.Latest.After(last.Latest) {
					last.Latest = f.Latest
				}
				continue
			}
		}
		out = append(out, f)
	}
	return out
}

// Insert returns the set with f merged in.
func (s FenceSet) Insert(f Fence) FenceSet {
	return append(s, f).Normalized()
}

// Covers reports whether t falls inside any fence.
func (s FenceSet) Covers(t time.Time) bool {
	for _, f := range s {
		if f.Contains(t) {
			return true
		}
	}
	return false
}

// Span returns the overall extent of the set. ok is false when the set is
// empty.
func (s FenceSet) Span() (Fence, bool) {
	norm := s.Normalized()
	if len(norm) == 0 {
		return Fence{}, false
	}
	return Fence{
		Earliest: norm[0].Earliest,
		Latest:   norm[len(norm)-1].Latest,
	}, true
}

// Gaps returns the uncovered sub-windows of [since, until], oldest first.
// A nil since defaults to the set's own start (or the epoch when the set is
// empty); a nil until defaults to now, so coverage always extends forward
// to pick up new records. An empty or inverted window yields nothing.
func (s FenceSet) Gaps(since, until *time.Time, now time.Time) []Fence {
	norm := s.Normalized()

	var start, end time.Time
	if len(norm) == 0 {
		start = time.Unix(0, 0).UTC()
		end = now
	} else {
		start = norm[0].Earliest
		end = norm[len(norm)-1].Latest
		if now.After(end) {
			end = now
		}
	}
	if since != nil {
		start = *since
	}
	if until != nil {
		end = *until
	}
	if !start.Before(end) {
		return nil
	}

	var gaps []Fence
	cursor := start
	for _, f := range norm {
		if !f.Latest.After(cursor) {
			continue
		}
		if !f.Earliest.Before(end) {
			break
		}
		if f.Earliest.After(cursor) {
			gapEnd := f.Earliest
			if gapEnd.After(end) {
				gapEnd = end
			}
			gaps = append(gaps, Fence{Earliest: cursor, Latest: gapEnd})
		}
		cursor = f.Latest
		if !cursor.Before(end) {
			return gaps
		}
	}
	if cursor.Before(end) {
		gaps = append(gaps, Fence{Earliest: cursor, Latest: end})
	}
	return gaps
}
