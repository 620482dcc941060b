package align

import "github.com/agenthands/redline/internal/core/model"

// Overlaps reports whether candidate intersects any claimed range.
// Ranges that merely touch do not overlap.
func Overlaps(candidate model.Range, claimed []model.Range) bool {
	for _, c := range claimed {
		if candidate.Lower < c.Upper && candidate.Upper > c.Lower {
			return true
		}
	}
	return false
}

// Claimed accumulates the ranges already accepted in one projection run.
type Claimed struct {
	ranges []model.Range
}

// Claim records r if it is free and reports whether it was accepted.
func (c *Claimed) Claim(r model.Range) bool {
	if Overlaps(r, c.ranges) {
		return false
	}
	c.ranges = append(c.ranges, r)
	return true
}
