package dice

// Range draws an integer uniformly from [lo, hi] inclusive. Bounds given in
// reverse order are swapped.
//
// Precondition: src must be non-nil.
// Postcondition: min(lo,hi) <= result <= max(lo,hi).
func Range(src Source, lo, hi int) int {
	if lo > hi {
		lo, hi = hi, lo
	}
	if lo == hi {
		return lo
	}
	return lo + src.Intn(hi-lo+1)
}

// Chance reports whether a percentile draw in [1, 100] lands at or under percent.
// A percent of 0 or less never succeeds; 100 or more always succeeds.
func Chance(src Source, percent int) bool {
	if percent <= 0 {
		return false
	}
	if percent >= 100 {
		return true
	}
	return Range(src, 1, 100) <= percent
}
