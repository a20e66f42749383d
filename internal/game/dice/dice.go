// Package dice provides the randomness abstraction used by effect magnitudes,
// chance gates and phase deltas.
package dice

import "fmt"

// RangeResult holds the audit trail for a single inclusive range draw.
//
// Invariant: Min <= Value <= Max.
type RangeResult struct {
	Label string // what the draw was for, e.g. "magnitude:poison"
	Min   int
	Max   int
	Value int
}

// String returns a human-readable audit string in the format:
//
//	"magnitude:poison [2..6] = 4"
//
// Precondition: r.Label is non-empty.
func (r RangeResult) String() string {
	if r.Label == "" {
		panic("dice: RangeResult.String() precondition violated: Label must be non-empty")
	}
	return fmt.Sprintf("%s [%d..%d] = %d", r.Label, r.Min, r.Max, r.Value)
}

// Source is the randomness provider for all draws.
//
// Implementations MUST be safe for concurrent use.
type Source interface {
	// Intn returns a non-negative random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
}
