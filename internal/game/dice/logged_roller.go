package dice

import "go.uber.org/zap"

// Roller wraps a Source and logger to provide logged draws.
// All draws are logged at debug level with label, bounds and value.
type Roller struct {
	src    Source
	logger *zap.Logger
}

// NewLoggedRoller creates a Roller that draws from src and logs each draw to logger.
//
// Precondition: src and logger must be non-nil.
func NewLoggedRoller(src Source, logger *zap.Logger) *Roller {
	if src == nil || logger == nil {
		panic("dice: NewLoggedRoller requires non-nil src and logger")
	}
	return &Roller{src: src, logger: logger}
}

// Range draws from [lo, hi] inclusive and logs the result.
//
// Postcondition: result logged; min(lo,hi) <= result.Value <= max(lo,hi).
func (r *Roller) Range(label string, lo, hi int) RangeResult {
	if lo > hi {
		lo, hi = hi, lo
	}
	res := RangeResult{Label: label, Min: lo, Max: hi, Value: Range(r.src, lo, hi)}
	r.logger.Debug("dice range",
		zap.String("label", label),
		zap.Int("min", res.Min),
		zap.Int("max", res.Max),
		zap.Int("value", res.Value),
	)
	return res
}

// Chance performs a percentile check against percent and logs the outcome.
func (r *Roller) Chance(label string, percent int) bool {
	ok := Chance(r.src, percent)
	r.logger.Debug("dice chance",
		zap.String("label", label),
		zap.Int("percent", percent),
		zap.Bool("success", ok),
	)
	return ok
}

// Source returns the underlying randomness source.
func (r *Roller) Source() Source {
	return r.src
}
