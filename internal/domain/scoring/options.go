package scoring

import "slices"

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithTable swaps the points-by-rank policy. Invalid tables are ignored.
func WithTable(t Table) Option {
	return func(e *Engine) {
		if t.Validate() == nil {
			e.table = slices.Clone(t)
		}
	}
}

// WithComparator sets the participant-name ordering used for tie-breaks,
// typically a locale-aware collation.
func WithComparator(c Comparator) Option {
	return func(e *Engine) {
		if c != nil {
			e.compareNames = c
		}
	}
}

// WithPrecision sets how many decimals overall totals are rounded to before
// they are compared.
func WithPrecision(decimals int) Option {
	return func(e *Engine) {
		if decimals >= 0 && decimals <= maxPrecision {
			e.precision = decimals
		}
	}
}
