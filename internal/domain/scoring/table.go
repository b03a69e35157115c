package scoring

import (
	"fmt"
	"math"
	"slices"
)

// Unbounded is the UpTo value of a table's final catch-all bracket.
const Unbounded = math.MaxInt

// Bracket awards Points to every rank up to and including UpTo that is not
// covered by an earlier bracket.
type Bracket struct {
	UpTo   int
	Points int
}

// Table is an ordered points-by-rank policy evaluated top-down.
type Table []Bracket

var defaultTable = Table{
	{UpTo: 3, Points: 100},
	{UpTo: 7, Points: 95},
	{UpTo: 12, Points: 90},
	{UpTo: 20, Points: 85},
	{UpTo: 30, Points: 80},
	{UpTo: 40, Points: 75},
	{UpTo: 50, Points: 70},
	{UpTo: 60, Points: 65},
	{UpTo: 70, Points: 60},
	{UpTo: 80, Points: 55},
	{UpTo: 88, Points: 50},
	{UpTo: 94, Points: 45},
	{UpTo: 97, Points: 35},
	{UpTo: 99, Points: 20},
	{UpTo: Unbounded, Points: 0},
}

// DefaultTable returns a copy of the competition's points table.
func DefaultTable() Table {
	return slices.Clone(defaultTable)
}

// PointsByRank looks rank up in the default table.
func PointsByRank(rank int) int {
	return defaultTable.Points(rank)
}

// Points returns the points awarded for rank. Ranks below 1 fall into the
// first bracket; ranks past the last bracket earn nothing.
func (t Table) Points(rank int) int {
	for _, b := range t {
		if rank <= b.UpTo {
			return b.Points
		}
	}
	return 0
}

// Validate checks that bounds strictly increase, points never increase, and
// the final bracket is unbounded so every rank resolves.
func (t Table) Validate() error {
	if len(t) == 0 {
		return fmt.Errorf("%w: no brackets", ErrInvalidTable)
	}
	for i, b := range t {
		if b.UpTo < 1 {
			return fmt.Errorf("%w: bracket %d has bound %d", ErrInvalidTable, i, b.UpTo)
		}
		if b.Points < 0 {
			return fmt.Errorf("%w: bracket %d awards negative points", ErrInvalidTable, i)
		}
		if i == 0 {
			continue
		}
		prev := t[i-1]
		if b.UpTo <= prev.UpTo {
			return fmt.Errorf("%w: bracket %d bound %d does not exceed %d", ErrInvalidTable, i, b.UpTo, prev.UpTo)
		}
		if b.Points > prev.Points {
			return fmt.Errorf("%w: bracket %d awards more than bracket %d", ErrInvalidTable, i, i-1)
		}
	}
	if t[len(t)-1].UpTo != Unbounded {
		return fmt.Errorf("%w: last bracket must be unbounded", ErrInvalidTable)
	}
	return nil
}
