// Package scoring turns raw stage measurements into competition ranks,
// points, weighted contributions and overall standings.
//
// Everything here is a pure function of its inputs: the Engine holds only
// immutable policy (points table, name ordering, total precision) and can be
// shared between goroutines.
package scoring

import (
	"cmp"
	"math"
	"slices"
	"strings"

	"github.com/okian/swatrank/internal/domain/model"
)

const (
	defaultPrecision = 2
	maxPrecision     = 9
)

// Comparator orders participant display names. It must be a total order
// and safe for concurrent use.
type Comparator func(a, b string) int

// Engine ranks stages and orders overall standings.
type Engine struct {
	table        Table
	compareNames Comparator
	precision    int
}

// NewEngine creates an engine with the default points table, byte-wise name
// ordering and two-decimal total precision.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		table:        DefaultTable(),
		compareNames: strings.Compare,
		precision:    defaultPrecision,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Precision returns the number of decimals totals are compared at.
func (e *Engine) Precision() int {
	return e.precision
}

// Table returns a copy of the engine's points table.
func (e *Engine) Table() Table {
	return slices.Clone(e.table)
}

// Entry is a participant's measurement in a single stage. A nil Value is an
// absent measurement.
type Entry struct {
	Participant model.Participant
	Value       *float64
}

// RankedEntry is a ranked participant within a stage.
type RankedEntry struct {
	Participant    model.Participant
	Value          float64
	Rank           int
	Points         int
	WeightedPoints float64
}

// StageRanking is the ranked field of one stage, best first.
type StageRanking struct {
	Stage   model.Stage
	Entries []RankedEntry
	byID    map[string]int
}

// Lookup returns the ranked entry of a participant.
func (r StageRanking) Lookup(participantID string) (RankedEntry, bool) {
	i, ok := r.byID[participantID]
	if !ok {
		return RankedEntry{}, false
	}
	return r.Entries[i], true
}

// Rank returns the participant's rank, if measured.
func (r StageRanking) Rank(participantID string) (int, bool) {
	entry, ok := r.Lookup(participantID)
	return entry.Rank, ok
}

// Points returns the participant's stage points, if measured.
func (r StageRanking) Points(participantID string) (int, bool) {
	entry, ok := r.Lookup(participantID)
	return entry.Points, ok
}

// Len returns the number of ranked participants.
func (r StageRanking) Len() int {
	return len(r.Entries)
}

// RankStage applies standard competition ranking to one stage. Absent
// measurements are dropped. Equal values share the rank of the first
// position of their block and the next distinct value skips the block
// size (5,5,5,9 ranks 1,1,1,4).
func (e *Engine) RankStage(stage model.Stage, entries []Entry) StageRanking {
	present := make([]RankedEntry, 0, len(entries))
	for _, entry := range entries {
		if entry.Value == nil {
			continue
		}
		present = append(present, RankedEntry{Participant: entry.Participant, Value: *entry.Value})
	}

	slices.SortStableFunc(present, func(a, b RankedEntry) int {
		if c := stage.Metric.Compare(a.Value, b.Value); c != 0 {
			return c
		}
		return e.compareParticipants(a.Participant, b.Participant)
	})

	ranking := StageRanking{
		Stage:   stage,
		Entries: present,
		byID:    make(map[string]int, len(present)),
	}

	rank := 0
	for i := range present {
		if i == 0 || present[i].Value != present[i-1].Value {
			rank = i + 1
		}
		points := e.table.Points(rank)
		present[i].Rank = rank
		present[i].Points = points
		present[i].WeightedPoints = float64(points) * stage.Weight
		ranking.byID[present[i].Participant.ID] = i
	}
	return ranking
}

// Aggregate sums one participant's weighted stage contributions in the
// order given. Unranked outcomes contribute nothing.
func Aggregate(outcomes []model.StageOutcome) float64 {
	var total float64
	for _, o := range outcomes {
		if o.WeightedPoints != nil {
			total += *o.WeightedPoints
		}
	}
	return total
}

// Total is a participant's aggregated score prior to ordering.
type Total struct {
	Participant model.Participant
	Total       float64
}

// OrderOverall sorts participants by total descending, compared after
// rounding to the engine precision, then by name and id. Positions run
// 1..N and are never shared.
func (e *Engine) OrderOverall(totals []Total) []model.OverallOutcome {
	sorted := slices.Clone(totals)
	slices.SortStableFunc(sorted, func(a, b Total) int {
		if c := cmp.Compare(Round(b.Total, e.precision), Round(a.Total, e.precision)); c != 0 {
			return c
		}
		return e.compareParticipants(a.Participant, b.Participant)
	})

	out := make([]model.OverallOutcome, len(sorted))
	for i, t := range sorted {
		out[i] = model.OverallOutcome{
			Participant: t.Participant,
			Total:       t.Total,
			Position:    i + 1,
		}
	}
	return out
}

func (e *Engine) compareParticipants(a, b model.Participant) int {
	if c := e.compareNames(a.Name, b.Name); c != 0 {
		return c
	}
	return strings.Compare(a.ID, b.ID)
}

// Round rounds x half away from zero to the given number of decimals.
func Round(x float64, decimals int) float64 {
	p := math.Pow10(decimals)
	return math.Round(x*p) / p
}
