// Package model contains domain models passed between layers.
package model

import (
	"cmp"
	"slices"
	"time"
)

// Metric is the direction in which a stage measurement improves.
type Metric string

const (
	// MetricTime ranks smaller values first (elapsed time).
	MetricTime Metric = "time"
	// MetricCount ranks larger values first (repetitions, hits).
	MetricCount Metric = "count"
)

// Valid reports whether m is a known metric.
func (m Metric) Valid() bool {
	return m == MetricTime || m == MetricCount
}

// Compare orders two measurement values so that the better one comes first.
func (m Metric) Compare(a, b float64) int {
	if m == MetricCount {
		return cmp.Compare(b, a)
	}
	return cmp.Compare(a, b)
}

// Unit is the short unit label used in exports.
func (m Metric) Unit() string {
	if m == MetricCount {
		return "adet"
	}
	return "dk"
}

// Participant is a competitor. Identity and naming are owned by the store.
type Participant struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// Stage is one scored exercise of a competition mode.
type Stage struct {
	ID     string
	Title  string
	Weight float64 // fraction in [0,1]
	Metric Metric
}

// Measurement is a raw value recorded for a participant in a stage.
// A nil Value means the stage has not been measured yet.
type Measurement struct {
	ParticipantID string
	StageID       string
	Value         *float64
}

// Present reports whether the measurement carries a value.
func (m Measurement) Present() bool {
	return m.Value != nil
}

// StageOutcome is a participant's result in one stage.
// Rank, Points and WeightedPoints are all nil when the participant is unranked.
type StageOutcome struct {
	ParticipantID  string
	StageID        string
	Value          *float64
	Rank           *int
	Points         *int
	WeightedPoints *float64
}

// Ranked reports whether the outcome carries a rank.
func (o StageOutcome) Ranked() bool {
	return o.Rank != nil
}

// OverallOutcome is a participant's place in the overall standings.
type OverallOutcome struct {
	Participant Participant
	Total       float64
	Position    int
}

// Catalog maps a competition mode to its ordered stage list.
type Catalog map[string][]Stage

// Modes returns the configured modes in lexical order.
func (c Catalog) Modes() []string {
	modes := make([]string, 0, len(c))
	for mode := range c {
		modes = append(modes, mode)
	}
	slices.Sort(modes)
	return modes
}

// Stages returns a copy of the stage list for mode.
func (c Catalog) Stages(mode string) ([]Stage, bool) {
	stages, ok := c[mode]
	if !ok {
		return nil, false
	}
	return slices.Clone(stages), true
}

// Stage looks up a single stage of mode.
func (c Catalog) Stage(mode, stageID string) (Stage, bool) {
	for _, s := range c[mode] {
		if s.ID == stageID {
			return s, true
		}
	}
	return Stage{}, false
}
