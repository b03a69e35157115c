// Package types contains the read shapes returned by the API.
package types

import (
	"time"

	"github.com/okian/swatrank/internal/domain/model"
	"github.com/okian/swatrank/internal/domain/scoring"
)

// NameFunc renders a participant's display name.
type NameFunc func(model.Participant) string

// PlainName returns the stored name unchanged.
func PlainName(p model.Participant) string { return p.Name }

// Stage describes a configured stage.
type Stage struct {
	ID     string  `json:"id"`
	Title  string  `json:"title"`
	Weight float64 `json:"weight"`
	Metric string  `json:"metric"`
}

// Participant is a registered competitor.
type Participant struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Measurement is a recorded stage value.
type Measurement struct {
	ParticipantID string   `json:"participant_id"`
	StageID       string   `json:"stage_id"`
	Value         *float64 `json:"value"`
}

// Cell is a participant's outcome in one stage. Rank, points and weighted
// points are null for unranked participants.
type Cell struct {
	StageID        string   `json:"stage_id"`
	Value          *float64 `json:"value"`
	Rank           *int     `json:"rank"`
	Points         *int     `json:"points"`
	WeightedPoints *float64 `json:"weighted_points"`
}

// Standing is one line of the overall table.
type Standing struct {
	Position      int     `json:"position"`
	ParticipantID string  `json:"participant_id"`
	Name          string  `json:"name"`
	Total         float64 `json:"total"`
	Stages        []Cell  `json:"stages"`
}

// Overall is the overall table of a mode.
type Overall struct {
	Mode      string     `json:"mode"`
	Stages    []Stage    `json:"stages"`
	Standings []Standing `json:"standings"`
}

// StageRow is one line of a stage table.
type StageRow struct {
	ParticipantID string `json:"participant_id"`
	Name          string `json:"name"`
	Cell
}

// StageTable is the table of one stage.
type StageTable struct {
	Mode  string     `json:"mode"`
	Stage Stage      `json:"stage"`
	Rows  []StageRow `json:"rows"`
}

// FromStage converts a configured stage.
func FromStage(s model.Stage) Stage {
	return Stage{ID: s.ID, Title: s.Title, Weight: s.Weight, Metric: string(s.Metric)}
}

// FromStages converts a stage list.
func FromStages(stages []model.Stage) []Stage {
	out := make([]Stage, len(stages))
	for i, s := range stages {
		out[i] = FromStage(s)
	}
	return out
}

// FromParticipant converts a participant.
func FromParticipant(p model.Participant) Participant {
	return Participant{ID: p.ID, Name: p.Name, CreatedAt: p.CreatedAt}
}

// FromParticipants converts a participant list.
func FromParticipants(ps []model.Participant) []Participant {
	out := make([]Participant, len(ps))
	for i, p := range ps {
		out[i] = FromParticipant(p)
	}
	return out
}

// FromMeasurements converts a measurement list.
func FromMeasurements(ms []model.Measurement) []Measurement {
	out := make([]Measurement, len(ms))
	for i, m := range ms {
		out[i] = Measurement{ParticipantID: m.ParticipantID, StageID: m.StageID, Value: m.Value}
	}
	return out
}

// FromOutcome converts a stage outcome.
func FromOutcome(o model.StageOutcome) Cell {
	return Cell{
		StageID:        o.StageID,
		Value:          o.Value,
		Rank:           o.Rank,
		Points:         o.Points,
		WeightedPoints: o.WeightedPoints,
	}
}

// FromResult builds the overall table with totals rounded to precision.
func FromResult(mode string, res scoring.Result, precision int, name NameFunc) Overall {
	if name == nil {
		name = PlainName
	}
	out := Overall{
		Mode:      mode,
		Stages:    FromStages(res.Stages),
		Standings: make([]Standing, len(res.Overall)),
	}
	for i, o := range res.Overall {
		breakdown := res.Breakdown(o.Participant.ID)
		cells := make([]Cell, len(breakdown))
		for j, b := range breakdown {
			cells[j] = FromOutcome(b)
		}
		out.Standings[i] = Standing{
			Position:      o.Position,
			ParticipantID: o.Participant.ID,
			Name:          name(o.Participant),
			Total:         scoring.Round(o.Total, precision),
			Stages:        cells,
		}
	}
	return out
}

// FromStageRows builds a stage table.
func FromStageRows(mode string, stage model.Stage, rows []scoring.StageRow, name NameFunc) StageTable {
	if name == nil {
		name = PlainName
	}
	out := StageTable{
		Mode:  mode,
		Stage: FromStage(stage),
		Rows:  make([]StageRow, len(rows)),
	}
	for i, r := range rows {
		out.Rows[i] = StageRow{
			ParticipantID: r.Participant.ID,
			Name:          name(r.Participant),
			Cell:          FromOutcome(r.Outcome),
		}
	}
	return out
}
