package scoring

import "github.com/okian/swatrank/internal/domain/model"

type cellKey struct {
	participantID string
	stageID       string
}

// Result is a complete evaluation of one competition snapshot.
type Result struct {
	Stages       []model.Stage
	Participants []model.Participant
	Rankings     []StageRanking // aligned with Stages
	Overall      []model.OverallOutcome

	breakdown map[string][]model.StageOutcome
}

// StageRow is one line of a stage table.
type StageRow struct {
	Participant model.Participant
	Outcome     model.StageOutcome
}

// Evaluate ranks every stage, aggregates totals and orders the overall
// standings. Measurements that reference unknown stages or participants are
// ignored; when a pair is measured twice the later measurement wins.
func (e *Engine) Evaluate(stages []model.Stage, participants []model.Participant, measurements []model.Measurement) Result {
	known := make(map[string]struct{}, len(participants))
	roster := make([]model.Participant, 0, len(participants))
	for _, p := range participants {
		if _, dup := known[p.ID]; dup {
			continue
		}
		known[p.ID] = struct{}{}
		roster = append(roster, p)
	}

	configured := make(map[string]struct{}, len(stages))
	for _, s := range stages {
		configured[s.ID] = struct{}{}
	}

	values := make(map[cellKey]*float64, len(measurements))
	for _, m := range measurements {
		if _, ok := configured[m.StageID]; !ok {
			continue
		}
		if _, ok := known[m.ParticipantID]; !ok {
			continue
		}
		values[cellKey{m.ParticipantID, m.StageID}] = m.Value
	}

	res := Result{
		Stages:       append([]model.Stage(nil), stages...),
		Participants: roster,
		Rankings:     make([]StageRanking, len(stages)),
		breakdown:    make(map[string][]model.StageOutcome, len(roster)),
	}

	for i, stage := range stages {
		entries := make([]Entry, len(roster))
		for j, p := range roster {
			entries[j] = Entry{Participant: p, Value: values[cellKey{p.ID, stage.ID}]}
		}
		res.Rankings[i] = e.RankStage(stage, entries)
	}

	totals := make([]Total, len(roster))
	for j, p := range roster {
		outcomes := make([]model.StageOutcome, len(stages))
		for i, stage := range stages {
			outcomes[i] = outcomeFor(p.ID, stage.ID, values[cellKey{p.ID, stage.ID}], res.Rankings[i])
		}
		res.breakdown[p.ID] = outcomes
		totals[j] = Total{Participant: p, Total: Aggregate(outcomes)}
	}

	res.Overall = e.OrderOverall(totals)
	return res
}

func outcomeFor(participantID, stageID string, value *float64, ranking StageRanking) model.StageOutcome {
	o := model.StageOutcome{ParticipantID: participantID, StageID: stageID}
	if value != nil {
		v := *value
		o.Value = &v
	}
	entry, ok := ranking.Lookup(participantID)
	if !ok {
		return o
	}
	rank, points, weighted := entry.Rank, entry.Points, entry.WeightedPoints
	o.Rank = &rank
	o.Points = &points
	o.WeightedPoints = &weighted
	return o
}

// Ranking returns the ranking of a stage.
func (r Result) Ranking(stageID string) (StageRanking, bool) {
	for i, s := range r.Stages {
		if s.ID == stageID {
			return r.Rankings[i], true
		}
	}
	return StageRanking{}, false
}

// Breakdown returns a participant's outcomes in stage order.
func (r Result) Breakdown(participantID string) []model.StageOutcome {
	return r.breakdown[participantID]
}

// Outcome returns a participant's outcome in one stage. Unknown pairs yield
// an unranked outcome.
func (r Result) Outcome(participantID, stageID string) model.StageOutcome {
	for i, s := range r.Stages {
		if s.ID != stageID {
			continue
		}
		if outcomes, ok := r.breakdown[participantID]; ok {
			return outcomes[i]
		}
	}
	return model.StageOutcome{ParticipantID: participantID, StageID: stageID}
}

// StageRows lists the stage table: ranked participants best first, then
// unranked participants in roster order.
func (r Result) StageRows(stageID string) ([]StageRow, bool) {
	ranking, ok := r.Ranking(stageID)
	if !ok {
		return nil, false
	}
	rows := make([]StageRow, 0, len(r.Participants))
	for _, entry := range ranking.Entries {
		rows = append(rows, StageRow{
			Participant: entry.Participant,
			Outcome:     r.Outcome(entry.Participant.ID, stageID),
		})
	}
	for _, p := range r.Participants {
		if _, ranked := ranking.Lookup(p.ID); ranked {
			continue
		}
		rows = append(rows, StageRow{Participant: p, Outcome: r.Outcome(p.ID, stageID)})
	}
	return rows, true
}
