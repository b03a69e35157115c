package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/okian/swatrank/internal/adapters/repository"
	"github.com/okian/swatrank/internal/domain/model"
)

var errInvalidSnapshot = errors.New("invalid snapshot")

// snapshot is an offline copy of one mode's roster and results.
type snapshot struct {
	Mode         string                `yaml:"mode"`
	Participants []snapshotParticipant `yaml:"participants"`
	Results      []snapshotResult      `yaml:"results"`
}

type snapshotParticipant struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

type snapshotResult struct {
	ParticipantID string   `yaml:"participant_id"`
	StageID       string   `yaml:"stage_id"`
	Value         *float64 `yaml:"value"`
}

func decodeSnapshot(r io.Reader) (snapshot, error) {
	var s snapshot
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return snapshot{}, fmt.Errorf("%w: %v", errInvalidSnapshot, err)
	}
	for i, p := range s.Participants {
		if strings.TrimSpace(p.ID) == "" {
			return snapshot{}, fmt.Errorf("%w: participant %d has no id", errInvalidSnapshot, i+1)
		}
	}
	for i, r := range s.Results {
		if err := repository.ValidateValue(r.Value); err != nil {
			return snapshot{}, fmt.Errorf("%w: result %d: %w", errInvalidSnapshot, i+1, err)
		}
	}
	return s, nil
}

func (s snapshot) participants() []model.Participant {
	out := make([]model.Participant, len(s.Participants))
	for i, p := range s.Participants {
		out[i] = model.Participant{ID: p.ID, Name: strings.Join(strings.Fields(p.Name), " ")}
	}
	return out
}

func (s snapshot) measurements() []model.Measurement {
	out := make([]model.Measurement, len(s.Results))
	for i, r := range s.Results {
		out[i] = model.Measurement{ParticipantID: r.ParticipantID, StageID: r.StageID, Value: r.Value}
	}
	return out
}
