// Package repository defines the competition store interface, input
// validation and the in-memory implementation.
package repository

import (
	"context"

	"github.com/okian/swatrank/internal/domain/model"
)

// Store provides read/write access to participants and their stage
// measurements. Every call is scoped to one competition mode.
type Store interface {
	// ListParticipants returns the participants of mode in creation order.
	ListParticipants(ctx context.Context, mode string) ([]model.Participant, error)

	// AddParticipant registers a participant and assigns its id.
	// Returns ErrInvalidName for blank names.
	AddParticipant(ctx context.Context, mode, name string) (model.Participant, error)

	// RenameParticipant changes a participant's display name.
	// Returns ErrNotFound if the participant is unknown.
	RenameParticipant(ctx context.Context, mode, id, name string) (model.Participant, error)

	// RemoveParticipant deletes a participant together with its measurements.
	// Returns ErrNotFound if the participant is unknown.
	RemoveParticipant(ctx context.Context, mode, id string) error

	// ListMeasurements returns every recorded measurement of mode.
	ListMeasurements(ctx context.Context, mode string) ([]model.Measurement, error)

	// SetMeasurement records a value, or clears it when value is nil.
	// Returns ErrNotFound if the participant is unknown and ErrInvalidValue
	// for values that cannot be ranked.
	SetMeasurement(ctx context.Context, mode, participantID, stageID string, value *float64) error

	// ClearMeasurements removes every measurement of a participant.
	ClearMeasurements(ctx context.Context, mode, participantID string) error

	// Close releases resources held by the store.
	Close() error
}
