package repository

import (
	"context"
	"sync"
	"time"

	"github.com/okian/swatrank/internal/domain/model"
	"github.com/okian/swatrank/pkg/metrics"
)

const memoryStoreName = "memory"

type cell struct {
	participantID string
	stageID       string
}

// roster holds one mode's state. Participants keep insertion order.
type roster struct {
	order   []string
	byID    map[string]model.Participant
	results map[cell]float64
}

func newRoster() *roster {
	return &roster{
		byID:    make(map[string]model.Participant),
		results: make(map[cell]float64),
	}
}

// MemoryStore is an in-memory Store. Reads return copies.
type MemoryStore struct {
	mu     sync.RWMutex
	modes  map[string]*roster
	closed bool

	now   func() time.Time
	newID func() string
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		modes: make(map[string]*roster),
		now:   time.Now,
		newID: defaultID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func observe(op string, start time.Time) {
	metrics.RecordRepositoryLatency(memoryStoreName, op, float64(time.Since(start).Microseconds())/1000)
}

// mode returns the roster for mode, creating it on write paths. Callers hold mu.
func (s *MemoryStore) mode(mode string, create bool) *roster {
	r, ok := s.modes[mode]
	if !ok && create {
		r = newRoster()
		s.modes[mode] = r
	}
	return r
}

// ListParticipants implements Store.ListParticipants.
func (s *MemoryStore) ListParticipants(ctx context.Context, mode string) ([]model.Participant, error) {
	defer observe("list_participants", time.Now())
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	r := s.mode(mode, false)
	if r == nil {
		return []model.Participant{}, nil
	}
	out := make([]model.Participant, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out, nil
}

// AddParticipant implements Store.AddParticipant.
func (s *MemoryStore) AddParticipant(ctx context.Context, mode, name string) (model.Participant, error) {
	defer observe("add_participant", time.Now())
	if err := ctx.Err(); err != nil {
		return model.Participant{}, err
	}
	name, err := NormalizeName(name)
	if err != nil {
		return model.Participant{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return model.Participant{}, ErrClosed
	}
	r := s.mode(mode, true)
	p := model.Participant{ID: s.newID(), Name: name, CreatedAt: s.now().UTC()}
	r.byID[p.ID] = p
	r.order = append(r.order, p.ID)
	return p, nil
}

// RenameParticipant implements Store.RenameParticipant.
func (s *MemoryStore) RenameParticipant(ctx context.Context, mode, id, name string) (model.Participant, error) {
	defer observe("rename_participant", time.Now())
	if err := ctx.Err(); err != nil {
		return model.Participant{}, err
	}
	name, err := NormalizeName(name)
	if err != nil {
		return model.Participant{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return model.Participant{}, ErrClosed
	}
	r := s.mode(mode, false)
	if r == nil {
		return model.Participant{}, ErrNotFound
	}
	p, ok := r.byID[id]
	if !ok {
		return model.Participant{}, ErrNotFound
	}
	p.Name = name
	r.byID[id] = p
	return p, nil
}

// RemoveParticipant implements Store.RemoveParticipant.
func (s *MemoryStore) RemoveParticipant(ctx context.Context, mode, id string) error {
	defer observe("remove_participant", time.Now())
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	r := s.mode(mode, false)
	if r == nil {
		return ErrNotFound
	}
	if _, ok := r.byID[id]; !ok {
		return ErrNotFound
	}
	delete(r.byID, id)
	for i, pid := range r.order {
		if pid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.clear(id)
	return nil
}

func (r *roster) clear(participantID string) {
	for c := range r.results {
		if c.participantID == participantID {
			delete(r.results, c)
		}
	}
}

// ListMeasurements implements Store.ListMeasurements. Measurements are
// grouped by participant in roster order.
func (s *MemoryStore) ListMeasurements(ctx context.Context, mode string) ([]model.Measurement, error) {
	defer observe("list_measurements", time.Now())
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	r := s.mode(mode, false)
	if r == nil {
		return []model.Measurement{}, nil
	}

	byParticipant := make(map[string][]model.Measurement, len(r.order))
	for c, v := range r.results {
		value := v
		byParticipant[c.participantID] = append(byParticipant[c.participantID], model.Measurement{
			ParticipantID: c.participantID,
			StageID:       c.stageID,
			Value:         &value,
		})
	}
	out := make([]model.Measurement, 0, len(r.results))
	for _, id := range r.order {
		ms := byParticipant[id]
		sortByStage(ms)
		out = append(out, ms...)
	}
	return out, nil
}

// SetMeasurement implements Store.SetMeasurement.
func (s *MemoryStore) SetMeasurement(ctx context.Context, mode, participantID, stageID string, value *float64) error {
	defer observe("set_measurement", time.Now())
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ValidateValue(value); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	r := s.mode(mode, false)
	if r == nil {
		return ErrNotFound
	}
	if _, ok := r.byID[participantID]; !ok {
		return ErrNotFound
	}
	key := cell{participantID: participantID, stageID: stageID}
	if value == nil {
		delete(r.results, key)
		return nil
	}
	r.results[key] = *value
	return nil
}

// ClearMeasurements implements Store.ClearMeasurements.
func (s *MemoryStore) ClearMeasurements(ctx context.Context, mode, participantID string) error {
	defer observe("clear_measurements", time.Now())
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	r := s.mode(mode, false)
	if r == nil {
		return ErrNotFound
	}
	if _, ok := r.byID[participantID]; !ok {
		return ErrNotFound
	}
	r.clear(participantID)
	return nil
}

// Close marks the store closed. Further calls fail with ErrClosed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

var _ Store = (*MemoryStore)(nil)
