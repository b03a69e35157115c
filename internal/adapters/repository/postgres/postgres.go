// Package postgres implements repository.Store on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/okian/swatrank/internal/adapters/repository"
	"github.com/okian/swatrank/internal/domain/model"
	"github.com/okian/swatrank/pkg/metrics"
	"github.com/okian/swatrank/pkg/tracing"
)

const storeName = "postgres"

// Store is a pgx-backed repository.Store.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to PostgreSQL and returns a Store.
func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return &Store{pool: pool}, nil
}

// NewWithPool wraps an existing pool.
func NewWithPool(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close closes the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// instrument times op and traces it as a statement on table. The returned
// function must be deferred with the method's error result.
func instrument(ctx context.Context, table, op string) (context.Context, func(*error)) {
	start := time.Now()
	ctx, done := tracing.StartDBSpan(ctx, table, op)
	return ctx, func(errp *error) {
		metrics.RecordRepositoryLatency(storeName, op, float64(time.Since(start).Microseconds())/1000)
		done(*errp)
	}
}

// ListParticipants implements repository.Store.
func (s *Store) ListParticipants(ctx context.Context, mode string) (_ []model.Participant, err error) {
	ctx, finish := instrument(ctx, "participants", "list_participants")
	defer finish(&err)

	rows, err := s.pool.Query(ctx,
		`SELECT id, name, created_at FROM participants WHERE mode = $1 ORDER BY seq`, mode)
	if err != nil {
		return nil, fmt.Errorf("querying participants of %q: %w", mode, err)
	}
	defer rows.Close()

	out := make([]model.Participant, 0, 32)
	for rows.Next() {
		var p model.Participant
		if err := rows.Scan(&p.ID, &p.Name, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning participant row: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating participant rows: %w", err)
	}
	return out, nil
}

// AddParticipant implements repository.Store.
func (s *Store) AddParticipant(ctx context.Context, mode, name string) (_ model.Participant, err error) {
	ctx, finish := instrument(ctx, "participants", "add_participant")
	defer finish(&err)

	name, err = repository.NormalizeName(name)
	if err != nil {
		return model.Participant{}, err
	}
	p := model.Participant{ID: uuid.NewString(), Name: name}
	err = s.pool.QueryRow(ctx,
		`INSERT INTO participants (id, mode, name) VALUES ($1, $2, $3) RETURNING created_at`,
		p.ID, mode, p.Name,
	).Scan(&p.CreatedAt)
	if err != nil {
		return model.Participant{}, fmt.Errorf("inserting participant %q: %w", name, err)
	}
	return p, nil
}

// RenameParticipant implements repository.Store.
func (s *Store) RenameParticipant(ctx context.Context, mode, id, name string) (_ model.Participant, err error) {
	ctx, finish := instrument(ctx, "participants", "rename_participant")
	defer finish(&err)

	name, err = repository.NormalizeName(name)
	if err != nil {
		return model.Participant{}, err
	}
	p := model.Participant{ID: id}
	err = s.pool.QueryRow(ctx,
		`UPDATE participants SET name = $1 WHERE mode = $2 AND id = $3 RETURNING name, created_at`,
		name, mode, id,
	).Scan(&p.Name, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Participant{}, repository.ErrNotFound
	}
	if err != nil {
		return model.Participant{}, fmt.Errorf("renaming participant %s: %w", id, err)
	}
	return p, nil
}

// RemoveParticipant implements repository.Store. Measurements go with the
// participant through the foreign key cascade.
func (s *Store) RemoveParticipant(ctx context.Context, mode, id string) (err error) {
	ctx, finish := instrument(ctx, "participants", "remove_participant")
	defer finish(&err)

	tag, err := s.pool.Exec(ctx, `DELETE FROM participants WHERE mode = $1 AND id = $2`, mode, id)
	if err != nil {
		return fmt.Errorf("deleting participant %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ListMeasurements implements repository.Store.
func (s *Store) ListMeasurements(ctx context.Context, mode string) (_ []model.Measurement, err error) {
	ctx, finish := instrument(ctx, "stage_results", "list_measurements")
	defer finish(&err)

	rows, err := s.pool.Query(ctx, `
		SELECT r.participant_id, r.stage_id, r.value
		FROM stage_results r
		JOIN participants p ON p.id = r.participant_id
		WHERE r.mode = $1
		ORDER BY p.seq, r.stage_id
	`, mode)
	if err != nil {
		return nil, fmt.Errorf("querying measurements of %q: %w", mode, err)
	}
	defer rows.Close()

	out := make([]model.Measurement, 0, 64)
	for rows.Next() {
		var (
			m     model.Measurement
			value float64
		)
		if err := rows.Scan(&m.ParticipantID, &m.StageID, &value); err != nil {
			return nil, fmt.Errorf("scanning measurement row: %w", err)
		}
		m.Value = &value
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating measurement rows: %w", err)
	}
	return out, nil
}

// SetMeasurement implements repository.Store.
func (s *Store) SetMeasurement(ctx context.Context, mode, participantID, stageID string, value *float64) (err error) {
	ctx, finish := instrument(ctx, "stage_results", "set_measurement")
	defer finish(&err)

	if err := repository.ValidateValue(value); err != nil {
		return err
	}

	if value == nil {
		return s.clear(ctx, mode, participantID, &stageID)
	}

	tag, err := s.pool.Exec(ctx, `
		INSERT INTO stage_results (mode, participant_id, stage_id, value)
		SELECT $1, $2, $3, $4
		WHERE EXISTS (SELECT 1 FROM participants WHERE mode = $1 AND id = $2)
		ON CONFLICT (mode, participant_id, stage_id)
		DO UPDATE SET value = EXCLUDED.value, updated_at = now()
	`, mode, participantID, stageID, *value)
	if err != nil {
		return fmt.Errorf("upserting %s/%s: %w", participantID, stageID, err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ClearMeasurements implements repository.Store.
func (s *Store) ClearMeasurements(ctx context.Context, mode, participantID string) (err error) {
	ctx, finish := instrument(ctx, "stage_results", "clear_measurements")
	defer finish(&err)
	return s.clear(ctx, mode, participantID, nil)
}

// clear removes one stage value, or all of them when stageID is nil, in a
// transaction that first checks the participant exists.
func (s *Store) clear(ctx context.Context, mode, participantID string, stageID *string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var exists bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM participants WHERE mode = $1 AND id = $2)`,
		mode, participantID,
	).Scan(&exists); err != nil {
		return fmt.Errorf("checking participant %s: %w", participantID, err)
	}
	if !exists {
		return repository.ErrNotFound
	}

	if stageID == nil {
		_, err = tx.Exec(ctx,
			`DELETE FROM stage_results WHERE mode = $1 AND participant_id = $2`,
			mode, participantID)
	} else {
		_, err = tx.Exec(ctx,
			`DELETE FROM stage_results WHERE mode = $1 AND participant_id = $2 AND stage_id = $3`,
			mode, participantID, *stageID)
	}
	if err != nil {
		return fmt.Errorf("deleting measurements of %s: %w", participantID, err)
	}
	return tx.Commit(ctx)
}

var _ repository.Store = (*Store)(nil)
