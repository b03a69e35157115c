// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/okian/swatrank/internal/adapters/mq/queue"
	"github.com/okian/swatrank/internal/adapters/mq/worker"
	"github.com/okian/swatrank/internal/adapters/repository"
	"github.com/okian/swatrank/internal/domain/model"
	"github.com/okian/swatrank/internal/domain/scoring"
	"github.com/okian/swatrank/pkg/logger"
	"github.com/okian/swatrank/pkg/metrics"
	"github.com/okian/swatrank/pkg/tracing"
)

const (
	defaultWorkerCount = 2
	defaultQueueSize   = 64
)

// Service evaluates competition standings on top of a store.
type Service struct {
	mu sync.RWMutex

	store      repository.Store
	catalog    model.Catalog
	engine     *scoring.Engine
	engineOpts []scoring.Option

	publisher   worker.Publisher
	queue       *queue.CoalescingQueue
	pool        *worker.Pool
	workerCount int
	queueSize   int

	started bool
	logger  logger.Logger
}

// New constructs a new Service. Without WithStore an in-memory store is used.
func New(opts ...Option) *Service {
	s := &Service{
		catalog:     model.Catalog{},
		workerCount: defaultWorkerCount,
		queueSize:   defaultQueueSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
	}
	s.engine = scoring.NewEngine(s.engineOpts...)
	return s
}

// Start starts the publishing pipeline when a publisher is configured.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}

	if s.publisher != nil {
		s.queue = queue.NewCoalescingQueue(queue.WithCapacity(s.queueSize))
		s.pool = worker.NewPool(s.workerCount, s.queue, s, s.publisher)
		s.pool.Start(ctx)
		// Publish current standings once so readers start from a full view.
		for _, mode := range s.catalog.Modes() {
			s.queue.Enqueue(ctx, mode)
		}
	}

	s.started = true
	s.logger.Info(ctx, "scoring service started",
		logger.Any("modes", s.catalog.Modes()),
		logger.Bool("publishing", s.publisher != nil),
		logger.Int("workers", s.workerCount),
	)
	return nil
}

// Stop shuts down the publishing pipeline and closes the store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()

	if s.pool != nil {
		if err := s.pool.Shutdown(ctx); err != nil {
			s.logger.Warn(ctx, "worker pool shutdown", logger.Error(err))
		}
		s.pool = nil
		s.queue = nil
	}
	if err := s.store.Close(); err != nil {
		s.logger.Warn(ctx, "closing store", logger.Error(err))
	}

	s.started = false
	s.logger.Info(ctx, "scoring service stopped")
}

// Modes returns the configured competition modes.
func (s *Service) Modes() []string {
	return s.catalog.Modes()
}

// Precision returns the number of decimals totals are compared and shown at.
func (s *Service) Precision() int {
	return s.engine.Precision()
}

// Stages returns the ordered stages of mode.
func (s *Service) Stages(mode string) ([]model.Stage, error) {
	stages, ok := s.catalog.Stages(mode)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMode, mode)
	}
	return stages, nil
}

// Evaluate loads a consistent snapshot of mode and runs the engine on it.
// Nothing is cached between calls.
func (s *Service) Evaluate(ctx context.Context, mode string) (_ scoring.Result, err error) {
	ctx, done := tracing.StartSpan(ctx, "service.evaluate", attribute.String("mode", mode))
	defer func() { done(err) }()

	stages, err := s.Stages(mode)
	if err != nil {
		return scoring.Result{}, err
	}
	start := time.Now()

	var (
		participants []model.Participant
		measurements []model.Measurement
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		participants, err = s.store.ListParticipants(gctx, mode)
		return err
	})
	g.Go(func() error {
		var err error
		measurements, err = s.store.ListMeasurements(gctx, mode)
		return err
	})
	if err := g.Wait(); err != nil {
		metrics.RecordErrorByComponent("service", "load_error")
		return scoring.Result{}, fmt.Errorf("loading %s snapshot: %w", mode, err)
	}

	res := s.engine.Evaluate(stages, participants, measurements)

	metrics.RecordEvaluation(mode, float64(time.Since(start).Microseconds())/1000, len(res.Participants))
	for _, ranking := range res.Rankings {
		metrics.UpdateStageRanked(mode, ranking.Stage.ID, ranking.Len())
	}
	return res, nil
}

// StageStandings returns the rows of one stage table.
func (s *Service) StageStandings(ctx context.Context, mode, stageID string) (model.Stage, []scoring.StageRow, error) {
	stage, ok := s.catalog.Stage(mode, stageID)
	if !ok {
		if _, known := s.catalog[mode]; !known {
			return model.Stage{}, nil, fmt.Errorf("%w: %s", ErrUnknownMode, mode)
		}
		return model.Stage{}, nil, fmt.Errorf("%w: %s", ErrUnknownStage, stageID)
	}
	res, err := s.Evaluate(ctx, mode)
	if err != nil {
		return model.Stage{}, nil, err
	}
	rows, _ := res.StageRows(stageID)
	return stage, rows, nil
}

// Participants lists the participants of mode.
func (s *Service) Participants(ctx context.Context, mode string) ([]model.Participant, error) {
	if _, err := s.Stages(mode); err != nil {
		return nil, err
	}
	return s.store.ListParticipants(ctx, mode)
}

// AddParticipant registers a participant in mode.
func (s *Service) AddParticipant(ctx context.Context, mode, name string) (model.Participant, error) {
	if _, err := s.Stages(mode); err != nil {
		return model.Participant{}, err
	}
	p, err := s.store.AddParticipant(ctx, mode, name)
	if err != nil {
		return model.Participant{}, err
	}
	metrics.RecordParticipantChange(mode, "create")
	s.requestPublish(ctx, mode)
	return p, nil
}

// RenameParticipant changes a participant's display name.
func (s *Service) RenameParticipant(ctx context.Context, mode, id, name string) (model.Participant, error) {
	if _, err := s.Stages(mode); err != nil {
		return model.Participant{}, err
	}
	p, err := s.store.RenameParticipant(ctx, mode, id, name)
	if err != nil {
		return model.Participant{}, err
	}
	metrics.RecordParticipantChange(mode, "rename")
	s.requestPublish(ctx, mode)
	return p, nil
}

// RemoveParticipant deletes a participant and its measurements.
func (s *Service) RemoveParticipant(ctx context.Context, mode, id string) error {
	if _, err := s.Stages(mode); err != nil {
		return err
	}
	if err := s.store.RemoveParticipant(ctx, mode, id); err != nil {
		return err
	}
	metrics.RecordParticipantChange(mode, "delete")
	s.requestPublish(ctx, mode)
	return nil
}

// Measurements lists the recorded measurements of mode.
func (s *Service) Measurements(ctx context.Context, mode string) ([]model.Measurement, error) {
	if _, err := s.Stages(mode); err != nil {
		return nil, err
	}
	return s.store.ListMeasurements(ctx, mode)
}

// SetMeasurement records or clears (nil value) a stage measurement.
func (s *Service) SetMeasurement(ctx context.Context, mode, participantID, stageID string, value *float64) error {
	if _, err := s.Stages(mode); err != nil {
		return err
	}
	if _, ok := s.catalog.Stage(mode, stageID); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownStage, stageID)
	}
	if err := s.store.SetMeasurement(ctx, mode, participantID, stageID, value); err != nil {
		return err
	}
	metrics.RecordMeasurementWritten(mode)
	s.requestPublish(ctx, mode)
	return nil
}

// ClearMeasurements removes every measurement of a participant.
func (s *Service) ClearMeasurements(ctx context.Context, mode, participantID string) error {
	if _, err := s.Stages(mode); err != nil {
		return err
	}
	if err := s.store.ClearMeasurements(ctx, mode, participantID); err != nil {
		return err
	}
	metrics.RecordMeasurementWritten(mode)
	s.requestPublish(ctx, mode)
	return nil
}

// requestPublish schedules a standings publish for mode. Writes never fail
// because the queue is full; the next write schedules again.
func (s *Service) requestPublish(ctx context.Context, mode string) {
	s.mu.RLock()
	q := s.queue
	s.mu.RUnlock()
	if q == nil {
		return
	}
	if !q.Enqueue(context.WithoutCancel(ctx), mode) {
		s.logger.Warn(ctx, "standings publish not scheduled", logger.String("mode", mode))
	}
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":     s.started,
		"modes":       s.catalog.Modes(),
		"publishing":  s.publisher != nil,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"precision":   s.engine.Precision(),
	}
	if s.queue != nil {
		stats["queueLength"] = s.queue.Len(context.Background())
	}
	return stats
}
