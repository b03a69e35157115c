package service

import (
	"github.com/okian/swatrank/internal/adapters/mq/worker"
	"github.com/okian/swatrank/internal/adapters/repository"
	"github.com/okian/swatrank/internal/domain/model"
	"github.com/okian/swatrank/internal/domain/scoring"
	"github.com/okian/swatrank/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the participant and measurement store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithCatalog sets the stage lists of every mode.
func WithCatalog(catalog model.Catalog) Option {
	return func(s *Service) {
		s.catalog = catalog
	}
}

// WithComparator sets the name ordering used on ties.
func WithComparator(c scoring.Comparator) Option {
	return func(s *Service) {
		if c != nil {
			s.engineOpts = append(s.engineOpts, scoring.WithComparator(c))
		}
	}
}

// WithPrecision sets the number of decimals totals are compared at.
func WithPrecision(decimals int) Option {
	return func(s *Service) {
		s.engineOpts = append(s.engineOpts, scoring.WithPrecision(decimals))
	}
}

// WithPublisher enables standings publishing after every write.
func WithPublisher(p worker.Publisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

// WithWorkerCount sets the number of publishing workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets how many modes may wait for publishing at once.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
