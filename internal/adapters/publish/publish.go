// Package publish pushes overall standings to external readers.
package publish

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/okian/swatrank/internal/domain/model"
	"github.com/okian/swatrank/internal/domain/scoring"
)

const defaultPrecision = 2

// RedisPublisher mirrors standings into redis. Each publish replaces the
// mode's keys atomically:
//
//	<prefix>:<mode>:overall    sorted set, member participant id, score rounded total
//	<prefix>:<mode>:positions  hash, participant id -> position
//	<prefix>:<mode>:names      hash, participant id -> display name
type RedisPublisher struct {
	client    *redis.Client
	prefix    string
	precision int
}

// Option configures a RedisPublisher.
type Option func(*RedisPublisher)

// WithPrecision sets the number of decimals scores are rounded to. It should
// match the precision totals are compared at.
func WithPrecision(decimals int) Option {
	return func(p *RedisPublisher) {
		if decimals >= 0 {
			p.precision = decimals
		}
	}
}

// NewRedisPublisher wraps a redis client.
func NewRedisPublisher(client *redis.Client, prefix string, opts ...Option) *RedisPublisher {
	if prefix == "" {
		prefix = "swatrank"
	}
	p := &RedisPublisher{client: client, prefix: prefix, precision: defaultPrecision}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// OverallKey returns the sorted set key of mode.
func (p *RedisPublisher) OverallKey(mode string) string {
	return p.prefix + ":" + mode + ":overall"
}

// PositionsKey returns the positions hash key of mode.
func (p *RedisPublisher) PositionsKey(mode string) string {
	return p.prefix + ":" + mode + ":positions"
}

// NamesKey returns the names hash key of mode.
func (p *RedisPublisher) NamesKey(mode string) string {
	return p.prefix + ":" + mode + ":names"
}

// Publish implements worker.Publisher.
func (p *RedisPublisher) Publish(ctx context.Context, mode string, overall []model.OverallOutcome) error {
	members, positions, names := encode(overall, p.precision)

	pipe := p.client.TxPipeline()
	pipe.Del(ctx, p.OverallKey(mode), p.PositionsKey(mode), p.NamesKey(mode))
	if len(members) > 0 {
		pipe.ZAdd(ctx, p.OverallKey(mode), members...)
		pipe.HSet(ctx, p.PositionsKey(mode), positions)
		pipe.HSet(ctx, p.NamesKey(mode), names)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("update redis standings of %s failed: %w", mode, err)
	}
	return nil
}

// HealthCheck pings redis.
func (p *RedisPublisher) HealthCheck(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// Close closes the client.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

func encode(overall []model.OverallOutcome, precision int) ([]redis.Z, map[string]any, map[string]any) {
	members := make([]redis.Z, 0, len(overall))
	positions := make(map[string]any, len(overall))
	names := make(map[string]any, len(overall))
	for _, o := range overall {
		members = append(members, redis.Z{Score: scoring.Round(o.Total, precision), Member: o.Participant.ID})
		positions[o.Participant.ID] = strconv.Itoa(o.Position)
		names[o.Participant.ID] = o.Participant.Name
	}
	return members, positions, names
}
