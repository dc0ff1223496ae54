// Package resolve turns a cadastral number and address into a map location by
// trying strategies in decreasing order of confidence.
package resolve

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/lotmap/internal/metrics"
	"github.com/sells-group/lotmap/internal/model"
)

// Query is the input to one resolution.
type Query struct {
	CadastralNumber string
	Address         string
}

// Strategy is one way of locating a lot. A nil location with a nil error
// means the strategy had no answer; an error means it failed. Both send the
// resolver on to the next strategy.
type Strategy interface {
	Name() string
	Resolve(ctx context.Context, q Query) (*model.ResolvedLocation, error)
}

// Resolver runs strategies in order and returns the first location found.
type Resolver struct {
	strategies []Strategy
	metrics    *metrics.Metrics
}

// New creates a Resolver over strategies, highest confidence first. m may be nil.
func New(m *metrics.Metrics, strategies ...Strategy) *Resolver {
	return &Resolver{strategies: strategies, metrics: m}
}

// Strategies returns the strategy names in the order they are tried.
func (r *Resolver) Strategies() []string {
	names := make([]string, len(r.strategies))
	for i, s := range r.strategies {
		names[i] = s.Name()
	}
	return names
}

// Resolve returns the first location any strategy produces, or nil when all
// of them come up empty. Strategy failures are logged, never returned.
func (r *Resolver) Resolve(ctx context.Context, q Query) *model.ResolvedLocation {
	for _, s := range r.strategies {
		start := time.Now()
		loc, err := s.Resolve(ctx, q)
		elapsed := time.Since(start)

		switch {
		case err != nil:
			r.metrics.ObserveStrategy(s.Name(), metrics.OutcomeError, elapsed)
			zap.L().Debug("resolve: strategy failed",
				zap.String("strategy", s.Name()),
				zap.String("cadastral", q.CadastralNumber),
				zap.Error(err),
			)
		case loc == nil:
			r.metrics.ObserveStrategy(s.Name(), metrics.OutcomeMiss, elapsed)
		default:
			r.metrics.ObserveStrategy(s.Name(), metrics.OutcomeHit, elapsed)
			return loc
		}
	}
	return nil
}
