// Package batch resolves locations for a working set of lots, one record at
// a time or with a bounded pool of workers.
package batch

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sells-group/lotmap/internal/addrcache"
	"github.com/sells-group/lotmap/internal/merge"
	"github.com/sells-group/lotmap/internal/metrics"
	"github.com/sells-group/lotmap/internal/model"
	"github.com/sells-group/lotmap/internal/resolve"
)

// Resolver locates a single lot. *resolve.Resolver satisfies it.
type Resolver interface {
	Resolve(ctx context.Context, q resolve.Query) *model.ResolvedLocation
}

// Result summarizes one batch run.
type Result struct {
	Lots        []model.LotRecord
	Resolved    int
	Failed      int
	ByPrecision map[model.Precision]int
	CacheHits   int
	CacheMisses int
	Elapsed     time.Duration
}

// Driver runs a Resolver over a list of lots.
type Driver struct {
	resolver Resolver
	cache    *addrcache.Cache
	workers  int
	interval *rate.Limiter
	metrics  *metrics.Metrics
}

// Option configures a Driver.
type Option func(*Driver)

// WithWorkers sets the number of lots resolved concurrently. Values below 2
// mean sequential processing in input order.
func WithWorkers(n int) Option {
	return func(d *Driver) { d.workers = n }
}

// WithCache reports hit and miss counts from c in the Result. It should be
// the same cache the resolver's geocode strategy uses.
func WithCache(c *addrcache.Cache) Option {
	return func(d *Driver) { d.cache = c }
}

// WithRecordInterval spaces the start of consecutive lots by at least d.
func WithRecordInterval(d time.Duration) Option {
	return func(dr *Driver) {
		if d > 0 {
			dr.interval = rate.NewLimiter(rate.Every(d), 1)
		}
	}
}

// WithMetrics records per-lot outcomes in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Driver) { d.metrics = m }
}

// New creates a Driver.
func New(r Resolver, opts ...Option) *Driver {
	d := &Driver{resolver: r, workers: 1}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

type run struct {
	lots     []model.LotRecord
	resolved atomic.Int64
	failed   atomic.Int64
	started  atomic.Int64
}

// ResolveAll resolves every lot, or only the first limit lots when limit is
// positive. A lot no strategy can place stays unresolved and never aborts
// the batch. When ctx is cancelled, lots already started finish and the
// rest are left unresolved; the partial Result is returned with ctx.Err().
func (d *Driver) ResolveAll(ctx context.Context, lots []model.LotRecord, limit int) (Result, error) {
	start := time.Now()
	if limit > 0 && limit < len(lots) {
		lots = lots[:limit]
	}

	r := &run{lots: make([]model.LotRecord, len(lots))}
	copy(r.lots, lots)

	var before addrcache.Stats
	if d.cache != nil {
		before = d.cache.Stats()
	}

	zap.L().Info("batch: starting",
		zap.Int("lots", len(lots)),
		zap.Int("workers", d.workers),
	)

	var err error
	if d.workers <= 1 {
		err = d.sequential(ctx, r)
	} else {
		err = d.concurrent(ctx, r)
	}

	res := Result{
		Lots:        r.lots,
		Resolved:    int(r.resolved.Load()),
		Failed:      int(r.failed.Load()),
		ByPrecision: countPrecisions(r.lots),
		Elapsed:     time.Since(start),
	}
	if d.cache != nil {
		after := d.cache.Stats()
		res.CacheHits = int(after.Hits - before.Hits)
		res.CacheMisses = int((after.Lookups - after.Hits) - (before.Lookups - before.Hits))
	}

	fields := []zap.Field{
		zap.Int("lots", len(r.lots)),
		zap.Int("resolved", res.Resolved),
		zap.Int("failed", res.Failed),
		zap.Int("cache_hits", res.CacheHits),
		zap.Int("cache_misses", res.CacheMisses),
		zap.Duration("elapsed", res.Elapsed),
	}
	for _, p := range model.Precisions {
		fields = append(fields, zap.Int(string(p), res.ByPrecision[p]))
	}
	if err != nil {
		zap.L().Warn("batch: interrupted", append(fields, zap.Error(err))...)
		return res, err
	}
	zap.L().Info("batch: complete", fields...)
	return res, nil
}

func (d *Driver) sequential(ctx context.Context, r *run) error {
	for i := range r.lots {
		if err := d.admit(ctx); err != nil {
			return err
		}
		d.resolveOne(ctx, r, i)
	}
	return nil
}

func (d *Driver) concurrent(ctx context.Context, r *run) error {
	var g errgroup.Group
	g.SetLimit(d.workers)

	var stopErr error
	for i := range r.lots {
		if err := d.admit(ctx); err != nil {
			stopErr = err
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			d.resolveOne(ctx, r, i)
			return nil
		})
	}
	_ = g.Wait()

	if stopErr != nil {
		return stopErr
	}
	return ctx.Err()
}

// admit blocks until the next lot may start.
func (d *Driver) admit(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d.interval == nil {
		return nil
	}
	if err := d.interval.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

// resolveOne writes the outcome for lot i back into r.lots. The upstream
// calls run detached from ctx so a started lot always completes under its
// own request timeouts.
func (d *Driver) resolveOne(ctx context.Context, r *run, i int) {
	lot := r.lots[i]
	n := r.started.Add(1)

	loc := d.resolver.Resolve(context.WithoutCancel(ctx), resolve.Query{
		CadastralNumber: lot.CadastralNumber,
		Address:         lot.Address,
	})
	r.lots[i] = merge.Attach(lot, loc)

	log := zap.L().With(
		zap.Int64("i", n),
		zap.Int("n", len(r.lots)),
		zap.String("cadastral", lot.CadastralNumber),
	)
	if loc == nil {
		r.failed.Add(1)
		d.metrics.ObserveLot(metrics.ResultUnresolved)
		log.Warn("batch: lot unresolved")
		return
	}
	r.resolved.Add(1)
	d.metrics.ObserveLot(string(loc.Precision))
	log.Info("batch: lot resolved",
		zap.String("precision", string(loc.Precision)),
		zap.Float64("lat", loc.Lat),
		zap.Float64("lng", loc.Lng),
	)
}

func countPrecisions(lots []model.LotRecord) map[model.Precision]int {
	counts := make(map[model.Precision]int, len(model.Precisions))
	for _, p := range model.Precisions {
		counts[p] = 0
	}
	for _, l := range lots {
		if l.Resolved() {
			counts[l.Location.Precision]++
		}
	}
	return counts
}
