package main

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lotmap/internal/addrcache"
	"github.com/sells-group/lotmap/internal/batch"
	"github.com/sells-group/lotmap/internal/ingest"
	"github.com/sells-group/lotmap/internal/merge"
	"github.com/sells-group/lotmap/internal/metrics"
	"github.com/sells-group/lotmap/internal/resilience"
	"github.com/sells-group/lotmap/internal/resolve"
	"github.com/sells-group/lotmap/internal/store"
	"github.com/sells-group/lotmap/pkg/geocode"
	"github.com/sells-group/lotmap/pkg/pkk"
)

// pipelineEnv holds the clients, cache, and driver needed by the resolve and
// serve commands.
type pipelineEnv struct {
	Store    store.Store // nil when no sink is configured
	Cache    *addrcache.Cache
	Metrics  *metrics.Metrics
	Registry *prometheus.Registry
	Resolver *resolve.Resolver
	Driver   *batch.Driver
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initPipeline validates config for mode and wires the resolver chain.
// withStore opens and migrates the configured sink. Callers should defer
// env.Close().
func initPipeline(ctx context.Context, mode string, withStore bool) (*pipelineEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(reg)
	if err != nil {
		return nil, eris.Wrap(err, "init metrics")
	}

	breakerCfg := resilience.FromBreakerConfig(cfg.Breaker.FailureThreshold, cfg.Breaker.ResetTimeoutSecs)

	registry := pkk.NewClient(
		pkk.WithBaseURL(cfg.PKK.BaseURL),
		pkk.WithUserAgent(cfg.PKK.UserAgent),
		pkk.WithTimeout(time.Duration(cfg.PKK.TimeoutSecs)*time.Second),
		pkk.WithRateLimit(cfg.PKK.RateLimit),
		pkk.WithRetry(resilience.FromAttempts(cfg.PKK.MaxAttempts)),
		pkk.WithBreaker(resilience.NewBreaker("pkk", breakerCfg)),
		pkk.WithInsecureTLS(cfg.PKK.InsecureTLS),
	)

	geoOpts := []geocode.Option{
		geocode.WithBaseURL(cfg.Geocoder.BaseURL),
		geocode.WithUserAgent(cfg.Geocoder.UserAgent),
		geocode.WithCountryCodes(cfg.Geocoder.CountryCodes),
		geocode.WithTimeout(time.Duration(cfg.Geocoder.TimeoutSecs) * time.Second),
		geocode.WithRateLimit(cfg.Geocoder.RateLimit),
		geocode.WithRetry(resilience.FromAttempts(cfg.Geocoder.MaxAttempts)),
		geocode.WithBreaker(resilience.NewBreaker("geocode", breakerCfg)),
	}
	if cfg.Geocoder.Email != "" {
		geoOpts = append(geoOpts, geocode.WithEmail(cfg.Geocoder.Email))
	}
	geocoder := geocode.NewClient(geoOpts...)

	regions, err := resolve.DefaultRegions()
	if err != nil {
		return nil, eris.Wrap(err, "load regions")
	}

	cache := addrcache.New(time.Duration(cfg.Cache.TTLSecs) * time.Second)
	resolver := resolve.New(m,
		resolve.NewRegistryStrategy(registry),
		resolve.NewGeocodeStrategy(geocoder, cache, m),
		resolve.NewSyntheticStrategy(regions),
	)
	driver := batch.New(resolver,
		batch.WithWorkers(cfg.Batch.Workers),
		batch.WithCache(cache),
		batch.WithRecordInterval(cfg.Batch.RecordInterval()),
		batch.WithMetrics(m),
	)

	env := &pipelineEnv{
		Cache:    cache,
		Metrics:  m,
		Registry: reg,
		Resolver: resolver,
		Driver:   driver,
	}

	if withStore {
		st, err := initStore(ctx)
		if err != nil {
			return nil, err
		}
		env.Store = st
	}

	zap.L().Debug("pipeline initialized",
		zap.Strings("strategies", resolver.Strategies()),
		zap.Int("workers", cfg.Batch.Workers),
		zap.Bool("store", env.Store != nil),
	)
	return env, nil
}

// initStore opens and migrates the configured run sink.
func initStore(ctx context.Context) (store.Store, error) {
	if cfg.Store.Driver == "" {
		return nil, eris.New("store.driver is not configured")
	}
	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DSN(), &store.PoolConfig{MaxConns: cfg.Store.MaxConns})
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// ingestOptions maps config onto ingest options. The header row is found by
// the characteristics column unless configured explicitly.
func ingestOptions() ingest.Options {
	return ingest.Options{
		SheetIndex: cfg.Ingest.SheetIndex,
		SheetName:  cfg.Ingest.SheetName,
		HeaderRow:  cfg.Ingest.HeaderRow,
		HeaderHint: merge.ColumnCharacteristics,
	}
}
