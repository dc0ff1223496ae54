package resolve

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lotmap/internal/addrcache"
	"github.com/sells-group/lotmap/internal/metrics"
	"github.com/sells-group/lotmap/internal/model"
	"github.com/sells-group/lotmap/pkg/geocode"
)

// StrategyGeocode is the name of the address geocoding strategy.
const StrategyGeocode = "geocode"

// GeocodeStrategy locates a lot by its address text. Answers are settlement
// level at best.
type GeocodeStrategy struct {
	client  geocode.Client
	cache   *addrcache.Cache
	metrics *metrics.Metrics
}

// NewGeocodeStrategy wraps a geocoder. cache and m may be nil.
func NewGeocodeStrategy(client geocode.Client, cache *addrcache.Cache, m *metrics.Metrics) *GeocodeStrategy {
	return &GeocodeStrategy{client: client, cache: cache, metrics: m}
}

// Name implements Strategy.
func (s *GeocodeStrategy) Name() string { return StrategyGeocode }

// Resolve implements Strategy.
func (s *GeocodeStrategy) Resolve(ctx context.Context, q Query) (*model.ResolvedLocation, error) {
	key := geocode.NormalizeAddress(q.Address)
	if key == "" {
		return nil, nil
	}

	fetch := func(ctx context.Context) (*geocode.Result, error) {
		return s.client.Geocode(ctx, key)
	}

	var entry addrcache.Entry
	if s.cache != nil {
		e, hit, err := s.cache.Lookup(ctx, key, fetch)
		s.metrics.ObserveCache(hit)
		if err != nil {
			return nil, eris.Wrapf(err, "resolve: geocode %q", key)
		}
		entry = e
	} else {
		res, err := fetch(ctx)
		if err != nil {
			return nil, eris.Wrapf(err, "resolve: geocode %q", key)
		}
		if res != nil && res.Matched {
			entry = addrcache.Entry{Found: true, Result: *res}
		}
	}

	if !entry.Found {
		return nil, nil
	}
	return model.NewGeocoded(entry.Result.Latitude, entry.Result.Longitude, model.SourceMeta{
		Service:     "nominatim",
		DisplayName: entry.Result.DisplayName,
	}), nil
}
