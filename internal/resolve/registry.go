package resolve

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lotmap/internal/model"
	"github.com/sells-group/lotmap/pkg/pkk"
)

// StrategyRegistry is the name of the authoritative registry strategy.
const StrategyRegistry = "registry"

// RegistryStrategy locates a parcel through the PKK cadastral registry.
type RegistryStrategy struct {
	client pkk.Client
}

// NewRegistryStrategy wraps a PKK client.
func NewRegistryStrategy(client pkk.Client) *RegistryStrategy {
	return &RegistryStrategy{client: client}
}

// Name implements Strategy.
func (s *RegistryStrategy) Name() string { return StrategyRegistry }

// Resolve implements Strategy.
func (s *RegistryStrategy) Resolve(ctx context.Context, q Query) (*model.ResolvedLocation, error) {
	if q.CadastralNumber == "" {
		return nil, nil
	}

	p, err := s.client.Lookup(ctx, q.CadastralNumber)
	if errors.Is(err, pkk.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "resolve: registry lookup %s", q.CadastralNumber)
	}

	var bounds *model.Bounds
	if e := p.Extent; e != nil {
		bounds = &model.Bounds{MinLat: e.MinLat, MinLng: e.MinLng, MaxLat: e.MaxLat, MaxLng: e.MaxLng}
	}
	return model.NewExact(p.Lat, p.Lng, bounds, model.SourceMeta{
		Service:      "pkk",
		OfficialArea: p.Area,
		Category:     p.Category,
		DisplayName:  p.Address,
	}), nil
}
