package resolve

import (
	"context"
	_ "embed"
	"fmt"
	"hash/fnv"
	"strconv"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/lotmap/internal/model"
)

// StrategySynthetic is the name of the regional centroid fallback.
const StrategySynthetic = "synthetic"

//go:embed regions.yaml
var regionsYAML []byte

// Region is a cadastral region with a representative point.
type Region struct {
	Code string  `yaml:"code"`
	Name string  `yaml:"name"`
	Lat  float64 `yaml:"lat"`
	Lng  float64 `yaml:"lng"`
}

// Regions indexes regions by normalized code.
type Regions map[string]Region

// Lookup returns the region for a cadastral region code such as "16" or "2".
func (r Regions) Lookup(code string) (Region, bool) {
	reg, ok := r[normalizeRegionCode(code)]
	return reg, ok
}

// DefaultRegions returns the built-in centroid table.
func DefaultRegions() (Regions, error) {
	return LoadRegions(regionsYAML)
}

// LoadRegions parses a YAML list of regions.
func LoadRegions(data []byte) (Regions, error) {
	var list []Region
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, eris.Wrap(err, "resolve: parse regions")
	}
	out := make(Regions, len(list))
	for _, r := range list {
		if r.Code == "" {
			return nil, eris.Errorf("resolve: region %q has no code", r.Name)
		}
		out[normalizeRegionCode(r.Code)] = r
	}
	return out, nil
}

func normalizeRegionCode(code string) string {
	n, err := strconv.Atoi(code)
	if err != nil || n < 0 {
		return code
	}
	return fmt.Sprintf("%02d", n)
}

// SyntheticStrategy places a lot near the centroid of its cadastral region.
// The point is a stand-in so the lot shows on a map; it is never real data.
type SyntheticStrategy struct {
	regions Regions
}

// NewSyntheticStrategy creates the fallback over a centroid table.
func NewSyntheticStrategy(regions Regions) *SyntheticStrategy {
	return &SyntheticStrategy{regions: regions}
}

// Name implements Strategy.
func (s *SyntheticStrategy) Name() string { return StrategySynthetic }

// Resolve implements Strategy. Unknown regions yield no location.
func (s *SyntheticStrategy) Resolve(_ context.Context, q Query) (*model.ResolvedLocation, error) {
	code := model.RegionCode(q.CadastralNumber)
	if code == "" {
		return nil, nil
	}
	region, ok := s.regions.Lookup(code)
	if !ok {
		return nil, nil
	}
	lat, lng := SyntheticPoint(region, q.CadastralNumber)
	return model.NewSynthetic(lat, lng, model.SourceMeta{
		Service:     StrategySynthetic,
		DisplayName: region.Name,
	}), nil
}

// SyntheticPoint offsets the region centroid by up to ±0.05° on each axis.
// The offset comes from the 64-bit FNV-1a hash of the cadastral number, so a
// number always maps to the same point.
func SyntheticPoint(region Region, cadastral string) (lat, lng float64) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(cadastral))
	sum := h.Sum64()

	latOff := float64(int64(sum%100)-50) / 1000
	lngOff := float64(int64((sum>>8)%100)-50) / 1000
	return region.Lat + latOff, region.Lng + lngOff
}
