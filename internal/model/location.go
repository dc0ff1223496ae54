package model

// Precision tells how a location was obtained.
type Precision string

const (
	PrecisionExact     Precision = "EXACT"                 // Authoritative parcel registry
	PrecisionGeocoded  Precision = "APPROXIMATE_GEOCODED"  // Geocoder match, settlement level
	PrecisionSynthetic Precision = "APPROXIMATE_SYNTHETIC" // Regional centroid plus deterministic offset
)

// Precisions lists every precision in decreasing confidence order.
var Precisions = []Precision{PrecisionExact, PrecisionGeocoded, PrecisionSynthetic}

// Valid reports whether p is a known precision.
func (p Precision) Valid() bool {
	switch p {
	case PrecisionExact, PrecisionGeocoded, PrecisionSynthetic:
		return true
	default:
		return false
	}
}

// Approximate reports whether p marks anything weaker than parcel-level data.
func (p Precision) Approximate() bool {
	return p != PrecisionExact
}

// Bounds is a lat/lng bounding box.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLng float64 `json:"min_lng"`
	MaxLat float64 `json:"max_lat"`
	MaxLng float64 `json:"max_lng"`
}

// SourceMeta carries optional attributes returned by the resolving service.
type SourceMeta struct {
	Service      string   `json:"service,omitempty"`
	OfficialArea *float64 `json:"official_area,omitempty"`
	Category     string   `json:"category,omitempty"`
	DisplayName  string   `json:"display_name,omitempty"`
}

// ResolvedLocation is a point on the map with the precision it was resolved at.
// Build it with NewExact, NewGeocoded or NewSynthetic and treat it as read-only.
type ResolvedLocation struct {
	Lat       float64    `json:"lat"`
	Lng       float64    `json:"lng"`
	Precision Precision  `json:"precision"`
	Bounds    *Bounds    `json:"bounds,omitempty"`
	Meta      SourceMeta `json:"meta"`
}

// NewExact builds a registry-backed location. bounds may be nil.
func NewExact(lat, lng float64, bounds *Bounds, meta SourceMeta) *ResolvedLocation {
	var b *Bounds
	if bounds != nil {
		cp := *bounds
		b = &cp
	}
	return &ResolvedLocation{Lat: lat, Lng: lng, Precision: PrecisionExact, Bounds: b, Meta: meta}
}

// NewGeocoded builds a settlement-level location from a geocoder match.
func NewGeocoded(lat, lng float64, meta SourceMeta) *ResolvedLocation {
	return &ResolvedLocation{Lat: lat, Lng: lng, Precision: PrecisionGeocoded, Meta: meta}
}

// NewSynthetic builds a placeholder location that did not come from any lookup.
func NewSynthetic(lat, lng float64, meta SourceMeta) *ResolvedLocation {
	return &ResolvedLocation{Lat: lat, Lng: lng, Precision: PrecisionSynthetic, Meta: meta}
}
