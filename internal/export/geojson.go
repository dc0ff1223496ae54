package export

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/lotmap/internal/model"
)

// FeatureCollection converts located lots to GeoJSON point features.
// Unresolved lots are left out. The collection bbox covers every point.
func FeatureCollection(lots []model.LotRecord) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(lots))}
	bounds := geom.NewBounds(geom.XY)

	for _, lot := range lots {
		if !lot.Resolved() {
			continue
		}
		loc := lot.Location
		point := geom.NewPointFlat(geom.XY, []float64{loc.Lng, loc.Lat})
		bounds.Extend(point)

		f := &geojson.Feature{
			ID:         lot.CadastralNumber,
			Geometry:   point,
			Properties: properties(lot),
		}
		if b := loc.Bounds; b != nil {
			f.BBox = geom.NewBounds(geom.XY).Set(b.MinLng, b.MinLat, b.MaxLng, b.MaxLat)
		}
		fc.Features = append(fc.Features, f)
	}

	if len(fc.Features) > 0 {
		fc.BBox = bounds
	}
	return fc
}

func properties(lot model.LotRecord) map[string]interface{} {
	return map[string]interface{}{
		"id":               lot.ID,
		"cadastral_number": lot.CadastralNumber,
		"lot_number":       lot.LotNumber,
		"subject":          lot.SubjectRF,
		"address":          lot.Address,
		"status":           lot.Status,
		"price_start":      floatOrNil(lot.PriceStart),
		"price_final":      floatOrNil(lot.PriceFinal),
		"area":             floatOrNil(lot.Area),
		"usage":            lot.UsageClass,
		"precision":        string(lot.Location.Precision),
		"approximate":      lot.Location.Precision.Approximate(),
		"notice_url":       lot.LotURL,
	}
}

// WriteGeoJSON writes the FeatureCollection for lots.
func WriteGeoJSON(w io.Writer, lots []model.LotRecord) error {
	data, err := json.Marshal(FeatureCollection(lots))
	if err != nil {
		return eris.Wrap(err, "export: encode geojson")
	}
	if _, err := w.Write(data); err != nil {
		return eris.Wrap(err, "export: write geojson")
	}
	return nil
}
