package export

import (
	"os"
	"strings"
	"unicode/utf8"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"

	"github.com/sells-group/lotmap/internal/model"
)

const wgs84PRJ = `GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137.0,298.257223563]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]]`

// Shapefile attribute columns. DBF names are at most 10 bytes.
const (
	fieldCadastral = iota
	fieldLotNumber
	fieldPrecision
	fieldArea
	fieldPrice
	fieldStatus
	fieldAddress
)

var shpFields = []shp.Field{
	shp.StringField("CADNUM", 40),
	shp.StringField("LOTNUM", 20),
	shp.StringField("PRECISION", 24),
	shp.FloatField("AREA", 18, 2),
	shp.FloatField("PRICE", 18, 2),
	shp.StringField("STATUS", 60),
	shp.StringField("ADDRESS", 254),
}

// WriteShapefile writes located lots as a WGS84 POINT shapefile at path,
// along with the .dbf, .shx, .prj and .cpg sidecars. Unresolved lots are
// left out.
func WriteShapefile(path string, lots []model.LotRecord) (err error) {
	w, err := shp.Create(path, shp.POINT)
	if err != nil {
		return eris.Wrapf(err, "export: create shapefile %s", path)
	}
	closed := false
	defer func() {
		if !closed {
			w.Close()
		}
	}()

	if err := w.SetFields(shpFields); err != nil {
		return eris.Wrap(err, "export: set shapefile fields")
	}

	for _, lot := range lots {
		if !lot.Resolved() {
			continue
		}
		loc := lot.Location
		row := int(w.Write(&shp.Point{X: loc.Lng, Y: loc.Lat}))

		attrs := map[int]interface{}{
			fieldCadastral: lot.CadastralNumber,
			fieldLotNumber: lot.LotNumber,
			fieldPrecision: string(loc.Precision),
			fieldStatus:    lot.Status,
			fieldAddress:   lot.Address,
		}
		if lot.Area != nil {
			attrs[fieldArea] = *lot.Area
		}
		if lot.PriceStart != nil {
			attrs[fieldPrice] = *lot.PriceStart
		}
		for field, value := range attrs {
			if s, ok := value.(string); ok {
				value = truncateBytes(s, int(shpFields[field].Size))
			}
			if err := w.WriteAttribute(row, field, value); err != nil {
				return eris.Wrapf(err, "export: write attribute %d for %s", field, lot.CadastralNumber)
			}
		}
	}
	w.Close()
	closed = true

	base := path
	if strings.HasSuffix(strings.ToLower(base), ".shp") {
		base = base[:len(base)-4]
	}
	// go-shp names the attribute table "<base>dbf" without the dot.
	if _, statErr := os.Stat(base + "dbf"); statErr == nil {
		if err := os.Rename(base+"dbf", base+".dbf"); err != nil {
			return eris.Wrap(err, "export: rename .dbf")
		}
	}
	if err := os.WriteFile(base+".prj", []byte(wgs84PRJ), 0o644); err != nil {
		return eris.Wrap(err, "export: write .prj")
	}
	if err := os.WriteFile(base+".cpg", []byte("UTF-8"), 0o644); err != nil {
		return eris.Wrap(err, "export: write .cpg")
	}
	return nil
}

// truncateBytes cuts s to at most n bytes without splitting a rune.
func truncateBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	s = s[:n]
	for len(s) > 0 && !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}
