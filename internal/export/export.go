// Package export writes resolved lots as JSON, GeoJSON, XLSX or an ESRI
// shapefile.
package export

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lotmap/internal/model"
)

// Format names an output encoding.
type Format string

// Output formats, keyed by file extension.
const (
	FormatJSON      Format = "json"
	FormatGeoJSON   Format = "geojson"
	FormatXLSX      Format = "xlsx"
	FormatShapefile Format = "shp"
)

// FormatFor returns the format implied by path's extension.
func FormatFor(path string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		return FormatJSON, nil
	case ".geojson":
		return FormatGeoJSON, nil
	case ".xlsx":
		return FormatXLSX, nil
	case ".shp":
		return FormatShapefile, nil
	default:
		return "", eris.Errorf("export: unsupported output extension %q", ext)
	}
}

// WriteFile writes lots to path in the format implied by its extension.
func WriteFile(path string, lots []model.LotRecord) error {
	format, err := FormatFor(path)
	if err != nil {
		return err
	}

	switch format {
	case FormatXLSX:
		err = WriteXLSX(path, lots)
	case FormatShapefile:
		err = WriteShapefile(path, lots)
	default:
		err = writeStream(path, format, lots)
	}
	if err != nil {
		return err
	}

	zap.L().Info("export: wrote output",
		zap.String("path", path),
		zap.String("format", string(format)),
		zap.Int("lots", len(lots)),
	)
	return nil
}

func writeStream(path string, format Format, lots []model.LotRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}

	if format == FormatGeoJSON {
		err = WriteGeoJSON(f, lots)
	} else {
		err = WriteJSON(f, lots)
	}
	if cerr := f.Close(); err == nil && cerr != nil {
		err = eris.Wrapf(cerr, "export: close %s", path)
	}
	return err
}

func floatOrNil(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
