// Package store persists finished batch runs. Stores are write-only sinks:
// nothing reads lots back during resolution.
package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"

	"github.com/sells-group/lotmap/internal/model"
)

// Drivers accepted by Open.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Run describes one batch over an input file.
type Run struct {
	ID         string    `json:"id"`
	Source     string    `json:"source"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Total      int       `json:"total"`
	Resolved   int       `json:"resolved"`
	Failed     int       `json:"failed"`
}

// NewRun starts a Run for source with a fresh ID.
func NewRun(source string) Run {
	return Run{
		ID:        uuid.New().String(),
		Source:    source,
		StartedAt: time.Now().UTC(),
	}
}

// Store defines the persistence interface for batch results.
type Store interface {
	Migrate(ctx context.Context) error
	SaveRun(ctx context.Context, run Run, lots []model.LotRecord) error
	CountLots(ctx context.Context, runID string) (int, error)
	Close() error
}

// Open connects to the store named by driver. dsn is a file path for SQLite
// and a connection string for Postgres.
func Open(ctx context.Context, driver, dsn string, poolCfg *PoolConfig) (Store, error) {
	switch driver {
	case DriverSQLite:
		return NewSQLite(dsn)
	case DriverPostgres:
		return NewPostgres(ctx, dsn, poolCfg)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
}

// lotColumns is the column order shared by both backends.
var lotColumns = []string{
	"run_id", "lot_id", "cadastral_number", "lot_number", "notice_number",
	"status", "subject_rf", "ownership_form", "address", "usage_class",
	"area", "price_start", "price_final",
	"lat", "lng", "precision", "service", "geom_ewkb", "record",
}

func lotRow(runID string, lot model.LotRecord) ([]any, error) {
	record, err := json.Marshal(lot)
	if err != nil {
		return nil, eris.Wrapf(err, "store: marshal lot %s", lot.CadastralNumber)
	}

	var (
		lat, lng  *float64
		precision *string
		service   *string
		point     []byte
	)
	if loc := lot.Location; loc != nil {
		lat, lng = &loc.Lat, &loc.Lng
		p := string(loc.Precision)
		precision = &p
		s := loc.Meta.Service
		service = &s
		point, err = encodePoint(loc.Lng, loc.Lat)
		if err != nil {
			return nil, err
		}
	}

	return []any{
		runID, lot.ID, lot.CadastralNumber, lot.LotNumber, lot.NoticeNumber,
		lot.Status, lot.SubjectRF, lot.OwnershipForm, lot.Address, lot.UsageClass,
		lot.Area, lot.PriceStart, lot.PriceFinal,
		lat, lng, precision, service, point, record,
	}, nil
}

// encodePoint returns EWKB for a WGS84 point.
func encodePoint(lng, lat float64) ([]byte, error) {
	g := geom.NewPointFlat(geom.XY, []float64{lng, lat}).SetSRID(4326)
	data, err := ewkb.Marshal(g, ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "store: encode point")
	}
	return data, nil
}
