package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/sells-group/lotmap/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	source      TEXT NOT NULL,
	total       INTEGER NOT NULL,
	resolved    INTEGER NOT NULL,
	failed      INTEGER NOT NULL,
	started_at  DATETIME NOT NULL,
	finished_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS lots (
	run_id           TEXT NOT NULL REFERENCES runs(id),
	lot_id           INTEGER NOT NULL,
	cadastral_number TEXT NOT NULL,
	lot_number       TEXT,
	notice_number    TEXT,
	status           TEXT,
	subject_rf       TEXT,
	ownership_form   TEXT,
	address          TEXT,
	usage_class      TEXT,
	area             REAL,
	price_start      REAL,
	price_final      REAL,
	lat              REAL,
	lng              REAL,
	precision        TEXT,
	service          TEXT,
	geom_ewkb        BLOB,
	record           TEXT NOT NULL,
	PRIMARY KEY (run_id, lot_id)
);

CREATE INDEX IF NOT EXISTS idx_lots_cadastral ON lots(cadastral_number);
CREATE INDEX IF NOT EXISTS idx_lots_precision ON lots(precision);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveRun(ctx context.Context, run Run, lots []model.LotRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, source, total, resolved, failed, started_at, finished_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Source, run.Total, run.Resolved, run.Failed, run.StartedAt, run.FinishedAt,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: insert run %s", run.ID)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(lotColumns)), ", ")
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		"INSERT INTO lots (%s) VALUES (%s)", strings.Join(lotColumns, ", "), placeholders,
	))
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare lot insert")
	}
	defer stmt.Close() //nolint:errcheck

	for _, lot := range lots {
		row, err := lotRow(run.ID, lot)
		if err != nil {
			return err
		}
		// database/sql has no JSON type; store the record as text.
		row[len(row)-1] = string(row[len(row)-1].([]byte))
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return eris.Wrapf(err, "sqlite: insert lot %s", lot.CadastralNumber)
		}
	}

	if err := tx.Commit(); err != nil {
		return eris.Wrap(err, "sqlite: commit")
	}
	zap.L().Info("store: saved run",
		zap.String("driver", DriverSQLite),
		zap.String("run_id", run.ID),
		zap.Int("lots", len(lots)),
	)
	return nil
}

func (s *SQLiteStore) CountLots(ctx context.Context, runID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM lots WHERE run_id = ?`, runID).Scan(&n)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: count lots %s", runID)
	}
	return n, nil
}
