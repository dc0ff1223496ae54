package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lotmap/internal/model"
)

// Pool is the subset of *pgxpool.Pool the Postgres store uses. pgxmock
// pools satisfy it too.
type Pool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return NewPostgresWithPool(pool), nil
}

// NewPostgresWithPool wraps an existing pool.
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	source      TEXT NOT NULL,
	total       INTEGER NOT NULL,
	resolved    INTEGER NOT NULL,
	failed      INTEGER NOT NULL,
	started_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL
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
	area             DOUBLE PRECISION,
	price_start      DOUBLE PRECISION,
	price_final      DOUBLE PRECISION,
	lat              DOUBLE PRECISION,
	lng              DOUBLE PRECISION,
	precision        TEXT,
	service          TEXT,
	geom_ewkb        BYTEA,
	record           JSONB NOT NULL,
	PRIMARY KEY (run_id, lot_id)
);

CREATE INDEX IF NOT EXISTS idx_lots_cadastral ON lots(cadastral_number);
CREATE INDEX IF NOT EXISTS idx_lots_precision ON lots(precision);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// SaveRun writes the run row and COPYs its lots in one transaction.
func (s *PostgresStore) SaveRun(ctx context.Context, run Run, lots []model.LotRecord) error {
	rows := make([][]any, 0, len(lots))
	for _, lot := range lots {
		row, err := lotRow(run.ID, lot)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx,
		`INSERT INTO runs (id, source, total, resolved, failed, started_at, finished_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		run.ID, run.Source, run.Total, run.Resolved, run.Failed, run.StartedAt, run.FinishedAt,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: insert run %s", run.ID)
	}

	if len(rows) > 0 {
		n, err := tx.CopyFrom(ctx, pgx.Identifier{"lots"}, lotColumns, pgx.CopyFromRows(rows))
		if err != nil {
			return eris.Wrapf(err, "postgres: COPY lots for run %s", run.ID)
		}
		if int(n) != len(rows) {
			return eris.Errorf("postgres: copied %d of %d lots", n, len(rows))
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return eris.Wrap(err, "postgres: commit")
	}
	zap.L().Info("store: saved run",
		zap.String("driver", DriverPostgres),
		zap.String("run_id", run.ID),
		zap.Int("lots", len(lots)),
	)
	return nil
}

func (s *PostgresStore) CountLots(ctx context.Context, runID string) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM lots WHERE run_id = $1`, runID).Scan(&n); err != nil {
		return 0, eris.Wrapf(err, "postgres: count lots %s", runID)
	}
	return n, nil
}
