package postgres

import (
	"context"
	"database/sql"
	"encoding/json"

	_ "github.com/jackc/pgx/v5/stdlib"

	"bookpulse/internal/application/port"
	"bookpulse/internal/infrastructure/storage"
)

type Repo struct {
	db *sql.DB
}

func New(dsn string) (*Repo, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	r := &Repo{db: db}
	if err := r.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Repo) Close() error { return r.db.Close() }

func (r *Repo) migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS summary_latest (
  symbol TEXT PRIMARY KEY,
  run_id UUID NOT NULL,
  ts_ms BIGINT NOT NULL,
  venues JSONB NOT NULL,
  spread DOUBLE PRECISION NOT NULL,
  spread_pct DOUBLE PRECISION NOT NULL,
  mid_price DOUBLE PRECISION NOT NULL,
  tightness TEXT NOT NULL,
  imbalance DOUBLE PRECISION NOT NULL,
  crossed BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE TABLE IF NOT EXISTS pressure_zones (
  id BIGSERIAL PRIMARY KEY,
  run_id UUID NOT NULL,
  ts_ms BIGINT NOT NULL,
  symbol TEXT NOT NULL,
  side TEXT NOT NULL,
  price NUMERIC NOT NULL,
  volume NUMERIC NOT NULL,
  intensity DOUBLE PRECISION NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_zones_symbol_ts ON pressure_zones(symbol, ts_ms);
`)
	return err
}

func (r *Repo) UpsertLatestSummary(ctx context.Context, rec port.SignalRecord) error {
	s := storage.Summary(rec)
	venues, _ := json.Marshal(s.Venues)
	_, err := r.db.ExecContext(ctx, `
INSERT INTO summary_latest(symbol, run_id, ts_ms, venues, spread, spread_pct, mid_price, tightness, imbalance, crossed)
VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT(symbol) DO UPDATE SET
  run_id=EXCLUDED.run_id, ts_ms=EXCLUDED.ts_ms, venues=EXCLUDED.venues,
  spread=EXCLUDED.spread, spread_pct=EXCLUDED.spread_pct, mid_price=EXCLUDED.mid_price,
  tightness=EXCLUDED.tightness, imbalance=EXCLUDED.imbalance, crossed=EXCLUDED.crossed
`, s.Symbol, s.RunID, s.Ts, string(venues), s.Spread, s.SpreadPercent, s.MidPrice, s.Tightness, s.Imbalance, s.Crossed)
	return err
}

func (r *Repo) InsertZones(ctx context.Context, rec port.SignalRecord) error {
	rows := storage.ZoneRows(rec)
	if len(rows) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, z := range rows {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO pressure_zones(run_id, ts_ms, symbol, side, price, volume, intensity)
VALUES($1, $2, $3, $4, $5, $6, $7)`, z.RunID, z.Ts, z.Symbol, z.Side, z.Price, z.Volume, z.Intensity); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

var _ port.Repository = (*Repo)(nil)
