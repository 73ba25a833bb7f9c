package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"bookpulse/internal/application/port"
	"bookpulse/internal/infrastructure/storage"
)

type Repo struct {
	db *sql.DB
}

func New(path string) (*Repo, error) {
	// ensure directory exists
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		_ = os.MkdirAll(dir, 0o755)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

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
  run_id TEXT NOT NULL,
  ts_ms INTEGER NOT NULL,
  venues TEXT NOT NULL,
  spread REAL NOT NULL,
  spread_pct REAL NOT NULL,
  mid_price REAL NOT NULL,
  tightness TEXT NOT NULL,
  imbalance REAL NOT NULL,
  crossed INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS pressure_zones (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  run_id TEXT NOT NULL,
  ts_ms INTEGER NOT NULL,
  symbol TEXT NOT NULL,
  side TEXT NOT NULL,
  price TEXT NOT NULL,
  volume TEXT NOT NULL,
  intensity REAL NOT NULL
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
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(symbol) DO UPDATE SET
  run_id=excluded.run_id, ts_ms=excluded.ts_ms, venues=excluded.venues,
  spread=excluded.spread, spread_pct=excluded.spread_pct, mid_price=excluded.mid_price,
  tightness=excluded.tightness, imbalance=excluded.imbalance, crossed=excluded.crossed
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
	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO pressure_zones(run_id, ts_ms, symbol, side, price, volume, intensity)
VALUES(?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, z := range rows {
		if _, err := stmt.ExecContext(ctx, z.RunID, z.Ts, z.Symbol, z.Side, z.Price, z.Volume, z.Intensity); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// LatestSummary 读取某个交易对的最新概览
func (r *Repo) LatestSummary(ctx context.Context, symbol string) (storage.SummaryRow, error) {
	var (
		s      storage.SummaryRow
		venues string
	)
	err := r.db.QueryRowContext(ctx, `
SELECT symbol, run_id, ts_ms, venues, spread, spread_pct, mid_price, tightness, imbalance, crossed
FROM summary_latest WHERE symbol = ?`, symbol).
		Scan(&s.Symbol, &s.RunID, &s.Ts, &venues, &s.Spread, &s.SpreadPercent, &s.MidPrice, &s.Tightness, &s.Imbalance, &s.Crossed)
	if err != nil {
		return s, err
	}
	_ = json.Unmarshal([]byte(venues), &s.Venues)
	return s, nil
}

// ZonesSince 读取 sinceMs 之后记录的压力区
func (r *Repo) ZonesSince(ctx context.Context, symbol string, sinceMs int64) ([]storage.ZoneRow, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT run_id, ts_ms, symbol, side, price, volume, intensity
FROM pressure_zones WHERE symbol = ? AND ts_ms >= ? ORDER BY id`, symbol, sinceMs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []storage.ZoneRow
	for rows.Next() {
		var z storage.ZoneRow
		if err := rows.Scan(&z.RunID, &z.Ts, &z.Symbol, &z.Side, &z.Price, &z.Volume, &z.Intensity); err != nil {
			return nil, err
		}
		out = append(out, z)
	}
	return out, rows.Err()
}

var _ port.Repository = (*Repo)(nil)
