// Package persistence records simulation output: a SQLite history store
// and compressed per-run period logs. Simulation state itself is never saved.
package persistence

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/macrosim/internal/engine"
)

// DB wraps a SQLite connection for run history.
type DB struct {
	conn *sqlx.DB
}

// Run is one recorded simulation run.
type Run struct {
	ID         string `db:"id"          json:"id"`
	StartedAt  string `db:"started_at"  json:"started_at"` // RFC 3339, UTC
	Seed       int64  `db:"seed"        json:"seed"`
	ConfigJSON string `db:"config_json" json:"config"`
}

// StatRow is one economy's macro observations for one period.
type StatRow struct {
	RunID        string  `db:"run_id"        json:"run_id"`
	Period       int     `db:"period"        json:"period"`
	Economy      int     `db:"economy"       json:"economy"`
	Name         string  `db:"name"          json:"name"`
	GDP          float64 `db:"gdp"           json:"gdp"`
	Consumption  float64 `db:"consumption"   json:"consumption"`
	Investment   float64 `db:"investment"    json:"investment"`
	Unemployment float64 `db:"unemployment"  json:"unemployment"`
	Population   int     `db:"population"    json:"population"`
	Retirees     int     `db:"retirees"      json:"retirees"`
	TaxRevenue   float64 `db:"tax_revenue"   json:"tax_revenue"`
	Matches      int     `db:"matches"       json:"matches"`
	FailedSolves int     `db:"failed_solves" json:"failed_solves"`
	Replaced     int     `db:"replaced"      json:"replaced"`
}

// GoodStat is one good's price and quantity sold for one period.
type GoodStat struct {
	Period       int     `db:"period"        json:"period"`
	Economy      int     `db:"economy"       json:"economy"`
	Good         int     `db:"good"          json:"good"`
	Price        float64 `db:"price"         json:"price"`
	QuantitySold float64 `db:"quantity_sold" json:"quantity_sold"`
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at TEXT NOT NULL,
		seed INTEGER NOT NULL,
		config_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS period_stats (
		run_id TEXT NOT NULL REFERENCES runs(id),
		period INTEGER NOT NULL,
		economy INTEGER NOT NULL,
		name TEXT NOT NULL,
		gdp REAL NOT NULL,
		consumption REAL NOT NULL,
		investment REAL NOT NULL,
		unemployment REAL NOT NULL,
		population INTEGER NOT NULL,
		retirees INTEGER NOT NULL,
		tax_revenue REAL NOT NULL,
		matches INTEGER NOT NULL,
		failed_solves INTEGER NOT NULL,
		replaced INTEGER NOT NULL,
		PRIMARY KEY (run_id, period, economy)
	);

	CREATE TABLE IF NOT EXISTS good_stats (
		run_id TEXT NOT NULL REFERENCES runs(id),
		period INTEGER NOT NULL,
		economy INTEGER NOT NULL,
		good INTEGER NOT NULL,
		price REAL NOT NULL,
		quantity_sold REAL NOT NULL,
		PRIMARY KEY (run_id, period, economy, good)
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// BeginRun registers a new run and returns its ID.
func (db *DB) BeginRun(seed int64, configJSON string) (string, error) {
	id := uuid.NewString()
	_, err := db.conn.Exec(
		"INSERT INTO runs (id, started_at, seed, config_json) VALUES (?, ?, ?, ?)",
		id, time.Now().UTC().Format(time.RFC3339Nano), seed, configJSON,
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	slog.Info("run registered", "run", id, "seed", seed)
	return id, nil
}

// Runs returns every recorded run, newest first.
func (db *DB) Runs() ([]Run, error) {
	var runs []Run
	err := db.conn.Select(&runs, "SELECT id, started_at, seed, config_json FROM runs ORDER BY started_at DESC")
	if err != nil {
		return nil, fmt.Errorf("select runs: %w", err)
	}
	return runs, nil
}

// SaveRow writes one period of every economy in a single transaction.
func (db *DB) SaveRow(runID string, row engine.PeriodRow) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stats, err := tx.Preparex(`INSERT OR REPLACE INTO period_stats
		(run_id, period, economy, name, gdp, consumption, investment, unemployment,
		 population, retirees, tax_revenue, matches, failed_solves, replaced)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stats.Close()

	goods, err := tx.Preparex(`INSERT OR REPLACE INTO good_stats
		(run_id, period, economy, good, price, quantity_sold)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer goods.Close()

	for _, e := range row.Economies {
		_, err := stats.Exec(
			runID, row.Period, e.Economy, e.Name,
			e.GDP, e.Consumption, e.Investment, e.Unemployment,
			e.Population, e.Retirees, e.TaxRevenue,
			e.Matches, e.FailedSolves, e.Replaced,
		)
		if err != nil {
			return fmt.Errorf("insert period %d economy %d: %w", row.Period, e.Economy, err)
		}
		for g := range e.Prices {
			if _, err := goods.Exec(runID, row.Period, e.Economy, g, e.Prices[g], e.Quantities[g]); err != nil {
				return fmt.Errorf("insert period %d economy %d good %d: %w", row.Period, e.Economy, g, err)
			}
		}
	}

	return tx.Commit()
}

// LoadStats returns macro rows for a run ordered by period then economy.
// economy < 0 selects all economies; to < 0 means no upper bound; limit <= 0 means no limit.
func (db *DB) LoadStats(runID string, economy, from, to, limit int) ([]StatRow, error) {
	if to < 0 {
		to = int(^uint(0) >> 1)
	}
	if limit <= 0 {
		limit = -1
	}
	var rows []StatRow
	err := db.conn.Select(&rows, `SELECT run_id, period, economy, name, gdp, consumption, investment,
			unemployment, population, retirees, tax_revenue, matches, failed_solves, replaced
		FROM period_stats
		WHERE run_id = ? AND period >= ? AND period <= ? AND (? < 0 OR economy = ?)
		ORDER BY period, economy
		LIMIT ?`,
		runID, from, to, economy, economy, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select period stats: %w", err)
	}
	return rows, nil
}

// LoadGoodStats returns one good's series for a run ordered by period.
func (db *DB) LoadGoodStats(runID string, economy, good, from, to int) ([]GoodStat, error) {
	if to < 0 {
		to = int(^uint(0) >> 1)
	}
	var rows []GoodStat
	err := db.conn.Select(&rows, `SELECT period, economy, good, price, quantity_sold
		FROM good_stats
		WHERE run_id = ? AND economy = ? AND good = ? AND period >= ? AND period <= ?
		ORDER BY period`,
		runID, economy, good, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("select good stats: %w", err)
	}
	return rows, nil
}
