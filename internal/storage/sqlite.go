package storage

import (
	"database/sql"
	"fmt"
	"time"

	"mf_tracker/internal/ledger"
	"mf_tracker/internal/models"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS lots (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	date         TEXT NOT NULL,
	fund_id      TEXT NOT NULL,
	fund_label   TEXT NOT NULL DEFAULT '',
	units        TEXT NOT NULL,
	purchase_nav TEXT NOT NULL,
	cost         TEXT NOT NULL
);`

// SQLiteStore keeps the ledger in a single SQLite table.
// Decimals are stored as TEXT so no precision is lost.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// Ensure SQLiteStore implements the interface
var _ ledger.Store = (*SQLiteStore)(nil)

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// A single connection serializes writers inside this process.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure sqlite: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{db: db, path: path}, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Load returns the lots in insertion order.
func (s *SQLiteStore) Load() ([]models.Lot, error) {
	rows, err := s.db.Query(`SELECT date, fund_id, fund_label, units, purchase_nav, cost FROM lots ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lots := []models.Lot{}
	for rows.Next() {
		var date, units, nav, cost string
		var lot models.Lot
		if err := rows.Scan(&date, &lot.FundID, &lot.FundLabel, &units, &nav, &cost); err != nil {
			return nil, err
		}
		if lot.Date, err = time.Parse(models.DateFormat, date); err != nil {
			return nil, fmt.Errorf("bad date %q: %w", date, err)
		}
		if lot.Units, err = decimal.NewFromString(units); err != nil {
			return nil, fmt.Errorf("bad units %q: %w", units, err)
		}
		if lot.PurchaseNAV, err = decimal.NewFromString(nav); err != nil {
			return nil, fmt.Errorf("bad purchase_nav %q: %w", nav, err)
		}
		if lot.Cost, err = decimal.NewFromString(cost); err != nil {
			return nil, fmt.Errorf("bad cost %q: %w", cost, err)
		}
		lots = append(lots, lot)
	}
	return lots, rows.Err()
}

// Save replaces the table content with lots in one transaction.
func (s *SQLiteStore) Save(lots []models.Lot) (err error) {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.Exec(`DELETE FROM lots`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT INTO lots (date, fund_id, fund_label, units, purchase_nav, cost) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, lot := range lots {
		if _, err = stmt.Exec(
			lot.Date.Format(models.DateFormat),
			lot.FundID,
			lot.FundLabel,
			lot.Units.StringFixed(ledger.UnitsPlaces),
			lot.PurchaseNAV.String(),
			lot.Cost.StringFixed(ledger.CostPlaces),
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}
