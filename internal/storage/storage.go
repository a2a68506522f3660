package storage

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mf_tracker/internal/ledger"
	"mf_tracker/internal/models"

	"github.com/shopspring/decimal"
)

// DefaultFile is the ledger file used when none is configured.
const DefaultFile = "portfolio.csv"

// Header is the column layout written by CSVStore.
var Header = []string{"date", "fund_id", "fund_label", "units", "purchase_nav", "cost"}

// legacyHeader maps the columns of the original tracker's export onto ours.
var legacyHeader = map[string]string{
	"Date":      "date",
	"AMFI Code": "fund_id",
	"Fund":      "fund_label",
	"Units":     "units",
	"NAV":       "purchase_nav",
	"Amount":    "cost",
}

// CSVStore keeps the ledger in a flat delimited file, one row per lot.
type CSVStore struct {
	Path string
}

// Ensure CSVStore implements the interface
var _ ledger.Store = (*CSVStore)(nil)

// NewCSVStore returns a store for path.
func NewCSVStore(path string) *CSVStore {
	return &CSVStore{Path: path}
}

// Open picks the store implementation from the file extension.
func Open(path string) (ledger.Store, error) {
	if path == "" {
		path = DefaultFile
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		s, err := OpenSQLite(path)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return NewCSVStore(path), nil
	}
}

// Load reads all lots in file order. A missing file is an empty ledger.
func (s *CSVStore) Load() ([]models.Lot, error) {
	b, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		log.Printf("Ledger file %s missing, starting empty", s.Path)
		return []models.Lot{}, nil
	}
	if err != nil {
		return nil, err
	}

	r := csv.NewReader(bytes.NewReader(b))
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Path, err)
	}
	if len(records) == 0 {
		return []models.Lot{}, nil
	}

	cols, migrated, err := resolveColumns(records[0])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Path, err)
	}

	lots := make([]models.Lot, 0, len(records)-1)
	for i, row := range records[1:] {
		if isBlank(row) {
			continue
		}
		lot, err := parseRow(row, cols)
		if err != nil {
			// Line numbers are 1-based and include the header.
			return nil, fmt.Errorf("%s line %d: %w", s.Path, i+2, err)
		}
		lots = append(lots, lot)
	}

	// CHECK FOR MIGRATION
	if migrated {
		log.Printf("INFO: Ledger %s uses the legacy column layout. Migrating %d lots...", s.Path, len(lots))
		if err := s.Save(lots); err != nil {
			log.Printf("ERROR: Failed to save migrated ledger: %v", err)
		}
	}

	return lots, nil
}

// resolveColumns maps column names to their index in the header row.
// It reports migrated=true when the legacy layout was recognised.
func resolveColumns(header []string) (map[string]int, bool, error) {
	cols := make(map[string]int, len(header))
	migrated := false
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if mapped, ok := legacyHeader[name]; ok {
			name = mapped
			migrated = true
		}
		cols[strings.ToLower(name)] = i
	}
	for _, required := range Header {
		if required == "fund_label" {
			continue
		}
		if _, ok := cols[required]; !ok {
			return nil, false, fmt.Errorf("missing column %q in header %v", required, header)
		}
	}
	return cols, migrated, nil
}

func parseRow(row []string, cols map[string]int) (models.Lot, error) {
	field := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var lot models.Lot
	date, err := time.Parse(models.DateFormat, field("date"))
	if err != nil {
		return lot, fmt.Errorf("bad date: %w", err)
	}
	lot.Date = date
	lot.FundID = field("fund_id")
	lot.FundLabel = field("fund_label")

	if lot.Units, err = decimal.NewFromString(field("units")); err != nil {
		return lot, fmt.Errorf("bad units: %w", err)
	}
	if lot.PurchaseNAV, err = decimal.NewFromString(field("purchase_nav")); err != nil {
		return lot, fmt.Errorf("bad purchase_nav: %w", err)
	}
	if lot.Cost, err = decimal.NewFromString(field("cost")); err != nil {
		return lot, fmt.Errorf("bad cost: %w", err)
	}
	return lot, nil
}

func isBlank(row []string) bool {
	for _, f := range row {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// Save writes the full ledger using an atomic write pattern.
// 1. Write to a temporary file.
// 2. Sync to ensure data is on disk.
// 3. Rename temporary file to destination (atomic operation).
func (s *CSVStore) Save(lots []models.Lot) error {
	var buf bytes.Buffer
	if err := writeCSV(&buf, lots); err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}

	// Create the temporary file in the same directory so the rename stays on one filesystem.
	tmpFile := s.Path + ".tmp"
	f, err := os.Create(tmpFile)
	if err != nil {
		return fmt.Errorf("create temp ledger file: %w", err)
	}
	if err := writeAndReplace(f, buf.Bytes(), s.Path); err != nil {
		// Do not leave a half-written temp file next to the ledger.
		os.Remove(tmpFile)
		return err
	}
	return nil
}

// writeAndReplace writes b to f, syncs and closes it, then renames it to path.
// f is closed on every path.
func writeAndReplace(f *os.File, b []byte, path string) error {
	if _, err := f.Write(b); err != nil {
		f.Close()
		return fmt.Errorf("write temp ledger file: %w", err)
	}
	// Force sync to disk to prevent data loss on power failure before rename
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync temp ledger file: %w", err)
	}
	// Close explicitly before renaming (essential on Windows)
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp ledger file: %w", err)
	}
	if err := os.Rename(f.Name(), path); err != nil {
		return fmt.Errorf("replace ledger file (atomic rename): %w", err)
	}
	return nil
}

func writeCSV(w io.Writer, lots []models.Lot) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, lot := range lots {
		row := []string{
			lot.Date.Format(models.DateFormat),
			lot.FundID,
			lot.FundLabel,
			lot.Units.StringFixed(ledger.UnitsPlaces),
			lot.PurchaseNAV.String(),
			lot.Cost.StringFixed(ledger.CostPlaces),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
