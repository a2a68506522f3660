package ledger

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"mf_tracker/internal/models"
)

// UnitsPlaces and CostPlaces are the fixed precisions of a lot.
const (
	UnitsPlaces = 4
	CostPlaces  = 2
)

var (
	// ErrInvalidLot is returned when a lot fails validation. Nothing is persisted.
	ErrInvalidLot = errors.New("invalid lot")
	// ErrNotFound is returned for a stale position or handle.
	ErrNotFound = errors.New("lot not found")
	// ErrStorage is returned when the durable write failed. The in-memory
	// ledger keeps the mutation and may differ from storage until the next
	// successful flush.
	ErrStorage = errors.New("ledger storage error")
)

// Store is the durable side of the ledger.
// Load on a store that does not exist yet must return an empty slice and no error.
type Store interface {
	Load() ([]models.Lot, error)
	Save(lots []models.Lot) error
}

// LotID is the position of a lot in the ledger.
// Positions shift down after every deletion: callers must re-list before
// reusing a position obtained before a mutation.
type LotID int

// Handle identifies a lot for the lifetime of a Ledger value, regardless of
// deletions of other lots. Handles are not persisted.
type Handle uint64

type entry struct {
	handle Handle
	lot    models.Lot
}

// Ledger is the ordered, durable collection of purchase lots.
type Ledger struct {
	store   Store
	entries []entry
	next    Handle
	mu      sync.RWMutex
}

// New creates a ledger backed by store and loads its current content.
func New(store Store) (*Ledger, error) {
	l := &Ledger{store: store, next: 1}
	if err := l.load(); err != nil {
		return nil, err
	}
	return l, nil
}

// NewLot builds a lot with units rounded to 4 digits and cost computed.
// It does not validate; Append does.
func NewLot(lot models.Lot) models.Lot {
	if !lot.Date.IsZero() {
		y, m, d := lot.Date.Date()
		lot.Date = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}
	lot.FundID = strings.TrimSpace(lot.FundID)
	lot.FundLabel = strings.TrimSpace(lot.FundLabel)
	lot.Units = lot.Units.Round(UnitsPlaces)
	lot.Cost = lot.Units.Mul(lot.PurchaseNAV).Round(CostPlaces)
	return lot
}

// Validate checks the creation invariants of a lot.
func Validate(lot models.Lot) error {
	if strings.TrimSpace(lot.FundID) == "" {
		return fmt.Errorf("%w: fund id is required", ErrInvalidLot)
	}
	if !lot.Units.IsPositive() {
		return fmt.Errorf("%w: units must be positive, got %s", ErrInvalidLot, lot.Units)
	}
	if !lot.PurchaseNAV.IsPositive() {
		return fmt.Errorf("%w: purchase nav must be positive, got %s", ErrInvalidLot, lot.PurchaseNAV)
	}
	return nil
}

// Append validates lot, computes its cost, appends it and flushes the ledger.
//
// Units are rounded to 4 fractional digits before the check, so a quantity
// that rounds to zero is rejected. Any Cost set by the caller is replaced.
// On a storage failure the returned position is still valid in memory.
func (l *Ledger) Append(lot models.Lot) (LotID, error) {
	lot = NewLot(lot)
	if err := Validate(lot); err != nil {
		return -1, err
	}
	if lot.Date.IsZero() {
		return -1, fmt.Errorf("%w: date is required", ErrInvalidLot)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, entry{handle: l.next, lot: lot})
	l.next++
	pos := LotID(len(l.entries) - 1)

	log.Printf("Ledger: appended %s units of %s @ %s (cost %s) at #%d",
		lot.Units.StringFixed(UnitsPlaces), lot.FundID, lot.PurchaseNAV, lot.Cost.StringFixed(CostPlaces), pos)

	return pos, l.flushLocked()
}

// Delete removes the lot at pos. All later lots move down by one position.
func (l *Ledger) Delete(pos LotID) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if pos < 0 || int(pos) >= len(l.entries) {
		return fmt.Errorf("%w: position %d (ledger has %d lots)", ErrNotFound, pos, len(l.entries))
	}
	return l.deleteLocked(int(pos))
}

// DeleteHandle removes the lot identified by h.
func (l *Ledger) DeleteHandle(h Handle) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.indexLocked(h)
	if i < 0 {
		return fmt.Errorf("%w: handle %d", ErrNotFound, h)
	}
	return l.deleteLocked(i)
}

func (l *Ledger) deleteLocked(i int) error {
	removed := l.entries[i].lot
	l.entries = append(l.entries[:i], l.entries[i+1:]...)
	log.Printf("Ledger: deleted #%d (%s, %s units)", i, removed.FundID, removed.Units.StringFixed(UnitsPlaces))
	return l.flushLocked()
}

// Handle returns the stable handle of the lot currently at pos.
func (l *Ledger) Handle(pos LotID) (Handle, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if pos < 0 || int(pos) >= len(l.entries) {
		return 0, fmt.Errorf("%w: position %d", ErrNotFound, pos)
	}
	return l.entries[pos].handle, nil
}

// Resolve returns the current position of the lot identified by h.
func (l *Ledger) Resolve(h Handle) (LotID, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	i := l.indexLocked(h)
	if i < 0 {
		return -1, fmt.Errorf("%w: handle %d", ErrNotFound, h)
	}
	return LotID(i), nil
}

func (l *Ledger) indexLocked(h Handle) int {
	for i, e := range l.entries {
		if e.handle == h {
			return i
		}
	}
	return -1
}

// List returns a copy of the lots in ledger order.
func (l *Ledger) List() []models.Lot {
	l.mu.RLock()
	defer l.mu.RUnlock()

	lots := make([]models.Lot, len(l.entries))
	for i, e := range l.entries {
		lots[i] = e.lot
	}
	return lots
}

// Len returns the number of lots.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Reload replaces the in-memory content with the store content, picking up
// writes made by other processes. A lot unchanged at the same position keeps
// its handle; handles of other lots become stale.
// On error the in-memory content is left as it was.
func (l *Ledger) Reload() error {
	lots, err := l.store.Load()
	if err != nil {
		return fmt.Errorf("%w: reload: %v", ErrStorage, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	before := len(l.entries)
	l.replaceLocked(lots)
	if len(l.entries) != before {
		log.Printf("Ledger: reloaded, %d -> %d lots", before, len(l.entries))
	}
	return nil
}

// load fills the ledger from the store.
// Stored lots are trusted as-is: cost is never recomputed on load.
func (l *Ledger) load() error {
	lots, err := l.store.Load()
	if err != nil {
		return fmt.Errorf("%w: load: %v", ErrStorage, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.replaceLocked(lots)
	log.Printf("Ledger: loaded %d lots", len(l.entries))
	return nil
}

func (l *Ledger) replaceLocked(lots []models.Lot) {
	entries := make([]entry, 0, len(lots))
	for i, lot := range lots {
		if i < len(l.entries) && sameLot(l.entries[i].lot, lot) {
			entries = append(entries, entry{handle: l.entries[i].handle, lot: lot})
			continue
		}
		entries = append(entries, entry{handle: l.next, lot: lot})
		l.next++
	}
	l.entries = entries
}

func sameLot(a, b models.Lot) bool {
	return a.Date.Equal(b.Date) &&
		a.FundID == b.FundID &&
		a.FundLabel == b.FundLabel &&
		a.Units.Equal(b.Units) &&
		a.PurchaseNAV.Equal(b.PurchaseNAV) &&
		a.Cost.Equal(b.Cost)
}

func (l *Ledger) flushLocked() error {
	lots := make([]models.Lot, len(l.entries))
	for i, e := range l.entries {
		lots[i] = e.lot
	}
	if err := l.store.Save(lots); err != nil {
		log.Printf("ERROR: Ledger flush failed, memory and storage may diverge: %v", err)
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return nil
}
