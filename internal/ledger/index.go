package ledger

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/imamik/geoprov/internal/util/naming"
)

var (
	// ErrHeaderNotFound is a configuration error: a required header is absent.
	ErrHeaderNotFound = errors.New("ledger header not found")
	// ErrInvalidRow is returned when updating an entry without a row number.
	ErrInvalidRow = errors.New("ledger entry has no row number")
)

// Store is the remote tabular resource behind the index. Implementations
// address a fixed spreadsheet tab and range.
type Store interface {
	// ReadRows returns unformatted values of the range, header row first.
	ReadRows(ctx context.Context) ([][]any, error)
	// UpdateCell writes one value at an A1 cell reference inside the tab.
	UpdateCell(ctx context.Context, cell string, value any) error
	// AppendRow appends one row and returns the updated range reported by
	// the service, e.g. "Accounts!A15:F15".
	AppendRow(ctx context.Context, row []any) (string, error)
}

// Layout describes where the index finds its columns.
type Layout struct {
	// Range is the A1 range the store reads, used to compute cell references.
	Range             string
	AccountNameHeader string
	LocationIDHeader  string
}

// Entry is one indexed ledger row.
type Entry struct {
	Name       string
	Key        string
	Row        int
	LocationID string
	Raw        []any
}

// Provisioned reports whether the row already carries a location id.
func (e Entry) Provisioned() bool {
	return e.LocationID != ""
}

// Index is the name-keyed snapshot of the ledger for one run.
type Index struct {
	store   Store
	header  []string
	nameCol int
	locCol  int
	origin  cellRef
	entries map[string]Entry
}

// Load reads the whole ledger and builds the index.
func Load(ctx context.Context, store Store, layout Layout) (*Index, error) {
	origin, err := rangeStart(layout.Range)
	if err != nil {
		return nil, fmt.Errorf("invalid ledger range %q: %w", layout.Range, err)
	}

	rows, err := store.ReadRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}

	var header []string
	if len(rows) > 0 {
		header = make([]string, len(rows[0]))
		for i, v := range rows[0] {
			// Headers match verbatim, surrounding whitespace included.
			if s, ok := v.(string); ok {
				header[i] = s
				continue
			}
			header[i] = cellString(v)
		}
	}

	nameCol := indexOf(header, layout.AccountNameHeader)
	if nameCol < 0 {
		return nil, fmt.Errorf("%w: %q", ErrHeaderNotFound, layout.AccountNameHeader)
	}
	locCol := indexOf(header, layout.LocationIDHeader)
	if locCol < 0 {
		return nil, fmt.Errorf("%w: %q", ErrHeaderNotFound, layout.LocationIDHeader)
	}

	x := &Index{
		store:   store,
		header:  header,
		nameCol: nameCol,
		locCol:  locCol,
		origin:  origin,
		entries: make(map[string]Entry),
	}

	for i := 1; i < len(rows); i++ {
		name := cellAt(rows[i], nameCol)
		key := naming.AccountKey(name)
		if key == "" {
			continue
		}
		e := Entry{
			Name:       name,
			Key:        key,
			Row:        origin.Row + i,
			LocationID: cellAt(rows[i], locCol),
			Raw:        rows[i],
		}
		if prev, ok := x.entries[key]; ok && (prev.Provisioned() || !e.Provisioned()) {
			continue
		}
		x.entries[key] = e
	}

	return x, nil
}

// Len returns the number of indexed names.
func (x *Index) Len() int {
	return len(x.entries)
}

// Lookup returns the entry for an account name, compared in normalized form.
func (x *Index) Lookup(name string) (Entry, bool) {
	e, ok := x.entries[naming.AccountKey(name)]
	return e, ok
}

// UpdateLocation writes locationID into the entry's location-id cell and
// returns the refreshed entry. The index is only changed after the write
// succeeds.
func (x *Index) UpdateLocation(ctx context.Context, entry Entry, locationID string) (Entry, error) {
	if entry.Row <= 0 {
		return entry, fmt.Errorf("%w: %q", ErrInvalidRow, entry.Name)
	}

	cell := ColumnLetter(x.origin.Col+x.locCol) + strconv.Itoa(entry.Row)
	if err := x.store.UpdateCell(ctx, cell, locationID); err != nil {
		return entry, fmt.Errorf("failed to update ledger cell %s: %w", cell, err)
	}

	entry.LocationID = locationID
	entry.Raw = setCell(entry.Raw, x.locCol, locationID)
	if entry.Key == "" {
		entry.Key = naming.AccountKey(entry.Name)
	}
	x.entries[entry.Key] = entry
	return entry, nil
}

// Append writes a new row laid out after the header and indexes it. Extra
// values are placed under headers that match their keys exactly; the
// account-name and location-id columns cannot be overridden. When the
// service's confirmation cannot be parsed the entry is still indexed, with
// Row 0.
func (x *Index) Append(ctx context.Context, name, locationID string, extra map[string]string) (Entry, error) {
	row := make([]any, len(x.header))
	for i, h := range x.header {
		row[i] = ""
		if v, ok := extra[h]; ok && i != x.nameCol && i != x.locCol {
			row[i] = v
		}
	}
	row[x.nameCol] = name
	row[x.locCol] = locationID

	updated, err := x.store.AppendRow(ctx, row)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to append ledger row: %w", err)
	}

	rowNum, _ := rowFromUpdatedRange(updated)
	e := Entry{
		Name:       name,
		Key:        naming.AccountKey(name),
		Row:        rowNum,
		LocationID: locationID,
		Raw:        row,
	}
	x.entries[e.Key] = e
	return e, nil
}

// Record stores locationID for name: in place when a row exists, appended
// otherwise. The boolean reports whether a row was appended.
func (x *Index) Record(ctx context.Context, name, locationID string, extra map[string]string) (Entry, bool, error) {
	if existing, ok := x.Lookup(name); ok && existing.Row > 0 {
		e, err := x.UpdateLocation(ctx, existing, locationID)
		return e, false, err
	}
	e, err := x.Append(ctx, name, locationID, extra)
	return e, err == nil, err
}

func indexOf(header []string, name string) int {
	for i, h := range header {
		if h == name {
			return i
		}
	}
	return -1
}

func cellAt(row []any, col int) string {
	if col >= len(row) {
		return ""
	}
	return cellString(row[col])
}

func setCell(row []any, col int, v any) []any {
	for len(row) <= col {
		row = append(row, "")
	}
	row[col] = v
	return row
}

// cellString renders an unformatted cell value. Numbers come back from the
// sheet as float64 and are printed without exponent or trailing zeros.
func cellString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}
