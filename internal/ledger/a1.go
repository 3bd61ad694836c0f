package ledger

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// ColumnLetter converts a zero-based column index to its A1 letters
// (0 → "A", 25 → "Z", 26 → "AA").
func ColumnLetter(index int) string {
	if index < 0 {
		return ""
	}
	var b []byte
	for n := index + 1; n > 0; n = (n - 1) / 26 {
		b = append([]byte{byte('A' + (n-1)%26)}, b...)
	}
	return string(b)
}

// ColumnIndex converts A1 column letters to a zero-based index.
func ColumnIndex(letters string) (int, error) {
	if letters == "" {
		return 0, fmt.Errorf("empty column reference")
	}
	n := 0
	for _, r := range strings.ToUpper(letters) {
		if r < 'A' || r > 'Z' {
			return 0, fmt.Errorf("invalid column reference %q", letters)
		}
		n = n*26 + int(r-'A'+1)
	}
	return n - 1, nil
}

// cellRef is a parsed A1 cell reference; Row is 0 when the reference names
// a whole column ("C" in "C:H").
type cellRef struct {
	Col int
	Row int
}

// parseCellRef parses "C", "C12" or "Accounts!C12".
func parseCellRef(ref string) (cellRef, error) {
	if i := strings.LastIndex(ref, "!"); i >= 0 {
		ref = ref[i+1:]
	}
	ref = strings.ReplaceAll(strings.TrimSpace(ref), "$", "")

	split := strings.IndexFunc(ref, unicode.IsDigit)
	letters, digits := ref, ""
	if split >= 0 {
		letters, digits = ref[:split], ref[split:]
	}

	col, err := ColumnIndex(letters)
	if err != nil {
		return cellRef{}, err
	}
	out := cellRef{Col: col}
	if digits != "" {
		row, err := strconv.Atoi(digits)
		if err != nil || row < 1 {
			return cellRef{}, fmt.Errorf("invalid row in reference %q", ref)
		}
		out.Row = row
	}
	return out, nil
}

// rangeStart returns the top-left cell of an A1 range such as "A:Z",
// "B2:H" or "Accounts!A1:F". A range without a row starts at row 1.
func rangeStart(a1 string) (cellRef, error) {
	if i := strings.LastIndex(a1, "!"); i >= 0 {
		a1 = a1[i+1:]
	}
	first, _, _ := strings.Cut(a1, ":")
	ref, err := parseCellRef(first)
	if err != nil {
		return cellRef{}, err
	}
	if ref.Row == 0 {
		ref.Row = 1
	}
	return ref, nil
}

// rowFromUpdatedRange extracts the first row number from a write
// confirmation range such as "Accounts!A15:F15".
func rowFromUpdatedRange(updated string) (int, error) {
	if i := strings.LastIndex(updated, "!"); i >= 0 {
		updated = updated[i+1:]
	}
	first, _, _ := strings.Cut(updated, ":")
	ref, err := parseCellRef(first)
	if err != nil {
		return 0, fmt.Errorf("unparsable updated range %q: %w", updated, err)
	}
	if ref.Row == 0 {
		return 0, fmt.Errorf("updated range %q has no row", updated)
	}
	return ref.Row, nil
}
