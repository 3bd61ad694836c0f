// Package sheets adapts a Google Sheets tab to the ledger.Store interface.
//
// Reads use unformatted values so location identifiers that look numeric
// are not reformatted by the sheet. Writes are RAW single-cell updates or
// single-row appends that insert new rows.
package sheets

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Client reads and writes one tab of one spreadsheet.
type Client struct {
	values        *sheets.SpreadsheetsValuesService
	spreadsheetID string
	tab           string
	rng           string
}

// NewClient creates a client for spreadsheetID, addressing tab and the A1
// column range rng (e.g. "A:Z").
func NewClient(ctx context.Context, spreadsheetID, tab, rng string, opts ...option.ClientOption) (*Client, error) {
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	return &Client{
		values:        svc.Spreadsheets.Values,
		spreadsheetID: spreadsheetID,
		tab:           tab,
		rng:           rng,
	}, nil
}

// CredentialOptions returns client options for a service account key file,
// or none to use application default credentials.
func CredentialOptions(credentialsFile string) []option.ClientOption {
	opts := []option.ClientOption{option.WithScopes(sheets.SpreadsheetsScope)}
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	return opts
}

// ReadRows returns the unformatted values of the configured range.
func (c *Client) ReadRows(ctx context.Context) ([][]any, error) {
	resp, err := c.values.Get(c.spreadsheetID, c.qualify(c.rng)).
		ValueRenderOption("UNFORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", c.qualify(c.rng), err)
	}
	return resp.Values, nil
}

// UpdateCell writes a single value at cell, e.g. "C12".
func (c *Client) UpdateCell(ctx context.Context, cell string, value any) error {
	vr := &sheets.ValueRange{Values: [][]interface{}{{value}}}
	_, err := c.values.Update(c.spreadsheetID, c.qualify(cell), vr).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", c.qualify(cell), err)
	}
	return nil
}

// AppendRow appends one row below the table and returns the updated range.
// A successful response without an updates block returns "": the row was
// written even though its position is unknown.
func (c *Client) AppendRow(ctx context.Context, row []any) (string, error) {
	vr := &sheets.ValueRange{Values: [][]interface{}{row}}
	resp, err := c.values.Append(c.spreadsheetID, c.qualify(c.rng), vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("failed to append to %s: %w", c.qualify(c.rng), err)
	}
	if resp.Updates == nil {
		return "", nil
	}
	return resp.Updates.UpdatedRange, nil
}

// qualify prefixes a reference with the tab name, quoting it when needed.
func (c *Client) qualify(ref string) string {
	return quoteTab(c.tab) + "!" + ref
}

func quoteTab(tab string) string {
	plain := tab != "" && strings.IndexFunc(tab, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	}) < 0
	if plain {
		return tab
	}
	return "'" + strings.ReplaceAll(tab, "'", "''") + "'"
}
