// Package ledger maintains an in-memory index over the spreadsheet that maps
// account names to provisioned location identifiers.
//
// The index is loaded once per run and is the only path through which the
// run reads or writes the ledger. Every mutation is written to the remote
// sheet first and then reflected in the index, so a candidate processed
// later in the same run observes rows appended earlier without re-reading
// the sheet.
//
// Rows are keyed by [naming.AccountKey]. When two rows normalize to the same
// key, the row carrying a location identifier wins.
package ledger
