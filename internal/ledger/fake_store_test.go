package ledger

import (
	"context"
	"fmt"
)

// fakeStore is an in-memory Store recording every write.
type fakeStore struct {
	rows      [][]any
	tab       string
	readErr   error
	updateErr error
	appendErr error
	// appendRange overrides the confirmation returned by AppendRow.
	appendRange string

	reads   int
	updates []cellWrite
	appends [][]any
}

type cellWrite struct {
	Cell  string
	Value any
}

func (f *fakeStore) ReadRows(_ context.Context) ([][]any, error) {
	f.reads++
	if f.readErr != nil {
		return nil, f.readErr
	}
	return f.rows, nil
}

func (f *fakeStore) UpdateCell(_ context.Context, cell string, value any) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates = append(f.updates, cellWrite{Cell: cell, Value: value})
	return nil
}

func (f *fakeStore) AppendRow(_ context.Context, row []any) (string, error) {
	if f.appendErr != nil {
		return "", f.appendErr
	}
	f.appends = append(f.appends, row)
	f.rows = append(f.rows, row)
	if f.appendRange != "" {
		return f.appendRange, nil
	}
	n := len(f.rows)
	return fmt.Sprintf("%s!A%d:%s%d", f.tab, n, ColumnLetter(len(row)-1), n), nil
}
