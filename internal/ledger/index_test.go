package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var defaultLayout = Layout{
	Range:             "A:Z",
	AccountNameHeader: "Account Name",
	LocationIDHeader:  "Location ID",
}

func sampleStore() *fakeStore {
	return &fakeStore{
		tab: "Accounts",
		rows: [][]any{
			{"Region", "Account Name", "Location ID", "Notes"},
			{"FL", "Miami-Dade Realty", "loc-1", ""},
			{"FL", "Broward Realty", "", "pending"},
			{"FL", "  broward   REALTY ", "loc-2"},
			{"FL", "Orange Realty", "loc-3"},
			{"FL", "orange realty", ""},
			{"FL", ""},
			{"FL", "Polk Realty", float64(12345)},
		},
	}
}

func TestLoad_BuildsIndex(t *testing.T) {
	t.Parallel()
	x, err := Load(context.Background(), sampleStore(), defaultLayout)
	require.NoError(t, err)

	assert.Equal(t, 4, x.Len())

	e, ok := x.Lookup("MIAMI-DADE realty")
	require.True(t, ok)
	assert.Equal(t, "loc-1", e.LocationID)
	assert.Equal(t, 2, e.Row)
	assert.True(t, e.Provisioned())

	polk, ok := x.Lookup("Polk Realty")
	require.True(t, ok)
	assert.Equal(t, "12345", polk.LocationID)

	_, ok = x.Lookup("Nowhere Realty")
	assert.False(t, ok)
}

func TestLoad_DuplicatePrefersPopulatedLocation(t *testing.T) {
	t.Parallel()
	x, err := Load(context.Background(), sampleStore(), defaultLayout)
	require.NoError(t, err)

	broward, ok := x.Lookup("Broward Realty")
	require.True(t, ok)
	assert.Equal(t, "loc-2", broward.LocationID, "later populated row wins over earlier empty row")
	assert.Equal(t, 4, broward.Row)

	orange, ok := x.Lookup("Orange Realty")
	require.True(t, ok)
	assert.Equal(t, "loc-3", orange.LocationID, "earlier populated row is not replaced by empty duplicate")
	assert.Equal(t, 5, orange.Row)
}

func TestLoad_MissingHeaders(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		header []any
	}{
		{"no account name", []any{"Name", "Location ID"}},
		{"no location id", []any{"Account Name", "Location"}},
		{"padded account name", []any{" Account Name", "Location ID"}},
		{"padded location id", []any{"Account Name", "Location ID "}},
		{"empty sheet", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			store := &fakeStore{}
			if tt.header != nil {
				store.rows = [][]any{tt.header}
			}
			_, err := Load(context.Background(), store, defaultLayout)
			assert.ErrorIs(t, err, ErrHeaderNotFound)
		})
	}
}

func TestLoad_ReadError(t *testing.T) {
	t.Parallel()
	sentinel := errors.New("quota exceeded")
	_, err := Load(context.Background(), &fakeStore{readErr: sentinel}, defaultLayout)
	assert.ErrorIs(t, err, sentinel)
}

func TestUpdateLocation_WritesSingleCellAndRefreshes(t *testing.T) {
	t.Parallel()
	store := sampleStore()
	x, err := Load(context.Background(), store, defaultLayout)
	require.NoError(t, err)

	entry := Entry{Name: "Lee Realty", Key: "lee realty", Row: 9}
	updated, err := x.UpdateLocation(context.Background(), entry, "loc-9")
	require.NoError(t, err)

	require.Len(t, store.updates, 1)
	assert.Equal(t, cellWrite{Cell: "C9", Value: "loc-9"}, store.updates[0])
	assert.Equal(t, "loc-9", updated.LocationID)
	assert.Equal(t, "loc-9", updated.Raw[2])

	got, ok := x.Lookup("Lee Realty")
	require.True(t, ok)
	assert.Equal(t, "loc-9", got.LocationID)
}

func TestUpdateLocation_OffsetRange(t *testing.T) {
	t.Parallel()
	store := &fakeStore{rows: [][]any{
		{"Account Name", "Notes", "Location ID"},
		{"Lee Realty", "", ""},
	}}
	x, err := Load(context.Background(), store, Layout{
		Range:             "C3:H",
		AccountNameHeader: "Account Name",
		LocationIDHeader:  "Location ID",
	})
	require.NoError(t, err)

	entry, ok := x.Lookup("Lee Realty")
	require.True(t, ok)
	assert.Equal(t, 4, entry.Row)

	_, err = x.UpdateLocation(context.Background(), entry, "loc-1")
	require.NoError(t, err)
	assert.Equal(t, "E4", store.updates[0].Cell)
}

func TestUpdateLocation_FailureLeavesIndexUnchanged(t *testing.T) {
	t.Parallel()
	store := sampleStore()
	x, err := Load(context.Background(), store, defaultLayout)
	require.NoError(t, err)
	store.updateErr = errors.New("rate limited")

	entry, _ := x.Lookup("Orange Realty")
	_, err = x.UpdateLocation(context.Background(), Entry{Name: "Nope", Key: "nope", Row: 0}, "loc")
	assert.ErrorIs(t, err, ErrInvalidRow)

	_, err = x.UpdateLocation(context.Background(), entry, "loc-new")
	require.Error(t, err)

	got, _ := x.Lookup("Orange Realty")
	assert.Equal(t, "loc-3", got.LocationID)
}

func TestAppend_LaysOutRowByHeader(t *testing.T) {
	t.Parallel()
	store := sampleStore()
	x, err := Load(context.Background(), store, defaultLayout)
	require.NoError(t, err)

	e, err := x.Append(context.Background(), "Lee Realty", "loc-7", map[string]string{
		"Region":       "FL",
		"Account Name": "ignored",
		"Unknown":      "dropped",
	})
	require.NoError(t, err)

	require.Len(t, store.appends, 1)
	assert.Equal(t, []any{"FL", "Lee Realty", "loc-7", ""}, store.appends[0])
	assert.Equal(t, 9, e.Row)
	assert.Equal(t, "loc-7", e.LocationID)

	got, ok := x.Lookup("lee realty")
	require.True(t, ok)
	assert.True(t, got.Provisioned())
	assert.Equal(t, 1, store.reads, "append must not re-read the ledger")
}

func TestAppend_UnparsableConfirmationStillIndexes(t *testing.T) {
	t.Parallel()
	store := sampleStore()
	store.appendRange = "Accounts!A:D"
	x, err := Load(context.Background(), store, defaultLayout)
	require.NoError(t, err)

	e, err := x.Append(context.Background(), "Lee Realty", "loc-7", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, e.Row)

	_, ok := x.Lookup("Lee Realty")
	assert.True(t, ok)
}

func TestAppend_Error(t *testing.T) {
	t.Parallel()
	store := sampleStore()
	x, err := Load(context.Background(), store, defaultLayout)
	require.NoError(t, err)
	store.appendErr = errors.New("permission denied")

	_, err = x.Append(context.Background(), "Lee Realty", "loc-7", nil)
	require.Error(t, err)

	_, ok := x.Lookup("Lee Realty")
	assert.False(t, ok)
}

func TestRecord(t *testing.T) {
	t.Parallel()
	store := sampleStore()
	x, err := Load(context.Background(), store, defaultLayout)
	require.NoError(t, err)

	e, appended, err := x.Record(context.Background(), "Broward Realty", "loc-20", nil)
	require.NoError(t, err)
	assert.False(t, appended)
	assert.Equal(t, "C4", store.updates[0].Cell)
	assert.Equal(t, "loc-20", e.LocationID)

	e, appended, err = x.Record(context.Background(), "Seminole Realty", "loc-21", nil)
	require.NoError(t, err)
	assert.True(t, appended)
	assert.Equal(t, "loc-21", e.LocationID)
	assert.Len(t, store.appends, 1)
}
