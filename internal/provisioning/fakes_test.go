package provisioning

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/imamik/geoprov/internal/checkpoint"
	"github.com/imamik/geoprov/internal/ledger"
	"github.com/imamik/geoprov/internal/platform/accounts"
	"github.com/imamik/geoprov/internal/platform/telephony"
)

// fakeAccounts records every call made to the account gateway.
type fakeAccounts struct {
	createErr map[string]error
	tokenErr  error
	// afterCreate runs once an account has been created, before Create returns.
	afterCreate func()

	creates   []string
	tokenReqs []accounts.TokenRequest
	nextID    int
}

func (f *fakeAccounts) Create(_ context.Context, payload map[string]any) (*accounts.Account, error) {
	name, _ := payload["name"].(string)
	f.creates = append(f.creates, name)
	if err := f.createErr[name]; err != nil {
		return nil, err
	}
	f.nextID++
	if f.afterCreate != nil {
		f.afterCreate()
	}
	return &accounts.Account{ID: fmt.Sprintf("loc-new-%d", f.nextID), Name: name}, nil
}

func (f *fakeAccounts) IssueScopedToken(_ context.Context, req accounts.TokenRequest) (*accounts.ScopedToken, error) {
	f.tokenReqs = append(f.tokenReqs, req)
	if f.tokenErr != nil {
		return nil, f.tokenErr
	}
	return &accounts.ScopedToken{AccessToken: "scoped-" + req.LocationID, TokenType: "Bearer", ExpiresIn: 86399}, nil
}

// mockTelephony is a testify mock of the telephony gateway.
type mockTelephony struct {
	mock.Mock
}

func (m *mockTelephony) FindByName(ctx context.Context, name string, opts telephony.FindOptions) (*telephony.Account, error) {
	args := m.Called(ctx, name, opts)
	acct, _ := args.Get(0).(*telephony.Account)
	return acct, args.Error(1)
}

func (m *mockTelephony) Close(ctx context.Context, id string) (*telephony.Account, error) {
	args := m.Called(ctx, id)
	acct, _ := args.Get(0).(*telephony.Account)
	return acct, args.Error(1)
}

// noTelephony returns a mock where no account is ever found.
func noTelephony() *mockTelephony {
	m := &mockTelephony{}
	m.On("FindByName", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("%w: test", telephony.ErrNotFound))
	return m
}

// fakeSheet is an in-memory ledger.Store. Writes fail under a cancelled
// context.
type fakeSheet struct {
	rows      [][]any
	updateErr error
	appendErr error

	reads   int
	updates map[string]any
	appends [][]any
}

func newFakeSheet(rows ...[]any) *fakeSheet {
	all := [][]any{{"Account Name", "Location ID", "Region", "Division", "Run ID"}}
	return &fakeSheet{rows: append(all, rows...), updates: map[string]any{}}
}

func (f *fakeSheet) ReadRows(context.Context) ([][]any, error) {
	f.reads++
	return f.rows, nil
}

func (f *fakeSheet) UpdateCell(ctx context.Context, cell string, value any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates[cell] = value

	col := int(cell[0] - 'A')
	row, err := strconv.Atoi(cell[1:])
	if err != nil || row < 1 || row > len(f.rows) {
		return fmt.Errorf("bad cell %q", cell)
	}
	for len(f.rows[row-1]) <= col {
		f.rows[row-1] = append(f.rows[row-1], "")
	}
	f.rows[row-1][col] = value
	return nil
}

func (f *fakeSheet) AppendRow(ctx context.Context, row []any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if f.appendErr != nil {
		return "", f.appendErr
	}
	f.rows = append(f.rows, row)
	f.appends = append(f.appends, row)
	n := len(f.rows)
	return fmt.Sprintf("Accounts!A%d:E%d", n, n), nil
}

func loadIndex(t *testing.T, sheet *fakeSheet) *ledger.Index {
	t.Helper()
	idx, err := ledger.Load(context.Background(), sheet, ledger.Layout{
		Range:             "A:E",
		AccountNameHeader: "Account Name",
		LocationIDHeader:  "Location ID",
	})
	require.NoError(t, err)
	return idx
}

// memBackend is an in-memory checkpoint.Backend counting saves. Like a
// network backend it refuses to save under a cancelled context.
type memBackend struct {
	mu      sync.Mutex
	data    map[string][]byte
	saves   int
	saveErr error
}

func newMemBackend() *memBackend {
	return &memBackend{data: map[string][]byte{}}
}

func (b *memBackend) Load(_ context.Context, group string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	d, ok := b.data[group]
	if !ok {
		return nil, checkpoint.ErrNotExist
	}
	return d, nil
}

func (b *memBackend) Save(ctx context.Context, group string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.saveErr != nil {
		return b.saveErr
	}
	b.saves++
	b.data[group] = append([]byte(nil), data...)
	return nil
}

func (b *memBackend) Location(group string) string { return "mem://" + group }

// recordingObserver records every event, sharing the log with derived observers.
type recordingObserver struct {
	mu     *sync.Mutex
	events *[]Event
	fields map[string]string
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{mu: &sync.Mutex{}, events: &[]Event{}, fields: map[string]string{}}
}

func (r *recordingObserver) Event(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	merged := map[string]string{}
	for k, v := range r.fields {
		merged[k] = v
	}
	for k, v := range e.Fields {
		merged[k] = v
	}
	e.Fields = merged
	*r.events = append(*r.events, e)
}

func (r *recordingObserver) WithFields(fields map[string]string) Observer {
	merged := map[string]string{}
	for k, v := range r.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &recordingObserver{mu: r.mu, events: r.events, fields: merged}
}

func (r *recordingObserver) types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventType, 0, len(*r.events))
	for _, e := range *r.events {
		out = append(out, e.Type)
	}
	return out
}

var errBoom = errors.New("boom")
