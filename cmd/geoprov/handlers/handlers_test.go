package handlers

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/require"

	"github.com/imamik/geoprov/internal/candidates"
	"github.com/imamik/geoprov/internal/config"
	"github.com/imamik/geoprov/internal/ledger"
	"github.com/imamik/geoprov/internal/logging"
	"github.com/imamik/geoprov/internal/platform/accounts"
	"github.com/imamik/geoprov/internal/platform/telephony"
	"github.com/imamik/geoprov/internal/provisioning"
)

// saveAndRestoreFactories restores every factory variable after the test.
func saveAndRestoreFactories(t *testing.T) {
	t.Helper()
	origLoadDotEnv := loadDotEnv
	origLoadConfig := loadConfig
	origLoadCandidates := loadCandidates
	origNewLogger := newLogger
	origNewLedgerStore := newLedgerStore
	origNewCheckpointBackend := newCheckpointBackend
	origNewAgency := newAgency
	origNewAccounts := newAccounts
	origNewTelephony := newTelephony
	origIsTerminal := isTerminal
	origConfirm := confirm
	origOutput := output
	origNow := now

	t.Cleanup(func() {
		loadDotEnv = origLoadDotEnv
		loadConfig = origLoadConfig
		loadCandidates = origLoadCandidates
		newLogger = origNewLogger
		newLedgerStore = origNewLedgerStore
		newCheckpointBackend = origNewCheckpointBackend
		newAgency = origNewAgency
		newAccounts = origNewAccounts
		newTelephony = origNewTelephony
		isTerminal = origIsTerminal
		confirm = origConfirm
		output = origOutput
		now = origNow
	})
}

// fakeSheet is an in-memory ledger.Store.
type fakeSheet struct {
	mu   sync.Mutex
	rows [][]any
}

func newFakeSheet(rows ...[]any) *fakeSheet {
	return &fakeSheet{rows: append([][]any{{"Account Name", "Location ID"}}, rows...)}
}

func (f *fakeSheet) ReadRows(_ context.Context) ([][]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]any, len(f.rows))
	for i, r := range f.rows {
		out[i] = append([]any(nil), r...)
	}
	return out, nil
}

func (f *fakeSheet) UpdateCell(_ context.Context, cell string, value any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var row int
	if _, err := fmt.Sscanf(cell, "B%d", &row); err != nil || row < 1 || row > len(f.rows) {
		return fmt.Errorf("unexpected cell %q", cell)
	}
	r := f.rows[row-1]
	for len(r) < 2 {
		r = append(r, "")
	}
	r[1] = value
	f.rows[row-1] = r
	return nil
}

func (f *fakeSheet) AppendRow(_ context.Context, row []any) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, row)
	n := len(f.rows)
	return fmt.Sprintf("Accounts!A%d:B%d", n, n), nil
}

// fakeAccounts is an in-memory account-management gateway.
type fakeAccounts struct {
	mu        sync.Mutex
	created   []string
	tokenReqs []accounts.TokenRequest
}

func (f *fakeAccounts) Create(_ context.Context, payload map[string]any) (*accounts.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name, _ := payload["name"].(string)
	f.created = append(f.created, name)
	return &accounts.Account{ID: fmt.Sprintf("loc-%d", len(f.created)), Name: name}, nil
}

func (f *fakeAccounts) IssueScopedToken(_ context.Context, req accounts.TokenRequest) (*accounts.ScopedToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokenReqs = append(f.tokenReqs, req)
	return &accounts.ScopedToken{AccessToken: "scoped-" + req.LocationID, TokenType: "Bearer", ExpiresIn: 86399}, nil
}

// fakeTelephony matches every name with an active account.
type fakeTelephony struct {
	mu     sync.Mutex
	closed []string
}

func (f *fakeTelephony) FindByName(_ context.Context, name string, _ telephony.FindOptions) (*telephony.Account, error) {
	return &telephony.Account{ID: "AC-" + name, Name: name, Status: "active"}, nil
}

func (f *fakeTelephony) Close(_ context.Context, id string) (*telephony.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = append(f.closed, id)
	return &telephony.Account{ID: id, Status: "closed"}, nil
}

// env wires the handlers to in-memory collaborators.
type env struct {
	cfg       *config.Config
	doc       *candidates.Document
	sheet     *fakeSheet
	accounts  *fakeAccounts
	telephony *fakeTelephony
	out       *bytes.Buffer
}

func setupEnv(t *testing.T) *env {
	t.Helper()
	saveAndRestoreFactories(t)

	e := &env{
		cfg: &config.Config{
			Ledger: config.LedgerConfig{
				SpreadsheetID:     "sheet-123",
				Tab:               "Accounts",
				Range:             "A:Z",
				AccountNameHeader: "Account Name",
				LocationIDHeader:  "Location ID",
			},
			Checkpoint: config.CheckpointConfig{Backend: config.BackendFile, Dir: t.TempDir()},
			Accounts:   config.AccountsConfig{TenantID: "company-1", AgencyToken: "agency-token"},
			Telephony:  config.TelephonyConfig{AccountSID: "AC0", AuthToken: "secret", LookupLimit: 5},
			Timeouts:   config.LoadTimeouts(),
		},
		doc: &candidates.Document{
			RegionKey:  "FL",
			RegionName: "Florida",
			Items: []candidates.Item{
				{Division: "Broward", Domain: "broward.example", Payload: candidates.Payload{"name": "Broward Plumbing"}},
				{Division: "Dade", Domain: "dade.example", Payload: candidates.Payload{"name": "Dade Plumbing"}},
			},
		},
		sheet:     newFakeSheet([]any{"Dade Plumbing", "loc-existing"}),
		accounts:  &fakeAccounts{},
		telephony: &fakeTelephony{},
		out:       &bytes.Buffer{},
	}

	loadDotEnv = func(string) error { return nil }
	loadConfig = func(string) (*config.Config, error) { return e.cfg, nil }
	loadCandidates = func(string) (*candidates.Document, error) { return e.doc, nil }
	newLogger = func(logging.Options) (logr.Logger, func(), error) { return logr.Discard(), func() {}, nil }
	newLedgerStore = func(context.Context, config.LedgerConfig) (ledger.Store, error) { return e.sheet, nil }
	newAccounts = func(config.AccountsConfig, accounts.Authorizer, *config.Timeouts) provisioning.AccountGateway {
		return e.accounts
	}
	newTelephony = func(config.TelephonyConfig, *config.Timeouts) provisioning.TelephonyGateway {
		return e.telephony
	}
	isTerminal = func() bool { return false }
	confirm = func(context.Context, string, string) (bool, error) {
		t.Fatal("confirm must not be called")
		return false, nil
	}
	output = e.out

	return e
}

func requireRows(t *testing.T, s *fakeSheet, n int) {
	t.Helper()
	rows, err := s.ReadRows(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, n)
}
