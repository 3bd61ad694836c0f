package provisioning

import (
	"context"

	"github.com/imamik/geoprov/internal/checkpoint"
	"github.com/imamik/geoprov/internal/ledger"
	"github.com/imamik/geoprov/internal/platform/accounts"
	"github.com/imamik/geoprov/internal/platform/telephony"
)

// AccountGateway creates accounts and issues scoped tokens.
// Implemented by internal/platform/accounts.Client.
type AccountGateway interface {
	Create(ctx context.Context, payload map[string]any) (*accounts.Account, error)
	IssueScopedToken(ctx context.Context, req accounts.TokenRequest) (*accounts.ScopedToken, error)
}

// TelephonyGateway finds and closes telephony accounts.
// Implemented by internal/platform/telephony.Client.
type TelephonyGateway interface {
	// FindByName returns telephony.ErrNotFound when nothing matches.
	FindByName(ctx context.Context, name string, opts telephony.FindOptions) (*telephony.Account, error)
	Close(ctx context.Context, id string) (*telephony.Account, error)
}

// LedgerIndex is the in-memory ledger snapshot.
// Implemented by internal/ledger.Index.
type LedgerIndex interface {
	Lookup(name string) (ledger.Entry, bool)
	// Record writes the location id back, updating the existing row or
	// appending a new one, and reports whether a row was appended.
	Record(ctx context.Context, name, locationID string, extra map[string]string) (ledger.Entry, bool, error)
}

// CheckpointStore reads and writes per-region checkpoint records.
// Implemented by internal/checkpoint.Store.
type CheckpointStore interface {
	Read(ctx context.Context, group string) *checkpoint.Record
	Write(ctx context.Context, group string, rec *checkpoint.Record) error
}
