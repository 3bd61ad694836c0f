package handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/imamik/geoprov/internal/candidates"
	"github.com/imamik/geoprov/internal/checkpoint"
	"github.com/imamik/geoprov/internal/ledger"
	"github.com/imamik/geoprov/internal/util/async"
	"github.com/imamik/geoprov/internal/util/naming"
)

// Candidate statuses reported by Status.
const (
	StatusProvisioned     = "provisioned"
	StatusTokenMissing    = "token-missing"
	StatusCreatedUnsynced = "created-unsynced"
	StatusPending         = "pending"
)

// StatusOptions holds the flags of the status command.
type StatusOptions struct {
	CandidatesPath string
	ConfigPath     string
	JSON           bool
}

// candidateStatus is one line of the status report.
type candidateStatus struct {
	Candidate            string `json:"candidate"`
	Name                 string `json:"name"`
	Division             string `json:"division"`
	Domain               string `json:"domain"`
	LedgerRow            int    `json:"ledgerRow,omitempty"`
	LedgerLocationID     string `json:"ledgerLocationId,omitempty"`
	CheckpointLocationID string `json:"checkpointLocationId,omitempty"`
	Token                bool   `json:"token"`
	Status               string `json:"status"`
}

// statusReport is the full status output.
type statusReport struct {
	RegionKey  string            `json:"regionKey"`
	Checkpoint string            `json:"checkpoint"`
	Candidates []candidateStatus `json:"candidates"`
}

// Status compares a candidate document against the ledger and the
// checkpoint record without modifying either.
func Status(ctx context.Context, opts StatusOptions) error {
	cfg, doc, err := loadSettings(opts.ConfigPath, opts.CandidatesPath)
	if err != nil {
		return err
	}

	store, err := openCheckpoints(ctx, cfg, logr.Discard())
	if err != nil {
		return err
	}

	group := naming.CheckpointGroup(doc.RegionKey)
	var (
		index *ledger.Index
		rec   *checkpoint.Record
	)
	err = async.Parallel(ctx,
		async.Step{Name: "ledger", Run: func(ctx context.Context) error {
			var err error
			index, err = openLedger(ctx, cfg)
			return err
		}},
		async.Step{Name: "checkpoints", Run: func(ctx context.Context) error {
			rec = store.Read(ctx, group)
			return nil
		}},
	)
	if err != nil {
		return err
	}

	report := buildStatusReport(doc, index, rec)
	report.Checkpoint = store.Location(group)

	if opts.JSON {
		enc := json.NewEncoder(output)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	fmt.Fprint(output, renderStatusReport(report))
	return nil
}

// ledgerLookup is the read side of the ledger index.
type ledgerLookup interface {
	Lookup(name string) (ledger.Entry, bool)
}

func buildStatusReport(doc *candidates.Document, index ledgerLookup, rec *checkpoint.Record) *statusReport {
	report := &statusReport{RegionKey: doc.RegionKey}
	for _, cand := range doc.Candidates() {
		cs := candidateStatus{
			Candidate: cand.String(),
			Name:      cand.Name(),
			Division:  cand.Division,
			Domain:    cand.Domain,
		}
		row, inLedger := index.Lookup(cs.Name)
		if inLedger {
			cs.LedgerRow = row.Row
			cs.LedgerLocationID = row.LocationID
		}
		cp, inCheckpoint := rec.Get(checkpoint.Key(cand.RegionKey, cand.Division, cand.Domain))
		if inCheckpoint {
			cs.CheckpointLocationID = cp.LocationID
			cs.Token = cp.Token != nil && cp.Token.AccessToken != ""
		}
		cs.Status = deriveStatus(inLedger && row.Provisioned(), inCheckpoint && cp.Done(), cs.Token)
		report.Candidates = append(report.Candidates, cs)
	}
	return report
}

func deriveStatus(ledgerProvisioned, checkpointed, token bool) string {
	switch {
	case ledgerProvisioned && token:
		return StatusProvisioned
	case ledgerProvisioned:
		return StatusTokenMissing
	case checkpointed:
		return StatusCreatedUnsynced
	default:
		return StatusPending
	}
}
