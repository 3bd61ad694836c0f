package provisioning

import (
	"time"

	"github.com/imamik/geoprov/internal/candidates"
)

// State is the position of a candidate in the pipeline.
type State int

// States in pipeline order. Skipped and Failed are terminal.
const (
	StatePending State = iota
	StateCreating
	StateCreated
	StateLedgerSynced
	StateTelephonyChecked
	StateTokenFetched
	StateSkipped
	StateFailed
)

var stateNames = map[State]string{
	StatePending:          "pending",
	StateCreating:         "creating",
	StateCreated:          "created",
	StateLedgerSynced:     "ledger-synced",
	StateTelephonyChecked: "telephony-checked",
	StateTokenFetched:     "token-fetched",
	StateSkipped:          "skipped",
	StateFailed:           "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateSkipped || s == StateFailed || s == StateTokenFetched
}

// SkipReason says which gate skipped a candidate.
type SkipReason string

// Skip reasons.
const (
	SkipLedger     SkipReason = "ledger"
	SkipCheckpoint SkipReason = "checkpoint"
)

// Outcome is the result of one candidate.
type Outcome struct {
	Candidate candidates.Candidate
	State     State
	// Stage is the stage that failed, for Failed outcomes.
	Stage      string
	SkipReason SkipReason
	Err        error

	LocationID        string
	LedgerRow         int
	LedgerAppended    bool
	TelephonyClosedID string
	TelephonyMissing  bool
	TokenFetched      bool
	// Warnings collects errors from optional stages.
	Warnings []error

	Elapsed time.Duration
}

// advance moves the outcome forward; it never moves backwards.
func (o *Outcome) advance(s State) {
	if s > o.State && !o.State.Terminal() {
		o.State = s
	}
}

// Summary aggregates the outcomes of a run.
type Summary struct {
	RunID       string
	RegionKey   string
	DryRun      bool
	Resume      bool
	StartedAt   time.Time
	Elapsed     time.Duration
	Interrupted bool
	Outcomes    []Outcome
}

// Count returns the number of outcomes in state s.
func (s *Summary) Count(state State) int {
	n := 0
	for _, o := range s.Outcomes {
		if o.State == state {
			n++
		}
	}
	return n
}

// Created returns the number of candidates for which an account was created.
func (s *Summary) Created() int {
	n := 0
	for _, o := range s.Outcomes {
		if o.LocationID != "" && o.SkipReason == "" {
			n++
		}
	}
	return n
}

// Failed returns the failed outcomes.
func (s *Summary) Failed() []Outcome {
	var out []Outcome
	for _, o := range s.Outcomes {
		if o.State == StateFailed {
			out = append(out, o)
		}
	}
	return out
}
