package provisioning

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"

	"github.com/imamik/geoprov/internal/candidates"
	"github.com/imamik/geoprov/internal/checkpoint"
	"github.com/imamik/geoprov/internal/credentials"
	"github.com/imamik/geoprov/internal/ledger"
	"github.com/imamik/geoprov/internal/platform/accounts"
	"github.com/imamik/geoprov/internal/platform/telephony"
	"github.com/imamik/geoprov/internal/util/naming"
)

// ErrNoName is the failure of a candidate whose payload has no name.
var ErrNoName = errors.New("candidate payload has no name")

// Ledger headers filled on appended rows when present in the sheet.
const (
	HeaderRegion   = "Region"
	HeaderDivision = "Division"
	HeaderDomain   = "Domain"
	HeaderRunID    = "Run ID"
)

// Stage names.
const (
	StageCreate     = "create"
	StageCheckpoint = "checkpoint"
	StageLedger     = "ledger"
	StageTelephony  = "telephony"
	StageToken      = "token"
)

// Options controls a run.
type Options struct {
	// DryRun suppresses the telephony close and the token request.
	DryRun bool
	// Resume enables the checkpoint gate.
	Resume bool
	// LookupLimit is the page size of the telephony lookup.
	LookupLimit int
}

// Deps are the collaborators of an Orchestrator. Observer and Metrics are
// optional.
type Deps struct {
	Accounts    AccountGateway
	Telephony   TelephonyGateway
	Ledger      LedgerIndex
	Checkpoints CheckpointStore
	Agency      *credentials.Agency
	Observer    Observer
	Metrics     *Metrics
}

// stage is one step of the fixed pipeline. A failing critical stage ends
// the candidate as Failed; other stages only record a warning. run reports
// whether the stage reached its state. A detached stage runs with a context
// that ignores cancellation, so an account that was created is always
// recorded.
type stage struct {
	name     string
	reaches  State
	critical bool
	detached bool
	run      func(ctx context.Context, cr *candidateRun) (bool, error)
}

// Orchestrator runs candidates through the pipeline one at a time.
type Orchestrator struct {
	deps   Deps
	opts   Options
	stages []stage
	now    func() time.Time
}

// New creates an orchestrator.
func New(deps Deps, opts Options) *Orchestrator {
	if deps.Observer == nil {
		deps.Observer = NewLogObserver(logr.Discard())
	}
	o := &Orchestrator{deps: deps, opts: opts, now: time.Now}
	o.stages = []stage{
		{name: StageCreate, reaches: StateCreated, critical: true, run: o.create},
		// Not critical: the ledger write-back that follows also guards
		// against re-creation.
		{name: StageCheckpoint, reaches: StateCreated, detached: true, run: o.persistCheckpoint},
		{name: StageLedger, reaches: StateLedgerSynced, critical: true, detached: true, run: o.syncLedger},
		{name: StageTelephony, reaches: StateTelephonyChecked, run: o.reconcileTelephony},
		{name: StageToken, reaches: StateTokenFetched, run: o.fetchToken},
	}
	return o
}

// candidateRun is the working state of one candidate.
type candidateRun struct {
	rc        RunContext
	cand      candidates.Candidate
	name      string
	key       string
	group     string
	record    *checkpoint.Record
	row       ledger.Entry
	hasRow    bool
	account   *accounts.Account
	skipToken bool
	obs       Observer
	out       *Outcome
}

// Run processes the candidates of doc in order. Stage failures are
// reported in the summary, never returned; the error is non-nil only when
// ctx ends the run early.
func (o *Orchestrator) Run(ctx context.Context, rc RunContext, doc *candidates.Document) (*Summary, error) {
	summary := &Summary{
		RunID:     rc.ID,
		RegionKey: doc.RegionKey,
		DryRun:    o.opts.DryRun,
		Resume:    o.opts.Resume,
		StartedAt: rc.StartedAt,
	}
	obs := o.deps.Observer.WithFields(map[string]string{"run": rc.ID})
	obs.Event(Event{
		Type:    EventRunStarted,
		Message: fmt.Sprintf("provisioning %d candidates", len(doc.Items)),
		Fields: map[string]string{
			"region": doc.RegionKey,
			"dryRun": fmt.Sprint(o.opts.DryRun),
			"resume": fmt.Sprint(o.opts.Resume),
		},
	})

	records := make(map[string]*checkpoint.Record)
	var runErr error
	for _, cand := range doc.Candidates() {
		if err := ctx.Err(); err != nil {
			summary.Interrupted = true
			runErr = err
			break
		}

		group := naming.CheckpointGroup(cand.RegionKey)
		rec, ok := records[group]
		if !ok {
			rec = o.deps.Checkpoints.Read(ctx, group)
			records[group] = rec
		}

		out := o.runCandidate(ctx, rc, cand, group, rec, obs)
		o.deps.Metrics.recordOutcome(doc.RegionKey, out)
		summary.Outcomes = append(summary.Outcomes, out)
	}

	finished := o.now()
	summary.Elapsed = finished.Sub(rc.StartedAt)
	o.deps.Metrics.recordRun(summary, finished)
	obs.Event(Event{
		Type:    EventRunCompleted,
		Message: "provisioning finished",
		Fields: map[string]string{
			"elapsed":     summary.Elapsed.Round(time.Millisecond).String(),
			"created":     fmt.Sprint(summary.Created()),
			"skipped":     fmt.Sprint(summary.Count(StateSkipped)),
			"failed":      fmt.Sprint(summary.Count(StateFailed)),
			"interrupted": fmt.Sprint(summary.Interrupted),
		},
	})
	return summary, runErr
}

func (o *Orchestrator) runCandidate(ctx context.Context, rc RunContext, cand candidates.Candidate, group string, rec *checkpoint.Record, obs Observer) Outcome {
	start := o.now()
	out := Outcome{Candidate: cand, State: StatePending}
	cr := &candidateRun{
		rc:     rc,
		cand:   cand,
		name:   cand.Name(),
		key:    checkpoint.Key(cand.RegionKey, cand.Division, cand.Domain),
		group:  group,
		record: rec,
		obs: obs.WithFields(map[string]string{
			"division": cand.Division,
			"domain":   cand.Domain,
		}),
		out: &out,
	}
	label := cand.String()

	defer func() {
		out.Elapsed = o.now().Sub(start)
		cr.obs.Event(Event{
			Type:      EventCandidateDone,
			Candidate: label,
			Message:   "candidate done",
			Fields: map[string]string{
				"state":   out.State.String(),
				"elapsed": out.Elapsed.Round(time.Millisecond).String(),
			},
		})
	}()

	if cr.name == "" {
		out.State = StateFailed
		out.Stage = StageCreate
		out.Err = ErrNoName
		logFailed(cr.obs, label, StageCreate, ErrNoName, o.now().Sub(start))
		return out
	}

	if skipped := o.gate(cr); skipped {
		return out
	}

	out.advance(StateCreating)
	for _, st := range o.stages {
		stageCtx := ctx
		if st.detached {
			stageCtx = context.WithoutCancel(ctx)
		}
		stageStart := o.now()
		reached, err := st.run(stageCtx, cr)
		o.deps.Metrics.observeStage(st.name, err, o.now().Sub(stageStart))

		if err != nil && st.critical {
			out.State = StateFailed
			out.Stage = st.name
			out.Err = err
			logFailed(cr.obs, label, st.name, err, o.now().Sub(start))
			return out
		}
		if err != nil {
			out.Warnings = append(out.Warnings, fmt.Errorf("%s: %w", st.name, err))
			logWarning(cr.obs, label, st.name, fmt.Sprintf("%s stage failed, continuing", st.name), err)
		}
		if reached {
			out.advance(st.reaches)
		}
	}
	return out
}

// gate applies the dedup gates and reports whether the candidate was skipped.
func (o *Orchestrator) gate(cr *candidateRun) bool {
	label := cr.cand.String()

	if row, ok := o.deps.Ledger.Lookup(cr.name); ok {
		cr.row, cr.hasRow = row, true
		if row.Provisioned() {
			cr.out.State = StateSkipped
			cr.out.SkipReason = SkipLedger
			cr.out.LocationID = row.LocationID
			cr.out.LedgerRow = row.Row
			logSkipped(cr.obs, label, SkipLedger, row.LocationID)
			return true
		}
	}

	if o.opts.Resume {
		if e, ok := cr.record.Get(cr.key); ok && e.Done() {
			cr.out.State = StateSkipped
			cr.out.SkipReason = SkipCheckpoint
			cr.out.LocationID = e.LocationID
			logSkipped(cr.obs, label, SkipCheckpoint, e.LocationID)
			return true
		}
	}
	return false
}

func (o *Orchestrator) create(ctx context.Context, cr *candidateRun) (bool, error) {
	label := cr.cand.String()
	cr.obs.Event(Event{
		Type:      EventCandidateCreating,
		Stage:     StageCreate,
		Candidate: label,
		Message:   fmt.Sprintf("creating account %q", cr.name),
	})

	acct, err := o.deps.Accounts.Create(ctx, cr.cand.Payload)
	if err != nil {
		return false, err
	}
	if acct.Name == "" {
		acct.Name = cr.name
	}
	cr.account = acct
	cr.out.LocationID = acct.ID

	cr.obs.Event(Event{
		Type:      EventCandidateCreated,
		Stage:     StageCreate,
		Candidate: label,
		Message:   "account created",
		Fields: map[string]string{
			"locationId": acct.ID,
			"name":       acct.Name,
		},
	})
	return true, nil
}

func (o *Orchestrator) persistCheckpoint(ctx context.Context, cr *candidateRun) (bool, error) {
	cr.record.Put(cr.key, checkpoint.Entry{
		Division:    cr.cand.Division,
		Domain:      cr.cand.Domain,
		LocationID:  cr.account.ID,
		DisplayName: cr.account.Name,
		RunID:       cr.rc.ID,
		CreatedAt:   o.now().UTC(),
	})
	if err := o.deps.Checkpoints.Write(ctx, cr.group, cr.record); err != nil {
		return false, err
	}
	cr.obs.Event(Event{
		Type:      EventCheckpointWritten,
		Stage:     StageCheckpoint,
		Candidate: cr.cand.String(),
		Message:   "checkpoint written",
		Fields:    map[string]string{"key": cr.key},
	})
	return true, nil
}

func (o *Orchestrator) syncLedger(ctx context.Context, cr *candidateRun) (bool, error) {
	extra := map[string]string{
		HeaderRegion:   cr.cand.RegionKey,
		HeaderDivision: cr.cand.Division,
		HeaderDomain:   cr.cand.Domain,
		HeaderRunID:    cr.rc.ID,
	}
	entry, appended, err := o.deps.Ledger.Record(ctx, cr.name, cr.account.ID, extra)
	if err != nil {
		return false, err
	}
	cr.out.LedgerRow = entry.Row
	cr.out.LedgerAppended = appended

	evt := EventLedgerUpdated
	msg := "ledger row updated"
	if appended {
		evt = EventLedgerAppended
		msg = "ledger row appended"
	}
	cr.obs.Event(Event{
		Type:      evt,
		Stage:     StageLedger,
		Candidate: cr.cand.String(),
		Message:   msg,
		Fields:    map[string]string{"row": fmt.Sprint(entry.Row)},
	})
	return true, nil
}

func (o *Orchestrator) reconcileTelephony(ctx context.Context, cr *candidateRun) (bool, error) {
	label := cr.cand.String()
	name := cr.account.Name

	acct, err := o.deps.Telephony.FindByName(ctx, name, telephony.FindOptions{
		Exact: true,
		Limit: o.opts.LookupLimit,
	})
	if errors.Is(err, telephony.ErrNotFound) {
		cr.skipToken = true
		cr.out.TelephonyMissing = true
		cr.obs.Event(Event{
			Type:      EventTelephonyMissing,
			Stage:     StageTelephony,
			Candidate: label,
			Message:   fmt.Sprintf("no telephony account named %q", name),
		})
		return true, nil
	}
	if err != nil {
		return true, fmt.Errorf("lookup: %w", err)
	}

	cr.obs.Event(Event{
		Type:      EventTelephonyMatched,
		Stage:     StageTelephony,
		Candidate: label,
		Message:   "telephony account matched",
		Fields: map[string]string{
			"sid":    acct.ID,
			"status": acct.Status,
		},
	})

	switch {
	case acct.Closed():
		return true, nil
	case o.opts.DryRun:
		cr.obs.Event(Event{
			Type:      EventDryRunSuppressed,
			Stage:     StageTelephony,
			Candidate: label,
			Message:   "dry run, telephony account left open",
			Fields:    map[string]string{"sid": acct.ID},
		})
		return true, nil
	}

	closed, err := o.deps.Telephony.Close(ctx, acct.ID)
	if err != nil {
		return true, fmt.Errorf("close: %w", err)
	}
	cr.out.TelephonyClosedID = closed.ID
	cr.record.Amend(cr.key, func(e *checkpoint.Entry) {
		e.TelephonyClosedID = closed.ID
	})
	cr.obs.Event(Event{
		Type:      EventTelephonyClosed,
		Stage:     StageTelephony,
		Candidate: label,
		Message:   "telephony account closed",
		Fields: map[string]string{
			"sid":    closed.ID,
			"status": closed.Status,
		},
	})
	if err := o.deps.Checkpoints.Write(context.WithoutCancel(ctx), cr.group, cr.record); err != nil {
		return true, fmt.Errorf("persist closed id: %w", err)
	}
	return true, nil
}

// fetchToken is optional: it reports false without error whenever the
// token cannot be requested, and false with an error when the request
// failed. Only a present token is written to the checkpoint.
func (o *Orchestrator) fetchToken(ctx context.Context, cr *candidateRun) (bool, error) {
	var reason string
	switch {
	case cr.skipToken:
		reason = "telephony account missing"
	case !o.deps.Agency.Ready():
		reason = "agency credential or tenant id not configured"
	case o.opts.DryRun:
		reason = "dry run"
	}
	if reason != "" {
		cr.obs.Event(Event{
			Type:      EventTokenSkipped,
			Stage:     StageToken,
			Candidate: cr.cand.String(),
			Message:   "token not requested: " + reason,
		})
		return false, nil
	}

	tok, err := o.requestToken(ctx, cr.account.ID)
	if err != nil {
		return false, err
	}

	fetched := o.now().UTC()
	cr.record.Amend(cr.key, func(e *checkpoint.Entry) {
		e.Token = &checkpoint.TokenSnapshot{
			AccessToken: tok.AccessToken,
			TokenType:   tok.TokenType,
			ExpiresIn:   tok.ExpiresIn,
		}
		e.TokenFetchedAt = &fetched
	})
	if err := o.deps.Checkpoints.Write(context.WithoutCancel(ctx), cr.group, cr.record); err != nil {
		return false, fmt.Errorf("persist token: %w", err)
	}
	cr.out.TokenFetched = true

	cr.obs.Event(Event{
		Type:      EventTokenFetched,
		Stage:     StageToken,
		Candidate: cr.cand.String(),
		Message:   "scoped token stored",
		Fields:    map[string]string{"expiresIn": fmt.Sprint(tok.ExpiresIn)},
	})
	return true, nil
}

func (o *Orchestrator) requestToken(ctx context.Context, locationID string) (*accounts.ScopedToken, error) {
	agencyToken, err := o.deps.Agency.Token(ctx)
	if err != nil {
		return nil, err
	}
	return o.deps.Accounts.IssueScopedToken(ctx, accounts.TokenRequest{
		TenantID:          o.deps.Agency.TenantID,
		LocationID:        locationID,
		AgencyAccessToken: agencyToken,
	})
}
