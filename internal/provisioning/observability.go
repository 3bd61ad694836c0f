package provisioning

import (
	"fmt"
	"sort"
	"time"

	"github.com/go-logr/logr"

	"github.com/imamik/geoprov/internal/platform/accounts"
	"github.com/imamik/geoprov/internal/platform/telephony"
)

// Observer receives the structured narrative of a run.
type Observer interface {
	// Event emits a structured event
	Event(event Event)

	// WithFields returns a new Observer with additional context fields
	WithFields(fields map[string]string) Observer
}

// Event represents a structured provisioning event.
type Event struct {
	Type      EventType         // Type of event
	Stage     string            // Stage name (e.g., "create", "ledger")
	Candidate string            // Candidate identity if applicable
	Message   string            // Human-readable message
	Err       error             // Error for failure and warning events
	Timestamp time.Time         // When the event occurred
	Fields    map[string]string // Additional contextual fields
}

// EventType represents the type of provisioning event.
type EventType string

const (
	// EventRunStarted indicates a run has started.
	EventRunStarted EventType = "run.started"
	// EventRunCompleted indicates a run finished, interrupted or not.
	EventRunCompleted EventType = "run.completed"

	// EventCandidateSkipped indicates a dedup gate skipped a candidate.
	EventCandidateSkipped EventType = "candidate.skipped"
	// EventCandidateCreating indicates account creation is starting.
	EventCandidateCreating EventType = "candidate.creating"
	// EventCandidateCreated indicates the account was created.
	EventCandidateCreated EventType = "candidate.created"
	// EventCandidateFailed indicates a mandatory stage failed.
	EventCandidateFailed EventType = "candidate.failed"
	// EventCandidateDone indicates the candidate left the pipeline.
	EventCandidateDone EventType = "candidate.done"

	// EventCheckpointWritten indicates the checkpoint record was persisted.
	EventCheckpointWritten EventType = "checkpoint.written"

	// EventLedgerUpdated indicates an existing ledger row was updated.
	EventLedgerUpdated EventType = "ledger.updated"
	// EventLedgerAppended indicates a new ledger row was appended.
	EventLedgerAppended EventType = "ledger.appended"

	// EventTelephonyMatched indicates a paired telephony account was found.
	EventTelephonyMatched EventType = "telephony.matched"
	// EventTelephonyClosed indicates the telephony account was closed.
	EventTelephonyClosed EventType = "telephony.closed"
	// EventTelephonyMissing indicates no paired telephony account exists.
	EventTelephonyMissing EventType = "telephony.missing"

	// EventTokenFetched indicates a scoped token was stored.
	EventTokenFetched EventType = "token.fetched"
	// EventTokenSkipped indicates the token stage did not run.
	EventTokenSkipped EventType = "token.skipped"

	// EventDryRunSuppressed indicates a mutating call was not made.
	EventDryRunSuppressed EventType = "dryrun.suppressed"

	// EventStageWarning indicates an optional stage failed.
	EventStageWarning EventType = "stage.warning"
)

// LogObserver implements Observer on top of a logr.Logger.
type LogObserver struct {
	log           logr.Logger
	contextFields map[string]string
}

// NewLogObserver creates an observer writing to log.
func NewLogObserver(log logr.Logger) *LogObserver {
	return &LogObserver{
		log:           log,
		contextFields: make(map[string]string),
	}
}

// Event implements Observer interface.
func (o *LogObserver) Event(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	kv := []any{"event", string(event.Type)}
	if event.Stage != "" {
		kv = append(kv, "stage", event.Stage)
	}
	if event.Candidate != "" {
		kv = append(kv, "candidate", event.Candidate)
	}
	kv = append(kv, sortedFields(o.contextFields, event.Fields)...)

	switch event.Type {
	case EventCandidateFailed:
		o.log.Error(event.Err, event.Message, kv...)
	case EventStageWarning:
		if event.Err != nil {
			kv = append(kv, "error", event.Err.Error())
		}
		o.log.Info(event.Message, kv...)
	case EventCheckpointWritten:
		o.log.V(1).Info(event.Message, kv...)
	default:
		o.log.Info(event.Message, kv...)
	}
}

// WithFields implements Observer interface.
func (o *LogObserver) WithFields(fields map[string]string) Observer {
	newFields := make(map[string]string, len(o.contextFields)+len(fields))
	for k, v := range o.contextFields {
		newFields[k] = v
	}
	for k, v := range fields {
		newFields[k] = v
	}
	return &LogObserver{log: o.log, contextFields: newFields}
}

// sortedFields merges context and event fields, event fields winning, into
// logr key/value pairs in key order.
func sortedFields(contextFields, eventFields map[string]string) []any {
	merged := make(map[string]string, len(contextFields)+len(eventFields))
	for k, v := range contextFields {
		merged[k] = v
	}
	for k, v := range eventFields {
		merged[k] = v
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	kv := make([]any, 0, 2*len(keys))
	for _, k := range keys {
		kv = append(kv, k, merged[k])
	}
	return kv
}

// Helper functions for common events

func logSkipped(observer Observer, candidate string, reason SkipReason, locationID string) {
	observer.Event(Event{
		Type:      EventCandidateSkipped,
		Candidate: candidate,
		Message:   fmt.Sprintf("already provisioned (%s)", reason),
		Fields: map[string]string{
			"reason":     string(reason),
			"locationId": locationID,
		},
	})
}

func logFailed(observer Observer, candidate, stage string, err error, elapsed time.Duration) {
	fields := errorFields(err)
	fields["elapsed"] = elapsed.Round(time.Millisecond).String()
	observer.Event(Event{
		Type:      EventCandidateFailed,
		Stage:     stage,
		Candidate: candidate,
		Message:   fmt.Sprintf("%s failed", stage),
		Err:       err,
		Fields:    fields,
	})
}

func logWarning(observer Observer, candidate, stage, message string, err error) {
	observer.Event(Event{
		Type:      EventStageWarning,
		Stage:     stage,
		Candidate: candidate,
		Message:   message,
		Err:       err,
		Fields:    errorFields(err),
	})
}

// errorFields flags provider errors an operator acts on: throttling and a
// rejected credential.
func errorFields(err error) map[string]string {
	fields := map[string]string{}
	if accounts.IsRateLimited(err) || telephony.IsRateLimited(err) {
		fields["rateLimited"] = "true"
	}
	if accounts.IsUnauthorized(err) {
		fields["unauthorized"] = "true"
	}
	return fields
}
