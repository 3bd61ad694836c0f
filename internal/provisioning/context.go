package provisioning

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// RunContext identifies one invocation. It is provenance only and carries
// no state across runs.
type RunContext struct {
	ID        string
	StartedAt time.Time
}

// NewRunContext returns a run context with a fresh ULID.
func NewRunContext(now time.Time) RunContext {
	return RunContext{
		ID:        ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		StartedAt: now,
	}
}
