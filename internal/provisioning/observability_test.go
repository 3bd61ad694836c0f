package provisioning

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/go-logr/logr/funcr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/geoprov/internal/platform/accounts"
	"github.com/imamik/geoprov/internal/platform/telephony"
)

func captureLogger() (*LogObserver, func() []string) {
	var (
		mu    sync.Mutex
		lines []string
	)
	log := funcr.New(func(prefix, args string) {
		mu.Lock()
		defer mu.Unlock()
		lines = append(lines, args)
	}, funcr.Options{Verbosity: 1})
	return NewLogObserver(log), func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), lines...)
	}
}

func TestLogObserver_Event(t *testing.T) {
	t.Parallel()
	obs, lines := captureLogger()

	obs.WithFields(map[string]string{"run": "run-1"}).Event(Event{
		Type:      EventCandidateCreated,
		Stage:     StageCreate,
		Candidate: "FL/Dade (dade.example.com)",
		Message:   "account created",
		Fields:    map[string]string{"locationId": "loc-1"},
	})

	got := lines()
	assert.Len(t, got, 1)
	line := got[0]
	assert.Contains(t, line, `"msg"="account created"`)
	assert.Contains(t, line, `"event"="candidate.created"`)
	assert.Contains(t, line, `"stage"="create"`)
	assert.Contains(t, line, `"locationId"="loc-1"`)
	assert.Contains(t, line, `"run"="run-1"`)
	assert.Less(t, strings.Index(line, `"locationId"`), strings.Index(line, `"run"`), "fields are sorted")
}

func TestLogObserver_FailureAndWarning(t *testing.T) {
	t.Parallel()
	obs, lines := captureLogger()

	logFailed(obs, "FL/Dade", StageLedger, errBoom, 0)
	logWarning(obs, "FL/Dade", StageToken, "token stage failed, continuing", errBoom)

	got := lines()
	assert.Len(t, got, 2)
	assert.Contains(t, got[0], `"error"="boom"`)
	assert.Contains(t, got[0], `"event"="candidate.failed"`)
	assert.Contains(t, got[1], `"error"="boom"`)
	assert.Contains(t, got[1], `"event"="stage.warning"`)
	assert.NotContains(t, got[0], `"rateLimited"`)
	assert.NotContains(t, got[1], `"unauthorized"`)
}

func TestLogObserver_FlagsProviderErrors(t *testing.T) {
	t.Parallel()
	obs, lines := captureLogger()

	throttled := fmt.Errorf("create: %w", &accounts.APIError{Method: "POST", Path: "/locations/", StatusCode: http.StatusTooManyRequests})
	rejected := &accounts.APIError{Method: "POST", Path: "/oauth/locationToken", StatusCode: http.StatusUnauthorized}
	busy := fmt.Errorf("lookup: %w", &telephony.APIError{Method: "GET", Path: "/Accounts.json", StatusCode: http.StatusTooManyRequests})

	logFailed(obs, "FL/Dade", StageCreate, throttled, 0)
	logWarning(obs, "FL/Dade", StageToken, "token stage failed, continuing", rejected)
	logWarning(obs, "FL/Dade", StageTelephony, "telephony stage failed, continuing", busy)

	got := lines()
	require.Len(t, got, 3)
	assert.Contains(t, got[0], `"rateLimited"="true"`)
	assert.Contains(t, got[0], `"elapsed"=`)
	assert.Contains(t, got[1], `"unauthorized"="true"`)
	assert.NotContains(t, got[1], `"rateLimited"`)
	assert.Contains(t, got[2], `"rateLimited"="true"`)
}

func TestLogObserver_WithFieldsDoesNotLeak(t *testing.T) {
	t.Parallel()
	obs, lines := captureLogger()

	child := obs.WithFields(map[string]string{"division": "Dade"})
	obs.Event(Event{Type: EventRunStarted, Message: "start"})
	child.Event(Event{Type: EventCandidateSkipped, Message: "skip", Fields: map[string]string{"division": "override"}})

	got := lines()
	assert.NotContains(t, got[0], "division")
	assert.Contains(t, got[1], `"division"="override"`, "event fields win over context fields")
}

func TestSortedFields(t *testing.T) {
	t.Parallel()
	kv := sortedFields(map[string]string{"b": "1", "a": "ctx"}, map[string]string{"a": "evt"})
	assert.Equal(t, []any{"a", "evt", "b", "1"}, kv)
}
