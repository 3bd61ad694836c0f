package checkpoint

import (
	"strings"
	"time"
)

// KeySeparator joins the parts of a composite key.
const KeySeparator = "|"

// Key derives the composite key of a division. Parts are lowercased and
// trimmed so the same division always maps to the same entry.
func Key(region, division, domain string) string {
	parts := []string{region, division, domain}
	for i, p := range parts {
		parts[i] = strings.ToLower(strings.TrimSpace(p))
	}
	return strings.Join(parts, KeySeparator)
}

// TokenSnapshot is the scoped access token captured after creation.
type TokenSnapshot struct {
	AccessToken string `json:"accessToken"`
	TokenType   string `json:"tokenType,omitempty"`
	ExpiresIn   int    `json:"expiresIn,omitempty"`
}

// Entry is the checkpoint of one division.
type Entry struct {
	Division    string    `json:"division"`
	Domain      string    `json:"domain"`
	LocationID  string    `json:"locationId"`
	DisplayName string    `json:"displayName"`
	RunID       string    `json:"runId"`
	CreatedAt   time.Time `json:"createdAt"`

	TelephonyClosedID string         `json:"telephonyClosedId,omitempty"`
	Token             *TokenSnapshot `json:"token,omitempty"`
	TokenFetchedAt    *time.Time     `json:"tokenFetchedAt,omitempty"`
}

// Done reports whether the division was created.
func (e Entry) Done() bool {
	return e.LocationID != ""
}

// Record is the checkpoint of one region.
type Record struct {
	Group     string           `json:"group"`
	UpdatedAt time.Time        `json:"updatedAt"`
	Entries   map[string]Entry `json:"entries"`
}

// NewRecord returns an empty record for a group.
func NewRecord(group string) *Record {
	return &Record{Group: group, Entries: make(map[string]Entry)}
}

// Get returns the entry stored under key.
func (r *Record) Get(key string) (Entry, bool) {
	e, ok := r.Entries[key]
	return e, ok
}

// Put stores an entry under key, replacing any previous one.
func (r *Record) Put(key string, e Entry) {
	if r.Entries == nil {
		r.Entries = make(map[string]Entry)
	}
	r.Entries[key] = e
}

// Amend applies fn to the entry stored under key. It reports false when
// there is no such entry.
func (r *Record) Amend(key string, fn func(*Entry)) bool {
	e, ok := r.Entries[key]
	if !ok {
		return false
	}
	fn(&e)
	r.Entries[key] = e
	return true
}
