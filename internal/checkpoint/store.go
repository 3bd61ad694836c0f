package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"

	"github.com/imamik/geoprov/internal/util/seal"
)

// Store reads and writes checkpoint records through a Backend.
type Store struct {
	backend Backend
	sealer  *seal.Sealer
	log     logr.Logger
	now     func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithSealer encrypts token snapshots before they are written.
func WithSealer(s *seal.Sealer) Option {
	return func(st *Store) { st.sealer = s }
}

// WithLogger sets the logger used to report unreadable records.
func WithLogger(log logr.Logger) Option {
	return func(st *Store) { st.log = log }
}

// NewStore returns a Store on top of backend.
func NewStore(backend Backend, opts ...Option) *Store {
	st := &Store{
		backend: backend,
		log:     logr.Discard(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(st)
	}
	return st
}

// Location describes where a group's record is stored.
func (s *Store) Location(group string) string {
	return s.backend.Location(group)
}

// Check verifies the backend's target when the backend supports it.
func (s *Store) Check(ctx context.Context) error {
	if c, ok := s.backend.(Checker); ok {
		return c.Check(ctx)
	}
	return nil
}

// Read returns the record of a group. A missing, unreadable or corrupt
// record yields an empty one; Read never fails.
func (s *Store) Read(ctx context.Context, group string) *Record {
	data, err := s.backend.Load(ctx, group)
	if err != nil {
		if !errors.Is(err, ErrNotExist) {
			s.log.Error(err, "checkpoint unreadable, starting empty", "location", s.Location(group))
		}
		return NewRecord(group)
	}

	rec := NewRecord(group)
	if err := json.Unmarshal(data, rec); err != nil {
		s.log.Error(err, "checkpoint corrupt, starting empty", "location", s.Location(group))
		return NewRecord(group)
	}
	if rec.Entries == nil {
		rec.Entries = make(map[string]Entry)
	}
	rec.Group = group

	s.openTokens(rec)
	return rec
}

// Write persists the full record of a group.
func (s *Store) Write(ctx context.Context, group string, rec *Record) error {
	out := &Record{
		Group:     group,
		UpdatedAt: s.now().UTC(),
		Entries:   make(map[string]Entry, len(rec.Entries)),
	}
	for k, e := range rec.Entries {
		if e.Token != nil {
			tok := *e.Token
			if s.sealer != nil && !seal.IsSealed(tok.AccessToken) {
				sealed, err := s.sealer.Seal(tok.AccessToken)
				if err != nil {
					return fmt.Errorf("failed to seal token for %s: %w", k, err)
				}
				tok.AccessToken = sealed
			}
			e.Token = &tok
		}
		out.Entries[k] = e
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}
	data = append(data, '\n')

	if err := s.backend.Save(ctx, group, data); err != nil {
		return fmt.Errorf("failed to write checkpoint %s: %w", s.Location(group), err)
	}
	rec.UpdatedAt = out.UpdatedAt
	return nil
}

func (s *Store) openTokens(rec *Record) {
	if s.sealer == nil {
		return
	}
	for k, e := range rec.Entries {
		if e.Token == nil || !seal.IsSealed(e.Token.AccessToken) {
			continue
		}
		plain, err := s.sealer.Open(e.Token.AccessToken)
		if err != nil {
			s.log.Error(err, "token snapshot could not be opened", "key", k)
			continue
		}
		tok := *e.Token
		tok.AccessToken = plain
		e.Token = &tok
		rec.Entries[k] = e
	}
}
