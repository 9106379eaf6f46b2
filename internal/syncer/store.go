package syncer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/rpggio/siteflow/internal/domain/rowkey"
	"github.com/rpggio/siteflow/internal/domain/team"
)

// Key addresses one role's state for one row.
type Key struct {
	RowKey   rowkey.RowKey
	SiteCode string
	Role     team.Role
}

// Gateway is the authoritative store behind a Store.
type Gateway interface {
	// Push persists a draft and returns the stored record.
	Push(ctx context.Context, key Key, d Draft) (Remote, error)
	// Pull returns the stored record, or false when none exists.
	Pull(ctx context.Context, key Key) (Remote, bool, error)
}

type entry struct {
	draft Draft
	seq   uint64
}

type push struct {
	draft Draft
	seq   uint64
}

// Store holds local drafts, pushes edits through a Debouncer and reconciles
// them against the Gateway. It is the only place local and remote state meet.
type Store struct {
	gw      Gateway
	logger  *slog.Logger
	pushes  *Debouncer[Key, push]
	mu      sync.RWMutex
	entries map[Key]*entry
	seq     uint64
	closed  bool
}

// NewStore creates a store whose edits are pushed window after the first
// unflushed write.
func NewStore(gw Gateway, window time.Duration, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Store{gw: gw, logger: logger, entries: make(map[Key]*entry)}
	s.pushes = NewDebouncer(window, s.push, logger)
	return s
}

// Set applies a local edit immediately and schedules it for the gateway.
// Edits after Close are rejected with ErrStopped.
func (s *Store) Set(key Key, d Draft) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrStopped
	}
	s.seq++
	d.Dirty = true
	e, ok := s.entries[key]
	if !ok {
		e = &entry{}
		s.entries[key] = e
	}
	e.draft = d
	e.seq = s.seq
	p := push{draft: d, seq: s.seq}
	s.mu.Unlock()

	return s.pushes.Put(key, p)
}

// Get returns the local view of key.
func (s *Store) Get(key Key) (Draft, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	if !ok {
		return Draft{}, false
	}
	return e.draft, true
}

// Track starts following a record the store has not written.
func (s *Store) Track(key Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[key]; !ok {
		s.entries[key] = &entry{}
	}
}

// Flush pushes every pending edit now.
func (s *Store) Flush(ctx context.Context) error {
	return s.pushes.Flush(ctx)
}

// Refresh pulls every tracked record and reconciles it into the local view.
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.RLock()
	keys := make([]Key, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	s.mu.RUnlock()

	var errs []error
	for _, key := range keys {
		remote, ok, err := s.gw.Pull(ctx, key)
		if err != nil {
			errs = append(errs, fmt.Errorf("pulling %s/%s: %w", key.SiteCode, key.Role, err))
			continue
		}
		if !ok {
			continue
		}
		s.mu.Lock()
		if e := s.entries[key]; e != nil {
			e.draft = Reconcile(e.draft, remote)
		}
		s.mu.Unlock()
	}
	return errors.Join(errs...)
}

// Close pushes what remains and stops the debouncer.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return s.pushes.Stop(ctx)
}

func (s *Store) push(ctx context.Context, key Key, p push) error {
	remote, err := s.gw.Push(ctx, key, p.draft)
	if err != nil {
		s.logger.Warn("push failed, local edit kept", "site_code", key.SiteCode, "role", key.Role, "error", err)
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.entries[key]
	if e == nil || e.seq != p.seq {
		// A newer edit is queued; it stays dirty until its own push lands.
		return nil
	}
	e.draft = Reconcile(Draft{}, remote)
	return nil
}
