// Package memory keeps profiles, matches and messages in process memory.
// It backs STORAGE_TYPE=memory and the use case tests.
package memory

import (
	"context"
	"sync"

	"github.com/gdugdh24/nearmatch-backend/internal/domain"
	"github.com/google/uuid"
)

// Store holds all records. mu guards the maps; txMu serializes transactions
// so a unit of work observes and mutates a consistent snapshot.
type Store struct {
	mu       sync.RWMutex
	txMu     sync.Mutex
	profiles map[uuid.UUID]*domain.Profile
	matches  map[uuid.UUID]*domain.Match
	messages map[uuid.UUID]*domain.Message
	seq      int64
}

func NewStore() *Store {
	return &Store{
		profiles: make(map[uuid.UUID]*domain.Profile),
		matches:  make(map[uuid.UUID]*domain.Match),
		messages: make(map[uuid.UUID]*domain.Message),
	}
}

type txKey struct{}

// Transactor implements repository.Transactor. A failed unit of work restores
// the snapshot taken when it began.
type Transactor struct {
	store *Store
}

func NewTransactor(s *Store) *Transactor {
	return &Transactor{store: s}
}

func (t *Transactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	t.store.txMu.Lock()
	defer t.store.txMu.Unlock()

	snap := t.store.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		t.store.restore(snap)
		return err
	}
	return nil
}

type snapshot struct {
	profiles map[uuid.UUID]*domain.Profile
	matches  map[uuid.UUID]*domain.Match
	messages map[uuid.UUID]*domain.Message
	seq      int64
}

func (s *Store) snapshot() snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := snapshot{
		profiles: make(map[uuid.UUID]*domain.Profile, len(s.profiles)),
		matches:  make(map[uuid.UUID]*domain.Match, len(s.matches)),
		messages: make(map[uuid.UUID]*domain.Message, len(s.messages)),
		seq:      s.seq,
	}
	for id, p := range s.profiles {
		snap.profiles[id] = cloneProfile(p)
	}
	for id, m := range s.matches {
		snap.matches[id] = cloneMatch(m)
	}
	for id, m := range s.messages {
		snap.messages[id] = cloneMessage(m)
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.profiles = snap.profiles
	s.matches = snap.matches
	s.messages = snap.messages
	s.seq = snap.seq
}

func cloneIDs(ids []uuid.UUID) []uuid.UUID {
	if ids == nil {
		return nil
	}
	return append([]uuid.UUID(nil), ids...)
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

func cloneProfile(p *domain.Profile) *domain.Profile {
	c := *p
	c.Interests = cloneStrings(p.Interests)
	c.Photos = cloneStrings(p.Photos)
	c.Likes = cloneIDs(p.Likes)
	c.LikedBy = cloneIDs(p.LikedBy)
	c.Matches = cloneIDs(p.Matches)
	c.Blocked = cloneIDs(p.Blocked)
	c.BlockedBy = cloneIDs(p.BlockedBy)
	if p.Location != nil {
		loc := *p.Location
		c.Location = &loc
	}
	if p.Bio != nil {
		bio := *p.Bio
		c.Bio = &bio
	}
	if p.NotificationToken != nil {
		tok := *p.NotificationToken
		c.NotificationToken = &tok
	}
	if p.PremiumExpiresAt != nil {
		exp := *p.PremiumExpiresAt
		c.PremiumExpiresAt = &exp
	}
	return &c
}

func cloneMatch(m *domain.Match) *domain.Match {
	c := *m
	if m.LastMessageAt != nil {
		at := *m.LastMessageAt
		c.LastMessageAt = &at
	}
	return &c
}

func cloneMessage(m *domain.Message) *domain.Message {
	c := *m
	if m.ReadAt != nil {
		at := *m.ReadAt
		c.ReadAt = &at
	}
	if m.DeletedAt != nil {
		at := *m.DeletedAt
		c.DeletedAt = &at
	}
	return &c
}

func appendUnique(ids []uuid.UUID, id uuid.UUID) ([]uuid.UUID, bool) {
	for _, v := range ids {
		if v == id {
			return ids, false
		}
	}
	return append(ids, id), true
}

func removeID(ids []uuid.UUID, id uuid.UUID) ([]uuid.UUID, bool) {
	for i, v := range ids {
		if v == id {
			return append(ids[:i:i], ids[i+1:]...), true
		}
	}
	return ids, false
}

// write runs fn under the data lock. Outside a transaction it also takes the
// transaction lock so a concurrent rollback cannot discard the change.
func (s *Store) write(ctx context.Context, fn func() error) error {
	if ctx.Value(txKey{}) == nil {
		s.txMu.Lock()
		defer s.txMu.Unlock()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn()
}

func (s *Store) read(fn func()) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn()
}
