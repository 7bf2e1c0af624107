package memory

import (
	"context"
	"sort"
	"time"

	"github.com/gdugdh24/nearmatch-backend/internal/domain"
	"github.com/gdugdh24/nearmatch-backend/internal/repository"
	"github.com/google/uuid"
)

type matchRepository struct {
	store *Store
}

func NewMatchRepository(s *Store) repository.MatchRepository {
	return &matchRepository{store: s}
}

func (r *matchRepository) Create(ctx context.Context, match *domain.Match) error {
	u1, u2 := domain.CanonicalPair(match.User1ID, match.User2ID)
	match.User1ID, match.User2ID = u1, u2

	return r.store.write(ctx, func() error {
		if match.IsActive {
			for _, m := range r.store.matches {
				if m.IsActive && m.User1ID == u1 && m.User2ID == u2 {
					return domain.ErrMatchAlreadyExists
				}
			}
		}
		if match.ID == uuid.Nil {
			match.ID = uuid.New()
		}
		r.store.matches[match.ID] = cloneMatch(match)
		return nil
	})
}

func (r *matchRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Match, error) {
	var out *domain.Match
	r.store.read(func() {
		if m, ok := r.store.matches[id]; ok {
			out = cloneMatch(m)
		}
	})
	if out == nil {
		return nil, domain.ErrMatchNotFound
	}
	return out, nil
}

func (r *matchRepository) GetActiveByUsers(ctx context.Context, a, b uuid.UUID) (*domain.Match, error) {
	u1, u2 := domain.CanonicalPair(a, b)
	var out *domain.Match
	r.store.read(func() {
		for _, m := range r.store.matches {
			if m.IsActive && m.User1ID == u1 && m.User2ID == u2 {
				out = cloneMatch(m)
				return
			}
		}
	})
	if out == nil {
		return nil, domain.ErrMatchNotFound
	}
	return out, nil
}

func (r *matchRepository) activeFor(userID uuid.UUID) []*domain.Match {
	var out []*domain.Match
	for _, m := range r.store.matches {
		if m.IsActive && m.HasUser(userID) {
			out = append(out, cloneMatch(m))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return lastActivity(out[i]).After(lastActivity(out[j]))
	})
	return out
}

func lastActivity(m *domain.Match) time.Time {
	if m.LastMessageAt != nil {
		return *m.LastMessageAt
	}
	return m.CreatedAt
}

func (r *matchRepository) ListActiveByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Match, error) {
	var all []*domain.Match
	r.store.read(func() {
		all = r.activeFor(userID)
	})
	if offset >= len(all) {
		return []*domain.Match{}, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (r *matchRepository) ListActiveIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	r.store.read(func() {
		for _, m := range r.activeFor(userID) {
			ids = append(ids, m.ID)
		}
	})
	return ids, nil
}

func (r *matchRepository) mutate(ctx context.Context, id uuid.UUID, fn func(m *domain.Match) error) error {
	return r.store.write(ctx, func() error {
		m, ok := r.store.matches[id]
		if !ok {
			return domain.ErrMatchNotFound
		}
		return fn(m)
	})
}

func (r *matchRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	return r.mutate(ctx, id, func(m *domain.Match) error {
		m.IsActive = false
		m.UpdatedAt = time.Now().UTC()
		return nil
	})
}

func (r *matchRepository) RecordMessage(ctx context.Context, id, recipientID uuid.UUID, at time.Time) error {
	return r.mutate(ctx, id, func(m *domain.Match) error {
		if !m.IsActive {
			return domain.ErrMatchInactive
		}
		switch recipientID {
		case m.User1ID:
			m.User1Unread++
		case m.User2ID:
			m.User2Unread++
		default:
			return domain.ErrNotParticipant
		}
		m.LastMessageAt = &at
		m.UpdatedAt = at
		return nil
	})
}

func (r *matchRepository) ResetUnread(ctx context.Context, id, userID uuid.UUID) error {
	return r.mutate(ctx, id, func(m *domain.Match) error {
		switch userID {
		case m.User1ID:
			m.User1Unread = 0
		case m.User2ID:
			m.User2Unread = 0
		}
		return nil
	})
}

func (r *matchRepository) DecrementUnread(ctx context.Context, id, userID uuid.UUID) error {
	return r.mutate(ctx, id, func(m *domain.Match) error {
		switch {
		case userID == m.User1ID && m.User1Unread > 0:
			m.User1Unread--
		case userID == m.User2ID && m.User2Unread > 0:
			m.User2Unread--
		}
		return nil
	})
}
