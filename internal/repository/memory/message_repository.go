package memory

import (
	"context"
	"sort"
	"time"

	"github.com/gdugdh24/nearmatch-backend/internal/domain"
	"github.com/gdugdh24/nearmatch-backend/internal/repository"
	"github.com/google/uuid"
)

type messageRepository struct {
	store *Store
}

func NewMessageRepository(s *Store) repository.MessageRepository {
	return &messageRepository{store: s}
}

func (r *messageRepository) Create(ctx context.Context, msg *domain.Message) error {
	return r.store.write(ctx, func() error {
		if msg.ID == uuid.Nil {
			msg.ID = uuid.New()
		}
		r.store.seq++
		msg.Seq = r.store.seq
		r.store.messages[msg.ID] = cloneMessage(msg)
		return nil
	})
}

func (r *messageRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	var out *domain.Message
	r.store.read(func() {
		if m, ok := r.store.messages[id]; ok {
			out = cloneMessage(m)
		}
	})
	if out == nil {
		return nil, domain.ErrMessageNotFound
	}
	return out, nil
}

func (r *messageRepository) ListByMatch(ctx context.Context, matchID uuid.UUID, limit, offset int) ([]*domain.Message, error) {
	var all []*domain.Message
	r.store.read(func() {
		for _, m := range r.store.messages {
			if m.MatchID == matchID && !m.IsDeleted {
				all = append(all, cloneMessage(m))
			}
		}
	})

	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].Seq > all[j].Seq
	})

	if offset >= len(all) {
		return []*domain.Message{}, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (r *messageRepository) MarkRead(ctx context.Context, matchID, readerID uuid.UUID, at time.Time) (int64, error) {
	var n int64
	err := r.store.write(ctx, func() error {
		for _, m := range r.store.messages {
			if m.MatchID == matchID && m.SenderID != readerID && !m.IsRead {
				readAt := at
				m.IsRead = true
				m.ReadAt = &readAt
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r *messageRepository) SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.store.write(ctx, func() error {
		m, ok := r.store.messages[id]
		if !ok || m.IsDeleted {
			return domain.ErrMessageNotFound
		}
		m.IsDeleted = true
		m.DeletedAt = &at
		return nil
	})
}

func (r *messageRepository) CountUnread(ctx context.Context, matchIDs []uuid.UUID, userID uuid.UUID) (map[uuid.UUID]int, error) {
	wanted := make(map[uuid.UUID]struct{}, len(matchIDs))
	for _, id := range matchIDs {
		wanted[id] = struct{}{}
	}
	counts := make(map[uuid.UUID]int, len(matchIDs))
	r.store.read(func() {
		for _, m := range r.store.messages {
			if _, ok := wanted[m.MatchID]; !ok {
				continue
			}
			if m.SenderID != userID && !m.IsRead && !m.IsDeleted {
				counts[m.MatchID]++
			}
		}
	})
	return counts, nil
}

func (r *messageRepository) CountByMatch(ctx context.Context, matchID uuid.UUID, includeDeleted bool) (int, error) {
	n := 0
	r.store.read(func() {
		for _, m := range r.store.messages {
			if m.MatchID == matchID && (includeDeleted || !m.IsDeleted) {
				n++
			}
		}
	})
	return n, nil
}
