package repository

import (
	"context"
	"time"

	"github.com/gdugdh24/nearmatch-backend/internal/domain"
	"github.com/google/uuid"
)

// Transactor runs fn so that every repository call made with the context it
// receives commits or rolls back together. Nested calls join the outer unit.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// NearbyQuery selects discoverable profiles around Origin. Results are
// ordered by distance, nearest first.
type NearbyQuery struct {
	Origin        domain.Location
	MaxDistanceKm float64
	Exclude       []uuid.UUID
	Offset        int
	Limit         int
}

type ProfileRepository interface {
	Create(ctx context.Context, profile *domain.Profile) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Profile, error)
	GetByEmail(ctx context.Context, email string) (*domain.Profile, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.Profile, error)
	Update(ctx context.Context, profile *domain.Profile) error
	UpdateLocation(ctx context.Context, id uuid.UUID, loc domain.Location, at time.Time) error
	TouchLastActive(ctx context.Context, id uuid.UUID, at time.Time) error
	AddPhoto(ctx context.Context, id uuid.UUID, url string, max int) error
	SetPhotos(ctx context.Context, id uuid.UUID, photos []string) error

	// LockPair serializes concurrent social-graph changes touching both profiles.
	LockPair(ctx context.Context, a, b uuid.UUID) error
	// AddLike records from -> to in from.likes and to.likedBy.
	// Returns domain.ErrAlreadyLiked if the like exists.
	AddLike(ctx context.Context, from, to uuid.UUID) error
	AddMatchLink(ctx context.Context, a, b uuid.UUID) error
	RemoveMatchLink(ctx context.Context, a, b uuid.UUID) error
	AddBlock(ctx context.Context, from, to uuid.UUID) error
	RemoveBlock(ctx context.Context, from, to uuid.UUID) error

	FindNearby(ctx context.Context, q NearbyQuery) ([]*domain.Profile, error)
}

type MatchRepository interface {
	// Create returns domain.ErrMatchAlreadyExists when the pair already has an
	// active match.
	Create(ctx context.Context, match *domain.Match) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Match, error)
	GetActiveByUsers(ctx context.Context, a, b uuid.UUID) (*domain.Match, error)
	ListActiveByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Match, error)
	ListActiveIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
	// RecordMessage bumps last_message_at and the recipient's unread counter.
	RecordMessage(ctx context.Context, id, recipientID uuid.UUID, at time.Time) error
	ResetUnread(ctx context.Context, id, userID uuid.UUID) error
	DecrementUnread(ctx context.Context, id, userID uuid.UUID) error
}

type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error)
	// ListByMatch returns non-deleted messages newest first.
	ListByMatch(ctx context.Context, matchID uuid.UUID, limit, offset int) ([]*domain.Message, error)
	// MarkRead marks every unread message in the match not sent by readerID.
	MarkRead(ctx context.Context, matchID, readerID uuid.UUID, at time.Time) (int64, error)
	SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error
	CountUnread(ctx context.Context, matchIDs []uuid.UUID, userID uuid.UUID) (map[uuid.UUID]int, error)
	CountByMatch(ctx context.Context, matchID uuid.UUID, includeDeleted bool) (int, error)
}
