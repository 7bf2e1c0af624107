package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/gdugdh24/nearmatch-backend/internal/domain"
	"github.com/gdugdh24/nearmatch-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const activePairConstraint = "matches_active_pair_key"

type matchRow struct {
	ID            uuid.UUID  `db:"id"`
	User1ID       uuid.UUID  `db:"user1_id"`
	User2ID       uuid.UUID  `db:"user2_id"`
	IsActive      bool       `db:"is_active"`
	LastMessageAt *time.Time `db:"last_message_at"`
	User1Unread   int        `db:"user1_unread"`
	User2Unread   int        `db:"user2_unread"`
	CreatedAt     time.Time  `db:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at"`
}

func (r *matchRow) toDomain() *domain.Match {
	return &domain.Match{
		ID:            r.ID,
		User1ID:       r.User1ID,
		User2ID:       r.User2ID,
		IsActive:      r.IsActive,
		LastMessageAt: r.LastMessageAt,
		User1Unread:   r.User1Unread,
		User2Unread:   r.User2Unread,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

type matchRepository struct {
	db *sqlx.DB
}

func NewMatchRepository(db *sqlx.DB) repository.MatchRepository {
	return &matchRepository{db: db}
}

func (r *matchRepository) Create(ctx context.Context, match *domain.Match) error {
	// Ensure user1_id < user2_id for constraint
	match.User1ID, match.User2ID = domain.CanonicalPair(match.User1ID, match.User2ID)
	if match.ID == uuid.Nil {
		match.ID = uuid.New()
	}

	q := conn(ctx, r.db)
	// A failed statement aborts the whole transaction; the savepoint keeps it
	// usable so the caller can load the match that won the race.
	if inTx(ctx) {
		if _, err := q.ExecContext(ctx, `SAVEPOINT match_insert`); err != nil {
			return err
		}
	}

	query := `
		INSERT INTO matches (id, user1_id, user2_id, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		RETURNING created_at, updated_at
	`
	err := q.QueryRowxContext(ctx, query, match.ID, match.User1ID, match.User2ID, match.IsActive, match.CreatedAt).
		Scan(&match.CreatedAt, &match.UpdatedAt)

	if err != nil && inTx(ctx) {
		if _, rbErr := q.ExecContext(ctx, `ROLLBACK TO SAVEPOINT match_insert`); rbErr != nil {
			return fmt.Errorf("failed to roll back match insert: %w", rbErr)
		}
	}
	if constraint, ok := uniqueConstraint(err); ok && constraint == activePairConstraint {
		return domain.ErrMatchAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("failed to insert match: %w", err)
	}
	return nil
}

func (r *matchRepository) get(ctx context.Context, query string, args ...interface{}) (*domain.Match, error) {
	var row matchRow
	err := conn(ctx, r.db).GetContext(ctx, &row, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrMatchNotFound
		}
		return nil, err
	}
	return row.toDomain(), nil
}

func (r *matchRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Match, error) {
	return r.get(ctx, `SELECT * FROM matches WHERE id = $1`, id)
}

func (r *matchRepository) GetActiveByUsers(ctx context.Context, a, b uuid.UUID) (*domain.Match, error) {
	user1ID, user2ID := domain.CanonicalPair(a, b)
	return r.get(ctx, `SELECT * FROM matches WHERE user1_id = $1 AND user2_id = $2 AND is_active`, user1ID, user2ID)
}

func (r *matchRepository) ListActiveByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Match, error) {
	var rows []matchRow
	query := `
		SELECT * FROM matches
		WHERE (user1_id = $1 OR user2_id = $1) AND is_active
		ORDER BY COALESCE(last_message_at, created_at) DESC, id
		LIMIT $2 OFFSET $3
	`
	if err := conn(ctx, r.db).SelectContext(ctx, &rows, query, userID, limit, offset); err != nil {
		return nil, err
	}
	out := make([]*domain.Match, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}

func (r *matchRepository) ListActiveIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	query := `SELECT id FROM matches WHERE (user1_id = $1 OR user2_id = $1) AND is_active`
	if err := conn(ctx, r.db).SelectContext(ctx, &ids, query, userID); err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *matchRepository) update(ctx context.Context, notAffected error, query string, args ...interface{}) error {
	res, err := conn(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := affected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return notAffected
	}
	return nil
}

func (r *matchRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE matches SET is_active = false, updated_at = CURRENT_TIMESTAMP WHERE id = $1`
	return r.update(ctx, domain.ErrMatchNotFound, query, id)
}

func (r *matchRepository) RecordMessage(ctx context.Context, id, recipientID uuid.UUID, at time.Time) error {
	query := `
		UPDATE matches
		SET last_message_at = $3, updated_at = $3,
		    user1_unread = user1_unread + CASE WHEN user1_id = $2 THEN 1 ELSE 0 END,
		    user2_unread = user2_unread + CASE WHEN user2_id = $2 THEN 1 ELSE 0 END
		WHERE id = $1 AND is_active AND (user1_id = $2 OR user2_id = $2)
	`
	return r.update(ctx, domain.ErrMatchInactive, query, id, recipientID, at)
}

func (r *matchRepository) ResetUnread(ctx context.Context, id, userID uuid.UUID) error {
	query := `
		UPDATE matches
		SET user1_unread = CASE WHEN user1_id = $2 THEN 0 ELSE user1_unread END,
		    user2_unread = CASE WHEN user2_id = $2 THEN 0 ELSE user2_unread END
		WHERE id = $1
	`
	return r.update(ctx, domain.ErrMatchNotFound, query, id, userID)
}

func (r *matchRepository) DecrementUnread(ctx context.Context, id, userID uuid.UUID) error {
	query := `
		UPDATE matches
		SET user1_unread = CASE WHEN user1_id = $2 THEN GREATEST(user1_unread - 1, 0) ELSE user1_unread END,
		    user2_unread = CASE WHEN user2_id = $2 THEN GREATEST(user2_unread - 1, 0) ELSE user2_unread END
		WHERE id = $1
	`
	return r.update(ctx, domain.ErrMatchNotFound, query, id, userID)
}
