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

type messageRow struct {
	ID        uuid.UUID  `db:"id"`
	Seq       int64      `db:"seq"`
	MatchID   uuid.UUID  `db:"match_id"`
	SenderID  uuid.UUID  `db:"sender_id"`
	Body      string     `db:"body"`
	Type      string     `db:"type"`
	IsRead    bool       `db:"is_read"`
	ReadAt    *time.Time `db:"read_at"`
	IsDeleted bool       `db:"is_deleted"`
	DeletedAt *time.Time `db:"deleted_at"`
	CreatedAt time.Time  `db:"created_at"`
}

func (r *messageRow) toDomain() *domain.Message {
	return &domain.Message{
		ID:        r.ID,
		MatchID:   r.MatchID,
		SenderID:  r.SenderID,
		Body:      r.Body,
		Type:      domain.MessageType(r.Type),
		IsRead:    r.IsRead,
		ReadAt:    r.ReadAt,
		IsDeleted: r.IsDeleted,
		DeletedAt: r.DeletedAt,
		CreatedAt: r.CreatedAt,
		Seq:       r.Seq,
	}
}

type messageRepository struct {
	db *sqlx.DB
}

func NewMessageRepository(db *sqlx.DB) repository.MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(ctx context.Context, msg *domain.Message) error {
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	query := `
		INSERT INTO messages (id, match_id, sender_id, body, type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING seq
	`
	err := conn(ctx, r.db).QueryRowxContext(
		ctx, query,
		msg.ID, msg.MatchID, msg.SenderID, msg.Body, string(msg.Type), msg.CreatedAt,
	).Scan(&msg.Seq)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

func (r *messageRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	var row messageRow
	err := conn(ctx, r.db).GetContext(ctx, &row, `SELECT * FROM messages WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrMessageNotFound
		}
		return nil, err
	}
	return row.toDomain(), nil
}

func (r *messageRepository) ListByMatch(ctx context.Context, matchID uuid.UUID, limit, offset int) ([]*domain.Message, error) {
	var rows []messageRow
	query := `
		SELECT * FROM messages
		WHERE match_id = $1 AND NOT is_deleted
		ORDER BY created_at DESC, seq DESC
		LIMIT $2 OFFSET $3
	`
	if err := conn(ctx, r.db).SelectContext(ctx, &rows, query, matchID, limit, offset); err != nil {
		return nil, err
	}
	out := make([]*domain.Message, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}

func (r *messageRepository) MarkRead(ctx context.Context, matchID, readerID uuid.UUID, at time.Time) (int64, error) {
	query := `
		UPDATE messages
		SET is_read = true, read_at = $3
		WHERE match_id = $1 AND sender_id <> $2 AND NOT is_read
	`
	res, err := conn(ctx, r.db).ExecContext(ctx, query, matchID, readerID, at)
	if err != nil {
		return 0, err
	}
	return affected(res)
}

func (r *messageRepository) SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `UPDATE messages SET is_deleted = true, deleted_at = $2 WHERE id = $1 AND NOT is_deleted`
	res, err := conn(ctx, r.db).ExecContext(ctx, query, id, at)
	if err != nil {
		return err
	}
	n, err := affected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrMessageNotFound
	}
	return nil
}

func (r *messageRepository) CountUnread(ctx context.Context, matchIDs []uuid.UUID, userID uuid.UUID) (map[uuid.UUID]int, error) {
	counts := make(map[uuid.UUID]int, len(matchIDs))
	if len(matchIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		MatchID uuid.UUID `db:"match_id"`
		Count   int       `db:"count"`
	}
	query := `
		SELECT match_id, COUNT(*) AS count
		FROM messages
		WHERE match_id = ANY ($1::uuid[]) AND sender_id <> $2 AND NOT is_read AND NOT is_deleted
		GROUP BY match_id
	`
	if err := conn(ctx, r.db).SelectContext(ctx, &rows, query, idStrings(matchIDs), userID); err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.MatchID] = row.Count
	}
	return counts, nil
}

func (r *messageRepository) CountByMatch(ctx context.Context, matchID uuid.UUID, includeDeleted bool) (int, error) {
	var n int
	query := `SELECT COUNT(*) FROM messages WHERE match_id = $1 AND ($2 OR NOT is_deleted)`
	if err := conn(ctx, r.db).GetContext(ctx, &n, query, matchID, includeDeleted); err != nil {
		return 0, err
	}
	return n, nil
}
