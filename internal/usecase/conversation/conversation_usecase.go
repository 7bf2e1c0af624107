package conversation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gdugdh24/nearmatch-backend/internal/domain"
	"github.com/gdugdh24/nearmatch-backend/internal/repository"
	"github.com/google/uuid"
)

const DefaultPageSize = 50

type ConversationUseCase struct {
	tx          repository.Transactor
	matchRepo   repository.MatchRepository
	messageRepo repository.MessageRepository
	now         func() time.Time
}

func NewConversationUseCase(
	tx repository.Transactor,
	matchRepo repository.MatchRepository,
	messageRepo repository.MessageRepository,
) *ConversationUseCase {
	return &ConversationUseCase{
		tx:          tx,
		matchRepo:   matchRepo,
		messageRepo: messageRepo,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// SendMessageRequest is the body of a new chat message.
type SendMessageRequest struct {
	Message     string             `json:"message" binding:"required"`
	MessageType domain.MessageType `json:"messageType"`
}

// UnreadSummary maps each active match to the caller's unread count.
type UnreadSummary struct {
	Matches map[uuid.UUID]int `json:"matches"`
	Total   int               `json:"total"`
}

// Send appends a message to the match, bumps lastMessageAt and the
// recipient's unread counter.
func (uc *ConversationUseCase) Send(ctx context.Context, matchID, senderID uuid.UUID, req SendMessageRequest) (*domain.Message, error) {
	if req.MessageType == "" {
		req.MessageType = domain.MessageText
	}
	if err := domain.ValidateMessage(req.Message, req.MessageType); err != nil {
		return nil, err
	}

	var msg *domain.Message
	err := uc.tx.WithinTx(ctx, func(ctx context.Context) error {
		match, err := uc.authorize(ctx, matchID, senderID)
		if err != nil {
			return err
		}
		recipient, _ := match.GetOtherUserID(senderID)

		now := uc.now()
		msg = &domain.Message{
			ID:        uuid.New(),
			MatchID:   match.ID,
			SenderID:  senderID,
			Body:      req.Message,
			Type:      req.MessageType,
			CreatedAt: now,
		}
		if err := uc.messageRepo.Create(ctx, msg); err != nil {
			return fmt.Errorf("failed to create message: %w", err)
		}
		if err := uc.matchRepo.RecordMessage(ctx, match.ID, recipient, now); err != nil {
			return fmt.Errorf("failed to update match activity: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// ListMessages returns a page of the thread oldest first. Opening the thread
// marks the other participant's messages read and clears the caller's counter.
func (uc *ConversationUseCase) ListMessages(ctx context.Context, matchID, requesterID uuid.UUID, page, pageSize int) ([]*domain.Message, error) {
	if err := domain.ValidatePage(page, pageSize); err != nil {
		return nil, err
	}
	if _, err := uc.authorize(ctx, matchID, requesterID); err != nil {
		return nil, err
	}

	messages, err := uc.messageRepo.ListByMatch(ctx, matchID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	_, readAt, err := uc.markRead(ctx, matchID, requesterID)
	if err != nil {
		return nil, err
	}
	for _, m := range messages {
		if m.SenderID != requesterID && !m.IsRead {
			m.IsRead = true
			at := readAt
			m.ReadAt = &at
		}
	}
	return messages, nil
}

// MarkRead clears unread state without fetching content. It returns the
// number of messages newly marked read.
func (uc *ConversationUseCase) MarkRead(ctx context.Context, matchID, requesterID uuid.UUID) (int64, error) {
	if _, err := uc.authorize(ctx, matchID, requesterID); err != nil {
		return 0, err
	}

	marked, _, err := uc.markRead(ctx, matchID, requesterID)
	return marked, err
}

// DeleteMessage soft deletes a message. Only its sender may do so.
func (uc *ConversationUseCase) DeleteMessage(ctx context.Context, matchID, messageID, requesterID uuid.UUID) error {
	return uc.tx.WithinTx(ctx, func(ctx context.Context) error {
		match, err := uc.authorize(ctx, matchID, requesterID)
		if err != nil {
			return err
		}

		msg, err := uc.messageRepo.GetByID(ctx, messageID)
		if err != nil {
			return err
		}
		if msg.MatchID != matchID || msg.IsDeleted {
			return domain.ErrMessageNotFound
		}
		if msg.SenderID != requesterID {
			return domain.ErrNotMessageSender
		}

		if err := uc.messageRepo.SoftDelete(ctx, messageID, uc.now()); err != nil {
			return err
		}
		if !msg.IsRead {
			recipient, _ := match.GetOtherUserID(requesterID)
			if err := uc.matchRepo.DecrementUnread(ctx, matchID, recipient); err != nil {
				return fmt.Errorf("failed to update unread counter: %w", err)
			}
		}
		return nil
	})
}

// UnreadSummary counts unread messages from the other side across every
// active match of userID.
func (uc *ConversationUseCase) UnreadSummary(ctx context.Context, userID uuid.UUID) (*UnreadSummary, error) {
	matchIDs, err := uc.matchRepo.ListActiveIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	counts, err := uc.messageRepo.CountUnread(ctx, matchIDs, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count unread messages: %w", err)
	}

	summary := &UnreadSummary{Matches: make(map[uuid.UUID]int, len(matchIDs))}
	for _, id := range matchIDs {
		n := counts[id]
		summary.Matches[id] = n
		summary.Total += n
	}
	return summary, nil
}

func (uc *ConversationUseCase) markRead(ctx context.Context, matchID, readerID uuid.UUID) (int64, time.Time, error) {
	now := uc.now()
	var marked int64
	err := uc.tx.WithinTx(ctx, func(ctx context.Context) error {
		n, err := uc.messageRepo.MarkRead(ctx, matchID, readerID, now)
		if err != nil {
			return fmt.Errorf("failed to mark messages read: %w", err)
		}
		marked = n
		return uc.matchRepo.ResetUnread(ctx, matchID, readerID)
	})
	return marked, now, err
}

// authorize loads the match and checks userID may use its conversation.
func (uc *ConversationUseCase) authorize(ctx context.Context, matchID, userID uuid.UUID) (*domain.Match, error) {
	match, err := uc.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, domain.ErrMatchNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load match: %w", err)
	}
	if !match.HasUser(userID) {
		return nil, domain.ErrNotParticipant
	}
	if !match.IsActive {
		return nil, domain.ErrMatchInactive
	}
	return match, nil
}
