package domain

import (
	"bytes"
	"time"

	"github.com/google/uuid"
)

// Match is a confirmed mutual like. Participants are stored in canonical
// order (User1ID < User2ID) so a pair has exactly one representation.
type Match struct {
	ID            uuid.UUID  `json:"id"`
	User1ID       uuid.UUID  `json:"user1Id"`
	User2ID       uuid.UUID  `json:"user2Id"`
	IsActive      bool       `json:"isActive"`
	LastMessageAt *time.Time `json:"lastMessageAt"`
	User1Unread   int        `json:"-"`
	User2Unread   int        `json:"-"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// NewMatch builds an active match for two distinct profiles.
func NewMatch(a, b uuid.UUID, now time.Time) (*Match, error) {
	if a == b {
		return nil, ErrCannotLikeSelf
	}
	u1, u2 := CanonicalPair(a, b)
	return &Match{
		ID:        uuid.New(),
		User1ID:   u1,
		User2ID:   u2,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// CanonicalPair orders two ids by their byte representation.
func CanonicalPair(a, b uuid.UUID) (uuid.UUID, uuid.UUID) {
	if bytes.Compare(a[:], b[:]) > 0 {
		return b, a
	}
	return a, b
}

func (m *Match) HasUser(userID uuid.UUID) bool {
	return m.User1ID == userID || m.User2ID == userID
}

func (m *Match) GetOtherUserID(userID uuid.UUID) (uuid.UUID, bool) {
	if m.User1ID == userID {
		return m.User2ID, true
	}
	if m.User2ID == userID {
		return m.User1ID, true
	}
	return uuid.Nil, false
}

// UnreadFor returns the unread counter slot belonging to userID.
func (m *Match) UnreadFor(userID uuid.UUID) int {
	switch userID {
	case m.User1ID:
		return m.User1Unread
	case m.User2ID:
		return m.User2Unread
	}
	return 0
}

// Participants returns both ids in canonical order.
func (m *Match) Participants() [2]uuid.UUID {
	return [2]uuid.UUID{m.User1ID, m.User2ID}
}

// MatchSummary is the match as shown to one of its participants.
type MatchSummary struct {
	ID            uuid.UUID       `json:"id"`
	Users         [2]uuid.UUID    `json:"users"`
	IsActive      bool            `json:"isActive"`
	LastMessageAt *time.Time      `json:"lastMessageAt"`
	UnreadCount   int             `json:"unreadCount"`
	OtherUser     *ProfileSummary `json:"otherUser,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
}

func (m *Match) SummaryFor(viewer uuid.UUID) *MatchSummary {
	return &MatchSummary{
		ID:            m.ID,
		Users:         m.Participants(),
		IsActive:      m.IsActive,
		LastMessageAt: m.LastMessageAt,
		UnreadCount:   m.UnreadFor(viewer),
		CreatedAt:     m.CreatedAt,
	}
}

// MatchCreated is emitted once per newly created match.
type MatchCreated struct {
	MatchID   uuid.UUID `json:"matchId"`
	UserA     uuid.UUID `json:"userA"`
	UserB     uuid.UUID `json:"userB"`
	CreatedAt time.Time `json:"createdAt"`
}
