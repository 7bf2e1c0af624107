package domain

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestAgeAt(t *testing.T) {
	tests := []struct {
		name string
		dob  time.Time
		now  time.Time
		want int
	}{
		{"birthday passed", date(2000, 1, 10), date(2026, 6, 1), 26},
		{"birthday today", date(2000, 6, 1), date(2026, 6, 1), 26},
		{"birthday tomorrow", date(2000, 6, 2), date(2026, 6, 1), 25},
		{"later month", date(2000, 12, 31), date(2026, 6, 1), 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AgeAt(tt.dob, tt.now); got != tt.want {
				t.Errorf("AgeAt() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestProfile_PremiumActive(t *testing.T) {
	now := date(2026, 6, 1)
	past, future := now.Add(-time.Hour), now.Add(time.Hour)

	tests := []struct {
		name    string
		premium bool
		expires *time.Time
		want    bool
	}{
		{"not premium", false, &future, false},
		{"no expiry", true, nil, true},
		{"expires later", true, &future, true},
		{"expired", true, &past, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Profile{IsPremium: tt.premium, PremiumExpiresAt: tt.expires}
			if got := p.PremiumActive(now); got != tt.want {
				t.Errorf("PremiumActive() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestProfile_DiscoveryExclusions(t *testing.T) {
	liked, blocked, blockedBy := uuid.New(), uuid.New(), uuid.New()
	p := &Profile{
		ID:        uuid.New(),
		Likes:     []uuid.UUID{liked},
		Blocked:   []uuid.UUID{blocked},
		BlockedBy: []uuid.UUID{blockedBy},
	}

	got := p.DiscoveryExclusions()
	for _, id := range []uuid.UUID{p.ID, liked, blocked, blockedBy} {
		if !containsID(got, id) {
			t.Errorf("exclusions missing %s", id)
		}
	}
	if !p.BlocksEitherWay(blockedBy) || p.BlocksEitherWay(liked) {
		t.Error("BlocksEitherWay mismatch")
	}
}

func TestProfile_Summary(t *testing.T) {
	p := &Profile{
		ID:          uuid.New(),
		Name:        "Anna",
		DateOfBirth: date(1990, 1, 1),
		Photos:      []string{"https://cdn.example.com/a.jpg"},
	}
	s := p.Summary(date(2026, 1, 1))
	if s.Age != 36 || !s.ProfileCompleted {
		t.Errorf("summary = %+v", s)
	}
	if s.Distance != nil {
		t.Error("distance is only set by discovery")
	}
}

func TestNewMatch(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	now := date(2026, 6, 1)

	m, err := NewMatch(b, a, now)
	if err != nil {
		t.Fatalf("NewMatch: %v", err)
	}
	u1, u2 := CanonicalPair(a, b)
	if m.User1ID != u1 || m.User2ID != u2 || !m.IsActive {
		t.Errorf("unexpected match %+v", m)
	}

	if _, err := NewMatch(a, a, now); !errors.Is(err, ErrCannotLikeSelf) {
		t.Errorf("self match err = %v", err)
	}
}

func TestCanonicalPair_Symmetric(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	x1, y1 := CanonicalPair(a, b)
	x2, y2 := CanonicalPair(b, a)
	if x1 != x2 || y1 != y2 {
		t.Fatal("CanonicalPair depends on argument order")
	}
}

func TestMatch_Participants(t *testing.T) {
	m, _ := NewMatch(uuid.New(), uuid.New(), time.Now())
	m.User1Unread, m.User2Unread = 3, 1
	stranger := uuid.New()

	if other, ok := m.GetOtherUserID(m.User1ID); !ok || other != m.User2ID {
		t.Error("GetOtherUserID for user1")
	}
	if _, ok := m.GetOtherUserID(stranger); ok {
		t.Error("stranger is not a participant")
	}
	if m.UnreadFor(m.User1ID) != 3 || m.UnreadFor(m.User2ID) != 1 || m.UnreadFor(stranger) != 0 {
		t.Error("UnreadFor picked the wrong slot")
	}
	if s := m.SummaryFor(m.User2ID); s.UnreadCount != 1 {
		t.Errorf("SummaryFor unread = %d", s.UnreadCount)
	}
}

func TestValidation(t *testing.T) {
	now := date(2026, 6, 1)

	tests := []struct {
		name    string
		err     error
		wantErr bool
	}{
		{"email ok", ValidateEmail("anna@example.com"), false},
		{"email bad", ValidateEmail("anna"), true},
		{"phone ok", ValidatePhone("+14155550123"), false},
		{"phone bad", ValidatePhone("555-0123"), true},
		{"name short", ValidateName(" a "), true},
		{"password short", ValidatePassword("short"), true},
		{"gender bad", ValidateGender("robot"), true},
		{"adult", ValidateAdult(date(2008, 6, 1), now), false},
		{"underage", ValidateAdult(date(2008, 6, 2), now), true},
		{"bio long", ValidateBio(strings.Repeat("x", 501)), true},
		{"too many interests", ValidateInterests(make([]string, MaxInterests+1)), true},
		{"blank interest", ValidateInterests([]string{"  "}), true},
		{"lat out of range", ValidateLocation(91, 0), true},
		{"lon out of range", ValidateLocation(0, -181), true},
		{"location ok", ValidateLocation(-90, 180), false},
		{"photo ftp", ValidatePhotoURL("ftp://example.com/a.jpg"), true},
		{"photo ok", ValidatePhotoURL("https://cdn.example.com/a.jpg"), false},
		{"message blank", ValidateMessage("   ", MessageText), true},
		{"message 1000 runes", ValidateMessage(strings.Repeat("é", MaxMessageLength), MessageText), false},
		{"message too long", ValidateMessage(strings.Repeat("a", MaxMessageLength+1), MessageText), true},
		{"message type", ValidateMessage("hi", "video"), true},
		{"page zero", ValidatePage(0, 10), true},
		{"limit too big", ValidatePage(1, 101), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if (tt.err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", tt.err, tt.wantErr)
			}
			if tt.err != nil && KindOf(tt.err) != KindValidation {
				t.Errorf("kind = %s, want %s", KindOf(tt.err), KindValidation)
			}
		})
	}
}

func TestKindOf(t *testing.T) {
	if KindOf(ErrMatchInactive) != KindForbidden {
		t.Error("ErrMatchInactive should be forbidden")
	}
	if KindOf(errors.New("db down")) != KindInternal {
		t.Error("plain errors are internal")
	}
}
