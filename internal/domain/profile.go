package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	MinAge       = 18
	MaxInterests = 10
	MaxPhotos    = 6
)

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type Profile struct {
	ID                uuid.UUID   `json:"id"`
	Name              string      `json:"name"`
	Email             string      `json:"email"`
	Phone             string      `json:"phone"`
	PasswordHash      string      `json:"-"`
	Gender            Gender      `json:"gender"`
	DateOfBirth       time.Time   `json:"dateOfBirth"`
	Bio               *string     `json:"bio"`
	Interests         []string    `json:"interests"`
	Photos            []string    `json:"photos"`
	Location          *Location   `json:"location"`
	IsActive          bool        `json:"isActive"`
	IsBlocked         bool        `json:"isBlocked"`
	IsVerified        bool        `json:"isVerified"`
	IsPremium         bool        `json:"isPremium"`
	PremiumExpiresAt  *time.Time  `json:"premiumExpiresAt"`
	Likes             []uuid.UUID `json:"likes"`
	LikedBy           []uuid.UUID `json:"likedBy"`
	Matches           []uuid.UUID `json:"matches"`
	Blocked           []uuid.UUID `json:"blocked"`
	BlockedBy         []uuid.UUID `json:"-"`
	NotificationToken *string     `json:"-"`
	LastActive        time.Time   `json:"lastActive"`
	CreatedAt         time.Time   `json:"createdAt"`
	UpdatedAt         time.Time   `json:"updatedAt"`
}

// Age is derived from the date of birth, never stored.
func (p *Profile) Age(now time.Time) int {
	return AgeAt(p.DateOfBirth, now)
}

// ProfileCompleted reports whether the profile has at least one photo.
func (p *Profile) ProfileCompleted() bool {
	return len(p.Photos) > 0
}

func (p *Profile) PremiumActive(now time.Time) bool {
	if !p.IsPremium {
		return false
	}
	return p.PremiumExpiresAt == nil || p.PremiumExpiresAt.After(now)
}

// Available reports whether other users may interact with this profile.
func (p *Profile) Available() bool {
	return p.IsActive && !p.IsBlocked
}

func (p *Profile) HasLiked(id uuid.UUID) bool {
	return containsID(p.Likes, id)
}

func (p *Profile) HasMatch(id uuid.UUID) bool {
	return containsID(p.Matches, id)
}

// BlocksEitherWay reports whether a block exists between p and id in any direction.
func (p *Profile) BlocksEitherWay(id uuid.UUID) bool {
	return containsID(p.Blocked, id) || containsID(p.BlockedBy, id)
}

func (p *Profile) HasBlocked(id uuid.UUID) bool {
	return containsID(p.Blocked, id)
}

// DiscoveryExclusions returns every id the profile must never see in discovery.
func (p *Profile) DiscoveryExclusions() []uuid.UUID {
	out := make([]uuid.UUID, 0, 1+len(p.Likes)+len(p.Blocked)+len(p.BlockedBy))
	out = append(out, p.ID)
	out = append(out, p.Likes...)
	out = append(out, p.Blocked...)
	out = append(out, p.BlockedBy...)
	return out
}

// Summary is the public view of a profile shown to other users.
func (p *Profile) Summary(now time.Time) *ProfileSummary {
	return &ProfileSummary{
		ID:               p.ID,
		Name:             p.Name,
		Age:              p.Age(now),
		Gender:           p.Gender,
		Bio:              p.Bio,
		Interests:        p.Interests,
		Photos:           p.Photos,
		IsVerified:       p.IsVerified,
		ProfileCompleted: p.ProfileCompleted(),
		LastActive:       p.LastActive,
	}
}

type ProfileSummary struct {
	ID               uuid.UUID `json:"id"`
	Name             string    `json:"name"`
	Age              int       `json:"age"`
	Gender           Gender    `json:"gender"`
	Bio              *string   `json:"bio"`
	Interests        []string  `json:"interests"`
	Photos           []string  `json:"photos"`
	IsVerified       bool      `json:"isVerified"`
	ProfileCompleted bool      `json:"profileCompleted"`
	LastActive       time.Time `json:"lastActive"`
	Distance         *float64  `json:"distance,omitempty"`
}

// AgeAt returns the number of full years between dob and now.
func AgeAt(dob, now time.Time) int {
	years := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		years--
	}
	return years
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
