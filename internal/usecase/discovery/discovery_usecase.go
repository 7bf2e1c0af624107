package discovery

import (
	"context"
	"fmt"
	"time"

	"github.com/gdugdh24/nearmatch-backend/internal/domain"
	"github.com/gdugdh24/nearmatch-backend/internal/geo"
	"github.com/gdugdh24/nearmatch-backend/internal/repository"
	"github.com/google/uuid"
)

const (
	DefaultPageSize      = 20
	DefaultMaxDistanceKm = 50
	MaxDistanceLimitKm   = 20000
)

type DiscoveryUseCase struct {
	profileRepo repository.ProfileRepository
	now         func() time.Time
}

func NewDiscoveryUseCase(profileRepo repository.ProfileRepository) *DiscoveryUseCase {
	return &DiscoveryUseCase{
		profileRepo: profileRepo,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// DiscoverRequest holds the query parameters of a discovery call.
type DiscoverRequest struct {
	Page        int     `form:"page"`
	Limit       int     `form:"limit"`
	MaxDistance float64 `form:"maxDistance"`
}

// Normalize fills in defaults for omitted parameters.
func (r *DiscoverRequest) Normalize() {
	if r.Page == 0 {
		r.Page = 1
	}
	if r.Limit == 0 {
		r.Limit = DefaultPageSize
	}
	if r.MaxDistance == 0 {
		r.MaxDistance = DefaultMaxDistanceKm
	}
}

type Pagination struct {
	Page    int  `json:"page"`
	Limit   int  `json:"limit"`
	HasMore bool `json:"hasMore"`
}

type DiscoverResponse struct {
	Users      []*domain.ProfileSummary `json:"users"`
	Pagination Pagination               `json:"pagination"`
}

// FindCandidates returns nearby eligible profiles ordered by distance. Paging
// is offset based, so pages can shift when profiles change between calls.
func (uc *DiscoveryUseCase) FindCandidates(ctx context.Context, seekerID uuid.UUID, req DiscoverRequest) (*DiscoverResponse, error) {
	if err := domain.ValidatePage(req.Page, req.Limit); err != nil {
		return nil, err
	}
	if req.MaxDistance <= 0 || req.MaxDistance > MaxDistanceLimitKm {
		return nil, domain.ValidationError(fmt.Sprintf("maxDistance must be between 0 and %d km", MaxDistanceLimitKm))
	}

	seeker, err := uc.profileRepo.GetByID(ctx, seekerID)
	if err != nil {
		return nil, err
	}
	if seeker.Location == nil {
		return nil, domain.ErrLocationRequired
	}

	candidates, err := uc.profileRepo.FindNearby(ctx, repository.NearbyQuery{
		Origin:        *seeker.Location,
		MaxDistanceKm: req.MaxDistance,
		Exclude:       seeker.DiscoveryExclusions(),
		Offset:        (req.Page - 1) * req.Limit,
		Limit:         req.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search nearby profiles: %w", err)
	}

	now := uc.now()
	users := make([]*domain.ProfileSummary, 0, len(candidates))
	for _, c := range candidates {
		summary := c.Summary(now)
		if c.Location != nil {
			d := geo.RoundedDistanceKm(seeker.Location.Lat, seeker.Location.Lon, c.Location.Lat, c.Location.Lon)
			summary.Distance = &d
		}
		users = append(users, summary)
	}

	return &DiscoverResponse{
		Users: users,
		Pagination: Pagination{
			Page:    req.Page,
			Limit:   req.Limit,
			HasMore: len(users) == req.Limit,
		},
	}, nil
}
