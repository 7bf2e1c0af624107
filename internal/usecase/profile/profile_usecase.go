package profile

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gdugdh24/nearmatch-backend/internal/domain"
	"github.com/gdugdh24/nearmatch-backend/internal/geo"
	"github.com/gdugdh24/nearmatch-backend/internal/repository"
	"github.com/google/uuid"
)

type ProfileUseCase struct {
	tx          repository.Transactor
	profileRepo repository.ProfileRepository
	matchRepo   repository.MatchRepository
	now         func() time.Time
}

func NewProfileUseCase(
	tx repository.Transactor,
	profileRepo repository.ProfileRepository,
	matchRepo repository.MatchRepository,
) *ProfileUseCase {
	return &ProfileUseCase{
		tx:          tx,
		profileRepo: profileRepo,
		matchRepo:   matchRepo,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// UpdateProfileRequest represents profile update request
type UpdateProfileRequest struct {
	Name              *string   `json:"name"`
	Bio               *string   `json:"bio"`
	Interests         *[]string `json:"interests"`
	NotificationToken *string   `json:"notificationToken"`
}

// UpdateLocationRequest represents a location update
type UpdateLocationRequest struct {
	Lat *float64 `json:"lat" binding:"required"`
	Lon *float64 `json:"lon" binding:"required"`
}

// AddPhotoRequest carries a photo reference. Uploading is handled elsewhere.
type AddPhotoRequest struct {
	URL string `json:"url" binding:"required"`
}

// MeResponse is the owner's view of a profile with its derived fields.
type MeResponse struct {
	*domain.Profile
	Age              int  `json:"age"`
	ProfileCompleted bool `json:"profileCompleted"`
	PremiumActive    bool `json:"premiumActive"`
}

func (uc *ProfileUseCase) me(p *domain.Profile) *MeResponse {
	now := uc.now()
	return &MeResponse{
		Profile:          p,
		Age:              p.Age(now),
		ProfileCompleted: p.ProfileCompleted(),
		PremiumActive:    p.PremiumActive(now),
	}
}

// GetMe returns current user's profile
func (uc *ProfileUseCase) GetMe(ctx context.Context, userID uuid.UUID) (*MeResponse, error) {
	profile, err := uc.profileRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return uc.me(profile), nil
}

// GetProfile returns the public view of targetID as seen by viewerID. Blocked
// and disabled profiles are reported as not found.
func (uc *ProfileUseCase) GetProfile(ctx context.Context, viewerID, targetID uuid.UUID) (*domain.ProfileSummary, error) {
	viewer, err := uc.profileRepo.GetByID(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	target, err := uc.profileRepo.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if viewerID != targetID && (!target.Available() || viewer.BlocksEitherWay(targetID)) {
		return nil, domain.ErrProfileNotFound
	}

	summary := target.Summary(uc.now())
	if viewerID != targetID && viewer.Location != nil && target.Location != nil {
		d := geo.RoundedDistanceKm(viewer.Location.Lat, viewer.Location.Lon, target.Location.Lat, target.Location.Lon)
		summary.Distance = &d
	}
	return summary, nil
}

// UpdateProfile updates user profile
func (uc *ProfileUseCase) UpdateProfile(ctx context.Context, userID uuid.UUID, req *UpdateProfileRequest) (*MeResponse, error) {
	profile, err := uc.profileRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	// Update fields if provided
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if err := domain.ValidateName(name); err != nil {
			return nil, err
		}
		profile.Name = name
	}
	if req.Bio != nil {
		if err := domain.ValidateBio(*req.Bio); err != nil {
			return nil, err
		}
		profile.Bio = req.Bio
	}
	if req.Interests != nil {
		if err := domain.ValidateInterests(*req.Interests); err != nil {
			return nil, err
		}
		profile.Interests = *req.Interests
	}
	if req.NotificationToken != nil {
		profile.NotificationToken = req.NotificationToken
	}

	if err := uc.profileRepo.Update(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	return uc.me(profile), nil
}

// UpdateLocation stores the caller's coordinates and counts as activity.
func (uc *ProfileUseCase) UpdateLocation(ctx context.Context, userID uuid.UUID, req *UpdateLocationRequest) (*MeResponse, error) {
	if req.Lat == nil || req.Lon == nil {
		return nil, domain.ValidationError("lat and lon are required")
	}
	if err := domain.ValidateLocation(*req.Lat, *req.Lon); err != nil {
		return nil, err
	}

	loc := domain.Location{Lat: *req.Lat, Lon: *req.Lon}
	if err := uc.profileRepo.UpdateLocation(ctx, userID, loc, uc.now()); err != nil {
		if errors.Is(err, domain.ErrProfileNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update location: %w", err)
	}
	return uc.GetMe(ctx, userID)
}

// AddPhoto appends a photo URL, up to domain.MaxPhotos.
func (uc *ProfileUseCase) AddPhoto(ctx context.Context, userID uuid.UUID, req *AddPhotoRequest) (*MeResponse, error) {
	url := strings.TrimSpace(req.URL)
	if err := domain.ValidatePhotoURL(url); err != nil {
		return nil, err
	}
	if err := uc.profileRepo.AddPhoto(ctx, userID, url, domain.MaxPhotos); err != nil {
		if domain.KindOf(err) != domain.KindInternal {
			return nil, err
		}
		return nil, fmt.Errorf("failed to add photo: %w", err)
	}
	return uc.GetMe(ctx, userID)
}

// RemovePhoto drops the photo at index, keeping the order of the rest.
func (uc *ProfileUseCase) RemovePhoto(ctx context.Context, userID uuid.UUID, index int) (*MeResponse, error) {
	profile, err := uc.profileRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(profile.Photos) {
		return nil, domain.ErrPhotoIndexOutOfRange
	}

	photos := make([]string, 0, len(profile.Photos)-1)
	photos = append(photos, profile.Photos[:index]...)
	photos = append(photos, profile.Photos[index+1:]...)
	if err := uc.profileRepo.SetPhotos(ctx, userID, photos); err != nil {
		return nil, fmt.Errorf("failed to update photos: %w", err)
	}
	profile.Photos = photos
	return uc.me(profile), nil
}

// Block records userID -> targetID in both directed sets and ends any active
// match between the two.
func (uc *ProfileUseCase) Block(ctx context.Context, userID, targetID uuid.UUID) error {
	if userID == targetID {
		return domain.ErrCannotBlockSelf
	}
	if _, err := uc.profileRepo.GetByID(ctx, targetID); err != nil {
		return err
	}

	return uc.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := uc.profileRepo.LockPair(ctx, userID, targetID); err != nil {
			return fmt.Errorf("failed to lock profiles: %w", err)
		}
		if err := uc.profileRepo.AddBlock(ctx, userID, targetID); err != nil {
			return err
		}

		match, err := uc.matchRepo.GetActiveByUsers(ctx, userID, targetID)
		if errors.Is(err, domain.ErrMatchNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to look up match: %w", err)
		}
		if err := uc.matchRepo.Deactivate(ctx, match.ID); err != nil {
			return fmt.Errorf("failed to deactivate match: %w", err)
		}
		if err := uc.profileRepo.RemoveMatchLink(ctx, userID, targetID); err != nil {
			return fmt.Errorf("failed to unlink match: %w", err)
		}
		log.Printf("[Profile] match %s ended by block", match.ID)
		return nil
	})
}

func (uc *ProfileUseCase) Unblock(ctx context.Context, userID, targetID uuid.UUID) error {
	return uc.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := uc.profileRepo.LockPair(ctx, userID, targetID); err != nil {
			return fmt.Errorf("failed to lock profiles: %w", err)
		}
		return uc.profileRepo.RemoveBlock(ctx, userID, targetID)
	})
}

// ListBlocked returns summaries of the profiles the caller blocked.
func (uc *ProfileUseCase) ListBlocked(ctx context.Context, userID uuid.UUID) ([]*domain.ProfileSummary, error) {
	profile, err := uc.profileRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	blocked, err := uc.profileRepo.GetByIDs(ctx, profile.Blocked)
	if err != nil {
		return nil, fmt.Errorf("failed to load blocked profiles: %w", err)
	}

	now := uc.now()
	out := make([]*domain.ProfileSummary, 0, len(blocked))
	for _, p := range blocked {
		out = append(out, p.Summary(now))
	}
	return out, nil
}
