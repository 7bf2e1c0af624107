package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/gdugdh24/nearmatch-backend/internal/domain"
	"github.com/gdugdh24/nearmatch-backend/internal/geo"
	"github.com/gdugdh24/nearmatch-backend/internal/repository"
	"github.com/google/uuid"
)

type profileRepository struct {
	store *Store
}

func NewProfileRepository(s *Store) repository.ProfileRepository {
	return &profileRepository{store: s}
}

func (r *profileRepository) Create(ctx context.Context, profile *domain.Profile) error {
	return r.store.write(ctx, func() error {
		for _, p := range r.store.profiles {
			if strings.EqualFold(p.Email, profile.Email) {
				return domain.ErrEmailTaken
			}
			if p.Phone == profile.Phone {
				return domain.ErrPhoneTaken
			}
		}
		if profile.ID == uuid.Nil {
			profile.ID = uuid.New()
		}
		r.store.profiles[profile.ID] = cloneProfile(profile)
		return nil
	})
}

func (r *profileRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Profile, error) {
	var out *domain.Profile
	r.store.read(func() {
		if p, ok := r.store.profiles[id]; ok {
			out = cloneProfile(p)
		}
	})
	if out == nil {
		return nil, domain.ErrProfileNotFound
	}
	return out, nil
}

func (r *profileRepository) GetByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	var out *domain.Profile
	r.store.read(func() {
		for _, p := range r.store.profiles {
			if strings.EqualFold(p.Email, email) {
				out = cloneProfile(p)
				return
			}
		}
	})
	if out == nil {
		return nil, domain.ErrProfileNotFound
	}
	return out, nil
}

func (r *profileRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.Profile, error) {
	out := make([]*domain.Profile, 0, len(ids))
	r.store.read(func() {
		for _, id := range ids {
			if p, ok := r.store.profiles[id]; ok {
				out = append(out, cloneProfile(p))
			}
		}
	})
	return out, nil
}

// mutate applies fn to the stored profile with the given id.
func (r *profileRepository) mutate(ctx context.Context, id uuid.UUID, fn func(p *domain.Profile) error) error {
	return r.store.write(ctx, func() error {
		p, ok := r.store.profiles[id]
		if !ok {
			return domain.ErrProfileNotFound
		}
		if err := fn(p); err != nil {
			return err
		}
		p.UpdatedAt = time.Now().UTC()
		return nil
	})
}

func (r *profileRepository) Update(ctx context.Context, profile *domain.Profile) error {
	return r.mutate(ctx, profile.ID, func(p *domain.Profile) error {
		p.Name = profile.Name
		p.Bio = profile.Bio
		p.Interests = cloneStrings(profile.Interests)
		p.NotificationToken = profile.NotificationToken
		return nil
	})
}

func (r *profileRepository) UpdateLocation(ctx context.Context, id uuid.UUID, loc domain.Location, at time.Time) error {
	return r.mutate(ctx, id, func(p *domain.Profile) error {
		p.Location = &loc
		p.LastActive = at
		return nil
	})
}

func (r *profileRepository) TouchLastActive(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.mutate(ctx, id, func(p *domain.Profile) error {
		p.LastActive = at
		return nil
	})
}

func (r *profileRepository) AddPhoto(ctx context.Context, id uuid.UUID, url string, max int) error {
	return r.mutate(ctx, id, func(p *domain.Profile) error {
		if len(p.Photos) >= max {
			return domain.ErrPhotoLimit
		}
		p.Photos = append(p.Photos, url)
		return nil
	})
}

func (r *profileRepository) SetPhotos(ctx context.Context, id uuid.UUID, photos []string) error {
	return r.mutate(ctx, id, func(p *domain.Profile) error {
		p.Photos = cloneStrings(photos)
		return nil
	})
}

// LockPair is a no-op here: every multi-step change already runs under the
// store transaction lock.
func (r *profileRepository) LockPair(ctx context.Context, a, b uuid.UUID) error {
	return nil
}

func (r *profileRepository) AddLike(ctx context.Context, from, to uuid.UUID) error {
	return r.store.write(ctx, func() error {
		src, ok := r.store.profiles[from]
		if !ok {
			return domain.ErrProfileNotFound
		}
		dst, ok := r.store.profiles[to]
		if !ok {
			return domain.ErrProfileNotFound
		}
		var added bool
		if src.Likes, added = appendUnique(src.Likes, to); !added {
			return domain.ErrAlreadyLiked
		}
		dst.LikedBy, _ = appendUnique(dst.LikedBy, from)
		return nil
	})
}

func (r *profileRepository) AddMatchLink(ctx context.Context, a, b uuid.UUID) error {
	return r.link(ctx, a, b, func(p *domain.Profile, other uuid.UUID) {
		p.Matches, _ = appendUnique(p.Matches, other)
	})
}

func (r *profileRepository) RemoveMatchLink(ctx context.Context, a, b uuid.UUID) error {
	return r.link(ctx, a, b, func(p *domain.Profile, other uuid.UUID) {
		p.Matches, _ = removeID(p.Matches, other)
	})
}

func (r *profileRepository) link(ctx context.Context, a, b uuid.UUID, fn func(p *domain.Profile, other uuid.UUID)) error {
	return r.store.write(ctx, func() error {
		pa, ok := r.store.profiles[a]
		if !ok {
			return domain.ErrProfileNotFound
		}
		pb, ok := r.store.profiles[b]
		if !ok {
			return domain.ErrProfileNotFound
		}
		fn(pa, b)
		fn(pb, a)
		return nil
	})
}

func (r *profileRepository) AddBlock(ctx context.Context, from, to uuid.UUID) error {
	return r.store.write(ctx, func() error {
		src, ok := r.store.profiles[from]
		if !ok {
			return domain.ErrProfileNotFound
		}
		dst, ok := r.store.profiles[to]
		if !ok {
			return domain.ErrProfileNotFound
		}
		var added bool
		if src.Blocked, added = appendUnique(src.Blocked, to); !added {
			return domain.ErrAlreadyBlocked
		}
		dst.BlockedBy, _ = appendUnique(dst.BlockedBy, from)
		return nil
	})
}

func (r *profileRepository) RemoveBlock(ctx context.Context, from, to uuid.UUID) error {
	return r.store.write(ctx, func() error {
		src, ok := r.store.profiles[from]
		if !ok {
			return domain.ErrProfileNotFound
		}
		var removed bool
		if src.Blocked, removed = removeID(src.Blocked, to); !removed {
			return domain.ErrNotBlocked
		}
		if dst, ok := r.store.profiles[to]; ok {
			dst.BlockedBy, _ = removeID(dst.BlockedBy, from)
		}
		return nil
	})
}

func (r *profileRepository) FindNearby(ctx context.Context, q repository.NearbyQuery) ([]*domain.Profile, error) {
	excluded := make(map[uuid.UUID]struct{}, len(q.Exclude))
	for _, id := range q.Exclude {
		excluded[id] = struct{}{}
	}

	type candidate struct {
		profile  *domain.Profile
		distance float64
	}
	var candidates []candidate

	r.store.read(func() {
		for id, p := range r.store.profiles {
			if _, skip := excluded[id]; skip {
				continue
			}
			if !p.Available() || !p.ProfileCompleted() || p.Location == nil {
				continue
			}
			d := geo.DistanceKm(q.Origin.Lat, q.Origin.Lon, p.Location.Lat, p.Location.Lon)
			if d > q.MaxDistanceKm {
				continue
			}
			candidates = append(candidates, candidate{profile: cloneProfile(p), distance: d})
		}
	})

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].distance != candidates[j].distance {
			return candidates[i].distance < candidates[j].distance
		}
		return candidates[i].profile.ID.String() < candidates[j].profile.ID.String()
	})

	out := make([]*domain.Profile, 0, q.Limit)
	for i := q.Offset; i < len(candidates) && len(out) < q.Limit; i++ {
		out = append(out, candidates[i].profile)
	}
	return out, nil
}
