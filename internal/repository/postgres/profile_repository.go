package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/gdugdh24/nearmatch-backend/internal/domain"
	"github.com/gdugdh24/nearmatch-backend/internal/geo"
	"github.com/gdugdh24/nearmatch-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const profileColumns = `
	id, name, email, phone, password_hash, gender, date_of_birth, bio,
	interests, photos, location_lat, location_lon,
	is_active, is_blocked, is_verified, is_premium, premium_expires_at,
	likes, liked_by, matches, blocked, blocked_by,
	notification_token, last_active, created_at, updated_at`

type profileRow struct {
	ID                uuid.UUID      `db:"id"`
	Name              string         `db:"name"`
	Email             string         `db:"email"`
	Phone             string         `db:"phone"`
	PasswordHash      string         `db:"password_hash"`
	Gender            string         `db:"gender"`
	DateOfBirth       time.Time      `db:"date_of_birth"`
	Bio               *string        `db:"bio"`
	Interests         pq.StringArray `db:"interests"`
	Photos            pq.StringArray `db:"photos"`
	LocationLat       *float64       `db:"location_lat"`
	LocationLon       *float64       `db:"location_lon"`
	IsActive          bool           `db:"is_active"`
	IsBlocked         bool           `db:"is_blocked"`
	IsVerified        bool           `db:"is_verified"`
	IsPremium         bool           `db:"is_premium"`
	PremiumExpiresAt  *time.Time     `db:"premium_expires_at"`
	Likes             pq.StringArray `db:"likes"`
	LikedBy           pq.StringArray `db:"liked_by"`
	Matches           pq.StringArray `db:"matches"`
	Blocked           pq.StringArray `db:"blocked"`
	BlockedBy         pq.StringArray `db:"blocked_by"`
	NotificationToken *string        `db:"notification_token"`
	LastActive        time.Time      `db:"last_active"`
	CreatedAt         time.Time      `db:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at"`
}

func (r *profileRow) toDomain() *domain.Profile {
	p := &domain.Profile{
		ID:                r.ID,
		Name:              r.Name,
		Email:             r.Email,
		Phone:             r.Phone,
		PasswordHash:      r.PasswordHash,
		Gender:            domain.Gender(r.Gender),
		DateOfBirth:       r.DateOfBirth,
		Bio:               r.Bio,
		Interests:         []string(r.Interests),
		Photos:            []string(r.Photos),
		IsActive:          r.IsActive,
		IsBlocked:         r.IsBlocked,
		IsVerified:        r.IsVerified,
		IsPremium:         r.IsPremium,
		PremiumExpiresAt:  r.PremiumExpiresAt,
		Likes:             parseIDs(r.Likes),
		LikedBy:           parseIDs(r.LikedBy),
		Matches:           parseIDs(r.Matches),
		Blocked:           parseIDs(r.Blocked),
		BlockedBy:         parseIDs(r.BlockedBy),
		NotificationToken: r.NotificationToken,
		LastActive:        r.LastActive,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
	if r.LocationLat != nil && r.LocationLon != nil {
		p.Location = &domain.Location{Lat: *r.LocationLat, Lon: *r.LocationLon}
	}
	return p
}

type profileRepository struct {
	db *sqlx.DB
}

func NewProfileRepository(db *sqlx.DB) repository.ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) Create(ctx context.Context, profile *domain.Profile) error {
	if profile.ID == uuid.Nil {
		profile.ID = uuid.New()
	}

	var lat, lon *float64
	if profile.Location != nil {
		lat, lon = &profile.Location.Lat, &profile.Location.Lon
	}

	query := `
		INSERT INTO profiles (
			id, name, email, phone, password_hash, gender, date_of_birth, bio,
			interests, photos, location_lat, location_lon,
			is_active, is_blocked, is_verified, is_premium, premium_expires_at,
			notification_token, last_active
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		RETURNING created_at, updated_at
	`
	err := conn(ctx, r.db).QueryRowxContext(
		ctx, query,
		profile.ID, profile.Name, profile.Email, profile.Phone, profile.PasswordHash,
		string(profile.Gender), profile.DateOfBirth, profile.Bio,
		textArray(profile.Interests), textArray(profile.Photos), lat, lon,
		profile.IsActive, profile.IsBlocked, profile.IsVerified, profile.IsPremium, profile.PremiumExpiresAt,
		profile.NotificationToken, profile.LastActive,
	).Scan(&profile.CreatedAt, &profile.UpdatedAt)
	if constraint, ok := uniqueConstraint(err); ok {
		switch constraint {
		case "profiles_email_key":
			return domain.ErrEmailTaken
		case "profiles_phone_key":
			return domain.ErrPhoneTaken
		}
	}
	if err != nil {
		return fmt.Errorf("failed to insert profile: %w", err)
	}
	return nil
}

func (r *profileRepository) get(ctx context.Context, where string, arg interface{}) (*domain.Profile, error) {
	var row profileRow
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE ` + where
	err := conn(ctx, r.db).GetContext(ctx, &row, query, arg)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, err
	}
	return row.toDomain(), nil
}

func (r *profileRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Profile, error) {
	return r.get(ctx, `id = $1`, id)
}

func (r *profileRepository) GetByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	return r.get(ctx, `lower(email) = lower($1)`, email)
}

func (r *profileRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.Profile, error) {
	if len(ids) == 0 {
		return []*domain.Profile{}, nil
	}
	var rows []profileRow
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = ANY($1::uuid[])`
	if err := conn(ctx, r.db).SelectContext(ctx, &rows, query, idStrings(ids)); err != nil {
		return nil, err
	}
	out := make([]*domain.Profile, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}

// exec runs an update on a single profile and maps zero affected rows to
// notFound when the profile exists, ErrProfileNotFound otherwise.
func (r *profileRepository) exec(ctx context.Context, id uuid.UUID, notFound error, query string, args ...interface{}) error {
	res, err := conn(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := affected(res)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	if notFound == nil {
		return domain.ErrProfileNotFound
	}
	var exists bool
	if err := conn(ctx, r.db).GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM profiles WHERE id = $1)`, id); err != nil {
		return err
	}
	if !exists {
		return domain.ErrProfileNotFound
	}
	return notFound
}

func (r *profileRepository) Update(ctx context.Context, profile *domain.Profile) error {
	query := `
		UPDATE profiles
		SET name = $1, bio = $2, interests = $3, notification_token = $4,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = $5
		RETURNING updated_at
	`
	err := conn(ctx, r.db).QueryRowxContext(
		ctx, query,
		profile.Name, profile.Bio, textArray(profile.Interests), profile.NotificationToken,
		profile.ID,
	).Scan(&profile.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrProfileNotFound
	}
	return err
}

func (r *profileRepository) UpdateLocation(ctx context.Context, id uuid.UUID, loc domain.Location, at time.Time) error {
	query := `
		UPDATE profiles
		SET location_lat = $1, location_lon = $2, last_active = $3, updated_at = CURRENT_TIMESTAMP
		WHERE id = $4
	`
	return r.exec(ctx, id, nil, query, loc.Lat, loc.Lon, at, id)
}

func (r *profileRepository) TouchLastActive(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.exec(ctx, id, nil, `UPDATE profiles SET last_active = $1 WHERE id = $2`, at, id)
}

func (r *profileRepository) AddPhoto(ctx context.Context, id uuid.UUID, url string, max int) error {
	query := `
		UPDATE profiles
		SET photos = array_append(photos, $1), updated_at = CURRENT_TIMESTAMP
		WHERE id = $2 AND cardinality(photos) < $3
	`
	return r.exec(ctx, id, domain.ErrPhotoLimit, query, url, id, max)
}

func (r *profileRepository) SetPhotos(ctx context.Context, id uuid.UUID, photos []string) error {
	query := `UPDATE profiles SET photos = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`
	return r.exec(ctx, id, nil, query, textArray(photos), id)
}

// LockPair takes row locks on both profiles in id order, so two transactions
// working on the same pair never interleave and never deadlock.
func (r *profileRepository) LockPair(ctx context.Context, a, b uuid.UUID) error {
	if !inTx(ctx) {
		return errors.New("LockPair requires a transaction")
	}
	var locked []uuid.UUID
	query := `SELECT id FROM profiles WHERE id IN ($1, $2) ORDER BY id FOR UPDATE`
	if err := conn(ctx, r.db).SelectContext(ctx, &locked, query, a, b); err != nil {
		return fmt.Errorf("failed to lock profiles: %w", err)
	}
	return nil
}

func (r *profileRepository) AddLike(ctx context.Context, from, to uuid.UUID) error {
	query := `
		UPDATE profiles
		SET likes = array_append(likes, $1::uuid), updated_at = CURRENT_TIMESTAMP
		WHERE id = $2 AND NOT ($1::uuid = ANY (likes))
	`
	if err := r.exec(ctx, from, domain.ErrAlreadyLiked, query, to, from); err != nil {
		return err
	}
	reverse := `
		UPDATE profiles
		SET liked_by = array_append(liked_by, $1::uuid)
		WHERE id = $2 AND NOT ($1::uuid = ANY (liked_by))
	`
	_, err := conn(ctx, r.db).ExecContext(ctx, reverse, from, to)
	return err
}

func (r *profileRepository) AddMatchLink(ctx context.Context, a, b uuid.UUID) error {
	query := `
		UPDATE profiles
		SET matches = array_append(matches, $1::uuid), updated_at = CURRENT_TIMESTAMP
		WHERE id = $2 AND NOT ($1::uuid = ANY (matches))
	`
	if _, err := conn(ctx, r.db).ExecContext(ctx, query, b, a); err != nil {
		return err
	}
	_, err := conn(ctx, r.db).ExecContext(ctx, query, a, b)
	return err
}

func (r *profileRepository) RemoveMatchLink(ctx context.Context, a, b uuid.UUID) error {
	query := `
		UPDATE profiles
		SET matches = array_remove(matches, $1::uuid), updated_at = CURRENT_TIMESTAMP
		WHERE id = $2
	`
	if _, err := conn(ctx, r.db).ExecContext(ctx, query, b, a); err != nil {
		return err
	}
	_, err := conn(ctx, r.db).ExecContext(ctx, query, a, b)
	return err
}

func (r *profileRepository) AddBlock(ctx context.Context, from, to uuid.UUID) error {
	query := `
		UPDATE profiles
		SET blocked = array_append(blocked, $1::uuid), updated_at = CURRENT_TIMESTAMP
		WHERE id = $2 AND NOT ($1::uuid = ANY (blocked))
	`
	if err := r.exec(ctx, from, domain.ErrAlreadyBlocked, query, to, from); err != nil {
		return err
	}
	reverse := `
		UPDATE profiles
		SET blocked_by = array_append(blocked_by, $1::uuid)
		WHERE id = $2 AND NOT ($1::uuid = ANY (blocked_by))
	`
	_, err := conn(ctx, r.db).ExecContext(ctx, reverse, from, to)
	return err
}

func (r *profileRepository) RemoveBlock(ctx context.Context, from, to uuid.UUID) error {
	query := `
		UPDATE profiles
		SET blocked = array_remove(blocked, $1::uuid), updated_at = CURRENT_TIMESTAMP
		WHERE id = $2 AND $1::uuid = ANY (blocked)
	`
	if err := r.exec(ctx, from, domain.ErrNotBlocked, query, to, from); err != nil {
		return err
	}
	reverse := `UPDATE profiles SET blocked_by = array_remove(blocked_by, $1::uuid) WHERE id = $2`
	_, err := conn(ctx, r.db).ExecContext(ctx, reverse, from, to)
	return err
}

// FindNearby filters discoverable profiles by haversine distance computed in
// SQL and returns them nearest first.
func (r *profileRepository) FindNearby(ctx context.Context, q repository.NearbyQuery) ([]*domain.Profile, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM (
			SELECT p.*,
			       2 * %f * asin(LEAST(1, sqrt(
			           power(sin(radians(p.location_lat - $1) / 2), 2) +
			           cos(radians($1)) * cos(radians(p.location_lat)) *
			           power(sin(radians(p.location_lon - $2) / 2), 2)
			       ))) AS distance_km
			FROM profiles p
			WHERE p.is_active AND NOT p.is_blocked
			  AND cardinality(p.photos) > 0
			  AND p.location_lat IS NOT NULL AND p.location_lon IS NOT NULL
			  AND NOT (p.id = ANY ($3::uuid[]))
		) candidates
		WHERE distance_km <= $4
		ORDER BY distance_km ASC, id ASC
		LIMIT $5 OFFSET $6
	`, profileColumns, geo.EarthRadiusKm)

	var rows []profileRow
	err := conn(ctx, r.db).SelectContext(
		ctx, &rows, query,
		q.Origin.Lat, q.Origin.Lon, idStrings(q.Exclude), q.MaxDistanceKm, q.Limit, q.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query nearby profiles: %w", err)
	}

	out := make([]*domain.Profile, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}
