package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gdugdh24/nearmatch-backend/internal/domain"
	"github.com/gdugdh24/nearmatch-backend/internal/repository"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type geoPoint struct {
	Type        string    `bson:"type"`
	Coordinates []float64 `bson:"coordinates"` // [lon, lat]
}

type profileDoc struct {
	ID                string     `bson:"_id"`
	Name              string     `bson:"name"`
	Email             string     `bson:"email"`
	Phone             string     `bson:"phone"`
	PasswordHash      string     `bson:"passwordHash"`
	Gender            string     `bson:"gender"`
	DateOfBirth       time.Time  `bson:"dateOfBirth"`
	Bio               *string    `bson:"bio,omitempty"`
	Interests         []string   `bson:"interests"`
	Photos            []string   `bson:"photos"`
	Location          *geoPoint  `bson:"location,omitempty"`
	IsActive          bool       `bson:"isActive"`
	IsBlocked         bool       `bson:"isBlocked"`
	IsVerified        bool       `bson:"isVerified"`
	IsPremium         bool       `bson:"isPremium"`
	PremiumExpiresAt  *time.Time `bson:"premiumExpiresAt,omitempty"`
	Likes             []string   `bson:"likes"`
	LikedBy           []string   `bson:"likedBy"`
	Matches           []string   `bson:"matches"`
	Blocked           []string   `bson:"blocked"`
	BlockedBy         []string   `bson:"blockedBy"`
	NotificationToken *string    `bson:"notificationToken,omitempty"`
	LastActive        time.Time  `bson:"lastActive"`
	CreatedAt         time.Time  `bson:"createdAt"`
	UpdatedAt         time.Time  `bson:"updatedAt"`
	LockVersion       int64      `bson:"lockVersion"`
}

func newProfileDoc(p *domain.Profile) *profileDoc {
	doc := &profileDoc{
		ID:                idString(p.ID),
		Name:              p.Name,
		Email:             strings.ToLower(p.Email),
		Phone:             p.Phone,
		PasswordHash:      p.PasswordHash,
		Gender:            string(p.Gender),
		DateOfBirth:       p.DateOfBirth,
		Bio:               p.Bio,
		Interests:         nonNil(p.Interests),
		Photos:            nonNil(p.Photos),
		IsActive:          p.IsActive,
		IsBlocked:         p.IsBlocked,
		IsVerified:        p.IsVerified,
		IsPremium:         p.IsPremium,
		PremiumExpiresAt:  p.PremiumExpiresAt,
		Likes:             idStrings(p.Likes),
		LikedBy:           idStrings(p.LikedBy),
		Matches:           idStrings(p.Matches),
		Blocked:           idStrings(p.Blocked),
		BlockedBy:         idStrings(p.BlockedBy),
		NotificationToken: p.NotificationToken,
		LastActive:        p.LastActive,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
	if p.Location != nil {
		doc.Location = pointOf(*p.Location)
	}
	return doc
}

func (d *profileDoc) toDomain() *domain.Profile {
	p := &domain.Profile{
		ID:                parseID(d.ID),
		Name:              d.Name,
		Email:             d.Email,
		Phone:             d.Phone,
		PasswordHash:      d.PasswordHash,
		Gender:            domain.Gender(d.Gender),
		DateOfBirth:       d.DateOfBirth,
		Bio:               d.Bio,
		Interests:         d.Interests,
		Photos:            d.Photos,
		IsActive:          d.IsActive,
		IsBlocked:         d.IsBlocked,
		IsVerified:        d.IsVerified,
		IsPremium:         d.IsPremium,
		PremiumExpiresAt:  d.PremiumExpiresAt,
		Likes:             parseIDs(d.Likes),
		LikedBy:           parseIDs(d.LikedBy),
		Matches:           parseIDs(d.Matches),
		Blocked:           parseIDs(d.Blocked),
		BlockedBy:         parseIDs(d.BlockedBy),
		NotificationToken: d.NotificationToken,
		LastActive:        d.LastActive,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
	}
	if d.Location != nil && len(d.Location.Coordinates) == 2 {
		p.Location = &domain.Location{Lat: d.Location.Coordinates[1], Lon: d.Location.Coordinates[0]}
	}
	return p
}

func pointOf(loc domain.Location) *geoPoint {
	return &geoPoint{Type: "Point", Coordinates: []float64{loc.Lon, loc.Lat}}
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

type profileRepository struct {
	coll *mongo.Collection
}

func NewProfileRepository(db *mongo.Database) repository.ProfileRepository {
	return &profileRepository{coll: db.Collection(profilesCollection)}
}

func (r *profileRepository) Create(ctx context.Context, profile *domain.Profile) error {
	if profile.ID == uuid.Nil {
		profile.ID = uuid.New()
	}
	ts := now()
	profile.CreatedAt, profile.UpdatedAt = ts, ts

	_, err := r.coll.InsertOne(ctx, newProfileDoc(profile))
	if index, ok := duplicateIndex(err); ok {
		switch index {
		case phoneIndex:
			return domain.ErrPhoneTaken
		case emailIndex:
			return domain.ErrEmailTaken
		}
	}
	if err != nil {
		return fmt.Errorf("failed to insert profile: %w", err)
	}
	return nil
}

func (r *profileRepository) findOne(ctx context.Context, filter bson.M) (*domain.Profile, error) {
	var doc profileDoc
	err := r.coll.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc.toDomain(), nil
}

func (r *profileRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Profile, error) {
	return r.findOne(ctx, bson.M{"_id": idString(id)})
}

func (r *profileRepository) GetByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	return r.findOne(ctx, bson.M{"email": strings.ToLower(email)})
}

func (r *profileRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.Profile, error) {
	if len(ids) == 0 {
		return []*domain.Profile{}, nil
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": idStrings(ids)}})
}

func (r *profileRepository) find(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]*domain.Profile, error) {
	cursor, err := r.coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []profileDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*domain.Profile, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].toDomain())
	}
	return out, nil
}

// updateOne applies update to the profile matched by filter. When nothing
// matched it reports ErrProfileNotFound for a missing profile and notMatched
// otherwise.
func (r *profileRepository) updateOne(ctx context.Context, id uuid.UUID, extra bson.M, update bson.M, notMatched error) error {
	filter := bson.M{"_id": idString(id)}
	for k, v := range extra {
		filter[k] = v
	}
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount > 0 {
		return nil
	}
	if notMatched == nil {
		return domain.ErrProfileNotFound
	}
	n, err := r.coll.CountDocuments(ctx, bson.M{"_id": idString(id)})
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrProfileNotFound
	}
	return notMatched
}

func (r *profileRepository) Update(ctx context.Context, profile *domain.Profile) error {
	profile.UpdatedAt = now()
	update := bson.M{"$set": bson.M{
		"name":              profile.Name,
		"bio":               profile.Bio,
		"interests":         nonNil(profile.Interests),
		"notificationToken": profile.NotificationToken,
		"updatedAt":         profile.UpdatedAt,
	}}
	return r.updateOne(ctx, profile.ID, nil, update, nil)
}

func (r *profileRepository) UpdateLocation(ctx context.Context, id uuid.UUID, loc domain.Location, at time.Time) error {
	update := bson.M{"$set": bson.M{"location": pointOf(loc), "lastActive": at, "updatedAt": now()}}
	return r.updateOne(ctx, id, nil, update, nil)
}

func (r *profileRepository) TouchLastActive(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.updateOne(ctx, id, nil, bson.M{"$set": bson.M{"lastActive": at}}, nil)
}

func (r *profileRepository) AddPhoto(ctx context.Context, id uuid.UUID, url string, max int) error {
	// photos.<max-1> missing means fewer than max photos are stored.
	extra := bson.M{fmt.Sprintf("photos.%d", max-1): bson.M{"$exists": false}}
	update := bson.M{"$push": bson.M{"photos": url}, "$set": bson.M{"updatedAt": now()}}
	return r.updateOne(ctx, id, extra, update, domain.ErrPhotoLimit)
}

func (r *profileRepository) SetPhotos(ctx context.Context, id uuid.UUID, photos []string) error {
	update := bson.M{"$set": bson.M{"photos": nonNil(photos), "updatedAt": now()}}
	return r.updateOne(ctx, id, nil, update, nil)
}

// LockPair writes to both documents. Two transactions doing the same hit a
// write conflict and the driver retries the later one against committed data.
func (r *profileRepository) LockPair(ctx context.Context, a, b uuid.UUID) error {
	_, err := r.coll.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": []string{idString(a), idString(b)}}},
		bson.M{"$inc": bson.M{"lockVersion": 1}},
	)
	if err != nil {
		return fmt.Errorf("failed to lock profiles: %w", err)
	}
	return nil
}

func (r *profileRepository) AddLike(ctx context.Context, from, to uuid.UUID) error {
	extra := bson.M{"likes": bson.M{"$ne": idString(to)}}
	update := bson.M{"$push": bson.M{"likes": idString(to)}, "$set": bson.M{"updatedAt": now()}}
	if err := r.updateOne(ctx, from, extra, update, domain.ErrAlreadyLiked); err != nil {
		return err
	}
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": idString(to)},
		bson.M{"$addToSet": bson.M{"likedBy": idString(from)}},
	)
	return err
}

func (r *profileRepository) AddMatchLink(ctx context.Context, a, b uuid.UUID) error {
	if _, err := r.coll.UpdateOne(ctx, bson.M{"_id": idString(a)}, bson.M{"$addToSet": bson.M{"matches": idString(b)}}); err != nil {
		return err
	}
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": idString(b)}, bson.M{"$addToSet": bson.M{"matches": idString(a)}})
	return err
}

func (r *profileRepository) RemoveMatchLink(ctx context.Context, a, b uuid.UUID) error {
	if _, err := r.coll.UpdateOne(ctx, bson.M{"_id": idString(a)}, bson.M{"$pull": bson.M{"matches": idString(b)}}); err != nil {
		return err
	}
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": idString(b)}, bson.M{"$pull": bson.M{"matches": idString(a)}})
	return err
}

func (r *profileRepository) AddBlock(ctx context.Context, from, to uuid.UUID) error {
	extra := bson.M{"blocked": bson.M{"$ne": idString(to)}}
	update := bson.M{"$push": bson.M{"blocked": idString(to)}, "$set": bson.M{"updatedAt": now()}}
	if err := r.updateOne(ctx, from, extra, update, domain.ErrAlreadyBlocked); err != nil {
		return err
	}
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": idString(to)},
		bson.M{"$addToSet": bson.M{"blockedBy": idString(from)}},
	)
	return err
}

func (r *profileRepository) RemoveBlock(ctx context.Context, from, to uuid.UUID) error {
	extra := bson.M{"blocked": idString(to)}
	update := bson.M{"$pull": bson.M{"blocked": idString(to)}, "$set": bson.M{"updatedAt": now()}}
	if err := r.updateOne(ctx, from, extra, update, domain.ErrNotBlocked); err != nil {
		return err
	}
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": idString(to)},
		bson.M{"$pull": bson.M{"blockedBy": idString(from)}},
	)
	return err
}

// FindNearby relies on $nearSphere, which returns documents nearest first.
func (r *profileRepository) FindNearby(ctx context.Context, q repository.NearbyQuery) ([]*domain.Profile, error) {
	filter := bson.M{
		"location": bson.M{"$nearSphere": bson.M{
			"$geometry":    pointOf(q.Origin),
			"$maxDistance": q.MaxDistanceKm * 1000,
		}},
		"isActive":  true,
		"isBlocked": false,
		"photos.0":  bson.M{"$exists": true},
		"_id":       bson.M{"$nin": idStrings(q.Exclude)},
	}
	opts := options.Find().SetSkip(int64(q.Offset)).SetLimit(int64(q.Limit))
	profiles, err := r.find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query nearby profiles: %w", err)
	}
	return profiles, nil
}
