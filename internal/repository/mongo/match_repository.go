package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gdugdh24/nearmatch-backend/internal/domain"
	"github.com/gdugdh24/nearmatch-backend/internal/repository"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type matchDoc struct {
	ID            string     `bson:"_id"`
	User1ID       string     `bson:"user1Id"`
	User2ID       string     `bson:"user2Id"`
	IsActive      bool       `bson:"isActive"`
	LastMessageAt *time.Time `bson:"lastMessageAt,omitempty"`
	User1Unread   int        `bson:"user1Unread"`
	User2Unread   int        `bson:"user2Unread"`
	CreatedAt     time.Time  `bson:"createdAt"`
	UpdatedAt     time.Time  `bson:"updatedAt"`
	// LastActivity mirrors lastMessageAt, falling back to createdAt, for sorting.
	LastActivity time.Time `bson:"lastActivity"`
}

func (d *matchDoc) toDomain() *domain.Match {
	return &domain.Match{
		ID:            parseID(d.ID),
		User1ID:       parseID(d.User1ID),
		User2ID:       parseID(d.User2ID),
		IsActive:      d.IsActive,
		LastMessageAt: d.LastMessageAt,
		User1Unread:   d.User1Unread,
		User2Unread:   d.User2Unread,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

type matchRepository struct {
	coll *mongo.Collection
}

func NewMatchRepository(db *mongo.Database) repository.MatchRepository {
	return &matchRepository{coll: db.Collection(matchesCollection)}
}

func (r *matchRepository) Create(ctx context.Context, match *domain.Match) error {
	match.User1ID, match.User2ID = domain.CanonicalPair(match.User1ID, match.User2ID)
	if match.ID == uuid.Nil {
		match.ID = uuid.New()
	}
	if match.CreatedAt.IsZero() {
		match.CreatedAt = now()
	}
	match.UpdatedAt = match.CreatedAt

	doc := matchDoc{
		ID:           idString(match.ID),
		User1ID:      idString(match.User1ID),
		User2ID:      idString(match.User2ID),
		IsActive:     match.IsActive,
		CreatedAt:    match.CreatedAt,
		UpdatedAt:    match.UpdatedAt,
		LastActivity: match.CreatedAt,
	}
	_, err := r.coll.InsertOne(ctx, doc)
	if index, ok := duplicateIndex(err); ok && index == activePairIndex {
		return domain.ErrMatchAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("failed to insert match: %w", err)
	}
	return nil
}

func (r *matchRepository) findOne(ctx context.Context, filter bson.M) (*domain.Match, error) {
	var doc matchDoc
	err := r.coll.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrMatchNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc.toDomain(), nil
}

func (r *matchRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Match, error) {
	return r.findOne(ctx, bson.M{"_id": idString(id)})
}

func (r *matchRepository) GetActiveByUsers(ctx context.Context, a, b uuid.UUID) (*domain.Match, error) {
	u1, u2 := domain.CanonicalPair(a, b)
	return r.findOne(ctx, bson.M{"user1Id": idString(u1), "user2Id": idString(u2), "isActive": true})
}

func activeFilter(userID uuid.UUID) bson.M {
	id := idString(userID)
	return bson.M{
		"isActive": true,
		"$or":      bson.A{bson.M{"user1Id": id}, bson.M{"user2Id": id}},
	}
}

func (r *matchRepository) ListActiveByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Match, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "lastActivity", Value: -1}, {Key: "_id", Value: 1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := r.coll.Find(ctx, activeFilter(userID), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []matchDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*domain.Match, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].toDomain())
	}
	return out, nil
}

func (r *matchRepository) ListActiveIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	opts := options.Find().SetProjection(bson.M{"_id": 1})
	cursor, err := r.coll.Find(ctx, activeFilter(userID), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []struct {
		ID string `bson:"_id"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, parseID(d.ID))
	}
	return ids, nil
}

func (r *matchRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": idString(id)},
		bson.M{"$set": bson.M{"isActive": false, "updatedAt": now()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrMatchNotFound
	}
	return nil
}

// slotExpr evaluates to field+delta when the slot belongs to userID and
// leaves it unchanged otherwise.
func slotExpr(field, idField, userID string, value interface{}) bson.D {
	return bson.D{{Key: "$cond", Value: bson.A{
		bson.D{{Key: "$eq", Value: bson.A{"$" + idField, userID}}},
		value,
		"$" + field,
	}}}
}

func (r *matchRepository) updateSlots(ctx context.Context, filter bson.M, set bson.D, notMatched error) error {
	res, err := r.coll.UpdateOne(ctx, filter, mongo.Pipeline{{{Key: "$set", Value: set}}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return notMatched
	}
	return nil
}

func (r *matchRepository) RecordMessage(ctx context.Context, id, recipientID uuid.UUID, at time.Time) error {
	rid := idString(recipientID)
	filter := bson.M{
		"_id":      idString(id),
		"isActive": true,
		"$or":      bson.A{bson.M{"user1Id": rid}, bson.M{"user2Id": rid}},
	}
	set := bson.D{
		{Key: "user1Unread", Value: slotExpr("user1Unread", "user1Id", rid, bson.D{{Key: "$add", Value: bson.A{"$user1Unread", 1}}})},
		{Key: "user2Unread", Value: slotExpr("user2Unread", "user2Id", rid, bson.D{{Key: "$add", Value: bson.A{"$user2Unread", 1}}})},
		{Key: "lastMessageAt", Value: at},
		{Key: "lastActivity", Value: at},
		{Key: "updatedAt", Value: at},
	}
	return r.updateSlots(ctx, filter, set, domain.ErrMatchInactive)
}

func (r *matchRepository) ResetUnread(ctx context.Context, id, userID uuid.UUID) error {
	uid := idString(userID)
	set := bson.D{
		{Key: "user1Unread", Value: slotExpr("user1Unread", "user1Id", uid, 0)},
		{Key: "user2Unread", Value: slotExpr("user2Unread", "user2Id", uid, 0)},
	}
	return r.updateSlots(ctx, bson.M{"_id": idString(id)}, set, domain.ErrMatchNotFound)
}

func (r *matchRepository) DecrementUnread(ctx context.Context, id, userID uuid.UUID) error {
	uid := idString(userID)
	dec := func(field string) bson.D {
		return bson.D{{Key: "$max", Value: bson.A{0, bson.D{{Key: "$subtract", Value: bson.A{"$" + field, 1}}}}}}
	}
	set := bson.D{
		{Key: "user1Unread", Value: slotExpr("user1Unread", "user1Id", uid, dec("user1Unread"))},
		{Key: "user2Unread", Value: slotExpr("user2Unread", "user2Id", uid, dec("user2Unread"))},
	}
	return r.updateSlots(ctx, bson.M{"_id": idString(id)}, set, domain.ErrMatchNotFound)
}
