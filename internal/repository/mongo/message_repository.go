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

type messageDoc struct {
	ID        string     `bson:"_id"`
	Seq       int64      `bson:"seq"`
	MatchID   string     `bson:"matchId"`
	SenderID  string     `bson:"senderId"`
	Body      string     `bson:"message"`
	Type      string     `bson:"messageType"`
	IsRead    bool       `bson:"isRead"`
	ReadAt    *time.Time `bson:"readAt,omitempty"`
	IsDeleted bool       `bson:"isDeleted"`
	DeletedAt *time.Time `bson:"deletedAt,omitempty"`
	CreatedAt time.Time  `bson:"createdAt"`
}

func (d *messageDoc) toDomain() *domain.Message {
	return &domain.Message{
		ID:        parseID(d.ID),
		MatchID:   parseID(d.MatchID),
		SenderID:  parseID(d.SenderID),
		Body:      d.Body,
		Type:      domain.MessageType(d.Type),
		IsRead:    d.IsRead,
		ReadAt:    d.ReadAt,
		IsDeleted: d.IsDeleted,
		DeletedAt: d.DeletedAt,
		CreatedAt: d.CreatedAt,
		Seq:       d.Seq,
	}
}

type messageRepository struct {
	coll     *mongo.Collection
	counters *mongo.Collection
}

func NewMessageRepository(db *mongo.Database) repository.MessageRepository {
	return &messageRepository{
		coll:     db.Collection(messagesCollection),
		counters: db.Collection(countersCollection),
	}
}

// seqKey names the per-match counter document, so concurrent sends only
// contend within one conversation.
func seqKey(matchID uuid.UUID) string {
	return "messages:" + idString(matchID)
}

func (r *messageRepository) nextSeq(ctx context.Context, matchID uuid.UUID) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	err := r.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": seqKey(matchID)},
		bson.M{"$inc": bson.M{"seq": 1}},
		opts,
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate message seq: %w", err)
	}
	return counter.Seq, nil
}

func (r *messageRepository) Create(ctx context.Context, msg *domain.Message) error {
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	seq, err := r.nextSeq(ctx, msg.MatchID)
	if err != nil {
		return err
	}
	msg.Seq = seq

	doc := messageDoc{
		ID:        idString(msg.ID),
		Seq:       msg.Seq,
		MatchID:   idString(msg.MatchID),
		SenderID:  idString(msg.SenderID),
		Body:      msg.Body,
		Type:      string(msg.Type),
		CreatedAt: msg.CreatedAt,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

func (r *messageRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	var doc messageDoc
	err := r.coll.FindOne(ctx, bson.M{"_id": idString(id)}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrMessageNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc.toDomain(), nil
}

func (r *messageRepository) ListByMatch(ctx context.Context, matchID uuid.UUID, limit, offset int) ([]*domain.Message, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "seq", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := r.coll.Find(ctx, bson.M{"matchId": idString(matchID), "isDeleted": false}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []messageDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*domain.Message, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].toDomain())
	}
	return out, nil
}

func (r *messageRepository) MarkRead(ctx context.Context, matchID, readerID uuid.UUID, at time.Time) (int64, error) {
	res, err := r.coll.UpdateMany(ctx,
		bson.M{"matchId": idString(matchID), "senderId": bson.M{"$ne": idString(readerID)}, "isRead": false},
		bson.M{"$set": bson.M{"isRead": true, "readAt": at}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (r *messageRepository) SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": idString(id), "isDeleted": false},
		bson.M{"$set": bson.M{"isDeleted": true, "deletedAt": at}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrMessageNotFound
	}
	return nil
}

func (r *messageRepository) CountUnread(ctx context.Context, matchIDs []uuid.UUID, userID uuid.UUID) (map[uuid.UUID]int, error) {
	counts := make(map[uuid.UUID]int, len(matchIDs))
	if len(matchIDs) == 0 {
		return counts, nil
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"matchId":   bson.M{"$in": idStrings(matchIDs)},
			"senderId":  bson.M{"$ne": idString(userID)},
			"isRead":    false,
			"isDeleted": false,
		}}},
		{{Key: "$group", Value: bson.M{"_id": "$matchId", "count": bson.M{"$sum": 1}}}},
	}
	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		MatchID string `bson:"_id"`
		Count   int    `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[parseID(row.MatchID)] = row.Count
	}
	return counts, nil
}

func (r *messageRepository) CountByMatch(ctx context.Context, matchID uuid.UUID, includeDeleted bool) (int, error) {
	filter := bson.M{"matchId": idString(matchID)}
	if !includeDeleted {
		filter["isDeleted"] = false
	}
	n, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
