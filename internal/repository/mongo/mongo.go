// Package mongo stores profiles, matches and messages as documents. Profile
// locations are GeoJSON points behind a 2dsphere index; multi-document
// changes run in session transactions (a replica set is required).
package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gdugdh24/nearmatch-backend/internal/repository"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	profilesCollection = "profiles"
	matchesCollection  = "matches"
	messagesCollection = "messages"
	countersCollection = "counters"

	emailIndex      = "email_unique"
	phoneIndex      = "phone_unique"
	activePairIndex = "active_pair_unique"

	duplicateKeyCode = 11000
)

// EnsureIndexes creates the unique, partial and geo indexes the repositories
// rely on. It is safe to call on every start.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		profilesCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName(emailIndex)},
			{Keys: bson.D{{Key: "phone", Value: 1}}, Options: options.Index().SetUnique(true).SetName(phoneIndex)},
			{Keys: bson.D{{Key: "location", Value: "2dsphere"}}, Options: options.Index().SetName("location_2dsphere")},
		},
		matchesCollection: {
			{
				Keys: bson.D{{Key: "user1Id", Value: 1}, {Key: "user2Id", Value: 1}},
				Options: options.Index().
					SetUnique(true).
					SetName(activePairIndex).
					SetPartialFilterExpression(bson.M{"isActive": true}),
			},
			{Keys: bson.D{{Key: "user1Id", Value: 1}, {Key: "isActive", Value: 1}}},
			{Keys: bson.D{{Key: "user2Id", Value: 1}, {Key: "isActive", Value: 1}}},
		},
		messagesCollection: {
			{Keys: bson.D{{Key: "matchId", Value: 1}, {Key: "createdAt", Value: -1}, {Key: "seq", Value: -1}}},
		},
	}

	for coll, models := range indexes {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create %s indexes: %w", coll, err)
		}
	}
	return nil
}

type transactor struct {
	client *mongo.Client
}

func NewTransactor(client *mongo.Client) repository.Transactor {
	return &transactor{client: client}
}

// WithinTx runs fn in a session transaction. The driver retries fn on
// transient errors such as write conflicts, so fn must not keep state
// between attempts.
func (t *transactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}

	session, err := t.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

// duplicateIndex returns the unique index a write violated. The server only
// names it in the error message ("... index: phone_unique dup key: ...").
func duplicateIndex(err error) (string, bool) {
	var we mongo.WriteException
	if !errors.As(err, &we) {
		return "", false
	}
	for _, e := range we.WriteErrors {
		if e.Code != duplicateKeyCode {
			continue
		}
		_, rest, found := strings.Cut(e.Message, "index: ")
		if !found {
			return "", true
		}
		name, _, _ := strings.Cut(rest, " ")
		return name, true
	}
	return "", false
}

func idString(id uuid.UUID) string {
	return id.String()
}

func idStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func parseID(s string) uuid.UUID {
	id, _ := uuid.Parse(s)
	return id
}

func parseIDs(in []string) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(in))
	for _, s := range in {
		if id, err := uuid.Parse(s); err == nil {
			out = append(out, id)
		}
	}
	return out
}

func now() time.Time {
	return time.Now().UTC()
}
