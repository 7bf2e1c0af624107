package mongo

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/gdugdh24/nearmatch-backend/internal/domain"
	"github.com/gdugdh24/nearmatch-backend/internal/repository"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func newMockT(t *testing.T) *mtest.T {
	return mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
}

func duplicateKeyResponse(index string) bson.D {
	return mtest.CreateWriteErrorsResponse(mtest.WriteError{
		Index:   0,
		Code:    duplicateKeyCode,
		Message: fmt.Sprintf("E11000 duplicate key error collection: test.coll index: %s dup key: { : \"x\" }", index),
	})
}

func updateResponse(matched int) bson.D {
	return mtest.CreateSuccessResponse(
		bson.E{Key: "n", Value: matched},
		bson.E{Key: "nModified", Value: matched},
	)
}

func ns(mt *mtest.T, coll string) string {
	return mt.DB.Name() + "." + coll
}

// startedCommand returns the next command sent to the server.
func startedCommand(mt *mtest.T) bson.Raw {
	mt.Helper()
	evt := mt.GetStartedEvent()
	if evt == nil {
		mt.Fatal("no command was sent")
	}
	return evt.Command
}

func TestDuplicateIndex(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantIndex string
		wantOK    bool
	}{
		{"nil", nil, "", false},
		{"other error", errors.New("boom"), "", false},
		{
			name: "phone index",
			err: mongo.WriteException{WriteErrors: mongo.WriteErrors{{
				Code:    duplicateKeyCode,
				Message: `E11000 duplicate key error collection: app.profiles index: phone_unique dup key: { phone: "+15550001111" }`,
			}}},
			wantIndex: phoneIndex,
			wantOK:    true,
		},
		{
			name: "email value mentions phone",
			err: mongo.WriteException{WriteErrors: mongo.WriteErrors{{
				Code:    duplicateKeyCode,
				Message: `E11000 duplicate key error collection: app.profiles index: email_unique dup key: { email: "phone@example.com" }`,
			}}},
			wantIndex: emailIndex,
			wantOK:    true,
		},
		{
			name:   "other write error",
			err:    mongo.WriteException{WriteErrors: mongo.WriteErrors{{Code: 121, Message: "Document failed validation"}}},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			index, ok := duplicateIndex(tt.err)
			if index != tt.wantIndex || ok != tt.wantOK {
				t.Errorf("duplicateIndex() = (%q, %v), want (%q, %v)", index, ok, tt.wantIndex, tt.wantOK)
			}
		})
	}
}

func TestProfileRepository(t *testing.T) {
	mt := newMockT(t)

	newProfile := func() *domain.Profile {
		return &domain.Profile{
			Name:         "Anna",
			Email:        "Anna@Example.com",
			Phone:        "+15550001111",
			Gender:       domain.GenderFemale,
			DateOfBirth:  time.Date(1995, 3, 14, 0, 0, 0, 0, time.UTC),
			IsActive:     true,
			PasswordHash: "hash",
		}
	}

	mt.Run("create maps unique indexes", func(mt *mtest.T) {
		tests := []struct {
			index string
			want  error
		}{
			{phoneIndex, domain.ErrPhoneTaken},
			{emailIndex, domain.ErrEmailTaken},
		}
		repo := NewProfileRepository(mt.DB)
		for _, tt := range tests {
			mt.AddMockResponses(duplicateKeyResponse(tt.index))
			if err := repo.Create(context.Background(), newProfile()); !errors.Is(err, tt.want) {
				mt.Errorf("index %s: err = %v, want %v", tt.index, err, tt.want)
			}
		}
	})

	mt.Run("create lowercases email", func(mt *mtest.T) {
		repo := NewProfileRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))

		p := newProfile()
		if err := repo.Create(context.Background(), p); err != nil {
			mt.Fatalf("Create: %v", err)
		}
		doc := startedCommand(mt).Lookup("documents").Array().Index(0).Value().Document()
		if got := doc.Lookup("email").StringValue(); got != "anna@example.com" {
			mt.Errorf("stored email = %q", got)
		}
		if got := doc.Lookup("_id").StringValue(); got != p.ID.String() {
			mt.Errorf("stored _id = %q, want %s", got, p.ID)
		}
	})

	mt.Run("get by id", func(mt *mtest.T) {
		repo := NewProfileRepository(mt.DB)
		id, liked := uuid.New(), uuid.New()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt, profilesCollection), mtest.FirstBatch, bson.D{
			{Key: "_id", Value: id.String()},
			{Key: "name", Value: "Anna"},
			{Key: "gender", Value: "female"},
			{Key: "photos", Value: bson.A{"https://cdn.example.com/a.jpg"}},
			{Key: "location", Value: bson.D{{Key: "type", Value: "Point"}, {Key: "coordinates", Value: bson.A{13.405, 52.52}}}},
			{Key: "likes", Value: bson.A{liked.String()}},
			{Key: "isActive", Value: true},
		}))

		p, err := repo.GetByID(context.Background(), id)
		if err != nil {
			mt.Fatalf("GetByID: %v", err)
		}
		if p.ID != id || p.Location == nil || p.Location.Lat != 52.52 || p.Location.Lon != 13.405 {
			mt.Errorf("unexpected profile %+v", p)
		}
		if !p.HasLiked(liked) {
			mt.Errorf("Likes = %v", p.Likes)
		}
	})

	mt.Run("get by id not found", func(mt *mtest.T) {
		repo := NewProfileRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt, profilesCollection), mtest.FirstBatch))

		if _, err := repo.GetByID(context.Background(), uuid.New()); !errors.Is(err, domain.ErrProfileNotFound) {
			mt.Fatalf("err = %v, want ErrProfileNotFound", err)
		}
	})

	mt.Run("add photo at limit", func(mt *mtest.T) {
		repo := NewProfileRepository(mt.DB)
		mt.AddMockResponses(
			updateResponse(0),
			mtest.CreateCursorResponse(0, ns(mt, profilesCollection), mtest.FirstBatch, bson.D{{Key: "_id", Value: 1}, {Key: "n", Value: 1}}),
		)

		err := repo.AddPhoto(context.Background(), uuid.New(), "https://cdn.example.com/x.jpg", domain.MaxPhotos)
		if !errors.Is(err, domain.ErrPhotoLimit) {
			mt.Fatalf("err = %v, want ErrPhotoLimit", err)
		}
		filter := startedCommand(mt).Lookup("updates").Array().Index(0).Value().Document().Lookup("q").Document()
		key := fmt.Sprintf("photos.%d", domain.MaxPhotos-1)
		if _, err := filter.LookupErr(key); err != nil {
			mt.Errorf("update filter %s has no %s guard", filter, key)
		}
	})

	mt.Run("add like twice", func(mt *mtest.T) {
		repo := NewProfileRepository(mt.DB)
		mt.AddMockResponses(
			updateResponse(0),
			mtest.CreateCursorResponse(0, ns(mt, profilesCollection), mtest.FirstBatch, bson.D{{Key: "_id", Value: 1}, {Key: "n", Value: 1}}),
		)

		if err := repo.AddLike(context.Background(), uuid.New(), uuid.New()); !errors.Is(err, domain.ErrAlreadyLiked) {
			mt.Fatalf("err = %v, want ErrAlreadyLiked", err)
		}
	})

	mt.Run("lock pair bumps both versions", func(mt *mtest.T) {
		repo := NewProfileRepository(mt.DB)
		mt.AddMockResponses(updateResponse(2))

		a, b := uuid.New(), uuid.New()
		if err := repo.LockPair(context.Background(), a, b); err != nil {
			mt.Fatalf("LockPair: %v", err)
		}
		update := startedCommand(mt).Lookup("updates").Array().Index(0).Value().Document()
		if !update.Lookup("multi").Boolean() {
			mt.Error("lock must touch both documents")
		}
		if _, err := update.LookupErr("u", "$inc", "lockVersion"); err != nil {
			mt.Errorf("update %s does not bump lockVersion", update)
		}
	})

	mt.Run("find nearby", func(mt *mtest.T) {
		repo := NewProfileRepository(mt.DB)
		near := uuid.New()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt, profilesCollection), mtest.FirstBatch, bson.D{
			{Key: "_id", Value: near.String()},
			{Key: "photos", Value: bson.A{"https://cdn.example.com/a.jpg"}},
			{Key: "location", Value: bson.D{{Key: "type", Value: "Point"}, {Key: "coordinates", Value: bson.A{-73.9352, 40.7306}}}},
			{Key: "isActive", Value: true},
		}))

		excluded := uuid.New()
		got, err := repo.FindNearby(context.Background(), repository.NearbyQuery{
			Origin:        domain.Location{Lat: 40.7128, Lon: -74.0060},
			MaxDistanceKm: 50,
			Exclude:       []uuid.UUID{excluded},
			Offset:        20,
			Limit:         10,
		})
		if err != nil {
			mt.Fatalf("FindNearby: %v", err)
		}
		if len(got) != 1 || got[0].ID != near {
			mt.Fatalf("got %v", got)
		}

		cmd := startedCommand(mt)
		if d, ok := cmd.Lookup("filter", "location", "$nearSphere", "$maxDistance").DoubleOK(); !ok || d != 50000 {
			mt.Errorf("$maxDistance = %v, want 50000 meters", cmd.Lookup("filter", "location", "$nearSphere", "$maxDistance"))
		}
		coords := cmd.Lookup("filter", "location", "$nearSphere", "$geometry", "coordinates").Array()
		if coords.Index(0).Value().Double() != -74.0060 {
			mt.Errorf("geometry must be [lon, lat], got %s", coords)
		}
		nin := cmd.Lookup("filter", "_id", "$nin").Array()
		if nin.Index(0).Value().StringValue() != excluded.String() {
			mt.Errorf("$nin = %s", nin)
		}
		if v, ok := cmd.Lookup("skip").Int64OK(); !ok || v != 20 {
			mt.Errorf("skip = %v", cmd.Lookup("skip"))
		}
		if v, ok := cmd.Lookup("limit").Int64OK(); !ok || v != 10 {
			mt.Errorf("limit = %v", cmd.Lookup("limit"))
		}
		if !cmd.Lookup("filter", "isActive").Boolean() || cmd.Lookup("filter", "isBlocked").Boolean() {
			mt.Error("filter must keep only available profiles")
		}
	})
}

func TestMatchRepository(t *testing.T) {
	mt := newMockT(t)

	mt.Run("create conflict on active pair", func(mt *mtest.T) {
		repo := NewMatchRepository(mt.DB)
		mt.AddMockResponses(duplicateKeyResponse(activePairIndex))

		m, _ := domain.NewMatch(uuid.New(), uuid.New(), time.Now())
		if err := repo.Create(context.Background(), m); !errors.Is(err, domain.ErrMatchAlreadyExists) {
			mt.Fatalf("err = %v, want ErrMatchAlreadyExists", err)
		}
	})

	mt.Run("create duplicate id is not a pair conflict", func(mt *mtest.T) {
		repo := NewMatchRepository(mt.DB)
		mt.AddMockResponses(duplicateKeyResponse("_id_"))

		m, _ := domain.NewMatch(uuid.New(), uuid.New(), time.Now())
		err := repo.Create(context.Background(), m)
		if err == nil || errors.Is(err, domain.ErrMatchAlreadyExists) {
			mt.Fatalf("err = %v, want a storage error", err)
		}
	})

	mt.Run("record message on inactive match", func(mt *mtest.T) {
		repo := NewMatchRepository(mt.DB)
		mt.AddMockResponses(updateResponse(0))

		err := repo.RecordMessage(context.Background(), uuid.New(), uuid.New(), time.Now())
		if !errors.Is(err, domain.ErrMatchInactive) {
			mt.Fatalf("err = %v, want ErrMatchInactive", err)
		}
		update := startedCommand(mt).Lookup("updates").Array().Index(0).Value().Document()
		if !update.Lookup("q", "isActive").Boolean() {
			mt.Error("filter must require an active match")
		}
		if _, ok := update.Lookup("u").ArrayOK(); !ok {
			mt.Error("unread slots are updated with a pipeline")
		}
	})

	mt.Run("reset and decrement target the caller's slot", func(mt *mtest.T) {
		repo := NewMatchRepository(mt.DB)
		user := uuid.New()
		mt.AddMockResponses(updateResponse(1), updateResponse(1))

		if err := repo.ResetUnread(context.Background(), uuid.New(), user); err != nil {
			mt.Fatalf("ResetUnread: %v", err)
		}
		if err := repo.DecrementUnread(context.Background(), uuid.New(), user); err != nil {
			mt.Fatalf("DecrementUnread: %v", err)
		}

		for _, op := range []string{"reset", "decrement"} {
			stage := startedCommand(mt).Lookup("updates").Array().Index(0).Value().Document().Lookup("u").Array().Index(0).Value().Document()
			cond := stage.Lookup("$set", "user1Unread", "$cond").Array()
			eq := cond.Index(0).Value().Document().Lookup("$eq").Array()
			if eq.Index(0).Value().StringValue() != "$user1Id" || eq.Index(1).Value().StringValue() != user.String() {
				mt.Errorf("%s: slot condition %s", op, eq)
			}
		}
	})

	mt.Run("decrement unknown match", func(mt *mtest.T) {
		repo := NewMatchRepository(mt.DB)
		mt.AddMockResponses(updateResponse(0))

		if err := repo.DecrementUnread(context.Background(), uuid.New(), uuid.New()); !errors.Is(err, domain.ErrMatchNotFound) {
			mt.Fatalf("err = %v, want ErrMatchNotFound", err)
		}
	})
}

func TestMessageRepository(t *testing.T) {
	mt := newMockT(t)

	mt.Run("create allocates seq per match", func(mt *mtest.T) {
		repo := NewMessageRepository(mt.DB)
		matchID := uuid.New()
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: bson.D{
				{Key: "_id", Value: seqKey(matchID)},
				{Key: "seq", Value: int64(7)},
			}}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
		)

		msg := &domain.Message{MatchID: matchID, SenderID: uuid.New(), Body: "hi", Type: domain.MessageText, CreatedAt: time.Now()}
		if err := repo.Create(context.Background(), msg); err != nil {
			mt.Fatalf("Create: %v", err)
		}
		if msg.Seq != 7 {
			mt.Errorf("Seq = %d, want 7", msg.Seq)
		}

		counter := startedCommand(mt)
		if got := counter.Lookup("query", "_id").StringValue(); got != seqKey(matchID) {
			mt.Errorf("counter key = %q, want %q", got, seqKey(matchID))
		}
		insert := startedCommand(mt).Lookup("documents").Array().Index(0).Value().Document()
		if insert.Lookup("matchId").StringValue() != matchID.String() || insert.Lookup("isRead").Boolean() {
			mt.Errorf("inserted %s", insert)
		}
	})

	mt.Run("list newest first", func(mt *mtest.T) {
		repo := NewMessageRepository(mt.DB)
		matchID := uuid.New()
		newer, older := uuid.New(), uuid.New()
		t0 := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt, messagesCollection), mtest.FirstBatch,
			bson.D{{Key: "_id", Value: newer.String()}, {Key: "matchId", Value: matchID.String()}, {Key: "createdAt", Value: t0.Add(time.Minute)}, {Key: "seq", Value: int64(2)}},
			bson.D{{Key: "_id", Value: older.String()}, {Key: "matchId", Value: matchID.String()}, {Key: "createdAt", Value: t0}, {Key: "seq", Value: int64(1)}},
		))

		got, err := repo.ListByMatch(context.Background(), matchID, 50, 0)
		if err != nil {
			mt.Fatalf("ListByMatch: %v", err)
		}
		if len(got) != 2 || got[0].ID != newer || got[1].Seq != 1 {
			mt.Fatalf("got %+v", got)
		}

		cmd := startedCommand(mt)
		if cmd.Lookup("filter", "isDeleted").Boolean() {
			mt.Error("deleted messages must be filtered out")
		}
		sort := cmd.Lookup("sort").Document()
		if sort.Lookup("createdAt").Int32() != -1 || sort.Lookup("seq").Int32() != -1 {
			mt.Errorf("sort = %s", sort)
		}
	})

	mt.Run("mark read skips own messages", func(mt *mtest.T) {
		repo := NewMessageRepository(mt.DB)
		reader := uuid.New()
		mt.AddMockResponses(updateResponse(3))

		n, err := repo.MarkRead(context.Background(), uuid.New(), reader, time.Now())
		if err != nil || n != 3 {
			mt.Fatalf("MarkRead = %d, %v", n, err)
		}
		q := startedCommand(mt).Lookup("updates").Array().Index(0).Value().Document().Lookup("q").Document()
		if q.Lookup("senderId", "$ne").StringValue() != reader.String() {
			mt.Errorf("filter = %s", q)
		}
	})

	mt.Run("soft delete twice", func(mt *mtest.T) {
		repo := NewMessageRepository(mt.DB)
		mt.AddMockResponses(updateResponse(0))

		if err := repo.SoftDelete(context.Background(), uuid.New(), time.Now()); !errors.Is(err, domain.ErrMessageNotFound) {
			mt.Fatalf("err = %v, want ErrMessageNotFound", err)
		}
	})

	mt.Run("count unread", func(mt *mtest.T) {
		repo := NewMessageRepository(mt.DB)
		m1, m2 := uuid.New(), uuid.New()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt, messagesCollection), mtest.FirstBatch,
			bson.D{{Key: "_id", Value: m1.String()}, {Key: "count", Value: 4}},
		))

		counts, err := repo.CountUnread(context.Background(), []uuid.UUID{m1, m2}, uuid.New())
		if err != nil {
			mt.Fatalf("CountUnread: %v", err)
		}
		if counts[m1] != 4 || counts[m2] != 0 {
			mt.Errorf("counts = %v", counts)
		}
	})
}
