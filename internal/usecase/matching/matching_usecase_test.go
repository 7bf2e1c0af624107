package matching

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/gdugdh24/nearmatch-backend/internal/domain"
	"github.com/gdugdh24/nearmatch-backend/internal/repository"
	"github.com/gdugdh24/nearmatch-backend/internal/repository/memory"
	"github.com/google/uuid"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []domain.MatchCreated
	err    error
}

func (n *recordingNotifier) MatchCreated(ctx context.Context, event domain.MatchCreated) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return n.err
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.events)
}

type fixture struct {
	uc       *MatchingUseCase
	store    *memory.Store
	notifier *recordingNotifier
	seq      int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	notifier := &recordingNotifier{}
	uc := NewMatchingUseCase(
		memory.NewTransactor(store),
		memory.NewProfileRepository(store),
		memory.NewMatchRepository(store),
		notifier,
	)
	return &fixture{uc: uc, store: store, notifier: notifier}
}

func (f *fixture) addProfile(t *testing.T, mutate ...func(p *domain.Profile)) *domain.Profile {
	t.Helper()
	f.seq++
	p := &domain.Profile{
		ID:          uuid.New(),
		Name:        fmt.Sprintf("User %d", f.seq),
		Email:       fmt.Sprintf("user%d@example.com", f.seq),
		Phone:       fmt.Sprintf("+1555000%04d", f.seq),
		Gender:      domain.GenderOther,
		DateOfBirth: time.Date(1995, 5, 1, 0, 0, 0, 0, time.UTC),
		Photos:      []string{"https://cdn.example.com/p.jpg"},
		IsActive:    true,
	}
	for _, m := range mutate {
		m(p)
	}
	if err := memory.NewProfileRepository(f.store).Create(context.Background(), p); err != nil {
		t.Fatalf("failed to create profile: %v", err)
	}
	return p
}

func (f *fixture) profile(t *testing.T, id uuid.UUID) *domain.Profile {
	t.Helper()
	p, err := memory.NewProfileRepository(f.store).GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("failed to load profile: %v", err)
	}
	return p
}

func (f *fixture) activeMatches(t *testing.T, userID uuid.UUID) []uuid.UUID {
	t.Helper()
	ids, err := memory.NewMatchRepository(f.store).ListActiveIDs(context.Background(), userID)
	if err != nil {
		t.Fatalf("failed to list matches: %v", err)
	}
	return ids
}

func TestLike_OneSidedThenMutual(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.addProfile(t)
	b := f.addProfile(t)

	resp, err := f.uc.Like(ctx, a.ID, b.ID)
	if err != nil {
		t.Fatalf("first like failed: %v", err)
	}
	if resp.IsMatch || resp.Match != nil {
		t.Fatalf("expected no match after one-sided like, got %+v", resp)
	}
	if got := f.profile(t, b.ID); !containsID(got.LikedBy, a.ID) {
		t.Error("expected target likedBy to contain seeker")
	}

	resp, err = f.uc.Like(ctx, b.ID, a.ID)
	if err != nil {
		t.Fatalf("second like failed: %v", err)
	}
	if !resp.IsMatch || resp.Match == nil {
		t.Fatalf("expected match, got %+v", resp)
	}
	if resp.Match.OtherUser == nil || resp.Match.OtherUser.ID != a.ID {
		t.Errorf("expected other user %s in summary", a.ID)
	}
	u1, u2 := domain.CanonicalPair(a.ID, b.ID)
	if resp.Match.Users != [2]uuid.UUID{u1, u2} {
		t.Errorf("users = %v, want canonical pair", resp.Match.Users)
	}

	if got := f.profile(t, a.ID); !got.HasMatch(b.ID) {
		t.Error("expected A's matches to contain B")
	}
	if got := f.profile(t, b.ID); !got.HasMatch(a.ID) {
		t.Error("expected B's matches to contain A")
	}
	if n := f.notifier.count(); n != 1 {
		t.Errorf("notifier called %d times, want 1", n)
	}
}

func TestLike_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seeker := f.addProfile(t)
	inactive := f.addProfile(t, func(p *domain.Profile) { p.IsActive = false })
	banned := f.addProfile(t, func(p *domain.Profile) { p.IsBlocked = true })
	blocker := f.addProfile(t)
	liked := f.addProfile(t)

	if err := memory.NewProfileRepository(f.store).AddBlock(ctx, blocker.ID, seeker.ID); err != nil {
		t.Fatalf("failed to block: %v", err)
	}
	if _, err := f.uc.Like(ctx, seeker.ID, liked.ID); err != nil {
		t.Fatalf("failed to like: %v", err)
	}

	tests := []struct {
		name   string
		target uuid.UUID
		want   error
	}{
		{"self", seeker.ID, domain.ErrCannotLikeSelf},
		{"missing", uuid.New(), domain.ErrProfileNotFound},
		{"inactive", inactive.ID, domain.ErrTargetUnavailable},
		{"platform blocked", banned.ID, domain.ErrTargetUnavailable},
		{"blocked by target", blocker.ID, domain.ErrTargetUnavailable},
		{"duplicate", liked.ID, domain.ErrAlreadyLiked},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.uc.Like(ctx, seeker.ID, tt.target)
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestLike_ConcurrentMutualLikesCreateOneMatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		a := f.addProfile(t)
		b := f.addProfile(t)

		var wg sync.WaitGroup
		results := make([]*LikeResponse, 2)
		errs := make([]error, 2)
		wg.Add(2)
		go func() {
			defer wg.Done()
			results[0], errs[0] = f.uc.Like(ctx, a.ID, b.ID)
		}()
		go func() {
			defer wg.Done()
			results[1], errs[1] = f.uc.Like(ctx, b.ID, a.ID)
		}()
		wg.Wait()

		for _, err := range errs {
			if err != nil {
				t.Fatalf("like failed: %v", err)
			}
		}
		if results[0].IsMatch == results[1].IsMatch {
			t.Fatalf("exactly one like should report the match, got %v and %v", results[0].IsMatch, results[1].IsMatch)
		}
		if got := f.activeMatches(t, a.ID); len(got) != 1 {
			t.Fatalf("expected 1 active match, got %d", len(got))
		}
	}

	if n := f.notifier.count(); n != 25 {
		t.Errorf("notifier called %d times, want 25", n)
	}
}

// interleavingTransactor runs before once, ahead of the first transaction,
// to commit a concurrent change between Like's checks and its unit of work.
type interleavingTransactor struct {
	inner  repository.Transactor
	once   sync.Once
	before func(ctx context.Context) error
	err    error
}

func (t *interleavingTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	t.once.Do(func() { t.err = t.before(ctx) })
	if t.err != nil {
		return t.err
	}
	return t.inner.WithinTx(ctx, fn)
}

func TestLike_BlockCommittedBeforeTransaction(t *testing.T) {
	tests := []struct {
		name  string
		block func(a, b uuid.UUID) (from, to uuid.UUID)
	}{
		{"target blocks seeker", func(a, b uuid.UUID) (uuid.UUID, uuid.UUID) { return b, a }},
		{"seeker blocks target", func(a, b uuid.UUID) (uuid.UUID, uuid.UUID) { return a, b }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			a := f.addProfile(t)
			b := f.addProfile(t)
			if _, err := f.uc.Like(ctx, b.ID, a.ID); err != nil {
				t.Fatalf("setup like failed: %v", err)
			}

			profiles := memory.NewProfileRepository(f.store)
			from, to := tt.block(a.ID, b.ID)
			f.uc.tx = &interleavingTransactor{
				inner: memory.NewTransactor(f.store),
				before: func(ctx context.Context) error {
					return profiles.AddBlock(ctx, from, to)
				},
			}

			resp, err := f.uc.Like(ctx, a.ID, b.ID)
			if !errors.Is(err, domain.ErrTargetUnavailable) {
				t.Fatalf("err = %v, resp = %+v, want ErrTargetUnavailable", err, resp)
			}
			if got := f.activeMatches(t, a.ID); len(got) != 0 {
				t.Errorf("blocked pair has %d active matches", len(got))
			}
			if got := f.profile(t, a.ID); got.HasMatch(b.ID) || got.HasLiked(b.ID) {
				t.Error("like or match link survived the rejected like")
			}
			if n := f.notifier.count(); n != 0 {
				t.Errorf("notifier called %d times, want 0", n)
			}
		})
	}
}

func TestLike_NotifierFailureDoesNotFailLike(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("redis down")
	ctx := context.Background()
	a := f.addProfile(t)
	b := f.addProfile(t)

	if _, err := f.uc.Like(ctx, a.ID, b.ID); err != nil {
		t.Fatalf("like failed: %v", err)
	}
	resp, err := f.uc.Like(ctx, b.ID, a.ID)
	if err != nil {
		t.Fatalf("like failed: %v", err)
	}
	if !resp.IsMatch {
		t.Fatal("expected match despite notifier failure")
	}
}

func TestSuperLike_BehavesLikeLike(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.addProfile(t)
	b := f.addProfile(t)

	if _, err := f.uc.SuperLike(ctx, a.ID, b.ID); err != nil {
		t.Fatalf("super like failed: %v", err)
	}
	resp, err := f.uc.Like(ctx, b.ID, a.ID)
	if err != nil {
		t.Fatalf("like failed: %v", err)
	}
	if !resp.IsMatch {
		t.Fatal("expected super like to count toward a match")
	}
}

func TestDislike(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.addProfile(t)
	b := f.addProfile(t)

	if err := f.uc.Dislike(ctx, a.ID, b.ID); err != nil {
		t.Fatalf("dislike failed: %v", err)
	}
	if got := f.profile(t, a.ID); len(got.Likes) != 0 {
		t.Errorf("dislike must not record a like, got %v", got.Likes)
	}
	if err := f.uc.Dislike(ctx, a.ID, a.ID); !errors.Is(err, domain.ErrCannotLikeSelf) {
		t.Errorf("self dislike error = %v", err)
	}
	if err := f.uc.Dislike(ctx, a.ID, uuid.New()); !errors.Is(err, domain.ErrProfileNotFound) {
		t.Errorf("missing target error = %v", err)
	}
}

func matchPair(t *testing.T, f *fixture) (*domain.Profile, *domain.Profile, uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	a := f.addProfile(t)
	b := f.addProfile(t)
	if _, err := f.uc.Like(ctx, a.ID, b.ID); err != nil {
		t.Fatalf("like failed: %v", err)
	}
	resp, err := f.uc.Like(ctx, b.ID, a.ID)
	if err != nil || !resp.IsMatch {
		t.Fatalf("expected match, err=%v", err)
	}
	return a, b, resp.Match.ID
}

func TestUnmatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b, matchID := matchPair(t, f)
	stranger := f.addProfile(t)

	if err := f.uc.Unmatch(ctx, stranger.ID, matchID); !errors.Is(err, domain.ErrNotParticipant) {
		t.Fatalf("stranger unmatch error = %v, want ErrNotParticipant", err)
	}

	if err := f.uc.Unmatch(ctx, a.ID, matchID); err != nil {
		t.Fatalf("unmatch failed: %v", err)
	}
	if got := f.profile(t, a.ID); got.HasMatch(b.ID) {
		t.Error("A still lists B as a match")
	}
	if got := f.profile(t, b.ID); got.HasMatch(a.ID) {
		t.Error("B still lists A as a match")
	}

	summary, err := f.uc.GetMatch(ctx, b.ID, matchID)
	if err != nil {
		t.Fatalf("get match failed: %v", err)
	}
	if summary.IsActive {
		t.Error("match should be inactive after unmatch")
	}

	if err := f.uc.Unmatch(ctx, b.ID, matchID); !errors.Is(err, domain.ErrMatchNotFound) {
		t.Errorf("second unmatch error = %v, want ErrMatchNotFound", err)
	}
	if err := f.uc.Unmatch(ctx, a.ID, uuid.New()); !errors.Is(err, domain.ErrMatchNotFound) {
		t.Errorf("unknown match error = %v, want ErrMatchNotFound", err)
	}
}

func TestListMatchesAndGetMatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b, matchID := matchPair(t, f)

	list, err := f.uc.ListMatches(ctx, a.ID, 1, 20)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(list) != 1 || list[0].ID != matchID {
		t.Fatalf("unexpected list %+v", list)
	}
	if list[0].OtherUser == nil || list[0].OtherUser.ID != b.ID {
		t.Errorf("expected other user %s", b.ID)
	}

	if _, err := f.uc.ListMatches(ctx, a.ID, 0, 20); domain.KindOf(err) != domain.KindValidation {
		t.Errorf("page 0 error = %v, want validation", err)
	}

	stranger := f.addProfile(t)
	if _, err := f.uc.GetMatch(ctx, stranger.ID, matchID); !errors.Is(err, domain.ErrNotParticipant) {
		t.Errorf("stranger get error = %v", err)
	}
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
