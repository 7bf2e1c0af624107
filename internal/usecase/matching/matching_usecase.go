package matching

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gdugdh24/nearmatch-backend/internal/domain"
	"github.com/gdugdh24/nearmatch-backend/internal/repository"
	"github.com/google/uuid"
)

// MatchNotifier is told about every newly created match once the like that
// produced it has been committed.
type MatchNotifier interface {
	MatchCreated(ctx context.Context, event domain.MatchCreated) error
}

type MatchingUseCase struct {
	tx          repository.Transactor
	profileRepo repository.ProfileRepository
	matchRepo   repository.MatchRepository
	notifier    MatchNotifier
	now         func() time.Time
}

func NewMatchingUseCase(
	tx repository.Transactor,
	profileRepo repository.ProfileRepository,
	matchRepo repository.MatchRepository,
	notifier MatchNotifier,
) *MatchingUseCase {
	return &MatchingUseCase{
		tx:          tx,
		profileRepo: profileRepo,
		matchRepo:   matchRepo,
		notifier:    notifier,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// SwipeRequest is the body of every swipe decision.
type SwipeRequest struct {
	TargetUserID string `json:"targetUserId" binding:"required,uuid"`
}

// LikeResponse reports whether the like completed a mutual pair.
type LikeResponse struct {
	IsMatch bool                 `json:"isMatch"`
	Match   *domain.MatchSummary `json:"match,omitempty"`
}

// Like records seekerID's like of targetID. When the target already liked the
// seeker, the match is created in the same transaction as the like.
func (uc *MatchingUseCase) Like(ctx context.Context, seekerID, targetID uuid.UUID) (*LikeResponse, error) {
	if seekerID == targetID {
		return nil, domain.ErrCannotLikeSelf
	}

	// Fast path; the pair is checked again under lock below.
	if _, _, err := uc.loadPair(ctx, seekerID, targetID); err != nil {
		return nil, err
	}

	var (
		response *LikeResponse
		created  *domain.Match
	)
	err := uc.tx.WithinTx(ctx, func(ctx context.Context) error {
		// The closure may be retried after a write conflict.
		response = &LikeResponse{}
		created = nil

		if err := uc.profileRepo.LockPair(ctx, seekerID, targetID); err != nil {
			return fmt.Errorf("failed to lock profiles: %w", err)
		}
		// A block or deactivation may have committed since the fast path.
		if _, _, err := uc.loadPair(ctx, seekerID, targetID); err != nil {
			return err
		}
		if err := uc.profileRepo.AddLike(ctx, seekerID, targetID); err != nil {
			return err
		}

		current, err := uc.profileRepo.GetByID(ctx, targetID)
		if err != nil {
			return err
		}
		if !current.HasLiked(seekerID) {
			return nil
		}

		match, isNew, err := uc.ensureMatch(ctx, seekerID, targetID)
		if err != nil {
			return err
		}
		if err := uc.profileRepo.AddMatchLink(ctx, seekerID, targetID); err != nil {
			return fmt.Errorf("failed to link match: %w", err)
		}

		summary := match.SummaryFor(seekerID)
		summary.OtherUser = current.Summary(uc.now())
		response.IsMatch = true
		response.Match = summary
		if isNew {
			created = match
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if created != nil {
		log.Printf("[Matching] match %s created between %s and %s", created.ID, seekerID, targetID)
		uc.notify(ctx, created)
	}

	return response, nil
}

// SuperLike behaves exactly like Like.
func (uc *MatchingUseCase) SuperLike(ctx context.Context, seekerID, targetID uuid.UUID) (*LikeResponse, error) {
	return uc.Like(ctx, seekerID, targetID)
}

// Dislike validates the decision. Passes are not persisted, so a disliked
// profile may show up in discovery again.
func (uc *MatchingUseCase) Dislike(ctx context.Context, seekerID, targetID uuid.UUID) error {
	if seekerID == targetID {
		return domain.ErrCannotLikeSelf
	}
	_, _, err := uc.loadPair(ctx, seekerID, targetID)
	return err
}

// Unmatch deactivates the match and unlinks both participants. The record is
// kept for history.
func (uc *MatchingUseCase) Unmatch(ctx context.Context, userID, matchID uuid.UUID) error {
	return uc.tx.WithinTx(ctx, func(ctx context.Context) error {
		match, err := uc.matchRepo.GetByID(ctx, matchID)
		if err != nil {
			return err
		}
		if !match.HasUser(userID) {
			return domain.ErrNotParticipant
		}
		if !match.IsActive {
			return domain.ErrMatchNotFound
		}

		if err := uc.profileRepo.LockPair(ctx, match.User1ID, match.User2ID); err != nil {
			return fmt.Errorf("failed to lock profiles: %w", err)
		}
		if err := uc.matchRepo.Deactivate(ctx, match.ID); err != nil {
			return err
		}
		if err := uc.profileRepo.RemoveMatchLink(ctx, match.User1ID, match.User2ID); err != nil {
			return fmt.Errorf("failed to unlink match: %w", err)
		}
		return nil
	})
}

// ListMatches returns the caller's active matches, most recent activity first.
func (uc *MatchingUseCase) ListMatches(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]*domain.MatchSummary, error) {
	if err := domain.ValidatePage(page, pageSize); err != nil {
		return nil, err
	}

	matches, err := uc.matchRepo.ListActiveByUser(ctx, userID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}

	otherIDs := make([]uuid.UUID, 0, len(matches))
	for _, m := range matches {
		other, _ := m.GetOtherUserID(userID)
		otherIDs = append(otherIDs, other)
	}
	profiles, err := uc.profileRepo.GetByIDs(ctx, otherIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load matched profiles: %w", err)
	}
	byID := make(map[uuid.UUID]*domain.Profile, len(profiles))
	for _, p := range profiles {
		byID[p.ID] = p
	}

	now := uc.now()
	result := make([]*domain.MatchSummary, 0, len(matches))
	for _, m := range matches {
		summary := m.SummaryFor(userID)
		other, _ := m.GetOtherUserID(userID)
		if p, ok := byID[other]; ok {
			summary.OtherUser = p.Summary(now)
		}
		result = append(result, summary)
	}
	return result, nil
}

// GetMatch returns one match as seen by a participant.
func (uc *MatchingUseCase) GetMatch(ctx context.Context, userID, matchID uuid.UUID) (*domain.MatchSummary, error) {
	match, err := uc.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if !match.HasUser(userID) {
		return nil, domain.ErrNotParticipant
	}

	summary := match.SummaryFor(userID)
	other, _ := match.GetOtherUserID(userID)
	profile, err := uc.profileRepo.GetByID(ctx, other)
	switch {
	case err == nil:
		summary.OtherUser = profile.Summary(uc.now())
	case !errors.Is(err, domain.ErrProfileNotFound):
		return nil, fmt.Errorf("failed to load matched profile: %w", err)
	}
	return summary, nil
}

// loadPair fetches both sides of a swipe and checks the target can be acted on.
func (uc *MatchingUseCase) loadPair(ctx context.Context, seekerID, targetID uuid.UUID) (*domain.Profile, *domain.Profile, error) {
	seeker, err := uc.profileRepo.GetByID(ctx, seekerID)
	if err != nil {
		return nil, nil, err
	}
	target, err := uc.profileRepo.GetByID(ctx, targetID)
	if err != nil {
		return nil, nil, err
	}
	if !target.Available() || seeker.BlocksEitherWay(targetID) {
		return nil, nil, domain.ErrTargetUnavailable
	}
	return seeker, target, nil
}

// ensureMatch creates the active match for the pair, or returns the one a
// concurrent request already created.
func (uc *MatchingUseCase) ensureMatch(ctx context.Context, a, b uuid.UUID) (*domain.Match, bool, error) {
	match, err := domain.NewMatch(a, b, uc.now())
	if err != nil {
		return nil, false, err
	}

	err = uc.matchRepo.Create(ctx, match)
	if err == nil {
		return match, true, nil
	}
	if !errors.Is(err, domain.ErrMatchAlreadyExists) {
		return nil, false, fmt.Errorf("failed to create match: %w", err)
	}

	existing, err := uc.matchRepo.GetActiveByUsers(ctx, a, b)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load existing match: %w", err)
	}
	return existing, false, nil
}

func (uc *MatchingUseCase) notify(ctx context.Context, match *domain.Match) {
	if uc.notifier == nil {
		return
	}
	event := domain.MatchCreated{
		MatchID:   match.ID,
		UserA:     match.User1ID,
		UserB:     match.User2ID,
		CreatedAt: match.CreatedAt,
	}
	if err := uc.notifier.MatchCreated(ctx, event); err != nil {
		log.Printf("[Matching] failed to publish match %s: %v", match.ID, err)
	}
}
