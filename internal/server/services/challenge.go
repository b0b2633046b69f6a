// Package services contains server-side business logic: the challenge
// store, session management, the register/login protocol, device
// linking, account operations and the hygiene sweeper.
package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/challenges"
)

const (
	ChallengeTTL     = 5 * time.Minute
	challengeIDBytes = 16
	challengeBytes   = 32
)

// ChallengeService issues and single-use-consumes pending challenges.
type ChallengeService struct {
	repo challenges.Repository
	now  func() time.Time
}

func NewChallengeService(repo challenges.Repository) *ChallengeService {
	return &ChallengeService{repo: repo, now: time.Now}
}

// Create stores a fresh challenge for ref, valid for ChallengeTTL.
func (s *ChallengeService) Create(ctx context.Context, ref models.UserRef, salt string) (*models.AuthChallenge, error) {
	id, err := common.RandomHex(challengeIDBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	challenge, err := common.RandomHex(challengeBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	c := &models.AuthChallenge{
		ID:        id,
		UserRef:   ref,
		Challenge: challenge,
		Salt:      salt,
		ExpiresAt: s.now().Add(ChallengeTTL),
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrStorage, err)
	}
	return c, nil
}

// Consume removes the challenge and returns it. A missing challenge and
// one that had already expired both yield common.ErrorNotFound.
func (s *ChallengeService) Consume(ctx context.Context, id string) (*models.AuthChallenge, error) {
	c, err := s.repo.Consume(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("%w: %v", common.ErrStorage, err)
	}
	if c.Expired(s.now()) {
		return nil, common.ErrorNotFound
	}
	return c, nil
}

// ListAll is a diagnostic snapshot of every stored challenge.
func (s *ChallengeService) ListAll(ctx context.Context) ([]models.PendingChallengeView, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrStorage, err)
	}

	now := s.now()
	views := make([]models.PendingChallengeView, 0, len(items))
	for i := range items {
		views = append(views, models.PendingChallengeView{
			ID:        items[i].ID,
			UserRef:   items[i].UserRef.String(),
			ExpiresAt: items[i].ExpiresAt,
			Expired:   items[i].Expired(now),
		})
	}
	sort.Slice(views, func(i, j int) bool { return views[i].ExpiresAt.Before(views[j].ExpiresAt) })
	return views, nil
}
