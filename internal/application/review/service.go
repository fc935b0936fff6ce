package review

import (
	"context"
	"fmt"
	"time"

	"github.com/forkful/api/internal/domain"
	"github.com/forkful/api/internal/pkg/id"
	"github.com/forkful/api/internal/pkg/validate"
)

type Service interface {
	Create(ctx context.Context, accountID, restaurantID string, req domain.CreateReviewRequest) (*domain.Review, error)
	ListByRestaurant(ctx context.Context, restaurantID string) ([]domain.Review, error)
	ListByAccount(ctx context.Context, accountID string) ([]domain.Review, error)
	Delete(ctx context.Context, accountID, reviewID string, isAdmin bool) error
}

type reviewStore interface {
	Put(ctx context.Context, r *domain.Review) error
	Get(ctx context.Context, reviewID string) (*domain.Review, error)
	HardDelete(ctx context.Context, reviewID string) error
	ListByRestaurant(ctx context.Context, restaurantID string) ([]domain.Review, error)
	ListByAccount(ctx context.Context, accountID string) ([]domain.Review, error)
}

type restaurantStore interface {
	Get(ctx context.Context, restaurantID string) (*domain.Restaurant, error)
}

type service struct {
	repo        reviewStore
	restaurants restaurantStore
	now         func() time.Time
}

type ServiceDeps struct {
	ReviewRepo     reviewStore
	RestaurantRepo restaurantStore
	Now            func() time.Time // defaults to time.Now
}

func NewService(deps ServiceDeps) Service {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &service{repo: deps.ReviewRepo, restaurants: deps.RestaurantRepo, now: now}
}

func (s *service) Create(ctx context.Context, accountID, restaurantID string, req domain.CreateReviewRequest) (*domain.Review, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%s: %w", err, domain.ErrBadRequest)
	}
	if _, err := s.restaurants.Get(ctx, restaurantID); err != nil {
		return nil, err
	}
	// One review per account per restaurant; a new one replaces the old.
	existing, err := s.repo.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	for _, rev := range existing {
		if rev.RestaurantID == restaurantID {
			if err := s.repo.HardDelete(ctx, rev.ReviewID); err != nil {
				return nil, err
			}
		}
	}
	now := s.now().UTC()
	rev := &domain.Review{
		ReviewID:     id.New(),
		RestaurantID: restaurantID,
		AccountID:    accountID,
		Rating:       req.Rating,
		Body:         req.Body,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Put(ctx, rev); err != nil {
		return nil, err
	}
	return rev, nil
}

func (s *service) ListByRestaurant(ctx context.Context, restaurantID string) ([]domain.Review, error) {
	return s.repo.ListByRestaurant(ctx, restaurantID)
}

func (s *service) ListByAccount(ctx context.Context, accountID string) ([]domain.Review, error) {
	return s.repo.ListByAccount(ctx, accountID)
}

func (s *service) Delete(ctx context.Context, accountID, reviewID string, isAdmin bool) error {
	rev, err := s.repo.Get(ctx, reviewID)
	if err != nil {
		return err
	}
	if !isAdmin && rev.AccountID != accountID {
		return fmt.Errorf("not the review author: %w", domain.ErrForbidden)
	}
	return s.repo.HardDelete(ctx, reviewID)
}
