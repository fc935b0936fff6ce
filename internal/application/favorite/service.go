package favorite

import (
	"context"
	"time"

	"github.com/forkful/api/internal/domain"
)

type Service interface {
	Add(ctx context.Context, accountID, restaurantID string) (*domain.Favorite, error)
	Remove(ctx context.Context, accountID, restaurantID string) error
	List(ctx context.Context, accountID string) ([]domain.Favorite, error)
}

type favoriteStore interface {
	Put(ctx context.Context, f *domain.Favorite) error
	Delete(ctx context.Context, accountID, restaurantID string) error
	ListByAccount(ctx context.Context, accountID string) ([]domain.Favorite, error)
}

type restaurantStore interface {
	Get(ctx context.Context, restaurantID string) (*domain.Restaurant, error)
}

type service struct {
	repo        favoriteStore
	restaurants restaurantStore
	now         func() time.Time
}

type ServiceDeps struct {
	FavoriteRepo   favoriteStore
	RestaurantRepo restaurantStore
	Now            func() time.Time // defaults to time.Now
}

func NewService(deps ServiceDeps) Service {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &service{repo: deps.FavoriteRepo, restaurants: deps.RestaurantRepo, now: now}
}

// Add is idempotent: the composite key makes a second save a no-op overwrite.
func (s *service) Add(ctx context.Context, accountID, restaurantID string) (*domain.Favorite, error) {
	if _, err := s.restaurants.Get(ctx, restaurantID); err != nil {
		return nil, err
	}
	f := &domain.Favorite{
		AccountID:    accountID,
		RestaurantID: restaurantID,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.repo.Put(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

func (s *service) Remove(ctx context.Context, accountID, restaurantID string) error {
	return s.repo.Delete(ctx, accountID, restaurantID)
}

func (s *service) List(ctx context.Context, accountID string) ([]domain.Favorite, error) {
	return s.repo.ListByAccount(ctx, accountID)
}
