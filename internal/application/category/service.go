package category

import (
	"context"
	"fmt"

	"github.com/forkful/api/internal/domain"
	"github.com/forkful/api/internal/pkg/id"
	"github.com/forkful/api/internal/pkg/validate"
)

type Service interface {
	Create(ctx context.Context, in domain.CategoryInput) (*domain.Category, error)
	List(ctx context.Context) ([]domain.Category, error)
	Update(ctx context.Context, categoryID string, in domain.CategoryInput) (*domain.Category, error)
	Delete(ctx context.Context, categoryID string) error
}

type categoryStore interface {
	Put(ctx context.Context, c *domain.Category) error
	Get(ctx context.Context, categoryID string) (*domain.Category, error)
	Scan(ctx context.Context) ([]domain.Category, error)
	HardDelete(ctx context.Context, categoryID string) error
}

type restaurantLister interface {
	ListByCategory(ctx context.Context, categoryID string) ([]domain.Restaurant, error)
}

type service struct {
	repo        categoryStore
	restaurants restaurantLister
}

type ServiceDeps struct {
	CategoryRepo   categoryStore
	RestaurantRepo restaurantLister
}

func NewService(deps ServiceDeps) Service {
	return &service{repo: deps.CategoryRepo, restaurants: deps.RestaurantRepo}
}

func (s *service) Create(ctx context.Context, in domain.CategoryInput) (*domain.Category, error) {
	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%s: %w", err, domain.ErrBadRequest)
	}
	c := &domain.Category{CategoryID: id.New(), Name: in.Name, Slug: in.Slug}
	if err := s.repo.Put(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *service) List(ctx context.Context) ([]domain.Category, error) {
	return s.repo.Scan(ctx)
}

func (s *service) Update(ctx context.Context, categoryID string, in domain.CategoryInput) (*domain.Category, error) {
	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%s: %w", err, domain.ErrBadRequest)
	}
	if _, err := s.repo.Get(ctx, categoryID); err != nil {
		return nil, err
	}
	c := &domain.Category{CategoryID: categoryID, Name: in.Name, Slug: in.Slug}
	if err := s.repo.Put(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Delete refuses to remove a category that still has restaurants in it.
func (s *service) Delete(ctx context.Context, categoryID string) error {
	if _, err := s.repo.Get(ctx, categoryID); err != nil {
		return err
	}
	restaurants, err := s.restaurants.ListByCategory(ctx, categoryID)
	if err != nil {
		return err
	}
	if len(restaurants) > 0 {
		return fmt.Errorf("category still has %d restaurants: %w", len(restaurants), domain.ErrConflict)
	}
	return s.repo.HardDelete(ctx, categoryID)
}
