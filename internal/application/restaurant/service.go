package restaurant

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/forkful/api/internal/domain"
	"github.com/forkful/api/internal/pkg/id"
	"github.com/forkful/api/internal/pkg/validate"
)

const presignTTL = 15 * time.Minute

type Service interface {
	Create(ctx context.Context, req domain.CreateRestaurantRequest) (*domain.Restaurant, error)
	Get(ctx context.Context, restaurantID string) (*domain.Restaurant, error)
	List(ctx context.Context, limit int32, cursor string) ([]domain.Restaurant, string, error)
	ListByCategory(ctx context.Context, categoryID string) ([]domain.Restaurant, error)
	Update(ctx context.Context, restaurantID string, req domain.UpdateRestaurantRequest) (*domain.Restaurant, error)
	UploadCover(ctx context.Context, restaurantID, filename string, body io.Reader) (*domain.Restaurant, error)
	Delete(ctx context.Context, restaurantID string) error
}

type restaurantStore interface {
	Put(ctx context.Context, r *domain.Restaurant) error
	Get(ctx context.Context, restaurantID string) (*domain.Restaurant, error)
	Update(ctx context.Context, restaurantID string, updates map[string]interface{}) error
	HardDelete(ctx context.Context, restaurantID string) error
	ScanPage(ctx context.Context, limit int32, cursor string) ([]domain.Restaurant, string, error)
	ListByCategory(ctx context.Context, categoryID string) ([]domain.Restaurant, error)
}

type categoryStore interface {
	Get(ctx context.Context, categoryID string) (*domain.Category, error)
}

type objectStore interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
	PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

type contentTyper func(filename string) string

type service struct {
	repo        restaurantStore
	categories  categoryStore
	images      objectStore
	contentType contentTyper
	now         func() time.Time
}

type ServiceDeps struct {
	RestaurantRepo restaurantStore
	CategoryRepo   categoryStore
	Images         objectStore
	ContentType    contentTyper
	Now            func() time.Time // defaults to time.Now
}

func NewService(deps ServiceDeps) Service {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:        deps.RestaurantRepo,
		categories:  deps.CategoryRepo,
		images:      deps.Images,
		contentType: deps.ContentType,
		now:         now,
	}
}

func (s *service) Create(ctx context.Context, req domain.CreateRestaurantRequest) (*domain.Restaurant, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%s: %w", err, domain.ErrBadRequest)
	}
	if _, err := s.categories.Get(ctx, req.CategoryID); err != nil {
		return nil, fmt.Errorf("unknown category %q: %w", req.CategoryID, domain.ErrBadRequest)
	}
	now := s.now().UTC()
	r := &domain.Restaurant{
		RestaurantID: id.New(),
		Name:         req.Name,
		CategoryID:   req.CategoryID,
		Address:      req.Address,
		Description:  req.Description,
		Enable:       1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Put(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *service) Get(ctx context.Context, restaurantID string) (*domain.Restaurant, error) {
	r, err := s.repo.Get(ctx, restaurantID)
	if err != nil {
		return nil, err
	}
	s.resolveCoverURL(ctx, r)
	return r, nil
}

func (s *service) List(ctx context.Context, limit int32, cursor string) ([]domain.Restaurant, string, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	restaurants, next, err := s.repo.ScanPage(ctx, limit, cursor)
	if err != nil {
		return nil, "", err
	}
	for i := range restaurants {
		s.resolveCoverURL(ctx, &restaurants[i])
	}
	return restaurants, next, nil
}

func (s *service) ListByCategory(ctx context.Context, categoryID string) ([]domain.Restaurant, error) {
	restaurants, err := s.repo.ListByCategory(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	listed := restaurants[:0]
	for i := range restaurants {
		if restaurants[i].Enable != 1 {
			continue
		}
		s.resolveCoverURL(ctx, &restaurants[i])
		listed = append(listed, restaurants[i])
	}
	return listed, nil
}

func (s *service) Update(ctx context.Context, restaurantID string, req domain.UpdateRestaurantRequest) (*domain.Restaurant, error) {
	if _, err := s.repo.Get(ctx, restaurantID); err != nil {
		return nil, err
	}
	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.CategoryID != nil {
		if _, err := s.categories.Get(ctx, *req.CategoryID); err != nil {
			return nil, fmt.Errorf("unknown category %q: %w", *req.CategoryID, domain.ErrBadRequest)
		}
		updates["category_id"] = *req.CategoryID
	}
	if req.Address != nil {
		updates["address"] = *req.Address
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Enable != nil {
		updates["enable"] = *req.Enable
	}
	if len(updates) == 0 {
		return nil, fmt.Errorf("no fields to update: %w", domain.ErrBadRequest)
	}
	updates["updated_at"] = s.now().UTC()
	if err := s.repo.Update(ctx, restaurantID, updates); err != nil {
		return nil, err
	}
	return s.Get(ctx, restaurantID)
}

func (s *service) UploadCover(ctx context.Context, restaurantID, filename string, body io.Reader) (*domain.Restaurant, error) {
	r, err := s.repo.Get(ctx, restaurantID)
	if err != nil {
		return nil, err
	}
	key := fmt.Sprintf("covers/%s/%s", restaurantID, id.New())
	if _, err := s.images.Upload(ctx, key, body, s.contentType(filename)); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, restaurantID, map[string]interface{}{
		"cover_key":  key,
		"updated_at": s.now().UTC(),
	}); err != nil {
		return nil, err
	}
	if r.CoverKey != "" {
		if err := s.images.Delete(ctx, r.CoverKey); err != nil {
			slog.Warn("could not delete replaced cover", "restaurant_id", restaurantID, "key", r.CoverKey, "err", err)
		}
	}
	return s.Get(ctx, restaurantID)
}

func (s *service) Delete(ctx context.Context, restaurantID string) error {
	r, err := s.repo.Get(ctx, restaurantID)
	if err != nil {
		return err
	}
	if err := s.repo.HardDelete(ctx, restaurantID); err != nil {
		return err
	}
	if r.CoverKey != "" {
		if err := s.images.Delete(ctx, r.CoverKey); err != nil {
			slog.Warn("could not delete cover object", "restaurant_id", restaurantID, "key", r.CoverKey, "err", err)
		}
	}
	return nil
}

func (s *service) resolveCoverURL(ctx context.Context, r *domain.Restaurant) {
	if r.CoverKey == "" {
		return
	}
	url, err := s.images.PresignedURL(ctx, r.CoverKey, presignTTL)
	if err != nil {
		slog.Warn("could not presign cover", "restaurant_id", r.RestaurantID, "err", err)
		return
	}
	r.CoverURL = url
}
