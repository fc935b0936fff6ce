package http

import (
	"net/http"

	"github.com/forkful/api/internal/application/account"
	"github.com/forkful/api/internal/application/category"
	"github.com/forkful/api/internal/application/favorite"
	"github.com/forkful/api/internal/application/restaurant"
	"github.com/forkful/api/internal/application/review"
	"github.com/forkful/api/internal/application/session"
	"github.com/forkful/api/internal/application/verification"
	"github.com/forkful/api/internal/config"
	"github.com/forkful/api/internal/domain"
	s3infra "github.com/forkful/api/internal/infrastructure/s3"
	"github.com/forkful/api/internal/transport/http/handler"
	appmiddleware "github.com/forkful/api/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	var authMw func(http.Handler) http.Handler
	if deps.JWTProvider != nil {
		authMw = appmiddleware.Auth(deps.JWTProvider)
	} else {
		authMw = func(next http.Handler) http.Handler { return next }
	}

	// 5 requests/second, burst of 10 — applied to sensitive public endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	verificationSvc := verification.NewService(verification.ServiceDeps{
		VerificationRepo: deps.VerificationRepo,
		AccountRepo:      deps.AccountRepo,
		Mailer:           deps.Mailer,
		SMSSender:        deps.SMSSender,
		CodeTTL:          cfg.CodeTTL,
		ResendCooldown:   cfg.CodeResendCooldown,
	})
	accountSvc := account.NewService(account.ServiceDeps{
		AccountRepo: deps.AccountRepo,
		SessionRepo: deps.SessionRepo,
		Codes:       verificationSvc,
		Images:      deps.S3Store,
		GracePeriod: cfg.GracePeriod,
	})
	sessionSvc := session.NewService(session.ServiceDeps{
		SessionRepo:     deps.SessionRepo,
		AccountRepo:     deps.AccountRepo,
		Codes:           verificationSvc,
		JWTProvider:     deps.JWTProvider,
		RefreshTokenDur: cfg.RefreshTokenDur,
	})
	restaurantSvc := restaurant.NewService(restaurant.ServiceDeps{
		RestaurantRepo: deps.RestaurantRepo,
		CategoryRepo:   deps.CategoryRepo,
		Images:         deps.S3Store,
		ContentType:    s3infra.DetectContentType,
	})
	categorySvc := category.NewService(category.ServiceDeps{
		CategoryRepo:   deps.CategoryRepo,
		RestaurantRepo: deps.RestaurantRepo,
	})
	reviewSvc := review.NewService(review.ServiceDeps{
		ReviewRepo:     deps.ReviewRepo,
		RestaurantRepo: deps.RestaurantRepo,
	})
	favoriteSvc := favorite.NewService(favorite.ServiceDeps{
		FavoriteRepo:   deps.FavoriteRepo,
		RestaurantRepo: deps.RestaurantRepo,
	})

	healthH := handler.NewHealthHandler()
	accountH := handler.NewAccountHandler(accountSvc)
	sessionH := handler.NewSessionHandler(sessionSvc)
	codeH := handler.NewCodeHandler(verificationSvc)
	restaurantH := handler.NewRestaurantHandler(restaurantSvc)
	categoryH := handler.NewCategoryHandler(categorySvc)
	reviewH := handler.NewReviewHandler(reviewSvc)
	favoriteH := handler.NewFavoriteHandler(favoriteSvc)
	adminH := handler.NewAdminHandler(deps.Sweeper, accountSvc, deps.AccountRepo)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check", healthH.Ping)

		r.With(sensitiveRL.Limit).Post("/accounts", accountH.Register)
		r.With(sensitiveRL.Limit).Post("/accounts/confirm-email", accountH.ConfirmEmail)
		r.With(sensitiveRL.Limit).Post("/accounts/recover", accountH.Recover)
		r.With(sensitiveRL.Limit).Post("/sessions/login", sessionH.Login)
		r.With(sensitiveRL.Limit).Post("/sessions/login/2fa", sessionH.SecondFactor)
		r.Post("/sessions/refresh", sessionH.Refresh)
		r.With(sensitiveRL.Limit).Post("/verification-codes", codeH.Issue)
		r.With(sensitiveRL.Limit).Post("/verification-codes/verify", codeH.Verify)

		// Anonymous browsing of the catalog.
		r.Get("/restaurants", restaurantH.List)
		r.Get("/restaurants/{id}", restaurantH.Get)
		r.Get("/restaurants/{id}/reviews", reviewH.ListByRestaurant)
		r.Get("/categories", categoryH.List)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Get("/sessions", sessionH.GetCurrent)
			r.Post("/sessions/logout", sessionH.Logout)

			r.Get("/accounts/{id}", accountH.Get)
			r.Put("/accounts/me", accountH.Update)
			r.Post("/accounts/me/avatar", accountH.UploadAvatar)
			r.Post("/accounts/me/deletion", accountH.RequestDeletion)
			r.Get("/accounts/me/deletion", accountH.DeletionStatus)
			r.Get("/accounts/me/reviews", reviewH.ListMine)
			r.Get("/accounts/me/favorites", favoriteH.List)

			r.Post("/restaurants/{id}/reviews", reviewH.Create)
			r.Delete("/reviews/{id}", reviewH.Delete)
			r.Post("/restaurants/{id}/favorite", favoriteH.Add)
			r.Delete("/restaurants/{id}/favorite", favoriteH.Remove)

			// Admin-only routes
			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.RequireRole(domain.RoleAdmin))

				r.Post("/restaurants", restaurantH.Create)
				r.Put("/restaurants/{id}", restaurantH.Update)
				r.Post("/restaurants/{id}/cover", restaurantH.UploadCover)
				r.Delete("/restaurants/{id}", restaurantH.Delete)

				r.Post("/categories", categoryH.Create)
				r.Put("/categories/{id}", categoryH.Update)
				r.Delete("/categories/{id}", categoryH.Delete)

				r.Post("/admin/purge-sweep", adminH.TriggerPurgeSweep)
				r.Get("/admin/accounts/pending-deletion", adminH.ListPendingDeletion)
				r.Post("/admin/accounts/{id}/deletion", adminH.DisableAccount)
			})
		})
	})

	return r
}
