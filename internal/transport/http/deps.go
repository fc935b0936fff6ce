package http

import (
	"github.com/forkful/api/internal/application/purge"
	"github.com/forkful/api/internal/infrastructure/dynamo"
	jwtinfra "github.com/forkful/api/internal/infrastructure/jwt"
	s3infra "github.com/forkful/api/internal/infrastructure/s3"
	"github.com/forkful/api/internal/infrastructure/smtp"
	"github.com/forkful/api/internal/infrastructure/sns"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	AccountRepo      *dynamo.AccountRepo
	SessionRepo      *dynamo.SessionRepo
	VerificationRepo *dynamo.VerificationRepo
	RestaurantRepo   *dynamo.RestaurantRepo
	CategoryRepo     *dynamo.CategoryRepo
	ReviewRepo       *dynamo.ReviewRepo
	FavoriteRepo     *dynamo.FavoriteRepo
	S3Store          *s3infra.Store
	Mailer           smtp.Mailer
	SMSSender        sns.SMSSender
	JWTProvider      *jwtinfra.Provider

	// Sweeper is built in main (the scheduler drives it too) and exposed
	// here for the on-demand admin trigger.
	Sweeper *purge.Sweeper
}
