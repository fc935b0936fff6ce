package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/forkful/api/internal/application/purge"
	"github.com/forkful/api/internal/config"
	"github.com/forkful/api/internal/infrastructure/dynamo"
	jwtinfra "github.com/forkful/api/internal/infrastructure/jwt"
	s3infra "github.com/forkful/api/internal/infrastructure/s3"
	"github.com/forkful/api/internal/infrastructure/smtp"
	"github.com/forkful/api/internal/infrastructure/sns"
	"github.com/forkful/api/internal/scheduler"
	transporthttp "github.com/forkful/api/internal/transport/http"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient := dynamo.NewClient(cfg)
	dynamo.Bootstrap(context.Background(), dynamoClient, cfg.DynamoTables)

	// JWT provider (optional — graceful fallback if keys are missing).
	var jwtProvider *jwtinfra.Provider
	if p, err := jwtinfra.NewProvider(cfg); err == nil {
		jwtProvider = p
	} else {
		log.Printf("WARN: JWT provider not available: %v", err)
	}

	// S3 store.
	s3Client := s3infra.NewClient(cfg)
	s3Store := s3infra.NewStore(s3Client, cfg.S3BucketName)

	// SMTP mailer.
	mailer := smtp.NewMailer(cfg)

	// SNS SMS sender (optional — graceful fallback).
	var smsSender sns.SMSSender
	if sender, err := sns.NewSender(cfg); err == nil {
		smsSender = sender
	} else {
		log.Printf("WARN: SNS sender not available: %v", err)
	}

	accountRepo := dynamo.NewAccountRepo(dynamoClient, cfg.DynamoTables.Accounts)
	sessionRepo := dynamo.NewSessionRepo(dynamoClient, cfg.DynamoTables.Sessions)
	reviewRepo := dynamo.NewReviewRepo(dynamoClient, cfg.DynamoTables.Reviews)
	favoriteRepo := dynamo.NewFavoriteRepo(dynamoClient, cfg.DynamoTables.Favorites)

	sweeper := purge.NewSweeper(purge.SweeperDeps{
		AccountRepo:  accountRepo,
		ReviewRepo:   reviewRepo,
		FavoriteRepo: favoriteRepo,
		SessionRepo:  sessionRepo,
		Images:       s3Store,
		GracePeriod:  cfg.GracePeriod,
	})

	deps := &transporthttp.Deps{
		AccountRepo:      accountRepo,
		SessionRepo:      sessionRepo,
		VerificationRepo: dynamo.NewVerificationRepo(dynamoClient, cfg.DynamoTables.VerificationCodes),
		RestaurantRepo:   dynamo.NewRestaurantRepo(dynamoClient, cfg.DynamoTables.Restaurants),
		CategoryRepo:     dynamo.NewCategoryRepo(dynamoClient, cfg.DynamoTables.Categories),
		ReviewRepo:       reviewRepo,
		FavoriteRepo:     favoriteRepo,
		S3Store:          s3Store,
		Mailer:           mailer,
		SMSSender:        smsSender,
		JWTProvider:      jwtProvider,
		Sweeper:          sweeper,
	}

	router := transporthttp.NewRouter(cfg, deps)

	// Daily purge sweep, stopped together with the server.
	schedCtx, stopSched := context.WithCancel(context.Background())
	defer stopSched()
	sweepJob := scheduler.NewDaily("purge-sweep", cfg.PurgeHourUTC, func(ctx context.Context) error {
		_, err := sweeper.Sweep(ctx)
		return err
	})
	go sweepJob.Run(schedCtx)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s)", cfg.AppPort, cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	stopSched()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}
