package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/marchpool/bracket-pool/config"
	"github.com/marchpool/bracket-pool/db"
	"github.com/marchpool/bracket-pool/handlers"
	"github.com/marchpool/bracket-pool/repositories"
	api "github.com/marchpool/bracket-pool/routes"
	"github.com/marchpool/bracket-pool/services"
	"github.com/marchpool/bracket-pool/storage"

	_ "github.com/lib/pq"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established")

	var uploader storage.FileUploader
	if cfg.R2AccountID != "" {
		uploader, err = storage.NewCloudflareR2Uploader(storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Cloudflare R2 uploader initialized")
	} else {
		logger.Info("no R2 configuration found, logo uploads disabled")
	}

	userRepo := repositories.NewPostgresUserRepository(dbConn)
	teamRepo := repositories.NewPostgresTeamRepository(dbConn)
	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	tournamentTeamRepo := repositories.NewPostgresTournamentTeamRepository(dbConn)
	gameRepo := repositories.NewPostgresGameRepository(dbConn)
	poolRepo := repositories.NewPostgresPoolRepository(dbConn)
	memberRepo := repositories.NewPostgresPoolMemberRepository(dbConn)
	bracketRepo := repositories.NewPostgresBracketRepository(dbConn)
	pickRepo := repositories.NewPostgresPickRepository(dbConn)
	scoreRepo := repositories.NewPostgresScoreRepository(dbConn)
	logger.Info("repositories initialized")

	authService := services.NewAuthService(userRepo)
	userService := services.NewUserService(userRepo)
	teamService := services.NewTeamService(teamRepo, uploader)
	tournamentService := services.NewTournamentService(dbConn, tournamentRepo, tournamentTeamRepo, gameRepo)
	scoreService := services.NewScoreService(dbConn, gameRepo, pickRepo, bracketRepo, scoreRepo, poolRepo)
	gameService := services.NewGameService(dbConn, gameRepo, scoreService)
	poolService := services.NewPoolService(dbConn, poolRepo, memberRepo, bracketRepo, scoreRepo, tournamentRepo, userRepo)
	bracketService := services.NewBracketService(dbConn, bracketRepo, pickRepo, gameRepo, poolRepo, memberRepo, tournamentTeamRepo)
	logger.Info("services initialized")

	authHandler := handlers.NewAuthHandler(authService, cfg.JWTSecretKey)
	userHandler := handlers.NewUserHandler(userService, authService)
	teamHandler := handlers.NewTeamHandler(teamService)
	tournamentHandler := handlers.NewTournamentHandler(tournamentService, gameService)
	gameHandler := handlers.NewGameHandler(gameService)
	poolHandler := handlers.NewPoolHandler(poolService, scoreService)
	bracketHandler := handlers.NewBracketHandler(bracketService, scoreService)
	scoreHandler := handlers.NewScoreHandler(scoreService)
	logger.Info("HTTP handlers initialized")

	router := chi.NewRouter()
	api.SetupRoutes(
		router,
		cfg.JWTSecretKey,
		authHandler,
		userHandler,
		teamHandler,
		tournamentHandler,
		gameHandler,
		poolHandler,
		bracketHandler,
		scoreHandler,
	)
	logger.Info("routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed, forcing close", slog.Any("error", err))
			if err := server.Close(); err != nil {
				logger.Error("failed to close server", slog.Any("error", err))
			}
		}
	}

	logger.Info("server stopped")
}
