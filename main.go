package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/isdelr/adboard-be/internal/api"
	"github.com/isdelr/adboard-be/internal/auth"
	"github.com/isdelr/adboard-be/internal/config"
	"github.com/isdelr/adboard-be/internal/database"
	"github.com/isdelr/adboard-be/internal/logger"
	"github.com/isdelr/adboard-be/internal/monitoring"
	"github.com/isdelr/adboard-be/internal/services"
	"github.com/isdelr/adboard-be/internal/storage"
	"github.com/isdelr/adboard-be/internal/store"
	"github.com/isdelr/adboard-be/internal/websocket"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logger.Init(cfg.LogLevel, !cfg.IsProduction())

	// Ensure the image store root exists
	images := storage.NewImageStore(cfg.UploadsDir)
	if err := images.Init(); err != nil {
		log.Fatal().Err(err).Msg("Failed to create uploads directory")
	}

	// Set up database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database migrations")
	}

	// Set up stores and services
	userStore := store.NewUserStore(db)
	adStore := store.NewAdStore(db)
	commentStore := store.NewCommentStore(db)

	userService := services.NewUserService(userStore, images, auth.NewPasswordHasher(0))
	adService := services.NewAdService(adStore, userStore, images)
	commentService := services.NewCommentService(commentStore, adStore, userStore)

	// Set up the live feed hub
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	hub := websocket.NewHub()
	go hub.Run(hubCtx)
	adService.SetEvents(hub)
	commentService.SetEvents(hub)

	// Set up and run the background stats updater
	namespaces := []string{storage.NamespaceAds, storage.NamespaceUsers}
	statUpdater := monitoring.NewStatUpdater(images, cfg.UploadsDir, namespaces, cfg.StatsInterval)
	go statUpdater.Run()

	// Set up and run the background scheduler
	scheduler := monitoring.NewScheduler(5 * time.Minute)
	if cfg.ImageSweepEnabled() {
		janitor := monitoring.NewImageJanitor(images, map[string]monitoring.RefLister{
			storage.NamespaceAds:   adStore,
			storage.NamespaceUsers: userStore,
		}, cfg.ImageSweepGrace)
		if err := scheduler.Add(cfg.ImageSweepSchedule, janitor); err != nil {
			log.Fatal().Err(err).Msg("Failed to schedule image sweep")
		}
	}
	scheduler.Run()

	if cfg.SeedDefaultUsers {
		if err := userService.SeedDefaultUsers(context.Background()); err != nil {
			log.Fatal().Err(err).Msg("Failed to seed default users")
		}
	}

	// Set up router
	router := api.NewRouter(cfg, api.Services{
		Users:    userService,
		Ads:      adService,
		Comments: commentService,
		Feed:     hub,
	}, auth.NewTokenIssuer(cfg.JWTSecret))

	// Set up server
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info().Str("addr", srv.Addr).Str("env", cfg.Env).Msg("Server starting")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("ListenAndServe failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	statUpdater.Stop() // Stop the monitoring service
	scheduler.Stop()   // Stop the scheduler
	stopHub()          // Disconnect live feed clients

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exiting")
}
