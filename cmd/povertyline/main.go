package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"povertyline/internal/config"
	httpapi "povertyline/internal/http"
	"povertyline/internal/repository"
	"povertyline/internal/service"
	"povertyline/internal/store"
	"povertyline/internal/token"
	"povertyline/pkg/database"
	"povertyline/pkg/logger"
)

func main() {
	cfg := config.Load()

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "povertyline")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	kv := store.NewRedisKV(redisClient)

	usersRepo := repository.NewPostgresUsersRepository(db)
	profilesRepo := repository.NewPostgresProfilesRepository(db)
	resourcesRepo := repository.NewPostgresResourcesRepository(db)
	applicationsRepo := repository.NewPostgresApplicationsRepository(db)
	regionsRepo := repository.NewPostgresRegionsRepository(db)
	analyticsRepo := repository.NewPostgresAnalyticsRepository(db)

	tokens := token.NewManager(cfg.JWT.Secret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)
	statsClient := service.NewRegionStatsClient(cfg.StatsAPI.BaseURL, cfg.StatsAPI.APIKey, log)

	authSvc := service.NewAuthService(usersRepo, tokens, log)
	userSvc := service.NewUserService(usersRepo, log)
	profileSvc := service.NewProfileService(profilesRepo, log)
	resourceSvc := service.NewResourceService(resourcesRepo, log)
	applicationSvc := service.NewApplicationService(applicationsRepo, resourcesRepo, log)
	adminSvc := service.NewAdminService(analyticsRepo, usersRepo, resourcesRepo, applicationsRepo, kv, log)
	regionSvc := service.NewRegionService(regionsRepo, statsClient, log)
	exportSvc := service.NewExportService(usersRepo, resourcesRepo, log)

	mw := httpapi.NewMiddleware(tokens, usersRepo, log)
	router := httpapi.NewRouter(mw, httpapi.Handlers{
		Auth:     httpapi.NewAuthHandler(authSvc, log),
		Users:    httpapi.NewUserHandler(userSvc, log),
		Profiles: httpapi.NewProfileHandler(profileSvc, log),
		Resource: httpapi.NewResourceHandler(resourceSvc, applicationSvc, log),
		Admin:    httpapi.NewAdminHandler(adminSvc, userSvc, resourceSvc, applicationSvc, regionSvc, exportSvc, log),
		Regions:  httpapi.NewRegionHandler(regionSvc, log),
	})

	srv := service.NewServer(cfg.HTTP.Addr, router, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
	case err := <-errCh:
		if err != nil {
			log.Error("Server exited", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Stop(shutdownCtx)
}
