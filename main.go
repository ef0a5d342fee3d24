package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"workhub-manager/server/config"
	"workhub-manager/server/handlers"
	"workhub-manager/server/logging"
	"workhub-manager/server/middleware"
	"workhub-manager/server/repositories"
	"workhub-manager/server/services"
	"workhub-manager/server/utils"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Logger.Fatalf("Event ID: CONFIG_ERROR, Description: %v", err)
	}

	logging.InitLogger(logging.Options{
		SystemName: "workhub-server",
		File:       cfg.LogFile,
		Level:      cfg.LogLevel,
	})
	logging.Logger.Info("Event ID: SERVICE_START, Description: Starting WorkHub server...")

	ctx := context.Background()

	client, err := repositories.Connect(ctx, cfg.MongoURI)
	if err != nil {
		logging.Logger.Fatalf("Event ID: DB_CONNECTION_FAILED, Description: %v", err)
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			logging.Logger.Errorf("Event ID: DB_DISCONNECT_ERROR, Description: %v", err)
		}
	}()
	logging.Logger.Infof("Event ID: DB_CONNECTED, Description: Connected to MongoDB database %s", cfg.MongoDBName)

	db := client.Database(cfg.MongoDBName)
	if err := repositories.EnsureIndexes(ctx, db); err != nil {
		logging.Logger.Fatalf("Event ID: DB_INDEX_FAILED, Description: %v", err)
	}

	userRepo := repositories.NewMongoUserRepository(db)
	taskRepo := repositories.NewMongoTaskRepository(db)

	var noticeRepo repositories.NoticeRepository
	if cfg.NoticeBackend == config.NoticeBackendCassandra {
		cassRepo, err := repositories.NewCassandraNoticeRepository(cfg.CassandraHost, cfg.CassKeyspace)
		if err != nil {
			logging.Logger.Fatalf("Event ID: CASSANDRA_CONNECTION_FAILED, Description: %v", err)
		}
		defer cassRepo.CloseSession()
		if err := cassRepo.CreateTable(); err != nil {
			logging.Logger.Fatalf("Event ID: CASSANDRA_TABLE_FAILED, Description: %v", err)
		}
		noticeRepo = cassRepo
	} else {
		noticeRepo = repositories.NewMongoNoticeRepository(db)
	}

	var blackList map[string]bool
	if cfg.PasswordBlacklist != "" {
		blackList, err = services.LoadBlackList(cfg.PasswordBlacklist)
		if err != nil {
			logging.Logger.Fatalf("Event ID: BLACKLIST_LOAD_FAILED, Description: %v", err)
		}
		logging.Logger.Infof("Event ID: BLACKLIST_LOADED, Description: Loaded %d blacklisted passwords", len(blackList))
	}

	uploader, err := utils.NewUploader(cfg.UploadStorage, cfg.UploadDir, cfg.UploadMaxBytes)
	if err != nil {
		logging.Logger.Fatalf("Event ID: UPLOAD_DIR_ERROR, Description: %v", err)
	}

	authService := services.NewAuthService(userRepo, services.NewJWTService(cfg.JWTSecret, cfg.SessionTTL), blackList)
	dispatcher := services.NewNoticeDispatcher(noticeRepo, services.NewNoticeBreaker(5*time.Second))
	tx := repositories.NewMongoTransactor(client, cfg.MongoTransactions)

	router := handlers.NewRouter(handlers.RouterConfig{
		Auth:          authService,
		Users:         services.NewUserService(userRepo, authService),
		Tasks:         services.NewTaskService(taskRepo, userRepo, dispatcher, tx),
		Notifications: services.NewNotificationService(noticeRepo, taskRepo),
		Dashboard:     services.NewDashboardService(taskRepo, userRepo),
		Uploader:      uploader,
		CORSOrigin:    cfg.CORSOrigin,
		Production:    cfg.IsProduction(),
		AuthLimiter:   authLimiter(cfg),
	})

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logging.Logger.Infof("Event ID: SERVER_START_INFO, Description: Server running on http://localhost%s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Logger.Fatalf("Event ID: SERVER_FATAL_ERROR, Description: Server failed to start: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logging.Logger.Info("Event ID: SERVER_SHUTDOWN, Description: Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Logger.Errorf("Event ID: SERVER_SHUTDOWN_ERROR, Description: %v", err)
	}
}

// authLimiter throttles login and registration per client. Redis backs the
// window when REDIS_ADDR is set so the limit holds across replicas.
func authLimiter(cfg *config.Config) func(http.Handler) http.Handler {
	if cfg.RateLimitPerMin <= 0 {
		return nil
	}
	if cfg.RedisAddr == "" {
		return middleware.RateLimiter(rate.Limit(float64(cfg.RateLimitPerMin)/60), cfg.RateLimitBurst)
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	limiter := middleware.NewDistributedRateLimiter(redisClient)
	logging.Logger.Infof("Event ID: RATE_LIMIT_REDIS, Description: Using Redis at %s for auth rate limiting", cfg.RedisAddr)
	return limiter.CreateMiddleware("auth", &middleware.RateLimit{
		Rate:   cfg.RateLimitPerMin,
		Window: time.Minute,
	})
}
