package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Nunusavi/guestlist-pro-sub000/internal/auth"
	"github.com/Nunusavi/guestlist-pro-sub000/internal/cache"
	"github.com/Nunusavi/guestlist-pro-sub000/internal/checkin"
	checkin_db "github.com/Nunusavi/guestlist-pro-sub000/internal/checkin/db"
	"github.com/Nunusavi/guestlist-pro-sub000/internal/config"
	"github.com/Nunusavi/guestlist-pro-sub000/internal/database/migrations"
	"github.com/Nunusavi/guestlist-pro-sub000/internal/guests"
	"github.com/Nunusavi/guestlist-pro-sub000/internal/guests/guest_api"
	"github.com/Nunusavi/guestlist-pro-sub000/internal/kafka"
	"github.com/Nunusavi/guestlist-pro-sub000/internal/logger"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
)

func connectDatabase(cfg *config.Config, log *logger.Logger) *bun.DB {
	dsn := cfg.Database.DSN
	if dsn == "" {
		log.Fatal("CONFIG", "POSTGRES_DSN not set")
	}

	var sqldb *sql.DB
	var err error
	maxRetries := 5

	for i := 0; i < maxRetries; i++ {
		log.Info("DATABASE", fmt.Sprintf("Attempting to connect to PostgreSQL (attempt %d/%d)", i+1, maxRetries))
		sqldb, err = sql.Open("postgres", dsn)
		if err != nil {
			log.Error("DATABASE", fmt.Sprintf("Failed to open PostgreSQL: %v", err))
			time.Sleep(2 * time.Second)
			continue
		}

		err = sqldb.Ping()
		if err == nil {
			break
		}

		log.Error("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
		if i < maxRetries-1 {
			time.Sleep(2 * time.Second)
		}
	}

	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL after %d attempts: %v", maxRetries, err))
	}

	sqldb.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.Database.MaxLifetime)

	log.Info("DATABASE", "PostgreSQL connection successful")
	return bun.NewDB(sqldb, pgdialect.New())
}

// buildCache picks Redis when an address is configured, otherwise the
// in-process TTL store. Either way the engine sees the same interface.
func buildCache(ctx context.Context, cfg *config.Config, log *logger.Logger) cache.Cache {
	if cfg.Redis.Addr == "" {
		log.Info("CACHE", "REDIS_ADDR not set, using in-process cache")
		mem := cache.NewMemoryCache()
		mem.StartSweep(cfg.Cache.SweepInterval)
		return mem
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("CACHE", fmt.Sprintf("Redis connection error: %v", err))
	}
	log.Info("CACHE", fmt.Sprintf("Redis connection successful to %s", cfg.Redis.Addr))
	return cache.NewRedisCache(redisClient)
}

func main() {
	log := logger.NewLogger()
	defer log.Close()

	log.Info("APP", "Starting Guestlist Service initialization")

	if err := godotenv.Load(); err != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		log.Info("CONFIG", "Loaded environment variables from .env file")
	}

	cfg := config.Load()
	ctx := context.Background()

	bunDB := connectDatabase(cfg, log)
	defer bunDB.Close()

	runner := migrations.NewRunner(bunDB, migrations.DefaultOptions())
	if err := runner.RunMigrations(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Migrations failed: %v", err))
	}

	guestCache := buildCache(ctx, cfg, log)
	defer guestCache.Close()

	var producer *kafka.Producer
	if cfg.Kafka.Enabled {
		log.Info("KAFKA", fmt.Sprintf("Using Kafka brokers: %v", cfg.Kafka.Brokers))
		producer = kafka.NewProducer(cfg.Kafka.Brokers)
		defer producer.Close()
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, kafka.RequiredTopics()); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		} else {
			log.Info("KAFKA", "Required topics ensured successfully")
		}
	} else {
		log.Info("KAFKA", "Kafka disabled, check-in events will not be published")
	}

	store := &checkin_db.DB{Bun: bunDB}

	checkInService := checkin.NewService(store, guestCache, eventPublisher(producer), log)
	checkInService.UndoWindow = cfg.CheckIn.UndoWindow

	guestService := guests.NewService(store, guestCache, log, cfg.Cache.TTL)

	handler := guest_api.NewHandler(checkInService, guestService, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Route("/api", func(r chi.Router) {
		if cfg.Auth.JWTSecret == "" {
			log.Fatal("CONFIG", "JWT_SECRET not set")
		}
		r.Use(auth.Middleware(cfg.Auth.JWTSecret))
		r.Mount("/guests", handler.Routes())
	})

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("APP", fmt.Sprintf("Guestlist Service listening on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("APP", fmt.Sprintf("Server failed: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("APP", "Shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("APP", fmt.Sprintf("Graceful shutdown failed: %v", err))
	}
}

// eventPublisher keeps the engine's publisher slot nil when Kafka is
// disabled; a typed nil pointer would defeat the service's nil check.
func eventPublisher(producer *kafka.Producer) checkin.EventPublisher {
	if producer == nil {
		return nil
	}
	return producer
}
