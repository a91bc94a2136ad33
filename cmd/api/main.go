package main

import (
	"context"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"gigflow/application"
	"gigflow/auth"
	"gigflow/config"
	"gigflow/conversation"
	"gigflow/db"
	"gigflow/httpapi"
	"gigflow/job"
	"gigflow/notify"
	"gigflow/profile"
	"gigflow/review"
	"gigflow/ws"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		bootLogger := zerolog.New(os.Stderr)
		bootLogger.Fatal().Err(err).Msg("load config")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("bootstrap database pool")
	}
	defer pool.Close()

	hub := ws.NewHub(logger)

	publishers := notify.Fanout{hub}
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		publishers = append(publishers, notify.NewRedisPublisher(client))
	}
	dispatcher := notify.NewDispatcher(publishers, logger)

	authSvc := auth.NewService(auth.NewRepository(pool), cfg.JWTSecret)
	jobSvc := job.NewService(job.NewRepository(pool))

	appRepo := application.NewRepository(pool)
	convSvc := conversation.NewService(conversation.NewRepository(pool), appRepo, publishers, logger)
	appSvc := application.NewService(pool, appRepo, convSvc, jobSvc, authSvc, dispatcher, logger)
	reviewSvc := review.NewService(pool, review.NewRepository(pool), dispatcher, logger)
	profileSvc := profile.NewService(profile.NewRepository(pool))

	server := httpapi.NewServer(authSvc, jobSvc, appSvc, convSvc, reviewSvc, profileSvc, hub, cfg.AllowedOrigins, logger)

	logger.Info().Str("addr", cfg.HTTPAddr).Msg("api listening")
	if err := server.Router().Run(cfg.HTTPAddr); err != nil {
		logger.Fatal().Err(err).Msg("serve")
	}
}
