package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"fixmycity/backend/internal/activity"
	"fixmycity/backend/internal/api/handler"
	"fixmycity/backend/internal/api/router"
	"fixmycity/backend/internal/auth"
	"fixmycity/backend/internal/complaint"
	"fixmycity/backend/internal/config"
	"fixmycity/backend/internal/feed"
	"fixmycity/backend/internal/localization"
	"fixmycity/backend/internal/logging"
	"fixmycity/backend/internal/notify"
	"fixmycity/backend/internal/otp"
	"fixmycity/backend/internal/storage"
	"fixmycity/backend/internal/upload"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

type dependencies struct {
	store    *storage.Service
	activity *activity.GormStore
	redis    *redis.Client
}

func setupDependencies(ctx context.Context, cfg *config.Config) *dependencies {
	// 1. MongoDB
	store, err := storage.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to connect MongoDB")
	}
	if err := store.EnsureIndexes(ctx); err != nil {
		logging.Fatal().Err(err).Msg("failed to create indexes")
	}

	// 2. PostgreSQL (activity log)
	act, err := activity.Open(cfg.PostgresDSN)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to open activity store")
	}

	// 3. Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		logging.Fatal().Err(err).Msg("failed to connect Redis")
	}

	logging.Info().Msg("database and redis connections established, migrations complete")
	return &dependencies{store: store, activity: act, redis: rdb}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("invalid configuration")
	}
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	logging.Info().Str("port", cfg.Port).Msg("starting FixMyCity backend")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps := setupDependencies(ctx, cfg)

	images, err := upload.NewS3Uploader(ctx, upload.S3Config{
		Bucket:    cfg.S3Bucket,
		Endpoint:  cfg.S3Endpoint,
		Region:    cfg.S3Region,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		PublicURL: cfg.S3PublicURL,
		Folder:    cfg.S3Folder,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to configure image storage")
	}
	profiles, err := upload.NewDiskUploader(cfg.UploadDir, "/uploads")
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to prepare upload directory")
	}

	loc, err := localization.NewLocalizer(cfg.LocalesDir)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load translations")
	}

	var mailer otp.Mailer = otp.LogMailer{}
	if cfg.MailEnabled() {
		mailer = otp.NewSMTPMailer(cfg.MailHost, cfg.MailPort, cfg.MailUser, cfg.MailPassword, cfg.MailFrom)
	} else {
		logging.Warn().Msg("MAIL_USER/MAIL_PASSWORD not set, OTP codes will only be logged")
	}
	otpService := otp.NewService(otp.NewRedisStore(deps.redis), mailer, loc)

	// Live feed: every instance publishes to Redis and fans out to its own
	// websocket clients.
	hub := feed.NewHub()
	go hub.Run(ctx)
	go feed.Listen(ctx, deps.redis, hub)

	var notifier notify.Notifier = notify.Nop{}
	if cfg.TelegramEnabled() {
		tg, err := notify.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID, localization.DefaultLanguage, loc)
		if err != nil {
			logging.Error().Err(err).Msg("telegram notifier disabled")
		} else {
			go tg.Run(ctx)
			notifier = tg
		}
	}

	complaints := complaint.NewService(
		deps.store,
		images,
		activity.NewLogger(deps.activity),
		feed.NewRedisPublisher(deps.redis),
		notifier,
	)

	gin.SetMode(gin.ReleaseMode)
	h := handler.NewHandler(
		deps.store,
		auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL),
		complaints,
		deps.activity,
		otpService,
		hub,
		profiles,
	)
	r := router.New(h, router.Options{UploadDir: cfg.UploadDir, CORSOrigins: cfg.CORSOrigins})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       config.RequestTimeout,
		// Websocket writes manage their own deadlines.
		WriteTimeout:   0,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("http server failed")
		}
	}()
	logging.Info().Str("addr", server.Addr).Msg("listening")

	<-ctx.Done()
	logging.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("graceful shutdown failed")
	}
	if err := deps.redis.Close(); err != nil {
		logging.Warn().Err(err).Msg("redis close")
	}
	if err := deps.store.Disconnect(shutdownCtx); err != nil {
		logging.Warn().Err(err).Msg("mongo disconnect")
	}
	logging.Info().Msg("stopped")
}
