package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"eventhub/internal/auth"
	"eventhub/internal/bus"
	"eventhub/internal/config"
	apphttp "eventhub/internal/http"
	"eventhub/internal/mailer"
	"eventhub/internal/ratelimit"
	"eventhub/internal/realtime"
	"eventhub/internal/repository/sqlite"
	"eventhub/internal/service"
	"eventhub/internal/storage"
	"eventhub/internal/worker"
)

const pongWait = 60 * time.Second

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("invalid config: %v", err)
	}
	level, _ := logrus.ParseLevel(cfg.Log.Level)
	logger.SetLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatalf("open database: %v", err)
	}
	defer db.Close()

	userRepo := sqlite.NewUserRepository(db)
	eventRepo := sqlite.NewEventRepository(db)
	rsvpRepo := sqlite.NewRSVPRepository(db)

	if err := userRepo.Init(ctx); err != nil {
		logger.Fatalf("init user repository: %v", err)
	}
	if err := eventRepo.Init(ctx); err != nil {
		logger.Fatalf("init event repository: %v", err)
	}
	if err := rsvpRepo.Init(ctx); err != nil {
		logger.Fatalf("init rsvp repository: %v", err)
	}

	tokens, err := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.TokenTTL())
	if err != nil {
		logger.Fatalf("token manager: %v", err)
	}

	hub := realtime.NewHub(realtime.Config{
		SendBuffer:   cfg.Realtime.SendBuffer,
		PingInterval: pongWait * 9 / 10,
		Logger:       logger,
	})

	pool := worker.NewPool(worker.Config{
		Workers:   cfg.Mail.Workers,
		QueueSize: cfg.Mail.QueueSize,
		Logger:    logger,
	})
	pool.Start(context.Background())

	sender, err := buildSender(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("setup mail transport: %v", err)
	}
	notifier := mailer.NewNotifier(sender, pool, mailer.NotifierConfig{
		Timeout: cfg.MailTimeout(),
		Logger:  logger,
	})

	publisher, err := buildPublisher(cfg, logger)
	if err != nil {
		logger.Fatalf("setup event bus: %v", err)
	}

	limiter, closeLimiter, err := buildLimiter(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("setup login throttle: %v", err)
	}
	defer closeLimiter()

	deps := service.Collaborators{
		Announcer: service.NewAnnouncer(hub, publisher, logger),
		Notifier:  notifier,
		Policy:    service.DefaultPolicy(),
		Clock:     time.Now,
		Logger:    logger,
	}
	authService := service.NewAuthService(userRepo, tokens, cfg.Auth.BcryptCost, deps)
	eventService := service.NewEventService(eventRepo, rsvpRepo, userRepo, deps)
	rsvpService := service.NewRSVPService(eventRepo, rsvpRepo, userRepo, deps)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	handler := apphttp.NewHandler(
		authService,
		eventService,
		rsvpService,
		tokens,
		hub,
		limiter,
		apphttp.Config{
			CORSOrigin:     cfg.Server.CORSOrigin,
			RequestTimeout: cfg.RequestTimeout(),
			WriteTimeout:   cfg.WriteTimeout(),
			PongWait:       pongWait,
			Logger:         logger,
		},
	)
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}
	hub.Close()
	if err := pool.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("mail queue drain: %v", err)
	}
	if err := publisher.Close(); err != nil {
		logger.Warnf("event bus close: %v", err)
	}

	logger.Info("bye")
}

func buildSender(ctx context.Context, cfg config.Config, logger *logrus.Logger) (mailer.Sender, error) {
	switch cfg.Mail.Transport {
	case config.MailTransportPostmark:
		logger.Info("delivering mail through postmark")
		return mailer.NewPostmarkSender(mailer.PostmarkConfig{
			ServerToken:  cfg.Mail.PostmarkServerToken,
			AccountToken: cfg.Mail.PostmarkAccountToken,
			From:         cfg.Mail.From,
			ReplyTo:      cfg.Mail.ReplyTo,
		})
	case config.MailTransportS3:
		store, err := buildStorage(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		return mailer.NewArchiveSender(store, mailer.ArchiveConfig{
			Bucket:    cfg.Storage.Bucket,
			KeyPrefix: cfg.Storage.KeyPrefix,
		})
	default:
		logger.Info("mail transport is log only")
		return mailer.NewLogSender(logger), nil
	}
}

func buildStorage(ctx context.Context, cfg config.Config, logger *logrus.Logger) (storage.Service, error) {
	if cfg.Storage.Bucket == "" {
		return nil, fmt.Errorf("storage bucket is required")
	}

	loadOpts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(cfg.Storage.Region),
	}
	if cfg.AWS.Profile != "" {
		loadOpts = append(loadOpts, awscfg.WithSharedConfigProfile(cfg.AWS.Profile))
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Storage.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Storage.Endpoint)
			o.UsePathStyle = true
		}
	})
	logger.Infof("archiving mail to s3 bucket %s (region %s)", cfg.Storage.Bucket, cfg.Storage.Region)
	return storage.NewS3Service(client), nil
}

func buildPublisher(cfg config.Config, logger *logrus.Logger) (bus.Publisher, error) {
	if cfg.NATS.URL == "" {
		return bus.NoopPublisher{}, nil
	}
	publisher, err := bus.NewNATSPublisher(cfg.NATS.URL, cfg.NATS.SubjectPrefix)
	if err != nil {
		return nil, err
	}
	logger.Infof("publishing domain events to %s under %q", cfg.NATS.URL, cfg.NATS.SubjectPrefix)
	return publisher, nil
}

func buildLimiter(ctx context.Context, cfg config.Config, logger *logrus.Logger) (ratelimit.Limiter, func(), error) {
	if cfg.Redis.Addr == "" {
		return ratelimit.NewMemoryLimiter(cfg.Auth.LoginAttempts, cfg.LoginWindow()), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("ping redis at %s: %w", cfg.Redis.Addr, err)
	}
	logger.Infof("login throttle backed by redis at %s", cfg.Redis.Addr)
	closeFn := func() {
		if err := client.Close(); err != nil {
			logger.Warnf("redis close: %v", err)
		}
	}
	return ratelimit.NewRedisLimiter(client, "eventhub:login", cfg.Auth.LoginAttempts, cfg.LoginWindow()), closeFn, nil
}
