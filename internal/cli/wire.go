package cli

import (
	"context"
	"fmt"
	"time"

	"quizrevenue/internal/app"
	"quizrevenue/internal/config"
	"quizrevenue/internal/infra/mail"
	"quizrevenue/internal/infra/memory"
	"quizrevenue/internal/infra/postgres"
	infraredis "quizrevenue/internal/infra/redis"
	transport "quizrevenue/internal/transport/http"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// backend is every persistence port one store implementation satisfies.
type backend interface {
	app.UserRepository
	app.OtpRepository
	app.AttemptHistory
	app.RiskLog
	app.Ledger
	app.CatalogRepository
	app.DashboardRepository
	app.LeaderboardRepository
}

// openBackend returns Postgres (migrated) when configured and the in-memory store otherwise.
func openBackend(ctx context.Context, cfg config.Config, logger *zap.Logger) (backend, memory.QuizLoader, func(), error) {
	if cfg.Postgres.URL == "" {
		logger.Warn("postgres url not configured, using in-memory store")
		store := memory.NewStore()
		return store, store, func() {}, nil
	}

	db := postgres.Open(cfg.Postgres.URL)
	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, nil, nil, fmt.Errorf("migrate: %w", err)
	}
	pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		db.Close()
		return nil, nil, nil, fmt.Errorf("connect pgx pool: %w", err)
	}
	cleanup := func() {
		pool.Close()
		db.Close()
	}
	return postgres.NewStore(db), postgres.NewQuizLoader(pool), cleanup, nil
}

func openRedis(ctx context.Context, cfg config.Config) (*redis.Client, error) {
	if cfg.Redis.Addr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// application is the fully wired service graph.
type application struct {
	services transport.Services
	options  transport.Options
	cleanup  func()
}

func buildApplication(ctx context.Context, cfg config.Config, logger *zap.Logger) (*application, error) {
	store, loader, closeStore, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	redisClient, err := openRedis(ctx, cfg)
	if err != nil {
		closeStore()
		return nil, err
	}
	cleanup := func() {
		if redisClient != nil {
			_ = redisClient.Close()
		}
		closeStore()
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	sessionTTL := config.TTLDuration(cfg.Session.TTL, 24*time.Hour)
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var (
		quizzes  app.QuizRepository
		sessions app.SessionStore
		boards   app.BoardRepository
	)
	if redisClient != nil {
		quizzes = infraredis.NewQuizRepository(redisClient, loader, quizTTL)
		sessions = infraredis.NewSessionStore(redisClient, sessionTTL)
		boards = infraredis.NewBoardStore(redisClient, redisTTL)
	} else {
		quizzes = memory.NewQuizRepository(loader, quizTTL)
		sessions = memory.NewSessionStore(sessionTTL)
		boards = memory.NewBoardStore()
	}

	var mailer app.Mailer
	if cfg.SMTP.Host != "" {
		mailer = mail.NewSMTPMailer(mail.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		}, logger)
	} else {
		logger.Warn("smtp host not configured, otp codes are logged at debug level")
		mailer = mail.NewLogMailer(logger)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := app.NewMetrics(registry)

	revenue, err := app.NewRevenueAllocator(app.RevenueConfig{
		Min:       decimal.NewFromFloat(cfg.Revenue.Min),
		Max:       decimal.NewFromFloat(cfg.Revenue.Max),
		UserShare: decimal.NewFromFloat(cfg.Revenue.UserShare),
	})
	if err != nil {
		cleanup()
		return nil, err
	}

	otp := app.NewOtpService(store, mailer, config.TTLDuration(cfg.OTP.TTL, 10*time.Minute), metrics, logger)
	leaderboard := app.NewLeaderboardService(boards, store, logger)
	risk := app.NewRiskEvaluator(store, store, cfg.Risk.Clamp)

	return &application{
		services: transport.Services{
			Auth:        app.NewAuthService(store, otp, sessions, metrics, logger),
			Attempts:    app.NewAttemptService(quizzes, risk, revenue, store, leaderboard, metrics, logger, app.AttemptOptions{PayBlocked: cfg.Revenue.PayBlocked}),
			Catalog:     app.NewCatalogService(store, quizzes, logger),
			Dashboard:   app.NewDashboardService(store, store),
			Leaderboard: leaderboard,
		},
		options: transport.Options{
			CookieName:   cfg.Session.CookieName,
			CookieSecure: cfg.Server.CookieSecure,
			SessionTTL:   sessionTTL,
			Gatherer:     registry,
		},
		cleanup: cleanup,
	}, nil
}
