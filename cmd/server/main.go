package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	accounthandler "quizforge/internal/account/handler"
	accountservice "quizforge/internal/account/service"
	userstore "quizforge/internal/account/store/user"
	"quizforge/internal/account/throttle"
	"quizforge/internal/auth/cookies"
	"quizforge/internal/auth/guard"
	"quizforge/internal/auth/session"
	"quizforge/internal/auth/token"
	"quizforge/internal/genai"
	"quizforge/internal/platform/audit"
	"quizforge/internal/platform/config"
	"quizforge/internal/platform/httpserver"
	"quizforge/internal/platform/logger"
	"quizforge/internal/platform/metrics"
	platformredis "quizforge/internal/platform/redis"
	quizhandler "quizforge/internal/quiz/handler"
	quizservice "quizforge/internal/quiz/service"
	attemptstore "quizforge/internal/quiz/store/attempt"
	quizstore "quizforge/internal/quiz/store/quiz"
	transport "quizforge/internal/transport/http"
)

func main() {
	log := logger.New()
	cfg := config.FromEnv()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	// Stores: postgres when a database is configured, in-memory otherwise so
	// local runs need no infrastructure.
	var (
		users    accountservice.UserStore
		quizzes  quizservice.QuizStore
		attempts quizservice.AttemptStore
	)
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		users = userstore.NewPostgres(pool)
		quizzes = quizstore.NewPostgres(pool)
		attempts = attemptstore.NewPostgres(pool)
		log.Info("using postgres stores")
	} else {
		users = userstore.NewInMemory()
		quizzes = quizstore.NewInMemory()
		attempts = attemptstore.NewInMemory()
		log.Warn("no database configured, using in-memory stores")
	}

	var throttleStore throttle.Store
	redisClient, err := platformredis.New(ctx, cfg.RedisURL)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		throttleStore = throttle.NewRedis(redisClient.Client, throttle.DefaultWindow)
		log.Info("using redis login throttle")
	} else {
		throttleStore = throttle.NewInMemory(throttle.DefaultWindow)
		log.Warn("no redis configured, using in-memory login throttle")
	}

	var auditStore audit.Store
	if len(cfg.KafkaBrokers) > 0 {
		kafkaStore, err := audit.NewKafkaStore(ctx, cfg.KafkaBrokers, cfg.AuditTopic)
		if err != nil {
			log.Error("failed to connect to kafka", "error", err)
			os.Exit(1)
		}
		defer kafkaStore.Close()
		auditStore = kafkaStore
		log.Info("audit events flowing to kafka", "topic", cfg.AuditTopic)
	} else {
		auditStore = audit.NewInMemoryStore()
		log.Warn("no kafka configured, audit events stay in memory")
	}
	auditPublisher := audit.NewPublisher(auditStore,
		audit.WithPublisherLogger(log),
		audit.WithAsyncBuffer(256),
	)
	defer auditPublisher.Close()

	codec := token.NewCodec(cfg.JWTSigningKey, cfg.TokenIssuer, cfg.TokenTTL)
	cookieManager := cookies.NewManager(cfg.CookieSecure, cfg.TokenTTL)
	resolver := session.NewResolver(codec, cookieManager,
		session.WithLogger(log),
		session.WithMetrics(m),
	)
	routeGuard := guard.New(cookieManager,
		guard.WithLogger(log),
		guard.WithMetrics(m),
	)

	accounts := accountservice.New(users, codec,
		accountservice.WithLogger(log),
		accountservice.WithMetrics(m),
		accountservice.WithAuditPublisher(auditPublisher),
		accountservice.WithThrottle(throttle.New(throttleStore, throttle.WithLogger(log))),
	)
	generator := genai.NewClient(cfg.AIEndpoint, cfg.AIKey, genai.WithLogger(log))
	quizSvc := quizservice.New(quizzes, attempts, generator,
		quizservice.WithLogger(log),
		quizservice.WithMetrics(m),
		quizservice.WithAuditPublisher(auditPublisher),
	)

	router := transport.NewRouter(transport.Deps{
		Logger:   log,
		Resolver: resolver,
		Guard:    routeGuard,
		Accounts: accounthandler.New(accounts, cookieManager, log),
		Quizzes:  quizhandler.New(quizSvc, log),
	})
	server := httpserver.New(cfg.Addr, router)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info("server listening", "addr", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info("shutting down")
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}
