package routes

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/faceguard/faceguard/internal/auth"
	"github.com/faceguard/faceguard/internal/config"
	"github.com/faceguard/faceguard/internal/events"
	"github.com/faceguard/faceguard/internal/liveness"
	"github.com/faceguard/faceguard/internal/middleware"
	"github.com/faceguard/faceguard/internal/recovery"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce Redis presence outside of dev, even though config also checks.
	if !d.Cfg.IsDev() && d.Cache == nil {
		return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	// Plain text access log in desired format: [HH:MM:SS] 200 -  145ms METHOD /path
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(middleware.Audit(d.Logger))

	verifier, err := newVerifier(d.Cfg)
	if err != nil {
		return err
	}

	// Health
	RegisterHealthRoutes(app, d, verifier)

	// Services and handlers
	enrollments, nonces, err := newStores(context.Background(), d)
	if err != nil {
		return err
	}

	publisher := events.Multi{events.NewLoggerPublisher(d.Logger)}
	if d.Cfg.EventStream != "" && d.Cache != nil {
		publisher = append(publisher, events.NewRedisStreamPublisher(d.Cache, d.Cfg.EventStream))
	}

	signer, err := recovery.New(recovery.Deps{
		Enrollments: enrollments,
		Nonces:      nonces,
		Verifier:    verifier,
		Publisher:   publisher,
		Logger:      d.Logger,
	})
	if err != nil {
		return err
	}

	var challenges auth.ChallengeStore
	if d.Cache != nil {
		challenges = auth.NewRedisChallengeStore(d.Cache, d.Cfg.RedisNamespace)
	} else {
		challenges = auth.NewMemoryChallengeStore()
	}
	authSvc := auth.NewService(challenges, d.Cfg.JWTSecret, d.Cfg.SessionTTL, d.Cfg.ChallengeTTL)

	authHandler := auth.NewHandler(authSvc)
	recoveryHandler := recovery.NewHandler(signer, d.Logger)

	// API routes
	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": middleware.RequestIDFrom(c),
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	// Public routes
	rateLimiter := middleware.ChallengeRateLimit(d.Cache, d.Cfg.ChallengeLimit)
	RegisterAuthRoutes(api, authHandler, rateLimiter)

	// Protected routes
	protected := api.Group("", middleware.SessionAuth(authSvc))
	var idempotency fiber.Handler
	if d.Cache != nil {
		idempotency = middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger)
	}
	RegisterRecoveryRoutes(protected, recoveryHandler, idempotency)

	return nil
}

func newVerifier(cfg config.Config) (liveness.Verifier, error) {
	if cfg.LivenessVerifierURL != "" {
		return liveness.NewHTTPVerifier(cfg.LivenessVerifierURL, cfg.LivenessTimeout), nil
	}
	if cfg.IsDev() {
		return liveness.DevVerifier{}, nil
	}
	return nil, fmt.Errorf("LIVENESS_VERIFIER_URL is required when APP_ENV=%s", cfg.AppEnv)
}

func newStores(ctx context.Context, d Deps) (recovery.EnrollmentStore, recovery.NonceStore, error) {
	switch d.Cfg.StoreBackend {
	case config.BackendPostgres:
		if d.DB == nil {
			return nil, nil, fmt.Errorf("database is required when STORE_BACKEND=%s", d.Cfg.StoreBackend)
		}
		if err := recovery.EnsureSchema(ctx, d.DB); err != nil {
			return nil, nil, err
		}
		return recovery.NewPostgresEnrollmentStore(d.DB), recovery.NewPostgresNonceStore(d.DB), nil
	case config.BackendRedis:
		if d.Cache == nil {
			return nil, nil, fmt.Errorf("redis is required when STORE_BACKEND=%s", d.Cfg.StoreBackend)
		}
		return recovery.NewRedisEnrollmentStore(d.Cache, d.Cfg.RedisNamespace), recovery.NewRedisNonceStore(d.Cache, d.Cfg.RedisNamespace), nil
	case config.BackendMemory, "":
		return recovery.NewMemoryEnrollmentStore(), recovery.NewMemoryNonceStore(), nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", d.Cfg.StoreBackend)
	}
}
