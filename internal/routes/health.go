package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/faceguard/faceguard/internal/liveness"
)

type healthChecker interface {
	HealthCheck(ctx context.Context) error
}

// RegisterHealthRoutes adds liveness/readiness style endpoints.
func RegisterHealthRoutes(app *fiber.App, d Deps, verifier liveness.Verifier) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		dbStatus := "ok"
		redisStatus := "ok"
		verifierStatus := "ok"

		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if d.DB != nil {
			if err := d.DB.Ping(ctx); err != nil {
				dbStatus = err.Error()
			}
		} else {
			dbStatus = "disabled"
		}
		if d.Cache != nil {
			if err := d.Cache.Ping(ctx).Err(); err != nil {
				redisStatus = err.Error()
			}
		} else {
			redisStatus = "disabled"
		}
		if hc, ok := verifier.(healthChecker); ok {
			if err := hc.HealthCheck(ctx); err != nil {
				verifierStatus = err.Error()
			}
		} else {
			verifierStatus = "dev"
		}

		status := http.StatusOK
		for _, s := range []string{dbStatus, redisStatus, verifierStatus} {
			if s != "ok" && s != "disabled" && s != "dev" {
				status = http.StatusServiceUnavailable
			}
		}
		return c.Status(status).JSON(fiber.Map{
			"status":    fiber.Map{"postgres": dbStatus, "redis": redisStatus, "liveness_verifier": verifierStatus},
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		})
	})
}
