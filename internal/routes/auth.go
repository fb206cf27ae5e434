package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/faceguard/faceguard/internal/auth"
)

// RegisterAuthRoutes wires challenge/session endpoints.
func RegisterAuthRoutes(r fiber.Router, h *auth.Handler, rateLimiter fiber.Handler) {
	group := r.Group("/auth")
	if rateLimiter != nil {
		group.Post("/challenge", rateLimiter, h.Challenge)
	} else {
		group.Post("/challenge", h.Challenge)
	}
	group.Post("/session", h.Session)
}
