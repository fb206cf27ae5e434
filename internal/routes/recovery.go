package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/faceguard/faceguard/internal/recovery"
)

// RegisterRecoveryRoutes wires the external signer endpoints. Mutations go
// through idempotency when it is available; verify never changes state.
func RegisterRecoveryRoutes(r fiber.Router, h *recovery.Handler, idempotency fiber.Handler) {
	group := r.Group("/recovery")
	group.Post("/verify", h.Verify)
	group.Get("/enrollment", h.Enrollment)
	group.Get("/nonce", h.Nonce)

	mutate := func(handler fiber.Handler) []fiber.Handler {
		if idempotency == nil {
			return []fiber.Handler{handler}
		}
		return []fiber.Handler{idempotency, handler}
	}
	group.Post("/enrollment", mutate(h.Enroll)...)
	group.Put("/enrollment", mutate(h.Update)...)
	group.Delete("/enrollment", mutate(h.Revoke)...)
	group.Post("/nonce", mutate(h.ConsumeNonce)...)
}
