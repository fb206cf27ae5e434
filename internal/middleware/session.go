package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/faceguard/faceguard/internal/auth"
)

// SessionAuth validates the bearer session token and stores the caller's
// account under auth.AccountLocal. Downstream handlers never accept an
// account from the request body.
func SessionAuth(svc *auth.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		token := strings.TrimSpace(authz[len("Bearer "):])
		account, err := svc.Authenticate(token)
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "invalid token")
		}

		c.Locals(auth.AccountLocal, account)
		return c.Next()
	}
}
