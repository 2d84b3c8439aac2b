package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
)

const bearerTokenKey = "bearer_token"

// BearerToken requires an Authorization bearer header. The token is not
// verified here; it is forwarded to the wallet API, which does.
func BearerToken() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if len(authz) < len("Bearer ") || !strings.EqualFold(authz[:len("Bearer ")], "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		token := strings.TrimSpace(authz[len("Bearer "):])
		if token == "" {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		c.Locals(bearerTokenKey, token)
		return c.Next()
	}
}

// Token returns the bearer token stored by BearerToken.
func Token(c *fiber.Ctx) string {
	token, _ := c.Locals(bearerTokenKey).(string)
	return token
}
