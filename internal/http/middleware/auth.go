package middleware

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"portfolioapi/internal/auth"
)

// PrincipalLocalKey is the Fiber locals key holding the authorized auth.Principal.
const PrincipalLocalKey = "principal"

// RequireAdmin rejects requests whose bearer token the authorizer does not accept.
// Errors are returned to the app error handler, which maps them to 401/403.
func RequireAdmin(authz auth.Authorizer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
		if !ok {
			return fmt.Errorf("%w: missing bearer token", auth.ErrUnauthorized)
		}
		p, err := authz.Authorize(c.UserContext(), token)
		if err != nil {
			return err
		}
		c.Locals(PrincipalLocalKey, p)
		return c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
