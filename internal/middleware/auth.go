package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/pairworks/tpsflow/internal/config"
	"github.com/pairworks/tpsflow/internal/services"
	"github.com/pairworks/tpsflow/internal/types"
)

// AuthUser validates the Authorizer session cookie and stashes the
// authenticated user id in the request context. The Authorizer client is
// initialized lazily on the first authenticated request so the service can
// start before Authorizer does.
func AuthUser(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session := c.Cookies("cookie_session")
		if session == "" {
			return types.Forbidden("Authorizer cookie \"cookie_session\" not found")
		}

		if !services.IsAuthorizerInitialized() {
			if err := services.InitAuthorizer(cfg, c.Protocol(), c.Hostname()); err != nil {
				return types.Unavailable("authorizer unavailable: %v", err)
			}
		}

		user, err := services.ValidateSession(session, []string{"user"})
		if err != nil {
			return types.Forbidden("invalid session: %v", err)
		}

		c.Locals("userID", user.ID)
		c.Locals("user", user)

		return c.Next()
	}
}
