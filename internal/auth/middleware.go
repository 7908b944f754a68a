package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/ops-orchestrator/pkg/util"
)

const claimsContextKey = "auth_claims"

// RequireToken returns middleware that validates a bearer token before
// allowing access to protected ops endpoints.
func RequireToken(tm *TokenManager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			return apperrors.NewUnauthorized("missing authorization header")
		}
		tokenStr := strings.TrimSpace(strings.TrimPrefix(header, "Bearer"))
		if tokenStr == "" {
			return apperrors.NewUnauthorized("malformed authorization header")
		}
		claims, err := tm.ParseToken(tokenStr)
		if err != nil {
			return apperrors.NewUnauthorized("invalid token")
		}
		c.Locals(claimsContextKey, claims)
		return c.Next()
	}
}

// ClaimsFromCtx returns the claims stored by RequireToken, if any.
func ClaimsFromCtx(c *fiber.Ctx) *Claims {
	claims, _ := c.Locals(claimsContextKey).(*Claims)
	return claims
}
