package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/pr-poehali-dev/messenger-integration-1/internal/apperr"
	"github.com/pr-poehali-dev/messenger-integration-1/internal/session"
)

const userIDLocal = "user_id"

var errMissingBearer = apperr.New(apperr.Unauthenticated, "missing bearer token")

// Session validates the bearer token and stores the caller's user id in locals.
func Session(issuer *session.Issuer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
		scheme, token, ok := strings.Cut(authz, " ")
		if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
			return errMissingBearer
		}
		claims, err := issuer.Validate(token)
		if err != nil {
			return err
		}
		c.Locals(userIDLocal, claims.UserID)
		return c.Next()
	}
}

// UserID returns the authenticated caller set by Session.
func UserID(c *fiber.Ctx) (int64, bool) {
	uid, ok := c.Locals(userIDLocal).(int64)
	return uid, ok && uid > 0
}
