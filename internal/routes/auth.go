package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/pr-poehali-dev/messenger-integration-1/internal/auth"
)

// RegisterAuthRoutes wires the login endpoints.
func RegisterAuthRoutes(r fiber.Router, h *auth.Handler) {
	r.Post("/auth", h.Dispatch)
	group := r.Group("/auth")
	group.Post("/send-code", h.SendCode)
	group.Post("/verify-code", h.VerifyCode)
}
