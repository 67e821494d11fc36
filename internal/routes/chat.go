package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/pr-poehali-dev/messenger-integration-1/internal/directory"
	"github.com/pr-poehali-dev/messenger-integration-1/internal/messages"
	"github.com/pr-poehali-dev/messenger-integration-1/internal/pairing"
)

// RegisterChatRoutes wires the authenticated profile, contact and message
// endpoints. guard runs before every handler.
func RegisterChatRoutes(r fiber.Router, guard []fiber.Handler, profile *directory.Handler, contacts *pairing.Handler, msgs *messages.Handler) {
	with := func(h fiber.Handler) []fiber.Handler {
		return append(append([]fiber.Handler{}, guard...), h)
	}

	r.Get("/me", with(profile.Me)...)

	r.Get("/contacts", with(contacts.List)...)
	r.Post("/contacts", with(contacts.Add)...)

	r.Get("/messages", with(msgs.History)...)
	r.Post("/messages", with(msgs.Send)...)
}
