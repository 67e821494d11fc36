package pairing

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/pr-poehali-dev/messenger-integration-1/internal/apperr"
	"github.com/pr-poehali-dev/messenger-integration-1/internal/middleware"
)

// Handler exposes contact endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a contacts HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type addContactRequest struct {
	Phone string `json:"phone"`
}

type contactSummary struct {
	ID        int64   `json:"id"`
	Username  string  `json:"username"`
	Phone     string  `json:"phone"`
	AvatarURL *string `json:"avatar_url"`
}

type addContactResponse struct {
	Success bool           `json:"success"`
	ChatID  int64          `json:"chat_id"`
	Contact contactSummary `json:"contact"`
}

type contactResponse struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Phone     string    `json:"phone"`
	AvatarURL *string   `json:"avatar_url"`
	LastSeen  time.Time `json:"last_seen"`
	ChatID    int64     `json:"chat_id"`
}

// Add pairs the caller with the user owning the submitted phone.
func (h *Handler) Add(c *fiber.Ctx) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return apperr.New(apperr.Unauthenticated, "authentication required")
	}
	var req addContactRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Invalid("invalid request body")
	}
	res, err := h.service.AddContact(c.UserContext(), uid, req.Phone)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(addContactResponse{
		Success: true,
		ChatID:  res.ChatID,
		Contact: contactSummary{
			ID:        res.Contact.ID,
			Username:  res.Contact.Username,
			Phone:     res.Contact.Phone,
			AvatarURL: res.Contact.AvatarURL,
		},
	})
}

// List returns the caller's contacts.
func (h *Handler) List(c *fiber.Ctx) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return apperr.New(apperr.Unauthenticated, "authentication required")
	}
	contacts, err := h.service.ListContacts(c.UserContext(), uid)
	if err != nil {
		return err
	}
	out := make([]contactResponse, 0, len(contacts))
	for _, ct := range contacts {
		out = append(out, contactResponse{
			ID:        ct.ID,
			Username:  ct.Username,
			Phone:     ct.Phone,
			AvatarURL: ct.AvatarURL,
			LastSeen:  ct.LastSeen,
			ChatID:    ct.ChatID,
		})
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"contacts": out})
}
