package messages

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/pr-poehali-dev/messenger-integration-1/internal/apperr"
	"github.com/pr-poehali-dev/messenger-integration-1/internal/middleware"
)

// Handler exposes message endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a messages HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type sendRequest struct {
	ChatID  int64  `json:"chat_id"`
	Content string `json:"content"`
}

type messageResponse struct {
	ID        int64     `json:"id"`
	ChatID    int64     `json:"chat_id"`
	SenderID  int64     `json:"sender_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type entryResponse struct {
	ID             int64     `json:"id"`
	SenderID       int64     `json:"sender_id"`
	SenderUsername string    `json:"sender_username"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
	IsRead         bool      `json:"is_read"`
	IsMine         bool      `json:"is_mine"`
}

// Send appends a message to a chat the caller belongs to.
func (h *Handler) Send(c *fiber.Ctx) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return apperr.New(apperr.Unauthenticated, "authentication required")
	}
	var req sendRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Invalid("invalid request body")
	}
	msg, err := h.service.Append(c.UserContext(), uid, req.ChatID, req.Content)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": messageResponse{
			ID:        msg.ID,
			ChatID:    msg.ChatID,
			SenderID:  msg.SenderID,
			Content:   msg.Content,
			CreatedAt: msg.CreatedAt,
		},
	})
}

// History lists the messages of the chat named by the chat_id query parameter.
func (h *Handler) History(c *fiber.Ctx) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return apperr.New(apperr.Unauthenticated, "authentication required")
	}
	raw := c.Query("chat_id")
	if raw == "" {
		return apperr.Invalid("chat_id is required")
	}
	chatID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return apperr.Invalid("chat_id must be an integer")
	}
	entries, err := h.service.History(c.UserContext(), uid, chatID)
	if err != nil {
		return err
	}
	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, entryResponse{
			ID:             e.ID,
			SenderID:       e.SenderID,
			SenderUsername: e.SenderUsername,
			Content:        e.Content,
			CreatedAt:      e.CreatedAt,
			IsRead:         e.IsRead,
			IsMine:         e.IsMine,
		})
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"messages": out})
}
