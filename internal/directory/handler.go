package directory

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/pr-poehali-dev/messenger-integration-1/internal/apperr"
	"github.com/pr-poehali-dev/messenger-integration-1/internal/middleware"
)

// Handler exposes directory endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a directory HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// UserResponse is the public projection of a user.
type UserResponse struct {
	ID        int64     `json:"id"`
	Phone     string    `json:"phone"`
	Username  string    `json:"username"`
	AvatarURL *string   `json:"avatar_url"`
	LastSeen  time.Time `json:"last_seen"`
}

// ToResponse converts a user to its JSON shape.
func ToResponse(u User) UserResponse {
	return UserResponse{ID: u.ID, Phone: u.Phone, Username: u.Username, AvatarURL: u.AvatarURL, LastSeen: u.LastSeen}
}

// Me returns the authenticated user's profile.
func (h *Handler) Me(c *fiber.Ctx) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return apperr.New(apperr.Unauthenticated, "authentication required")
	}
	user, err := h.service.Get(c.UserContext(), uid)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"user": ToResponse(user)})
}
