package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/pr-poehali-dev/messenger-integration-1/internal/apperr"
)

const (
	actionSendCode   = "send_code"
	actionVerifyCode = "verify_code"
)

// Handler exposes the login endpoints.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type authRequest struct {
	Action   string `json:"action"`
	Phone    string `json:"phone"`
	Code     string `json:"code"`
	Username string `json:"username"`
}

type sendCodeResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	DebugCode string `json:"debug_code,omitempty"`
}

type loginUser struct {
	ID       int64  `json:"id"`
	Phone    string `json:"phone"`
	Username string `json:"username"`
}

type verifyCodeResponse struct {
	Success   bool      `json:"success"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      loginUser `json:"user"`
}

// SendCode issues a login code for the submitted phone.
func (h *Handler) SendCode(c *fiber.Ctx) error {
	req, err := parse(c)
	if err != nil {
		return err
	}
	return h.sendCode(c, req)
}

// VerifyCode exchanges a code for a session token.
func (h *Handler) VerifyCode(c *fiber.Ctx) error {
	req, err := parse(c)
	if err != nil {
		return err
	}
	return h.verifyCode(c, req)
}

// Dispatch serves the single-endpoint form where the body names the action.
func (h *Handler) Dispatch(c *fiber.Ctx) error {
	req, err := parse(c)
	if err != nil {
		return err
	}
	switch strings.TrimSpace(req.Action) {
	case actionSendCode:
		return h.sendCode(c, req)
	case actionVerifyCode:
		return h.verifyCode(c, req)
	default:
		return apperr.Invalid("invalid action")
	}
}

func (h *Handler) sendCode(c *fiber.Ctx, req authRequest) error {
	res, err := h.svc.SendCode(c.UserContext(), req.Phone)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(sendCodeResponse{Success: true, Message: "Code sent", DebugCode: res.DebugCode})
}

func (h *Handler) verifyCode(c *fiber.Ctx, req authRequest) error {
	login, err := h.svc.VerifyCode(c.UserContext(), req.Phone, req.Code, req.Username)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(verifyCodeResponse{
		Success:   true,
		Token:     login.Token,
		ExpiresAt: login.ExpiresAt,
		User:      loginUser{ID: login.User.ID, Phone: login.User.Phone, Username: login.User.Username},
	})
}

func parse(c *fiber.Ctx) (authRequest, error) {
	var req authRequest
	if len(c.Body()) == 0 {
		return req, nil
	}
	if err := c.BodyParser(&req); err != nil {
		return authRequest{}, apperr.Invalid("invalid request body")
	}
	return req, nil
}
