package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/pr-poehali-dev/messenger-integration-1/internal/config"
	"github.com/pr-poehali-dev/messenger-integration-1/internal/logging"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Config{
		AppName:        "Messenger",
		AppEnv:         "test",
		Port:           "0",
		JWTSecret:      "test-secret",
		SessionTTL:     30 * 24 * time.Hour,
		OTPTTL:         5 * time.Minute,
		SMS:            config.SMSConfig{Timeout: time.Second},
		IdempotencyTTL: time.Minute,
	}
	srv, err := New(cfg, nil, nil, logging.Discard())
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return srv
}

func call(t *testing.T, srv *Server, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := srv.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	out := map[string]any{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("%s %s: decode: %v", method, path, err)
	}
	return resp.StatusCode, out
}

func login(t *testing.T, srv *Server, phone, username string) (string, int64) {
	t.Helper()
	status, sent := call(t, srv, fiber.MethodPost, "/api/v1/auth/send-code", "", map[string]string{"phone": phone})
	if status != http.StatusOK {
		t.Fatalf("send code: %d %v", status, sent)
	}
	code, _ := sent["debug_code"].(string)
	if len(code) != 6 {
		t.Fatalf("expected debug code, got %v", sent)
	}
	status, verified := call(t, srv, fiber.MethodPost, "/api/v1/auth/verify-code", "",
		map[string]string{"phone": phone, "code": code, "username": username})
	if status != http.StatusOK {
		t.Fatalf("verify code: %d %v", status, verified)
	}
	user := verified["user"].(map[string]any)
	return verified["token"].(string), int64(user["id"].(float64))
}

func TestActionStyleLoginIsSingleUse(t *testing.T) {
	srv := newTestServer(t)

	status, sent := call(t, srv, fiber.MethodPost, "/api/v1/auth", "", map[string]string{"action": "send_code", "phone": "+15550100001"})
	if status != http.StatusOK || sent["success"] != true {
		t.Fatalf("send_code: %d %v", status, sent)
	}
	verify := map[string]string{"action": "verify_code", "phone": "+15550100001", "code": sent["debug_code"].(string), "username": "alice"}

	status, verified := call(t, srv, fiber.MethodPost, "/api/v1/auth", "", verify)
	if status != http.StatusOK {
		t.Fatalf("verify_code: %d %v", status, verified)
	}
	if verified["token"] == "" || verified["user"].(map[string]any)["username"] != "alice" {
		t.Fatalf("unexpected login %v", verified)
	}

	status, again := call(t, srv, fiber.MethodPost, "/api/v1/auth", "", verify)
	if status != http.StatusConflict || again["code"] != "conflict" {
		t.Fatalf("expected code already used, got %d %v", status, again)
	}

	status, bad := call(t, srv, fiber.MethodPost, "/api/v1/auth", "", map[string]string{"action": "dance"})
	if status != http.StatusBadRequest || bad["code"] != "validation_error" {
		t.Fatalf("expected invalid action, got %d %v", status, bad)
	}

	status, wrong := call(t, srv, fiber.MethodPost, "/api/v1/auth/verify-code", "", map[string]string{"phone": "+15550100001", "code": "999999x"})
	if status != http.StatusBadRequest || wrong["code"] != "invalid_code" {
		t.Fatalf("expected invalid code, got %d %v", status, wrong)
	}
}

func TestChatFlow(t *testing.T) {
	srv := newTestServer(t)
	aliceToken, aliceID := login(t, srv, "+15550200001", "alice")
	bobToken, bobID := login(t, srv, "+15550200002", "")
	eveToken, _ := login(t, srv, "+15550200003", "eve")

	status, me := call(t, srv, fiber.MethodGet, "/api/v1/me", bobToken, nil)
	if status != http.StatusOK || me["user"].(map[string]any)["username"] != "User0002" {
		t.Fatalf("me: %d %v", status, me)
	}

	status, added := call(t, srv, fiber.MethodPost, "/api/v1/contacts", aliceToken, map[string]string{"phone": "+15550200002"})
	if status != http.StatusOK {
		t.Fatalf("add contact: %d %v", status, added)
	}
	chatID := int64(added["chat_id"].(float64))
	if int64(added["contact"].(map[string]any)["id"].(float64)) != bobID {
		t.Fatalf("unexpected contact %v", added)
	}

	status, reverse := call(t, srv, fiber.MethodPost, "/api/v1/contacts", bobToken, map[string]string{"phone": "+15550200001"})
	if status != http.StatusOK || int64(reverse["chat_id"].(float64)) != chatID {
		t.Fatalf("expected same chat, got %d %v", status, reverse)
	}

	status, self := call(t, srv, fiber.MethodPost, "/api/v1/contacts", aliceToken, map[string]string{"phone": "+15550200001"})
	if status != http.StatusConflict {
		t.Fatalf("expected self contact rejection, got %d %v", status, self)
	}
	status, missing := call(t, srv, fiber.MethodPost, "/api/v1/contacts", aliceToken, map[string]string{"phone": "+10000000000"})
	if status != http.StatusNotFound || missing["code"] != "not_found" {
		t.Fatalf("expected unknown contact, got %d %v", status, missing)
	}

	status, sent := call(t, srv, fiber.MethodPost, "/api/v1/messages", aliceToken, map[string]any{"chat_id": chatID, "content": " hi bob "})
	if status != http.StatusOK {
		t.Fatalf("send message: %d %v", status, sent)
	}
	if sent["message"].(map[string]any)["content"] != "hi bob" {
		t.Fatalf("expected trimmed content, got %v", sent)
	}

	path := "/api/v1/messages?chat_id=" + strconv.FormatInt(chatID, 10)
	status, history := call(t, srv, fiber.MethodGet, path, bobToken, nil)
	if status != http.StatusOK {
		t.Fatalf("history: %d %v", status, history)
	}
	entries := history["messages"].([]any)
	if len(entries) != 1 {
		t.Fatalf("expected one message, got %v", entries)
	}
	first := entries[0].(map[string]any)
	if first["sender_username"] != "alice" || first["is_mine"] != false || int64(first["sender_id"].(float64)) != aliceID {
		t.Fatalf("unexpected entry %v", first)
	}

	status, forbidden := call(t, srv, fiber.MethodGet, path, eveToken, nil)
	if status != http.StatusForbidden || forbidden["code"] != "forbidden" {
		t.Fatalf("expected outsider rejection, got %d %v", status, forbidden)
	}

	status, contacts := call(t, srv, fiber.MethodGet, "/api/v1/contacts", bobToken, nil)
	if status != http.StatusOK {
		t.Fatalf("contacts: %d %v", status, contacts)
	}
	list := contacts["contacts"].([]any)
	if len(list) != 1 || int64(list[0].(map[string]any)["chat_id"].(float64)) != chatID {
		t.Fatalf("unexpected contacts %v", list)
	}
}

func TestErrorEnvelope(t *testing.T) {
	srv := newTestServer(t)

	status, body := call(t, srv, fiber.MethodGet, "/api/v1/contacts", "", nil)
	if status != http.StatusUnauthorized || body["code"] != "unauthenticated" {
		t.Fatalf("expected unauthenticated, got %d %v", status, body)
	}

	status, body = call(t, srv, fiber.MethodGet, "/api/v1/auth/send-code", "", nil)
	if status != http.StatusMethodNotAllowed || body["code"] != "method_not_supported" {
		t.Fatalf("expected method not supported, got %d %v", status, body)
	}

	status, body = call(t, srv, fiber.MethodGet, "/healthz", "", nil)
	if status != http.StatusOK {
		t.Fatalf("health: %d %v", status, body)
	}
}
