package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// SMSCNotifier sends text messages through the smsc.ru HTTP gateway.
type SMSCNotifier struct {
	endpoint string
	login    string
	password string
	sender   string
	client   *http.Client
}

// NewSMSCNotifier builds a gateway client. apiKey has the form "login:password".
func NewSMSCNotifier(endpoint, apiKey, sender string, timeout time.Duration) (*SMSCNotifier, error) {
	login, password, ok := strings.Cut(apiKey, ":")
	if !ok || login == "" || password == "" {
		return nil, errors.New("sms api key must be login:password")
	}
	return &SMSCNotifier{
		endpoint: endpoint,
		login:    login,
		password: password,
		sender:   sender,
		client:   &http.Client{Timeout: timeout},
	}, nil
}

type smscResponse struct {
	ID        int64  `json:"id"`
	Count     int    `json:"cnt"`
	Error     string `json:"error"`
	ErrorCode int    `json:"error_code"`
}

// Send posts the message to the gateway and reports gateway-level failures.
func (n *SMSCNotifier) Send(ctx context.Context, message Message) error {
	form := url.Values{}
	form.Set("login", n.login)
	form.Set("psw", n.password)
	form.Set("phones", message.Destination)
	form.Set("mes", message.Body)
	form.Set("fmt", "3")
	if n.sender != "" {
		form.Set("sender", n.sender)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send sms: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return fmt.Errorf("read sms response: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("sms gateway status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out smscResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return fmt.Errorf("decode sms response: %w", err)
	}
	if out.Error != "" || out.ErrorCode != 0 {
		return fmt.Errorf("sms gateway error %d: %s", out.ErrorCode, out.Error)
	}
	return nil
}
