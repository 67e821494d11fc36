package session

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func clockAt(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}

func TestMintAndValidate(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	issuer := NewIssuer("secret", 30*24*time.Hour, WithClock(clockAt(now)))

	token, exp, err := issuer.Mint(42, "+15551234567")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if !exp.Equal(now.Add(30 * 24 * time.Hour)) {
		t.Fatalf("unexpected expiry %s", exp)
	}

	claims, err := issuer.Validate(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.UserID != 42 || claims.Phone != "+15551234567" || claims.Subject != "42" {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestValidateExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	issuer := NewIssuer("secret", time.Hour, WithClock(clockAt(now)))
	token, _, err := issuer.Mint(7, "+1555")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	issuer.now = clockAt(now.Add(2 * time.Hour))
	if _, err := issuer.Validate(token); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
}

func TestValidateExpiredWithWrongSecretIsUnauthenticated(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	minter := NewIssuer("other", time.Hour, WithClock(clockAt(now)))
	token, _, err := minter.Mint(7, "+1555")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	verifier := NewIssuer("secret", time.Hour, WithClock(clockAt(now.Add(2*time.Hour))))
	if _, err := verifier.Validate(token); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestValidateRejectsBadTokens(t *testing.T) {
	issuer := NewIssuer("secret", time.Hour)
	token, _, err := issuer.Mint(1, "+1555")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	foreign, _, err := NewIssuer("other", time.Hour).Mint(1, "+1555")
	if err != nil {
		t.Fatalf("mint foreign: %v", err)
	}
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"user_id": 1,
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}

	cases := map[string]string{
		"empty":     "",
		"garbage":   "not-a-token",
		"foreign":   foreign,
		"truncated": token[:strings.LastIndex(token, ".")],
		"alg none":  none,
		"no bearer": "Bearer " + token,
	}
	for name, tok := range cases {
		if _, err := issuer.Validate(tok); !errors.Is(err, ErrUnauthenticated) {
			t.Fatalf("%s: expected ErrUnauthenticated, got %v", name, err)
		}
	}
}
