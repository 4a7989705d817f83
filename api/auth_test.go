package api

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

func TestBearerTokenSuccess(t *testing.T) {
	token, err := bearerToken("Bearer header.payload.signature")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != "header.payload.signature" {
		t.Fatalf("unexpected token content: %s", token)
	}
}

func TestBearerTokenMissing(t *testing.T) {
	if _, err := bearerToken(""); err != errMissingAuthorization {
		t.Fatalf("expected missing header error, got %v", err)
	}
	if _, err := bearerToken("   "); err != errMissingAuthorization {
		t.Fatalf("expected missing header error for blanks, got %v", err)
	}
}

func TestBearerTokenMalformed(t *testing.T) {
	cases := []string{
		"header.payload.signature",
		"Basic dXNlcjpwYXNz",
		"Bearer ",
		"Bearer notajwt",
		"Bearer " + strings.Repeat(".", 1000),
	}
	for _, header := range cases {
		if _, err := bearerToken(header); err != errBadAuthorization {
			t.Fatalf("expected bad auth header error for %q, got %v", header, err)
		}
	}
}

func signedTestToken(t *testing.T, secret []byte, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func testModeAuth(secret []byte) *Auth {
	return &Auth{
		Audience:   "api://kanban",
		Issuer:     "https://issuer/",
		TestMode:   true,
		TestSecret: secret,
		parser:     jwt.NewParser(jwt.WithValidMethods([]string{"HS256"})),
	}
}

func TestUserIDFromAuthHeaderHS256(t *testing.T) {
	secret := []byte("test-secret")
	signed := signedTestToken(t, secret, jwt.MapClaims{
		"sub": "user-123",
		"aud": "api://kanban",
		"iss": "https://issuer/",
		"exp": time.Now().Add(5 * time.Minute).Unix(),
		"nbf": time.Now().Add(-time.Minute).Unix(),
	})

	userID, err := testModeAuth(secret).UserIDFromAuthHeader("Bearer " + signed)
	if err != nil {
		t.Fatalf("unexpected error verifying token: %v", err)
	}
	if userID != "user-123" {
		t.Fatalf("unexpected user id: %s", userID)
	}
}

func TestUserIDFromAuthHeaderExpired(t *testing.T) {
	secret := []byte("test-secret")
	signed := signedTestToken(t, secret, jwt.MapClaims{
		"sub": "user-123",
		"aud": "api://kanban",
		"iss": "https://issuer/",
		"exp": time.Now().Add(-5 * time.Minute).Unix(),
	})

	if _, err := testModeAuth(secret).UserIDFromAuthHeader("Bearer " + signed); err == nil {
		t.Fatal("expected an expired token to be rejected")
	}
}

func TestUserIDFromAuthHeaderWrongAudience(t *testing.T) {
	secret := []byte("test-secret")
	signed := signedTestToken(t, secret, jwt.MapClaims{
		"sub": "user-123",
		"aud": "api://other",
		"iss": "https://issuer/",
		"exp": time.Now().Add(5 * time.Minute).Unix(),
	})

	if _, err := testModeAuth(secret).UserIDFromAuthHeader("Bearer " + signed); err == nil {
		t.Fatal("expected a wrong-audience token to be rejected")
	}
}

func TestUserIDFromAuthHeaderMissingSub(t *testing.T) {
	secret := []byte("test-secret")
	signed := signedTestToken(t, secret, jwt.MapClaims{
		"aud": "api://kanban",
		"iss": "https://issuer/",
		"exp": time.Now().Add(5 * time.Minute).Unix(),
	})

	if _, err := testModeAuth(secret).UserIDFromAuthHeader("Bearer " + signed); err == nil {
		t.Fatal("expected a token without sub to be rejected")
	}
}

func TestUserIDFromAuthHeaderWrongSecret(t *testing.T) {
	signed := signedTestToken(t, []byte("other-secret"), jwt.MapClaims{
		"sub": "user-123",
		"aud": "api://kanban",
		"iss": "https://issuer/",
		"exp": time.Now().Add(5 * time.Minute).Unix(),
	})

	if _, err := testModeAuth([]byte("test-secret")).UserIDFromAuthHeader("Bearer " + signed); err == nil {
		t.Fatal("expected a token signed with another secret to be rejected")
	}
}
