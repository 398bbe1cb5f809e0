package service

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestJWTService_IssueParseAccess(t *testing.T) {
	svc := NewJWTService("secret", 15*time.Minute)

	tok, err := svc.IssueAccessToken(Athlete{ID: 42, Name: "Ana"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if tok.Token == "" || tok.ExpiresIn != int64((15*time.Minute).Seconds()) {
		t.Fatalf("unexpected token %+v", tok)
	}

	claims, err := svc.ParseAccessToken(tok.Token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != 42 || claims.Name != "Ana" || claims.Subject != "42" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestJWTService_ExpiredToken(t *testing.T) {
	svc := NewJWTService("secret", time.Minute)
	issued := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return issued }

	tok, err := svc.IssueAccessToken(Athlete{ID: 1})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	svc.now = func() time.Time { return issued.Add(2 * time.Minute) }

	if _, err := svc.ParseAccessToken(tok.Token); !errors.Is(err, ErrJWTExpired) {
		t.Fatalf("expected ErrJWTExpired, got %v", err)
	}
}

func TestJWTService_RejectsForeignTokens(t *testing.T) {
	svc := NewJWTService("secret", time.Minute)
	other := NewJWTService("other-secret", time.Minute)

	foreign, _ := other.IssueAccessToken(Athlete{ID: 1})
	if _, err := svc.ParseAccessToken(foreign.Token); !errors.Is(err, ErrJWTInvalid) {
		t.Fatalf("expected ErrJWTInvalid for wrong secret, got %v", err)
	}

	now := time.Now()
	wrongIssuer := Claims{
		UserID:    1,
		TokenType: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			Subject:   "1",
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
		},
	}
	signed, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, wrongIssuer).SignedString([]byte("secret"))
	if _, err := svc.ParseAccessToken(signed); !errors.Is(err, ErrJWTInvalid) {
		t.Fatalf("expected ErrJWTInvalid for wrong issuer, got %v", err)
	}

	if _, err := svc.ParseAccessToken("  "); !errors.Is(err, ErrJWTInvalid) {
		t.Fatalf("expected ErrJWTInvalid for blank token, got %v", err)
	}
	if _, err := svc.IssueAccessToken(Athlete{ID: 0}); !errors.Is(err, ErrJWTInvalid) {
		t.Fatalf("expected ErrJWTInvalid for missing user, got %v", err)
	}
}
