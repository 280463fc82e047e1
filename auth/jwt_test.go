package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

func TestJWTIssueVerify(t *testing.T) {
	s := NewJWTService("test-secret", time.Hour)
	token, expires, err := s.Issue("user-1", "admin")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if time.Until(expires) <= 0 {
		t.Fatalf("expires in the past: %v", expires)
	}
	p, err := s.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if p.UserID != "user-1" || p.Role != "admin" || !p.IsAdmin() {
		t.Fatalf("principal: %+v", p)
	}
}

func TestJWTRejects(t *testing.T) {
	issuedAt := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewJWTService("test-secret", time.Minute)
	s.now = fixedClock(issuedAt)
	token, _, err := s.Issue("user-1", "customer")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	t.Run("expired", func(t *testing.T) {
		late := NewJWTService("test-secret", time.Minute)
		late.now = fixedClock(issuedAt.Add(2 * time.Minute))
		if _, err := late.Verify(token); !errors.Is(err, ErrExpiredToken) {
			t.Fatalf("want ErrExpiredToken, got %v", err)
		}
	})

	t.Run("within leeway", func(t *testing.T) {
		late := NewJWTService("test-secret", time.Minute)
		late.now = fixedClock(issuedAt.Add(time.Minute + 10*time.Second))
		if _, err := late.Verify(token); err != nil {
			t.Fatalf("want valid within leeway, got %v", err)
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewJWTService("another-secret", time.Minute)
		other.now = s.now
		if _, err := other.Verify(token); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("want ErrInvalidToken, got %v", err)
		}
	})

	t.Run("wrong algorithm", func(t *testing.T) {
		claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(time.Hour)),
		}}
		none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		if err != nil {
			t.Fatalf("sign none: %v", err)
		}
		if _, err := s.Verify(none); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("want ErrInvalidToken, got %v", err)
		}
	})

	t.Run("garbage", func(t *testing.T) {
		if _, err := s.Verify("not.a.token"); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("want ErrInvalidToken, got %v", err)
		}
	})
}

func TestJWTIssueRequiresUser(t *testing.T) {
	s := NewJWTService("test-secret", time.Hour)
	if _, _, err := s.Issue("", "admin"); !errors.Is(err, ErrEmptyUserID) {
		t.Fatalf("want ErrEmptyUserID, got %v", err)
	}
}
