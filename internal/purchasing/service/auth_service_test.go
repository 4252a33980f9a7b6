package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bitfantasy/procure/internal/middleware"
	"github.com/bitfantasy/procure/internal/purchasing/testutil"
	"github.com/golang-jwt/jwt/v5"
)

func TestAuthService_IssuedTokenPassesMiddlewareClaims(t *testing.T) {
	env := setupServices(t, Dependencies{}, Options{})
	ctx := context.Background()

	result, err := env.svc.Auth.Register(ctx, &RegisterRequest{Username: " alice ", Password: "hunter22", FullName: "Alice Chen"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if result.User.Username != "alice" || result.ExpiresIn != int64((24*time.Hour).Seconds()) {
		t.Fatalf("unexpected result %+v", result)
	}

	claims := &middleware.JWTClaims{}
	_, err = jwt.ParseWithClaims(result.AccessToken, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(testutil.JWTSecret), nil
	})
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.UserID != result.User.ID || claims.Name != "Alice Chen" {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestAuthService_Validation(t *testing.T) {
	env := setupServices(t, Dependencies{}, Options{})
	ctx := context.Background()

	var ve *ValidationError
	if _, err := env.svc.Auth.Register(ctx, &RegisterRequest{Username: "bob", Password: "123"}); !errors.As(err, &ve) || ve.Field != "password" {
		t.Fatalf("expected password validation error, got %v", err)
	}
	if _, err := env.svc.Auth.Login(ctx, &LoginRequest{Username: "nobody", Password: "whatever"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := env.svc.Auth.Refresh(ctx, "not-a-token"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestMemoryTokenStore_TakeOnce(t *testing.T) {
	store := NewMemoryTokenStore()
	ctx := context.Background()

	if err := store.Save(ctx, "jti-1", "user-1", time.Minute); err != nil {
		t.Fatalf("save: %v", err)
	}
	if userID, err := store.Take(ctx, "jti-1"); err != nil || userID != "user-1" {
		t.Fatalf("take: %q %v", userID, err)
	}
	if _, err := store.Take(ctx, "jti-1"); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound on reuse, got %v", err)
	}

	store.Save(ctx, "jti-2", "user-1", -time.Second)
	if _, err := store.Take(ctx, "jti-2"); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("expected expired token to be gone, got %v", err)
	}
}
