package services

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/wellnessai/engagement-backend/internal/config"
	"github.com/wellnessai/engagement-backend/internal/dto"
	"github.com/wellnessai/engagement-backend/internal/models"
)

func testAuth(t *testing.T) (*AuthService, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&models.User{}, &models.RefreshToken{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	cfg := &config.Config{
		JWTSecret:        "test-secret",
		JWTAccessExpiry:  15 * time.Minute,
		JWTRefreshExpiry: 7 * 24 * time.Hour,
	}
	return NewAuthService(db, cfg), db
}

func register(t *testing.T, svc *AuthService, email string) *dto.AuthResponse {
	t.Helper()
	resp, err := svc.Register(dto.RegisterRequest{
		Email:    email,
		Password: "correct horse",
		Name:     "Test User",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return resp
}

func TestRegisterIssuesTokens(t *testing.T) {
	svc, _ := testAuth(t)

	resp := register(t, svc, "Alice@Example.COM")

	if resp.User.Email != "alice@example.com" {
		t.Errorf("email = %q, want lowercased", resp.User.Email)
	}
	if resp.User.Role != models.RoleEmployee {
		t.Errorf("role = %q, want employee", resp.User.Role)
	}
	if resp.User.Timezone != "UTC" {
		t.Errorf("timezone = %q, want default UTC", resp.User.Timezone)
	}
	if resp.Tokens.RefreshToken == "" {
		t.Error("refresh token missing")
	}
	if resp.Tokens.ExpiresIn != int64((15 * time.Minute).Seconds()) {
		t.Errorf("expires_in = %d", resp.Tokens.ExpiresIn)
	}

	// Access token carries the identity claims.
	tok, err := jwt.Parse(resp.Tokens.AccessToken, func(t *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	if err != nil || !tok.Valid {
		t.Fatalf("parse access token: %v", err)
	}
	claims := tok.Claims.(jwt.MapClaims)
	if claims["sub"] != resp.User.ID {
		t.Errorf("sub = %v, want %s", claims["sub"], resp.User.ID)
	}
	if claims["role"] != models.RoleEmployee {
		t.Errorf("role claim = %v", claims["role"])
	}
}

func TestRegisterRejectsBadInput(t *testing.T) {
	svc, _ := testAuth(t)

	if _, err := svc.Register(dto.RegisterRequest{Email: "a@b.com", Password: "short"}); !errors.Is(err, ErrWeakPassword) {
		t.Errorf("short password err = %v, want ErrWeakPassword", err)
	}
	if _, err := svc.Register(dto.RegisterRequest{Email: "not-an-email", Password: "long enough"}); err == nil {
		t.Error("expected error for malformed email")
	}

	register(t, svc, "taken@example.com")
	if _, err := svc.Register(dto.RegisterRequest{Email: "TAKEN@example.com", Password: "long enough"}); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("duplicate email err = %v, want ErrEmailTaken", err)
	}
}

func TestLogin(t *testing.T) {
	svc, db := testAuth(t)
	register(t, svc, "alice@example.com")

	resp, err := svc.Login(dto.LoginRequest{Email: "ALICE@example.com", Password: "correct horse"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.Tokens.AccessToken == "" {
		t.Error("access token missing")
	}

	if _, err := svc.Login(dto.LoginRequest{Email: "alice@example.com", Password: "wrong"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password err = %v, want ErrInvalidCredentials", err)
	}
	if _, err := svc.Login(dto.LoginRequest{Email: "nobody@example.com", Password: "correct horse"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown user err = %v, want ErrInvalidCredentials", err)
	}

	// Deactivated accounts cannot log in.
	db.Model(&models.User{}).Where("email = ?", "alice@example.com").Update("is_active", false)
	if _, err := svc.Login(dto.LoginRequest{Email: "alice@example.com", Password: "correct horse"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("inactive user err = %v, want ErrInvalidCredentials", err)
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	svc, _ := testAuth(t)
	first := register(t, svc, "alice@example.com")

	second, err := svc.Refresh(first.Tokens.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if second.Tokens.RefreshToken == first.Tokens.RefreshToken {
		t.Error("refresh should rotate the token")
	}

	// The presented token is single-use.
	if _, err := svc.Refresh(first.Tokens.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("reused token err = %v, want ErrInvalidToken", err)
	}
	// The rotated token still works.
	if _, err := svc.Refresh(second.Tokens.RefreshToken); err != nil {
		t.Errorf("rotated token: %v", err)
	}
}

func TestRefreshRejectsInactiveUserAndGarbage(t *testing.T) {
	svc, db := testAuth(t)
	resp := register(t, svc, "alice@example.com")

	if _, err := svc.Refresh("not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("garbage token err = %v, want ErrInvalidToken", err)
	}

	db.Model(&models.User{}).Where("email = ?", "alice@example.com").Update("is_active", false)
	if _, err := svc.Refresh(resp.Tokens.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("inactive user err = %v, want ErrInvalidToken", err)
	}
}

func TestLogoutRevokesRefreshToken(t *testing.T) {
	svc, _ := testAuth(t)
	resp := register(t, svc, "alice@example.com")

	if err := svc.Logout(resp.Tokens.RefreshToken); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := svc.Refresh(resp.Tokens.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("post-logout refresh err = %v, want ErrInvalidToken", err)
	}

	// Logging out an unknown token is a no-op.
	if err := svc.Logout("unknown"); err != nil {
		t.Errorf("logout unknown token: %v", err)
	}
}

func TestGetUser(t *testing.T) {
	svc, _ := testAuth(t)
	resp := register(t, svc, "alice@example.com")

	id, err := uuid.Parse(resp.User.ID)
	if err != nil {
		t.Fatalf("parse id: %v", err)
	}
	user, err := svc.GetUser(id)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if user.Email != "alice@example.com" {
		t.Errorf("email = %q", user.Email)
	}
	if _, err := svc.GetUser(uuid.New()); err == nil {
		t.Error("expected error for unknown user")
	}
}
