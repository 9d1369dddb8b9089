package utils

import (
	"testing"

	"github.com/xelth-com/protocolos/internal/models"
)

func TestPasswordHashing(t *testing.T) {
	password := "secret123"

	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}
	if hash == password || hash == "" {
		t.Error("Hash should be non-empty and differ from plaintext")
	}
	if !CheckPasswordHash(password, hash) {
		t.Error("Password should match hash")
	}
	if CheckPasswordHash("wrongpassword", hash) {
		t.Error("Wrong password should not match hash")
	}
}

func TestJWT(t *testing.T) {
	secret := "test-secret-key-12345"
	user := &models.UserAuth{
		ID:       "uuid-1234",
		Username: "motorista1",
		Role:     models.RoleDriver,
		UnitCode: "U01",
	}

	accessToken, refreshToken, err := GenerateTokens(user, secret)
	if err != nil {
		t.Fatalf("Failed to generate tokens: %v", err)
	}

	claims, err := ValidateToken(accessToken, secret)
	if err != nil {
		t.Fatalf("Failed to validate token: %v", err)
	}
	if claims["id"] != user.ID || claims["role"] != models.RoleDriver || claims["unit"] != "U01" {
		t.Errorf("unexpected claims %v", claims)
	}

	if _, err := ValidateToken(accessToken, "wrong-key"); err == nil {
		t.Error("Validation should fail with wrong key")
	}

	id, err := ValidateRefreshToken(refreshToken, secret)
	if err != nil || id != user.ID {
		t.Errorf("refresh token: id=%q err=%v", id, err)
	}
	if _, err := ValidateRefreshToken(accessToken, secret); err == nil {
		t.Error("access token must not be accepted as refresh token")
	}
}
