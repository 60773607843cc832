package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/movemarket-backend/pkg/config"
	"github.com/angelmondragon/movemarket-backend/pkg/enums"
)

func testJWTConfig(minutes int) config.JWTConfig {
	return config.JWTConfig{
		Secret:            "secret",
		Issuer:            "movemarket",
		ExpirationMinutes: minutes,
	}
}

func TestMintAndParseAccessToken(t *testing.T) {
	cfg := testJWTConfig(30)
	now := time.Now().UTC()

	token, err := MintAccessToken(cfg, now, AccessTokenPayload{
		Email:   " Flyttfirma@Example.se ",
		Role:    enums.RoleSupplier,
		Subject: "12",
	})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	claims, err := ParseAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.Email != "flyttfirma@example.se" {
		t.Fatalf("expected normalized email, got %q", claims.Email)
	}
	if claims.Role != enums.RoleSupplier {
		t.Fatalf("unexpected role %s", claims.Role)
	}
	if claims.RecipientID() != "12" {
		t.Fatalf("expected recipient 12, got %q", claims.RecipientID())
	}
	if claims.Issuer != cfg.Issuer {
		t.Fatalf("expected issuer %s, got %s", cfg.Issuer, claims.Issuer)
	}
	if claims.ID == "" {
		t.Fatal("expected jti to be generated")
	}

	exp := now.Add(time.Duration(cfg.ExpirationMinutes) * time.Minute)
	diff := claims.ExpiresAt.Sub(exp)
	if diff < 0 {
		diff = -diff
	}
	if diff >= time.Second {
		t.Fatalf("expected exp roughly %v, got %v (diff %v)", exp.UTC(), claims.ExpiresAt.UTC(), diff)
	}
}

func TestMintAccessTokenDefaultsSubjectToEmail(t *testing.T) {
	cfg := testJWTConfig(30)
	token, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{
		Email: "kund@example.se",
		Role:  enums.RoleCustomer,
	})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}
	claims, err := ParseAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.RecipientID() != "kund@example.se" {
		t.Fatalf("expected email subject, got %q", claims.RecipientID())
	}
}

func TestParseAccessTokenInvalidSignature(t *testing.T) {
	cfg := testJWTConfig(10)
	token, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{
		Email: "admin@example.se",
		Role:  enums.RoleAdmin,
	})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	if _, err := ParseAccessToken(cfg, token+"x"); err == nil {
		t.Fatal("expected invalid signature error")
	}

	other := cfg
	other.Secret = "other"
	if _, err := ParseAccessToken(other, token); err == nil {
		t.Fatal("expected error for foreign secret")
	}
}

func TestParseAccessTokenExpired(t *testing.T) {
	cfg := testJWTConfig(15)
	token, err := MintAccessToken(cfg, time.Now().Add(-time.Hour), AccessTokenPayload{
		Email: "kund@example.se",
		Role:  enums.RoleCustomer,
	})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	_, err = ParseAccessToken(cfg, token)
	if err == nil {
		t.Fatal("expected expiration error")
	}
	if !strings.Contains(err.Error(), "expired") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMintAccessTokenRejectsBadPayload(t *testing.T) {
	cfg := testJWTConfig(5)
	if _, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{Email: "a@example.se"}); err == nil {
		t.Fatal("expected invalid role error")
	}
	if _, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{Role: enums.RoleCustomer}); err == nil {
		t.Fatal("expected missing email error")
	}
}
