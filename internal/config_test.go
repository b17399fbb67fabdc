package internal

import (
	"strings"
	"testing"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", User: "me"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
}

func TestAuthConfig_DisabledModeNeedsUser(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("disabled mode without user should fail")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", User: "me"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != "disabled" {
		t.Errorf("mode = %q, want disabled", cfg.Mode)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret", User: "me"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", User: "me"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_JWTModeShortSecret(t *testing.T) {
	cfg := AuthConfig{Mode: "jwt", Secret: "short"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("jwt mode with short secret should fail")
	}
	cfg.Secret = "0123456789abcdef"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("jwt mode with 16-byte secret should pass: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestAuthConfig_Provider(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "tok", User: "me"}
	u, err := cfg.Provider().Identify("Bearer tok")
	if err != nil {
		t.Fatal(err)
	}
	if u.Name != "me" {
		t.Errorf("user = %q, want me", u.Name)
	}
}

func TestFullConfig_Defaults(t *testing.T) {
	if err := NewDefaultConfig().Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestFullConfig_ClientBaseURLRequired(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Client.BaseURL = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("empty client base_url should fail")
	}
}
