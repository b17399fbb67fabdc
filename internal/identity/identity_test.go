package identity

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestIdentify_Disabled(t *testing.T) {
	p := NewProvider(ModeDisabled, "", "", "local")
	u, err := p.Identify("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.Name != "local" {
		t.Errorf("name = %q, want local", u.Name)
	}
}

func TestIdentify_TokenMode(t *testing.T) {
	p := NewProvider(ModeToken, "s3cret", "", "alice")

	u, err := p.Identify("Bearer s3cret")
	if err != nil || u.Name != "alice" {
		t.Errorf("valid token: user=%+v err=%v", u, err)
	}

	u, err = p.Identify("")
	if err != nil || !u.Anonymous() {
		t.Errorf("missing header should be anonymous: user=%+v err=%v", u, err)
	}

	for _, h := range []string{"Bearer wrong", "Basic s3cret", "Bearer "} {
		if _, err := p.Identify(h); !errors.Is(err, ErrInvalidCredential) {
			t.Errorf("%q: err = %v, want ErrInvalidCredential", h, err)
		}
	}
}

func TestIdentify_JWTMode(t *testing.T) {
	p := NewProvider(ModeJWT, "", "signing-key", "")
	tok, err := IssueToken("signing-key", "bob", time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	u, err := p.Identify("Bearer " + tok)
	if err != nil {
		t.Fatalf("Identify: %v", err)
	}
	if u.Name != "bob" {
		t.Errorf("name = %q, want bob", u.Name)
	}
}

func TestIdentify_JWTWrongSecret(t *testing.T) {
	p := NewProvider(ModeJWT, "", "signing-key", "")
	tok, _ := IssueToken("other-key", "bob", time.Hour)
	if _, err := p.Identify("Bearer " + tok); !errors.Is(err, ErrInvalidCredential) {
		t.Errorf("err = %v, want ErrInvalidCredential", err)
	}
}

func TestIdentify_JWTExpired(t *testing.T) {
	p := NewProvider(ModeJWT, "", "k", "")
	tok, _ := IssueToken("k", "bob", -time.Minute)
	if _, err := p.Identify("Bearer " + tok); !errors.Is(err, ErrInvalidCredential) {
		t.Errorf("expired token: err = %v", err)
	}
}

func TestContextRoundTrip(t *testing.T) {
	ctx := WithUser(context.Background(), User{Name: "carol"})
	if got := FromContext(ctx); got.Name != "carol" {
		t.Errorf("name = %q", got.Name)
	}
	if !FromContext(context.Background()).Anonymous() {
		t.Error("empty context should be anonymous")
	}
}
