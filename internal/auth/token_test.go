package auth

import (
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", time.Minute)
	token, exp, err := tm.GenerateToken("identity-1", false)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if time.Until(exp) > time.Minute {
		t.Fatalf("expiry too far out: %v", exp)
	}
	claims, err := tm.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.Subject != "identity-1" || claims.Recovery {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestParseTokenRejects(t *testing.T) {
	now := time.Now()
	tm := NewTokenManager("secret", time.Minute).WithClock(func() time.Time { return now })
	valid, _, err := tm.GenerateToken("identity-1", true)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	other := NewTokenManager("different", time.Minute)
	if _, err := other.ParseToken(valid); err == nil {
		t.Fatal("token signed with another secret must be rejected")
	}

	later := NewTokenManager("secret", time.Minute).WithClock(func() time.Time { return now.Add(2 * time.Minute) })
	if _, err := later.ParseToken(valid); err == nil {
		t.Fatal("expired token must be rejected")
	}

	if _, err := tm.ParseToken("garbage"); err == nil {
		t.Fatal("garbage must be rejected")
	}

	claims, err := tm.ParseToken(valid)
	if err != nil || !claims.Recovery {
		t.Fatalf("recovery marker should survive, got %+v %v", claims, err)
	}
}
