package auth

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestValidatePasswordStrength(t *testing.T) {
	tests := []struct {
		password string
		want     error
	}{
		{"Secret12", nil},
		{"Sh0rt", ErrPasswordTooShort},
		{"ALLUPPER123", ErrPasswordNoLower},
		{"alllower123", ErrPasswordNoUpper},
		{"NoDigitsHere", ErrPasswordNoDigit},
		{"Aa1" + strings.Repeat("x", 69), nil},
		{"Aa1" + strings.Repeat("x", 70), ErrPasswordTooLong},
		{"Aa1" + strings.Repeat("é", 35), ErrPasswordTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.password, func(t *testing.T) {
			if err := ValidatePasswordStrength(tt.password); !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestHashAndCompare(t *testing.T) {
	hash, err := HashPassword("Secret123", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if err := ComparePassword(hash, "Secret123"); err != nil {
		t.Fatalf("ComparePassword: %v", err)
	}
	if err := ComparePassword(hash, "secret123"); err == nil {
		t.Fatal("mismatched password should fail")
	}
}
