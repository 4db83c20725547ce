package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const wallet = "0xAbC0000000000000000000000000000000000001"

func TestGenerateValidate(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour)

	token, err := m.Generate(wallet)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	claims, err := m.Validate(token)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if claims.MemberID != "0xabc0000000000000000000000000000000000001" {
		t.Errorf("MemberID = %q, want lowercased wallet", claims.MemberID)
	}
	if claims.Subject != claims.MemberID {
		t.Errorf("Subject = %q, want %q", claims.Subject, claims.MemberID)
	}
}

func TestValidateRejects(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour)
	valid, err := m.Generate(wallet)
	if err != nil {
		t.Fatal(err)
	}

	expired := NewJWTManager("test-secret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expiredToken, _ := expired.Generate(wallet)

	otherKey, _ := NewJWTManager("other-secret", time.Hour).Generate(wallet)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{MemberID: wallet})
	noneToken, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"tampered", valid + "x"},
		{"expired", expiredToken},
		{"wrong key", otherKey},
		{"alg none", noneToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := m.Validate(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("err = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestGenerateRequiresMember(t *testing.T) {
	if _, err := NewJWTManager("s", time.Hour).Generate("  "); err == nil {
		t.Error("expected error for empty member id")
	}
}
