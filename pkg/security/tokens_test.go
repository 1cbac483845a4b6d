package security_test

import (
	"strings"
	"testing"

	"github.com/luhive/luhive-backend/pkg/security"
)

func TestGenerateURLToken(t *testing.T) {
	token, err := security.GenerateURLToken(32)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(token) != 43 || strings.ContainsAny(token, "+/=") {
		t.Fatalf("unexpected token %q", token)
	}
	if again, _ := security.GenerateURLToken(32); again == token {
		t.Fatal("tokens repeated")
	}
	if _, err := security.GenerateURLToken(0); err == nil {
		t.Fatal("expected error for zero length")
	}
}

func TestSecretsEqual(t *testing.T) {
	cases := []struct {
		provided, expected string
		want               bool
	}{
		{"s3cret", "s3cret", true},
		{"s3cret", "other", false},
		{"", "", false},
		{"s3cret", "", false},
	}
	for _, tc := range cases {
		if got := security.SecretsEqual(tc.provided, tc.expected); got != tc.want {
			t.Fatalf("SecretsEqual(%q, %q) = %v", tc.provided, tc.expected, got)
		}
	}
}
