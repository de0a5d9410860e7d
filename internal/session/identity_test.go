package session

import (
	"strings"
	"testing"
)

func TestNewIdentityShape(t *testing.T) {
	id, err := NewIdentity()
	if err != nil {
		t.Fatalf("NewIdentity() error = %v", err)
	}

	if len(id.Code()) != CodeLength {
		t.Errorf("code length = %d, want %d", len(id.Code()), CodeLength)
	}
	if len(id.AdminPassword()) != PasswordLength {
		t.Errorf("password length = %d, want %d", len(id.AdminPassword()), PasswordLength)
	}

	for _, c := range id.Code() {
		if !strings.ContainsRune(codeAlphabet, c) {
			t.Errorf("code contains %q, outside the allowed alphabet", c)
		}
	}
	for _, c := range id.AdminPassword() {
		if !strings.ContainsRune(passwordAlphabet, c) {
			t.Errorf("password contains %q, outside the allowed alphabet", c)
		}
	}
}

func TestAlphabetsExcludeAmbiguousGlyphs(t *testing.T) {
	for _, forbidden := range []string{"I", "O", "0", "1"} {
		if strings.Contains(codeAlphabet, forbidden) {
			t.Errorf("code alphabet contains ambiguous glyph %q", forbidden)
		}
	}
	for _, forbidden := range []string{"i", "o", "0", "1"} {
		if strings.Contains(passwordAlphabet, forbidden) {
			t.Errorf("password alphabet contains ambiguous glyph %q", forbidden)
		}
	}
}

func TestCheckCode(t *testing.T) {
	id, err := NewIdentity()
	if err != nil {
		t.Fatalf("NewIdentity() error = %v", err)
	}

	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"exact match", id.Code(), true},
		{"lowercase match", strings.ToLower(id.Code()), true},
		{"surrounding whitespace", "  " + id.Code() + "\n", true},
		{"wrong code", "XXXXXX", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := id.CheckCode(tt.input); got != tt.want {
				t.Errorf("CheckCode(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestCheckAdminPassword(t *testing.T) {
	id, err := NewIdentity()
	if err != nil {
		t.Fatalf("NewIdentity() error = %v", err)
	}

	if !id.CheckAdminPassword(id.AdminPassword()) {
		t.Error("correct admin password should be accepted")
	}
	if id.CheckAdminPassword("wrong-password") {
		t.Error("wrong admin password should be rejected")
	}
	// Unlike the session code, the password comparison is exact.
	if id.CheckAdminPassword(strings.ToUpper(id.AdminPassword())) {
		t.Error("admin password comparison must be case-sensitive")
	}
}
