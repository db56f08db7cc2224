package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSanitizeEmail(t *testing.T) {
	t.Run("with different formats", func(t *testing.T) {
		for _, in := range []string{"\n23234@test.DE", "  \n 23234@test.DE \n\r", "23234@test.de"} {
			if email := SanitizeEmail(in); email != "23234@test.de" {
				t.Errorf("unexpected email: %s", email)
			}
		}
	})
}

func TestCheckEmailFormat(t *testing.T) {
	valid := []string{"a@test.de", "first.last+tag@example.com"}
	invalid := []string{"", "a@", "@test.de", "a b@test.de", "a@test"}

	for _, e := range valid {
		if !CheckEmailFormat(e) {
			t.Errorf("expected %q to be valid", e)
		}
	}
	for _, e := range invalid {
		if CheckEmailFormat(e) {
			t.Errorf("expected %q to be invalid", e)
		}
	}
}

func TestBlurEmailAddress(t *testing.T) {
	t.Run("with different formats", func(t *testing.T) {
		if email := BlurEmailAddress("a1234@test.de"); email != "a****@test.de" {
			t.Errorf("unexpected email: %s", email)
		}
		if email := BlurEmailAddress("no-at-sign"); email != "****@**" {
			t.Errorf("unexpected email: %s", email)
		}
	})
}

func TestCheckPasswordFormat(t *testing.T) {
	tests := []struct {
		password string
		want     bool
	}{
		{"1n34T6@", false},
		{"password", false},
		{"password1", false},
		{"Password1", true},
		{"pass word1", true},
		{"ALLUPPER12!", true},
	}
	for _, tt := range tests {
		if got := CheckPasswordFormat(tt.password); got != tt.want {
			t.Errorf("CheckPasswordFormat(%q) = %v, want %v", tt.password, got, tt.want)
		}
	}
}

func TestBlockedPasswords(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "blocked.txt")
	if err := os.WriteFile(filename, []byte("Password1\nshort\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := LoadBlockedPasswords(filename); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !IsPasswordOnBlocklist("Password1") {
		t.Error("expected Password1 to be blocked")
	}
	if IsPasswordOnBlocklist("short") {
		t.Error("entries not matching the password rules are skipped")
	}
}
