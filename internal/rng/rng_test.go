package rng

import "testing"

func TestStringAlphabet(t *testing.T) {
	s := String(64)
	if len(s) != 64 {
		t.Fatalf("expected length 64, got %d", len(s))
	}
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')) {
			t.Fatalf("character %q outside the 62-symbol alphabet", c)
		}
	}
}

func TestStringDiffers(t *testing.T) {
	a := String(24)
	b := String(24)
	if a == b {
		t.Fatalf("two independently generated strings should not collide: %q == %q", a, b)
	}
}

func TestCookieSecretLength(t *testing.T) {
	s := CookieSecret()
	if len(s) != 32 {
		t.Fatalf("expected 32-byte cookie secret, got %d", len(s))
	}
}
