package util

import (
	"testing"
)

func TestStripHash(t *testing.T) {
	if got := StripHash("#ff0000"); got != "ff0000" {
		t.Errorf("StripHash() = %q, want %q", got, "ff0000")
	}
	if got := StripHash("ff0000"); got != "ff0000" {
		t.Errorf("StripHash() = %q, want %q", got, "ff0000")
	}
}

func TestLooksLikeHex(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"#ffffff", true},
		{"00aa11", true},
		{"#fff", false},
		{"stone", false},
		{"#gg0000", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := LooksLikeHex(tt.in); got != tt.want {
				t.Errorf("LooksLikeHex(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestEnvFloat(t *testing.T) {
	v := 1.5
	t.Setenv("SWATCHPATH_TEST_FLOAT", "")
	if err := EnvFloat("SWATCHPATH_TEST_FLOAT", &v); err != nil || v != 1.5 {
		t.Fatalf("unset variable changed value: %v, %v", v, err)
	}

	t.Setenv("SWATCHPATH_TEST_FLOAT", " 0.25 ")
	if err := EnvFloat("SWATCHPATH_TEST_FLOAT", &v); err != nil || v != 0.25 {
		t.Fatalf("EnvFloat() = %v, %v; want 0.25", v, err)
	}

	t.Setenv("SWATCHPATH_TEST_FLOAT", "abc")
	if err := EnvFloat("SWATCHPATH_TEST_FLOAT", &v); err == nil {
		t.Fatal("expected parse error")
	}
	if v != 0.25 {
		t.Errorf("value changed on error: %v", v)
	}
}
