// Package util provides shared utility functions used across the application.
package util

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// StripHash removes the # prefix from a hex colour string.
func StripHash(hex string) string {
	return strings.TrimPrefix(hex, "#")
}

// LooksLikeHex reports whether s is a 6-digit hex colour, with or without
// the # prefix.
func LooksLikeHex(s string) bool {
	s = StripHash(s)
	if len(s) != 6 {
		return false
	}
	_, err := strconv.ParseUint(s, 16, 32)
	return err == nil
}

// EnvFloat overwrites dst with the value of the named environment variable
// when it is set and non-empty.
func EnvFloat(name string, dst *float64) error {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", name, v, err)
	}
	*dst = f
	return nil
}
