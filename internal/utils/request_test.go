package utils

import (
	"testing"
)

func TestFormatHost(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"https://example.com/path", "example.com"},
		{"http://sub.example.org", "sub.example.org"},
		{"https://example.com?q=1", "example.com"},
		{"example.com/path", "example.com"},
	}

	for _, tc := range cases {
		if got := FormatHost(tc.raw); got != tc.want {
			t.Errorf("FormatHost(%q) - want: %q, got: %q", tc.raw, tc.want, got)
		}
	}
}
