package splitter

import (
	"net/url"
	"regexp"
	"strings"
)

var urlRegex = regexp.MustCompile(`https?://[^\s]+`)

// ValidateLink reports whether raw is an absolute http(s) URL with a dotted
// host. Parse failures yield false, never an error.
func ValidateLink(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return false
	}

	return strings.Contains(parsed.Host, ".")
}

// NormalizeLink re-serializes a valid URL and strips trailing slashes.
// It returns the empty string when raw does not validate. Scheme, host, path
// and query are otherwise left untouched.
func NormalizeLink(raw string) string {
	if !ValidateLink(raw) {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}

	return strings.TrimRight(parsed.String(), "/")
}

// DetectLinks scans free text for http(s) URLs in the order they appear.
func DetectLinks(text string) []string {
	return urlRegex.FindAllString(text, -1)
}
