package metadata

import (
	"regexp"
	"strings"
)

// Preview is the metadata pulled out of a fetched page, before it is shaped
// into an embed.
type Preview struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url,omitempty"`
}

// Extraction is deliberate pattern matching, not HTML parsing: pages in the
// wild are malformed too often for strictness to pay off here, and a wrong
// guess only costs a link card. Open Graph tags win over generic meta tags,
// which win over <title>; the first match per field is kept.
var (
	titlePatterns = []*regexp.Regexp{
		metaPattern("property", "og:title"),
		metaPatternReversed("property", "og:title"),
		metaPattern("name", "title"),
		metaPatternReversed("name", "title"),
		regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`),
	}

	descriptionPatterns = []*regexp.Regexp{
		metaPattern("property", "og:description"),
		metaPatternReversed("property", "og:description"),
		metaPattern("name", "description"),
		metaPatternReversed("name", "description"),
	}

	imagePatterns = []*regexp.Regexp{
		metaPattern("property", "og:image"),
		metaPatternReversed("property", "og:image"),
		metaPattern("name", "twitter:image"),
		metaPatternReversed("name", "twitter:image"),
	}

	whitespaceRuns = regexp.MustCompile(`\s+`)
)

func metaPattern(attr, value string) *regexp.Regexp {
	return regexp.MustCompile(
		`(?i)<meta[^>]+` + attr + `=["']` + regexp.QuoteMeta(value) + `["'][^>]*content=["']([^"']*)["']`)
}

// metaPatternReversed matches tags that put content before the identifying
// attribute.
func metaPatternReversed(attr, value string) *regexp.Regexp {
	return regexp.MustCompile(
		`(?i)<meta[^>]+content=["']([^"']*)["'][^>]*` + attr + `=["']` + regexp.QuoteMeta(value) + `["']`)
}

// ExtractMetadata scrapes title, description and preview image from raw
// HTML. It is a pure function with no network access.
func ExtractMetadata(html string) Preview {
	return Preview{
		Title:       firstMatch(html, titlePatterns),
		Description: firstMatch(html, descriptionPatterns),
		ImageURL:    firstMatch(html, imagePatterns),
	}
}

func firstMatch(html string, patterns []*regexp.Regexp) string {
	for _, pattern := range patterns {
		if match := pattern.FindStringSubmatch(html); match != nil {
			if value := Sanitize(match[1]); value != "" {
				return value
			}
		}
	}
	return ""
}

var entityReplacer = strings.NewReplacer(
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#x27;", "'",
	"&amp;", "&",
)

// Sanitize strips control characters, decodes the five standard HTML
// entities and collapses whitespace runs to a single space.
func Sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\t' || r == '\n' || r == '\r':
			b.WriteRune(' ')
		case r < 0x20 || r == 0x7f:
			// other control characters are dropped outright
		default:
			b.WriteRune(r)
		}
	}

	s = entityReplacer.Replace(b.String())
	s = whitespaceRuns.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
