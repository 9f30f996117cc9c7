package bluesky

import "regexp"

var linkRegex = regexp.MustCompile(`https?://[^\s]+`)

const facetLinkType = "app.bsky.richtext.facet#link"

// DetectFacets marks every http(s) URL in text as a link facet. Offsets are
// byte positions into the UTF-8 text; Go's regexp indices already are, so no
// conversion happens here, but any multi-byte character before a link makes
// the byte and character positions diverge and the service expects bytes.
func DetectFacets(text string) []Facet {
	matches := linkRegex.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return nil
	}

	facets := make([]Facet, 0, len(matches))
	for _, match := range matches {
		facets = append(facets, Facet{
			Index: ByteSlice{ByteStart: match[0], ByteEnd: match[1]},
			Features: []FacetFeature{{
				Type: facetLinkType,
				URI:  text[match[0]:match[1]],
			}},
		})
	}

	return facets
}
