package metadata

import "testing"

func TestExtractMetadataPrefersOpenGraph(t *testing.T) {
	html := `<html><head>
		<title>Fallback Title</title>
		<meta name="description" content="generic description">
		<meta property="og:title" content="OG Title">
		<meta property="og:description" content="OG description">
		<meta property="og:image" content="https://example.com/img.png">
	</head></html>`

	preview := ExtractMetadata(html)

	if preview.Title != "OG Title" {
		t.Errorf("title - want: %q, got: %q", "OG Title", preview.Title)
	}
	if preview.Description != "OG description" {
		t.Errorf("description - want: %q, got: %q", "OG description", preview.Description)
	}
	if preview.ImageURL != "https://example.com/img.png" {
		t.Errorf("image - want: %q, got: %q", "https://example.com/img.png", preview.ImageURL)
	}
}

func TestExtractMetadataFallsBackToMetaAndTitle(t *testing.T) {
	html := `<html><head>
		<title>  Page
		Title  </title>
		<meta name="description" content="a plain description">
	</head></html>`

	preview := ExtractMetadata(html)

	if preview.Title != "Page Title" {
		t.Errorf("title - want: %q, got: %q", "Page Title", preview.Title)
	}
	if preview.Description != "a plain description" {
		t.Errorf("description - want: %q, got: %q", "a plain description", preview.Description)
	}
	if preview.ImageURL != "" {
		t.Errorf("image - want: empty, got: %q", preview.ImageURL)
	}
}

func TestExtractMetadataReversedAttributeOrder(t *testing.T) {
	html := `<meta content="Reversed" property="og:title">`

	if got := ExtractMetadata(html).Title; got != "Reversed" {
		t.Errorf("title - want: %q, got: %q", "Reversed", got)
	}
}

func TestExtractMetadataEmptyPage(t *testing.T) {
	preview := ExtractMetadata("<html><body>no metadata here</body></html>")

	if preview.Title != "" || preview.Description != "" || preview.ImageURL != "" {
		t.Fatalf("preview - want: all empty, got: %+v", preview)
	}
}

func TestSanitize(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"entities", "Tom &amp; Jerry &lt;3 &quot;cartoons&quot; &#x27;forever&#x27;", `Tom & Jerry <3 "cartoons" 'forever'`},
		{"whitespace runs", "too   many\t\tspaces\n\nhere", "too many spaces here"},
		{"control characters", "clean\x00\x01\x02 text", "clean text"},
		{"trimmed", "  padded  ", "padded"},
		{"gt entity", "1 &gt; 0", "1 > 0"},
	}

	for _, tc := range cases {
		if got := Sanitize(tc.in); got != tc.want {
			t.Errorf("%s - want: %q, got: %q", tc.name, tc.want, got)
		}
	}
}
