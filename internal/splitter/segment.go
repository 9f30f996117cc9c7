package splitter

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxPostLength is the per-post character limit enforced by Bluesky.
const MaxPostLength = 300

// Segment is one bounded-length chunk of the input text, destined to become
// one post of the thread. Link is set only on the segment whose text carries
// the staged link.
type Segment struct {
	Text  string
	Link  string
	Index int // 1-based
	Total int
}

// Split breaks text into ordered segments of at most MaxPostLength
// characters, appending a " (i/N)" suffix to every segment when more than
// one is produced. A validated link, if given, is appended to the final
// segment when it fits, or carried on a new trailing segment of its own.
//
// The splitter is a greedy single-pass word wrap. While a segment is being
// accumulated the space for a " (k/?)" suffix is reserved, where k is the
// index the segment would occupy. The reservation assumes a single-character
// total, so for threads of ten or more segments the substituted " (i/N)" is
// one character wider than what was reserved and a full early segment can
// end up just past the limit. The reservation can also cost one extra split
// versus a two-pass algorithm. Both quirks are kept to match the established
// output.
func Split(text string, link string) []Segment {
	var posts []string
	var current string

	if text != "" {
		posts, current = wrapWords(text)
	}
	if current != "" {
		posts = append(posts, current)
	}

	linkIndex := -1
	if link != "" {
		posts, linkIndex = placeLink(posts, link)
	}

	if len(posts) == 0 {
		return nil
	}

	total := len(posts)
	segments := make([]Segment, total)
	for i, post := range posts {
		if total > 1 {
			post += fmt.Sprintf(" (%d/%d)", i+1, total)
		}
		segments[i] = Segment{
			Text:  post,
			Index: i + 1,
			Total: total,
		}
		if i == linkIndex {
			segments[i].Link = link
		}
	}

	return segments
}

func wrapWords(text string) (posts []string, current string) {
	words := strings.Split(text, " ")

	for _, word := range words {
		for {
			reserved := continuationLength(len(posts) + 1)
			if runeLen(current)+1+runeLen(word)+reserved <= MaxPostLength {
				if current != "" {
					current += " " + word
				} else {
					current = word
				}
				break
			}

			if current != "" {
				posts = append(posts, current)
				current = ""
				continue
			}

			// A single word longer than the available room: split it
			// mid-word. Lossy on word boundaries but never on content.
			available := MaxPostLength - reserved
			runes := []rune(word)
			posts = append(posts, string(runes[:available]))
			word = string(runes[available:])
			if word == "" {
				break
			}
		}
	}

	return posts, current
}

// placeLink appends the link to the last post when it still fits under the
// limit once the final numbering suffix is accounted for, and otherwise adds
// a trailing post holding only the link.
func placeLink(posts []string, link string) ([]string, int) {
	if len(posts) == 0 {
		return []string{link}, 0
	}

	last := posts[len(posts)-1]
	candidate := last + " " + link

	suffix := 0
	if len(posts) > 1 {
		suffix = runeLen(fmt.Sprintf(" (%d/%d)", len(posts), len(posts)))
	}

	if runeLen(candidate)+suffix <= MaxPostLength {
		posts[len(posts)-1] = candidate
		return posts, len(posts) - 1
	}

	posts = append(posts, link)
	return posts, len(posts) - 1
}

// continuationLength is the length of the reserved " (k/?)" suffix for the
// post that would take 1-based index k.
func continuationLength(k int) int {
	return runeLen(fmt.Sprintf(" (%d/?)", k))
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
