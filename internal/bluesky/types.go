package bluesky

import "encoding/json"

// Session holds the tokens returned by com.atproto.server.createSession and
// refreshSession.
type Session struct {
	DID        string `json:"did"`
	Handle     string `json:"handle"`
	Email      string `json:"email,omitempty"`
	AccessJwt  string `json:"accessJwt"`
	RefreshJwt string `json:"refreshJwt"`
}

// PostRef identifies a submitted post, used to anchor replies.
type PostRef struct {
	URI string `json:"uri"`
	CID string `json:"cid"`
}

// ReplyRef threads a post under its parent while keeping the chain rooted at
// the first post of the thread.
type ReplyRef struct {
	Root   PostRef `json:"root"`
	Parent PostRef `json:"parent"`
}

type ByteSlice struct {
	ByteStart int `json:"byteStart"`
	ByteEnd   int `json:"byteEnd"`
}

type FacetFeature struct {
	Type string `json:"$type"`
	URI  string `json:"uri"`
}

// Facet marks a rich-text span. Offsets are UTF-8 byte positions into the
// post text, not character counts.
type Facet struct {
	Index    ByteSlice      `json:"index"`
	Features []FacetFeature `json:"features"`
}

// External carries the link-preview card attached to a post. Thumb is the
// raw blob reference returned by uploadBlob, passed through untouched.
type External struct {
	URI         string          `json:"uri"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Thumb       json.RawMessage `json:"thumb,omitempty"`
}

type ExternalEmbed struct {
	Type     string   `json:"$type"`
	External External `json:"external"`
}

const EmbedExternalType = "app.bsky.embed.external"

// PostRecord is the app.bsky.feed.post record submitted via createRecord.
type PostRecord struct {
	Type      string         `json:"$type"`
	Text      string         `json:"text"`
	Facets    []Facet        `json:"facets,omitempty"`
	Embed     *ExternalEmbed `json:"embed,omitempty"`
	Reply     *ReplyRef      `json:"reply,omitempty"`
	CreatedAt string         `json:"createdAt"`
	Langs     []string       `json:"langs"`
}

const PostRecordType = "app.bsky.feed.post"

// Profile is the identity attached to the current session.
type Profile struct {
	DID    string `json:"did"`
	Handle string `json:"handle"`
	Email  string `json:"email,omitempty"`
}
