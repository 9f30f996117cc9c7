package poster

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/cgillinger/skysplitter/internal/bluesky"
	"github.com/cgillinger/skysplitter/internal/splitter"
)

type fakeSubmitter struct {
	records []bluesky.PostRecord
	failAt  int // 0-based submission index that hard-fails, -1 for never
}

func (f *fakeSubmitter) CreatePost(record bluesky.PostRecord) (bluesky.PostRef, error) {
	index := len(f.records)
	if index == f.failAt {
		return bluesky.PostRef{}, errors.New("record rejected")
	}

	f.records = append(f.records, record)
	return bluesky.PostRef{
		URI: fmt.Sprintf("at://did:plc:test/app.bsky.feed.post/%d", index),
		CID: fmt.Sprintf("cid%d", index),
	}, nil
}

type fakeResolver struct {
	embed   *bluesky.ExternalEmbed
	warning string
	calls   []string
}

func (f *fakeResolver) ResolveWithRetry(link string) (*bluesky.ExternalEmbed, string) {
	f.calls = append(f.calls, link)
	return f.embed, f.warning
}

func makeSegments(n int) []splitter.Segment {
	segments := make([]splitter.Segment, n)
	for i := range segments {
		segments[i] = splitter.Segment{
			Text:  fmt.Sprintf("segment %d", i+1),
			Index: i + 1,
			Total: n,
		}
	}
	return segments
}

func TestPostThreadReplyChain(t *testing.T) {
	submitter := &fakeSubmitter{failAt: -1}
	var sleeps []time.Duration
	p := &Poster{
		Client: submitter,
		Delay:  RateLimitDelay,
		Sleep:  func(d time.Duration) { sleeps = append(sleeps, d) },
	}

	result, err := p.PostThread(makeSegments(3))
	if err != nil {
		t.Fatal(err)
	}

	if result.Posted != 3 || result.FailedIndex != -1 {
		t.Fatalf("result - want: 3 posted, got: %+v", result)
	}

	if submitter.records[0].Reply != nil {
		t.Error("first post - want: no reply ref")
	}
	for i := 1; i < 3; i++ {
		reply := submitter.records[i].Reply
		if reply == nil {
			t.Fatalf("post %d - want: reply ref", i+1)
		}
		if reply.Root.URI != "at://did:plc:test/app.bsky.feed.post/0" {
			t.Errorf("post %d root - want: first post, got: %q", i+1, reply.Root.URI)
		}
		wantParent := fmt.Sprintf("at://did:plc:test/app.bsky.feed.post/%d", i-1)
		if reply.Parent.URI != wantParent {
			t.Errorf("post %d parent - want: %q, got: %q", i+1, wantParent, reply.Parent.URI)
		}
	}

	// rate limit applies between posts, not after the last one
	if len(sleeps) != 2 {
		t.Fatalf("sleeps - want: 2, got: %d", len(sleeps))
	}
	for _, d := range sleeps {
		if d != RateLimitDelay {
			t.Errorf("sleep - want: %v, got: %v", RateLimitDelay, d)
		}
	}
}

func TestPostThreadPartialFailure(t *testing.T) {
	submitter := &fakeSubmitter{failAt: 2}
	p := &Poster{
		Client: submitter,
		Sleep:  func(time.Duration) {},
	}

	result, err := p.PostThread(makeSegments(5))
	if err == nil {
		t.Fatal("want: error on hard submission failure")
	}

	if result.Posted != 2 {
		t.Errorf("posted - want: 2, got: %d", result.Posted)
	}
	if result.FailedIndex != 2 {
		t.Errorf("failed index - want: 2, got: %d", result.FailedIndex)
	}
	if !strings.Contains(err.Error(), "segment 3 of 5") {
		t.Errorf("error - want: failing segment identified, got: %v", err)
	}
}

func TestPostThreadProgress(t *testing.T) {
	var progress [][2]int
	p := &Poster{
		Client: &fakeSubmitter{failAt: -1},
		Sleep:  func(time.Duration) {},
		Progress: func(posted, total int) {
			progress = append(progress, [2]int{posted, total})
		},
	}

	if _, err := p.PostThread(makeSegments(3)); err != nil {
		t.Fatal(err)
	}

	want := [][2]int{{1, 3}, {2, 3}, {3, 3}}
	if len(progress) != len(want) {
		t.Fatalf("progress - want: %v, got: %v", want, progress)
	}
	for i := range want {
		if progress[i] != want[i] {
			t.Errorf("progress %d - want: %v, got: %v", i, want[i], progress[i])
		}
	}
}

func TestPostThreadAttachesEmbed(t *testing.T) {
	embed := &bluesky.ExternalEmbed{
		Type:     bluesky.EmbedExternalType,
		External: bluesky.External{URI: "https://example.com", Title: "Example"},
	}
	resolver := &fakeResolver{embed: embed}
	submitter := &fakeSubmitter{failAt: -1}
	p := &Poster{
		Client:   submitter,
		Resolver: resolver,
		Sleep:    func(time.Duration) {},
	}

	segments := makeSegments(2)
	segments[1].Link = "https://example.com"

	result, err := p.PostThread(segments)
	if err != nil {
		t.Fatal(err)
	}

	if len(resolver.calls) != 1 || resolver.calls[0] != "https://example.com" {
		t.Fatalf("resolver calls - want: one for the linked segment, got: %v", resolver.calls)
	}
	if submitter.records[0].Embed != nil {
		t.Error("first post - want: no embed")
	}
	if submitter.records[1].Embed != embed {
		t.Error("second post - want: resolved embed attached")
	}
	if len(result.Warnings) != 0 {
		t.Errorf("warnings - want: none, got: %v", result.Warnings)
	}
}

func TestPostThreadCollectsEmbedWarning(t *testing.T) {
	resolver := &fakeResolver{warning: "Content not found. Post will be created with link."}
	submitter := &fakeSubmitter{failAt: -1}
	p := &Poster{
		Client:   submitter,
		Resolver: resolver,
		Sleep:    func(time.Duration) {},
	}

	segments := makeSegments(2)
	segments[1].Link = "https://example.com/gone"

	result, err := p.PostThread(segments)
	if err != nil {
		t.Fatal(err)
	}

	if result.Posted != 2 {
		t.Fatalf("posted - want: 2 despite preview failure, got: %d", result.Posted)
	}
	if len(result.Warnings) != 1 || !strings.Contains(result.Warnings[0], "Content not found") {
		t.Fatalf("warnings - want: categorized preview warning, got: %v", result.Warnings)
	}
	if submitter.records[1].Embed != nil {
		t.Error("second post - want: submitted without embed")
	}
}

func TestPostThreadEmptyInput(t *testing.T) {
	p := &Poster{Client: &fakeSubmitter{failAt: -1}}

	result, err := p.PostThread(nil)
	if err != nil {
		t.Fatal(err)
	}
	if result.Posted != 0 || result.Total != 0 {
		t.Fatalf("result - want: zero, got: %+v", result)
	}
}

func TestPostThreadFacets(t *testing.T) {
	submitter := &fakeSubmitter{failAt: -1}
	p := &Poster{
		Client: submitter,
		Sleep:  func(time.Duration) {},
	}

	segments := []splitter.Segment{{
		Text:  "see https://example.com",
		Index: 1,
		Total: 1,
	}}

	if _, err := p.PostThread(segments); err != nil {
		t.Fatal(err)
	}

	facets := submitter.records[0].Facets
	if len(facets) != 1 {
		t.Fatalf("facets - want: 1, got: %d", len(facets))
	}
	if facets[0].Index.ByteStart != 4 {
		t.Errorf("byteStart - want: 4, got: %d", facets[0].Index.ByteStart)
	}
}
