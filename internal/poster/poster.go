package poster

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/cgillinger/skysplitter/internal/bluesky"
	"github.com/cgillinger/skysplitter/internal/splitter"
)

// RateLimitDelay is the fixed pause between consecutive submissions. It is
// a flat throttle against the platform's abuse limits, not adaptive.
const RateLimitDelay = 2 * time.Second

// SubmitClient is the post-submission collaborator. *bluesky.Client
// satisfies it.
type SubmitClient interface {
	CreatePost(record bluesky.PostRecord) (bluesky.PostRef, error)
}

// EmbedResolver produces an optional link-preview embed plus an optional
// warning for the segment carrying the thread's link.
type EmbedResolver interface {
	ResolveWithRetry(link string) (*bluesky.ExternalEmbed, string)
}

// Result reports how far a thread got. Already-submitted posts are never
// rolled back on failure; the transport offers no delete, so partial
// threads stay up and the count tells the user exactly what happened.
type Result struct {
	Posted      int
	Total       int
	Warnings    []string
	FailedIndex int // 0-based index of the failing segment, -1 on success
}

// Poster publishes an ordered segment sequence as one reply chain. Zero
// values for Delay, Sleep and Progress fall back to sane defaults.
type Poster struct {
	Client   SubmitClient
	Resolver EmbedResolver
	Delay    time.Duration
	Sleep    func(time.Duration)
	Progress func(posted, total int)
}

// PostThread walks the segments in order: resolve an embed for the segment
// holding the link, submit, advance the parent anchor, wait out the rate
// limit, repeat. The first hard submission failure stops the walk; preview
// failures never do.
func (p *Poster) PostThread(segments []splitter.Segment) (Result, error) {
	result := Result{Total: len(segments), FailedIndex: -1}
	if len(segments) == 0 {
		return result, nil
	}

	sleep := p.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	delay := p.Delay
	if delay == 0 {
		delay = RateLimitDelay
	}

	var root, parent bluesky.PostRef

	for i, segment := range segments {
		record := bluesky.PostRecord{
			Text:   segment.Text,
			Facets: bluesky.DetectFacets(segment.Text),
		}

		if i > 0 {
			record.Reply = &bluesky.ReplyRef{Root: root, Parent: parent}
		}

		if segment.Link != "" && p.Resolver != nil {
			embed, warning := p.Resolver.ResolveWithRetry(segment.Link)
			record.Embed = embed
			if warning != "" {
				result.Warnings = append(result.Warnings, fmt.Sprintf("Post %d: %s", i+1, warning))
			}
		}

		ref, err := p.Client.CreatePost(record)
		if err != nil {
			result.FailedIndex = i
			return result, fmt.Errorf("posting segment %d of %d: %w", i+1, len(segments), err)
		}

		if i == 0 {
			root = ref
		}
		parent = ref
		result.Posted++

		slog.Info("Posted thread segment",
			"index", i+1,
			"total", len(segments),
			"uri", ref.URI)

		if p.Progress != nil {
			p.Progress(result.Posted, result.Total)
		}

		if i < len(segments)-1 {
			sleep(delay)
		}
	}

	return result, nil
}
