package metadata

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/valyala/fasthttp"

	"github.com/cgillinger/skysplitter/internal/bluesky"
	"github.com/cgillinger/skysplitter/internal/database/cache"
	"github.com/cgillinger/skysplitter/internal/splitter"
	"github.com/cgillinger/skysplitter/internal/utils"
)

const (
	// MaxRetries is the total number of resolve attempts for one link.
	MaxRetries = 3
	// RetryBaseDelay doubles before each retry: 1s, 2s, 4s.
	RetryBaseDelay = time.Second

	// MaxImageBytes caps the preview image accepted for upload.
	MaxImageBytes = 1_000_000

	maxRedirects  = 5
	cacheTTL      = 48 * time.Hour
	cacheKeySpace = "link-preview:"
)

// FetchError is a resolvable failure: the fetch can be retried and, once
// retries are exhausted, downgraded to a warning instead of failing the post.
type FetchError struct {
	StatusCode int
	Timeout    bool
	Reason     string
}

func (e *FetchError) Error() string {
	switch {
	case e.Timeout:
		return "fetch timed out"
	case e.StatusCode != 0:
		return fmt.Sprintf("fetch failed with status %d", e.StatusCode)
	default:
		return "fetch failed: " + e.Reason
	}
}

// BlobUploader is the external blob store the resolver hands preview images
// to. *bluesky.Client satisfies it.
type BlobUploader interface {
	UploadBlob(data []byte, mimeType string) (json.RawMessage, error)
}

// Resolver turns a validated link into a best-effort external embed.
type Resolver struct {
	caller   utils.Caller
	uploader BlobUploader
	sleep    func(time.Duration)
}

func NewResolver(uploader BlobUploader) *Resolver {
	return &Resolver{
		caller:   utils.DefaultFastHTTPCaller,
		uploader: uploader,
		sleep:    time.Sleep,
	}
}

// NewResolverWithDeps injects the transport and sleep primitive; tests use
// it to observe the backoff schedule deterministically.
func NewResolverWithDeps(uploader BlobUploader, caller utils.Caller, sleep func(time.Duration)) *Resolver {
	return &Resolver{
		caller:   caller,
		uploader: uploader,
		sleep:    sleep,
	}
}

// Resolve fetches the page once and builds an embed from it. A nil embed
// with nil error means the link was rejected by validation and the post
// should simply go out bare.
func (r *Resolver) Resolve(link string) (*bluesky.ExternalEmbed, error) {
	if !splitter.ValidateLink(link) {
		slog.Warn("Skipping preview for invalid link",
			"link", link)
		return nil, nil
	}

	preview, err := r.pagePreview(link)
	if err != nil {
		return nil, err
	}

	embed := &bluesky.ExternalEmbed{
		Type: bluesky.EmbedExternalType,
		External: bluesky.External{
			URI:         link,
			Title:       preview.Title,
			Description: preview.Description,
		},
	}

	if embed.External.Title == "" {
		embed.External.Title = utils.FormatHost(link)
	}

	if preview.ImageURL != "" {
		embed.External.Thumb = r.fetchThumbnail(link, preview.ImageURL)
	}

	return embed, nil
}

// ResolveWithRetry runs the resolve sequence up to MaxRetries times with
// exponential backoff between attempts. On exhaustion it reports a
// categorized warning instead of an error; the thread must not fail because
// a preview could not be built.
func (r *Resolver) ResolveWithRetry(link string) (*bluesky.ExternalEmbed, string) {
	var lastErr error

	for attempt := 0; attempt < MaxRetries; attempt++ {
		if attempt > 0 {
			delay := RetryBaseDelay * (1 << (attempt - 1))
			slog.Info("Retrying link preview",
				"link", link,
				"attempt", attempt+1,
				"delay", delay.String())
			r.sleep(delay)
		}

		embed, err := r.Resolve(link)
		if err == nil {
			return embed, ""
		}
		lastErr = err
	}

	warning := WarningFor(lastErr)
	slog.Warn("Link preview failed after retries",
		"link", link,
		"error", lastErr.Error())

	return nil, warning
}

// WarningFor maps the final fetch failure to the human-readable warning
// attached to the affected post.
func WarningFor(err error) string {
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		switch {
		case fetchErr.Timeout:
			return "The website took too long to respond. Post will be created with link."
		case fetchErr.StatusCode == fasthttp.StatusForbidden:
			return "Access to content denied. Post will be created with link."
		case fetchErr.StatusCode == fasthttp.StatusNotFound:
			return "Content not found. Post will be created with link."
		case fetchErr.StatusCode == fasthttp.StatusTooManyRequests:
			return "Rate limited by the website. Post will be created with link."
		}
	}
	return "Could not load link preview. Post will be created with link."
}

func (r *Resolver) pagePreview(link string) (Preview, error) {
	if preview, ok := cachedPreview(link); ok {
		return preview, nil
	}

	request, response, err := r.caller.Call(link, utils.RequestParams{
		Method:    fasthttp.MethodGet,
		Redirects: maxRedirects,
		Headers:   utils.BrowserHeaders(),
	})
	if err != nil {
		if utils.IsTimeout(err) {
			return Preview{}, &FetchError{Timeout: true}
		}
		return Preview{}, &FetchError{Reason: err.Error()}
	}
	defer utils.ReleaseRequestResources(request, response)

	status := response.StatusCode()
	if status < 200 || status > 299 {
		return Preview{}, &FetchError{StatusCode: status}
	}

	body := response.Body()
	if len(body) == 0 {
		return Preview{}, &FetchError{Reason: "empty response body"}
	}

	preview := ExtractMetadata(string(body))
	storePreview(link, preview)

	return preview, nil
}

// fetchThumbnail downloads the preview image and pushes it to the blob
// store. Every failure here is non-fatal: the embed ships without a
// thumbnail.
func (r *Resolver) fetchThumbnail(pageURL, imageURL string) json.RawMessage {
	resolved := resolveImageURL(pageURL, imageURL)
	if resolved == "" {
		return nil
	}

	request, response, err := r.caller.Call(resolved, utils.RequestParams{
		Method:    fasthttp.MethodGet,
		Redirects: maxRedirects,
		Headers:   utils.BrowserHeaders(),
	})
	if err != nil {
		slog.Warn("Preview image fetch failed",
			"image", resolved,
			"error", err.Error())
		return nil
	}
	defer utils.ReleaseRequestResources(request, response)

	status := response.StatusCode()
	if status < 200 || status > 299 {
		slog.Warn("Preview image fetch failed",
			"image", resolved,
			"status", status)
		return nil
	}

	body := response.Body()
	if len(body) == 0 || len(body) > MaxImageBytes {
		slog.Warn("Preview image skipped",
			"image", resolved,
			"size", len(body))
		return nil
	}

	data := utils.ProcessThumbnail(append([]byte(nil), body...))
	mime := mimetype.Detect(data).String()

	blob, err := r.uploader.UploadBlob(data, mime)
	if err != nil {
		slog.Warn("Preview image upload failed",
			"image", resolved,
			"error", err.Error())
		return nil
	}

	return blob
}

// resolveImageURL resolves possibly-relative image paths against the page
// URL.
func resolveImageURL(pageURL, imageURL string) string {
	image, err := url.Parse(imageURL)
	if err != nil {
		return ""
	}
	if image.IsAbs() {
		return imageURL
	}

	page, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}

	return page.ResolveReference(image).String()
}

func cachedPreview(link string) (Preview, bool) {
	cached, err := cache.GetCache(cacheKeySpace + link)
	if err != nil {
		return Preview{}, false
	}

	var preview Preview
	if err := json.Unmarshal([]byte(cached), &preview); err != nil {
		return Preview{}, false
	}

	return preview, true
}

func storePreview(link string, preview Preview) {
	payload, err := json.Marshal(preview)
	if err != nil {
		return
	}

	if err := cache.SetCache(cacheKeySpace+link, payload, cacheTTL); err != nil {
		slog.Debug("Preview cache write skipped",
			"error", err.Error())
	}
}
