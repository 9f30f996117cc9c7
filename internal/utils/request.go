package utils

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
)

const FetchTimeout = 15 * time.Second

// Caller abstracts the HTTP transport so network-facing code can be tested
// with a fake.
type Caller interface {
	Call(url string, params RequestParams) (*fasthttp.Request, *fasthttp.Response, error)
}

type FastHTTPCaller struct {
	Client *fasthttp.Client
}

var DefaultFastHTTPCaller = &FastHTTPCaller{
	Client: &fasthttp.Client{
		ReadBufferSize:  16 * 1024,
		MaxConnsPerHost: 1024,
		ReadTimeout:     FetchTimeout,
		WriteTimeout:    FetchTimeout,
	},
}

func (a FastHTTPCaller) Call(url string, params RequestParams) (*fasthttp.Request, *fasthttp.Response, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()

	req.Header.SetMethod(params.Method)
	for key, value := range params.Headers {
		req.Header.Set(key, value)
	}

	switch params.Method {
	case fasthttp.MethodGet, fasthttp.MethodOptions:
		req.SetRequestURI(url)
		for key, value := range params.Query {
			req.URI().QueryArgs().Add(key, value)
		}
	case fasthttp.MethodPost:
		req.SetBody(params.Body)
		req.SetRequestURI(url)
	default:
		return nil, nil, fmt.Errorf("unsupported method: %s", params.Method)
	}

	var err error
	if params.Redirects > 0 {
		err = a.Client.DoRedirects(req, resp, params.Redirects)
	} else {
		err = a.Client.Do(req, resp)
	}

	if err != nil {
		return nil, nil, fmt.Errorf("request error: %w", err)
	}

	return req, resp, nil
}

type RequestParams struct {
	Method    string            // "GET", "OPTIONS" or "POST"
	Redirects int               // Number of redirects to follow
	Headers   map[string]string // Common headers for both GET and POST
	Query     map[string]string // Query parameters for GET
	Body      []byte            // Body of the request for POST
}

// IsTimeout reports whether err is a client-side fetch timeout rather than an
// HTTP-status failure.
func IsTimeout(err error) bool {
	return errors.Is(err, fasthttp.ErrTimeout) ||
		errors.Is(err, fasthttp.ErrDialTimeout) ||
		errors.Is(err, fasthttp.ErrTLSHandshakeTimeout)
}

func ReleaseRequestResources(request *fasthttp.Request, response *fasthttp.Response) {
	if request != nil {
		fasthttp.ReleaseRequest(request)
	}
	if response != nil {
		fasthttp.ReleaseResponse(response)
	}
}

// BrowserHeaders returns the header set used for page and image fetches, so
// sites that refuse non-browser clients still answer.
func BrowserHeaders() map[string]string {
	return map[string]string{
		"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/118.0.0.0 Safari/537.36",
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
		"Accept-Language": "en-US,en;q=0.9",
	}
}

// FormatHost trims the scheme and any path from a URL, leaving the bare host.
func FormatHost(rawURL string) string {
	host := rawURL
	if idx := strings.Index(host, "://"); idx != -1 {
		host = host[idx+3:]
	}
	if idx := strings.IndexAny(host, "/?#"); idx != -1 {
		host = host[:idx]
	}
	return host
}
