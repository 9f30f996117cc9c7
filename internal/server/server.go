package server

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	"github.com/cgillinger/skysplitter/internal/bluesky"
	"github.com/cgillinger/skysplitter/internal/poster"
	"github.com/cgillinger/skysplitter/internal/splitter"
)

// Server exposes the split/post workflow over a loopback HTTP API.
type Server struct {
	client *bluesky.Client
	poster *poster.Poster
}

func New(client *bluesky.Client, threadPoster *poster.Poster) *Server {
	return &Server{
		client: client,
		poster: threadPoster,
	}
}

func (s *Server) Router() *router.Router {
	r := router.New()
	r.GET("/api/health", s.handleHealth)
	r.POST("/api/split", s.handleSplit)
	r.POST("/api/post", s.handlePost)
	return r
}

// Listen serves on the loopback interface only; the API drives a local
// client, it is not meant to be reachable from outside.
func (s *Server) Listen(port int) error {
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	slog.Info("API listening",
		"address", addr)
	return fasthttp.ListenAndServe(addr, s.Router().Handler)
}

type splitRequest struct {
	Text string `json:"text"`
	Link string `json:"link,omitempty"`
}

type segmentView struct {
	Text   string `json:"text"`
	Link   string `json:"link,omitempty"`
	Index  int    `json:"index"`
	Total  int    `json:"total"`
	Length int    `json:"length"`
}

type postResponse struct {
	Posted   int      `json:"posted"`
	Total    int      `json:"total"`
	Warnings []string `json:"warnings,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// handleHealth reports the live identity behind the session. When the
// service cannot confirm it the endpoint still answers, downgraded to the
// cached handle.
func (s *Server) handleHealth(ctx *fasthttp.RequestCtx) {
	profile, err := s.client.CurrentIdentity()
	if err != nil {
		writeJSON(ctx, fasthttp.StatusOK, map[string]string{
			"status": "degraded",
			"handle": s.client.Session().Handle,
		})
		return
	}

	writeJSON(ctx, fasthttp.StatusOK, map[string]string{
		"status": "ok",
		"handle": profile.Handle,
		"did":    profile.DID,
	})
}

func (s *Server) handleSplit(ctx *fasthttp.RequestCtx) {
	req, ok := readSplitRequest(ctx)
	if !ok {
		return
	}

	segments := splitter.Split(req.Text, req.Link)
	views := make([]segmentView, len(segments))
	for i, segment := range segments {
		views[i] = segmentView{
			Text:   segment.Text,
			Link:   segment.Link,
			Index:  segment.Index,
			Total:  segment.Total,
			Length: len([]rune(segment.Text)),
		}
	}

	writeJSON(ctx, fasthttp.StatusOK, map[string]any{"segments": views})
}

func (s *Server) handlePost(ctx *fasthttp.RequestCtx) {
	req, ok := readSplitRequest(ctx)
	if !ok {
		return
	}

	segments := splitter.Split(req.Text, req.Link)
	if len(segments) == 0 {
		writeError(ctx, fasthttp.StatusBadRequest, "nothing to post")
		return
	}

	result, err := s.poster.PostThread(segments)
	response := postResponse{
		Posted:   result.Posted,
		Total:    result.Total,
		Warnings: result.Warnings,
	}

	status := fasthttp.StatusOK
	if err != nil {
		response.Error = err.Error()
		status = fasthttp.StatusBadGateway
	}

	writeJSON(ctx, status, response)
}

// readSplitRequest decodes and validates the shared request body for split
// and post. A malformed link is a client error, reported as a hint without
// touching segmentation.
func readSplitRequest(ctx *fasthttp.RequestCtx) (splitRequest, bool) {
	var req splitRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, "invalid JSON body")
		return splitRequest{}, false
	}

	if req.Text == "" && req.Link == "" {
		writeError(ctx, fasthttp.StatusBadRequest, "text is required")
		return splitRequest{}, false
	}

	if req.Link != "" {
		normalized := splitter.NormalizeLink(req.Link)
		if normalized == "" {
			writeError(ctx, fasthttp.StatusBadRequest, "link is not a valid http(s) URL")
			return splitRequest{}, false
		}
		req.Link = normalized
	}

	return req, true
}

func writeJSON(ctx *fasthttp.RequestCtx, status int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		return
	}

	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	ctx.SetBody(body)
}

func writeError(ctx *fasthttp.RequestCtx, status int, message string) {
	writeJSON(ctx, status, map[string]string{"error": message})
}
