package bluesky

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/cgillinger/skysplitter/internal/utils"
)

var (
	ErrInvalidCredentials = errors.New("invalid identifier or app password")
	ErrRateLimited        = errors.New("rate limited by the service")
	ErrNoSession          = errors.New("not authenticated")
)

// APIError is a non-2xx XRPC response body.
type APIError struct {
	StatusCode int
	Code       string `json:"error"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("xrpc %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// Client talks XRPC to a single PDS. It is not safe for concurrent use; the
// application issues outbound calls strictly in sequence.
type Client struct {
	service string
	caller  utils.Caller
	session Session
}

func New(service string) *Client {
	return NewWithCaller(service, utils.DefaultFastHTTPCaller)
}

func NewWithCaller(service string, caller utils.Caller) *Client {
	return &Client{
		service: service,
		caller:  caller,
	}
}

// Session returns the current tokens so the caller can persist them.
func (c *Client) Session() Session {
	return c.session
}

// Authenticated reports whether a session is loaded.
func (c *Client) Authenticated() bool {
	return c.session.AccessJwt != ""
}

// Login creates a fresh session from an identifier and app password.
// Invalid credentials and rate limiting map to distinct sentinel errors so
// the caller can report them separately; neither is retried.
func (c *Client) Login(identifier, password string) (Session, error) {
	body, err := json.Marshal(map[string]string{
		"identifier": identifier,
		"password":   password,
	})
	if err != nil {
		return Session{}, err
	}

	var session Session
	if err := c.xrpc("com.atproto.server.createSession", "", body, "application/json", &session); err != nil {
		return Session{}, fmt.Errorf("login failed: %w", classifyAuthError(err))
	}

	c.session = session
	slog.Info("Session created",
		"handle", session.Handle,
		"did", session.DID)

	return session, nil
}

// ResumeSession refreshes a stored session. On success the client holds the
// rotated tokens; on failure the caller should fall back to Login.
func (c *Client) ResumeSession(stored Session) (Session, error) {
	if stored.RefreshJwt == "" {
		return Session{}, ErrNoSession
	}

	var session Session
	if err := c.xrpc("com.atproto.server.refreshSession", stored.RefreshJwt, nil, "", &session); err != nil {
		return Session{}, fmt.Errorf("session refresh failed: %w", classifyAuthError(err))
	}

	c.session = session
	slog.Info("Session resumed",
		"handle", session.Handle)

	return session, nil
}

// CurrentIdentity fetches the profile bound to the active session.
func (c *Client) CurrentIdentity() (Profile, error) {
	if !c.Authenticated() {
		return Profile{}, ErrNoSession
	}

	var profile Profile
	err := c.get("com.atproto.server.getSession", &profile)
	return profile, err
}

// CreatePost submits one post record and returns its reply anchor.
func (c *Client) CreatePost(record PostRecord) (PostRef, error) {
	if !c.Authenticated() {
		return PostRef{}, ErrNoSession
	}

	record.Type = PostRecordType
	if record.CreatedAt == "" {
		record.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	if len(record.Langs) == 0 {
		record.Langs = []string{"en"}
	}

	body, err := json.Marshal(createRecordRequest{
		Repo:       c.session.DID,
		Collection: PostRecordType,
		Record:     record,
	})
	if err != nil {
		return PostRef{}, err
	}

	var ref PostRef
	if err := c.xrpc("com.atproto.repo.createRecord", c.session.AccessJwt, body, "application/json", &ref); err != nil {
		return PostRef{}, fmt.Errorf("post failed: %w", err)
	}

	return ref, nil
}

// UploadBlob stores binary content on the PDS and returns the opaque blob
// reference to attach to a record.
func (c *Client) UploadBlob(data []byte, mimeType string) (json.RawMessage, error) {
	if !c.Authenticated() {
		return nil, ErrNoSession
	}

	var result struct {
		Blob json.RawMessage `json:"blob"`
	}
	if err := c.xrpc("com.atproto.repo.uploadBlob", c.session.AccessJwt, data, mimeType, &result); err != nil {
		return nil, fmt.Errorf("blob upload failed: %w", err)
	}

	return result.Blob, nil
}

type createRecordRequest struct {
	Repo       string     `json:"repo"`
	Collection string     `json:"collection"`
	Record     PostRecord `json:"record"`
}

func (c *Client) xrpc(method, token string, body []byte, contentType string, out any) error {
	headers := map[string]string{}
	if token != "" {
		headers["Authorization"] = "Bearer " + token
	}
	if contentType != "" {
		headers["Content-Type"] = contentType
	}

	request, response, err := c.caller.Call(c.service+"/xrpc/"+method, utils.RequestParams{
		Method:  fasthttp.MethodPost,
		Headers: headers,
		Body:    body,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer utils.ReleaseRequestResources(request, response)

	return decodeResponse(method, response, out)
}

func (c *Client) get(method string, out any) error {
	request, response, err := c.caller.Call(c.service+"/xrpc/"+method, utils.RequestParams{
		Method: fasthttp.MethodGet,
		Headers: map[string]string{
			"Authorization": "Bearer " + c.session.AccessJwt,
		},
	})
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer utils.ReleaseRequestResources(request, response)

	return decodeResponse(method, response, out)
}

func decodeResponse(method string, response *fasthttp.Response, out any) error {
	status := response.StatusCode()
	if status < 200 || status > 299 {
		apiErr := &APIError{StatusCode: status}
		if err := json.Unmarshal(response.Body(), apiErr); err != nil {
			apiErr.Message = string(response.Body())
		}
		return apiErr
	}

	if out == nil {
		return nil
	}

	if err := json.Unmarshal(response.Body(), out); err != nil {
		return fmt.Errorf("%s: decoding response: %w", method, err)
	}

	return nil
}

func classifyAuthError(err error) error {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return err
	}

	switch apiErr.StatusCode {
	case fasthttp.StatusUnauthorized:
		return fmt.Errorf("%w: %s", ErrInvalidCredentials, apiErr.Message)
	case fasthttp.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", ErrRateLimited, apiErr.Message)
	default:
		return err
	}
}
