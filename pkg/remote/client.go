// Package remote is a smart-HTTP client for Git's upload-pack service,
// protocol version 2. It implements the two commands a clone needs:
// ls-refs and fetch.
package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/warpfork/go-errcat"

	"github.com/odvcencio/twig"
	"github.com/odvcencio/twig/pkg/object"
)

// Endpoint identifies a remote repository.
// URL is the repository URL with userinfo, query and fragment removed and
// no trailing slash; the service URL is URL + "/git-upload-pack".
type Endpoint struct {
	Raw  string
	URL  string
	user string
	pass string
}

// ParseEndpoint parses a remote URL into a canonical endpoint.
// Only http and https URLs are supported.
func ParseEndpoint(raw string) (Endpoint, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Endpoint{}, errcat.Errorf(twig.ErrUsage, "remote URL is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return Endpoint{}, errcat.Errorf(twig.ErrUsage, "parse remote URL: %s", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Endpoint{}, errcat.Errorf(twig.ErrUsage, "remote URL %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return Endpoint{}, errcat.Errorf(twig.ErrUsage, "remote URL %q: missing host", raw)
	}

	user := ""
	pass := ""
	if u.User != nil {
		user = u.User.Username()
		pass, _ = u.User.Password()
	}
	endpointURL := *u
	endpointURL.User = nil
	endpointURL.RawQuery = ""
	endpointURL.Fragment = ""

	return Endpoint{
		Raw:  raw,
		URL:  strings.TrimRight(endpointURL.String(), "/"),
		user: user,
		pass: pass,
	}, nil
}

// ClientOptions configures the remote protocol client.
type ClientOptions struct {
	Timeout      time.Duration // HTTP client timeout (default 60s)
	MaxAttempts  int           // retry attempts (default 3)
	UserAgent    string        // default DefaultUserAgent
	MaxPackBytes int64         // fetch response limit (default 1 GiB)
	// Progress receives sideband progress messages, if set.
	Progress func(string)
	// HTTPClient overrides the client built from Timeout.
	HTTPClient *http.Client
}

// DefaultUserAgent is sent when ClientOptions.UserAgent is empty.
const DefaultUserAgent = "git/twig-0.1"

// Response limits per command.
const (
	responseLimitRefs = 8 << 20 // 8MB
	responseLimitPack = 1 << 30 // 1GB
)

// Client talks to one remote's upload-pack service.
type Client struct {
	endpoint    Endpoint
	httpClient  *http.Client
	token       string
	user        string
	pass        string
	maxAttempts int
	userAgent   string
	maxPack     int64
	progress    func(string)
}

// NewClient creates a remote protocol client with default options.
//
// Auth resolution order:
// 1) TWIG_TOKEN (Bearer)
// 2) TWIG_USERNAME + TWIG_PASSWORD (Basic)
// 3) URL userinfo (Basic)
func NewClient(remoteURL string) (*Client, error) {
	return NewClientWithOptions(remoteURL, ClientOptions{})
}

// NewClientWithOptions creates a remote protocol client with configurable options.
// Zero-value or negative fields in opts receive defaults.
func NewClientWithOptions(remoteURL string, opts ClientOptions) (*Client, error) {
	endpoint, err := ParseEndpoint(remoteURL)
	if err != nil {
		return nil, err
	}

	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if strings.TrimSpace(opts.UserAgent) == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.MaxPackBytes <= 0 {
		opts.MaxPackBytes = responseLimitPack
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	token := strings.TrimSpace(os.Getenv("TWIG_TOKEN"))
	user := strings.TrimSpace(os.Getenv("TWIG_USERNAME"))
	pass := os.Getenv("TWIG_PASSWORD")
	if token == "" && user == "" && endpoint.user != "" {
		user = endpoint.user
		pass = endpoint.pass
	}

	return &Client{
		endpoint:    endpoint,
		httpClient:  httpClient,
		token:       token,
		user:        user,
		pass:        pass,
		maxAttempts: opts.MaxAttempts,
		userAgent:   opts.UserAgent,
		maxPack:     opts.MaxPackBytes,
		progress:    opts.Progress,
	}, nil
}

// Endpoint returns the parsed endpoint metadata.
func (c *Client) Endpoint() Endpoint {
	return c.endpoint
}

// LsRefs runs the ls-refs command and returns the advertised refs in
// server order.
func (c *Client) LsRefs(ctx context.Context) ([]Ref, error) {
	body, err := c.post(ctx, encodeLsRefsRequest(), responseLimitRefs)
	if err != nil {
		return nil, err
	}
	return readRefs(bytes.NewReader(body))
}

// ListRefs returns the remote refs keyed by name, including HEAD.
func (c *Client) ListRefs(ctx context.Context) (map[string]object.Hash, error) {
	refs, err := c.LsRefs(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]object.Hash, len(refs))
	for _, r := range refs {
		out[r.Name] = r.Hash
	}
	return out, nil
}

// FetchPack runs the fetch command for wants, declaring no haves, and
// returns the raw pack stream.
func (c *Client) FetchPack(ctx context.Context, wants []object.Hash) ([]byte, error) {
	wants = uniqueHashes(wants)
	if len(wants) == 0 {
		return nil, errcat.Errorf(twig.ErrUsage, "fetch: at least one want is required")
	}
	for _, h := range wants {
		if err := h.Validate(); err != nil {
			return nil, err
		}
	}
	body, err := c.post(ctx, encodeFetchRequest(wants), c.maxPack)
	if err != nil {
		return nil, err
	}
	return readFetchResponse(bytes.NewReader(body), c.progress)
}

// post sends one upload-pack request and returns the decoded response
// body, failing if it exceeds maxBytes.
func (c *Client) post(ctx context.Context, payload []byte, maxBytes int64) ([]byte, error) {
	serviceURL := c.endpoint.URL + "/" + uploadPackService
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, serviceURL, bytes.NewReader(payload))
	if err != nil {
		return nil, errcat.Errorf(twig.ErrUsage, "build request: %s", err)
	}
	req.Header.Set("Content-Type", contentTypeRequest)
	req.Header.Set("Accept", contentTypeResult)
	req.Header.Set("Accept-Encoding", acceptEncoding)
	req.Header.Set(headerProtocol, ProtocolVersion)
	req.Header.Set("User-Agent", c.userAgent)
	c.applyAuth(req)

	resp, err := retryDo(c.httpClient, req, c.maxAttempts)
	if err != nil {
		return nil, transportError(ctx, fmt.Sprintf("POST %s", serviceURL), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		text := strings.TrimSpace(string(msg))
		if text == "" {
			text = http.StatusText(resp.StatusCode)
		}
		return nil, errProtocol("remote request failed (POST %s): %d %s", serviceURL, resp.StatusCode, text)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, contentTypeResult) {
		return nil, errProtocol("unexpected content type %q from %s (is this a smart HTTP Git server?)", ct, serviceURL)
	}

	rc, err := decodeContent(resp.Header.Get("Content-Encoding"), resp.Body)
	if err != nil {
		return nil, transportError(ctx, "decode response", err)
	}
	defer rc.Close()

	body, err := io.ReadAll(io.LimitReader(rc, maxBytes+1))
	if err != nil {
		return nil, transportError(ctx, "read response", err)
	}
	if int64(len(body)) > maxBytes {
		return nil, errProtocol("response from %s exceeds %d bytes", serviceURL, maxBytes)
	}
	return body, nil
}

func (c *Client) applyAuth(req *http.Request) {
	if strings.TrimSpace(c.token) != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
		return
	}
	if strings.TrimSpace(c.user) != "" {
		req.SetBasicAuth(c.user, c.pass)
	}
}

// transportError categorises a failed round-trip: Cancelled when ctx is
// done, Transport otherwise. Already categorised errors keep their category.
func transportError(ctx context.Context, op string, err error) error {
	if ctx.Err() != nil {
		return errcat.Errorf(twig.ErrCancelled, "%s: %s", op, ctx.Err())
	}
	if _, ok := errcat.Category(err).(twig.ErrorCategory); ok {
		return errcat.Errorf(errcat.Category(err), "%s: %s", op, err)
	}
	return errcat.Errorf(twig.ErrTransport, "%s: %s", op, err)
}

func uniqueHashes(in []object.Hash) []object.Hash {
	seen := make(map[object.Hash]struct{}, len(in))
	out := make([]object.Hash, 0, len(in))
	for _, h := range in {
		h = object.Hash(strings.TrimSpace(string(h)))
		if h == "" {
			continue
		}
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}
	return out
}
