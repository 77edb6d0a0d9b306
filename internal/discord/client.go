// ABOUTME: API gateway for Discord's v9 REST surface
// ABOUTME: Token resolution chain, browser header set, single 401 refresh-and-retry

package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/2389/discord-mcp/internal/tokenstore"
)

const (
	// DefaultBaseURL is the Discord REST API base path.
	DefaultBaseURL = "https://discord.com/api/v9"

	requestTimeout = 30 * time.Second

	// Browser-impersonating header values. The API rejects requests that
	// do not look like they come from the official web client, so the
	// header set mirrors a real Chrome session, including the
	// base64-encoded client-build fingerprint in X-Super-Properties.
	browserUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/143.0.0.0 Safari/537.36"
	superProperties  = "eyJvcyI6Ik1hYyBPUyBYIiwiYnJvd3NlciI6IkNocm9tZSIsImRldmljZSI6IiIsInN5c3RlbV9sb2NhbGUiOiJlbi1VUyIsImhhc19jbGllbnRfbW9kcyI6ZmFsc2UsImJyb3dzZXJfdXNlcl9hZ2VudCI6Ik1vemlsbGEvNS4wIChNYWNpbnRvc2g7IEludGVsIE1hYyBPUyBYIDEwXzE1XzcpIEFwcGxlV2ViS2l0LzUzNy4zNiAoS0hUTUwsIGxpa2UgR2Vja28pIENocm9tZS8xNDMuMC4wLjAgU2FmYXJpLzUzNy4zNiIsImJyb3dzZXJfdmVyc2lvbiI6IjE0My4wLjAuMCIsIm9zX3ZlcnNpb24iOiIxMC4xNS43IiwicmVmZXJyZXIiOiIiLCJyZWZlcnJpbmdfZG9tYWluIjoiIiwicmVmZXJyZXJfY3VycmVudCI6IiIsInJlZmVycmluZ19kb21haW5fY3VycmVudCI6IiIsInJlbGVhc2VfY2hhbm5lbCI6InN0YWJsZSIsImNsaWVudF9idWlsZF9udW1iZXIiOjQ4NDIxMiwiY2xpZW50X2V2ZW50X3NvdXJjZSI6bnVsbH0="
)

// TokenSource obtains a fresh bearer token by driving a browser login.
// Implemented by extractor.Extractor; stubbed in tests.
type TokenSource interface {
	Extract(ctx context.Context, email, password string) (string, error)
}

// Client is the API gateway. It is stateless across invocations except
// for its collaborators; all per-invocation state lives in the Session
// values threaded through its methods.
type Client struct {
	baseURL   string
	store     *tokenstore.Store
	source    TokenSource
	logger    *slog.Logger
	now       func() time.Time
	sendDelay time.Duration
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL points the client at an alternative API base, used by tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithClock substitutes the time source used for recency cutoffs.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// WithSendDelay sets the pause between chunked message sends.
func WithSendDelay(d time.Duration) Option {
	return func(c *Client) { c.sendDelay = d }
}

// NewClient builds a gateway over the given token store and token source.
// source may be nil, in which case the resolution chain stops at the token
// file and extraction is reported as requiring manual recovery.
func NewClient(store *tokenstore.Store, source TokenSource, logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		baseURL:   DefaultBaseURL,
		store:     store,
		source:    source,
		logger:    logger,
		now:       time.Now,
		sendDelay: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ResolveToken resolves a usable token for the session via the priority
// chain: session token, token file, browser extraction. The resolved token
// is persisted to the store as a side effect. Calling it on an
// already-resolved session is a no-op returning the same token.
func (c *Client) ResolveToken(ctx context.Context, s Session) (Session, string, error) {
	if s.token != "" {
		c.store.Save(s.token)
		return s, s.token, nil
	}

	if tok, ok := c.store.Load(); ok {
		c.logger.Debug("loaded token from file")
		return s.WithToken(tok), tok, nil
	}

	if s.creds.Set() && s.headless && c.source != nil {
		c.logger.Info("extracting token via headless browser", "email", s.creds.Email)
		tok, err := c.source.Extract(ctx, s.creds.Email, s.creds.Password)
		if err != nil {
			c.logger.Error("headless extraction failed", "error", err)
			return s, "", fmt.Errorf("extracting token: %w", err)
		}
		c.store.Save(tok)
		c.logger.Info("token extracted and saved")
		return s.WithToken(tok), tok, nil
	}

	return s, "", ErrManualExtraction
}

// ensureClient makes sure the session carries an authenticated HTTP
// client, resolving a token first when needed.
func (c *Client) ensureClient(ctx context.Context, s Session) (Session, error) {
	if s.http != nil {
		return s, nil
	}
	s, _, err := c.ResolveToken(ctx, s)
	if err != nil {
		return s, err
	}
	return s.WithHTTPClient(&http.Client{Timeout: requestTimeout}), nil
}

// filePayload is a multipart attachment for message sends.
type filePayload struct {
	name    string
	content []byte
}

// request issues one API call under the gateway protocol. Exactly one
// automatic recovery cycle runs on a 401: drop the connection, delete the
// cached token, clear the session token, re-resolve (possibly re-running
// the extractor), and retry the identical request once. A repeat 401 or
// any other non-2xx status becomes an *APIError.
func (c *Client) request(ctx context.Context, s Session, method, endpoint string, query url.Values, body any, file *filePayload) (Session, []byte, error) {
	s, err := c.ensureClient(ctx, s)
	if err != nil {
		return s, nil, err
	}

	resp, err := c.do(ctx, s, method, endpoint, query, body, file)
	if err != nil {
		return s, nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		c.logger.Warn("token expired, refreshing")

		s.Close()
		c.store.Delete()
		s = s.WithToken("").WithHTTPClient(nil)

		if s, err = c.ensureClient(ctx, s); err != nil {
			return s, nil, err
		}
		if resp, err = c.do(ctx, s, method, endpoint, query, body, file); err != nil {
			return s, nil, err
		}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return s, nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Error("api request failed", "status", resp.StatusCode, "body", string(data))
		return s, nil, &APIError{Status: resp.StatusCode, Body: string(data)}
	}

	return s, data, nil
}

// do builds and sends a single HTTP request with the full browser header
// set. JSON bodies get an explicit Content-Type; multipart payloads use
// the boundary computed by the multipart writer.
func (c *Client) do(ctx context.Context, s Session, method, endpoint string, query url.Values, body any, file *filePayload) (*http.Response, error) {
	u := c.baseURL + endpoint
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	c.logger.Debug("api request", "method", method, "url", u)

	var reqBody io.Reader
	contentType := ""
	switch {
	case file != nil:
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)

		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding payload_json: %w", err)
		}
		if err := w.WriteField("payload_json", string(payload)); err != nil {
			return nil, fmt.Errorf("writing payload_json: %w", err)
		}
		part, err := w.CreateFormFile("files[0]", file.name)
		if err != nil {
			return nil, fmt.Errorf("creating file part: %w", err)
		}
		if _, err := part.Write(file.content); err != nil {
			return nil, fmt.Errorf("writing file part: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("closing multipart writer: %w", err)
		}
		reqBody = &buf
		contentType = w.FormDataContentType()

	case body != nil:
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Authorization", s.token)
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Origin", "https://discord.com")
	req.Header.Set("Referer", "https://discord.com/channels/@me")
	req.Header.Set("Sec-Ch-Ua", `"Google Chrome";v="143", "Chromium";v="143", "Not A(Brand";v="24"`)
	req.Header.Set("Sec-Ch-Ua-Mobile", "?0")
	req.Header.Set("Sec-Ch-Ua-Platform", `"macOS"`)
	req.Header.Set("Sec-Fetch-Dest", "empty")
	req.Header.Set("Sec-Fetch-Mode", "cors")
	req.Header.Set("Sec-Fetch-Site", "same-origin")
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("X-Debug-Options", "bugReporterEnabled")
	req.Header.Set("X-Discord-Locale", "en-US")
	req.Header.Set("X-Discord-Timezone", "America/New_York")
	req.Header.Set("X-Super-Properties", superProperties)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	return resp, nil
}
