package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// TokenSource supplies the bearer credential attached to authenticated calls.
type TokenSource interface {
	AccessToken() string
}

// Refresher renews the credential after the backend rejected it.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Client talks to the Melocuore HTTP API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
	limiter   *rate.Limiter
	logger    *slog.Logger
	tokens    TokenSource
	refresher Refresher
}

// Options configure a Client.
type Options struct {
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64
	Logger            *slog.Logger
	HTTPClient        *http.Client
}

const (
	defaultBaseURL   = "http://localhost:8000"
	defaultUserAgent = "melocuore/0.3"
	defaultTimeout   = 10 * time.Second
	maxResponseBytes = 8 << 20
)

// NewClient builds a Client for the given options.
func NewClient(opts Options) (*Client, error) {
	base, err := parseBaseURL(opts.BaseURL)
	if err != nil {
		return nil, err
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	c := &Client{
		baseURL:   base,
		http:      httpClient,
		userAgent: defaultUserAgent,
		logger:    logger.With("component", "api"),
	}
	if opts.RequestsPerSecond > 0 {
		burst := int(opts.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}
	return c, nil
}

// UseSession attaches the credential provider. Call before issuing requests.
func (c *Client) UseSession(tokens TokenSource, refresher Refresher) {
	c.tokens = tokens
	c.refresher = refresher
}

// BaseURL returns the normalized API root.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

type request struct {
	method string
	path   string
	query  url.Values
	body   any
	// form rebuilds a multipart body so the request can be replayed.
	form func() (formBody, error)
	auth bool
}

func (c *Client) send(ctx context.Context, r request, dest any) (int, error) {
	if c == nil {
		return 0, fmt.Errorf("client is nil")
	}
	status, err := c.attempt(ctx, r, dest)
	if !r.auth || c.refresher == nil || !errors.Is(err, ErrUnauthorized) {
		return status, err
	}
	c.logger.Info("credential rejected, refreshing once", "path", r.path)
	if rerr := c.refresher.Refresh(ctx); rerr != nil {
		c.logger.Warn("credential refresh failed", "path", r.path, "error", rerr)
		return status, err
	}
	return c.attempt(ctx, r, dest)
}

func (c *Client) attempt(ctx context.Context, r request, dest any) (int, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return 0, &TransportError{Method: r.method, Path: r.path, Err: err}
		}
	}

	var (
		body        io.Reader
		contentType string
		form        formBody
	)
	switch {
	case r.form != nil:
		var err error
		form, err = r.form()
		if err != nil {
			return 0, fmt.Errorf("build form: %w", err)
		}
		body, contentType = form.reader, form.contentType
	case r.body != nil:
		encoded, err := json.Marshal(r.body)
		if err != nil {
			return 0, fmt.Errorf("encode request: %w", err)
		}
		body, contentType = bytes.NewReader(encoded), "application/json"
	}

	rel := &url.URL{Path: r.path}
	if len(r.query) > 0 {
		rel.RawQuery = r.query.Encode()
	}
	reqURL := c.baseURL.ResolveReference(rel)
	req, err := http.NewRequestWithContext(ctx, r.method, reqURL.String(), body)
	if err != nil {
		if form.reader != nil {
			_ = form.reader.Close()
		}
		return 0, fmt.Errorf("create request: %w", err)
	}
	if form.reader != nil {
		req.ContentLength = form.size
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", requestID)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if r.auth && c.tokens != nil {
		if token := c.tokens.AccessToken(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	log := c.logger.With("method", r.method, "path", r.path, "request_id", requestID)
	log.Debug("request started")
	started := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		log.Error("request failed", "error", err, "elapsed", time.Since(started))
		return 0, &TransportError{Method: r.method, Path: r.path, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		log.Error("read response failed", "status", resp.StatusCode, "error", err)
		return resp.StatusCode, &TransportError{Method: r.method, Path: r.path, Err: err}
	}

	if resp.StatusCode >= 400 {
		apiErr := newAPIError(r.method, r.path, resp.StatusCode, payload)
		log.Warn("request rejected", "status", resp.StatusCode, "message", apiErr.Message, "elapsed", time.Since(started))
		return resp.StatusCode, apiErr
	}
	log.Info("request completed", "status", resp.StatusCode, "elapsed", time.Since(started))

	if dest == nil || len(bytes.TrimSpace(payload)) == 0 {
		return resp.StatusCode, nil
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		return resp.StatusCode, fmt.Errorf("decode response: %w", err)
	}
	return resp.StatusCode, nil
}

func parseBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		trimmed = defaultBaseURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api url %q: %w", raw, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse api url %q: missing host", raw)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
