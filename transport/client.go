package transport

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

const (
	// DefaultBaseURL is used when no base URL is configured.
	DefaultBaseURL = "http://localhost:3000/api"
	// DefaultTimeout bounds every request.
	DefaultTimeout = 10 * time.Second
	// DefaultUserAgent identifies the client.
	DefaultUserAgent = "eduauth-go/1"

	// HeaderRequestID carries the per-request correlation id.
	HeaderRequestID = "X-Request-ID"

	maxBodyBytes = 1 << 20
)

// TokenSource supplies the bearer token for outgoing requests. It is read on
// every request so the header always reflects the persisted session.
type TokenSource interface {
	Token(ctx context.Context) (string, bool)
}

// Interceptor adjusts an outgoing request after the built-in headers are set.
type Interceptor func(req *http.Request) error

// Observer is told about every completed call. Code is empty on success.
type Observer interface {
	ObserveRequest(method, path string, status int, code Code, elapsed time.Duration)
}

// Options configures a [Client].
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	UserAgent  string
	HTTPClient *http.Client
	Tokens     TokenSource
	Signals    *Signals
	Observer   Observer
	Logger     *slog.Logger

	// RateLimit throttles outgoing requests when positive. Burst defaults
	// to 1.
	RateLimit rate.Limit
	Burst     int

	Interceptors []Interceptor

	// Messages replaces the fixed failure texts, e.g. with a translation.
	Messages Messages
}

// Client is the single point of outbound traffic. It attaches the bearer
// token, unwraps response bodies and turns every failure into an *Error.
type Client struct {
	base      *url.URL
	timeout   time.Duration
	userAgent string
	http      *http.Client
	tokens    TokenSource
	signals   *Signals
	observer  Observer
	limiter   *rate.Limiter
	log       *slog.Logger
	intercept []Interceptor
	msgs      Messages
}

// New builds a client from opts.
func New(opts Options) (*Client, error) {
	raw := strings.TrimSpace(opts.BaseURL)
	if raw == "" {
		raw = DefaultBaseURL
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url %q must use http or https", raw)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("base url %q has no host", raw)
	}

	c := &Client{
		base:      base,
		timeout:   opts.Timeout,
		userAgent: opts.UserAgent,
		http:      opts.HTTPClient,
		tokens:    opts.Tokens,
		signals:   opts.Signals,
		observer:  opts.Observer,
		log:       opts.Logger,
		intercept: append([]Interceptor(nil), opts.Interceptors...),
		msgs:      opts.Messages.withDefaults(),
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.userAgent == "" {
		c.userAgent = DefaultUserAgent
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.log == nil {
		c.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(opts.RateLimit, burst)
	}
	return c, nil
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// Get issues a GET and decodes the response body into out.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

// Post issues a POST with a JSON body and decodes the response body into out.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, body, out)
}

// Do performs one request. body is JSON-encoded when non-nil; the response
// body is decoded into out when non-nil. Any failure is an *Error.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	start := time.Now()
	requestID := uuid.NewString()

	status, err := c.do(ctx, method, path, requestID, body, out)

	var code Code
	if err != nil {
		err.RequestID = requestID
		code = err.Code
		c.log.Debug("api request failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.String("request_id", requestID),
			slog.Int("status", err.Status),
			slog.String("code", string(err.Code)),
		)
	} else {
		c.log.Debug("api request",
			slog.String("method", method),
			slog.String("path", path),
			slog.String("request_id", requestID),
			slog.Int("status", status),
			slog.Duration("elapsed", time.Since(start)),
		)
	}
	if c.observer != nil {
		c.observer.ObserveRequest(method, path, status, code, time.Since(start))
	}
	if err != nil {
		return err
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path, requestID string, body, out any) (int, *Error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			if ctx.Err() == nil {
				// Wait refuses early when the deadline cannot be met.
				err = fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
			}
			return 0, fromTransport(ctx, err, c.msgs)
		}
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fromLocal(fmt.Errorf("encode request body: %w", err), c.msgs)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.JoinPath(path).String(), reader)
	if err != nil {
		return 0, fromLocal(fmt.Errorf("build request: %w", err), c.msgs)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set(HeaderRequestID, requestID)

	hadToken := false
	if c.tokens != nil {
		if token, ok := c.tokens.Token(ctx); ok && token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
			hadToken = true
		}
	}
	for _, fn := range c.intercept {
		if err := fn(req); err != nil {
			return 0, fromLocal(err, c.msgs)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fromTransport(ctx, err, c.msgs)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return resp.StatusCode, fromTransport(ctx, err, c.msgs)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		nerr := fromResponse(resp.StatusCode, data, hadToken, c.msgs)
		if resp.StatusCode == http.StatusUnauthorized {
			c.signals.Publish(ctx, Unauthorized{
				Method:    method,
				Path:      path,
				RequestID: requestID,
				HadToken:  hadToken,
				At:        time.Now(),
			})
		}
		return resp.StatusCode, nerr
	}

	if out == nil {
		return resp.StatusCode, nil
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return resp.StatusCode, fromDecode(resp.StatusCode, data, errors.New("empty response body"), c.msgs)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return resp.StatusCode, fromDecode(resp.StatusCode, data, err, c.msgs)
	}
	return resp.StatusCode, nil
}
