package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/tidwall/gjson"

	"github.com/jonwraymond/abclient/apierr"
	"github.com/jonwraymond/abclient/auth"
	"github.com/jonwraymond/abclient/config"
	"github.com/jonwraymond/abclient/observe"
)

const (
	// DefaultTimeout bounds each request.
	DefaultTimeout = 30 * time.Second

	// maxResponseBytes caps how much of a response body is read.
	maxResponseBytes = 10 << 20

	headerAPIKey = "X-API-Key"
)

// Client sends requests to the console API.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Errors: every failure returned by Send and Do is an *apierr.Error.
//   - State: base URLs and the session are read on every call, never cached.
type Client struct {
	http    *http.Client
	chain   *config.Chain
	store   auth.Store
	mw      *observe.Middleware
	logger  observe.Logger
	timeout time.Duration
	clock   clockwork.Clock
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithMiddleware sets the telemetry middleware wrapping each request.
func WithMiddleware(mw *observe.Middleware) Option {
	return func(c *Client) {
		if mw != nil {
			c.mw = mw
		}
	}
}

// WithClock sets the clock used to judge token expiry.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Client) { c.clock = clock }
}

// New creates a Client resolving base URLs from chain and credentials from
// store.
func New(chain *config.Chain, store auth.Store, opts ...Option) *Client {
	c := &Client{
		http:    &http.Client{},
		chain:   chain,
		store:   store,
		mw:      observe.NoopMiddleware(),
		timeout: DefaultTimeout,
		clock:   clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.mw.Logger()
	return c
}

// Store returns the session store the client reads credentials from.
func (c *Client) Store() auth.Store { return c.store }

// Send performs req and returns the raw 2xx response.
func (c *Client) Send(ctx context.Context, req Request) (*Response, error) {
	var resp *Response
	var sendErr *apierr.Error

	c.mw.Run(ctx, req.operation(), func(ctx context.Context, _ observe.Operation) (int, error) {
		resp, sendErr = c.send(ctx, req)
		if sendErr != nil {
			return sendErr.Status, sendErr
		}
		return resp.Status, nil
	})

	if sendErr != nil {
		return nil, sendErr
	}
	return resp, nil
}

// Do performs req and decodes the data member of the {"data": ...}
// envelope into out. A nil out discards the body.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	resp, err := c.Send(ctx, req)
	if err != nil {
		return err
	}
	if out == nil || len(resp.Body) == 0 {
		return nil
	}
	if e := decodeEnvelope(resp, out); e != nil {
		e.Method, e.Path = req.Method, req.Path
		return e
	}
	return nil
}

func decodeEnvelope(resp *Response, out any) *apierr.Error {
	if !gjson.ValidBytes(resp.Body) {
		return apierr.Malformed(resp.Status, errors.New("response body is not valid JSON"))
	}
	data := gjson.GetBytes(resp.Body, "data")
	if !data.Exists() {
		return apierr.Malformed(resp.Status, errors.New(`response body has no "data" member`))
	}
	if data.Type == gjson.Null {
		return nil
	}
	if err := json.Unmarshal([]byte(data.Raw), out); err != nil {
		return apierr.Malformed(resp.Status, err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, req Request) (*Response, *apierr.Error) {
	sess, err := c.store.Load(ctx)
	if err != nil {
		return nil, c.setupError(req, fmt.Errorf("load session: %w", err))
	}

	target, err := c.resolveURL(ctx, req)
	if err != nil {
		return nil, c.setupError(req, err)
	}

	var body io.Reader
	if req.Body != nil {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return nil, c.setupError(req, fmt.Errorf("encode body: %w", err))
		}
		body = bytes.NewReader(payload)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, c.setupError(req, err)
	}
	c.setHeaders(httpReq, req, sess)

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		e := apierr.FromTransport(err)
		e.Method, e.Path = req.Method, req.Path
		return nil, e
	}
	defer httpResp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		e := apierr.FromTransport(err)
		e.Method, e.Path = req.Method, req.Path
		return nil, e
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		e := apierr.Classify(httpResp.StatusCode, payload)
		e.Method, e.Path = req.Method, req.Path
		if e.Kind == apierr.KindUnauthorized {
			c.clearSession(ctx, sess.Version)
		}
		return nil, e
	}

	return &Response{
		Status: httpResp.StatusCode,
		Header: httpResp.Header,
		Body:   payload,
	}, nil
}

func (c *Client) resolveURL(ctx context.Context, req Request) (string, error) {
	base, source, err := c.chain.ResolveWithSource(ctx, req.Service.ConfigKey())
	if err != nil {
		return "", fmt.Errorf("resolve base URL: %w", err)
	}

	u, err := url.Parse(strings.TrimRight(base, "/") + "/" + strings.TrimLeft(req.Path, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid base URL %q from %s: %w", base, source, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("invalid base URL %q from %s: want an absolute http(s) URL", base, source)
	}
	if len(req.Query) > 0 {
		u.RawQuery = req.Query.Encode()
	}
	return u.String(), nil
}

func (c *Client) setHeaders(httpReq *http.Request, req Request, sess auth.Session) {
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	switch req.Service {
	case ServiceProject:
		if sess.APIKey != "" {
			httpReq.Header.Set(headerAPIKey, sess.APIKey)
		}
	case ServiceIdentity:
		httpReq.Header.Del(headerAPIKey)
		if sess.TokenUsable(c.clock.Now()) {
			httpReq.Header.Set("Authorization", "Bearer "+sess.Token)
		}
	}
}

// clearSession drops the session read at send time. Concurrent 401s carry
// the same version, so only the first one clears.
func (c *Client) clearSession(ctx context.Context, version uint64) {
	cleared, err := c.store.ClearIf(context.WithoutCancel(ctx), version)
	if err != nil {
		c.logger.Error(ctx, "failed to clear session after unauthorized response", observe.F("error", err))
		return
	}
	if cleared {
		c.logger.Info(ctx, "session cleared after unauthorized response", observe.F("session_version", version))
	}
}

func (c *Client) setupError(req Request, err error) *apierr.Error {
	e := apierr.Setup(err)
	e.Method, e.Path = req.Method, req.Path
	return e
}
