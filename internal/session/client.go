package session

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/muse/internal/cache"
	"github.com/desertthunder/muse/internal/shared"
	"golang.org/x/time/rate"
)

// refreshSkew is how far ahead of expiry a credential is proactively
// renewed, so a token cannot expire mid-request.
const refreshSkew = 60 * time.Second

// Operation describes one API request the client performs.
type Operation struct {
	// Name identifies the operation in scope errors, logs, and cache keys.
	Name string

	Method string
	Path   string
	Query  url.Values

	// Body is sent as the request body for mutating methods.
	Body io.Reader

	// RequiredScopes are checked against the credential's granted scopes
	// before any network call.
	RequiredScopes []string

	// CacheTier selects the response cache tier for GET requests; empty
	// means the response is not cached.
	CacheTier string

	// Resource groups cache entries touched by this operation; mutations
	// invalidate every cached read sharing the resource prefix.
	Resource string
}

// mutating reports whether the operation changes provider state.
func (op Operation) mutating() bool {
	switch strings.ToUpper(op.Method) {
	case http.MethodGet, http.MethodHead, "":
		return false
	default:
		return true
	}
}

// cacheable reports whether the operation's response may be served from and
// written to the cache.
func (op Operation) cacheable() bool {
	return op.CacheTier != "" && !op.mutating()
}

// Response is the outcome of a completed operation.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Client is the authenticated API client tying together the credential
// store, flow engine, scope gate, response cache, and rate limiter.
//
// Request is safe for concurrent use; token refresh and cache computation
// are both single-flight.
type Client struct {
	baseURL    string
	httpClient *http.Client
	engine     *FlowEngine
	store      Store
	gate       *ScopeGate
	cache      *cache.TieredCache
	limiter    *rate.Limiter
	logger     *log.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets the HTTP client used for API requests.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
			c.engine.SetHTTPClient(hc)
		}
	}
}

// WithCache enables response caching.
func WithCache(tc *cache.TieredCache) ClientOption {
	return func(c *Client) { c.cache = tc }
}

// WithRateLimit bounds the request rate to the provider.
func WithRateLimit(limit rate.Limit, burst int) ClientOption {
	return func(c *Client) { c.limiter = rate.NewLimiter(limit, burst) }
}

// WithLogger sets the client's logger.
func WithLogger(logger *log.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a client for the API rooted at baseURL, authenticating
// through engine and store.
func NewClient(baseURL string, engine *FlowEngine, store Store, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: http.DefaultClient,
		engine:     engine,
		store:      store,
		gate:       NewScopeGate(store),
		logger:     shared.NewLogger(nil),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Engine returns the client's flow engine.
func (c *Client) Engine() *FlowEngine {
	return c.engine
}

// Cache returns the client's response cache, or nil when caching is
// disabled.
func (c *Client) Cache() *cache.TieredCache {
	return c.cache
}

// Request performs the operation, acquiring or refreshing the credential as
// needed, and returns the parsed response.
//
// Cacheable reads are served from the tiered cache when fresh; concurrent
// misses on the same key collapse into a single upstream call. Mutations
// bypass the cache and invalidate the operation's resource prefix.
func (c *Client) Request(ctx context.Context, op Operation) (*Response, error) {
	if op.Path == "" {
		return nil, fmt.Errorf("%w: operation path is required", shared.ErrInvalidInput)
	}

	if c.cache != nil && op.cacheable() {
		key := cache.Key(c.cacheKeyOperation(op), op.Query)
		value, err := c.cache.GetOrCompute(ctx, key, op.CacheTier, func(ctx context.Context) (any, error) {
			return c.do(ctx, op)
		})
		if err != nil {
			return nil, err
		}
		return value.(*Response), nil
	}

	resp, err := c.do(ctx, op)
	if err != nil {
		return nil, err
	}

	if c.cache != nil && op.mutating() && op.Resource != "" {
		dropped := c.cache.Invalidate(op.Resource)
		if dropped > 0 {
			c.logger.Debug("invalidated cached responses", "resource", op.Resource, "count", dropped)
		}
	}

	return resp, nil
}

// cacheKeyOperation namespaces cache keys by resource so mutations can
// invalidate by prefix.
func (c *Client) cacheKeyOperation(op Operation) string {
	if op.Resource != "" {
		return op.Resource + "/" + op.Name
	}
	return op.Name
}

// do runs the operation against the provider, handling authentication.
func (c *Client) do(ctx context.Context, op Operation) (*Response, error) {
	if err := c.gate.Require(op.Name, op.RequiredScopes); err != nil {
		return nil, err
	}

	cred, err := c.ensureCredential(ctx)
	if err != nil {
		return nil, err
	}

	// Buffer the body so the request can be replayed after a token refresh.
	var payload []byte
	if op.Body != nil {
		payload, err = io.ReadAll(op.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read request body: %v", shared.ErrInvalidInput, err)
		}
	}

	// The pre-flight gate passes vacuously when no credential exists yet;
	// re-check against the scopes actually granted.
	if err := c.gate.Require(op.Name, op.RequiredScopes); err != nil {
		return nil, err
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: rate limiter wait canceled: %v", shared.ErrTransport, err)
		}
	}

	resp, err := c.send(ctx, op, cred, payload)
	if err != nil {
		return nil, err
	}

	// A provider-side rejection of a locally valid token means the server
	// revoked it or clocks disagree; refresh once and retry.
	if resp.StatusCode == http.StatusUnauthorized {
		c.logger.Info("token rejected by provider, refreshing", "operation", op.Name)

		cred, err = c.engine.ForceRefresh(ctx)
		if err != nil {
			return nil, err
		}

		resp, err = c.send(ctx, op, cred, payload)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode == http.StatusUnauthorized {
			return nil, fmt.Errorf("%w: token rejected after refresh", shared.ErrAuthenticationFailed)
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %s returned %d: %s",
			shared.ErrAPIRequest, op.Name, resp.StatusCode, strings.TrimSpace(string(resp.Body)))
	}

	return resp, nil
}

// ensureCredential returns a usable credential, running the authorization
// flow or a proactive refresh when needed.
func (c *Client) ensureCredential(ctx context.Context) (*Credential, error) {
	cred := c.store.Current()
	if cred == nil {
		return c.engine.Authorize(ctx)
	}

	if cred.ExpiringWithin(time.Now(), refreshSkew) {
		if !cred.Refreshable() {
			return nil, fmt.Errorf("%w: credential expired and cannot be refreshed, reauthorize to continue",
				shared.ErrSessionExpired)
		}
		return c.engine.Refresh(ctx)
	}

	return cred, nil
}

// send performs one HTTP round trip with the credential attached.
func (c *Client) send(ctx context.Context, op Operation, cred *Credential, payload []byte) (*Response, error) {
	u := c.baseURL + "/" + strings.TrimLeft(op.Path, "/")
	if len(op.Query) > 0 {
		u += "?" + op.Query.Encode()
	}

	method := op.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to build request: %v", shared.ErrInvalidInput, err)
	}

	req.Header.Set("Authorization", cred.TokenType+" "+cred.AccessToken)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", shared.ErrTransport, op.Name, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response body: %v", shared.ErrTransport, err)
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       respBody,
	}, nil
}

// Logout clears the in-memory credential and removes any persisted record.
func (c *Client) Logout() error {
	c.store.Clear()

	if ps, ok := c.store.(PersistentStore); ok {
		if err := ps.Delete(); err != nil {
			return err
		}
	}

	if c.cache != nil {
		c.cache.Clear()
	}

	c.logger.Info("logged out, credential cleared")
	return nil
}
