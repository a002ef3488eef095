// Package portalapi is the REST client for the counseling platform server.
package portalapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"counselportal/internal/metrics"
)

const (
	requestIDHeader = "X-Request-ID"
	cachePrefix     = "counselportal:api:"
)

// TokenStore holds the bearer and refresh tokens used by the client.
type TokenStore interface {
	AccessToken(ctx context.Context) (string, error)
	RefreshToken(ctx context.Context) (string, error)
	SetAccessToken(ctx context.Context, access string) error
	Clear(ctx context.Context) error
}

// Client calls the platform REST API. A 401 triggers one token refresh and
// one retry of the original request.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenStore
	logger     zerolog.Logger
	limiter    *rate.Limiter
	loc        *time.Location

	redis    *redis.Client
	cacheTTL time.Duration

	refreshMu sync.Mutex
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithRateLimit caps outgoing requests per second. rps <= 0 disables it.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithTracing wraps the transport so every call produces a client span.
func WithTracing() Option {
	return func(c *Client) {
		base := c.httpClient.Transport
		if base == nil {
			base = http.DefaultTransport
		}
		c.httpClient.Transport = otelhttp.NewTransport(base,
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}))
	}
}

// WithLocation sets the zone used for timestamps without an offset.
func WithLocation(loc *time.Location) Option {
	return func(c *Client) {
		if loc != nil {
			c.loc = loc
		}
	}
}

// WithLogger sets the component logger.
func WithLogger(l *zerolog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l.With().Str("component", "portalapi").Logger()
		}
	}
}

// New constructs a client for baseURL (e.g. http://localhost:8080/api).
func New(baseURL string, tokens TokenStore, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		tokens:     tokens,
		logger:     zerolog.Nop(),
		loc:        time.Local,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// UseRedisCache configures optional Redis caching for GET endpoints.
// Any successful mutation flushes the cache.
func (c *Client) UseRedisCache(redisClient *redis.Client, ttl time.Duration) {
	c.redis = redisClient
	c.cacheTTL = ttl
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) endpoint(path string, query url.Values) string {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (c *Client) readCache(ctx context.Context, key string, out any) bool {
	if c.redis == nil || c.cacheTTL <= 0 {
		return false
	}
	val, err := c.redis.Get(ctx, cachePrefix+key).Result()
	if err != nil {
		metrics.IncCache(false)
		return false
	}
	if err := json.Unmarshal([]byte(val), out); err != nil {
		metrics.IncCache(false)
		return false
	}
	metrics.IncCache(true)
	return true
}

func (c *Client) writeCache(ctx context.Context, key string, val any) {
	if c.redis == nil || c.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, cachePrefix+key, data, c.cacheTTL).Err()
}

// flushCache drops every cached GET so the next read sees the mutation.
func (c *Client) flushCache(ctx context.Context) {
	if c.redis == nil || c.cacheTTL <= 0 {
		return
	}
	var cursor uint64
	for {
		keys, next, err := c.redis.Scan(ctx, cursor, cachePrefix+"*", 100).Result()
		if err != nil {
			c.logger.Warn().Err(err).Msg("cache flush failed")
			return
		}
		if len(keys) > 0 {
			_ = c.redis.Del(ctx, keys...).Err()
		}
		if next == 0 {
			return
		}
		cursor = next
	}
}

// getJSON performs a GET, serving from and filling the cache under cacheKey
// when it is not empty.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, cacheKey string, out any) error {
	if cacheKey != "" {
		var raw json.RawMessage
		if c.readCache(ctx, cacheKey, &raw) {
			return json.Unmarshal(raw, out)
		}
	}
	body, err := c.send(ctx, http.MethodGet, path, query, nil, true)
	if err != nil {
		return err
	}
	if err := decode(body, out); err != nil {
		return err
	}
	if cacheKey != "" {
		c.writeCache(ctx, cacheKey, json.RawMessage(body))
	}
	return nil
}

// mutate performs a non-GET call and flushes the cache on success.
func (c *Client) mutate(ctx context.Context, method, path string, query url.Values, in, out any) error {
	body, err := c.send(ctx, method, path, query, in, true)
	if err != nil {
		return err
	}
	c.flushCache(ctx)
	return decode(body, out)
}

func decode(body []byte, out any) error {
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// send executes one call. With auth set, the bearer token is attached and a
// 401 is answered by a single refresh and retry.
func (c *Client) send(ctx context.Context, method, path string, query url.Values, in any, auth bool) ([]byte, error) {
	var payload []byte
	if in != nil {
		var err error
		if payload, err = json.Marshal(in); err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
	}

	token := ""
	if auth && c.tokens != nil {
		token, _ = c.tokens.AccessToken(ctx)
	}
	code, body, err := c.roundTrip(ctx, method, path, query, payload, token)
	if err != nil {
		return nil, err
	}
	if code == http.StatusUnauthorized && auth && c.tokens != nil {
		fresh, rerr := c.refreshAfter(ctx, token)
		if rerr != nil {
			c.logger.Warn().Err(rerr).Str("endpoint", path).Msg("token refresh failed, clearing session")
			if cerr := c.tokens.Clear(ctx); cerr != nil {
				c.logger.Warn().Err(cerr).Msg("clear session")
			}
			return nil, ErrUnauthorized
		}
		code, body, err = c.roundTrip(ctx, method, path, query, payload, fresh)
		if err != nil {
			return nil, err
		}
	}
	if code < 200 || code >= 300 {
		return nil, newAPIError(code, path, body)
	}
	return body, nil
}

func (c *Client) roundTrip(ctx context.Context, method, path string, query url.Values, payload []byte, token string) (int, []byte, error) {
	if err := c.wait(ctx); err != nil {
		return 0, nil, err
	}

	var reader io.Reader = http.NoBody
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), reader)
	if err != nil {
		return 0, nil, err
	}
	reqID := uuid.NewString()
	req.Header.Set(requestIDHeader, reqID)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ObserveAPIRequest(method, routeOf(path), "error", time.Since(start))
		c.logger.Warn().Err(err).Str("request_id", reqID).Str("endpoint", path).Msg("request failed")
		return 0, nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	elapsed := time.Since(start)
	metrics.ObserveAPIRequest(method, routeOf(path), strconv.Itoa(resp.StatusCode), elapsed)
	if err != nil {
		return 0, nil, fmt.Errorf("read %s: %w", path, err)
	}
	c.logger.Debug().
		Str("request_id", reqID).
		Str("method", method).
		Str("endpoint", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", elapsed).
		Msg("api call")
	return resp.StatusCode, body, nil
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	r := c.limiter.Reserve()
	d := r.Delay()
	if d == 0 {
		return nil
	}
	metrics.IncRateLimitWait()
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		r.Cancel()
		return ctx.Err()
	}
}

// routeOf collapses ids in a path so metric labels stay bounded.
func routeOf(path string) string {
	parts := strings.Split(path, "/")
	for i, p := range parts {
		if p == "" {
			continue
		}
		if _, err := strconv.ParseInt(p, 10, 64); err == nil {
			parts[i] = "{id}"
			continue
		}
		if _, err := uuid.Parse(p); err == nil {
			parts[i] = "{id}"
		}
	}
	return strings.Join(parts, "/")
}
