package wmts

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/time/rate"
)

// Client fetches capabilities documents. It never retries; callers decide
// whether to ask again.
type Client struct {
	HTTP      *http.Client
	Limiter   *rate.Limiter
	UserAgent string
	Parser    Parser
	Logger    *slog.Logger

	cache *ttlcache.Cache[string, []byte]
}

// NewClient returns a client with the given request timeout. rps <= 0
// disables rate limiting.
func NewClient(timeout time.Duration, rps float64, burst int) *Client {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	if burst < 1 {
		burst = 1
	}
	return &Client{
		HTTP:      &http.Client{Timeout: timeout},
		Limiter:   rate.NewLimiter(limit, burst),
		UserAgent: "mapcompare/1.0 (+wmts)",
		Parser:    DefaultParser,
		Logger:    slog.Default(),
	}
}

// EnableCache keeps fetched documents for ttl. A ttl <= 0 turns caching off.
func (c *Client) EnableCache(ttl time.Duration) {
	if ttl <= 0 {
		c.cache = nil
		return
	}
	c.cache = ttlcache.New(
		ttlcache.WithTTL[string, []byte](ttl),
		ttlcache.WithDisableTouchOnHit[string, []byte](),
	)
}

// FetchCapabilities returns the raw GetCapabilities document of baseURL.
func (c *Client) FetchCapabilities(ctx context.Context, baseURL string) ([]byte, error) {
	u := CapabilitiesURL(baseURL)
	if c.cache != nil {
		if item := c.cache.Get(u); item != nil {
			c.Logger.Debug("capabilities from cache", "url", u)
			return item.Value(), nil
		}
	}
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return nil, &NetworkError{URL: u, Err: err}
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("wmts: build request: %w", err)
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", "application/xml, text/xml;q=0.9, */*;q=0.5")

	tick := time.Now()
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, &NetworkError{URL: u, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2<<10))
		return nil, &FetchError{URL: u, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{URL: u, Err: err}
	}
	c.Logger.Debug("capabilities fetched", "url", u, "bytes", len(body), "elapsed", time.Since(tick))

	if c.cache != nil {
		c.cache.Set(u, body, ttlcache.DefaultTTL)
	}
	return body, nil
}

// Capabilities fetches and parses the document of baseURL.
func (c *Client) Capabilities(ctx context.Context, baseURL string) (*Capabilities, error) {
	body, err := c.FetchCapabilities(ctx, baseURL)
	if err != nil {
		return nil, err
	}
	return c.Parser.Parse(body)
}

// Layers fetches and parses the layers of baseURL.
func (c *Client) Layers(ctx context.Context, baseURL string) ([]Layer, error) {
	caps, err := c.Capabilities(ctx, baseURL)
	if err != nil {
		return nil, err
	}
	return caps.Layers, nil
}
