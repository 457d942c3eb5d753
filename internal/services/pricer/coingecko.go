// Package pricer fetches USD spot prices from CoinGecko with a short TTL
// cache. Concurrent lookups for the same asset inside the cache window
// coalesce into one upstream call, and upstream requests are rate limited.
package pricer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/custosbot/custos/internal/domain"
)

const (
	defaultBaseURL  = "https://api.coingecko.com/api/v3"
	defaultCacheTTL = 30 * time.Second
	defaultTimeout  = 10 * time.Second

	// CoinGecko's free tier tolerates roughly 30 calls/min.
	upstreamRatePerSec = 0.5
	upstreamBurst      = 2
)

type quote struct {
	price     decimal.Decimal
	fetchedAt time.Time
}

// CoinGecko is a spot price oracle client.
type CoinGecko struct {
	httpClient *http.Client
	baseURL    string
	cacheTTL   time.Duration
	limiter    *rate.Limiter
	group      singleflight.Group

	mu    sync.RWMutex
	cache map[string]quote
}

// Option configures the CoinGecko client.
type Option func(*CoinGecko)

// WithBaseURL overrides the API endpoint (tests point this at a fake server).
func WithBaseURL(u string) Option {
	return func(c *CoinGecko) {
		c.baseURL = u
	}
}

// WithCacheTTL overrides the quote cache window.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *CoinGecko) {
		c.cacheTTL = ttl
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *CoinGecko) {
		c.httpClient = client
	}
}

// NewCoinGecko creates the oracle client.
func NewCoinGecko(opts ...Option) *CoinGecko {
	c := &CoinGecko{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    defaultBaseURL,
		cacheTTL:   defaultCacheTTL,
		limiter:    rate.NewLimiter(rate.Limit(upstreamRatePerSec), upstreamBurst),
		cache:      make(map[string]quote),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SpotPriceUSD returns the current USD price for the CoinGecko asset id.
func (c *CoinGecko) SpotPriceUSD(ctx context.Context, assetID string) (decimal.Decimal, error) {
	if price, ok := c.cached(assetID); ok {
		return price, nil
	}

	result, err, _ := c.group.Do(assetID, func() (any, error) {
		// another caller may have refreshed the quote while we queued
		if price, ok := c.cached(assetID); ok {
			return price, nil
		}
		return c.fetch(ctx, assetID)
	})
	if err != nil {
		return decimal.Decimal{}, err
	}

	return result.(decimal.Decimal), nil
}

func (c *CoinGecko) cached(assetID string) (decimal.Decimal, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	q, ok := c.cache[assetID]
	if !ok || time.Since(q.fetchedAt) > c.cacheTTL {
		return decimal.Decimal{}, false
	}
	return q.price, true
}

func (c *CoinGecko) fetch(ctx context.Context, assetID string) (decimal.Decimal, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return decimal.Decimal{}, errors.Wrap(err, "price oracle rate limiter")
	}

	endpoint := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd",
		c.baseURL, url.QueryEscape(assetID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return decimal.Decimal{}, errors.Wrap(err, "build price request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return decimal.Decimal{}, errors.Wrapf(domain.ErrPriceUnavailable, "fetch %s: %v", assetID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Decimal{}, errors.Wrapf(domain.ErrPriceUnavailable, "fetch %s: HTTP %d", assetID, resp.StatusCode)
	}

	var payload map[string]map[string]json.Number
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return decimal.Decimal{}, errors.Wrapf(domain.ErrPriceUnavailable, "decode %s: %v", assetID, err)
	}

	raw, ok := payload[assetID]["usd"]
	if !ok {
		return decimal.Decimal{}, errors.Wrapf(domain.ErrPriceUnavailable, "no usd quote for %s", assetID)
	}

	price, err := decimal.NewFromString(raw.String())
	if err != nil {
		return decimal.Decimal{}, errors.Wrapf(domain.ErrPriceUnavailable, "bad quote %q for %s", raw.String(), assetID)
	}

	c.mu.Lock()
	c.cache[assetID] = quote{price: price, fetchedAt: time.Now()}
	c.mu.Unlock()

	return price, nil
}
