// Package schemeregistry resolves accrual rates for pension schemes from the
// external scheme registry, with an in-process cache and a joined-timeout
// parallel fetch. Lookup failures never fail the calling calculation: any id
// that cannot be resolved in time gets the default rate.
package schemeregistry

import (
	"context"
	"net/http"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"pension-calculation-engine/internal/metrics"
	"pension-calculation-engine/internal/model"
)

// DefaultAccrualRate is used whenever the registry is disabled or a lookup
// fails or times out.
const DefaultAccrualRate = 0.02

// RateCache is the shared scheme-id -> accrual-rate store. It is safe for
// concurrent use from multiple lookups and multiple requests; last successful
// writer wins. Entries never expire within this layer.
type RateCache struct {
	m sync.Map
}

func NewRateCache() *RateCache {
	return &RateCache{}
}

func (c *RateCache) Load(schemeID string) (float64, bool) {
	v, ok := c.m.Load(schemeID)
	if !ok {
		return 0, false
	}
	return v.(float64), true
}

func (c *RateCache) Store(schemeID string, rate float64) {
	c.m.Store(schemeID, rate)
}

// Client looks up accrual rates. A client with no base URL is disabled and
// always returns the nil marker from GetAccrualRates.
type Client struct {
	baseURL     string
	joinTimeout time.Duration
	http        *http.Client
	cache       *RateCache
	group       singleflight.Group
	log         *logrus.Entry
}

// New builds a client. baseURL may be empty, which disables the registry.
// The cache is injected so ownership stays with the caller.
func New(baseURL string, fetchTimeout, joinTimeout time.Duration, cache *RateCache, log *logrus.Logger) *Client {
	return &Client{
		baseURL:     baseURL,
		joinTimeout: joinTimeout,
		cache:       cache,
		log:         log.WithField("component", "schemeregistry"),
		http: &http.Client{
			Timeout: fetchTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 100,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

func (c *Client) Enabled() bool {
	return c.baseURL != ""
}

type schemeResponse struct {
	SchemeID    string  `json:"scheme_id"`
	AccrualRate float64 `json:"accrual_rate"`
}

// GetAccrualRates resolves one rate per distinct scheme id among the given
// policies. It returns nil when the registry is disabled; callers must then
// fall back to DefaultAccrualRate per policy. Cache misses are fetched
// concurrently and joined under the configured timeout; ids still unresolved
// when it elapses resolve to the default rate without being cached, so a
// later call retries them.
func (c *Client) GetAccrualRates(ctx context.Context, policies []model.Policy) map[string]float64 {
	if !c.Enabled() {
		return nil
	}

	result := make(map[string]float64, len(policies))
	var toFetch []string
	for _, p := range policies {
		if _, seen := result[p.SchemeID]; seen {
			continue
		}
		if rate, ok := c.cache.Load(p.SchemeID); ok {
			metrics.SchemeLookupsTotal.WithLabelValues("hit").Inc()
			result[p.SchemeID] = rate
			continue
		}
		result[p.SchemeID] = DefaultAccrualRate // placeholder until fetched
		toFetch = append(toFetch, p.SchemeID)
	}

	if len(toFetch) == 0 {
		return result
	}

	ctx, cancel := context.WithTimeout(ctx, c.joinTimeout)
	defer cancel()

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	for _, id := range toFetch {
		id := id
		g.Go(func() error {
			rate := c.resolve(ctx, id)
			mu.Lock()
			result[id] = rate
			mu.Unlock()
			return nil
		})
	}
	g.Wait() // errors are absorbed per id; the join never fails the call

	return result
}

// resolve collapses concurrent fetches of the same id across requests.
func (c *Client) resolve(ctx context.Context, schemeID string) float64 {
	v, _, _ := c.group.Do(schemeID, func() (interface{}, error) {
		rate, answered := c.fetchRate(ctx, schemeID)
		if answered {
			// A definitive answer (including a registry error answered in
			// time) is cached; a join-timeout is not, so the id stays
			// retry-eligible once the registry recovers.
			c.cache.Store(schemeID, rate)
			metrics.SchemeLookupsTotal.WithLabelValues("fetched").Inc()
		} else {
			metrics.SchemeLookupsTotal.WithLabelValues("defaulted").Inc()
		}
		return rate, nil
	})
	return v.(float64)
}

func (c *Client) fetchRate(ctx context.Context, schemeID string) (rate float64, answered bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/schemes/"+schemeID, nil)
	if err != nil {
		return DefaultAccrualRate, true
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return DefaultAccrualRate, false
		}
		c.log.WithError(err).WithField("scheme_id", schemeID).Warn("scheme lookup failed, using default rate")
		return DefaultAccrualRate, true
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.WithFields(logrus.Fields{"scheme_id": schemeID, "status": resp.StatusCode}).
			Warn("scheme lookup returned non-2xx, using default rate")
		return DefaultAccrualRate, true
	}

	var sr schemeResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		c.log.WithError(err).WithField("scheme_id", schemeID).Warn("malformed scheme response, using default rate")
		return DefaultAccrualRate, true
	}
	return sr.AccrualRate, true
}
