package launchpad

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"
)

const (
	seriesCacheSize     = 50
	packagesetCacheSize = 50
	packagesetCacheTTL  = 10 * time.Minute
	sourcesCacheSize    = 2048
	sourcesCacheTTL     = time.Hour
)

// Cache names reported to the cache observer.
const (
	CacheSeries      = "series"
	CachePackagesets = "packagesets"
	CacheSources     = "packageset_sources"
)

type sourcesKey struct {
	series     string
	packageset string
}

// CachedClient fronts a Client for one distribution. Series never change
// once resolved; packagesets and their contents are refreshed after a TTL.
type CachedClient struct {
	client       *Client
	distribution string

	series      *lru.Cache[string, Series]
	packagesets *expirable.LRU[string, []Packageset]
	sources     *expirable.LRU[sourcesKey, []string]

	group   singleflight.Group
	observe func(cache string, hit bool)
}

// CacheOption configures a CachedClient.
type CacheOption func(*cacheOptions)

type cacheOptions struct {
	packagesetTTL time.Duration
	sourcesTTL    time.Duration
	observe       func(cache string, hit bool)
}

// WithCacheTTLs overrides how long packagesets and packageset sources are
// kept.
func WithCacheTTLs(packagesets, sources time.Duration) CacheOption {
	return func(o *cacheOptions) {
		o.packagesetTTL = packagesets
		o.sourcesTTL = sources
	}
}

// WithCacheObserver registers a callback run on every cache lookup.
func WithCacheObserver(fn func(cache string, hit bool)) CacheOption {
	return func(o *cacheOptions) {
		o.observe = fn
	}
}

// NewCachedClient wraps client for the named distribution.
func NewCachedClient(client *Client, distribution string, opts ...CacheOption) (*CachedClient, error) {
	o := cacheOptions{
		packagesetTTL: packagesetCacheTTL,
		sourcesTTL:    sourcesCacheTTL,
		observe:       func(string, bool) {},
	}
	for _, opt := range opts {
		opt(&o)
	}

	series, err := lru.New[string, Series](seriesCacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "creating series cache")
	}

	return &CachedClient{
		client:       client,
		distribution: distribution,
		series:       series,
		packagesets:  expirable.NewLRU[string, []Packageset](packagesetCacheSize, nil, o.packagesetTTL),
		sources:      expirable.NewLRU[sourcesKey, []string](sourcesCacheSize, nil, o.sourcesTTL),
		observe:      o.observe,
	}, nil
}

// GetSeries resolves a series by name or version.
func (c *CachedClient) GetSeries(ctx context.Context, name string) (Series, error) {
	if s, ok := c.series.Get(name); ok {
		c.observe(CacheSeries, true)
		return s, nil
	}
	c.observe(CacheSeries, false)

	v, err := c.shared(ctx, "series/"+name, func(ctx context.Context) (interface{}, error) {
		s, err := c.client.GetSeries(ctx, c.distribution, name)
		if err != nil {
			return Series{}, err
		}
		c.series.Add(name, s)
		return s, nil
	})
	if err != nil {
		return Series{}, err
	}
	return v.(Series), nil
}

// AllSeries lists every series of the distribution, uncached.
func (c *CachedClient) AllSeries(ctx context.Context) ([]Series, error) {
	return c.client.Series(ctx, c.distribution)
}

// CurrentSeries lists the series in development or still supported.
func (c *CachedClient) CurrentSeries(ctx context.Context) ([]Series, error) {
	all, err := c.client.Series(ctx, c.distribution)
	if err != nil {
		return nil, err
	}

	current := make([]Series, 0, len(all))
	for _, s := range all {
		if !s.IsCurrent() {
			continue
		}
		c.series.Add(s.Name, s)
		current = append(current, s)
	}
	return current, nil
}

// Packagesets lists the packagesets of a series.
func (c *CachedClient) Packagesets(ctx context.Context, series Series) ([]Packageset, error) {
	if sets, ok := c.packagesets.Get(series.Name); ok {
		c.observe(CachePackagesets, true)
		return sets, nil
	}
	c.observe(CachePackagesets, false)

	v, err := c.shared(ctx, "packagesets/"+series.Name, func(ctx context.Context) (interface{}, error) {
		sets, err := c.client.PackagesetsBySeries(ctx, series)
		if err != nil {
			return nil, err
		}
		c.packagesets.Add(series.Name, sets)
		return sets, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]Packageset), nil
}

// PackagesetSources lists the source packages of a packageset.
func (c *CachedClient) PackagesetSources(ctx context.Context, ps Packageset) ([]string, error) {
	key := sourcesKey{series: ps.SeriesName, packageset: ps.Name}
	if sources, ok := c.sources.Get(key); ok {
		c.observe(CacheSources, true)
		return sources, nil
	}
	c.observe(CacheSources, false)

	v, err := c.shared(ctx, "sources/"+ps.SeriesName+"/"+ps.Name, func(ctx context.Context) (interface{}, error) {
		sources, err := c.client.PackagesetSources(ctx, ps)
		if err != nil {
			return nil, err
		}
		c.sources.Add(key, sources)
		return sources, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}

// shared runs fetch once for concurrent misses of key. fetch does not stop
// when the caller that started it goes away; each caller stops waiting when
// its own ctx is done.
func (c *CachedClient) shared(ctx context.Context, key string, fetch func(context.Context) (interface{}, error)) (interface{}, error) {
	ch := c.group.DoChan(key, func() (interface{}, error) {
		return fetch(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		return res.Val, res.Err
	}
}

// PackageUploadCount is never cached: queues move quickly.
func (c *CachedClient) PackageUploadCount(ctx context.Context, series Series, status QueueStatus, pocket Pocket) (int, error) {
	return c.client.PackageUploadCount(ctx, series, status, pocket)
}

// FailedBuilds is never cached.
func (c *CachedClient) FailedBuilds(ctx context.Context, series Series, pocket Pocket) ([]Build, error) {
	return c.client.FailedBuilds(ctx, series, pocket)
}
