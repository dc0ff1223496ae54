// Package addrcache remembers geocoder answers per normalized address so that
// lots sharing an address cost one upstream request.
package addrcache

import (
	"context"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/sells-group/lotmap/pkg/geocode"
)

// Entry is a cached geocoder answer. Found=false records that the address was
// looked up and had no match, which is distinct from a cache miss. Failed marks
// a lookup whose upstream call errored after its retries.
type Entry struct {
	Found  bool
	Failed bool
	Result geocode.Result
}

// FetchFunc performs the upstream lookup for a cache miss.
type FetchFunc func(ctx context.Context) (*geocode.Result, error)

// Stats reports cache effectiveness.
type Stats struct {
	Lookups int64
	Hits    int64
	Fetches int64
	Entries int
}

// Cache maps normalized address text to geocoder answers. It is safe for
// concurrent use.
type Cache struct {
	items   *gocache.Cache
	group   singleflight.Group
	lookups atomic.Int64
	fetches atomic.Int64
}

// New creates a cache. ttl <= 0 keeps entries for the life of the cache.
func New(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	// No janitor: expired entries are already hidden from Get.
	return &Cache{items: gocache.New(ttl, 0)}
}

// Get returns the entry for key, if any.
func (c *Cache) Get(key string) (Entry, bool) {
	v, ok := c.items.Get(key)
	if !ok {
		return Entry{}, false
	}
	e, ok := v.(Entry)
	return e, ok
}

// Put stores e under key with the default expiration.
func (c *Cache) Put(key string, e Entry) {
	c.items.SetDefault(key, e)
}

// Lookup returns the cached entry for key or calls fetch once to fill it.
// Concurrent lookups for the same key share a single fetch. A fetch error is
// returned to the caller that made the fetch and cached as a Failed entry, so
// the address is not queried again. Errors caused by ctx ending are not
// cached. hit reports whether the answer came from the cache.
func (c *Cache) Lookup(ctx context.Context, key string, fetch FetchFunc) (e Entry, hit bool, err error) {
	c.lookups.Add(1)
	if e, ok := c.Get(key); ok {
		return e, true, nil
	}

	fetched := false
	v, err, _ := c.group.Do(key, func() (any, error) {
		if e, ok := c.Get(key); ok {
			return e, nil
		}
		fetched = true
		c.fetches.Add(1)
		res, err := fetch(ctx)
		if err != nil {
			if ctx.Err() == nil {
				c.Put(key, Entry{Failed: true})
			}
			return Entry{}, err
		}
		e := Entry{}
		if res != nil && res.Matched {
			e = Entry{Found: true, Result: *res}
		}
		c.Put(key, e)
		return e, nil
	})
	if err != nil {
		return Entry{}, false, err
	}
	return v.(Entry), !fetched, nil
}

// Len returns the number of cached addresses, negative entries included.
func (c *Cache) Len() int {
	return c.items.ItemCount()
}

// Stats returns a snapshot of the counters.
func (c *Cache) Stats() Stats {
	lookups := c.lookups.Load()
	fetches := c.fetches.Load()
	return Stats{
		Lookups: lookups,
		Hits:    lookups - fetches,
		Fetches: fetches,
		Entries: c.Len(),
	}
}
