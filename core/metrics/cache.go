package metrics

import (
	"context"
	"fmt"
	"sync"
)

type cacheEntry struct {
	done chan struct{}
	res  Result
	err  error
}

// Cache memoizes gateway answers for one scan. Each key is written once:
// the first caller claims the entry and queries, concurrent callers for the
// same key wait for that answer. Failed calls are not memoized.
type Cache struct {
	next     Gateway
	observer Observer
	entries  sync.Map
}

// NewCache creates an empty per-scan cache over next
func NewCache(next Gateway, observer Observer) *Cache {
	return &Cache{next: next, observer: observerOrNop(observer)}
}

// Query returns the memoized result for q, querying next at most once per
// key while that call succeeds.
func (c *Cache) Query(ctx context.Context, q Query) (Result, error) {
	key := q.Key()
	fresh := &cacheEntry{done: make(chan struct{})}

	for {
		v, loaded := c.entries.LoadOrStore(key, fresh)
		entry := v.(*cacheEntry)
		if !loaded {
			c.observer.CacheLookup(false)
			c.fill(ctx, key, entry, q)
			return entry.res, entry.err
		}

		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-entry.done:
		}
		if entry.err == nil {
			c.observer.CacheLookup(true)
			return entry.res, nil
		}
		// the owner failed, possibly on its own cancellation; claim again
		fresh = &cacheEntry{done: make(chan struct{})}
	}
}

// fill queries next for the entry this caller claimed. done is always
// closed, and a panicking gateway becomes an error for every waiter.
func (c *Cache) fill(ctx context.Context, key string, entry *cacheEntry, q Query) {
	defer func() {
		if p := recover(); p != nil {
			entry.res = Result{}
			entry.err = fmt.Errorf("metrics gateway panic: %v", p)
		}
		if entry.err != nil {
			c.entries.CompareAndDelete(key, entry)
		}
		close(entry.done)
	}()
	entry.res, entry.err = c.next.Query(ctx, q)
}

// Len returns the number of memoized keys
func (c *Cache) Len() int {
	n := 0
	c.entries.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
