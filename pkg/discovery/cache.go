package discovery

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/exposome-labs/causeway/backend/pkg/common"
	"github.com/exposome-labs/causeway/backend/pkg/metrics"

	"golang.org/x/sync/singleflight"
)

// PathCache stores resolved path lookups for the lifetime of the process.
// Entries are derived deterministically from their inputs, so concurrent
// writers for the same key are idempotent and last-writer-wins is fine.
//
// Concurrent fetches for the same cold key are collapsed through
// singleflight so only one outbound lookup runs.
type PathCache struct {
	mu      sync.RWMutex
	entries map[string][]common.CausalPath
	group   singleflight.Group
}

// NewPathCache creates an empty path cache.
func NewPathCache() *PathCache {
	return &PathCache{entries: make(map[string][]common.CausalPath)}
}

// fetchDetachTimeout bounds a detached fetch so an abandoned lookup cannot
// run forever once every caller has gone away.
const fetchDetachTimeout = 30 * time.Second

func cacheKey(sourceID, targetID string, maxDepth int) string {
	return fmt.Sprintf("%s|%s|%d", sourceID, targetID, maxDepth)
}

// Get returns the cached paths for a key, if present.
func (c *PathCache) Get(sourceID, targetID string, maxDepth int) ([]common.CausalPath, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	paths, ok := c.entries[cacheKey(sourceID, targetID, maxDepth)]
	return paths, ok
}

// GetOrFetch returns the cached entry for the key, or runs fetch exactly once
// across concurrent callers and caches its result. Fetch errors are not
// cached.
func (c *PathCache) GetOrFetch(
	ctx context.Context,
	sourceID, targetID string,
	maxDepth int,
	fetch func(context.Context) ([]common.CausalPath, error),
) ([]common.CausalPath, error) {
	key := cacheKey(sourceID, targetID, maxDepth)

	c.mu.RLock()
	if paths, ok := c.entries[key]; ok {
		c.mu.RUnlock()
		metrics.CacheEvents.WithLabelValues("hit").Inc()
		return paths, nil
	}
	c.mu.RUnlock()

	metrics.CacheEvents.WithLabelValues("miss").Inc()

	// The fetch runs on a context detached from the caller that happened to
	// start it, so one cancelled request cannot fail the collapsed callers
	// waiting on the same key. Each caller still honors its own context.
	ch := c.group.DoChan(key, func() (any, error) {
		c.mu.RLock()
		if paths, ok := c.entries[key]; ok {
			c.mu.RUnlock()
			return paths, nil
		}
		c.mu.RUnlock()

		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fetchDetachTimeout)
		defer cancel()

		paths, err := fetch(fetchCtx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.entries[key] = paths
		c.mu.Unlock()

		return paths, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]common.CausalPath), nil
	}
}

// Len returns the number of cached entries.
func (c *PathCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
