package visibility

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	defaultCacheSize = 256
	defaultCacheTTL  = time.Minute
)

// HierarchyCache memoizes built role hierarchies per organization. Hierarchy
// construction is cheap but the role list behind it is a store round trip, so
// batch callers resolving many records of one organization reuse a snapshot.
// Entries expire on TTL; the directory is eventually consistent anyway.
type HierarchyCache struct {
	entries *expirable.LRU[string, map[string]*HierarchyNode]
}

// NewHierarchyCache builds a cache holding up to size organizations for ttl.
// Non-positive arguments fall back to defaults.
func NewHierarchyCache(size int, ttl time.Duration) *HierarchyCache {
	if size <= 0 {
		size = defaultCacheSize
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &HierarchyCache{
		entries: expirable.NewLRU[string, map[string]*HierarchyNode](size, nil, ttl),
	}
}

func (c *HierarchyCache) get(organizationID string) (map[string]*HierarchyNode, bool) {
	if c == nil {
		return nil, false
	}
	return c.entries.Get(organizationID)
}

func (c *HierarchyCache) put(organizationID string, nodes map[string]*HierarchyNode) {
	if c == nil {
		return
	}
	c.entries.Add(organizationID, nodes)
}
