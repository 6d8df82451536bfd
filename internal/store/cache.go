package store

import (
	"github.com/golang/groupcache/lru"

	"github.com/roach88/acstore/internal/containers"
)

type indexKey struct {
	containerType string
	index         int
}

// indexCache keeps recently written or read containers by (type, index).
// Entries are evicted least recently used first.
type indexCache struct {
	lru *lru.Cache
}

func newIndexCache(size int) *indexCache {
	return &indexCache{lru: lru.New(size)}
}

func (c *indexCache) get(containerType string, index int) (containers.AttributeContainer, bool) {
	v, ok := c.lru.Get(indexKey{containerType, index})
	if !ok {
		return nil, false
	}
	return v.(containers.AttributeContainer), true
}

func (c *indexCache) put(containerType string, index int, container containers.AttributeContainer) {
	c.lru.Add(indexKey{containerType, index}, container)
}

func (c *indexCache) Len() int {
	return c.lru.Len()
}

// Clear drops all entries.
func (c *indexCache) Clear() {
	c.lru.Clear()
}
