package httpserver

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// viewCache memoises derived views per store generation. Entries for older
// generations are never hit again and age out of the LRU.
type viewCache struct {
	lru *lru.Cache[string, any]
}

func newViewCache(size int) (*viewCache, error) {
	if size <= 0 {
		return &viewCache{}, nil
	}
	c, err := lru.New[string, any](size)
	if err != nil {
		return nil, fmt.Errorf("view cache: %w", err)
	}
	return &viewCache{lru: c}, nil
}

func (c *viewCache) get(key string, generation uint64, build func() any) any {
	if c.lru == nil {
		return build()
	}
	k := fmt.Sprintf("%s|g%d", key, generation)
	if v, ok := c.lru.Get(k); ok {
		return v
	}
	v := build()
	c.lru.Add(k, v)
	return v
}

func (c *viewCache) len() int {
	if c.lru == nil {
		return 0
	}
	return c.lru.Len()
}
