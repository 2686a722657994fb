package structure

import (
	"context"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/zjrosen/defluff/internal/cachemanager"
	"github.com/zjrosen/defluff/internal/log"
)

// DocumentKey identifies a text by content hash and length.
type DocumentKey string

// KeyOf returns the cache key for src.
func KeyOf(src string) DocumentKey {
	return DocumentKey(fmt.Sprintf("%016x:%d", xxhash.Sum64String(src), len(src)))
}

// Cache memoizes parsed documents by content, so re-scanning an unchanged
// document after a scroll or settings change skips the Markdown parse.
type Cache struct {
	store cachemanager.CacheManager[DocumentKey, *Document]
	rt    *cachemanager.ReadThroughCache[DocumentKey, *Document, string]
	ttl   time.Duration
}

// NewCache returns a cache over p whose entries live for ttl after last use.
func NewCache(p *Parser, ttl time.Duration) *Cache {
	store := cachemanager.NewInMemoryCacheManager[DocumentKey, *Document]("structure", ttl, cachemanager.DefaultCleanupInterval)
	parse := func(_ context.Context, src string) (*Document, error) {
		doc := p.Parse(src)
		log.Debug(log.CatCache, "parsed document", "bytes", doc.Size(), "nodes", len(doc.Nodes()))
		return doc, nil
	}
	return &Cache{
		store: store,
		rt:    cachemanager.NewReadThroughCache(cachemanager.CacheManager[DocumentKey, *Document](store), parse, false),
		ttl:   ttl,
	}
}

// Document returns the parsed structure of src.
func (c *Cache) Document(ctx context.Context, src string) *Document {
	doc, _ := c.rt.GetWithRefresh(ctx, KeyOf(src), src, c.ttl)
	return doc
}

// Len returns the number of cached documents.
func (c *Cache) Len() int {
	return c.store.Len()
}
