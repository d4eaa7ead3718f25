package description

import (
	"context"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/maheshrc27/postflow/internal/models"
)

// ShortcutSource lists the user-defined shortcuts.
type ShortcutSource interface {
	ListShortcuts(ctx context.Context) ([]*models.CustomShortcut, error)
}

// ConverterSource lists the tag converters.
type ConverterSource interface {
	ListTagConverters(ctx context.Context) ([]*models.TagConverter, error)
}

const cacheKey = "all"

// WrapLRUShortcuts caches the shortcut list for ttl. Call Purge on the
// returned value after shortcuts change.
func WrapLRUShortcuts(src ShortcutSource, ttl time.Duration) *CachedShortcuts {
	return &CachedShortcuts{next: src, cache: expirable.NewLRU[string, []*models.CustomShortcut](1, nil, ttl)}
}

type CachedShortcuts struct {
	next  ShortcutSource
	cache *expirable.LRU[string, []*models.CustomShortcut]
}

func (c *CachedShortcuts) ListShortcuts(ctx context.Context) ([]*models.CustomShortcut, error) {
	if cached, ok := c.cache.Get(cacheKey); ok {
		slog.Debug("shortcut cache hit")
		return cached, nil
	}
	res, err := c.next.ListShortcuts(ctx)
	if err != nil {
		return nil, err
	}
	c.cache.Add(cacheKey, res)
	return res, nil
}

func (c *CachedShortcuts) Purge() { c.cache.Purge() }

// WrapLRUConverters caches the tag converter list for ttl.
func WrapLRUConverters(src ConverterSource, ttl time.Duration) *CachedConverters {
	return &CachedConverters{next: src, cache: expirable.NewLRU[string, []*models.TagConverter](1, nil, ttl)}
}

type CachedConverters struct {
	next  ConverterSource
	cache *expirable.LRU[string, []*models.TagConverter]
}

func (c *CachedConverters) ListTagConverters(ctx context.Context) ([]*models.TagConverter, error) {
	if cached, ok := c.cache.Get(cacheKey); ok {
		return cached, nil
	}
	res, err := c.next.ListTagConverters(ctx)
	if err != nil {
		return nil, err
	}
	c.cache.Add(cacheKey, res)
	return res, nil
}

func (c *CachedConverters) Purge() { c.cache.Purge() }
