package inmemory

import (
	"fmt"
	"sync"
	"time"

	listsdomain "family-lists-go/internal/domain/lists"
)

type InMemoryPublicListsCache struct {
	mu    sync.RWMutex
	items map[string]publicListsItem
}

type publicListsItem struct {
	value     []listsdomain.ListView
	expiresAt time.Time
}

var _ listsdomain.PublicCache = (*InMemoryPublicListsCache)(nil)

func NewInMemoryPublicListsCache() *InMemoryPublicListsCache {
	return &InMemoryPublicListsCache{
		items: make(map[string]publicListsItem),
	}
}

func pageKey(limit, offset int) string {
	return fmt.Sprintf("%d:%d", limit, offset)
}

func (c *InMemoryPublicListsCache) GetPage(limit, offset int) ([]listsdomain.ListView, bool) {
	key := pageKey(limit, offset)
	now := time.Now()

	c.mu.RLock()
	item, ok := c.items[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}

	if !item.expiresAt.After(now) {
		c.mu.Lock()
		item, ok = c.items[key]
		if ok && !item.expiresAt.After(now) {
			delete(c.items, key)
		}
		c.mu.Unlock()
		return nil, false
	}

	return cloneListViews(item.value), true
}

func (c *InMemoryPublicListsCache) SetPage(limit, offset int, views []listsdomain.ListView, ttl time.Duration) {
	key := pageKey(limit, offset)
	if ttl <= 0 {
		c.mu.Lock()
		delete(c.items, key)
		c.mu.Unlock()
		return
	}

	c.mu.Lock()
	c.items[key] = publicListsItem{
		value:     cloneListViews(views),
		expiresAt: time.Now().Add(ttl),
	}
	c.mu.Unlock()
}

func (c *InMemoryPublicListsCache) Clear() {
	c.mu.Lock()
	c.items = make(map[string]publicListsItem)
	c.mu.Unlock()
}

// cloneListViews copies the summaries and drops viewer-specific fields.
func cloneListViews(views []listsdomain.ListView) []listsdomain.ListView {
	if views == nil {
		return nil
	}
	cloned := make([]listsdomain.ListView, len(views))
	for i := range views {
		cloned[i] = listsdomain.ListView{
			List:   views[i].List,
			Counts: views[i].Counts,
		}
	}
	return cloned
}
