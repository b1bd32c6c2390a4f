package engine

import (
	"time"
)

// cache is the coordinator's private view of the lists on screen. It is not
// safe for concurrent use; the coordinator serializes access.
type cache struct {
	lists       map[string]*List
	collections map[Scope]*collection
	comments    map[string][]Comment
}

type collection struct {
	ids       []string
	fetchedAt time.Time
}

// removal remembers where a list sat so a failed delete can put it back.
type removal struct {
	list      *List
	positions map[Scope]int
	comments  map[string][]Comment
}

func newCache() *cache {
	return &cache{
		lists:       make(map[string]*List),
		collections: make(map[Scope]*collection),
		comments:    make(map[string][]Comment),
	}
}

func (c *cache) get(id string) *List {
	return c.lists[id]
}

func (c *cache) put(list *List) {
	if list.Detail == DetailLoaded && list.Items == nil {
		list.Items = []Item{}
	}
	RecomputeStats(list)
	c.lists[list.ID] = list
}

func (c *cache) collectionIDs(scope Scope) []string {
	col, ok := c.collections[scope]
	if !ok {
		return nil
	}
	return col.ids
}

func (c *cache) fetchedAt(scope Scope) (time.Time, bool) {
	col, ok := c.collections[scope]
	if !ok {
		return time.Time{}, false
	}
	return col.fetchedAt, true
}

func (c *cache) setCollection(scope Scope, ids []string, at time.Time) {
	c.collections[scope] = &collection{ids: ids, fetchedAt: at}
}

func (c *cache) appendCollection(scope Scope, ids []string, at time.Time) {
	col, ok := c.collections[scope]
	if !ok {
		c.setCollection(scope, ids, at)
		return
	}
	seen := make(map[string]struct{}, len(col.ids))
	for _, id := range col.ids {
		seen[id] = struct{}{}
	}
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		col.ids = append(col.ids, id)
	}
	col.fetchedAt = at
}

func (c *cache) insertInto(scope Scope, id string, index int) {
	col, ok := c.collections[scope]
	if !ok {
		col = &collection{}
		c.collections[scope] = col
	}
	if indexOf(col.ids, id) >= 0 {
		return
	}
	if index < 0 || index > len(col.ids) {
		index = len(col.ids)
	}
	col.ids = append(col.ids, "")
	copy(col.ids[index+1:], col.ids[index:])
	col.ids[index] = id
}

func (c *cache) removeFrom(scope Scope, id string) int {
	col, ok := c.collections[scope]
	if !ok {
		return -1
	}
	idx := indexOf(col.ids, id)
	if idx < 0 {
		return -1
	}
	col.ids = append(col.ids[:idx], col.ids[idx+1:]...)
	return idx
}

// replaceID swaps a temporary id for the confirmed one in place.
func (c *cache) replaceID(oldID, newID string) {
	for _, col := range c.collections {
		idx := indexOf(col.ids, oldID)
		if idx < 0 {
			continue
		}
		if indexOf(col.ids, newID) >= 0 {
			col.ids = append(col.ids[:idx], col.ids[idx+1:]...)
			continue
		}
		col.ids[idx] = newID
	}
}

// dropEmptyCollection forgets a collection that was never fetched and holds
// nothing.
func (c *cache) dropEmptyCollection(scope Scope) {
	col, ok := c.collections[scope]
	if ok && len(col.ids) == 0 && col.fetchedAt.IsZero() {
		delete(c.collections, scope)
	}
}

func (c *cache) remove(id string) removal {
	r := removal{
		list:      c.lists[id],
		positions: make(map[Scope]int),
		comments:  make(map[string][]Comment),
	}
	for scope := range c.collections {
		if idx := c.removeFrom(scope, id); idx >= 0 {
			r.positions[scope] = idx
		}
	}
	for key, thread := range c.comments {
		if threadListID(key) == id {
			r.comments[key] = thread
			delete(c.comments, key)
		}
	}
	delete(c.lists, id)
	return r
}

func (c *cache) restore(r removal) {
	if r.list == nil {
		return
	}
	c.lists[r.list.ID] = r.list
	for scope, idx := range r.positions {
		c.insertInto(scope, r.list.ID, idx)
	}
	for key, thread := range r.comments {
		c.comments[key] = thread
	}
}

func (c *cache) dropComments(listID string) {
	for key := range c.comments {
		if threadListID(key) == listID {
			delete(c.comments, key)
		}
	}
}

func (c *cache) snapshotList(id string) (List, bool) {
	list, ok := c.lists[id]
	if !ok {
		return List{}, false
	}
	return cloneList(*list), true
}

func (c *cache) snapshot(scope Scope) []List {
	ids := c.collectionIDs(scope)
	out := make([]List, 0, len(ids))
	for _, id := range ids {
		if list, ok := c.lists[id]; ok {
			out = append(out, cloneList(*list))
		}
	}
	return out
}

func threadKey(listID, itemID string) string {
	return listID + "/" + itemID
}

func threadListID(key string) string {
	for i := 0; i < len(key); i++ {
		if key[i] == '/' {
			return key[:i]
		}
	}
	return key
}

func indexOf(ids []string, id string) int {
	for i, candidate := range ids {
		if candidate == id {
			return i
		}
	}
	return -1
}

func indexOfItem(items []Item, id string) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}

func indexOfComment(comments []Comment, id string) int {
	for i := range comments {
		if comments[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneList(list List) List {
	list.Items = cloneItems(list.Items)
	return list
}

func cloneItems(items []Item) []Item {
	if items == nil {
		return nil
	}
	out := make([]Item, len(items))
	for i := range items {
		out[i] = cloneItem(items[i])
	}
	return out
}

func cloneItem(item Item) Item {
	if item.ApproxPrice != nil {
		price := *item.ApproxPrice
		item.ApproxPrice = &price
	}
	return item
}

func cloneComments(comments []Comment) []Comment {
	if comments == nil {
		return nil
	}
	out := make([]Comment, len(comments))
	for i := range comments {
		out[i] = comments[i]
		if comments[i].ItemCommentsCount != nil {
			count := *comments[i].ItemCommentsCount
			out[i].ItemCommentsCount = &count
		}
	}
	return out
}
