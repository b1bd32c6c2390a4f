package engine

import "context"

// Mount registers an open detail view and loads the list's items.
func (c *Coordinator) Mount(ctx context.Context, listID string) (List, error) {
	c.mu.Lock()
	c.views[listID]++
	c.mu.Unlock()
	return c.LoadDetail(ctx, listID)
}

// Unmount unregisters a detail view. When the last view goes, the item array
// is released; results still in flight for it are then discarded.
func (c *Coordinator) Unmount(listID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.views[listID] > 1 {
		c.views[listID]--
		return
	}
	delete(c.views, listID)

	list := c.cache.get(listID)
	if list == nil || list.Detail != DetailLoaded || list.Pending {
		return
	}
	list.Items = nil
	list.Detail = DetailNotLoaded
	c.epochs[listID]++
	c.cache.dropComments(listID)
	if c.pending[listID] > 0 {
		list.Stale = true
	}
}

func (c *Coordinator) Mounted(listID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.views[listID] > 0
}

// HandleRemoteChange reacts to a push notification that a list changed on the
// service. A mounted list without unconfirmed item changes is reloaded; any
// other cached list is only flagged stale.
func (c *Coordinator) HandleRemoteChange(ctx context.Context, listID string) error {
	c.mu.Lock()
	list := c.cache.get(listID)
	if list == nil {
		c.mu.Unlock()
		return nil
	}
	if c.views[listID] == 0 || c.pending[listID] > 0 {
		list.Stale = true
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	_, err := c.LoadDetail(ctx, listID)
	return err
}

// HandleRemoteDelete drops a list the service reported as deleted from the
// cache and from both collections.
func (c *Coordinator) HandleRemoteDelete(listID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cache.get(listID) == nil {
		return
	}
	c.evictLocked(listID)
}
