package engine

import (
	"context"
	"fmt"

	"family-lists-go/internal/policy"
)

// AddItem appends a temporary item, then swaps it for the confirmed one in
// place.
func (c *Coordinator) AddItem(ctx context.Context, listID string, in NewItem) (Item, error) {
	c.mu.Lock()
	_, _, err := c.authorizeLocked(OpAddItem, listID, "", policy.ActionAddItem, true)
	c.mu.Unlock()
	if err != nil {
		return Item{}, err
	}

	in = normalizeNewItem(in)
	if err := c.validateStruct(in); err != nil {
		return Item{}, c.reject(OpAddItem, listID, "", err)
	}
	imageURL, _, err := c.resolveMedia(ctx, OpAddItem, listID, "", in.Image)
	if err != nil {
		return Item{}, err
	}

	c.mu.Lock()
	_, list, err := c.authorizeLocked(OpAddItem, listID, "", policy.ActionAddItem, true)
	if err != nil {
		c.mu.Unlock()
		return Item{}, err
	}
	temp := Item{
		ID:          c.newTempID(),
		ListID:      listID,
		Text:        in.Text,
		ImageURL:    imageURL,
		Priority:    in.Priority,
		Details:     in.Details,
		Brand:       in.Brand,
		Store:       in.Store,
		ApproxPrice: in.ApproxPrice,
		CreatedAt:   c.now(),
		Pending:     true,
	}
	list.Items = append(list.Items, temp)
	RecomputeStats(list)
	epoch := c.beginItemOpLocked(listID)
	c.mu.Unlock()

	rctx, cancel := c.remoteContext(ctx)
	defer cancel()
	created, err := c.remote.AddItem(rctx, listID, CreateItemRequest{
		Text:        in.Text,
		ImageURL:    imageURL,
		Priority:    in.Priority,
		Details:     in.Details,
		Brand:       in.Brand,
		Store:       in.Store,
		ApproxPrice: in.ApproxPrice,
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil && created == nil {
		err = fmt.Errorf("%w: empty item response", ErrServer)
	}
	live, ok := c.finishItemOpLocked(OpAddItem, listID, epoch)
	if err != nil {
		if ok {
			if idx := indexOfItem(live.Items, temp.ID); idx >= 0 {
				live.Items = append(live.Items[:idx], live.Items[idx+1:]...)
			}
			RecomputeStats(live)
		}
		return Item{}, c.remoteFailureLocked(OpAddItem, listID, "", err)
	}

	confirmed := cloneItem(*created)
	confirmed.ListID = listID
	confirmed.Pending = false
	if ok {
		idx := indexOfItem(live.Items, temp.ID)
		if idx < 0 {
			// A reload may already carry the confirmed item.
			idx = indexOfItem(live.Items, confirmed.ID)
		}
		if idx >= 0 {
			live.Items[idx] = confirmed
		} else {
			live.Items = append(live.Items, confirmed)
		}
		RecomputeStats(live)
	}
	return cloneItem(confirmed), nil
}

// ToggleItem flips an item's completion flag. A second toggle for the same
// item while the first is unconfirmed fails with ErrBusy.
func (c *Coordinator) ToggleItem(ctx context.Context, listID, itemID string) (Item, error) {
	c.mu.Lock()
	_, list, err := c.authorizeLocked(OpToggleItem, listID, itemID, policy.ActionToggleItem, true)
	if err != nil {
		c.mu.Unlock()
		return Item{}, err
	}
	idx := indexOfItem(list.Items, itemID)
	if idx < 0 {
		c.mu.Unlock()
		return Item{}, c.reject(OpToggleItem, listID, itemID, ErrUnknownItem)
	}
	if list.Items[idx].Pending || !c.acquireLocked(itemKey(listID, itemID)) {
		c.mu.Unlock()
		return Item{}, c.reject(OpToggleItem, listID, itemID, ErrBusy)
	}
	previous := list.Items[idx].IsCompleted
	optimistic := !previous
	list.Items[idx].IsCompleted = optimistic
	RecomputeStats(list)
	epoch := c.beginItemOpLocked(listID)
	c.mu.Unlock()

	rctx, cancel := c.remoteContext(ctx)
	defer cancel()
	completed, err := c.remote.ToggleItem(rctx, listID, itemID)

	c.mu.Lock()
	c.releaseLocked(itemKey(listID, itemID))
	live, ok := c.finishItemOpLocked(OpToggleItem, listID, epoch)
	if err != nil {
		if ok {
			if i := indexOfItem(live.Items, itemID); i >= 0 {
				live.Items[i].IsCompleted = previous
			}
			RecomputeStats(live)
		}
		err = c.remoteFailureLocked(OpToggleItem, listID, itemID, err)
		c.mu.Unlock()
		return Item{}, err
	}

	result := Item{ID: itemID, ListID: listID, IsCompleted: completed}
	if ok {
		if i := indexOfItem(live.Items, itemID); i >= 0 {
			live.Items[i].IsCompleted = completed
			result = cloneItem(live.Items[i])
		}
		RecomputeStats(live)
	}
	c.mu.Unlock()

	if ok && completed != optimistic {
		c.log.Warn("lists.toggle_item: server disagreed, reloading", "list_id", listID, "item_id", itemID,
			"expected", optimistic, "got", completed)
		if _, err := c.LoadDetail(ctx, listID); err != nil {
			c.log.Warn("lists.toggle_item: reload failed", "err", err, "list_id", listID)
		}
	}
	return result, nil
}

// DeleteItem removes an item and puts it back at its old index if the service
// refuses.
func (c *Coordinator) DeleteItem(ctx context.Context, listID, itemID string) error {
	c.mu.Lock()
	_, list, err := c.authorizeLocked(OpDeleteItem, listID, itemID, policy.ActionDeleteItem, true)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	idx := indexOfItem(list.Items, itemID)
	if idx < 0 {
		c.mu.Unlock()
		return c.reject(OpDeleteItem, listID, itemID, ErrUnknownItem)
	}
	if list.Items[idx].Pending || !c.acquireLocked(itemKey(listID, itemID)) {
		c.mu.Unlock()
		return c.reject(OpDeleteItem, listID, itemID, ErrBusy)
	}
	removed := list.Items[idx]
	list.Items = append(list.Items[:idx:idx], list.Items[idx+1:]...)
	RecomputeStats(list)
	epoch := c.beginItemOpLocked(listID)
	c.mu.Unlock()

	rctx, cancel := c.remoteContext(ctx)
	defer cancel()
	err = c.remote.DeleteItem(rctx, listID, itemID)
	if itemGone(err, itemID) {
		c.log.Debug("lists.delete_item: already gone on the service", "list_id", listID, "item_id", itemID)
		err = nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.releaseLocked(itemKey(listID, itemID))
	live, ok := c.finishItemOpLocked(OpDeleteItem, listID, epoch)
	if err != nil {
		if ok && indexOfItem(live.Items, itemID) < 0 {
			live.Items = insertItem(live.Items, idx, removed)
			RecomputeStats(live)
		}
		return c.remoteFailureLocked(OpDeleteItem, listID, itemID, err)
	}
	// A reload that landed meanwhile may have brought the item back.
	c.dropItemLocked(listID, itemID)
	return nil
}

func insertItem(items []Item, idx int, item Item) []Item {
	if idx < 0 || idx > len(items) {
		idx = len(items)
	}
	out := make([]Item, 0, len(items)+1)
	out = append(out, items[:idx]...)
	out = append(out, item)
	return append(out, items[idx:]...)
}
