package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"family-lists-go/internal/policy"
	"golang.org/x/sync/errgroup"
)

// LoadLists fetches one page of a collection. Offset 0 replaces the cached
// collection, later pages append to it.
func (c *Coordinator) LoadLists(ctx context.Context, scope Scope, page Page) ([]List, error) {
	fetched, err := c.remote.ListLists(ctx, scope, page)
	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		return nil, c.remoteFailureLocked(OpLoadLists, "", "", err)
	}

	ids := make([]string, 0, len(fetched))
	for i := range fetched {
		summary := cloneList(fetched[i])
		if summary.ID == "" {
			continue
		}
		c.mergeSummaryLocked(&summary)
		ids = append(ids, summary.ID)
	}

	now := c.now()
	if page.Offset == 0 {
		c.cache.setCollection(scope, append(c.pendingIDsLocked(scope), ids...), now)
	} else {
		c.cache.appendCollection(scope, ids, now)
	}
	return c.cache.snapshot(scope), nil
}

// mergeSummaryLocked stores a collection entry without dropping item detail or
// an unconfirmed star toggle already in the cache.
func (c *Coordinator) mergeSummaryLocked(summary *List) {
	existing := c.cache.get(summary.ID)
	if existing != nil && existing.Detail == DetailLoaded {
		summary.Items = existing.Items
		summary.Detail = DetailLoaded
	}
	if existing != nil {
		if _, starring := c.inflight[starKey(summary.ID)]; starring {
			summary.IsStarred = existing.IsStarred
			summary.StarsCount = existing.StarsCount
		}
		summary.Stale = existing.Stale && c.pending[summary.ID] > 0
	}
	c.cache.put(summary)
}

// pendingIDsLocked keeps lists that only exist locally at the front of a
// collection being replaced.
func (c *Coordinator) pendingIDsLocked(scope Scope) []string {
	var out []string
	for _, id := range c.cache.collectionIDs(scope) {
		if list := c.cache.get(id); list != nil && list.Pending {
			out = append(out, id)
		}
	}
	return out
}

// LoadDetail fetches a list with its items. Concurrent calls for the same list
// share one request.
func (c *Coordinator) LoadDetail(ctx context.Context, listID string) (List, error) {
	v, err, _ := c.detailLoads.Do(listID, func() (any, error) {
		return c.remote.GetListDetail(ctx, listID)
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		return List{}, c.remoteFailureLocked(OpLoadDetail, listID, "", err)
	}
	detail, _ := v.(*List)
	if detail == nil {
		return List{}, c.remoteFailureLocked(OpLoadDetail, listID, "", fmt.Errorf("%w: empty detail", ErrServer))
	}

	fresh := cloneList(*detail)
	fresh.ID = listID
	fresh.Detail = DetailLoaded
	if existing := c.cache.get(listID); existing != nil {
		if _, starring := c.inflight[starKey(listID)]; starring {
			fresh.IsStarred = existing.IsStarred
			fresh.StarsCount = existing.StarsCount
		}
	}
	// Item results still in flight are applied by id to the new array.
	fresh.Stale = c.pending[listID] > 0
	c.cache.put(&fresh)
	return cloneList(fresh), nil
}

// Refresh reloads the first page of both collections.
func (c *Coordinator) Refresh(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, scope := range []Scope{ScopeMine, ScopePublic} {
		g.Go(func() error {
			_, err := c.LoadLists(gctx, scope, Page{})
			return err
		})
	}
	return g.Wait()
}

func (c *Coordinator) CreateList(ctx context.Context, in NewList) (List, error) {
	actor, ok := c.currentActor()
	if !ok {
		return List{}, c.reject(OpCreateList, "", "", ErrPermissionDenied)
	}
	in = normalizeNewList(in)
	if err := c.validateStruct(in); err != nil {
		return List{}, c.reject(OpCreateList, "", "", err)
	}
	imageURL, _, err := c.resolveMedia(ctx, OpCreateList, "", "", in.Image)
	if err != nil {
		return List{}, err
	}

	now := c.now()
	temp := &List{
		ID:           c.newTempID(),
		Title:        in.Title,
		Description:  in.Description,
		ImageURL:     imageURL,
		IsPublic:     in.IsPublic,
		CreatorID:    actor.ID,
		CreatorName:  actor.Name,
		CreatorPhoto: actor.PhotoURL,
		CreatedAt:    now,
		UpdatedAt:    now,
		Items:        []Item{},
		Detail:       DetailLoaded,
		IsOwner:      true,
		Pending:      true,
	}

	c.mu.Lock()
	_, hadMine := c.cache.collections[ScopeMine]
	c.cache.put(temp)
	c.cache.insertInto(ScopeMine, temp.ID, 0)
	c.mu.Unlock()

	rctx, cancel := c.remoteContext(ctx)
	defer cancel()
	created, err := c.remote.CreateList(rctx, CreateListRequest{
		Title:       in.Title,
		Description: in.Description,
		ImageURL:    imageURL,
		IsPublic:    in.IsPublic,
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil && created == nil {
		err = fmt.Errorf("%w: empty create response", ErrServer)
	}
	if err != nil {
		c.cache.remove(temp.ID)
		if !hadMine {
			c.cache.dropEmptyCollection(ScopeMine)
		}
		return List{}, c.remoteFailureLocked(OpCreateList, "", "", err)
	}

	confirmed := cloneList(*created)
	confirmed.Detail = DetailLoaded
	confirmed.Pending = false
	if c.cache.get(temp.ID) != nil {
		delete(c.cache.lists, temp.ID)
		c.cache.replaceID(temp.ID, confirmed.ID)
	} else {
		c.cache.insertInto(ScopeMine, confirmed.ID, 0)
	}
	c.cache.put(&confirmed)
	c.log.Debug("lists.create_list: confirmed", "list_id", confirmed.ID, "temp_id", temp.ID)
	return cloneList(confirmed), nil
}

type listMetadata struct {
	title       string
	description string
	imageURL    string
	isPublic    bool
	updatedAt   time.Time
}

func metadataOf(list *List) listMetadata {
	return listMetadata{
		title:       list.Title,
		description: list.Description,
		imageURL:    list.ImageURL,
		isPublic:    list.IsPublic,
		updatedAt:   list.UpdatedAt,
	}
}

func (m listMetadata) applyTo(list *List) {
	list.Title = m.title
	list.Description = m.description
	list.ImageURL = m.imageURL
	list.IsPublic = m.isPublic
	list.UpdatedAt = m.updatedAt
}

func (c *Coordinator) UpdateList(ctx context.Context, listID string, patch ListPatch) (List, error) {
	c.mu.Lock()
	_, _, err := c.authorizeLocked(OpUpdateList, listID, "", policy.ActionEditList, false)
	c.mu.Unlock()
	if err != nil {
		return List{}, err
	}

	patch = normalizeListPatch(patch)
	if patch.empty() {
		return List{}, c.reject(OpUpdateList, listID, "", fmt.Errorf("%w: no fields to update", ErrValidation))
	}
	if patch.Title != nil && *patch.Title == "" {
		return List{}, c.reject(OpUpdateList, listID, "", fmt.Errorf("%w: title is required", ErrValidation))
	}
	if err := c.validateStruct(patch); err != nil {
		return List{}, c.reject(OpUpdateList, listID, "", err)
	}

	req := UpdateListRequest{
		Title:       patch.Title,
		Description: patch.Description,
		IsPublic:    patch.IsPublic,
	}
	if patch.Image != nil {
		if patch.Image.IsZero() {
			cleared := ""
			req.ImageURL = &cleared
		} else {
			url, ok, err := c.resolveMedia(ctx, OpUpdateList, listID, "", *patch.Image)
			if err != nil {
				return List{}, err
			}
			if ok {
				req.ImageURL = &url
			}
		}
	}

	c.mu.Lock()
	_, list, err := c.authorizeLocked(OpUpdateList, listID, "", policy.ActionEditList, false)
	if err != nil {
		c.mu.Unlock()
		return List{}, err
	}
	if !c.acquireLocked(editKey(listID)) {
		c.mu.Unlock()
		return List{}, c.reject(OpUpdateList, listID, "", ErrBusy)
	}
	before := metadataOf(list)
	if req.Title != nil {
		list.Title = *req.Title
	}
	if req.Description != nil {
		list.Description = *req.Description
	}
	if req.ImageURL != nil {
		list.ImageURL = *req.ImageURL
	}
	if req.IsPublic != nil {
		list.IsPublic = *req.IsPublic
	}
	list.UpdatedAt = c.now()
	c.mu.Unlock()

	rctx, cancel := c.remoteContext(ctx)
	defer cancel()
	updated, err := c.remote.UpdateList(rctx, listID, req)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.releaseLocked(editKey(listID))
	if err == nil && updated == nil {
		err = fmt.Errorf("%w: empty update response", ErrServer)
	}
	if err != nil {
		if live := c.cache.get(listID); live != nil {
			before.applyTo(live)
		}
		return List{}, c.remoteFailureLocked(OpUpdateList, listID, "", err)
	}

	live := c.cache.get(listID)
	if live == nil {
		return cloneList(*updated), nil
	}
	metadataOf(updated).applyTo(live)
	if !live.IsPublic {
		c.cache.removeFrom(ScopePublic, listID)
	}
	return cloneList(*live), nil
}

func (c *Coordinator) DeleteList(ctx context.Context, listID string) error {
	c.mu.Lock()
	if _, _, err := c.authorizeLocked(OpDeleteList, listID, "", policy.ActionDeleteList, false); err != nil {
		c.mu.Unlock()
		return err
	}
	if !c.acquireLocked(editKey(listID)) {
		c.mu.Unlock()
		return c.reject(OpDeleteList, listID, "", ErrBusy)
	}
	removed := c.cache.remove(listID)
	c.epochs[listID]++
	c.mu.Unlock()

	rctx, cancel := c.remoteContext(ctx)
	defer cancel()
	err := c.remote.DeleteList(rctx, listID)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.releaseLocked(editKey(listID))
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			c.cache.restore(removed)
		}
		return c.remoteFailureLocked(OpDeleteList, listID, "", err)
	}
	delete(c.views, listID)
	return nil
}

// CopyList asks the service for a private copy of a public list and inserts it
// at the front of the actor's collection.
func (c *Coordinator) CopyList(ctx context.Context, listID string) (List, error) {
	c.mu.Lock()
	actor, source, err := c.authorizeLocked(OpCopyList, listID, "", policy.ActionCopy, false)
	if err != nil {
		c.mu.Unlock()
		return List{}, err
	}
	sourceTitle := source.Title
	c.mu.Unlock()

	rctx, cancel := c.remoteContext(ctx)
	defer cancel()
	res, err := c.remote.CopyList(rctx, listID)
	if err == nil && (res == nil || res.ListID == "") {
		err = fmt.Errorf("%w: empty copy response", ErrServer)
	}
	if err != nil {
		c.mu.Lock()
		defer c.mu.Unlock()
		return List{}, c.remoteFailureLocked(OpCopyList, listID, "", err)
	}

	detail, detailErr := c.remote.GetListDetail(rctx, res.ListID)

	c.mu.Lock()
	defer c.mu.Unlock()
	var copied List
	if detailErr == nil && detail != nil {
		copied = cloneList(*detail)
		copied.Detail = DetailLoaded
	} else {
		c.log.Warn("lists.copy_list: copy created, detail not fetched", "err", detailErr, "list_id", res.ListID)
		copied = List{
			ID:           res.ListID,
			Title:        res.Title,
			CreatorID:    actor.ID,
			CreatorName:  actor.Name,
			CreatorPhoto: actor.PhotoURL,
			CreatedAt:    c.now(),
			Detail:       DetailNotLoaded,
			Stale:        true,
		}
	}
	copied.ID = res.ListID
	copied.IsOwner = true
	if copied.OriginalListID == "" {
		copied.OriginalListID = listID
	}
	if copied.OriginalListTitle == "" {
		copied.OriginalListTitle = sourceTitle
	}
	c.cache.put(&copied)
	c.cache.insertInto(ScopeMine, copied.ID, 0)
	return cloneList(copied), nil
}
