// Package engine keeps a client-side cache of checklists consistent with the
// lists service while applying user actions optimistically.
//
// Every mutation runs the same protocol: check the permission table, patch the
// cache, call the Remote, then either overwrite the patched fragment with the
// confirmed one or undo the patch. Derived item counts are recomputed after
// every change to an item array. The cache is owned by the Coordinator; callers
// only ever receive copies.
package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"family-lists-go/internal/policy"
	"family-lists-go/pkg/logger"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

const (
	defaultCollectionTTL   = 5 * time.Minute
	defaultMutationTimeout = 30 * time.Second
)

type Options struct {
	Uploader       Uploader
	UploadFallback UploadFallback
	Logger         logger.Logger
	// CollectionTTL is how long a fetched collection counts as fresh.
	CollectionTTL time.Duration
	// MutationTimeout bounds a remote call once it has been issued. The caller's
	// cancellation does not reach an issued mutation.
	MutationTimeout time.Duration
	Now             func() time.Time
	NewTempID       func() string
}

type Coordinator struct {
	remote   Remote
	session  Session
	uploads  Uploader
	fallback UploadFallback
	log      logger.Logger
	validate *validator.Validate

	collectionTTL   time.Duration
	mutationTimeout time.Duration
	now             func() time.Time
	newTempID       func() string

	mu       sync.Mutex
	cache    *cache
	inflight map[string]struct{}
	pending  map[string]int
	epochs   map[string]uint64
	views    map[string]int

	detailLoads singleflight.Group
}

func NewCoordinator(remote Remote, session Session, opts Options) *Coordinator {
	c := &Coordinator{
		remote:          remote,
		session:         session,
		uploads:         opts.Uploader,
		fallback:        opts.UploadFallback,
		log:             logger.OrNop(opts.Logger),
		validate:        newValidator(),
		collectionTTL:   opts.CollectionTTL,
		mutationTimeout: opts.MutationTimeout,
		now:             opts.Now,
		newTempID:       opts.NewTempID,
		cache:           newCache(),
		inflight:        make(map[string]struct{}),
		pending:         make(map[string]int),
		epochs:          make(map[string]uint64),
		views:           make(map[string]int),
	}
	if c.fallback == nil {
		c.fallback = ProceedWithoutImage
	}
	if c.collectionTTL <= 0 {
		c.collectionTTL = defaultCollectionTTL
	}
	if c.mutationTimeout <= 0 {
		c.mutationTimeout = defaultMutationTimeout
	}
	if c.now == nil {
		c.now = func() time.Time { return time.Now().UTC() }
	}
	if c.newTempID == nil {
		c.newTempID = func() string { return tempIDPrefix + uuid.NewString() }
	}
	return c
}

// List returns a copy of the cached list.
func (c *Coordinator) List(listID string) (List, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cache.snapshotList(listID)
}

// Lists returns copies of a collection in cache order.
func (c *Coordinator) Lists(scope Scope) []List {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cache.snapshot(scope)
}

// CollectionFresh reports whether the collection was fetched within the TTL.
func (c *Coordinator) CollectionFresh(scope Scope) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	at, ok := c.cache.fetchedAt(scope)
	if !ok {
		return false
	}
	return c.now().Sub(at) < c.collectionTTL
}

func (c *Coordinator) Comments(listID, itemID string) []Comment {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneComments(c.cache.comments[threadKey(listID, itemID)])
}

// Present returns the render order of a cached list's items.
func (c *Coordinator) Present(listID string) (Presentation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	list := c.cache.get(listID)
	if list == nil || list.Detail != DetailLoaded {
		return Presentation{}, false
	}
	return PresentItems(list.Items), true
}

// Allowed is the UI gate: the actions the current actor may offer on a list.
func (c *Coordinator) Allowed(listID string) []policy.Action {
	actor, ok := c.currentActor()
	if !ok {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	list := c.cache.get(listID)
	if list == nil {
		return nil
	}
	return policy.Allowed(actor, list.Target())
}

func (c *Coordinator) currentActor() (policy.Actor, bool) {
	if c.session == nil {
		return policy.Actor{}, false
	}
	actor, ok := c.session.CurrentActor()
	if !ok || !actor.Authenticated() {
		return policy.Actor{}, false
	}
	return actor, true
}

// authorizeLocked re-checks the permission table against the cached list.
// needDetail requires the item array to be loaded.
func (c *Coordinator) authorizeLocked(op Op, listID, itemID string, action policy.Action, needDetail bool) (policy.Actor, *List, error) {
	actor, ok := c.currentActor()
	if !ok {
		return policy.Actor{}, nil, c.reject(op, listID, itemID, ErrPermissionDenied)
	}
	list := c.cache.get(listID)
	if list == nil {
		return policy.Actor{}, nil, c.reject(op, listID, itemID, ErrNotLoaded)
	}
	if list.Pending {
		return policy.Actor{}, nil, c.reject(op, listID, itemID, ErrBusy)
	}
	if needDetail && list.Detail != DetailLoaded {
		return policy.Actor{}, nil, c.reject(op, listID, itemID, ErrNotLoaded)
	}
	if !policy.CanMutate(actor, list.Target(), action) {
		return policy.Actor{}, nil, c.reject(op, listID, itemID, ErrPermissionDenied)
	}
	return actor, list, nil
}

// reject reports a failure detected before any network call.
func (c *Coordinator) reject(op Op, listID, itemID string, err error) error {
	c.log.BusinessError("lists."+string(op)+": rejected", err, "list_id", listID, "item_id", itemID)
	return &ActionError{Op: op, ListID: listID, ItemID: itemID, Err: err}
}

// remoteFailureLocked reports a failed remote call. A not-found answer drops
// whatever is gone: the item when only the item is missing, otherwise the
// whole list since it was deleted or is no longer visible.
func (c *Coordinator) remoteFailureLocked(op Op, listID, itemID string, err error) error {
	switch {
	case itemGone(err, itemID):
		c.dropItemLocked(listID, itemID)
	case errors.Is(err, ErrNotFound) && listID != "":
		c.evictLocked(listID)
	}
	if errors.Is(err, ErrNetwork) || errors.Is(err, ErrServer) {
		c.log.Warn("lists."+string(op)+": remote failed", "err", err, "list_id", listID, "item_id", itemID)
	} else {
		c.log.BusinessError("lists."+string(op)+": remote refused", err, "list_id", listID, "item_id", itemID)
	}
	return &ActionError{Op: op, ListID: listID, ItemID: itemID, Err: err}
}

// dropItemLocked forgets an item the service no longer has.
func (c *Coordinator) dropItemLocked(listID, itemID string) {
	delete(c.cache.comments, threadKey(listID, itemID))
	list := c.cache.get(listID)
	if list == nil {
		return
	}
	if idx := indexOfItem(list.Items, itemID); idx >= 0 {
		list.Items = append(list.Items[:idx:idx], list.Items[idx+1:]...)
		RecomputeStats(list)
	} else if list.Detail != DetailLoaded {
		list.Stale = true
	}
	c.log.Debug("lists.cache: dropped item", "list_id", listID, "item_id", itemID)
}

func (c *Coordinator) evictLocked(listID string) {
	c.cache.remove(listID)
	c.epochs[listID]++
	c.log.Debug("lists.cache: evicted", "list_id", listID)
}

func (c *Coordinator) acquireLocked(key string) bool {
	if _, busy := c.inflight[key]; busy {
		return false
	}
	c.inflight[key] = struct{}{}
	return true
}

func (c *Coordinator) releaseLocked(key string) {
	delete(c.inflight, key)
}

// beginItemOpLocked registers an item-level mutation and returns the epoch its
// result must match to be applied.
func (c *Coordinator) beginItemOpLocked(listID string) uint64 {
	c.pending[listID]++
	return c.epochs[listID]
}

// finishItemOpLocked returns the live list when the result may be applied.
// A result for a released or replaced item array is discarded and the summary
// is flagged stale.
func (c *Coordinator) finishItemOpLocked(op Op, listID string, epoch uint64) (*List, bool) {
	if c.pending[listID] > 0 {
		c.pending[listID]--
		if c.pending[listID] == 0 {
			delete(c.pending, listID)
		}
	}
	list := c.cache.get(listID)
	if list == nil {
		c.log.Debug("lists."+string(op)+": result discarded, list gone", "list_id", listID)
		return nil, false
	}
	if c.epochs[listID] != epoch || list.Detail != DetailLoaded {
		list.Stale = true
		c.log.Debug("lists."+string(op)+": result discarded, view released", "list_id", listID)
		return nil, false
	}
	return list, true
}

// remoteContext detaches an issued mutation from the caller's cancellation so
// navigating away does not abort it.
func (c *Coordinator) remoteContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), c.mutationTimeout)
}

func itemKey(listID, itemID string) string {
	return "item:" + listID + "/" + itemID
}

func rateKey(listID, itemID string) string {
	return "rate:" + listID + "/" + itemID
}

func starKey(listID string) string {
	return "star:" + listID
}

func editKey(listID string) string {
	return "edit:" + listID
}
