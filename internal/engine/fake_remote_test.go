package engine

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"family-lists-go/internal/policy"
)

const (
	ownerID  = "user-owner"
	viewerID = "user-viewer"
)

var testClock = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// fakeRemote is a map-backed lists service answering as a single actor.
type fakeRemote struct {
	mu       sync.Mutex
	actorID  string
	lists    map[string]*List
	order    []string
	ratings  map[string]map[string]int
	stars    map[string]map[string]bool
	comments map[string][]Comment
	calls    map[string]int
	fail     map[string]error
	toggles  map[string]bool
	gates    map[string]chan struct{}
	entered  chan string
	nextID   int
}

func newFakeRemote(actorID string) *fakeRemote {
	return &fakeRemote{
		actorID:  actorID,
		lists:    make(map[string]*List),
		ratings:  make(map[string]map[string]int),
		stars:    make(map[string]map[string]bool),
		comments: make(map[string][]Comment),
		calls:    make(map[string]int),
		fail:     make(map[string]error),
		toggles:  make(map[string]bool),
		gates:    make(map[string]chan struct{}),
		entered:  make(chan string, 8),
	}
}

func (r *fakeRemote) seed(id, creatorID string, public bool, items ...Item) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range items {
		items[i].ListID = id
	}
	r.lists[id] = &List{
		ID:        id,
		Title:     "list " + id,
		IsPublic:  public,
		CreatorID: creatorID,
		CreatedAt: testClock.Add(-time.Hour),
		UpdatedAt: testClock.Add(-time.Hour),
		Items:     items,
	}
	r.order = append(r.order, id)
}

func (r *fakeRemote) callCount(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[name]
}

func (r *fakeRemote) failWith(name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err == nil {
		delete(r.fail, name)
		return
	}
	r.fail[name] = err
}

// hold makes the next calls for key block until release is called.
func (r *fakeRemote) hold(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gates[key] = make(chan struct{})
}

func (r *fakeRemote) release(key string) {
	r.mu.Lock()
	gate := r.gates[key]
	delete(r.gates, key)
	r.mu.Unlock()
	if gate != nil {
		close(gate)
	}
}

func (r *fakeRemote) wait(key string) {
	r.mu.Lock()
	gate := r.gates[key]
	r.mu.Unlock()
	if gate == nil {
		return
	}
	r.entered <- key
	<-gate
}

func notFound(code, what string) error {
	return &RemoteError{Kind: ErrNotFound, Status: 404, Code: code, Message: what + " not found"}
}

func (r *fakeRemote) call(name string) error {
	r.calls[name]++
	return r.fail[name]
}

func (r *fakeRemote) id(prefix string) string {
	r.nextID++
	return "srv-" + prefix + "-" + strconv.Itoa(r.nextID)
}

func (r *fakeRemote) visible(listID string) (*List, error) {
	list, ok := r.lists[listID]
	if !ok || (!list.IsPublic && list.CreatorID != r.actorID) {
		return nil, notFound(CodeListNotFound, "list "+listID)
	}
	return list, nil
}

func (r *fakeRemote) summary(list *List) List {
	out := *list
	out.Items = nil
	out.Detail = DetailNotLoaded
	out.ItemsCount = len(list.Items)
	out.CompletedItemsCount = CountCompleted(list.Items)
	out.IsOwner = list.CreatorID == r.actorID
	out.IsStarred = r.stars[list.ID][r.actorID]
	return out
}

func (r *fakeRemote) detail(list *List) *List {
	out := r.summary(list)
	out.Items = cloneItems(list.Items)
	if out.Items == nil {
		out.Items = []Item{}
	}
	for i := range out.Items {
		out.Items[i].UserRating = r.ratings[out.Items[i].ID][r.actorID]
	}
	out.Detail = DetailLoaded
	return &out
}

func (r *fakeRemote) ListLists(ctx context.Context, scope Scope, page Page) ([]List, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.call("ListLists"); err != nil {
		return nil, err
	}
	out := make([]List, 0)
	for _, id := range r.order {
		list, ok := r.lists[id]
		if !ok {
			continue
		}
		if scope == ScopeMine && list.CreatorID != r.actorID {
			continue
		}
		if scope == ScopePublic && !list.IsPublic {
			continue
		}
		out = append(out, r.summary(list))
	}
	return out, nil
}

// GetListDetail snapshots the list before waiting on a "detail:<id>" hold, so
// a held answer is older than anything the service did meanwhile.
func (r *fakeRemote) GetListDetail(ctx context.Context, listID string) (*List, error) {
	r.mu.Lock()
	if err := r.call("GetListDetail"); err != nil {
		r.mu.Unlock()
		return nil, err
	}
	list, err := r.visible(listID)
	if err != nil {
		r.mu.Unlock()
		return nil, err
	}
	out := r.detail(list)
	r.mu.Unlock()
	r.wait("detail:" + listID)
	return out, nil
}

func (r *fakeRemote) CreateList(ctx context.Context, req CreateListRequest) (*List, error) {
	r.wait("create")
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.call("CreateList"); err != nil {
		return nil, err
	}
	list := &List{
		ID:          r.id("list"),
		Title:       req.Title,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		IsPublic:    req.IsPublic,
		CreatorID:   r.actorID,
		CreatedAt:   testClock,
		UpdatedAt:   testClock,
		Items:       []Item{},
	}
	r.lists[list.ID] = list
	r.order = append([]string{list.ID}, r.order...)
	return r.detail(list), nil
}

func (r *fakeRemote) UpdateList(ctx context.Context, listID string, req UpdateListRequest) (*List, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.call("UpdateList"); err != nil {
		return nil, err
	}
	list, err := r.visible(listID)
	if err != nil {
		return nil, err
	}
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
	list.UpdatedAt = testClock.Add(time.Minute)
	return r.detail(list), nil
}

func (r *fakeRemote) DeleteList(ctx context.Context, listID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.call("DeleteList"); err != nil {
		return err
	}
	if _, err := r.visible(listID); err != nil {
		return err
	}
	delete(r.lists, listID)
	return nil
}

func (r *fakeRemote) AddItem(ctx context.Context, listID string, req CreateItemRequest) (*Item, error) {
	r.wait("add:" + listID)
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.call("AddItem"); err != nil {
		return nil, err
	}
	list, err := r.visible(listID)
	if err != nil {
		return nil, err
	}
	item := Item{
		ID:          r.id("item"),
		ListID:      listID,
		Text:        req.Text,
		ImageURL:    req.ImageURL,
		Priority:    req.Priority,
		Details:     req.Details,
		Brand:       req.Brand,
		Store:       req.Store,
		ApproxPrice: req.ApproxPrice,
		CreatedAt:   testClock,
	}
	list.Items = append(list.Items, item)
	out := cloneItem(item)
	return &out, nil
}

func (r *fakeRemote) findItem(listID, itemID string) (*Item, error) {
	list, err := r.visible(listID)
	if err != nil {
		return nil, err
	}
	for i := range list.Items {
		if list.Items[i].ID == itemID {
			return &list.Items[i], nil
		}
	}
	return nil, notFound(CodeItemNotFound, "item "+itemID)
}

func (r *fakeRemote) ToggleItem(ctx context.Context, listID, itemID string) (bool, error) {
	r.wait(itemID)
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.call("ToggleItem"); err != nil {
		return false, err
	}
	item, err := r.findItem(listID, itemID)
	if err != nil {
		return false, err
	}
	item.IsCompleted = !item.IsCompleted
	if forced, ok := r.toggles[itemID]; ok {
		item.IsCompleted = forced
	}
	return item.IsCompleted, nil
}

func (r *fakeRemote) DeleteItem(ctx context.Context, listID, itemID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.call("DeleteItem"); err != nil {
		return err
	}
	list, err := r.visible(listID)
	if err != nil {
		return err
	}
	idx := indexOfItem(list.Items, itemID)
	if idx < 0 {
		return notFound(CodeItemNotFound, "item "+itemID)
	}
	list.Items = append(list.Items[:idx], list.Items[idx+1:]...)
	return nil
}

func (r *fakeRemote) RateItem(ctx context.Context, listID, itemID string, rating int) (*RatingResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.call("RateItem"); err != nil {
		return nil, err
	}
	item, err := r.findItem(listID, itemID)
	if err != nil {
		return nil, err
	}
	byActor := r.ratings[itemID]
	if byActor == nil {
		byActor = make(map[string]int)
		r.ratings[itemID] = byActor
	}
	if rating == 0 {
		delete(byActor, r.actorID)
	} else {
		byActor[r.actorID] = rating
	}
	sum := 0
	for _, value := range byActor {
		sum += value
	}
	item.TotalRatings = len(byActor)
	item.AverageRating = 0
	if len(byActor) > 0 {
		item.AverageRating = float64(sum) / float64(len(byActor))
	}
	return &RatingResult{AverageRating: item.AverageRating, TotalRatings: item.TotalRatings, UserRating: rating}, nil
}

func (r *fakeRemote) AddComment(ctx context.Context, listID, itemID, text string) (*Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.call("AddComment"); err != nil {
		return nil, err
	}
	item, err := r.findItem(listID, itemID)
	if err != nil {
		return nil, err
	}
	item.CommentsCount++
	count := item.CommentsCount
	comment := Comment{
		ID:        r.id("comment"),
		ItemID:    itemID,
		AuthorID:  r.actorID,
		Text:      text,
		CreatedAt: testClock,
	}
	r.comments[itemID] = append(r.comments[itemID], comment)
	comment.ItemCommentsCount = &count
	return &comment, nil
}

func (r *fakeRemote) ListComments(ctx context.Context, listID, itemID string) ([]Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.call("ListComments"); err != nil {
		return nil, err
	}
	if _, err := r.findItem(listID, itemID); err != nil {
		return nil, err
	}
	return cloneComments(r.comments[itemID]), nil
}

func (r *fakeRemote) ToggleStar(ctx context.Context, listID string) (*StarResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.call("ToggleStar"); err != nil {
		return nil, err
	}
	list, err := r.visible(listID)
	if err != nil {
		return nil, err
	}
	byActor := r.stars[listID]
	if byActor == nil {
		byActor = make(map[string]bool)
		r.stars[listID] = byActor
	}
	if byActor[r.actorID] {
		delete(byActor, r.actorID)
		list.StarsCount--
	} else {
		byActor[r.actorID] = true
		list.StarsCount++
	}
	return &StarResult{StarsCount: list.StarsCount, IsStarred: byActor[r.actorID]}, nil
}

func (r *fakeRemote) CopyList(ctx context.Context, listID string) (*CopyResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.call("CopyList"); err != nil {
		return nil, err
	}
	source, err := r.visible(listID)
	if err != nil {
		return nil, err
	}
	copied := &List{
		ID:                r.id("list"),
		Title:             source.Title,
		Description:       source.Description,
		CreatorID:         r.actorID,
		CreatedAt:         testClock,
		UpdatedAt:         testClock,
		OriginalListID:    source.ID,
		OriginalListTitle: source.Title,
	}
	for _, item := range source.Items {
		item.ID = r.id("item")
		item.ListID = copied.ID
		item.IsCompleted = false
		item.CommentsCount = 0
		item.AverageRating = 0
		item.TotalRatings = 0
		copied.Items = append(copied.Items, item)
	}
	r.lists[copied.ID] = copied
	r.order = append([]string{copied.ID}, r.order...)
	return &CopyResult{ListID: copied.ID, Title: copied.Title}, nil
}

type fakeUploader struct {
	url   string
	err   error
	calls int
}

func (u *fakeUploader) Upload(ctx context.Context, media Media) (string, error) {
	u.calls++
	if u.err != nil {
		return "", u.err
	}
	return u.url, nil
}

func newTestCoordinator(remote *fakeRemote, opts Options) *Coordinator {
	seq := 0
	if opts.Now == nil {
		opts.Now = func() time.Time { return testClock }
	}
	if opts.NewTempID == nil {
		opts.NewTempID = func() string {
			seq++
			return tempIDPrefix + strconv.Itoa(seq)
		}
	}
	session := StaticSession{Actor: policy.Actor{ID: remote.actorID, Name: "Actor " + remote.actorID}}
	return NewCoordinator(remote, session, opts)
}

func mustMount(t *testing.T, c *Coordinator, listID string) List {
	t.Helper()
	list, err := c.Mount(context.Background(), listID)
	if err != nil {
		t.Fatalf("mount %s: %v", listID, err)
	}
	return list
}

func items(states ...bool) []Item {
	out := make([]Item, len(states))
	for i, done := range states {
		out[i] = Item{
			ID:          "item-" + string(rune('a'+i)),
			Text:        "item " + string(rune('A'+i)),
			IsCompleted: done,
			CreatedAt:   testClock.Add(time.Duration(i) * time.Minute),
		}
	}
	return out
}

func assertStats(t *testing.T, list List) {
	t.Helper()
	if list.CompletedItemsCount < 0 || list.CompletedItemsCount > list.ItemsCount {
		t.Fatalf("expected 0 <= completed <= items, got %d/%d", list.CompletedItemsCount, list.ItemsCount)
	}
	if list.Detail != DetailLoaded {
		return
	}
	if list.ItemsCount != len(list.Items) {
		t.Fatalf("expected items count %d, got %d", len(list.Items), list.ItemsCount)
	}
	if want := CountCompleted(list.Items); list.CompletedItemsCount != want {
		t.Fatalf("expected completed count %d, got %d", want, list.CompletedItemsCount)
	}
}
