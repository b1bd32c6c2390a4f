package lists_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	listsdomain "family-lists-go/internal/domain/lists"
	"family-lists-go/internal/policy"
	"family-lists-go/internal/repository/inmemory"
)

var (
	owner  = policy.Actor{ID: "owner", Name: "Olga"}
	viewer = policy.Actor{ID: "viewer", Name: "Vic"}
	other  = policy.Actor{ID: "other", Name: "Oscar"}
)

type recordingNotifier struct {
	mu      sync.Mutex
	changed []string
	deleted []string
}

func (n *recordingNotifier) ListChanged(listID, itemID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changed = append(n.changed, listID+"/"+itemID)
}

func (n *recordingNotifier) ListDeleted(listID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.deleted = append(n.deleted, listID)
}

func newTestService(t *testing.T) (*listsdomain.Service, *inmemory.ListsRepository, *recordingNotifier) {
	t.Helper()
	repo := inmemory.NewListsRepository()
	notifier := &recordingNotifier{}
	service := listsdomain.NewService(repo, listsdomain.Options{
		Cache:    inmemory.NewInMemoryPublicListsCache(),
		CacheTTL: time.Minute,
		Notifier: notifier,
	})
	return service, repo, notifier
}

func mustCreateList(t *testing.T, service *listsdomain.Service, actor policy.Actor, title string, public bool) *listsdomain.ListView {
	t.Helper()
	view, err := service.CreateList(context.Background(), actor, listsdomain.CreateListInput{Title: title, IsPublic: public})
	if err != nil {
		t.Fatalf("create list: %v", err)
	}
	return view
}

func mustAddItem(t *testing.T, service *listsdomain.Service, actor policy.Actor, listID, text string) *listsdomain.ItemView {
	t.Helper()
	item, err := service.AddItem(context.Background(), actor, listsdomain.CreateItemInput{ListID: listID, Text: text})
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	return item
}

func TestPrivateListHiddenFromOthers(t *testing.T) {
	service, _, _ := newTestService(t)
	list := mustCreateList(t, service, owner, "Secret", false)

	if _, err := service.GetList(context.Background(), viewer, list.List.ID); !errors.Is(err, listsdomain.ErrListNotFound) {
		t.Fatalf("expected list not found, got %v", err)
	}
	if _, err := service.AddItem(context.Background(), viewer, listsdomain.CreateItemInput{ListID: list.List.ID, Text: "x"}); !errors.Is(err, listsdomain.ErrListNotFound) {
		t.Fatalf("expected list not found for add, got %v", err)
	}
	if _, err := service.GetList(context.Background(), owner, list.List.ID); err != nil {
		t.Fatalf("expected owner to read own list, got %v", err)
	}
}

func TestCreateListValidation(t *testing.T) {
	service, _, _ := newTestService(t)
	if _, err := service.CreateList(context.Background(), policy.Actor{}, listsdomain.CreateListInput{Title: "x"}); !errors.Is(err, listsdomain.ErrUnauthenticated) {
		t.Fatalf("expected unauthenticated, got %v", err)
	}
	if _, err := service.CreateList(context.Background(), owner, listsdomain.CreateListInput{Title: "   "}); !errors.Is(err, listsdomain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	view := mustCreateList(t, service, owner, "  Groceries  ", true)
	if view.List.Title != "Groceries" || view.List.CreatorName != "Olga" {
		t.Fatalf("unexpected list %+v", view.List)
	}
}

func TestToggleItemRules(t *testing.T) {
	service, _, notifier := newTestService(t)
	list := mustCreateList(t, service, owner, "Public", true)
	item := mustAddItem(t, service, viewer, list.List.ID, "milk")

	if _, err := service.ToggleItem(context.Background(), viewer, list.List.ID, item.Item.ID); !errors.Is(err, listsdomain.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}

	toggled, err := service.ToggleItem(context.Background(), owner, list.List.ID, item.Item.ID)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if !toggled.IsCompleted {
		t.Fatalf("expected item completed")
	}

	detail, err := service.GetList(context.Background(), owner, list.List.ID)
	if err != nil {
		t.Fatalf("get list: %v", err)
	}
	if detail.Counts.Total != 1 || detail.Counts.Completed != 1 {
		t.Fatalf("expected counts 1/1, got %+v", detail.Counts)
	}
	if len(notifier.changed) != 2 {
		t.Fatalf("expected 2 change notifications, got %v", notifier.changed)
	}
}

func TestToggleMissingItem(t *testing.T) {
	service, _, _ := newTestService(t)
	list := mustCreateList(t, service, owner, "Mine", false)
	if _, err := service.ToggleItem(context.Background(), owner, list.List.ID, "missing"); !errors.Is(err, listsdomain.ErrItemNotFound) {
		t.Fatalf("expected item not found, got %v", err)
	}
}

func TestRateItemAggregates(t *testing.T) {
	service, _, _ := newTestService(t)
	list := mustCreateList(t, service, owner, "Public", true)
	item := mustAddItem(t, service, owner, list.List.ID, "cake")
	ctx := context.Background()

	if _, err := service.RateItem(ctx, viewer, list.List.ID, item.Item.ID, 4); err != nil {
		t.Fatalf("rate: %v", err)
	}
	res, err := service.RateItem(ctx, other, list.List.ID, item.Item.ID, 5)
	if err != nil {
		t.Fatalf("rate: %v", err)
	}
	if res.TotalRatings != 2 || res.AverageRating != 4.5 || res.UserRating != 5 {
		t.Fatalf("unexpected aggregates %+v", res)
	}

	res, err = service.RateItem(ctx, viewer, list.List.ID, item.Item.ID, 0)
	if err != nil {
		t.Fatalf("retract: %v", err)
	}
	if res.TotalRatings != 1 || res.AverageRating != 5 || res.UserRating != 0 {
		t.Fatalf("unexpected aggregates after retract %+v", res)
	}

	detail, err := service.GetList(ctx, other, list.List.ID)
	if err != nil {
		t.Fatalf("get list: %v", err)
	}
	if detail.Items[0].UserRating != 5 || detail.Items[0].Item.TotalRatings != 1 {
		t.Fatalf("unexpected item view %+v", detail.Items[0])
	}

	if _, err := service.RateItem(ctx, viewer, list.List.ID, item.Item.ID, 6); !errors.Is(err, listsdomain.ErrInvalidInput) {
		t.Fatalf("expected invalid rating, got %v", err)
	}
}

func TestRatePrivateListForbiddenForOwner(t *testing.T) {
	service, _, _ := newTestService(t)
	list := mustCreateList(t, service, owner, "Mine", false)
	item := mustAddItem(t, service, owner, list.List.ID, "tea")
	if _, err := service.RateItem(context.Background(), owner, list.List.ID, item.Item.ID, 3); !errors.Is(err, listsdomain.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestToggleStar(t *testing.T) {
	service, _, _ := newTestService(t)
	list := mustCreateList(t, service, owner, "Public", true)
	ctx := context.Background()

	res, err := service.ToggleStar(ctx, viewer, list.List.ID)
	if err != nil {
		t.Fatalf("star: %v", err)
	}
	if res.StarsCount != 1 || !res.IsStarred {
		t.Fatalf("expected starred with 1, got %+v", res)
	}

	views, err := service.ListLists(ctx, viewer, listsdomain.ListFilter{Scope: listsdomain.ScopePublic})
	if err != nil {
		t.Fatalf("list lists: %v", err)
	}
	if len(views) != 1 || !views[0].IsStarred || views[0].List.StarsCount != 1 {
		t.Fatalf("unexpected public page %+v", views)
	}

	res, err = service.ToggleStar(ctx, viewer, list.List.ID)
	if err != nil {
		t.Fatalf("unstar: %v", err)
	}
	if res.StarsCount != 0 || res.IsStarred {
		t.Fatalf("expected unstarred with 0, got %+v", res)
	}

	if _, err := service.ToggleStar(ctx, owner, list.List.ID); !errors.Is(err, listsdomain.ErrForbidden) {
		t.Fatalf("expected creator star to be forbidden, got %v", err)
	}
}

func TestCopyListIsIndependent(t *testing.T) {
	service, _, _ := newTestService(t)
	ctx := context.Background()
	source := mustCreateList(t, service, owner, "Picnic", true)
	first := mustAddItem(t, service, owner, source.List.ID, "bread")
	mustAddItem(t, service, owner, source.List.ID, "cheese")
	if _, err := service.ToggleItem(ctx, owner, source.List.ID, first.Item.ID); err != nil {
		t.Fatalf("toggle: %v", err)
	}

	copied, err := service.CopyList(ctx, viewer, source.List.ID)
	if err != nil {
		t.Fatalf("copy: %v", err)
	}
	if copied.IsPublic || copied.CreatorID != viewer.ID {
		t.Fatalf("expected private copy owned by viewer, got %+v", copied)
	}
	if copied.OriginalListID == nil || *copied.OriginalListID != source.List.ID || *copied.OriginalListTitle != "Picnic" {
		t.Fatalf("expected back reference, got %+v", copied)
	}

	detail, err := service.GetList(ctx, viewer, copied.ID)
	if err != nil {
		t.Fatalf("get copy: %v", err)
	}
	if detail.Counts.Total != 2 || detail.Counts.Completed != 0 {
		t.Fatalf("expected 2 fresh items, got %+v", detail.Counts)
	}
	if detail.Items[0].Item.Text != "bread" || detail.Items[1].Item.Text != "cheese" {
		t.Fatalf("expected item order preserved, got %+v", detail.Items)
	}

	if _, err := service.ToggleItem(ctx, viewer, copied.ID, detail.Items[1].Item.ID); err != nil {
		t.Fatalf("toggle copy: %v", err)
	}
	src, err := service.GetList(ctx, owner, source.List.ID)
	if err != nil {
		t.Fatalf("get source: %v", err)
	}
	if src.Counts.Completed != 1 {
		t.Fatalf("expected source unaffected, got %+v", src.Counts)
	}

	if _, err := service.CopyList(ctx, owner, source.List.ID); !errors.Is(err, listsdomain.ErrForbidden) {
		t.Fatalf("expected creator copy to be forbidden, got %v", err)
	}
}

func TestAddCommentCounts(t *testing.T) {
	service, _, _ := newTestService(t)
	ctx := context.Background()
	list := mustCreateList(t, service, owner, "Public", true)
	item := mustAddItem(t, service, owner, list.List.ID, "wine")

	res, err := service.AddComment(ctx, viewer, list.List.ID, item.Item.ID, "  nice  ")
	if err != nil {
		t.Fatalf("comment: %v", err)
	}
	if res.ItemCommentsCount != 1 || res.Comment.Text != "nice" || res.Comment.AuthorName != "Vic" {
		t.Fatalf("unexpected comment result %+v", res)
	}

	comments, err := service.ListComments(ctx, other, list.List.ID, item.Item.ID)
	if err != nil {
		t.Fatalf("list comments: %v", err)
	}
	if len(comments) != 1 {
		t.Fatalf("expected 1 comment, got %d", len(comments))
	}

	views, err := service.ListLists(ctx, other, listsdomain.ListFilter{Scope: listsdomain.ScopePublic})
	if err != nil {
		t.Fatalf("list lists: %v", err)
	}
	if views[0].Counts.Comments != 1 {
		t.Fatalf("expected list comment count 1, got %d", views[0].Counts.Comments)
	}

	if _, err := service.AddComment(ctx, viewer, list.List.ID, item.Item.ID, "   "); !errors.Is(err, listsdomain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestPublicPageIsCachedUntilMutation(t *testing.T) {
	service, repo, _ := newTestService(t)
	ctx := context.Background()
	list := mustCreateList(t, service, owner, "Public", true)

	if _, err := service.ListLists(ctx, viewer, listsdomain.ListFilter{Scope: listsdomain.ScopePublic}); err != nil {
		t.Fatalf("list lists: %v", err)
	}

	// Writes that bypass the service are not seen until the cache is cleared.
	hidden := listsdomain.List{ID: "direct", Title: "Direct", IsPublic: true, CreatorID: "x", CreatedAt: time.Now()}
	if err := repo.CreateList(ctx, &hidden); err != nil {
		t.Fatalf("create direct: %v", err)
	}
	views, err := service.ListLists(ctx, viewer, listsdomain.ListFilter{Scope: listsdomain.ScopePublic})
	if err != nil {
		t.Fatalf("list lists: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("expected cached page with 1 list, got %d", len(views))
	}

	mustAddItem(t, service, owner, list.List.ID, "eggs")
	views, err = service.ListLists(ctx, viewer, listsdomain.ListFilter{Scope: listsdomain.ScopePublic})
	if err != nil {
		t.Fatalf("list lists: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("expected refreshed page with 2 lists, got %d", len(views))
	}
}

func TestListMineScope(t *testing.T) {
	service, _, _ := newTestService(t)
	ctx := context.Background()
	mustCreateList(t, service, owner, "A", false)
	mustCreateList(t, service, owner, "B", true)
	mustCreateList(t, service, viewer, "C", true)

	mine, err := service.ListLists(ctx, owner, listsdomain.ListFilter{Scope: listsdomain.ScopeMine})
	if err != nil {
		t.Fatalf("list mine: %v", err)
	}
	if len(mine) != 2 {
		t.Fatalf("expected 2 own lists, got %d", len(mine))
	}
	if _, err := service.ListLists(ctx, policy.Actor{}, listsdomain.ListFilter{Scope: listsdomain.ScopeMine}); !errors.Is(err, listsdomain.ErrUnauthenticated) {
		t.Fatalf("expected unauthenticated, got %v", err)
	}
	if _, err := service.ListLists(ctx, owner, listsdomain.ListFilter{Scope: "starred"}); !errors.Is(err, listsdomain.ErrInvalidInput) {
		t.Fatalf("expected invalid scope, got %v", err)
	}
}

func TestUpdateListRules(t *testing.T) {
	service, _, _ := newTestService(t)
	ctx := context.Background()
	list := mustCreateList(t, service, owner, "Trip", true)

	if _, err := service.UpdateList(ctx, owner, listsdomain.UpdateListInput{ID: list.List.ID}); !errors.Is(err, listsdomain.ErrInvalidInput) {
		t.Fatalf("expected no fields error, got %v", err)
	}
	title := "Road trip"
	if _, err := service.UpdateList(ctx, viewer, listsdomain.UpdateListInput{ID: list.List.ID, Title: &title}); !errors.Is(err, listsdomain.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}

	private := false
	updated, err := service.UpdateList(ctx, owner, listsdomain.UpdateListInput{ID: list.List.ID, Title: &title, IsPublic: &private})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.List.Title != "Road trip" || updated.List.IsPublic {
		t.Fatalf("unexpected update %+v", updated.List)
	}

	views, err := service.ListLists(ctx, viewer, listsdomain.ListFilter{Scope: listsdomain.ScopePublic})
	if err != nil {
		t.Fatalf("list lists: %v", err)
	}
	if len(views) != 0 {
		t.Fatalf("expected list gone from public page, got %d", len(views))
	}
}

func TestDeleteList(t *testing.T) {
	service, _, notifier := newTestService(t)
	ctx := context.Background()
	list := mustCreateList(t, service, owner, "Temp", false)
	mustAddItem(t, service, owner, list.List.ID, "x")

	if err := service.DeleteList(ctx, viewer, list.List.ID); !errors.Is(err, listsdomain.ErrListNotFound) {
		t.Fatalf("expected not found for stranger, got %v", err)
	}
	if err := service.DeleteList(ctx, owner, list.List.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := service.GetList(ctx, owner, list.List.ID); !errors.Is(err, listsdomain.ErrListNotFound) {
		t.Fatalf("expected deleted list to be gone, got %v", err)
	}
	if len(notifier.deleted) != 1 || notifier.deleted[0] != list.List.ID {
		t.Fatalf("expected delete notification, got %v", notifier.deleted)
	}
}

func TestFailedTransactionLeavesStateUntouched(t *testing.T) {
	service, repo, _ := newTestService(t)
	ctx := context.Background()
	list := mustCreateList(t, service, owner, "Public", true)

	boom := errors.New("boom")
	err := repo.Transaction(ctx, func(tx listsdomain.Repository) error {
		if err := tx.CreateItem(ctx, &listsdomain.Item{ID: "i1", ListID: list.List.ID, Text: "ghost"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	detail, err := service.GetList(ctx, owner, list.List.ID)
	if err != nil {
		t.Fatalf("get list: %v", err)
	}
	if len(detail.Items) != 0 {
		t.Fatalf("expected rolled back item, got %d items", len(detail.Items))
	}
}
