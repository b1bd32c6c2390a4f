package engine

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"family-lists-go/internal/policy"
)

func TestToggleStarMovesCountByOne(t *testing.T) {
	remote := newFakeRemote(viewerID)
	remote.seed("list-1", ownerID, true)
	remote.lists["list-1"].StarsCount = 3
	c := newTestCoordinator(remote, Options{})
	mustMount(t, c, "list-1")

	res, err := c.ToggleStar(context.Background(), "list-1")
	if err != nil {
		t.Fatalf("star: %v", err)
	}
	if !res.IsStarred || res.StarsCount != 4 {
		t.Fatalf("expected starred with 4, got %+v", res)
	}
	list, _ := c.List("list-1")
	if !list.IsStarred || list.StarsCount != 4 {
		t.Fatalf("expected cached starred with 4, got %v/%d", list.IsStarred, list.StarsCount)
	}

	if _, err := c.ToggleStar(context.Background(), "list-1"); err != nil {
		t.Fatalf("unstar: %v", err)
	}
	list, _ = c.List("list-1")
	if list.IsStarred || list.StarsCount != 3 {
		t.Fatalf("expected unstarred with 3, got %v/%d", list.IsStarred, list.StarsCount)
	}
}

func TestToggleStarFailureRestores(t *testing.T) {
	remote := newFakeRemote(viewerID)
	remote.seed("list-1", ownerID, true)
	c := newTestCoordinator(remote, Options{})
	before := mustMount(t, c, "list-1")

	remote.failWith("ToggleStar", ErrNetwork)
	if _, err := c.ToggleStar(context.Background(), "list-1"); !errors.Is(err, ErrNetwork) {
		t.Fatalf("expected network error, got %v", err)
	}
	after, _ := c.List("list-1")
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("expected %+v, got %+v", before, after)
	}
}

func TestCreatorCannotStarOwnList(t *testing.T) {
	remote := newFakeRemote(ownerID)
	remote.seed("list-1", ownerID, true)
	c := newTestCoordinator(remote, Options{})
	mustMount(t, c, "list-1")

	if _, err := c.ToggleStar(context.Background(), "list-1"); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected permission denied, got %v", err)
	}
	if got := remote.callCount("ToggleStar"); got != 0 {
		t.Fatalf("expected no star call, got %d", got)
	}
	for _, action := range c.Allowed("list-1") {
		if action == policy.ActionStar || action == policy.ActionCopy {
			t.Fatalf("expected %s not offered to the creator", action)
		}
	}
}

func TestCopyListIsIndependent(t *testing.T) {
	remote := newFakeRemote(viewerID)
	remote.seed("src", ownerID, true, items(true, false)...)
	c := newTestCoordinator(remote, Options{})
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	mustMount(t, c, "src")
	source, _ := c.List("src")

	copied, err := c.CopyList(context.Background(), "src")
	if err != nil {
		t.Fatalf("copy: %v", err)
	}
	if !copied.IsOwner || copied.IsPublic || copied.CreatorID != viewerID {
		t.Fatalf("expected private copy owned by viewer, got %+v", copied)
	}
	if copied.OriginalListID != "src" || copied.OriginalListTitle != source.Title {
		t.Fatalf("expected back-reference to src, got %q/%q", copied.OriginalListID, copied.OriginalListTitle)
	}
	if copied.Detail != DetailLoaded || len(copied.Items) != 2 || copied.CompletedItemsCount != 0 {
		t.Fatalf("expected loaded copy with reset items, got %+v", copied)
	}
	mine := c.Lists(ScopeMine)
	if len(mine) == 0 || mine[0].ID != copied.ID {
		t.Fatalf("expected copy first in mine, got %+v", mine)
	}

	if _, err := c.ToggleItem(context.Background(), copied.ID, copied.Items[1].ID); err != nil {
		t.Fatalf("toggle in copy: %v", err)
	}
	after, _ := c.List("src")
	if !reflect.DeepEqual(source, after) {
		t.Fatalf("expected source untouched, got %+v", after)
	}
	updatedCopy, _ := c.List(copied.ID)
	if updatedCopy.CompletedItemsCount != 1 {
		t.Fatalf("expected 1 completed in copy, got %d", updatedCopy.CompletedItemsCount)
	}
}

func TestCopyListRules(t *testing.T) {
	remote := newFakeRemote(ownerID)
	remote.seed("own", ownerID, true)
	c := newTestCoordinator(remote, Options{})
	mustMount(t, c, "own")

	if _, err := c.CopyList(context.Background(), "own"); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected permission denied, got %v", err)
	}
	if got := remote.callCount("CopyList"); got != 0 {
		t.Fatalf("expected no copy call, got %d", got)
	}
}

func TestCopyListDetailFailureInsertsStub(t *testing.T) {
	remote := newFakeRemote(viewerID)
	remote.seed("src", ownerID, true, items(false)...)
	c := newTestCoordinator(remote, Options{})
	mustMount(t, c, "src")

	remote.failWith("GetListDetail", ErrNetwork)
	copied, err := c.CopyList(context.Background(), "src")
	if err != nil {
		t.Fatalf("copy: %v", err)
	}
	if copied.Detail != DetailNotLoaded || !copied.Stale || !copied.IsOwner || copied.OriginalListID != "src" {
		t.Fatalf("expected stale owned stub, got %+v", copied)
	}
}

func TestRateItemZeroRetracts(t *testing.T) {
	remote := newFakeRemote(viewerID)
	remote.seed("list-1", ownerID, true, items(false)...)
	remote.ratings["item-a"] = map[string]int{"someone": 5}
	remote.lists["list-1"].Items[0].TotalRatings = 1
	remote.lists["list-1"].Items[0].AverageRating = 5
	c := newTestCoordinator(remote, Options{})
	mustMount(t, c, "list-1")

	res, err := c.RateItem(context.Background(), "list-1", "item-a", 4)
	if err != nil {
		t.Fatalf("rate: %v", err)
	}
	if res.UserRating != 4 || res.TotalRatings != 2 || res.AverageRating != 4.5 {
		t.Fatalf("unexpected rating result %+v", res)
	}

	if _, err := c.RateItem(context.Background(), "list-1", "item-a", 0); err != nil {
		t.Fatalf("retract: %v", err)
	}
	list, _ := c.List("list-1")
	item := list.Items[0]
	if item.UserRating != 0 || item.TotalRatings != 1 || item.AverageRating != 5 {
		t.Fatalf("expected retracted rating, got %+v", item)
	}
}

func TestRateItemRules(t *testing.T) {
	remote := newFakeRemote(ownerID)
	remote.seed("private", ownerID, false, items(false)...)
	remote.seed("public", ownerID, true, items(false)...)
	c := newTestCoordinator(remote, Options{})
	mustMount(t, c, "private")
	mustMount(t, c, "public")

	if _, err := c.RateItem(context.Background(), "private", "item-a", 3); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected permission denied on private list, got %v", err)
	}
	if _, err := c.RateItem(context.Background(), "public", "item-a", 6); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := c.RateItem(context.Background(), "public", "item-a", 3); err != nil {
		t.Fatalf("expected owner may rate on public list, got %v", err)
	}
	if got := remote.callCount("RateItem"); got != 1 {
		t.Fatalf("expected 1 rate call, got %d", got)
	}
}

func TestRateItemFailureRestores(t *testing.T) {
	remote := newFakeRemote(viewerID)
	remote.seed("list-1", ownerID, true, items(false)...)
	c := newTestCoordinator(remote, Options{})
	before := mustMount(t, c, "list-1")

	remote.failWith("RateItem", ErrServer)
	if _, err := c.RateItem(context.Background(), "list-1", "item-a", 2); !errors.Is(err, ErrServer) {
		t.Fatalf("expected server error, got %v", err)
	}
	after, _ := c.List("list-1")
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("expected %+v, got %+v", before, after)
	}
}

func TestAddCommentUpdatesThreadAndCount(t *testing.T) {
	remote := newFakeRemote(viewerID)
	remote.seed("list-1", ownerID, true, items(false)...)
	c := newTestCoordinator(remote, Options{})
	mustMount(t, c, "list-1")

	thread, err := c.LoadComments(context.Background(), "list-1", "item-a")
	if err != nil {
		t.Fatalf("load comments: %v", err)
	}
	if thread == nil || len(thread) != 0 {
		t.Fatalf("expected empty loaded thread, got %+v", thread)
	}

	comment, err := c.AddComment(context.Background(), "list-1", "item-a", "  where from?  ")
	if err != nil {
		t.Fatalf("add comment: %v", err)
	}
	if comment.Text != "where from?" || comment.Pending || IsTempID(comment.ID) {
		t.Fatalf("unexpected comment %+v", comment)
	}
	comments := c.Comments("list-1", "item-a")
	if len(comments) != 1 || comments[0].ID != comment.ID {
		t.Fatalf("expected confirmed comment in thread, got %+v", comments)
	}
	list, _ := c.List("list-1")
	if list.Items[0].CommentsCount != 1 {
		t.Fatalf("expected comments count 1, got %d", list.Items[0].CommentsCount)
	}
}

func TestAddCommentFailureRestores(t *testing.T) {
	remote := newFakeRemote(viewerID)
	remote.seed("list-1", ownerID, true, items(false)...)
	c := newTestCoordinator(remote, Options{})
	before := mustMount(t, c, "list-1")
	if _, err := c.LoadComments(context.Background(), "list-1", "item-a"); err != nil {
		t.Fatalf("load comments: %v", err)
	}

	remote.failWith("AddComment", ErrNetwork)
	if _, err := c.AddComment(context.Background(), "list-1", "item-a", "hi"); !errors.Is(err, ErrNetwork) {
		t.Fatalf("expected network error, got %v", err)
	}
	after, _ := c.List("list-1")
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("expected %+v, got %+v", before, after)
	}
	if got := c.Comments("list-1", "item-a"); len(got) != 0 {
		t.Fatalf("expected empty thread, got %+v", got)
	}
}

func TestAddCommentRules(t *testing.T) {
	remote := newFakeRemote(ownerID)
	remote.seed("private", ownerID, false, items(false)...)
	remote.seed("public", ownerID, true, items(false)...)
	c := newTestCoordinator(remote, Options{})
	mustMount(t, c, "private")
	mustMount(t, c, "public")

	if _, err := c.AddComment(context.Background(), "private", "item-a", "note"); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected permission denied, got %v", err)
	}
	if _, err := c.AddComment(context.Background(), "public", "item-a", " "); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := c.AddComment(context.Background(), "public", "missing", "note"); !errors.Is(err, ErrUnknownItem) {
		t.Fatalf("expected unknown item, got %v", err)
	}
	if got := remote.callCount("AddComment"); got != 0 {
		t.Fatalf("expected no comment call, got %d", got)
	}
}
